package main

import (
	"sync"
	"time"
)

// mTicker fans one time.Ticker out to multiple subscribers. Ticks a
// subscriber is not ready to receive are discarded.
type mTicker struct {
	mu          sync.Mutex
	subscribers map[*subscriber]struct{}
	ticker      *time.Ticker
	stopCh      chan struct{}
	stopped     bool
	dropped     int
}

type subscriber struct {
	tick chan time.Time
}

func newMTicker(interval time.Duration) *mTicker {
	t := &mTicker{
		subscribers: make(map[*subscriber]struct{}),
		ticker:      time.NewTicker(interval),
		stopCh:      make(chan struct{}),
	}
	go t.run()
	return t
}

// subscribe returns a channel to which ticks will be delivered.
func (t *mTicker) subscribe() *subscriber {
	t.mu.Lock()
	defer t.mu.Unlock()
	sub := &subscriber{tick: make(chan time.Time, 1)}
	t.subscribers[sub] = struct{}{}
	return sub
}

func (t *mTicker) unsubscribe(sub *subscriber) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.subscribers[sub]; ok {
		close(sub.tick)
		delete(t.subscribers, sub)
	}
}

// stop stops the ticker and closes all subscribed channels.
func (t *mTicker) stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.stopped = true
	t.ticker.Stop()
	close(t.stopCh)
	for sub := range t.subscribers {
		close(sub.tick)
	}
	t.subscribers = make(map[*subscriber]struct{})
}

func (t *mTicker) run() {
	for {
		select {
		case tick := <-t.ticker.C:
			t.mu.Lock()
			for sub := range t.subscribers {
				select {
				case sub.tick <- tick:
				default:
					t.dropped++
				}
			}
			t.mu.Unlock()
		case <-t.stopCh:
			return
		}
	}
}
