package main

import "sync"

// channelRegistry maps channel names to subscriber connection ids.
// Channels are created on first subscribe and forgotten when the last
// subscriber leaves, so an empty channel is never observable.
type channelRegistry struct {
	mu       sync.RWMutex
	channels map[string]map[string]bool
}

func newChannelRegistry() *channelRegistry {
	return &channelRegistry{channels: make(map[string]map[string]bool)}
}

// subscribe adds connID to channel, creating the channel if needed.
// Adding an already-present id is a no-op. Reports whether the channel
// was created by this call.
func (r *channelRegistry) subscribe(channel, connID string) (created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	subs, ok := r.channels[channel]
	if !ok {
		subs = make(map[string]bool)
		r.channels[channel] = subs
		created = true
	}
	subs[connID] = true
	return created
}

// unsubscribe removes connID from channel, removing the channel when its
// subscriber set becomes empty. Reports whether the channel was removed.
func (r *channelRegistry) unsubscribe(channel, connID string) (removed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	subs, ok := r.channels[channel]
	if !ok {
		return false
	}
	delete(subs, connID)
	if len(subs) == 0 {
		delete(r.channels, channel)
		return true
	}
	return false
}

// subscribers returns a snapshot of the subscriber ids, safe to iterate
// during fan-out without holding the registry lock.
func (r *channelRegistry) subscribers(channel string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	subs := r.channels[channel]
	ids := make([]string, 0, len(subs))
	for id := range subs {
		ids = append(ids, id)
	}
	return ids
}

// channelsFor returns every channel containing connID, used on
// connection teardown.
func (r *channelRegistry) channelsFor(connID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var names []string
	for name, subs := range r.channels {
		if subs[connID] {
			names = append(names, name)
		}
	}
	return names
}

func (r *channelRegistry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels)
}
