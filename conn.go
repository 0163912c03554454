package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// connection owns one websocket peer. Its subscribed set and activity
// timestamp are mutated only by the reader goroutine; the send queue is
// fed by any goroutine and drained by the writer.
type connection struct {
	id           string
	remoteIP     string
	w            websocketManager
	send         chan []byte
	done         chan struct{}
	subscribed   map[string]bool
	createdAt    time.Time
	lastActivity time.Time
	h            *hub
}

func newConnection(w websocketManager, h *hub, remoteIP string) *connection {
	now := time.Now()
	return &connection{
		id:           newSocketID(),
		remoteIP:     remoteIP,
		w:            w,
		send:         make(chan []byte, 256),
		done:         make(chan struct{}),
		subscribed:   make(map[string]bool),
		createdAt:    now,
		lastActivity: now,
		h:            h,
	}
}

// newSocketID mints "<unix_ms>.<random>" ids, unique for the process
// lifetime.
func newSocketID() string {
	return fmt.Sprintf("%d.%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

func (c *connection) run() {
	c.h.addConn(c)
	incr("websockets", 1)
	defer func() {
		decr("websockets", 1)
		c.h.removeConn(c)
	}()
	go c.writer(pingPeriod)
	c.reader()
}

func (c *connection) reader() {
	c.w.wsSetReadLimit()
	for {
		if err := c.readMessage(); err != nil {
			break
		}
	}
	c.w.wsClose()
}

func (c *connection) readMessage() error {
	_, raw, err := c.w.wsReadMessage()
	if err != nil {
		return err
	}
	incr("conn.recv", 1)
	c.lastActivity = time.Now()
	c.h.route(c, raw)
	return nil
}

func (c *connection) writer(ping time.Duration) {
	ticker := time.NewTicker(ping)
	defer func() {
		ticker.Stop()
		c.w.wsClose()
	}()
	for {
		select {
		case <-c.done:
			return
		case message := <-c.send:
			c.w.wsSetWriteDeadline()
			if err := c.w.wsWriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
			incr("conn.send", 1)
		case <-ticker.C:
			c.w.wsSetWriteDeadline()
			if err := c.w.wsWriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
