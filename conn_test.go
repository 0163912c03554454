package main

import (
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var testWrite []byte
var testInt int

type mockWsInteractor struct {
	msg []byte
	err error
}

func (mq mockWsInteractor) wsSetReadLimit() {}

func (mq mockWsInteractor) wsReadMessage() (int, []byte, error) {
	return websocket.TextMessage, mq.msg, mq.err
}

func (mq mockWsInteractor) wsSetWriteDeadline() {}

func (mq mockWsInteractor) wsWriteMessage(messageType int, payload []byte) error {
	testInt = messageType
	testWrite = payload
	return mq.err
}

func (mq mockWsInteractor) wsWriteClose(code int, reason string) error { return nil }

func (mq mockWsInteractor) wsClose() {}

func TestConnReadMessage(t *testing.T) {
	h := newHub(testConfig())
	c := newConnection(mockWsInteractor{err: errors.New("message read error")}, h, "127.0.0.1")

	// assert on error, nothing is routed
	if err := c.readMessage(); err == nil {
		t.Fatal("No Error Returned")
	}
	if len(c.send) != 0 {
		t.Fatal("Expectation: send channel length should be 0, Received:", len(c.send))
	}

	// a valid frame is routed and answered
	c.w = mockWsInteractor{msg: []byte(`{"event":"pusher:ping"}`)}
	before := c.lastActivity
	time.Sleep(time.Millisecond)
	if err := c.readMessage(); err != nil {
		t.Fatal("Expectation: Error should be nil, Received:", err)
	}
	if len(c.send) != 1 {
		t.Fatal("Expectation: send channel length should be 1, Received:", len(c.send))
	}
	if !c.lastActivity.After(before) {
		t.Fatal("Expectation: activity timestamp advanced")
	}
}

func TestConnWriter(t *testing.T) {
	h := newHub(testConfig())
	c := newConnection(mockWsInteractor{}, h, "127.0.0.1")

	go c.writer(250 * time.Millisecond)
	c.send <- []byte("bananas")

	// On receipt of valid message, message written
	// with type websocket.TextMessage
	time.Sleep(50 * time.Millisecond)
	if string(testWrite) != "bananas" {
		t.Fatal("Expectation: bananas, Received:", string(testWrite))
	}
	if testInt != websocket.TextMessage {
		t.Fatal("Expectation:", websocket.TextMessage, "Received:", testInt)
	}

	// On timed intervals, ping with nil message
	// and type websocket.PingMessage
	time.Sleep(300 * time.Millisecond)
	if len(testWrite) != 0 {
		t.Fatal("Expectation: nil, Received:", string(testWrite))
	}
	if testInt != websocket.PingMessage {
		t.Fatal("Expectation:", websocket.PingMessage, "Received:", testInt)
	}

	close(c.done)
}

func TestSocketIDFormat(t *testing.T) {
	id := newSocketID()
	ms, random, ok := strings.Cut(id, ".")
	if !ok {
		t.Fatal("Expectation: <unix_ms>.<random>, Received:", id)
	}
	if _, err := strconv.ParseInt(ms, 10, 64); err != nil {
		t.Fatal("Expectation: millisecond prefix, Received:", ms)
	}
	if len(random) != 8 {
		t.Fatal("Expectation: 8 random chars, Received:", random)
	}
	if newSocketID() == newSocketID() {
		t.Fatal("Expectation: unique ids")
	}
}
