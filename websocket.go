package main

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Send pings to peer with this period. There is no read deadline;
	// idle connections stay open and rely on TCP keepalive and client
	// pings.
	pingPeriod = 27 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = maxFrameSize
)

type websocketManager interface {
	wsSetReadLimit()
	wsReadMessage() (int, []byte, error)
	wsSetWriteDeadline()
	wsWriteMessage(int, []byte) error
	wsWriteClose(code int, reason string) error
	wsClose()
}

type websocketInteractor struct {
	ws *websocket.Conn
}

func (w websocketInteractor) wsSetReadLimit() {
	w.ws.SetReadLimit(maxMessageSize)
}

func (w websocketInteractor) wsReadMessage() (messageType int, p []byte, err error) {
	return w.ws.ReadMessage()
}

func (w websocketInteractor) wsSetWriteDeadline() {
	w.ws.SetWriteDeadline(time.Now().Add(writeWait))
}

func (w websocketInteractor) wsWriteMessage(messageType int, payload []byte) error {
	return w.ws.WriteMessage(messageType, payload)
}

func (w websocketInteractor) wsWriteClose(code int, reason string) error {
	return w.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(writeWait))
}

func (w websocketInteractor) wsClose() {
	w.ws.Close()
}
