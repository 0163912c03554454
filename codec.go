package main

import (
	"errors"

	"github.com/goccy/go-json"
)

const (
	eventNameMax = 200

	// Maximum inbound frame size, enforced by the transport read limit.
	maxFrameSize = 4096
)

// Error frame messages. Every protocol failure is answered in band with
// {"event":"pusher:error","data":{"message":...}} and the connection
// stays open.
const (
	msgBadJSON           = "Invalid JSON format"
	msgRateLimited       = "Rate limit exceeded"
	msgBadChannel        = "Invalid channel name"
	msgAuthFailed        = "Authentication failed"
	msgNotSubscribed     = "Not subscribed to channel"
	msgClientEventDenied = "Client events not allowed on private/presence channels"
	msgChannelLimit      = "Channel limit exceeded"
	msgBadChannelData    = "Invalid channel_data"
	msgClientEventShape  = "Client events require channel and data"
)

var errBadEnvelope = errors.New("bad envelope")

// envelope is the wire frame in both directions. Data stays raw so that
// fan-out re-emits payloads without a decode/encode round trip.
type envelope struct {
	Event       string          `json:"event"`
	Data        json.RawMessage `json:"data,omitempty"`
	Channel     string          `json:"channel,omitempty"`
	Auth        string          `json:"auth,omitempty"`
	ChannelData string          `json:"channel_data,omitempty"`
}

// decodeEnvelope parses an inbound text frame. Event is required and
// length bounded; channel shares the channel name bound.
func decodeEnvelope(raw []byte) (*envelope, error) {
	var e envelope
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, err
	}
	if e.Event == "" || len(e.Event) > eventNameMax {
		return nil, errBadEnvelope
	}
	if len(e.Channel) > channelNameMax {
		return nil, errBadEnvelope
	}
	return &e, nil
}

// encodeFrame builds an outbound frame. A marshal failure yields nil,
// which senders treat as a silent drop.
func encodeFrame(event string, data interface{}, channel string) []byte {
	frame := struct {
		Event   string      `json:"event"`
		Data    interface{} `json:"data"`
		Channel string      `json:"channel,omitempty"`
	}{event, data, channel}
	raw, err := json.Marshal(frame)
	if err != nil {
		return nil
	}
	return raw
}

func errorFrame(message string) []byte {
	return encodeFrame(eventError, map[string]string{"message": message}, "")
}

// emptyObject is the data payload for acknowledgements with no content.
var emptyObject = json.RawMessage("{}")
