// Package pushhub serves as a Pusher-compatible pub/sub message bus over
// websockets.
//
//	pushhub (configured via environment, see config.go)
//
// Everything is as ephemeral as can be. A message is sent to connected
// subscribers (if any) and then forgotten. A channel is forgotten when
// its last subscriber disconnects.
//
// Subscribe to a channel by opening a websocket to the configured path
// (default /ws) and sending a pusher:subscribe frame.
//
//	{"event":"pusher:subscribe","data":{},"channel":"public-lobby"}
//
// private-* and presence-* channels additionally require an auth token
// obtained from POST /auth, binding the token to the connection's socket
// id. presence-* channels track a member record per subscriber and
// broadcast joins and leaves.
//
// Any frame whose event is not a reserved pusher:* or pusher_internal:*
// name is a client event and is fanned out verbatim to every subscriber
// of its channel, including the sender.
//
// Non-websocket GET requests to the websocket path are served HTML with
// a websocket client that speaks the protocol.
package main

// Reserved client to server events.
const (
	eventSubscribe   = "pusher:subscribe"
	eventUnsubscribe = "pusher:unsubscribe"
	eventPing        = "pusher:ping"
)

// Reserved server to client events.
const (
	eventPong            = "pusher:pong"
	eventError           = "pusher:error"
	eventConnEstablished = "pusher:connection_established"
	eventSubSucceeded    = "pusher_internal:subscription_succeeded"
	eventMemberAdded     = "pusher_internal:member_added"
	eventMemberRemoved   = "pusher_internal:member_removed"
)

// Close reasons sent with websocket close frames. Codes are the gorilla
// constants: 1001 (going away) on shutdown, 1008 (policy violation) on
// admission rejection.
const (
	reasonShutdown  = "Server shutting down"
	reasonConnLimit = "Connection limit exceeded"
)
