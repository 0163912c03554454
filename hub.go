package main

import (
	"sync"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// hub is the connection dispatcher. It owns the connection table and
// holds the registries every handler mutates. Handlers run on the
// owning connection's reader goroutine and complete without blocking:
// fan-out iterates a subscriber snapshot and pushes into buffered send
// queues, so one slow peer never throttles another.
type hub struct {
	mu     sync.RWMutex
	conns  map[string]*connection
	closed bool

	registry *channelRegistry
	presence *presenceRegistry
	limiter  *admissionLimiter
	auth     *authSigner

	channelLimit int
}

func newHub(cfg *Config) *hub {
	return &hub{
		conns:        make(map[string]*connection),
		registry:     newChannelRegistry(),
		presence:     newPresenceRegistry(),
		limiter:      newAdmissionLimiter(cfg.ConnectionLimitPerIP, cfg.MessageRateLimit, cfg.messageRateWindow()),
		auth:         newAuthSigner(cfg.AuthSecret),
		channelLimit: cfg.ChannelLimitPerConnection,
	}
}

type establishedData struct {
	SocketID        string `json:"socket_id"`
	ActivityTimeout int    `json:"activity_timeout"`
}

func (h *hub) addConn(c *connection) {
	h.mu.Lock()
	h.conns[c.id] = c
	total := len(h.conns)
	h.mu.Unlock()
	log.Info().Str("socket_id", c.id).Str("remote_ip", c.remoteIP).
		Int("connections", total).Msg("websocket connected")
	h.queueFrame(c, encodeFrame(eventConnEstablished,
		establishedData{SocketID: c.id, ActivityTimeout: 120}, ""))
}

// removeConn reverses every registration the connection holds. Leave
// broadcasts are best effort and never block the cleanup of the next
// channel.
func (h *hub) removeConn(c *connection) {
	for name := range c.subscribed {
		if h.registry.unsubscribe(name, c.id) {
			decr("channels", 1)
		}
		if classify(name) == channelPresence {
			if m, ok := h.presence.removeMember(name, c.id); ok {
				h.broadcast(name, encodeFrame(eventMemberRemoved, memberRemovedData{m.UserID}, name), "")
			}
		}
	}
	h.mu.Lock()
	delete(h.conns, c.id)
	total := len(h.conns)
	h.mu.Unlock()
	h.limiter.removeConnection(c.remoteIP)
	h.limiter.dropConnection(c.id)
	close(c.done)
	log.Info().Str("socket_id", c.id).Int("connections", total).Msg("websocket disconnected")
}

// route dispatches one inbound frame. Admission is consulted before the
// frame is parsed; ping frames count toward the quota like any other.
func (h *hub) route(c *connection, raw []byte) {
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		return
	}
	if !h.limiter.canSendMessage(c.id) {
		h.sendError(c, msgRateLimited)
		return
	}
	env, err := decodeEnvelope(raw)
	if err != nil {
		h.sendError(c, msgBadJSON)
		return
	}
	switch env.Event {
	case eventSubscribe:
		h.handleSubscribe(c, env)
	case eventUnsubscribe:
		h.handleUnsubscribe(c, env)
	case eventPing:
		h.queueFrame(c, encodeFrame(eventPong, emptyObject, ""))
	default:
		h.handleClientEvent(c, env)
	}
}

func (h *hub) handleSubscribe(c *connection, env *envelope) {
	name := env.Channel
	if !isValidChannel(name) {
		h.sendError(c, msgBadChannel)
		return
	}
	if len(c.subscribed) >= h.channelLimit {
		h.sendError(c, msgChannelLimit)
		return
	}
	if c.subscribed[name] {
		// Idempotent acknowledgement.
		h.queueFrame(c, encodeFrame(eventSubSucceeded, emptyObject, name))
		return
	}
	if requiresAuth(name) && !h.auth.verify(env.Auth, c.id, name) {
		h.sendError(c, msgAuthFailed)
		return
	}

	if h.registry.subscribe(name, c.id) {
		incr("channels", 1)
	}
	c.subscribed[name] = true

	if classify(name) != channelPresence {
		h.queueFrame(c, encodeFrame(eventSubSucceeded, emptyObject, name))
		return
	}

	member, err := parseChannelData(env.ChannelData, c.id)
	if err != nil {
		// Roll the partial subscription back.
		if h.registry.unsubscribe(name, c.id) {
			decr("channels", 1)
		}
		delete(c.subscribed, name)
		h.sendError(c, msgBadChannelData)
		return
	}
	h.presence.addMember(name, c.id, member)
	// The subscriber sees itself in the success payload; everyone else
	// sees exactly one member_added, and the subscriber none.
	h.queueFrame(c, encodeFrame(eventSubSucceeded, h.presence.presenceData(name), name))
	h.broadcast(name, encodeFrame(eventMemberAdded, member, name), c.id)
}

// parseChannelData extracts the member record from a subscribe frame's
// channel_data. Absent data yields a member keyed by the socket id with
// empty info.
func parseChannelData(data, socketID string) (presenceMember, error) {
	m := presenceMember{UserID: socketID, UserInfo: emptyObject}
	if data == "" {
		return m, nil
	}
	var parsed struct {
		UserID   string          `json:"user_id"`
		UserInfo json.RawMessage `json:"user_info"`
	}
	if err := json.Unmarshal([]byte(data), &parsed); err != nil {
		return presenceMember{}, err
	}
	if parsed.UserID != "" {
		m.UserID = parsed.UserID
	}
	if len(parsed.UserInfo) > 0 {
		m.UserInfo = parsed.UserInfo
	}
	return m, nil
}

type memberRemovedData struct {
	UserID string `json:"user_id"`
}

func (h *hub) handleUnsubscribe(c *connection, env *envelope) {
	name := env.Channel
	if !c.subscribed[name] {
		return
	}
	if h.registry.unsubscribe(name, c.id) {
		decr("channels", 1)
	}
	delete(c.subscribed, name)
	if classify(name) == channelPresence {
		if m, ok := h.presence.removeMember(name, c.id); ok {
			h.broadcast(name, encodeFrame(eventMemberRemoved, memberRemovedData{m.UserID}, name), "")
		}
	}
}

// handleClientEvent re-emits a non-reserved event to every subscriber of
// its channel, the sender included, so the sender observes its own
// dispatch ordering.
func (h *hub) handleClientEvent(c *connection, env *envelope) {
	if env.Channel == "" || len(env.Data) == 0 {
		h.sendError(c, msgClientEventShape)
		return
	}
	if !c.subscribed[env.Channel] {
		h.sendError(c, msgNotSubscribed)
		return
	}
	if classify(env.Channel) != channelPublic {
		h.sendError(c, msgClientEventDenied)
		return
	}
	h.broadcast(env.Channel, encodeFrame(env.Event, env.Data, env.Channel), "")
}

// broadcast fans a frame out to the channel's current subscribers,
// skipping exclude. The subscriber list is a snapshot; a connection that
// disappears before its send is simply skipped.
func (h *hub) broadcast(channel string, frame []byte, exclude string) {
	if frame == nil {
		return
	}
	for _, id := range h.registry.subscribers(channel) {
		if id == exclude {
			continue
		}
		h.mu.RLock()
		c, ok := h.conns[id]
		h.mu.RUnlock()
		if !ok {
			continue
		}
		h.queueFrame(c, frame)
	}
}

// broadcastServerEvent emits a server-initiated event to every
// subscriber of channel regardless of channel type. No rate limit
// applies.
func (h *hub) broadcastServerEvent(channel, event string, data json.RawMessage) {
	h.broadcast(channel, encodeFrame(event, data, channel), "")
}

// queueFrame pushes a frame into the peer's send queue. A full queue
// means a slow peer; the frame is dropped and counted rather than
// blocking the caller.
func (h *hub) queueFrame(c *connection, frame []byte) {
	if frame == nil {
		return
	}
	select {
	case <-c.done:
	case c.send <- frame:
	default:
		incr("drops", 1)
		log.Warn().Str("socket_id", c.id).Msg("send queue full, dropping frame")
	}
}

func (h *hub) sendError(c *connection, message string) {
	incr("errors", 1)
	h.queueFrame(c, errorFrame(message))
}

type hubStats struct {
	Connections      int `json:"connections"`
	Channels         int `json:"channels"`
	PresenceChannels int `json:"presenceChannels"`
}

func (h *hub) stats() hubStats {
	h.mu.RLock()
	conns := len(h.conns)
	h.mu.RUnlock()
	return hubStats{
		Connections:      conns,
		Channels:         h.registry.count(),
		PresenceChannels: h.presence.channelCount(),
	}
}

// shutdown closes every open connection with code 1001. Frames arriving
// afterwards are ignored; teardown then flows through each connection's
// normal exit path.
func (h *hub) shutdown() {
	h.mu.Lock()
	h.closed = true
	conns := make([]*connection, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()
	for _, c := range conns {
		if err := c.w.wsWriteClose(websocket.CloseGoingAway, reasonShutdown); err != nil {
			log.Warn().Str("socket_id", c.id).Err(err).Msg("close frame write failed")
		}
		c.w.wsClose()
	}
	log.Info().Int("connections_closed", len(conns)).Msg("hub stopped")
}

// sweepLoop runs the limiter sweeper off the shared ticker until the
// ticker stops.
func (h *hub) sweepLoop(sub *subscriber) {
	for range sub.tick {
		h.limiter.sweep()
	}
}

// statsLoop periodically logs operational gauges off the shared ticker.
func (h *hub) statsLoop(sub *subscriber) {
	for range sub.tick {
		s := h.stats()
		log.Info().Int("connections", s.Connections).Int("channels", s.Channels).
			Int("presence_channels", s.PresenceChannels).Msg("hub stats")
	}
}
