package main

import (
	"sync"

	"github.com/goccy/go-json"
)

// presenceMember is the (user_id, user_info) record one subscribing
// connection contributes to a presence channel.
type presenceMember struct {
	UserID   string          `json:"user_id"`
	UserInfo json.RawMessage `json:"user_info"`
}

// presenceRegistry holds member records per (presence channel,
// connection id). The same user_id may appear under multiple connection
// ids; each occurrence is independent so leaves are accounted per
// connection.
type presenceRegistry struct {
	mu       sync.RWMutex
	channels map[string]map[string]presenceMember
}

// presencePayload is the wire shape carried by subscription_succeeded on
// presence channels. The hash is keyed by user_id; when two connections
// share a user_id the last write wins, while count stays per connection.
type presencePayload struct {
	Presence struct {
		Count int                        `json:"count"`
		Hash  map[string]json.RawMessage `json:"hash"`
	} `json:"presence"`
}

func newPresenceRegistry() *presenceRegistry {
	return &presenceRegistry{channels: make(map[string]map[string]presenceMember)}
}

func (r *presenceRegistry) addMember(channel, connID string, m presenceMember) {
	r.mu.Lock()
	defer r.mu.Unlock()
	members, ok := r.channels[channel]
	if !ok {
		members = make(map[string]presenceMember)
		r.channels[channel] = members
	}
	members[connID] = m
}

// removeMember deletes connID's record, returning it for the leave
// broadcast. The channel entry is dropped with its last member.
func (r *presenceRegistry) removeMember(channel, connID string) (presenceMember, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	members, ok := r.channels[channel]
	if !ok {
		return presenceMember{}, false
	}
	m, ok := members[connID]
	if !ok {
		return presenceMember{}, false
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(r.channels, channel)
	}
	return m, true
}

func (r *presenceRegistry) hasMember(channel, connID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.channels[channel][connID]
	return ok
}

func (r *presenceRegistry) getMember(channel, connID string) (presenceMember, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.channels[channel][connID]
	return m, ok
}

// members returns a snapshot keyed by connection id.
func (r *presenceRegistry) members(channel string) map[string]presenceMember {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snapshot := make(map[string]presenceMember, len(r.channels[channel]))
	for id, m := range r.channels[channel] {
		snapshot[id] = m
	}
	return snapshot
}

func (r *presenceRegistry) presenceData(channel string) presencePayload {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var p presencePayload
	p.Presence.Hash = make(map[string]json.RawMessage)
	for _, m := range r.channels[channel] {
		p.Presence.Count++
		p.Presence.Hash[m.UserID] = m.UserInfo
	}
	return p
}

// channelCount reports how many presence channels have members, for
// stats reporting.
func (r *presenceRegistry) channelCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels)
}
