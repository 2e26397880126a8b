// Package session holds the ephemeral per-group state the extractors
// need: the group's last-message timestamp and each user's last message
// text. It lives only in process memory and is rebuilt from live traffic
// after a restart, so the first post-restart message in a busy group may
// misfire as a topic opening once. That is accepted.
package session

import (
	"sync"
	"time"
)

// Snapshot is the state relevant to one incoming message, captured
// atomically before the state is advanced.
type Snapshot struct {
	LastGroupMessageAt time.Time // zero if the group was never seen
	LastUserText       string    // empty if the user was never seen
}

// GroupState tracks one group. All access goes through Observe so that
// state is read and advanced as a single unit in event-arrival order.
type GroupState struct {
	mu            sync.Mutex
	lastMessageAt time.Time
	lastText      map[string]string
}

// NewGroupState returns an empty (cold start) group state.
func NewGroupState() *GroupState {
	return &GroupState{lastText: make(map[string]string)}
}

// Observe returns the snapshot seen by the message at `at` and advances
// the state: the group's last-message time becomes `at` and the user's
// last text becomes `text`.
func (g *GroupState) Observe(userID, text string, at time.Time) Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	snap := Snapshot{
		LastGroupMessageAt: g.lastMessageAt,
		LastUserText:       g.lastText[userID],
	}
	g.lastMessageAt = at
	g.lastText[userID] = text
	return snap
}

// Registry hands out per-group states, creating them lazily. Groups are
// independent; each state carries its own lock, so traffic in one group
// never serializes against another.
type Registry struct {
	mu     sync.Mutex
	groups map[string]*GroupState
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{groups: make(map[string]*GroupState)}
}

// Group returns the state for groupID, creating it on first sight.
func (r *Registry) Group(groupID string) *GroupState {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.groups[groupID]
	if !ok {
		g = NewGroupState()
		r.groups[groupID] = g
	}
	return g
}
