// Package auth implements sign-in, sessions and the route guard.
package auth

import (
	"strconv"
	"sync"
)

// Session is the identity of a signed-in user
type Session struct {
	UserID    uint   `json:"userId"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// State is the resolution state of a session
type State int

const (
	StateLoading State = iota
	StateAuthenticated
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "loading"
	}
}

func stateOf(s *Session) State {
	if s == nil {
		return StateUnauthenticated
	}
	return StateAuthenticated
}

// Hub holds the current session of one client scope and notifies
// subscribers when it changes. State and session are updated together.
type Hub struct {
	pubMu   sync.Mutex // orders notifications
	mu      sync.Mutex
	state   State
	session *Session
	subs    map[int]func(State, *Session)
	nextID  int
}

// NewHub creates a hub in the loading state
func NewHub() *Hub {
	return &Hub{subs: make(map[int]func(State, *Session))}
}

// Current returns the state and session as one snapshot
func (h *Hub) Current() (State, *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state, h.session
}

// Publish replaces the current session; nil means signed out
func (h *Hub) Publish(s *Session) {
	h.pubMu.Lock()
	defer h.pubMu.Unlock()

	h.mu.Lock()
	h.state = stateOf(s)
	h.session = s
	subs := make([]func(State, *Session), 0, len(h.subs))
	for _, fn := range h.subs {
		subs = append(subs, fn)
	}
	state := h.state
	h.mu.Unlock()

	for _, fn := range subs {
		fn(state, s)
	}
}

// Subscribe registers fn for session changes. If the hub is already
// resolved fn is called once with the current value. The returned function
// removes the subscription.
func (h *Hub) Subscribe(fn func(State, *Session)) (unsubscribe func()) {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = fn
	state, session := h.state, h.session
	h.mu.Unlock()

	if state != StateLoading {
		fn(state, session)
	}

	return func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
	}
}

// Hubs keeps one Hub per user
type Hubs struct {
	mu   sync.Mutex
	hubs map[string]*Hub
}

// NewHubs creates an empty hub registry
func NewHubs() *Hubs {
	return &Hubs{hubs: make(map[string]*Hub)}
}

// For returns the hub of userID, creating it on first use
func (r *Hubs) For(userID uint) *Hub {
	key := strconv.FormatUint(uint64(userID), 10)

	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.hubs[key]
	if !ok {
		h = NewHub()
		r.hubs[key] = h
	}
	return h
}
