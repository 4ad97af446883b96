package auth

import (
	"context"
	"sync"

	"github.com/jimdaga/tophive/internal/metrics"
)

// LoginPath is where unauthenticated visitors are sent
const LoginPath = "/login"

// DecisionKind is what a guarded route should do
type DecisionKind int

const (
	// DecisionPlaceholder means the session is unresolved; show a loading view
	DecisionPlaceholder DecisionKind = iota
	DecisionAllow
	DecisionRedirect
)

// Decision is the outcome of a guard check
type Decision struct {
	Kind     DecisionKind
	Location string // set for DecisionRedirect
}

func (d Decision) String() string {
	switch d.Kind {
	case DecisionAllow:
		return "allow"
	case DecisionRedirect:
		return "redirect"
	default:
		return "placeholder"
	}
}

// Guard tracks session resolution for a protected view. It starts loading
// and moves to authenticated or unauthenticated on the first Resolve; later
// resolutions keep updating it.
type Guard struct {
	mu       sync.Mutex
	state    State
	session  *Session
	resolved chan struct{}
	changed  chan struct{}
	once     sync.Once
}

// NewGuard creates a guard in the loading state
func NewGuard() *Guard {
	return &Guard{
		resolved: make(chan struct{}),
		changed:  make(chan struct{}, 1),
	}
}

// Resolve records the session; nil means there is none
func (g *Guard) Resolve(s *Session) {
	g.mu.Lock()
	g.state = stateOf(s)
	g.session = s
	g.mu.Unlock()

	g.once.Do(func() { close(g.resolved) })

	select {
	case g.changed <- struct{}{}:
	default:
	}
}

// Changed is signalled after each Resolve. Pending signals coalesce.
func (g *Guard) Changed() <-chan struct{} {
	return g.changed
}

// Follow keeps the guard in sync with hub until the returned stop is called
func (g *Guard) Follow(hub *Hub) (stop func()) {
	return hub.Subscribe(func(_ State, s *Session) {
		g.Resolve(s)
	})
}

// Wait blocks until the first resolution or until ctx is done
func (g *Guard) Wait(ctx context.Context) error {
	select {
	case <-g.resolved:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns the current state
func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Session returns the resolved session, nil unless authenticated
func (g *Guard) Session() *Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.session
}

// Decide maps the current state to a routing decision
func (g *Guard) Decide() Decision {
	var d Decision
	switch g.State() {
	case StateAuthenticated:
		d = Decision{Kind: DecisionAllow}
	case StateUnauthenticated:
		d = Decision{Kind: DecisionRedirect, Location: LoginPath}
	default:
		d = Decision{Kind: DecisionPlaceholder}
	}
	metrics.GuardDecisions.WithLabelValues(d.String()).Inc()
	return d
}
