package companies

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jimdaga/tophive/internal/content"
	"github.com/jimdaga/tophive/internal/metrics"
)

// DefaultDebounce is the quiet period before a query reaches the source
const DefaultDebounce = 300 * time.Millisecond

// ErrSuperseded is returned to a query that was overtaken by a newer one.
// Its results, if any arrived, were discarded.
var ErrSuperseded = errors.New("lookup superseded by a newer query")

// Searcher debounces queries for one client and only ever delivers the
// results of the most recent query.
type Searcher struct {
	source Source
	delay  time.Duration

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	latest []content.Company
}

// NewSearcher creates a searcher that waits delay before querying source
func NewSearcher(source Source, delay time.Duration) *Searcher {
	if delay < 0 {
		delay = 0
	}
	return &Searcher{source: source, delay: delay, latest: []content.Company{}}
}

// Query issues q and blocks until its results are delivered, it is
// superseded by a later call, or ctx ends. A blank query clears the results
// immediately without contacting the source.
func (s *Searcher) Query(ctx context.Context, q string) ([]content.Company, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	token := s.begin(cancel)

	if strings.TrimSpace(q) == "" {
		empty := []content.Company{}
		if !s.deliver(token, empty) {
			return nil, s.superseded()
		}
		metrics.LookupQueries.WithLabelValues("empty").Inc()
		return empty, nil
	}

	timer := time.NewTimer(s.delay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		if !s.current(token) {
			return nil, s.superseded()
		}
		return nil, ctx.Err()
	}

	results, err := s.source.Search(ctx, q)
	if !s.current(token) {
		return nil, s.superseded()
	}
	if err != nil {
		metrics.LookupQueries.WithLabelValues("error").Inc()
		return nil, err
	}
	if results == nil {
		results = []content.Company{}
	}
	if !s.deliver(token, results) {
		return nil, s.superseded()
	}

	metrics.LookupQueries.WithLabelValues("delivered").Inc()
	return results, nil
}

// Latest returns the most recently delivered results
func (s *Searcher) Latest() []content.Company {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]content.Company, len(s.latest))
	copy(out, s.latest)
	return out
}

// begin takes a new generation token and cancels the pending query, if any
func (s *Searcher) begin(cancel context.CancelFunc) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	s.cancel = cancel
	return s.gen
}

func (s *Searcher) current(token uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return token == s.gen
}

func (s *Searcher) deliver(token uint64, results []content.Company) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.gen {
		return false
	}
	s.latest = results
	return true
}

func (s *Searcher) superseded() error {
	metrics.LookupQueries.WithLabelValues("superseded").Inc()
	return ErrSuperseded
}
