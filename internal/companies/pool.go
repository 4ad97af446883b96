package companies

import (
	"sync"
	"time"
)

// Pool hands out one Searcher per client key and forgets clients that have
// been idle longer than the configured expiry.
type Pool struct {
	source Source
	delay  time.Duration
	idle   time.Duration
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]*poolEntry
}

type poolEntry struct {
	searcher *Searcher
	lastUsed time.Time
}

// NewPool creates a pool of searchers sharing source
func NewPool(source Source, delay, idle time.Duration) *Pool {
	return &Pool{
		source:  source,
		delay:   delay,
		idle:    idle,
		now:     time.Now,
		entries: make(map[string]*poolEntry),
	}
}

// Get returns the searcher for key, creating it on first use
func (p *Pool) Get(key string) *Searcher {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	p.sweep(now)

	entry, ok := p.entries[key]
	if !ok {
		entry = &poolEntry{searcher: NewSearcher(p.source, p.delay)}
		p.entries[key] = entry
	}
	entry.lastUsed = now
	return entry.searcher
}

// Len reports how many searchers are held
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

func (p *Pool) sweep(now time.Time) {
	if p.idle <= 0 {
		return
	}
	for key, entry := range p.entries {
		if now.Sub(entry.lastUsed) > p.idle {
			delete(p.entries, key)
		}
	}
}
