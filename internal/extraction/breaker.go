package extraction

import (
	"sync"
	"sync/atomic"
	"time"
)

// DefaultCooldown is how long a backend stays demoted after a rate limit.
const DefaultCooldown = 600 * time.Second

// Breaker tracks per-backend demotion windows. A rate-limited backend is
// skipped until its window expires; state is a single atomic timestamp per
// backend so concurrent turns never block each other here.
type Breaker struct {
	cooldown time.Duration
	now      func() time.Time

	mu      sync.Mutex
	demoted map[string]*atomic.Int64 // unix nanos; zero = never demoted
}

func NewBreaker(cooldown time.Duration) *Breaker {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Breaker{
		cooldown: cooldown,
		now:      time.Now,
		demoted:  make(map[string]*atomic.Int64),
	}
}

func (b *Breaker) slot(backend string) *atomic.Int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.demoted[backend]
	if !ok {
		s = &atomic.Int64{}
		b.demoted[backend] = s
	}
	return s
}

// Demote marks the backend unavailable for the cooldown window.
func (b *Breaker) Demote(backend string) {
	until := b.now().Add(b.cooldown).UnixNano()
	b.slot(backend).Store(until)
}

// Available reports whether the backend's demotion window has expired.
func (b *Breaker) Available(backend string) bool {
	until := b.slot(backend).Load()
	return until == 0 || b.now().UnixNano() >= until
}

// Reset clears a backend's demotion, used when a request succeeds against
// a backend whose window just expired.
func (b *Breaker) Reset(backend string) {
	b.slot(backend).Store(0)
}
