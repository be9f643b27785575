package ratelimit

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultCategory is used when a category has no rate of its own
const DefaultCategory = "default"

// Store manages rate limiters for multiple clients and evicts the ones
// that have been idle for longer than idleExpiry.
type Store struct {
	limiters map[string]*Limiter
	rates    map[string]Rate
	mu       sync.RWMutex

	cleanupInterval time.Duration
	idleExpiry      time.Duration
	now             func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewStore creates a store and starts its cleanup goroutine. Call Stop to
// end it.
func NewStore(defaultRate Rate, cleanupInterval, idleExpiry time.Duration) *Store {
	store := &Store{
		limiters:        make(map[string]*Limiter),
		rates:           map[string]Rate{DefaultCategory: defaultRate},
		cleanupInterval: cleanupInterval,
		idleExpiry:      idleExpiry,
		now:             time.Now,
		stop:            make(chan struct{}),
		done:            make(chan struct{}),
	}

	go store.cleanupRoutine()

	return store
}

func key(clientID, category string) string {
	return category + "|" + clientID
}

// GetLimiter returns the limiter for a client in a category, creating it on
// first use.
func (s *Store) GetLimiter(clientID string, category string) *Limiter {
	k := key(clientID, category)

	s.mu.RLock()
	limiter, exists := s.limiters[k]
	s.mu.RUnlock()
	if exists {
		return limiter
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another goroutine may have created it in the meantime
	if limiter, exists = s.limiters[k]; exists {
		return limiter
	}

	rate, ok := s.rates[category]
	if !ok {
		rate = s.rates[DefaultCategory]
	}

	limiter = newLimiterWithClock(rate.RequestsPerSecond, rate.Burst, s.now)
	s.limiters[k] = limiter
	return limiter
}

// SetRate sets a rate limit for a specific category.
func (s *Store) SetRate(category string, rate Rate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates[category] = rate
}

// Len returns the number of tracked limiters.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.limiters)
}

// Stop ends the cleanup goroutine and waits for it to exit.
func (s *Store) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	<-s.done
}

func (s *Store) cleanupRoutine() {
	defer close(s.done)

	if s.cleanupInterval <= 0 {
		<-s.stop
		return
	}

	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stop:
			return
		}
	}
}

// cleanup removes limiters that have been idle longer than idleExpiry.
func (s *Store) cleanup() {
	cutoff := s.now().Add(-s.idleExpiry)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for k, limiter := range s.limiters {
		if limiter.idleSince().Before(cutoff) {
			delete(s.limiters, k)
			removed++
		}
	}

	if removed > 0 {
		log.Debug().Int("removed", removed).Int("remaining", len(s.limiters)).Msg("Evicted idle rate limiters")
	}
}
