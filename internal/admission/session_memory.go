package admission

import (
	"context"
	"sync"
	"time"
)

// MemoryAttemptStore is an in-process AttemptStore used when Redis is not
// configured. Counters expire lazily; suitable for single-instance
// deployments and tests.
type MemoryAttemptStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]*attemptEntry
}

type attemptEntry struct {
	count     int
	expiresAt time.Time
}

// NewMemoryAttemptStore creates an in-memory attempt store. A ttl <= 0
// falls back to DefaultSessionTTL.
func NewMemoryAttemptStore(ttl time.Duration) *MemoryAttemptStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &MemoryAttemptStore{
		ttl:     ttl,
		entries: make(map[string]*attemptEntry),
	}
}

// Bump increments the session counter and returns the new total
func (s *MemoryAttemptStore) Bump(_ context.Context, key string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	e, ok := s.entries[key]
	if !ok || now.After(e.expiresAt) {
		e = &attemptEntry{expiresAt: now.Add(s.ttl)}
		s.entries[key] = e
	}
	e.count++

	// Opportunistic sweep keeps the map from growing unbounded
	if len(s.entries) > 1024 {
		for k, v := range s.entries {
			if now.After(v.expiresAt) {
				delete(s.entries, k)
			}
		}
	}

	return e.count, nil
}

// Clear ends the session
func (s *MemoryAttemptStore) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}
