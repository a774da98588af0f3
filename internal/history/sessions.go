package history

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Sessions is a registry of per-session stores. A store lives from Open until
// Close or until the session sits idle past the TTL; nothing survives the
// process.
type Sessions struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]*sessionEntry
}

type sessionEntry struct {
	store    *Store
	lastSeen time.Time
}

// NewSessions constructs a registry whose idle sessions expire after ttl. A
// non-positive ttl disables expiry.
func NewSessions(ttl time.Duration) *Sessions {
	return &Sessions{ttl: ttl, entries: make(map[string]*sessionEntry)}
}

// Open creates a fresh session with an empty store and returns its id.
func (s *Sessions) Open() string {
	id := uuid.NewString()
	s.mu.Lock()
	s.entries[id] = &sessionEntry{store: NewStore(), lastSeen: time.Now()}
	s.mu.Unlock()
	return id
}

// Get returns the store for a session and refreshes its idle clock.
func (s *Sessions) Get(id string) (*Store, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	if !ok {
		return nil, false
	}
	entry.lastSeen = time.Now()
	return entry.store, true
}

// Close tears a session down. Closing an unknown id is a no-op.
func (s *Sessions) Close(id string) {
	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
}

// Len reports the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep removes sessions idle past the TTL and reports how many were removed.
func (s *Sessions) Sweep(now time.Time) int {
	if s.ttl <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, entry := range s.entries {
		if now.Sub(entry.lastSeen) > s.ttl {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

// Run sweeps at the given interval until the context is cancelled.
func (s *Sessions) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Sweep(now)
		}
	}
}
