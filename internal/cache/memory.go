package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the in-process fallback used in tests and redis-less
// deployments. Eviction is lazy on Get plus the periodic Sweep.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	nowFn   func() time.Time
}

type memoryEntry struct {
	entry     Entry
	expiresAt time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		nowFn:   time.Now,
	}
}

// SetNow overrides the clock. Test hook only.
func (s *MemoryStore) SetNow(nowFn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nowFn = nowFn
}

// Get returns the entry for key, or (nil, nil) if absent or expired.
// Expired entries are removed on read.
func (s *MemoryStore) Get(ctx context.Context, key string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	me, ok := s.entries[key]
	if !ok {
		return nil, nil
	}
	if !s.nowFn().Before(me.expiresAt) {
		delete(s.entries, key)
		return nil, nil
	}

	entry := me.entry
	return &entry, nil
}

// Set stores the payload under key, superseding any previous entry.
func (s *MemoryStore) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFn()
	s.entries[key] = memoryEntry{
		entry:     Entry{Payload: payload, StoredAt: now.UTC()},
		expiresAt: now.Add(ttl),
	}
	return nil
}

// Sweep removes all expired entries and returns how many were removed.
func (s *MemoryStore) Sweep(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFn()
	removed := 0
	for key, me := range s.entries {
		if !now.Before(me.expiresAt) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored entries, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
