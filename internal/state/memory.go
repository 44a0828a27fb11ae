package state

import (
	"context"
	"sync"

	"github.com/XavierBriggs/Moneta/pkg/contracts"
	"github.com/XavierBriggs/Moneta/pkg/models"
)

// MemoryStore is the in-memory fake used by tests.
type MemoryStore struct {
	mu    sync.Mutex
	st    *models.PersistedState
	Saves int
}

var _ contracts.StateStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns a copy of the stored blob, or fresh state if nothing
// has been saved.
func (s *MemoryStore) Load(ctx context.Context) (*models.PersistedState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.st == nil {
		return models.FreshState(), nil
	}
	cp := *s.st
	return &cp, nil
}

// Save stores a copy of the blob and counts the call.
func (s *MemoryStore) Save(ctx context.Context, st *models.PersistedState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *st
	s.st = &cp
	s.Saves++
	return nil
}
