// Package memory provides in-memory implementations of the storage interfaces,
// used by tests and the "memory" storage backend.
package memory

import (
	"context"
	"sync"

	"solana-survival-agent/internal/domain"
	"solana-survival-agent/internal/storage"
)

// OutcomeStore is an in-memory implementation of storage.OutcomeStore.
type OutcomeStore struct {
	mu    sync.RWMutex
	data  map[string]*domain.ActionOutcome // keyed by cycle_id
	order []string
}

// NewOutcomeStore creates a new in-memory outcome store.
func NewOutcomeStore() *OutcomeStore {
	return &OutcomeStore{
		data: make(map[string]*domain.ActionOutcome),
	}
}

// Compile-time interface check.
var _ storage.OutcomeStore = (*OutcomeStore)(nil)

// Insert appends an outcome. Returns ErrDuplicateKey if cycle_id exists.
func (s *OutcomeStore) Insert(_ context.Context, o *domain.ActionOutcome) error {
	if err := storage.ValidOutcome(o); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[o.CycleID]; exists {
		return storage.ErrDuplicateKey
	}
	cp := *o
	s.data[o.CycleID] = &cp
	s.order = append(s.order, o.CycleID)
	return nil
}

// GetByID retrieves an outcome by cycle ID. Returns ErrNotFound if not exists.
func (s *OutcomeStore) GetByID(_ context.Context, cycleID string) (*domain.ActionOutcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.data[cycleID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

// Recent returns up to limit outcomes in reverse insertion order.
func (s *OutcomeStore) Recent(_ context.Context, limit int) ([]*domain.ActionOutcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.ActionOutcome
	for i := len(s.order) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *s.data[s.order[i]]
		out = append(out, &cp)
	}
	return out, nil
}

// Count returns the number of stored outcomes.
func (s *OutcomeStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}
