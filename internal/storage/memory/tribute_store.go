package memory

import (
	"context"
	"sync"

	"solana-survival-agent/internal/domain"
	"solana-survival-agent/internal/storage"
)

// TributeStore is an in-memory implementation of storage.TributeStore.
type TributeStore struct {
	mu    sync.RWMutex
	data  map[string]*domain.TributeRecord
	order []string
}

// NewTributeStore creates a new in-memory tribute store.
func NewTributeStore() *TributeStore {
	return &TributeStore{
		data: make(map[string]*domain.TributeRecord),
	}
}

var _ storage.TributeStore = (*TributeStore)(nil)

// Insert appends a tribute record. Returns ErrDuplicateKey if id exists.
func (s *TributeStore) Insert(_ context.Context, r *domain.TributeRecord) error {
	if err := storage.ValidTribute(r); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.ID]; exists {
		return storage.ErrDuplicateKey
	}
	cp := *r
	s.data[r.ID] = &cp
	s.order = append(s.order, r.ID)
	return nil
}

// GetByID retrieves a tribute by ID. Returns ErrNotFound if not exists.
func (s *TributeStore) GetByID(_ context.Context, id string) (*domain.TributeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.data[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

// Recent returns up to limit tributes in reverse insertion order.
func (s *TributeStore) Recent(_ context.Context, limit int) ([]*domain.TributeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.TributeRecord
	for i := len(s.order) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *s.data[s.order[i]]
		out = append(out, &cp)
	}
	return out, nil
}
