package memory

import (
	"context"
	"sort"
	"sync"

	"solana-survival-agent/internal/domain"
	"solana-survival-agent/internal/storage"
)

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
type SnapshotStore struct {
	mu   sync.RWMutex
	data map[string]*domain.BalancePoint // keyed by cycle_id
}

// NewSnapshotStore creates a new in-memory balance timeseries.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		data: make(map[string]*domain.BalancePoint),
	}
}

var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Insert appends a point. Returns ErrDuplicateKey if cycle_id exists.
func (s *SnapshotStore) Insert(_ context.Context, p *domain.BalancePoint) error {
	if err := storage.ValidPoint(p); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[p.CycleID]; exists {
		return storage.ErrDuplicateKey
	}
	cp := *p
	s.data[p.CycleID] = &cp
	return nil
}

// GetByTimeRange retrieves points within [start, end] (inclusive), ordered by timestamp ASC.
func (s *SnapshotStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.BalancePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.BalancePoint
	for _, p := range s.data {
		if p.TimestampMs >= start && p.TimestampMs <= end {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TimestampMs != out[j].TimestampMs {
			return out[i].TimestampMs < out[j].TimestampMs
		}
		return out[i].CycleID < out[j].CycleID
	})
	return out, nil
}
