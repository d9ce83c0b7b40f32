package storage

import (
	"context"

	"solana-survival-agent/internal/domain"
)

// OutcomeStore provides access to the cycle outcome audit trail.
type OutcomeStore interface {
	// Insert appends an outcome. Returns ErrDuplicateKey if cycle_id exists.
	Insert(ctx context.Context, o *domain.ActionOutcome) error

	// GetByID retrieves an outcome by cycle ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, cycleID string) (*domain.ActionOutcome, error)

	// Recent returns up to limit outcomes, newest first.
	Recent(ctx context.Context, limit int) ([]*domain.ActionOutcome, error)
}

// TributeStore provides access to the tribute transfer audit trail.
type TributeStore interface {
	// Insert appends a tribute record. Returns ErrDuplicateKey if id exists.
	Insert(ctx context.Context, r *domain.TributeRecord) error

	// GetByID retrieves a tribute by ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.TributeRecord, error)

	// Recent returns up to limit tributes, newest first.
	Recent(ctx context.Context, limit int) ([]*domain.TributeRecord, error)
}

// SnapshotStore provides access to the balance timeseries.
type SnapshotStore interface {
	// Insert appends a point. Returns ErrDuplicateKey if cycle_id exists.
	Insert(ctx context.Context, p *domain.BalancePoint) error

	// GetByTimeRange retrieves points within [start, end] ms (inclusive), ordered by time ASC.
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.BalancePoint, error)
}
