package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"solana-survival-agent/internal/domain"
	"solana-survival-agent/internal/storage"
)

// OutcomeStore implements storage.OutcomeStore using PostgreSQL.
type OutcomeStore struct {
	pool *Pool
}

// NewOutcomeStore creates a new OutcomeStore.
func NewOutcomeStore(pool *Pool) *OutcomeStore {
	return &OutcomeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.OutcomeStore = (*OutcomeStore)(nil)

const outcomeColumns = `
	cycle_id, success, tier, action_taken, transaction_ref, error, ambiguous,
	target, amount, tribute_ref, tribute_error,
	native_balance, stable_balance, snapshot_at, started_at, finished_at`

// Insert appends an outcome. Returns ErrDuplicateKey if cycle_id exists.
func (s *OutcomeStore) Insert(ctx context.Context, o *domain.ActionOutcome) (err error) {
	if err := storage.ValidOutcome(o); err != nil {
		return err
	}
	defer func(start time.Time) { observe("insert_outcome", start, err) }(time.Now())

	query := `
		INSERT INTO cycle_outcomes (` + outcomeColumns + `
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11,
			$12, $13, $14, $15, $16
		)
	`
	_, err = s.pool.Exec(ctx, query,
		o.CycleID, o.Success, string(o.Tier), string(o.ActionTaken), o.TransactionRef, o.Error, o.Ambiguous,
		o.Target, o.Amount, o.TributeRef, o.TributeError,
		storage.AmountText(o.Snapshot.Native), storage.AmountText(o.Snapshot.Stable),
		nullTime(o.Snapshot.TimestampedAt), o.StartedAt, o.FinishedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert outcome: %w", err)
	}
	return nil
}

// GetByID retrieves an outcome by cycle ID. Returns ErrNotFound if not exists.
func (s *OutcomeStore) GetByID(ctx context.Context, cycleID string) (*domain.ActionOutcome, error) {
	query := `SELECT` + outcomeColumns + ` FROM cycle_outcomes WHERE cycle_id = $1`

	o, err := scanOutcome(s.pool.QueryRow(ctx, query, cycleID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get outcome: %w", err)
	}
	return o, nil
}

// Recent returns up to limit outcomes, newest first.
func (s *OutcomeStore) Recent(ctx context.Context, limit int) ([]*domain.ActionOutcome, error) {
	query := `SELECT` + outcomeColumns + `
		FROM cycle_outcomes
		ORDER BY finished_at DESC, id DESC
		LIMIT $1
	`
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var out []*domain.ActionOutcome
	for rows.Next() {
		o, err := scanOutcome(rows)
		if err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcomes: %w", err)
	}
	return out, nil
}

func scanOutcome(row pgx.Row) (*domain.ActionOutcome, error) {
	var (
		o              domain.ActionOutcome
		tier, action   string
		native, stable *string
		snapshotAt     *time.Time
	)
	err := row.Scan(
		&o.CycleID, &o.Success, &tier, &action, &o.TransactionRef, &o.Error, &o.Ambiguous,
		&o.Target, &o.Amount, &o.TributeRef, &o.TributeError,
		&native, &stable, &snapshotAt, &o.StartedAt, &o.FinishedAt,
	)
	if err != nil {
		return nil, err
	}

	if o.Snapshot.Native, err = storage.ParseAmount(native); err != nil {
		return nil, err
	}
	if o.Snapshot.Stable, err = storage.ParseAmount(stable); err != nil {
		return nil, err
	}
	o.Tier = domain.Tier(tier)
	o.ActionTaken = domain.Action(action)
	o.Snapshot.TimestampedAt = fromNullTime(snapshotAt)
	o.StartedAt = o.StartedAt.UTC()
	o.FinishedAt = o.FinishedAt.UTC()
	return &o, nil
}
