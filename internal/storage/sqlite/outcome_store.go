package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"solana-survival-agent/internal/domain"
	"solana-survival-agent/internal/storage"
)

// OutcomeStore implements storage.OutcomeStore using SQLite.
type OutcomeStore struct {
	db *sql.DB
}

// NewOutcomeStore creates a new OutcomeStore.
func NewOutcomeStore(db *sql.DB) *OutcomeStore {
	return &OutcomeStore{db: db}
}

var _ storage.OutcomeStore = (*OutcomeStore)(nil)

const outcomeColumns = `cycle_id, success, tier, action_taken, transaction_ref, error, ambiguous,
target, amount, tribute_ref, tribute_error, native_balance, stable_balance, snapshot_at, started_at, finished_at`

// Insert appends an outcome. Returns ErrDuplicateKey if cycle_id exists.
func (s *OutcomeStore) Insert(ctx context.Context, o *domain.ActionOutcome) (err error) {
	if err := storage.ValidOutcome(o); err != nil {
		return err
	}
	defer func(start time.Time) { observe("insert_outcome", start, err) }(time.Now())

	q := `INSERT INTO cycle_outcomes (` + outcomeColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, q,
		o.CycleID, o.Success, string(o.Tier), string(o.ActionTaken), o.TransactionRef, o.Error, o.Ambiguous,
		o.Target, o.Amount, o.TributeRef, o.TributeError,
		storage.AmountText(o.Snapshot.Native), storage.AmountText(o.Snapshot.Stable),
		toMillis(o.Snapshot.TimestampedAt), toMillis(o.StartedAt), toMillis(o.FinishedAt),
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
	q := `SELECT ` + outcomeColumns + ` FROM cycle_outcomes WHERE cycle_id = ?`
	o, err := scanOutcome(s.db.QueryRowContext(ctx, q, cycleID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get outcome: %w", err)
	}
	return o, nil
}

// Recent returns up to limit outcomes, newest first.
func (s *OutcomeStore) Recent(ctx context.Context, limit int) ([]*domain.ActionOutcome, error) {
	q := `SELECT ` + outcomeColumns + ` FROM cycle_outcomes ORDER BY finished_at DESC, rowid DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("list outcomes: %w", err)
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
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOutcome(row scanner) (*domain.ActionOutcome, error) {
	var (
		o                         domain.ActionOutcome
		tier, action              string
		native, stable            *string
		snapshotAt, start, finish int64
	)
	if err := row.Scan(&o.CycleID, &o.Success, &tier, &action, &o.TransactionRef, &o.Error, &o.Ambiguous,
		&o.Target, &o.Amount, &o.TributeRef, &o.TributeError, &native, &stable, &snapshotAt, &start, &finish); err != nil {
		return nil, err
	}

	var err error
	if o.Snapshot.Native, err = storage.ParseAmount(native); err != nil {
		return nil, err
	}
	if o.Snapshot.Stable, err = storage.ParseAmount(stable); err != nil {
		return nil, err
	}
	o.Tier = domain.Tier(tier)
	o.ActionTaken = domain.Action(action)
	o.Snapshot.TimestampedAt = fromMillis(snapshotAt)
	o.StartedAt = fromMillis(start)
	o.FinishedAt = fromMillis(finish)
	return &o, nil
}
