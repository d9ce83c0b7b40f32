package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"solana-survival-agent/internal/domain"
	"solana-survival-agent/internal/storage"
)

// TributeStore implements storage.TributeStore using SQLite.
type TributeStore struct {
	db *sql.DB
}

// NewTributeStore creates a new TributeStore.
func NewTributeStore(db *sql.DB) *TributeStore {
	return &TributeStore{db: db}
}

var _ storage.TributeStore = (*TributeStore)(nil)

// Insert appends a tribute record. Returns ErrDuplicateKey if id exists.
func (s *TributeStore) Insert(ctx context.Context, r *domain.TributeRecord) (err error) {
	if err := storage.ValidTribute(r); err != nil {
		return err
	}
	defer func(start time.Time) { observe("insert_tribute", start, err) }(time.Now())

	const q = `INSERT INTO tributes (id, cycle_id, recipient, mint, amount, signature, status, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, q,
		r.ID, r.CycleID, r.Recipient, r.Mint, r.Amount.String(), r.Signature, string(r.Status), toMillis(r.CreatedAt))
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert tribute: %w", err)
	}
	return nil
}

// GetByID retrieves a tribute by ID. Returns ErrNotFound if not exists.
func (s *TributeStore) GetByID(ctx context.Context, id string) (*domain.TributeRecord, error) {
	const q = `SELECT id, cycle_id, recipient, mint, amount, signature, status, created_at FROM tributes WHERE id = ?`
	r, err := scanTribute(s.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get tribute: %w", err)
	}
	return r, nil
}

// Recent returns up to limit tributes, newest first.
func (s *TributeStore) Recent(ctx context.Context, limit int) ([]*domain.TributeRecord, error) {
	const q = `SELECT id, cycle_id, recipient, mint, amount, signature, status, created_at
FROM tributes ORDER BY created_at DESC, rowid DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("list tributes: %w", err)
	}
	defer rows.Close()

	var out []*domain.TributeRecord
	for rows.Next() {
		r, err := scanTribute(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tribute: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanTribute(row scanner) (*domain.TributeRecord, error) {
	var (
		r              domain.TributeRecord
		amount, status string
		created        int64
	)
	if err := row.Scan(&r.ID, &r.CycleID, &r.Recipient, &r.Mint, &amount, &r.Signature, &status, &created); err != nil {
		return nil, err
	}
	v, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("%w: amount %q", storage.ErrInvalidInput, amount)
	}
	r.Amount = v
	r.Status = domain.TributeStatus(status)
	r.CreatedAt = fromMillis(created)
	return &r, nil
}
