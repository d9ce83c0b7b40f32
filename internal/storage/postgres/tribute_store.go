package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"solana-survival-agent/internal/domain"
	"solana-survival-agent/internal/storage"
)

// TributeStore implements storage.TributeStore using PostgreSQL.
type TributeStore struct {
	pool *Pool
}

// NewTributeStore creates a new TributeStore.
func NewTributeStore(pool *Pool) *TributeStore {
	return &TributeStore{pool: pool}
}

var _ storage.TributeStore = (*TributeStore)(nil)

// Insert appends a tribute record. Returns ErrDuplicateKey if id exists.
func (s *TributeStore) Insert(ctx context.Context, r *domain.TributeRecord) (err error) {
	if err := storage.ValidTribute(r); err != nil {
		return err
	}
	defer func(start time.Time) { observe("insert_tribute", start, err) }(time.Now())

	query := `
		INSERT INTO tributes (id, cycle_id, recipient, mint, amount, signature, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = s.pool.Exec(ctx, query,
		r.ID, r.CycleID, r.Recipient, r.Mint, r.Amount.String(), r.Signature, string(r.Status), r.CreatedAt)
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
	query := `
		SELECT id, cycle_id, recipient, mint, amount, signature, status, created_at
		FROM tributes WHERE id = $1
	`
	r, err := scanTribute(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get tribute: %w", err)
	}
	return r, nil
}

// Recent returns up to limit tributes, newest first.
func (s *TributeStore) Recent(ctx context.Context, limit int) ([]*domain.TributeRecord, error) {
	query := `
		SELECT id, cycle_id, recipient, mint, amount, signature, status, created_at
		FROM tributes
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query tributes: %w", err)
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
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tributes: %w", err)
	}
	return out, nil
}

func scanTribute(row pgx.Row) (*domain.TributeRecord, error) {
	var (
		r              domain.TributeRecord
		amount, status string
	)
	if err := row.Scan(&r.ID, &r.CycleID, &r.Recipient, &r.Mint, &amount, &r.Signature, &status, &r.CreatedAt); err != nil {
		return nil, err
	}
	v, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("%w: amount %q", storage.ErrInvalidInput, amount)
	}
	r.Amount = v
	r.Status = domain.TributeStatus(status)
	r.CreatedAt = r.CreatedAt.UTC()
	return &r, nil
}
