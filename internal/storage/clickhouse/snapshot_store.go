package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"solana-survival-agent/internal/domain"
	"solana-survival-agent/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using ClickHouse.
type SnapshotStore struct {
	conn *Conn
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(conn *Conn) *SnapshotStore {
	return &SnapshotStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Insert appends a point. MergeTree does not enforce keys, so uniqueness of
// cycle_id is checked before the write.
func (s *SnapshotStore) Insert(ctx context.Context, p *domain.BalancePoint) (err error) {
	if err := storage.ValidPoint(p); err != nil {
		return err
	}
	defer func(start time.Time) { observe("insert_snapshot", start, err) }(time.Now())

	exists, err := s.exists(ctx, p.CycleID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO balance_snapshots (
			cycle_id, timestamp_ms, tier, native_balance, stable_balance
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	if err := batch.Append(p.CycleID, uint64(p.TimestampMs), string(p.Tier), nullable(p.Native), nullable(p.Stable)); err != nil {
		return fmt.Errorf("append to batch: %w", err)
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByTimeRange retrieves points within [start, end] (inclusive), ordered by timestamp ASC.
func (s *SnapshotStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.BalancePoint, error) {
	query := `
		SELECT cycle_id, timestamp_ms, tier, native_balance, stable_balance
		FROM balance_snapshots
		WHERE timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC, cycle_id ASC
	`
	rows, err := s.conn.Query(ctx, query, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	var points []*domain.BalancePoint
	for rows.Next() {
		var (
			p              domain.BalancePoint
			ts             uint64
			tier           string
			native, stable *decimal.Decimal
		)
		if err := rows.Scan(&p.CycleID, &ts, &tier, &native, &stable); err != nil {
			return nil, fmt.Errorf("scan balance snapshot row: %w", err)
		}
		p.TimestampMs = int64(ts)
		p.Tier = domain.Tier(tier)
		p.Native = fromNullable(native)
		p.Stable = fromNullable(stable)
		points = append(points, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate balance snapshot rows: %w", err)
	}
	return points, nil
}

func (s *SnapshotStore) exists(ctx context.Context, cycleID string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `SELECT count(*) FROM balance_snapshots WHERE cycle_id = ?`, cycleID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func nullable(a domain.Amount) *decimal.Decimal {
	v, ok := a.Get()
	if !ok {
		return nil
	}
	return &v
}

func fromNullable(v *decimal.Decimal) domain.Amount {
	if v == nil {
		return domain.UnknownAmount()
	}
	return domain.KnownAmount(*v)
}
