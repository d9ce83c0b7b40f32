package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-survival-agent/internal/domain"
	"solana-survival-agent/internal/storage"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "nested", "agent.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewDB_CreatesTablesAndPrivateDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "home")
	db, err := NewDB(filepath.Join(dir, "agent.db"))
	require.NoError(t, err)
	defer db.Close()

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o700), info.Mode().Perm())

	var n int
	err = db.QueryRow(`SELECT count(*) FROM sqlite_master WHERE type='table' AND name IN ('cycle_outcomes', 'tributes')`).Scan(&n)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestOutcomeStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewOutcomeStore(newTestDB(t))
	now := time.UnixMilli(1_760_000_000_000).UTC()

	o := &domain.ActionOutcome{
		CycleID:        "cycle-1",
		Success:        true,
		Tier:           domain.TierStabilizing,
		ActionTaken:    domain.ActionStabilize,
		TransactionRef: "sig",
		Amount:         "0.04",
		Snapshot: domain.BalanceSnapshot{
			Native:        domain.KnownAmount(decimal.RequireFromString("0.05")),
			Stable:        domain.KnownAmount(decimal.Zero),
			TimestampedAt: now,
		},
		StartedAt:  now,
		FinishedAt: now.Add(time.Second),
	}
	require.NoError(t, store.Insert(ctx, o))

	got, err := store.GetByID(ctx, "cycle-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TierStabilizing, got.Tier)
	assert.Equal(t, domain.ActionStabilize, got.ActionTaken)
	assert.True(t, got.Success)
	assert.Equal(t, "0.04", got.Amount)
	assert.Equal(t, now.Add(time.Second), got.FinishedAt)

	native, ok := got.Snapshot.Native.Get()
	require.True(t, ok)
	assert.True(t, native.Equal(decimal.RequireFromString("0.05")))
	stable, ok := got.Snapshot.Stable.Get()
	require.True(t, ok, "known zero must survive storage")
	assert.True(t, stable.IsZero())
}

func TestOutcomeStore_UnknownBalancesStayUnknown(t *testing.T) {
	ctx := context.Background()
	store := NewOutcomeStore(newTestDB(t))

	o := &domain.ActionOutcome{
		CycleID:     "cycle-u",
		Tier:        domain.TierUnknown,
		ActionTaken: domain.ActionNone,
		Error:       domain.OutcomeErrBalancesUnknown,
		Snapshot:    domain.BalanceSnapshot{Native: domain.UnknownAmount(), Stable: domain.KnownAmount(decimal.NewFromInt(3))},
		StartedAt:   time.Now(),
		FinishedAt:  time.Now(),
	}
	require.NoError(t, store.Insert(ctx, o))

	got, err := store.GetByID(ctx, "cycle-u")
	require.NoError(t, err)
	assert.False(t, got.Snapshot.Native.IsKnown())
	assert.True(t, got.Snapshot.Stable.IsKnown())
	assert.Equal(t, domain.OutcomeErrBalancesUnknown, got.Error)
}

func TestOutcomeStore_DuplicateAndMissing(t *testing.T) {
	ctx := context.Background()
	store := NewOutcomeStore(newTestDB(t))

	o := &domain.ActionOutcome{CycleID: "dup", Tier: domain.TierNominal, ActionTaken: domain.ActionNone, StartedAt: time.Now(), FinishedAt: time.Now()}
	require.NoError(t, store.Insert(ctx, o))
	assert.ErrorIs(t, store.Insert(ctx, o), storage.ErrDuplicateKey)

	_, err := store.GetByID(ctx, "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestOutcomeStore_Recent(t *testing.T) {
	ctx := context.Background()
	store := NewOutcomeStore(newTestDB(t))
	base := time.UnixMilli(1_760_000_000_000)

	for i, id := range []string{"a", "b", "c"} {
		ts := base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, store.Insert(ctx, &domain.ActionOutcome{
			CycleID: id, Tier: domain.TierNominal, ActionTaken: domain.ActionNone, StartedAt: ts, FinishedAt: ts,
		}))
	}

	got, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].CycleID)
	assert.Equal(t, "b", got[1].CycleID)
}

func TestTributeStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewTributeStore(newTestDB(t))
	created := time.UnixMilli(1_760_000_000_000).UTC()

	r := &domain.TributeRecord{
		ID:        "tribute-1",
		CycleID:   "cycle-1",
		Recipient: "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM",
		Mint:      domain.USDCMint,
		Amount:    decimal.RequireFromString("49.999999"),
		Signature: "sig",
		Status:    domain.TributeAmbiguous,
		CreatedAt: created,
	}
	require.NoError(t, store.Insert(ctx, r))
	assert.ErrorIs(t, store.Insert(ctx, r), storage.ErrDuplicateKey)

	got, err := store.GetByID(ctx, "tribute-1")
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(r.Amount))
	assert.Equal(t, domain.TributeAmbiguous, got.Status)
	assert.Equal(t, created, got.CreatedAt)

	recent, err := store.Recent(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, recent, 1)

	_, err = store.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
