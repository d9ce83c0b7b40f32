package tribute

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-survival-agent/internal/domain"
	"solana-survival-agent/internal/executor"
	"solana-survival-agent/internal/idhash"
	"solana-survival-agent/internal/storage/memory"
)

const recipient = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"

type balances struct {
	values []decimal.Decimal
	err    error
	reads  int
}

func (b *balances) StableBalance(context.Context) (decimal.Decimal, error) {
	b.reads++
	if b.err != nil {
		return decimal.Zero, b.err
	}
	v := b.values[min(b.reads-1, len(b.values)-1)]
	return v, nil
}

type transfers struct {
	sent []executor.Transfer
	sig  string
	err  error
}

func (t *transfers) Transfer(_ context.Context, tr executor.Transfer) (string, error) {
	t.sent = append(t.sent, tr)
	return t.sig, t.err
}

type journal struct {
	records []domain.TributeRecord
}

func (j *journal) RecordTribute(r domain.TributeRecord) error {
	j.records = append(j.records, r)
	return nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newHarvester(b *balances, tr *transfers, cfg domain.TributeConfig) (*Harvester, *memory.TributeStore, *journal) {
	store := memory.NewTributeStore()
	j := &journal{}
	h := New(Options{
		Balances: b,
		Executor: tr,
		Store:    store,
		Journal:  j,
		Config:   cfg,
		Mint:     domain.USDCMint,
		Decimals: 6,
		Logger:   zerolog.Nop(),
	})
	return h, store, j
}

func TestHarvest_NoRecipientSkips(t *testing.T) {
	b := &balances{values: []decimal.Decimal{dec("500")}}
	tr := &transfers{sig: "sig"}
	h, store, _ := newHarvester(b, tr, domain.TributeConfig{Threshold: dec("50")})

	res, err := h.Harvest(context.Background(), "c1")
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, ReasonNoRecipient, res.Reason)
	assert.Empty(t, tr.sent)
	assert.Zero(t, b.reads)
	assert.False(t, h.Enabled())

	recent, _ := store.Recent(context.Background(), 10)
	assert.Empty(t, recent)
}

func TestHarvest_ForwardsFreshSurplus(t *testing.T) {
	b := &balances{values: []decimal.Decimal{dec("80.5")}}
	tr := &transfers{sig: "sig-1"}
	h, store, j := newHarvester(b, tr, domain.TributeConfig{Recipient: recipient, Threshold: dec("50")})

	res, err := h.Harvest(context.Background(), "c1")
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.Equal(t, "sig-1", res.Ref)
	assert.True(t, res.Amount.Equal(dec("30.5")))
	assert.Equal(t, 1, b.reads)

	require.Len(t, tr.sent, 1)
	assert.Equal(t, executor.Transfer{Asset: domain.USDCMint, To: recipient, Amount: 30_500_000}, tr.sent[0])

	recent, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, domain.TributeConfirmed, recent[0].Status)
	assert.Equal(t, "c1", recent[0].CycleID)
	assert.True(t, recent[0].Amount.Equal(dec("30.5")))

	assert.Equal(t, idhash.ComputeTributeID("c1", recipient, domain.USDCMint, "sig-1", 30_500_000), recent[0].ID)

	require.Len(t, j.records, 1)
	assert.Equal(t, recent[0].ID, j.records[0].ID)
}

func TestHarvest_AmountComputedAtCallTime(t *testing.T) {
	b := &balances{values: []decimal.Decimal{dec("100"), dec("60")}}
	tr := &transfers{sig: "sig"}
	h, _, _ := newHarvester(b, tr, domain.TributeConfig{Recipient: recipient, Threshold: dec("50")})

	_, err := h.Harvest(context.Background(), "c1")
	require.NoError(t, err)
	_, err = h.Harvest(context.Background(), "c2")
	require.NoError(t, err)

	require.Len(t, tr.sent, 2)
	assert.Equal(t, uint64(50_000_000), tr.sent[0].Amount)
	assert.Equal(t, uint64(10_000_000), tr.sent[1].Amount)
}

func TestHarvest_NoSurplus(t *testing.T) {
	for _, bal := range []string{"50", "49.99", "0", "50.0000001"} {
		t.Run(bal, func(t *testing.T) {
			b := &balances{values: []decimal.Decimal{dec(bal)}}
			tr := &transfers{sig: "sig"}
			h, _, _ := newHarvester(b, tr, domain.TributeConfig{Recipient: recipient, Threshold: dec("50")})

			res, err := h.Harvest(context.Background(), "c1")
			require.NoError(t, err)
			assert.True(t, res.Skipped)
			assert.Equal(t, ReasonNoSurplus, res.Reason)
			assert.Empty(t, tr.sent)
		})
	}
}

func TestHarvest_BalanceUnknown(t *testing.T) {
	b := &balances{err: domain.ErrUnknownBalance}
	tr := &transfers{}
	h, _, _ := newHarvester(b, tr, domain.TributeConfig{Recipient: recipient, Threshold: dec("50")})

	_, err := h.Harvest(context.Background(), "c1")
	assert.True(t, errors.Is(err, domain.ErrUnknownBalance))
	assert.Empty(t, tr.sent)
}

func TestHarvest_TransferFailureNotRecorded(t *testing.T) {
	b := &balances{values: []decimal.Decimal{dec("100")}}
	tr := &transfers{err: domain.ErrSubmissionFailed}
	h, store, j := newHarvester(b, tr, domain.TributeConfig{Recipient: recipient, Threshold: dec("50")})

	_, err := h.Harvest(context.Background(), "c1")
	assert.True(t, errors.Is(err, domain.ErrSubmissionFailed))

	recent, _ := store.Recent(context.Background(), 10)
	assert.Empty(t, recent)
	assert.Empty(t, j.records)
}

func TestHarvest_AmbiguousRecordedWithSignature(t *testing.T) {
	b := &balances{values: []decimal.Decimal{dec("75")}}
	tr := &transfers{sig: "sig-amb", err: domain.ErrConfirmationAmbiguous}
	h, store, _ := newHarvester(b, tr, domain.TributeConfig{Recipient: recipient, Threshold: dec("50")})

	res, err := h.Harvest(context.Background(), "c1")
	assert.True(t, errors.Is(err, domain.ErrConfirmationAmbiguous))
	assert.Equal(t, "sig-amb", res.Ref)

	recent, _ := store.Recent(context.Background(), 10)
	require.Len(t, recent, 1)
	assert.Equal(t, domain.TributeAmbiguous, recent[0].Status)
	assert.Equal(t, "sig-amb", recent[0].Signature)
}
