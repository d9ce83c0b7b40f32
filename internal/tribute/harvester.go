// Package tribute forwards treasury surplus above a fixed threshold to the
// configured external recipient.
package tribute

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"solana-survival-agent/internal/domain"
	"solana-survival-agent/internal/executor"
	"solana-survival-agent/internal/idhash"
	"solana-survival-agent/internal/observability"
	"solana-survival-agent/internal/storage"
)

// Skip reasons reported in domain.TributeResult.
const (
	ReasonNoRecipient = "no tribute recipient configured"
	ReasonNoSurplus   = "no surplus above threshold"
)

// BalanceReader reads the current stable-asset balance in whole units.
type BalanceReader interface {
	StableBalance(ctx context.Context) (decimal.Decimal, error)
}

// Transferrer moves funds. Implemented by *executor.Executor.
type Transferrer interface {
	Transfer(ctx context.Context, t executor.Transfer) (string, error)
}

// Recorder receives the durable audit entry. Implemented by *journal.Journal.
type Recorder interface {
	RecordTribute(r domain.TributeRecord) error
}

// Options configures Harvester.
type Options struct {
	Balances BalanceReader
	Executor Transferrer
	Store    storage.TributeStore // optional
	Journal  Recorder             // optional
	Config   domain.TributeConfig
	Mint     string
	Decimals int32
	Logger   zerolog.Logger
	Now      func() time.Time
}

// Harvester forwards surplus stable asset.
type Harvester struct {
	balances BalanceReader
	exec     Transferrer
	store    storage.TributeStore
	journal  Recorder
	cfg      domain.TributeConfig
	mint     string
	decimals int32
	logger   zerolog.Logger
	now      func() time.Time
}

// New creates a Harvester.
func New(opts Options) *Harvester {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Harvester{
		balances: opts.Balances,
		exec:     opts.Executor,
		store:    opts.Store,
		journal:  opts.Journal,
		cfg:      opts.Config,
		mint:     opts.Mint,
		decimals: opts.Decimals,
		logger:   opts.Logger,
		now:      opts.Now,
	}
}

// Enabled reports whether a recipient is configured.
func (h *Harvester) Enabled() bool {
	return h.cfg.Enabled()
}

// Threshold returns the configured surplus threshold.
func (h *Harvester) Threshold() decimal.Decimal {
	return h.cfg.Threshold
}

// Harvest reads the stable balance now and forwards balance - threshold.
// Without a recipient it logs the intent and returns a skipped result.
// An ambiguous transfer is still recorded, with its signature, and the
// error is returned alongside the result.
func (h *Harvester) Harvest(ctx context.Context, cycleID string) (domain.TributeResult, error) {
	log := h.logger.With().Str("cycle_id", cycleID).Logger()

	if !h.cfg.Enabled() {
		log.Info().Str("threshold", h.cfg.Threshold.String()).Msg("surplus above tribute threshold, but no recipient configured")
		observability.RecordTribute("skipped", 0)
		return domain.TributeResult{Skipped: true, Reason: ReasonNoRecipient}, nil
	}

	balance, err := h.balances.StableBalance(ctx)
	if err != nil {
		return domain.TributeResult{}, fmt.Errorf("tribute: %w", err)
	}

	surplus := balance.Sub(h.cfg.Threshold)
	units, err := domain.ToBaseUnits(decimal.Max(surplus, decimal.Zero), h.decimals)
	if err != nil {
		return domain.TributeResult{}, fmt.Errorf("tribute: %w", err)
	}
	if !surplus.IsPositive() || units == 0 {
		log.Debug().Str("balance", balance.String()).Msg("no tribute surplus")
		observability.RecordTribute("skipped", 0)
		return domain.TributeResult{Skipped: true, Reason: ReasonNoSurplus}, nil
	}
	amount := domain.FromBaseUnits(units, h.decimals)

	log = log.With().Str("recipient", h.cfg.Recipient).Str("amount", amount.String()).Logger()
	log.Info().Str("balance", balance.String()).Msg("forwarding tribute")

	sig, err := h.exec.Transfer(ctx, executor.Transfer{Asset: h.mint, To: h.cfg.Recipient, Amount: units})
	status := domain.TributeConfirmed
	switch {
	case errors.Is(err, domain.ErrConfirmationAmbiguous):
		status = domain.TributeAmbiguous
	case err != nil:
		observability.RecordTribute("failed", 0)
		return domain.TributeResult{}, fmt.Errorf("tribute: %w", err)
	}

	rec := domain.TributeRecord{
		ID:        idhash.ComputeTributeID(cycleID, h.cfg.Recipient, h.mint, sig, units),
		CycleID:   cycleID,
		Recipient: h.cfg.Recipient,
		Mint:      h.mint,
		Amount:    amount,
		Signature: sig,
		Status:    status,
		CreatedAt: h.now().UTC(),
	}
	h.persist(context.WithoutCancel(ctx), log, rec)
	observability.RecordTribute(string(status), amount.InexactFloat64())

	result := domain.TributeResult{Amount: amount, Ref: sig}
	if err != nil {
		return result, fmt.Errorf("tribute: %w", err)
	}
	log.Info().Str("signature", sig).Msg("tribute confirmed")
	return result, nil
}

// persist writes the audit record. Failures are logged: the transfer already happened.
func (h *Harvester) persist(ctx context.Context, log zerolog.Logger, rec domain.TributeRecord) {
	if h.store != nil {
		if err := h.store.Insert(ctx, &rec); err != nil {
			log.Error().Err(err).Str("tribute_id", rec.ID).Msg("store tribute record")
		}
	}
	if h.journal != nil {
		if err := h.journal.RecordTribute(rec); err != nil {
			log.Error().Err(err).Str("tribute_id", rec.ID).Msg("journal tribute record")
		}
	}
}
