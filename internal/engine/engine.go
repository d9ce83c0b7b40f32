// Package engine runs one survival heartbeat: read balances, classify the
// tier, and take at most one action.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"solana-survival-agent/internal/domain"
	"solana-survival-agent/internal/executor"
	"solana-survival-agent/internal/observability"
	"solana-survival-agent/internal/storage"
)

// BalanceSource produces one snapshot per cycle. Implemented by *oracle.Oracle.
type BalanceSource interface {
	Snapshot(ctx context.Context) domain.BalanceSnapshot
}

// Harvester forwards surplus. Implemented by *tribute.Harvester.
type Harvester interface {
	Threshold() decimal.Decimal
	Harvest(ctx context.Context, cycleID string) (domain.TributeResult, error)
}

// Scanner finds investment candidates. Implemented by *scanner.Scanner.
type Scanner interface {
	Scan(ctx context.Context) []domain.Candidate
}

// Swapper executes swaps. Implemented by *executor.Executor.
type Swapper interface {
	Swap(ctx context.Context, s executor.Swap) (string, error)
}

// Recorder appends outcomes to the mission log. Implemented by *journal.Journal.
type Recorder interface {
	RecordOutcome(o domain.ActionOutcome) error
}

// Options configures Engine. Harvester, Scanner and every store are optional.
type Options struct {
	Balances  BalanceSource
	Executor  Swapper
	Harvester Harvester
	Scanner   Scanner // nil disables investing

	Outcomes  storage.OutcomeStore
	Snapshots storage.SnapshotStore
	Journal   Recorder

	Thresholds domain.Thresholds
	SwapSize   decimal.Decimal // native spent per stabilize
	InvestSize decimal.Decimal // native spent per invest
	StableMint string

	Logger zerolog.Logger
	Now    func() time.Time
}

// Engine is the survival state machine. Cycles are serialized: a cycle
// never starts before the previous outcome is recorded.
type Engine struct {
	balances  BalanceSource
	exec      Swapper
	harvester Harvester
	scanner   Scanner

	outcomes  storage.OutcomeStore
	snapshots storage.SnapshotStore
	journal   Recorder

	thresholds domain.Thresholds
	swapSize   decimal.Decimal
	investSize decimal.Decimal
	stableMint string

	logger zerolog.Logger
	now    func() time.Time

	mu sync.Mutex

	statusMu sync.RWMutex
	last     *domain.ActionOutcome
	cycles   int64
}

// New creates an Engine.
func New(opts Options) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if !opts.InvestSize.IsPositive() {
		opts.InvestSize = opts.SwapSize
	}
	if opts.StableMint == "" {
		opts.StableMint = domain.USDCMint
	}
	return &Engine{
		balances:   opts.Balances,
		exec:       opts.Executor,
		harvester:  opts.Harvester,
		scanner:    opts.Scanner,
		outcomes:   opts.Outcomes,
		snapshots:  opts.Snapshots,
		journal:    opts.Journal,
		thresholds: opts.Thresholds,
		swapSize:   opts.SwapSize,
		investSize: opts.InvestSize,
		stableMint: opts.StableMint,
		logger:     opts.Logger,
		now:        opts.Now,
	}
}

// RunCycle executes one heartbeat and returns its outcome. Exactly one
// outcome is produced and recorded per call, whatever branch is taken.
// Cancelling ctx interrupts pending external calls; the outcome is still
// recorded.
func (e *Engine) RunCycle(ctx context.Context) domain.ActionOutcome {
	e.mu.Lock()
	defer e.mu.Unlock()

	o := domain.ActionOutcome{
		CycleID:     uuid.NewString(),
		ActionTaken: domain.ActionNone,
		StartedAt:   e.now().UTC(),
	}
	log := e.logger.With().Str("cycle_id", o.CycleID).Logger()

	o.Snapshot = e.balances.Snapshot(ctx)
	o.Tier = domain.Classify(o.Snapshot, e.thresholds)
	log = log.With().Str("tier", string(o.Tier)).Logger()
	log.Info().
		Str("native", o.Snapshot.Native.String()).
		Str("stable", o.Snapshot.Stable.String()).
		Msg("balances read")

	e.decide(ctx, log, &o)

	o.FinishedAt = e.now().UTC()
	e.record(context.WithoutCancel(ctx), log, o)
	return o
}

func (e *Engine) decide(ctx context.Context, log zerolog.Logger, o *domain.ActionOutcome) {
	if o.Tier == domain.TierUnknown {
		o.Error = domain.OutcomeErrBalancesUnknown
		log.Warn().Msg("balances unknown, taking no action")
		return
	}

	native, _ := o.Snapshot.Native.Get()
	stable, _ := o.Snapshot.Stable.Get()

	// Tribute runs before the tier action, Critical included.
	if e.harvester != nil && stable.GreaterThan(e.thresholds.LowWaterMark.Add(e.harvester.Threshold())) {
		res, err := e.harvester.Harvest(ctx, o.CycleID)
		o.TributeRef = res.Ref
		if err != nil {
			o.TributeError = err.Error()
			log.Error().Err(err).Msg("tribute failed")
		}
	}

	switch o.Tier {
	case domain.TierCritical:
		o.ActionTaken = domain.ActionHibernate
		o.Error = domain.OutcomeErrNativeReserveReached
		log.Warn().Str("floor", e.thresholds.ReserveFloor.String()).Msg("native reserve at or below floor, hibernating")

	case domain.TierStabilizing:
		e.spend(ctx, log, o, native, e.swapSize, domain.ActionStabilize, e.stableMint, "")

	case domain.TierNominal:
		if e.scanner == nil {
			o.Success = true
			log.Debug().Msg("investing disabled, idle")
			return
		}
		candidates := e.scanner.Scan(ctx)
		if len(candidates) == 0 {
			o.Success = true
			log.Info().Msg("no safe opportunities, idle")
			return
		}
		top := candidates[0]
		log.Info().Str("symbol", top.Symbol).Int("trust_score", top.TrustScore).Msg("investing in top candidate")
		e.spend(ctx, log, o, native, e.investSize, domain.ActionInvest, top.AssetAddress, top.Symbol)
	}
}

// spend swaps min(limit, native - floor) of the native asset into target.
// Nothing is submitted when that bound is not positive.
func (e *Engine) spend(ctx context.Context, log zerolog.Logger, o *domain.ActionOutcome, native, limit decimal.Decimal, action domain.Action, target, symbol string) {
	amount := domain.SpendableNative(native, e.thresholds.ReserveFloor, limit)
	units, err := domain.ToBaseUnits(decimal.Max(amount, decimal.Zero), domain.NativeDecimals)
	if !amount.IsPositive() || err != nil || units == 0 {
		o.Error = domain.OutcomeErrInsufficientHeadroom
		if action == domain.ActionStabilize {
			o.Error = domain.OutcomeErrInsufficientReserve
		}
		log.Warn().Str("spendable", amount.String()).Msg("insufficient reserve")
		return
	}

	o.ActionTaken = action
	o.Target = symbol
	o.Amount = domain.FromBaseUnits(units, domain.NativeDecimals).String()

	sig, err := e.exec.Swap(ctx, executor.Swap{From: domain.NativeMint, To: target, Amount: units})
	o.TransactionRef = sig
	if err != nil {
		o.Error = err.Error()
		o.Ambiguous = errors.Is(err, domain.ErrConfirmationAmbiguous)
		return
	}
	o.Success = true
}

// record persists the outcome everywhere it is audited. Store failures are
// logged and never change the decision. ctx must outlive a stop signal.
func (e *Engine) record(ctx context.Context, log zerolog.Logger, o domain.ActionOutcome) {
	ev := log.Info()
	if !o.Success {
		ev = log.Warn()
	}
	ev.Str("action", string(o.ActionTaken)).
		Bool("success", o.Success).
		Str("tx", o.TransactionRef).
		Str("error", o.Error).
		Dur("took", o.FinishedAt.Sub(o.StartedAt)).
		Msg("cycle complete")

	if e.outcomes != nil {
		if err := e.outcomes.Insert(ctx, &o); err != nil {
			log.Error().Err(err).Msg("store outcome")
		}
	}
	if e.journal != nil {
		if err := e.journal.RecordOutcome(o); err != nil {
			log.Error().Err(err).Msg("journal outcome")
		}
	}
	if e.snapshots != nil {
		if err := e.snapshots.Insert(ctx, domain.NewBalancePoint(o.CycleID, o.Tier, o.Snapshot)); err != nil {
			log.Error().Err(err).Msg("store balance snapshot")
		}
	}

	native, nativeOK := o.Snapshot.Native.Get()
	stable, stableOK := o.Snapshot.Stable.Get()
	observability.UpdateBalances(native.InexactFloat64(), stable.InexactFloat64(), nativeOK, stableOK)
	observability.RecordCycle(string(o.Tier), string(o.ActionTaken), o.Success,
		o.FinishedAt.Sub(o.StartedAt).Seconds(), o.FinishedAt.Unix())

	e.statusMu.Lock()
	e.last = &o
	e.cycles++
	e.statusMu.Unlock()
}

// Status is the engine's view for health endpoints.
type Status struct {
	Cycles      int64                 `json:"cycles"`
	LastOutcome *domain.ActionOutcome `json:"last_outcome,omitempty"`
}

// Status returns the cycle count and the most recent outcome.
func (e *Engine) Status() Status {
	e.statusMu.RLock()
	defer e.statusMu.RUnlock()
	s := Status{Cycles: e.cycles}
	if e.last != nil {
		cp := *e.last
		s.LastOutcome = &cp
	}
	return s
}
