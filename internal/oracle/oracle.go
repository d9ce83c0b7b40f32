// Package oracle reads the agent's native and stable-asset balances.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"solana-survival-agent/internal/domain"
	"solana-survival-agent/internal/observability"
	"solana-survival-agent/internal/solana"
)

// DefaultReadTimeout bounds each balance read.
const DefaultReadTimeout = 8 * time.Second

// Options configures the Oracle.
type Options struct {
	RPC            solana.RPCClient
	Owner          string // base58 wallet address
	StableMint     string
	StableDecimals int32
	ReadTimeout    time.Duration
	Logger         zerolog.Logger
	Now            func() time.Time
}

// Oracle produces balance snapshots. A failed read is reported as unknown,
// never as zero; a missing stable-asset account is a known zero.
type Oracle struct {
	rpc            solana.RPCClient
	owner          string
	stableMint     string
	stableDecimals int32
	stableAccount  string
	timeout        time.Duration
	logger         zerolog.Logger
	now            func() time.Time
}

// New creates an Oracle and derives the owner's stable-asset token account.
func New(opts Options) (*Oracle, error) {
	if opts.RPC == nil {
		return nil, errors.New("oracle: rpc client is required")
	}
	account, err := solana.DeriveAssociatedTokenAddress(opts.Owner, opts.StableMint)
	if err != nil {
		return nil, fmt.Errorf("oracle: derive stable account: %w", err)
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = DefaultReadTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Oracle{
		rpc:            opts.RPC,
		owner:          opts.Owner,
		stableMint:     opts.StableMint,
		stableDecimals: opts.StableDecimals,
		stableAccount:  account,
		timeout:        opts.ReadTimeout,
		logger:         opts.Logger,
		now:            opts.Now,
	}, nil
}

// StableAccount returns the owner's associated token account for the stable asset.
func (o *Oracle) StableAccount() string {
	return o.stableAccount
}

// Snapshot performs both reads concurrently and joins them. It never fails:
// read errors become unknown amounts.
func (o *Oracle) Snapshot(ctx context.Context) domain.BalanceSnapshot {
	snap := domain.BalanceSnapshot{
		Native: domain.UnknownAmount(),
		Stable: domain.UnknownAmount(),
	}

	// Each goroutine owns one field; neither returns an error so the group never cancels.
	var g errgroup.Group
	g.Go(func() error {
		if v, err := o.NativeBalance(ctx); err == nil {
			snap.Native = domain.KnownAmount(v)
		}
		return nil
	})
	g.Go(func() error {
		if v, err := o.StableBalance(ctx); err == nil {
			snap.Stable = domain.KnownAmount(v)
		}
		return nil
	})
	_ = g.Wait()

	snap.TimestampedAt = o.now().UTC()
	return snap
}

// NativeBalance reads the native balance in whole units.
func (o *Oracle) NativeBalance(ctx context.Context) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	lamports, err := o.rpc.GetBalance(ctx, o.owner)
	if err != nil {
		observability.RecordBalanceReadFailure("native")
		o.logger.Warn().Err(err).Msg("native balance read failed")
		return decimal.Zero, fmt.Errorf("%w: native: %v", domain.ErrUnknownBalance, err)
	}
	return domain.FromBaseUnits(lamports, domain.NativeDecimals), nil
}

// StableBalance reads the stable-asset balance in whole units. An absent
// token account means the asset was never received and reads as zero.
func (o *Oracle) StableBalance(ctx context.Context) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	acct, err := o.rpc.GetTokenAccount(ctx, o.stableAccount)
	if errors.Is(err, solana.ErrAccountNotFound) {
		return decimal.Zero, nil
	}
	if err == nil && acct.Mint != o.stableMint {
		err = fmt.Errorf("account %s holds mint %s", o.stableAccount, acct.Mint)
	}
	if err != nil {
		observability.RecordBalanceReadFailure("stable")
		o.logger.Warn().Err(err).Msg("stable balance read failed")
		return decimal.Zero, fmt.Errorf("%w: stable: %v", domain.ErrUnknownBalance, err)
	}
	return domain.FromBaseUnits(acct.Amount, o.stableDecimals), nil
}
