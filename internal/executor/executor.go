// Package executor performs one irreversible ledger transaction at a time:
// swaps through the aggregator and direct transfers, signed locally.
package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	bin "github.com/gagliardetto/binary"
	solanago "github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/rs/zerolog"

	"solana-survival-agent/internal/domain"
	"solana-survival-agent/internal/jupiter"
	"solana-survival-agent/internal/observability"
	"solana-survival-agent/internal/solana"
)

// Defaults.
const (
	DefaultSubmitAttempts = 3
	DefaultRetryDelay     = 500 * time.Millisecond
	DefaultConfirmTimeout = 60 * time.Second
	DefaultPollInterval   = 2 * time.Second
	DefaultSlippageBps    = 50
)

// Swap converts Amount base units of From into To.
type Swap struct {
	From   string
	To     string
	Amount uint64
}

// Transfer sends Amount base units of Asset to To. Asset is the native mint
// for SOL or an SPL token mint.
type Transfer struct {
	Asset  string
	To     string
	Amount uint64
}

// Aggregator prices and builds swap transactions.
type Aggregator interface {
	Quote(ctx context.Context, r jupiter.QuoteRequest) (*jupiter.Quote, error)
	BuildSwapTransaction(ctx context.Context, quote *jupiter.Quote, signer string) ([]byte, error)
}

// Signer is the local keypair. The private key is only handed to solana-go's signing.
type Signer interface {
	PublicKey() solanago.PublicKey
	Signer() func(solanago.PublicKey) *solanago.PrivateKey
}

// Options configures Executor.
type Options struct {
	RPC            solana.RPCClient
	Aggregator     Aggregator
	Signer         Signer
	SlippageBps    int
	SubmitAttempts int
	RetryDelay     time.Duration
	ConfirmTimeout time.Duration
	PollInterval   time.Duration
	Commitment     string
	Logger         zerolog.Logger
}

// Executor signs, submits and confirms transactions, one at a time.
type Executor struct {
	rpc            solana.RPCClient
	agg            Aggregator
	signer         Signer
	slippageBps    int
	attempts       int
	retryDelay     time.Duration
	confirmTimeout time.Duration
	pollInterval   time.Duration
	commitment     string
	logger         zerolog.Logger

	mu sync.Mutex
}

// New creates an Executor, filling zero options with defaults.
func New(opts Options) *Executor {
	if opts.SlippageBps <= 0 {
		opts.SlippageBps = DefaultSlippageBps
	}
	if opts.SubmitAttempts <= 0 {
		opts.SubmitAttempts = DefaultSubmitAttempts
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	if opts.ConfirmTimeout <= 0 {
		opts.ConfirmTimeout = DefaultConfirmTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Commitment == "" {
		opts.Commitment = solana.CommitmentConfirmed
	}
	return &Executor{
		rpc:            opts.RPC,
		agg:            opts.Aggregator,
		signer:         opts.Signer,
		slippageBps:    opts.SlippageBps,
		attempts:       opts.SubmitAttempts,
		retryDelay:     opts.RetryDelay,
		confirmTimeout: opts.ConfirmTimeout,
		pollInterval:   opts.PollInterval,
		commitment:     opts.Commitment,
		logger:         opts.Logger,
	}
}

// Swap quotes, builds, signs, submits and confirms a swap. On
// ErrConfirmationAmbiguous the signature is returned with the error.
func (e *Executor) Swap(ctx context.Context, s Swap) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	log := e.logger.With().Str("kind", "swap").Str("from", s.From).Str("to", s.To).Uint64("amount", s.Amount).Logger()

	if e.agg == nil {
		return e.abort(log, "swap", fmt.Errorf("%w: no aggregator configured", domain.ErrQuoteUnavailable))
	}
	quote, err := e.agg.Quote(ctx, jupiter.QuoteRequest{
		InputMint:   s.From,
		OutputMint:  s.To,
		Amount:      s.Amount,
		SlippageBps: e.slippageBps,
	})
	if err != nil {
		return e.abort(log, "swap", ensure(err, domain.ErrQuoteUnavailable))
	}
	log.Info().Str("out_amount", quote.OutAmount).Str("price_impact", quote.PriceImpactPct).Msg("quote received")

	pub := e.signer.PublicKey()
	raw, err := e.agg.BuildSwapTransaction(ctx, quote, pub.String())
	if err != nil {
		return e.abort(log, "swap", ensure(err, domain.ErrBuildFailed))
	}

	tx, err := solanago.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return e.abort(log, "swap", fmt.Errorf("%w: decode transaction: %v", domain.ErrBuildFailed, err))
	}
	if len(tx.Message.AccountKeys) == 0 || !tx.Message.AccountKeys[0].Equals(pub) {
		return e.abort(log, "swap", fmt.Errorf("%w: transaction fee payer is not this identity", domain.ErrBuildFailed))
	}
	// The aggregator ships zeroed placeholder signatures.
	tx.Signatures = nil

	return e.signAndSend(ctx, log, "swap", tx)
}

// Transfer builds a direct transfer, signs, submits and confirms it.
func (e *Executor) Transfer(ctx context.Context, t Transfer) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	log := e.logger.With().Str("kind", "transfer").Str("asset", t.Asset).Str("to", t.To).Uint64("amount", t.Amount).Logger()

	if t.Amount == 0 {
		return e.abort(log, "transfer", fmt.Errorf("%w: zero amount", domain.ErrBuildFailed))
	}
	to, err := solanago.PublicKeyFromBase58(t.To)
	if err != nil {
		return e.abort(log, "transfer", fmt.Errorf("%w: recipient: %v", domain.ErrBuildFailed, err))
	}

	instrs, err := e.transferInstructions(ctx, t, to)
	if err != nil {
		return e.abort(log, "transfer", fmt.Errorf("%w: %v", domain.ErrBuildFailed, err))
	}

	cp, err := e.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		return e.abort(log, "transfer", fmt.Errorf("%w: blockhash: %v", domain.ErrBuildFailed, err))
	}
	hash, err := solanago.HashFromBase58(cp.Blockhash)
	if err != nil {
		return e.abort(log, "transfer", fmt.Errorf("%w: blockhash: %v", domain.ErrBuildFailed, err))
	}

	tx, err := solanago.NewTransaction(instrs, hash, solanago.TransactionPayer(e.signer.PublicKey()))
	if err != nil {
		return e.abort(log, "transfer", fmt.Errorf("%w: %v", domain.ErrBuildFailed, err))
	}
	return e.signAndSend(ctx, log, "transfer", tx)
}

func (e *Executor) transferInstructions(ctx context.Context, t Transfer, to solanago.PublicKey) ([]solanago.Instruction, error) {
	owner := e.signer.PublicKey()
	if t.Asset == domain.NativeMint {
		return []solanago.Instruction{
			system.NewTransferInstruction(t.Amount, owner, to).Build(),
		}, nil
	}

	mint, err := solanago.PublicKeyFromBase58(t.Asset)
	if err != nil {
		return nil, fmt.Errorf("mint: %w", err)
	}
	src, err := tokenAccount(owner.String(), t.Asset)
	if err != nil {
		return nil, err
	}
	dst, err := tokenAccount(t.To, t.Asset)
	if err != nil {
		return nil, err
	}

	var instrs []solanago.Instruction
	info, err := e.rpc.GetAccountInfo(ctx, dst.String())
	if err != nil {
		return nil, fmt.Errorf("destination account lookup: %w", err)
	}
	if info == nil {
		instrs = append(instrs, associatedtokenaccount.NewCreateInstruction(owner, to, mint).Build())
	}
	instrs = append(instrs, token.NewTransferInstruction(t.Amount, src, dst, owner, []solanago.PublicKey{}).Build())
	return instrs, nil
}

func tokenAccount(owner, mint string) (solanago.PublicKey, error) {
	addr, err := solana.DeriveAssociatedTokenAddress(owner, mint)
	if err != nil {
		return solanago.PublicKey{}, err
	}
	return solanago.PublicKeyFromBase58(addr)
}

func (e *Executor) signAndSend(ctx context.Context, log zerolog.Logger, kind string, tx *solanago.Transaction) (string, error) {
	if _, err := tx.Sign(e.signer.Signer()); err != nil {
		return e.abort(log, kind, fmt.Errorf("%w: sign: %v", domain.ErrBuildFailed, err))
	}
	wire, err := tx.MarshalBinary()
	if err != nil {
		return e.abort(log, kind, fmt.Errorf("%w: serialize: %v", domain.ErrBuildFailed, err))
	}

	// Nothing has been broadcast yet, so a stop signal aborts cleanly here.
	if err := ctx.Err(); err != nil {
		return e.abort(log, kind, fmt.Errorf("%w: %v", domain.ErrSubmissionFailed, err))
	}
	sig, err := e.submit(ctx, log, wire)
	if err != nil {
		return e.abort(log, kind, err)
	}
	log = log.With().Str("signature", sig).Logger()
	log.Info().Msg("transaction submitted")

	if err := e.confirm(ctx, sig); err != nil {
		outcome := "failed"
		if errors.Is(err, domain.ErrConfirmationAmbiguous) {
			outcome = "ambiguous"
		}
		observability.RecordAction(kind, outcome)
		log.Error().Err(err).Msg("transaction not confirmed")
		return sig, err
	}

	observability.RecordAction(kind, "confirmed")
	log.Info().Msg("transaction confirmed")
	return sig, nil
}

func (e *Executor) abort(log zerolog.Logger, kind string, err error) (string, error) {
	observability.RecordAction(kind, "aborted")
	log.Error().Err(err).Msg("action aborted, no funds moved")
	return "", err
}

// submit broadcasts wire with bounded exponential backoff. Resubmitting the
// same signed bytes cannot duplicate the transfer: the signature is its id.
// Node rejections are final.
func (e *Executor) submit(ctx context.Context, log zerolog.Logger, wire []byte) (string, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.retryDelay
	b.MaxElapsedTime = 0

	var sig string
	attempt := 0
	op := func() error {
		attempt++
		observability.RecordSubmitAttempt()
		s, err := e.rpc.SendTransaction(ctx, wire)
		if err != nil {
			var rpcErr *solana.RPCError
			if errors.As(err, &rpcErr) || ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		sig = s
		return nil
	}
	notify := func(err error, wait time.Duration) {
		log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", wait).Msg("submission failed, retrying")
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(e.attempts-1)), ctx)
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return "", fmt.Errorf("%w after %d attempt(s): %v", domain.ErrSubmissionFailed, attempt, err)
	}
	return sig, nil
}

// confirm polls the signature until it reaches the configured commitment.
// The validity horizon comes from a checkpoint fetched after submission.
func (e *Executor) confirm(ctx context.Context, sig string) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, e.confirmTimeout)
	defer cancel()

	var horizon uint64
	if cp, err := e.rpc.GetLatestBlockhash(ctx); err == nil {
		horizon = cp.LastValidBlockHeight
	}

	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		statuses, err := e.rpc.GetSignatureStatuses(ctx, []string{sig})
		if err == nil && len(statuses) == 1 && statuses[0] != nil {
			st := statuses[0]
			if st.Err != nil {
				return fmt.Errorf("%w: %v", domain.ErrTransactionFailed, st.Err)
			}
			if st.Reached(e.commitment) {
				observability.RecordConfirmation(time.Since(start).Seconds())
				return nil
			}
		}

		if horizon > 0 {
			if height, err := e.rpc.GetBlockHeight(ctx); err == nil && height > horizon {
				return fmt.Errorf("%w: %s not confirmed before block height %d", domain.ErrConfirmationAmbiguous, sig, horizon)
			}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %s not confirmed within %s", domain.ErrConfirmationAmbiguous, sig, time.Since(start).Round(time.Millisecond))
		case <-ticker.C:
		}
	}
}

func ensure(err, kind error) error {
	if errors.Is(err, kind) {
		return err
	}
	return fmt.Errorf("%w: %v", kind, err)
}
