package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	bin "github.com/gagliardetto/binary"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-survival-agent/internal/domain"
	"solana-survival-agent/internal/jupiter"
	"solana-survival-agent/internal/solana"
	"solana-survival-agent/internal/solana/stub"
)

type wallet struct {
	key solanago.PrivateKey
}

func newWallet() *wallet {
	return &wallet{key: solanago.NewWallet().PrivateKey}
}

func (w *wallet) PublicKey() solanago.PublicKey { return w.key.PublicKey() }

func (w *wallet) Signer() func(solanago.PublicKey) *solanago.PrivateKey {
	return func(k solanago.PublicKey) *solanago.PrivateKey {
		if k.Equals(w.key.PublicKey()) {
			return &w.key
		}
		return nil
	}
}

type fakeAggregator struct {
	quoteErr error
	buildErr error
	payer    solanago.PublicKey
	quotes   int
	builds   int
	lastReq  jupiter.QuoteRequest
}

func (f *fakeAggregator) Quote(_ context.Context, r jupiter.QuoteRequest) (*jupiter.Quote, error) {
	f.quotes++
	f.lastReq = r
	if f.quoteErr != nil {
		return nil, f.quoteErr
	}
	return &jupiter.Quote{OutAmount: "6000000", Raw: []byte(`{}`)}, nil
}

// BuildSwapTransaction returns an unsigned transaction with a zeroed placeholder signature.
func (f *fakeAggregator) BuildSwapTransaction(_ context.Context, _ *jupiter.Quote, signer string) ([]byte, error) {
	f.builds++
	if f.buildErr != nil {
		return nil, f.buildErr
	}
	payer := f.payer
	if payer.IsZero() {
		payer = solanago.MustPublicKeyFromBase58(signer)
	}
	tx, err := solanago.NewTransaction(
		[]solanago.Instruction{system.NewTransferInstruction(1, payer, solanago.NewWallet().PublicKey()).Build()},
		solanago.MustHashFromBase58("GHtXQBsoZHVnNFa9YevAzFr17DJjgHXk3ycTKD5xD3Zi"),
		solanago.TransactionPayer(payer),
	)
	if err != nil {
		return nil, err
	}
	tx.Signatures = []solanago.Signature{{}}
	return tx.MarshalBinary()
}

func decodeTx(raw []byte) (*solanago.Transaction, error) {
	return solanago.TransactionFromDecoder(bin.NewBinDecoder(raw))
}

func newExecutor(rpc *stub.RPCClient, agg Aggregator, w *wallet) *Executor {
	return New(Options{
		RPC:            rpc,
		Aggregator:     agg,
		Signer:         w,
		RetryDelay:     time.Millisecond,
		ConfirmTimeout: 200 * time.Millisecond,
		PollInterval:   5 * time.Millisecond,
		Logger:         zerolog.Nop(),
	})
}

func TestSwap_Confirmed(t *testing.T) {
	rpc := stub.NewRPCClient()
	agg := &fakeAggregator{}
	w := newWallet()

	sig, err := newExecutor(rpc, agg, w).Swap(context.Background(), Swap{From: domain.NativeMint, To: domain.USDCMint, Amount: 40_000_000})
	require.NoError(t, err)
	require.NotEmpty(t, sig)
	require.Equal(t, 1, rpc.SentCount())
	assert.Equal(t, DefaultSlippageBps, agg.lastReq.SlippageBps)
	assert.Equal(t, uint64(40_000_000), agg.lastReq.Amount)

	// The submitted transaction carries exactly one valid signature by this identity.
	sent, err := decodeTx(rpc.Sent[0])
	require.NoError(t, err)
	require.Len(t, sent.Signatures, 1)
	assert.Equal(t, sig, sent.Signatures[0].String())
	require.NoError(t, sent.VerifySignatures())

	// Confirmation used a checkpoint fetched after submission.
	assert.Equal(t, 1, rpc.CallCount("getLatestBlockhash"))
}

func TestSwap_QuoteFailureMovesNothing(t *testing.T) {
	rpc := stub.NewRPCClient()
	agg := &fakeAggregator{quoteErr: errors.New("no route")}

	sig, err := newExecutor(rpc, agg, newWallet()).Swap(context.Background(), Swap{From: "A", To: "B", Amount: 1})
	assert.True(t, errors.Is(err, domain.ErrQuoteUnavailable))
	assert.Empty(t, sig)
	assert.Zero(t, agg.builds)
	assert.Zero(t, rpc.CallCount("sendTransaction"))
}

func TestSwap_BuildFailureMovesNothing(t *testing.T) {
	rpc := stub.NewRPCClient()
	agg := &fakeAggregator{buildErr: errors.New("500")}

	_, err := newExecutor(rpc, agg, newWallet()).Swap(context.Background(), Swap{From: "A", To: "B", Amount: 1})
	assert.True(t, errors.Is(err, domain.ErrBuildFailed))
	assert.Zero(t, rpc.CallCount("sendTransaction"))
}

func TestSwap_ForeignFeePayerRejected(t *testing.T) {
	rpc := stub.NewRPCClient()
	agg := &fakeAggregator{payer: solanago.NewWallet().PublicKey()}

	_, err := newExecutor(rpc, agg, newWallet()).Swap(context.Background(), Swap{From: "A", To: "B", Amount: 1})
	assert.True(t, errors.Is(err, domain.ErrBuildFailed))
	assert.Zero(t, rpc.CallCount("sendTransaction"))
}

func TestSwap_TransientSubmissionRetried(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.SendErrs = []error{errors.New("connection reset"), errors.New("502")}

	sig, err := newExecutor(rpc, &fakeAggregator{}, newWallet()).Swap(context.Background(), Swap{From: "A", To: "B", Amount: 1})
	require.NoError(t, err)
	assert.NotEmpty(t, sig)
	assert.Equal(t, 3, rpc.CallCount("sendTransaction"))
}

func TestSwap_SubmissionAttemptsBounded(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.SendErrs = []error{errors.New("a"), errors.New("b"), errors.New("c"), errors.New("d")}

	sig, err := newExecutor(rpc, &fakeAggregator{}, newWallet()).Swap(context.Background(), Swap{From: "A", To: "B", Amount: 1})
	assert.True(t, errors.Is(err, domain.ErrSubmissionFailed))
	assert.Empty(t, sig)
	assert.Equal(t, DefaultSubmitAttempts, rpc.CallCount("sendTransaction"))
	assert.Zero(t, rpc.SentCount())
}

func TestSwap_RPCRejectionNotRetried(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.SendErrs = []error{&solana.RPCError{Code: -32002, Message: "Transaction simulation failed"}}

	_, err := newExecutor(rpc, &fakeAggregator{}, newWallet()).Swap(context.Background(), Swap{From: "A", To: "B", Amount: 1})
	assert.True(t, errors.Is(err, domain.ErrSubmissionFailed))
	var rpcErr *solana.RPCError
	assert.False(t, errors.As(err, &rpcErr), "rejection is recorded verbatim, not wrapped as a retryable error")
	assert.Equal(t, 1, rpc.CallCount("sendTransaction"))
}

func TestSwap_ConfirmationTimeoutIsAmbiguous(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.StatusOnSend = nil

	sig, err := newExecutor(rpc, &fakeAggregator{}, newWallet()).Swap(context.Background(), Swap{From: "A", To: "B", Amount: 1})
	assert.True(t, errors.Is(err, domain.ErrConfirmationAmbiguous))
	assert.NotEmpty(t, sig, "signature must be reported with an ambiguous outcome")
	assert.Equal(t, 1, rpc.CallCount("sendTransaction"), "ambiguous transactions are never resubmitted")
}

func TestSwap_CheckpointExpiryIsAmbiguous(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.StatusOnSend = nil
	rpc.BlockHeight = rpc.LastValidBlockHeight - 2
	rpc.BlockHeightStep = 2

	ex := newExecutor(rpc, &fakeAggregator{}, newWallet())
	ex.confirmTimeout = time.Minute

	start := time.Now()
	_, err := ex.Swap(context.Background(), Swap{From: "A", To: "B", Amount: 1})
	assert.True(t, errors.Is(err, domain.ErrConfirmationAmbiguous))
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestSwap_OnChainErrorIsDefiniteFailure(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.StatusOnSend = &solana.SignatureStatus{Slot: 1, Err: map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}}, ConfirmationStatus: "confirmed"}

	sig, err := newExecutor(rpc, &fakeAggregator{}, newWallet()).Swap(context.Background(), Swap{From: "A", To: "B", Amount: 1})
	assert.True(t, errors.Is(err, domain.ErrTransactionFailed))
	assert.False(t, errors.Is(err, domain.ErrConfirmationAmbiguous))
	assert.NotEmpty(t, sig)
}

func TestTransfer_Native(t *testing.T) {
	rpc := stub.NewRPCClient()
	w := newWallet()
	to := solanago.NewWallet().PublicKey()

	sig, err := newExecutor(rpc, nil, w).Transfer(context.Background(), Transfer{Asset: domain.NativeMint, To: to.String(), Amount: 5_000})
	require.NoError(t, err)
	require.Equal(t, 1, rpc.SentCount())

	tx, err := decodeTx(rpc.Sent[0])
	require.NoError(t, err)
	assert.Equal(t, sig, tx.Signatures[0].String())
	assert.True(t, tx.Message.AccountKeys[0].Equals(w.PublicKey()))
	require.Len(t, tx.Message.Instructions, 1)
	prog := tx.Message.AccountKeys[tx.Message.Instructions[0].ProgramIDIndex]
	assert.True(t, prog.Equals(solanago.SystemProgramID))
}

func TestTransfer_TokenCreatesMissingDestination(t *testing.T) {
	rpc := stub.NewRPCClient()
	to := solanago.NewWallet().PublicKey()

	_, err := newExecutor(rpc, nil, newWallet()).Transfer(context.Background(), Transfer{Asset: domain.USDCMint, To: to.String(), Amount: 1_000_000})
	require.NoError(t, err)

	tx, err := decodeTx(rpc.Sent[0])
	require.NoError(t, err)
	require.Len(t, tx.Message.Instructions, 2)
	create := tx.Message.AccountKeys[tx.Message.Instructions[0].ProgramIDIndex]
	assert.True(t, create.Equals(solanago.SPLAssociatedTokenAccountProgramID))
	transfer := tx.Message.AccountKeys[tx.Message.Instructions[1].ProgramIDIndex]
	assert.True(t, transfer.Equals(solanago.TokenProgramID))
}

func TestTransfer_TokenExistingDestination(t *testing.T) {
	rpc := stub.NewRPCClient()
	to := solanago.NewWallet().PublicKey()
	dst, err := solana.DeriveAssociatedTokenAddress(to.String(), domain.USDCMint)
	require.NoError(t, err)
	rpc.SetTokenAccount(&solana.TokenAccount{Address: dst, Mint: domain.USDCMint, Owner: to.String()})

	_, err = newExecutor(rpc, nil, newWallet()).Transfer(context.Background(), Transfer{Asset: domain.USDCMint, To: to.String(), Amount: 1})
	require.NoError(t, err)

	tx, err := decodeTx(rpc.Sent[0])
	require.NoError(t, err)
	assert.Len(t, tx.Message.Instructions, 1)
}

func TestTransfer_InvalidInput(t *testing.T) {
	rpc := stub.NewRPCClient()
	ex := newExecutor(rpc, nil, newWallet())

	_, err := ex.Transfer(context.Background(), Transfer{Asset: domain.NativeMint, To: "bad", Amount: 1})
	assert.True(t, errors.Is(err, domain.ErrBuildFailed))

	_, err = ex.Transfer(context.Background(), Transfer{Asset: domain.NativeMint, To: solanago.NewWallet().PublicKey().String()})
	assert.True(t, errors.Is(err, domain.ErrBuildFailed))
	assert.Zero(t, rpc.CallCount("sendTransaction"))
}

func TestSwap_NoAggregator(t *testing.T) {
	rpc := stub.NewRPCClient()

	_, err := newExecutor(rpc, nil, newWallet()).Swap(context.Background(), Swap{From: "A", To: "B", Amount: 1})
	assert.True(t, errors.Is(err, domain.ErrQuoteUnavailable))
	assert.Zero(t, rpc.CallCount("sendTransaction"))
}

func TestSwap_CancelDuringConfirmationIsAmbiguous(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.StatusOnSend = nil

	ex := newExecutor(rpc, &fakeAggregator{}, newWallet())
	ex.confirmTimeout = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	time.AfterFunc(50*time.Millisecond, cancel)

	start := time.Now()
	sig, err := ex.Swap(ctx, Swap{From: "A", To: "B", Amount: 1})
	assert.True(t, errors.Is(err, domain.ErrConfirmationAmbiguous))
	assert.False(t, errors.Is(err, domain.ErrTransactionFailed))
	assert.NotEmpty(t, sig)
	assert.Equal(t, 1, rpc.SentCount())
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestSwap_CancelBeforeSubmissionMovesNothing(t *testing.T) {
	rpc := stub.NewRPCClient()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sig, err := newExecutor(rpc, &fakeAggregator{}, newWallet()).Swap(ctx, Swap{From: "A", To: "B", Amount: 1})
	assert.True(t, errors.Is(err, domain.ErrSubmissionFailed))
	assert.Empty(t, sig)
	assert.False(t, errors.Is(err, domain.ErrConfirmationAmbiguous))
	assert.Equal(t, 0, rpc.SentCount())
}
