package oracle

import (
	"context"
	"errors"
	"testing"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-survival-agent/internal/domain"
	"solana-survival-agent/internal/solana"
	"solana-survival-agent/internal/solana/stub"
)

func newOracle(t *testing.T, rpc *stub.RPCClient) (*Oracle, string) {
	t.Helper()
	owner := solanago.NewWallet().PublicKey().String()
	o, err := New(Options{
		RPC:            rpc,
		Owner:          owner,
		StableMint:     domain.USDCMint,
		StableDecimals: 6,
		ReadTimeout:    time.Second,
		Logger:         zerolog.Nop(),
	})
	require.NoError(t, err)
	return o, owner
}

func TestSnapshot_BothKnown(t *testing.T) {
	rpc := stub.NewRPCClient()
	o, owner := newOracle(t, rpc)
	rpc.SetBalance(owner, 20_000_000) // 0.02 SOL
	rpc.SetTokenAccount(&solana.TokenAccount{
		Address: o.StableAccount(),
		Mint:    domain.USDCMint,
		Owner:   owner,
		Amount:  10_000_000, // 10 USDC
	})

	snap := o.Snapshot(context.Background())
	require.True(t, snap.Complete())

	native, _ := snap.Native.Get()
	stable, _ := snap.Stable.Get()
	assert.True(t, native.Equal(decimal.RequireFromString("0.02")))
	assert.True(t, stable.Equal(decimal.NewFromInt(10)))
	assert.False(t, snap.TimestampedAt.IsZero())
}

func TestSnapshot_MissingStableAccountIsZero(t *testing.T) {
	rpc := stub.NewRPCClient()
	o, owner := newOracle(t, rpc)
	rpc.SetBalance(owner, 1_000_000_000)

	snap := o.Snapshot(context.Background())
	stable, ok := snap.Stable.Get()
	require.True(t, ok, "absent account must be a known zero")
	assert.True(t, stable.IsZero())
}

func TestSnapshot_NativeFailureIsUnknown(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.BalanceErr = errors.New("timeout")
	o, owner := newOracle(t, rpc)
	rpc.SetTokenAccount(&solana.TokenAccount{Address: o.StableAccount(), Mint: domain.USDCMint, Owner: owner, Amount: 3_000_000})

	snap := o.Snapshot(context.Background())
	assert.False(t, snap.Native.IsKnown())
	assert.True(t, snap.Stable.IsKnown())
	assert.Equal(t, domain.TierUnknown, domain.Classify(snap, domain.Thresholds{
		ReserveFloor: decimal.RequireFromString("0.01"),
		LowWaterMark: decimal.NewFromInt(5),
	}))
}

func TestSnapshot_StableFailureIsUnknown(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.TokenErr = errors.New("connection reset")
	o, owner := newOracle(t, rpc)
	rpc.SetBalance(owner, 1)

	snap := o.Snapshot(context.Background())
	assert.True(t, snap.Native.IsKnown())
	assert.False(t, snap.Stable.IsKnown())
}

func TestStableBalance_WrongMintIsUnknown(t *testing.T) {
	rpc := stub.NewRPCClient()
	o, owner := newOracle(t, rpc)
	rpc.SetTokenAccount(&solana.TokenAccount{Address: o.StableAccount(), Mint: domain.NativeMint, Owner: owner, Amount: 5})

	_, err := o.StableBalance(context.Background())
	assert.True(t, errors.Is(err, domain.ErrUnknownBalance))
}

func TestNativeBalance_WrapsUnknown(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.BalanceErr = errors.New("boom")
	o, _ := newOracle(t, rpc)

	_, err := o.NativeBalance(context.Background())
	assert.True(t, errors.Is(err, domain.ErrUnknownBalance))
}

func TestNew_InvalidOwner(t *testing.T) {
	_, err := New(Options{RPC: stub.NewRPCClient(), Owner: "bad", StableMint: domain.USDCMint})
	assert.Error(t, err)
}
