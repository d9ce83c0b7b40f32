// Package stub provides an in-memory ledger for tests.
package stub

import (
	"context"
	"fmt"
	"sync"

	"github.com/mr-tron/base58"

	"solana-survival-agent/internal/solana"
)

// RPCClient implements solana.RPCClient against in-memory state.
type RPCClient struct {
	mu sync.Mutex

	Balances      map[string]uint64
	TokenAccounts map[string]*solana.TokenAccount
	Accounts      map[string]*solana.AccountInfo
	Statuses      map[string]*solana.SignatureStatus

	Blockhash            string
	LastValidBlockHeight uint64
	BlockHeight          uint64
	Slot                 int64

	// Injected failures. SendErrs is consumed one entry per submission.
	BalanceErr error
	TokenErr   error
	SlotErr    error
	SendErrs   []error

	// StatusOnSend is recorded for every accepted submission. Nil leaves
	// the signature unknown to the node.
	StatusOnSend *solana.SignatureStatus

	// BlockHeightStep advances the block height on every GetBlockHeight call.
	BlockHeightStep uint64

	Sent  [][]byte
	Calls map[string]int
}

// NewRPCClient creates a stub ledger that confirms every submission.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Balances:             make(map[string]uint64),
		TokenAccounts:        make(map[string]*solana.TokenAccount),
		Accounts:             make(map[string]*solana.AccountInfo),
		Statuses:             make(map[string]*solana.SignatureStatus),
		Blockhash:            "GHtXQBsoZHVnNFa9YevAzFr17DJjgHXk3ycTKD5xD3Zi",
		LastValidBlockHeight: 1_000,
		BlockHeight:          900,
		Slot:                 250_000_000,
		StatusOnSend:         &solana.SignatureStatus{Slot: 250_000_001, ConfirmationStatus: solana.CommitmentConfirmed},
		Calls:                make(map[string]int),
	}
}

func (c *RPCClient) track(method string) {
	c.Calls[method]++
}

// CallCount returns how many times method was invoked.
func (c *RPCClient) CallCount(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Calls[method]
}

// SetBalance sets the native balance of address.
func (c *RPCClient) SetBalance(address string, lamports uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Balances[address] = lamports
}

// SetTokenAccount registers a token account.
func (c *RPCClient) SetTokenAccount(acct *solana.TokenAccount) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.TokenAccounts[acct.Address] = acct
}

// GetBalance returns the stored balance, zero for unseen addresses.
func (c *RPCClient) GetBalance(_ context.Context, address string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.track("getBalance")
	if c.BalanceErr != nil {
		return 0, c.BalanceErr
	}
	return c.Balances[address], nil
}

// GetTokenAccount returns the stored token account or solana.ErrAccountNotFound.
func (c *RPCClient) GetTokenAccount(_ context.Context, address string) (*solana.TokenAccount, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.track("getTokenAccount")
	if c.TokenErr != nil {
		return nil, c.TokenErr
	}
	acct, ok := c.TokenAccounts[address]
	if !ok {
		return nil, solana.ErrAccountNotFound
	}
	cp := *acct
	return &cp, nil
}

// GetAccountInfo returns raw account info; token accounts count as existing.
func (c *RPCClient) GetAccountInfo(_ context.Context, pubkey string) (*solana.AccountInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.track("getAccountInfo")
	if info, ok := c.Accounts[pubkey]; ok {
		cp := *info
		return &cp, nil
	}
	if _, ok := c.TokenAccounts[pubkey]; ok {
		return &solana.AccountInfo{Lamports: 2_039_280, Owner: solana.TokenProgramID}, nil
	}
	return nil, nil
}

// GetLatestBlockhash returns the configured checkpoint.
func (c *RPCClient) GetLatestBlockhash(_ context.Context) (*solana.Checkpoint, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.track("getLatestBlockhash")
	return &solana.Checkpoint{Blockhash: c.Blockhash, LastValidBlockHeight: c.LastValidBlockHeight}, nil
}

// GetBlockHeight returns the current height and advances it by BlockHeightStep.
func (c *RPCClient) GetBlockHeight(_ context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.track("getBlockHeight")
	h := c.BlockHeight
	c.BlockHeight += c.BlockHeightStep
	return h, nil
}

// GetSlot returns the configured slot.
func (c *RPCClient) GetSlot(_ context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.track("getSlot")
	if c.SlotErr != nil {
		return 0, c.SlotErr
	}
	return c.Slot, nil
}

// SendTransaction records the raw transaction and returns its first signature.
func (c *RPCClient) SendTransaction(_ context.Context, raw []byte) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.track("sendTransaction")
	if len(c.SendErrs) > 0 {
		err := c.SendErrs[0]
		c.SendErrs = c.SendErrs[1:]
		if err != nil {
			return "", err
		}
	}

	c.Sent = append(c.Sent, raw)
	sig := fmt.Sprintf("stub-signature-%d", len(c.Sent))
	// Wire format: compact-u16 signature count followed by 64-byte signatures.
	if len(raw) >= 65 && raw[0] > 0 {
		sig = base58.Encode(raw[1:65])
	}
	if c.StatusOnSend != nil {
		st := *c.StatusOnSend
		c.Statuses[sig] = &st
	}
	return sig, nil
}

// GetSignatureStatuses returns stored statuses, nil for unknown signatures.
func (c *RPCClient) GetSignatureStatuses(_ context.Context, signatures []string) ([]*solana.SignatureStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.track("getSignatureStatuses")
	out := make([]*solana.SignatureStatus, len(signatures))
	for i, sig := range signatures {
		if st, ok := c.Statuses[sig]; ok {
			cp := *st
			out[i] = &cp
		}
	}
	return out, nil
}

// SentCount returns the number of accepted submissions.
func (c *RPCClient) SentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Sent)
}

var _ solana.RPCClient = (*RPCClient)(nil)
