package solana

import "context"

// RPCClient defines the Solana RPC methods the agent relies on.
type RPCClient interface {
	// GetBalance returns the native balance of an address in lamports.
	GetBalance(ctx context.Context, address string) (uint64, error)

	// GetTokenAccount reads an SPL token account. Returns ErrAccountNotFound if it does not exist.
	GetTokenAccount(ctx context.Context, address string) (*TokenAccount, error)

	// GetAccountInfo retrieves raw account info. Returns nil if the account does not exist.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)

	// GetLatestBlockhash returns the current finality checkpoint.
	GetLatestBlockhash(ctx context.Context) (*Checkpoint, error)

	// GetBlockHeight returns the current block height.
	GetBlockHeight(ctx context.Context) (uint64, error)

	// GetSlot returns the current slot.
	GetSlot(ctx context.Context) (int64, error)

	// SendTransaction submits a signed wire transaction and returns its signature.
	SendTransaction(ctx context.Context, raw []byte) (string, error)

	// GetSignatureStatuses returns one status per signature, nil when unknown to the node.
	GetSignatureStatuses(ctx context.Context, signatures []string) ([]*SignatureStatus, error)
}
