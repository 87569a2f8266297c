package solana

import "context"

// RPCClient defines the settlement-network RPC operations the fee engine
// needs: balance reads for the treasury guard, blockhash/submit/confirm for
// payouts, and account reads for reserve snapshots.
type RPCClient interface {
	// GetBalance retrieves the lamport balance of an account.
	GetBalance(ctx context.Context, pubkey string) (uint64, error)

	// GetLatestBlockhash retrieves a fresh blockhash for transaction signing.
	GetLatestBlockhash(ctx context.Context) (string, error)

	// SendTransaction submits a base64-encoded signed transaction and
	// returns its signature.
	SendTransaction(ctx context.Context, txBase64 string) (string, error)

	// ConfirmTransaction polls until the signature reaches confirmed
	// commitment or the retry budget is exhausted. A transaction that
	// never confirms is an error, not an unknown.
	ConfirmTransaction(ctx context.Context, signature string) error

	// GetAccountInfo retrieves account info by public key.
	// Returns nil if the account does not exist.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)
}

// AccountInfo represents Solana account information.
type AccountInfo struct {
	Lamports   uint64 `json:"lamports"`
	Owner      string `json:"owner"`
	Data       string `json:"data"` // base64 encoded
	Executable bool   `json:"executable"`
	RentEpoch  uint64 `json:"rentEpoch"`
}
