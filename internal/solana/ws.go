package solana

import "context"

// WSClient provides account-change subscriptions over WebSocket.
type WSClient interface {
	// SubscribeAccount subscribes to changes of a single account. The
	// returned channel delivers every observed update; it is closed when
	// the client shuts down.
	SubscribeAccount(ctx context.Context, pubkey string) (<-chan AccountNotification, error)

	// Close shuts down the connection and all subscriptions.
	Close() error
}

// AccountNotification is one observed account update.
type AccountNotification struct {
	// Pubkey is the subscribed account's public key.
	Pubkey string
	// Slot at which the update was observed.
	Slot int64
	// Lamports is the account's balance after the update.
	Lamports uint64
	// Data is the account data, base64 encoded.
	Data string
	// Owner is the owning program's public key.
	Owner string
}
