package domain

// DistributionStatus is the terminal status of a payout event.
type DistributionStatus string

const (
	DistributionStatusCompleted DistributionStatus = "completed"
	DistributionStatusFailed    DistributionStatus = "failed"
)

// Distribution records one payout of claimed fees to a recipient wallet.
// Corresponds to the distributions table in PostgreSQL. Never mutated after
// insert.
type Distribution struct {
	ID              int64 // PRIMARY KEY (bigserial)
	RecipientWallet string
	Amount          int64 // paid lamports
	TxRef           string
	Status          DistributionStatus
	CompletedAt     int64 // Unix timestamp in milliseconds
}
