package domain

// FeeClaim is an immutable record of one successful fee claim from the
// market-making service. Corresponds to the fee_claims table in PostgreSQL.
// The only permitted mutation is the one-way distributed flip performed by
// the payout executor.
type FeeClaim struct {
	ID          int64  // PRIMARY KEY (bigserial)
	PoolID      string // claimed pool
	Amount      int64  // claimed lamports, always > 0
	TxRef       string // settlement-network transaction signature
	ClaimedAt   int64  // Unix timestamp in milliseconds
	Distributed bool
	CreatedAt   int64 // record creation timestamp (ms)
}
