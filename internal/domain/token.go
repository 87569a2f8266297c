package domain

// TokenStatus describes whether a launched token still participates in
// fee distribution.
type TokenStatus string

const (
	TokenStatusActive   TokenStatus = "active"
	TokenStatusInactive TokenStatus = "inactive"
)

// ShareTable holds the fee split per recipient class, in basis points.
// The unassigned remainder accrues to the treasury implicitly.
type ShareTable struct {
	CreatorBps      int
	AgentBps        int
	TradingAgentBps int
}

// Token is a launched bonding-curve asset with its fee-share configuration
// and recipient references. Corresponds to the tokens table in PostgreSQL.
// The engine mutates only the lifetime fee totals.
type Token struct {
	TokenID string // PRIMARY KEY
	Mint    string // token mint address (base58)
	Variant ProductVariant
	Status  TokenStatus

	CreatorWallet string
	Shares        ShareTable

	// Recipient references. All nullable: a token may have no agent at all.
	AgentID                 *string
	AgentWallet             *string
	TradingAgentID          *string
	TradingAgentWallet      *string
	TradingAgentOwnerWallet *string
	TradingAgentOwned       bool // trading agent is independently owned

	// Lifetime totals in lamports, incremented by the claim fetcher.
	TotalFeesEarned  int64
	TotalFeesClaimed int64

	CreatedAt int64 // record creation timestamp (ms)
}
