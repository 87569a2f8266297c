package domain

import "github.com/shopspring/decimal"

// PoolStatus describes the lifecycle state of a bonding-curve pool.
type PoolStatus string

const (
	PoolStatusPending   PoolStatus = "pending"
	PoolStatusActive    PoolStatus = "active"
	PoolStatusGraduated PoolStatus = "graduated"
)

// ReserveSnapshot is the curve accounting state observed on the settlement
// network. Real reserves are actually deposited base asset; virtual reserves
// include the initial curve offset used to shape the price.
type ReserveSnapshot struct {
	RealBase     decimal.Decimal // deposited base asset
	VirtualBase  decimal.Decimal // base reserves including curve offset
	VirtualToken decimal.Decimal // token reserves including curve offset
}

// IsZero reports whether the snapshot carries no usable reserves, e.g. when
// the pool account does not exist on the settlement network yet.
func (s ReserveSnapshot) IsZero() bool {
	return s.VirtualBase.IsZero() || s.VirtualToken.IsZero()
}

// Pool represents a bonding-curve liquidity pool.
// Corresponds to the pools table in PostgreSQL. Reserves are written only
// from settlement-network observations; the fee engine reads them.
type Pool struct {
	PoolID         string // PRIMARY KEY, pool address (base58)
	TokenID        string // owning token
	ReserveAccount string // on-chain account holding the curve state (base58)
	Reserves       ReserveSnapshot
	Status         PoolStatus
	UpdatedAt      int64 // Unix timestamp in milliseconds
	CreatedAt      int64 // record creation timestamp (ms)
}
