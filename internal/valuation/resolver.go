// Package valuation computes bonding-curve spot price, market capitalization
// and graduation state from a reserve snapshot. Pure functions of their
// inputs: no I/O, no caching, defined for all non-negative reserves.
package valuation

import (
	"github.com/shopspring/decimal"

	"solana-fee-engine/internal/domain"
)

// Config carries the curve constants a valuation needs beyond the snapshot.
type Config struct {
	// TotalSupply is the configured token supply used for market cap.
	TotalSupply decimal.Decimal
	// GraduationThreshold is the real base-asset amount that completes
	// the curve.
	GraduationThreshold decimal.Decimal
}

// Valuation is the computed view of one reserve snapshot.
type Valuation struct {
	Price              decimal.Decimal
	MarketCap          decimal.Decimal
	BondingProgressPct decimal.Decimal // 0..100
	IsGraduated        bool
	// Fallback is set when the snapshot had no usable reserves and a
	// caller-supplied fallback was returned instead of dividing by zero.
	Fallback bool
}

var hundred = decimal.NewFromInt(100)

// Resolve computes the valuation for a snapshot with usable reserves.
// Callers must check ReserveSnapshot.IsZero first or use ResolveOrFallback.
func Resolve(s domain.ReserveSnapshot, cfg Config) Valuation {
	price := s.VirtualBase.Div(s.VirtualToken)

	progress := hundred
	if cfg.GraduationThreshold.IsPositive() {
		progress = s.RealBase.Div(cfg.GraduationThreshold).Mul(hundred)
		if progress.GreaterThan(hundred) {
			progress = hundred
		}
	}

	return Valuation{
		Price:              price,
		MarketCap:          price.Mul(cfg.TotalSupply),
		BondingProgressPct: progress,
		IsGraduated:        progress.GreaterThanOrEqual(hundred),
	}
}

// ResolveOrFallback computes the valuation, or returns the caller-supplied
// fallback flagged as such when the snapshot has no usable reserves (the
// pool record may not exist on the settlement network yet).
func ResolveOrFallback(s domain.ReserveSnapshot, cfg Config, fallback Valuation) Valuation {
	if s.IsZero() {
		fallback.Fallback = true
		return fallback
	}
	return Resolve(s, cfg)
}
