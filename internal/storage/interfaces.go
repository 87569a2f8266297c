package storage

import (
	"context"

	"solana-fee-engine/internal/domain"
)

// PoolStore provides access to pools storage.
type PoolStore interface {
	// Insert adds a new pool. Returns ErrDuplicateKey if pool_id exists.
	Insert(ctx context.Context, p *domain.Pool) error

	// GetByID retrieves a pool by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, poolID string) (*domain.Pool, error)

	// ListByStatus retrieves all pools with the given status, ordered by
	// pool_id ASC for deterministic iteration.
	ListByStatus(ctx context.Context, status domain.PoolStatus) ([]*domain.Pool, error)

	// UpdateReserves replaces a pool's reserve snapshot. Reserve updates
	// come only from settlement-network observations.
	UpdateReserves(ctx context.Context, poolID string, reserves domain.ReserveSnapshot, updatedAt int64) error

	// UpdateStatus transitions a pool's lifecycle status.
	UpdateStatus(ctx context.Context, poolID string, status domain.PoolStatus) error
}

// TokenStore provides access to tokens storage.
type TokenStore interface {
	// Insert adds a new token. Returns ErrDuplicateKey if token_id exists.
	Insert(ctx context.Context, t *domain.Token) error

	// GetByID retrieves a token by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, tokenID string) (*domain.Token, error)

	// GetByIDs retrieves the tokens for a set of IDs. Missing IDs are
	// simply absent from the result map.
	GetByIDs(ctx context.Context, tokenIDs []string) (map[string]*domain.Token, error)

	// AddFeeTotals increments a token's lifetime earned/claimed totals.
	AddFeeTotals(ctx context.Context, tokenID string, earned, claimed int64) error
}

// FeeClaimStore provides access to fee_claims storage.
type FeeClaimStore interface {
	// Insert adds a new claim record and returns its generated ID.
	// Returns ErrInvalidInput for non-positive amounts: a claim with
	// zero or negative amount is never created.
	Insert(ctx context.Context, c *domain.FeeClaim) (int64, error)

	// ListUndistributed retrieves all claims with distributed = false,
	// ordered by id ASC.
	ListUndistributed(ctx context.Context) ([]*domain.FeeClaim, error)

	// ListByPool retrieves all claims for a pool, ordered by id ASC.
	ListByPool(ctx context.Context, poolID string) ([]*domain.FeeClaim, error)

	// MarkDistributed flips distributed = false -> true for every claim in
	// claimIDs and, when dist is non-nil, inserts the distribution record
	// in the same atomic unit. A nil dist records a dust sweep: the claims
	// are terminal with no payout. Returns ErrAlreadyDistributed if any
	// claim was already flipped; in that case nothing is written.
	MarkDistributed(ctx context.Context, claimIDs []int64, dist *domain.Distribution) error
}

// DistributionStore provides access to distributions storage.
type DistributionStore interface {
	// Insert adds a payout record and returns its generated ID.
	Insert(ctx context.Context, d *domain.Distribution) (int64, error)

	// ListByWallet retrieves all payouts for a recipient wallet, ordered
	// by completed_at ASC.
	ListByWallet(ctx context.Context, wallet string) ([]*domain.Distribution, error)
}

// ValuationPointStore provides access to the valuation_timeseries analytics
// sink (ClickHouse).
type ValuationPointStore interface {
	// InsertBulk appends valuation points.
	InsertBulk(ctx context.Context, points []*domain.ValuationPoint) error

	// GetByTokenID retrieves all points for a token, ordered by timestamp ASC.
	GetByTokenID(ctx context.Context, tokenID string) ([]*domain.ValuationPoint, error)

	// GetByTimeRange retrieves points for a token within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, tokenID string, start, end int64) ([]*domain.ValuationPoint, error)
}
