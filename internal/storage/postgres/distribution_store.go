package postgres

import (
	"context"
	"fmt"

	"solana-fee-engine/internal/domain"
	"solana-fee-engine/internal/storage"
)

// DistributionStore implements storage.DistributionStore using PostgreSQL.
type DistributionStore struct {
	pool *Pool
}

// NewDistributionStore creates a new DistributionStore.
func NewDistributionStore(pool *Pool) *DistributionStore {
	return &DistributionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DistributionStore = (*DistributionStore)(nil)

// Insert adds a payout record and returns its generated ID.
func (s *DistributionStore) Insert(ctx context.Context, d *domain.Distribution) (int64, error) {
	if d == nil || d.RecipientWallet == "" {
		return 0, storage.ErrInvalidInput
	}

	query := `
		INSERT INTO distributions (recipient_wallet, amount, tx_ref, status, completed_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	var id int64
	err := s.pool.QueryRow(ctx, query,
		d.RecipientWallet, d.Amount, d.TxRef, string(d.Status), d.CompletedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert distribution: %w", err)
	}

	d.ID = id
	return id, nil
}

// ListByWallet retrieves all payouts for a recipient wallet, ordered by
// completed_at ASC.
func (s *DistributionStore) ListByWallet(ctx context.Context, wallet string) ([]*domain.Distribution, error) {
	query := `
		SELECT id, recipient_wallet, amount, tx_ref, status, completed_at
		FROM distributions
		WHERE recipient_wallet = $1
		ORDER BY completed_at ASC
	`

	rows, err := s.pool.Query(ctx, query, wallet)
	if err != nil {
		return nil, fmt.Errorf("list distributions by wallet: %w", err)
	}
	defer rows.Close()

	var dists []*domain.Distribution
	for rows.Next() {
		var (
			d      domain.Distribution
			status string
		)
		err := rows.Scan(&d.ID, &d.RecipientWallet, &d.Amount, &d.TxRef, &status, &d.CompletedAt)
		if err != nil {
			return nil, fmt.Errorf("scan distribution row: %w", err)
		}
		d.Status = domain.DistributionStatus(status)
		dists = append(dists, &d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate distribution rows: %w", err)
	}

	return dists, nil
}
