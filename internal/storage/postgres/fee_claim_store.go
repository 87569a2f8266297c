package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-fee-engine/internal/domain"
	"solana-fee-engine/internal/storage"
)

// FeeClaimStore implements storage.FeeClaimStore using PostgreSQL.
type FeeClaimStore struct {
	pool *Pool
}

// NewFeeClaimStore creates a new FeeClaimStore.
func NewFeeClaimStore(pool *Pool) *FeeClaimStore {
	return &FeeClaimStore{pool: pool}
}

// Compile-time interface check.
var _ storage.FeeClaimStore = (*FeeClaimStore)(nil)

// Insert adds a new claim record and returns its generated ID. Non-positive
// amounts are rejected with ErrInvalidInput before touching the database;
// the table carries a CHECK constraint as the last line of defense.
func (s *FeeClaimStore) Insert(ctx context.Context, c *domain.FeeClaim) (int64, error) {
	if c == nil || c.PoolID == "" || c.Amount <= 0 {
		return 0, storage.ErrInvalidInput
	}

	query := `
		INSERT INTO fee_claims (pool_id, amount, tx_ref, claimed_at, distributed, created_at)
		VALUES ($1, $2, $3, $4, FALSE, $5)
		RETURNING id
	`

	var id int64
	err := s.pool.QueryRow(ctx, query,
		c.PoolID, c.Amount, c.TxRef, c.ClaimedAt, c.CreatedAt,
	).Scan(&id)
	if err != nil {
		if isDuplicateKeyError(err) {
			return 0, storage.ErrDuplicateKey
		}
		return 0, fmt.Errorf("insert fee claim: %w", err)
	}

	c.ID = id
	return id, nil
}

// ListUndistributed retrieves all claims with distributed = false, ordered
// by id ASC.
func (s *FeeClaimStore) ListUndistributed(ctx context.Context) ([]*domain.FeeClaim, error) {
	query := `
		SELECT id, pool_id, amount, tx_ref, claimed_at, distributed, created_at
		FROM fee_claims
		WHERE distributed = FALSE
		ORDER BY id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list undistributed claims: %w", err)
	}
	defer rows.Close()

	return scanFeeClaims(rows)
}

// ListByPool retrieves all claims for a pool, ordered by id ASC.
func (s *FeeClaimStore) ListByPool(ctx context.Context, poolID string) ([]*domain.FeeClaim, error) {
	query := `
		SELECT id, pool_id, amount, tx_ref, claimed_at, distributed, created_at
		FROM fee_claims
		WHERE pool_id = $1
		ORDER BY id ASC
	`

	rows, err := s.pool.Query(ctx, query, poolID)
	if err != nil {
		return nil, fmt.Errorf("list claims by pool: %w", err)
	}
	defer rows.Close()

	return scanFeeClaims(rows)
}

// MarkDistributed flips distributed for every claim in claimIDs and, when
// dist is non-nil, inserts the distribution record in the same database
// transaction. The flip targets only rows still at distributed = FALSE; a
// short update count means some claim was already flipped and the whole
// transaction rolls back with ErrAlreadyDistributed.
func (s *FeeClaimStore) MarkDistributed(ctx context.Context, claimIDs []int64, dist *domain.Distribution) error {
	if len(claimIDs) == 0 {
		return storage.ErrInvalidInput
	}
	if dist != nil && dist.RecipientWallet == "" {
		return storage.ErrInvalidInput
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE fee_claims
		SET distributed = TRUE
		WHERE id = ANY($1) AND distributed = FALSE
	`, claimIDs)
	if err != nil {
		return fmt.Errorf("flip claims: %w", err)
	}
	if tag.RowsAffected() != int64(len(claimIDs)) {
		return storage.ErrAlreadyDistributed
	}

	if dist != nil {
		var id int64
		err = tx.QueryRow(ctx, `
			INSERT INTO distributions (recipient_wallet, amount, tx_ref, status, completed_at)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`, dist.RecipientWallet, dist.Amount, dist.TxRef, string(dist.Status), dist.CompletedAt).Scan(&id)
		if err != nil {
			return fmt.Errorf("insert distribution: %w", err)
		}
		dist.ID = id
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// scanFeeClaims scans multiple rows.
func scanFeeClaims(rows pgx.Rows) ([]*domain.FeeClaim, error) {
	var claims []*domain.FeeClaim

	for rows.Next() {
		var c domain.FeeClaim
		err := rows.Scan(&c.ID, &c.PoolID, &c.Amount, &c.TxRef, &c.ClaimedAt, &c.Distributed, &c.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan fee claim row: %w", err)
		}
		claims = append(claims, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fee claim rows: %w", err)
	}

	return claims, nil
}
