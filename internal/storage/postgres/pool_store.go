package postgres

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"solana-fee-engine/internal/domain"
	"solana-fee-engine/internal/storage"
)

// PoolStore implements storage.PoolStore using PostgreSQL.
type PoolStore struct {
	pool *Pool
}

// NewPoolStore creates a new PoolStore.
func NewPoolStore(pool *Pool) *PoolStore {
	return &PoolStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PoolStore = (*PoolStore)(nil)

// Insert adds a new pool. Returns ErrDuplicateKey if pool_id exists.
func (s *PoolStore) Insert(ctx context.Context, p *domain.Pool) error {
	if p == nil || p.PoolID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO pools (
			pool_id, token_id, reserve_account,
			real_base, virtual_base, virtual_token,
			status, updated_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.pool.Exec(ctx, query,
		p.PoolID, p.TokenID, p.ReserveAccount,
		p.Reserves.RealBase.String(), p.Reserves.VirtualBase.String(), p.Reserves.VirtualToken.String(),
		string(p.Status), p.UpdatedAt, p.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert pool: %w", err)
	}

	return nil
}

// GetByID retrieves a pool by its ID. Returns ErrNotFound if not exists.
func (s *PoolStore) GetByID(ctx context.Context, poolID string) (*domain.Pool, error) {
	query := `
		SELECT pool_id, token_id, reserve_account,
		       real_base::text, virtual_base::text, virtual_token::text,
		       status, updated_at, created_at
		FROM pools
		WHERE pool_id = $1
	`

	p, err := scanPool(s.pool.QueryRow(ctx, query, poolID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get pool by id: %w", err)
	}

	return p, nil
}

// ListByStatus retrieves all pools with the given status, ordered by
// pool_id ASC.
func (s *PoolStore) ListByStatus(ctx context.Context, status domain.PoolStatus) ([]*domain.Pool, error) {
	query := `
		SELECT pool_id, token_id, reserve_account,
		       real_base::text, virtual_base::text, virtual_token::text,
		       status, updated_at, created_at
		FROM pools
		WHERE status = $1
		ORDER BY pool_id ASC
	`

	rows, err := s.pool.Query(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("list pools by status: %w", err)
	}
	defer rows.Close()

	var pools []*domain.Pool
	for rows.Next() {
		p, err := scanPool(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pool row: %w", err)
		}
		pools = append(pools, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pool rows: %w", err)
	}

	return pools, nil
}

// UpdateReserves replaces a pool's reserve snapshot.
func (s *PoolStore) UpdateReserves(ctx context.Context, poolID string, reserves domain.ReserveSnapshot, updatedAt int64) error {
	query := `
		UPDATE pools
		SET real_base = $2, virtual_base = $3, virtual_token = $4, updated_at = $5
		WHERE pool_id = $1
	`

	tag, err := s.pool.Exec(ctx, query, poolID,
		reserves.RealBase.String(), reserves.VirtualBase.String(), reserves.VirtualToken.String(),
		updatedAt,
	)
	if err != nil {
		return fmt.Errorf("update pool reserves: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}

	return nil
}

// UpdateStatus transitions a pool's lifecycle status.
func (s *PoolStore) UpdateStatus(ctx context.Context, poolID string, status domain.PoolStatus) error {
	tag, err := s.pool.Exec(ctx, `UPDATE pools SET status = $2 WHERE pool_id = $1`, poolID, string(status))
	if err != nil {
		return fmt.Errorf("update pool status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}

	return nil
}

// rowScanner is the subset of pgx row types scanPool needs.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanPool scans one pool row. NUMERIC columns arrive as text and are
// parsed into decimals to avoid float rounding.
func scanPool(row rowScanner) (*domain.Pool, error) {
	var (
		p                                   domain.Pool
		realBase, virtualBase, virtualToken string
		status                              string
	)

	err := row.Scan(
		&p.PoolID, &p.TokenID, &p.ReserveAccount,
		&realBase, &virtualBase, &virtualToken,
		&status, &p.UpdatedAt, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if p.Reserves.RealBase, err = decimal.NewFromString(realBase); err != nil {
		return nil, fmt.Errorf("parse real_base %q: %w", realBase, err)
	}
	if p.Reserves.VirtualBase, err = decimal.NewFromString(virtualBase); err != nil {
		return nil, fmt.Errorf("parse virtual_base %q: %w", virtualBase, err)
	}
	if p.Reserves.VirtualToken, err = decimal.NewFromString(virtualToken); err != nil {
		return nil, fmt.Errorf("parse virtual_token %q: %w", virtualToken, err)
	}
	p.Status = domain.PoolStatus(status)

	return &p, nil
}
