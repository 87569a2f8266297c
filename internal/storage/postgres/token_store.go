package postgres

import (
	"context"
	"fmt"

	"solana-fee-engine/internal/domain"
	"solana-fee-engine/internal/storage"
)

// TokenStore implements storage.TokenStore using PostgreSQL.
type TokenStore struct {
	pool *Pool
}

// NewTokenStore creates a new TokenStore.
func NewTokenStore(pool *Pool) *TokenStore {
	return &TokenStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TokenStore = (*TokenStore)(nil)

const tokenColumns = `
	token_id, mint, variant, status, creator_wallet,
	creator_share_bps, agent_share_bps, trading_agent_share_bps,
	agent_id, agent_wallet,
	trading_agent_id, trading_agent_wallet, trading_agent_owner_wallet,
	trading_agent_owned,
	total_fees_earned, total_fees_claimed, created_at
`

// Insert adds a new token. Returns ErrDuplicateKey if token_id exists.
func (s *TokenStore) Insert(ctx context.Context, t *domain.Token) error {
	if t == nil || t.TokenID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO tokens (` + tokenColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err := s.pool.Exec(ctx, query,
		t.TokenID, t.Mint, string(t.Variant), string(t.Status), t.CreatorWallet,
		t.Shares.CreatorBps, t.Shares.AgentBps, t.Shares.TradingAgentBps,
		t.AgentID, t.AgentWallet,
		t.TradingAgentID, t.TradingAgentWallet, t.TradingAgentOwnerWallet,
		t.TradingAgentOwned,
		t.TotalFeesEarned, t.TotalFeesClaimed, t.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert token: %w", err)
	}

	return nil
}

// GetByID retrieves a token by its ID. Returns ErrNotFound if not exists.
func (s *TokenStore) GetByID(ctx context.Context, tokenID string) (*domain.Token, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE token_id = $1`

	t, err := scanToken(s.pool.QueryRow(ctx, query, tokenID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token by id: %w", err)
	}

	return t, nil
}

// GetByIDs retrieves the tokens for a set of IDs. Missing IDs are simply
// absent from the result map.
func (s *TokenStore) GetByIDs(ctx context.Context, tokenIDs []string) (map[string]*domain.Token, error) {
	result := make(map[string]*domain.Token, len(tokenIDs))
	if len(tokenIDs) == 0 {
		return result, nil
	}

	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE token_id = ANY($1)`

	rows, err := s.pool.Query(ctx, query, tokenIDs)
	if err != nil {
		return nil, fmt.Errorf("get tokens by ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("scan token row: %w", err)
		}
		result[t.TokenID] = t
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate token rows: %w", err)
	}

	return result, nil
}

// AddFeeTotals increments a token's lifetime earned/claimed totals.
func (s *TokenStore) AddFeeTotals(ctx context.Context, tokenID string, earned, claimed int64) error {
	query := `
		UPDATE tokens
		SET total_fees_earned = total_fees_earned + $2,
		    total_fees_claimed = total_fees_claimed + $3
		WHERE token_id = $1
	`

	tag, err := s.pool.Exec(ctx, query, tokenID, earned, claimed)
	if err != nil {
		return fmt.Errorf("add token fee totals: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}

	return nil
}

// scanToken scans one token row.
func scanToken(row rowScanner) (*domain.Token, error) {
	var (
		t               domain.Token
		variant, status string
	)

	err := row.Scan(
		&t.TokenID, &t.Mint, &variant, &status, &t.CreatorWallet,
		&t.Shares.CreatorBps, &t.Shares.AgentBps, &t.Shares.TradingAgentBps,
		&t.AgentID, &t.AgentWallet,
		&t.TradingAgentID, &t.TradingAgentWallet, &t.TradingAgentOwnerWallet,
		&t.TradingAgentOwned,
		&t.TotalFeesEarned, &t.TotalFeesClaimed, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Variant = domain.ProductVariant(variant)
	t.Status = domain.TokenStatus(status)

	return &t, nil
}
