package memory

import (
	"context"
	"sync"

	"solana-fee-engine/internal/domain"
	"solana-fee-engine/internal/storage"
)

// TokenStore is an in-memory implementation of storage.TokenStore.
type TokenStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Token // keyed by token_id
}

// NewTokenStore creates a new in-memory token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{
		data: make(map[string]*domain.Token),
	}
}

var _ storage.TokenStore = (*TokenStore)(nil)

// Insert adds a new token. Returns ErrDuplicateKey if exists.
func (s *TokenStore) Insert(_ context.Context, t *domain.Token) error {
	if t == nil || t.TokenID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[t.TokenID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *t
	s.data[t.TokenID] = &copy
	return nil
}

// GetByID retrieves a token by its ID.
func (s *TokenStore) GetByID(_ context.Context, tokenID string) (*domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.data[tokenID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *t
	return &copy, nil
}

// GetByIDs retrieves the tokens for a set of IDs. Missing IDs are absent
// from the result map.
func (s *TokenStore) GetByIDs(_ context.Context, tokenIDs []string) (map[string]*domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]*domain.Token, len(tokenIDs))
	for _, id := range tokenIDs {
		if t, exists := s.data[id]; exists {
			copy := *t
			result[id] = &copy
		}
	}

	return result, nil
}

// AddFeeTotals increments a token's lifetime earned/claimed totals.
func (s *TokenStore) AddFeeTotals(_ context.Context, tokenID string, earned, claimed int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.data[tokenID]
	if !exists {
		return storage.ErrNotFound
	}

	t.TotalFeesEarned += earned
	t.TotalFeesClaimed += claimed
	return nil
}
