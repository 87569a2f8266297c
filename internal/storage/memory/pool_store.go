// Package memory provides in-memory store implementations for tests and
// the --use-memory server mode.
package memory

import (
	"context"
	"sort"
	"sync"

	"solana-fee-engine/internal/domain"
	"solana-fee-engine/internal/storage"
)

// PoolStore is an in-memory implementation of storage.PoolStore.
type PoolStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Pool // keyed by pool_id
}

// NewPoolStore creates a new in-memory pool store.
func NewPoolStore() *PoolStore {
	return &PoolStore{
		data: make(map[string]*domain.Pool),
	}
}

var _ storage.PoolStore = (*PoolStore)(nil)

// Insert adds a new pool. Returns ErrDuplicateKey if exists.
func (s *PoolStore) Insert(_ context.Context, p *domain.Pool) error {
	if p == nil || p.PoolID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[p.PoolID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *p
	s.data[p.PoolID] = &copy
	return nil
}

// GetByID retrieves a pool by its ID.
func (s *PoolStore) GetByID(_ context.Context, poolID string) (*domain.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.data[poolID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *p
	return &copy, nil
}

// ListByStatus retrieves all pools with the given status, ordered by pool_id ASC.
func (s *PoolStore) ListByStatus(_ context.Context, status domain.PoolStatus) ([]*domain.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Pool
	for _, p := range s.data {
		if p.Status == status {
			copy := *p
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].PoolID < result[j].PoolID
	})

	return result, nil
}

// UpdateReserves replaces a pool's reserve snapshot.
func (s *PoolStore) UpdateReserves(_ context.Context, poolID string, reserves domain.ReserveSnapshot, updatedAt int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.data[poolID]
	if !exists {
		return storage.ErrNotFound
	}

	p.Reserves = reserves
	p.UpdatedAt = updatedAt
	return nil
}

// UpdateStatus transitions a pool's lifecycle status.
func (s *PoolStore) UpdateStatus(_ context.Context, poolID string, status domain.PoolStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.data[poolID]
	if !exists {
		return storage.ErrNotFound
	}

	p.Status = status
	return nil
}
