package memory

import (
	"context"
	"sort"
	"sync"

	"solana-fee-engine/internal/domain"
	"solana-fee-engine/internal/storage"
)

// DistributionStore is an in-memory implementation of storage.DistributionStore.
type DistributionStore struct {
	mu     sync.RWMutex
	data   []*domain.Distribution
	nextID int64
}

// NewDistributionStore creates a new in-memory distribution store.
func NewDistributionStore() *DistributionStore {
	return &DistributionStore{nextID: 1}
}

var _ storage.DistributionStore = (*DistributionStore)(nil)

// Insert adds a payout record and returns its generated ID.
func (s *DistributionStore) Insert(_ context.Context, d *domain.Distribution) (int64, error) {
	if d == nil || d.RecipientWallet == "" {
		return 0, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insertLocked(d), nil
}

// insertLocked appends a copy of d and returns the new ID. Caller holds mu.
func (s *DistributionStore) insertLocked(d *domain.Distribution) int64 {
	id := s.nextID
	s.nextID++

	copy := *d
	copy.ID = id
	s.data = append(s.data, &copy)

	d.ID = id
	return id
}

// ListByWallet retrieves all payouts for a recipient wallet, ordered by
// completed_at ASC.
func (s *DistributionStore) ListByWallet(_ context.Context, wallet string) ([]*domain.Distribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Distribution
	for _, d := range s.data {
		if d.RecipientWallet == wallet {
			copy := *d
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CompletedAt < result[j].CompletedAt
	})

	return result, nil
}
