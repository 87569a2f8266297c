package memory

import (
	"context"
	"sort"
	"sync"

	"solana-fee-engine/internal/domain"
	"solana-fee-engine/internal/storage"
)

// FeeClaimStore is an in-memory implementation of storage.FeeClaimStore.
// It holds a reference to the distribution store so MarkDistributed can
// mirror the postgres transaction: claim flips and the distribution row
// land together or not at all.
type FeeClaimStore struct {
	mu     sync.RWMutex
	data   map[int64]*domain.FeeClaim
	nextID int64

	dists *DistributionStore
}

// NewFeeClaimStore creates a new in-memory fee claim store. dists may be
// nil when MarkDistributed will only ever record sweeps.
func NewFeeClaimStore(dists *DistributionStore) *FeeClaimStore {
	return &FeeClaimStore{
		data:   make(map[int64]*domain.FeeClaim),
		nextID: 1,
		dists:  dists,
	}
}

var _ storage.FeeClaimStore = (*FeeClaimStore)(nil)

// Insert adds a new claim record and returns its generated ID. Non-positive
// amounts are rejected with ErrInvalidInput.
func (s *FeeClaimStore) Insert(_ context.Context, c *domain.FeeClaim) (int64, error) {
	if c == nil || c.PoolID == "" || c.Amount <= 0 {
		return 0, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++

	copy := *c
	copy.ID = id
	s.data[id] = &copy

	c.ID = id
	return id, nil
}

// ListUndistributed retrieves all claims with distributed = false, ordered
// by id ASC.
func (s *FeeClaimStore) ListUndistributed(_ context.Context) ([]*domain.FeeClaim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.FeeClaim
	for _, c := range s.data {
		if !c.Distributed {
			copy := *c
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})

	return result, nil
}

// ListByPool retrieves all claims for a pool, ordered by id ASC.
func (s *FeeClaimStore) ListByPool(_ context.Context, poolID string) ([]*domain.FeeClaim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.FeeClaim
	for _, c := range s.data {
		if c.PoolID == poolID {
			copy := *c
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})

	return result, nil
}

// MarkDistributed flips distributed for every claim in claimIDs and, when
// dist is non-nil, records the distribution in the same atomic unit. All
// claims are validated before anything is written.
func (s *FeeClaimStore) MarkDistributed(_ context.Context, claimIDs []int64, dist *domain.Distribution) error {
	if len(claimIDs) == 0 {
		return storage.ErrInvalidInput
	}
	if dist != nil && dist.RecipientWallet == "" {
		return storage.ErrInvalidInput
	}
	if dist != nil && s.dists == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate first: any missing or already-flipped claim fails the whole
	// batch before a single write.
	for _, id := range claimIDs {
		c, exists := s.data[id]
		if !exists {
			return storage.ErrNotFound
		}
		if c.Distributed {
			return storage.ErrAlreadyDistributed
		}
	}

	for _, id := range claimIDs {
		s.data[id].Distributed = true
	}

	if dist != nil {
		s.dists.mu.Lock()
		s.dists.insertLocked(dist)
		s.dists.mu.Unlock()
	}

	return nil
}
