package memory

import (
	"context"
	"sort"
	"sync"

	"solana-fee-engine/internal/domain"
	"solana-fee-engine/internal/storage"
)

// ValuationPointStore is an in-memory implementation of
// storage.ValuationPointStore.
type ValuationPointStore struct {
	mu   sync.RWMutex
	data []*domain.ValuationPoint
}

// NewValuationPointStore creates a new in-memory valuation point store.
func NewValuationPointStore() *ValuationPointStore {
	return &ValuationPointStore{}
}

var _ storage.ValuationPointStore = (*ValuationPointStore)(nil)

// InsertBulk appends valuation points.
func (s *ValuationPointStore) InsertBulk(_ context.Context, points []*domain.ValuationPoint) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range points {
		if p == nil || p.TokenID == "" {
			return storage.ErrInvalidInput
		}
		copy := *p
		s.data = append(s.data, &copy)
	}

	return nil
}

// GetByTokenID retrieves all points for a token, ordered by timestamp ASC.
func (s *ValuationPointStore) GetByTokenID(_ context.Context, tokenID string) ([]*domain.ValuationPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ValuationPoint
	for _, p := range s.data {
		if p.TokenID == tokenID {
			copy := *p
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})

	return result, nil
}

// GetByTimeRange retrieves points for a token within [start, end] inclusive.
func (s *ValuationPointStore) GetByTimeRange(_ context.Context, tokenID string, start, end int64) ([]*domain.ValuationPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ValuationPoint
	for _, p := range s.data {
		if p.TokenID == tokenID && p.TimestampMs >= start && p.TimestampMs <= end {
			copy := *p
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})

	return result, nil
}
