package memory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-fee-engine/internal/domain"
	"solana-fee-engine/internal/storage"
)

func testPool(id string, status domain.PoolStatus) *domain.Pool {
	return &domain.Pool{
		PoolID:         id,
		TokenID:        "tok-" + id,
		ReserveAccount: "res-" + id,
		Reserves: domain.ReserveSnapshot{
			RealBase:     decimal.NewFromFloat(10),
			VirtualBase:  decimal.NewFromFloat(30),
			VirtualToken: decimal.NewFromInt(1_000_000_000),
		},
		Status: status,
	}
}

func TestPoolStore_InsertAndGet(t *testing.T) {
	s := NewPoolStore()
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, testPool("p1", domain.PoolStatusActive)))

	got, err := s.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "tok-p1", got.TokenID)

	assert.ErrorIs(t, s.Insert(ctx, testPool("p1", domain.PoolStatusActive)), storage.ErrDuplicateKey)

	_, err = s.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPoolStore_ListByStatus_Ordered(t *testing.T) {
	s := NewPoolStore()
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, testPool("p3", domain.PoolStatusActive)))
	require.NoError(t, s.Insert(ctx, testPool("p1", domain.PoolStatusActive)))
	require.NoError(t, s.Insert(ctx, testPool("p2", domain.PoolStatusGraduated)))

	active, err := s.ListByStatus(ctx, domain.PoolStatusActive)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "p1", active[0].PoolID)
	assert.Equal(t, "p3", active[1].PoolID)
}

func TestPoolStore_UpdateReservesAndStatus(t *testing.T) {
	s := NewPoolStore()
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, testPool("p1", domain.PoolStatusActive)))

	fresh := domain.ReserveSnapshot{
		RealBase:     decimal.NewFromFloat(90),
		VirtualBase:  decimal.NewFromFloat(120),
		VirtualToken: decimal.NewFromInt(500_000_000),
	}
	require.NoError(t, s.UpdateReserves(ctx, "p1", fresh, 1700000002000))
	require.NoError(t, s.UpdateStatus(ctx, "p1", domain.PoolStatusGraduated))

	got, err := s.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, got.Reserves.RealBase.Equal(decimal.NewFromFloat(90)))
	assert.Equal(t, int64(1700000002000), got.UpdatedAt)
	assert.Equal(t, domain.PoolStatusGraduated, got.Status)

	assert.ErrorIs(t, s.UpdateReserves(ctx, "missing", fresh, 0), storage.ErrNotFound)
	assert.ErrorIs(t, s.UpdateStatus(ctx, "missing", domain.PoolStatusActive), storage.ErrNotFound)
}

func TestTokenStore_AddFeeTotals(t *testing.T) {
	s := NewTokenStore()
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, &domain.Token{
		TokenID:       "tok1",
		CreatorWallet: "creator1",
		Variant:       "agent",
	}))

	require.NoError(t, s.AddFeeTotals(ctx, "tok1", 500, 500))
	require.NoError(t, s.AddFeeTotals(ctx, "tok1", 250, 250))

	got, err := s.GetByID(ctx, "tok1")
	require.NoError(t, err)
	assert.Equal(t, int64(750), got.TotalFeesEarned)
	assert.Equal(t, int64(750), got.TotalFeesClaimed)

	assert.ErrorIs(t, s.AddFeeTotals(ctx, "missing", 1, 1), storage.ErrNotFound)
}

func TestTokenStore_GetByIDs_MissingAbsent(t *testing.T) {
	s := NewTokenStore()
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, &domain.Token{TokenID: "tok1"}))
	require.NoError(t, s.Insert(ctx, &domain.Token{TokenID: "tok2"}))

	got, err := s.GetByIDs(ctx, []string{"tok1", "missing", "tok2"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Contains(t, got, "tok1")
	assert.NotContains(t, got, "missing")
}
