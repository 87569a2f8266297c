package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-fee-engine/internal/domain"
	"solana-fee-engine/internal/storage"
)

func TestDistributionStore_InsertAndListByWallet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewDistributionStore(pool)
	ctx := context.Background()

	dists := []*domain.Distribution{
		{RecipientWallet: "Wallet1", Amount: 200, TxRef: "Sig2", Status: domain.DistributionStatusCompleted, CompletedAt: 2000},
		{RecipientWallet: "Wallet1", Amount: 100, TxRef: "Sig1", Status: domain.DistributionStatusCompleted, CompletedAt: 1000},
		{RecipientWallet: "Wallet2", Amount: 300, TxRef: "Sig3", Status: domain.DistributionStatusFailed, CompletedAt: 3000},
	}
	for _, d := range dists {
		id, err := store.Insert(ctx, d)
		require.NoError(t, err)
		assert.Positive(t, id)
	}

	// Ordered by completed_at ASC.
	result, err := store.ListByWallet(ctx, "Wallet1")
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, int64(100), result[0].Amount)
	assert.Equal(t, int64(200), result[1].Amount)

	failed, err := store.ListByWallet(ctx, "Wallet2")
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, domain.DistributionStatusFailed, failed[0].Status)
}

func TestDistributionStore_InsertInvalid(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewDistributionStore(pool)
	ctx := context.Background()

	_, err := store.Insert(ctx, &domain.Distribution{Amount: 100})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	_, err = store.Insert(ctx, nil)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestDistributionStore_EmptyResult(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewDistributionStore(pool)
	ctx := context.Background()

	result, err := store.ListByWallet(ctx, "NobodyWallet")
	require.NoError(t, err)
	assert.Empty(t, result)
}
