package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-fee-engine/internal/domain"
	"solana-fee-engine/internal/storage"
)

func TestFeeClaimStore_InsertAndList(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewFeeClaimStore(pool)
	ctx := context.Background()

	claim := &domain.FeeClaim{
		PoolID:    "pool-claim-1",
		Amount:    50_000,
		TxRef:     "ClaimSig1",
		ClaimedAt: 1700000000000,
		CreatedAt: 1700000000000,
	}

	id, err := store.Insert(ctx, claim)
	require.NoError(t, err)
	assert.Positive(t, id)
	assert.Equal(t, id, claim.ID)

	claims, err := store.ListByPool(ctx, "pool-claim-1")
	require.NoError(t, err)
	require.Len(t, claims, 1)
	assert.Equal(t, int64(50_000), claims[0].Amount)
	assert.Equal(t, "ClaimSig1", claims[0].TxRef)
	assert.False(t, claims[0].Distributed)
}

func TestFeeClaimStore_RejectsNonPositiveAmount(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewFeeClaimStore(pool)
	ctx := context.Background()

	_, err := store.Insert(ctx, &domain.FeeClaim{PoolID: "pool-1", Amount: 0})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	_, err = store.Insert(ctx, &domain.FeeClaim{PoolID: "pool-1", Amount: -100})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	claims, err := store.ListByPool(ctx, "pool-1")
	require.NoError(t, err)
	assert.Empty(t, claims)
}

func TestFeeClaimStore_CheckConstraintRejectsZero(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	// Bypass the store validation to confirm the table enforces it too.
	_, err := pool.Exec(ctx, `
		INSERT INTO fee_claims (pool_id, amount, tx_ref, claimed_at, created_at)
		VALUES ('pool-1', 0, 'sig', 0, 0)
	`)
	assert.Error(t, err)
}

func TestFeeClaimStore_ListUndistributedOrdering(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewFeeClaimStore(pool)
	ctx := context.Background()

	var ids []int64
	for _, amount := range []int64{100, 200, 300} {
		id, err := store.Insert(ctx, &domain.FeeClaim{
			PoolID: "pool-order", Amount: amount, ClaimedAt: 1000, CreatedAt: 1000,
		})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	claims, err := store.ListUndistributed(ctx)
	require.NoError(t, err)
	require.Len(t, claims, 3)
	for i, c := range claims {
		assert.Equal(t, ids[i], c.ID)
	}
}

func TestFeeClaimStore_MarkDistributedWithDistribution(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewFeeClaimStore(pool)
	dists := NewDistributionStore(pool)
	ctx := context.Background()

	id1, err := store.Insert(ctx, &domain.FeeClaim{PoolID: "pool-1", Amount: 400})
	require.NoError(t, err)
	id2, err := store.Insert(ctx, &domain.FeeClaim{PoolID: "pool-1", Amount: 600})
	require.NoError(t, err)

	dist := &domain.Distribution{
		RecipientWallet: "RecipientWallet1",
		Amount:          300,
		TxRef:           "PayoutSig1",
		Status:          domain.DistributionStatusCompleted,
		CompletedAt:     1700000001000,
	}

	err = store.MarkDistributed(ctx, []int64{id1, id2}, dist)
	require.NoError(t, err)
	assert.Positive(t, dist.ID)

	claims, err := store.ListByPool(ctx, "pool-1")
	require.NoError(t, err)
	require.Len(t, claims, 2)
	assert.True(t, claims[0].Distributed)
	assert.True(t, claims[1].Distributed)

	recorded, err := dists.ListByWallet(ctx, "RecipientWallet1")
	require.NoError(t, err)
	require.Len(t, recorded, 1)
	assert.Equal(t, int64(300), recorded[0].Amount)
	assert.Equal(t, domain.DistributionStatusCompleted, recorded[0].Status)
}

func TestFeeClaimStore_MarkDistributedWithoutDistribution(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewFeeClaimStore(pool)
	ctx := context.Background()

	id, err := store.Insert(ctx, &domain.FeeClaim{PoolID: "pool-sweep", Amount: 50})
	require.NoError(t, err)

	// Dust sweeps flip claims with no payout record.
	err = store.MarkDistributed(ctx, []int64{id}, nil)
	require.NoError(t, err)

	claims, err := store.ListByPool(ctx, "pool-sweep")
	require.NoError(t, err)
	require.Len(t, claims, 1)
	assert.True(t, claims[0].Distributed)
}

func TestFeeClaimStore_MarkDistributedIsAllOrNothing(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewFeeClaimStore(pool)
	dists := NewDistributionStore(pool)
	ctx := context.Background()

	id1, err := store.Insert(ctx, &domain.FeeClaim{PoolID: "pool-1", Amount: 100})
	require.NoError(t, err)
	id2, err := store.Insert(ctx, &domain.FeeClaim{PoolID: "pool-1", Amount: 200})
	require.NoError(t, err)

	// Flip one claim up front, then attempt a batch containing it.
	require.NoError(t, store.MarkDistributed(ctx, []int64{id1}, nil))

	dist := &domain.Distribution{
		RecipientWallet: "RecipientWallet2",
		Amount:          90,
		Status:          domain.DistributionStatusCompleted,
	}
	err = store.MarkDistributed(ctx, []int64{id1, id2}, dist)
	assert.ErrorIs(t, err, storage.ErrAlreadyDistributed)

	// The untouched claim stays pending and no payout was recorded.
	claims, err := store.ListUndistributed(ctx)
	require.NoError(t, err)
	require.Len(t, claims, 1)
	assert.Equal(t, id2, claims[0].ID)

	recorded, err := dists.ListByWallet(ctx, "RecipientWallet2")
	require.NoError(t, err)
	assert.Empty(t, recorded)
}

func TestFeeClaimStore_MarkDistributedEmptyBatch(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewFeeClaimStore(pool)
	ctx := context.Background()

	err := store.MarkDistributed(ctx, nil, nil)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
