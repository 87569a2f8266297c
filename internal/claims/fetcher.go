// Package claims implements the fee claim job: it walks active pools,
// pulls accrued creator fees from the AMM service into the treasury, and
// records each settled claim.
package claims

import (
	"context"
	"fmt"
	"log"
	"time"

	"solana-fee-engine/internal/amm"
	"solana-fee-engine/internal/domain"
	"solana-fee-engine/internal/observability"
	"solana-fee-engine/internal/solana"
	"solana-fee-engine/internal/storage"
)

// Config configures the claim fetcher.
type Config struct {
	// MinClaimLamports is the dust threshold: pools with claimable below
	// it are skipped without a claim request.
	MinClaimLamports int64

	// PoolDelay is the pause between pools. Sequential processing with a
	// fixed delay keeps the AMM service and RPC provider under their
	// rate limits.
	PoolDelay time.Duration
}

// DefaultConfig returns the default fetcher configuration.
func DefaultConfig() Config {
	return Config{
		MinClaimLamports: 10_000,
		PoolDelay:        500 * time.Millisecond,
	}
}

// RunSummary reports one claim run.
type RunSummary struct {
	// Processed is the number of active pools examined.
	Processed int `json:"processed"`
	// Claimed is the number of claims recorded.
	Claimed int `json:"claimed"`
	// TotalLamports is the sum of recorded claim amounts.
	TotalLamports int64 `json:"totalAmount"`
	// Errors holds one message per failed pool. A failed pool never
	// aborts the run.
	Errors []string `json:"errors"`
}

// Fetcher runs the claim job.
type Fetcher struct {
	pools  storage.PoolStore
	tokens storage.TokenStore
	claims storage.FeeClaimStore
	amm    amm.Client
	rpc    solana.RPCClient
	signer solana.Signer
	config Config
	logger *log.Logger
}

// NewFetcher creates a claim fetcher.
func NewFetcher(
	pools storage.PoolStore,
	tokens storage.TokenStore,
	claims storage.FeeClaimStore,
	ammClient amm.Client,
	rpc solana.RPCClient,
	signer solana.Signer,
	config Config,
	logger *log.Logger,
) *Fetcher {
	if logger == nil {
		logger = log.Default()
	}
	return &Fetcher{
		pools:  pools,
		tokens: tokens,
		claims: claims,
		amm:    ammClient,
		rpc:    rpc,
		signer: signer,
		config: config,
		logger: logger,
	}
}

// Run executes one claim pass over all active pools. Pools are processed
// sequentially; each pool's failure is recorded in the summary and the run
// moves on. Run returns an error only when the pool list itself cannot be
// loaded.
func (f *Fetcher) Run(ctx context.Context) (*RunSummary, error) {
	start := time.Now()
	summary := &RunSummary{Errors: []string{}}

	pools, err := f.pools.ListByStatus(ctx, domain.PoolStatusActive)
	if err != nil {
		return nil, fmt.Errorf("list active pools: %w", err)
	}

	f.logger.Printf("[claims] starting run: %d active pools", len(pools))

	for i, pool := range pools {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if i > 0 && f.config.PoolDelay > 0 {
			select {
			case <-ctx.Done():
				return summary, ctx.Err()
			case <-time.After(f.config.PoolDelay):
			}
		}

		summary.Processed++

		amount, err := f.claimPool(ctx, pool)
		if err != nil {
			msg := fmt.Sprintf("pool %s: %v", pool.PoolID, err)
			f.logger.Printf("[claims] %s", msg)
			summary.Errors = append(summary.Errors, msg)
			continue
		}
		if amount == 0 {
			continue
		}

		summary.Claimed++
		summary.TotalLamports += amount
		observability.RecordClaim(amount)
	}

	observability.RecordJobDuration("claim", time.Since(start).Seconds())
	observability.DefaultMetrics.LastSuccessfulClaimRun.SetToCurrentTime()

	f.logger.Printf("[claims] run complete: processed=%d claimed=%d total=%d errors=%d",
		summary.Processed, summary.Claimed, summary.TotalLamports, len(summary.Errors))

	return summary, nil
}

// claimPool claims one pool's accrued fees. Returns the recorded amount, or
// zero when the pool was skipped (dust or already drained).
func (f *Fetcher) claimPool(ctx context.Context, pool *domain.Pool) (int64, error) {
	claimable, err := f.amm.GetClaimable(ctx, pool.PoolID)
	if err != nil {
		observability.RecordClaimError("claimable")
		return 0, fmt.Errorf("query claimable: %w", err)
	}

	if claimable < f.config.MinClaimLamports {
		if claimable > 0 {
			f.logger.Printf("[claims] pool %s: claimable %d below threshold %d, skipping",
				pool.PoolID, claimable, f.config.MinClaimLamports)
		}
		observability.RecordClaimSkippedDust()
		return 0, nil
	}

	result, err := f.amm.Claim(ctx, pool.PoolID)
	if err != nil {
		observability.RecordClaimError("claim")
		return 0, fmt.Errorf("claim: %w", err)
	}

	// Drained between the claimable read and the claim. Not an error, and
	// never recorded: claims with non-positive amounts do not exist.
	if result.Amount <= 0 {
		return 0, nil
	}

	txRef := result.TxRef
	if txRef == "" {
		// The service delegated settlement: sign with the treasury key,
		// submit, and wait for confirmation before recording anything.
		txRef, err = f.settleUnsigned(ctx, result.UnsignedTxBase64)
		if err != nil {
			observability.RecordClaimError("settle")
			return 0, fmt.Errorf("settle claim: %w", err)
		}
	}

	now := time.Now().UnixMilli()
	claim := &domain.FeeClaim{
		PoolID:    pool.PoolID,
		Amount:    result.Amount,
		TxRef:     txRef,
		ClaimedAt: now,
		CreatedAt: now,
	}
	if _, err := f.claims.Insert(ctx, claim); err != nil {
		observability.RecordClaimError("insert")
		return 0, fmt.Errorf("insert claim: %w", err)
	}

	if err := f.tokens.AddFeeTotals(ctx, pool.TokenID, result.Amount, result.Amount); err != nil {
		// The claim row exists; the lifetime totals drifting is
		// recoverable and logged rather than failing the pool.
		f.logger.Printf("[claims] pool %s: update token totals: %v", pool.PoolID, err)
	}

	f.logger.Printf("[claims] pool %s: claimed %d lamports, tx %s", pool.PoolID, result.Amount, txRef)
	return result.Amount, nil
}

// settleUnsigned signs and submits an unsigned claim transaction, returning
// the confirmed signature.
func (f *Fetcher) settleUnsigned(ctx context.Context, unsignedBase64 string) (string, error) {
	tx, err := solana.SignTransactionBase64(f.signer, unsignedBase64)
	if err != nil {
		return "", err
	}

	sig, err := f.rpc.SendTransaction(ctx, tx.Base64)
	if err != nil {
		return "", fmt.Errorf("submit: %w", err)
	}

	if err := f.rpc.ConfirmTransaction(ctx, sig); err != nil {
		return "", fmt.Errorf("confirm: %w", err)
	}

	return sig, nil
}
