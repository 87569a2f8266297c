package analytics

import (
	"context"
	"fmt"
	"log"
	"time"

	"solana-fee-engine/internal/domain"
	"solana-fee-engine/internal/observability"
	"solana-fee-engine/internal/storage"
	"solana-fee-engine/internal/valuation"
)

// SnapshotRunSummary reports one snapshot run.
type SnapshotRunSummary struct {
	// Processed is the number of active pools examined.
	Processed int `json:"processed"`
	// Written is the number of valuation points appended.
	Written int `json:"written"`
	// Skipped is the number of pools without usable reserves.
	Skipped int `json:"skipped"`
	// Errors holds one message per failed pool.
	Errors []string `json:"errors"`
}

// SnapshotJob walks active pools, resolves each one's valuation from the
// stored reserve snapshot, and appends the results to the valuation
// timeseries in one batch.
type SnapshotJob struct {
	pools  storage.PoolStore
	points storage.ValuationPointStore
	cfg    valuation.Config
	logger *log.Logger
}

// NewSnapshotJob creates a snapshot job.
func NewSnapshotJob(
	pools storage.PoolStore,
	points storage.ValuationPointStore,
	cfg valuation.Config,
	logger *log.Logger,
) *SnapshotJob {
	if logger == nil {
		logger = log.Default()
	}
	return &SnapshotJob{
		pools:  pools,
		points: points,
		cfg:    cfg,
		logger: logger,
	}
}

// Run executes one snapshot pass. Pools whose reserves are not usable yet
// are skipped rather than written as fallback zeros: the timeseries holds
// only real observations.
func (j *SnapshotJob) Run(ctx context.Context) (*SnapshotRunSummary, error) {
	start := time.Now()
	summary := &SnapshotRunSummary{Errors: []string{}}

	pools, err := j.pools.ListByStatus(ctx, domain.PoolStatusActive)
	if err != nil {
		return nil, fmt.Errorf("list active pools: %w", err)
	}

	now := time.Now().UnixMilli()
	var batch []*domain.ValuationPoint

	for _, pool := range pools {
		summary.Processed++

		if pool.Reserves.IsZero() {
			summary.Skipped++
			continue
		}

		v := valuation.Resolve(pool.Reserves, j.cfg)

		price, _ := v.Price.Float64()
		marketCap, _ := v.MarketCap.Float64()
		progress, _ := v.BondingProgressPct.Float64()

		batch = append(batch, &domain.ValuationPoint{
			TokenID:            pool.TokenID,
			PoolID:             pool.PoolID,
			TimestampMs:        now,
			Price:              price,
			MarketCap:          marketCap,
			BondingProgressPct: progress,
			IsGraduated:        v.IsGraduated,
		})
	}

	if len(batch) > 0 {
		if err := j.points.InsertBulk(ctx, batch); err != nil {
			return nil, fmt.Errorf("insert valuation points: %w", err)
		}
		summary.Written = len(batch)
		observability.RecordValuationPoints(len(batch))
	}

	observability.RecordJobDuration("snapshot", time.Since(start).Seconds())

	j.logger.Printf("[analytics] snapshot complete: processed=%d written=%d skipped=%d",
		summary.Processed, summary.Written, summary.Skipped)

	return summary, nil
}
