package analytics

import (
	"context"
	"fmt"

	"solana-fee-engine/internal/domain"
	"solana-fee-engine/internal/storage"
)

// ValuationPointStore implements storage.ValuationPointStore using ClickHouse.
type ValuationPointStore struct {
	conn *Conn
}

// NewValuationPointStore creates a new ValuationPointStore.
func NewValuationPointStore(conn *Conn) *ValuationPointStore {
	return &ValuationPointStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ValuationPointStore = (*ValuationPointStore)(nil)

// InsertBulk appends valuation points as one batch.
func (s *ValuationPointStore) InsertBulk(ctx context.Context, points []*domain.ValuationPoint) error {
	if len(points) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO valuation_timeseries (
			token_id, pool_id, timestamp_ms, price, market_cap,
			bonding_progress_pct, is_graduated
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		err = batch.Append(
			p.TokenID, p.PoolID, uint64(p.TimestampMs),
			p.Price, p.MarketCap, p.BondingProgressPct, p.IsGraduated,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByTokenID retrieves all points for a token, ordered by timestamp ASC.
func (s *ValuationPointStore) GetByTokenID(ctx context.Context, tokenID string) ([]*domain.ValuationPoint, error) {
	query := `
		SELECT token_id, pool_id, timestamp_ms, price, market_cap,
		       bonding_progress_pct, is_graduated
		FROM valuation_timeseries
		WHERE token_id = ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, tokenID)
	if err != nil {
		return nil, fmt.Errorf("query by token id: %w", err)
	}
	defer rows.Close()

	return scanValuationPoints(rows)
}

// GetByTimeRange retrieves points for a token within [start, end] (inclusive).
func (s *ValuationPointStore) GetByTimeRange(ctx context.Context, tokenID string, start, end int64) ([]*domain.ValuationPoint, error) {
	query := `
		SELECT token_id, pool_id, timestamp_ms, price, market_cap,
		       bonding_progress_pct, is_graduated
		FROM valuation_timeseries
		WHERE token_id = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, tokenID, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanValuationPoints(rows)
}

// scanValuationPoints scans multiple rows.
func scanValuationPoints(rows chRows) ([]*domain.ValuationPoint, error) {
	var points []*domain.ValuationPoint

	for rows.Next() {
		var p domain.ValuationPoint
		var timestampMs uint64

		err := rows.Scan(
			&p.TokenID, &p.PoolID, &timestampMs,
			&p.Price, &p.MarketCap, &p.BondingProgressPct, &p.IsGraduated,
		)
		if err != nil {
			return nil, fmt.Errorf("scan valuation point row: %w", err)
		}

		p.TimestampMs = int64(timestampMs)
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate valuation point rows: %w", err)
	}

	return points, nil
}
