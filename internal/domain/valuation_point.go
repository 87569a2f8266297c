package domain

// ValuationPoint is one appended sample of a token's computed valuation.
// Corresponds to the valuation_timeseries table in ClickHouse.
type ValuationPoint struct {
	TokenID            string
	PoolID             string
	TimestampMs        int64
	Price              float64
	MarketCap          float64
	BondingProgressPct float64
	IsGraduated        bool
}
