package valuation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-fee-engine/internal/domain"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestResolve_PriceAndMarketCap(t *testing.T) {
	snap := domain.ReserveSnapshot{
		RealBase:     dec("0"),
		VirtualBase:  dec("30"),
		VirtualToken: dec("1000000000"),
	}
	cfg := Config{
		TotalSupply:         dec("1000000000"),
		GraduationThreshold: dec("85"),
	}

	v := Resolve(snap, cfg)

	assert.True(t, v.Price.Equal(dec("0.00000003")), "price = %s", v.Price)
	assert.True(t, v.MarketCap.Equal(dec("30")), "marketCap = %s", v.MarketCap)
	assert.False(t, v.Fallback)
}

func TestResolve_BondingProgress(t *testing.T) {
	cfg := Config{
		TotalSupply:         dec("1000000000"),
		GraduationThreshold: dec("85"),
	}

	tests := []struct {
		name         string
		realBase     string
		wantProgress string
		wantGrad     bool
	}{
		{"half way", "42.5", "50", false},
		{"over threshold capped at 100", "90", "100", true},
		{"exactly at threshold", "85", "100", true},
		{"empty curve", "0", "0", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := domain.ReserveSnapshot{
				RealBase:     dec(tt.realBase),
				VirtualBase:  dec("30"),
				VirtualToken: dec("1000000000"),
			}

			v := Resolve(snap, cfg)

			assert.True(t, v.BondingProgressPct.Equal(dec(tt.wantProgress)),
				"progress = %s, want %s", v.BondingProgressPct, tt.wantProgress)
			assert.Equal(t, tt.wantGrad, v.IsGraduated)
		})
	}
}

func TestResolveOrFallback_ZeroReserves(t *testing.T) {
	cfg := Config{TotalSupply: dec("1000000000"), GraduationThreshold: dec("85")}
	fallback := Valuation{Price: dec("0.00000001"), MarketCap: dec("10")}

	for _, snap := range []domain.ReserveSnapshot{
		{VirtualBase: dec("0"), VirtualToken: dec("1000000000")},
		{VirtualBase: dec("30"), VirtualToken: dec("0")},
		{},
	} {
		v := ResolveOrFallback(snap, cfg, fallback)
		require.True(t, v.Fallback, "zero snapshot must return flagged fallback")
		assert.True(t, v.Price.Equal(fallback.Price))
		assert.True(t, v.MarketCap.Equal(fallback.MarketCap))
	}
}

func TestResolveOrFallback_UsableReservesIgnoreFallback(t *testing.T) {
	snap := domain.ReserveSnapshot{
		RealBase:     dec("42.5"),
		VirtualBase:  dec("30"),
		VirtualToken: dec("1000000000"),
	}
	cfg := Config{TotalSupply: dec("1000000000"), GraduationThreshold: dec("85")}

	v := ResolveOrFallback(snap, cfg, Valuation{Price: dec("999")})

	assert.False(t, v.Fallback)
	assert.True(t, v.Price.Equal(dec("0.00000003")))
}

func TestResolve_ZeroThresholdTreatedAsComplete(t *testing.T) {
	snap := domain.ReserveSnapshot{
		RealBase:     dec("1"),
		VirtualBase:  dec("30"),
		VirtualToken: dec("1000000000"),
	}

	v := Resolve(snap, Config{TotalSupply: dec("1000000000")})

	assert.True(t, v.IsGraduated)
	assert.True(t, v.BondingProgressPct.Equal(dec("100")))
}
