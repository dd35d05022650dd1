package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragecodes1337/skinport-tracker-sub000/internal/model"
	"github.com/ragecodes1337/skinport-tracker-sub000/internal/timeframe"
)

func neutralProfile() model.FloatProfile {
	return model.FloatProfile{Multiplier: 1.0}
}

func mustSelect(t *testing.T, history model.SalesHistory) timeframe.Selection {
	t.Helper()
	sel, ok := timeframe.Select(history)
	require.True(t, ok)
	return sel
}

func TestDecide_HybridBumpsToProfitFloor(t *testing.T) {
	quote := model.ItemQuote{Name: "AK-47 | Redline (Field-Tested)", BuyPrice: 10.0}
	snapshot := model.MarketSnapshot{MinPrice: 11.0, MaxPrice: 13.0, MeanPrice: 12.0, Quantity: 10}
	history := model.SalesHistory{
		model.Period7d: {Volume: 6, Avg: 11.5, Min: 10.0, Max: 13.0},
	}

	d := Decide(quote, snapshot, history, mustSelect(t, history), neutralProfile())

	require.False(t, d.Rejected())
	assert.Equal(t, model.StrategyHybrid, d.Strategy)
	assert.Equal(t, string(MediumVelocity), d.VelocityCategory)
	assert.Equal(t, model.PriceConfidenceMedium, d.Confidence)
	// The blended price lands a hair under the 5% margin floor, so the
	// engine bumps it up by a cent instead of emitting an unprofitable accept.
	assert.Equal(t, 11.42, d.AchievablePrice)
	assert.InDelta(t, 11.413, d.MinProfitablePrice, 0.001)
	assert.InDelta(t, 12.075, d.MarketTolerance, 0.001)
	assert.InDelta(t, 26.09, d.SalesVolatility, 0.01)
	assert.Equal(t, 10.0, d.BuyPrice)
	assert.Equal(t, 6, d.WeeklyVolume)
}

func TestDecide_RecentSalesWhenListingsOverpriced(t *testing.T) {
	quote := model.ItemQuote{Name: "AWP | Asiimov (Field-Tested)", BuyPrice: 8.0}
	snapshot := model.MarketSnapshot{MinPrice: 11.0, MaxPrice: 14.0, Quantity: 8}
	history := model.SalesHistory{
		model.Period7d: {Volume: 10, Avg: 10.0, Min: 9.5, Max: 10.5},
	}

	d := Decide(quote, snapshot, history, mustSelect(t, history), neutralProfile())

	require.False(t, d.Rejected())
	assert.Equal(t, model.StrategyRecentSales, d.Strategy)
	assert.Equal(t, string(StableHighVelocity), d.VelocityCategory)
	assert.True(t, d.StableCategory)
	assert.True(t, d.HighVelocity)
	assert.Equal(t, model.PriceConfidenceHigh, d.Confidence)
	// Anchored to 95% of the realized average, not the inflated listings.
	assert.InDelta(t, 9.5, d.AchievablePrice, 0.001)
}

func TestDecide_CompetitiveWhenListingsUnderpriced(t *testing.T) {
	quote := model.ItemQuote{Name: "M4A4 | Asiimov (Well-Worn)", BuyPrice: 7.0}
	snapshot := model.MarketSnapshot{MinPrice: 8.4, MaxPrice: 12.0, Quantity: 15}
	history := model.SalesHistory{
		model.Period7d: {Volume: 4, Avg: 10.0, Min: 9.5, Max: 10.5},
	}

	d := Decide(quote, snapshot, history, mustSelect(t, history), neutralProfile())

	require.False(t, d.Rejected())
	assert.Equal(t, model.StrategyCompetitive, d.Strategy)
	assert.Equal(t, string(StableMediumVelocity), d.VelocityCategory)
	// Undercut held above the 6% margin floor.
	assert.InDelta(t, 8.07, d.AchievablePrice, 0.001)
}

func TestDecide_RejectsExtremeVolatility(t *testing.T) {
	quote := model.ItemQuote{Name: "Souvenir Glock", BuyPrice: 10.0}
	history := model.SalesHistory{
		model.Period7d: {Volume: 6, Avg: 20.0, Min: 1.0, Max: 100.0},
	}

	d := Decide(quote, model.MarketSnapshot{MinPrice: 15}, history, mustSelect(t, history), neutralProfile())

	require.True(t, d.Rejected())
	assert.Equal(t, model.StrategyExtremeVolatile, d.Strategy)
	assert.Equal(t, model.PriceConfidenceRejected, d.Confidence)
	assert.Zero(t, d.AchievablePrice)
	assert.InDelta(t, 495.0, d.SalesVolatility, 0.01)
	assert.Equal(t, 10.0, d.BuyPrice)
}

func TestDecide_RejectsWhenProfitImpossible(t *testing.T) {
	// Bought above what the market will bear.
	quote := model.ItemQuote{Name: "Overpaid Item", BuyPrice: 11.0}
	history := model.SalesHistory{
		model.Period7d: {Volume: 2, Avg: 10.0, Min: 9.8, Max: 10.2},
	}

	d := Decide(quote, model.MarketSnapshot{MinPrice: 10}, history, mustSelect(t, history), neutralProfile())

	require.True(t, d.Rejected())
	assert.Equal(t, model.StrategyProfitImpossible, d.Strategy)
	assert.Greater(t, d.MinProfitablePrice, d.MarketTolerance)
}

func TestDecide_FloatMultiplierRaisesPrice(t *testing.T) {
	quote := model.ItemQuote{Name: "AK-47 | Redline (Field-Tested)", BuyPrice: 8.0}
	snapshot := model.MarketSnapshot{MinPrice: 11.0, MaxPrice: 14.0, Quantity: 8}
	history := model.SalesHistory{
		model.Period7d: {Volume: 10, Avg: 10.0, Min: 9.5, Max: 10.5},
	}
	sel := mustSelect(t, history)

	plain := Decide(quote, snapshot, history, sel, neutralProfile())
	premium := Decide(quote, snapshot, history, sel, model.FloatProfile{
		HasFloat: true, Tier: model.TierPremium, Multiplier: 1.04,
	})

	require.False(t, plain.Rejected())
	require.False(t, premium.Rejected())
	assert.Greater(t, premium.AchievablePrice, plain.AchievablePrice)
}

func TestDecide_CapNeverExceedsTolerance(t *testing.T) {
	// Rising trend plus a premium float wants a high price; the tolerance
	// ceiling still wins.
	quote := model.ItemQuote{Name: "Desert Eagle | Blaze (Factory New)", BuyPrice: 9.0}
	snapshot := model.MarketSnapshot{MinPrice: 10.5, MaxPrice: 20.0, Quantity: 3}
	history := model.SalesHistory{
		model.Period24h: {Volume: 3, Avg: 10.4, Min: 10.0, Max: 10.8},
		model.Period7d:  {Volume: 9, Avg: 10.0, Min: 9.5, Max: 10.5},
	}

	d := Decide(quote, snapshot, history, mustSelect(t, history), model.FloatProfile{
		HasFloat: true, Tier: model.TierPremium, Multiplier: 1.15,
	})

	require.False(t, d.Rejected())
	assert.LessOrEqual(t, d.AchievablePrice, d.MarketTolerance)
}

func TestWeeklyVolume(t *testing.T) {
	tests := []struct {
		name    string
		history model.SalesHistory
		want    int
	}{
		{name: "week window wins", history: model.SalesHistory{
			model.Period7d:  {Volume: 6},
			model.Period24h: {Volume: 4},
		}, want: 6},
		{name: "extrapolated from 24h", history: model.SalesHistory{
			model.Period24h: {Volume: 2},
		}, want: 14},
		{name: "scaled down from 30d", history: model.SalesHistory{
			model.Period30d: {Volume: 9},
		}, want: 2},
		{name: "scaled down from 90d", history: model.SalesHistory{
			model.Period90d: {Volume: 27},
		}, want: 2},
		{name: "no data", history: model.SalesHistory{}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WeeklyVolume(tt.history))
		})
	}
}

func TestReferenceAvg_SuppressesDailySpike(t *testing.T) {
	history := model.SalesHistory{
		model.Period24h: {Volume: 3, Avg: 12.0, Min: 11.5, Max: 12.5},
		model.Period7d:  {Volume: 10, Avg: 10.0, Min: 9.5, Max: 10.5},
	}
	sel := mustSelect(t, history)
	require.Equal(t, model.Period24h, sel.Period)

	// 24h average sits 20% over the weekly one, so the weekly level is the
	// trusted reference.
	assert.Equal(t, 10.0, referenceAvg(history, sel))
}

func TestMarginFor(t *testing.T) {
	assert.Equal(t, 0.08, marginFor(StableHighVelocity, 20))
	assert.Equal(t, 0.10, marginFor(StableHighVelocity, 50))
	assert.Equal(t, 0.12, marginFor(StableHighVelocity, 500))
	assert.Equal(t, 0.05, marginFor(MediumVelocity, 10))
	// Low velocity flips to a thin catch-all margin above 150.
	assert.Equal(t, 0.05, marginFor(LowVelocity, 100))
	assert.Equal(t, 0.035, marginFor(LowVelocity, 200))
}
