// Package pricing computes the profitability-first price recommendation for
// an item: a minimum profitable price from the velocity margin tables, a
// market tolerance ceiling from recent sales, and an achievable price from
// the listing/sales strategy selection.
package pricing

import (
	"fmt"
	"math"

	"github.com/ragecodes1337/skinport-tracker-sub000/internal/model"
	"github.com/ragecodes1337/skinport-tracker-sub000/internal/timeframe"
)

// SellerFee is the marketplace cut deducted from every sale.
const SellerFee = 0.08

// VelocityCategory classifies an item by trading frequency and stability.
type VelocityCategory string

const (
	StableHighVelocity   VelocityCategory = "STABLE_HIGH_VELOCITY"
	StableMediumVelocity VelocityCategory = "STABLE_MEDIUM_VELOCITY"
	HighVelocity         VelocityCategory = "HIGH_VELOCITY"
	MediumVelocity       VelocityCategory = "MEDIUM_VELOCITY"
	LowVelocity          VelocityCategory = "LOW_VELOCITY"
)

// Category thresholds.
const (
	stableSpreadLimit   = 0.15
	stableMinWeeklyVol  = 3
	highVelocityWeekly  = 8
	mediumVelocityWeekly = 3
)

// marginBracket is one row of a margin table: the margin applied while the
// buy price stays below the bracket bound. A zero bound is the catch-all.
type marginBracket struct {
	below  float64
	margin float64
}

// Margin tables per velocity category, evaluated top to bottom.
var marginTables = map[VelocityCategory][]marginBracket{
	StableHighVelocity: {
		{below: 30, margin: 0.08},
		{below: 100, margin: 0.10},
		{margin: 0.12},
	},
	StableMediumVelocity: {
		{below: 30, margin: 0.06},
		{below: 100, margin: 0.08},
		{margin: 0.10},
	},
	HighVelocity: {
		{below: 30, margin: 0.07},
		{below: 100, margin: 0.09},
		{margin: 0.11},
	},
	MediumVelocity: {
		{below: 30, margin: 0.05},
		{below: 100, margin: 0.06},
		{margin: 0.07},
	},
	LowVelocity: {
		{below: 30, margin: 0.04},
		{below: 150, margin: 0.05},
		{margin: 0.035},
	},
}

// Volatility policy in percent of the reference average.
const (
	extremeVolatilityLimit = 200.0
	spikeSuppressionRatio  = 1.05
)

// toleranceBand maps a volatility floor to the tolerance multiplier applied
// above it. Bands are evaluated top to bottom.
type toleranceBand struct {
	above      float64
	multiplier float64
}

var toleranceBands = []toleranceBand{
	{above: 100, multiplier: 1.01}, // tightened further against the sales floor below
	{above: 50, multiplier: 1.02},
	{above: 20, multiplier: 1.05},
	{above: 0, multiplier: 1.08},
}

// Strategy selection thresholds on listingMin / referenceAvg.
const (
	overpricedListingRatio = 1.05
	underpricedListingRatio = 0.90
)

// Decide runs the three-step pricing algorithm for one item. A decision with
// AchievablePrice 0 is a rejection and carries the rejecting strategy tag.
func Decide(quote model.ItemQuote, snapshot model.MarketSnapshot, history model.SalesHistory, sel timeframe.Selection, profile model.FloatProfile) model.PricingDecision {
	window := sel.Window
	weeklyVol := WeeklyVolume(history)

	decision := model.PricingDecision{
		BuyPrice:     quote.BuyPrice,
		WeeklyVolume: weeklyVol,
		Trend:        sel.Trend,
	}

	// Step 1: minimum profitable price from the velocity margin table.
	spread := 0.0
	if window.Avg > 0 {
		spread = (window.Max - window.Min) / window.Avg
	}
	stable := spread <= stableSpreadLimit && weeklyVol >= stableMinWeeklyVol
	highVel := weeklyVol >= highVelocityWeekly
	category := categorize(stable, highVel, weeklyVol)

	decision.StableCategory = stable
	decision.HighVelocity = highVel
	decision.VelocityCategory = string(category)

	margin := marginFor(category, quote.BuyPrice)
	minProfitable := quote.BuyPrice * (1 + margin) / (1 - SellerFee)
	decision.MinProfitablePrice = minProfitable

	// Step 2: market tolerance check.
	volatility := 0.0
	if window.Avg > 0 {
		volatility = (window.Max - window.Min) / window.Avg * 100
	}
	decision.SalesVolatility = volatility

	if volatility > extremeVolatilityLimit {
		return reject(decision, model.StrategyExtremeVolatile,
			fmt.Sprintf("sales volatility %.0f%% exceeds the %.0f%% ceiling", volatility, extremeVolatilityLimit))
	}

	ref := referenceAvg(history, sel)
	decision.ReferenceAvg = ref
	if ref <= 0 {
		return reject(decision, model.StrategyProfitImpossible, "no usable reference average")
	}

	tolerance := ref * toleranceMultiplier(volatility, window.Min, ref)
	decision.MarketTolerance = tolerance

	if minProfitable > tolerance {
		return reject(decision, model.StrategyProfitImpossible,
			fmt.Sprintf("minimum profitable price %.2f exceeds market tolerance %.2f", minProfitable, tolerance))
	}

	// Step 3: strategy selection.
	listingRatio := snapshot.MinPrice / ref
	var base float64
	var strategy model.PricingStrategy
	switch {
	case listingRatio > overpricedListingRatio:
		strategy = model.StrategyRecentSales
		base = math.Max(ref*0.95, minProfitable)
	case listingRatio < underpricedListingRatio:
		strategy = model.StrategyCompetitive
		base = math.Max(math.Min(snapshot.MinPrice*0.95, ref*0.98), minProfitable)
	default:
		strategy = model.StrategyHybrid
		weight := 0.80
		if sel.Confidence == timeframe.ConfidenceHigh {
			weight = 0.85
		}
		base = math.Max(weight*ref+(1-weight)*snapshot.MinPrice, minProfitable)
	}

	price := base * profile.Multiplier
	switch sel.Trend {
	case model.TrendRising:
		price *= 1.05
	case model.TrendFalling:
		price *= 0.95
	}

	cap := math.Min(window.Max*0.95, tolerance)
	if price > cap {
		price = cap
	}
	price = math.Round(price*100) / 100

	// The cap can undercut the profit floor on thin sales ranges; an
	// unprofitable accept is never emitted.
	if price < minProfitable {
		bumped := math.Ceil(minProfitable*100) / 100
		if bumped > cap {
			return reject(decision, model.StrategyProfitImpossible,
				fmt.Sprintf("market cap %.2f is below the minimum profitable price %.2f", cap, minProfitable))
		}
		price = bumped
	}

	decision.AchievablePrice = price
	decision.Strategy = strategy
	decision.Confidence = volumeConfidence(window.Volume)
	decision.Reasoning = fmt.Sprintf("%s via %s window (volume %d, volatility %.0f%%)",
		strategy, sel.Period, window.Volume, volatility)
	return decision
}

// WeeklyVolume derives the weekly sales volume: the 7d window when present,
// otherwise extrapolated from the nearest available window.
func WeeklyVolume(history model.SalesHistory) int {
	if w, ok := history.Window(model.Period7d); ok {
		return w.Volume
	}
	if w, ok := history.Window(model.Period24h); ok {
		return w.Volume * 7
	}
	if w, ok := history.Window(model.Period30d); ok {
		return w.Volume / 4
	}
	if w, ok := history.Window(model.Period90d); ok {
		return w.Volume / 13
	}
	return 0
}

func categorize(stable, highVel bool, weeklyVol int) VelocityCategory {
	switch {
	case stable && highVel:
		return StableHighVelocity
	case stable:
		return StableMediumVelocity
	case highVel:
		return HighVelocity
	case weeklyVol >= mediumVelocityWeekly:
		return MediumVelocity
	default:
		return LowVelocity
	}
}

func marginFor(category VelocityCategory, buyPrice float64) float64 {
	for _, bracket := range marginTables[category] {
		if bracket.below == 0 || buyPrice < bracket.below {
			return bracket.margin
		}
	}
	return marginTables[LowVelocity][0].margin
}

// referenceAvg prefers the 7d average over a spiking 24h one: a 24h average
// more than 5% above the 7d average is treated as noise, not a new level.
func referenceAvg(history model.SalesHistory, sel timeframe.Selection) float64 {
	if sel.Period == model.Period24h {
		if week, ok := history.Window(model.Period7d); ok && week.Avg > 0 {
			if sel.Window.Avg > week.Avg*spikeSuppressionRatio {
				return week.Avg
			}
		}
	}
	return sel.Window.Avg
}

func toleranceMultiplier(volatility, salesMin, ref float64) float64 {
	for _, band := range toleranceBands {
		if volatility > band.above || band.above == 0 {
			if band.above == 100 && ref > 0 {
				// Highly volatile markets are capped near the realized
				// sales floor rather than the average.
				return math.Min(salesMin*1.02/ref, band.multiplier)
			}
			return band.multiplier
		}
	}
	return 1.0
}

func volumeConfidence(volume int) model.PriceConfidence {
	switch {
	case volume >= 8:
		return model.PriceConfidenceHigh
	case volume >= 4:
		return model.PriceConfidenceMedium
	case volume >= 2:
		return model.PriceConfidenceLow
	default:
		return model.PriceConfidenceVeryLow
	}
}

func reject(d model.PricingDecision, strategy model.PricingStrategy, reason string) model.PricingDecision {
	d.AchievablePrice = 0
	d.Strategy = strategy
	d.Confidence = model.PriceConfidenceRejected
	d.Reasoning = reason
	return d
}
