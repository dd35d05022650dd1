// Package confidence produces the dual-criteria verdict: an item rates GREEN
// only when both its profitability and its liquidity clear their bars.
package confidence

import (
	"fmt"
	"math"

	"github.com/ragecodes1337/skinport-tracker-sub000/internal/model"
	"github.com/ragecodes1337/skinport-tracker-sub000/internal/pricing"
)

// Verdict thresholds.
const (
	greenProfitability  = 80
	greenLiquidity      = 60
	orangeProfitability = 60
	orangeLiquidity     = 50
)

// scoreBucket is one row of an ordered score table.
type scoreBucket struct {
	atLeast float64
	score   int
}

// Profitability buckets on the realized net margin percent.
var profitabilityBuckets = []scoreBucket{
	{atLeast: 15, score: 100},
	{atLeast: 10, score: 85},
	{atLeast: 7, score: 70},
	{atLeast: 5, score: 55},
	{atLeast: 3, score: 40},
	{atLeast: 2, score: 25},
}

const profitabilityFloor = 10

// Score computes the verdict for an accepted pricing decision.
func Score(decision model.PricingDecision, snapshot model.MarketSnapshot, history model.SalesHistory) model.ConfidenceVerdict {
	profitScore, factors := profitabilityScore(decision)
	liquidScore, liquidFactors := liquidityScore(decision, snapshot, history)
	factors = append(factors, liquidFactors...)

	verdict := model.ConfidenceVerdict{
		ProfitabilityScore: profitScore,
		LiquidityScore:     liquidScore,
		Score:              int(math.Round(float64(profitScore+liquidScore) / 2)),
		StabilityRating:    stabilityRating(decision.SalesVolatility),
		Factors:            factors,
	}

	switch {
	case profitScore >= greenProfitability && liquidScore >= greenLiquidity:
		verdict.ColorCode = model.ColorGreen
		verdict.Level = model.ConfidenceHigh
	case profitScore >= orangeProfitability || liquidScore >= orangeLiquidity:
		verdict.ColorCode = model.ColorOrange
		verdict.Level = model.ConfidenceMedium
		if profitScore >= liquidScore {
			verdict.SubLabel = "PROFIT_DRIVEN"
		} else {
			verdict.SubLabel = "LIQUIDITY_DRIVEN"
		}
	default:
		verdict.ColorCode = model.ColorRed
		verdict.Level = model.ConfidenceLow
	}
	return verdict
}

// profitabilityScore buckets the actual net margin of the decision, with a
// bonus for stable velocity categories. The original buy price comes straight
// off the decision; it is never reconstructed from formatted output.
func profitabilityScore(decision model.PricingDecision) (int, []string) {
	if decision.BuyPrice <= 0 {
		return profitabilityFloor, nil
	}
	netMargin := (decision.NetProceeds(pricing.SellerFee) - decision.BuyPrice) / decision.BuyPrice * 100

	score := profitabilityFloor
	for _, b := range profitabilityBuckets {
		if netMargin >= b.atLeast {
			score = b.score
			break
		}
	}

	factors := []string{fmt.Sprintf("net margin %.1f%%", netMargin)}
	if decision.StableCategory {
		score += 10
		factors = append(factors, "stable market bonus")
	}
	if score > 100 {
		score = 100
	}
	return score, factors
}

// liquidityScore rates how quickly the item is likely to move: recent volume
// base, velocity/stability bonuses, a listing-quantity sweet spot, and a
// volatility penalty, clamped to [10,100].
func liquidityScore(decision model.PricingDecision, snapshot model.MarketSnapshot, history model.SalesHistory) (int, []string) {
	day, hasDay := history.Window(model.Period24h)
	week, hasWeek := history.Window(model.Period7d)
	if !hasDay && !hasWeek {
		return 10, []string{"no recent sales activity"}
	}

	var score int
	var factors []string
	switch {
	case hasDay && day.Volume >= 3:
		score = 90
	case hasDay && day.Volume >= 1:
		score = 75
	case hasWeek && week.Volume >= 5:
		score = 70
	case hasWeek && week.Volume >= 3:
		score = 60
	case hasWeek && week.Volume >= 1:
		score = 40
	default:
		score = 20
	}
	factors = append(factors, fmt.Sprintf("recent volume base %d", score))

	if decision.HighVelocity {
		score += 10
		factors = append(factors, "high velocity bonus")
	}
	if decision.StableCategory {
		score += 15
		factors = append(factors, "stability bonus")
	}

	switch {
	case snapshot.Quantity >= 5 && snapshot.Quantity <= 20:
		score += 5
		factors = append(factors, "listing quantity in sweet spot")
	case snapshot.Quantity > 30:
		score -= 10
		factors = append(factors, "oversupplied listings")
	case snapshot.Quantity < 2:
		score -= 5
		factors = append(factors, "too few listings")
	}

	switch {
	case decision.SalesVolatility > 100:
		score -= 20
		factors = append(factors, "severe volatility penalty")
	case decision.SalesVolatility > 50:
		score -= 10
		factors = append(factors, "volatility penalty")
	}

	if score < 10 {
		score = 10
	}
	if score > 100 {
		score = 100
	}
	return score, factors
}

func stabilityRating(volatility float64) string {
	switch {
	case volatility > 200:
		return "EXTREME"
	case volatility > 100:
		return "VOLATILE"
	case volatility > 50:
		return "MODERATE"
	default:
		return "STABLE"
	}
}
