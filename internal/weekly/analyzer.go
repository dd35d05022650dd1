// Package weekly scores how viable an item is as a 3-7 day flip and derives
// the recommended hold price and sell-day estimate.
package weekly

import (
	"math"

	"github.com/ragecodes1337/skinport-tracker-sub000/internal/model"
)

// scoreBucket is one row of an ordered points table.
type scoreBucket struct {
	atLeast float64
	points  int
}

// Weekly volume, 35 points.
var volumeBuckets = []scoreBucket{
	{atLeast: 15, points: 35},
	{atLeast: 8, points: 28},
	{atLeast: 4, points: 20},
	{atLeast: 2, points: 12},
	{atLeast: 1, points: 6},
}

// Price stability (100 - range/avg*100), 25 points.
var stabilityBuckets = []scoreBucket{
	{atLeast: 80, points: 25},
	{atLeast: 60, points: 19},
	{atLeast: 40, points: 12},
	{atLeast: 20, points: 6},
}

// Recent 7-day activity, 20 points.
var recentBuckets = []scoreBucket{
	{atLeast: 10, points: 20},
	{atLeast: 5, points: 15},
	{atLeast: 3, points: 10},
	{atLeast: 1, points: 5},
}

// tierDefaults carries the default outlook attached to a recommendation tier.
type tierDefaults struct {
	atLeast     int
	tier        model.FlipTier
	daysMin     int
	daysMax     int
	margin      float64
	probability float64
}

var tierTable = []tierDefaults{
	{atLeast: 50, tier: model.FlipExcellent, daysMin: 2, daysMax: 4, margin: 0.10, probability: 0.85},
	{atLeast: 30, tier: model.FlipGood, daysMin: 3, daysMax: 5, margin: 0.08, probability: 0.70},
	{atLeast: 15, tier: model.FlipModerate, daysMin: 5, daysMax: 7, margin: 0.06, probability: 0.50},
	{atLeast: 0, tier: model.FlipAvoid, daysMin: 7, daysMax: 14, margin: 0.04, probability: 0.25},
}

// Assess scores the flip viability of an accepted decision against its
// sales history.
func Assess(decision model.PricingDecision, history model.SalesHistory) model.WeeklyFlipVerdict {
	window := bestWindow(history)
	week, hasWeek := history.Window(model.Period7d)
	weekVolume := 0
	if hasWeek {
		weekVolume = week.Volume
	}

	score := bucketScore(volumeBuckets, float64(decision.WeeklyVolume))

	if window.Avg > 0 {
		stability := 100 - (window.Max-window.Min)/window.Avg*100
		score += bucketScore(stabilityBuckets, stability)
	}

	score += entryPositionPoints(decision.BuyPrice, window)
	score += bucketScore(recentBuckets, float64(weekVolume))

	verdict := model.WeeklyFlipVerdict{
		Score:     score,
		HoldPrice: decision.AchievablePrice,
	}
	for _, row := range tierTable {
		if score >= row.atLeast {
			verdict.Recommendation = row.tier
			verdict.SellDaysMin = row.daysMin
			verdict.SellDaysMax = row.daysMax
			verdict.TargetMargin = row.margin
			verdict.SellProbability = row.probability
			break
		}
	}

	// Downgrades: a thin week extends the timeline and cuts the odds, and an
	// asking price above the recent weekly level does the same.
	if weekVolume <= 2 {
		verdict.SellDaysMin += 2
		verdict.SellDaysMax += 3
		verdict.SellProbability = math.Max(verdict.SellProbability-0.15, 0.10)
	}
	if hasWeek && week.Avg > 0 && decision.AchievablePrice > week.Avg*1.15 {
		verdict.SellDaysMax += 2
		verdict.SellProbability = math.Max(verdict.SellProbability-0.10, 0.10)
	}

	// A near-dead week forces a long estimate no matter the score.
	if weekVolume <= 1 {
		if verdict.SellDaysMin < 7 {
			verdict.SellDaysMin = 7
		}
		if verdict.SellDaysMax < 14 {
			verdict.SellDaysMax = 14
		}
	}

	verdict.SellProbability = math.Round(verdict.SellProbability*100) / 100
	return verdict
}

// bestWindow prefers the 7d window for flip math, falling back to the most
// recent window with sales.
func bestWindow(history model.SalesHistory) model.SalesWindow {
	if w, ok := history.Window(model.Period7d); ok {
		return w
	}
	for _, p := range []model.SalesPeriod{model.Period24h, model.Period30d, model.Period90d} {
		if w, ok := history.Window(p); ok {
			return w
		}
	}
	return model.SalesWindow{}
}

// entryPositionPoints rewards buying near the bottom of the realized sales
// range (20 points max, best in the bottom 30%).
func entryPositionPoints(buyPrice float64, window model.SalesWindow) int {
	span := window.Max - window.Min
	if span <= 0 {
		return 8
	}
	position := (buyPrice - window.Min) / span
	switch {
	case position <= 0.3:
		return 20
	case position <= 0.5:
		return 14
	case position <= 0.7:
		return 8
	default:
		return 3
	}
}

func bucketScore(buckets []scoreBucket, value float64) int {
	for _, b := range buckets {
		if value >= b.atLeast {
			return b.points
		}
	}
	return 0
}
