// Package timeframe chooses the sales window that best represents an item's
// current market and labels its short-term trend.
package timeframe

import (
	"github.com/ragecodes1337/skinport-tracker-sub000/internal/model"
)

// Confidence grades how much window coverage backs a selection.
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
)

// Selection is the chosen window plus its context labels.
type Selection struct {
	Period     model.SalesPeriod
	Window     model.SalesWindow
	Limited    bool
	Trend      model.TrendDirection
	Confidence Confidence
}

// selectionRule is one row of the ordered selection policy.
type selectionRule struct {
	period    model.SalesPeriod
	minVolume int
	limited   bool
}

// Selection policy, evaluated top to bottom, first match wins.
var selectionRules = []selectionRule{
	{period: model.Period24h, minVolume: 3},
	{period: model.Period7d, minVolume: 5},
	{period: model.Period7d, minVolume: 2, limited: true},
	{period: model.Period30d, minVolume: 8},
}

// Trend thresholds in percent. The recent pair (24h vs 7d) reacts faster
// than the longer pair (7d vs 30d).
const (
	recentTrendThreshold = 8.0
	longTrendThreshold   = 10.0
)

// Select picks the most representative window for the history. The second
// return value is false when no window carries any sales; callers skip the
// item in that case.
func Select(history model.SalesHistory) (Selection, bool) {
	available := 0
	for _, p := range []model.SalesPeriod{model.Period24h, model.Period7d, model.Period30d, model.Period90d} {
		if _, ok := history.Window(p); ok {
			available++
		}
	}
	if available == 0 {
		return Selection{}, false
	}

	sel := Selection{
		Trend:      trend(history),
		Confidence: ConfidenceMedium,
	}
	if available >= 2 {
		sel.Confidence = ConfidenceHigh
	}

	for _, rule := range selectionRules {
		if w, ok := history.Window(rule.period); ok && w.Volume >= rule.minVolume {
			sel.Period = rule.period
			sel.Window = w
			sel.Limited = rule.limited
			return sel, true
		}
	}

	// Fall back to the most recent window that has any sales at all.
	best := model.SalesPeriod("")
	for p, w := range history {
		if w.Volume <= 0 {
			continue
		}
		if best == "" || p.RecencyRank() < best.RecencyRank() {
			best = p
		}
	}
	sel.Period = best
	sel.Window, _ = history.Window(best)
	return sel, true
}

// trend compares the 24h and 7d averages when both exist, otherwise 7d vs
// 30d with wider thresholds, otherwise reports STABLE.
func trend(history model.SalesHistory) model.TrendDirection {
	if recent, ok := history.Window(model.Period24h); ok {
		if base, ok := history.Window(model.Period7d); ok && base.Avg > 0 {
			return classify((recent.Avg-base.Avg)/base.Avg*100, recentTrendThreshold)
		}
	}
	if recent, ok := history.Window(model.Period7d); ok {
		if base, ok := history.Window(model.Period30d); ok && base.Avg > 0 {
			return classify((recent.Avg-base.Avg)/base.Avg*100, longTrendThreshold)
		}
	}
	return model.TrendStable
}

func classify(deltaPercent, threshold float64) model.TrendDirection {
	switch {
	case deltaPercent > threshold:
		return model.TrendRising
	case deltaPercent < -threshold:
		return model.TrendFalling
	default:
		return model.TrendStable
	}
}
