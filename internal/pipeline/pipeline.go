// Package pipeline drives the per-item analysis: data acquisition through the
// batched sources, scoring through the pricing and verdict engines, and
// assembly of the ranked opportunity list.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ragecodes1337/skinport-tracker-sub000/internal/batch"
	"github.com/ragecodes1337/skinport-tracker-sub000/internal/confidence"
	"github.com/ragecodes1337/skinport-tracker-sub000/internal/model"
	"github.com/ragecodes1337/skinport-tracker-sub000/internal/pricing"
	"github.com/ragecodes1337/skinport-tracker-sub000/internal/timeframe"
	"github.com/ragecodes1337/skinport-tracker-sub000/internal/wear"
	"github.com/ragecodes1337/skinport-tracker-sub000/internal/weekly"
)

// ErrInvalidRequest rejects a malformed analysis request wholesale.
var ErrInvalidRequest = errors.New("analysis request must carry items and settings")

// SnapshotProvider yields the current listing snapshot for the catalog.
type SnapshotProvider interface {
	Fetch(ctx context.Context, currency string) (map[string]model.MarketSnapshot, error)
}

// SalesProvider yields sales histories for one batch of names.
type SalesProvider interface {
	Fetch(ctx context.Context, names []string, currency string) map[string]model.SalesHistory
}

// Pipeline owns no cross-request state; the caches and limiter live inside
// the injected sources.
type Pipeline struct {
	snapshots       SnapshotProvider
	sales           SalesProvider
	planner         *batch.Planner
	defaultCurrency string
	interBatchDelay time.Duration

	// decide is the pricing entry point, held as a field so scoring faults
	// can be driven in tests.
	decide func(model.ItemQuote, model.MarketSnapshot, model.SalesHistory, timeframe.Selection, model.FloatProfile) model.PricingDecision
}

// New assembles a pipeline around the given sources.
func New(snapshots SnapshotProvider, sales SalesProvider, planner *batch.Planner, defaultCurrency string, interBatchDelay time.Duration) *Pipeline {
	return &Pipeline{
		snapshots:       snapshots,
		sales:           sales,
		planner:         planner,
		defaultCurrency: defaultCurrency,
		interBatchDelay: interBatchDelay,
		decide:          pricing.Decide,
	}
}

// Run analyzes every item of the request and returns the ranked result. Only
// a malformed request or a transport-level snapshot failure aborts the run;
// every per-item problem is skipped and reflected in the summary counts.
func (p *Pipeline) Run(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisResult, error) {
	if len(req.Items) == 0 || req.Settings == nil {
		return nil, ErrInvalidRequest
	}

	settings := *req.Settings
	if settings.Currency == "" {
		settings.Currency = p.defaultCurrency
	}

	snapshots, err := p.snapshots.Fetch(ctx, settings.Currency)
	if err != nil {
		return nil, fmt.Errorf("loading market snapshot: %w", err)
	}

	names := uniqueNames(req.Items)
	histories := p.fetchSales(ctx, names, settings.Currency)

	summary := model.AnalysisSummary{
		TotalProcessed:     len(req.Items),
		UniqueItemsChecked: len(names),
	}
	for _, name := range names {
		if _, ok := snapshots[name]; ok {
			summary.MarketDataFound++
		}
		if _, ok := histories[name]; ok {
			summary.SalesDataFound++
		}
	}

	var opportunities []model.Opportunity
	for _, item := range req.Items {
		opp, ok := p.analyzeItem(item, settings, snapshots, histories)
		if ok {
			opportunities = append(opportunities, opp)
		}
	}

	// Rank by overall confidence, then by absolute profit.
	sort.SliceStable(opportunities, func(i, j int) bool {
		if opportunities[i].Confidence.Score != opportunities[j].Confidence.Score {
			return opportunities[i].Confidence.Score > opportunities[j].Confidence.Score
		}
		return opportunities[i].ProfitAmount > opportunities[j].ProfitAmount
	})

	summary.ProfitableFound = len(opportunities)
	return &model.AnalysisResult{
		Opportunities: opportunities,
		Summary:       summary,
		GeneratedAt:   time.Now().UTC(),
	}, nil
}

// fetchSales walks the planned batches sequentially with a pause between
// batches; the limiter inside the source paces the actual calls.
func (p *Pipeline) fetchSales(ctx context.Context, names []string, currency string) map[string]model.SalesHistory {
	histories := make(map[string]model.SalesHistory, len(names))
	batches := p.planner.Plan(names)
	for i, b := range batches {
		if i > 0 && p.interBatchDelay > 0 {
			timer := time.NewTimer(p.interBatchDelay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				logrus.Warn("Sales fetch interrupted between batches")
				return histories
			}
		}
		for name, history := range p.sales.Fetch(ctx, b, currency) {
			histories[name] = history
		}
	}
	return histories
}

// analyzeItem scores one item. A panic while scoring is confined to the item:
// it is logged and the item is skipped, never the run.
func (p *Pipeline) analyzeItem(item model.ItemQuote, settings model.AnalysisSettings, snapshots map[string]model.MarketSnapshot, histories map[string]model.SalesHistory) (opp model.Opportunity, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithFields(logrus.Fields{
				"item":  item.Name,
				"panic": r,
			}).Error("Item analysis fault isolated")
			ok = false
		}
	}()

	name := batch.Normalize(item.Name)
	if name == "" || item.BuyPrice <= 0 {
		return model.Opportunity{}, false
	}

	snapshot, hasSnapshot := snapshots[name]
	if !hasSnapshot {
		return model.Opportunity{}, false
	}
	history, hasSales := histories[name]
	if !hasSales {
		return model.Opportunity{}, false
	}

	display := item.DisplayName
	if display == "" {
		display = name
	}

	// Worst-wear variants are not flip material.
	if wear.Condition(display) == model.WearBattleScarred {
		return model.Opportunity{}, false
	}

	sel, usable := timeframe.Select(history)
	if !usable {
		return model.Opportunity{}, false
	}

	profile := wear.Analyze(display)
	quote := model.ItemQuote{Name: name, BuyPrice: item.BuyPrice, DisplayName: display}

	decision := p.decide(quote, snapshot, history, sel, profile)
	if decision.Rejected() {
		logrus.WithFields(logrus.Fields{
			"item":   name,
			"reason": decision.Reasoning,
		}).Debug("Item rejected by pricing engine")
		return model.Opportunity{}, false
	}

	profit := decision.NetProceeds(pricing.SellerFee) - item.BuyPrice
	profitPercent := profit / item.BuyPrice * 100
	if profit < settings.MinProfitAmount || profitPercent < settings.MinProfitPercentage {
		return model.Opportunity{}, false
	}

	return model.Opportunity{
		Name:            name,
		BuyPrice:        item.BuyPrice,
		AchievablePrice: decision.AchievablePrice,
		ProfitAmount:    profit,
		ProfitPercent:   profitPercent,
		Currency:        settings.Currency,
		Pricing:         decision,
		Float:           profile,
		Confidence:      confidence.Score(decision, snapshot, history),
		WeeklyFlip:      weekly.Assess(decision, history),
		Snapshot:        snapshot,
	}, true
}

// uniqueNames returns the normalized names in first-seen order.
func uniqueNames(items []model.ItemQuote) []string {
	seen := make(map[string]struct{}, len(items))
	names := make([]string, 0, len(items))
	for _, item := range items {
		name := batch.Normalize(item.Name)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}
