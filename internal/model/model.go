// Package model defines the core data structures for the skinport-tracker service.
package model

import (
	"time"
)

// ItemQuote is one item submitted for analysis. It is read-only after creation.
type ItemQuote struct {
	// Name is the normalized catalog name and unique key for the item
	Name string `json:"name"`

	// BuyPrice is the current purchase price in the request currency
	BuyPrice float64 `json:"buyPrice"`

	// DisplayName is the raw listing title, optionally carrying wear/float info
	DisplayName string `json:"displayName,omitempty"`
}

// MarketSnapshot holds the current aggregate listing statistics for an item.
type MarketSnapshot struct {
	MinPrice    float64 `json:"minPrice"`
	MaxPrice    float64 `json:"maxPrice"`
	MeanPrice   float64 `json:"meanPrice"`
	MedianPrice float64 `json:"medianPrice"`
	Quantity    int     `json:"quantity"`
}

// SalesPeriod identifies one of the fixed trailing sales windows.
type SalesPeriod string

// Supported sales windows, newest first.
const (
	Period24h SalesPeriod = "24h"
	Period7d  SalesPeriod = "7d"
	Period30d SalesPeriod = "30d"
	Period90d SalesPeriod = "90d"
)

// RecencyRank orders periods by how current they are (24h=1 ... 90d=4).
func (p SalesPeriod) RecencyRank() int {
	switch p {
	case Period24h:
		return 1
	case Period7d:
		return 2
	case Period30d:
		return 3
	case Period90d:
		return 4
	}
	return 5
}

// SalesWindow holds realized-sale statistics over one trailing period.
// A missing window means no sales in that span.
type SalesWindow struct {
	Volume int     `json:"volume"`
	Avg    float64 `json:"avg"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// SalesHistory maps each available period to its window for one item.
type SalesHistory map[SalesPeriod]SalesWindow

// Window returns the window for a period and whether it carries any sales.
func (h SalesHistory) Window(p SalesPeriod) (SalesWindow, bool) {
	w, ok := h[p]
	return w, ok && w.Volume > 0
}

// WearCondition is the named wear grade embedded in a display name.
type WearCondition string

// Wear conditions, best to worst.
const (
	WearFactoryNew    WearCondition = "FN"
	WearMinimalWear   WearCondition = "MW"
	WearFieldTested   WearCondition = "FT"
	WearWellWorn      WearCondition = "WW"
	WearBattleScarred WearCondition = "BS"
	WearUnknown       WearCondition = "UNKNOWN"
)

// FloatTier classifies a float value within its wear range.
type FloatTier string

const (
	TierPremium     FloatTier = "PREMIUM"
	TierGood        FloatTier = "GOOD"
	TierAverage     FloatTier = "AVERAGE"
	TierPoor        FloatTier = "POOR"
	TierUnknown     FloatTier = "UNKNOWN"
	TierUnknownWear FloatTier = "UNKNOWN_WEAR"
)

// FloatProfile is the derived wear/float analysis of a display name.
// It is computed per request, never stored.
type FloatProfile struct {
	HasFloat      bool          `json:"hasFloat"`
	FloatValue    float64       `json:"floatValue,omitempty"`
	WearCondition WearCondition `json:"wearCondition"`
	Tier          FloatTier     `json:"tier"`
	Multiplier    float64       `json:"multiplier"`
}

// PricingStrategy tags how an achievable price was derived, or why the
// item was rejected.
type PricingStrategy string

const (
	StrategyRecentSales      PricingStrategy = "RECENT_SALES_BASED"
	StrategyCompetitive      PricingStrategy = "COMPETITIVE_OPPORTUNITY"
	StrategyHybrid           PricingStrategy = "PROFIT_PROTECTED_HYBRID"
	StrategyExtremeVolatile  PricingStrategy = "EXTREME_VOLATILITY"
	StrategyProfitImpossible PricingStrategy = "PROFIT_IMPOSSIBLE"
)

// PriceConfidence buckets the sales volume backing a pricing decision.
type PriceConfidence string

const (
	PriceConfidenceHigh     PriceConfidence = "HIGH"
	PriceConfidenceMedium   PriceConfidence = "MEDIUM"
	PriceConfidenceLow      PriceConfidence = "LOW"
	PriceConfidenceVeryLow  PriceConfidence = "VERY_LOW"
	PriceConfidenceRejected PriceConfidence = "REJECTED"
)

// TrendDirection labels the short-term price movement of an item.
type TrendDirection string

const (
	TrendRising  TrendDirection = "RISING"
	TrendFalling TrendDirection = "FALLING"
	TrendStable  TrendDirection = "STABLE"
)

// PricingDecision is the outcome of the pricing engine for one item.
// AchievablePrice 0 signals rejection; Confidence is then REJECTED and
// every downstream consumer must check for it before proceeding.
type PricingDecision struct {
	// BuyPrice echoes the original purchase price so downstream scoring
	// never has to reconstruct it
	BuyPrice float64 `json:"buyPrice"`

	AchievablePrice float64         `json:"achievablePrice"`
	Strategy        PricingStrategy `json:"strategy"`
	Confidence      PriceConfidence `json:"confidence"`
	Reasoning       string          `json:"reasoning"`

	// Market context carried along for the scorers
	MinProfitablePrice float64        `json:"minProfitablePrice"`
	MarketTolerance    float64        `json:"marketTolerance"`
	ReferenceAvg       float64        `json:"referenceAvg"`
	SalesVolatility    float64        `json:"salesVolatility"`
	WeeklyVolume       int            `json:"weeklyVolume"`
	VelocityCategory   string         `json:"velocityCategory"`
	StableCategory     bool           `json:"stableCategory"`
	HighVelocity       bool           `json:"highVelocity"`
	Trend              TrendDirection `json:"trend"`
}

// Rejected reports whether the decision is the rejection sentinel.
func (d PricingDecision) Rejected() bool {
	return d.AchievablePrice == 0
}

// NetProceeds returns the seller take after fees at the achievable price.
func (d PricingDecision) NetProceeds(sellerFee float64) float64 {
	return d.AchievablePrice * (1 - sellerFee)
}

// ConfidenceLevel is the coarse confidence grade of a verdict.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "HIGH"
	ConfidenceMedium ConfidenceLevel = "MEDIUM"
	ConfidenceLow    ConfidenceLevel = "LOW"
)

// ColorCode is the tri-color rating of the dual-criteria verdict.
type ColorCode string

const (
	ColorGreen  ColorCode = "GREEN"
	ColorOrange ColorCode = "ORANGE"
	ColorRed    ColorCode = "RED"
)

// ConfidenceVerdict is the dual-criteria (profitability x liquidity) result.
type ConfidenceVerdict struct {
	Level              ConfidenceLevel `json:"level"`
	Score              int             `json:"score"`
	ColorCode          ColorCode       `json:"colorCode"`
	SubLabel           string          `json:"subLabel,omitempty"`
	StabilityRating    string          `json:"stabilityRating"`
	ProfitabilityScore int             `json:"profitabilityScore"`
	LiquidityScore     int             `json:"liquidityScore"`
	Factors            []string        `json:"factors,omitempty"`
}

// FlipTier is the weekly flip recommendation bucket.
type FlipTier string

const (
	FlipExcellent FlipTier = "EXCELLENT"
	FlipGood      FlipTier = "GOOD"
	FlipModerate  FlipTier = "MODERATE"
	FlipAvoid     FlipTier = "AVOID"
)

// WeeklyFlipVerdict scores 3-7 day resale viability for one item.
type WeeklyFlipVerdict struct {
	Score           int      `json:"score"`
	Recommendation  FlipTier `json:"recommendation"`
	SellDaysMin     int      `json:"sellDaysMin"`
	SellDaysMax     int      `json:"sellDaysMax"`
	TargetMargin    float64  `json:"targetMargin"`
	SellProbability float64  `json:"sellProbability"`
	HoldPrice       float64  `json:"holdPrice"`
}

// Opportunity is one fully scored flip candidate in the response.
type Opportunity struct {
	Name            string            `json:"name"`
	BuyPrice        float64           `json:"buyPrice"`
	AchievablePrice float64           `json:"achievablePrice"`
	ProfitAmount    float64           `json:"profitAmount"`
	ProfitPercent   float64           `json:"profitPercent"`
	Currency        string            `json:"currency"`
	Pricing         PricingDecision   `json:"pricing"`
	Float           FloatProfile      `json:"float"`
	Confidence      ConfidenceVerdict `json:"confidence"`
	WeeklyFlip      WeeklyFlipVerdict `json:"weeklyFlip"`
	Snapshot        MarketSnapshot    `json:"snapshot"`
}

// AnalysisSettings are the caller-supplied options of a run.
type AnalysisSettings struct {
	Currency            string  `json:"currency"`
	MinProfitAmount     float64 `json:"minProfitAmount"`
	MinProfitPercentage float64 `json:"minProfitPercentage"`
}

// AnalysisRequest is the inbound analyze payload.
type AnalysisRequest struct {
	Items    []ItemQuote       `json:"items"`
	Settings *AnalysisSettings `json:"settings"`
}

// AnalysisSummary counts what happened during a run.
type AnalysisSummary struct {
	TotalProcessed     int `json:"totalProcessed"`
	ProfitableFound    int `json:"profitableFound"`
	UniqueItemsChecked int `json:"uniqueItemsChecked"`
	MarketDataFound    int `json:"marketDataFound"`
	SalesDataFound     int `json:"salesDataFound"`
}

// AnalysisResult is the full response of one run.
type AnalysisResult struct {
	Opportunities []Opportunity   `json:"opportunities"`
	Summary       AnalysisSummary `json:"summary"`
	GeneratedAt   time.Time       `json:"generatedAt"`
}
