// Package wear extracts the float value embedded in an item's display name
// and derives the pricing multiplier for its wear condition.
package wear

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ragecodes1337/skinport-tracker-sub000/internal/model"
)

// floatPattern matches the first decimal number in a display name,
// e.g. "AK-47 | Redline (Field-Tested) 0.1834".
var floatPattern = regexp.MustCompile(`\d+\.\d+`)

// wearRange is one row of the fixed wear table: the float bounds of a
// condition and the cutoff below which a float counts as premium.
type wearRange struct {
	condition model.WearCondition
	aliases   []string
	min       float64
	max       float64
	premium   float64
}

var wearRanges = []wearRange{
	{model.WearFactoryNew, []string{"factory new", "(fn)"}, 0.00, 0.07, 0.01},
	{model.WearMinimalWear, []string{"minimal wear", "(mw)"}, 0.07, 0.15, 0.08},
	{model.WearFieldTested, []string{"field-tested", "field tested", "(ft)"}, 0.15, 0.38, 0.20},
	{model.WearWellWorn, []string{"well-worn", "well worn", "(ww)"}, 0.38, 0.45, 0.40},
	{model.WearBattleScarred, []string{"battle-scarred", "battle scarred", "(bs)"}, 0.45, 1.00, 0.50},
}

// Tier multipliers per wear condition. Rows: premium, good; average is
// always 1.0 and poor discounts toward the condition floor.
var (
	premiumMultipliers = map[model.WearCondition]float64{
		model.WearFactoryNew:  1.15,
		model.WearMinimalWear: 1.12,
		model.WearFieldTested: 1.08,
	}
	goodMultipliers = map[model.WearCondition]float64{
		model.WearFactoryNew:  1.08,
		model.WearMinimalWear: 1.06,
		model.WearFieldTested: 1.04,
	}
	poorMultipliers = map[model.WearCondition]float64{
		model.WearFactoryNew:  0.92,
		model.WearMinimalWear: 0.94,
		model.WearFieldTested: 0.96,
	}
)

const (
	defaultPremiumMultiplier = 1.05
	defaultGoodMultiplier    = 1.02
	defaultPoorMultiplier    = 0.98
)

// Analyze is total: any display name yields a profile and a name without an
// embedded decimal always yields hasFloat=false with multiplier 1.0.
func Analyze(displayName string) model.FloatProfile {
	match := floatPattern.FindString(displayName)
	if match == "" {
		return model.FloatProfile{
			WearCondition: Condition(displayName),
			Tier:          model.TierUnknown,
			Multiplier:    1.0,
		}
	}

	floatValue, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return model.FloatProfile{
			WearCondition: Condition(displayName),
			Tier:          model.TierUnknown,
			Multiplier:    1.0,
		}
	}

	profile := model.FloatProfile{
		HasFloat:   true,
		FloatValue: floatValue,
		Multiplier: 1.0,
	}

	rng, ok := matchRange(displayName)
	if !ok {
		profile.WearCondition = model.WearUnknown
		profile.Tier = model.TierUnknownWear
		return profile
	}
	profile.WearCondition = rng.condition

	if floatValue <= rng.premium {
		profile.Tier = model.TierPremium
		profile.Multiplier = lookup(premiumMultipliers, rng.condition, defaultPremiumMultiplier)
		return profile
	}

	position := (floatValue - rng.min) / (rng.max - rng.min)
	switch {
	case position <= 0.3:
		profile.Tier = model.TierGood
		profile.Multiplier = lookup(goodMultipliers, rng.condition, defaultGoodMultiplier)
	case position <= 0.7:
		profile.Tier = model.TierAverage
		profile.Multiplier = 1.0
	default:
		profile.Tier = model.TierPoor
		profile.Multiplier = lookup(poorMultipliers, rng.condition, defaultPoorMultiplier)
	}
	return profile
}

// Condition resolves the wear condition named in a display name, or UNKNOWN.
func Condition(displayName string) model.WearCondition {
	if rng, ok := matchRange(displayName); ok {
		return rng.condition
	}
	return model.WearUnknown
}

func matchRange(displayName string) (wearRange, bool) {
	lower := strings.ToLower(displayName)
	for _, rng := range wearRanges {
		for _, alias := range rng.aliases {
			if strings.Contains(lower, alias) {
				return rng, true
			}
		}
	}
	return wearRange{}, false
}

func lookup(table map[model.WearCondition]float64, condition model.WearCondition, fallback float64) float64 {
	if m, ok := table[condition]; ok {
		return m
	}
	return fallback
}
