package timeline

import (
	"math"

	"github.com/shopspring/decimal"

	"arbTimeline/internal/domain"
)

// Level is the ordinal magnitude tier of an opportunity.
type Level int

const (
	LevelLow Level = iota
	LevelMedium
	LevelElevated
	LevelHigh
)

// NumLevels is the number of distinct levels.
const NumLevels = 4

// Normalized thresholds separating the levels.
var levelBounds = [NumLevels - 1]float64{0.3, 0.6, 0.8}

const (
	minMarkerSize  = 6.0
	markerSizeSpan = 10.0
)

// String returns the name of the level.
func (l Level) String() string {
	switch l {
	case LevelLow:
		return "low"
	case LevelMedium:
		return "medium"
	case LevelElevated:
		return "elevated"
	case LevelHigh:
		return "high"
	default:
		return "unknown"
	}
}

// RateRange is the [Min, Max] span of profit rates over a collection.
type RateRange struct {
	Min float64
	Max float64
}

// Span returns Max - Min.
func (r RateRange) Span() float64 {
	return r.Max - r.Min
}

// Degenerate reports whether every rate in the collection is equal.
func (r RateRange) Degenerate() bool {
	return r.Span() == 0
}

// RateRangeOf computes the profit rate range of the given opportunities.
// An empty collection yields the zero range.
func RateRangeOf(opps []*domain.Opportunity) RateRange {
	r := RateRange{Min: math.Inf(1), Max: math.Inf(-1)}
	seen := false
	for _, o := range opps {
		if o == nil {
			continue
		}
		seen = true
		r.Min = math.Min(r.Min, o.ProfitRate)
		r.Max = math.Max(r.Max, o.ProfitRate)
	}
	if !seen {
		return RateRange{}
	}
	return r
}

// Normalize maps rate onto [0, 1] relative to r. A degenerate range maps
// everything to 0.
func Normalize(rate float64, r RateRange) float64 {
	if r.Degenerate() {
		return 0
	}
	return (rate - r.Min) / r.Span()
}

// Classify returns the level and marker size for a profit rate.
// Size grows linearly from 6 to 16 across the range.
func Classify(rate float64, r RateRange) (Level, float64) {
	n := Normalize(rate, r)
	return levelOf(n), minMarkerSize + n*markerSizeSpan
}

func levelOf(normalized float64) Level {
	for i, bound := range levelBounds {
		if normalized < bound {
			return Level(i)
		}
	}
	return LevelHigh
}

// Thresholds returns the profit rates at which the level changes.
func Thresholds(r RateRange) [NumLevels - 1]float64 {
	var t [NumLevels - 1]float64
	for i, bound := range levelBounds {
		if r.Degenerate() {
			t[i] = r.Min
			continue
		}
		t[i] = r.Min + r.Span()*bound
	}
	return t
}

// LegendEntry describes one level in the legend.
type LegendEntry struct {
	Level Level
	Low   float64 // Lower rate bound, -Inf for the lowest level
	High  float64 // Upper rate bound, +Inf for the highest level
	Label string
	Empty bool // No rate can fall in this level
}

// Legend builds the legend entries for r, lowest level first. A degenerate
// range puts every rate in the lowest level, which is labelled with the
// exact rate; the other levels are marked Empty.
func Legend(r RateRange) []LegendEntry {
	if r.Degenerate() {
		entries := []LegendEntry{{Level: LevelLow, Low: r.Min, High: r.Max, Label: FormatRate(r.Min) + "%"}}
		for l := LevelMedium; l <= LevelHigh; l++ {
			entries = append(entries, LegendEntry{Level: l, Low: r.Min, High: r.Max, Empty: true})
		}
		return entries
	}
	t := Thresholds(r)
	return []LegendEntry{
		{Level: LevelLow, Low: math.Inf(-1), High: t[0], Label: "<" + FormatRate(t[0]) + "%"},
		{Level: LevelMedium, Low: t[0], High: t[1], Label: FormatRate(t[0]) + "-" + FormatRate(t[1]) + "%"},
		{Level: LevelElevated, Low: t[1], High: t[2], Label: FormatRate(t[1]) + "-" + FormatRate(t[2]) + "%"},
		{Level: LevelHigh, Low: t[2], High: math.Inf(1), Label: ">" + FormatRate(t[2]) + "%"},
	}
}

// FormatRate renders a percentage with precision adapted to its magnitude.
func FormatRate(v float64) string {
	places := int32(1)
	switch {
	case v < 0.1:
		places = 3
	case v < 1:
		places = 2
	}
	return decimal.NewFromFloat(v).StringFixed(places)
}
