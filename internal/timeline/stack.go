package timeline

import (
	"math"
	"sort"

	"arbTimeline/internal/domain"
)

// radiusGapFactor scales the separation with the larger of two neighbours.
const radiusGapFactor = 0.05

// StackParams are the inputs of a single stacking pass.
type StackParams struct {
	BaselineY   float64
	MinGap      float64
	LevelGap    float64
	StrokeWidth float64
}

// StackParamsFor builds stacking parameters from a layout.
func StackParamsFor(l Layout, baselineY float64) StackParams {
	return StackParams{
		BaselineY:   baselineY,
		MinGap:      l.MinGap,
		LevelGap:    l.LevelGap,
		StrokeWidth: l.StrokeWidth,
	}
}

// StackedPoint is an opportunity placed inside its slot's stack.
type StackedPoint struct {
	Event   *domain.Opportunity
	X       float64
	Y       float64
	SlotKey int64
	Rank    int // 0 is the bottom of the stack
	Level   Level
	Size    float64 // Marker radius before stroke
}

// FullRadius returns the space the marker occupies, stroke included.
func (p StackedPoint) FullRadius(strokeWidth float64) float64 {
	return p.Size + strokeWidth
}

// StackOrder returns the bottom-to-top order of a slot: grouped by level
// ascending, and by profit rate ascending inside each level.
func StackOrder(events []*domain.Opportunity, r RateRange) []*domain.Opportunity {
	var groups [NumLevels][]*domain.Opportunity
	for _, o := range events {
		level, _ := Classify(o.ProfitRate, r)
		groups[level] = append(groups[level], o)
	}
	ordered := make([]*domain.Opportunity, 0, len(events))
	for _, g := range groups {
		sort.SliceStable(g, func(i, j int) bool {
			return g[i].ProfitRate < g[j].ProfitRate
		})
		ordered = append(ordered, g...)
	}
	return ordered
}

// Stack assigns vertical positions to the opportunities of one slot.
// The first point sits on the baseline and each following point is placed
// above its predecessor with at least MinGap between their outer edges.
// X is left at zero; the caller positions the slot horizontally.
func Stack(slot Slot, r RateRange, p StackParams) []StackedPoint {
	if len(slot.Events) == 0 {
		return nil
	}
	if len(slot.Events) == 1 {
		level, size := Classify(slot.Events[0].ProfitRate, r)
		return []StackedPoint{{
			Event:   slot.Events[0],
			Y:       p.BaselineY,
			SlotKey: slot.Key,
			Level:   level,
			Size:    size,
		}}
	}

	ordered := StackOrder(slot.Events, r)
	points := make([]StackedPoint, len(ordered))
	currentY := p.BaselineY
	for i, o := range ordered {
		level, size := Classify(o.ProfitRate, r)
		cur := StackedPoint{Event: o, SlotKey: slot.Key, Rank: i, Level: level, Size: size}
		if i > 0 {
			prev := points[i-1]
			prevR := prev.FullRadius(p.StrokeWidth)
			curR := cur.FullRadius(p.StrokeWidth)
			gap := p.MinGap + radiusGapFactor*math.Max(prevR, curR)
			if level != prev.Level {
				gap += p.LevelGap
			}
			currentY = currentY - prevR - gap - curR
		}
		cur.Y = currentY
		points[i] = cur
	}
	return points
}
