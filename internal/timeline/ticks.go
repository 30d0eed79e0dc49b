package timeline

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Tick is a generated time axis mark.
type Tick struct {
	Instant time.Time
	Ratio   float64
	Label   string
}

// PositionedTick is a tick placed on the canvas.
type PositionedTick struct {
	Tick
	X float64
}

// Label layouts by axis span.
const (
	labelDay    = "01-02"
	labelHour   = "01-02 15h"
	labelMinute = "15:04"
	labelSecond = "15:04:05"
)

const day = 24 * time.Hour

// tickPlan picks the label layout and tick count for an axis span.
func tickPlan(span time.Duration) (count int, layout string) {
	hours := span.Hours()
	switch {
	case span > 7*day:
		return clampInt(int(math.Ceil(hours/24)), 5, 10), labelDay
	case span > day:
		return clampInt(int(math.Ceil(hours/6)), 5, 10), labelHour
	case span > time.Hour:
		return clampInt(int(math.Ceil(hours)), 5, 12), labelMinute
	default:
		return clampInt(int(math.Ceil(span.Minutes()/5)), 5, 10), labelSecond
	}
}

// TimeTicks generates evenly spaced ticks across the axis. Labels are
// rendered in loc (UTC when nil). A zero-length axis yields a single tick;
// no events yield none.
func TimeTicks(axis TimeAxis, eventCount int, loc *time.Location) []Tick {
	if eventCount == 0 {
		return nil
	}
	if loc == nil {
		loc = time.UTC
	}
	span := axis.Span()
	count, layout := tickPlan(span)
	if span == 0 {
		return []Tick{{Instant: axis.Min, Ratio: 0, Label: axis.Min.In(loc).Format(layout)}}
	}
	ticks := make([]Tick, count)
	for i := range ticks {
		ratio := float64(i) / float64(count-1)
		at := axis.At(ratio)
		ticks[i] = Tick{Instant: at, Ratio: ratio, Label: at.In(loc).Format(layout)}
	}
	return ticks
}

// VisibleTicks positions ticks through t and keeps those that land inside
// [Padding, Width-RightMargin]. The input slice is not modified.
func VisibleTicks(ticks []Tick, t Transform, l Layout) []PositionedTick {
	lo, hi := t.Padding, t.Width-l.RightMargin
	var out []PositionedTick
	for _, tick := range ticks {
		x := t.DisplayX(tick.Instant)
		if x < lo || x > hi {
			continue
		}
		out = append(out, PositionedTick{Tick: tick, X: x})
	}
	return out
}

// ValueTick is a mark on the price axis.
type ValueTick struct {
	Value float64
	Ratio float64
	Label string
}

// ValueTicks returns count evenly spaced ticks over [min, max]. A
// degenerate range is widened to one unit.
func ValueTicks(min, max float64, count int) []ValueTick {
	if count < 2 {
		count = 2
	}
	span := max - min
	if span == 0 {
		span = 1
	}
	ticks := make([]ValueTick, count)
	for i := range ticks {
		ratio := float64(i) / float64(count-1)
		v := min + span*ratio
		ticks[i] = ValueTick{Value: v, Ratio: ratio, Label: "$" + decimal.NewFromFloat(v).StringFixed(0)}
	}
	return ticks
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
