package timeline

import (
	"math"
	"strconv"
	"strings"
	"time"

	"arbTimeline/internal/domain"
)

// valueTickCount is the number of labels on the price axis.
const valueTickCount = 5

// CurvePoint is a projected sample of the auxiliary series.
type CurvePoint struct {
	X     float64
	Y     float64
	Value float64
	Time  time.Time
}

// PositionedValueTick is a price label placed on the canvas.
type PositionedValueTick struct {
	ValueTick
	Y float64
}

// Curve is the projected price series.
type Curve struct {
	Points     []CurvePoint
	Min        float64
	Max        float64
	BandTop    float64
	BandBottom float64
	Path       string // Polyline through Points
	AreaPath   string // Path closed down to BandBottom
	Ticks      []PositionedValueTick
}

// Empty reports whether the curve has nothing to draw.
func (c Curve) Empty() bool {
	return len(c.Points) == 0
}

// ProjectCurve maps the series samples inside the axis span into the top
// band of a canvas of the given height, sharing the x mapping of t.
// Samples are expected in ascending time order.
func ProjectCurve(series []domain.PricePoint, t Transform, height float64, l Layout) Curve {
	var inRange []domain.PricePoint
	for _, p := range series {
		if p.Timestamp.Before(t.Axis.Min) || p.Timestamp.After(t.Axis.Max) {
			continue
		}
		inRange = append(inRange, p)
	}
	if len(inRange) == 0 {
		return Curve{}
	}

	minV, maxV := math.Inf(1), math.Inf(-1)
	for _, p := range inRange {
		minV = math.Min(minV, p.Close)
		maxV = math.Max(maxV, p.Close)
	}
	span := maxV - minV
	if span == 0 {
		span = 1
	}

	top := l.TopMargin
	bandHeight := (height - l.BottomMargin - top) * l.CurveBandRatio
	bottom := top + bandHeight
	yOf := func(v float64) float64 {
		return bottom - (v-minV)/span*bandHeight
	}

	c := Curve{Min: minV, Max: maxV, BandTop: top, BandBottom: bottom}
	c.Points = make([]CurvePoint, len(inRange))
	for i, p := range inRange {
		c.Points[i] = CurvePoint{X: t.DisplayX(p.Timestamp), Y: yOf(p.Close), Value: p.Close, Time: p.Timestamp}
	}
	for _, vt := range ValueTicks(minV, minV+span, valueTickCount) {
		c.Ticks = append(c.Ticks, PositionedValueTick{ValueTick: vt, Y: yOf(vt.Value)})
	}
	c.Path = polyline(c.Points)
	last, first := c.Points[len(c.Points)-1], c.Points[0]
	c.AreaPath = c.Path + " L " + coord(last.X, bottom) + " L " + coord(first.X, bottom) + " Z"
	return c
}

func polyline(points []CurvePoint) string {
	var sb strings.Builder
	for i, p := range points {
		if i == 0 {
			sb.WriteString("M ")
		} else {
			sb.WriteString(" L ")
		}
		sb.WriteString(coord(p.X, p.Y))
	}
	return sb.String()
}

func coord(x, y float64) string {
	return strconv.FormatFloat(x, 'f', 2, 64) + " " + strconv.FormatFloat(y, 'f', 2, 64)
}
