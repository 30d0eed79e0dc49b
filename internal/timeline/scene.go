package timeline

import (
	"time"

	"arbTimeline/internal/domain"
)

// Marker is a drawable event marker.
type Marker struct {
	X       float64
	Y       float64
	Radius  float64
	Level   Level
	Hovered bool
	Event   *domain.Opportunity
}

// Connector links a stacked marker back to the baseline.
type Connector struct {
	X     float64
	FromY float64 // Baseline
	ToY   float64 // Marker centre
	Level Level
}

// Segment is a horizontal line.
type Segment struct {
	X1, X2, Y float64
}

// Scene is everything a renderer needs to draw one frame.
type Scene struct {
	Width      float64
	Height     float64
	Baseline   Segment
	Markers    []Marker
	Connectors []Connector
	Curve      Curve
	TimeTicks  []PositionedTick
	Legend     []LegendEntry
	Rates      RateRange
	Axis       TimeAxis
	View       ViewportState
	Empty      bool
}

// Input collects the state a scene is composed from.
type Input struct {
	Events      []*domain.Opportunity // Prepared (sorted, valid timestamps)
	Prices      []domain.PricePoint
	Granularity Granularity
	Width       float64 // Canvas width; MinWidth when zero
	Height      float64 // Canvas height; RequiredHeight when zero
	View        ViewportState
	HoveredID   string
	Layout      Layout
	Location    *time.Location // Tick labels; UTC when nil
}

// Compose runs the whole layout pipeline for in. It never fails: an
// empty event set yields an empty scene at the minimum height.
func Compose(in Input) Scene {
	l := in.Layout
	width := in.Width
	if width <= 0 {
		width = l.MinWidth
	}
	view := in.View
	if view.Scale == 0 {
		view = DefaultViewport()
	}

	axis, ok := TimeAxisOf(in.Events)
	if !ok {
		height := in.Height
		if height <= 0 {
			height = l.MinHeightFloor
		}
		return Scene{Width: width, Height: height, View: view, Empty: true}
	}

	rates := RateRangeOf(in.Events)
	height := in.Height
	if height <= 0 {
		height = RequiredHeight(in.Events, in.Granularity, rates, l)
	}
	baseline := l.BaselineY(height)
	tr := NewTransform(axis, width, l, view)

	scene := Scene{
		Width:    width,
		Height:   height,
		Baseline: Segment{X1: tr.DisplayX(axis.Min), X2: tr.DisplayX(axis.Max), Y: baseline},
		Legend:   Legend(rates),
		Rates:    rates,
		Axis:     axis,
		View:     view,
	}

	params := StackParamsFor(l, baseline)
	for _, slot := range Bucket(in.Events, in.Granularity) {
		x := tr.DisplayX(slot.Events[0].Timestamp)
		for _, p := range Stack(slot, rates, params) {
			m := Marker{X: x, Y: p.Y, Radius: p.Size, Level: p.Level, Event: p.Event}
			if in.HoveredID != "" && p.Event.ID == in.HoveredID {
				m.Hovered = true
				m.Radius += l.HoverGrow
			}
			scene.Markers = append(scene.Markers, m)
			if p.Y != baseline {
				scene.Connectors = append(scene.Connectors, Connector{X: x, FromY: baseline, ToY: p.Y, Level: p.Level})
			}
		}
	}

	scene.TimeTicks = VisibleTicks(TimeTicks(axis, len(in.Events), in.Location), tr, l)
	scene.Curve = ProjectCurve(in.Prices, tr, height, l)
	return scene
}

// MarkerAt returns the topmost marker containing the point (x, y), or
// nil when none does.
func (s Scene) MarkerAt(x, y float64) *Marker {
	for i := len(s.Markers) - 1; i >= 0; i-- {
		m := &s.Markers[i]
		dx, dy := x-m.X, y-m.Y
		if dx*dx+dy*dy <= m.Radius*m.Radius {
			return m
		}
	}
	return nil
}
