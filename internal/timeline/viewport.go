package timeline

import (
	"math"
	"time"

	"arbTimeline/internal/domain"
)

// ViewportState is the zoom and pan applied on top of the base layout.
type ViewportState struct {
	Scale     float64
	PanOffset float64 // Horizontal shift in canvas units
}

// DefaultViewport returns the unzoomed, unpanned viewport.
func DefaultViewport() ViewportState {
	return ViewportState{Scale: 1}
}

// TimeAxis is the time span covered by the chart.
type TimeAxis struct {
	Min time.Time
	Max time.Time
}

// TimeAxisOf returns the axis spanning sorted events. ok is false for an
// empty collection.
func TimeAxisOf(sorted []*domain.Opportunity) (axis TimeAxis, ok bool) {
	if len(sorted) == 0 {
		return TimeAxis{}, false
	}
	return TimeAxis{Min: sorted[0].Timestamp, Max: sorted[len(sorted)-1].Timestamp}, true
}

// Span returns Max - Min.
func (a TimeAxis) Span() time.Duration {
	return a.Max.Sub(a.Min)
}

// Ratio returns where t falls on the axis, 0 at Min and 1 at Max.
// A zero-length axis maps everything to 0.
func (a TimeAxis) Ratio(t time.Time) float64 {
	span := a.Span()
	if span == 0 {
		return 0
	}
	return float64(t.Sub(a.Min)) / float64(span)
}

// At returns the instant at the given ratio.
func (a TimeAxis) At(ratio float64) time.Time {
	return a.Min.Add(time.Duration(float64(a.Span()) * ratio))
}

// Transform maps instants to horizontal canvas coordinates.
type Transform struct {
	Axis    TimeAxis
	Width   float64 // Canvas width
	Padding float64
	View    ViewportState
}

// NewTransform builds a transform for the given canvas width and viewport.
func NewTransform(axis TimeAxis, width float64, l Layout, view ViewportState) Transform {
	return Transform{Axis: axis, Width: width, Padding: l.Padding, View: view}
}

// ChartWidth returns the drawable width between the paddings.
func (t Transform) ChartWidth() float64 {
	return t.Width - 2*t.Padding
}

// UnscaledX returns the position of ts before zoom and pan.
func (t Transform) UnscaledX(ts time.Time) float64 {
	return t.Padding + t.ChartWidth()*t.Axis.Ratio(ts)
}

// DisplayX returns the on-screen position of ts.
func (t Transform) DisplayX(ts time.Time) float64 {
	return t.UnscaledX(ts)*t.View.Scale + t.View.PanOffset
}

// VisibleWindow returns the horizontal range, with slack, in which an
// event counts as visible for anchor selection.
func (t Transform) VisibleWindow(l Layout) (lo, hi float64) {
	return t.Padding - l.VisibleSlack, t.Width - l.RightMargin + l.VisibleSlack
}

// FindAnchor returns the event a zoom should keep in place: the rightmost
// event inside the visible window, or the last event when none is visible.
// On equal positions the earliest candidate wins. Returns nil for no events.
func FindAnchor(sorted []*domain.Opportunity, t Transform, l Layout) *domain.Opportunity {
	if len(sorted) == 0 {
		return nil
	}
	lo, hi := t.VisibleWindow(l)
	var anchor *domain.Opportunity
	rightmost := math.Inf(-1)
	for _, o := range sorted {
		x := t.DisplayX(o.Timestamp)
		if x >= lo && x <= hi && x > rightmost {
			rightmost = x
			anchor = o
		}
	}
	if anchor == nil {
		anchor = sorted[len(sorted)-1]
	}
	return anchor
}

// ClampScale bounds s to the layout's scale limits.
func ClampScale(s float64, l Layout) float64 {
	return math.Max(l.MinScale, math.Min(l.MaxScale, s))
}

// ZoomFactor converts a wheel delta into a scale multiplier. Scrolling
// down (positive delta) zooms out.
func ZoomFactor(delta float64, l Layout) float64 {
	if delta > 0 {
		return l.ZoomOutFactor
	}
	return l.ZoomInFactor
}

// ZoomAt rescales v by factor while keeping anchor at the same screen
// position. t supplies the axis and canvas geometry; its View is replaced
// by v.
func (v ViewportState) ZoomAt(t Transform, anchor time.Time, factor float64, l Layout) ViewportState {
	t.View = v
	before := t.DisplayX(anchor)
	scale := ClampScale(v.Scale*factor, l)
	return ViewportState{
		Scale:     scale,
		PanOffset: before - t.UnscaledX(anchor)*scale,
	}
}

// Pan shifts the view horizontally. The scale is untouched.
func (v ViewportState) Pan(delta float64) ViewportState {
	return ViewportState{Scale: v.Scale, PanOffset: v.PanOffset + delta}
}

// Zoom applies a wheel gesture: it picks the anchor among sorted and zooms
// around it. With no events the viewport is returned unchanged.
func Zoom(sorted []*domain.Opportunity, t Transform, delta float64, l Layout) ViewportState {
	anchor := FindAnchor(sorted, t, l)
	if anchor == nil {
		return t.View
	}
	return t.View.ZoomAt(t, anchor.Timestamp, ZoomFactor(delta, l), l)
}
