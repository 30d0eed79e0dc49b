// Package timeline implements the layout and viewport engine behind the
// opportunity timeline: level classification, time slot bucketing,
// collision-free stacking, canvas sizing, zoom/pan mapping, axis ticks and
// price curve projection. Every function in this package is pure; callers
// own whatever state they need to keep between recomputations.
package timeline

import (
	"fmt"
	"time"
)

// Layout holds the tunable geometry constants of the timeline canvas.
// All values are in canvas units (pixels for the SVG renderer).
type Layout struct {
	MinGap         float64 `yaml:"min_gap"`          // Minimum edge-to-edge gap between stacked markers
	LevelGap       float64 `yaml:"level_gap"`        // Extra gap inserted when the level changes inside a stack
	StrokeWidth    float64 `yaml:"stroke_width"`     // Marker stroke, drawn outside the marker radius
	Padding        float64 `yaml:"padding"`          // Horizontal padding on both sides of the chart area
	TopMargin      float64 `yaml:"top_margin"`       // Space above the highest marker
	BottomMargin   float64 `yaml:"bottom_margin"`    // Space between the baseline and the canvas bottom
	RightMargin    float64 `yaml:"right_margin"`     // Right edge inset of the visible window
	MinHeightFloor float64 `yaml:"min_height_floor"` // Canvas never gets shorter than this
	MinWidth       float64 `yaml:"min_width"`        // Canvas never gets narrower than this
	ContainerInset float64 `yaml:"container_inset"`  // Subtracted from the container width on resize
	VisibleSlack   float64 `yaml:"visible_slack"`    // Tolerance around the visible window when picking a zoom anchor
	SizingSentinel float64 `yaml:"sizing_sentinel"`  // Temporary baseline used by the sizing pass
	CurveBandRatio float64 `yaml:"curve_band_ratio"` // Share of the plot height reserved for the price curve
	HoverGrow      float64 `yaml:"hover_grow"`       // Radius increase of the hovered marker
	MinScale       float64 `yaml:"min_scale"`
	MaxScale       float64 `yaml:"max_scale"`
	ZoomInFactor   float64 `yaml:"zoom_in_factor"`
	ZoomOutFactor  float64 `yaml:"zoom_out_factor"`
}

// DefaultLayout returns the layout used when nothing is configured.
func DefaultLayout() Layout {
	return Layout{
		MinGap:         6,
		LevelGap:       8,
		StrokeWidth:    2,
		Padding:        60,
		TopMargin:      20,
		BottomMargin:   40,
		RightMargin:    20,
		MinHeightFloor: 300,
		MinWidth:       1200,
		ContainerInset: 80,
		VisibleSlack:   50,
		SizingSentinel: 1000,
		CurveBandRatio: 0.8,
		HoverGrow:      3,
		MinScale:       0.1,
		MaxScale:       10,
		ZoomInFactor:   1.1,
		ZoomOutFactor:  0.9,
	}
}

// Validate checks the layout for values the engine cannot work with.
func (l Layout) Validate() error {
	switch {
	case l.MinGap <= 0:
		return fmt.Errorf("min_gap must be positive, got %v", l.MinGap)
	case l.LevelGap < 0 || l.StrokeWidth < 0:
		return fmt.Errorf("level_gap and stroke_width cannot be negative")
	case l.Padding < 0 || l.TopMargin < 0 || l.BottomMargin < 0 || l.RightMargin < 0:
		return fmt.Errorf("padding and margins cannot be negative")
	case l.MinScale <= 0 || l.MaxScale < l.MinScale:
		return fmt.Errorf("invalid scale bounds [%v, %v]", l.MinScale, l.MaxScale)
	case l.ZoomInFactor <= 1 || l.ZoomOutFactor <= 0 || l.ZoomOutFactor >= 1:
		return fmt.Errorf("zoom factors must satisfy 0 < out < 1 < in")
	case l.CurveBandRatio <= 0 || l.CurveBandRatio > 1:
		return fmt.Errorf("curve_band_ratio must be in (0, 1], got %v", l.CurveBandRatio)
	case l.MinWidth <= 2*l.Padding:
		return fmt.Errorf("min_width %v leaves no room for padding %v", l.MinWidth, l.Padding)
	}
	return nil
}

// CanvasWidth derives the canvas width from the hosting container width.
func (l Layout) CanvasWidth(containerWidth float64) float64 {
	w := containerWidth - l.ContainerInset
	if w < l.MinWidth {
		return l.MinWidth
	}
	return w
}

// BaselineY returns the y coordinate of the timeline baseline.
func (l Layout) BaselineY(height float64) float64 {
	return height - l.BottomMargin
}

// Granularity is the width of a time slot, in minutes.
type Granularity int

// DefaultGranularity is the slot width used until the user picks another.
const DefaultGranularity Granularity = 5

// Granularities lists the slot widths offered to the user.
var Granularities = []Granularity{5, 15, 30, 60, 120, 240, 360, 720, 1440}

// Valid reports whether g is one of the offered slot widths.
func (g Granularity) Valid() bool {
	for _, allowed := range Granularities {
		if g == allowed {
			return true
		}
	}
	return false
}

// Duration returns the slot width as a time.Duration.
func (g Granularity) Duration() time.Duration {
	return time.Duration(g) * time.Minute
}

// Millis returns the slot width in milliseconds.
func (g Granularity) Millis() int64 {
	return int64(g) * 60 * 1000
}
