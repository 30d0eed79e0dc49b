// Package chart renders histogram bins as bar charts with go-chart.
package chart

import (
	"fmt"
	"io"
	"math"
	"strings"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"arbTimeline/internal/analytics"
	"arbTimeline/internal/ports"
	"arbTimeline/internal/timeline"
)

// Format selects the output encoding.
type Format string

const (
	PNG Format = "png"
	SVG Format = "svg"
)

// Config holds the chart dimensions and colors.
type Config struct {
	Format    Format
	Width     int
	Height    int
	BarColor  string // Hex, used for hour bins
	RateColor [timeline.NumLevels]string
}

// Renderer implements ports.HistogramRenderer.
type Renderer struct {
	cfg Config
}

// NewRenderer creates a histogram renderer. Zero dimensions fall back to
// 1024x400 and an empty format to PNG.
func NewRenderer(cfg Config) *Renderer {
	if cfg.Width <= 0 {
		cfg.Width = 1024
	}
	if cfg.Height <= 0 {
		cfg.Height = 400
	}
	if cfg.Format == "" {
		cfg.Format = PNG
	}
	if cfg.BarColor == "" {
		cfg.BarColor = "#8b5cf6"
	}
	return &Renderer{cfg: cfg}
}

// RenderMagnitude draws the profit rate distribution. Bars are colored by
// the level their range midpoint falls in.
func (r *Renderer) RenderMagnitude(w io.Writer, bins []analytics.HistogramBin) error {
	if len(bins) == 0 {
		return fmt.Errorf("no magnitude bins: %w", ports.ErrInvalidRequest)
	}
	rates := timeline.RateRange{Min: bins[0].RangeLow, Max: bins[len(bins)-1].RangeHigh}
	bars := make([]gochart.Value, len(bins))
	for i, b := range bins {
		level, _ := timeline.Classify((b.RangeLow+b.RangeHigh)/2, rates)
		bars[i] = gochart.Value{
			Label: timeline.FormatRate(b.RangeLow),
			Value: float64(b.Count),
			Style: barStyle(r.levelColor(level)),
		}
	}
	return r.render(w, "Profit rate distribution (%)", bars)
}

// RenderHours draws the hour-of-day distribution.
func (r *Renderer) RenderHours(w io.Writer, bins []analytics.HourBin) error {
	if len(bins) == 0 {
		return fmt.Errorf("no hour bins: %w", ports.ErrInvalidRequest)
	}
	bars := make([]gochart.Value, len(bins))
	for i, b := range bins {
		bars[i] = gochart.Value{
			Label: fmt.Sprintf("%02d", b.Hour),
			Value: float64(b.Count),
			Style: barStyle(colorFromHex(r.cfg.BarColor)),
		}
	}
	return r.render(w, "Opportunities by hour", bars)
}

func (r *Renderer) render(w io.Writer, title string, bars []gochart.Value) error {
	maxCount := 1.0
	for _, b := range bars {
		maxCount = math.Max(maxCount, b.Value)
	}

	barWidth := (r.cfg.Width - 80) / len(bars) * 3 / 4
	if barWidth < 4 {
		barWidth = 4
	}
	ch := gochart.BarChart{
		Title:      title,
		Width:      r.cfg.Width,
		Height:     r.cfg.Height,
		BarWidth:   barWidth,
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		YAxis: gochart.YAxis{
			Range: &gochart.ContinuousRange{Min: 0, Max: math.Ceil(maxCount * 1.1)},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f", f)
				}
				return ""
			},
		},
		Bars: bars,
	}

	provider := gochart.PNG
	if r.cfg.Format == SVG {
		provider = gochart.SVG
	}
	if err := ch.Render(provider, w); err != nil {
		return fmt.Errorf("failed to render %q: %w: %w", title, ports.ErrRenderFailed, err)
	}
	return nil
}

func (r *Renderer) levelColor(l timeline.Level) drawing.Color {
	if hex := r.cfg.RateColor[l]; hex != "" {
		return colorFromHex(hex)
	}
	return colorFromHex(r.cfg.BarColor)
}

func barStyle(col drawing.Color) gochart.Style {
	return gochart.Style{
		FillColor:   col,
		StrokeColor: col,
		StrokeWidth: 1,
	}
}

func colorFromHex(hex string) drawing.Color {
	return drawing.ColorFromHex(strings.TrimPrefix(hex, "#"))
}

var _ ports.HistogramRenderer = (*Renderer)(nil)
