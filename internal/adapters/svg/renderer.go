// Package svg renders timeline scenes as standalone SVG documents.
package svg

import (
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"arbTimeline/internal/ports"
	"arbTimeline/internal/timeline"
)

const (
	fontFamily    = "Helvetica, Arial, sans-serif"
	fontSize      = 11
	tickHalf      = 5
	legendTop     = 14
	legendSwatch  = 5
	legendSpacing = 18
)

// Renderer implements ports.SceneRenderer.
type Renderer struct {
	palette     Palette
	strokeWidth float64
	face        font.Face
}

// NewRenderer creates a renderer. strokeWidth is the marker outline width
// the scene was laid out with.
func NewRenderer(p Palette, strokeWidth float64) *Renderer {
	return &Renderer{palette: p, strokeWidth: strokeWidth, face: basicfont.Face7x13}
}

// Render writes s as an SVG document to w.
func (r *Renderer) Render(w io.Writer, s timeline.Scene) error {
	var svg strings.Builder
	fmt.Fprintf(&svg, `<?xml version="1.0" encoding="UTF-8"?>
<svg width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f" xmlns="http://www.w3.org/2000/svg">
<rect width="100%%" height="100%%" fill="%s"/>
<defs>
<linearGradient id="priceGradient" x1="0%%" y1="0%%" x2="0%%" y2="100%%">
<stop offset="0%%" stop-color="%s" stop-opacity="0.25"/>
<stop offset="100%%" stop-color="%s" stop-opacity="0"/>
</linearGradient>
<style>
.tick-text { font-family: %s; font-size: %dpx; fill: %s; }
.price-text { font-family: %s; font-size: %dpx; fill: %s; }
</style>
</defs>
`, s.Width, s.Height, s.Width, s.Height, r.palette.Background,
		r.palette.Price, r.palette.Price,
		fontFamily, fontSize, r.palette.Text,
		fontFamily, fontSize, r.palette.Price)

	if s.Empty {
		fmt.Fprintf(&svg, `<text x="%.1f" y="%.1f" text-anchor="middle" class="tick-text">No data</text>`+"\n",
			s.Width/2, s.Height/2)
		svg.WriteString("</svg>\n")
		return r.flush(w, svg.String())
	}

	r.drawCurve(&svg, s)
	r.drawAxis(&svg, s)
	r.drawMarkers(&svg, s)
	r.drawLegend(&svg, s)

	svg.WriteString("</svg>\n")
	return r.flush(w, svg.String())
}

func (r *Renderer) flush(w io.Writer, doc string) error {
	if _, err := io.WriteString(w, doc); err != nil {
		return fmt.Errorf("failed to write svg: %w: %w", ports.ErrRenderFailed, err)
	}
	return nil
}

func (r *Renderer) drawCurve(svg *strings.Builder, s timeline.Scene) {
	c := s.Curve
	if c.Empty() {
		return
	}
	fmt.Fprintf(svg, `<path d="%s" fill="url(#priceGradient)"/>`+"\n", c.AreaPath)
	fmt.Fprintf(svg, `<path d="%s" fill="none" stroke="%s" stroke-width="1.5"/>`+"\n", c.Path, r.palette.Price)

	labelX := s.Width - 60
	for _, t := range c.Ticks {
		fmt.Fprintf(svg, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s"/>`+"\n",
			labelX, t.Y, labelX+10, t.Y, r.palette.Price)
		fmt.Fprintf(svg, `<text x="%.1f" y="%.1f" text-anchor="end" class="price-text">%s</text>`+"\n",
			labelX-4, t.Y+4, escapeXML(t.Label))
	}
}

func (r *Renderer) drawAxis(svg *strings.Builder, s timeline.Scene) {
	b := s.Baseline
	fmt.Fprintf(svg, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s" stroke-width="2"/>`+"\n",
		b.X1, b.Y, b.X2, b.Y, r.palette.Baseline)
	for _, t := range s.TimeTicks {
		fmt.Fprintf(svg, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s"/>`+"\n",
			t.X, b.Y-tickHalf, t.X, b.Y+tickHalf, r.palette.Baseline)
		fmt.Fprintf(svg, `<text x="%.1f" y="%.1f" text-anchor="middle" class="tick-text">%s</text>`+"\n",
			t.X, b.Y+tickHalf+15, escapeXML(t.Label))
	}
}

func (r *Renderer) drawMarkers(svg *strings.Builder, s timeline.Scene) {
	for _, c := range s.Connectors {
		fmt.Fprintf(svg, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s" stroke-width="1" stroke-dasharray="2,2" opacity="0.5"/>`+"\n",
			c.X, c.FromY, c.X, c.ToY, r.palette.LevelColor(c.Level))
	}
	// Hovered marker last so it is drawn on top.
	var hovered *timeline.Marker
	for i := range s.Markers {
		if s.Markers[i].Hovered {
			hovered = &s.Markers[i]
			continue
		}
		r.drawMarker(svg, s.Markers[i])
	}
	if hovered != nil {
		r.drawMarker(svg, *hovered)
	}
}

func (r *Renderer) drawMarker(svg *strings.Builder, m timeline.Marker) {
	stroke := r.strokeWidth
	if m.Hovered {
		stroke++
	}
	fmt.Fprintf(svg, `<circle cx="%.1f" cy="%.1f" r="%.1f" fill="%s" stroke="%s" stroke-width="%.1f">`,
		m.X, m.Y, m.Radius, r.palette.LevelColor(m.Level), r.palette.Marker, stroke)
	if m.Event != nil {
		fmt.Fprintf(svg, `<title>%s</title>`, escapeXML(markerTitle(m)))
	}
	svg.WriteString("</circle>\n")
}

func markerTitle(m timeline.Marker) string {
	e := m.Event
	return fmt.Sprintf("%s | %s | rate %s%% | profit %.2f",
		e.Timestamp.UTC().Format(time.DateTime), e.Direction, timeline.FormatRate(e.ProfitRate), e.Profit)
}

// drawLegend lays the legend entries out left to right, sizing each slot
// from the measured label width.
func (r *Renderer) drawLegend(svg *strings.Builder, s timeline.Scene) {
	x := 20.0
	for _, e := range s.Legend {
		if e.Empty {
			continue
		}
		fmt.Fprintf(svg, `<circle cx="%.1f" cy="%d" r="%d" fill="%s"/>`+"\n",
			x+legendSwatch, legendTop, legendSwatch, r.palette.LevelColor(e.Level))
		fmt.Fprintf(svg, `<text x="%.1f" y="%d" class="tick-text">%s</text>`+"\n",
			x+2*legendSwatch+4, legendTop+4, escapeXML(e.Label))
		x += 2*legendSwatch + 4 + r.textWidth(e.Label) + legendSpacing
	}
}

func (r *Renderer) textWidth(s string) float64 {
	return float64(font.MeasureString(r.face, s).Ceil())
}

func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	s = strings.ReplaceAll(s, "'", "&apos;")
	return s
}

var _ ports.SceneRenderer = (*Renderer)(nil)
