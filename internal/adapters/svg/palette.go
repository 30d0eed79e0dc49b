package svg

import (
	"fmt"
	"strings"

	"arbTimeline/internal/timeline"
)

// Palette holds the colors used by the renderer.
type Palette struct {
	Levels     [timeline.NumLevels]string `yaml:"levels"` // Lowest level first
	Price      string                     `yaml:"price"`
	Baseline   string                     `yaml:"baseline"`
	Background string                     `yaml:"background"`
	Text       string                     `yaml:"text"`
	Grid       string                     `yaml:"grid"`
	Marker     string                     `yaml:"marker_stroke"`
}

// DefaultPalette returns the stock indigo/emerald/amber/red palette.
func DefaultPalette() Palette {
	return Palette{
		Levels:     [timeline.NumLevels]string{"#6366f1", "#10b981", "#f59e0b", "#ef4444"},
		Price:      "#8b5cf6",
		Baseline:   "#94a3b8",
		Background: "#ffffff",
		Text:       "#475569",
		Grid:       "#e2e8f0",
		Marker:     "#ffffff",
	}
}

// LevelColor returns the fill color of level l.
func (p Palette) LevelColor(l timeline.Level) string {
	if l < 0 || int(l) >= len(p.Levels) {
		return p.Levels[0]
	}
	return p.Levels[l]
}

// Validate checks that every color is a #rgb or #rrggbb hex value.
func (p Palette) Validate() error {
	colors := append([]string{}, p.Levels[:]...)
	colors = append(colors, p.Price, p.Baseline, p.Background, p.Text, p.Grid, p.Marker)
	for _, c := range colors {
		if !isHexColor(c) {
			return fmt.Errorf("invalid color %q", c)
		}
	}
	return nil
}

func isHexColor(c string) bool {
	if !strings.HasPrefix(c, "#") || (len(c) != 4 && len(c) != 7) {
		return false
	}
	for _, r := range c[1:] {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return false
		}
	}
	return true
}
