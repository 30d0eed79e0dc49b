package ports

import (
	"io"

	"arbTimeline/internal/analytics"
	"arbTimeline/internal/timeline"
)

// SceneRenderer draws a composed timeline scene.
type SceneRenderer interface {
	Render(w io.Writer, scene timeline.Scene) error
}

// HistogramRenderer draws histogram bins as a chart.
type HistogramRenderer interface {
	RenderMagnitude(w io.Writer, bins []analytics.HistogramBin) error
	RenderHours(w io.Writer, bins []analytics.HourBin) error
}
