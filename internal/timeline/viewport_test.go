package timeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arbTimeline/internal/domain"
)

func transformFor(events []*domain.Opportunity, view ViewportState) Transform {
	axis, _ := TimeAxisOf(events)
	return NewTransform(axis, 1200, DefaultLayout(), view)
}

func TestTransform_DisplayX(t *testing.T) {
	events := spread(11, time.Minute, 1)
	tr := transformFor(events, DefaultViewport())

	assert.Equal(t, 1080.0, tr.ChartWidth())
	assert.InDelta(t, 60, tr.DisplayX(events[0].Timestamp), 1e-9)
	assert.InDelta(t, 1140, tr.DisplayX(events[10].Timestamp), 1e-9)
	assert.InDelta(t, 600, tr.DisplayX(events[5].Timestamp), 1e-9)

	tr.View = ViewportState{Scale: 2, PanOffset: -100}
	assert.InDelta(t, 1100, tr.DisplayX(events[5].Timestamp), 1e-9)
}

func TestTimeAxis_ZeroSpan(t *testing.T) {
	axis, ok := TimeAxisOf([]*domain.Opportunity{opp("a", t0, 1)})
	require.True(t, ok)
	assert.Equal(t, 0.0, axis.Ratio(t0))
	assert.Equal(t, 0.0, axis.Ratio(t0.Add(time.Hour)))

	_, ok = TimeAxisOf(nil)
	assert.False(t, ok)
}

func TestZoom_AnchorInvariance(t *testing.T) {
	l := DefaultLayout()
	events := spread(60, time.Minute, 1, 3, 8)
	view := DefaultViewport()

	deltas := []float64{-1, -1, -1, 1, -1, -1, -1, -1, 1, 1, -1, -1, -1, -1, -1, 1}
	for i, delta := range deltas {
		tr := transformFor(events, view)
		anchor := FindAnchor(events, tr, l)
		require.NotNil(t, anchor)
		before := tr.DisplayX(anchor.Timestamp)

		view = Zoom(events, tr, delta, l)
		after := transformFor(events, view).DisplayX(anchor.Timestamp)

		assert.InDelta(t, before, after, 1, "step %d moved the anchor", i)
		assert.GreaterOrEqual(t, view.Scale, l.MinScale)
		assert.LessOrEqual(t, view.Scale, l.MaxScale)
	}
}

func TestViewportState_ZoomAtUsesOwnView(t *testing.T) {
	l := DefaultLayout()
	events := spread(11, time.Minute, 1)
	anchor := events[5].Timestamp
	// The transform carries a different view than the one being zoomed.
	tr := transformFor(events, DefaultViewport())
	view := ViewportState{Scale: 2, PanOffset: -300}

	before := transformFor(events, view).DisplayX(anchor)
	require.InDelta(t, 900, before, 1e-9)

	zoomed := view.ZoomAt(tr, anchor, 1.1, l)
	assert.InDelta(t, 2.2, zoomed.Scale, 1e-9)
	assert.InDelta(t, before, transformFor(events, zoomed).DisplayX(anchor), 1e-9)
	assert.Equal(t, DefaultViewport(), tr.View)
}

func TestZoom_ScaleBounds(t *testing.T) {
	l := DefaultLayout()
	events := spread(10, time.Minute, 1)

	view := DefaultViewport()
	for i := 0; i < 100; i++ {
		view = Zoom(events, transformFor(events, view), -120, l)
	}
	assert.InDelta(t, l.MaxScale, view.Scale, 1e-9)

	for i := 0; i < 200; i++ {
		view = Zoom(events, transformFor(events, view), 120, l)
	}
	assert.InDelta(t, l.MinScale, view.Scale, 1e-9)
}

func TestZoom_EmptyIsNoop(t *testing.T) {
	view := ViewportState{Scale: 2, PanOffset: 35}
	tr := NewTransform(TimeAxis{}, 1200, DefaultLayout(), view)
	assert.Equal(t, view, Zoom(nil, tr, -1, DefaultLayout()))
}

func TestFindAnchor(t *testing.T) {
	l := DefaultLayout()

	t.Run("rightmost visible", func(t *testing.T) {
		events := spread(11, time.Minute, 1)
		view := ViewportState{Scale: 2, PanOffset: 0}
		tr := transformFor(events, view)
		anchor := FindAnchor(events, tr, l)
		require.NotNil(t, anchor)
		x := tr.DisplayX(anchor.Timestamp)
		assert.LessOrEqual(t, x, 1200-l.RightMargin+l.VisibleSlack)
		next := tr.DisplayX(events[indexOf(events, anchor)+1].Timestamp)
		assert.Greater(t, next, 1200-l.RightMargin+l.VisibleSlack)
	})

	t.Run("none visible falls back to last", func(t *testing.T) {
		events := spread(5, time.Minute, 1)
		tr := transformFor(events, ViewportState{Scale: 1, PanOffset: 5000})
		assert.Same(t, events[4], FindAnchor(events, tr, l))
	})

	t.Run("tie keeps the first", func(t *testing.T) {
		a, b := opp("a", t0.Add(time.Minute), 1), opp("b", t0.Add(time.Minute), 2)
		events := []*domain.Opportunity{opp("start", t0, 1), a, b}
		assert.Same(t, a, FindAnchor(events, transformFor(events, DefaultViewport()), l))
	})

	t.Run("empty", func(t *testing.T) {
		assert.Nil(t, FindAnchor(nil, Transform{}, l))
	})
}

func TestPanAndZoomFactor(t *testing.T) {
	l := DefaultLayout()
	v := ViewportState{Scale: 3, PanOffset: 10}.Pan(-25)
	assert.Equal(t, ViewportState{Scale: 3, PanOffset: -15}, v)
	assert.Equal(t, 0.9, ZoomFactor(1, l))
	assert.Equal(t, 1.1, ZoomFactor(-1, l))
	assert.Equal(t, 1.1, ZoomFactor(0, l))
	assert.Equal(t, 10.0, ClampScale(50, l))
	assert.Equal(t, 0.1, ClampScale(0.01, l))
}

func indexOf(events []*domain.Opportunity, o *domain.Opportunity) int {
	for i, e := range events {
		if e == o {
			return i
		}
	}
	return -1
}
