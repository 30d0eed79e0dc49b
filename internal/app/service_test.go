package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arbTimeline/internal/domain"
	"arbTimeline/internal/ports"
	"arbTimeline/internal/timeline"
)

// Mock implementations
type mockLogger struct {
	mu        sync.Mutex
	debugMsgs []string
	infoMsgs  []string
	warnMsgs  []string
	errorMsgs []string
}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...ports.Fields) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.debugMsgs = append(m.debugMsgs, msg)
}

func (m *mockLogger) Info(ctx context.Context, msg string, fields ...ports.Fields) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infoMsgs = append(m.infoMsgs, msg)
}

func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...ports.Fields) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warnMsgs = append(m.warnMsgs, msg)
}

func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...ports.Fields) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorMsgs = append(m.errorMsgs, msg)
}

type mockOpportunityRepo struct {
	opps       []*domain.Opportunity
	findErr    error
	lastFilter domain.Filter
}

func (m *mockOpportunityRepo) Save(ctx context.Context, opp *domain.Opportunity) error {
	m.opps = append(m.opps, opp)
	return nil
}

func (m *mockOpportunityRepo) SaveBatch(ctx context.Context, opps []*domain.Opportunity) (int, error) {
	m.opps = append(m.opps, opps...)
	return len(opps), nil
}

func (m *mockOpportunityRepo) FindOpportunities(ctx context.Context, filter domain.Filter) ([]*domain.Opportunity, error) {
	m.lastFilter = filter
	if m.findErr != nil {
		return nil, m.findErr
	}
	return filter.Apply(m.opps), nil
}

func (m *mockOpportunityRepo) FindByID(ctx context.Context, id string) (*domain.Opportunity, error) {
	for _, o := range m.opps {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, nil
}

func (m *mockOpportunityRepo) Count(ctx context.Context) (int, error) {
	return len(m.opps), nil
}

type priceQuery struct {
	source     domain.PriceSource
	start, end time.Time
}

type mockPriceRepo struct {
	series  map[domain.PriceSource][]domain.PricePoint
	findErr error
	queries []priceQuery
}

func (m *mockPriceRepo) SavePrices(ctx context.Context, points []domain.PricePoint) (int, error) {
	return len(points), nil
}

func (m *mockPriceRepo) FindPrices(ctx context.Context, source domain.PriceSource, start, end time.Time) ([]domain.PricePoint, error) {
	m.queries = append(m.queries, priceQuery{source: source, start: start, end: end})
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.series[source], nil
}

func (m *mockPriceRepo) LatestPriceTime(ctx context.Context, source domain.PriceSource) (time.Time, error) {
	return time.Time{}, nil
}

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleOpportunities() []*domain.Opportunity {
	return []*domain.Opportunity{
		{ID: "o-0", Timestamp: t0, Direction: domain.CexToDex, Profit: 1, ProfitRate: 0.1},
		{ID: "o-1", Timestamp: t0.Add(time.Minute), Direction: domain.DexToCex, Profit: 5, ProfitRate: 0.5},
		{ID: "o-2", Timestamp: t0.Add(10 * time.Minute), Direction: domain.CexToDex, Profit: 9, ProfitRate: 0.9},
	}
}

func samplePrices(source domain.PriceSource) []domain.PricePoint {
	var out []domain.PricePoint
	for i := 0; i <= 10; i++ {
		out = append(out, domain.PricePoint{Source: source, Timestamp: t0.Add(time.Duration(i) * time.Minute), Close: 3000 + float64(i)})
	}
	return out
}

func defaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Layout:         timeline.DefaultLayout(),
		Granularity:    timeline.DefaultGranularity,
		ContainerWidth: 1280,
		Location:       time.UTC,
	}
}

func newTestService(t *testing.T) (*TimelineService, *mockLogger) {
	t.Helper()
	logger := &mockLogger{}
	svc, err := NewTimelineService(defaultServiceConfig(), logger, &mockOpportunityRepo{}, &mockPriceRepo{})
	require.NoError(t, err)
	return svc, logger
}

func markerByID(t *testing.T, s timeline.Scene, id string) timeline.Marker {
	t.Helper()
	for _, m := range s.Markers {
		if m.Event.ID == id {
			return m
		}
	}
	require.FailNow(t, fmt.Sprintf("marker %s not found", id))
	return timeline.Marker{}
}

func TestNewTimelineService(t *testing.T) {
	badLayout := defaultServiceConfig()
	badLayout.Layout.MinGap = 0
	badGranularity := defaultServiceConfig()
	badGranularity.Granularity = 7
	badHeight := defaultServiceConfig()
	badHeight.ContainerHeight = -1

	tests := []struct {
		name    string
		cfg     ServiceConfig
		logger  ports.Logger
		wantErr bool
	}{
		{name: "valid", cfg: defaultServiceConfig(), logger: &mockLogger{}},
		{name: "missing logger", cfg: defaultServiceConfig(), wantErr: true},
		{name: "invalid layout", cfg: badLayout, logger: &mockLogger{}, wantErr: true},
		{name: "invalid granularity", cfg: badGranularity, logger: &mockLogger{}, wantErr: true},
		{name: "negative container height", cfg: badHeight, logger: &mockLogger{}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewTimelineService(tt.cfg, tt.logger, nil, nil)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ports.ErrConfigurationError)
				assert.Nil(t, svc)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, timeline.DefaultViewport(), svc.Viewport())
			assert.Equal(t, timeline.DefaultGranularity, svc.Granularity())
		})
	}
}

func TestTimelineService_LoadPrefersUniswap(t *testing.T) {
	logger := &mockLogger{}
	oppRepo := &mockOpportunityRepo{opps: sampleOpportunities()}
	priceRepo := &mockPriceRepo{series: map[domain.PriceSource][]domain.PricePoint{
		domain.SourceUniswap: samplePrices(domain.SourceUniswap),
		domain.SourceBinance: samplePrices(domain.SourceBinance),
	}}
	svc, err := NewTimelineService(defaultServiceConfig(), logger, oppRepo, priceRepo)
	require.NoError(t, err)

	require.NoError(t, svc.Load(context.Background(), domain.Filter{}))

	require.Len(t, priceRepo.queries, 1)
	q := priceRepo.queries[0]
	assert.Equal(t, domain.SourceUniswap, q.source)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), q.start)
	assert.Equal(t, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC).Add(-time.Millisecond), q.end)

	assert.Len(t, svc.Events(), 3)
	scene := svc.Scene()
	assert.False(t, scene.Curve.Empty())
	assert.Contains(t, logger.infoMsgs, "Timeline data loaded")
}

func TestTimelineService_LoadFallsBackToBinance(t *testing.T) {
	oppRepo := &mockOpportunityRepo{opps: sampleOpportunities()}
	priceRepo := &mockPriceRepo{series: map[domain.PriceSource][]domain.PricePoint{
		domain.SourceBinance: samplePrices(domain.SourceBinance),
	}}
	svc, err := NewTimelineService(defaultServiceConfig(), &mockLogger{}, oppRepo, priceRepo)
	require.NoError(t, err)

	require.NoError(t, svc.Load(context.Background(), domain.Filter{}))

	require.Len(t, priceRepo.queries, 2)
	assert.Equal(t, domain.SourceBinance, priceRepo.queries[1].source)
	assert.False(t, svc.Scene().Curve.Empty())
}

func TestTimelineService_LoadAppliesFilter(t *testing.T) {
	oppRepo := &mockOpportunityRepo{opps: sampleOpportunities()}
	svc, err := NewTimelineService(defaultServiceConfig(), &mockLogger{}, oppRepo, &mockPriceRepo{})
	require.NoError(t, err)

	minRate := 0.5
	require.NoError(t, svc.Load(context.Background(), domain.Filter{MinProfitRate: &minRate}))

	require.NotNil(t, oppRepo.lastFilter.MinProfitRate)
	assert.Len(t, svc.Events(), 2)
	assert.True(t, svc.Scene().Curve.Empty())
}

func TestTimelineService_LoadEmpty(t *testing.T) {
	priceRepo := &mockPriceRepo{}
	logger := &mockLogger{}
	svc, err := NewTimelineService(defaultServiceConfig(), logger, &mockOpportunityRepo{}, priceRepo)
	require.NoError(t, err)

	require.NoError(t, svc.Load(context.Background(), domain.Filter{}))

	assert.Empty(t, priceRepo.queries)
	assert.True(t, svc.Scene().Empty)
	assert.Contains(t, logger.infoMsgs, "No opportunities to display")
}

func TestTimelineService_LoadErrors(t *testing.T) {
	dbErr := errors.New("database is locked")

	t.Run("opportunities", func(t *testing.T) {
		logger := &mockLogger{}
		svc, err := NewTimelineService(defaultServiceConfig(), logger, &mockOpportunityRepo{findErr: dbErr}, &mockPriceRepo{})
		require.NoError(t, err)
		err = svc.Load(context.Background(), domain.Filter{})
		assert.ErrorIs(t, err, dbErr)
		assert.Contains(t, logger.errorMsgs, "Failed to load opportunities")
	})

	t.Run("prices", func(t *testing.T) {
		svc, err := NewTimelineService(defaultServiceConfig(), &mockLogger{},
			&mockOpportunityRepo{opps: sampleOpportunities()}, &mockPriceRepo{findErr: dbErr})
		require.NoError(t, err)
		assert.ErrorIs(t, svc.Load(context.Background(), domain.Filter{}), dbErr)
	})

	t.Run("no repositories", func(t *testing.T) {
		svc, err := NewTimelineService(defaultServiceConfig(), &mockLogger{}, nil, nil)
		require.NoError(t, err)
		assert.ErrorIs(t, svc.Load(context.Background(), domain.Filter{}), ports.ErrConfigurationError)
	})
}

func TestTimelineService_SetEventsDropsInvalid(t *testing.T) {
	svc, logger := newTestService(t)
	opps := append(sampleOpportunities(), &domain.Opportunity{ID: "broken"}, nil)

	svc.SetEvents(opps)

	assert.Len(t, svc.Events(), 3)
	assert.Len(t, logger.warnMsgs, 1)
	assert.Error(t, svc.Hover("broken"))
}

func TestTimelineService_ZoomEmptyIsNoop(t *testing.T) {
	svc, _ := newTestService(t)

	assert.Equal(t, timeline.DefaultViewport(), svc.Zoom(-1))
	assert.Equal(t, timeline.DefaultViewport(), svc.Pan(40))
	svc.BeginDrag(10)
	assert.Equal(t, timeline.DefaultViewport(), svc.DragTo(90))
	assert.True(t, svc.Scene().Empty)
}

func TestTimelineService_Zoom(t *testing.T) {
	svc, _ := newTestService(t)
	svc.SetEvents(sampleOpportunities())

	view := svc.Zoom(-100)
	assert.InDelta(t, 1.1, view.Scale, 1e-9)

	view = svc.Zoom(100)
	assert.InDelta(t, 0.99, view.Scale, 1e-9)

	for i := 0; i < 100; i++ {
		svc.Zoom(-1)
	}
	assert.Equal(t, 10.0, svc.Viewport().Scale)
}

func TestTimelineService_ZoomAtKeepsAnchor(t *testing.T) {
	svc, _ := newTestService(t)
	svc.SetEvents(sampleOpportunities())
	svc.Pan(-35)

	before := markerByID(t, svc.Scene(), "o-2").X
	view, err := svc.ZoomAt("o-2", 2)
	require.NoError(t, err)
	assert.Equal(t, 2.0, view.Scale)

	after := markerByID(t, svc.Scene(), "o-2").X
	assert.InDelta(t, before, after, 1e-9)
}

func TestTimelineService_ZoomAtErrors(t *testing.T) {
	svc, _ := newTestService(t)
	svc.SetEvents(sampleOpportunities())

	_, err := svc.ZoomAt("missing", 2)
	assert.ErrorIs(t, err, ports.ErrNotFound)

	_, err = svc.ZoomAt("o-0", 0)
	assert.ErrorIs(t, err, ports.ErrInvalidRequest)

	assert.Equal(t, timeline.DefaultViewport(), svc.Viewport())
}

func TestTimelineService_Drag(t *testing.T) {
	svc, _ := newTestService(t)
	svc.SetEvents(sampleOpportunities())
	svc.Pan(15)

	svc.BeginDrag(100)
	assert.True(t, svc.Interaction().Dragging)
	assert.Equal(t, 15.0, svc.Interaction().DragStartOffset)

	view := svc.DragTo(160)
	assert.Equal(t, 75.0, view.PanOffset)
	view = svc.DragTo(40)
	assert.Equal(t, -45.0, view.PanOffset)
	assert.Equal(t, 1.0, view.Scale)

	svc.EndDrag()
	assert.False(t, svc.Interaction().Dragging)
	assert.Equal(t, -45.0, svc.DragTo(500).PanOffset)
}

func TestTimelineService_Hover(t *testing.T) {
	svc, _ := newTestService(t)
	svc.SetEvents(sampleOpportunities())
	base := markerByID(t, svc.Scene(), "o-2")

	require.NoError(t, svc.Hover("o-2"))
	m := markerByID(t, svc.Scene(), "o-2")
	assert.True(t, m.Hovered)
	assert.Equal(t, base.Radius+timeline.DefaultLayout().HoverGrow, m.Radius)

	err := svc.Hover("missing")
	assert.ErrorIs(t, err, ports.ErrNotFound)
	assert.Empty(t, svc.Interaction().HoveredID)

	require.NoError(t, svc.Hover("o-1"))
	require.NoError(t, svc.Hover(""))
	assert.Empty(t, svc.Interaction().HoveredID)
}

func TestTimelineService_HoverAt(t *testing.T) {
	svc, _ := newTestService(t)
	svc.SetEvents(sampleOpportunities())
	m := markerByID(t, svc.Scene(), "o-1")

	got := svc.HoverAt(m.X, m.Y)
	require.NotNil(t, got)
	assert.Equal(t, "o-1", got.ID)
	assert.Equal(t, "o-1", svc.Interaction().HoveredID)

	assert.Nil(t, svc.HoverAt(-500, -500))
	assert.Empty(t, svc.Interaction().HoveredID)
}

func TestTimelineService_Resize(t *testing.T) {
	svc, _ := newTestService(t)
	svc.SetEvents(sampleOpportunities())
	svc.Zoom(-1)
	view := svc.Viewport()

	assert.ErrorIs(t, svc.Resize(0, 100), ports.ErrInvalidRequest)
	assert.ErrorIs(t, svc.Resize(800, -1), ports.ErrInvalidRequest)

	require.NoError(t, svc.Resize(2000, 900))
	w, h := svc.CanvasSize()
	assert.Equal(t, 1920.0, w)
	assert.Equal(t, 900.0, h)
	assert.Equal(t, view, svc.Viewport())

	require.NoError(t, svc.Resize(500, 0))
	w, h = svc.CanvasSize()
	assert.Equal(t, 1200.0, w)
	assert.Equal(t, 300.0, h)

	scene := svc.Scene()
	assert.Equal(t, w, scene.Width)
	assert.Equal(t, h, scene.Height)
}

func TestTimelineService_SetGranularity(t *testing.T) {
	svc, _ := newTestService(t)
	svc.SetEvents(sampleOpportunities())

	assert.ErrorIs(t, svc.SetGranularity(7), ports.ErrInvalidRequest)
	assert.Equal(t, timeline.DefaultGranularity, svc.Granularity())
	assert.Len(t, svc.Scene().Connectors, 1)

	require.NoError(t, svc.SetGranularity(60))
	assert.Equal(t, timeline.Granularity(60), svc.Granularity())
	// All three events now share one slot.
	assert.Len(t, svc.Scene().Connectors, 2)
}

func TestTimelineService_SizingIsMemoized(t *testing.T) {
	svc, _ := newTestService(t)
	svc.SetEvents(sampleOpportunities())

	svc.Scene()
	svc.Scene()
	svc.Zoom(-1)
	svc.Scene()
	assert.Equal(t, 1, svc.sizing.Misses())

	require.NoError(t, svc.SetGranularity(15))
	svc.Scene()
	assert.Equal(t, 2, svc.sizing.Misses())
}

func TestTimelineService_Reset(t *testing.T) {
	svc, _ := newTestService(t)
	svc.SetEvents(sampleOpportunities())
	svc.Zoom(-1)
	svc.Pan(120)
	svc.BeginDrag(5)

	assert.Equal(t, timeline.DefaultViewport(), svc.Reset())
	assert.False(t, svc.Interaction().Dragging)
}

func TestTimelineService_SetEventsResetsView(t *testing.T) {
	svc, _ := newTestService(t)
	svc.SetEvents(sampleOpportunities())
	svc.Zoom(-1)
	require.NoError(t, svc.Hover("o-0"))

	svc.SetEvents(sampleOpportunities()[:1])

	assert.Equal(t, timeline.DefaultViewport(), svc.Viewport())
	assert.Empty(t, svc.Interaction().HoveredID)
}

func TestTimelineService_Aggregates(t *testing.T) {
	svc, _ := newTestService(t)
	svc.SetEvents(sampleOpportunities())

	magnitude, hours := svc.Histograms()
	require.Len(t, magnitude, 10)
	require.Len(t, hours, 24)
	assert.Equal(t, 3, hours[12].Count)
	total := 0
	for _, b := range magnitude {
		total += b.Count
	}
	assert.Equal(t, 3, total)

	summary := svc.Summary()
	assert.Equal(t, 3, summary.TotalOpportunities)
	assert.Equal(t, 2, summary.CexToDex)
	assert.Equal(t, 1, summary.DexToCex)
	assert.InDelta(t, 15.0, summary.TotalProfit, 1e-9)
}

func TestTimelineService_ConcurrentUse(t *testing.T) {
	svc, _ := newTestService(t)
	svc.SetEvents(sampleOpportunities())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				switch (i + j) % 4 {
				case 0:
					svc.Zoom(-1)
				case 1:
					svc.Pan(1)
				case 2:
					_ = svc.Hover("o-1")
				default:
					svc.Scene()
				}
			}
		}(i)
	}
	wg.Wait()

	view := svc.Viewport()
	assert.GreaterOrEqual(t, view.Scale, 1.0)
	assert.LessOrEqual(t, view.Scale, 10.0)
}
