package app

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"arbTimeline/internal/analytics"
	"arbTimeline/internal/domain"
	"arbTimeline/internal/ports"
	"arbTimeline/internal/timeline"
)

// InteractionState tracks pointer interaction with the timeline.
type InteractionState struct {
	HoveredID       string
	Dragging        bool
	DragStartX      float64
	DragStartOffset float64
}

// ServiceConfig holds the settings a TimelineService starts with.
type ServiceConfig struct {
	Layout          timeline.Layout
	Granularity     timeline.Granularity
	ContainerWidth  float64
	ContainerHeight float64 // Lower bound on the canvas height; 0 to size purely from content
	Location        *time.Location
}

// TimelineService owns the loaded data and the mutable view state of one
// timeline. Every command recomposes lazily: Scene always reflects the
// latest state. Safe for concurrent use.
type TimelineService struct {
	logger    ports.Logger
	oppRepo   ports.OpportunityRepository
	priceRepo ports.PriceRepository
	layout    timeline.Layout
	loc       *time.Location

	// State fields
	mu              sync.Mutex // Protects access to state fields below
	events          []*domain.Opportunity
	byID            map[string]*domain.Opportunity
	prices          []domain.PricePoint
	rates           timeline.RateRange
	granularity     timeline.Granularity
	containerWidth  float64
	containerHeight float64
	view            timeline.ViewportState
	interaction     InteractionState
	sizing          timeline.SizingCache
}

// NewTimelineService creates a service. The repositories are only needed
// by Load and may be nil when data is pushed with SetEvents/SetPrices.
func NewTimelineService(cfg ServiceConfig, logger ports.Logger, oppRepo ports.OpportunityRepository, priceRepo ports.PriceRepository) (*TimelineService, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for TimelineService: %w", ports.ErrConfigurationError)
	}
	if err := cfg.Layout.Validate(); err != nil {
		return nil, fmt.Errorf("invalid layout: %w: %w", ports.ErrConfigurationError, err)
	}
	if !cfg.Granularity.Valid() {
		return nil, fmt.Errorf("granularity %d minutes is not supported: %w", cfg.Granularity, ports.ErrConfigurationError)
	}
	if cfg.ContainerHeight < 0 {
		return nil, fmt.Errorf("container height cannot be negative: %w", ports.ErrConfigurationError)
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}

	return &TimelineService{
		logger:          logger,
		oppRepo:         oppRepo,
		priceRepo:       priceRepo,
		layout:          cfg.Layout,
		loc:             loc,
		byID:            make(map[string]*domain.Opportunity),
		granularity:     cfg.Granularity,
		containerWidth:  cfg.ContainerWidth,
		containerHeight: cfg.ContainerHeight,
		view:            timeline.DefaultViewport(),
	}, nil
}

// Load reads the opportunities matching filter and the price series that
// covers their days. The Uniswap series is preferred when it has data.
func (s *TimelineService) Load(ctx context.Context, filter domain.Filter) error {
	if s.oppRepo == nil || s.priceRepo == nil {
		return fmt.Errorf("repositories are required to load data: %w", ports.ErrConfigurationError)
	}

	opps, err := s.oppRepo.FindOpportunities(ctx, filter)
	if err != nil {
		s.logger.Error(ctx, err, "Failed to load opportunities")
		return fmt.Errorf("failed to load opportunities: %w", err)
	}
	s.SetEvents(opps)

	start, end, ok := s.priceWindow()
	if !ok {
		s.SetPrices(nil)
		s.logger.Info(ctx, "No opportunities to display")
		return nil
	}

	var series []domain.PricePoint
	for _, source := range []domain.PriceSource{domain.SourceUniswap, domain.SourceBinance} {
		series, err = s.priceRepo.FindPrices(ctx, source, start, end)
		if err != nil {
			s.logger.Error(ctx, err, "Failed to load price series", ports.Fields{"source": source})
			return fmt.Errorf("failed to load %s prices: %w", source, err)
		}
		if len(series) > 0 {
			s.logger.Debug(ctx, "Using price series", ports.Fields{"source": source, "points": len(series)})
			break
		}
	}
	s.SetPrices(series)

	s.logger.Info(ctx, "Timeline data loaded", ports.Fields{
		"opportunities": len(opps),
		"prices":        len(series),
		"from":          start.Format(time.RFC3339),
		"to":            end.Format(time.RFC3339),
	})
	return nil
}

// priceWindow returns the whole days, in the service location, spanned by
// the loaded events.
func (s *TimelineService) priceWindow() (start, end time.Time, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	axis, ok := timeline.TimeAxisOf(s.events)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	first := axis.Min.In(s.loc)
	last := axis.Max.In(s.loc)
	start = time.Date(first.Year(), first.Month(), first.Day(), 0, 0, 0, 0, s.loc)
	end = time.Date(last.Year(), last.Month(), last.Day()+1, 0, 0, 0, 0, s.loc).Add(-time.Millisecond)
	return start, end, true
}

// SetEvents replaces the event set. Entries without a timestamp are
// dropped. The view is reset because the time axis changes.
func (s *TimelineService) SetEvents(opps []*domain.Opportunity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = timeline.Prepare(opps)
	s.rates = timeline.RateRangeOf(s.events)
	s.byID = make(map[string]*domain.Opportunity, len(s.events))
	for _, o := range s.events {
		s.byID[o.ID] = o
	}
	s.view = timeline.DefaultViewport()
	s.interaction = InteractionState{}
	if dropped := len(opps) - len(s.events); dropped > 0 {
		s.logger.Warn(context.Background(), "Dropped opportunities without a valid timestamp", ports.Fields{"count": dropped})
	}
}

// SetPrices replaces the auxiliary price series.
func (s *TimelineService) SetPrices(points []domain.PricePoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices = points
}

// --- Commands ---

// Zoom applies a wheel gesture. Positive delta zooms out.
func (s *TimelineService) Zoom(delta float64) timeline.ViewportState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view = timeline.Zoom(s.events, s.transform(), delta, s.layout)
	return s.view
}

// ZoomAt multiplies the scale by factor, keeping the event anchorID in place.
func (s *TimelineService) ZoomAt(anchorID string, factor float64) (timeline.ViewportState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return s.view, fmt.Errorf("zoom factor %v: %w", factor, ports.ErrInvalidRequest)
	}
	anchor, ok := s.byID[anchorID]
	if !ok {
		return s.view, fmt.Errorf("anchor %q: %w", anchorID, ports.ErrNotFound)
	}
	s.view = s.view.ZoomAt(s.transform(), anchor.Timestamp, factor, s.layout)
	return s.view, nil
}

// Pan shifts the view horizontally. No-op without events.
func (s *TimelineService) Pan(delta float64) timeline.ViewportState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) > 0 {
		s.view = s.view.Pan(delta)
	}
	return s.view
}

// BeginDrag starts a drag gesture at pointer position x.
func (s *TimelineService) BeginDrag(x float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interaction.Dragging = true
	s.interaction.DragStartX = x
	s.interaction.DragStartOffset = s.view.PanOffset
}

// DragTo moves an active drag to pointer position x. Without an active
// drag or without events the view is unchanged.
func (s *TimelineService) DragTo(x float64) timeline.ViewportState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.interaction.Dragging && len(s.events) > 0 {
		s.view.PanOffset = s.interaction.DragStartOffset + (x - s.interaction.DragStartX)
	}
	return s.view
}

// EndDrag finishes the drag gesture.
func (s *TimelineService) EndDrag() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interaction.Dragging = false
}

// Hover highlights the event with the given ID. An empty ID clears the
// highlight.
func (s *TimelineService) Hover(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == "" {
		s.interaction.HoveredID = ""
		return nil
	}
	if _, ok := s.byID[id]; !ok {
		s.interaction.HoveredID = ""
		return fmt.Errorf("opportunity %q: %w", id, ports.ErrNotFound)
	}
	s.interaction.HoveredID = id
	return nil
}

// HoverAt highlights the marker under canvas point (x, y) and returns its
// event, or clears the highlight and returns nil.
func (s *TimelineService) HoverAt(x, y float64) *domain.Opportunity {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.composeLocked().MarkerAt(x, y)
	if m == nil {
		s.interaction.HoveredID = ""
		return nil
	}
	s.interaction.HoveredID = m.Event.ID
	return m.Event
}

// Resize records new container dimensions. The view is kept.
func (s *TimelineService) Resize(width, height float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if width <= 0 || height < 0 {
		return fmt.Errorf("container size %vx%v: %w", width, height, ports.ErrInvalidRequest)
	}
	s.containerWidth = width
	s.containerHeight = height
	return nil
}

// SetGranularity changes the slot width, in minutes.
func (s *TimelineService) SetGranularity(minutes int) error {
	g := timeline.Granularity(minutes)
	if !g.Valid() {
		return fmt.Errorf("granularity %d minutes, want one of %v: %w", minutes, timeline.Granularities, ports.ErrInvalidRequest)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.granularity = g
	return nil
}

// Reset restores the unzoomed, unpanned view.
func (s *TimelineService) Reset() timeline.ViewportState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view = timeline.DefaultViewport()
	s.interaction.Dragging = false
	return s.view
}

// --- Queries ---

// Scene composes the current frame.
func (s *TimelineService) Scene() timeline.Scene {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.composeLocked()
}

// Viewport returns the current zoom and pan.
func (s *TimelineService) Viewport() timeline.ViewportState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// Interaction returns the current pointer interaction state.
func (s *TimelineService) Interaction() InteractionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interaction
}

// Granularity returns the current slot width.
func (s *TimelineService) Granularity() timeline.Granularity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.granularity
}

// CanvasSize returns the canvas dimensions for the current state.
func (s *TimelineService) CanvasSize() (width, height float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.layout.CanvasWidth(s.containerWidth), s.canvasHeight()
}

// Events returns the prepared event set, oldest first.
func (s *TimelineService) Events() []*domain.Opportunity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*domain.Opportunity(nil), s.events...)
}

// Histograms returns the magnitude and hour-of-day distributions.
func (s *TimelineService) Histograms() ([]analytics.HistogramBin, []analytics.HourBin) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return analytics.MagnitudeHistogram(s.events), analytics.HourHistogram(s.events, s.loc)
}

// Summary returns headline statistics of the loaded events.
func (s *TimelineService) Summary() *analytics.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return analytics.Summarize(s.events, s.loc)
}

// --- Helpers (callers hold mu) ---

func (s *TimelineService) canvasHeight() float64 {
	h := s.sizing.Height(s.events, s.granularity, s.rates, s.layout)
	return math.Max(h, s.containerHeight)
}

func (s *TimelineService) transform() timeline.Transform {
	axis, _ := timeline.TimeAxisOf(s.events)
	return timeline.NewTransform(axis, s.layout.CanvasWidth(s.containerWidth), s.layout, s.view)
}

func (s *TimelineService) composeLocked() timeline.Scene {
	return timeline.Compose(timeline.Input{
		Events:      s.events,
		Prices:      s.prices,
		Granularity: s.granularity,
		Width:       s.layout.CanvasWidth(s.containerWidth),
		Height:      s.canvasHeight(),
		View:        s.view,
		HoveredID:   s.interaction.HoveredID,
		Layout:      s.layout,
		Location:    s.loc,
	})
}
