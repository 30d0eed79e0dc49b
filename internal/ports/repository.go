package ports

import (
	"context"
	"time"

	"arbTimeline/internal/domain"
)

// OpportunityRepository stores and retrieves arbitrage opportunities.
type OpportunityRepository interface {
	// Save inserts or replaces a single opportunity keyed by its ID.
	Save(ctx context.Context, opp *domain.Opportunity) error
	// SaveBatch stores many opportunities in one transaction and returns
	// how many rows were written.
	SaveBatch(ctx context.Context, opps []*domain.Opportunity) (int, error)
	// FindOpportunities returns the opportunities matching filter,
	// ordered by timestamp ascending.
	FindOpportunities(ctx context.Context, filter domain.Filter) ([]*domain.Opportunity, error)
	// FindByID retrieves an opportunity by ID.
	// Returns nil, nil if not found.
	FindByID(ctx context.Context, id string) (*domain.Opportunity, error)
	// Count returns the number of stored opportunities.
	Count(ctx context.Context) (int, error)
}

// PriceRepository stores the auxiliary price series.
type PriceRepository interface {
	// SavePrices stores points, ignoring ones already present for the same
	// source and timestamp. Returns the number of new rows.
	SavePrices(ctx context.Context, points []domain.PricePoint) (int, error)
	// FindPrices returns the points of source within [start, end], ordered
	// by timestamp ascending. Zero bounds are open.
	FindPrices(ctx context.Context, source domain.PriceSource, start, end time.Time) ([]domain.PricePoint, error)
	// LatestPriceTime returns the timestamp of the newest stored point for
	// source, or the zero time when there is none.
	LatestPriceTime(ctx context.Context, source domain.PriceSource) (time.Time, error)
}
