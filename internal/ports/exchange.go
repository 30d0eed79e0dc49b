package ports

import (
	"context"
	"time"

	"arbTimeline/internal/domain"
)

// PriceFeed fetches historical prices from an exchange.
type PriceFeed interface {
	// Ping checks the connectivity to the exchange API.
	Ping(ctx context.Context) error

	// GetServerTime retrieves the current server time from the exchange.
	GetServerTime(ctx context.Context) (time.Time, error)

	// GetPriceSeries returns the closing prices of symbol at the given kline
	// interval for [start, end], oldest first. Requests larger than a
	// single exchange page are paginated.
	GetPriceSeries(ctx context.Context, symbol, interval string, start, end time.Time) ([]domain.PricePoint, error)
}
