package binanceclient

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"arbTimeline/internal/domain"
	"arbTimeline/internal/ports"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
)

const (
	baseURLProduction = "https://api.binance.com"
	baseURLTestnet    = "https://testnet.binance.vision"

	// maxKlinesPerRequest is the page size limit of the spot klines endpoint.
	maxKlinesPerRequest = 1000
)

// Client implements ports.PriceFeed on the Binance spot REST API.
type Client struct {
	spotClient *binance.Client
	logger     ports.Logger
	pageSize   int
	pageDelay  time.Duration
}

// Config holds configuration specific to the Binance client adapter.
type Config struct {
	APIKey     string
	SecretKey  string
	UseTestnet bool
	BaseURL    string        // Overrides the production/testnet URL when set
	PageSize   int           // Klines per request, capped at 1000
	PageDelay  time.Duration // Pause between paginated requests
	Logger     ports.Logger
}

// New creates a new Binance client adapter. Keys are optional: klines and
// server time are public endpoints.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Binance client: %w", ports.ErrConfigurationError)
	}

	client := binance.NewClient(cfg.APIKey, cfg.SecretKey)
	switch {
	case cfg.BaseURL != "":
		client.BaseURL = cfg.BaseURL
	case cfg.UseTestnet:
		client.BaseURL = baseURLTestnet
	default:
		client.BaseURL = baseURLProduction
	}
	cfg.Logger.Info(context.Background(), "Binance spot client configured", ports.Fields{"baseURL": client.BaseURL})

	pageSize := cfg.PageSize
	if pageSize <= 0 || pageSize > maxKlinesPerRequest {
		pageSize = maxKlinesPerRequest
	}

	return &Client{
		spotClient: client,
		logger:     cfg.Logger,
		pageSize:   pageSize,
		pageDelay:  cfg.PageDelay,
	}, nil
}

// handleError translates Binance API errors into standardized ports errors.
func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	fields := ports.Fields{"operation": operation}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		fields["apiErrorCode"] = apiErr.Code
		fields["apiErrorMessage"] = apiErr.Message

		var mappedErr error
		switch apiErr.Code {
		case -1003, -1015: // Too many requests / orders
			mappedErr = ports.ErrRateLimited
		case -1001, -1006, -1007: // Disconnected, unexpected response, backend timeout
			mappedErr = ports.ErrExchangeUnavailable
		case -1021: // Timestamp outside of recvWindow
			mappedErr = ports.ErrTimeout
		case -1022, -2014, -2015: // Bad signature or key
			mappedErr = ports.ErrAuthenticationFailed
		case -1120, -1121: // Invalid interval / symbol
			mappedErr = ports.ErrInvalidSymbol
		case -1100, -1101, -1102, -1103, -1104, -1105, -1106, -1111, -1127, -1128, -1130:
			mappedErr = ports.ErrInvalidRequest
		default:
			mappedErr = ports.ErrUnknown
		}
		c.logger.Error(ctx, err, operation+" failed with API error", fields)
		return fmt.Errorf("%s failed: %w: %w", operation, mappedErr, err)
	}

	var finalErr error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		finalErr = fmt.Errorf("%s operation canceled: %w: %w", operation, ports.ErrContextCanceled, err)
	case isConnectionError(err):
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrConnectionFailed, err)
	default:
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrUnknown, err)
	}
	c.logger.Error(ctx, err, operation+" failed", fields)
	return finalErr
}

func isConnectionError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "use of closed network connection") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset by peer") ||
		strings.Contains(msg, "no such host")
}

// Ping checks the connectivity to the exchange API.
func (c *Client) Ping(ctx context.Context) error {
	op := "Ping"
	if err := c.spotClient.NewPingService().Do(ctx); err != nil {
		return c.handleError(ctx, err, op)
	}
	c.logger.Debug(ctx, op+" successful")
	return nil
}

// GetServerTime retrieves the current server time from the exchange.
func (c *Client) GetServerTime(ctx context.Context) (time.Time, error) {
	op := "GetServerTime"
	serverTimeMs, err := c.spotClient.NewServerTimeService().Do(ctx)
	if err != nil {
		return time.Time{}, c.handleError(ctx, err, op)
	}
	return time.UnixMilli(serverTimeMs).UTC(), nil
}

// GetPriceSeries fetches every kline of symbol between start and end and
// returns their close prices keyed by open time.
func (c *Client) GetPriceSeries(ctx context.Context, symbol, interval string, start, end time.Time) ([]domain.PricePoint, error) {
	op := "GetPriceSeries"
	if symbol == "" || interval == "" || end.Before(start) {
		return nil, fmt.Errorf("%s: symbol %q interval %q range [%s, %s]: %w",
			op, symbol, interval, start.Format(time.RFC3339), end.Format(time.RFC3339), ports.ErrInvalidRequest)
	}

	var points []domain.PricePoint
	from := start
	for page := 0; ; page++ {
		if page > 0 && c.pageDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, c.handleError(ctx, ctx.Err(), op)
			case <-time.After(c.pageDelay):
			}
		}

		klines, err := c.spotClient.NewKlinesService().
			Symbol(symbol).
			Interval(interval).
			StartTime(from.UnixMilli()).
			EndTime(end.UnixMilli()).
			Limit(c.pageSize).
			Do(ctx)
		if err != nil {
			return nil, c.handleError(ctx, err, op)
		}
		if len(klines) == 0 {
			break
		}
		for _, k := range klines {
			p, err := translateKline(k)
			if err != nil {
				return nil, c.handleError(ctx, fmt.Errorf("failed to translate kline: %w", err), op)
			}
			points = append(points, p)
		}

		c.logger.Debug(ctx, "Fetched kline page", ports.Fields{"symbol": symbol, "page": page, "count": len(klines)})
		from = time.UnixMilli(klines[len(klines)-1].CloseTime + 1)
		if len(klines) < c.pageSize || from.After(end) {
			break
		}
	}
	return points, nil
}

func translateKline(k *binance.Kline) (domain.PricePoint, error) {
	fields := []struct {
		name string
		raw  string
	}{
		{"open", k.Open},
		{"high", k.High},
		{"low", k.Low},
		{"close", k.Close},
		{"volume", k.Volume},
	}
	var values [5]float64
	for i, f := range fields {
		v, err := strconv.ParseFloat(f.raw, 64)
		if err != nil {
			return domain.PricePoint{}, fmt.Errorf("could not parse %s '%s': %w", f.name, f.raw, err)
		}
		values[i] = v
	}
	return domain.PricePoint{
		Source:    domain.SourceBinance,
		Timestamp: time.UnixMilli(k.OpenTime).UTC(),
		Open:      values[0],
		High:      values[1],
		Low:       values[2],
		Close:     values[3],
		Volume:    values[4],
	}, nil
}

var _ ports.PriceFeed = (*Client)(nil)
