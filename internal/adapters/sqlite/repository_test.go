package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"arbTimeline/internal/domain"
	"arbTimeline/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...ports.Fields) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...ports.Fields)  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...ports.Fields)  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...ports.Fields) {
}

// setupTestDB creates a temporary database for testing
func setupTestDB(t *testing.T) (*Repository, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "arb-timeline-test-*")
	require.NoError(t, err)

	repo, err := NewRepository(Config{
		DBPath: filepath.Join(tmpDir, "test.db"),
		Logger: &mockLogger{},
	})
	require.NoError(t, err)

	cleanup := func() {
		repo.Close()
		os.RemoveAll(tmpDir)
	}
	return repo, cleanup
}

var base = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func testOpportunity(id string, offset time.Duration, rate float64) *domain.Opportunity {
	return &domain.Opportunity{
		ID:            id,
		Timestamp:     base.Add(offset),
		Direction:     domain.DexToCex,
		DexPrice:      3010.5,
		CexPrice:      3001.25,
		SpreadPercent: 0.31,
		Profit:        rate * 10,
		ProfitRate:    rate,
	}
}

func TestNewRepository_RequiresLogger(t *testing.T) {
	_, err := NewRepository(Config{DBPath: filepath.Join(t.TempDir(), "x.db")})
	assert.True(t, errors.Is(err, ports.ErrConfigurationError))
}

func TestRepository_SaveAndFindByID(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	o := testOpportunity("op-1", 0, 0.42)
	require.NoError(t, repo.Save(ctx, o))

	got, err := repo.FindByID(ctx, "op-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, o.Direction, got.Direction)
	assert.Equal(t, o.ProfitRate, got.ProfitRate)
	assert.Equal(t, o.DexPrice, got.DexPrice)
	assert.True(t, o.Timestamp.Equal(got.Timestamp))

	// Saving again replaces the row.
	o.Profit = 99
	require.NoError(t, repo.Save(ctx, o))
	got, err = repo.FindByID(ctx, "op-1")
	require.NoError(t, err)
	assert.Equal(t, 99.0, got.Profit)

	missing, err := repo.FindByID(ctx, "nope")
	assert.NoError(t, err)
	assert.Nil(t, missing)

	err = repo.Save(ctx, &domain.Opportunity{})
	assert.True(t, errors.Is(err, ports.ErrInvalidRequest))
}

func TestRepository_FindOpportunities(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	n, err := repo.SaveBatch(ctx, []*domain.Opportunity{
		testOpportunity("c", 2*time.Hour, 0.9),
		testOpportunity("a", 0, 0.1),
		nil,
		testOpportunity("b", time.Hour, 0.5),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	minRate := 0.5
	tests := []struct {
		name   string
		filter domain.Filter
		want   []string
	}{
		{"all ordered by time", domain.Filter{}, []string{"a", "b", "c"}},
		{"min rate", domain.Filter{MinProfitRate: &minRate}, []string{"b", "c"}},
		{"time window", domain.Filter{Start: base.Add(30 * time.Minute), End: base.Add(time.Hour)}, []string{"b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opps, err := repo.FindOpportunities(ctx, tt.filter)
			require.NoError(t, err)
			ids := make([]string, len(opps))
			for i, o := range opps {
				ids[i] = o.ID
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestRepository_Prices(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	latest, err := repo.LatestPriceTime(ctx, domain.SourceBinance)
	require.NoError(t, err)
	assert.True(t, latest.IsZero())

	points := []domain.PricePoint{
		{Source: domain.SourceBinance, Timestamp: base, Open: 2995, High: 3004, Low: 2990, Close: 3000, Volume: 12},
		{Source: domain.SourceBinance, Timestamp: base.Add(time.Minute), Close: 3001},
		{Source: domain.SourceUniswap, Timestamp: base, Close: 3005},
	}
	inserted, err := repo.SavePrices(ctx, points)
	require.NoError(t, err)
	assert.Equal(t, 3, inserted)

	// Duplicates are ignored.
	inserted, err = repo.SavePrices(ctx, points[:2])
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)

	binance, err := repo.FindPrices(ctx, domain.SourceBinance, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, binance, 2)
	assert.Equal(t, points[0], binance[0])
	assert.Equal(t, 3001.0, binance[1].Close)
	assert.Equal(t, 12.0, binance[0].Volume)
	assert.Equal(t, domain.SourceBinance, binance[1].Source)

	windowed, err := repo.FindPrices(ctx, domain.SourceBinance, base.Add(30*time.Second), time.Time{})
	require.NoError(t, err)
	assert.Len(t, windowed, 1)

	latest, err = repo.LatestPriceTime(ctx, domain.SourceBinance)
	require.NoError(t, err)
	assert.True(t, latest.Equal(base.Add(time.Minute)))
}

func TestNewRepository_MigratesClosePriceTable(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "legacy.db")
	legacy, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	_, err = legacy.Exec(`
	CREATE TABLE price_points (
		source TEXT NOT NULL,
		ts INTEGER NOT NULL,
		price REAL NOT NULL,
		volume REAL NOT NULL DEFAULT 0,
		PRIMARY KEY (source, ts)
	)`)
	require.NoError(t, err)
	_, err = legacy.Exec(`INSERT INTO price_points (source, ts, price, volume) VALUES ('binance', ?, 3000, 7)`, base.UnixMilli())
	require.NoError(t, err)
	require.NoError(t, legacy.Close())

	repo, err := NewRepository(Config{DBPath: dbPath, Logger: &mockLogger{}})
	require.NoError(t, err)
	ctx := context.Background()

	points, err := repo.FindPrices(ctx, domain.SourceBinance, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, 3000.0, points[0].Close)
	assert.Equal(t, 7.0, points[0].Volume)
	assert.Zero(t, points[0].Open)

	inserted, err := repo.SavePrices(ctx, []domain.PricePoint{
		{Source: domain.SourceBinance, Timestamp: base.Add(time.Minute), Open: 3000, High: 3012, Low: 2998, Close: 3010},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)

	// Reopening an upgraded database is a no-op.
	require.NoError(t, repo.Close())
	reopened, err := NewRepository(Config{DBPath: dbPath, Logger: &mockLogger{}})
	require.NoError(t, err)
	defer reopened.Close()
	points, err = reopened.FindPrices(ctx, domain.SourceBinance, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, 3012.0, points[1].High)
}
