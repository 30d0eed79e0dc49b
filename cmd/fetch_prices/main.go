package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"arbTimeline/config"
	"arbTimeline/internal/adapters/binanceclient"
	"arbTimeline/internal/adapters/logger"
	"arbTimeline/internal/adapters/sqlite"
	"arbTimeline/internal/domain"
	"arbTimeline/internal/ports"
	"arbTimeline/internal/utils"
)

var (
	dumpCSV = flag.Bool("csv", true, "Also write the fetched series to a CSV file in OUTPUT_DIR")
	full    = flag.Bool("full", false, "Ignore stored data and fetch the whole FETCH_DAYS window")
)

func main() {
	flag.Parse()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger := logger.NewStdLogger(cfg.LogLevel)
	ctx := context.Background()

	// 3. Initialize Repository
	repo, err := sqlite.NewRepository(sqlite.Config{DBPath: cfg.DBPath, Logger: appLogger.With("sqlite")})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize database repository: %v", err)
	}
	defer repo.Close()

	// 4. Initialize Exchange Client (Binance Adapter)
	binanceClient, err := binanceclient.New(binanceclient.Config{
		APIKey:     cfg.APIKey,
		SecretKey:  cfg.SecretKey,
		UseTestnet: cfg.IsTestnet,
		PageDelay:  cfg.KlinePageGap,
		Logger:     appLogger.With("binance"),
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize Binance client")
		log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
	}
	if err := binanceClient.Ping(ctx); err != nil {
		log.Fatalf("FATAL: Binance is not reachable: %v", err)
	}

	end, err := binanceClient.GetServerTime(ctx)
	if err != nil {
		appLogger.Warn(ctx, "Falling back to local clock", ports.Fields{"error": err.Error()})
		end = time.Now()
	}
	start, err := fetchStart(ctx, repo, end, cfg.FetchDays)
	if err != nil {
		log.Fatalf("FATAL: Failed to read stored prices: %v", err)
	}
	if !start.Before(end) {
		appLogger.Info(ctx, "Price series is up to date")
		return
	}

	appLogger.Info(ctx, "Fetching klines", ports.Fields{
		"symbol":   cfg.Symbol,
		"interval": cfg.Interval,
		"from":     start.Format(time.RFC3339),
		"to":       end.Format(time.RFC3339),
	})
	points, err := binanceClient.GetPriceSeries(ctx, cfg.Symbol, cfg.Interval, start, end)
	if err != nil {
		appLogger.Error(ctx, err, "Error fetching klines")
		log.Fatalf("Error fetching klines: %v", err)
	}

	added, err := repo.SavePrices(ctx, points)
	if err != nil {
		log.Fatalf("Error saving prices: %v", err)
	}
	appLogger.Info(ctx, "Prices stored", ports.Fields{"fetched": len(points), "new": added})

	if *dumpCSV && len(points) > 0 {
		if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
			log.Fatalf("Error creating output directory: %v", err)
		}
		filename := filepath.Join(cfg.OutputDir, fmt.Sprintf("%s_%s_%s_to_%s.csv",
			cfg.Symbol, cfg.Interval, start.Format("20060102"), end.Format("20060102")))
		if err := utils.WritePricesToCSV(points, filename); err != nil {
			appLogger.Error(ctx, err, "Error writing CSV")
			log.Fatalf("Error writing CSV: %v", err)
		}
		appLogger.Info(ctx, "Saved to", ports.Fields{"filename": filename})
	}
}

// fetchStart resumes after the newest stored point unless that is older
// than the requested window.
func fetchStart(ctx context.Context, repo ports.PriceRepository, end time.Time, days int) (time.Time, error) {
	windowStart := end.AddDate(0, 0, -days)
	if *full {
		return windowStart, nil
	}
	latest, err := repo.LatestPriceTime(ctx, domain.SourceBinance)
	if err != nil {
		return time.Time{}, err
	}
	if latest.IsZero() || latest.Before(windowStart) {
		return windowStart, nil
	}
	return latest.Add(time.Millisecond), nil
}
