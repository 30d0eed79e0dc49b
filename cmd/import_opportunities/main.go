package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"arbTimeline/config"
	"arbTimeline/internal/adapters/logger"
	"arbTimeline/internal/adapters/sqlite"
	"arbTimeline/internal/domain"
	"arbTimeline/internal/ports"
	"arbTimeline/internal/utils"
)

var inputPath = flag.String("in", "", "Opportunity file to import (.csv or .json)")

func main() {
	flag.Parse()
	if *inputPath == "" {
		log.Fatal("usage: import_opportunities -in <file.csv|file.json>")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	appLogger := logger.NewStdLogger(cfg.LogLevel)
	ctx := context.Background()

	raws, err := readRaw(*inputPath)
	if err != nil {
		appLogger.Error(ctx, err, "Failed to read input", ports.Fields{"path": *inputPath})
		log.Fatalf("Error reading %s: %v", *inputPath, err)
	}

	opps, rejected := utils.ConvertRaw(raws)
	for _, rerr := range rejected {
		appLogger.Warn(ctx, "Skipping opportunity", ports.Fields{"error": rerr.Error()})
	}

	repo, err := sqlite.NewRepository(sqlite.Config{DBPath: cfg.DBPath, Logger: appLogger.With("sqlite")})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize database repository: %v", err)
	}
	defer repo.Close()

	saved, err := repo.SaveBatch(ctx, opps)
	if err != nil {
		appLogger.Error(ctx, err, "Import failed")
		log.Fatalf("Error saving opportunities: %v", err)
	}
	total, err := repo.Count(ctx)
	if err != nil {
		log.Fatalf("Error counting opportunities: %v", err)
	}

	appLogger.Info(ctx, "Import finished", ports.Fields{
		"read":     len(raws),
		"saved":    saved,
		"rejected": len(rejected),
		"stored":   total,
	})
}

// readRaw picks the decoder from the file extension.
func readRaw(path string) ([]domain.RawOpportunity, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return utils.ReadOpportunitiesCSVFile(path)
	case ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return utils.DecodeOpportunitiesJSON(data)
	default:
		return nil, fmt.Errorf("unsupported file type %q: %w", filepath.Ext(path), ports.ErrInvalidRequest)
	}
}
