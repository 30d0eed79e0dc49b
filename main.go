package main

import (
	"bytes"
	"context"
	"flag"
	"log" // Use standard log only for initial fatal errors before logger is set up
	"os"
	"path/filepath"

	"arbTimeline/config"
	"arbTimeline/internal/adapters/logger"
	"arbTimeline/internal/adapters/sqlite"
	"arbTimeline/internal/adapters/svg"
	"arbTimeline/internal/app"
	"arbTimeline/internal/ports"
	"arbTimeline/internal/utils"
)

var (
	writeJSON = flag.Bool("json", false, "Also write the composed scene as JSON")
	zoomSteps = flag.Int("zoom", 0, "Wheel steps to apply before rendering (negative zooms in)")
	panBy     = flag.Float64("pan", 0, "Horizontal pan offset applied after zooming")
	hoverID   = flag.String("hover", "", "Opportunity ID to highlight")
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
	appLogger.Info(ctx, "Logger initialized", ports.Fields{"level": cfg.LogLevel.String()})

	// 3. Initialize Repository (Database Adapter)
	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger.With("sqlite"),
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize database repository")
		log.Fatalf("FATAL: Failed to initialize database repository: %v", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(ctx, err, "Error closing database repository")
		}
	}()

	// 4. Initialize Application Service
	svc, err := app.NewTimelineService(app.ServiceConfig{
		Layout:          cfg.Layout,
		Granularity:     cfg.Granularity,
		ContainerWidth:  cfg.ContainerWidth,
		ContainerHeight: cfg.ContainerHeight,
		Location:        cfg.Location,
	}, appLogger.With("timeline"), repo, repo)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize timeline service")
		log.Fatalf("FATAL: Failed to initialize timeline service: %v", err)
	}

	if err := svc.Load(ctx, cfg.Filter); err != nil {
		log.Fatalf("FATAL: Failed to load timeline data: %v", err)
	}

	// 5. Apply view commands
	for i := 0; i < abs(*zoomSteps); i++ {
		svc.Zoom(float64(sign(*zoomSteps)))
	}
	if *panBy != 0 {
		svc.Pan(*panBy)
	}
	if *hoverID != "" {
		if err := svc.Hover(*hoverID); err != nil {
			appLogger.Warn(ctx, "Cannot highlight opportunity", ports.Fields{"id": *hoverID, "error": err.Error()})
		}
	}

	// 6. Render
	scene := svc.Scene()
	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		log.Fatalf("FATAL: Failed to create output directory: %v", err)
	}

	var buf bytes.Buffer
	renderer := svg.NewRenderer(cfg.Palette, cfg.Layout.StrokeWidth)
	if err := renderer.Render(&buf, scene); err != nil {
		appLogger.Error(ctx, err, "Failed to render timeline")
		log.Fatalf("FATAL: Failed to render timeline: %v", err)
	}
	svgPath := filepath.Join(cfg.OutputDir, "timeline.svg")
	if err := os.WriteFile(svgPath, buf.Bytes(), 0644); err != nil {
		log.Fatalf("FATAL: Failed to write %s: %v", svgPath, err)
	}

	if *writeJSON {
		data, err := utils.MarshalScene(scene)
		if err != nil {
			log.Fatalf("FATAL: Failed to encode scene: %v", err)
		}
		jsonPath := filepath.Join(cfg.OutputDir, "timeline.json")
		if err := os.WriteFile(jsonPath, data, 0644); err != nil {
			log.Fatalf("FATAL: Failed to write %s: %v", jsonPath, err)
		}
		appLogger.Info(ctx, "Scene written", ports.Fields{"path": jsonPath})
	}

	view := svc.Viewport()
	appLogger.Info(ctx, "Timeline rendered", ports.Fields{
		"path":    svgPath,
		"markers": len(scene.Markers),
		"width":   scene.Width,
		"height":  scene.Height,
		"scale":   view.Scale,
		"pan":     view.PanOffset,
	})
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func sign(n int) int {
	if n < 0 {
		return -1
	}
	return 1
}
