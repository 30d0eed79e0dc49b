package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"arbTimeline/internal/adapters/logger"
	"arbTimeline/internal/adapters/svg"
	"arbTimeline/internal/domain"
	"arbTimeline/internal/ports"
	"arbTimeline/internal/timeline"
)

// Config holds all application configuration.
type Config struct {
	// Binance API (keys are optional, klines are public)
	APIKey       string
	SecretKey    string
	IsTestnet    bool
	Symbol       string
	Interval     string
	FetchDays    int
	KlinePageGap time.Duration

	// Database
	DBPath string

	// Logging
	LogLevel logger.LogLevel

	// Timeline
	Granularity     timeline.Granularity
	ContainerWidth  float64
	ContainerHeight float64
	Location        *time.Location
	Filter          domain.Filter

	// Rendering
	LayoutFile string
	Layout     timeline.Layout
	Palette    svg.Palette
	OutputDir  string
}

// LayoutFile is the YAML document read from LAYOUT_FILE. Absent keys keep
// their defaults.
type LayoutFile struct {
	Layout  timeline.Layout `yaml:"layout"`
	Palette svg.Palette     `yaml:"palette"`
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// A missing .env is fine; plain environment variables still apply.
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string

	// Binance API
	cfg.APIKey = getEnv("BINANCE_API_KEY", "")
	cfg.SecretKey = getEnv("BINANCE_API_SECRET", "")
	cfg.IsTestnet = getEnvAsBool("IS_TESTNET", false)
	cfg.Symbol = strings.ToUpper(getEnv("SYMBOL", "ETHUSDT"))
	cfg.Interval = getEnv("INTERVAL", "1m")

	cfg.FetchDays, err = getEnvAsIntRequired("FETCH_DAYS", 1)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid FETCH_DAYS: %v", err))
	} else if cfg.FetchDays <= 0 {
		errs = append(errs, "FETCH_DAYS must be positive")
	}
	cfg.KlinePageGap = time.Duration(getEnvAsInt("KLINE_PAGE_DELAY_MS", 250)) * time.Millisecond

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./data/arbitrage.db")

	// Logging
	cfg.LogLevel = logger.ParseLevel(getEnv("LOG_LEVEL", "INFO"))

	// Timeline
	minutes, err := getEnvAsIntRequired("GRANULARITY_MINUTES", int(timeline.DefaultGranularity))
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid GRANULARITY_MINUTES: %v", err))
	} else if g := timeline.Granularity(minutes); !g.Valid() {
		errs = append(errs, fmt.Sprintf("GRANULARITY_MINUTES must be one of %v", timeline.Granularities))
	} else {
		cfg.Granularity = g
	}

	cfg.ContainerWidth, err = getEnvAsFloatRequired("CONTAINER_WIDTH", 1280)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid CONTAINER_WIDTH: %v", err))
	}
	cfg.ContainerHeight, err = getEnvAsFloatRequired("CONTAINER_HEIGHT", 0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid CONTAINER_HEIGHT: %v", err))
	} else if cfg.ContainerHeight < 0 {
		errs = append(errs, "CONTAINER_HEIGHT cannot be negative")
	}

	cfg.Location, err = time.LoadLocation(getEnv("TIMEZONE", "UTC"))
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid TIMEZONE: %v", err))
	}

	if s := getEnv("MIN_PROFIT_RATE", ""); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			errs = append(errs, fmt.Sprintf("invalid MIN_PROFIT_RATE: %v", err))
		} else {
			cfg.Filter.MinProfitRate = &v
		}
	}
	if cfg.Filter.Start, err = getEnvAsTime("START_TIME"); err != nil {
		errs = append(errs, fmt.Sprintf("invalid START_TIME: %v", err))
	}
	if cfg.Filter.End, err = getEnvAsTime("END_TIME"); err != nil {
		errs = append(errs, fmt.Sprintf("invalid END_TIME: %v", err))
	}
	if !cfg.Filter.Start.IsZero() && !cfg.Filter.End.IsZero() && cfg.Filter.End.Before(cfg.Filter.Start) {
		errs = append(errs, "END_TIME must not be before START_TIME")
	}

	// Rendering
	cfg.LayoutFile = getEnv("LAYOUT_FILE", "")
	lf, err := LoadLayoutFile(cfg.LayoutFile)
	if err != nil {
		errs = append(errs, err.Error())
	} else {
		cfg.Layout, cfg.Palette = lf.Layout, lf.Palette
	}
	cfg.OutputDir = getEnv("OUTPUT_DIR", "./output")

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s: %w", strings.Join(errs, "; "), ports.ErrConfigurationError)
	}
	return cfg, nil
}

// LoadLayoutFile reads layout and palette overrides from a YAML file. An
// empty path returns the defaults.
func LoadLayoutFile(path string) (LayoutFile, error) {
	lf := LayoutFile{Layout: timeline.DefaultLayout(), Palette: svg.DefaultPalette()}
	if path == "" {
		return lf, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return LayoutFile{}, fmt.Errorf("error reading layout file: %w", err)
	}
	if err := yaml.Unmarshal(data, &lf); err != nil {
		return LayoutFile{}, fmt.Errorf("error parsing layout file: %w", err)
	}
	if err := lf.Layout.Validate(); err != nil {
		return LayoutFile{}, fmt.Errorf("invalid layout in %s: %w", path, err)
	}
	if err := lf.Palette.Validate(); err != nil {
		return LayoutFile{}, fmt.Errorf("invalid palette in %s: %w", path, err)
	}
	return lf, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	value, err := getEnvAsIntRequired(key, defaultValue)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsTime(key string) (time.Time, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return time.Time{}, nil
	}
	return domain.ParseTimestamp(valueStr)
}
