package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"arbTimeline/config"
	"arbTimeline/internal/adapters/chart"
	"arbTimeline/internal/adapters/logger"
	"arbTimeline/internal/adapters/sqlite"
	"arbTimeline/internal/analytics"
	"arbTimeline/internal/domain"
	"arbTimeline/internal/ports"
)

var (
	noCharts    = flag.Bool("no-charts", false, "Skip writing histogram charts")
	chartFormat = flag.String("format", "png", "Chart format: png or svg")
	priceWindow = flag.Int("price-window", 30, "Trailing price points summarized in the price block (0 for all)")
)

func main() {
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	appLogger := logger.NewStdLogger(cfg.LogLevel)
	ctx := context.Background()

	repo, err := sqlite.NewRepository(sqlite.Config{DBPath: cfg.DBPath, Logger: appLogger.With("sqlite")})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize database repository: %v", err)
	}
	defer repo.Close()

	opps, err := repo.FindOpportunities(ctx, cfg.Filter)
	if err != nil {
		log.Fatalf("Error loading opportunities: %v", err)
	}
	if len(opps) == 0 {
		log.Println("No opportunities found. Import some with import_opportunities first.")
		return
	}

	summary := analytics.Summarize(opps, cfg.Location)
	printSummary(summary)

	if err := printPriceStats(ctx, repo, summary); err != nil {
		appLogger.Error(ctx, err, "Failed to load price series")
	}

	magnitude := analytics.MagnitudeHistogram(opps)
	hours := analytics.HourHistogram(opps, cfg.Location)

	fmt.Println("\n## Profit Rate Distribution")
	rateBins := analytics.NonEmpty(magnitude)
	rateLabels := make([]string, len(rateBins))
	for i, b := range rateBins {
		rateLabels[i] = fmt.Sprintf("%.3f%% - %.3f%%", b.RangeLow, b.RangeHigh)
	}
	printBins(rateBins, rateLabels)

	fmt.Println("\n## Hour of Day")
	var hourBins []analytics.HistogramBin
	var hourLabels []string
	for _, b := range hours {
		if b.Count > 0 {
			hourBins = append(hourBins, b.HistogramBin)
			hourLabels = append(hourLabels, b.Label)
		}
	}
	printBins(hourBins, hourLabels)

	if *noCharts {
		return
	}
	if err := writeCharts(cfg, magnitude, hours); err != nil {
		appLogger.Error(ctx, err, "Failed to write charts")
		log.Fatalf("Error writing charts: %v", err)
	}
	appLogger.Info(ctx, "Charts written", ports.Fields{"dir": cfg.OutputDir, "format": *chartFormat})
}

func printSummary(s *analytics.Summary) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight|tabwriter.Debug)
	fmt.Fprintln(w, "Total\tCEX→DEX\tDEX→CEX\tProfitable\tTotalProfit\tAvgProfit\tMaxProfit\tAvgRate\tMaxRate\tAvgSpread\t")
	fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%.2f\t%.2f\t%.2f\t%.3f\t%.3f\t%.3f\t\n",
		s.TotalOpportunities,
		s.CexToDex,
		s.DexToCex,
		s.Profitable,
		s.TotalProfit,
		s.AverageProfit,
		s.MaxProfit,
		s.AverageProfitRate,
		s.MaxProfitRate,
		s.AverageSpread,
	)
	w.Flush()

	fmt.Printf("\nWindow: %s to %s (%s)\n",
		s.FirstSeen.Format(time.RFC3339), s.LastSeen.Format(time.RFC3339), s.Span().Round(time.Second))

	fmt.Println("\n## Daily Profit")
	for _, d := range s.GetDailyProfit() {
		fmt.Printf("%s\t%.2f\n", d.Day.Format("2006-01-02"), d.Profit)
	}
}

// printPriceStats summarizes the price series over the opportunity window,
// preferring Uniswap data when present.
func printPriceStats(ctx context.Context, repo ports.PriceRepository, s *analytics.Summary) error {
	for _, source := range []domain.PriceSource{domain.SourceUniswap, domain.SourceBinance} {
		series, err := repo.FindPrices(ctx, source, s.FirstSeen, s.LastSeen)
		if err != nil {
			return err
		}
		stats, ok := analytics.PriceStats(series, *priceWindow)
		if !ok {
			continue
		}
		sign := ""
		if stats.Change >= 0 {
			sign = "+"
		}
		fmt.Printf("\n## Price (%s, last %d points)\n", source, stats.Points)
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight|tabwriter.Debug)
		fmt.Fprintln(w, "Last\tChange\tChange%\tHigh\tLow\tVolume\tWindowMax\t")
		fmt.Fprintf(w, "%.2f\t%s%.2f\t%s%.2f%%\t%.2f\t%.2f\t%.2f\t%.2f\t\n",
			stats.Price, sign, stats.Change, sign, stats.ChangePercent, stats.High, stats.Low, stats.Volume, stats.MaxPrice)
		w.Flush()
		return nil
	}
	fmt.Println("\nNo price data in the opportunity window. Run fetch_prices first.")
	return nil
}

func printBins(bins []analytics.HistogramBin, labels []string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight|tabwriter.Debug)
	fmt.Fprintln(w, "Range\tCount\tAvgRate\tTotalProfit\tAvgProfit\tMinProfit\tMaxProfit\tAvgSpread\t")
	for i, b := range bins {
		fmt.Fprintf(w, "%s\t%d\t%.3f\t%.2f\t%.2f\t%.2f\t%.2f\t%.3f\t\n",
			labels[i], b.Count, b.AvgRate, b.TotalProfit, b.AvgProfit, b.MinProfit, b.MaxProfit, b.AvgSpread)
	}
	w.Flush()
}

func writeCharts(cfg *config.Config, magnitude []analytics.HistogramBin, hours []analytics.HourBin) error {
	format := chart.Format(*chartFormat)
	if format != chart.PNG && format != chart.SVG {
		return fmt.Errorf("chart format %q: %w", *chartFormat, ports.ErrInvalidRequest)
	}
	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return err
	}
	renderer := chart.NewRenderer(chart.Config{
		Format:    format,
		BarColor:  cfg.Palette.Price,
		RateColor: cfg.Palette.Levels,
	})

	write := func(name string, render func(*os.File) error) error {
		f, err := os.Create(filepath.Join(cfg.OutputDir, name+"."+string(format)))
		if err != nil {
			return err
		}
		defer f.Close()
		return render(f)
	}
	if err := write("profit_rate_histogram", func(f *os.File) error { return renderer.RenderMagnitude(f, magnitude) }); err != nil {
		return err
	}
	return write("hour_histogram", func(f *os.File) error { return renderer.RenderHours(f, hours) })
}
