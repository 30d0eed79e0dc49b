package analytics

import (
	"fmt"
	"math"
	"time"

	"arbTimeline/internal/domain"
)

const (
	// MagnitudeBins is the number of profit rate bins.
	MagnitudeBins = 10
	// HourBins is the number of hour-of-day bins.
	HourBins = 24
)

// HistogramBin aggregates the opportunities falling in one bin.
type HistogramBin struct {
	RangeLow    float64
	RangeHigh   float64
	Count       int
	AvgRate     float64
	TotalProfit float64
	AvgProfit   float64
	MinProfit   float64
	MaxProfit   float64
	AvgSpread   float64
}

// HourBin is a HistogramBin for one hour of the day.
type HourBin struct {
	HistogramBin
	Hour  int
	Label string
}

// add folds o into the bin. Averages are finalized by finish.
func (b *HistogramBin) add(o *domain.Opportunity) {
	if b.Count == 0 {
		b.MinProfit, b.MaxProfit = o.Profit, o.Profit
	} else {
		b.MinProfit = math.Min(b.MinProfit, o.Profit)
		b.MaxProfit = math.Max(b.MaxProfit, o.Profit)
	}
	b.Count++
	b.AvgRate += o.ProfitRate
	b.AvgSpread += o.SpreadPercent
	b.TotalProfit += o.Profit
}

func (b *HistogramBin) finish() {
	if b.Count == 0 {
		return
	}
	n := float64(b.Count)
	b.AvgRate /= n
	b.AvgSpread /= n
	b.AvgProfit = b.TotalProfit / n
}

// MagnitudeHistogram splits [minRate, maxRate] into MagnitudeBins equal
// bins. A degenerate range uses bins of width 1 starting at the rate.
// Returns nil for an empty collection.
func MagnitudeHistogram(opps []*domain.Opportunity) []HistogramBin {
	minRate, maxRate := math.Inf(1), math.Inf(-1)
	for _, o := range opps {
		if o == nil {
			continue
		}
		minRate = math.Min(minRate, o.ProfitRate)
		maxRate = math.Max(maxRate, o.ProfitRate)
	}
	if math.IsInf(minRate, 1) {
		return nil
	}

	width := (maxRate - minRate) / MagnitudeBins
	if width == 0 {
		width = 1
	}
	bins := make([]HistogramBin, MagnitudeBins)
	for i := range bins {
		bins[i].RangeLow = minRate + float64(i)*width
		bins[i].RangeHigh = minRate + float64(i+1)*width
	}
	for _, o := range opps {
		if o == nil {
			continue
		}
		bins[binIndex(o.ProfitRate, minRate, width)].add(o)
	}
	for i := range bins {
		bins[i].finish()
	}
	return bins
}

func binIndex(rate, min, width float64) int {
	i := int(math.Floor((rate - min) / width))
	if i < 0 {
		return 0
	}
	if i >= MagnitudeBins {
		return MagnitudeBins - 1
	}
	return i
}

// HourHistogram groups opportunities by the hour of day of their
// timestamp in loc (UTC when nil). All 24 bins are always returned.
func HourHistogram(opps []*domain.Opportunity, loc *time.Location) []HourBin {
	if loc == nil {
		loc = time.UTC
	}
	bins := make([]HourBin, HourBins)
	for h := range bins {
		bins[h].Hour = h
		bins[h].Label = fmt.Sprintf("%02d:00", h)
		bins[h].RangeLow = float64(h)
		bins[h].RangeHigh = float64(h + 1)
	}
	for _, o := range opps {
		if o == nil || o.Timestamp.IsZero() {
			continue
		}
		bins[o.Timestamp.In(loc).Hour()].add(o)
	}
	for h := range bins {
		bins[h].finish()
	}
	return bins
}

// NonEmpty returns the bins holding at least one opportunity.
func NonEmpty(bins []HistogramBin) []HistogramBin {
	var out []HistogramBin
	for _, b := range bins {
		if b.Count > 0 {
			out = append(out, b)
		}
	}
	return out
}
