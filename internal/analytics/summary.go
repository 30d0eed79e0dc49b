// Package analytics aggregates opportunities into summary statistics and
// histograms for the overview panels.
package analytics

import (
	"math"
	"sort"
	"time"

	"arbTimeline/internal/domain"
)

// Summary holds headline statistics for a set of opportunities
type Summary struct {
	// Counts
	TotalOpportunities int
	CexToDex           int
	DexToCex           int
	Profitable         int

	// Profit
	TotalProfit   float64
	MaxProfit     float64
	MinProfit     float64
	AverageProfit float64

	// Rates and spreads
	AverageProfitRate float64
	MaxProfitRate     float64
	AverageSpread     float64
	MaxSpread         float64
	MinSpread         float64

	FirstSeen   time.Time
	LastSeen    time.Time
	DailyProfit map[string]float64
}

// DailyProfit is the total profit of one calendar day
type DailyProfit struct {
	Day    time.Time
	Profit float64
}

// Summarize calculates summary statistics. Day keys are taken in loc (UTC
// when nil). An empty collection yields a zeroed summary.
func Summarize(opps []*domain.Opportunity, loc *time.Location) *Summary {
	s := &Summary{DailyProfit: make(map[string]float64)}
	if loc == nil {
		loc = time.UTC
	}

	for _, o := range opps {
		if o == nil {
			continue
		}
		first := s.TotalOpportunities == 0
		s.TotalOpportunities++

		// Update direction counts
		switch o.Direction {
		case domain.CexToDex:
			s.CexToDex++
		case domain.DexToCex:
			s.DexToCex++
		}
		if o.Profit > 0 {
			s.Profitable++
		}

		// Update extremes
		if first {
			s.MaxProfit, s.MinProfit = o.Profit, o.Profit
			s.MaxSpread, s.MinSpread = o.SpreadPercent, o.SpreadPercent
			s.MaxProfitRate = o.ProfitRate
			s.FirstSeen, s.LastSeen = o.Timestamp, o.Timestamp
		} else {
			s.MaxProfit = math.Max(s.MaxProfit, o.Profit)
			s.MinProfit = math.Min(s.MinProfit, o.Profit)
			s.MaxSpread = math.Max(s.MaxSpread, o.SpreadPercent)
			s.MinSpread = math.Min(s.MinSpread, o.SpreadPercent)
			s.MaxProfitRate = math.Max(s.MaxProfitRate, o.ProfitRate)
			if o.Timestamp.Before(s.FirstSeen) {
				s.FirstSeen = o.Timestamp
			}
			if o.Timestamp.After(s.LastSeen) {
				s.LastSeen = o.Timestamp
			}
		}

		// Running averages
		n := float64(s.TotalOpportunities)
		s.AverageProfitRate = (s.AverageProfitRate*(n-1) + o.ProfitRate) / n
		s.AverageSpread = (s.AverageSpread*(n-1) + o.SpreadPercent) / n

		s.TotalProfit += o.Profit
		s.DailyProfit[o.Timestamp.In(loc).Format("2006-01-02")] += o.Profit
	}

	if s.TotalOpportunities > 0 {
		s.AverageProfit = s.TotalProfit / float64(s.TotalOpportunities)
	}
	return s
}

// GetDailyProfit returns the daily totals in chronological order
func (s *Summary) GetDailyProfit() []DailyProfit {
	days := make([]DailyProfit, 0, len(s.DailyProfit))
	for day, profit := range s.DailyProfit {
		date, _ := time.Parse("2006-01-02", day)
		days = append(days, DailyProfit{Day: date, Profit: profit})
	}
	sort.Slice(days, func(i, j int) bool {
		return days[i].Day.Before(days[j].Day)
	})
	return days
}

// Span returns the time between the first and last opportunity
func (s *Summary) Span() time.Duration {
	return s.LastSeen.Sub(s.FirstSeen)
}
