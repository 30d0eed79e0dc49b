package analytics

import (
	"math"
	"time"

	"arbTimeline/internal/domain"
)

// PriceSummary describes the latest candle of a price window.
type PriceSummary struct {
	Price         float64 // Latest close
	High          float64 // Latest candle high
	Low           float64 // Latest candle low
	Volume        float64 // Latest candle volume
	Change        float64 // Latest close minus latest open
	ChangePercent float64
	MaxPrice      float64 // Highest high across the window
	From          time.Time
	To            time.Time
	Points        int
}

// LastPoints returns the trailing n points of series, or all of them when
// n <= 0 or n exceeds the length.
func LastPoints(series []domain.PricePoint, n int) []domain.PricePoint {
	if n <= 0 || n >= len(series) {
		return series
	}
	return series[len(series)-n:]
}

// PriceStats summarizes the trailing window points of a series sorted by
// time. ok is false for an empty series.
func PriceStats(series []domain.PricePoint, window int) (s PriceSummary, ok bool) {
	active := LastPoints(series, window)
	if len(active) == 0 {
		return PriceSummary{}, false
	}

	latest := active[len(active)-1].Candle()
	s = PriceSummary{
		Price:    latest.Close,
		High:     latest.High,
		Low:      latest.Low,
		Volume:   latest.Volume,
		Change:   latest.Close - latest.Open,
		MaxPrice: math.Inf(-1),
		From:     active[0].Timestamp,
		To:       latest.Timestamp,
		Points:   len(active),
	}
	if latest.Open != 0 {
		s.ChangePercent = s.Change / latest.Open * 100
	}
	for _, p := range active {
		s.MaxPrice = math.Max(s.MaxPrice, p.Candle().High)
	}
	return s, true
}
