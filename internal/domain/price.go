package domain

import "time"

// PricePoint is a single candle of the auxiliary price series. Sources that
// only report a spot price leave Open, High and Low at zero.
type PricePoint struct {
	Source    PriceSource // Venue the price was taken from
	Timestamp time.Time   // Observation time (kline open time for exchange data)
	Open      float64
	High      float64
	Low       float64
	Close     float64 // Plotted on the price curve
	Volume    float64 // Traded volume over the interval, 0 if unknown
}

// Candle returns p with missing Open, High and Low filled from Close, so a
// spot sample reads as a flat candle.
func (p PricePoint) Candle() PricePoint {
	if p.Open == 0 {
		p.Open = p.Close
	}
	if p.High == 0 {
		p.High = max(p.Open, p.Close)
	}
	if p.Low == 0 {
		p.Low = min(p.Open, p.Close)
	}
	return p
}

// Rising reports whether the candle closed at or above its open.
func (p PricePoint) Rising() bool {
	c := p.Candle()
	return c.Close >= c.Open
}
