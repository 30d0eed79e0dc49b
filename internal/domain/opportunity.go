package domain

import (
	"fmt"
	"strings"
	"time"
)

// Opportunity represents a single detected arbitrage opportunity.
type Opportunity struct {
	ID            string    // Unique identifier (from the data source or generated on import)
	Timestamp     time.Time // When the price gap was observed
	Direction     Direction // Which venue was bought and which was sold
	DexPrice      float64   // Uniswap quote
	CexPrice      float64   // Binance quote
	SpreadPercent float64   // Price difference between venues, in percent
	Profit        float64   // Expected profit in USDT (may be negative)
	ProfitRate    float64   // Profit rate in percent, already scaled by 100
}

// RawOpportunity is the wire form handed over by the data source.
// Timestamps are kept as strings so that a malformed record can be
// excluded instead of failing the whole batch.
type RawOpportunity struct {
	ID            string  `json:"id"`
	Timestamp     string  `json:"timestamp"`
	Direction     string  `json:"direction"`
	DexPrice      float64 `json:"uniswap_price"`
	CexPrice      float64 `json:"binance_price"`
	SpreadPercent float64 `json:"price_diff_percent"`
	Profit        float64 `json:"profit"`
	ProfitRate    float64 `json:"profit_rate"`
}

// ToOpportunity converts the wire record into a domain Opportunity.
// It fails only when the timestamp cannot be parsed.
func (r RawOpportunity) ToOpportunity() (*Opportunity, error) {
	ts, err := ParseTimestamp(r.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("opportunity %q: %w", r.ID, err)
	}
	return &Opportunity{
		ID:            r.ID,
		Timestamp:     ts,
		Direction:     Direction(strings.TrimSpace(r.Direction)),
		DexPrice:      r.DexPrice,
		CexPrice:      r.CexPrice,
		SpreadPercent: r.SpreadPercent,
		Profit:        r.Profit,
		ProfitRate:    r.ProfitRate,
	}, nil
}

// Raw converts the opportunity back to its wire form.
func (o *Opportunity) Raw() RawOpportunity {
	return RawOpportunity{
		ID:            o.ID,
		Timestamp:     o.Timestamp.Format(time.RFC3339Nano),
		Direction:     string(o.Direction),
		DexPrice:      o.DexPrice,
		CexPrice:      o.CexPrice,
		SpreadPercent: o.SpreadPercent,
		Profit:        o.Profit,
		ProfitRate:    o.ProfitRate,
	}
}

// Filter narrows a collection of opportunities.
// Zero values disable the corresponding condition.
type Filter struct {
	MinProfitRate *float64  // Inclusive lower bound on ProfitRate (percent)
	Start         time.Time // Inclusive lower bound on Timestamp
	End           time.Time // Inclusive upper bound on Timestamp
}

// Match reports whether o satisfies every enabled condition.
func (f Filter) Match(o *Opportunity) bool {
	if o == nil {
		return false
	}
	if f.MinProfitRate != nil && o.ProfitRate < *f.MinProfitRate {
		return false
	}
	if !f.Start.IsZero() && o.Timestamp.Before(f.Start) {
		return false
	}
	if !f.End.IsZero() && o.Timestamp.After(f.End) {
		return false
	}
	return true
}

// Apply returns the opportunities matching the filter, preserving order.
func (f Filter) Apply(opps []*Opportunity) []*Opportunity {
	out := make([]*Opportunity, 0, len(opps))
	for _, o := range opps {
		if f.Match(o) {
			out = append(out, o)
		}
	}
	return out
}
