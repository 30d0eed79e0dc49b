package timeline

import (
	"fmt"
	"time"

	"arbTimeline/internal/domain"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func opp(id string, ts time.Time, rate float64) *domain.Opportunity {
	return &domain.Opportunity{
		ID:         id,
		Timestamp:  ts,
		Direction:  domain.CexToDex,
		ProfitRate: rate,
	}
}

// spread returns n opportunities one minute apart with rates cycling
// through rates.
func spread(n int, step time.Duration, rates ...float64) []*domain.Opportunity {
	out := make([]*domain.Opportunity, n)
	for i := range out {
		out[i] = opp(fmt.Sprintf("o-%d", i), t0.Add(time.Duration(i)*step), rates[i%len(rates)])
	}
	return out
}
