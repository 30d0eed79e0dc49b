package timeline

import (
	"sort"
	"time"

	"arbTimeline/internal/domain"
)

// Slot is a fixed-width time bucket and the opportunities that fall in it.
type Slot struct {
	Key    int64 // floor(unix millis / granularity millis)
	Events []*domain.Opportunity
}

// Start returns the instant at which the slot begins.
func (s Slot) Start(g Granularity) time.Time {
	return time.UnixMilli(s.Key * g.Millis())
}

// Prepare returns a copy of opps without nil or unparsed (zero timestamp)
// entries, sorted ascending by timestamp. Equal timestamps keep input order.
func Prepare(opps []*domain.Opportunity) []*domain.Opportunity {
	out := make([]*domain.Opportunity, 0, len(opps))
	for _, o := range opps {
		if o == nil || o.Timestamp.IsZero() {
			continue
		}
		out = append(out, o)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// SlotKey returns the slot index of ts for the given slot width.
func SlotKey(ts time.Time, granularityMs int64) int64 {
	ms := ts.UnixMilli()
	key := ms / granularityMs
	if ms%granularityMs != 0 && ms < 0 {
		key--
	}
	return key
}

// Bucket groups opportunities into slots of width g. Slots are returned in
// ascending key order and keep the input order of their members, so sorted
// input yields chronologically ordered slots. Unparsed entries are skipped.
func Bucket(sorted []*domain.Opportunity, g Granularity) []Slot {
	if g <= 0 {
		return nil
	}
	gms := g.Millis()
	index := make(map[int64]int)
	var slots []Slot
	for _, o := range sorted {
		if o == nil || o.Timestamp.IsZero() {
			continue
		}
		key := SlotKey(o.Timestamp, gms)
		i, ok := index[key]
		if !ok {
			i = len(slots)
			index[key] = i
			slots = append(slots, Slot{Key: key})
		}
		slots[i].Events = append(slots[i].Events, o)
	}
	sort.SliceStable(slots, func(i, j int) bool {
		return slots[i].Key < slots[j].Key
	})
	return slots
}
