package timeline

import (
	"encoding/binary"
	"hash/fnv"
	"math"

	"arbTimeline/internal/domain"
)

// RequiredHeight returns the minimum canvas height that fits every stack
// of events at granularity g without clipping the top marker.
func RequiredHeight(events []*domain.Opportunity, g Granularity, r RateRange, l Layout) float64 {
	sentinel := l.SizingSentinel
	minY := sentinel
	params := StackParamsFor(l, sentinel)
	for _, slot := range Bucket(events, g) {
		for _, p := range Stack(slot, r, params) {
			minY = math.Min(minY, p.Y-p.FullRadius(l.StrokeWidth))
		}
	}
	if minY == sentinel {
		return l.MinHeightFloor
	}
	return math.Max(l.MinHeightFloor, (sentinel-minY)+l.BottomMargin+l.TopMargin)
}

// Fingerprint identifies an event collection for memoization. Two
// collections with the same ids, timestamps and rates in the same order
// share a fingerprint.
func Fingerprint(events []*domain.Opportunity) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	for _, o := range events {
		if o == nil {
			continue
		}
		h.Write([]byte(o.ID))
		binary.LittleEndian.PutUint64(buf[:], uint64(o.Timestamp.UnixNano()))
		h.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(o.ProfitRate))
		h.Write(buf[:])
	}
	binary.LittleEndian.PutUint64(buf[:], uint64(len(events)))
	h.Write(buf[:])
	return h.Sum64()
}

type sizingKey struct {
	fingerprint uint64
	granularity Granularity
	rates       RateRange
	layout      Layout
}

// SizingCache memoizes RequiredHeight for the most recent inputs.
// The zero value is ready to use. It is not safe for concurrent use.
type SizingCache struct {
	key    sizingKey
	height float64
	valid  bool
	misses int
}

// Height returns the cached height when the inputs are unchanged and
// recomputes it otherwise.
func (c *SizingCache) Height(events []*domain.Opportunity, g Granularity, r RateRange, l Layout) float64 {
	key := sizingKey{fingerprint: Fingerprint(events), granularity: g, rates: r, layout: l}
	if c.valid && c.key == key {
		return c.height
	}
	c.key = key
	c.height = RequiredHeight(events, g, r, l)
	c.valid = true
	c.misses++
	return c.height
}

// Misses returns how many times the cache had to recompute.
func (c *SizingCache) Misses() int {
	return c.misses
}

// Invalidate drops the cached value.
func (c *SizingCache) Invalidate() {
	c.valid = false
}
