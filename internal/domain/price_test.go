package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPricePoint_Candle(t *testing.T) {
	tests := []struct {
		name   string
		in     PricePoint
		want   PricePoint
		rising bool
	}{
		{
			name:   "full candle unchanged",
			in:     PricePoint{Open: 3000, High: 3010, Low: 2990, Close: 3005},
			want:   PricePoint{Open: 3000, High: 3010, Low: 2990, Close: 3005},
			rising: true,
		},
		{
			name:   "spot sample is flat",
			in:     PricePoint{Close: 3000},
			want:   PricePoint{Open: 3000, High: 3000, Low: 3000, Close: 3000},
			rising: true,
		},
		{
			name:   "missing extremes derive from open and close",
			in:     PricePoint{Open: 3010, Close: 3000},
			want:   PricePoint{Open: 3010, High: 3010, Low: 3000, Close: 3000},
			rising: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Candle())
			assert.Equal(t, tt.rising, tt.in.Rising())
		})
	}
}
