package domain

// Direction represents the flow direction of an arbitrage opportunity.
type Direction string

const (
	CexToDex Direction = "cex->dex"
	DexToCex Direction = "dex->cex"
)

// Valid reports whether d is one of the two known flow directions.
func (d Direction) Valid() bool {
	return d == CexToDex || d == DexToCex
}

// PriceSource identifies where a price series was observed.
type PriceSource string

const (
	SourceUniswap PriceSource = "uniswap"
	SourceBinance PriceSource = "binance"
)
