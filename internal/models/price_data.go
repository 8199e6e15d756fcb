package models

import "time"

// Raw price-history column names, as returned by the price-history provider
const (
	RawOpen        = "Open"
	RawHigh        = "High"
	RawLow         = "Low"
	RawClose       = "Close"
	RawVolume      = "Volume"
	RawDividends   = "Dividends"
	RawStockSplits = "Stock Splits"
)

// PriceBar represents one daily OHLCV bar for a symbol
type PriceBar struct {
	Symbol      string    `json:"symbol"`
	Date        time.Time `json:"date"`
	Open        float64   `json:"open"`
	High        float64   `json:"high"`
	Low         float64   `json:"low"`
	Close       float64   `json:"close"`
	Volume      float64   `json:"volume"`
	Dividends   *float64  `json:"dividends,omitempty"`
	StockSplits *float64  `json:"stock_splits,omitempty"`
}
