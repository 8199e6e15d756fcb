package provider

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/trogers1052/stock-dataset-compiler/internal/frame"
	"github.com/trogers1052/stock-dataset-compiler/internal/models"
)

// ErrFetch marks errors raised while retrieving a price history
var ErrFetch = errors.New("price history fetch failed")

// PriceHistory returns the daily price history of a symbol over a lookback period
// (a provider token such as "5y"). The frame holds the Open, High, Low, Close and
// Volume columns, plus Dividends and Stock Splits when the provider reports them.
type PriceHistory interface {
	History(ctx context.Context, symbol, period string) (*frame.Frame, error)
}

// FromBars converts daily bars into a raw price-history frame. Bars are sorted by
// date and only the last bar of a repeated date is kept. The corporate-action
// columns are included only if at least one bar carries them.
func FromBars(bars []models.PriceBar) *frame.Frame {
	sorted := append([]models.PriceBar(nil), bars...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	unique := sorted[:0]
	for _, b := range sorted {
		if n := len(unique); n > 0 && frame.Day(unique[n-1].Date).Equal(frame.Day(b.Date)) {
			unique[n-1] = b
			continue
		}
		unique = append(unique, b)
	}

	dates := make([]time.Time, len(unique))
	cols := map[string][]float64{
		models.RawOpen:        make([]float64, len(unique)),
		models.RawHigh:        make([]float64, len(unique)),
		models.RawLow:         make([]float64, len(unique)),
		models.RawClose:       make([]float64, len(unique)),
		models.RawVolume:      make([]float64, len(unique)),
		models.RawDividends:   make([]float64, len(unique)),
		models.RawStockSplits: make([]float64, len(unique)),
	}
	corporateActions := false
	for i, b := range unique {
		dates[i] = b.Date
		cols[models.RawOpen][i] = b.Open
		cols[models.RawHigh][i] = b.High
		cols[models.RawLow][i] = b.Low
		cols[models.RawClose][i] = b.Close
		cols[models.RawVolume][i] = b.Volume
		cols[models.RawDividends][i] = optional(b.Dividends)
		cols[models.RawStockSplits][i] = optional(b.StockSplits)
		if b.Dividends != nil || b.StockSplits != nil {
			corporateActions = true
		}
	}

	order := []string{models.RawOpen, models.RawHigh, models.RawLow, models.RawClose, models.RawVolume}
	if corporateActions {
		order = append(order, models.RawDividends, models.RawStockSplits)
	}

	f := frame.New(dates)
	for _, name := range order {
		// lengths always match the date index here
		f, _ = f.WithColumn(name, cols[name])
	}
	return f
}

// optional treats a bar without a corporate action as zero
func optional(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
