package provider

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	yfmodels "github.com/wnjoon/go-yfinance/pkg/models"
	"github.com/wnjoon/go-yfinance/pkg/ticker"

	"github.com/trogers1052/stock-dataset-compiler/internal/frame"
	"github.com/trogers1052/stock-dataset-compiler/internal/models"
)

// YahooClient fetches daily price histories from Yahoo Finance using go-yfinance
type YahooClient struct {
	log zerolog.Logger
}

// NewYahooClient creates a new Yahoo Finance price-history client
func NewYahooClient(log zerolog.Logger) *YahooClient {
	return &YahooClient{
		log: log.With().Str("client", "yahoo").Logger(),
	}
}

type historyResult struct {
	bars []models.PriceBar
	err  error
}

// History fetches the daily history of symbol over period.
// go-yfinance is not context aware, so the request runs in its own goroutine and
// is abandoned when ctx is done.
func (c *YahooClient) History(ctx context.Context, symbol, period string) (*frame.Frame, error) {
	done := make(chan historyResult, 1)
	go func() {
		bars, err := c.fetch(symbol, period)
		done <- historyResult{bars: bars, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %s: %w", ErrFetch, symbol, ctx.Err())
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrFetch, symbol, r.err)
		}
		if len(r.bars) == 0 {
			return nil, fmt.Errorf("%w: %s: no price data returned for period %s", ErrFetch, symbol, period)
		}
		c.log.Debug().Str("symbol", symbol).Str("period", period).Int("bars", len(r.bars)).Msg("Fetched price history")
		return FromBars(r.bars), nil
	}
}

func (c *YahooClient) fetch(symbol, period string) ([]models.PriceBar, error) {
	t, err := ticker.New(symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to create ticker: %w", err)
	}
	defer t.Close()

	params := yfmodels.HistoryParams{
		Period:     period,
		Interval:   "1d",
		AutoAdjust: true,
		Actions:    true,
	}

	bars, err := t.History(params)
	if err != nil {
		return nil, fmt.Errorf("failed to get historical prices: %w", err)
	}
	return toPriceBars(symbol, bars), nil
}

// toPriceBars converts go-yfinance bars. Actions were requested, so every bar
// carries its dividend and split values, zero on days without an event.
func toPriceBars(symbol string, bars []yfmodels.Bar) []models.PriceBar {
	prices := make([]models.PriceBar, 0, len(bars))
	for _, bar := range bars {
		dividends, splits := bar.Dividends, bar.Splits
		prices = append(prices, models.PriceBar{
			Symbol:      symbol,
			Date:        bar.Date,
			Open:        bar.Open,
			High:        bar.High,
			Low:         bar.Low,
			Close:       bar.Close,
			Volume:      float64(bar.Volume),
			Dividends:   &dividends,
			StockSplits: &splits,
		})
	}
	return prices
}
