package features

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/trogers1052/stock-dataset-compiler/internal/frame"
	"github.com/trogers1052/stock-dataset-compiler/internal/models"
	"github.com/trogers1052/stock-dataset-compiler/internal/provider"
)

// NormalizeSymbol rewrites a symbol into the provider's naming convention (BRK.B -> BRK-B)
func NormalizeSymbol(symbol string) string {
	return strings.ReplaceAll(strings.TrimSpace(symbol), ".", "-")
}

// TickerBuilder builds the per-symbol feature table
type TickerBuilder struct {
	provider     provider.PriceHistory
	fetchTimeout time.Duration
	log          zerolog.Logger
}

// NewTickerBuilder creates a new ticker feature builder
func NewTickerBuilder(p provider.PriceHistory, fetchTimeout time.Duration, log zerolog.Logger) *TickerBuilder {
	return &TickerBuilder{
		provider:     p,
		fetchTimeout: fetchTimeout,
		log:          log.With().Str("component", "ticker_builder").Logger(),
	}
}

// Features fetches symbol and returns its unlabeled feature table joined with the
// index table. Rows may still hold missing values (moving-average warm-up).
func (b *TickerBuilder) Features(ctx context.Context, symbol string, index *frame.Frame, period string) (*frame.Frame, error) {
	symbol = NormalizeSymbol(symbol)
	raw, err := fetch(ctx, b.provider, b.fetchTimeout, symbol, period)
	if err != nil {
		return nil, err
	}

	f, err := TickerFeatures(raw, symbol, b.log)
	if err != nil {
		return nil, err
	}

	f, err = f.InnerJoin(index)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrShape, symbol, err)
	}
	return f, nil
}

// Build returns the labeled, complete rows of symbol. It fails with
// ErrInsufficientHistory when no row survives.
func (b *TickerBuilder) Build(ctx context.Context, symbol string, index *frame.Frame, period string) (*frame.Frame, error) {
	f, err := b.Features(ctx, symbol, index, period)
	if err != nil {
		return nil, err
	}

	labeled, err := CreateTarget(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", symbol, err)
	}

	complete := labeled.DropNA()
	if complete.Len() == 0 {
		return nil, fmt.Errorf("%w: %s: no complete rows out of %d", ErrInsufficientHistory, symbol, f.Len())
	}
	b.log.Debug().Str("symbol", symbol).Int("rows", complete.Len()).Msg("Built ticker features")
	return complete, nil
}

// TickerFeatures turns the raw history of one symbol into its own feature columns:
// the raw close followed by the standardized price columns and moving averages,
// then the calendar indicators.
func TickerFeatures(raw *frame.Frame, symbol string, log zerolog.Logger) (*frame.Frame, error) {
	if !raw.Has(models.RawClose) {
		return nil, fmt.Errorf("%w: %s: missing %s column", ErrShape, symbol, models.RawClose)
	}

	f, err := raw.DropIfPresent(models.RawDividends, models.RawStockSplits).Rename(strings.ToLower)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrShape, symbol, err)
	}

	f, err = AddMovingAverages(f, models.ColumnClose, models.MovingAverageWindows, models.MovingAverageColumn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", symbol, err)
	}

	featureCols := make([]string, 0, len(f.Columns()))
	for _, name := range f.Columns() {
		if name != models.ColumnClose {
			featureCols = append(featureCols, name)
		}
	}
	if f, err = f.Select(append([]string{models.ColumnClose}, featureCols...)...); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrShape, symbol, err)
	}

	f, _, err = Standardize(f, featureCols...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", symbol, err)
	}

	f, unresolved := Sanitize(f.ForwardFill())
	if len(unresolved) > 0 {
		log.Warn().Str("symbol", symbol).Strs("columns", unresolved).Msg("Columns have no finite values to replace infinities with")
	}

	f, err = AddCalendarIndicators(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", symbol, err)
	}
	return f, nil
}
