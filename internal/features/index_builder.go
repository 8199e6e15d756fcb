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

// DefaultIndices are the macro indices joined onto every symbol: the S&P 500 and the VIX
var DefaultIndices = []string{"^GSPC", "^VIX"}

// IndexBuilder builds the shared macro-index feature table
type IndexBuilder struct {
	provider     provider.PriceHistory
	fetchTimeout time.Duration
	log          zerolog.Logger
}

// NewIndexBuilder creates a new index feature builder
func NewIndexBuilder(p provider.PriceHistory, fetchTimeout time.Duration, log zerolog.Logger) *IndexBuilder {
	return &IndexBuilder{
		provider:     p,
		fetchTimeout: fetchTimeout,
		log:          log.With().Str("component", "index_builder").Logger(),
	}
}

// Build fetches every index and joins their feature tables on date. Dates missing
// from one index stay missing in its columns. Any index failure fails the build.
func (b *IndexBuilder) Build(ctx context.Context, indices []string, period string) (*frame.Frame, error) {
	if len(indices) == 0 {
		return nil, fmt.Errorf("failed to build index features: no indices configured")
	}

	tables := make([]*frame.Frame, 0, len(indices))
	for _, index := range indices {
		table, err := b.buildOne(ctx, index, period)
		if err != nil {
			return nil, fmt.Errorf("failed to build index features for %s: %w", index, err)
		}
		tables = append(tables, table)
	}

	joined, err := frame.OuterJoin(tables...)
	if err != nil {
		return nil, fmt.Errorf("failed to join index features: %w", err)
	}
	b.log.Info().
		Strs("indices", indices).
		Str("period", period).
		Int("rows", joined.Len()).
		Int("columns", len(joined.Columns())).
		Msg("Built index feature table")
	return joined, nil
}

func (b *IndexBuilder) buildOne(ctx context.Context, index, period string) (*frame.Frame, error) {
	raw, err := fetch(ctx, b.provider, b.fetchTimeout, index, period)
	if err != nil {
		return nil, err
	}
	return IndexFeatures(raw, index, b.log)
}

// IndexFeatures turns the raw history of one index into its feature columns:
// {index}-close, {index}-volume and the {index}-maN moving averages, standardized
// over the full window, forward-filled and sanitized.
func IndexFeatures(raw *frame.Frame, index string, log zerolog.Logger) (*frame.Frame, error) {
	f, err := raw.Drop(models.RawDividends, models.RawStockSplits, models.RawOpen, models.RawLow, models.RawHigh)
	if err != nil {
		// providers omit the corporate-action columns for some indices
		f, err = raw.Drop(models.RawOpen, models.RawLow, models.RawHigh)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrShape, index, err)
		}
	}

	f, err = f.Rename(func(name string) string {
		return models.IndexColumn(index, strings.ToLower(name))
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrShape, index, err)
	}

	f, err = AddMovingAverages(f, models.IndexColumn(index, models.ColumnClose), models.MovingAverageWindows,
		func(w int) string { return models.IndexColumn(index, models.MovingAverageColumn(w)) })
	if err != nil {
		return nil, fmt.Errorf("%s: %w", index, err)
	}

	f, _, err = Standardize(f, f.Columns()...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", index, err)
	}

	f, unresolved := Sanitize(f.ForwardFill())
	if len(unresolved) > 0 {
		log.Warn().Str("index", index).Strs("columns", unresolved).Msg("Columns have no finite values to replace infinities with")
	}
	return f, nil
}
