package dataset

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/trogers1052/stock-dataset-compiler/internal/features"
	"github.com/trogers1052/stock-dataset-compiler/internal/frame"
	"github.com/trogers1052/stock-dataset-compiler/internal/models"
	"github.com/trogers1052/stock-dataset-compiler/internal/provider"
)

// Options configures a Compiler
type Options struct {
	Indices         []string
	Period          string
	InferencePeriod string
	Workers         int
	FetchTimeout    time.Duration
	ProgressEvery   int
	DropColumns     []string
}

// DefaultOptions returns the options used when nothing is configured
func DefaultOptions() Options {
	return Options{
		Indices:         append([]string(nil), features.DefaultIndices...),
		Period:          "5y",
		InferencePeriod: "2y",
		Workers:         4,
		FetchTimeout:    30 * time.Second,
		ProgressEvery:   50,
		DropColumns:     []string{models.IndexColumn("^VIX", models.ColumnVolume)},
	}
}

// Recorder receives per-symbol outcomes
type Recorder interface {
	SymbolCompiled(rows int, elapsed time.Duration)
	SymbolFailed(kind string, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) SymbolCompiled(int, time.Duration)   {}
func (nopRecorder) SymbolFailed(string, time.Duration) {}

// Compiler builds datasets from price histories
type Compiler struct {
	index  *features.IndexBuilder
	ticker *features.TickerBuilder
	opts   Options
	rec    Recorder
	log    zerolog.Logger
}

// NewCompiler creates a new dataset compiler. A nil recorder is allowed.
func NewCompiler(p provider.PriceHistory, opts Options, rec Recorder, log zerolog.Logger) *Compiler {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if rec == nil {
		rec = nopRecorder{}
	}
	return &Compiler{
		index:  features.NewIndexBuilder(p, opts.FetchTimeout, log),
		ticker: features.NewTickerBuilder(p, opts.FetchTimeout, log),
		opts:   opts,
		rec:    rec,
		log:    log.With().Str("component", "compiler").Logger(),
	}
}

// Options returns the compiler options
func (c *Compiler) Options() Options {
	return c.opts
}

type outcome struct {
	rows    *Dataset
	failure *models.SymbolFailure
}

// Compile builds the index table once, then the rows of every symbol, and returns
// them in symbol order. Symbols that fail are recorded in the report and skipped.
// When the index table cannot be built no symbol can be compiled: the dataset is
// empty and every symbol is reported with the index failure.
func (c *Compiler) Compile(ctx context.Context, symbols []string) (*Dataset, *models.RunReport, error) {
	report := &models.RunReport{
		Kind:      models.RunKindTraining,
		Period:    c.opts.Period,
		Requested: len(symbols),
		StartedAt: time.Now(),
	}

	index, err := c.index.Build(ctx, c.opts.Indices, c.opts.Period)
	if err != nil {
		kind := Classify(ctx, err)
		for _, symbol := range symbols {
			c.rec.SymbolFailed(kind, 0)
			report.Failures = append(report.Failures, *failed(symbol, kind, err).failure)
		}
		report.FinishedAt = time.Now()
		c.log.Error().Err(err).Str("kind", kind).Int("requested", len(symbols)).Msg("Index features unavailable, no symbol compiled")
		return &Dataset{}, report, nil
	}

	outcomes := make([]outcome, len(symbols))
	var processed atomic.Int64
	var g errgroup.Group
	g.SetLimit(c.opts.Workers)
	for i, symbol := range symbols {
		if ctx.Err() != nil {
			outcomes[i] = failed(symbol, models.FailureKindCanceled, ctx.Err())
			continue
		}
		g.Go(func() error {
			outcomes[i] = c.compileSymbol(ctx, symbol, index)
			if n := processed.Add(1); c.opts.ProgressEvery > 0 && n%int64(c.opts.ProgressEvery) == 0 {
				c.log.Info().Int64("processed", n).Int("total", len(symbols)).Msg("Progress")
			}
			return nil
		})
	}
	_ = g.Wait()

	ds := &Dataset{}
	for i, o := range outcomes {
		if o.failure == nil {
			if err := ds.Append(o.rows); err != nil {
				o = failed(symbols[i], models.FailureKindShape, err)
			}
		}
		if o.failure != nil {
			report.Failures = append(report.Failures, *o.failure)
			continue
		}
		report.Succeeded++
	}

	ds = ds.dropIncomplete().DropColumns(c.opts.DropColumns...)
	report.CompiledRows = ds.Len()
	report.Rows = ds.Len()
	report.Positives, report.Negatives = ds.ClassCounts()
	report.FinishedAt = time.Now()

	c.log.Info().
		Int("requested", report.Requested).
		Int("succeeded", report.Succeeded).
		Int("failed", report.Failed()).
		Int("rows", report.CompiledRows).
		Dur("elapsed", report.FinishedAt.Sub(report.StartedAt)).
		Msg("Compiled dataset")
	return ds, report, nil
}

func (c *Compiler) compileSymbol(ctx context.Context, symbol string, index *frame.Frame) outcome {
	start := time.Now()
	if ctx.Err() != nil {
		return failed(symbol, models.FailureKindCanceled, ctx.Err())
	}

	f, err := c.ticker.Build(ctx, symbol, index, c.opts.Period)
	if err == nil {
		var rows *Dataset
		if rows, err = FromFrame(features.NormalizeSymbol(symbol), f); err == nil {
			c.rec.SymbolCompiled(rows.Len(), time.Since(start))
			return outcome{rows: rows}
		}
		err = fmt.Errorf("%w: %w", features.ErrShape, err)
	}

	kind := Classify(ctx, err)
	c.rec.SymbolFailed(kind, time.Since(start))
	c.log.Warn().Str("symbol", symbol).Str("kind", kind).Err(err).Msg("Skipping symbol")
	return failed(symbol, kind, err)
}

func failed(symbol, kind string, err error) outcome {
	return outcome{failure: &models.SymbolFailure{Symbol: symbol, Kind: kind, Message: err.Error()}}
}

// Classify maps a symbol error onto its failure kind. Errors caused by ctx ending
// are canceled, whatever stage they surfaced in.
func Classify(ctx context.Context, err error) string {
	switch {
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		return models.FailureKindCanceled
	case errors.Is(err, provider.ErrFetch):
		return models.FailureKindFetch
	case errors.Is(err, features.ErrShape):
		return models.FailureKindShape
	case errors.Is(err, features.ErrInsufficientHistory):
		return models.FailureKindInsufficientHistory
	default:
		return models.FailureKindUnknown
	}
}

// Inference is the dataset of one symbol kept in date order, together with its
// most recent feature row, whose next-day label is not known yet.
type Inference struct {
	Symbol         string    `json:"symbol"`
	Dataset        *Dataset  `json:"dataset"`
	LatestDate     time.Time `json:"latest_date"`
	LatestClose    float64   `json:"latest_close"`
	LatestFeatures []float64 `json:"latest_features"`
}

// Inference builds the inference set of symbol over the inference period. Rows are
// neither balanced nor shuffled.
func (c *Compiler) Inference(ctx context.Context, symbol string) (*Inference, error) {
	period := c.opts.InferencePeriod
	index, err := c.index.Build(ctx, c.opts.Indices, period)
	if err != nil {
		return nil, err
	}

	symbol = features.NormalizeSymbol(symbol)
	f, err := c.ticker.Features(ctx, symbol, index, period)
	if err != nil {
		return nil, err
	}
	f = f.DropIfPresent(c.opts.DropColumns...)

	latest := f.Len() - 1
	for ; latest >= 0; latest-- {
		if f.Rows([]int{latest}).DropNA().Len() == 1 {
			break
		}
	}
	if latest < 0 {
		return nil, fmt.Errorf("%w: %s: no complete feature row", features.ErrInsufficientHistory, symbol)
	}

	labeled, err := features.CreateTarget(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", symbol, err)
	}
	ds, err := FromFrame(symbol, labeled.DropNA())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", features.ErrShape, err)
	}

	inf := &Inference{
		Symbol:      symbol,
		Dataset:     ds,
		LatestDate:  f.Date(latest),
		LatestClose: f.Value(models.ColumnClose, latest),
	}
	for _, name := range ds.Columns {
		inf.LatestFeatures = append(inf.LatestFeatures, f.Value(name, latest))
	}

	c.log.Info().
		Str("symbol", symbol).
		Str("period", period).
		Int("rows", ds.Len()).
		Time("latest", inf.LatestDate).
		Msg("Compiled inference set")
	return inf, nil
}
