package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/trogers1052/stock-dataset-compiler/internal/dataset"
	"github.com/trogers1052/stock-dataset-compiler/internal/models"
)

// ErrNoSymbols is returned when a training run has no symbols to compile
var ErrNoSymbols = errors.New("no symbols to compile")

// Compiler builds the raw datasets
type Compiler interface {
	Compile(ctx context.Context, symbols []string) (*dataset.Dataset, *models.RunReport, error)
	Inference(ctx context.Context, symbol string) (*dataset.Inference, error)
}

// Universe resolves the default symbol list
type Universe interface {
	Load(ctx context.Context) ([]string, error)
}

// RunStore persists run reports
type RunStore interface {
	CreateRunReport(r *models.RunReport) error
}

// Publisher announces finished runs
type Publisher interface {
	PublishTrainingSetCompiled(ctx context.Context, report *models.RunReport) error
	PublishInferenceSetCompiled(ctx context.Context, symbol string, report *models.RunReport) error
	PublishSymbolSkipped(ctx context.Context, runID string, failure models.SymbolFailure) error
}

// Exporter writes a dataset somewhere durable and returns its location
type Exporter interface {
	Export(name string, ds *dataset.Dataset) (string, error)
}

// Metrics records run outcomes
type Metrics interface {
	RunCompleted(kind string, rows int, elapsed time.Duration)
	RunFailed(kind string, elapsed time.Duration)
}

// Config holds the service settings
type Config struct {
	InferencePeriod string
	RunTimeout      time.Duration
	// Seed fixes the balancing shuffle; 0 seeds every run from the clock
	Seed uint64
}

// Deps holds the service collaborators. Only Compiler is required.
type Deps struct {
	Compiler  Compiler
	Universe  Universe
	Store     RunStore
	Publisher Publisher
	Exporter  Exporter
	Metrics   Metrics
}

// TrainingResult is a balanced, shuffled training set and its run report
type TrainingResult struct {
	Report  *models.RunReport
	Dataset *dataset.Dataset
}

// InferenceResult is the inference set of one symbol and its run report
type InferenceResult struct {
	Report    *models.RunReport
	Inference *dataset.Inference
}

// Service runs dataset compilations end to end
type Service struct {
	cfg  Config
	deps Deps
	log  zerolog.Logger
	now  func() time.Time
}

// NewService creates a new pipeline service
func NewService(cfg Config, deps Deps, log zerolog.Logger) *Service {
	return &Service{
		cfg:  cfg,
		deps: deps,
		log:  log.With().Str("component", "pipeline").Logger(),
		now:  time.Now,
	}
}

func (s *Service) seed() uint64 {
	if s.cfg.Seed != 0 {
		return s.cfg.Seed
	}
	return uint64(s.now().UnixNano())
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.RunTimeout > 0 {
		return context.WithTimeout(ctx, s.cfg.RunTimeout)
	}
	return context.WithCancel(ctx)
}

// BuildTrainingSet compiles, balances and shuffles the training set of symbols,
// or of the whole universe when symbols is empty
func (s *Service) BuildTrainingSet(ctx context.Context, symbols []string) (*TrainingResult, error) {
	start := s.now()
	if len(symbols) == 0 {
		if s.deps.Universe == nil {
			return nil, ErrNoSymbols
		}
		var err error
		if symbols, err = s.deps.Universe.Load(ctx); err != nil {
			s.runFailed(models.RunKindTraining, start)
			return nil, fmt.Errorf("failed to load universe: %w", err)
		}
		if len(symbols) == 0 {
			return nil, ErrNoSymbols
		}
	}

	runCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	ds, report, err := s.deps.Compiler.Compile(runCtx, symbols)
	if err != nil {
		s.runFailed(models.RunKindTraining, start)
		return nil, fmt.Errorf("failed to compile training set: %w", err)
	}
	if err := ds.Validate(); err != nil {
		s.runFailed(models.RunKindTraining, start)
		return nil, err
	}

	report.ID = uuid.NewString()
	report.Kind = models.RunKindTraining
	report.Seed = int64(s.seed())
	balanced := dataset.Balance(ds, rand.New(rand.NewPCG(uint64(report.Seed), uint64(report.Seed))))
	report.Rows = balanced.Len()
	report.Positives, report.Negatives = balanced.ClassCounts()
	if balanced.Len() > 0 {
		report.ExportPath = s.export("training-"+report.ID, balanced)
	} else {
		s.log.Warn().Str("run_id", report.ID).Int("failed", report.Failed()).Msg("Training set is empty")
	}
	report.FinishedAt = s.now()

	s.persist(report)
	s.publish(ctx, report, func(ctx context.Context) error {
		return s.deps.Publisher.PublishTrainingSetCompiled(ctx, report)
	})
	if s.deps.Metrics != nil {
		s.deps.Metrics.RunCompleted(models.RunKindTraining, report.Rows, report.FinishedAt.Sub(start))
	}

	s.log.Info().
		Str("run_id", report.ID).
		Int("symbols", report.Requested).
		Int("failed", report.Failed()).
		Int("compiled_rows", report.CompiledRows).
		Int("rows", report.Rows).
		Int64("seed", report.Seed).
		Msg("Training set ready")
	return &TrainingResult{Report: report, Dataset: balanced}, nil
}

// BuildInferenceSet compiles the inference set of one symbol. A symbol that
// cannot be built is still recorded as a failed run.
func (s *Service) BuildInferenceSet(ctx context.Context, symbol string) (*InferenceResult, error) {
	start := s.now()
	report := &models.RunReport{
		ID:        uuid.NewString(),
		Kind:      models.RunKindInference,
		Period:    s.cfg.InferencePeriod,
		Requested: 1,
		StartedAt: start,
	}

	runCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	inf, err := s.deps.Compiler.Inference(runCtx, symbol)
	if err != nil {
		failure := models.SymbolFailure{Symbol: symbol, Kind: dataset.Classify(runCtx, err), Message: err.Error()}
		report.Failures = []models.SymbolFailure{failure}
		report.FinishedAt = s.now()
		s.persist(report)
		s.publish(ctx, report, nil)
		s.runFailed(models.RunKindInference, start)
		return nil, fmt.Errorf("failed to compile inference set for %s: %w", symbol, err)
	}

	report.Succeeded = 1
	report.CompiledRows = inf.Dataset.Len()
	report.Rows = inf.Dataset.Len()
	report.Positives, report.Negatives = inf.Dataset.ClassCounts()
	report.ExportPath = s.export("inference-"+inf.Symbol+"-"+report.ID, inf.Dataset)
	report.FinishedAt = s.now()

	s.persist(report)
	s.publish(ctx, report, func(ctx context.Context) error {
		return s.deps.Publisher.PublishInferenceSetCompiled(ctx, inf.Symbol, report)
	})
	if s.deps.Metrics != nil {
		s.deps.Metrics.RunCompleted(models.RunKindInference, report.Rows, report.FinishedAt.Sub(start))
	}
	return &InferenceResult{Report: report, Inference: inf}, nil
}

// RunTraining compiles a training set and returns its report
func (s *Service) RunTraining(ctx context.Context, symbols []string) (*models.RunReport, error) {
	res, err := s.BuildTrainingSet(ctx, symbols)
	if err != nil {
		return nil, err
	}
	return res.Report, nil
}

// RunInference compiles an inference set and returns its report
func (s *Service) RunInference(ctx context.Context, symbol string) (*models.RunReport, error) {
	res, err := s.BuildInferenceSet(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return res.Report, nil
}

func (s *Service) export(name string, ds *dataset.Dataset) string {
	if s.deps.Exporter == nil {
		return ""
	}
	path, err := s.deps.Exporter.Export(name, ds)
	if err != nil {
		s.log.Error().Err(err).Str("name", name).Msg("Failed to export dataset")
		return ""
	}
	return path
}

func (s *Service) persist(report *models.RunReport) {
	if s.deps.Store == nil {
		return
	}
	if err := s.deps.Store.CreateRunReport(report); err != nil {
		s.log.Error().Err(err).Str("run_id", report.ID).Msg("Failed to store run report")
	}
}

// publish sends the completion event, when given, and one event per skipped symbol
func (s *Service) publish(ctx context.Context, report *models.RunReport, completed func(context.Context) error) {
	if s.deps.Publisher == nil {
		return
	}
	if completed != nil {
		if err := completed(ctx); err != nil {
			s.log.Error().Err(err).Str("run_id", report.ID).Msg("Failed to publish run event")
		}
	}
	for _, f := range report.Failures {
		if err := s.deps.Publisher.PublishSymbolSkipped(ctx, report.ID, f); err != nil {
			s.log.Error().Err(err).Str("run_id", report.ID).Str("symbol", f.Symbol).Msg("Failed to publish skipped symbol")
		}
	}
}

func (s *Service) runFailed(kind string, start time.Time) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.RunFailed(kind, s.now().Sub(start))
	}
}
