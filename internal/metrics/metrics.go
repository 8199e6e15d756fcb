package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Symbol outcome label values
const (
	OutcomeCompiled = "compiled"
	OutcomeFailed   = "failed"
)

// Recorder records pipeline metrics in Prometheus
type Recorder struct {
	symbolsTotal  *prometheus.CounterVec
	failuresTotal *prometheus.CounterVec
	rowsTotal     prometheus.Counter
	symbolLatency *prometheus.HistogramVec
	runsTotal     *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	lastRunRows   *prometheus.GaugeVec
}

// New creates a new Prometheus metrics recorder registered with reg
func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		symbolsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dataset_symbols_processed_total",
				Help: "Total number of symbols processed by outcome",
			},
			[]string{"outcome"},
		),
		failuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dataset_symbol_failures_total",
				Help: "Total number of skipped symbols by failure kind",
			},
			[]string{"kind"},
		),
		rowsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "dataset_rows_compiled_total",
				Help: "Total number of labeled rows compiled",
			},
		),
		symbolLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dataset_symbol_duration_seconds",
				Help:    "Duration of fetching and building one symbol in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dataset_runs_total",
				Help: "Total number of dataset compilations by kind and status",
			},
			[]string{"kind", "status"},
		),
		runDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dataset_run_duration_seconds",
				Help:    "Duration of dataset compilations in seconds",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 2400},
			},
			[]string{"kind"},
		),
		lastRunRows: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dataset_last_run_rows",
				Help: "Number of rows in the most recent dataset by kind",
			},
			[]string{"kind"},
		),
	}
}

// SymbolCompiled records a symbol that produced rows
func (r *Recorder) SymbolCompiled(rows int, elapsed time.Duration) {
	r.symbolsTotal.WithLabelValues(OutcomeCompiled).Inc()
	r.rowsTotal.Add(float64(rows))
	r.symbolLatency.WithLabelValues(OutcomeCompiled).Observe(elapsed.Seconds())
}

// SymbolFailed records a skipped symbol
func (r *Recorder) SymbolFailed(kind string, elapsed time.Duration) {
	r.symbolsTotal.WithLabelValues(OutcomeFailed).Inc()
	r.failuresTotal.WithLabelValues(kind).Inc()
	r.symbolLatency.WithLabelValues(OutcomeFailed).Observe(elapsed.Seconds())
}

// RunCompleted records a finished compilation
func (r *Recorder) RunCompleted(kind string, rows int, elapsed time.Duration) {
	r.runsTotal.WithLabelValues(kind, "success").Inc()
	r.runDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
	r.lastRunRows.WithLabelValues(kind).Set(float64(rows))
}

// RunFailed records a compilation that produced no dataset
func (r *Recorder) RunFailed(kind string, elapsed time.Duration) {
	r.runsTotal.WithLabelValues(kind, "error").Inc()
	r.runDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}
