package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trogers1052/stock-dataset-compiler/internal/database"
	"github.com/trogers1052/stock-dataset-compiler/internal/dataset"
	"github.com/trogers1052/stock-dataset-compiler/internal/features"
	"github.com/trogers1052/stock-dataset-compiler/internal/models"
	"github.com/trogers1052/stock-dataset-compiler/internal/pipeline"
	"github.com/trogers1052/stock-dataset-compiler/internal/provider"
)

// MockDatasetService implements DatasetService for testing
type MockDatasetService struct {
	training     *pipeline.TrainingResult
	inference    *pipeline.InferenceResult
	err          error
	TrainedWith  [][]string
	InferredWith []string
}

func (m *MockDatasetService) BuildTrainingSet(_ context.Context, symbols []string) (*pipeline.TrainingResult, error) {
	m.TrainedWith = append(m.TrainedWith, symbols)
	return m.training, m.err
}

func (m *MockDatasetService) BuildInferenceSet(_ context.Context, symbol string) (*pipeline.InferenceResult, error) {
	m.InferredWith = append(m.InferredWith, symbol)
	return m.inference, m.err
}

// MockUniverse implements UniverseService for testing
type MockUniverse struct {
	symbols   []string
	err       error
	Refreshed int
}

func (m *MockUniverse) Load(context.Context) ([]string, error) {
	return m.symbols, m.err
}

func (m *MockUniverse) Refresh(context.Context) ([]string, error) {
	m.Refreshed++
	return m.symbols, m.err
}

// MockRunStore implements RunStore for testing
type MockRunStore struct {
	runs     map[string]*models.RunReport
	failing  []*models.SymbolFailureCount
	Limit    int
	MinFails int
}

func (m *MockRunStore) GetRunReport(id string) (*models.RunReport, error) {
	if r, ok := m.runs[id]; ok {
		return r, nil
	}
	return nil, database.ErrNotFound
}

func (m *MockRunStore) ListRunReports(limit int) ([]*models.RunReport, error) {
	m.Limit = limit
	var out []*models.RunReport
	for _, r := range m.runs {
		out = append(out, r)
	}
	return out, nil
}

func (m *MockRunStore) GetFailingSymbols(minFailures int) ([]*models.SymbolFailureCount, error) {
	m.MinFails = minFailures
	return m.failing, nil
}

func sampleDataset() *dataset.Dataset {
	return &dataset.Dataset{
		Columns: []string{"volume"},
		Rows: []dataset.Row{
			{Symbol: "AAPL", Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Close: 1.5, Features: []float64{0.25}, Label: 1},
			{Symbol: "AAPL", Date: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), Close: 1.25, Features: []float64{-0.25}, Label: 0},
		},
	}
}

type fixture struct {
	datasets *MockDatasetService
	universe *MockUniverse
	runs     *MockRunStore
	router   http.Handler
}

func newFixture(withRuns bool) *fixture {
	f := &fixture{
		datasets: &MockDatasetService{},
		universe: &MockUniverse{symbols: []string{"AAPL", "MSFT", "NVDA"}},
		runs:     &MockRunStore{runs: map[string]*models.RunReport{"run-1": {ID: "run-1", Kind: models.RunKindTraining}}},
	}
	var runs RunStore
	if withRuns {
		runs = f.runs
	}
	h := NewHandler(f.datasets, f.universe, runs, zerolog.New(nil).Level(zerolog.Disabled))
	f.router = SetupRoutes(h, prometheus.NewRegistry())
	return f
}

func (f *fixture) do(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(true)

	rec := f.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())

	rec = f.do(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUniverseRoutes(t *testing.T) {
	f := newFixture(true)

	rec := f.do(http.MethodGet, "/api/v1/universe", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":3,"symbols":["AAPL","MSFT","NVDA"]}`, rec.Body.String())

	rec = f.do(http.MethodPost, "/api/v1/universe/refresh", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, f.universe.Refreshed)

	f.universe.err = errors.New("source down")
	rec = f.do(http.MethodGet, "/api/v1/universe", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestCompileTrainingSet(t *testing.T) {
	report := &models.RunReport{ID: "run-9", Kind: models.RunKindTraining, Rows: 2}

	tests := []struct {
		name       string
		body       string
		target     string
		err        error
		wantStatus int
		wantWith   []string
	}{
		{"explicit symbols", `{"symbols":["AAPL","MSFT"]}`, "/api/v1/datasets/training", nil, http.StatusCreated, []string{"AAPL", "MSFT"}},
		{"limited universe", `{"limit":2}`, "/api/v1/datasets/training", nil, http.StatusCreated, []string{"AAPL", "MSFT"}},
		{"limit beyond universe", `{"limit":10}`, "/api/v1/datasets/training", nil, http.StatusCreated, []string{"AAPL", "MSFT", "NVDA"}},
		{"whole universe", `{}`, "/api/v1/datasets/training", nil, http.StatusCreated, nil},
		{"invalid json", `{`, "/api/v1/datasets/training", nil, http.StatusBadRequest, nil},
		{"negative limit", `{"limit":-1}`, "/api/v1/datasets/training", nil, http.StatusBadRequest, nil},
		{"empty symbol", `{"symbols":[""]}`, "/api/v1/datasets/training", nil, http.StatusBadRequest, nil},
		{"no symbols", `{}`, "/api/v1/datasets/training", pipeline.ErrNoSymbols, http.StatusBadRequest, nil},
		{"index fetch failure", `{}`, "/api/v1/datasets/training", fmt.Errorf("%w: ^VIX", provider.ErrFetch), http.StatusBadGateway, nil},
		{"timeout", `{}`, "/api/v1/datasets/training", context.DeadlineExceeded, http.StatusGatewayTimeout, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(true)
			f.datasets.training = &pipeline.TrainingResult{Report: report, Dataset: sampleDataset()}
			f.datasets.err = tt.err

			rec := f.do(http.MethodPost, tt.target, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusCreated {
				require.Len(t, f.datasets.TrainedWith, 1)
				assert.Equal(t, tt.wantWith, f.datasets.TrainedWith[0])

				var got models.RunReport
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
				assert.Equal(t, "run-9", got.ID)
			}
		})
	}
}

func TestCompileTrainingSet_CSV(t *testing.T) {
	f := newFixture(true)
	f.datasets.training = &pipeline.TrainingResult{Report: &models.RunReport{ID: "run-1"}, Dataset: sampleDataset()}

	rec := f.do(http.MethodPost, "/api/v1/datasets/training?format=csv", `{"symbols":["AAPL"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "symbol,date,close,volume,label", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "AAPL,2024-01-02,"))
}

func TestCompileInferenceSet(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		f := newFixture(true)
		f.datasets.inference = &pipeline.InferenceResult{
			Report:    &models.RunReport{ID: "run-2", Kind: models.RunKindInference},
			Inference: &dataset.Inference{Symbol: "BRK-B", Dataset: sampleDataset(), LatestClose: 1.25},
		}

		rec := f.do(http.MethodGet, "/api/v1/datasets/inference/BRK.B", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []string{"BRK.B"}, f.datasets.InferredWith)

		var got struct {
			Report    models.RunReport  `json:"report"`
			Inference dataset.Inference `json:"inference"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "run-2", got.Report.ID)
		assert.Equal(t, "BRK-B", got.Inference.Symbol)
		assert.Equal(t, 2, got.Inference.Dataset.Len())
	})

	t.Run("insufficient history", func(t *testing.T) {
		f := newFixture(true)
		f.datasets.err = fmt.Errorf("%w: XYZ", features.ErrInsufficientHistory)

		rec := f.do(http.MethodGet, "/api/v1/datasets/inference/XYZ", "")
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("symbol too long", func(t *testing.T) {
		f := newFixture(true)
		rec := f.do(http.MethodGet, "/api/v1/datasets/inference/"+strings.Repeat("A", 17), "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, f.datasets.InferredWith)
	})
}

func TestRunRoutes(t *testing.T) {
	t.Run("get run", func(t *testing.T) {
		f := newFixture(true)
		rec := f.do(http.MethodGet, "/api/v1/runs/run-1", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var got models.RunReport
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "run-1", got.ID)
	})

	t.Run("unknown run", func(t *testing.T) {
		f := newFixture(true)
		rec := f.do(http.MethodGet, "/api/v1/runs/missing", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("list runs", func(t *testing.T) {
		f := newFixture(true)
		rec := f.do(http.MethodGet, "/api/v1/runs", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, defaultRunsLimit, f.runs.Limit)

		rec = f.do(http.MethodGet, "/api/v1/runs?limit=5", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 5, f.runs.Limit)

		rec = f.do(http.MethodGet, "/api/v1/runs?limit=zero", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("failing symbols", func(t *testing.T) {
		f := newFixture(true)
		f.runs.failing = []*models.SymbolFailureCount{{Symbol: "XYZ", Failures: 3, LastKind: models.FailureKindFetch}}

		rec := f.do(http.MethodGet, "/api/v1/symbols/failing?min=2", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 2, f.runs.MinFails)
		assert.Contains(t, rec.Body.String(), `"symbol":"XYZ"`)
	})

	t.Run("history disabled", func(t *testing.T) {
		f := newFixture(false)
		for _, target := range []string{"/api/v1/runs", "/api/v1/runs/run-1", "/api/v1/symbols/failing"} {
			rec := f.do(http.MethodGet, target, "")
			assert.Equal(t, http.StatusNotImplemented, rec.Code, target)
		}
	})
}
