package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/trogers1052/stock-dataset-compiler/internal/database"
	"github.com/trogers1052/stock-dataset-compiler/internal/dataset"
	"github.com/trogers1052/stock-dataset-compiler/internal/features"
	"github.com/trogers1052/stock-dataset-compiler/internal/models"
	"github.com/trogers1052/stock-dataset-compiler/internal/pipeline"
	"github.com/trogers1052/stock-dataset-compiler/internal/provider"
)

const defaultRunsLimit = 20

// DatasetService compiles datasets on request
type DatasetService interface {
	BuildTrainingSet(ctx context.Context, symbols []string) (*pipeline.TrainingResult, error)
	BuildInferenceSet(ctx context.Context, symbol string) (*pipeline.InferenceResult, error)
}

// UniverseService resolves the symbol universe
type UniverseService interface {
	Load(ctx context.Context) ([]string, error)
	Refresh(ctx context.Context) ([]string, error)
}

// RunStore reads stored run reports
type RunStore interface {
	GetRunReport(id string) (*models.RunReport, error)
	ListRunReports(limit int) ([]*models.RunReport, error)
	GetFailingSymbols(minFailures int) ([]*models.SymbolFailureCount, error)
}

// TrainingRequest is the body of POST /datasets/training. Without symbols the
// universe is compiled, cut to its first Limit symbols when Limit is set.
type TrainingRequest struct {
	Symbols []string `json:"symbols" validate:"omitempty,max=1000,dive,required,max=16"`
	Limit   int      `json:"limit" validate:"gte=0"`
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	datasets DatasetService
	universe UniverseService
	runs     RunStore
	validate *validator.Validate
	log      zerolog.Logger
}

// NewHandler creates a new Handler. runs may be nil when no database is configured.
func NewHandler(datasets DatasetService, universe UniverseService, runs RunStore, log zerolog.Logger) *Handler {
	return &Handler{
		datasets: datasets,
		universe: universe,
		runs:     runs,
		validate: validator.New(),
		log:      log.With().Str("component", "api").Logger(),
	}
}

// GetUniverse handles GET /universe
func (h *Handler) GetUniverse(w http.ResponseWriter, r *http.Request) {
	symbols, err := h.universe.Load(r.Context())
	if err != nil {
		h.respondError(w, http.StatusBadGateway, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"count": len(symbols), "symbols": symbols})
}

// RefreshUniverse handles POST /universe/refresh
func (h *Handler) RefreshUniverse(w http.ResponseWriter, r *http.Request) {
	symbols, err := h.universe.Refresh(r.Context())
	if err != nil {
		h.respondError(w, http.StatusBadGateway, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"count": len(symbols), "symbols": symbols})
}

// CompileTrainingSet handles POST /datasets/training
func (h *Handler) CompileTrainingSet(w http.ResponseWriter, r *http.Request) {
	var req TrainingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.StructCtx(r.Context(), &req); err != nil {
		h.respondValidation(w, err)
		return
	}

	symbols := req.Symbols
	if len(symbols) == 0 && req.Limit > 0 {
		universe, err := h.universe.Load(r.Context())
		if err != nil {
			h.respondError(w, http.StatusBadGateway, err)
			return
		}
		symbols = universe[:min(req.Limit, len(universe))]
	}

	res, err := h.datasets.BuildTrainingSet(r.Context(), symbols)
	if err != nil {
		h.respondError(w, statusFor(err), err)
		return
	}

	if r.URL.Query().Get("format") == "csv" {
		respondCSV(w, h.log, res.Dataset)
		return
	}
	respondJSON(w, http.StatusCreated, res.Report)
}

// CompileInferenceSet handles GET /datasets/inference/{symbol}
func (h *Handler) CompileInferenceSet(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	if err := h.validate.Var(symbol, "required,max=16"); err != nil {
		h.respondValidation(w, err)
		return
	}

	res, err := h.datasets.BuildInferenceSet(r.Context(), symbol)
	if err != nil {
		h.respondError(w, statusFor(err), err)
		return
	}

	if r.URL.Query().Get("format") == "csv" {
		respondCSV(w, h.log, res.Inference.Dataset)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"report":    res.Report,
		"inference": res.Inference,
	})
}

// ListRuns handles GET /runs
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		http.Error(w, "run history is not enabled", http.StatusNotImplemented)
		return
	}

	limit := defaultRunsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	runs, err := h.runs.ListRunReports(limit)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, runs)
}

// GetRun handles GET /runs/{id}
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		http.Error(w, "run history is not enabled", http.StatusNotImplemented)
		return
	}

	run, err := h.runs.GetRunReport(mux.Vars(r)["id"])
	if errors.Is(err, database.ErrNotFound) {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, run)
}

// GetFailingSymbols handles GET /symbols/failing
func (h *Handler) GetFailingSymbols(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		http.Error(w, "run history is not enabled", http.StatusNotImplemented)
		return
	}

	minFailures := 1
	if v := r.URL.Query().Get("min"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, "min must be a positive integer", http.StatusBadRequest)
			return
		}
		minFailures = n
	}

	counts, err := h.runs.GetFailingSymbols(minFailures)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, counts)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// statusFor maps a compilation error onto an HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, pipeline.ErrNoSymbols):
		return http.StatusBadRequest
	case errors.Is(err, features.ErrInsufficientHistory), errors.Is(err, features.ErrShape):
		return http.StatusUnprocessableEntity
	case errors.Is(err, provider.ErrFetch):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Int("status", status).Msg("Request failed")
	}
	respondJSON(w, status, map[string]string{"error": err.Error()})
}

func (h *Handler) respondValidation(w http.ResponseWriter, err error) {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fe.Field()+" failed validation: "+fe.Tag())
	}
	respondJSON(w, http.StatusBadRequest, map[string]any{"errors": msgs})
}

func respondCSV(w http.ResponseWriter, log zerolog.Logger, ds *dataset.Dataset) {
	w.Header().Set("Content-Type", "text/csv")
	w.WriteHeader(http.StatusOK)
	if err := dataset.WriteCSV(w, ds); err != nil {
		log.Error().Err(err).Msg("Failed to write CSV response")
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
