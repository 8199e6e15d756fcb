package api

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes configures all API routes
func SetupRoutes(handler *Handler, gatherer prometheus.Gatherer) *mux.Router {
	r := mux.NewRouter()

	// Health check and metrics
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()

	// Universe routes
	api.HandleFunc("/universe", handler.GetUniverse).Methods("GET")
	api.HandleFunc("/universe/refresh", handler.RefreshUniverse).Methods("POST")

	// Dataset routes
	api.HandleFunc("/datasets/training", handler.CompileTrainingSet).Methods("POST")
	api.HandleFunc("/datasets/inference/{symbol}", handler.CompileInferenceSet).Methods("GET")

	// Run history routes
	api.HandleFunc("/runs", handler.ListRuns).Methods("GET")
	api.HandleFunc("/runs/{id}", handler.GetRun).Methods("GET")
	api.HandleFunc("/symbols/failing", handler.GetFailingSymbols).Methods("GET")

	return r
}
