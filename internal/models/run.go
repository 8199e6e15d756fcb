package models

import "time"

// Run kind constants
const (
	RunKindTraining  = "training"
	RunKindInference = "inference"
)

// Failure kind constants
const (
	FailureKindFetch               = "fetch"
	FailureKindShape               = "shape"
	FailureKindInsufficientHistory = "insufficient_history"
	FailureKindCanceled            = "canceled"
	FailureKindUnknown             = "unknown"
)

// SymbolFailure records why a symbol was left out of a compiled dataset
type SymbolFailure struct {
	Symbol  string `json:"symbol"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// RunReport summarizes one dataset compilation
type RunReport struct {
	ID           string          `json:"id"`
	Kind         string          `json:"kind"`
	Period       string          `json:"period"`
	Requested    int             `json:"requested"`
	Succeeded    int             `json:"succeeded"`
	CompiledRows int             `json:"compiled_rows"`
	Rows         int             `json:"rows"`
	Positives    int             `json:"positives"`
	Negatives    int             `json:"negatives"`
	Seed         int64           `json:"seed,omitempty"`
	ExportPath   string          `json:"export_path,omitempty"`
	Failures     []SymbolFailure `json:"failures"`
	StartedAt    time.Time       `json:"started_at"`
	FinishedAt   time.Time       `json:"finished_at"`
}

// Failed returns the number of symbols that were skipped
func (r *RunReport) Failed() int {
	return len(r.Failures)
}

// SymbolFailureCount aggregates how often a symbol has been skipped across runs
type SymbolFailureCount struct {
	Symbol     string    `json:"symbol"`
	Failures   int       `json:"failures"`
	LastKind   string    `json:"last_kind"`
	LastFailed time.Time `json:"last_failed"`
}
