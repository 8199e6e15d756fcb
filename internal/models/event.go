package models

import "time"

// Dataset event type constants
const (
	EventTrainingSetCompiled  = "TRAINING_SET_COMPILED"
	EventInferenceSetCompiled = "INFERENCE_SET_COMPILED"
	EventSymbolSkipped        = "SYMBOL_SKIPPED"
)

// Compile request type constants
const (
	RequestCompileTrainingSet  = "COMPILE_TRAINING_SET"
	RequestCompileInferenceSet = "COMPILE_INFERENCE_SET"
)

// DatasetEvent represents a Kafka event emitted after a compilation
type DatasetEvent struct {
	EventType string         `json:"event_type"`
	RunID     string         `json:"run_id"`
	Symbol    string         `json:"symbol,omitempty"`
	Report    *RunReport     `json:"report,omitempty"`
	Failure   *SymbolFailure `json:"failure,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// CompileRequest represents a Kafka message asking for a dataset to be compiled
type CompileRequest struct {
	EventType string    `json:"event_type"`
	RequestID string    `json:"request_id"`
	Symbols   []string  `json:"symbols,omitempty"`
	Symbol    string    `json:"symbol,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
