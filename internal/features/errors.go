package features

import "errors"

var (
	// ErrShape is returned when a price history does not have the expected columns
	ErrShape = errors.New("unexpected price history shape")
	// ErrInsufficientHistory is returned when a series is too short to produce any complete row
	ErrInsufficientHistory = errors.New("insufficient price history")
)
