package features

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/trogers1052/stock-dataset-compiler/internal/frame"
)

// Scaler holds the per-column mean and scale fitted by Fit
type Scaler struct {
	Mean  map[string]float64
	Scale map[string]float64
}

// Fit computes the mean and population standard deviation of each named column,
// ignoring missing and infinite values. A column with zero variance gets a scale
// of 1, and a column with no finite value gets a mean of 0 and a scale of 1.
func Fit(f *frame.Frame, columns ...string) (*Scaler, error) {
	s := &Scaler{
		Mean:  make(map[string]float64, len(columns)),
		Scale: make(map[string]float64, len(columns)),
	}
	for _, name := range columns {
		values, ok := f.Column(name)
		if !ok {
			return nil, fmt.Errorf("%w: missing %s column", ErrShape, name)
		}
		finite := values[:0]
		for _, v := range values {
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				finite = append(finite, v)
			}
		}

		mean, scale := 0.0, 1.0
		if len(finite) > 0 {
			var std float64
			mean, std = stat.PopMeanStdDev(finite, nil)
			if std > 0 {
				scale = std
			}
		}
		s.Mean[name] = mean
		s.Scale[name] = scale
	}
	return s, nil
}

// Transform applies (x - mean) / scale to every fitted column of f.
// Columns the scaler was not fitted on are left unchanged.
func (s *Scaler) Transform(f *frame.Frame) *frame.Frame {
	return f.MapColumns(func(name string, values []float64) []float64 {
		mean, ok := s.Mean[name]
		if !ok {
			return nil
		}
		scale := s.Scale[name]
		for i, v := range values {
			values[i] = (v - mean) / scale
		}
		return values
	})
}

// Standardize fits a scaler on the named columns of f and applies it to the same frame
func Standardize(f *frame.Frame, columns ...string) (*frame.Frame, *Scaler, error) {
	s, err := Fit(f, columns...)
	if err != nil {
		return nil, nil, err
	}
	return s.Transform(f), s, nil
}
