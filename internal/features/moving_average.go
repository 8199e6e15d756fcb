package features

import (
	"fmt"
	"math"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/stat"

	"github.com/trogers1052/stock-dataset-compiler/internal/frame"
)

// MovingAverage returns, for every row i, the mean of values[i-window+1..i].
// Rows before the window fills are missing (NaN), as is any row whose window
// contains a missing value.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if window < 1 || len(values) < window {
		return out
	}

	if window > 1 && allFinite(values) {
		sma := talib.Sma(values, window)
		copy(out[window-1:], sma[window-1:])
		return out
	}

	// talib keeps a running sum, which a single NaN poisons for the rest of the series
	for i := window - 1; i < len(values); i++ {
		out[i] = stat.Mean(values[i-window+1:i+1], nil)
	}
	return out
}

// AddMovingAverages appends one moving-average column per window over the source column
func AddMovingAverages(f *frame.Frame, source string, windows []int, name func(window int) string) (*frame.Frame, error) {
	values, ok := f.Column(source)
	if !ok {
		return nil, fmt.Errorf("%w: missing %s column", ErrShape, source)
	}
	out := f
	for _, w := range windows {
		var err error
		out, err = out.WithColumn(name(w), MovingAverage(values, w))
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func allFinite(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
