package features

import (
	"math"

	"github.com/trogers1052/stock-dataset-compiler/internal/frame"
)

// Sanitize replaces positive infinities with the largest finite value of their
// column and negative infinities with the smallest one. Missing values are left
// alone, so a second pass changes nothing.
//
// A column holding infinities but no finite value has nothing to substitute: its
// infinities become missing values and its name is returned, leaving the affected
// rows to the caller's missing-value drop.
func Sanitize(f *frame.Frame) (*frame.Frame, []string) {
	var unresolved []string
	out := f.MapColumns(func(name string, values []float64) []float64 {
		lo, hi := math.Inf(1), math.Inf(-1)
		finite, infinite := 0, 0
		for _, v := range values {
			switch {
			case math.IsInf(v, 0):
				infinite++
			case math.IsNaN(v):
			default:
				finite++
				lo = math.Min(lo, v)
				hi = math.Max(hi, v)
			}
		}
		if infinite == 0 {
			return nil
		}
		if finite == 0 {
			lo, hi = math.NaN(), math.NaN()
			unresolved = append(unresolved, name)
		}
		for i, v := range values {
			switch {
			case math.IsInf(v, 1):
				values[i] = hi
			case math.IsInf(v, -1):
				values[i] = lo
			}
		}
		return values
	})
	return out, unresolved
}
