package features

import (
	"fmt"
	"math"

	"github.com/trogers1052/stock-dataset-compiler/internal/frame"
	"github.com/trogers1052/stock-dataset-compiler/internal/models"
)

// CreateTarget appends the next-day direction label to a per-symbol table.
//
// The percentage change of close is computed, the first row (which has none) is
// dropped, the change is binarized (strictly positive means 1), shifted one row
// earlier, and the trailing row (which has no next day) is dropped. An input of N
// rows gives N-2 rows where row i is labeled 1 exactly when close rose on the day
// after it. The raw close column is kept. A change that cannot be computed gives a
// missing label.
func CreateTarget(f *frame.Frame) (*frame.Frame, error) {
	closes, ok := f.Column(models.ColumnClose)
	if !ok {
		return nil, fmt.Errorf("%w: missing %s column", ErrShape, models.ColumnClose)
	}
	if f.Len() < 3 {
		return nil, fmt.Errorf("%w: %d rows, need at least 3 to label", ErrInsufficientHistory, f.Len())
	}

	// rows 1..N-2 survive; row i takes its label from the change between i and i+1
	labels := make([]float64, f.Len())
	labels[0] = math.NaN()
	labels[f.Len()-1] = math.NaN()
	for i := 1; i < f.Len()-1; i++ {
		labels[i] = direction(closes[i], closes[i+1])
	}

	out, err := f.WithColumn(models.ColumnLabel, labels)
	if err != nil {
		return nil, err
	}
	return out.Slice(1, f.Len()-1), nil
}

func direction(prev, next float64) float64 {
	change := (next - prev) / prev
	if math.IsNaN(change) {
		return math.NaN()
	}
	if change > 0 {
		return 1
	}
	return 0
}
