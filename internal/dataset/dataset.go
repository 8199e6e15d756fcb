package dataset

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/trogers1052/stock-dataset-compiler/internal/frame"
	"github.com/trogers1052/stock-dataset-compiler/internal/models"
)

// ErrInvalid is returned by Validate when a dataset breaks one of its invariants
var ErrInvalid = errors.New("invalid dataset")

// Row is one labeled observation of a symbol on a trading date
type Row struct {
	Symbol   string    `json:"symbol"`
	Date     time.Time `json:"date"`
	Close    float64   `json:"close"`
	Features []float64 `json:"features"`
	Label    int       `json:"label"`
}

// Dataset is a table of rows sharing the same feature columns
type Dataset struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// FromFrame converts a labeled per-symbol frame into dataset rows. Every column
// other than close and label becomes a feature column. Rows without a label are
// skipped.
func FromFrame(symbol string, f *frame.Frame) (*Dataset, error) {
	closes, ok := f.Column(models.ColumnClose)
	if !ok {
		return nil, fmt.Errorf("%s: missing %s column", symbol, models.ColumnClose)
	}
	labels, ok := f.Column(models.ColumnLabel)
	if !ok {
		return nil, fmt.Errorf("%s: missing %s column", symbol, models.ColumnLabel)
	}

	ds := &Dataset{Columns: featureColumns(f)}
	values := make([][]float64, len(ds.Columns))
	for j, name := range ds.Columns {
		values[j], _ = f.Column(name)
	}

	ds.Rows = make([]Row, 0, f.Len())
	for i := 0; i < f.Len(); i++ {
		if math.IsNaN(labels[i]) {
			continue
		}
		row := Row{
			Symbol:   symbol,
			Date:     f.Date(i),
			Close:    closes[i],
			Features: make([]float64, len(ds.Columns)),
			Label:    int(labels[i]),
		}
		for j := range ds.Columns {
			row.Features[j] = values[j][i]
		}
		ds.Rows = append(ds.Rows, row)
	}
	return ds, nil
}

func featureColumns(f *frame.Frame) []string {
	var cols []string
	for _, name := range f.Columns() {
		if name != models.ColumnClose && name != models.ColumnLabel {
			cols = append(cols, name)
		}
	}
	return cols
}

// Len returns the number of rows
func (d *Dataset) Len() int {
	return len(d.Rows)
}

// ClassCounts returns the number of rows labeled 1 and labeled 0
func (d *Dataset) ClassCounts() (positives, negatives int) {
	for _, r := range d.Rows {
		if r.Label == 1 {
			positives++
		} else {
			negatives++
		}
	}
	return positives, negatives
}

// Append adds the rows of other. Both datasets must have the same columns.
func (d *Dataset) Append(other *Dataset) error {
	if d.Columns == nil && len(d.Rows) == 0 {
		d.Columns = append([]string(nil), other.Columns...)
	}
	if !slices.Equal(d.Columns, other.Columns) {
		return fmt.Errorf("column mismatch: got %d columns, want %d", len(other.Columns), len(d.Columns))
	}
	d.Rows = append(d.Rows, other.Rows...)
	return nil
}

// DropColumns returns a dataset without the named feature columns. Names that are
// not present are ignored.
func (d *Dataset) DropColumns(names ...string) *Dataset {
	keep := make([]int, 0, len(d.Columns))
	out := &Dataset{}
	for j, name := range d.Columns {
		if slices.Contains(names, name) {
			continue
		}
		keep = append(keep, j)
		out.Columns = append(out.Columns, name)
	}

	out.Rows = make([]Row, len(d.Rows))
	for i, r := range d.Rows {
		features := make([]float64, len(keep))
		for k, j := range keep {
			features[k] = r.Features[j]
		}
		r.Features = features
		out.Rows[i] = r
	}
	return out
}

// dropIncomplete returns a dataset without the rows holding a missing or infinite value
func (d *Dataset) dropIncomplete() *Dataset {
	out := &Dataset{Columns: d.Columns, Rows: make([]Row, 0, len(d.Rows))}
	for _, r := range d.Rows {
		if complete(r) {
			out.Rows = append(out.Rows, r)
		}
	}
	return out
}

func complete(r Row) bool {
	if !finite(r.Close) {
		return false
	}
	for _, v := range r.Features {
		if !finite(v) {
			return false
		}
	}
	return true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Validate checks that every row has one finite value per column and a 0/1 label
func (d *Dataset) Validate() error {
	for i, r := range d.Rows {
		if len(r.Features) != len(d.Columns) {
			return fmt.Errorf("%w: row %d (%s %s) has %d features for %d columns",
				ErrInvalid, i, r.Symbol, r.Date.Format(time.DateOnly), len(r.Features), len(d.Columns))
		}
		if r.Label != 0 && r.Label != 1 {
			return fmt.Errorf("%w: row %d (%s %s) has label %d", ErrInvalid, i, r.Symbol, r.Date.Format(time.DateOnly), r.Label)
		}
		if !complete(r) {
			return fmt.Errorf("%w: row %d (%s %s) has a non-finite value", ErrInvalid, i, r.Symbol, r.Date.Format(time.DateOnly))
		}
	}
	return nil
}
