package frame

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

var (
	// ErrColumnNotFound is returned when an operation names a column the frame does not have
	ErrColumnNotFound = errors.New("column not found")
	// ErrDuplicateColumn is returned when an operation would produce two columns with the same name
	ErrDuplicateColumn = errors.New("duplicate column")
	// ErrLengthMismatch is returned when a column does not have one value per row
	ErrLengthMismatch = errors.New("column length does not match row count")
)

// Frame is a date-indexed table of float64 columns. Missing values are NaN.
//
// Frames are never modified in place: every operation returns a new Frame,
// so a Frame can be shared between goroutines once built.
type Frame struct {
	dates   []time.Time
	columns []string
	data    map[string][]float64
}

// Day normalizes a timestamp to its calendar date at UTC midnight
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// New creates a frame with no columns over the given dates
func New(dates []time.Time) *Frame {
	ds := make([]time.Time, len(dates))
	for i, d := range dates {
		ds[i] = Day(d)
	}
	return &Frame{dates: ds, data: make(map[string][]float64)}
}

// Len returns the number of rows
func (f *Frame) Len() int {
	return len(f.dates)
}

// Dates returns a copy of the row dates
func (f *Frame) Dates() []time.Time {
	return append([]time.Time(nil), f.dates...)
}

// Date returns the date of row i
func (f *Frame) Date(i int) time.Time {
	return f.dates[i]
}

// Columns returns a copy of the column names in order
func (f *Frame) Columns() []string {
	return append([]string(nil), f.columns...)
}

// Has reports whether the frame has a column with the given name
func (f *Frame) Has(name string) bool {
	_, ok := f.data[name]
	return ok
}

// Column returns a copy of the named column
func (f *Frame) Column(name string) ([]float64, bool) {
	values, ok := f.data[name]
	if !ok {
		return nil, false
	}
	return append([]float64(nil), values...), true
}

// Value returns the value of the named column at row i, or NaN if the column does not exist
func (f *Frame) Value(name string, i int) float64 {
	values, ok := f.data[name]
	if !ok {
		return math.NaN()
	}
	return values[i]
}

func (f *Frame) shallow() *Frame {
	out := &Frame{
		dates:   f.dates,
		columns: append([]string(nil), f.columns...),
		data:    make(map[string][]float64, len(f.data)),
	}
	for name, values := range f.data {
		out.data[name] = values
	}
	return out
}

// WithColumn returns a frame with the named column set to values.
// An existing column keeps its position; a new one is appended.
func (f *Frame) WithColumn(name string, values []float64) (*Frame, error) {
	if len(values) != len(f.dates) {
		return nil, fmt.Errorf("%w: %s has %d values for %d rows", ErrLengthMismatch, name, len(values), len(f.dates))
	}
	out := f.shallow()
	if _, exists := out.data[name]; !exists {
		out.columns = append(out.columns, name)
	}
	out.data[name] = append([]float64(nil), values...)
	return out, nil
}

// MapColumns returns a frame where every column is replaced by fn(name, values).
// fn receives a copy it may modify and must return one value per row; MapColumns
// panics otherwise. Returning nil keeps the column unchanged.
func (f *Frame) MapColumns(fn func(name string, values []float64) []float64) *Frame {
	out := f.shallow()
	for _, name := range f.columns {
		mapped := fn(name, append([]float64(nil), f.data[name]...))
		if mapped == nil {
			continue
		}
		if len(mapped) != len(f.dates) {
			panic(fmt.Sprintf("frame: MapColumns returned %d values for %d rows in column %s", len(mapped), len(f.dates), name))
		}
		out.data[name] = mapped
	}
	return out
}

// Drop returns a frame without the named columns. Every name must exist.
func (f *Frame) Drop(names ...string) (*Frame, error) {
	for _, name := range names {
		if !f.Has(name) {
			return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, name)
		}
	}
	return f.DropIfPresent(names...), nil
}

// DropIfPresent returns a frame without the named columns, ignoring names that do not exist
func (f *Frame) DropIfPresent(names ...string) *Frame {
	drop := make(map[string]bool, len(names))
	for _, name := range names {
		drop[name] = true
	}
	out := &Frame{dates: f.dates, data: make(map[string][]float64, len(f.data))}
	for _, name := range f.columns {
		if drop[name] {
			continue
		}
		out.columns = append(out.columns, name)
		out.data[name] = f.data[name]
	}
	return out
}

// Select returns a frame with only the named columns, in the given order
func (f *Frame) Select(names ...string) (*Frame, error) {
	out := &Frame{dates: f.dates, data: make(map[string][]float64, len(names))}
	for _, name := range names {
		values, ok := f.data[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, name)
		}
		if _, dup := out.data[name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateColumn, name)
		}
		out.columns = append(out.columns, name)
		out.data[name] = values
	}
	return out, nil
}

// Rename returns a frame with every column renamed by fn
func (f *Frame) Rename(fn func(string) string) (*Frame, error) {
	out := &Frame{dates: f.dates, data: make(map[string][]float64, len(f.data))}
	for _, name := range f.columns {
		renamed := fn(name)
		if _, dup := out.data[renamed]; dup {
			return nil, fmt.Errorf("%w: %s (renamed from %s)", ErrDuplicateColumn, renamed, name)
		}
		out.columns = append(out.columns, renamed)
		out.data[renamed] = f.data[name]
	}
	return out, nil
}

// ForwardFill replaces each missing value with the closest preceding non-missing value in its column.
// Leading missing values stay missing.
func (f *Frame) ForwardFill() *Frame {
	return f.MapColumns(func(_ string, values []float64) []float64 {
		last := math.NaN()
		for i, v := range values {
			if math.IsNaN(v) {
				values[i] = last
				continue
			}
			last = v
		}
		return values
	})
}

// Rows returns a frame with the given rows, in the given order
func (f *Frame) Rows(idx []int) *Frame {
	out := &Frame{
		dates:   make([]time.Time, len(idx)),
		columns: append([]string(nil), f.columns...),
		data:    make(map[string][]float64, len(f.data)),
	}
	for j, i := range idx {
		out.dates[j] = f.dates[i]
	}
	for _, name := range f.columns {
		src := f.data[name]
		dst := make([]float64, len(idx))
		for j, i := range idx {
			dst[j] = src[i]
		}
		out.data[name] = dst
	}
	return out
}

// Slice returns rows [from, to)
func (f *Frame) Slice(from, to int) *Frame {
	idx := make([]int, 0, to-from)
	for i := from; i < to; i++ {
		idx = append(idx, i)
	}
	return f.Rows(idx)
}

// DropNA returns a frame without the rows that have a missing value in any column
func (f *Frame) DropNA() *Frame {
	idx := make([]int, 0, len(f.dates))
	for i := range f.dates {
		if f.complete(i) {
			idx = append(idx, i)
		}
	}
	return f.Rows(idx)
}

func (f *Frame) complete(i int) bool {
	for _, name := range f.columns {
		if math.IsNaN(f.data[name][i]) {
			return false
		}
	}
	return true
}

// InnerJoin returns the rows whose date is present in both frames, with the
// columns of f followed by the columns of other. Row order follows f.
func (f *Frame) InnerJoin(other *Frame) (*Frame, error) {
	for _, name := range other.columns {
		if f.Has(name) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateColumn, name)
		}
	}
	pos := other.positions()
	var left, right []int
	for i, d := range f.dates {
		if j, ok := pos[d.Unix()]; ok {
			left = append(left, i)
			right = append(right, j)
		}
	}
	out := f.Rows(left)
	joined := other.Rows(right)
	for _, name := range joined.columns {
		out.columns = append(out.columns, name)
		out.data[name] = joined.data[name]
	}
	return out, nil
}

// OuterJoin combines frames horizontally over the union of their dates, sorted
// ascending. Cells for dates a frame does not have are missing.
func OuterJoin(frames ...*Frame) (*Frame, error) {
	seen := make(map[int64]time.Time)
	for _, f := range frames {
		for _, d := range f.dates {
			seen[d.Unix()] = d
		}
	}
	dates := make([]time.Time, 0, len(seen))
	for _, d := range seen {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	out := New(dates)
	for _, f := range frames {
		pos := f.positions()
		for _, name := range f.columns {
			if out.Has(name) {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateColumn, name)
			}
			src := f.data[name]
			dst := make([]float64, len(dates))
			for i, d := range dates {
				if j, ok := pos[d.Unix()]; ok {
					dst[i] = src[j]
				} else {
					dst[i] = math.NaN()
				}
			}
			out.columns = append(out.columns, name)
			out.data[name] = dst
		}
	}
	return out, nil
}

func (f *Frame) positions() map[int64]int {
	pos := make(map[int64]int, len(f.dates))
	for i, d := range f.dates {
		pos[d.Unix()] = i
	}
	return pos
}
