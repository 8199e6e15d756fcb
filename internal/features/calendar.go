package features

import (
	"time"

	"github.com/trogers1052/stock-dataset-compiler/internal/frame"
	"github.com/trogers1052/stock-dataset-compiler/internal/models"
)

// DayColumns returns the day-of-week indicator columns, Monday (day_0) first
func DayColumns() []string {
	cols := make([]string, 7)
	for d := range cols {
		cols[d] = models.DayColumn(d)
	}
	return cols
}

// MonthColumns returns the month indicator columns, January (month_1) first
func MonthColumns() []string {
	cols := make([]string, 12)
	for m := range cols {
		cols[m] = models.MonthColumn(m + 1)
	}
	return cols
}

// weekday maps time.Weekday (Sunday = 0) onto Monday = 0 .. Sunday = 6
func weekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// AddCalendarIndicators appends the 7 day-of-week and 12 month 0/1 indicator
// columns. Every column is present even if no row falls on that value.
func AddCalendarIndicators(f *frame.Frame) (*frame.Frame, error) {
	days := make([][]float64, 7)
	for d := range days {
		days[d] = make([]float64, f.Len())
	}
	months := make([][]float64, 12)
	for m := range months {
		months[m] = make([]float64, f.Len())
	}
	for i, date := range f.Dates() {
		days[weekday(date)][i] = 1
		months[int(date.Month())-1][i] = 1
	}

	out := f
	var err error
	for d, name := range DayColumns() {
		if out, err = out.WithColumn(name, days[d]); err != nil {
			return nil, err
		}
	}
	for m, name := range MonthColumns() {
		if out, err = out.WithColumn(name, months[m]); err != nil {
			return nil, err
		}
	}
	return out, nil
}
