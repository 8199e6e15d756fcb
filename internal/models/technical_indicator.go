package models

import "fmt"

// Feature column names
const (
	ColumnClose  = "close"
	ColumnVolume = "volume"
	ColumnLabel  = "label"
)

// MovingAverageWindows are the trailing close-price windows every series gets a moving average for
var MovingAverageWindows = []int{5, 20, 60, 200}

// MovingAverageColumn returns the column name of the moving average over window for a ticker
func MovingAverageColumn(window int) string {
	return fmt.Sprintf("ma%d", window)
}

// IndexColumn returns the column name of an index feature, e.g. ^GSPC-close
func IndexColumn(index, feature string) string {
	return index + "-" + feature
}

// DayColumn returns the indicator column name for a day of week (0 = Monday)
func DayColumn(day int) string {
	return fmt.Sprintf("day_%d", day)
}

// MonthColumn returns the indicator column name for a calendar month (1 = January)
func MonthColumn(month int) string {
	return fmt.Sprintf("month_%d", month)
}
