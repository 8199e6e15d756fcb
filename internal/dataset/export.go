package dataset

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/trogers1052/stock-dataset-compiler/internal/models"
)

// Export column names that are not feature columns
const (
	ColumnSymbol = "symbol"
	ColumnDate   = "date"
)

// DataFrame converts ds into a gota DataFrame with the symbol, date and raw close
// columns, then every feature column, then the label.
func (d *Dataset) DataFrame() dataframe.DataFrame {
	symbols := make([]string, len(d.Rows))
	dates := make([]string, len(d.Rows))
	closes := make([]float64, len(d.Rows))
	labels := make([]int, len(d.Rows))
	features := make([][]float64, len(d.Columns))
	for j := range features {
		features[j] = make([]float64, len(d.Rows))
	}

	for i, r := range d.Rows {
		symbols[i] = r.Symbol
		dates[i] = r.Date.Format(time.DateOnly)
		closes[i] = r.Close
		labels[i] = r.Label
		for j, v := range r.Features {
			features[j][i] = v
		}
	}

	cols := make([]series.Series, 0, len(d.Columns)+4)
	cols = append(cols,
		series.New(symbols, series.String, ColumnSymbol),
		series.New(dates, series.String, ColumnDate),
		series.New(closes, series.Float, models.ColumnClose),
	)
	for j, name := range d.Columns {
		cols = append(cols, series.New(features[j], series.Float, name))
	}
	cols = append(cols, series.New(labels, series.Int, models.ColumnLabel))
	return dataframe.New(cols...)
}

// WriteCSV writes ds as CSV with a header row
func WriteCSV(w io.Writer, ds *Dataset) error {
	df := ds.DataFrame()
	if df.Err != nil {
		return fmt.Errorf("failed to build dataframe: %w", df.Err)
	}
	if err := df.WriteCSV(w); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

// CSVExporter writes datasets as CSV files into a directory
type CSVExporter struct {
	Dir string
}

// NewCSVExporter creates a new CSV exporter writing into dir
func NewCSVExporter(dir string) *CSVExporter {
	return &CSVExporter{Dir: dir}
}

// Export writes ds to {Dir}/{name}.csv and returns the file path
func (e *CSVExporter) Export(name string, ds *Dataset) (string, error) {
	if err := os.MkdirAll(e.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	path := filepath.Join(e.Dir, name+".csv")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	if err := WriteCSV(f, ds); err != nil {
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close export file: %w", err)
	}
	return path, nil
}
