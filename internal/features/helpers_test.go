package features

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/trogers1052/stock-dataset-compiler/internal/frame"
	"github.com/trogers1052/stock-dataset-compiler/internal/models"
)

// MockPriceHistory implements provider.PriceHistory for testing
type MockPriceHistory struct {
	mu        sync.Mutex
	histories map[string]*frame.Frame
	errs      map[string]error
	Requested []string
}

func NewMockPriceHistory() *MockPriceHistory {
	return &MockPriceHistory{
		histories: make(map[string]*frame.Frame),
		errs:      make(map[string]error),
	}
}

func (m *MockPriceHistory) History(_ context.Context, symbol, _ string) (*frame.Frame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requested = append(m.Requested, symbol)
	if err, ok := m.errs[symbol]; ok {
		return nil, err
	}
	f, ok := m.histories[symbol]
	if !ok {
		return nil, fmt.Errorf("unknown symbol %s", symbol)
	}
	return f, nil
}

// tradingDays returns n consecutive weekdays starting on Monday 2024-01-01
func tradingDays(n int) []time.Time {
	dates := make([]time.Time, 0, n)
	for d := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC); len(dates) < n; d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		dates = append(dates, d)
	}
	return dates
}

// rawHistory builds a provider-shaped frame where open, high and low equal close
func rawHistory(dates []time.Time, closes []float64, corporateActions bool) *frame.Frame {
	volumes := make([]float64, len(closes))
	zeros := make([]float64, len(closes))
	for i := range volumes {
		volumes[i] = 1000 + float64(i%7)*10
	}

	f := frame.New(dates)
	f, _ = f.WithColumn(models.RawOpen, closes)
	f, _ = f.WithColumn(models.RawHigh, closes)
	f, _ = f.WithColumn(models.RawLow, closes)
	f, _ = f.WithColumn(models.RawClose, closes)
	f, _ = f.WithColumn(models.RawVolume, volumes)
	if corporateActions {
		f, _ = f.WithColumn(models.RawDividends, zeros)
		f, _ = f.WithColumn(models.RawStockSplits, zeros)
	}
	return f
}

// risingCloses returns n strictly increasing closes starting at start
func risingCloses(n int, start float64) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = start + float64(i)
	}
	return closes
}
