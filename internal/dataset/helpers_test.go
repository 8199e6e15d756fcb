package dataset

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/trogers1052/stock-dataset-compiler/internal/frame"
	"github.com/trogers1052/stock-dataset-compiler/internal/models"
)

var testLog = zerolog.New(nil).Level(zerolog.Disabled)

// MockPriceHistory implements provider.PriceHistory for testing
type MockPriceHistory struct {
	mu        sync.Mutex
	histories map[string]*frame.Frame
	errs      map[string]error
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
	if err, ok := m.errs[symbol]; ok {
		return nil, err
	}
	f, ok := m.histories[symbol]
	if !ok {
		return nil, fmt.Errorf("unknown symbol %s", symbol)
	}
	return f, nil
}

// MockRecorder implements Recorder for testing
type MockRecorder struct {
	mu       sync.Mutex
	Compiled int
	Failed   map[string]int
}

func NewMockRecorder() *MockRecorder {
	return &MockRecorder{Failed: make(map[string]int)}
}

func (m *MockRecorder) SymbolCompiled(int, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Compiled++
}

func (m *MockRecorder) SymbolFailed(kind string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Failed[kind]++
}

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

// zigzag returns n positive closes that rise on every other day
func zigzag(n int, start float64) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = start + float64(i) + float64(i%2)*3
	}
	return closes
}

func rawHistory(n int, closes []float64) *frame.Frame {
	volumes := make([]float64, n)
	for i := range volumes {
		volumes[i] = 5000 + float64(i%5)*100
	}
	f := frame.New(tradingDays(n))
	for _, name := range []string{models.RawOpen, models.RawHigh, models.RawLow, models.RawClose} {
		f, _ = f.WithColumn(name, closes)
	}
	f, _ = f.WithColumn(models.RawVolume, volumes)
	return f
}

// newMarket returns a provider holding both default indices over n days
func newMarket(n int) *MockPriceHistory {
	m := NewMockPriceHistory()
	m.histories["^GSPC"] = rawHistory(n, zigzag(n, 4000))
	m.histories["^VIX"] = rawHistory(n, zigzag(n, 15))
	return m
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.FetchTimeout = time.Second
	return opts
}
