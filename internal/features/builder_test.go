package features

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trogers1052/stock-dataset-compiler/internal/frame"
	"github.com/trogers1052/stock-dataset-compiler/internal/models"
	"github.com/trogers1052/stock-dataset-compiler/internal/provider"
)

var testLog = zerolog.New(nil).Level(zerolog.Disabled)

func TestNormalizeSymbol(t *testing.T) {
	assert.Equal(t, "BRK-B", NormalizeSymbol("BRK.B"))
	assert.Equal(t, "BF-B", NormalizeSymbol(" BF.B "))
	assert.Equal(t, "AAPL", NormalizeSymbol("AAPL"))
}

func TestIndexFeatures(t *testing.T) {
	dates := tradingDays(250)
	closes := risingCloses(250, 3000)
	expected := []string{"^GSPC-close", "^GSPC-volume", "^GSPC-ma5", "^GSPC-ma20", "^GSPC-ma60", "^GSPC-ma200"}

	t.Run("drops corporate-action and price columns", func(t *testing.T) {
		f, err := IndexFeatures(rawHistory(dates, closes, true), "^GSPC", testLog)
		require.NoError(t, err)
		assert.Equal(t, expected, f.Columns())
	})

	t.Run("tolerates absent corporate-action columns", func(t *testing.T) {
		f, err := IndexFeatures(rawHistory(dates, closes, false), "^GSPC", testLog)
		require.NoError(t, err)
		assert.Equal(t, expected, f.Columns())
	})

	t.Run("columns are standardized", func(t *testing.T) {
		f, err := IndexFeatures(rawHistory(dates, closes, true), "^GSPC", testLog)
		require.NoError(t, err)

		values, _ := f.Column("^GSPC-close")
		sum := 0.0
		for _, v := range values {
			sum += v
		}
		assert.InDelta(t, 0, sum/float64(len(values)), 1e-9)
	})

	t.Run("missing price columns are a shape error", func(t *testing.T) {
		raw, err := rawHistory(dates, closes, false).Drop(models.RawOpen)
		require.NoError(t, err)

		_, err = IndexFeatures(raw, "^GSPC", testLog)
		assert.ErrorIs(t, err, ErrShape)
	})
}

func TestIndexBuilder_Build(t *testing.T) {
	mock := NewMockPriceHistory()
	mock.histories["^GSPC"] = rawHistory(tradingDays(250), risingCloses(250, 3000), true)
	// the VIX history starts one day later; the outer join keeps the first day
	mock.histories["^VIX"] = rawHistory(tradingDays(250)[1:], risingCloses(249, 20), false)

	builder := NewIndexBuilder(mock, time.Second, testLog)

	t.Run("outer joins every index", func(t *testing.T) {
		f, err := builder.Build(context.Background(), DefaultIndices, "5y")
		require.NoError(t, err)

		assert.Equal(t, 250, f.Len())
		assert.Len(t, f.Columns(), 12)
		assert.True(t, f.Has("^VIX-volume"))
		assert.True(t, math.IsNaN(f.Value("^VIX-close", 0)))
	})

	t.Run("any index failure fails the build", func(t *testing.T) {
		_, err := builder.Build(context.Background(), []string{"^GSPC", "^DJI"}, "5y")
		require.Error(t, err)
		assert.ErrorIs(t, err, provider.ErrFetch)
	})

	t.Run("no indices", func(t *testing.T) {
		_, err := builder.Build(context.Background(), nil, "5y")
		assert.Error(t, err)
	})
}

func buildIndex(t *testing.T, n int) *frame.Frame {
	t.Helper()
	mock := NewMockPriceHistory()
	mock.histories["^GSPC"] = rawHistory(tradingDays(n), risingCloses(n, 3000), true)
	mock.histories["^VIX"] = rawHistory(tradingDays(n), risingCloses(n, 20), false)

	index, err := NewIndexBuilder(mock, time.Second, testLog).Build(context.Background(), DefaultIndices, "5y")
	require.NoError(t, err)
	return index
}

func TestTickerBuilder_Build(t *testing.T) {
	const n = 260
	index := buildIndex(t, n)

	mock := NewMockPriceHistory()
	closes := make([]float64, n)
	for i := range closes {
		// two down days then an up day, so both labels occur
		closes[i] = 100 + float64(i) - float64((i%3)*2)
	}
	mock.histories["BRK-B"] = rawHistory(tradingDays(n), closes, true)

	builder := NewTickerBuilder(mock, time.Second, testLog)
	f, err := builder.Build(context.Background(), "BRK.B", index, "5y")
	require.NoError(t, err)

	assert.Equal(t, []string{"BRK-B"}, mock.Requested)

	// rows 0..198 lack a 200-day average and the final row has no next day
	require.Equal(t, n-200, f.Len())
	assert.Equal(t, tradingDays(n)[199], f.Date(0))

	cols := f.Columns()
	assert.Equal(t, models.ColumnClose, cols[0])
	assert.Contains(t, cols, "volume")
	assert.Contains(t, cols, "ma200")
	assert.Contains(t, cols, "day_6")
	assert.Contains(t, cols, "month_12")
	assert.Contains(t, cols, "^GSPC-ma200")
	assert.Contains(t, cols, models.ColumnLabel)
	assert.NotContains(t, cols, "dividends")

	rawCloses, _ := f.Column(models.ColumnClose)
	labels, _ := f.Column(models.ColumnLabel)
	for i := 0; i < f.Len(); i++ {
		orig := 199 + i
		assert.Equal(t, closes[orig], rawCloses[i], "close is not standardized")
		expected := 0.0
		if closes[orig+1] > closes[orig] {
			expected = 1
		}
		assert.Equal(t, expected, labels[i], "row %d", i)
	}

	for _, name := range cols {
		values, _ := f.Column(name)
		for _, v := range values {
			assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), "column %s", name)
		}
	}
}

func TestTickerBuilder_Failures(t *testing.T) {
	index := buildIndex(t, 260)

	mock := NewMockPriceHistory()
	mock.errs["DOWN"] = errors.New("connection refused")
	mock.histories["NEW"] = rawHistory(tradingDays(50), risingCloses(50, 10), true)
	noClose, _ := rawHistory(tradingDays(260), risingCloses(260, 10), true).Drop(models.RawClose)
	mock.histories["ODD"] = noClose
	mock.histories["EMPTY"] = frame.New(nil)

	builder := NewTickerBuilder(mock, time.Second, testLog)

	tests := []struct {
		symbol   string
		expected error
	}{
		{"DOWN", provider.ErrFetch},
		{"MISSING", provider.ErrFetch},
		{"EMPTY", provider.ErrFetch},
		{"NEW", ErrInsufficientHistory},
		{"ODD", ErrShape},
	}

	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			_, err := builder.Build(context.Background(), tt.symbol, index, "5y")
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestTickerBuilder_FetchTimeout(t *testing.T) {
	builder := NewTickerBuilder(slowHistory{}, 10*time.Millisecond, testLog)
	_, err := builder.Build(context.Background(), "SLOW", buildIndex(t, 10), "5y")
	assert.ErrorIs(t, err, provider.ErrFetch)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type slowHistory struct{}

func (slowHistory) History(ctx context.Context, _, _ string) (*frame.Frame, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
