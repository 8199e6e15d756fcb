package features

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/trogers1052/stock-dataset-compiler/internal/frame"
	"github.com/trogers1052/stock-dataset-compiler/internal/provider"
)

// fetch retrieves one price history under its own timeout. Errors are always
// marked with provider.ErrFetch so callers can classify them.
func fetch(ctx context.Context, p provider.PriceHistory, timeout time.Duration, symbol, period string) (*frame.Frame, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	raw, err := p.History(ctx, symbol, period)
	if err != nil {
		if errors.Is(err, provider.ErrFetch) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", provider.ErrFetch, symbol, err)
	}
	if raw == nil || raw.Len() == 0 {
		return nil, fmt.Errorf("%w: %s: empty price history", provider.ErrFetch, symbol)
	}
	return raw, nil
}
