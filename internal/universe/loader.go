package universe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// DefaultSourceURL is the public S&P 500 membership page
const DefaultSourceURL = "https://en.wikipedia.org/wiki/List_of_S%26P_500_companies"

const userAgent = "stock-dataset-compiler/1.0"

// Loader resolves the symbol universe from the local artifact, the cache or the
// remote membership page, in that order
type Loader struct {
	sourceURL string
	client    *http.Client
	artifact  *Artifact
	cache     Cache
	log       zerolog.Logger
}

// NewLoader creates a new universe loader. cache may be nil.
func NewLoader(sourceURL, artifactPath string, cache Cache, log zerolog.Logger) *Loader {
	if sourceURL == "" {
		sourceURL = DefaultSourceURL
	}
	return &Loader{
		sourceURL: sourceURL,
		client:    &http.Client{Timeout: 30 * time.Second},
		artifact:  &Artifact{Path: artifactPath},
		cache:     cache,
		log:       log.With().Str("component", "universe").Logger(),
	}
}

// Load returns the symbol universe, fetching it remotely only when neither the
// artifact nor the cache has it. Symbols found in the cache are written back to
// the artifact.
func (l *Loader) Load(ctx context.Context) ([]string, error) {
	symbols, updatedAt, err := l.artifact.Read()
	if err == nil {
		l.log.Debug().Int("symbols", len(symbols)).Time("updated_at", updatedAt).Msg("Loaded universe from artifact")
		return symbols, nil
	}
	if !isNotExist(err) {
		l.log.Warn().Err(err).Msg("Ignoring unreadable universe artifact")
	}

	if l.cache != nil {
		symbols, err := l.cache.GetSymbols(ctx)
		switch {
		case err == nil:
			l.log.Debug().Int("symbols", len(symbols)).Msg("Loaded universe from cache")
			if err := l.artifact.Write(l.sourceURL, symbols); err != nil {
				l.log.Warn().Err(err).Msg("Failed to write universe artifact")
			}
			return symbols, nil
		case !errors.Is(err, ErrCacheMiss):
			l.log.Warn().Err(err).Msg("Universe cache unavailable")
		}
	}

	return l.Refresh(ctx)
}

// Refresh fetches the membership page and replaces the artifact and the cache
func (l *Loader) Refresh(ctx context.Context) ([]string, error) {
	symbols, err := l.fetch(ctx)
	if err != nil {
		return nil, err
	}

	if err := l.artifact.Write(l.sourceURL, symbols); err != nil {
		return nil, err
	}
	if l.cache != nil {
		if err := l.cache.SetSymbols(ctx, symbols); err != nil {
			l.log.Warn().Err(err).Msg("Failed to cache universe")
		}
	}

	l.log.Info().Int("symbols", len(symbols)).Str("source", l.sourceURL).Msg("Refreshed universe")
	return symbols, nil
}

func (l *Loader) fetch(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.sourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create universe request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch universe: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch universe: unexpected status %d", resp.StatusCode)
	}
	return ParseSymbols(resp.Body)
}
