// Package sources implements the external bibliographic services behind the
// book.Source interface: Google Books (by identifier and by free-text
// search), OpenLibrary and OpenAlex. Every adapter maps transport failures,
// timeouts, non-200 responses and empty payloads to "no result" so the
// resolver can fall through the waterfall.
package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/lepinkainen/alexandria/internal/enrichment/book"
	"github.com/lepinkainen/alexandria/internal/ratelimit"
)

// Waterfall returns the production source order: Google Books by identifier,
// OpenLibrary, OpenAlex, then the Google Books free-text search fallback.
// The HTTP client is shared across sources and scoped to one pipeline run.
func Waterfall(client *http.Client) []book.Source {
	gb := NewGoogleBooks(client)
	return []book.Source{
		gb,
		NewOpenLibrary(client),
		NewOpenAlex(client),
		NewSearchFallback(gb),
	}
}

// fetchJSON performs a rate-limited GET with a bounded timeout and decodes
// the response body into dst.
func fetchJSON(ctx context.Context, client *http.Client, limiter *ratelimit.Limiter, timeout time.Duration, url string, dst any) error {
	if err := limiter.Wait(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}
