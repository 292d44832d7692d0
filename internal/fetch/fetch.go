// Package fetch retrieves remote documents over HTTP with hard byte and
// time limits. Fetches are never retried here; callers decide whether a
// failure is worth another attempt.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/casevault/lexindex/pkg/types"
)

const (
	// DefaultMaxBytes caps a single fetched body at 32 MiB
	DefaultMaxBytes = 32 << 20

	// DefaultTimeout bounds a single fetch end to end
	DefaultTimeout = 30 * time.Second

	userAgent = "lexindex/1.0"
)

// Options configures a Fetcher
type Options struct {
	MaxBytes int64
	Timeout  time.Duration

	// Limiter, when set, throttles outbound requests. Useful against
	// municipal code providers that ban aggressive crawlers.
	Limiter *rate.Limiter

	// Client overrides the HTTP client, mainly for tests
	Client *http.Client
}

// Fetcher downloads remote resources
type Fetcher struct {
	maxBytes int64
	timeout  time.Duration
	limiter  *rate.Limiter
	client   *http.Client
}

// New creates a fetcher, filling unset options with defaults
func New(opts Options) *Fetcher {
	f := &Fetcher{
		maxBytes: opts.MaxBytes,
		timeout:  opts.Timeout,
		limiter:  opts.Limiter,
		client:   opts.Client,
	}
	if f.maxBytes <= 0 {
		f.maxBytes = DefaultMaxBytes
	}
	if f.timeout <= 0 {
		f.timeout = DefaultTimeout
	}
	if f.client == nil {
		f.client = &http.Client{}
	}
	return f
}

// Fetch downloads a URL and returns its body. Failures, including bodies over
// the byte limit, come back as a *types.TransportError carrying how many
// bytes arrived before the failure.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, &types.TransportError{URL: url, Cause: err}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &types.TransportError{URL: url, Cause: err}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &types.TransportError{URL: url, Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &types.TransportError{
			URL:   url,
			Cause: fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	// Read one byte past the limit to distinguish exactly-at-limit from over
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, &types.TransportError{URL: url, BytesRead: int64(len(body)), Cause: err}
	}
	if int64(len(body)) > f.maxBytes {
		return nil, &types.TransportError{
			URL:       url,
			BytesRead: int64(len(body)),
			Cause:     types.ErrSizeLimitExceeded,
		}
	}

	return body, nil
}
