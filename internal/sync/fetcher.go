// CTGP Popularity - Track Popularity Aggregation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ctgp-popularity

package sync

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/ctgp-popularity/internal/logging"
	"github.com/tomtom215/ctgp-popularity/internal/metrics"
)

const (
	// maxErrorBodySize bounds how much of an error response is kept.
	maxErrorBodySize = 64 * 1024

	// maxDocumentSize bounds a single fetched document.
	maxDocumentSize = 32 * 1024 * 1024

	// maxRetryAfter caps a server-provided Retry-After.
	maxRetryAfter = 2 * time.Minute
)

// Fetcher retrieves one upstream document.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, url string) ([]byte, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, url string) ([]byte, error) {
	return f(ctx, url)
}

// HTTPClientConfig configures an HTTPClient.
type HTTPClientConfig struct {
	// Name labels metrics and log lines, e.g. "usage_scraper".
	Name      string
	UserAgent string
	Timeout   time.Duration

	// MaxRateLimitRetries bounds retries on HTTP 429.
	MaxRateLimitRetries int

	// RateLimitBaseDelay is the first 429 backoff, doubled per attempt.
	// Defaults to one second.
	RateLimitBaseDelay time.Duration

	// Limiter throttles outgoing requests. Nil disables throttling.
	Limiter *rate.Limiter
}

// HTTPClient is a polite GET-only client for the upstream sources.
type HTTPClient struct {
	httpClient *http.Client
	cfg        HTTPClientConfig
}

// NewHTTPClient creates a client. Zero values fall back to sane defaults.
func NewHTTPClient(cfg HTTPClientConfig) *HTTPClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RateLimitBaseDelay <= 0 {
		cfg.RateLimitBaseDelay = time.Second
	}
	if cfg.MaxRateLimitRetries < 0 {
		cfg.MaxRateLimitRetries = 0
	}
	return &HTTPClient{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
	}
}

// NewLimiter builds the politeness limiter. rps <= 0 disables it.
func NewLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// Fetch performs a GET and returns the body of a 2xx response. Other
// statuses return a *StatusError.
func (c *HTTPClient) Fetch(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.doRequestWithRateLimit(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			URL:        url,
			StatusCode: resp.StatusCode,
			Body:       string(readBodyForError(resp.Body)),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("read body of %s: %w", url, err)
	}
	if len(body) > maxDocumentSize {
		return nil, fmt.Errorf("document %s exceeds %d bytes", url, maxDocumentSize)
	}
	return body, nil
}

// doRequestWithRateLimit sends the request, waiting for the limiter first and
// retrying HTTP 429 with exponential backoff. Retry-After, when present in
// seconds, replaces the computed delay. Once the retries are spent the last
// 429 comes back as a *StatusError.
func (c *HTTPClient) doRequestWithRateLimit(ctx context.Context, url string) (*http.Response, error) {
	maxRetries := c.cfg.MaxRateLimitRetries

	for attempt := 0; ; attempt++ {
		resp, err := c.send(ctx, url)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		retryAfter := resp.Header.Get("Retry-After")
		body := readBodyForError(resp.Body)
		resp.Body.Close()
		metrics.SourceRateLimited.WithLabelValues(c.cfg.Name).Inc()

		if attempt >= maxRetries {
			return nil, &StatusError{
				URL:        url,
				StatusCode: http.StatusTooManyRequests,
				Body:       fmt.Sprintf("rate limited on %d of %d attempts: %s", attempt+1, maxRetries+1, body),
			}
		}

		retryDelay := c.backoff(attempt, retryAfter)
		logging.Warn().
			Str("source", c.cfg.Name).
			Dur("retry_delay", retryDelay).
			Int("attempt", attempt+1).
			Int("max_retries", maxRetries).
			Msg("Source rate limited (HTTP 429), retrying")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryDelay):
		}
	}
}

func (c *HTTPClient) send(ctx context.Context, url string) (*http.Response, error) {
	if c.cfg.Limiter != nil {
		if err := c.cfg.Limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	return resp, nil
}

// backoff is RateLimitBaseDelay doubled per attempt, or Retry-After seconds
// when the server sent them, capped at maxRetryAfter.
func (c *HTTPClient) backoff(attempt int, retryAfter string) time.Duration {
	delay := c.cfg.RateLimitBaseDelay * (1 << attempt)
	if retryAfter != "" {
		if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds >= 0 {
			delay = time.Duration(seconds) * time.Second
		}
	}
	return min(delay, maxRetryAfter)
}

// readBodyForError reads at most maxErrorBodySize bytes for an error message.
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("\n... (truncated)")...)
	}
	return body
}
