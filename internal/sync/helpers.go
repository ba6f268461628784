// CTGP Popularity - Track Popularity Aggregation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ctgp-popularity

package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/ctgp-popularity/internal/logging"
)

// retryWithBackoff executes fn up to attempts times, doubling delay between
// tries. Errors that retrying cannot fix are returned immediately. If ctx is
// canceled during a wait, the context error is returned.
func retryWithBackoff(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err = fn()
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}

		if attempt < attempts-1 {
			logging.Warn().Err(err).Int("attempt", attempt+1).Int("max_attempts", attempts).Dur("delay", delay).Msg("Retry attempt")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			delay *= 2
		}
	}

	return fmt.Errorf("max retry attempts reached: %w", err)
}

// isRetryable reports whether err is transient: network errors and 5xx.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}
	if errors.Is(err, ErrMalformedDocument) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return !se.IsClientError()
	}
	return true
}

// RetryingFetcher retries transient failures of the wrapped Fetcher.
type RetryingFetcher struct {
	next     Fetcher
	attempts int
	delay    time.Duration
}

// NewRetryingFetcher wraps next. attempts counts the first try.
func NewRetryingFetcher(next Fetcher, attempts int, delay time.Duration) *RetryingFetcher {
	return &RetryingFetcher{next: next, attempts: attempts, delay: delay}
}

// Fetch implements Fetcher.
func (f *RetryingFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	var body []byte
	err := retryWithBackoff(ctx, f.attempts, f.delay, func() error {
		var err error
		body, err = f.next.Fetch(ctx, url)
		return err
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

// NewSourceFetcher builds the standard chain for one source:
// retry -> circuit breaker -> rate-limited HTTP client.
func NewSourceFetcher(httpCfg HTTPClientConfig, attempts int, delay time.Duration) (Fetcher, *CircuitBreakerFetcher) {
	breaker := NewCircuitBreakerFetcher(httpCfg.Name, NewHTTPClient(httpCfg))
	return NewRetryingFetcher(breaker, attempts, delay), breaker
}
