package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/codyseavey/pokeprice/internal/metrics"
)

const (
	providerTimeout     = 30 * time.Second
	providerMaxAttempts = 3
)

// errRetryable marks a failed attempt worth repeating
var (
	errRetryable   = errors.New("retryable")
	errRateLimited = fmt.Errorf("rate limited: %w", errRetryable)
)

// providerClient is the HTTP plumbing every upstream API shares: a rate
// limiter in place of fixed sleeps and a small retry policy.
//   - 429: wait rateLimitWait and try again
//   - 404: not found, returned as (false, nil)
//   - other failures: back off attempt x backoff, up to maxAttempts
type providerClient struct {
	name          string
	client        *http.Client
	limiter       *rate.Limiter
	authorize     func(*http.Request)
	maxAttempts   int
	backoff       time.Duration
	rateLimitWait time.Duration
}

func newProviderClient(name string, rps float64) *providerClient {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &providerClient{
		name: name,
		client: &http.Client{
			Timeout: providerTimeout,
		},
		limiter:       rate.NewLimiter(limit, 1),
		maxAttempts:   providerMaxAttempts,
		backoff:       time.Second,
		rateLimitWait: 5 * time.Second,
	}
}

// getJSON fetches reqURL and decodes the body into out. It reports false
// when the provider answered 404.
func (c *providerClient) getJSON(ctx context.Context, reqURL string, out any) (bool, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		found, err := c.doJSON(ctx, reqURL, out)
		if err == nil {
			return found, nil
		}
		if !errors.Is(err, errRetryable) {
			return false, err
		}
		lastErr = err

		if attempt == c.maxAttempts {
			break
		}
		wait := c.backoff * time.Duration(attempt)
		if errors.Is(err, errRateLimited) {
			wait = c.rateLimitWait
		}
		if err := sleepCtx(ctx, wait); err != nil {
			return false, err
		}
	}
	return false, fmt.Errorf("%s request failed after %d attempts: %w", c.name, c.maxAttempts, lastErr)
}

func (c *providerClient) doJSON(ctx context.Context, reqURL string, out any) (bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.authorize != nil {
		c.authorize(req)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	metrics.ProviderRequestDuration.WithLabelValues(c.name).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ProviderRequestsTotal.WithLabelValues(c.name, "error").Inc()
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return false, fmt.Errorf("failed to reach %s: %v: %w", c.name, err, errRetryable)
	}
	defer resp.Body.Close()

	metrics.ProviderRequestsTotal.WithLabelValues(c.name, strconv.Itoa(resp.StatusCode)).Inc()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return false, errRateLimited
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return false, fmt.Errorf("%s API returned status %d: %w", c.name, resp.StatusCode, errRetryable)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("failed to decode %s response: %w", c.name, err)
	}
	return true, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
