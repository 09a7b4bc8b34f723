// Package retry re-attempts failed requests to the database site with exponential backoff.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/ogri-la/twowdb-fetch-go/src/http"
)

// Config holds retry configuration
type Config struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// DefaultConfig returns the defaults used when nothing is configured
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     8 * time.Second,
	}
}

// reason is why a request is being retried, "" if it shouldn't be.
func reason(resp *http.Response, err error) string {
	switch {
	case err != nil:
		return "network-error"
	case resp.StatusCode == 429:
		return "rate-limited"
	case resp.StatusCode >= 500:
		return "server-error"
	}
	return ""
}

func shouldRetry(resp *http.Response, err error) bool {
	return reason(resp, err) != ""
}

// getRetryDelay is the wait before the next attempt.
// A rate limited response's Retry-After (in seconds) is honoured, otherwise the delay doubles each attempt.
// Delays never exceed config.MaxDelay.
func getRetryDelay(resp *http.Response, attempt int, config Config) time.Duration {
	if resp != nil && resp.StatusCode == 429 {
		if seconds, err := strconv.Atoi(resp.Header("Retry-After")); err == nil && seconds > 0 {
			return min(time.Duration(seconds)*time.Second, config.MaxDelay)
		}
	}

	delay := config.InitialDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= config.MaxDelay {
			return config.MaxDelay
		}
	}
	return delay
}

// WithRetry GETs url, retrying network errors, 429s and 5xxs up to config.MaxAttempts times.
// Other non-200 responses are returned as-is for the caller to interpret.
// If every attempt fails the last response is returned, or the last error if there was no response.
func WithRetry(ctx context.Context, client http.HTTPClient, url string, config Config) (*http.Response, error) {
	var lastErr error
	var lastResp *http.Response

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		if attempt > 1 {
			slog.Warn("retrying request", "url", url, "attempt", attempt, "max-attempts", config.MaxAttempts)
		}

		resp, err := client.Get(ctx, url)
		if err == nil && resp.StatusCode == 200 {
			return resp, nil
		}
		lastResp, lastErr = resp, err

		why := reason(resp, err)
		if why == "" {
			return resp, nil
		}
		if attempt == config.MaxAttempts {
			break
		}

		delay := getRetryDelay(resp, attempt, config)
		slog.Info("backing off before retry", "url", url, "delay", delay, "reason", why)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("request failed after %d attempts: %w", config.MaxAttempts, lastErr)
	}
	return lastResp, nil
}

// Client is an HTTPClient that retries the requests of another HTTPClient.
type Client struct {
	next   http.HTTPClient
	config Config
}

// NewClient wraps next so every Get is retried according to config.
func NewClient(next http.HTTPClient, config Config) *Client {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	return &Client{next: next, config: config}
}

// Get fetches url, see WithRetry.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	return WithRetry(ctx, c.next, url, c.config)
}
