package http

import (
	"fmt"
	"net/http"

	"golang.org/x/time/rate"
)

// PacedTransport limits how often requests reach the wrapped transport.
// Place it beneath the caching transport so cache hits aren't delayed.
type PacedTransport struct {
	limiter   *rate.Limiter
	transport http.RoundTripper
}

// NewPacedTransport allows requestsPerSecond requests through to transport.
// A rate of zero or less disables pacing.
func NewPacedTransport(transport http.RoundTripper, requestsPerSecond float64) *PacedTransport {
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	return &PacedTransport{
		limiter:   rate.NewLimiter(limit, 1),
		transport: transport,
	}
}

// RoundTrip waits for its turn then passes the request on
func (t *PacedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("failed waiting to send request: %w", err)
	}
	return t.transport.RoundTrip(req)
}
