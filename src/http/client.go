package http

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptrace"
	"time"
)

const (
	// DefaultTimeout bounds a whole request, redirects and body included.
	DefaultTimeout = 30 * time.Second

	// MaxBodySize is the largest response body that will be read.
	MaxBodySize = 16 << 20

	accept = "text/html,application/xhtml+xml,image/png;q=0.9,*/*;q=0.8"
)

// HTTPClient interface for mockable HTTP operations
type HTTPClient interface {
	Get(ctx context.Context, url string) (*Response, error)
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Body       []byte
	// Headers holds the first value of each header, keyed by canonical name.
	Headers map[string]string
	// URL is the final URL after redirects were followed.
	URL string
}

// Header returns the first value of the named header, "" when absent.
func (r *Response) Header(name string) string {
	return r.Headers[http.CanonicalHeaderKey(name)]
}

// RealHTTPClient implements HTTPClient using net/http
type RealHTTPClient struct {
	client    *http.Client
	userAgent string
}

// NewRealHTTPClient creates a client sending requests through `transport`, identifying itself as `userAgent`.
func NewRealHTTPClient(transport http.RoundTripper, userAgent string) *RealHTTPClient {
	return &RealHTTPClient{
		client: &http.Client{
			Transport: transport,
			Timeout:   DefaultTimeout,
		},
		userAgent: userAgent,
	}
}

// Get performs an HTTP GET request, following redirects
func (c *RealHTTPClient) Get(ctx context.Context, url string) (*Response, error) {
	req, err := http.NewRequestWithContext(traced(ctx), http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for '%s': %w", url, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", accept)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch '%s': %w", url, err)
	}
	defer resp.Body.Close()

	return readResponse(resp, url)
}

func readResponse(resp *http.Response, requested string) (*Response, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if len(body) > MaxBodySize {
		return nil, fmt.Errorf("response from '%s' is larger than %d bytes", requested, MaxBodySize)
	}

	out := &Response{
		StatusCode: resp.StatusCode,
		Body:       body,
		Headers:    make(map[string]string, len(resp.Header)),
		URL:        requested,
	}
	for name := range resp.Header {
		out.Headers[name] = resp.Header.Get(name)
	}
	if resp.Request != nil && resp.Request.URL != nil {
		out.URL = resp.Request.URL.String()
	}
	return out, nil
}

// traced logs whether each request reused a connection
func traced(ctx context.Context) context.Context {
	return httptrace.WithClientTrace(ctx, &httptrace.ClientTrace{
		GotConn: func(info httptrace.GotConnInfo) {
			slog.Debug("connection", "reused", info.Reused, "idle-time", info.IdleTime)
		},
	})
}
