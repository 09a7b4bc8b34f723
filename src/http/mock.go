package http

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
)

// ErrNoMockResponse is returned by MockHTTPClient for URLs it wasn't given a response for.
var ErrNoMockResponse = errors.New("no mock response configured")

type mockRoute struct {
	response *Response
	err      error
}

// MockHTTPClient implements HTTPClient for testing. It is safe for concurrent use.
type MockHTTPClient struct {
	mu     sync.Mutex
	routes map[string]mockRoute
	calls  []string
}

func NewMockHTTPClient() *MockHTTPClient {
	return &MockHTTPClient{routes: make(map[string]mockRoute)}
}

// SetResponse makes requests for `url` return `response`, replacing anything set before.
func (m *MockHTTPClient) SetResponse(url string, response *Response) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes[url] = mockRoute{response: response}
}

// SetError makes requests for `url` fail with `err`, replacing anything set before.
func (m *MockHTTPClient) SetError(url string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes[url] = mockRoute{err: err}
}

// GetCalls returns the requested URLs in the order they were requested
func (m *MockHTTPClient) GetCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.calls)
}

// Get returns a copy of the response set for `url`.
// A response without a URL is given the requested URL, as if there were no redirect.
func (m *MockHTTPClient) Get(ctx context.Context, url string) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, url)

	route, exists := m.routes[url]
	switch {
	case !exists:
		return nil, fmt.Errorf("%w: %s", ErrNoMockResponse, url)
	case route.err != nil:
		return nil, route.err
	}

	copied := *route.response
	if copied.URL == "" {
		copied.URL = url
	}
	return &copied, nil
}
