package http

import (
	"context"
	"net/http"
	"testing"
	"time"
)

type countingTransport struct {
	calls int
}

func (c *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	c.calls++
	return &http.Response{StatusCode: 200, Body: http.NoBody, Request: req}, nil
}

func TestPacedTransport(t *testing.T) {
	next := &countingTransport{}
	transport := NewPacedTransport(next, 20)

	start := time.Now()
	for range 3 {
		req, _ := http.NewRequest(http.MethodGet, "http://example.org", nil)
		if _, err := transport.RoundTrip(req); err != nil {
			t.Fatalf("RoundTrip() unexpected error: %v", err)
		}
	}
	elapsed := time.Since(start)

	if next.calls != 3 {
		t.Errorf("calls = %d, want 3", next.calls)
	}
	// first request is immediate, the other two wait 50ms each
	if elapsed < 90*time.Millisecond {
		t.Errorf("elapsed = %v, want at least 90ms", elapsed)
	}
}

func TestPacedTransport_Cancelled(t *testing.T) {
	transport := NewPacedTransport(&countingTransport{}, 0.001)

	ctx, cancel := context.WithCancel(context.Background())
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, "http://example.org", nil)
	if _, err := transport.RoundTrip(req); err != nil {
		t.Fatalf("first RoundTrip() unexpected error: %v", err)
	}

	cancel()
	if _, err := transport.RoundTrip(req); err == nil {
		t.Error("RoundTrip() expected error after cancellation, got nil")
	}
}

func TestPacedTransport_Unlimited(t *testing.T) {
	next := &countingTransport{}
	transport := NewPacedTransport(next, 0)

	start := time.Now()
	for range 50 {
		req, _ := http.NewRequest(http.MethodGet, "http://example.org", nil)
		transport.RoundTrip(req)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("elapsed = %v, unpaced requests should not wait", elapsed)
	}
}
