// Package cache keeps copies of database pages and icons on disk between runs.
package cache

import (
	"bufio"
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Kind is the type of resource a cached response holds. Each kind has its own TTL.
type Kind string

const (
	ItemKind   Kind = "item"
	SearchKind Kind = "search"
	IconKind   Kind = "icon"
	OtherKind  Kind = "other"
)

// CacheConfig holds cache configuration.
// A TTL of zero or less means entries of that kind never expire.
type CacheConfig struct {
	Directory string
	ItemTTL   time.Duration
	SearchTTL time.Duration
	IconTTL   time.Duration
}

// FileCachingTransport implements http.RoundTripper with file-based caching
type FileCachingTransport struct {
	config    CacheConfig
	transport http.RoundTripper
	runStart  time.Time
}

// NewFileCachingTransport creates a new caching transport
func NewFileCachingTransport(config CacheConfig, transport http.RoundTripper) *FileCachingTransport {
	return &FileCachingTransport{
		config:    config,
		transport: transport,
		runStart:  time.Now(),
	}
}

// KindOf classifies a request URL: "?search=" pages, "?item=" pages and .png icons.
func KindOf(req *http.Request) Kind {
	query := req.URL.Query()
	switch {
	case query.Has("search"):
		return SearchKind
	case query.Has("item"):
		return ItemKind
	case strings.EqualFold(filepath.Ext(req.URL.Path), ".png"):
		return IconKind
	}
	return OtherKind
}

// RoundTrip implements http.RoundTripper with caching.
// Only successful GET responses are cached.
func (t *FileCachingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet {
		return t.transport.RoundTrip(req)
	}

	kind := KindOf(req)
	path := t.cachePath(t.makeCacheKey(req, kind))

	if !t.cacheExpired(path, kind) {
		if cachedResp, err := readCacheEntry(path, req); err == nil {
			slog.Debug("cache hit", "url", req.URL.String(), "kind", kind)
			return cachedResp, nil
		}
	}

	slog.Info("fetching", "url", req.URL.String())
	resp, err := t.transport.RoundTrip(req)
	if err != nil {
		return resp, err
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if err := writeCacheEntry(path, resp); err != nil {
			slog.Warn("failed to cache response", "url", req.URL.String(), "error", err)
		}
	}

	return resp, nil
}

// makeCacheKey is the md5 of the URL with the kind as a suffix, e.g. "0cc1...-search"
func (t *FileCachingTransport) makeCacheKey(req *http.Request, kind Kind) string {
	md5sum := md5.Sum([]byte(req.URL.String()))
	return hex.EncodeToString(md5sum[:]) + "-" + string(kind)
}

func (t *FileCachingTransport) cachePath(cacheKey string) string {
	return filepath.Join(t.config.Directory, cacheKey)
}

func (t *FileCachingTransport) ttl(kind Kind) time.Duration {
	switch kind {
	case SearchKind:
		return t.config.SearchTTL
	case IconKind:
		return t.config.IconTTL
	}
	return t.config.ItemTTL
}

// cacheExpired is true when the file is missing or older than its kind's TTL at the start of the run
func (t *FileCachingTransport) cacheExpired(path string, kind Kind) bool {
	stat, err := os.Stat(path)
	if err != nil {
		return true
	}

	ttl := t.ttl(kind)
	if ttl <= 0 {
		return false
	}
	return t.runStart.Sub(stat.ModTime()) >= ttl
}

func readCacheEntry(path string, req *http.Request) (*http.Response, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return http.ReadResponse(bufio.NewReader(bytes.NewReader(data)), req)
}

// writeCacheEntry dumps resp to path. The body of resp remains readable afterwards.
func writeCacheEntry(path string, resp *http.Response) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	dumpedBytes, err := httputil.DumpResponse(resp, true)
	if err != nil {
		return fmt.Errorf("failed to dump response: %w", err)
	}

	if err := os.WriteFile(path, dumpedBytes, 0644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	return nil
}
