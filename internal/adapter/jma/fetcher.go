package jma

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/couchcryptid/jma-weather-etl/internal/observability"
)

// Fetcher returns the raw bytes of a feed document by its path below the base URL.
type Fetcher interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}

// Mirror receives a copy of every document fetched from the network.
type Mirror interface {
	Put(ctx context.Context, path string, data []byte) error
}

// StatusError is a non-200 answer from the feed.
type StatusError struct {
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("jma API error: %s: status %d: %s", e.Path, e.StatusCode, e.Body)
}

func (e *StatusError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

type cachedDoc struct {
	etag         string
	lastModified string
	body         []byte
}

// HTTPFetcher reads documents from the live feed. Each attempt is bounded by
// the client timeout; network errors, 429 and 5xx answers are retried with
// exponential backoff up to maxRetries times. Responses carrying an ETag or
// Last-Modified header are kept in an LRU and revalidated with conditional
// requests.
type HTTPFetcher struct {
	baseURL      string
	httpClient   *http.Client
	maxRetries   int
	retryInitial time.Duration
	cache        *lru.Cache[string, cachedDoc]
	mirror       Mirror
	metrics      *observability.Metrics
	logger       *slog.Logger
}

// HTTPOption customizes an HTTPFetcher.
type HTTPOption func(*HTTPFetcher)

// WithMirror copies every successfully fetched document to m.
func WithMirror(m Mirror) HTTPOption {
	return func(f *HTTPFetcher) { f.mirror = m }
}

// WithCacheSize enables the conditional request cache with room for n documents.
func WithCacheSize(n int) HTTPOption {
	return func(f *HTTPFetcher) {
		if n <= 0 {
			f.cache = nil
			return
		}
		c, err := lru.New[string, cachedDoc](n)
		if err == nil {
			f.cache = c
		}
	}
}

// NewHTTPFetcher creates a fetcher for baseURL, e.g. https://www.jma.go.jp/bosai.
func NewHTTPFetcher(baseURL string, timeout time.Duration, maxRetries int, metrics *observability.Metrics, logger *slog.Logger, opts ...HTTPOption) *HTTPFetcher {
	f := &HTTPFetcher{
		baseURL:      baseURL,
		httpClient:   &http.Client{Timeout: timeout},
		maxRetries:   maxRetries,
		retryInitial: 500 * time.Millisecond,
		metrics:      metrics,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, path string) ([]byte, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = f.retryInitial
	b.MaxInterval = 10 * f.retryInitial
	b.MaxElapsedTime = 0

	attempt := 0
	var body []byte
	op := func() error {
		attempt++
		var err error
		body, err = f.fetchOnce(ctx, path)
		if err == nil {
			return nil
		}
		var se *StatusError
		if errors.As(err, &se) && !se.retryable() {
			return backoff.Permanent(err)
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		f.logger.Warn("jma fetch failed, retrying", "path", path, "attempt", attempt, "backoff", wait, "error", err)
	}

	if err := backoff.RetryNotify(op, backoff.WithContext(backoff.WithMaxRetries(b, uint64(f.maxRetries)), ctx), notify); err != nil {
		return nil, err
	}

	if f.mirror != nil {
		if err := f.mirror.Put(ctx, path, body); err != nil {
			f.logger.Warn("mirror document failed", "path", path, "error", err)
		}
	}
	return body, nil
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/"+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	var cached cachedDoc
	var haveCached bool
	if f.cache != nil {
		cached, haveCached = f.cache.Get(path)
		if haveCached {
			if cached.etag != "" {
				req.Header.Set("If-None-Match", cached.etag)
			}
			if cached.lastModified != "" {
				req.Header.Set("If-Modified-Since", cached.lastModified)
			}
		}
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified && haveCached:
		f.metrics.FetchCache.WithLabelValues("hit").Inc()
		return cached.body, nil
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{Path: path, StatusCode: resp.StatusCode, Body: string(body)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if f.cache != nil {
		f.metrics.FetchCache.WithLabelValues("miss").Inc()
		etag, lastModified := resp.Header.Get("ETag"), resp.Header.Get("Last-Modified")
		if etag != "" || lastModified != "" {
			f.cache.Add(path, cachedDoc{etag: etag, lastModified: lastModified, body: body})
		}
	}
	return body, nil
}

// ArchiveReader is the read side of the document archive.
type ArchiveReader interface {
	Get(ctx context.Context, path string) ([]byte, error)
}

// ReplayFetcher serves documents from the archive instead of the network.
type ReplayFetcher struct {
	archive ArchiveReader
}

// NewReplayFetcher creates a fetcher backed by archived copies.
func NewReplayFetcher(archive ArchiveReader) *ReplayFetcher {
	return &ReplayFetcher{archive: archive}
}

// Fetch implements Fetcher.
func (f *ReplayFetcher) Fetch(ctx context.Context, path string) ([]byte, error) {
	return f.archive.Get(ctx, path)
}
