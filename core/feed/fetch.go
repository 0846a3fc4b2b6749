package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cabin-manager/core/metrics"
	"cabin-manager/core/reconcile"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// maxBodyBytes caps a feed download. A larger body is a failure, never a
// truncated feed.
var maxBodyBytes int64 = 10 << 20

// Fetcher downloads cabin feeds with conditional GETs and parses them.
// It implements reconcile.FeedSource.
//
// A network error or non-2xx status is always a failure, even when a cached
// body exists: a stale body would make the engine drop bookings it has not
// seen yet. The cache only serves 304 Not Modified responses.
type Fetcher struct {
	client    *http.Client
	cache     Cache
	limiter   *rate.Limiter
	userAgent string
	logger    *zap.Logger
}

// NewFetcher creates a fetcher. A nil cache disables conditional requests.
func NewFetcher(cfg Config, cache Cache, logger *zap.Logger) *Fetcher {
	if cache == nil {
		cache = NopCache{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return &Fetcher{
		client:    &http.Client{Timeout: cfg.Timeout()},
		cache:     cache,
		limiter:   rate.NewLimiter(rate.Limit(rps), burst),
		userAgent: cfg.UserAgent,
		logger:    logger,
	}
}

// Fetch downloads and parses the feed of cabin.
func (f *Fetcher) Fetch(ctx context.Context, cabin reconcile.Cabin) ([]reconcile.ExternalBooking, error) {
	start := time.Now()
	body, status, err := f.FetchBody(ctx, cabin.FeedURL)
	metrics.ObserveFetch(cabin.Name, status, time.Since(start))
	if err != nil {
		f.logger.Warn("Feed fetch failed",
			zap.String("cabin", cabin.Name),
			zap.String("url", redactURL(cabin.FeedURL)),
			zap.Error(err),
		)
		return nil, err
	}

	bookings, err := Parse(cabin.Name, body, f.logger)
	if err != nil {
		return nil, err
	}

	f.logger.Debug("Feed fetched",
		zap.String("cabin", cabin.Name),
		zap.String("status", status),
		zap.Int("events", len(bookings)),
	)
	return bookings, nil
}

// FetchBody returns the feed payload at url and a status label
// (ok, not_modified or error).
func (f *Fetcher) FetchBody(ctx context.Context, url string) ([]byte, string, error) {
	if url == "" {
		return nil, "error", errors.New("feed URL is empty")
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, "error", err
	}

	cached, err := f.cache.Get(ctx, url)
	if err != nil && !errors.Is(err, ErrCacheMiss) {
		f.logger.Warn("Feed cache read failed", zap.String("url", redactURL(url)), zap.Error(err))
	}
	if err != nil {
		cached = nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "error", err
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	if cached != nil {
		if cached.ETag != "" {
			req.Header.Set("If-None-Match", cached.ETag)
		}
		if cached.LastModified != "" {
			req.Header.Set("If-Modified-Since", cached.LastModified)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "error", err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		if cached == nil || len(cached.Body) == 0 {
			return nil, "error", errors.New("received 304 Not Modified without a cached body")
		}
		return cached.Body, "not_modified", nil

	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
		if err != nil {
			return nil, "error", fmt.Errorf("failed to read feed body: %w", err)
		}
		if int64(len(body)) > maxBodyBytes {
			return nil, "error", fmt.Errorf("feed body exceeds %d bytes", maxBodyBytes)
		}
		entry := &CacheEntry{
			URL:          url,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
			Body:         body,
			UpdatedAt:    time.Now().UTC(),
		}
		if entry.ETag != "" || entry.LastModified != "" {
			if err := f.cache.Set(ctx, entry); err != nil {
				f.logger.Warn("Feed cache write failed", zap.String("url", redactURL(url)), zap.Error(err))
			}
		}
		return body, "ok", nil

	default:
		return nil, "error", fmt.Errorf("unexpected status %s", resp.Status)
	}
}

// redactURL keeps only scheme and host; feed paths embed private tokens.
func redactURL(u string) string {
	const redacted = "/...(redacted)"
	scheme := strings.Index(u, "://")
	if scheme == -1 {
		return "ics://...(redacted)"
	}
	rest := u[scheme+3:]
	if slash := strings.IndexByte(rest, '/'); slash != -1 {
		rest = rest[:slash]
	}
	if q := strings.IndexByte(rest, '?'); q != -1 {
		rest = rest[:q]
	}
	return u[:scheme+3] + rest + redacted
}
