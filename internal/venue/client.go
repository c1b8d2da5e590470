// Package venue implements the rate-limited HTTP fetch client that every
// ingestion path goes through. One Client per venue enforces that venue's
// token-bucket budget, retries transient failures with backoff and jitter,
// and adapts its sustained rate when the venue pushes back with 429s.
package venue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/coingraphai/eventgraph-ethdenver-2026-sub001/internal/config"
	"github.com/coingraphai/eventgraph-ethdenver-2026-sub001/internal/domain"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 3
	// backoffCeiling caps the cool-down applied after a 429 with no
	// Retry-After header.
	backoffCeiling = 60 * time.Second
)

// Page is one fetched page of a paginated listing: the raw body exactly as
// the venue returned it, plus the parsed item count used for continuation.
type Page struct {
	Body      []byte
	Items     int
	FetchedAt time.Time
}

// Client is the per-venue rate-limited HTTP client.
type Client struct {
	venue      string
	cfg        config.VenueConfig
	httpClient *http.Client
	limiter    *adaptiveLimiter
	logger     *slog.Logger

	maxRetries   int
	retryBackoff time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithRetries sets the retry configuration for transient failures.
func WithRetries(max int, backoff time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = max
		c.retryBackoff = backoff
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a fetch client for the named venue.
func NewClient(name string, cfg config.VenueConfig, opts ...Option) *Client {
	c := &Client{
		venue:        name,
		cfg:          cfg,
		httpClient:   &http.Client{Timeout: defaultTimeout},
		limiter:      newAdaptiveLimiter(cfg.RatePerSec, cfg.Burst),
		logger:       slog.Default().With(slog.String("venue", name)),
		maxRetries:   defaultMaxRetries,
		retryBackoff: time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Venue returns the venue name this client fetches for.
func (c *Client) Venue() string { return c.venue }

// Get fetches a single path with the given query params, blocking on the
// token bucket first. Transient failures (429, 5xx, transport) are retried
// with backoff; other 4xx fail fast because they indicate a malformed
// request, not a transient condition.
func (c *Client) Get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	fullURL := c.cfg.BaseURL + path
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.wait(ctx); err != nil {
			return nil, fmt.Errorf("venue %s: limiter wait: %w", c.venue, err)
		}

		body, retryAfter, err := c.doOnce(ctx, fullURL)
		if err == nil {
			c.limiter.onSuccess()
			return body, nil
		}
		lastErr = err

		switch {
		case errors.Is(err, domain.ErrRateLimited):
			c.limiter.onThrottled()
			cool := retryAfter
			if cool <= 0 {
				cool = capBackoff(c.retryBackoff<<uint(attempt), backoffCeiling)
			}
			c.logger.Warn("throttled by venue, cooling down",
				slog.Duration("cooldown", cool),
				slog.Float64("rate_per_sec", c.limiter.rateNow()),
			)
			if err := sleepCtx(ctx, cool); err != nil {
				return nil, err
			}
		case errors.Is(err, domain.ErrBadRequest):
			// Permanent client error; never retried.
			c.logger.Error("request rejected",
				slog.String("path", path),
				slog.String("params", params.Encode()),
				slog.String("error", err.Error()),
			)
			return nil, err
		default:
			// 5xx or transport failure.
			backoff := capBackoff(c.retryBackoff<<uint(attempt), backoffCeiling)
			backoff += time.Duration(rand.Int63n(int64(backoff)/2 + 1)) // jitter
			c.logger.Warn("transient fetch failure, retrying",
				slog.Int("attempt", attempt+1),
				slog.Duration("backoff", backoff),
				slog.String("error", err.Error()),
			)
			if err := sleepCtx(ctx, backoff); err != nil {
				return nil, err
			}
		}
	}
	return nil, fmt.Errorf("venue %s: get %s: retries exhausted: %w", c.venue, path, lastErr)
}

// doOnce performs one HTTP round trip. On 429 it returns ErrRateLimited and
// any Retry-After duration the venue supplied.
func (c *Client) doOnce(ctx context.Context, fullURL string) ([]byte, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("venue %s: build request: %w", c.venue, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("venue %s: do request: %w", c.venue, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, 0, fmt.Errorf("venue %s: read body: %w", c.venue, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, 0, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, parseRetryAfter(resp.Header.Get("Retry-After")), fmt.Errorf("venue %s: status 429: %w", c.venue, domain.ErrRateLimited)
	case resp.StatusCode >= 500:
		return nil, 0, fmt.Errorf("venue %s: status %d", c.venue, resp.StatusCode)
	default:
		return nil, 0, fmt.Errorf("venue %s: status %d: %w", c.venue, resp.StatusCode, domain.ErrBadRequest)
	}
}

// Paginate drains a listing endpoint page by page until the venue signals no
// more data or a page comes back shorter than requested. The hard page cap
// from venue config is a cost circuit breaker, not a correctness feature.
func (c *Client) Paginate(ctx context.Context, path string, params url.Values) ([]Page, error) {
	return c.PaginateMax(ctx, path, params, 0)
}

// PaginateMax is Paginate with a per-call page cap; maxPages <= 0 falls back
// to the configured cap. Delta runs use it to bound incremental listings
// below the full-backfill ceiling.
func (c *Client) PaginateMax(ctx context.Context, path string, params url.Values, maxPages int) ([]Page, error) {
	if maxPages <= 0 || maxPages > c.cfg.MaxPages {
		maxPages = c.cfg.MaxPages
	}

	var pages []Page
	offset := 0
	cursor := ""

	for pageNum := 0; pageNum < maxPages; pageNum++ {
		pageParams := url.Values{}
		for k, vs := range params {
			pageParams[k] = vs
		}
		pageParams.Set("limit", strconv.Itoa(c.cfg.PageSize))

		switch c.cfg.PaginationMode {
		case "cursor":
			if cursor != "" {
				pageParams.Set(c.cursorParam(), cursor)
			}
		default: // offset
			pageParams.Set("offset", strconv.Itoa(offset))
		}

		body, err := c.Get(ctx, path, pageParams)
		if err != nil {
			return pages, err
		}

		items, nextCursor, err := c.parsePage(body)
		if err != nil {
			return pages, fmt.Errorf("venue %s: parse page %d: %w", c.venue, pageNum, err)
		}
		if items == 0 {
			break
		}

		pages = append(pages, Page{Body: body, Items: items, FetchedAt: time.Now().UTC()})

		if items < c.cfg.PageSize {
			break
		}
		if c.cfg.PaginationMode == "cursor" {
			if nextCursor == "" {
				break
			}
			cursor = nextCursor
		} else {
			offset += c.cfg.PageSize
		}
	}

	return pages, nil
}

// parsePage extracts the item count and continuation cursor from a page
// body, honoring the venue's configured envelope shape.
func (c *Client) parsePage(body []byte) (items int, nextCursor string, err error) {
	if c.cfg.ItemsField == "" {
		var arr []json.RawMessage
		if err := json.Unmarshal(body, &arr); err != nil {
			return 0, "", err
		}
		return len(arr), "", nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return 0, "", err
	}

	var arr []json.RawMessage
	if raw, ok := envelope[c.cfg.ItemsField]; ok {
		if err := json.Unmarshal(raw, &arr); err != nil {
			return 0, "", err
		}
	}

	if c.cfg.CursorField != "" {
		if raw, ok := envelope[c.cfg.CursorField]; ok {
			_ = json.Unmarshal(raw, &nextCursor)
		}
	}
	return len(arr), nextCursor, nil
}

func (c *Client) cursorParam() string {
	if c.cfg.CursorParam != "" {
		return c.cfg.CursorParam
	}
	return c.cfg.CursorField
}

// parseRetryAfter handles both delta-seconds and HTTP-date forms.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

func capBackoff(d, ceiling time.Duration) time.Duration {
	if d > ceiling {
		return ceiling
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
