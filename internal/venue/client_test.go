package venue

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coingraphai/eventgraph-ethdenver-2026-sub001/internal/config"
	"github.com/coingraphai/eventgraph-ethdenver-2026-sub001/internal/domain"
)

func testVenueConfig(baseURL string) config.VenueConfig {
	return config.VenueConfig{
		BaseURL:         baseURL,
		MarketsEndpoint: "/markets",
		RatePerSec:      1000, // effectively unlimited in tests
		Burst:           1000,
		PageSize:        25,
		PaginationMode:  "offset",
		MaxPages:        10,
	}
}

func itemsJSON(n int) []byte {
	items := make([]map[string]any, n)
	for i := range items {
		items[i] = map[string]any{"id": fmt.Sprintf("m-%d", i)}
	}
	b, _ := json.Marshal(items)
	return b
}

func TestClient_PaginateOffset(t *testing.T) {
	// Three pages: 25, 25, then a short page of 10 that ends pagination.
	var offsets []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		offsets = append(offsets, r.URL.Query().Get("offset"))
		switch offset {
		case 0, 25:
			w.Write(itemsJSON(25))
		case 50:
			w.Write(itemsJSON(10))
		default:
			t.Errorf("unexpected offset %d", offset)
			w.Write([]byte("[]"))
		}
	}))
	defer server.Close()

	c := NewClient("polymarket", testVenueConfig(server.URL))
	pages, err := c.Paginate(t.Context(), "/markets", nil)
	if err != nil {
		t.Fatalf("Paginate: %v", err)
	}

	if len(pages) != 3 {
		t.Fatalf("len(pages) = %d, want 3", len(pages))
	}
	if pages[0].Items != 25 || pages[1].Items != 25 || pages[2].Items != 10 {
		t.Errorf("page items = %d/%d/%d, want 25/25/10", pages[0].Items, pages[1].Items, pages[2].Items)
	}
	want := []string{"0", "25", "50"}
	for i, o := range offsets {
		if o != want[i] {
			t.Errorf("request %d offset = %s, want %s", i, o, want[i])
		}
	}
}

func TestClient_PaginateCursor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cursor := r.URL.Query().Get("cursor")
		var resp map[string]any
		switch cursor {
		case "":
			resp = map[string]any{"markets": json.RawMessage(itemsJSON(25)), "cursor": "page2"}
		case "page2":
			// Full page with an empty cursor: venue signals end of data.
			resp = map[string]any{"markets": json.RawMessage(itemsJSON(25)), "cursor": ""}
		default:
			t.Errorf("unexpected cursor %q", cursor)
			resp = map[string]any{"markets": []any{}}
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	cfg := testVenueConfig(server.URL)
	cfg.PaginationMode = "cursor"
	cfg.ItemsField = "markets"
	cfg.CursorField = "cursor"
	cfg.CursorParam = "cursor"

	c := NewClient("kalshi", cfg)

	pages, err := c.Paginate(t.Context(), "/markets", nil)
	if err != nil {
		t.Fatalf("Paginate: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("len(pages) = %d, want 2", len(pages))
	}
}

func TestClient_PaginateHonorsMaxPages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(itemsJSON(25)) // always a full page
	}))
	defer server.Close()

	cfg := testVenueConfig(server.URL)
	cfg.MaxPages = 3
	c := NewClient("polymarket", cfg)

	pages, err := c.Paginate(t.Context(), "/markets", nil)
	if err != nil {
		t.Fatalf("Paginate: %v", err)
	}
	if len(pages) != 3 {
		t.Errorf("len(pages) = %d, want 3 (capped)", len(pages))
	}
}

func TestClient_PaginateMaxTightensCap(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(itemsJSON(25)) // always a full page
	}))
	defer server.Close()

	cfg := testVenueConfig(server.URL)
	cfg.MaxPages = 10
	c := NewClient("polymarket", cfg)

	pages, err := c.PaginateMax(t.Context(), "/markets", nil, 2)
	if err != nil {
		t.Fatalf("PaginateMax: %v", err)
	}
	if len(pages) != 2 {
		t.Errorf("len(pages) = %d, want 2", len(pages))
	}

	// A per-call cap never loosens the configured one.
	pages, err = c.PaginateMax(t.Context(), "/markets", nil, 500)
	if err != nil {
		t.Fatalf("PaginateMax: %v", err)
	}
	if len(pages) != 10 {
		t.Errorf("len(pages) = %d, want 10 (config cap)", len(pages))
	}
}

func TestClient_GetRetriesOn429(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	c := NewClient("polymarket", testVenueConfig(server.URL),
		WithRetries(2, time.Millisecond))

	rateBefore := c.limiter.rateNow()
	if _, err := c.Get(t.Context(), "/markets", nil); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("calls = %d, want 2", got)
	}
	if rateAfter := c.limiter.rateNow(); rateAfter >= rateBefore {
		t.Errorf("rate after throttle = %g, want below %g", rateAfter, rateBefore)
	}
}

func TestClient_GetFailsFastOn4xx(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	c := NewClient("polymarket", testVenueConfig(server.URL),
		WithRetries(3, time.Millisecond))

	_, err := c.Get(t.Context(), "/markets", nil)
	if !errors.Is(err, domain.ErrBadRequest) {
		t.Fatalf("err = %v, want ErrBadRequest", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1 (no retries on permanent errors)", got)
	}
}

func TestClient_GetRetriesOn5xx(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	c := NewClient("polymarket", testVenueConfig(server.URL),
		WithRetries(3, time.Millisecond))

	if _, err := c.Get(t.Context(), "/markets", nil); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestParseRetryAfter(t *testing.T) {
	t.Run("seconds", func(t *testing.T) {
		if got := parseRetryAfter("7"); got != 7*time.Second {
			t.Errorf("parseRetryAfter(7) = %v, want 7s", got)
		}
	})
	t.Run("http date", func(t *testing.T) {
		future := time.Now().Add(30 * time.Second).UTC().Format(http.TimeFormat)
		got := parseRetryAfter(future)
		if got <= 0 || got > 31*time.Second {
			t.Errorf("parseRetryAfter(date) = %v, want ~30s", got)
		}
	})
	t.Run("past date", func(t *testing.T) {
		past := time.Now().Add(-time.Minute).UTC().Format(http.TimeFormat)
		if got := parseRetryAfter(past); got != 0 {
			t.Errorf("parseRetryAfter(past date) = %v, want 0", got)
		}
	})
	t.Run("garbage", func(t *testing.T) {
		if got := parseRetryAfter("soon"); got != 0 {
			t.Errorf("parseRetryAfter(garbage) = %v, want 0", got)
		}
	})
}
