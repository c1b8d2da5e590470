package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/coingraphai/eventgraph-ethdenver-2026-sub001/internal/domain"
)

type stubMarketService struct {
	markets []domain.Market
	err     error
}

func (s *stubMarketService) List(ctx context.Context, f domain.MarketFilter) ([]domain.Market, error) {
	return s.markets, s.err
}

func (s *stubMarketService) Get(ctx context.Context, venueName, venueMarketID string) (domain.Market, error) {
	if s.err != nil {
		return domain.Market{}, s.err
	}
	for _, m := range s.markets {
		if m.Venue == venueName && m.VenueMarketID == venueMarketID {
			return m, nil
		}
	}
	return domain.Market{}, domain.ErrNotFound
}

func (s *stubMarketService) Count(ctx context.Context) (int64, error) {
	return int64(len(s.markets)), s.err
}

func TestMarketHandler_ListMarkets(t *testing.T) {
	svc := &stubMarketService{markets: []domain.Market{
		{Venue: "polymarket", VenueMarketID: "m1", Title: "Market one"},
		{Venue: "kalshi", VenueMarketID: "m2", Title: "Market two"},
	}}
	h := NewMarketHandler(svc, slog.Default())

	rec := httptest.NewRecorder()
	h.ListMarkets(rec, httptest.NewRequest(http.MethodGet, "/api/markets", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp listMarketsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Markets) != 2 || resp.Total != 2 {
		t.Errorf("got %d markets, total %d, want 2 and 2", len(resp.Markets), resp.Total)
	}
	if resp.Limit != 50 {
		t.Errorf("default limit = %d, want 50", resp.Limit)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestMarketHandler_ListMarketsServiceError(t *testing.T) {
	h := NewMarketHandler(&stubMarketService{err: errors.New("db down")}, slog.Default())

	rec := httptest.NewRecorder()
	h.ListMarkets(rec, httptest.NewRequest(http.MethodGet, "/api/markets", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	// Internal detail must not leak into the response body.
	if strings.Contains(rec.Body.String(), "db down") {
		t.Error("error response leaked the internal error")
	}
}

func TestMarketHandler_GetMarket(t *testing.T) {
	svc := &stubMarketService{markets: []domain.Market{
		{Venue: "polymarket", VenueMarketID: "m1", Title: "Market one"},
	}}
	h := NewMarketHandler(svc, slog.Default())

	get := func(venueName, id string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/markets/x/y", nil)
		req.SetPathValue("venue", venueName)
		req.SetPathValue("id", id)
		rec := httptest.NewRecorder()
		h.GetMarket(rec, req)
		return rec
	}

	t.Run("found", func(t *testing.T) {
		rec := get("polymarket", "m1")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		var m domain.Market
		if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if m.Title != "Market one" {
			t.Errorf("Title = %q", m.Title)
		}
	})

	t.Run("not found", func(t *testing.T) {
		if rec := get("polymarket", "nope"); rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("missing id", func(t *testing.T) {
		if rec := get("polymarket", ""); rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

type stubPinger struct{ err error }

func (p *stubPinger) Ping(ctx context.Context) error { return p.err }

func TestHealthHandler(t *testing.T) {
	t.Run("all healthy", func(t *testing.T) {
		h := NewHealthHandler(map[string]Pinger{
			"postgres": &stubPinger{},
			"redis":    nil, // optional dependency not wired
		})
		rec := httptest.NewRecorder()
		h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		var resp struct {
			Status       string            `json:"status"`
			Dependencies map[string]string `json:"dependencies"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Status != "ok" || resp.Dependencies["postgres"] != "ok" {
			t.Errorf("resp = %+v", resp)
		}
		if _, ok := resp.Dependencies["redis"]; ok {
			t.Error("nil check reported as a dependency")
		}
	})

	t.Run("dependency down", func(t *testing.T) {
		h := NewHealthHandler(map[string]Pinger{
			"postgres": &stubPinger{err: errors.New("connection refused")},
		})
		rec := httptest.NewRecorder()
		h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("status = %d, want 503", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "degraded") {
			t.Errorf("body = %s, want degraded status", rec.Body.String())
		}
	})
}

type stubRunService struct {
	runs      []domain.IngestRun
	runID     string
	err       error
	gotVenue  string
	gotKind   domain.RunKind
	triggered bool
}

func (s *stubRunService) Recent(ctx context.Context, venueName string, limit int) ([]domain.IngestRun, error) {
	return s.runs, s.err
}

func (s *stubRunService) Trigger(ctx context.Context, venueName string, kind domain.RunKind) (string, error) {
	s.triggered = true
	s.gotVenue = venueName
	s.gotKind = kind
	return s.runID, s.err
}

func TestRunHandler_TriggerRun(t *testing.T) {
	trigger := func(svc *stubRunService, body string) *httptest.ResponseRecorder {
		h := NewRunHandler(svc, slog.Default())
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/runs/trigger", strings.NewReader(body))
		h.TriggerRun(rec, req)
		return rec
	}

	t.Run("accepted", func(t *testing.T) {
		svc := &stubRunService{runID: "run-1"}
		rec := trigger(svc, `{"venue":"polymarket","kind":"static"}`)
		if rec.Code != http.StatusAccepted {
			t.Fatalf("status = %d, want 202", rec.Code)
		}
		if svc.gotVenue != "polymarket" || svc.gotKind != domain.RunKindStatic {
			t.Errorf("triggered %s/%s", svc.gotVenue, svc.gotKind)
		}
		if !strings.Contains(rec.Body.String(), "run-1") {
			t.Errorf("body = %s, want run id", rec.Body.String())
		}
	})

	t.Run("kind defaults to delta", func(t *testing.T) {
		svc := &stubRunService{runID: "run-2"}
		trigger(svc, `{"venue":"polymarket"}`)
		if svc.gotKind != domain.RunKindDelta {
			t.Errorf("kind = %s, want delta", svc.gotKind)
		}
	})

	t.Run("missing venue", func(t *testing.T) {
		svc := &stubRunService{}
		if rec := trigger(svc, `{}`); rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
		if svc.triggered {
			t.Error("trigger called without a venue")
		}
	})

	t.Run("bad body", func(t *testing.T) {
		if rec := trigger(&stubRunService{}, `not json`); rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("run already active", func(t *testing.T) {
		svc := &stubRunService{err: domain.ErrRunActive}
		if rec := trigger(svc, `{"venue":"polymarket"}`); rec.Code != http.StatusConflict {
			t.Errorf("status = %d, want 409", rec.Code)
		}
	})

	t.Run("unknown venue", func(t *testing.T) {
		svc := &stubRunService{err: domain.ErrNotFound}
		if rec := trigger(svc, `{"venue":"nosuch"}`); rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
}

func TestQueryTime(t *testing.T) {
	mk := func(q string) *http.Request {
		return httptest.NewRequest(http.MethodGet, "/x?"+q, nil)
	}

	if got := queryTime(mk("since=2026-08-01T00:00:00Z"), "since"); got == nil || got.Year() != 2026 {
		t.Errorf("RFC 3339 parse = %v", got)
	}
	if got := queryTime(mk("since=1756425600"), "since"); got == nil || got.Year() != 2025 {
		t.Errorf("unix seconds parse = %v", got)
	}
	if got := queryTime(mk("since=yesterday"), "since"); got != nil {
		t.Errorf("garbage parsed to %v", got)
	}
	if got := queryTime(mk(""), "since"); got != nil {
		t.Errorf("absent param parsed to %v", got)
	}
}
