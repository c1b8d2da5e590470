package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/coingraphai/eventgraph-ethdenver-2026-sub001/internal/domain"
)

// MarketService is the service surface the market handler needs.
type MarketService interface {
	List(ctx context.Context, f domain.MarketFilter) ([]domain.Market, error)
	Get(ctx context.Context, venue, venueMarketID string) (domain.Market, error)
	Count(ctx context.Context) (int64, error)
}

// MarketHandler serves market endpoints.
type MarketHandler struct {
	markets MarketService
	logger  *slog.Logger
}

// NewMarketHandler creates a MarketHandler.
func NewMarketHandler(markets MarketService, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{markets: markets, logger: logger}
}

type listMarketsResponse struct {
	Markets []domain.Market `json:"markets"`
	Total   int64           `json:"total"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

// ListMarkets returns markets filtered by venue, status, and time window.
// GET /api/markets?venue=&status=&since=&until=&limit=&offset=
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	f := domain.MarketFilter{
		Venue:  r.URL.Query().Get("venue"),
		Status: domain.MarketStatus(r.URL.Query().Get("status")),
		Since:  queryTime(r, "since"),
		Until:  queryTime(r, "until"),
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	}

	markets, err := h.markets.List(r.Context(), f)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list markets failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list markets")
		return
	}
	total, err := h.markets.Count(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "count markets failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to count markets")
		return
	}

	writeJSON(w, http.StatusOK, listMarketsResponse{
		Markets: markets,
		Total:   total,
		Limit:   f.Limit,
		Offset:  f.Offset,
	})
}

// GetMarket returns one market by natural key.
// GET /api/markets/{venue}/{id}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	venueName := r.PathValue("venue")
	id := r.PathValue("id")
	if venueName == "" || id == "" {
		writeError(w, http.StatusBadRequest, "missing venue or market id")
		return
	}

	market, err := h.markets.Get(r.Context(), venueName, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "market not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "get market failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to get market")
		return
	}
	writeJSON(w, http.StatusOK, market)
}
