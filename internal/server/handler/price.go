package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/coingraphai/eventgraph-ethdenver-2026-sub001/internal/domain"
)

// PriceService is the service surface the price handler needs.
type PriceService interface {
	History(ctx context.Context, venue, venueMarketID string, since, until *time.Time, limit int) ([]domain.PriceSnapshot, error)
}

// PriceHandler serves the price-history endpoint.
type PriceHandler struct {
	prices PriceService
	logger *slog.Logger
}

// NewPriceHandler creates a PriceHandler.
func NewPriceHandler(prices PriceService, logger *slog.Logger) *PriceHandler {
	return &PriceHandler{prices: prices, logger: logger}
}

// History returns the price series for one market.
// GET /api/prices?venue=&market=&since=&until=&limit=
func (h *PriceHandler) History(w http.ResponseWriter, r *http.Request) {
	venueName := r.URL.Query().Get("venue")
	marketID := r.URL.Query().Get("market")
	if venueName == "" || marketID == "" {
		writeError(w, http.StatusBadRequest, "venue and market are required")
		return
	}

	snaps, err := h.prices.History(r.Context(), venueName, marketID,
		queryTime(r, "since"), queryTime(r, "until"), queryInt(r, "limit", 0))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "price history failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to load price history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"venue":     venueName,
		"market":    marketID,
		"snapshots": snaps,
	})
}
