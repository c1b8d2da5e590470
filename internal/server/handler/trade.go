package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/coingraphai/eventgraph-ethdenver-2026-sub001/internal/domain"
)

// TradeService is the service surface the trade handler needs.
type TradeService interface {
	List(ctx context.Context, f domain.TradeFilter) ([]domain.Trade, error)
}

// TradeHandler serves trade endpoints.
type TradeHandler struct {
	trades TradeService
	logger *slog.Logger
}

// NewTradeHandler creates a TradeHandler.
func NewTradeHandler(trades TradeService, logger *slog.Logger) *TradeHandler {
	return &TradeHandler{trades: trades, logger: logger}
}

// ListTrades returns trades filtered by venue, market, and time window.
// GET /api/trades?venue=&market=&since=&until=&limit=
func (h *TradeHandler) ListTrades(w http.ResponseWriter, r *http.Request) {
	f := domain.TradeFilter{
		Venue:         r.URL.Query().Get("venue"),
		VenueMarketID: r.URL.Query().Get("market"),
		Since:         queryTime(r, "since"),
		Until:         queryTime(r, "until"),
		Limit:         queryInt(r, "limit", 100),
	}

	trades, err := h.trades.List(r.Context(), f)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list trades failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list trades")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"trades": trades})
}
