package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coingraphai/eventgraph-ethdenver-2026-sub001/internal/domain"
)

// GoldService is the service surface the gold handler needs.
type GoldService interface {
	Snapshot(ctx context.Context, table string, at *time.Time) (domain.GoldSnapshot, error)
	MarketDetail(ctx context.Context, venue, venueMarketID string) (domain.MarketDetail, error)
	Candles(ctx context.Context, venue, venueMarketID, interval string, since, until *time.Time) ([]domain.Candle, error)
}

// GoldHandler serves gold snapshot endpoints.
type GoldHandler struct {
	gold   GoldService
	logger *slog.Logger
}

// NewGoldHandler creates a GoldHandler.
func NewGoldHandler(gold GoldService, logger *slog.Logger) *GoldHandler {
	return &GoldHandler{gold: gold, logger: logger}
}

// GetSnapshot returns the latest snapshot of a gold table, or the latest
// at-or-before ?at=<ts>.
// GET /api/gold/{table}?at=
func (h *GoldHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	table := r.PathValue("table")
	if table == "" {
		writeError(w, http.StatusBadRequest, "missing table name")
		return
	}

	snap, err := h.gold.Snapshot(r.Context(), table, queryTime(r, "at"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no snapshot for table")
			return
		}
		h.logger.ErrorContext(r.Context(), "gold snapshot failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to load snapshot")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"table":         snap.Table,
		"snapshot_time": snap.SnapshotTime,
		"payload":       json.RawMessage(snap.Payload),
	})
}

// GetCandles returns the OHLC series for one market.
// GET /api/gold/candles/{venue}/{id}?interval=&since=&until=
func (h *GoldHandler) GetCandles(w http.ResponseWriter, r *http.Request) {
	venueName := r.PathValue("venue")
	id := r.PathValue("id")
	if venueName == "" || id == "" {
		writeError(w, http.StatusBadRequest, "missing venue or market id")
		return
	}
	candles, err := h.gold.Candles(r.Context(), venueName, id, r.URL.Query().Get("interval"),
		queryTime(r, "since"), queryTime(r, "until"))
	if err != nil {
		if errors.Is(err, domain.ErrBadRequest) {
			writeError(w, http.StatusBadRequest, "invalid interval")
			return
		}
		h.logger.ErrorContext(r.Context(), "candles failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to load candles")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"candles": candles})
}
