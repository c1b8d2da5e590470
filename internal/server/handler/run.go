package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/coingraphai/eventgraph-ethdenver-2026-sub001/internal/domain"
)

// RunService is the service surface the run handler needs.
type RunService interface {
	Recent(ctx context.Context, venue string, limit int) ([]domain.IngestRun, error)
	Trigger(ctx context.Context, venue string, kind domain.RunKind) (string, error)
}

// RunHandler serves run-history and manual-trigger endpoints.
type RunHandler struct {
	runs   RunService
	logger *slog.Logger
}

// NewRunHandler creates a RunHandler.
func NewRunHandler(runs RunService, logger *slog.Logger) *RunHandler {
	return &RunHandler{runs: runs, logger: logger}
}

// ListRuns returns run history, newest first.
// GET /api/runs?venue=&limit=
func (h *RunHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.runs.Recent(r.Context(), r.URL.Query().Get("venue"), queryInt(r, "limit", 50))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list runs failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

type triggerRequest struct {
	Venue string `json:"venue"`
	Kind  string `json:"kind"`
}

// TriggerRun starts a manual ingestion run.
// POST /api/runs/trigger {"venue": "...", "kind": "static|delta"}
func (h *RunHandler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	var req triggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Venue == "" {
		writeError(w, http.StatusBadRequest, "venue is required")
		return
	}
	if req.Kind == "" {
		req.Kind = string(domain.RunKindDelta)
	}

	runID, err := h.runs.Trigger(r.Context(), req.Venue, domain.RunKind(req.Kind))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRunActive):
			writeError(w, http.StatusConflict, "a run is already in flight for this venue")
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "unknown venue")
		default:
			h.logger.ErrorContext(r.Context(), "trigger run failed", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "failed to trigger run")
		}
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"run_id": runID})
}
