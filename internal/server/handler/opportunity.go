package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/coingraphai/eventgraph-ethdenver-2026-sub001/internal/domain"
	"github.com/coingraphai/eventgraph-ethdenver-2026-sub001/internal/matching"
)

// MatchService is the service surface the opportunity handler needs.
type MatchService interface {
	Opportunities(ctx context.Context, p matching.Params) (domain.MatchResult, error)
	EventMatches(ctx context.Context) ([]matching.EventMatch, error)
}

// OpportunityHandler serves matching-engine endpoints.
type OpportunityHandler struct {
	matches MatchService
	logger  *slog.Logger
}

// NewOpportunityHandler creates an OpportunityHandler.
func NewOpportunityHandler(matches MatchService, logger *slog.Logger) *OpportunityHandler {
	return &OpportunityHandler{matches: matches, logger: logger}
}

// ListOpportunities returns the ranked arbitrage opportunities plus run
// stats. The result is best-effort: a degraded venue reduces
// markets-scanned instead of failing the request.
// GET /api/opportunities?min_spread=&min_similarity=&limit=
func (h *OpportunityHandler) ListOpportunities(w http.ResponseWriter, r *http.Request) {
	p := matching.Params{
		MinSimilarity: queryFloat(r, "min_similarity", 0),
		MinSpread:     queryFloat(r, "min_spread", 0),
		Limit:         queryInt(r, "limit", 0),
	}

	result, err := h.matches.Opportunities(r.Context(), p)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "opportunities failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to compute opportunities")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ListEventMatches returns cross-venue market pairs at event-grouping
// confidence.
// GET /api/events/matches
func (h *OpportunityHandler) ListEventMatches(w http.ResponseWriter, r *http.Request) {
	matches, err := h.matches.EventMatches(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "event matches failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to compute event matches")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"matches": matches})
}
