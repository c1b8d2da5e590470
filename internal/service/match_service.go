package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/coingraphai/eventgraph-ethdenver-2026-sub001/internal/cache"
	"github.com/coingraphai/eventgraph-ethdenver-2026-sub001/internal/domain"
	"github.com/coingraphai/eventgraph-ethdenver-2026-sub001/internal/matching"
)

// MatchService fronts the matching engine with the TTL cache. Opportunity
// lists stay hot for minutes, event matches for hours; concurrent requests
// for the same parameters share one engine run.
type MatchService struct {
	engine         *matching.Engine
	loader         *cache.Loader
	opportunityTTL time.Duration
	eventTTL       time.Duration
	log            *slog.Logger
}

// NewMatchService creates a MatchService.
func NewMatchService(engine *matching.Engine, loader *cache.Loader, opportunityTTL, eventTTL time.Duration, log *slog.Logger) *MatchService {
	return &MatchService{
		engine:         engine,
		loader:         loader,
		opportunityTTL: opportunityTTL,
		eventTTL:       eventTTL,
		log:            log.With("component", "match_service"),
	}
}

// Opportunities returns the ranked opportunity list for the given
// parameters, served from cache when fresh.
func (s *MatchService) Opportunities(ctx context.Context, p matching.Params) (domain.MatchResult, error) {
	key := fmt.Sprintf("opportunities:%.3f:%.3f:%d", p.MinSimilarity, p.MinSpread, p.Limit)
	raw, err := s.loader.Get(ctx, key, s.opportunityTTL, func(ctx context.Context) ([]byte, error) {
		result, err := s.engine.Match(ctx, p)
		if err != nil {
			return nil, err
		}
		return json.Marshal(result)
	})
	if err != nil {
		return domain.MatchResult{}, fmt.Errorf("service: opportunities: %w", err)
	}

	var result domain.MatchResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return domain.MatchResult{}, fmt.Errorf("service: decode cached opportunities: %w", err)
	}
	return result, nil
}

// EventMatches returns the cross-venue event pairs at grouping confidence.
func (s *MatchService) EventMatches(ctx context.Context) ([]matching.EventMatch, error) {
	raw, err := s.loader.Get(ctx, "event_matches", s.eventTTL, func(ctx context.Context) ([]byte, error) {
		matches, err := s.engine.MatchEvents(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(matches)
	})
	if err != nil {
		return nil, fmt.Errorf("service: event matches: %w", err)
	}

	var matches []matching.EventMatch
	if err := json.Unmarshal(raw, &matches); err != nil {
		return nil, fmt.Errorf("service: decode cached event matches: %w", err)
	}
	return matches, nil
}
