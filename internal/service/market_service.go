// Package service hosts the read-side use cases the HTTP surface exposes.
// Services stay thin: parameter defaulting, store calls, and caching where a
// recompute is expensive.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/coingraphai/eventgraph-ethdenver-2026-sub001/internal/domain"
)

// MarketService serves silver market queries.
type MarketService struct {
	markets domain.MarketStore
	log     *slog.Logger
}

// NewMarketService creates a MarketService.
func NewMarketService(markets domain.MarketStore, log *slog.Logger) *MarketService {
	return &MarketService{
		markets: markets,
		log:     log.With("component", "market_service"),
	}
}

// List returns markets matching the filter, with a bounded limit.
func (s *MarketService) List(ctx context.Context, f domain.MarketFilter) ([]domain.Market, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Limit > 500 {
		f.Limit = 500
	}
	markets, err := s.markets.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("service: list markets: %w", err)
	}
	return markets, nil
}

// Get returns one market by its natural key.
func (s *MarketService) Get(ctx context.Context, venueName, venueMarketID string) (domain.Market, error) {
	return s.markets.GetByNaturalKey(ctx, venueName, venueMarketID)
}

// Count returns the total number of markets.
func (s *MarketService) Count(ctx context.Context) (int64, error) {
	return s.markets.Count(ctx)
}
