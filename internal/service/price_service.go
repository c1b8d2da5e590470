package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/coingraphai/eventgraph-ethdenver-2026-sub001/internal/domain"
)

// PriceService serves the silver price series.
type PriceService struct {
	prices domain.PriceStore
	log    *slog.Logger
}

// NewPriceService creates a PriceService.
func NewPriceService(prices domain.PriceStore, log *slog.Logger) *PriceService {
	return &PriceService{
		prices: prices,
		log:    log.With("component", "price_service"),
	}
}

// History returns the price series for one market within an optional window.
func (s *PriceService) History(ctx context.Context, venueName, venueMarketID string, since, until *time.Time, limit int) ([]domain.PriceSnapshot, error) {
	if limit <= 0 {
		limit = 1000
	}
	if limit > 10000 {
		limit = 10000
	}
	snaps, err := s.prices.ListByMarket(ctx, venueName, venueMarketID, since, until, limit)
	if err != nil {
		return nil, fmt.Errorf("service: price history: %w", err)
	}
	return snaps, nil
}
