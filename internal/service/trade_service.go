package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/coingraphai/eventgraph-ethdenver-2026-sub001/internal/domain"
)

// TradeService serves silver trade queries.
type TradeService struct {
	trades domain.TradeStore
	log    *slog.Logger
}

// NewTradeService creates a TradeService.
func NewTradeService(trades domain.TradeStore, log *slog.Logger) *TradeService {
	return &TradeService{
		trades: trades,
		log:    log.With("component", "trade_service"),
	}
}

// List returns trades matching the filter, with a bounded limit.
func (s *TradeService) List(ctx context.Context, f domain.TradeFilter) ([]domain.Trade, error) {
	if f.Limit <= 0 {
		f.Limit = 100
	}
	if f.Limit > 1000 {
		f.Limit = 1000
	}
	trades, err := s.trades.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("service: list trades: %w", err)
	}
	return trades, nil
}
