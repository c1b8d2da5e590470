package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/coingraphai/eventgraph-ethdenver-2026-sub001/internal/domain"
)

// validGoldTables guards the table-name path segment so arbitrary strings
// never reach the store.
var validGoldTables = map[string]bool{
	domain.GoldTableTopMarkets:         true,
	domain.GoldTableActivity:           true,
	domain.GoldTableCategoryDist:       true,
	domain.GoldTablePlatformComparison: true,
	domain.GoldTableTrendingCategories: true,
	domain.GoldTableMetricsSummary:     true,
}

// GoldService serves gold snapshot queries.
type GoldService struct {
	gold           domain.GoldStore
	candleInterval time.Duration
	log            *slog.Logger
}

// NewGoldService creates a GoldService. candleInterval is the interval the
// aggregator builds candles at; it doubles as the query default.
func NewGoldService(gold domain.GoldStore, candleInterval time.Duration, log *slog.Logger) *GoldService {
	if candleInterval <= 0 {
		candleInterval = time.Hour
	}
	return &GoldService{
		gold:           gold,
		candleInterval: candleInterval,
		log:            log.With("component", "gold_service"),
	}
}

// Snapshot returns the latest snapshot of a table, or the latest at-or-before
// at when non-nil.
func (s *GoldService) Snapshot(ctx context.Context, table string, at *time.Time) (domain.GoldSnapshot, error) {
	if !validGoldTables[table] {
		return domain.GoldSnapshot{}, fmt.Errorf("service: unknown gold table %q: %w", table, domain.ErrNotFound)
	}
	return s.gold.ReadSnapshot(ctx, table, at)
}

// MarketDetail returns the hot detail row for one market.
func (s *GoldService) MarketDetail(ctx context.Context, venueName, venueMarketID string) (domain.MarketDetail, error) {
	return s.gold.GetMarketDetail(ctx, venueName, venueMarketID)
}

// Candles returns the OHLC series for one market and interval. An empty
// interval means the configured one; anything else is parsed as a duration
// and normalized, so "60m" and "1h" hit the same stored label.
func (s *GoldService) Candles(ctx context.Context, venueName, venueMarketID, interval string, since, until *time.Time) ([]domain.Candle, error) {
	if interval == "" {
		interval = s.candleInterval.String()
	} else {
		d, err := time.ParseDuration(interval)
		if err != nil {
			return nil, fmt.Errorf("service: candle interval %q: %w", interval, domain.ErrBadRequest)
		}
		interval = d.String()
	}
	candles, err := s.gold.ListCandles(ctx, venueName, venueMarketID, interval, since, until)
	if err != nil {
		return nil, fmt.Errorf("service: list candles: %w", err)
	}
	return candles, nil
}
