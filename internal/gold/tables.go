package gold

import (
	"time"

	"github.com/coingraphai/eventgraph-ethdenver-2026-sub001/internal/domain"
)

// Snapshot payload shapes. These are what gold_snapshots rows deserialize
// into; trend charts compare payloads across snapshot times.

// TopMarketEntry is one row of the top-markets leaderboard.
type TopMarketEntry struct {
	Venue         string   `json:"venue"`
	VenueMarketID string   `json:"venue_market_id"`
	Title         string   `json:"title"`
	Category      string   `json:"category"`
	YesPrice      *float64 `json:"yes_price"`
	Volume        float64  `json:"volume"`
	Volume24h     float64  `json:"volume_24h"`
	Liquidity     float64  `json:"liquidity"`
}

// ActivityFeed summarizes trading activity over a rolling window.
type ActivityFeed struct {
	WindowStart time.Time      `json:"window_start"`
	WindowEnd   time.Time      `json:"window_end"`
	TradeCount  int            `json:"trade_count"`
	USDVolume   float64        `json:"usd_volume"`
	BuyCount    int            `json:"buy_count"`
	SellCount   int            `json:"sell_count"`
	Recent      []domain.Trade `json:"recent"`
}

// CategoryStat is one row of the category distribution.
type CategoryStat struct {
	Category string  `json:"category"`
	Markets  int     `json:"markets"`
	Volume   float64 `json:"volume"`
	Share    float64 `json:"share"`
}

// PlatformStat compares one venue against the rest.
type PlatformStat struct {
	Venue         string  `json:"venue"`
	Markets       int     `json:"markets"`
	ActiveMarkets int     `json:"active_markets"`
	Volume        float64 `json:"volume"`
	Volume24h     float64 `json:"volume_24h"`
	Liquidity     float64 `json:"liquidity"`
}

// TrendingCategory scores a category by how much of its volume is recent.
type TrendingCategory struct {
	Category  string  `json:"category"`
	Volume24h float64 `json:"volume_24h"`
	Volume    float64 `json:"volume"`
	Score     float64 `json:"score"`
}

// MetricsSummary is the single-row platform overview.
type MetricsSummary struct {
	TotalMarkets  int       `json:"total_markets"`
	ActiveMarkets int       `json:"active_markets"`
	Venues        int       `json:"venues"`
	TotalVolume   float64   `json:"total_volume"`
	Volume24h     float64   `json:"volume_24h"`
	Liquidity     float64   `json:"liquidity"`
	GeneratedAt   time.Time `json:"generated_at"`
}
