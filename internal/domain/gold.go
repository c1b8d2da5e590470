package domain

import "time"

// Gold-tier materializations. Snapshot tables are produced only by the
// aggregator and superseded, never edited, on each refresh.

// GoldSnapshot is one timestamped materialization of an aggregate table. The
// payload is the aggregate serialized as JSON; trend charts are built by
// querying payloads across snapshot times.
type GoldSnapshot struct {
	ID           int64
	Table        string
	SnapshotTime time.Time
	Payload      []byte
}

// Gold snapshot table names.
const (
	GoldTableTopMarkets         = "top_markets"
	GoldTableActivity           = "activity_feed"
	GoldTableCategoryDist       = "category_distribution"
	GoldTablePlatformComparison = "platform_comparison"
	GoldTableTrendingCategories = "trending_categories"
	GoldTableMetricsSummary     = "metrics_summary"
)

// MarketDetail is the hot per-market read cache, latest-wins by
// (Venue, VenueMarketID).
type MarketDetail struct {
	Venue         string     `json:"venue"`
	VenueMarketID string     `json:"venue_market_id"`
	Title         string     `json:"title"`
	Category      string     `json:"category"`
	Status        string     `json:"status"`
	YesPrice      *float64   `json:"yes_price"`
	NoPrice       *float64   `json:"no_price"`
	Volume        float64    `json:"volume"`
	Volume24h     float64    `json:"volume_24h"`
	Liquidity     float64    `json:"liquidity"`
	EndDate       *time.Time `json:"end_date,omitempty"`
	SnapshotTime  time.Time  `json:"snapshot_time"`
}

// Candle is one OHLC bucket of the gold price-history series, keyed by
// (Venue, VenueMarketID, Interval, BucketStart).
type Candle struct {
	Venue         string    `json:"venue"`
	VenueMarketID string    `json:"venue_market_id"`
	Interval      string    `json:"interval"`
	BucketStart   time.Time `json:"bucket_start"`
	Open          float64   `json:"open"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Close         float64   `json:"close"`
	Samples       int       `json:"samples"`
}
