package domain

import "time"

// MarketStatus represents the lifecycle state of a market.
type MarketStatus string

const (
	MarketStatusActive   MarketStatus = "active"
	MarketStatusClosed   MarketStatus = "closed"
	MarketStatusResolved MarketStatus = "resolved"
)

// Market is the canonical (silver-tier) representation of a tradeable
// question on a venue. Uniqueness is (Venue, VenueMarketID); rows are never
// deleted, only soft-closed via Status.
type Market struct {
	ID            int64
	Venue         string
	VenueMarketID string
	Title         string
	Category      string
	Status        MarketStatus
	YesPrice      *float64
	NoPrice       *float64
	Volume        float64
	Volume24h     float64
	Liquidity     float64
	// PriceUpdatedAt is the fetch time of the bronze payload the current
	// price fields came from. Upserts must never move it backwards.
	PriceUpdatedAt *time.Time
	VenueCreatedAt *time.Time
	EndDate        *time.Time
	// Extra carries venue-specific extension fields as raw JSON.
	Extra     []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PriceSnapshot is one point of the append-only silver price series, unique
// per (Venue, VenueMarketID, SnapshotTime).
type PriceSnapshot struct {
	ID            int64
	Venue         string
	VenueMarketID string
	SnapshotTime  time.Time
	YesPrice      float64
	NoPrice       float64
}
