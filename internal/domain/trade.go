package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// TradeSide is the taker direction of a fill.
type TradeSide string

const (
	TradeSideBuy  TradeSide = "buy"
	TradeSideSell TradeSide = "sell"
)

// Trade is a normalized (silver-tier) fill on a venue market. Fills are
// deduplicated by DedupHash, a sha256 over the venue-specific
// transaction-identifying fields.
type Trade struct {
	ID            int64
	Venue         string
	VenueMarketID string
	Timestamp     time.Time
	Side          TradeSide
	Price         float64
	Quantity      float64
	USDValue      float64
	Maker         string
	Taker         string
	DedupHash     string
}

// TradeDedupHash builds the deterministic dedup key for a fill from the
// venue-specific transaction-identifying fields. Venues disagree on what
// identifies a fill (trade id, tx hash, timestamp), so callers pass whatever
// combination their venue guarantees unique.
func TradeDedupHash(venue string, parts ...any) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s", venue)
	for _, p := range parts {
		fmt.Fprintf(h, "|%v", p)
	}
	return hex.EncodeToString(h.Sum(nil))
}
