package domain

import "time"

// Logical endpoint names under which bronze rows are filed. The normalizer
// selects its decoder by (venue, endpoint), so these are stable identifiers,
// not URL paths.
const (
	EndpointMarkets = "markets"
	EndpointPrices  = "prices"
	EndpointTrades  = "trades"
)

// RawResponse is one bronze-tier row: an opaque API payload captured exactly
// as fetched. Rows are append-only and immutable; (ContentHash, Venue) is
// unique, so refetching an identical payload is a no-op.
type RawResponse struct {
	ID          int64
	Venue       string
	Endpoint    string
	Params      string
	Body        []byte
	ContentHash string
	FetchedAt   time.Time
	Processed   bool
}
