package domain

import "time"

// Confidence is the coarse quality tier of an opportunity. Ordering matters:
// high sorts before medium sorts before low.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// OpportunityLeg is one side of a cross-venue pair.
type OpportunityLeg struct {
	Venue         string  `json:"venue"`
	VenueMarketID string  `json:"venue_market_id"`
	Title         string  `json:"title"`
	YesPrice      float64 `json:"yes_price"`
	Volume        float64 `json:"volume"`
}

// Opportunity is a matched pair of semantically equivalent markets on two
// venues whose YES prices diverge. It is derived state, rebuilt fresh each
// matching run and held only in the TTL cache.
type Opportunity struct {
	BuyLeg        OpportunityLeg `json:"buy_leg"`
	SellLeg       OpportunityLeg `json:"sell_leg"`
	Similarity    float64        `json:"similarity"`
	Spread        float64        `json:"spread"`
	SpreadPct     float64        `json:"spread_pct"`
	Feasibility   float64        `json:"feasibility"`
	Confidence    Confidence     `json:"confidence"`
	Strategy      string         `json:"strategy"`
	DetectedAt    time.Time      `json:"detected_at"`
}

// MatchStats summarizes one matching run alongside its ranked opportunities
// so callers can judge completeness.
type MatchStats struct {
	Opportunities  int     `json:"opportunities"`
	AvgSpreadPct   float64 `json:"avg_spread_pct"`
	MarketsScanned int     `json:"markets_scanned"`
	PairsMatched   int     `json:"pairs_matched"`
	PairsVetoed    int     `json:"pairs_vetoed"`
}

// MatchResult bundles a ranked opportunity list with its run stats.
type MatchResult struct {
	Opportunities []Opportunity `json:"opportunities"`
	Stats         MatchStats    `json:"stats"`
}
