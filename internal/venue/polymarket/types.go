// Package polymarket defines the raw payload shapes of the Polymarket Gamma
// API and their mapping into canonical silver entities. Each venue's raw
// shape lives in its own package so the normalizer never does generic
// permissive field access.
package polymarket

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/coingraphai/eventgraph-ethdenver-2026-sub001/internal/domain"
)

// VenueName identifies this venue in silver natural keys.
const VenueName = "polymarket"

// flexBool unmarshals from JSON bool or string ("true"/"false") so Gamma API
// responses work whether "active" is sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// flexFloat unmarshals from JSON number or numeric string; Gamma sends
// volumes and prices both ways.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexFloat(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = flexFloat(n)
	return nil
}

// RawMarket is a market exactly as the Gamma API returns it.
type RawMarket struct {
	ID            string    `json:"id"`
	Question      string    `json:"question"`
	Slug          string    `json:"slug"`
	Category      string    `json:"category"`
	Active        flexBool  `json:"active"`
	Closed        bool      `json:"closed"`
	Archived      bool      `json:"archived"`
	OutcomePrices string    `json:"outcomePrices"` // JSON-encoded array of strings
	Volume        flexFloat `json:"volume"`
	Volume24h     flexFloat `json:"volume24hr"`
	Liquidity     flexFloat `json:"liquidity"`
	CreatedAt     string    `json:"createdAt"`
	EndDate       string    `json:"endDate"`
	NegRisk       bool      `json:"negRisk"`
	ConditionID   string    `json:"conditionId"`
}

// RawPricePoint is one point of the prices-history endpoint.
type RawPricePoint struct {
	Timestamp int64     `json:"t"`
	Price     flexFloat `json:"p"`
}

// RawTrade is a fill from the data API.
type RawTrade struct {
	ID        string    `json:"id"`
	Market    string    `json:"market"`
	Side      string    `json:"side"` // "BUY" or "SELL"
	Price     flexFloat `json:"price"`
	Size      flexFloat `json:"size"`
	Timestamp int64     `json:"timestamp"`
	Maker     string    `json:"maker"`
	Taker     string    `json:"taker"`
	TxHash    string    `json:"transactionHash"`
}

// ToMarket maps a raw Gamma market into the canonical entity. fetchedAt
// becomes the market's PriceUpdatedAt so the upsert price guard can order
// concurrent normalize passes. Returns ErrMalformedRecord for rows missing
// their natural key.
func (r *RawMarket) ToMarket(fetchedAt time.Time) (domain.Market, error) {
	if r.ID == "" || r.Question == "" {
		return domain.Market{}, domain.ErrMalformedRecord
	}

	m := domain.Market{
		Venue:          VenueName,
		VenueMarketID:  r.ID,
		Title:          r.Question,
		Category:       strings.ToLower(r.Category),
		Status:         status(r),
		Volume:         float64(r.Volume),
		Volume24h:      float64(r.Volume24h),
		Liquidity:      float64(r.Liquidity),
		PriceUpdatedAt: &fetchedAt,
	}

	if yes, no, ok := parseOutcomePrices(r.OutcomePrices); ok {
		m.YesPrice = &yes
		m.NoPrice = &no
	}
	if t, err := time.Parse(time.RFC3339, r.CreatedAt); err == nil {
		m.VenueCreatedAt = &t
	}
	if t, err := time.Parse(time.RFC3339, r.EndDate); err == nil {
		m.EndDate = &t
	}

	extra, _ := json.Marshal(map[string]any{
		"slug":         r.Slug,
		"neg_risk":     r.NegRisk,
		"condition_id": r.ConditionID,
	})
	m.Extra = extra

	return m, nil
}

func status(r *RawMarket) domain.MarketStatus {
	switch {
	case r.Archived:
		return domain.MarketStatusResolved
	case r.Closed:
		return domain.MarketStatusClosed
	case bool(r.Active):
		return domain.MarketStatusActive
	default:
		return domain.MarketStatusClosed
	}
}

// parseOutcomePrices decodes Gamma's doubly-encoded outcome price array,
// e.g. "[\"0.62\", \"0.38\"]".
func parseOutcomePrices(s string) (yes, no float64, ok bool) {
	if s == "" {
		return 0, 0, false
	}
	var prices []string
	if err := json.Unmarshal([]byte(s), &prices); err != nil || len(prices) < 2 {
		return 0, 0, false
	}
	yes, err1 := strconv.ParseFloat(prices[0], 64)
	no, err2 := strconv.ParseFloat(prices[1], 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return yes, no, true
}

// ToSnapshot maps a price-history point for a market into the canonical
// append-only series.
func (p *RawPricePoint) ToSnapshot(venueMarketID string) (domain.PriceSnapshot, error) {
	if venueMarketID == "" || p.Timestamp <= 0 {
		return domain.PriceSnapshot{}, domain.ErrMalformedRecord
	}
	yes := float64(p.Price)
	return domain.PriceSnapshot{
		Venue:         VenueName,
		VenueMarketID: venueMarketID,
		SnapshotTime:  time.Unix(p.Timestamp, 0).UTC(),
		YesPrice:      yes,
		NoPrice:       1 - yes,
	}, nil
}

// ToTrade maps a raw fill into the canonical trade, with the dedup hash
// derived from the venue's transaction-identifying fields.
func (t *RawTrade) ToTrade() (domain.Trade, error) {
	if t.Market == "" || t.Timestamp <= 0 {
		return domain.Trade{}, domain.ErrMalformedRecord
	}
	side := domain.TradeSideBuy
	if strings.EqualFold(t.Side, "SELL") {
		side = domain.TradeSideSell
	}
	price := float64(t.Price)
	size := float64(t.Size)
	return domain.Trade{
		Venue:         VenueName,
		VenueMarketID: t.Market,
		Timestamp:     time.Unix(t.Timestamp, 0).UTC(),
		Side:          side,
		Price:         price,
		Quantity:      size,
		USDValue:      price * size,
		Maker:         t.Maker,
		Taker:         t.Taker,
		DedupHash:     domain.TradeDedupHash(VenueName, t.ID, t.TxHash, t.Timestamp),
	}, nil
}
