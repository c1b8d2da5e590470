// Package kalshi defines the raw payload shapes of the Kalshi trade API and
// their mapping into canonical silver entities.
package kalshi

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/coingraphai/eventgraph-ethdenver-2026-sub001/internal/domain"
)

// VenueName identifies this venue in silver natural keys.
const VenueName = "kalshi"

// RawMarket is a market exactly as the Kalshi API returns it. Kalshi quotes
// prices in integer cents.
type RawMarket struct {
	Ticker       string  `json:"ticker"`
	EventTicker  string  `json:"event_ticker"`
	Title        string  `json:"title"`
	Category     string  `json:"category"`
	Status       string  `json:"status"` // "active", "closed", "settled"
	YesBid       int     `json:"yes_bid"`
	YesAsk       int     `json:"yes_ask"`
	NoBid        int     `json:"no_bid"`
	NoAsk        int     `json:"no_ask"`
	LastPrice    int     `json:"last_price"`
	Volume       float64 `json:"volume"`
	Volume24h    float64 `json:"volume_24h"`
	Liquidity    float64 `json:"liquidity"`
	OpenTime     string  `json:"open_time"`
	CloseTime    string  `json:"close_time"`
	RulesPrimary string  `json:"rules_primary"`
}

// RawTrade is a fill from the markets/trades endpoint.
type RawTrade struct {
	TradeID     string `json:"trade_id"`
	Ticker      string `json:"ticker"`
	TakerSide   string `json:"taker_side"` // "yes" or "no"
	YesPrice    int    `json:"yes_price"`
	Count       int    `json:"count"`
	CreatedTime string `json:"created_time"`
}

// RawCandle is one point of the series price history.
type RawCandle struct {
	Ticker    string `json:"ticker"`
	EndTs     int64  `json:"end_period_ts"`
	YesPrice  int    `json:"yes_price_close"`
	Volume    int    `json:"volume"`
	OpenInter int    `json:"open_interest"`
}

// centsToPrice converts Kalshi integer cents into the canonical 0..1 price.
func centsToPrice(c int) float64 { return float64(c) / 100 }

// ToMarket maps a raw Kalshi market into the canonical entity. The YES price
// is the bid/ask midpoint when both sides are quoted, else the last trade.
func (r *RawMarket) ToMarket(fetchedAt time.Time) (domain.Market, error) {
	if r.Ticker == "" || r.Title == "" {
		return domain.Market{}, domain.ErrMalformedRecord
	}

	m := domain.Market{
		Venue:          VenueName,
		VenueMarketID:  r.Ticker,
		Title:          r.Title,
		Category:       strings.ToLower(r.Category),
		Status:         status(r.Status),
		Volume:         r.Volume,
		Volume24h:      r.Volume24h,
		Liquidity:      r.Liquidity,
		PriceUpdatedAt: &fetchedAt,
	}

	if yes, ok := yesPrice(r); ok {
		no := 1 - yes
		m.YesPrice = &yes
		m.NoPrice = &no
	}
	if t, err := time.Parse(time.RFC3339, r.OpenTime); err == nil {
		m.VenueCreatedAt = &t
	}
	if t, err := time.Parse(time.RFC3339, r.CloseTime); err == nil {
		m.EndDate = &t
	}

	extra, _ := json.Marshal(map[string]any{"event_ticker": r.EventTicker})
	m.Extra = extra

	return m, nil
}

func yesPrice(r *RawMarket) (float64, bool) {
	if r.YesBid > 0 && r.YesAsk > 0 {
		return centsToPrice(r.YesBid+r.YesAsk) / 2, true
	}
	if r.LastPrice > 0 {
		return centsToPrice(r.LastPrice), true
	}
	return 0, false
}

func status(s string) domain.MarketStatus {
	switch strings.ToLower(s) {
	case "active", "open":
		return domain.MarketStatusActive
	case "settled", "finalized", "resolved":
		return domain.MarketStatusResolved
	default:
		return domain.MarketStatusClosed
	}
}

// ToSnapshot maps a series candle close into the canonical price series.
func (c *RawCandle) ToSnapshot() (domain.PriceSnapshot, error) {
	if c.Ticker == "" || c.EndTs <= 0 {
		return domain.PriceSnapshot{}, domain.ErrMalformedRecord
	}
	yes := centsToPrice(c.YesPrice)
	return domain.PriceSnapshot{
		Venue:         VenueName,
		VenueMarketID: c.Ticker,
		SnapshotTime:  time.Unix(c.EndTs, 0).UTC(),
		YesPrice:      yes,
		NoPrice:       1 - yes,
	}, nil
}

// ToTrade maps a raw fill into the canonical trade. Kalshi identifies fills
// by trade_id alone.
func (t *RawTrade) ToTrade() (domain.Trade, error) {
	if t.TradeID == "" || t.Ticker == "" {
		return domain.Trade{}, domain.ErrMalformedRecord
	}
	ts, err := time.Parse(time.RFC3339, t.CreatedTime)
	if err != nil {
		return domain.Trade{}, domain.ErrMalformedRecord
	}

	side := domain.TradeSideBuy
	if strings.EqualFold(t.TakerSide, "no") {
		side = domain.TradeSideSell
	}
	price := centsToPrice(t.YesPrice)
	qty := float64(t.Count)
	return domain.Trade{
		Venue:         VenueName,
		VenueMarketID: t.Ticker,
		Timestamp:     ts.UTC(),
		Side:          side,
		Price:         price,
		Quantity:      qty,
		USDValue:      price * qty,
		DedupHash:     domain.TradeDedupHash(VenueName, t.TradeID),
	}, nil
}
