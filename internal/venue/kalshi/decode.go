package kalshi

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/coingraphai/eventgraph-ethdenver-2026-sub001/internal/domain"
)

// DecodeMarkets decodes one markets listing page into canonical markets.
// Bad rows are skipped and counted, never abort the page.
func DecodeMarkets(body []byte, fetchedAt time.Time) ([]domain.Market, int, error) {
	var envelope struct {
		Markets []json.RawMessage `json:"markets"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, 0, fmt.Errorf("kalshi: decode markets page: %w", err)
	}

	var out []domain.Market
	skipped := 0
	for _, item := range envelope.Markets {
		var raw RawMarket
		if err := json.Unmarshal(item, &raw); err != nil {
			skipped++
			continue
		}
		m, err := raw.ToMarket(fetchedAt)
		if err != nil {
			skipped++
			continue
		}
		out = append(out, m)
	}
	return out, skipped, nil
}

// DecodePrices decodes one candlesticks page into the canonical price
// series. Candles missing a ticker inherit it from the fetch params.
func DecodePrices(body []byte, params url.Values) ([]domain.PriceSnapshot, int, error) {
	ticker := params.Get("ticker")
	var envelope struct {
		Candlesticks []RawCandle `json:"candlesticks"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, 0, fmt.Errorf("kalshi: decode candlesticks: %w", err)
	}

	var out []domain.PriceSnapshot
	skipped := 0
	for i := range envelope.Candlesticks {
		c := envelope.Candlesticks[i]
		if c.Ticker == "" {
			c.Ticker = ticker
		}
		snap, err := c.ToSnapshot()
		if err != nil {
			skipped++
			continue
		}
		out = append(out, snap)
	}
	return out, skipped, nil
}

// DecodeTrades decodes one markets/trades page.
func DecodeTrades(body []byte) ([]domain.Trade, int, error) {
	var envelope struct {
		Trades []json.RawMessage `json:"trades"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, 0, fmt.Errorf("kalshi: decode trades page: %w", err)
	}

	var out []domain.Trade
	skipped := 0
	for _, item := range envelope.Trades {
		var raw RawTrade
		if err := json.Unmarshal(item, &raw); err != nil {
			skipped++
			continue
		}
		t, err := raw.ToTrade()
		if err != nil {
			skipped++
			continue
		}
		out = append(out, t)
	}
	return out, skipped, nil
}
