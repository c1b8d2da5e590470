package polymarket

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/coingraphai/eventgraph-ethdenver-2026-sub001/internal/domain"
)

// DecodeMarkets decodes one Gamma listing page into canonical markets.
// Individual rows that cannot be decoded or lack their natural key are
// skipped and counted, never abort the page.
func DecodeMarkets(body []byte, fetchedAt time.Time) ([]domain.Market, int, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, 0, fmt.Errorf("polymarket: decode markets page: %w", err)
	}

	var out []domain.Market
	skipped := 0
	for _, item := range items {
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

// DecodePrices decodes one prices-history page. The market the series
// belongs to comes from the fetch params, not the payload.
func DecodePrices(body []byte, params url.Values) ([]domain.PriceSnapshot, int, error) {
	marketID := params.Get("market")
	var envelope struct {
		History []RawPricePoint `json:"history"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, 0, fmt.Errorf("polymarket: decode price history: %w", err)
	}

	var out []domain.PriceSnapshot
	skipped := 0
	for i := range envelope.History {
		snap, err := envelope.History[i].ToSnapshot(marketID)
		if err != nil {
			skipped++
			continue
		}
		out = append(out, snap)
	}
	return out, skipped, nil
}

// DecodeTrades decodes one data-API trades page.
func DecodeTrades(body []byte) ([]domain.Trade, int, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, 0, fmt.Errorf("polymarket: decode trades page: %w", err)
	}

	var out []domain.Trade
	skipped := 0
	for _, item := range items {
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
