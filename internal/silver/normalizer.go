// Package silver turns bronze payloads into canonical entities. The
// normalizer reads unprocessed raw rows, decodes them with the owning
// venue's codec, and upserts the results. A malformed record is skipped and
// counted; a storage failure aborts the batch so its rows stay unprocessed
// and are retried on the next pass.
package silver

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/coingraphai/eventgraph-ethdenver-2026-sub001/internal/domain"
	"github.com/coingraphai/eventgraph-ethdenver-2026-sub001/internal/venue/kalshi"
	"github.com/coingraphai/eventgraph-ethdenver-2026-sub001/internal/venue/polymarket"
)

// Codec decodes one venue's raw page bodies into canonical entities. Each
// decode returns the entities plus how many records were skipped as
// malformed.
type Codec struct {
	Markets func(body []byte, fetchedAt time.Time) ([]domain.Market, int, error)
	Prices  func(body []byte, params url.Values) ([]domain.PriceSnapshot, int, error)
	Trades  func(body []byte) ([]domain.Trade, int, error)
}

// Codecs returns the codec registry for all supported venues.
func Codecs() map[string]Codec {
	return map[string]Codec{
		polymarket.VenueName: {
			Markets: polymarket.DecodeMarkets,
			Prices:  polymarket.DecodePrices,
			Trades:  polymarket.DecodeTrades,
		},
		kalshi.VenueName: {
			Markets: kalshi.DecodeMarkets,
			Prices:  kalshi.DecodePrices,
			Trades:  kalshi.DecodeTrades,
		},
	}
}

// Result accumulates what a normalize pass did.
type Result struct {
	Inserted int
	Updated  int
	Skipped  int
}

func (r *Result) add(other Result) {
	r.Inserted += other.Inserted
	r.Updated += other.Updated
	r.Skipped += other.Skipped
}

// Normalizer drives bronze-to-silver processing.
type Normalizer struct {
	raws      domain.RawStore
	markets   domain.MarketStore
	prices    domain.PriceStore
	trades    domain.TradeStore
	codecs    map[string]Codec
	batchSize int
	log       *slog.Logger
}

// NewNormalizer creates a Normalizer over the given stores. batchSize bounds
// how many bronze rows one pass pulls at a time.
func NewNormalizer(raws domain.RawStore, markets domain.MarketStore, prices domain.PriceStore, trades domain.TradeStore, batchSize int, log *slog.Logger) *Normalizer {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Normalizer{
		raws:      raws,
		markets:   markets,
		prices:    prices,
		trades:    trades,
		codecs:    Codecs(),
		batchSize: batchSize,
		log:       log.With("component", "silver"),
	}
}

// ProcessMarkets normalizes all unprocessed market pages for one venue.
func (n *Normalizer) ProcessMarkets(ctx context.Context, venueName string) (Result, error) {
	codec, ok := n.codecs[venueName]
	if !ok || codec.Markets == nil {
		return Result{}, fmt.Errorf("silver: no market codec for venue %q", venueName)
	}

	var total Result
	for {
		rows, err := n.raws.ListUnprocessed(ctx, venueName, domain.EndpointMarkets, n.batchSize)
		if err != nil {
			return total, fmt.Errorf("silver: list unprocessed markets: %w", err)
		}
		if len(rows) == 0 {
			return total, nil
		}

		var markets []domain.Market
		var ids []int64
		batch := Result{}
		for _, row := range rows {
			decoded, skipped, err := codec.Markets(row.Body, row.FetchedAt)
			if err != nil {
				// An undecodable page is one skip; the row is consumed so it
				// cannot wedge the queue.
				n.log.Warn("dropping undecodable market page",
					"venue", venueName, "raw_id", row.ID, "error", err)
				batch.Skipped++
				ids = append(ids, row.ID)
				continue
			}
			batch.Skipped += skipped
			markets = append(markets, decoded...)
			ids = append(ids, row.ID)
		}

		res, err := n.markets.UpsertBatch(ctx, markets)
		if err != nil {
			return total, fmt.Errorf("silver: upsert markets: %w", err)
		}
		batch.Inserted = res.Inserted
		batch.Updated = res.Updated

		if err := n.raws.MarkProcessed(ctx, ids); err != nil {
			return total, fmt.Errorf("silver: mark processed: %w", err)
		}
		total.add(batch)
	}
}

// ProcessPrices normalizes all unprocessed price-history pages for one venue.
func (n *Normalizer) ProcessPrices(ctx context.Context, venueName string) (Result, error) {
	codec, ok := n.codecs[venueName]
	if !ok || codec.Prices == nil {
		return Result{}, fmt.Errorf("silver: no price codec for venue %q", venueName)
	}

	var total Result
	for {
		rows, err := n.raws.ListUnprocessed(ctx, venueName, domain.EndpointPrices, n.batchSize)
		if err != nil {
			return total, fmt.Errorf("silver: list unprocessed prices: %w", err)
		}
		if len(rows) == 0 {
			return total, nil
		}

		var snaps []domain.PriceSnapshot
		var ids []int64
		batch := Result{}
		for _, row := range rows {
			params, perr := url.ParseQuery(row.Params)
			if perr != nil {
				params = url.Values{}
			}
			decoded, skipped, err := codec.Prices(row.Body, params)
			if err != nil {
				n.log.Warn("dropping undecodable price page",
					"venue", venueName, "raw_id", row.ID, "error", err)
				batch.Skipped++
				ids = append(ids, row.ID)
				continue
			}
			batch.Skipped += skipped
			snaps = append(snaps, decoded...)
			ids = append(ids, row.ID)
		}

		inserted, err := n.prices.InsertBatch(ctx, snaps)
		if err != nil {
			return total, fmt.Errorf("silver: insert price snapshots: %w", err)
		}
		batch.Inserted = inserted
		batch.Skipped += len(snaps) - inserted

		if err := n.raws.MarkProcessed(ctx, ids); err != nil {
			return total, fmt.Errorf("silver: mark processed: %w", err)
		}
		total.add(batch)
	}
}

// ProcessTrades normalizes all unprocessed trade pages for one venue.
func (n *Normalizer) ProcessTrades(ctx context.Context, venueName string) (Result, error) {
	codec, ok := n.codecs[venueName]
	if !ok || codec.Trades == nil {
		return Result{}, fmt.Errorf("silver: no trade codec for venue %q", venueName)
	}

	var total Result
	for {
		rows, err := n.raws.ListUnprocessed(ctx, venueName, domain.EndpointTrades, n.batchSize)
		if err != nil {
			return total, fmt.Errorf("silver: list unprocessed trades: %w", err)
		}
		if len(rows) == 0 {
			return total, nil
		}

		var trades []domain.Trade
		var ids []int64
		batch := Result{}
		for _, row := range rows {
			decoded, skipped, err := codec.Trades(row.Body)
			if err != nil {
				n.log.Warn("dropping undecodable trade page",
					"venue", venueName, "raw_id", row.ID, "error", err)
				batch.Skipped++
				ids = append(ids, row.ID)
				continue
			}
			batch.Skipped += skipped
			trades = append(trades, decoded...)
			ids = append(ids, row.ID)
		}

		inserted, err := n.trades.InsertBatch(ctx, trades)
		if err != nil {
			return total, fmt.Errorf("silver: insert trades: %w", err)
		}
		batch.Inserted = inserted

		if err := n.raws.MarkProcessed(ctx, ids); err != nil {
			return total, fmt.Errorf("silver: mark processed: %w", err)
		}
		total.add(batch)
	}
}

// ProcessAll runs markets, prices, and trades for one venue in dependency
// order and returns the combined result.
func (n *Normalizer) ProcessAll(ctx context.Context, venueName string) (Result, error) {
	var total Result

	res, err := n.ProcessMarkets(ctx, venueName)
	total.add(res)
	if err != nil {
		return total, err
	}

	res, err = n.ProcessPrices(ctx, venueName)
	total.add(res)
	if err != nil {
		return total, err
	}

	res, err = n.ProcessTrades(ctx, venueName)
	total.add(res)
	if err != nil {
		return total, err
	}

	n.log.Info("normalize pass complete", "venue", venueName,
		"inserted", total.Inserted, "updated", total.Updated, "skipped", total.Skipped)
	return total, nil
}
