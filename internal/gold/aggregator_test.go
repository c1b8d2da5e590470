package gold

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/coingraphai/eventgraph-ethdenver-2026-sub001/internal/domain"
)

func fp(v float64) *float64 { return &v }

// memMarkets serves a fixed market list.
type memMarkets struct {
	markets []domain.Market
	fail    bool
}

func (m *memMarkets) UpsertBatch(ctx context.Context, markets []domain.Market) (domain.UpsertResult, error) {
	return domain.UpsertResult{}, nil
}

func (m *memMarkets) GetByNaturalKey(ctx context.Context, venue, id string) (domain.Market, error) {
	return domain.Market{}, domain.ErrNotFound
}

func (m *memMarkets) List(ctx context.Context, filter domain.MarketFilter) ([]domain.Market, error) {
	if m.fail {
		return nil, errors.New("db down")
	}
	if filter.Status == "" {
		return m.markets, nil
	}
	var out []domain.Market
	for _, mk := range m.markets {
		if mk.Status == filter.Status {
			out = append(out, mk)
		}
	}
	return out, nil
}

func (m *memMarkets) ListActive(ctx context.Context, venue string) ([]domain.Market, error) {
	return m.List(ctx, domain.MarketFilter{Status: domain.MarketStatusActive})
}

func (m *memMarkets) Count(ctx context.Context) (int64, error) {
	return int64(len(m.markets)), nil
}

// memPrices serves fixed snapshot series keyed by venue/market.
type memPrices struct {
	series map[string][]domain.PriceSnapshot
}

func (p *memPrices) InsertBatch(ctx context.Context, snaps []domain.PriceSnapshot) (int, error) {
	return len(snaps), nil
}

func (p *memPrices) ListByMarket(ctx context.Context, venue, id string, since, until *time.Time, limit int) ([]domain.PriceSnapshot, error) {
	return p.series[venue+"/"+id], nil
}

type memTrades struct {
	trades []domain.Trade
}

func (t *memTrades) InsertBatch(ctx context.Context, trades []domain.Trade) (int, error) {
	return len(trades), nil
}

func (t *memTrades) List(ctx context.Context, filter domain.TradeFilter) ([]domain.Trade, error) {
	return t.trades, nil
}

// memGold records what the aggregator writes.
type memGold struct {
	snapshots map[string][]domain.GoldSnapshot
	details   map[string]domain.MarketDetail
	candles   map[string]domain.Candle
}

func newMemGold() *memGold {
	return &memGold{
		snapshots: make(map[string][]domain.GoldSnapshot),
		details:   make(map[string]domain.MarketDetail),
		candles:   make(map[string]domain.Candle),
	}
}

func (g *memGold) WriteSnapshot(ctx context.Context, table string, snapshotTime time.Time, payload []byte) error {
	g.snapshots[table] = append(g.snapshots[table], domain.GoldSnapshot{
		Table: table, SnapshotTime: snapshotTime, Payload: payload,
	})
	return nil
}

func (g *memGold) ReadSnapshot(ctx context.Context, table string, at *time.Time) (domain.GoldSnapshot, error) {
	rows := g.snapshots[table]
	if len(rows) == 0 {
		return domain.GoldSnapshot{}, domain.ErrNotFound
	}
	return rows[len(rows)-1], nil
}

func (g *memGold) UpsertMarketDetails(ctx context.Context, details []domain.MarketDetail) error {
	for _, d := range details {
		g.details[d.Venue+"/"+d.VenueMarketID] = d
	}
	return nil
}

func (g *memGold) GetMarketDetail(ctx context.Context, venue, id string) (domain.MarketDetail, error) {
	d, ok := g.details[venue+"/"+id]
	if !ok {
		return domain.MarketDetail{}, domain.ErrNotFound
	}
	return d, nil
}

func (g *memGold) InsertCandles(ctx context.Context, candles []domain.Candle) (int, error) {
	for _, c := range candles {
		g.candles[c.Venue+"/"+c.VenueMarketID+"/"+c.Interval+"/"+c.BucketStart.String()] = c
	}
	return len(candles), nil
}

func (g *memGold) ListCandles(ctx context.Context, venue, id, interval string, since, until *time.Time) ([]domain.Candle, error) {
	var out []domain.Candle
	for _, c := range g.candles {
		if c.Venue == venue && c.VenueMarketID == id && c.Interval == interval {
			out = append(out, c)
		}
	}
	return out, nil
}

func (g *memGold) DeleteSnapshotsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	for table, rows := range g.snapshots {
		var keep []domain.GoldSnapshot
		for _, r := range rows {
			if r.SnapshotTime.Before(cutoff) {
				deleted++
			} else {
				keep = append(keep, r)
			}
		}
		g.snapshots[table] = keep
	}
	return deleted, nil
}

var goldNow = time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

func newTestAggregator(markets *memMarkets, prices *memPrices, trades *memTrades, store *memGold, cfg Config) *Aggregator {
	a := NewAggregator(markets, prices, trades, store, cfg, slog.Default())
	a.now = func() time.Time { return goldNow }
	return a
}

func TestBuildCandles(t *testing.T) {
	base := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	snaps := []domain.PriceSnapshot{
		{SnapshotTime: base.Add(5 * time.Minute), YesPrice: 0.50},
		{SnapshotTime: base.Add(20 * time.Minute), YesPrice: 0.58},
		{SnapshotTime: base.Add(40 * time.Minute), YesPrice: 0.45},
		{SnapshotTime: base.Add(55 * time.Minute), YesPrice: 0.52},
		// Next hour bucket.
		{SnapshotTime: base.Add(70 * time.Minute), YesPrice: 0.60},
	}

	candles := BuildCandles("polymarket", "m1", "1h0m0s", time.Hour, snaps)
	if len(candles) != 2 {
		t.Fatalf("len(candles) = %d, want 2", len(candles))
	}

	c := candles[0]
	if !c.BucketStart.Equal(base) {
		t.Errorf("bucket start = %v, want %v", c.BucketStart, base)
	}
	if c.Open != 0.50 || c.High != 0.58 || c.Low != 0.45 || c.Close != 0.52 {
		t.Errorf("OHLC = %g/%g/%g/%g, want 0.50/0.58/0.45/0.52", c.Open, c.High, c.Low, c.Close)
	}
	if c.Samples != 4 {
		t.Errorf("samples = %d, want 4", c.Samples)
	}

	c2 := candles[1]
	if c2.Open != 0.60 || c2.Close != 0.60 || c2.Samples != 1 {
		t.Errorf("second candle = %+v", c2)
	}
}

func TestBuildCandles_Empty(t *testing.T) {
	if got := BuildCandles("v", "m", "1h0m0s", time.Hour, nil); got != nil {
		t.Errorf("BuildCandles(empty) = %v, want nil", got)
	}
}

func TestBuildCandles_GapProducesNoEmptyBucket(t *testing.T) {
	base := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	snaps := []domain.PriceSnapshot{
		{SnapshotTime: base, YesPrice: 0.5},
		// Three silent hours.
		{SnapshotTime: base.Add(4 * time.Hour), YesPrice: 0.6},
	}
	candles := BuildCandles("v", "m", "1h0m0s", time.Hour, snaps)
	if len(candles) != 2 {
		t.Errorf("len(candles) = %d, want 2 (no synthetic empty buckets)", len(candles))
	}
}

func TestRunHotAggregations(t *testing.T) {
	markets := &memMarkets{markets: []domain.Market{
		{Venue: "polymarket", VenueMarketID: "p1", Title: "A?", Status: domain.MarketStatusActive, YesPrice: fp(0.5), Volume: 100},
		{Venue: "kalshi", VenueMarketID: "k1", Title: "B?", Status: domain.MarketStatusActive, YesPrice: fp(0.6), Volume: 900},
		{Venue: "kalshi", VenueMarketID: "k2", Title: "C?", Status: domain.MarketStatusClosed, Volume: 500},
	}}
	trades := &memTrades{trades: []domain.Trade{
		{Venue: "kalshi", VenueMarketID: "k1", Side: domain.TradeSideBuy, USDValue: 55, Timestamp: goldNow.Add(-10 * time.Minute)},
		{Venue: "kalshi", VenueMarketID: "k1", Side: domain.TradeSideSell, USDValue: 45, Timestamp: goldNow.Add(-20 * time.Minute)},
	}}
	store := newMemGold()
	a := newTestAggregator(markets, &memPrices{}, trades, store, Config{TopN: 2})

	rep := a.RunHotAggregations(context.Background())
	if rep.Failures != 0 {
		t.Fatalf("failures = %d: %v", rep.Failures, rep.Errors)
	}
	if rep.Tables != 3 {
		t.Errorf("tables = %d, want 3", rep.Tables)
	}

	// Market details are latest-wins per market.
	if _, err := store.GetMarketDetail(context.Background(), "kalshi", "k2"); err != nil {
		t.Errorf("closed market missing from details: %v", err)
	}

	// Top markets are capped and volume-sorted.
	snap, err := store.ReadSnapshot(context.Background(), domain.GoldTableTopMarkets, nil)
	if err != nil {
		t.Fatalf("top markets snapshot: %v", err)
	}
	var top []TopMarketEntry
	if err := json.Unmarshal(snap.Payload, &top); err != nil {
		t.Fatalf("unmarshal top markets: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("top entries = %d, want TopN=2", len(top))
	}
	if top[0].VenueMarketID != "k1" || top[1].VenueMarketID != "k2" {
		t.Errorf("top order = %s, %s, want k1, k2", top[0].VenueMarketID, top[1].VenueMarketID)
	}

	// Activity feed sums the window.
	snap, err = store.ReadSnapshot(context.Background(), domain.GoldTableActivity, nil)
	if err != nil {
		t.Fatalf("activity snapshot: %v", err)
	}
	var feed ActivityFeed
	if err := json.Unmarshal(snap.Payload, &feed); err != nil {
		t.Fatalf("unmarshal activity: %v", err)
	}
	if feed.TradeCount != 2 || feed.BuyCount != 1 || feed.SellCount != 1 {
		t.Errorf("feed counts = %d/%d/%d", feed.TradeCount, feed.BuyCount, feed.SellCount)
	}
	if feed.USDVolume != 100 {
		t.Errorf("usd volume = %g, want 100", feed.USDVolume)
	}
}

func TestRunHotAggregations_ListFailureFailsAllTables(t *testing.T) {
	a := newTestAggregator(&memMarkets{fail: true}, &memPrices{}, &memTrades{}, newMemGold(), Config{})

	rep := a.RunHotAggregations(context.Background())
	if rep.Tables != 3 || rep.Failures != 3 {
		t.Errorf("report = %d/%d, want 3 tables all failed", rep.Tables, rep.Failures)
	}
}

func TestRunWarmAggregations(t *testing.T) {
	markets := &memMarkets{markets: []domain.Market{
		{Venue: "polymarket", VenueMarketID: "p1", Category: "sports", Status: domain.MarketStatusActive, Volume: 300, Volume24h: 30},
		{Venue: "kalshi", VenueMarketID: "k1", Category: "sports", Status: domain.MarketStatusActive, Volume: 100, Volume24h: 70},
		{Venue: "kalshi", VenueMarketID: "k2", Category: "economics", Status: domain.MarketStatusActive, Volume: 600, Volume24h: 6},
	}}
	store := newMemGold()
	a := newTestAggregator(markets, &memPrices{}, &memTrades{}, store, Config{})

	rep := a.RunWarmAggregations(context.Background())
	if rep.Failures != 0 {
		t.Fatalf("failures = %d: %v", rep.Failures, rep.Errors)
	}
	if rep.Tables != 4 {
		t.Errorf("tables = %d, want 4", rep.Tables)
	}

	snap, err := store.ReadSnapshot(context.Background(), domain.GoldTableCategoryDist, nil)
	if err != nil {
		t.Fatalf("category snapshot: %v", err)
	}
	var cats []CategoryStat
	if err := json.Unmarshal(snap.Payload, &cats); err != nil {
		t.Fatalf("unmarshal categories: %v", err)
	}
	if len(cats) != 2 {
		t.Fatalf("categories = %d, want 2", len(cats))
	}
	var shareSum float64
	for _, c := range cats {
		shareSum += c.Share
	}
	if shareSum < 0.999 || shareSum > 1.001 {
		t.Errorf("share sum = %g, want 1", shareSum)
	}
}

func TestRunCandlesAndCleanup(t *testing.T) {
	markets := &memMarkets{markets: []domain.Market{
		{Venue: "polymarket", VenueMarketID: "p1", Status: domain.MarketStatusActive},
	}}
	base := goldNow.Add(-2 * time.Hour)
	prices := &memPrices{series: map[string][]domain.PriceSnapshot{
		"polymarket/p1": {
			{Venue: "polymarket", VenueMarketID: "p1", SnapshotTime: base, YesPrice: 0.5},
			{Venue: "polymarket", VenueMarketID: "p1", SnapshotTime: base.Add(30 * time.Minute), YesPrice: 0.55},
			{Venue: "polymarket", VenueMarketID: "p1", SnapshotTime: base.Add(90 * time.Minute), YesPrice: 0.6},
		},
	}}
	store := newMemGold()
	a := newTestAggregator(markets, prices, &memTrades{}, store, Config{})

	written, err := a.RunCandles(context.Background(), time.Hour)
	if err != nil {
		t.Fatalf("RunCandles: %v", err)
	}
	if written != 2 {
		t.Errorf("written = %d, want 2 buckets", written)
	}

	// Rebuilding is idempotent: same buckets, not duplicates.
	if _, err := a.RunCandles(context.Background(), time.Hour); err != nil {
		t.Fatalf("RunCandles again: %v", err)
	}
	candles, _ := store.ListCandles(context.Background(), "polymarket", "p1", "1h0m0s", nil, nil)
	if len(candles) != 2 {
		t.Errorf("stored candles = %d, want 2 after rebuild", len(candles))
	}

	// Cleanup prunes old snapshot rows.
	store.snapshots["top_markets"] = []domain.GoldSnapshot{
		{Table: "top_markets", SnapshotTime: goldNow.Add(-48 * time.Hour)},
		{Table: "top_markets", SnapshotTime: goldNow},
	}
	deleted, err := a.RunCleanup(context.Background(), 24*time.Hour)
	if err != nil {
		t.Fatalf("RunCleanup: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}
	if len(store.snapshots["top_markets"]) != 1 {
		t.Errorf("remaining snapshots = %d, want 1", len(store.snapshots["top_markets"]))
	}
}

func TestRunCandles_BadInterval(t *testing.T) {
	a := newTestAggregator(&memMarkets{}, &memPrices{}, &memTrades{}, newMemGold(), Config{})
	if _, err := a.RunCandles(context.Background(), 0); err == nil {
		t.Errorf("want error for zero interval")
	}
}
