// Package gold materializes read-optimized aggregates from silver. Each
// table is computed and committed independently; a failed table is reported
// and the rest still land.
package gold

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/coingraphai/eventgraph-ethdenver-2026-sub001/internal/domain"
)

// Config tunes the aggregator.
type Config struct {
	// TopN bounds the top-markets leaderboard.
	TopN int
	// ActivityWindow is the rolling window of the activity feed.
	ActivityWindow time.Duration
	// CandleLookback bounds how far back RunCandles rebuilds buckets.
	CandleLookback time.Duration
}

// Report records per-table outcomes of one aggregation pass.
type Report struct {
	Tables   int
	Failures int
	Errors   map[string]error
}

func (r *Report) record(table string, err error) {
	r.Tables++
	if err != nil {
		r.Failures++
		if r.Errors == nil {
			r.Errors = make(map[string]error)
		}
		r.Errors[table] = err
	}
}

// Aggregator drives silver-to-gold materialization.
type Aggregator struct {
	markets domain.MarketStore
	prices  domain.PriceStore
	trades  domain.TradeStore
	gold    domain.GoldStore
	cfg     Config
	log     *slog.Logger
	now     func() time.Time
}

// NewAggregator creates an Aggregator over the given stores.
func NewAggregator(markets domain.MarketStore, prices domain.PriceStore, trades domain.TradeStore, gold domain.GoldStore, cfg Config, log *slog.Logger) *Aggregator {
	if cfg.TopN <= 0 {
		cfg.TopN = 20
	}
	if cfg.ActivityWindow <= 0 {
		cfg.ActivityWindow = time.Hour
	}
	if cfg.CandleLookback <= 0 {
		cfg.CandleLookback = 24 * time.Hour
	}
	return &Aggregator{
		markets: markets,
		prices:  prices,
		trades:  trades,
		gold:    gold,
		cfg:     cfg,
		log:     log.With("component", "gold"),
		now:     time.Now,
	}
}

// RunHotAggregations refreshes the tables read on every dashboard hit:
// per-market details, the top-markets leaderboard, and the activity feed.
func (a *Aggregator) RunHotAggregations(ctx context.Context) Report {
	var rep Report
	snapTime := a.now().UTC()

	all, err := a.markets.List(ctx, domain.MarketFilter{})
	if err != nil {
		// Every hot table derives from the market list; nothing can land.
		for _, t := range []string{"market_details", domain.GoldTableTopMarkets, domain.GoldTableActivity} {
			rep.record(t, fmt.Errorf("gold: list markets: %w", err))
		}
		a.logReport("hot", rep)
		return rep
	}

	rep.record("market_details", a.buildMarketDetails(ctx, all, snapTime))
	rep.record(domain.GoldTableTopMarkets, a.buildTopMarkets(ctx, all, snapTime))
	rep.record(domain.GoldTableActivity, a.buildActivityFeed(ctx, snapTime))

	a.logReport("hot", rep)
	return rep
}

// RunWarmAggregations refreshes the slower-moving analytical tables, each as
// a new timestamped snapshot row.
func (a *Aggregator) RunWarmAggregations(ctx context.Context) Report {
	var rep Report
	snapTime := a.now().UTC()

	all, err := a.markets.List(ctx, domain.MarketFilter{})
	if err != nil {
		for _, t := range []string{
			domain.GoldTableCategoryDist, domain.GoldTablePlatformComparison,
			domain.GoldTableTrendingCategories, domain.GoldTableMetricsSummary,
		} {
			rep.record(t, fmt.Errorf("gold: list markets: %w", err))
		}
		a.logReport("warm", rep)
		return rep
	}

	rep.record(domain.GoldTableCategoryDist, a.buildCategoryDistribution(ctx, all, snapTime))
	rep.record(domain.GoldTablePlatformComparison, a.buildPlatformComparison(ctx, all, snapTime))
	rep.record(domain.GoldTableTrendingCategories, a.buildTrendingCategories(ctx, all, snapTime))
	rep.record(domain.GoldTableMetricsSummary, a.buildMetricsSummary(ctx, all, snapTime))

	a.logReport("warm", rep)
	return rep
}

// RunCandles rebuilds OHLC buckets for every active market over the
// configured lookback. Rebuilding an existing bucket is an upsert, so the
// pass is idempotent.
func (a *Aggregator) RunCandles(ctx context.Context, interval time.Duration) (int, error) {
	if interval <= 0 {
		return 0, fmt.Errorf("gold: candle interval must be positive, got %s", interval)
	}
	active, err := a.markets.List(ctx, domain.MarketFilter{Status: domain.MarketStatusActive})
	if err != nil {
		return 0, fmt.Errorf("gold: list active markets: %w", err)
	}

	since := a.now().UTC().Add(-a.cfg.CandleLookback)
	label := interval.String()
	written := 0
	for _, m := range active {
		snaps, err := a.prices.ListByMarket(ctx, m.Venue, m.VenueMarketID, &since, nil, 0)
		if err != nil {
			return written, fmt.Errorf("gold: prices for %s/%s: %w", m.Venue, m.VenueMarketID, err)
		}
		candles := BuildCandles(m.Venue, m.VenueMarketID, label, interval, snaps)
		n, err := a.gold.InsertCandles(ctx, candles)
		if err != nil {
			return written, fmt.Errorf("gold: insert candles for %s/%s: %w", m.Venue, m.VenueMarketID, err)
		}
		written += n
	}
	a.log.Info("candle pass complete", "interval", label, "markets", len(active), "written", written)
	return written, nil
}

// RunCleanup prunes snapshot rows older than the retention cutoff.
func (a *Aggregator) RunCleanup(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := a.now().UTC().Add(-retention)
	deleted, err := a.gold.DeleteSnapshotsBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("gold: cleanup: %w", err)
	}
	if deleted > 0 {
		a.log.Info("pruned gold snapshots", "deleted", deleted, "cutoff", cutoff)
	}
	return deleted, nil
}

func (a *Aggregator) buildMarketDetails(ctx context.Context, all []domain.Market, snapTime time.Time) error {
	details := make([]domain.MarketDetail, 0, len(all))
	for _, m := range all {
		details = append(details, domain.MarketDetail{
			Venue:         m.Venue,
			VenueMarketID: m.VenueMarketID,
			Title:         m.Title,
			Category:      m.Category,
			Status:        string(m.Status),
			YesPrice:      m.YesPrice,
			NoPrice:       m.NoPrice,
			Volume:        m.Volume,
			Volume24h:     m.Volume24h,
			Liquidity:     m.Liquidity,
			EndDate:       m.EndDate,
			SnapshotTime:  snapTime,
		})
	}
	return a.gold.UpsertMarketDetails(ctx, details)
}

func (a *Aggregator) buildTopMarkets(ctx context.Context, all []domain.Market, snapTime time.Time) error {
	sorted := make([]domain.Market, len(all))
	copy(sorted, all)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Volume > sorted[j].Volume })
	if len(sorted) > a.cfg.TopN {
		sorted = sorted[:a.cfg.TopN]
	}

	entries := make([]TopMarketEntry, 0, len(sorted))
	for _, m := range sorted {
		entries = append(entries, TopMarketEntry{
			Venue:         m.Venue,
			VenueMarketID: m.VenueMarketID,
			Title:         m.Title,
			Category:      m.Category,
			YesPrice:      m.YesPrice,
			Volume:        m.Volume,
			Volume24h:     m.Volume24h,
			Liquidity:     m.Liquidity,
		})
	}
	return a.writeSnapshot(ctx, domain.GoldTableTopMarkets, snapTime, entries)
}

func (a *Aggregator) buildActivityFeed(ctx context.Context, snapTime time.Time) error {
	since := snapTime.Add(-a.cfg.ActivityWindow)
	trades, err := a.trades.List(ctx, domain.TradeFilter{Since: &since})
	if err != nil {
		return fmt.Errorf("list trades: %w", err)
	}

	feed := ActivityFeed{
		WindowStart: since,
		WindowEnd:   snapTime,
		TradeCount:  len(trades),
	}
	for _, t := range trades {
		feed.USDVolume += t.USDValue
		if t.Side == domain.TradeSideSell {
			feed.SellCount++
		} else {
			feed.BuyCount++
		}
	}
	if len(trades) > 100 {
		trades = trades[:100]
	}
	feed.Recent = trades

	return a.writeSnapshot(ctx, domain.GoldTableActivity, snapTime, feed)
}

func (a *Aggregator) buildCategoryDistribution(ctx context.Context, all []domain.Market, snapTime time.Time) error {
	byCat := make(map[string]*CategoryStat)
	var totalVolume float64
	for _, m := range all {
		cat := m.Category
		if cat == "" {
			cat = "uncategorized"
		}
		s, ok := byCat[cat]
		if !ok {
			s = &CategoryStat{Category: cat}
			byCat[cat] = s
		}
		s.Markets++
		s.Volume += m.Volume
		totalVolume += m.Volume
	}

	stats := make([]CategoryStat, 0, len(byCat))
	for _, s := range byCat {
		if totalVolume > 0 {
			s.Share = s.Volume / totalVolume
		}
		stats = append(stats, *s)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Volume > stats[j].Volume })

	return a.writeSnapshot(ctx, domain.GoldTableCategoryDist, snapTime, stats)
}

func (a *Aggregator) buildPlatformComparison(ctx context.Context, all []domain.Market, snapTime time.Time) error {
	byVenue := make(map[string]*PlatformStat)
	for _, m := range all {
		s, ok := byVenue[m.Venue]
		if !ok {
			s = &PlatformStat{Venue: m.Venue}
			byVenue[m.Venue] = s
		}
		s.Markets++
		if m.Status == domain.MarketStatusActive {
			s.ActiveMarkets++
		}
		s.Volume += m.Volume
		s.Volume24h += m.Volume24h
		s.Liquidity += m.Liquidity
	}

	stats := make([]PlatformStat, 0, len(byVenue))
	for _, s := range byVenue {
		stats = append(stats, *s)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Venue < stats[j].Venue })

	return a.writeSnapshot(ctx, domain.GoldTablePlatformComparison, snapTime, stats)
}

func (a *Aggregator) buildTrendingCategories(ctx context.Context, all []domain.Market, snapTime time.Time) error {
	byCat := make(map[string]*TrendingCategory)
	for _, m := range all {
		cat := m.Category
		if cat == "" {
			cat = "uncategorized"
		}
		s, ok := byCat[cat]
		if !ok {
			s = &TrendingCategory{Category: cat}
			byCat[cat] = s
		}
		s.Volume24h += m.Volume24h
		s.Volume += m.Volume
	}

	stats := make([]TrendingCategory, 0, len(byCat))
	for _, s := range byCat {
		// Score is the share of a category's all-time volume that traded in
		// the last day, so a small hot category can outrank a large cold one.
		if s.Volume > 0 {
			s.Score = s.Volume24h / s.Volume
		}
		stats = append(stats, *s)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Score != stats[j].Score {
			return stats[i].Score > stats[j].Score
		}
		return stats[i].Volume24h > stats[j].Volume24h
	})

	return a.writeSnapshot(ctx, domain.GoldTableTrendingCategories, snapTime, stats)
}

func (a *Aggregator) buildMetricsSummary(ctx context.Context, all []domain.Market, snapTime time.Time) error {
	summary := MetricsSummary{
		TotalMarkets: len(all),
		GeneratedAt:  snapTime,
	}
	venues := make(map[string]struct{})
	for _, m := range all {
		venues[m.Venue] = struct{}{}
		if m.Status == domain.MarketStatusActive {
			summary.ActiveMarkets++
		}
		summary.TotalVolume += m.Volume
		summary.Volume24h += m.Volume24h
		summary.Liquidity += m.Liquidity
	}
	summary.Venues = len(venues)

	return a.writeSnapshot(ctx, domain.GoldTableMetricsSummary, snapTime, summary)
}

func (a *Aggregator) writeSnapshot(ctx context.Context, table string, snapTime time.Time, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", table, err)
	}
	return a.gold.WriteSnapshot(ctx, table, snapTime, data)
}

func (a *Aggregator) logReport(pass string, rep Report) {
	if rep.Failures > 0 {
		a.log.Warn("aggregation pass finished with failures",
			"pass", pass, "tables", rep.Tables, "failures", rep.Failures)
		for table, err := range rep.Errors {
			a.log.Warn("table failed", "pass", pass, "table", table, "error", err)
		}
		return
	}
	a.log.Info("aggregation pass complete", "pass", pass, "tables", rep.Tables)
}

// BuildCandles buckets an ascending price series into OHLC candles. Empty
// buckets produce no candle.
func BuildCandles(venueName, venueMarketID, label string, interval time.Duration, snaps []domain.PriceSnapshot) []domain.Candle {
	if len(snaps) == 0 {
		return nil
	}

	var candles []domain.Candle
	var cur *domain.Candle
	for _, s := range snaps {
		bucket := s.SnapshotTime.Truncate(interval)
		if cur == nil || !cur.BucketStart.Equal(bucket) {
			if cur != nil {
				candles = append(candles, *cur)
			}
			cur = &domain.Candle{
				Venue:         venueName,
				VenueMarketID: venueMarketID,
				Interval:      label,
				BucketStart:   bucket,
				Open:          s.YesPrice,
				High:          s.YesPrice,
				Low:           s.YesPrice,
				Close:         s.YesPrice,
				Samples:       1,
			}
			continue
		}
		if s.YesPrice > cur.High {
			cur.High = s.YesPrice
		}
		if s.YesPrice < cur.Low {
			cur.Low = s.YesPrice
		}
		cur.Close = s.YesPrice
		cur.Samples++
	}
	candles = append(candles, *cur)
	return candles
}
