package domain

import (
	"context"
	"time"
)

// MarketFilter narrows market queries for the read surface.
type MarketFilter struct {
	Venue  string
	Status MarketStatus
	Since  *time.Time
	Until  *time.Time
	Limit  int
	Offset int
}

// TradeFilter narrows trade queries for the read surface.
type TradeFilter struct {
	Venue         string
	VenueMarketID string
	Since         *time.Time
	Until         *time.Time
	Limit         int
}

// RawStore is the bronze tier: append-only, content-addressed raw payloads.
type RawStore interface {
	// Store writes a raw payload and reports whether the row was actually
	// new. An identical (canonical hash, venue) payload is absorbed silently.
	Store(ctx context.Context, venue, endpoint, params string, body []byte, fetchedAt time.Time) (hash string, isNew bool, err error)
	ListUnprocessed(ctx context.Context, venue, endpoint string, limit int) ([]RawResponse, error)
	MarkProcessed(ctx context.Context, ids []int64) error
	// ListBefore and DeleteBefore support cold archival of aged rows.
	ListBefore(ctx context.Context, before time.Time, limit int) ([]RawResponse, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// UpsertResult reports what a batch upsert actually did.
type UpsertResult struct {
	Inserted int
	Updated  int
}

// MarketStore is the silver market table.
type MarketStore interface {
	UpsertBatch(ctx context.Context, markets []Market) (UpsertResult, error)
	GetByNaturalKey(ctx context.Context, venue, venueMarketID string) (Market, error)
	List(ctx context.Context, filter MarketFilter) ([]Market, error)
	ListActive(ctx context.Context, venue string) ([]Market, error)
	Count(ctx context.Context) (int64, error)
}

// PriceStore is the silver price-snapshot time series.
type PriceStore interface {
	InsertBatch(ctx context.Context, snaps []PriceSnapshot) (int, error)
	ListByMarket(ctx context.Context, venue, venueMarketID string, since, until *time.Time, limit int) ([]PriceSnapshot, error)
}

// TradeStore is the silver trade table.
type TradeStore interface {
	InsertBatch(ctx context.Context, trades []Trade) (int, error)
	List(ctx context.Context, filter TradeFilter) ([]Trade, error)
}

// RunStore records orchestrator run history, append-only.
type RunStore interface {
	Create(ctx context.Context, run IngestRun) error
	Finish(ctx context.Context, id string, status RunStatus, counts StageCounts, errMsg string) error
	ActiveRun(ctx context.Context, venue string) (IngestRun, error)
	// FailStale marks running rows older than the timeout as failed and
	// returns how many were swept.
	FailStale(ctx context.Context, olderThan time.Duration) (int64, error)
	ListRecent(ctx context.Context, venue string, limit int) ([]IngestRun, error)
}

// GoldStore persists aggregator output.
type GoldStore interface {
	WriteSnapshot(ctx context.Context, table string, snapshotTime time.Time, payload []byte) error
	// ReadSnapshot returns the latest snapshot, or the latest at-or-before
	// the given time when at is non-nil.
	ReadSnapshot(ctx context.Context, table string, at *time.Time) (GoldSnapshot, error)
	UpsertMarketDetails(ctx context.Context, details []MarketDetail) error
	GetMarketDetail(ctx context.Context, venue, venueMarketID string) (MarketDetail, error)
	InsertCandles(ctx context.Context, candles []Candle) (int, error)
	ListCandles(ctx context.Context, venue, venueMarketID, interval string, since, until *time.Time) ([]Candle, error)
	DeleteSnapshotsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
