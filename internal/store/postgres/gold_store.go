package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coingraphai/eventgraph-ethdenver-2026-sub001/internal/domain"
)

// GoldStore implements domain.GoldStore using PostgreSQL.
type GoldStore struct {
	pool *pgxpool.Pool
}

// NewGoldStore creates a new GoldStore backed by the given connection pool.
func NewGoldStore(pool *pgxpool.Pool) *GoldStore {
	return &GoldStore{pool: pool}
}

// WriteSnapshot appends one timestamped materialization of a gold table.
func (s *GoldStore) WriteSnapshot(ctx context.Context, table string, snapshotTime time.Time, payload []byte) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO gold_snapshots (table_name, snapshot_time, payload)
		VALUES ($1, $2, $3)`, table, snapshotTime, payload)
	if err != nil {
		return fmt.Errorf("postgres: write gold snapshot %s: %w", table, err)
	}
	return nil
}

// ReadSnapshot returns the latest snapshot of a table, or the latest
// at-or-before the given time when at is non-nil.
func (s *GoldStore) ReadSnapshot(ctx context.Context, table string, at *time.Time) (domain.GoldSnapshot, error) {
	query := `SELECT id, table_name, snapshot_time, payload
		FROM gold_snapshots WHERE table_name = $1`
	args := []any{table}
	if at != nil {
		query += " AND snapshot_time <= $2"
		args = append(args, *at)
	}
	query += " ORDER BY snapshot_time DESC LIMIT 1"

	var snap domain.GoldSnapshot
	err := s.pool.QueryRow(ctx, query, args...).Scan(
		&snap.ID, &snap.Table, &snap.SnapshotTime, &snap.Payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.GoldSnapshot{}, domain.ErrNotFound
		}
		return domain.GoldSnapshot{}, fmt.Errorf("postgres: read gold snapshot %s: %w", table, err)
	}
	return snap, nil
}

// UpsertMarketDetails writes the hot per-market read rows, latest-wins.
func (s *GoldStore) UpsertMarketDetails(ctx context.Context, details []domain.MarketDetail) error {
	if len(details) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, d := range details {
		payload, err := json.Marshal(d)
		if err != nil {
			return fmt.Errorf("postgres: marshal market detail %s/%s: %w", d.Venue, d.VenueMarketID, err)
		}
		batch.Queue(`
			INSERT INTO gold_market_details (venue, venue_market_id, payload, snapshot_time)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (venue, venue_market_id) DO UPDATE SET
				payload = EXCLUDED.payload,
				snapshot_time = EXCLUDED.snapshot_time`,
			d.Venue, d.VenueMarketID, payload, d.SnapshotTime)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range details {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: upsert market detail batch item %d: %w", i, err)
		}
	}
	return nil
}

// GetMarketDetail returns the hot detail row for one market.
func (s *GoldStore) GetMarketDetail(ctx context.Context, venueName, venueMarketID string) (domain.MarketDetail, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx, `
		SELECT payload FROM gold_market_details
		WHERE venue = $1 AND venue_market_id = $2`, venueName, venueMarketID).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.MarketDetail{}, domain.ErrNotFound
		}
		return domain.MarketDetail{}, fmt.Errorf("postgres: get market detail %s/%s: %w", venueName, venueMarketID, err)
	}
	var d domain.MarketDetail
	if err := json.Unmarshal(payload, &d); err != nil {
		return domain.MarketDetail{}, fmt.Errorf("postgres: unmarshal market detail %s/%s: %w", venueName, venueMarketID, err)
	}
	return d, nil
}

// InsertCandles appends OHLC buckets, absorbing already-built ones. Returns
// how many were new.
func (s *GoldStore) InsertCandles(ctx context.Context, candles []domain.Candle) (int, error) {
	if len(candles) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, c := range candles {
		batch.Queue(`
			INSERT INTO gold_candles (venue, venue_market_id, interval, bucket_start, open, high, low, close, samples)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (venue, venue_market_id, interval, bucket_start) DO UPDATE SET
				open = EXCLUDED.open,
				high = EXCLUDED.high,
				low = EXCLUDED.low,
				close = EXCLUDED.close,
				samples = EXCLUDED.samples`,
			c.Venue, c.VenueMarketID, c.Interval, c.BucketStart,
			c.Open, c.High, c.Low, c.Close, c.Samples)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	written := 0
	for i := range candles {
		tag, err := br.Exec()
		if err != nil {
			return written, fmt.Errorf("postgres: insert candle batch item %d: %w", i, err)
		}
		written += int(tag.RowsAffected())
	}
	return written, nil
}

// ListCandles returns the OHLC series for one market and interval, oldest
// first.
func (s *GoldStore) ListCandles(ctx context.Context, venueName, venueMarketID, interval string, since, until *time.Time) ([]domain.Candle, error) {
	query := `SELECT venue, venue_market_id, interval, bucket_start, open, high, low, close, samples
		FROM gold_candles
		WHERE venue = $1 AND venue_market_id = $2 AND interval = $3`
	args := []any{venueName, venueMarketID, interval}
	argIdx := 4

	if since != nil {
		query += fmt.Sprintf(" AND bucket_start >= $%d", argIdx)
		args = append(args, *since)
		argIdx++
	}
	if until != nil {
		query += fmt.Sprintf(" AND bucket_start <= $%d", argIdx)
		args = append(args, *until)
	}
	query += " ORDER BY bucket_start ASC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list candles %s/%s: %w", venueName, venueMarketID, err)
	}
	defer rows.Close()

	var candles []domain.Candle
	for rows.Next() {
		var c domain.Candle
		if err := rows.Scan(&c.Venue, &c.VenueMarketID, &c.Interval, &c.BucketStart,
			&c.Open, &c.High, &c.Low, &c.Close, &c.Samples); err != nil {
			return nil, fmt.Errorf("postgres: scan candle: %w", err)
		}
		candles = append(candles, c)
	}
	return candles, rows.Err()
}

// DeleteSnapshotsBefore prunes aged snapshot rows per the retention policy.
// Market details and candles are not pruned; they are bounded by market count
// and re-aggregated in place.
func (s *GoldStore) DeleteSnapshotsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		"DELETE FROM gold_snapshots WHERE snapshot_time < $1", cutoff)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete gold snapshots: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Compile-time interface check.
var _ domain.GoldStore = (*GoldStore)(nil)
