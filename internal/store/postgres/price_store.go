package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coingraphai/eventgraph-ethdenver-2026-sub001/internal/domain"
)

// PriceStore implements domain.PriceStore using PostgreSQL.
type PriceStore struct {
	pool *pgxpool.Pool
}

// NewPriceStore creates a new PriceStore backed by the given connection pool.
func NewPriceStore(pool *pgxpool.Pool) *PriceStore {
	return &PriceStore{pool: pool}
}

// InsertBatch appends price snapshots, silently absorbing points already
// present at the same (venue, market, time). Returns how many were new.
func (s *PriceStore) InsertBatch(ctx context.Context, snaps []domain.PriceSnapshot) (int, error) {
	if len(snaps) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, p := range snaps {
		batch.Queue(`
			INSERT INTO price_snapshots (venue, venue_market_id, snapshot_time, yes_price, no_price)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (venue, venue_market_id, snapshot_time) DO NOTHING`,
			p.Venue, p.VenueMarketID, p.SnapshotTime, p.YesPrice, p.NoPrice)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	inserted := 0
	for i := range snaps {
		tag, err := br.Exec()
		if err != nil {
			return inserted, fmt.Errorf("postgres: insert price batch item %d: %w", i, err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

// ListByMarket returns the price series for one market, oldest first.
func (s *PriceStore) ListByMarket(ctx context.Context, venueName, venueMarketID string, since, until *time.Time, limit int) ([]domain.PriceSnapshot, error) {
	query := `SELECT id, venue, venue_market_id, snapshot_time, yes_price, no_price
		FROM price_snapshots WHERE venue = $1 AND venue_market_id = $2`
	args := []any{venueName, venueMarketID}
	argIdx := 3

	if since != nil {
		query += fmt.Sprintf(" AND snapshot_time >= $%d", argIdx)
		args = append(args, *since)
		argIdx++
	}
	if until != nil {
		query += fmt.Sprintf(" AND snapshot_time <= $%d", argIdx)
		args = append(args, *until)
		argIdx++
	}

	query += " ORDER BY snapshot_time ASC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list prices %s/%s: %w", venueName, venueMarketID, err)
	}
	defer rows.Close()

	var snaps []domain.PriceSnapshot
	for rows.Next() {
		var p domain.PriceSnapshot
		if err := rows.Scan(&p.ID, &p.Venue, &p.VenueMarketID, &p.SnapshotTime, &p.YesPrice, &p.NoPrice); err != nil {
			return nil, fmt.Errorf("postgres: scan price snapshot: %w", err)
		}
		snaps = append(snaps, p)
	}
	return snaps, rows.Err()
}

// Compile-time interface check.
var _ domain.PriceStore = (*PriceStore)(nil)
