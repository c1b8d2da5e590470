package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coingraphai/eventgraph-ethdenver-2026-sub001/internal/domain"
)

// TradeStore implements domain.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *pgxpool.Pool
}

// NewTradeStore creates a new TradeStore backed by the given connection pool.
func NewTradeStore(pool *pgxpool.Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// InsertBatch appends trades, deduplicated by hash. Returns how many were new.
func (s *TradeStore) InsertBatch(ctx context.Context, trades []domain.Trade) (int, error) {
	if len(trades) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, t := range trades {
		batch.Queue(`
			INSERT INTO trades (venue, venue_market_id, timestamp, side, price, quantity, usd_value, maker, taker, dedup_hash)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (dedup_hash) DO NOTHING`,
			t.Venue, t.VenueMarketID, t.Timestamp, string(t.Side),
			t.Price, t.Quantity, t.USDValue, t.Maker, t.Taker, t.DedupHash)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	inserted := 0
	for i := range trades {
		tag, err := br.Exec()
		if err != nil {
			return inserted, fmt.Errorf("postgres: insert trade batch item %d: %w", i, err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

// List returns trades matching the filter, newest first.
func (s *TradeStore) List(ctx context.Context, f domain.TradeFilter) ([]domain.Trade, error) {
	query := `SELECT id, venue, venue_market_id, timestamp, side, price, quantity, usd_value, maker, taker, dedup_hash
		FROM trades WHERE TRUE`
	args := []any{}
	argIdx := 1

	if f.Venue != "" {
		query += fmt.Sprintf(" AND venue = $%d", argIdx)
		args = append(args, f.Venue)
		argIdx++
	}
	if f.VenueMarketID != "" {
		query += fmt.Sprintf(" AND venue_market_id = $%d", argIdx)
		args = append(args, f.VenueMarketID)
		argIdx++
	}
	if f.Since != nil {
		query += fmt.Sprintf(" AND timestamp >= $%d", argIdx)
		args = append(args, *f.Since)
		argIdx++
	}
	if f.Until != nil {
		query += fmt.Sprintf(" AND timestamp <= $%d", argIdx)
		args = append(args, *f.Until)
		argIdx++
	}

	query += " ORDER BY timestamp DESC"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, f.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades: %w", err)
	}
	defer rows.Close()

	var trades []domain.Trade
	for rows.Next() {
		var t domain.Trade
		var side string
		if err := rows.Scan(&t.ID, &t.Venue, &t.VenueMarketID, &t.Timestamp, &side,
			&t.Price, &t.Quantity, &t.USDValue, &t.Maker, &t.Taker, &t.DedupHash); err != nil {
			return nil, fmt.Errorf("postgres: scan trade: %w", err)
		}
		t.Side = domain.TradeSide(side)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// Compile-time interface check.
var _ domain.TradeStore = (*TradeStore)(nil)
