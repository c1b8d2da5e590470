package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coingraphai/eventgraph-ethdenver-2026-sub001/internal/domain"
)

// MarketStore implements domain.MarketStore using PostgreSQL.
type MarketStore struct {
	pool *pgxpool.Pool
}

// NewMarketStore creates a new MarketStore backed by the given connection pool.
func NewMarketStore(pool *pgxpool.Pool) *MarketStore {
	return &MarketStore{pool: pool}
}

// marketUpsert is last-write-wins for metadata, but the price columns only
// take the incoming value when it comes from a fetch at least as new as the
// one currently stored, and never when the incoming value is NULL. This is
// what makes overlapping delta runs safe: an older pass applied after a
// newer one cannot regress a price.
const marketUpsert = `
	INSERT INTO markets (
		venue, venue_market_id, title, category, status,
		yes_price, no_price, volume, volume_24h, liquidity,
		price_updated_at, venue_created_at, end_date, extra,
		created_at, updated_at
	) VALUES (
		$1, $2, $3, $4, $5,
		$6, $7, $8, $9, $10,
		$11, $12, $13, $14,
		NOW(), NOW()
	)
	ON CONFLICT (venue, venue_market_id) DO UPDATE SET
		title            = EXCLUDED.title,
		category         = EXCLUDED.category,
		status           = EXCLUDED.status,
		volume           = EXCLUDED.volume,
		volume_24h       = EXCLUDED.volume_24h,
		liquidity        = EXCLUDED.liquidity,
		venue_created_at = COALESCE(EXCLUDED.venue_created_at, markets.venue_created_at),
		end_date         = COALESCE(EXCLUDED.end_date, markets.end_date),
		extra            = COALESCE(EXCLUDED.extra, markets.extra),
		yes_price = CASE
			WHEN EXCLUDED.yes_price IS NOT NULL
			 AND (markets.price_updated_at IS NULL
			   OR EXCLUDED.price_updated_at >= markets.price_updated_at)
			THEN EXCLUDED.yes_price ELSE markets.yes_price END,
		no_price = CASE
			WHEN EXCLUDED.no_price IS NOT NULL
			 AND (markets.price_updated_at IS NULL
			   OR EXCLUDED.price_updated_at >= markets.price_updated_at)
			THEN EXCLUDED.no_price ELSE markets.no_price END,
		price_updated_at = CASE
			WHEN EXCLUDED.yes_price IS NOT NULL
			 AND (markets.price_updated_at IS NULL
			   OR EXCLUDED.price_updated_at >= markets.price_updated_at)
			THEN EXCLUDED.price_updated_at ELSE markets.price_updated_at END,
		updated_at = NOW()
	RETURNING (xmax = 0) AS inserted`

// UpsertBatch inserts or updates markets keyed by (venue, venue_market_id)
// in a single pgx batch and reports how many rows were new versus updated.
func (s *MarketStore) UpsertBatch(ctx context.Context, markets []domain.Market) (domain.UpsertResult, error) {
	var res domain.UpsertResult
	if len(markets) == 0 {
		return res, nil
	}

	batch := &pgx.Batch{}
	for _, m := range markets {
		batch.Queue(marketUpsert,
			m.Venue, m.VenueMarketID, m.Title, m.Category, string(m.Status),
			m.YesPrice, m.NoPrice, m.Volume, m.Volume24h, m.Liquidity,
			m.PriceUpdatedAt, m.VenueCreatedAt, m.EndDate, m.Extra,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range markets {
		var inserted bool
		if err := br.QueryRow().Scan(&inserted); err != nil {
			return res, fmt.Errorf("postgres: upsert market batch item %d: %w", i, err)
		}
		if inserted {
			res.Inserted++
		} else {
			res.Updated++
		}
	}
	return res, nil
}

const marketCols = `id, venue, venue_market_id, title, category, status,
	yes_price, no_price, volume, volume_24h, liquidity,
	price_updated_at, venue_created_at, end_date, extra, created_at, updated_at`

func scanMarket(row pgx.Row) (domain.Market, error) {
	var m domain.Market
	var status string
	err := row.Scan(
		&m.ID, &m.Venue, &m.VenueMarketID, &m.Title, &m.Category, &status,
		&m.YesPrice, &m.NoPrice, &m.Volume, &m.Volume24h, &m.Liquidity,
		&m.PriceUpdatedAt, &m.VenueCreatedAt, &m.EndDate, &m.Extra,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return domain.Market{}, err
	}
	m.Status = domain.MarketStatus(status)
	return m, nil
}

// GetByNaturalKey retrieves a market by (venue, venue_market_id).
func (s *MarketStore) GetByNaturalKey(ctx context.Context, venueName, venueMarketID string) (domain.Market, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+marketCols+` FROM markets WHERE venue = $1 AND venue_market_id = $2`,
		venueName, venueMarketID)
	m, err := scanMarket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Market{}, domain.ErrNotFound
		}
		return domain.Market{}, fmt.Errorf("postgres: get market %s/%s: %w", venueName, venueMarketID, err)
	}
	return m, nil
}

// List returns markets matching the filter, newest first.
func (s *MarketStore) List(ctx context.Context, f domain.MarketFilter) ([]domain.Market, error) {
	query := `SELECT ` + marketCols + ` FROM markets WHERE TRUE`
	args := []any{}
	argIdx := 1

	if f.Venue != "" {
		query += fmt.Sprintf(" AND venue = $%d", argIdx)
		args = append(args, f.Venue)
		argIdx++
	}
	if f.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, string(f.Status))
		argIdx++
	}
	if f.Since != nil {
		query += fmt.Sprintf(" AND updated_at >= $%d", argIdx)
		args = append(args, *f.Since)
		argIdx++
	}
	if f.Until != nil {
		query += fmt.Sprintf(" AND updated_at <= $%d", argIdx)
		args = append(args, *f.Until)
		argIdx++
	}

	query += " ORDER BY volume DESC, id ASC"

	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, f.Limit)
		argIdx++
	}
	if f.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, f.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list markets: %w", err)
	}
	defer rows.Close()

	var markets []domain.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan market: %w", err)
		}
		markets = append(markets, m)
	}
	return markets, rows.Err()
}

// ListActive returns every active market on a venue, for the matching
// engine and delta runs.
func (s *MarketStore) ListActive(ctx context.Context, venueName string) ([]domain.Market, error) {
	return s.List(ctx, domain.MarketFilter{
		Venue:  venueName,
		Status: domain.MarketStatusActive,
	})
}

// Count returns the total number of markets.
func (s *MarketStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM markets").Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres: count markets: %w", err)
	}
	return count, nil
}

// Compile-time interface check.
var _ domain.MarketStore = (*MarketStore)(nil)
