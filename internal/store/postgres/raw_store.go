package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coingraphai/eventgraph-ethdenver-2026-sub001/internal/bronze"
	"github.com/coingraphai/eventgraph-ethdenver-2026-sub001/internal/domain"
)

// RawStore implements domain.RawStore using PostgreSQL.
type RawStore struct {
	pool *pgxpool.Pool
}

// NewRawStore creates a new RawStore backed by the given connection pool.
func NewRawStore(pool *pgxpool.Pool) *RawStore {
	return &RawStore{pool: pool}
}

// Store writes one raw payload. Insertion is unconditional; the uniqueness
// constraint on (content_hash, venue) silently absorbs duplicates, and isNew
// tells the caller whether normalization has anything to do.
func (s *RawStore) Store(ctx context.Context, venueName, endpoint, params string, body []byte, fetchedAt time.Time) (string, bool, error) {
	hash := bronze.ContentHash(body)

	const query = `
		INSERT INTO raw_responses (venue, endpoint, params, body, content_hash, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (content_hash, venue) DO NOTHING`

	tag, err := s.pool.Exec(ctx, query, venueName, endpoint, params, body, hash, fetchedAt)
	if err != nil {
		return "", false, fmt.Errorf("postgres: store raw %s/%s: %w", venueName, endpoint, err)
	}
	return hash, tag.RowsAffected() > 0, nil
}

const rawCols = `id, venue, endpoint, params, body, content_hash, fetched_at, processed`

// ListUnprocessed returns up to limit bronze rows for a venue+endpoint that
// the normalizer has not consumed yet, oldest first.
func (s *RawStore) ListUnprocessed(ctx context.Context, venueName, endpoint string, limit int) ([]domain.RawResponse, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+rawCols+` FROM raw_responses
		 WHERE venue = $1 AND endpoint = $2 AND NOT processed
		 ORDER BY id ASC LIMIT $3`,
		venueName, endpoint, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list unprocessed raw: %w", err)
	}
	defer rows.Close()

	var out []domain.RawResponse
	for rows.Next() {
		var r domain.RawResponse
		if err := rows.Scan(&r.ID, &r.Venue, &r.Endpoint, &r.Params, &r.Body, &r.ContentHash, &r.FetchedAt, &r.Processed); err != nil {
			return nil, fmt.Errorf("postgres: scan raw row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// MarkProcessed flags rows the normalizer has consumed.
func (s *RawStore) MarkProcessed(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx,
		`UPDATE raw_responses SET processed = TRUE WHERE id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("postgres: mark raw processed: %w", err)
	}
	return nil
}

// ListBefore returns processed rows fetched before the cutoff, for archival.
func (s *RawStore) ListBefore(ctx context.Context, before time.Time, limit int) ([]domain.RawResponse, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+rawCols+` FROM raw_responses
		 WHERE processed AND fetched_at < $1
		 ORDER BY fetched_at ASC LIMIT $2`,
		before, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list raw before: %w", err)
	}
	defer rows.Close()

	var out []domain.RawResponse
	for rows.Next() {
		var r domain.RawResponse
		if err := rows.Scan(&r.ID, &r.Venue, &r.Endpoint, &r.Params, &r.Body, &r.ContentHash, &r.FetchedAt, &r.Processed); err != nil {
			return nil, fmt.Errorf("postgres: scan raw row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteBefore prunes processed rows fetched before the cutoff. Callers
// archive first; deletion is the explicit second step.
func (s *RawStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM raw_responses WHERE processed AND fetched_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete raw before: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Compile-time interface check.
var _ domain.RawStore = (*RawStore)(nil)
