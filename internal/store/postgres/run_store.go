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

// RunStore implements domain.RunStore using PostgreSQL.
type RunStore struct {
	pool *pgxpool.Pool
}

// NewRunStore creates a new RunStore backed by the given connection pool.
func NewRunStore(pool *pgxpool.Pool) *RunStore {
	return &RunStore{pool: pool}
}

// Create records the start of a run.
func (s *RunStore) Create(ctx context.Context, run domain.IngestRun) error {
	counts, err := json.Marshal(run.Counts)
	if err != nil {
		return fmt.Errorf("postgres: marshal run counts: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO ingest_runs (id, venue, kind, status, counts, error, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		run.ID, run.Venue, string(run.Kind), string(run.Status), counts, run.Error, run.StartedAt)
	if err != nil {
		return fmt.Errorf("postgres: create run %s: %w", run.ID, err)
	}
	return nil
}

// Finish records the terminal state of a run.
func (s *RunStore) Finish(ctx context.Context, id string, status domain.RunStatus, counts domain.StageCounts, errMsg string) error {
	payload, err := json.Marshal(counts)
	if err != nil {
		return fmt.Errorf("postgres: marshal run counts: %w", err)
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE ingest_runs
		SET status = $2, counts = $3, error = $4, finished_at = NOW()
		WHERE id = $1`,
		id, string(status), payload, errMsg)
	if err != nil {
		return fmt.Errorf("postgres: finish run %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: finish run %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ActiveRun returns the currently running run for a venue, if any.
func (s *RunStore) ActiveRun(ctx context.Context, venueName string) (domain.IngestRun, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, venue, kind, status, counts, error, started_at, finished_at
		FROM ingest_runs
		WHERE venue = $1 AND status = 'running'
		ORDER BY started_at DESC
		LIMIT 1`, venueName)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.IngestRun{}, domain.ErrNotFound
		}
		return domain.IngestRun{}, fmt.Errorf("postgres: active run for %s: %w", venueName, err)
	}
	return run, nil
}

// FailStale sweeps running rows older than the timeout to failed. A row can
// only get stuck like this when the process died mid-run.
func (s *RunStore) FailStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	tag, err := s.pool.Exec(ctx, `
		UPDATE ingest_runs
		SET status = 'failed', error = 'timed out', finished_at = NOW()
		WHERE status = 'running' AND started_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("postgres: fail stale runs: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ListRecent returns run history for a venue, newest first. An empty venue
// returns history across all venues.
func (s *RunStore) ListRecent(ctx context.Context, venueName string, limit int) ([]domain.IngestRun, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, venue, kind, status, counts, error, started_at, finished_at
		FROM ingest_runs`
	args := []any{}
	if venueName != "" {
		query += " WHERE venue = $1"
		args = append(args, venueName)
	}
	query += fmt.Sprintf(" ORDER BY started_at DESC LIMIT $%d", len(args)+1)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.IngestRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func scanRun(row pgx.Row) (domain.IngestRun, error) {
	var run domain.IngestRun
	var kind, status string
	var counts []byte
	if err := row.Scan(&run.ID, &run.Venue, &kind, &status, &counts, &run.Error,
		&run.StartedAt, &run.FinishedAt); err != nil {
		return domain.IngestRun{}, err
	}
	run.Kind = domain.RunKind(kind)
	run.Status = domain.RunStatus(status)
	if len(counts) > 0 {
		if err := json.Unmarshal(counts, &run.Counts); err != nil {
			return domain.IngestRun{}, fmt.Errorf("unmarshal counts: %w", err)
		}
	}
	return run, nil
}

// Compile-time interface check.
var _ domain.RunStore = (*RunStore)(nil)
