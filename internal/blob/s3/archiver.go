package s3blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/coingraphai/eventgraph-ethdenver-2026-sub001/internal/domain"
)

// BlobWriter is the narrow upload surface the archiver needs.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// Archiver moves aged bronze rows to object storage and prunes them from
// Postgres. Every row is uploaded before anything is deleted; an upload
// failure aborts the pass with nothing pruned, so a retry re-uploads
// idempotently (keys are content-addressed).
type Archiver struct {
	raws      domain.RawStore
	writer    BlobWriter
	batchSize int
	log       *slog.Logger
}

// NewArchiver creates an Archiver over the given raw store and writer.
func NewArchiver(raws domain.RawStore, writer BlobWriter, log *slog.Logger) *Archiver {
	return &Archiver{
		raws:      raws,
		writer:    writer,
		batchSize: 500,
		log:       log.With("component", "archive"),
	}
}

// archiveKey files a row under bronze/<venue>/<yyyy-mm-dd>/<hash>.json.
func archiveKey(r domain.RawResponse) string {
	return fmt.Sprintf("bronze/%s/%s/%s.json",
		r.Venue, r.FetchedAt.UTC().Format("2006-01-02"), r.ContentHash)
}

// ArchiveBefore uploads every bronze row fetched before the cutoff and then
// deletes them. Returns how many rows were archived.
func (a *Archiver) ArchiveBefore(ctx context.Context, before time.Time) (int64, error) {
	var archived int64
	for {
		rows, err := a.raws.ListBefore(ctx, before, a.batchSize)
		if err != nil {
			return archived, fmt.Errorf("s3blob: list bronze rows: %w", err)
		}
		if len(rows) == 0 {
			break
		}

		var batchCutoff time.Time
		for _, r := range rows {
			if err := a.writer.Put(ctx, archiveKey(r), bytes.NewReader(r.Body), "application/json"); err != nil {
				return archived, fmt.Errorf("s3blob: archive row %d: %w", r.ID, err)
			}
			if r.FetchedAt.After(batchCutoff) {
				batchCutoff = r.FetchedAt
			}
		}

		// Prune only up to what this batch verifiably uploaded.
		deleted, err := a.raws.DeleteBefore(ctx, batchCutoff.Add(time.Nanosecond))
		if err != nil {
			return archived, fmt.Errorf("s3blob: prune archived rows: %w", err)
		}
		archived += deleted
		if len(rows) < a.batchSize {
			break
		}
	}

	if archived > 0 {
		a.log.Info("bronze archive pass complete", "archived", archived, "cutoff", before)
	}
	return archived, nil
}
