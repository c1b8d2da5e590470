package domain

import "time"

// RunKind distinguishes full-backfill runs from incremental ones.
type RunKind string

const (
	// RunKindStatic paginates every active-listing endpoint to exhaustion.
	RunKindStatic RunKind = "static"
	// RunKindDelta covers only recently active/changed markets plus a short
	// price-history tail.
	RunKindDelta RunKind = "delta"
)

// RunStatus is the state of an ingest run. A run left in running forever is
// a crash; the scheduler sweeps it to failed by timeout on a later tick.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// StageCounts records per-stage outcomes of one run.
type StageCounts struct {
	PagesFetched    int `json:"pages_fetched"`
	BronzeNew       int `json:"bronze_new"`
	BronzeDuplicate int `json:"bronze_duplicate"`
	SilverInserted  int `json:"silver_inserted"`
	SilverUpdated   int `json:"silver_updated"`
	SilverSkipped   int `json:"silver_skipped"`
	GoldTables      int `json:"gold_tables"`
	GoldFailures    int `json:"gold_failures"`
}

// IngestRun is one append-only row of orchestrator run history. It is the
// basis for health monitoring: staleness and failure are observable without
// log access.
type IngestRun struct {
	ID         string
	Venue      string
	Kind       RunKind
	Status     RunStatus
	Counts     StageCounts
	Error      string
	StartedAt  time.Time
	FinishedAt *time.Time
}
