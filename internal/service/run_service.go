package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/coingraphai/eventgraph-ethdenver-2026-sub001/internal/domain"
)

// RunTrigger is the narrow orchestrator surface the run service needs.
type RunTrigger interface {
	TriggerRun(ctx context.Context, venueName string, kind domain.RunKind) (string, error)
}

// RunService serves run history and manual triggers.
type RunService struct {
	runs    domain.RunStore
	trigger RunTrigger
	log     *slog.Logger
}

// NewRunService creates a RunService. trigger may be nil in server-only mode,
// in which case manual triggers are rejected.
func NewRunService(runs domain.RunStore, trigger RunTrigger, log *slog.Logger) *RunService {
	return &RunService{
		runs:    runs,
		trigger: trigger,
		log:     log.With("component", "run_service"),
	}
}

// Recent returns run history, newest first.
func (s *RunService) Recent(ctx context.Context, venueName string, limit int) ([]domain.IngestRun, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	runs, err := s.runs.ListRecent(ctx, venueName, limit)
	if err != nil {
		return nil, fmt.Errorf("service: list runs: %w", err)
	}
	return runs, nil
}

// Trigger starts a manual run and returns its ID. A run already in flight
// for the venue surfaces as domain.ErrRunActive.
func (s *RunService) Trigger(ctx context.Context, venueName string, kind domain.RunKind) (string, error) {
	if s.trigger == nil {
		return "", fmt.Errorf("service: ingestion is not running in this mode")
	}
	if kind != domain.RunKindStatic && kind != domain.RunKindDelta {
		return "", fmt.Errorf("service: unknown run kind %q", kind)
	}
	runID, err := s.trigger.TriggerRun(ctx, venueName, kind)
	if err != nil {
		return "", err
	}
	s.log.Info("manual run triggered", "venue", venueName, "kind", kind, "run_id", runID)
	return runID, nil
}
