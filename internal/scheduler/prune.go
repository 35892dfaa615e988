package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	HistoryPruneJobName = "color_history_prune"
	historyPruneTimeout = 2 * time.Minute
)

var ErrInvalidRetention = errors.New("history retention must be positive")

// PruneQueries is the subset of generated queries the prune job needs.
type PruneQueries interface {
	PruneColorEdits(ctx context.Context, before time.Time) (int64, error)
}

// PruneHistory deletes color edits recorded before now minus retention and
// returns how many rows were removed.
func PruneHistory(ctx context.Context, q PruneQueries, retention time.Duration, now time.Time) (int64, error) {
	if q == nil {
		return 0, fmt.Errorf("prune history: queries not configured")
	}
	if retention <= 0 {
		return 0, ErrInvalidRetention
	}
	cutoff := now.UTC().Add(-retention)
	deleted, err := q.PruneColorEdits(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune color edits before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return deleted, nil
}

// RegisterHistoryPrune schedules PruneHistory on the singleton scheduler.
func RegisterHistoryPrune(q PruneQueries, retention time.Duration, cronExpr string) error {
	if q == nil {
		return fmt.Errorf("history prune job requires queries")
	}
	if retention <= 0 {
		return ErrInvalidRetention
	}

	jobLogger := log.With().
		Str("component", "history_prune_job").
		Str("job_name", HistoryPruneJobName).
		Str("cron", cronExpr).
		Dur("retention", retention).
		Logger()

	_, err := AddJob(HistoryPruneJobName, cronExpr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), historyPruneTimeout)
		defer cancel()
		ctx = jobLogger.WithContext(ctx)

		deleted, err := PruneHistory(ctx, q, retention, time.Now())
		if err != nil {
			jobLogger.Error().Err(err).Msg("Failed to prune color history")
			return
		}
		jobLogger.Info().Int64("deleted", deleted).Msg("Pruned color history")
	})
	return err
}
