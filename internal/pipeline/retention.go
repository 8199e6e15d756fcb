package pipeline

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// RunPruner deletes stored run reports
type RunPruner interface {
	DeleteRunsOlderThan(t time.Time) (int64, error)
}

// RetentionJob deletes run reports older than the retention window
type RetentionJob struct {
	store     RunPruner
	retention time.Duration
	now       func() time.Time
	log       zerolog.Logger
}

// NewRetentionJob creates a new run-report retention job
func NewRetentionJob(store RunPruner, retention time.Duration, log zerolog.Logger) *RetentionJob {
	return &RetentionJob{
		store:     store,
		retention: retention,
		now:       time.Now,
		log:       log.With().Str("component", "retention").Logger(),
	}
}

// Run deletes the run reports started before now minus the retention window
func (j *RetentionJob) Run() error {
	cutoff := j.now().Add(-j.retention)
	deleted, err := j.store.DeleteRunsOlderThan(cutoff)
	if err != nil {
		return fmt.Errorf("failed to prune run reports: %w", err)
	}
	j.log.Info().Int64("deleted", deleted).Time("cutoff", cutoff).Msg("Pruned run reports")
	return nil
}

// Name returns the job name
func (j *RetentionJob) Name() string {
	return "prune_run_reports"
}
