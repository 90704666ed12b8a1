package trigger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/JonMunkholm/addcountry/internal/core"
	"github.com/JonMunkholm/addcountry/internal/history"
)

// Scheduler runs the batch on a cron schedule.
type Scheduler struct {
	cron   *cron.Cron
	runner BatchRunner
	paths  core.Paths
	spec   string
	ctx    context.Context
}

// NewScheduler parses spec (standard five-field cron or a descriptor such
// as "@hourly") and registers the batch job. Call Start to begin firing.
func NewScheduler(spec string, runner BatchRunner, paths core.Paths) (*Scheduler, error) {
	s := &Scheduler{
		cron:   cron.New(),
		runner: runner,
		paths:  paths,
		spec:   spec,
		ctx:    context.Background(),
	}
	if _, err := s.cron.AddFunc(spec, s.fire); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start begins firing. Runs use ctx, so cancelling it aborts a batch in
// progress; Stop prevents further runs.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx = ctx
	s.cron.Start()
	slog.Info("batch schedule started", "schedule", s.spec, "next", s.Next())
}

// Stop halts the schedule. The returned context is done once a run that
// was already executing has finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// Next returns the time of the next scheduled run, or "" before Start.
func (s *Scheduler) Next() string {
	entries := s.cron.Entries()
	if len(entries) == 0 || entries[0].Next.IsZero() {
		return ""
	}
	return entries[0].Next.Format("2006-01-02 15:04:05 MST")
}

func (s *Scheduler) fire() {
	runBatch(s.ctx, s.runner, s.paths, history.SourceSchedule)
}
