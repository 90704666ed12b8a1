// Package trigger starts batch runs without a caller: on a cron schedule or
// when an input file changes on disk.
//
// Triggered runs share the service's run limiter. A trigger that finds the
// limiter full skips its run instead of queueing behind interactive work;
// the next tick or file change will pick the inputs up again.
package trigger

import (
	"context"

	"github.com/JonMunkholm/addcountry/internal/core"
	"github.com/JonMunkholm/addcountry/internal/history"
	"github.com/JonMunkholm/addcountry/internal/logging"
)

// BatchRunner runs the CSV and JSON transforms as one batch.
type BatchRunner interface {
	RunBatch(ctx context.Context, paths core.Paths) (*core.BatchReport, error)
	Limiter() *core.RunLimiter
}

// runBatch runs one batch tagged with src and logs the outcome. It reports
// whether the batch was started.
func runBatch(ctx context.Context, runner BatchRunner, paths core.Paths, src history.Source) bool {
	ctx = history.WithSource(ctx, src)
	logger := logging.WithFields(ctx, "source", src)

	limiter := runner.Limiter()
	if !limiter.TryAcquire() {
		logger.Warn("batch skipped, run limit reached", "active", limiter.ActiveCount())
		return false
	}
	defer limiter.Release()

	report, err := runner.RunBatch(ctx, paths)
	if err != nil {
		logger.Error("batch failed", "error", err)
		return true
	}
	for _, f := range report.Failures {
		logger.Warn("batch step failed", "kind", f.Kind, "input", f.Input, "error", f.Err)
	}
	logger.Info("batch completed", "outputs", report.Outputs())
	return true
}
