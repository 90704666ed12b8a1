// Package history records enrichment runs so operators can see what was
// processed, when, from which trigger, and whether it succeeded.
//
// Three stores implement Recorder: PostgresStore (pgx), SQLiteStore
// (modernc.org/sqlite) and MemoryStore. Open picks one from configuration.
package history

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/addcountry/internal/config"
)

// Source identifies what started a run.
type Source string

const (
	SourceBatch    Source = "batch"
	SourceHTTP     Source = "http"
	SourceSchedule Source = "schedule"
	SourceWatch    Source = "watch"
)

// Status is the outcome of a run.
type Status string

const (
	StatusOK     Status = "ok"
	StatusFailed Status = "failed"
)

// DefaultListLimit is used when List is called with a non-positive limit.
const DefaultListLimit = 50

// Run is one execution of the tabular or structured transform.
type Run struct {
	ID        uuid.UUID     `json:"id"`
	Kind      string        `json:"kind"`
	Source    Source        `json:"source"`
	Input     string        `json:"input"`
	Output    string        `json:"output,omitempty"`
	Records   int           `json:"records"`
	Status    Status        `json:"status"`
	Error     string        `json:"error,omitempty"`
	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"durationNs"`
}

// Recorder persists runs and lists the most recent ones, newest first.
type Recorder interface {
	Record(ctx context.Context, run Run) error
	List(ctx context.Context, limit int) ([]Run, error)
	Close() error
}

// prepare fills in the ID and start time when the caller left them empty.
func prepare(run Run) Run {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	run.StartedAt = run.StartedAt.UTC()
	return run
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}

// Open returns the Recorder selected by cfg.Driver.
func Open(ctx context.Context, cfg config.HistoryConfig) (Recorder, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", config.DriverMemory:
		return NewMemoryStore(cfg.MemoryLimit), nil
	case config.DriverSQLite:
		return OpenSQLite(ctx, cfg.SQLitePath)
	case config.DriverPostgres:
		return OpenPostgres(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown history driver %q", cfg.Driver)
	}
}

type ctxKey struct{}

// WithSource returns a context that tags runs started under it with src.
func WithSource(ctx context.Context, src Source) context.Context {
	return context.WithValue(ctx, ctxKey{}, src)
}

// SourceFromContext returns the Source stored by WithSource, or SourceBatch.
func SourceFromContext(ctx context.Context) Source {
	if src, ok := ctx.Value(ctxKey{}).(Source); ok {
		return src
	}
	return SourceBatch
}
