package history

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/addcountry/internal/config"
	"github.com/JonMunkholm/addcountry/internal/logging"
)

// PostgresStore persists runs in PostgreSQL through a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

const createRunsTable = `CREATE TABLE IF NOT EXISTS enrichment_runs (
	id UUID PRIMARY KEY,
	kind TEXT NOT NULL,
	source TEXT NOT NULL,
	input TEXT NOT NULL,
	output TEXT NOT NULL DEFAULT '',
	records INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	error TEXT NOT NULL DEFAULT '',
	started_at TIMESTAMPTZ NOT NULL,
	duration_ms BIGINT NOT NULL DEFAULT 0
)`

// OpenPostgres connects a pool with the configured limits, verifies the
// connection and creates the runs table if it is missing.
func OpenPostgres(ctx context.Context, cfg config.HistoryConfig) (*PostgresStore, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, createRunsTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create runs table: %w", err)
	}

	if u, err := url.Parse(cfg.URL); err == nil {
		logging.FromContext(ctx).Info("connected to history database", "name", strings.TrimPrefix(u.Path, "/"))
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Record(ctx context.Context, run Run) error {
	run = prepare(run)
	_, err := s.pool.Exec(ctx,
		`INSERT INTO enrichment_runs
			(id, kind, source, input, output, records, status, error, started_at, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		run.ID, run.Kind, string(run.Source), run.Input, run.Output,
		run.Records, string(run.Status), run.Error, run.StartedAt, run.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, kind, source, input, output, records, status, error, started_at, duration_ms
		FROM enrichment_runs ORDER BY started_at DESC LIMIT $1`,
		normalizeLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}

	runs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Run, error) {
		var (
			run        Run
			source     string
			status     string
			durationMs int64
		)
		err := row.Scan(&run.ID, &run.Kind, &source, &run.Input, &run.Output,
			&run.Records, &status, &run.Error, &run.StartedAt, &durationMs)
		run.Source = Source(source)
		run.Status = Status(status)
		run.Duration = time.Duration(durationMs) * time.Millisecond
		return run, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan runs: %w", err)
	}
	return runs, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
