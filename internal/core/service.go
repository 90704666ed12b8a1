package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/addcountry/internal/config"
	"github.com/JonMunkholm/addcountry/internal/history"
	"github.com/JonMunkholm/addcountry/internal/logging"
)

// ServiceConfig holds transform options and run limits.
type ServiceConfig struct {
	Table    TableOptions
	Document DocumentOptions

	MaxConcurrent int
	MaxWait       time.Duration
}

// ServiceConfigFrom derives a ServiceConfig from application configuration.
func ServiceConfigFrom(cfg *config.Config) (ServiceConfig, error) {
	policy, err := ParseColumnPolicy(cfg.Enrich.CountryColumnPolicy)
	if err != nil {
		return ServiceConfig{}, err
	}
	return ServiceConfig{
		Table:         TableOptions{Policy: policy},
		Document:      DocumentOptions{ListField: cfg.Enrich.ListField},
		MaxConcurrent: cfg.Upload.MaxConcurrent,
		MaxWait:       cfg.Upload.MaxWaitTime,
	}, nil
}

// PathsFrom resolves the configured file names against the base directory.
func PathsFrom(cfg config.FilesConfig) Paths {
	return Paths{
		CSVInput:   cfg.CSVInput,
		CSVOutput:  cfg.CSVOutput,
		JSONInput:  cfg.JSONInput,
		JSONOutput: cfg.JSONOutput,
	}.Resolve(cfg.BaseDir)
}

// Service runs the tabular and structured transforms and records every run.
type Service struct {
	cfg     ServiceConfig
	history history.Recorder
	limiter *RunLimiter
}

// NewService creates a Service. A nil recorder selects an in-memory one.
func NewService(cfg ServiceConfig, rec history.Recorder) *Service {
	if rec == nil {
		rec = history.NewMemoryStore(0)
	}
	return &Service{
		cfg:     cfg,
		history: rec,
		limiter: NewRunLimiter(cfg.MaxConcurrent, cfg.MaxWait),
	}
}

// Limiter returns the limiter shared by every caller that starts runs
// concurrently.
func (s *Service) Limiter() *RunLimiter {
	return s.limiter
}

// RecentRuns returns up to limit runs, newest first.
func (s *Service) RecentRuns(ctx context.Context, limit int) ([]history.Run, error) {
	return s.history.List(ctx, limit)
}

// EnrichCSV reads a table from r and writes the enriched table to w.
// Nothing is written to w unless the transform succeeds.
func (s *Service) EnrichCSV(ctx context.Context, r io.Reader, w io.Writer) (*Result, error) {
	return s.track(ctx, KindCSV, "stream", "stream", func(ctx context.Context) (int, error) {
		enriched, n, err := s.transformTable(r)
		if err != nil {
			return 0, err
		}
		return n, WriteTable(w, enriched)
	})
}

// EnrichJSON reads a document from r and writes the enriched document to w.
// Nothing is written to w unless the transform succeeds.
func (s *Service) EnrichJSON(ctx context.Context, r io.Reader, w io.Writer) (*Result, error) {
	return s.track(ctx, KindJSON, "stream", "stream", func(ctx context.Context) (int, error) {
		doc, n, err := s.transformDocument(r)
		if err != nil {
			return 0, err
		}
		return n, WriteDocument(w, doc)
	})
}

// EnrichCSVFile enriches the table at in and atomically replaces out.
func (s *Service) EnrichCSVFile(ctx context.Context, in, out string) (*Result, error) {
	return s.track(ctx, KindCSV, in, out, func(ctx context.Context) (int, error) {
		f, err := os.Open(in)
		if err != nil {
			return 0, err
		}
		defer f.Close()

		enriched, n, err := s.transformTable(f)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", in, err)
		}

		err = writeFileAtomic(out, func(w io.Writer) error {
			return WriteTable(w, enriched)
		})
		return n, err
	})
}

// EnrichJSONFile enriches the document at in and atomically replaces out.
func (s *Service) EnrichJSONFile(ctx context.Context, in, out string) (*Result, error) {
	return s.track(ctx, KindJSON, in, out, func(ctx context.Context) (int, error) {
		f, err := os.Open(in)
		if err != nil {
			return 0, err
		}
		defer f.Close()

		doc, n, err := s.transformDocument(f)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", in, err)
		}

		err = writeFileAtomic(out, func(w io.Writer) error {
			return WriteDocument(w, doc)
		})
		return n, err
	})
}

// RunBatch enriches the CSV pair, then the JSON pair.
//
// A CSV without an Address column, or with no rows at all, is reported in
// BatchReport.Failures and the JSON step still runs. Any other failure stops
// the batch and is returned along with the report so far.
func (s *Service) RunBatch(ctx context.Context, paths Paths) (*BatchReport, error) {
	report := &BatchReport{}

	steps := []struct {
		kind    Kind
		in, out string
		run     func(context.Context, string, string) (*Result, error)
	}{
		{KindCSV, paths.CSVInput, paths.CSVOutput, s.EnrichCSVFile},
		{KindJSON, paths.JSONInput, paths.JSONOutput, s.EnrichJSONFile},
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		res, err := step.run(ctx, step.in, step.out)
		if err != nil {
			if isReportable(err) {
				report.Failures = append(report.Failures, Failure{Kind: step.kind, Input: step.in, Err: err})
				continue
			}
			return report, err
		}
		report.Results = append(report.Results, res)
	}

	return report, nil
}

func (s *Service) transformTable(r io.Reader) (*Table, int, error) {
	t, err := ReadTable(r)
	if err != nil {
		return nil, 0, err
	}
	return TransformTable(t, s.cfg.Table)
}

func (s *Service) transformDocument(r io.Reader) (*Object, int, error) {
	doc, err := ReadDocument(r)
	if err != nil {
		return nil, 0, err
	}
	n, err := TransformDocument(doc, s.cfg.Document)
	if err != nil {
		return nil, 0, err
	}
	return doc, n, nil
}

// track runs fn as one recorded run. The run is written to history whether it
// succeeds or fails; a history failure is logged and never fails the run.
func (s *Service) track(ctx context.Context, kind Kind, input, output string, fn func(context.Context) (int, error)) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	runID := uuid.New()
	ctx = logging.WithRunID(ctx, runID.String())
	logger := logging.WithFields(ctx, "kind", kind, "input", input)

	start := time.Now()
	records, err := fn(ctx)
	elapsed := time.Since(start)

	run := history.Run{
		ID:        runID,
		Kind:      string(kind),
		Source:    history.SourceFromContext(ctx),
		Input:     input,
		Output:    output,
		Records:   records,
		Status:    history.StatusOK,
		StartedAt: start,
		Duration:  elapsed,
	}

	switch {
	case err == nil:
		logger.Info("run completed", "output", output, "records", records, "duration_ms", elapsed.Milliseconds())
	case errors.Is(err, ErrMissingColumn) || errors.Is(err, ErrEmptyFile):
		logger.Warn("run skipped", "error", err)
	default:
		logger.Error("run failed", "error", err)
	}

	if err != nil {
		run.Status = history.StatusFailed
		run.Error = err.Error()
		run.Output = ""
		run.Records = 0
	}

	if recErr := s.history.Record(context.WithoutCancel(ctx), run); recErr != nil {
		logger.Warn("failed to record run", "error", recErr)
	}

	if err != nil {
		return nil, err
	}
	return &Result{
		RunID:    runID.String(),
		Kind:     kind,
		Input:    input,
		Output:   output,
		Records:  records,
		Duration: elapsed,
	}, nil
}
