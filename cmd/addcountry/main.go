// Command addcountry enriches the exhibitor CSV and JSON files in the base
// directory with a country derived from each address, then exits.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/addcountry/internal/config"
	"github.com/JonMunkholm/addcountry/internal/core"
	"github.com/JonMunkholm/addcountry/internal/history"
	"github.com/JonMunkholm/addcountry/internal/logging"
)

var kindLabels = map[core.Kind]string{
	core.KindCSV:  "CSV",
	core.KindJSON: "JSON",
}

func main() {
	// A .env file fills in unset variables; the real environment wins.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Getenv, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one batch and returns the process exit code.
func run(ctx context.Context, getenv func(string) string, stdout, stderr io.Writer) int {
	cfg, err := config.LoadFrom(getenv)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	logging.Setup(stderr, cfg.Logging.Level, cfg.Logging.Format)

	svcCfg, err := core.ServiceConfigFrom(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	rec, err := history.Open(ctx, cfg.History)
	if err != nil {
		slog.Error("failed to open run history", "driver", cfg.History.Driver, "error", err)
		return 1
	}
	defer rec.Close()

	svc := core.NewService(svcCfg, rec)
	report, runErr := svc.RunBatch(ctx, core.PathsFrom(cfg.Files))

	printSteps(stdout, report)

	if runErr != nil {
		fmt.Fprintf(stderr, "Error: %s\n", core.FormatUserError(runErr))
		slog.Debug("batch aborted", "error", runErr)
		return 1
	}

	if outputs := report.Outputs(); len(outputs) > 0 {
		fmt.Fprintln(stdout, "\nDone! Created:")
		for _, out := range outputs {
			fmt.Fprintf(stdout, "  - %s\n", out)
		}
	}

	if report.Failed() {
		return 1
	}
	return 0
}

// printSteps prints one line per completed or failed step in run order.
func printSteps(w io.Writer, report *core.BatchReport) {
	if report == nil {
		return
	}
	for _, kind := range []core.Kind{core.KindCSV, core.KindJSON} {
		for _, res := range report.Results {
			if res.Kind == kind {
				fmt.Fprintf(w, "%s processed: %d exhibitors\n", kindLabels[kind], res.Records)
			}
		}
		for _, f := range report.Failures {
			if f.Kind == kind {
				fmt.Fprintf(w, "Error: %s\n", core.MapError(f.Err).Message)
			}
		}
	}
}
