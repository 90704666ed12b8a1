package core

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JonMunkholm/addcountry/internal/config"
	"github.com/JonMunkholm/addcountry/internal/history"
)

const (
	sampleCSV   = "\r\nName,Address,Country\r\nAcme,\"1 Sky Rd, Paris, France\",\r\n"
	enrichedCSV = "\r\nName,Address,Country\r\nAcme,\"1 Sky Rd, Paris, France\",France\r\n"

	sampleJSON   = `{"exhibitors": [{"name": "Acme", "address": "1 Sky Rd, Paris, France"}]}`
	enrichedJSON = "{\n  \"exhibitors\": [\n    {\n      \"name\": \"Acme\",\n      \"address\": \"1 Sky Rd, Paris, France\",\n      \"country\": \"France\"\n    }\n  ]\n}"
)

func writeInputs(t *testing.T, csvData, jsonData string) Paths {
	t.Helper()
	dir := t.TempDir()
	paths := DefaultPaths(dir)
	if csvData != "" {
		if err := os.WriteFile(paths.CSVInput, []byte(csvData), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if jsonData != "" {
		if err := os.WriteFile(paths.JSONInput, []byte(jsonData), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return paths
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile(%s) error = %v", path, err)
	}
	return string(b)
}

func TestService_RunBatch(t *testing.T) {
	paths := writeInputs(t, sampleCSV, sampleJSON)
	svc := NewService(ServiceConfig{}, nil)

	report, err := svc.RunBatch(context.Background(), paths)
	if err != nil {
		t.Fatalf("RunBatch() error = %v", err)
	}
	if report.Failed() {
		t.Fatalf("RunBatch() failures = %v", report.Failures)
	}
	if len(report.Results) != 2 {
		t.Fatalf("results = %d, want 2", len(report.Results))
	}

	if got := readFile(t, paths.CSVOutput); got != enrichedCSV {
		t.Errorf("csv output = %q, want %q", got, enrichedCSV)
	}
	if got := readFile(t, paths.JSONOutput); got != enrichedJSON {
		t.Errorf("json output = %q, want %q", got, enrichedJSON)
	}

	wantOutputs := []string{paths.CSVOutput, paths.JSONOutput}
	outputs := report.Outputs()
	if len(outputs) != 2 || outputs[0] != wantOutputs[0] || outputs[1] != wantOutputs[1] {
		t.Errorf("Outputs() = %q, want %q", outputs, wantOutputs)
	}
	for i, kind := range []Kind{KindCSV, KindJSON} {
		if report.Results[i].Kind != kind || report.Results[i].Records != 1 {
			t.Errorf("result %d = %+v, want kind %s with 1 record", i, report.Results[i], kind)
		}
	}

	// Inputs are never modified.
	if got := readFile(t, paths.CSVInput); got != sampleCSV {
		t.Errorf("csv input changed: %q", got)
	}
	if got := readFile(t, paths.JSONInput); got != sampleJSON {
		t.Errorf("json input changed: %q", got)
	}
}

func TestService_RunBatch_MissingAddressColumn(t *testing.T) {
	paths := writeInputs(t, "\nName,City\nAcme,Paris\n", sampleJSON)
	svc := NewService(ServiceConfig{}, nil)

	report, err := svc.RunBatch(context.Background(), paths)
	if err != nil {
		t.Fatalf("RunBatch() error = %v", err)
	}
	if len(report.Failures) != 1 || report.Failures[0].Kind != KindCSV {
		t.Fatalf("failures = %+v, want one csv failure", report.Failures)
	}
	if !errors.Is(report.Failures[0].Err, ErrMissingColumn) {
		t.Errorf("failure error = %v, want ErrMissingColumn", report.Failures[0].Err)
	}
	if _, err := os.Stat(paths.CSVOutput); !os.IsNotExist(err) {
		t.Errorf("csv output exists, stat error = %v", err)
	}
	if got := readFile(t, paths.JSONOutput); got != enrichedJSON {
		t.Errorf("json output = %q, want %q", got, enrichedJSON)
	}
	if len(report.Results) != 1 || report.Results[0].Kind != KindJSON {
		t.Errorf("results = %+v, want one json result", report.Results)
	}
}

func TestService_RunBatch_EmptyCSV(t *testing.T) {
	paths := writeInputs(t, "", sampleJSON)
	if err := os.WriteFile(paths.CSVInput, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	svc := NewService(ServiceConfig{}, nil)

	report, err := svc.RunBatch(context.Background(), paths)
	if err != nil {
		t.Fatalf("RunBatch() error = %v", err)
	}
	if len(report.Failures) != 1 || !errors.Is(report.Failures[0].Err, ErrEmptyFile) {
		t.Errorf("failures = %+v, want one ErrEmptyFile", report.Failures)
	}
}

func TestService_RunBatch_Aborts(t *testing.T) {
	tests := []struct {
		name        string
		csvData     string
		jsonData    string
		wantErr     error
		wantResults int
	}{
		{
			name:        "invalid json after csv",
			csvData:     sampleCSV,
			jsonData:    `{"exhibitors": [`,
			wantErr:     ErrInvalidJSON,
			wantResults: 1,
		},
		{
			name:        "malformed json",
			csvData:     sampleCSV,
			jsonData:    `{"exhibitors": [{"address": 7}]}`,
			wantErr:     ErrMalformedData,
			wantResults: 1,
		},
		{
			name:        "missing csv input",
			jsonData:    sampleJSON,
			wantErr:     os.ErrNotExist,
			wantResults: 0,
		},
		{
			name:        "csv encoding error",
			csvData:     "\nAddress\n\xff\n",
			jsonData:    sampleJSON,
			wantErr:     ErrEncoding,
			wantResults: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			paths := writeInputs(t, tt.csvData, tt.jsonData)
			svc := NewService(ServiceConfig{}, nil)

			report, err := svc.RunBatch(context.Background(), paths)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("RunBatch() error = %v, want %v", err, tt.wantErr)
			}
			if len(report.Results) != tt.wantResults {
				t.Errorf("results = %d, want %d", len(report.Results), tt.wantResults)
			}
			if _, err := os.Stat(paths.JSONOutput); !os.IsNotExist(err) {
				t.Errorf("json output exists, stat error = %v", err)
			}
		})
	}
}

func TestService_RunBatch_Canceled(t *testing.T) {
	paths := writeInputs(t, sampleCSV, sampleJSON)
	svc := NewService(ServiceConfig{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.RunBatch(ctx, paths)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("RunBatch() error = %v, want context.Canceled", err)
	}
	if _, err := os.Stat(paths.CSVOutput); !os.IsNotExist(err) {
		t.Errorf("csv output exists, stat error = %v", err)
	}
}

func TestService_RecordsHistory(t *testing.T) {
	paths := writeInputs(t, "\nName\nAcme\n", sampleJSON)
	store := history.NewMemoryStore(10)
	svc := NewService(ServiceConfig{}, store)

	ctx := history.WithSource(context.Background(), history.SourceSchedule)
	if _, err := svc.RunBatch(ctx, paths); err != nil {
		t.Fatalf("RunBatch() error = %v", err)
	}

	runs, err := svc.RecentRuns(context.Background(), 0)
	if err != nil {
		t.Fatalf("RecentRuns() error = %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("runs = %d, want 2", len(runs))
	}

	jsonRun, csvRun := runs[0], runs[1]
	if jsonRun.Kind != string(KindJSON) || jsonRun.Status != history.StatusOK || jsonRun.Records != 1 {
		t.Errorf("json run = %+v", jsonRun)
	}
	if jsonRun.Output != paths.JSONOutput {
		t.Errorf("json run output = %q, want %q", jsonRun.Output, paths.JSONOutput)
	}
	if csvRun.Kind != string(KindCSV) || csvRun.Status != history.StatusFailed {
		t.Errorf("csv run = %+v", csvRun)
	}
	if !strings.Contains(csvRun.Error, "Address") {
		t.Errorf("csv run error = %q, want it to name the column", csvRun.Error)
	}
	if csvRun.Output != "" || csvRun.Records != 0 {
		t.Errorf("failed run output = %q records = %d, want empty", csvRun.Output, csvRun.Records)
	}
	for _, run := range runs {
		if run.Source != history.SourceSchedule {
			t.Errorf("run source = %q, want %q", run.Source, history.SourceSchedule)
		}
	}
}

func TestService_EnrichStreams(t *testing.T) {
	svc := NewService(ServiceConfig{}, nil)
	ctx := context.Background()

	t.Run("csv", func(t *testing.T) {
		var out bytes.Buffer
		res, err := svc.EnrichCSV(ctx, strings.NewReader(sampleCSV), &out)
		if err != nil {
			t.Fatalf("EnrichCSV() error = %v", err)
		}
		if res.Records != 1 || res.RunID == "" {
			t.Errorf("result = %+v", res)
		}
		if out.String() != enrichedCSV {
			t.Errorf("output = %q, want %q", out.String(), enrichedCSV)
		}
	})

	t.Run("json", func(t *testing.T) {
		var out bytes.Buffer
		res, err := svc.EnrichJSON(ctx, strings.NewReader(sampleJSON), &out)
		if err != nil {
			t.Fatalf("EnrichJSON() error = %v", err)
		}
		if res.Records != 1 {
			t.Errorf("records = %d, want 1", res.Records)
		}
		if out.String() != enrichedJSON {
			t.Errorf("output = %q, want %q", out.String(), enrichedJSON)
		}
	})

	t.Run("nothing written on failure", func(t *testing.T) {
		var out bytes.Buffer
		_, err := svc.EnrichCSV(ctx, strings.NewReader("\nName\nAcme\n"), &out)
		if !errors.Is(err, ErrMissingColumn) {
			t.Fatalf("EnrichCSV() error = %v, want ErrMissingColumn", err)
		}
		if out.Len() != 0 {
			t.Errorf("output = %q, want empty", out.String())
		}
	})
}

func TestService_SkipPolicy(t *testing.T) {
	svc := NewService(ServiceConfig{Table: TableOptions{Policy: PolicySkip}}, nil)

	var out bytes.Buffer
	if _, err := svc.EnrichCSV(context.Background(), strings.NewReader("\nName,Address\nAcme,\"Paris, France\"\n"), &out); err != nil {
		t.Fatalf("EnrichCSV() error = %v", err)
	}
	want := "\r\nName,Address\r\nAcme,\"Paris, France\"\r\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func TestServiceConfigFrom(t *testing.T) {
	cfg := &config.Config{
		Enrich: config.EnrichConfig{CountryColumnPolicy: "skip", ListField: "firms"},
		Upload: config.UploadConfig{MaxConcurrent: 3},
	}

	sc, err := ServiceConfigFrom(cfg)
	if err != nil {
		t.Fatalf("ServiceConfigFrom() error = %v", err)
	}
	if sc.Table.Policy != PolicySkip {
		t.Errorf("Policy = %q, want %q", sc.Table.Policy, PolicySkip)
	}
	if sc.Document.ListField != "firms" {
		t.Errorf("ListField = %q, want %q", sc.Document.ListField, "firms")
	}
	if sc.MaxConcurrent != 3 {
		t.Errorf("MaxConcurrent = %d, want 3", sc.MaxConcurrent)
	}

	cfg.Enrich.CountryColumnPolicy = "bogus"
	if _, err := ServiceConfigFrom(cfg); err == nil {
		t.Error("ServiceConfigFrom() error = nil for bogus policy")
	}
}

func TestServiceConfigFrom_PolicyMatchesConfigValidation(t *testing.T) {
	for _, policy := range []string{"append", " append", "SKIP ", "Skip", " ", "replace", "app end"} {
		t.Run(policy, func(t *testing.T) {
			cfg, loadErr := config.LoadFrom(func(key string) string {
				if key == "COUNTRY_COLUMN_POLICY" {
					return policy
				}
				return ""
			})
			_, parseErr := ParseColumnPolicy(policy)

			if (loadErr != nil) != (parseErr != nil) {
				t.Fatalf("config error = %v, ParseColumnPolicy error = %v", loadErr, parseErr)
			}
			if loadErr != nil {
				return
			}
			if _, err := ServiceConfigFrom(cfg); err != nil {
				t.Errorf("ServiceConfigFrom() error = %v", err)
			}
		})
	}
}

func TestPathsFrom(t *testing.T) {
	paths := PathsFrom(config.FilesConfig{
		BaseDir:    "/data",
		CSVInput:   "in.csv",
		CSVOutput:  "/elsewhere/out.csv",
		JSONInput:  "in.json",
		JSONOutput: "out.json",
	})

	want := Paths{
		CSVInput:   filepath.Join("/data", "in.csv"),
		CSVOutput:  "/elsewhere/out.csv",
		JSONInput:  filepath.Join("/data", "in.json"),
		JSONOutput: filepath.Join("/data", "out.json"),
	}
	if paths != want {
		t.Errorf("PathsFrom() = %+v, want %+v", paths, want)
	}
}
