package core

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Default column and field names.
const (
	DefaultAddressColumn = "Address"
	DefaultCountryColumn = "Country"
	DefaultListField     = "exhibitors"
	DefaultAddressField  = "address"
	DefaultCountryField  = "country"
)

// Default file names, relative to the base directory.
const (
	DefaultCSVInput   = "all_exhibitors.csv"
	DefaultCSVOutput  = "all_exhibitors_with_country.csv"
	DefaultJSONInput  = "all_exhibitors.json"
	DefaultJSONOutput = "all_exhibitors_with_country.json"
)

// structuralRows is the number of leading rows in a Table that are not records:
// a placeholder row and the header row.
const structuralRows = 2

// Kind identifies the dataset format a run processed.
type Kind string

const (
	KindCSV  Kind = "csv"
	KindJSON Kind = "json"
)

// Table is a delimited-text dataset.
// Rows[0] is a placeholder kept verbatim, Rows[1] is the header,
// and Rows[2:] are exhibitor records.
type Table struct {
	Rows [][]string
	BOM  bool // input started with a UTF-8 byte order mark
}

// Header returns the header row, or nil if the table has none.
func (t *Table) Header() []string {
	if len(t.Rows) < structuralRows {
		return nil
	}
	return t.Rows[1]
}

// RecordCount returns the number of data rows.
func (t *Table) RecordCount() int {
	if len(t.Rows) < structuralRows {
		return 0
	}
	return len(t.Rows) - structuralRows
}

// Object is an ordered JSON object. Member values are kept as raw JSON so that
// anything the transform does not touch is written back byte-for-byte.
type Object = orderedmap.OrderedMap[string, json.RawMessage]

// NewObject returns an empty Object.
func NewObject() *Object {
	return orderedmap.New[string, json.RawMessage]()
}

// ColumnPolicy decides what the tabular transform does when the header has no
// Country column.
type ColumnPolicy string

const (
	// PolicyAppend adds a Country column to the header and fills it.
	PolicyAppend ColumnPolicy = "append"
	// PolicySkip leaves rows untouched and discards the computed value.
	PolicySkip ColumnPolicy = "skip"
)

// ParseColumnPolicy converts a config string to a ColumnPolicy.
// An empty string selects PolicyAppend.
func ParseColumnPolicy(s string) (ColumnPolicy, error) {
	switch ColumnPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyAppend:
		return PolicyAppend, nil
	case PolicySkip:
		return PolicySkip, nil
	default:
		return "", fmt.Errorf("unknown country column policy %q (want append or skip)", s)
	}
}

// TableOptions configures TransformTable. Zero values select the defaults.
type TableOptions struct {
	AddressColumn string
	CountryColumn string
	Policy        ColumnPolicy
}

func (o TableOptions) withDefaults() TableOptions {
	if o.AddressColumn == "" {
		o.AddressColumn = DefaultAddressColumn
	}
	if o.CountryColumn == "" {
		o.CountryColumn = DefaultCountryColumn
	}
	if o.Policy == "" {
		o.Policy = PolicyAppend
	}
	return o
}

// DocumentOptions configures TransformDocument. Zero values select the defaults.
type DocumentOptions struct {
	ListField    string
	AddressField string
	CountryField string
}

func (o DocumentOptions) withDefaults() DocumentOptions {
	if o.ListField == "" {
		o.ListField = DefaultListField
	}
	if o.AddressField == "" {
		o.AddressField = DefaultAddressField
	}
	if o.CountryField == "" {
		o.CountryField = DefaultCountryField
	}
	return o
}

// Paths names the input and output files of a batch run.
type Paths struct {
	CSVInput   string
	CSVOutput  string
	JSONInput  string
	JSONOutput string
}

// DefaultPaths returns the fixed file names resolved against baseDir.
func DefaultPaths(baseDir string) Paths {
	return Paths{
		CSVInput:   DefaultCSVInput,
		CSVOutput:  DefaultCSVOutput,
		JSONInput:  DefaultJSONInput,
		JSONOutput: DefaultJSONOutput,
	}.Resolve(baseDir)
}

// Resolve joins every relative path onto baseDir. Absolute paths are kept.
func (p Paths) Resolve(baseDir string) Paths {
	join := func(name string) string {
		if name == "" || filepath.IsAbs(name) {
			return name
		}
		return filepath.Join(baseDir, name)
	}
	return Paths{
		CSVInput:   join(p.CSVInput),
		CSVOutput:  join(p.CSVOutput),
		JSONInput:  join(p.JSONInput),
		JSONOutput: join(p.JSONOutput),
	}
}

// Inputs returns the input paths in run order.
func (p Paths) Inputs() []string {
	return []string{p.CSVInput, p.JSONInput}
}

// Result summarizes one completed transform run.
type Result struct {
	RunID    string
	Kind     Kind
	Input    string
	Output   string
	Records  int
	Duration time.Duration
}

// Failure is a reported, non-fatal problem in a batch run.
type Failure struct {
	Kind  Kind
	Input string
	Err   error
}

// BatchReport collects the outcome of RunBatch.
type BatchReport struct {
	Results  []*Result
	Failures []Failure
}

// Outputs returns the paths of every output file that was written.
func (r *BatchReport) Outputs() []string {
	out := make([]string, 0, len(r.Results))
	for _, res := range r.Results {
		out = append(out, res.Output)
	}
	return out
}

// Failed reports whether any step failed.
func (r *BatchReport) Failed() bool {
	return len(r.Failures) > 0
}
