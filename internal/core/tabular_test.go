package core

import (
	"bytes"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/JonMunkholm/addcountry/internal/country"
)

func TestTransformTable_EndToEnd(t *testing.T) {
	input := "\r\nName,Address,Country\r\nAcme,\"1 Sky Rd, Paris, France\",\r\n"

	table, err := ReadTable(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadTable() error = %v", err)
	}
	out, n, err := TransformTable(table, TableOptions{})
	if err != nil {
		t.Fatalf("TransformTable() error = %v", err)
	}
	if n != 1 {
		t.Errorf("TransformTable() count = %d, want 1", n)
	}

	var buf bytes.Buffer
	if err := WriteTable(&buf, out); err != nil {
		t.Fatalf("WriteTable() error = %v", err)
	}

	want := "\r\nName,Address,Country\r\nAcme,\"1 Sky Rd, Paris, France\",France\r\n"
	if got := buf.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestTransformTable_RaggedRowsEndToEnd(t *testing.T) {
	input := "\nName,Address\nAcme,\"1, Fr\",extra1,extra2\nB,\"x\ny\",z\n"

	table, err := ReadTable(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadTable() error = %v", err)
	}
	out, _, err := TransformTable(table, TableOptions{})
	if err != nil {
		t.Fatalf("TransformTable() error = %v", err)
	}

	var buf bytes.Buffer
	if err := WriteTable(&buf, out); err != nil {
		t.Fatalf("WriteTable() error = %v", err)
	}

	want := "\r\nName,Address,,,Country\r\nAcme,\"1, Fr\",extra1,extra2,Fr\r\nB,\"x\ny\",z,,\"x\ny\"\r\n"
	if got := buf.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestTransformTable(t *testing.T) {
	tests := []struct {
		name  string
		rows  [][]string
		opts  TableOptions
		want  [][]string
		count int
	}{
		{
			name: "fills existing country column",
			rows: [][]string{
				{},
				{"Name", "Address", "Country"},
				{"Acme", "1 Sky Rd, Paris, France", ""},
				{"Beta", "Main St, Oslo, Norway", "stale"},
			},
			want: [][]string{
				{},
				{"Name", "Address", "Country"},
				{"Acme", "1 Sky Rd, Paris, France", "France"},
				{"Beta", "Main St, Oslo, Norway", "Norway"},
			},
			count: 2,
		},
		{
			name: "country column before address",
			rows: [][]string{
				{"x"},
				{"Country", "Address"},
				{"", "Dock 4, Rotterdam, Netherlands"},
			},
			want: [][]string{
				{"x"},
				{"Country", "Address"},
				{"Netherlands", "Dock 4, Rotterdam, Netherlands"},
			},
			count: 1,
		},
		{
			name: "short row is padded up to the country column",
			rows: [][]string{
				{},
				{"Name", "Address", "Phone", "Country"},
				{"Acme", "Rue 1, Lyon, France"},
			},
			want: [][]string{
				{},
				{"Name", "Address", "Phone", "Country"},
				{"Acme", "Rue 1, Lyon, France", "", "France"},
			},
			count: 1,
		},
		{
			name: "row not reaching the address column passes through",
			rows: [][]string{
				{},
				{"Name", "Address", "Country"},
				{"Orphan"},
				{},
			},
			want: [][]string{
				{},
				{"Name", "Address", "Country"},
				{"Orphan"},
				{},
			},
			count: 2,
		},
		{
			name: "missing country column is appended",
			rows: [][]string{
				{},
				{"Name", "Address"},
				{"Acme", "1 Sky Rd, Paris, France"},
				{"Solo"},
			},
			want: [][]string{
				{},
				{"Name", "Address", "Country"},
				{"Acme", "1 Sky Rd, Paris, France", "France"},
				{"Solo"},
			},
			count: 2,
		},
		{
			name: "missing country column with skip policy",
			rows: [][]string{
				{},
				{"Name", "Address"},
				{"Acme", "1 Sky Rd, Paris, France"},
			},
			opts: TableOptions{Policy: PolicySkip},
			want: [][]string{
				{},
				{"Name", "Address"},
				{"Acme", "1 Sky Rd, Paris, France"},
			},
			count: 1,
		},
		{
			name: "first exact header match wins",
			rows: [][]string{
				{},
				{"address", "Address", "Address", "Country"},
				{"a, Wrong", "b, Right", "c, Also Wrong", ""},
			},
			want: [][]string{
				{},
				{"address", "Address", "Address", "Country"},
				{"a, Wrong", "b, Right", "c, Also Wrong", "Right"},
			},
			count: 1,
		},
		{
			name: "empty and trailing-comma addresses",
			rows: [][]string{
				{},
				{"Address", "Country"},
				{"", "old"},
				{"123 Main St, ", "old"},
				{"OnlyOneSegment", ""},
			},
			want: [][]string{
				{},
				{"Address", "Country"},
				{"", ""},
				{"123 Main St, ", ""},
				{"OnlyOneSegment", "OnlyOneSegment"},
			},
			count: 3,
		},
		{
			name: "rows longer than the header keep their extra cells",
			rows: [][]string{
				{},
				{"Name", "Address"},
				{"Acme", "1, Fr", "extra1", "extra2"},
				{"B", "x\ny", "z"},
				{"C", "Rue 2, Nice, France"},
			},
			want: [][]string{
				{},
				{"Name", "Address", "", "", "Country"},
				{"Acme", "1, Fr", "extra1", "extra2", "Fr"},
				{"B", "x\ny", "z", "", "x\ny"},
				{"C", "Rue 2, Nice, France", "", "", "France"},
			},
			count: 3,
		},
		{
			name: "rows longer than the header with skip policy",
			rows: [][]string{
				{},
				{"Name", "Address"},
				{"Acme", "1, Fr", "extra1", "extra2"},
			},
			opts: TableOptions{Policy: PolicySkip},
			want: [][]string{
				{},
				{"Name", "Address"},
				{"Acme", "1, Fr", "extra1", "extra2"},
			},
			count: 1,
		},
		{
			name: "row ending between address and country columns is padded",
			rows: [][]string{
				{},
				{"Address", "Phone", "Fax", "Country"},
				{"Oslo, Norway", "555"},
				{"Bergen, Norway", "556", "557", "old", "note"},
			},
			want: [][]string{
				{},
				{"Address", "Phone", "Fax", "Country"},
				{"Oslo, Norway", "555", "", "Norway"},
				{"Bergen, Norway", "556", "557", "Norway", "note"},
			},
			count: 2,
		},
		{
			name: "row ending between address and appended country is padded",
			rows: [][]string{
				{},
				{"Address", "Phone"},
				{"Oslo, Norway"},
				{"Bergen, Norway", "556", "note"},
			},
			want: [][]string{
				{},
				{"Address", "Phone", "", "Country"},
				{"Oslo, Norway", "", "", "Norway"},
				{"Bergen, Norway", "556", "note", "Norway"},
			},
			count: 2,
		},
		{
			name:  "header only",
			rows:  [][]string{{}, {"Address"}},
			want:  [][]string{{}, {"Address", "Country"}},
			count: 0,
		},
		{
			name: "custom column names",
			rows: [][]string{
				{},
				{"Adresse", "Land"},
				{"Hauptstr. 5, Wien, Österreich", ""},
			},
			opts: TableOptions{AddressColumn: "Adresse", CountryColumn: "Land"},
			want: [][]string{
				{},
				{"Adresse", "Land"},
				{"Hauptstr. 5, Wien, Österreich", "Österreich"},
			},
			count: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, n, err := TransformTable(&Table{Rows: tt.rows}, tt.opts)
			if err != nil {
				t.Fatalf("TransformTable() error = %v", err)
			}
			if n != tt.count {
				t.Errorf("TransformTable() count = %d, want %d", n, tt.count)
			}
			if !rowsEqual(out.Rows, tt.want) {
				t.Errorf("TransformTable() rows = %q, want %q", out.Rows, tt.want)
			}
		})
	}
}

func TestTransformTable_Errors(t *testing.T) {
	t.Run("missing address column", func(t *testing.T) {
		_, _, err := TransformTable(&Table{Rows: [][]string{{}, {"Name", "Country"}, {"Acme", ""}}}, TableOptions{})
		if !errors.Is(err, ErrMissingColumn) {
			t.Fatalf("error = %v, want ErrMissingColumn", err)
		}
		var colErr *ColumnError
		if !errors.As(err, &colErr) || colErr.Column != "Address" {
			t.Errorf("error = %v, want ColumnError for Address", err)
		}
	})

	t.Run("no header row", func(t *testing.T) {
		_, _, err := TransformTable(&Table{Rows: [][]string{{}}}, TableOptions{})
		if !errors.Is(err, ErrMissingColumn) {
			t.Errorf("error = %v, want ErrMissingColumn", err)
		}
	})

	t.Run("no rows", func(t *testing.T) {
		_, _, err := TransformTable(&Table{}, TableOptions{})
		if !errors.Is(err, ErrEmptyFile) {
			t.Errorf("error = %v, want ErrEmptyFile", err)
		}
	})
}

func TestTransformTable_LeavesInputUntouched(t *testing.T) {
	in := &Table{Rows: [][]string{
		{},
		{"Name", "Address"},
		{"Acme", "1 Sky Rd, Paris, France"},
	}}
	snapshot := [][]string{
		{},
		{"Name", "Address"},
		{"Acme", "1 Sky Rd, Paris, France"},
	}

	if _, _, err := TransformTable(in, TableOptions{}); err != nil {
		t.Fatalf("TransformTable() error = %v", err)
	}
	if !rowsEqual(in.Rows, snapshot) {
		t.Errorf("input modified: %q", in.Rows)
	}
}

func TestTransformTable_RoundTripProperties(t *testing.T) {
	in := &Table{Rows: [][]string{
		{"placeholder", ""},
		{"Id", "Name", "Address", "Country", "Hall"},
		{"1", "Acme", "1 Sky Rd, Paris, France", "", "A"},
		{"2", "Beta"},
		{"3", "Gamma", "   "},
		{"4", "Delta", "Via Roma 1, Milano, Italia", "Italy", "B", "extra"},
		{},
	}}

	for _, policy := range []ColumnPolicy{PolicyAppend, PolicySkip} {
		t.Run(string(policy), func(t *testing.T) {
			out, n, err := TransformTable(in, TableOptions{Policy: policy})
			if err != nil {
				t.Fatalf("TransformTable() error = %v", err)
			}

			if len(out.Rows) != len(in.Rows) {
				t.Fatalf("row count = %d, want %d", len(out.Rows), len(in.Rows))
			}
			if n != len(in.Rows)-2 {
				t.Errorf("count = %d, want %d", n, len(in.Rows)-2)
			}
			if !slices.Equal(out.Rows[0], in.Rows[0]) || !slices.Equal(out.Rows[1], in.Rows[1]) {
				t.Errorf("structural rows changed: %q", out.Rows[:2])
			}
			for i, row := range out.Rows[2:] {
				if len(row) <= 2 {
					continue
				}
				if got, want := row[3], country.Extract(row[2]); got != want {
					t.Errorf("row %d country = %q, want %q", i+2, got, want)
				}
			}
		})
	}
}

func TestTransformTable_Idempotent(t *testing.T) {
	in := &Table{Rows: [][]string{
		{},
		{"Name", "Address"},
		{"Acme", "1 Sky Rd, Paris, France"},
		{"Beta", "Nowhere,"},
		{"Gamma"},
		{"Delta", "Kyiv, Ukraine", "extra"},
	}}

	for _, policy := range []ColumnPolicy{PolicyAppend, PolicySkip} {
		t.Run(string(policy), func(t *testing.T) {
			first, _, err := TransformTable(in, TableOptions{Policy: policy})
			if err != nil {
				t.Fatalf("first pass error = %v", err)
			}
			second, _, err := TransformTable(first, TableOptions{Policy: policy})
			if err != nil {
				t.Fatalf("second pass error = %v", err)
			}
			if !rowsEqual(first.Rows, second.Rows) {
				t.Errorf("second pass changed rows:\n first  %q\n second %q", first.Rows, second.Rows)
			}
		})
	}
}

func TestParseColumnPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    ColumnPolicy
		wantErr bool
	}{
		{"", PolicyAppend, false},
		{"append", PolicyAppend, false},
		{" SKIP ", PolicySkip, false},
		{"replace", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseColumnPolicy(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseColumnPolicy(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseColumnPolicy(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
