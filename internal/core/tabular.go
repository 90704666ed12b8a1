package core

import (
	"slices"

	"github.com/JonMunkholm/addcountry/internal/country"
)

// TransformTable returns a copy of t with a country derived from the Address
// cell of every data row, and the number of data rows processed. t is not
// modified.
//
// Rows too short to reach the Address column pass through unchanged. Rows that
// reach it are padded with empty cells up to the Country column before the
// value is written. When the header has no Country column, opts.Policy decides
// whether one is appended after the widest row or the value is dropped.
func TransformTable(t *Table, opts TableOptions) (*Table, int, error) {
	opts = opts.withDefaults()

	if len(t.Rows) == 0 {
		return nil, 0, ErrEmptyFile
	}

	header := t.Header()
	addressIdx := slices.Index(header, opts.AddressColumn)
	if addressIdx < 0 {
		return nil, 0, &ColumnError{Column: opts.AddressColumn}
	}
	countryIdx := slices.Index(header, opts.CountryColumn)

	out := &Table{
		Rows: make([][]string, len(t.Rows)),
		BOM:  t.BOM,
	}
	for i, row := range t.Rows {
		out.Rows[i] = slices.Clone(row)
	}

	if countryIdx < 0 && opts.Policy == PolicyAppend {
		// Place the column past the widest row and pad the header to meet it.
		countryIdx = len(header)
		for _, row := range out.Rows[structuralRows:] {
			countryIdx = max(countryIdx, len(row))
		}
		head := out.Rows[1]
		for len(head) < countryIdx {
			head = append(head, "")
		}
		out.Rows[1] = append(head, opts.CountryColumn)
	}

	for i := structuralRows; i < len(out.Rows); i++ {
		row := out.Rows[i]
		if len(row) <= addressIdx {
			continue
		}
		value := country.Extract(row[addressIdx])
		if countryIdx < 0 {
			continue
		}
		for len(row) <= countryIdx {
			row = append(row, "")
		}
		row[countryIdx] = value
		out.Rows[i] = row
	}

	return out, out.RecordCount(), nil
}
