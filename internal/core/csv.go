package core

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ReadTable parses delimited text into a Table.
//
// encoding/csv drops empty lines, but the first row of an exhibitor export is
// often blank and must survive, so every skipped line is restored as an empty
// row using the reader's field positions.
func ReadTable(r io.Reader) (*Table, error) {
	bom, counter := wrapInput(r)

	cr := csv.NewReader(counter)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var rows [][]string
	nextLine := 1

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if errors.Is(err, ErrEncoding) {
				return nil, err
			}
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				return nil, fmt.Errorf("%w: %w", ErrInvalidCSV, err)
			}
			return nil, fmt.Errorf("read csv: %w", err)
		}

		line, _ := cr.FieldPos(0)
		for ; nextLine < line; nextLine++ {
			rows = append(rows, []string{})
		}

		last := len(rec) - 1
		lastLine, _ := cr.FieldPos(last)
		nextLine = lastLine + strings.Count(rec[last], "\n") + 1

		rows = append(rows, rec)
	}

	for ; nextLine <= counter.Lines(); nextLine++ {
		rows = append(rows, []string{})
	}

	return &Table{Rows: rows, BOM: bom.Found()}, nil
}

// WriteTable writes t with minimal quoting and CRLF row terminators.
// A row holding a single empty field is written as "" so it reads back as a
// row rather than a blank line.
func WriteTable(w io.Writer, t *Table) error {
	bw := bufio.NewWriter(w)

	// bufio errors are sticky and surface from Flush.
	if t.BOM {
		bw.WriteString(utf8BOM)
	}
	for _, row := range t.Rows {
		writeRow(bw, row)
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

func writeRow(bw *bufio.Writer, row []string) {
	if len(row) == 1 && row[0] == "" {
		bw.WriteString(`""`)
	} else {
		for i, field := range row {
			if i > 0 {
				bw.WriteByte(',')
			}
			writeField(bw, field)
		}
	}
	bw.WriteString("\r\n")
}

func writeField(bw *bufio.Writer, field string) {
	if !strings.ContainsAny(field, ",\"\r\n") {
		bw.WriteString(field)
		return
	}
	bw.WriteByte('"')
	bw.WriteString(strings.ReplaceAll(field, `"`, `""`))
	bw.WriteByte('"')
}
