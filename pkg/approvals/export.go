package approvals

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sw33tLie/protexsync/internal/utils"
)

const DELIMITER = '|'

// SkippedRow is an export row that could not be turned into a Record.
type SkippedRow struct {
	Line   int
	Values map[string]string
	Err    error
}

// Row renders the raw values in Columns order.
func (s SkippedRow) Row() []string {
	out := make([]string, len(Columns))
	for i, col := range Columns {
		out[i] = s.Values[col]
	}
	return out
}

// ReadExport parses a pipe-delimited Code Center export. Rows missing a
// required field are returned separately and logged; they never fail the read.
func ReadExport(path string) ([]Record, []SkippedRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	return parseExport(f)
}

func parseExport(r io.Reader) ([]Record, []SkippedRow, error) {
	reader := csv.NewReader(r)
	reader.Comma = DELIMITER
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, fmt.Errorf("export is empty")
		}
		return nil, nil, fmt.Errorf("reading export header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var (
		records []Record
		skipped []SkippedRow
	)
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// csv.ParseError carries the line.
			return nil, nil, fmt.Errorf("reading export: %w", err)
		}
		line, _ := reader.FieldPos(0)

		// Like a dict reader, short rows simply lack the trailing columns.
		values := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(fields) {
				values[col] = fields[i]
			}
		}

		rec, err := RecordFromRow(values)
		if err != nil {
			utils.Log.Warnf("Skipping export line %d: %v", line, err)
			skipped = append(skipped, SkippedRow{Line: line, Values: values, Err: err})
			continue
		}
		rec.Line = line
		records = append(records, rec)
	}

	return records, skipped, nil
}

// WriteReport writes rows under the standard header to path.
func WriteReport(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	w.Comma = DELIMITER
	if err := w.Write(Columns); err != nil {
		f.Close()
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	utils.Log.Infof("Dumped %d components into %s", len(rows), path)
	return nil
}

func recordRows(records []Record) [][]string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, r.Row())
	}
	return rows
}

func skippedRows(skipped []SkippedRow) [][]string {
	rows := make([][]string, 0, len(skipped))
	for _, s := range skipped {
		rows = append(rows, s.Row())
	}
	return rows
}
