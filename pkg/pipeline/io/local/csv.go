package local

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// ReadColumnsCSV reads a CSV file and returns one map per row holding the values
// of the requested columns. Header matching is case-insensitive. Requested
// columns absent from the header read as empty strings, but at least one of them
// must be present.
func ReadColumnsCSV(r io.Reader, columns []string) ([]map[string]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	index := make(map[string]int, len(columns))
	for _, want := range columns {
		for i, col := range header {
			if strings.EqualFold(strings.TrimSpace(col), want) {
				index[want] = i
				break
			}
		}
	}
	if len(index) == 0 {
		return nil, fmt.Errorf("missing required columns: none of %q found", columns)
	}

	var rows []map[string]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		row := make(map[string]string, len(columns))
		for _, col := range columns {
			i, ok := index[col]
			if !ok || i >= len(rec) {
				row[col] = ""
				continue
			}
			row[col] = rec[i]
		}
		rows = append(rows, row)
	}
	return rows, nil
}
