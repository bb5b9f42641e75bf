package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/palantir/contact-enricher/internal/contact"
	"github.com/palantir/contact-enricher/internal/orchestrator"
)

const (
	colCacheKey = "cache_key"
	colCache    = "cache"
	colStatus   = "status"
	colError    = "error"
)

// Header returns the stable output CSV header: the record fields followed by
// the batch bookkeeping columns.
func Header() []string {
	return append(contact.Contract.Names(), colCacheKey, colCache, colStatus, colError)
}

// WriteCSV writes rows as a CSV with the stable Header() ordering.
//
// List cells hold JSON arrays and created_at keeps nanoseconds, so ReadCSV
// restores the record exactly.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header()); err != nil {
		return err
	}
	names := contact.Contract.Names()
	for _, r := range rows {
		values := r.Record.Values()
		line := make([]string, 0, len(names)+4)
		for _, name := range names {
			cell, err := formatCell(values[name])
			if err != nil {
				return fmt.Errorf("column %s: %w", name, err)
			}
			line = append(line, cell)
		}
		line = append(line, r.CacheKey, string(r.Cache), r.Status, r.Error)
		if err := cw.Write(line); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV reads rows previously written by WriteCSV.
//
// Extra columns are ignored. Required columns from Header() must exist.
func ReadCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, err
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	for _, name := range Header() {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("missing required column %q", name)
		}
	}

	var rows []Row
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}

		get := func(col string) string {
			i := index[col]
			if i >= len(rec) {
				return ""
			}
			return rec[i]
		}

		record, err := parseRecord(get)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, Row{
			Record:   record,
			CacheKey: get(colCacheKey),
			Cache:    orchestrator.State(get(colCache)),
			Status:   get(colStatus),
			Error:    get(colError),
		})
	}
}

func parseRecord(get func(string) string) (contact.ContactData, error) {
	rec := contact.ContactData{
		EnrichedProfile: contact.EnrichedProfile{
			Name:        get("name"),
			Company:     get("company"),
			Role:        get("role"),
			Website:     get("website"),
			Email:       get("email"),
			Phone:       get("phone"),
			Industry:    get("industry"),
			LinkedInURL: get("linkedin_url"),
		},
		NotesRaw:     get("notes_raw"),
		NotesSummary: get("notes_summary"),
	}
	var err error
	if rec.Sources, err = parseList(get("sources")); err != nil {
		return contact.ContactData{}, fmt.Errorf("invalid sources: %w", err)
	}
	if rec.Tags, err = parseList(get("tags")); err != nil {
		return contact.ContactData{}, fmt.Errorf("invalid tags: %w", err)
	}
	if v := strings.TrimSpace(get("email_confidence")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return contact.ContactData{}, fmt.Errorf("invalid email_confidence %q: %w", v, err)
		}
		rec.EmailConfidence = n
	}
	if v := strings.TrimSpace(get("created_at")); v != "" {
		ts, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return contact.ContactData{}, fmt.Errorf("invalid created_at %q: %w", v, err)
		}
		rec.CreatedAt = ts.UTC()
	}
	return rec, nil
}

func formatCell(v any) (string, error) {
	switch t := v.(type) {
	case []string:
		if len(t) == 0 {
			return "", nil
		}
		b, err := json.Marshal(t)
		if err != nil {
			return "", err
		}
		return string(b), nil
	case time.Time:
		if t.IsZero() {
			return "", nil
		}
		return t.UTC().Format(time.RFC3339Nano), nil
	default:
		return contact.FormatValue(v), nil
	}
}

// parseList reads a JSON array cell. Cells without a leading bracket are
// split on commas, as older output files wrote them.
func parseList(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") {
		out := []string{}
		if err := json.Unmarshal([]byte(s), &out); err != nil {
			return nil, err
		}
		return out, nil
	}
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out, nil
}
