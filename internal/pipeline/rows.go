package pipeline

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/palantir/contact-enricher/internal/cache"
	"github.com/palantir/contact-enricher/internal/contact"
	"github.com/palantir/contact-enricher/internal/orchestrator"
	localio "github.com/palantir/contact-enricher/pkg/pipeline/io/local"
	"github.com/palantir/contact-enricher/pkg/pipeline/redact"
	"github.com/palantir/contact-enricher/pkg/pipeline/worker"
)

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Input CSV columns.
const (
	ColName        = "name"
	ColCompany     = "company"
	ColLinkedInURL = "linkedin_url"
	ColNotes       = "notes"
)

// Row is one output line of a batch run.
type Row struct {
	Record   contact.ContactData
	CacheKey string
	// Cache is the orchestrator state that served the row. Empty on error.
	Cache  orchestrator.State
	Status string
	Error  string
}

type Options struct {
	Workers  int
	FailFast bool
	// RowTimeout bounds the whole pipeline for one row. Defaults to 2m.
	RowTimeout time.Duration
}

// Runner runs the enrichment pipeline for one contact.
type Runner interface {
	Run(ctx context.Context, raw contact.RawInputs, c *cache.Cache) (orchestrator.Result, error)
}

// ReadInputs reads contacts from a CSV with any of the name, company,
// linkedin_url and notes columns.
func ReadInputs(r io.Reader) ([]contact.RawInputs, error) {
	recs, err := localio.ReadColumnsCSV(r, []string{ColName, ColCompany, ColLinkedInURL, ColNotes})
	if err != nil {
		return nil, err
	}
	out := make([]contact.RawInputs, 0, len(recs))
	for _, rec := range recs {
		out = append(out, contact.RawInputs{
			Name:        rec[ColName],
			Company:     rec[ColCompany],
			LinkedInURL: rec[ColLinkedInURL],
			Notes:       rec[ColNotes],
		})
	}
	return out, nil
}

// EnrichContacts runs the pipeline over all inputs and returns one row per
// input in input order. Rows that share a cache key share c.
//
// Errors from enrichment are recorded per-row and do not fail the full run
// unless FailFast is set.
func EnrichContacts(ctx context.Context, inputs []contact.RawInputs, runner Runner, c *cache.Cache, opts Options) ([]Row, error) {
	return EnrichContactsStream(ctx, inputs, runner, c, opts, nil)
}

// EnrichContactsStream is EnrichContacts with a callback invoked as each row
// completes, in completion order.
func EnrichContactsStream(
	ctx context.Context,
	inputs []contact.RawInputs,
	runner Runner,
	c *cache.Cache,
	opts Options,
	onRow func(Row) error,
) ([]Row, error) {
	if c == nil {
		c = cache.New(cache.Options{})
	}
	policy := worker.FailurePolicyPartialOutput
	if opts.FailFast {
		policy = worker.FailurePolicyFailFast
	}
	timeout := opts.RowTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	var cb func(worker.Result[contact.RawInputs, orchestrator.Result]) error
	if onRow != nil {
		cb = func(r worker.Result[contact.RawInputs, orchestrator.Result]) error {
			return onRow(toRow(r))
		}
	}

	// Stage retries happen inside the orchestrator; rows are not retried.
	out, err := worker.ProcessAllWithCallback(ctx, inputs, func(ctx context.Context, raw contact.RawInputs) (orchestrator.Result, error) {
		return runner.Run(ctx, raw, c)
	}, cb, worker.Options{
		Workers:        opts.Workers,
		MaxRetries:     0,
		RequestTimeout: timeout,
		FailurePolicy:  policy,
	})
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(out))
	for _, r := range out {
		rows = append(rows, toRow(r))
	}
	return rows, nil
}

func toRow(r worker.Result[contact.RawInputs, orchestrator.Result]) Row {
	key := ""
	if r.Input.HasIdentity() {
		key = contact.CacheKey(r.Input)
	}
	if r.Err != nil {
		return Row{
			Record: contact.ContactData{
				EnrichedProfile: contact.EnrichedProfile{
					Name:        strings.TrimSpace(r.Input.Name),
					Company:     strings.TrimSpace(r.Input.Company),
					LinkedInURL: strings.TrimSpace(r.Input.LinkedInURL),
				},
				NotesRaw: r.Input.Notes,
			},
			CacheKey: key,
			Status:   StatusError,
			Error:    redact.Secrets(r.Err.Error()),
		}
	}
	return Row{
		Record:   r.Output.Record,
		CacheKey: key,
		Cache:    r.Output.State,
		Status:   StatusOK,
	}
}

// Seed stores every ok row in c so a rerun serves unchanged contacts from
// cache.
func Seed(c *cache.Cache, rows []Row) int {
	n := 0
	for _, r := range rows {
		if !strings.EqualFold(strings.TrimSpace(r.Status), StatusOK) || r.CacheKey == "" {
			continue
		}
		c.Put(r.CacheKey, r.Record)
		n++
	}
	return n
}

// CountStatuses tallies ok and error rows.
func CountStatuses(rows []Row) (okRows int, errorRows int) {
	for _, row := range rows {
		if strings.EqualFold(strings.TrimSpace(row.Status), StatusOK) {
			okRows++
			continue
		}
		errorRows++
	}
	return okRows, errorRows
}
