// Package orchestrator sequences the enrichment stages (normalize, enrich,
// summarize), merges their outputs into one record and applies the cache
// policy.
package orchestrator

import (
	"context"
	"errors"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/palantir/contact-enricher/internal/cache"
	"github.com/palantir/contact-enricher/internal/contact"
	"github.com/palantir/contact-enricher/internal/logger"
	"github.com/palantir/contact-enricher/pkg/pipeline/worker"
	"golang.org/x/time/rate"
)

// Normalizer turns raw input into structured fields and an enrichment path.
type Normalizer interface {
	Normalize(ctx context.Context, raw contact.RawInputs) (contact.NormalizedData, error)
}

// Enricher resolves a normalized contact to a profile.
type Enricher interface {
	Enrich(ctx context.Context, n contact.NormalizedData) (contact.EnrichedProfile, error)
}

// Summarizer condenses free-text notes.
type Summarizer interface {
	Summarize(ctx context.Context, notes string) (contact.NotesSummary, error)
}

// State is how a run was served.
type State string

const (
	StateMiss     State = "miss"
	StateHitFresh State = "hit_fresh"
	StateHitStale State = "hit_stale"
)

// Result is the outcome of a successful run.
type Result struct {
	Record contact.ContactData
	State  State
	// Warning is set when a stale cache hit could not refresh its notes; Record
	// is then the unchanged cached entry.
	Warning error
}

type Options struct {
	// RequestTimeout bounds each stage attempt. Defaults to 30s.
	RequestTimeout time.Duration
	// MaxRetries is the retry budget for transient stage failures.
	MaxRetries int
	// RateLimitRPS caps stage calls across all runs. <=0 disables.
	RateLimitRPS float64

	Logger *charmlog.Logger
	// Now stamps CreatedAt. Defaults to time.Now.
	Now func() time.Time
}

type Orchestrator struct {
	normalizer Normalizer
	enricher   Enricher
	summarizer Summarizer

	stageOpts worker.Options
	logger    *charmlog.Logger
	now       func() time.Time
}

func New(n Normalizer, e Enricher, s Summarizer, opts Options) *Orchestrator {
	var limiter *rate.Limiter
	if opts.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimitRPS), 1)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		normalizer: n,
		enricher:   e,
		summarizer: s,
		stageOpts: worker.Options{
			MaxRetries:        opts.MaxRetries,
			RequestTimeout:    opts.RequestTimeout,
			Limiter:           limiter,
			BackoffInitial:    200 * time.Millisecond,
			BackoffMax:        2 * time.Second,
			BackoffJitterFrac: 0.2,
		},
		logger: logger.OrDiscard(opts.Logger),
		now:    now,
	}
}

// Run enriches raw, serving from c where possible. On any stage failure the
// cache is left untouched and the error matches the failed stage's sentinel.
func (o *Orchestrator) Run(ctx context.Context, raw contact.RawInputs, c *cache.Cache) (Result, error) {
	if c == nil {
		return Result{}, errors.New("orchestrator: nil cache")
	}
	if !raw.HasIdentity() {
		return Result{}, contact.Validationf("provide at least a name, company, or LinkedIn URL")
	}

	key := contact.CacheKey(raw)
	unlock := c.Lock(key)
	defer unlock()

	log := o.logger.With("key", key)
	if cached, ok := c.Get(key); ok {
		if raw.Notes == cached.NotesRaw {
			log.Debug("cache hit", "state", StateHitFresh)
			return Result{Record: cached, State: StateHitFresh}, nil
		}
		return o.refreshNotes(ctx, log, key, raw.Notes, cached, c), nil
	}

	log.Debug("cache miss", "path", "normalize")
	rec, err := o.enrichFresh(ctx, raw)
	if err != nil {
		log.Warn("enrichment failed", "err", err)
		return Result{}, err
	}
	c.Put(key, rec)
	log.Info("contact enriched", "name", rec.Name, "company", rec.Company, "sources", rec.Sources)
	return Result{Record: rec, State: StateMiss}, nil
}

func (o *Orchestrator) refreshNotes(
	ctx context.Context,
	log *charmlog.Logger,
	key string,
	notes string,
	cached contact.ContactData,
	c *cache.Cache,
) Result {
	summary, err := worker.Do(ctx, notes, o.summarizer.Summarize, o.stageOpts)
	if err != nil {
		warn := &contact.StageError{Stage: contact.StageSummarize, Err: err}
		log.Warn("notes refresh failed, serving cached record", "err", warn)
		return Result{Record: cached, State: StateHitStale, Warning: warn}
	}
	updated := cached.WithNotes(notes, summary)
	c.Put(key, updated)
	log.Debug("cache hit", "state", StateHitStale, "tags", updated.Tags)
	return Result{Record: updated, State: StateHitStale}
}

func (o *Orchestrator) enrichFresh(ctx context.Context, raw contact.RawInputs) (contact.ContactData, error) {
	normalized, err := worker.Do(ctx, raw, o.normalizer.Normalize, o.stageOpts)
	if err != nil {
		return contact.ContactData{}, &contact.StageError{Stage: contact.StageNormalize, Err: err}
	}
	if !normalized.EnrichmentPath.Valid() {
		normalized.EnrichmentPath = contact.SelectPath(normalized)
	}

	profile, err := worker.Do(ctx, normalized, o.enricher.Enrich, o.stageOpts)
	if err != nil {
		return contact.ContactData{}, &contact.StageError{Stage: contact.StageEnrich, Err: err}
	}

	summary := contact.EmptySummary()
	if raw.Notes != "" {
		summary, err = worker.Do(ctx, raw.Notes, o.summarizer.Summarize, o.stageOpts)
		if err != nil {
			return contact.ContactData{}, &contact.StageError{Stage: contact.StageSummarize, Err: err}
		}
	}

	return merge(normalized, profile, raw.Notes, summary, o.now()), nil
}

// merge builds the record. A user-supplied LinkedIn URL wins over the looked-up one.
func merge(
	n contact.NormalizedData,
	p contact.EnrichedProfile,
	notes string,
	summary contact.NotesSummary,
	createdAt time.Time,
) contact.ContactData {
	if n.LinkedInURL != "" {
		p.LinkedInURL = n.LinkedInURL
	}
	if p.Sources == nil {
		p.Sources = []string{}
	}
	tags := summary.Tags
	if tags == nil {
		tags = []string{}
	}
	return contact.ContactData{
		EnrichedProfile: p,
		NotesRaw:        notes,
		NotesSummary:    summary.NotesSummary,
		Tags:            tags,
		CreatedAt:       createdAt.UTC(),
	}
}
