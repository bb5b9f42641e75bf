// Package session holds the state of one interactive enrichment session: the
// form inputs, the record on display, the selected destinations and the toast
// notifications raised by enrich and save actions. It has no UI dependencies.
package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/palantir/contact-enricher/internal/cache"
	"github.com/palantir/contact-enricher/internal/contact"
	"github.com/palantir/contact-enricher/internal/destination"
	"github.com/palantir/contact-enricher/internal/logger"
	"github.com/palantir/contact-enricher/internal/orchestrator"
	"github.com/palantir/contact-enricher/internal/saver"
	"github.com/palantir/contact-enricher/pkg/pipeline/redact"
)

const DefaultToastTTL = 5 * time.Second

const (
	msgMissingIdentity = "Please provide at least a Name, Company, or LinkedIn URL."
	msgEnriched        = "Contact enriched successfully!"
	msgFromCache       = "Contact data loaded from cache."
	msgNotesUpdated    = "Used cached data and updated notes."
	msgNotesFailed     = "Failed to summarize notes. Using cached data."
	msgUnknownFailure  = "An unknown error occurred during enrichment."
	msgNothingToSave   = "No data to save or no destination selected."
)

// ErrBusy is returned when an action is triggered while the same action is
// still running.
var ErrBusy = errors.New("session: action already in progress")

type ToastKind string

const (
	ToastSuccess ToastKind = "success"
	ToastError   ToastKind = "error"
	ToastInfo    ToastKind = "info"
)

// Toast is a transient notification.
type Toast struct {
	Kind      ToastKind
	Message   string
	ExpiresAt time.Time
}

// Enricher runs the enrichment pipeline against a cache.
type Enricher interface {
	Run(ctx context.Context, raw contact.RawInputs, c *cache.Cache) (orchestrator.Result, error)
}

// Saver persists a record to destinations.
type Saver interface {
	SaveAll(ctx context.Context, rec *contact.ContactData, dests []destination.ID) (saver.Report, error)
}

type Options struct {
	// ToastTTL is how long a toast stays visible. Defaults to 5s.
	ToastTTL time.Duration
	Now      func() time.Time
	Logger   *charmlog.Logger
}

type Session struct {
	enricher Enricher
	saver    Saver
	cache    *cache.Cache
	toastTTL time.Duration
	now      func() time.Time
	logger   *charmlog.Logger

	mu        sync.Mutex
	inputs    contact.RawInputs
	record    *contact.ContactData
	dests     []destination.ID
	toasts    []Toast
	enriching bool
	saving    bool
}

// New starts a session. c lives as long as the session; a nil c gets an
// unbounded cache.
func New(e Enricher, s Saver, c *cache.Cache, opts Options) *Session {
	if c == nil {
		c = cache.New(cache.Options{})
	}
	ttl := opts.ToastTTL
	if ttl <= 0 {
		ttl = DefaultToastTTL
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Session{
		enricher: e,
		saver:    s,
		cache:    c,
		toastTTL: ttl,
		now:      now,
		logger:   logger.OrDiscard(opts.Logger),
	}
}

func (s *Session) Inputs() contact.RawInputs {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inputs
}

func (s *Session) SetInputs(raw contact.RawInputs) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputs = raw
}

// Record returns a copy of the record on display, or nil.
func (s *Session) Record() *contact.ContactData {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.record == nil {
		return nil
	}
	rec := s.record.Clone()
	return &rec
}

func (s *Session) Destinations() []destination.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.dests)
}

func (s *Session) SetDestinations(ids []destination.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dests = destination.Dedupe(ids)
}

// Busy reports whether an enrichment or save is in flight.
func (s *Session) Busy() (enriching, saving bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enriching, s.saving
}

// Toasts returns the toasts that have not expired yet, oldest first.
func (s *Session) Toasts() []Toast {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.toasts = slices.DeleteFunc(s.toasts, func(t Toast) bool {
		return !now.Before(t.ExpiresAt)
	})
	return slices.Clone(s.toasts)
}

// DismissToasts drops every toast.
func (s *Session) DismissToasts() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toasts = nil
}

func (s *Session) toastLocked(kind ToastKind, msg string) {
	s.toasts = append(s.toasts, Toast{Kind: kind, Message: msg, ExpiresAt: s.now().Add(s.toastTTL)})
}

// Enrich runs the pipeline on the current inputs. The displayed record is
// cleared first and replaced only on success.
func (s *Session) Enrich(ctx context.Context) (orchestrator.Result, error) {
	s.mu.Lock()
	if s.enriching {
		s.mu.Unlock()
		return orchestrator.Result{}, ErrBusy
	}
	raw := s.inputs
	if !raw.HasIdentity() {
		s.toastLocked(ToastError, msgMissingIdentity)
		s.mu.Unlock()
		return orchestrator.Result{}, contact.Validationf("no identity fields")
	}
	s.enriching = true
	s.record = nil
	s.mu.Unlock()

	res, err := s.enricher.Run(ctx, raw, s.cache)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.enriching = false
	if err != nil {
		s.logger.Warn("enrichment failed", "err", redact.Secrets(err.Error()))
		s.toastLocked(ToastError, failureMessage(err))
		return orchestrator.Result{}, err
	}

	rec := res.Record
	s.record = &rec
	switch {
	case res.Warning != nil:
		s.toastLocked(ToastError, msgNotesFailed)
	case res.State == orchestrator.StateHitFresh:
		s.toastLocked(ToastInfo, msgFromCache)
	case res.State == orchestrator.StateHitStale:
		s.toastLocked(ToastInfo, msgNotesUpdated)
	default:
		s.toastLocked(ToastSuccess, msgEnriched)
	}
	return res, nil
}

func failureMessage(err error) string {
	msg := redact.Secrets(err.Error())
	if msg == "" {
		return msgUnknownFailure
	}
	return msg
}

// Save persists the displayed record to the selected destinations. When every
// destination succeeds the record and the form are cleared; otherwise both are
// kept so the user can retry.
func (s *Session) Save(ctx context.Context) (saver.Report, error) {
	s.mu.Lock()
	if s.saving {
		s.mu.Unlock()
		return saver.Report{}, ErrBusy
	}
	if s.record == nil || len(s.dests) == 0 {
		s.toastLocked(ToastError, msgNothingToSave)
		s.mu.Unlock()
		return saver.Report{}, contact.Validationf("no record or destination")
	}
	s.saving = true
	shown := s.record
	rec := *s.record
	dests := slices.Clone(s.dests)
	s.mu.Unlock()

	rep, err := s.saver.SaveAll(ctx, &rec, dests)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.saving = false
	if err != nil {
		s.toastLocked(ToastError, failureMessage(err))
		return saver.Report{}, err
	}
	for _, o := range rep.Outcomes {
		if o.OK() {
			s.toastLocked(ToastSuccess, fmt.Sprintf("Successfully saved to %s.", o.Destination.DisplayName()))
			continue
		}
		s.toastLocked(ToastError, fmt.Sprintf("Failed to save to %s: %s", o.Destination.DisplayName(), o.Err.Error()))
	}
	// A new enrichment may have replaced the record while saving.
	if rep.AllSucceeded() && s.record == shown {
		s.record = nil
		s.inputs = contact.RawInputs{}
	}
	return rep, nil
}
