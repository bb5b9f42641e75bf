// Package saver persists one contact record to several destinations at once.
package saver

import (
	"context"
	"errors"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/palantir/contact-enricher/internal/contact"
	"github.com/palantir/contact-enricher/internal/destination"
	"github.com/palantir/contact-enricher/internal/logger"
	"github.com/palantir/contact-enricher/pkg/pipeline/redact"
	"github.com/palantir/contact-enricher/pkg/pipeline/worker"
)

// Outcome is the settled result of one destination.
type Outcome struct {
	Destination destination.ID
	// Message is the connector's success message. Empty on failure.
	Message string
	Err     error
}

func (o Outcome) OK() bool { return o.Err == nil }

// Report lists one outcome per requested destination, in request order after
// de-duplication.
type Report struct {
	ID       string
	Outcomes []Outcome
}

// AllSucceeded reports whether every destination saved the record.
func (r Report) AllSucceeded() bool {
	if len(r.Outcomes) == 0 {
		return false
	}
	for _, o := range r.Outcomes {
		if !o.OK() {
			return false
		}
	}
	return true
}

// Failed returns the outcomes that did not succeed.
func (r Report) Failed() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if !o.OK() {
			out = append(out, o)
		}
	}
	return out
}

// DestinationError is a failed save. Its message is the redacted cause; it
// matches both contact.ErrDestinationSave and the cause.
type DestinationError struct {
	Destination destination.ID
	Err         error
}

func (e *DestinationError) Error() string {
	if e == nil || e.Err == nil {
		return contact.ErrDestinationSave.Error()
	}
	return redact.Secrets(e.Err.Error())
}

func (e *DestinationError) Unwrap() []error {
	if e == nil {
		return nil
	}
	return []error{contact.ErrDestinationSave, e.Err}
}

type Options struct {
	// MaxRetries is the retry budget for transient connector failures.
	MaxRetries int
	// RequestTimeout bounds each connector attempt. Defaults to 30s.
	RequestTimeout time.Duration
	Logger         *charmlog.Logger
}

type Saver struct {
	registry *destination.Registry
	opts     Options
	logger   *charmlog.Logger
}

func New(registry *destination.Registry, opts Options) *Saver {
	return &Saver{
		registry: registry,
		opts:     opts,
		logger:   logger.OrDiscard(opts.Logger),
	}
}

// SaveAll issues every destination concurrently and waits for all of them to
// settle. One destination failing never cancels or hides another. The
// returned error is only set for invalid requests. If ctx is cancelled, the
// destinations that had not settled report the cancellation as their outcome.
//
// A save is sent again only when the connector marks the failure as a rate
// limit rejection (destination.Resendable); timeouts and server errors are
// reported once.
func (s *Saver) SaveAll(ctx context.Context, rec *contact.ContactData, dests []destination.ID) (Report, error) {
	if rec == nil {
		return Report{}, contact.Validationf("no contact data to save")
	}
	dests = destination.Dedupe(dests)
	if len(dests) == 0 {
		return Report{}, contact.Validationf("no destination selected")
	}

	snapshot := rec.Clone()
	report := Report{ID: uuid.NewString()}
	log := s.logger.With("save", report.ID)
	log.Debug("saving contact", "name", snapshot.Name, "destinations", dests)

	slot := make(map[destination.ID]int, len(dests))
	for i, id := range dests {
		slot[id] = i
	}
	settled := make([]*worker.Result[destination.ID, string], len(dests))

	start := time.Now()
	_, runErr := worker.ProcessAllWithCallback(ctx, dests, func(ctx context.Context, id destination.ID) (string, error) {
		c, err := s.registry.Get(id)
		if err != nil {
			return "", err
		}
		return c.Save(ctx, snapshot.Clone())
	}, func(r worker.Result[destination.ID, string]) error {
		settled[slot[r.Input]] = &r
		return nil
	}, worker.Options{
		Workers:        len(dests),
		MaxRetries:     s.opts.MaxRetries,
		RequestTimeout: s.opts.RequestTimeout,
		FailurePolicy:  worker.FailurePolicyPartialOutput,
		Retryable:      destination.Resendable,
	})

	report.Outcomes = make([]Outcome, len(dests))
	for i, id := range dests {
		out := Outcome{Destination: id}
		switch r := settled[i]; {
		case r == nil:
			cause := runErr
			if cause == nil {
				cause = context.Canceled
			}
			out.Err = &DestinationError{Destination: id, Err: cause}
			log.Warn("save not settled", "destination", id, "err", out.Err)
		case r.Err != nil:
			out.Err = &DestinationError{Destination: id, Err: r.Err}
			log.Warn("save failed", "destination", id, "err", out.Err)
		default:
			out.Message = r.Output
			log.Info("saved", "destination", id)
		}
		report.Outcomes[i] = out
	}
	log.Debug("save settled", "ok", report.AllSucceeded(), "duration", time.Since(start).Round(time.Millisecond))
	return report, nil
}

// IsUnknown reports whether o failed because no connector was registered.
func IsUnknown(o Outcome) bool {
	return errors.Is(o.Err, destination.ErrUnknown)
}
