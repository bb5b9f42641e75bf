package app

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/palantir/contact-enricher/internal/contact"
	"github.com/palantir/contact-enricher/pkg/pipeline/core"
	"github.com/palantir/contact-enricher/pkg/pipeline/redact"
	"github.com/palantir/contact-enricher/pkg/pipeline/worker"
)

// tracer logs every stage attempt with its request, response, duration and
// retry outlook. Attempts are counted per stage and item key.
type tracer struct {
	logger         *charmlog.Logger
	maxRetries     int
	requestTimeout time.Duration

	mu       sync.Mutex
	attempts map[string]int
}

func newTracer(l *charmlog.Logger, maxRetries int, requestTimeout time.Duration) *tracer {
	return &tracer{
		logger:         l,
		maxRetries:     maxRetries,
		requestTimeout: requestTimeout,
		attempts:       make(map[string]int),
	}
}

func (t *tracer) nextAttempt(key string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.attempts[key]++
	return t.attempts[key]
}

// done forgets key so a later run of the same contact starts at attempt 1.
func (t *tracer) done(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.attempts, key)
}

func traceStage[In any, Out any](
	t *tracer,
	stage contact.Stage,
	keyOf func(In) string,
	next core.ProcessFunc[In, Out],
) core.ProcessFunc[In, Out] {
	return func(ctx context.Context, in In) (Out, error) {
		key := string(stage) + ":" + keyOf(in)
		attempt := t.nextAttempt(key)

		deadlineIn := "none"
		if d, ok := ctx.Deadline(); ok {
			deadlineIn = time.Until(d).Round(time.Millisecond).String()
		}
		t.logger.Debug("stage request",
			"stage", stage,
			"attempt", attempt,
			"timeout", t.requestTimeout,
			"deadlineIn", deadlineIn,
			"request", redact.Secrets(toJSON(in)),
		)

		start := time.Now()
		out, err := next(ctx, in)
		elapsed := time.Since(start).Round(time.Millisecond)

		if err != nil {
			budget := worker.RetryBudget(t.maxRetries, err)
			retryable := worker.IsTransient(err)
			willRetry := retryable && attempt <= budget
			t.logger.Debug("stage response",
				"stage", stage,
				"attempt", attempt,
				"duration", elapsed,
				"status", "error",
				"retryable", retryable,
				"willRetry", willRetry,
				"maxExtraRetries", budget,
				"err", redact.Secrets(err.Error()),
			)
			if !willRetry {
				t.done(key)
			}
			return out, err
		}

		t.done(key)
		t.logger.Debug("stage response",
			"stage", stage,
			"attempt", attempt,
			"duration", elapsed,
			"status", "ok",
			"response", toJSON(out),
		)
		return out, nil
	}
}

func toJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func normalizeKey(raw contact.RawInputs) string { return contact.CacheKey(raw) }

func enrichKey(n contact.NormalizedData) string {
	if n.LinkedInURL != "" {
		return n.LinkedInURL
	}
	return n.FullName() + "|" + n.Domain
}

func summarizeKey(notes string) string {
	if len(notes) > 32 {
		return notes[:32]
	}
	return notes
}
