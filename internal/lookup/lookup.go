// Package lookup is a stand-in for a third-party person enrichment API. It
// resolves a normalized contact against an in-memory data source with
// simulated network latency.
package lookup

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/palantir/contact-enricher/internal/contact"
)

const (
	SourcePerson   = "api.mockenrich.com/v1/person"
	SourcePartial  = "api.mockenrich.com/v1/partial"
	SourceNotFound = "api.mockenrich.com/v1/notfound"

	DefaultLatency = 1500 * time.Millisecond
)

// Options configures a Service.
type Options struct {
	// Latency is the simulated response time. Zero disables the delay.
	Latency time.Duration
	// Records are merged over the seed data; keys are "linkedin.com/in/<id>"
	// or "first.last@domain".
	Records map[string]contact.EnrichedProfile
}

// Service resolves normalized contacts to profiles. Lookups never fail on a
// miss; they degrade to a partial or not-found profile.
type Service struct {
	latency time.Duration
	records map[string]contact.EnrichedProfile
}

func New(opts Options) *Service {
	records := seedRecords()
	maps.Copy(records, opts.Records)
	return &Service{latency: opts.Latency, records: records}
}

// Enrich looks up a profile by the normalized enrichment path.
func (s *Service) Enrich(ctx context.Context, n contact.NormalizedData) (contact.EnrichedProfile, error) {
	if err := s.wait(ctx); err != nil {
		return contact.EnrichedProfile{}, err
	}

	fullName := n.FullName()
	var (
		found contact.EnrichedProfile
		ok    bool
	)
	switch n.EnrichmentPath {
	case contact.PathLinkedIn:
		if key := linkedInKey(n.LinkedInURL); key != "" {
			found, ok = s.records[key]
		}
	case contact.PathNameAndDomain:
		if n.Domain != "" && fullName != "" {
			found, ok = s.records[emailKey(n)]
			if !ok {
				found, ok = partialProfile(n), true
			}
		}
	}

	if !ok {
		return notFoundProfile(n), nil
	}

	out := found
	out.Sources = append([]string(nil), found.Sources...)
	out.Name = orDefault(fullName, contact.DefaultName)
	out.Company = firstNonEmpty(found.Company, n.CompanyName, contact.DefaultCompany)
	return out, nil
}

func (s *Service) wait(ctx context.Context) error {
	if s.latency <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(s.latency)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", contact.ErrEnrichmentLookup, ctx.Err())
	}
}

// linkedInKey derives "linkedin.com/in/<id>" from a profile URL.
func linkedInKey(rawURL string) string {
	lower := strings.ToLower(strings.TrimSpace(rawURL))
	if !strings.Contains(lower, "linkedin.com/in/") {
		return ""
	}
	_, rest, _ := strings.Cut(lower, "/in/")
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		rest = rest[:i]
	}
	if rest == "" {
		return ""
	}
	return "linkedin.com/in/" + rest
}

func emailKey(n contact.NormalizedData) string {
	return strings.ToLower(strings.TrimSpace(n.FirstName)) + "." +
		strings.ToLower(strings.TrimSpace(n.LastName)) + "@" +
		strings.ToLower(strings.TrimSpace(n.Domain))
}

func partialProfile(n contact.NormalizedData) contact.EnrichedProfile {
	return contact.EnrichedProfile{
		Company:     orDefault(n.CompanyName, contact.DefaultCompany),
		Role:        "Role not found",
		Website:     "https://" + n.Domain,
		Industry:    "Unknown",
		LinkedInURL: n.LinkedInURL,
		Sources:     []string{SourcePartial},
	}
}

func notFoundProfile(n contact.NormalizedData) contact.EnrichedProfile {
	p := contact.EnrichedProfile{
		Name:        orDefault(n.FullName(), contact.DefaultName),
		Company:     orDefault(n.CompanyName, contact.DefaultCompany),
		LinkedInURL: n.LinkedInURL,
		Sources:     []string{SourceNotFound},
	}
	if n.Domain != "" {
		p.Website = "https://" + n.Domain
	}
	return p
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
