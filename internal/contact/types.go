// Package contact defines the contact records that flow through the enrichment
// pipeline and the errors each stage can produce.
package contact

import (
	"slices"
	"strings"
	"time"
)

const (
	DefaultName    = "Name Not Provided"
	DefaultCompany = "Unknown Company"
)

// RawInputs are the user-editable form fields. All are optional.
type RawInputs struct {
	Name        string `json:"name"`
	Company     string `json:"company"`
	LinkedInURL string `json:"linkedinUrl"`
	Notes       string `json:"notes"`
}

// HasIdentity reports whether at least one identity field is set.
func (r RawInputs) HasIdentity() bool {
	return strings.TrimSpace(r.Name) != "" ||
		strings.TrimSpace(r.Company) != "" ||
		strings.TrimSpace(r.LinkedInURL) != ""
}

// CacheKey derives the identity key used to dedupe enrichment work: the
// LinkedIn URL when present, otherwise "name|company".
func CacheKey(r RawInputs) string {
	if u := strings.TrimSpace(r.LinkedInURL); u != "" {
		return u
	}
	return strings.TrimSpace(r.Name) + "|" + strings.TrimSpace(r.Company)
}

// EnrichmentPath selects the lookup strategy for a normalized contact.
type EnrichmentPath string

const (
	PathNameAndDomain EnrichmentPath = "nameAndDomain"
	PathLinkedIn      EnrichmentPath = "linkedin"
	PathNameOnly      EnrichmentPath = "nameOnly"
)

// Valid reports whether p is one of the known paths.
func (p EnrichmentPath) Valid() bool {
	switch p {
	case PathNameAndDomain, PathLinkedIn, PathNameOnly:
		return true
	default:
		return false
	}
}

// NormalizedData is the structured form of RawInputs plus the chosen strategy.
type NormalizedData struct {
	FirstName      string         `json:"firstName,omitempty"`
	LastName       string         `json:"lastName,omitempty"`
	CompanyName    string         `json:"companyName,omitempty"`
	Domain         string         `json:"domain,omitempty"`
	LinkedInURL    string         `json:"linkedinUrl,omitempty"`
	EnrichmentPath EnrichmentPath `json:"enrichmentPath"`
}

// FullName joins the first and last name.
func (n NormalizedData) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(n.FirstName) + " " + strings.TrimSpace(n.LastName))
}

// SelectPath applies the path precedence linkedin > nameAndDomain > nameOnly.
func SelectPath(n NormalizedData) EnrichmentPath {
	switch {
	case strings.TrimSpace(n.LinkedInURL) != "":
		return PathLinkedIn
	case strings.TrimSpace(n.FirstName) != "" && strings.TrimSpace(n.Domain) != "":
		return PathNameAndDomain
	default:
		return PathNameOnly
	}
}

// EnrichedProfile is the lookup result. Name and Company are always set.
type EnrichedProfile struct {
	Name            string   `json:"name"`
	Company         string   `json:"company"`
	Role            string   `json:"role,omitempty"`
	Website         string   `json:"website,omitempty"`
	Email           string   `json:"email,omitempty"`
	EmailConfidence int      `json:"emailConfidence"`
	Phone           string   `json:"phone,omitempty"`
	Industry        string   `json:"industry,omitempty"`
	LinkedInURL     string   `json:"linkedinUrl,omitempty"`
	Sources         []string `json:"sources"`
}

// NotesSummary is the summarized form of free-text notes.
type NotesSummary struct {
	NotesSummary string   `json:"notesSummary"`
	Tags         []string `json:"tags"`
}

// EmptySummary is the summary of blank notes.
func EmptySummary() NotesSummary {
	return NotesSummary{NotesSummary: "", Tags: []string{}}
}

// ContactData is the unit of persistence and the cache value. Values are
// treated as immutable; use WithNotes to derive an updated copy.
type ContactData struct {
	EnrichedProfile

	NotesRaw     string    `json:"notesRaw"`
	NotesSummary string    `json:"notesSummary"`
	Tags         []string  `json:"tags"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Clone returns a copy of c that shares no slices with it.
func (c ContactData) Clone() ContactData {
	out := c
	out.Sources = slices.Clone(c.Sources)
	out.Tags = slices.Clone(c.Tags)
	return out
}

// WithNotes returns a copy of c with the notes fields replaced.
func (c ContactData) WithNotes(raw string, summary NotesSummary) ContactData {
	out := c
	out.Sources = slices.Clone(c.Sources)
	out.NotesRaw = raw
	out.NotesSummary = summary.NotesSummary
	out.Tags = append([]string{}, summary.Tags...)
	return out
}
