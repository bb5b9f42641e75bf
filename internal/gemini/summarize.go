package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/palantir/contact-enricher/internal/contact"
	"google.golang.org/genai"
)

const maxTags = 3

type summarizeResponse struct {
	NotesSummary string   `json:"notesSummary"`
	Tags         []string `json:"tags"`
}

var summarizeSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"notesSummary": {
			Type:        genai.TypeString,
			Description: "A concise summary of the notes, highlighting key topics and action items.",
		},
		"tags": {
			Type:        genai.TypeArray,
			Items:       &genai.Schema{Type: genai.TypeString},
			Description: `A list of 1-3 relevant tags or keywords (e.g., "Follow-up", "Pricing", "Q4-Prospect").`,
		},
	},
	Required: []string{"notesSummary", "tags"},
}

// Summarize produces a short summary and up to three tags. Blank notes return
// the empty summary without calling the API.
func (c *Client) Summarize(ctx context.Context, notes string) (contact.NotesSummary, error) {
	if strings.TrimSpace(notes) == "" {
		return contact.EmptySummary(), nil
	}

	var parsed summarizeResponse
	if err := c.generateJSON(ctx, buildSummarizePrompt(notes), summarizeSchema, &parsed); err != nil {
		return contact.NotesSummary{}, fmt.Errorf("gemini summarize: %w", err)
	}

	tags := dedupePreserveOrder(parsed.Tags)
	if len(tags) > maxTags {
		tags = tags[:maxTags]
	}
	return contact.NotesSummary{
		NotesSummary: strings.TrimSpace(parsed.NotesSummary),
		Tags:         tags,
	}, nil
}

func buildSummarizePrompt(notes string) string {
	return strings.TrimSpace(`
Summarize the following notes. Identify key topics, dates, and potential follow-up actions.
Extract a few relevant tags. Keep the summary concise.

Notes:
---
` + notes + `
---
`)
}
