package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/palantir/contact-enricher/internal/contact"
	"google.golang.org/genai"
)

type normalizeResponse struct {
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	CompanyName    string `json:"companyName"`
	Domain         string `json:"domain"`
	LinkedInURL    string `json:"linkedinUrl"`
	EnrichmentPath string `json:"enrichmentPath"`
}

var normalizeSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"firstName":   {Type: genai.TypeString, Description: "The person's first name."},
		"lastName":    {Type: genai.TypeString, Description: "The person's last name."},
		"companyName": {Type: genai.TypeString, Description: "The cleaned company name."},
		"domain":      {Type: genai.TypeString, Description: "The inferred company domain (e.g., acme.com)."},
		"linkedinUrl": {Type: genai.TypeString, Description: "The validated LinkedIn profile URL."},
		"enrichmentPath": {
			Type: genai.TypeString,
			Enum: []string{
				string(contact.PathNameAndDomain),
				string(contact.PathLinkedIn),
				string(contact.PathNameOnly),
			},
			Description: `The best enrichment path. Use "linkedin" if a URL is provided. ` +
				`Use "nameAndDomain" if name and company/domain are provided. Otherwise, use "nameOnly".`,
		},
	},
}

// Normalize turns raw form input into structured fields and an enrichment path.
func (c *Client) Normalize(ctx context.Context, raw contact.RawInputs) (contact.NormalizedData, error) {
	var parsed normalizeResponse
	if err := c.generateJSON(ctx, buildNormalizePrompt(raw), normalizeSchema, &parsed); err != nil {
		return contact.NormalizedData{}, fmt.Errorf("gemini normalize: %w", err)
	}

	out := contact.NormalizedData{
		FirstName:      strings.TrimSpace(parsed.FirstName),
		LastName:       strings.TrimSpace(parsed.LastName),
		CompanyName:    strings.TrimSpace(parsed.CompanyName),
		Domain:         cleanDomain(parsed.Domain),
		LinkedInURL:    cleanLinkedInURL(parsed.LinkedInURL),
		EnrichmentPath: contact.EnrichmentPath(strings.TrimSpace(parsed.EnrichmentPath)),
	}
	if out.LinkedInURL == "" {
		// The model sometimes drops a URL it could not verify; the user typed it.
		out.LinkedInURL = cleanLinkedInURL(raw.LinkedInURL)
	}
	switch {
	case out.LinkedInURL != "":
		out.EnrichmentPath = contact.PathLinkedIn
	case !out.EnrichmentPath.Valid():
		out.EnrichmentPath = contact.SelectPath(out)
	}
	return out, nil
}

func buildNormalizePrompt(raw contact.RawInputs) string {
	return strings.TrimSpace(fmt.Sprintf(`
Normalize the following contact information.
- Trim whitespace from all fields.
- Extract the first and last name from the full name.
- If a company name is given but no domain, infer the most likely company domain.
- Validate the LinkedIn URL if provided.
- Determine the best enrichment path based on the available data.

Inputs:
Name: %q
Company: %q
LinkedIn URL: %q
`, strings.TrimSpace(raw.Name), strings.TrimSpace(raw.Company), strings.TrimSpace(raw.LinkedInURL)))
}

// cleanLinkedInURL keeps only LinkedIn URLs and gives them an https scheme.
func cleanLinkedInURL(raw string) string {
	u := strings.TrimSpace(raw)
	if u == "" || !strings.Contains(strings.ToLower(u), "linkedin.com/") {
		return ""
	}
	if !strings.Contains(u, "://") {
		u = "https://" + u
	}
	return u
}

func cleanDomain(raw string) string {
	d := strings.ToLower(strings.TrimSpace(raw))
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "http://")
	d = strings.TrimPrefix(d, "www.")
	if i := strings.IndexAny(d, "/?#"); i >= 0 {
		d = d[:i]
	}
	return d
}
