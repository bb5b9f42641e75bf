// Package redact scrubs credentials from strings before they reach a log line,
// a toast or a CSV cell.
package redact

import (
	"regexp"
	"strings"
)

type rule struct {
	re   *regexp.Regexp
	repl string
}

// Applied in order; earlier rules consume the text later rules would match.
var rules = []rule{
	// Service account JSON pasted into an error.
	{regexp.MustCompile(`-----BEGIN [A-Z ]*PRIVATE KEY-----[\s\S]*?-----END [A-Z ]*PRIVATE KEY-----`), "<redacted_private_key>"},
	{regexp.MustCompile(`(?i)\bBearer\s+[^\s"']+`), "Bearer <redacted>"},
	// key=..., api_key: ..., GEMINI_API_KEY=..., NOTION_TOKEN=... and ?key= query params.
	{regexp.MustCompile(`(?i)\b(api[_-]?key|gemini[_-]?api[_-]?key|notion[_-]?token|key)\b\s*[:=]\s*[^\s"'&]+`), "<redacted_kv>"},
	// Bare Google API keys.
	{regexp.MustCompile(`\bAIza[0-9A-Za-z_\-]{30,}`), "<redacted_api_key>"},
	// Notion internal integration secrets.
	{regexp.MustCompile(`\b(secret|ntn)_[A-Za-z0-9]{16,}\b`), "<redacted_secret>"},
	// Google OAuth access tokens.
	{regexp.MustCompile(`\bya29\.[A-Za-z0-9._\-]+`), "<redacted_token>"},
}

// Secrets removes credential-bearing substrings and trims the result.
func Secrets(s string) string {
	if s == "" {
		return ""
	}
	for _, r := range rules {
		s = r.re.ReplaceAllString(s, r.repl)
	}
	return strings.TrimSpace(s)
}
