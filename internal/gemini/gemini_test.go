package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/palantir/contact-enricher/internal/contact"
	"github.com/palantir/contact-enricher/pkg/pipeline/core"
	"google.golang.org/genai"
)

type tempNetErr struct{}

func (tempNetErr) Error() string   { return "temp net err" }
func (tempNetErr) Timeout() bool   { return false }
func (tempNetErr) Temporary() bool { return true }

func TestClassifyErr(t *testing.T) {
	tests := []struct {
		name          string
		in            error
		wantTransient bool
	}{
		{name: "nil", in: nil, wantTransient: false},
		{name: "api_429", in: genai.APIError{Code: 429}, wantTransient: true},
		{name: "api_500", in: genai.APIError{Code: 500}, wantTransient: true},
		{name: "api_401", in: genai.APIError{Code: 401}, wantTransient: false},
		{name: "net_temporary", in: tempNetErr{}, wantTransient: true},
		{name: "wrapped_api_429", in: errors.New(genai.APIError{Code: 429}.Error()), wantTransient: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyErr(tt.in)
			var te *core.TransientError
			isTransient := errors.As(got, &te)
			if isTransient != tt.wantTransient {
				t.Fatalf("transient=%v want=%v (err=%T %v)", isTransient, tt.wantTransient, got, got)
			}
		})
	}
}

// fakeGemini serves generateContent with a fixed model text payload.
func fakeGemini(t *testing.T, status int, text string) (*Client, *atomic.Int32) {
	t.Helper()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if !strings.Contains(r.URL.Path, ":generateContent") {
			http.Error(w, "unexpected path "+r.URL.Path, http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"code":400,"message":"bad request","status":"INVALID_ARGUMENT"}}`))
			return
		}
		body, _ := json.Marshal(map[string]any{
			"candidates": []any{
				map[string]any{
					"content": map[string]any{
						"role":  "model",
						"parts": []any{map[string]any{"text": text}},
					},
					"finishReason": "STOP",
				},
			},
		})
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), Config{APIKey: "test-key", Model: "gemini-test", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c, &calls
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		raw      contact.RawInputs
		response string
		want     contact.NormalizedData
	}{
		{
			name:     "upstream path kept",
			raw:      contact.RawInputs{Name: "Jane Doe", LinkedInURL: "https://linkedin.com/in/janedoe"},
			response: `{"firstName":" Jane ","lastName":"Doe","linkedinUrl":"https://linkedin.com/in/janedoe","enrichmentPath":"linkedin"}`,
			want: contact.NormalizedData{
				FirstName: "Jane", LastName: "Doe", LinkedInURL: "https://linkedin.com/in/janedoe", EnrichmentPath: contact.PathLinkedIn,
			},
		},
		{
			name:     "missing path falls back to name and domain",
			raw:      contact.RawInputs{Name: "John Smith", Company: "Acme Corp"},
			response: `{"firstName":"John","lastName":"Smith","companyName":"Acme Corp","domain":"https://www.Acme.com/"}`,
			want: contact.NormalizedData{
				FirstName: "John", LastName: "Smith", CompanyName: "Acme Corp", Domain: "acme.com", EnrichmentPath: contact.PathNameAndDomain,
			},
		},
		{
			name:     "dropped url is restored from input",
			raw:      contact.RawInputs{LinkedInURL: "linkedin.com/in/janedoe"},
			response: `{"enrichmentPath":""}`,
			want:     contact.NormalizedData{LinkedInURL: "https://linkedin.com/in/janedoe", EnrichmentPath: contact.PathLinkedIn},
		},
		{
			name:     "url overrides a model chosen name and domain path",
			raw:      contact.RawInputs{Name: "Jane Doe", Company: "Acme", LinkedInURL: "https://linkedin.com/in/janedoe"},
			response: `{"firstName":"Jane","lastName":"Doe","domain":"acme.com","linkedinUrl":"https://linkedin.com/in/janedoe","enrichmentPath":"nameAndDomain"}`,
			want: contact.NormalizedData{
				FirstName: "Jane", LastName: "Doe", Domain: "acme.com", LinkedInURL: "https://linkedin.com/in/janedoe", EnrichmentPath: contact.PathLinkedIn,
			},
		},
		{
			name:     "restored url overrides a model chosen path",
			raw:      contact.RawInputs{Name: "Jane Doe", Company: "Acme", LinkedInURL: "linkedin.com/in/janedoe"},
			response: `{"firstName":"Jane","lastName":"Doe","domain":"acme.com","enrichmentPath":"nameAndDomain"}`,
			want: contact.NormalizedData{
				FirstName: "Jane", LastName: "Doe", Domain: "acme.com", LinkedInURL: "https://linkedin.com/in/janedoe", EnrichmentPath: contact.PathLinkedIn,
			},
		},
		{
			name:     "unknown path falls back to name only",
			raw:      contact.RawInputs{Name: "Cher"},
			response: `{"firstName":"Cher","enrichmentPath":"guess"}`,
			want:     contact.NormalizedData{FirstName: "Cher", EnrichmentPath: contact.PathNameOnly},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c, calls := fakeGemini(t, http.StatusOK, tt.response)
			got, err := c.Normalize(context.Background(), tt.raw)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("Normalize()=%#v want=%#v", got, tt.want)
			}
			if calls.Load() != 1 {
				t.Fatalf("expected 1 call, got %d", calls.Load())
			}
		})
	}
}

func TestNormalize_Failures(t *testing.T) {
	t.Parallel()

	t.Run("api error", func(t *testing.T) {
		t.Parallel()
		c, _ := fakeGemini(t, http.StatusBadRequest, "")
		if _, err := c.Normalize(context.Background(), contact.RawInputs{Name: "Jane"}); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("unparsable output", func(t *testing.T) {
		t.Parallel()
		c, _ := fakeGemini(t, http.StatusOK, "not json")
		_, err := c.Normalize(context.Background(), contact.RawInputs{Name: "Jane"})
		if err == nil || !strings.Contains(err.Error(), "parse structured json") {
			t.Fatalf("expected parse error, got %v", err)
		}
	})
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	t.Run("blank notes skip the api", func(t *testing.T) {
		t.Parallel()
		c, calls := fakeGemini(t, http.StatusOK, `{}`)
		for _, notes := range []string{"", "   ", "\n\t"} {
			got, err := c.Summarize(context.Background(), notes)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.NotesSummary != "" || got.Tags == nil || len(got.Tags) != 0 {
				t.Fatalf("unexpected summary for %q: %#v", notes, got)
			}
		}
		if calls.Load() != 0 {
			t.Fatalf("expected no calls, got %d", calls.Load())
		}
	})

	t.Run("tags are deduped and capped", func(t *testing.T) {
		t.Parallel()
		c, calls := fakeGemini(t, http.StatusOK,
			`{"notesSummary":" Discussed Q4 pricing. ","tags":["Pricing","pricing"," Follow-up ","Q4-Prospect","Extra"]}`)
		got, err := c.Summarize(context.Background(), "Met at conference, wants Q4 pricing")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.NotesSummary != "Discussed Q4 pricing." {
			t.Fatalf("unexpected summary %q", got.NotesSummary)
		}
		if !slices.Equal(got.Tags, []string{"Pricing", "Follow-up", "Q4-Prospect"}) {
			t.Fatalf("unexpected tags %v", got.Tags)
		}
		if calls.Load() != 1 {
			t.Fatalf("expected 1 call, got %d", calls.Load())
		}
	})

	t.Run("api error", func(t *testing.T) {
		t.Parallel()
		c, _ := fakeGemini(t, http.StatusBadRequest, "")
		if _, err := c.Summarize(context.Background(), "notes"); err == nil {
			t.Fatalf("expected error")
		}
	})
}

func TestNew_RequiresAPIKey(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("expected error without api key")
	}
}
