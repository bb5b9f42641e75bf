package destination

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/palantir/contact-enricher/internal/contact"
)

func TestDedupe(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []ID
		want []ID
	}{
		{name: "empty", in: nil, want: []ID{}},
		{name: "single", in: []ID{Notion}, want: []ID{Notion}},
		{name: "keeps first occurrence order", in: []ID{GoogleSheets, Notion, GoogleSheets, Notion}, want: []ID{GoogleSheets, Notion}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if diff := cmp.Diff(tt.want, Dedupe(tt.in)); diff != "" {
				t.Fatalf("Dedupe mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseID(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]ID{
		"notion":        Notion,
		" Notion ":      Notion,
		"google_sheets": GoogleSheets,
		"google-sheets": GoogleSheets,
		"sheets":        GoogleSheets,
	} {
		got, err := ParseID(in)
		if err != nil || got != want {
			t.Fatalf("ParseID(%q)=%q,%v want %q", in, got, err, want)
		}
	}
	if _, err := ParseID("dropbox"); !errors.Is(err, ErrUnknown) {
		t.Fatalf("expected ErrUnknown, got %v", err)
	}
}

func TestDisplayName(t *testing.T) {
	t.Parallel()

	if Notion.DisplayName() != "Notion" || GoogleSheets.DisplayName() != "Google Sheets" {
		t.Fatalf("unexpected display names")
	}
	if ID("s3").DisplayName() != "s3" {
		t.Fatalf("unknown IDs display as-is")
	}
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	if _, err := r.Get(Notion); !errors.Is(err, ErrUnknown) {
		t.Fatalf("expected ErrUnknown on empty registry, got %v", err)
	}

	r.Register(GoogleSheets, ConnectorFunc(func(context.Context, contact.ContactData) (string, error) {
		return "sheets ok", nil
	}))
	r.Register(Notion, ConnectorFunc(func(context.Context, contact.ContactData) (string, error) {
		return "notion ok", nil
	}))
	r.Register("archive", ConnectorFunc(func(context.Context, contact.ContactData) (string, error) {
		return "", nil
	}))

	if diff := cmp.Diff([]ID{Notion, GoogleSheets, "archive"}, r.IDs()); diff != "" {
		t.Fatalf("IDs mismatch (-want +got):\n%s", diff)
	}

	c, err := r.Get(Notion)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	msg, err := c.Save(context.Background(), contact.ContactData{})
	if err != nil || msg != "notion ok" {
		t.Fatalf("Save=%q,%v", msg, err)
	}
}
