package contact

import (
	"strconv"
	"strings"
	"time"

	"github.com/palantir/contact-enricher/pkg/pipeline/schema"
)

// Contract is the ordered field list persisted for a ContactData.
var Contract = schema.RecordContract{Fields: []schema.Field{
	{Name: "name", Title: "Name", Type: schema.FieldTypeTitle},
	{Name: "company", Title: "Company", Type: schema.FieldTypeText},
	{Name: "role", Title: "Role", Type: schema.FieldTypeText, Nullable: true},
	{Name: "website", Title: "Website", Type: schema.FieldTypeURL, Nullable: true},
	{Name: "email", Title: "Email", Type: schema.FieldTypeEmail, Nullable: true},
	{Name: "email_confidence", Title: "EmailConfidence", Type: schema.FieldTypeNumber, Nullable: true},
	{Name: "phone", Title: "Phone", Type: schema.FieldTypePhone, Nullable: true},
	{Name: "industry", Title: "Industry", Type: schema.FieldTypeText, Nullable: true},
	{Name: "linkedin_url", Title: "LinkedInURL", Type: schema.FieldTypeURL, Nullable: true},
	{Name: "sources", Title: "Sources", Type: schema.FieldTypeMulti},
	{Name: "notes_raw", Title: "NotesRaw", Type: schema.FieldTypeText},
	{Name: "notes_summary", Title: "NotesSummary", Type: schema.FieldTypeText},
	{Name: "tags", Title: "Tags", Type: schema.FieldTypeMulti},
	{Name: "created_at", Title: "CreatedAt", Type: schema.FieldTypeDateTime},
}}

// Values returns the record's field values keyed by contract field name.
// Strings stay strings, email_confidence is an int, multi fields are []string
// and created_at is a time.Time.
func (c ContactData) Values() map[string]any {
	return map[string]any{
		"name":             c.Name,
		"company":          c.Company,
		"role":             c.Role,
		"website":          c.Website,
		"email":            c.Email,
		"email_confidence": c.EmailConfidence,
		"phone":            c.Phone,
		"industry":         c.Industry,
		"linkedin_url":     c.LinkedInURL,
		"sources":          append([]string(nil), c.Sources...),
		"notes_raw":        c.NotesRaw,
		"notes_summary":    c.NotesSummary,
		"tags":             append([]string(nil), c.Tags...),
		"created_at":       c.CreatedAt,
	}
}

// FormatValue renders a Values entry as flat text for sheet cells and Notion
// properties.
// Zero confidences and zero times render empty.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int:
		if t == 0 {
			return ""
		}
		return strconv.Itoa(t)
	case []string:
		return strings.Join(t, ", ")
	case time.Time:
		if t.IsZero() {
			return ""
		}
		return t.UTC().Format(time.RFC3339)
	default:
		return ""
	}
}
