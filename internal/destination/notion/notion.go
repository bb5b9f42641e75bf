// Package notion saves contact records as pages in a Notion database.
package notion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/jomei/notionapi"
	"github.com/palantir/contact-enricher/internal/contact"
	"github.com/palantir/contact-enricher/internal/destination"
	"github.com/palantir/contact-enricher/internal/logger"
	"github.com/palantir/contact-enricher/pkg/pipeline/schema"
)

// maxTextRunes is Notion's limit for the content of one rich text object.
const maxTextRunes = 2000

// PageCreator is the subset of the Notion page API the connector needs.
// (*notionapi.Client).Page satisfies it.
type PageCreator interface {
	Create(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error)
}

type Config struct {
	Token      string
	DatabaseID string
	// HTTPClient overrides the transport used by the Notion client.
	HTTPClient *http.Client
}

type Connector struct {
	pages      PageCreator
	databaseID notionapi.DatabaseID
	logger     *charmlog.Logger
}

// New builds a connector backed by the Notion API.
func New(cfg Config, l *charmlog.Logger) (*Connector, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, fmt.Errorf("notion: token is required")
	}
	var opts []notionapi.ClientOption
	if cfg.HTTPClient != nil {
		opts = append(opts, notionapi.WithHTTPClient(cfg.HTTPClient))
	}
	client := notionapi.NewClient(notionapi.Token(token), opts...)
	return NewWithPages(client.Page, cfg.DatabaseID, l)
}

// NewWithPages builds a connector on an existing page API.
func NewWithPages(pages PageCreator, databaseID string, l *charmlog.Logger) (*Connector, error) {
	if pages == nil {
		return nil, fmt.Errorf("notion: page API is required")
	}
	databaseID = strings.TrimSpace(databaseID)
	if databaseID == "" {
		return nil, fmt.Errorf("notion: database id is required")
	}
	return &Connector{
		pages:      pages,
		databaseID: notionapi.DatabaseID(databaseID),
		logger:     logger.OrDiscard(l),
	}, nil
}

// Save creates one page for rec.
func (c *Connector) Save(ctx context.Context, rec contact.ContactData) (string, error) {
	req := PageRequest(c.databaseID, rec)
	page, err := c.pages.Create(ctx, req)
	if err != nil {
		return "", classifyErr(err)
	}
	if page != nil {
		c.logger.Debug("notion page created", "page", page.ID.String(), "name", rec.Name)
	}
	return SuccessMessage(rec), nil
}

// SuccessMessage is the message reported after a page is created.
func SuccessMessage(rec contact.ContactData) string {
	return fmt.Sprintf("Successfully created Notion page for %s.", rec.Name)
}

// PageRequest builds the page creation payload for rec under databaseID.
func PageRequest(databaseID notionapi.DatabaseID, rec contact.ContactData) *notionapi.PageCreateRequest {
	return &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: databaseID,
		},
		Properties: Properties(rec),
	}
}

// Properties maps rec onto database properties named by the field titles of
// contact.Contract. Empty nullable fields are omitted so Notion stores them as
// empty rather than rejecting blank URLs and emails.
func Properties(rec contact.ContactData) notionapi.Properties {
	values := rec.Values()
	props := make(notionapi.Properties, len(contact.Contract.Fields))
	for _, f := range contact.Contract.Fields {
		v := values[f.Name]
		if f.Nullable && contact.FormatValue(v) == "" {
			continue
		}
		if p := property(f.Type, v); p != nil {
			props[f.Title] = p
		}
	}
	return props
}

func property(t schema.FieldType, v any) notionapi.Property {
	switch t {
	case schema.FieldTypeTitle:
		return notionapi.TitleProperty{Title: richText(contact.FormatValue(v))}
	case schema.FieldTypeText:
		return notionapi.RichTextProperty{RichText: richText(contact.FormatValue(v))}
	case schema.FieldTypeURL:
		return notionapi.URLProperty{URL: contact.FormatValue(v)}
	case schema.FieldTypeEmail:
		return notionapi.EmailProperty{Email: contact.FormatValue(v)}
	case schema.FieldTypePhone:
		return notionapi.PhoneNumberProperty{PhoneNumber: contact.FormatValue(v)}
	case schema.FieldTypeNumber:
		n, _ := v.(int)
		return notionapi.NumberProperty{Number: float64(n)}
	case schema.FieldTypeMulti:
		vals, _ := v.([]string)
		opts := make([]notionapi.Option, 0, len(vals))
		for _, s := range vals {
			// Notion rejects commas in select option names.
			opts = append(opts, notionapi.Option{Name: strings.ReplaceAll(s, ",", " ")})
		}
		return notionapi.MultiSelectProperty{MultiSelect: opts}
	case schema.FieldTypeDateTime:
		ts, _ := v.(time.Time)
		if ts.IsZero() {
			return nil
		}
		start := notionapi.Date(ts.UTC())
		return notionapi.DateProperty{Date: &notionapi.DateObject{Start: &start}}
	default:
		return nil
	}
}

// richText splits s into rich text objects within Notion's per-object limit.
func richText(s string) []notionapi.RichText {
	runes := []rune(s)
	out := make([]notionapi.RichText, 0, len(runes)/maxTextRunes+1)
	for len(runes) > 0 {
		n := min(len(runes), maxTextRunes)
		out = append(out, notionapi.RichText{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{Content: string(runes[:n])},
		})
		runes = runes[n:]
	}
	return out
}

func classifyErr(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *notionapi.Error
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusTooManyRequests {
		return destination.RateLimited(fmt.Errorf("notion: %w", err))
	}
	// 5xx and timeouts stay terminal: the page may already exist.
	return fmt.Errorf("notion: %w", err)
}
