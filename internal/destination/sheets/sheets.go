// Package sheets appends contact records as rows of a Google Sheets
// spreadsheet.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	charmlog "github.com/charmbracelet/log"
	"github.com/palantir/contact-enricher/internal/contact"
	"github.com/palantir/contact-enricher/internal/destination"
	"github.com/palantir/contact-enricher/internal/logger"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

const (
	DefaultRange = "Sheet1!A1"

	valueInputOption = "USER_ENTERED"
	insertDataOption = "INSERT_ROWS"
)

type Config struct {
	SpreadsheetID string
	// Range is the A1 table anchor rows are appended after.
	Range string
	// CredentialsFile is a service account or authorized user JSON key.
	CredentialsFile string
	// ClientOptions replace credential loading entirely (tests, custom auth).
	ClientOptions []option.ClientOption
}

type Connector struct {
	svc           *sheetsapi.Service
	spreadsheetID string
	rng           string
	logger        *charmlog.Logger
}

func New(ctx context.Context, cfg Config, l *charmlog.Logger) (*Connector, error) {
	id := strings.TrimSpace(cfg.SpreadsheetID)
	if id == "" {
		return nil, fmt.Errorf("sheets: spreadsheet id is required")
	}
	rng := strings.TrimSpace(cfg.Range)
	if rng == "" {
		rng = DefaultRange
	}

	opts := cfg.ClientOptions
	if len(opts) == 0 {
		ts, err := tokenSource(ctx, cfg.CredentialsFile)
		if err != nil {
			return nil, err
		}
		opts = []option.ClientOption{ts}
	}

	svc, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets: create service: %w", err)
	}
	return &Connector{
		svc:           svc,
		spreadsheetID: id,
		rng:           rng,
		logger:        logger.OrDiscard(l),
	}, nil
}

func tokenSource(ctx context.Context, path string) (option.ClientOption, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		creds, err := google.FindDefaultCredentials(ctx, sheetsapi.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("sheets: find default credentials: %w", err)
		}
		return option.WithTokenSource(creds.TokenSource), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sheets: read credentials: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, b, sheetsapi.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("sheets: parse credentials: %w", err)
	}
	return option.WithTokenSource(creds.TokenSource), nil
}

// Save appends rec as one row.
func (c *Connector) Save(ctx context.Context, rec contact.ContactData) (string, error) {
	vr := &sheetsapi.ValueRange{Values: [][]interface{}{Row(rec)}}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, c.rng, vr).
		ValueInputOption(valueInputOption).
		InsertDataOption(insertDataOption).
		Context(ctx).
		Do()
	if err != nil {
		return "", classifyErr(err)
	}
	if resp != nil && resp.Updates != nil {
		c.logger.Debug("sheets row appended", "range", resp.Updates.UpdatedRange, "name", rec.Name)
	}
	return SuccessMessage(rec), nil
}

// SuccessMessage is the message reported after a row is appended.
func SuccessMessage(rec contact.ContactData) string {
	return fmt.Sprintf("Successfully appended row to Google Sheets for %s.", rec.Name)
}

// Header returns the column titles in row order.
func Header() []string {
	return contact.Contract.Titles()
}

// Row renders rec in Header order.
func Row(rec contact.ContactData) []interface{} {
	values := rec.Values()
	row := make([]interface{}, 0, len(contact.Contract.Fields))
	for _, name := range contact.Contract.Names() {
		row = append(row, contact.FormatValue(values[name]))
	}
	return row
}

func classifyErr(err error) error {
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusTooManyRequests {
		return destination.RateLimited(fmt.Errorf("sheets: %w", err))
	}
	// 5xx and timeouts stay terminal: the row may already be appended.
	return fmt.Errorf("sheets: %w", err)
}
