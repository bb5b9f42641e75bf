// Package mock provides stand-in destination connectors that build the real
// request payloads but never leave the process. They are used when no
// credentials are configured.
package mock

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/palantir/contact-enricher/internal/contact"
	"github.com/palantir/contact-enricher/internal/destination"
	"github.com/palantir/contact-enricher/internal/destination/notion"
	"github.com/palantir/contact-enricher/internal/destination/sheets"
	"github.com/palantir/contact-enricher/internal/logger"
)

const (
	DefaultNotionLatency = 1000 * time.Millisecond
	DefaultSheetsLatency = 1200 * time.Millisecond
)

var (
	ErrInvalidNotionToken = errors.New("invalid Notion API token")
	ErrSheetNotFound      = errors.New("sheet not found or permission denied")
)

type Options struct {
	// Latency is the simulated round trip. Zero disables the delay.
	Latency time.Duration
	Logger  *charmlog.Logger
}

// NewNotion returns a connector that fails when the record's name contains
// "fail" (any case).
func NewNotion(opts Options) destination.Connector {
	l := logger.OrDiscard(opts.Logger)
	return destination.ConnectorFunc(func(ctx context.Context, rec contact.ContactData) (string, error) {
		req := notion.PageRequest("mock-database", rec)
		if b, err := json.Marshal(req); err == nil {
			l.Debug("sending page to notion", "payload", string(b))
		}
		if err := sleep(ctx, opts.Latency); err != nil {
			return "", err
		}
		if strings.Contains(strings.ToLower(rec.Name), "fail") {
			return "", ErrInvalidNotionToken
		}
		return notion.SuccessMessage(rec), nil
	})
}

// NewSheets returns a connector that fails when the record's company contains
// "error" (any case).
func NewSheets(opts Options) destination.Connector {
	l := logger.OrDiscard(opts.Logger)
	return destination.ConnectorFunc(func(ctx context.Context, rec contact.ContactData) (string, error) {
		payload := map[string]any{
			"valueInputOption": "USER_ENTERED",
			"values":           [][]interface{}{sheets.Row(rec)},
		}
		if b, err := json.Marshal(payload); err == nil {
			l.Debug("appending row to google sheets", "header", sheets.Header(), "payload", string(b))
		}
		if err := sleep(ctx, opts.Latency); err != nil {
			return "", err
		}
		if strings.Contains(strings.ToLower(rec.Company), "error") {
			return "", ErrSheetNotFound
		}
		return sheets.SuccessMessage(rec), nil
	})
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
