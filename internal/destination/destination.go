// Package destination defines the persistence targets a contact record can be
// saved to and the registry that resolves them.
package destination

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/palantir/contact-enricher/internal/contact"
)

// ID names a persistence target.
type ID string

const (
	Notion       ID = "notion"
	GoogleSheets ID = "google_sheets"
)

// ErrUnknown is returned for destination IDs with no registered connector.
var ErrUnknown = errors.New("unknown destination")

// Known lists the supported destinations in display order.
func Known() []ID {
	return []ID{Notion, GoogleSheets}
}

// DisplayName is the human-facing name used in messages.
func (id ID) DisplayName() string {
	switch id {
	case Notion:
		return "Notion"
	case GoogleSheets:
		return "Google Sheets"
	default:
		return string(id)
	}
}

// ParseID accepts the wire names plus a few spellings users type on the CLI.
func ParseID(s string) (ID, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "notion":
		return Notion, nil
	case "google_sheets", "google-sheets", "sheets", "gsheets":
		return GoogleSheets, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknown, s)
	}
}

// Dedupe drops repeated IDs, keeping the first occurrence order.
func Dedupe(ids []ID) []ID {
	out := make([]ID, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

// Connector persists one record and returns a human-readable success message.
type Connector interface {
	Save(ctx context.Context, rec contact.ContactData) (string, error)
}

// ConnectorFunc adapts a function to the Connector interface.
type ConnectorFunc func(ctx context.Context, rec contact.ContactData) (string, error)

func (f ConnectorFunc) Save(ctx context.Context, rec contact.ContactData) (string, error) {
	return f(ctx, rec)
}

// Registry resolves destination IDs to connectors. It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	connectors map[ID]Connector
}

func NewRegistry() *Registry {
	return &Registry{connectors: make(map[ID]Connector)}
}

// Register binds id to c, replacing any previous binding.
func (r *Registry) Register(id ID, c Connector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connectors[id] = c
}

// Get returns the connector for id or an error matching ErrUnknown.
func (r *Registry) Get(id ID) (Connector, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.connectors[id]
	if !ok || c == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknown, string(id))
	}
	return c, nil
}

// IDs returns the registered destinations in Known order, followed by any
// others sorted by name.
func (r *Registry) IDs() []ID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ID, 0, len(r.connectors))
	for _, id := range Known() {
		if _, ok := r.connectors[id]; ok {
			out = append(out, id)
		}
	}
	var extra []ID
	for id := range r.connectors {
		if !slices.Contains(out, id) {
			extra = append(extra, id)
		}
	}
	slices.Sort(extra)
	return append(out, extra...)
}
