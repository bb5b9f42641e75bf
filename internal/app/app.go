// Package app wires configuration into the enrichment graph shared by the
// CLI commands.
package app

import (
	"context"
	"fmt"

	charmlog "github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/palantir/contact-enricher/internal/cache"
	"github.com/palantir/contact-enricher/internal/config"
	"github.com/palantir/contact-enricher/internal/contact"
	"github.com/palantir/contact-enricher/internal/destination"
	"github.com/palantir/contact-enricher/internal/destination/mock"
	"github.com/palantir/contact-enricher/internal/destination/notion"
	"github.com/palantir/contact-enricher/internal/destination/sheets"
	"github.com/palantir/contact-enricher/internal/gemini"
	"github.com/palantir/contact-enricher/internal/logger"
	"github.com/palantir/contact-enricher/internal/lookup"
	"github.com/palantir/contact-enricher/internal/orchestrator"
	"github.com/palantir/contact-enricher/internal/saver"
	"github.com/palantir/contact-enricher/internal/session"
	"github.com/palantir/contact-enricher/pkg/pipeline/core"
)

// App holds the configuration and the long-lived state of one process.
type App struct {
	Config config.Config
	Logger *charmlog.Logger
	// RunID tags every log line of this process.
	RunID string
	Cache *cache.Cache
}

func New(cfg config.Config, l *charmlog.Logger) *App {
	runID := uuid.NewString()
	return &App{
		Config: cfg,
		Logger: logger.OrDiscard(l).With("run", runID[:8]),
		RunID:  runID,
		Cache: cache.New(cache.Options{
			MaxEntries: cfg.Cache.MaxEntries,
			TTL:        cfg.Cache.TTL,
		}),
	}
}

// Orchestrator builds the Gemini backed pipeline.
func (a *App) Orchestrator(ctx context.Context) (*orchestrator.Orchestrator, error) {
	if err := a.Config.RequireGemini(); err != nil {
		return nil, err
	}
	client, err := gemini.New(ctx, gemini.Config{
		APIKey:  a.Config.Gemini.APIKey,
		Model:   a.Config.Gemini.Model,
		BaseURL: a.Config.Gemini.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	a.Logger.Debug("gemini client ready", "model", client.Model())

	svc := lookup.New(lookup.Options{Latency: a.Config.Lookup.Latency})
	return NewOrchestrator(client, svc, client, a.Config.Pipeline, a.Logger), nil
}

// NewOrchestrator wraps each stage in a trace decorator and builds the
// orchestrator.
func NewOrchestrator(
	n orchestrator.Normalizer,
	e orchestrator.Enricher,
	s orchestrator.Summarizer,
	p config.PipelineConfig,
	l *charmlog.Logger,
) *orchestrator.Orchestrator {
	l = logger.OrDiscard(l)
	t := newTracer(l, p.MaxRetries, p.RequestTimeout)
	stages := stageFuncs{
		normalize: traceStage(t, contact.StageNormalize, normalizeKey, core.ProcessFunc[contact.RawInputs, contact.NormalizedData](n.Normalize)),
		enrich:    traceStage(t, contact.StageEnrich, enrichKey, core.ProcessFunc[contact.NormalizedData, contact.EnrichedProfile](e.Enrich)),
		summarize: traceStage(t, contact.StageSummarize, summarizeKey, core.ProcessFunc[string, contact.NotesSummary](s.Summarize)),
	}
	return orchestrator.New(stages, stages, stages, orchestrator.Options{
		RequestTimeout: p.RequestTimeout,
		MaxRetries:     p.MaxRetries,
		RateLimitRPS:   p.RateLimitRPS,
		Logger:         l,
	})
}

// Registry binds every destination to a real connector when credentials are
// configured and to a mock otherwise.
func (a *App) Registry(ctx context.Context) (*destination.Registry, error) {
	reg := destination.NewRegistry()

	if a.Config.NotionEnabled() {
		c, err := notion.New(notion.Config{Token: a.Config.Notion.Token, DatabaseID: a.Config.Notion.DatabaseID}, a.Logger)
		if err != nil {
			return nil, err
		}
		reg.Register(destination.Notion, c)
	} else {
		a.Logger.Debug("notion credentials not set, using mock connector")
		reg.Register(destination.Notion, mock.NewNotion(mock.Options{Latency: mock.DefaultNotionLatency, Logger: a.Logger}))
	}

	if a.Config.SheetsEnabled() {
		c, err := sheets.New(ctx, sheets.Config{
			SpreadsheetID:   a.Config.Sheets.SpreadsheetID,
			Range:           a.Config.Sheets.Range,
			CredentialsFile: a.Config.Sheets.CredentialsFile,
		}, a.Logger)
		if err != nil {
			return nil, err
		}
		reg.Register(destination.GoogleSheets, c)
	} else {
		a.Logger.Debug("google sheets spreadsheet not set, using mock connector")
		reg.Register(destination.GoogleSheets, mock.NewSheets(mock.Options{Latency: mock.DefaultSheetsLatency, Logger: a.Logger}))
	}
	return reg, nil
}

func (a *App) Saver(ctx context.Context) (*saver.Saver, error) {
	reg, err := a.Registry(ctx)
	if err != nil {
		return nil, err
	}
	return saver.New(reg, saver.Options{
		MaxRetries:     a.Config.Pipeline.MaxRetries,
		RequestTimeout: a.Config.Pipeline.RequestTimeout,
		Logger:         a.Logger,
	}), nil
}

// Session builds an interactive session sharing the process cache.
func (a *App) Session(ctx context.Context) (*session.Session, error) {
	orch, err := a.Orchestrator(ctx)
	if err != nil {
		return nil, err
	}
	sv, err := a.Saver(ctx)
	if err != nil {
		return nil, err
	}
	return session.New(orch, sv, a.Cache, session.Options{
		ToastTTL: a.Config.UI.ToastTTL,
		Logger:   a.Logger,
	}), nil
}

// stageFuncs satisfies the orchestrator stage interfaces with plain functions.
type stageFuncs struct {
	normalize core.ProcessFunc[contact.RawInputs, contact.NormalizedData]
	enrich    core.ProcessFunc[contact.NormalizedData, contact.EnrichedProfile]
	summarize core.ProcessFunc[string, contact.NotesSummary]
}

func (s stageFuncs) Normalize(ctx context.Context, raw contact.RawInputs) (contact.NormalizedData, error) {
	return s.normalize.Process(ctx, raw)
}

func (s stageFuncs) Enrich(ctx context.Context, n contact.NormalizedData) (contact.EnrichedProfile, error) {
	return s.enrich.Process(ctx, n)
}

func (s stageFuncs) Summarize(ctx context.Context, notes string) (contact.NotesSummary, error) {
	return s.summarize.Process(ctx, notes)
}
