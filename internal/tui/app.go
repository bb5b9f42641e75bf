// Package tui drives an interactive enrichment session in the terminal.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/huh/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/palantir/contact-enricher/internal/contact"
	"github.com/palantir/contact-enricher/internal/destination"
	"github.com/palantir/contact-enricher/internal/session"
)

type App struct {
	session      *session.Session
	destinations []destination.ID
	out          io.Writer
	accessible   bool
}

type Options struct {
	// Destinations offered in the save step. Defaults to destination.Known.
	Destinations []destination.ID
	Out          io.Writer
	// Accessible switches huh to its screen reader friendly mode.
	Accessible bool
}

func New(s *session.Session, opts Options) *App {
	dests := opts.Destinations
	if len(dests) == 0 {
		dests = destination.Known()
	}
	return &App{session: s, destinations: dests, out: opts.Out, accessible: opts.Accessible}
}

// Run loops input -> enrich -> save until the user quits. Aborting a form
// (esc / ctrl+c) ends the session without error.
func (a *App) Run(ctx context.Context) error {
	a.println(RenderHeader())
	for {
		more, err := a.round(ctx)
		if errors.Is(err, huh.ErrUserAborted) {
			return nil
		}
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
}

func (a *App) round(ctx context.Context) (bool, error) {
	raw := a.session.Inputs()
	if err := a.form(inputGroup(&raw)).RunWithContext(ctx); err != nil {
		return false, err
	}
	a.session.SetInputs(raw)

	if err := a.spin(ctx, "Enriching contact data...", func(ctx context.Context) {
		_, _ = a.session.Enrich(ctx)
	}); err != nil {
		return false, err
	}
	a.flushToasts()

	if rec := a.session.Record(); rec != nil {
		a.println(RenderRecord(*rec))
		if err := a.saveStep(ctx); err != nil {
			return false, err
		}
	}

	again := true
	confirm := huh.NewConfirm().
		Title("Enrich another contact?").
		WithButtonAlignment(lipgloss.Left).
		Affirmative("Yes").
		Negative("Quit").
		Value(&again)
	if err := a.form(huh.NewGroup(confirm)).RunWithContext(ctx); err != nil {
		return false, err
	}
	return again, nil
}

func (a *App) saveStep(ctx context.Context) error {
	selected := a.session.Destinations()
	options := make([]huh.Option[destination.ID], 0, len(a.destinations))
	for _, id := range a.destinations {
		options = append(options, huh.NewOption(id.DisplayName(), id))
	}
	pick := huh.NewMultiSelect[destination.ID]().
		Title("Save To").
		Description("Select destinations, or none to skip saving").
		Options(options...).
		Value(&selected)
	if err := a.form(huh.NewGroup(pick)).RunWithContext(ctx); err != nil {
		return err
	}
	if len(selected) == 0 {
		return nil
	}
	a.session.SetDestinations(selected)

	if err := a.spin(ctx, "Saving...", func(ctx context.Context) {
		_, _ = a.session.Save(ctx)
	}); err != nil {
		return err
	}
	a.flushToasts()
	return nil
}

func inputGroup(raw *contact.RawInputs) *huh.Group {
	return huh.NewGroup(
		huh.NewInput().
			Title("Name").
			Placeholder("e.g., Jane Doe").
			Value(&raw.Name),
		huh.NewInput().
			Title("Company").
			Placeholder("e.g., Acme Inc.").
			Value(&raw.Company),
		huh.NewInput().
			Title("LinkedIn URL").
			Placeholder("e.g., https://linkedin.com/in/janedoe").
			Value(&raw.LinkedInURL),
		huh.NewText().
			Title("Notes").
			Placeholder("Met at the conference, interested in our Q3 roadmap...").
			Value(&raw.Notes),
	)
}

func (a *App) form(groups ...*huh.Group) *huh.Form {
	return huh.NewForm(groups...).WithAccessible(a.accessible)
}

// spin runs action behind a spinner. The action's own errors surface as
// session toasts.
func (a *App) spin(ctx context.Context, title string, action func(context.Context)) error {
	if a.accessible {
		action(ctx)
		return nil
	}
	return spinner.New().
		Title(title).
		Context(ctx).
		Action(func() { action(ctx) }).
		Run()
}

func (a *App) flushToasts() {
	if out := RenderToasts(a.session.Toasts()); out != "" {
		a.println(out)
	}
	a.session.DismissToasts()
}

func (a *App) println(s string) {
	if a.out == nil || strings.TrimSpace(s) == "" {
		return
	}
	_, _ = fmt.Fprintln(a.out, s)
}
