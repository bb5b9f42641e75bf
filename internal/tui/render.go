package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/palantir/contact-enricher/internal/contact"
	"github.com/palantir/contact-enricher/internal/session"
)

var (
	colorMuted   = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}
	colorText    = lipgloss.AdaptiveColor{Light: "#111827", Dark: "#F9FAFB"}
	colorSuccess = lipgloss.Color("#22C55E")
	colorWarn    = lipgloss.Color("#EAB308")
	colorError   = lipgloss.Color("#EF4444")
	colorInfo    = lipgloss.Color("#3B82F6")

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorText)
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(colorText).MarginTop(1)
	labelStyle   = lipgloss.NewStyle().Foreground(colorMuted).Width(12)
	valueStyle   = lipgloss.NewStyle().Foreground(colorText)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted).Italic(true)
	tagStyle     = lipgloss.NewStyle().Foreground(colorText).Background(lipgloss.Color("#374151")).Padding(0, 1)
	cardStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorMuted).Padding(1, 2)
)

// RenderHeader renders the application banner.
func RenderHeader() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Contact Enrichment + Notes"),
		mutedStyle.Render("Enter contact details, get enriched data, and save it to your favorite tools. Powered by Gemini."),
	)
}

// RenderRecord renders rec as a result card.
func RenderRecord(rec contact.ContactData) string {
	var rows []string
	row := func(label, value string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), valueStyle.Render(value)))
	}

	row("Name", rec.Name)
	row("Company", rec.Company)
	row("Role", rec.Role)
	if rec.Email != "" {
		row("Email", rec.Email+" "+confidenceBadge(rec.EmailConfidence))
	} else {
		row("Email", "Not found")
	}
	row("Phone", rec.Phone)
	row("Website", rec.Website)
	row("LinkedIn", rec.LinkedInURL)
	row("Industry", rec.Industry)
	if len(rec.Sources) > 0 {
		row("Sources", strings.Join(rec.Sources, "\n"))
	}

	summary := rec.NotesSummary
	if summary == "" {
		summary = "No summary generated."
	}
	notes := rec.NotesRaw
	if notes == "" {
		notes = "No notes were provided."
	}

	body := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Enriched Profile"),
		"",
		lipgloss.JoinVertical(lipgloss.Left, rows...),
		headingStyle.Render("Notes Analysis"),
		labelStyle.Render("Summary"),
		valueStyle.Render(summary),
		labelStyle.Render("Tags"),
		renderTags(rec.Tags),
		labelStyle.Render("Notes"),
		mutedStyle.Render(notes),
	)
	return cardStyle.Render(body)
}

func renderTags(tags []string) string {
	if len(tags) == 0 {
		return mutedStyle.Render("No tags identified.")
	}
	parts := make([]string, 0, len(tags))
	for _, t := range tags {
		parts = append(parts, tagStyle.Render(t))
	}
	return strings.Join(parts, " ")
}

func confidenceBadge(score int) string {
	c := colorError
	switch {
	case score > 80:
		c = colorSuccess
	case score > 50:
		c = colorWarn
	}
	return lipgloss.NewStyle().Bold(true).Foreground(c).Render(fmt.Sprintf("%d%%", score))
}

// RenderToasts renders toasts one per line, oldest first.
func RenderToasts(toasts []session.Toast) string {
	lines := make([]string, 0, len(toasts))
	for _, t := range toasts {
		icon, c := "i", colorInfo
		switch t.Kind {
		case session.ToastSuccess:
			icon, c = "✓", colorSuccess
		case session.ToastError:
			icon, c = "✗", colorError
		}
		lines = append(lines, lipgloss.NewStyle().Foreground(c).Render(icon+" "+t.Message))
	}
	return strings.Join(lines, "\n")
}
