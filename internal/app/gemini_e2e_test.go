//go:build gemini_e2e

package app_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/palantir/contact-enricher/internal/app"
	"github.com/palantir/contact-enricher/internal/config"
	"github.com/palantir/contact-enricher/internal/pipeline"
)

func TestRunBatch_RealGemini_EndToEnd(t *testing.T) {
	cfg, err := config.Load(config.LoadOptions{})
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Gemini.APIKey == "" {
		t.Fatalf("GEMINI_API_KEY is required for gemini_e2e tests")
	}
	cfg.Lookup.Latency = 0

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	a := app.New(cfg, nil)
	orch, err := a.Orchestrator(ctx)
	if err != nil {
		t.Fatalf("build orchestrator: %v", err)
	}

	baseDir := t.TempDir()
	if artifactDir := os.Getenv("GEMINI_E2E_ARTIFACT_DIR"); artifactDir != "" {
		if err := os.MkdirAll(artifactDir, 0o755); err != nil {
			t.Fatalf("create GEMINI_E2E_ARTIFACT_DIR: %v", err)
		}
		baseDir = artifactDir
	}
	in := filepath.Join(baseDir, "input.csv")
	out := filepath.Join(baseDir, "output.csv")

	// Synthetic contacts only.
	if err := os.WriteFile(in, []byte("name,company,linkedin_url,notes\n"+
		"Jane Doe,Innovate Inc,https://linkedin.com/in/janedoe,Met at the expo. Interested in the enterprise plan.\n"+
		"john smith,ACME corp,,\n"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	sum, err := a.RunBatch(ctx, in, out, app.BatchOptions{Pipeline: pipeline.Options{Workers: 2}}, orch, nil)
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if sum.OK != 2 {
		t.Fatalf("expected 2 ok rows, got %+v (see %s)", sum, out)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer func() { _ = f.Close() }()
	rows, err := pipeline.ReadCSV(f)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if rows[0].Record.NotesSummary == "" {
		t.Fatalf("expected a notes summary for the first row")
	}
	for _, r := range rows {
		if r.Record.Name == "" || r.Record.Company == "" {
			t.Fatalf("name and company must be set: %+v", r.Record)
		}
	}
}
