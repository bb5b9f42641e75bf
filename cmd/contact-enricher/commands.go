package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/palantir/contact-enricher/internal/app"
	"github.com/palantir/contact-enricher/internal/contact"
	"github.com/palantir/contact-enricher/internal/destination"
	"github.com/palantir/contact-enricher/internal/pipeline"
	"github.com/palantir/contact-enricher/internal/tui"
	"github.com/palantir/contact-enricher/internal/version"
	"github.com/palantir/contact-enricher/pkg/pipeline/redact"
)

func newInteractiveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "interactive",
		Short: "Enrich and save contacts from a terminal form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := opts.app.Session(ctx)
			if err != nil {
				return configErr(err)
			}
			return tui.New(s, tui.Options{
				Out:        cmd.OutOrStdout(),
				Accessible: opts.app.Config.UI.Accessible,
			}).Run(ctx)
		},
	}
}

func newEnrichCmd(opts *rootOptions) *cobra.Command {
	var raw contact.RawInputs
	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Enrich one contact and print the record as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			orch, err := opts.app.Orchestrator(ctx)
			if err != nil {
				return configErr(err)
			}
			res, err := orch.Run(ctx, raw, opts.app.Cache)
			if err != nil {
				return err
			}
			if res.Warning != nil {
				opts.app.Logger.Warn("notes were not refreshed", "err", redact.Secrets(res.Warning.Error()))
			}
			return writeJSON(cmd.OutOrStdout(), res.Record)
		},
	}
	cmd.Flags().StringVar(&raw.Name, "name", "", "Contact name")
	cmd.Flags().StringVar(&raw.Company, "company", "", "Company name or domain")
	cmd.Flags().StringVar(&raw.LinkedInURL, "linkedin", "", "LinkedIn profile URL")
	cmd.Flags().StringVar(&raw.Notes, "notes", "", "Free-text notes to summarize")
	return cmd
}

func newSaveCmd(opts *rootOptions) *cobra.Command {
	var recordPath string
	var dests []string
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Save a JSON contact record to one or more destinations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := notEmpty("record", recordPath); err != nil {
				return err
			}
			rec, err := readRecord(cmd.InOrStdin(), recordPath)
			if err != nil {
				return err
			}
			ids, err := parseDestinations(dests)
			if err != nil {
				return &exitError{code: 2, err: err}
			}

			ctx := cmd.Context()
			sv, err := opts.app.Saver(ctx)
			if err != nil {
				return configErr(err)
			}
			report, err := sv.SaveAll(ctx, &rec, ids)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, o := range report.Outcomes {
				if o.OK() {
					_, _ = fmt.Fprintf(out, "ok    %s: %s\n", o.Destination, o.Message)
					continue
				}
				_, _ = fmt.Fprintf(out, "FAIL  %s: %s\n", o.Destination, redact.Secrets(o.Err.Error()))
			}
			if !report.AllSucceeded() {
				return &exitError{code: 1}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&recordPath, "record", "", "JSON record file, or - for stdin")
	cmd.Flags().StringArrayVar(&dests, "dest", nil, "Destination (notion, google_sheets); repeatable, defaults to all")
	return cmd
}

func newBatchCmd(opts *rootOptions) *cobra.Command {
	var inputPath, outputPath string
	var workers int
	var failFast, resume bool
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Enrich every contact of a CSV file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := notEmpty("input", inputPath); err != nil {
				return err
			}
			if err := notEmpty("output", outputPath); err != nil {
				return err
			}
			a := opts.app
			p := a.Config.Pipeline
			if cmd.Flags().Changed("workers") {
				p.Workers = workers
			}
			if cmd.Flags().Changed("fail-fast") {
				p.FailFast = failFast
			}

			ctx := cmd.Context()
			orch, err := a.Orchestrator(ctx)
			if err != nil {
				return configErr(err)
			}
			sum, err := a.RunBatch(ctx, inputPath, outputPath, app.BatchOptions{
				Pipeline: pipeline.Options{Workers: p.Workers, FailFast: p.FailFast},
				Resume:   resume,
			}, orch, nil)
			if err != nil {
				return fmt.Errorf("batch run failed: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows to %s (ok=%d error=%d)\n", sum.Rows, outputPath, sum.OK, sum.Errors)
			return nil
		},
	}
	cmd.Flags().StringVar(&inputPath, "input", "", "Input CSV with name, company, linkedin_url and notes columns")
	cmd.Flags().StringVar(&outputPath, "output", "", "Output CSV file path")
	cmd.Flags().IntVar(&workers, "workers", 0, "Number of concurrent rows (env: WORKERS)")
	cmd.Flags().BoolVar(&failFast, "fail-fast", false, "Stop on the first failed row (env: FAIL_FAST)")
	cmd.Flags().BoolVar(&resume, "resume", false, "Serve contacts already in the output file from cache")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		// Skips config loading.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}

func readRecord(stdin io.Reader, path string) (contact.ContactData, error) {
	var rec contact.ContactData
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return rec, err
		}
		defer func() {
			_ = f.Close()
		}()
		r = f
	}
	if err := json.NewDecoder(r).Decode(&rec); err != nil {
		return rec, fmt.Errorf("decode record %s: %w", path, err)
	}
	return rec, nil
}

func parseDestinations(names []string) ([]destination.ID, error) {
	if len(names) == 0 {
		return destination.Known(), nil
	}
	ids := make([]destination.ID, 0, len(names))
	for _, n := range names {
		for _, part := range strings.Split(n, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			id, err := destination.ParseID(part)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
