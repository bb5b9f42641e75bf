package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/palantir/contact-enricher/internal/cache"
	"github.com/palantir/contact-enricher/internal/pipeline"
)

// BatchOptions configures RunBatch.
type BatchOptions struct {
	Pipeline pipeline.Options
	// Resume seeds the cache from rows of a previous run at the output path.
	Resume bool
}

// BatchSummary counts the rows of a batch run.
type BatchSummary struct {
	Rows   int
	OK     int
	Errors int
	Seeded int
}

// RunBatch enriches every contact of the input CSV and writes one output row
// per input.
func (a *App) RunBatch(
	ctx context.Context,
	inputPath, outputPath string,
	opts BatchOptions,
	runner pipeline.Runner,
	c *cache.Cache,
) (BatchSummary, error) {
	var sum BatchSummary
	if c == nil {
		c = a.Cache
	}
	runStart := time.Now()

	inF, err := os.Open(inputPath)
	if err != nil {
		return sum, err
	}
	defer func() {
		_ = inF.Close()
	}()

	inputs, err := pipeline.ReadInputs(inF)
	if err != nil {
		return sum, fmt.Errorf("read input csv: %w", err)
	}
	a.Logger.Info("batch start",
		"input", inputPath,
		"output", outputPath,
		"rows", len(inputs),
		"workers", opts.Pipeline.Workers,
		"failFast", opts.Pipeline.FailFast,
		"resume", opts.Resume,
	)

	if opts.Resume {
		n, err := a.seedFromOutput(outputPath, c)
		if err != nil {
			return sum, err
		}
		sum.Seeded = n
	}

	done := 0
	rows, err := pipeline.EnrichContactsStream(ctx, inputs, runner, c, opts.Pipeline, func(r pipeline.Row) error {
		done++
		a.Logger.Debug("row done",
			"progress", fmt.Sprintf("%d/%d", done, len(inputs)),
			"key", r.CacheKey,
			"cache", r.Cache,
			"status", r.Status,
		)
		return nil
	})
	if err != nil {
		return sum, err
	}

	outF, err := os.Create(outputPath)
	if err != nil {
		return sum, err
	}
	defer func() {
		_ = outF.Close()
	}()
	if err := pipeline.WriteCSV(outF, rows); err != nil {
		return sum, err
	}
	if err := outF.Close(); err != nil {
		return sum, err
	}

	sum.Rows = len(rows)
	sum.OK, sum.Errors = pipeline.CountStatuses(rows)
	a.Logger.Info("batch done",
		"rows", sum.Rows,
		"ok", sum.OK,
		"errors", sum.Errors,
		"seeded", sum.Seeded,
		"duration", time.Since(runStart).Round(time.Millisecond),
	)
	return sum, nil
}

func (a *App) seedFromOutput(path string, c *cache.Cache) (int, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		a.Logger.Info("resume: no prior output found", "output", path)
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = f.Close()
	}()

	rows, err := pipeline.ReadCSV(f)
	if err != nil {
		return 0, fmt.Errorf("parse prior output csv: %w", err)
	}
	n := pipeline.Seed(c, rows)
	a.Logger.Info("resume: seeded cache from prior output", "rows", len(rows), "seeded", n)
	return n, nil
}
