// Package checker validates the links of a built static site. It walks the
// build output, extracts anchors from every HTML page and checks that each
// internal destination resolves to a file on disk.
//
// The work runs as three streaming stages joined by unbuffered channels:
//
//	walker -> extractors -> validators -> report
//
// A structural error (an unreadable directory or page) stops the pipeline.
// A broken link never does: it is recorded and the run carries on, so one
// pass reports every broken link.
package checker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Run checks every link under opts.BuildRoot. sink, when non-nil, is called
// once per Result as it is produced, from a single goroutine.
//
// The returned error covers invalid options only. Pipeline failures are
// reported through Report.Err, alongside the results gathered before the
// failure.
func Run(ctx context.Context, logger *slog.Logger, opts Options, sink func(Result)) (*Report, error) {
	opts = opts.withDefaults()
	if opts.BuildRoot == "" {
		return nil, errors.New("build root is required")
	}
	root, err := filepath.Abs(opts.BuildRoot)
	if err != nil {
		return nil, fmt.Errorf("could not resolve build root: %w", err)
	}
	// WalkDir does not descend into a symlinked root, while the validator's
	// stat follows links. Both stages work on the resolved path. A root
	// that cannot be resolved is left for the walker to report.
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}
	opts.BuildRoot = root

	logger = logger.With(slog.String("build_root", root))
	logger.DebugContext(ctx, "Starting link check",
		slog.Bool("check_external", opts.CheckExternal),
		slog.Int("workers", opts.Workers),
	)

	g, gctx := errgroup.WithContext(ctx)

	paths := make(chan string)
	records := make(chan LinkRecord)
	results := make(chan Result)

	g.Go(func() error {
		defer close(paths)
		return walkFiles(gctx, logger, root, paths)
	})

	var extractors sync.WaitGroup
	for w := 0; w < opts.Workers; w++ {
		extractors.Add(1)
		g.Go(func() error {
			defer extractors.Done()
			return extractWorker(gctx, logger, opts.CheckExternal, paths, records)
		})
	}
	go func() {
		extractors.Wait()
		close(records)
	}()

	var validators sync.WaitGroup
	for w := 0; w < opts.Workers; w++ {
		validators.Add(1)
		go func() {
			defer validators.Done()
			for rec := range records {
				results <- validateRecord(gctx, logger, opts, rec)
			}
		}()
	}
	go func() {
		validators.Wait()
		close(results)
	}()

	report := &Report{}
	for res := range results {
		report.Results = append(report.Results, res)
		if sink != nil {
			sink(res)
		}
	}
	report.Err = g.Wait()
	if report.Err == nil && ctx.Err() != nil {
		// Cancelled after the last stage drained: the run is still incomplete.
		report.Err = ctx.Err()
	}

	passed, failed, skipped := report.Counts()
	if report.Err != nil {
		logger.ErrorContext(ctx, "Link pipeline stopped", slog.Any("error", report.Err))
	}
	logger.InfoContext(ctx, "Link check complete",
		slog.Group("results",
			slog.Int("links", len(report.Results)),
			slog.Int("passed", passed),
			slog.Int("failed", failed),
			slog.Int("skipped", skipped),
		),
	)

	return report, nil
}

// extractWorker turns paths into records until paths is closed or the run
// is cancelled. Every record of one file is handed on before the next path
// is taken.
func extractWorker(ctx context.Context, logger *slog.Logger, checkExternal bool, paths <-chan string, records chan<- LinkRecord) error {
	for {
		var path string
		var ok bool
		select {
		case path, ok = <-paths:
			if !ok {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}

		recs, err := extractFileLinks(ctx, logger, path, checkExternal)
		if err != nil {
			return err
		}
		for _, rec := range recs {
			select {
			case records <- rec:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}
