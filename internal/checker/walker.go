package checker

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
)

// walkFiles sends the absolute path of every regular file under root to out.
// The send blocks until a consumer is ready, so the walk never runs ahead of
// the extractors.
func walkFiles(ctx context.Context, logger *slog.Logger, root string, out chan<- string) error {
	logger = logger.With(slog.String("build_root", root))
	logger.DebugContext(ctx, "Starting file walk")

	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("could not resolve build root: %w", err)
	}

	count := 0
	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.ErrorContext(ctx, "Failed to walk path", slog.String("path", path), slog.Any("error", err))
			return fmt.Errorf("failed to walk %s: %w", path, err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		select {
		case out <- path:
			count++
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	if err != nil {
		return err
	}

	logger.DebugContext(ctx, "Finished file walk", slog.Int("files_found", count))
	return nil
}
