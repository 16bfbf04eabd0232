package checker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const (
	checkAbsolute  = "should be absolute"
	checkExists    = "should exist"
	checkReachable = "should be reachable"
)

// SourcePath maps a built page back to the file it was authored in, so a
// broken link can be traced to where it was written. A file outside
// buildRoot is returned unchanged.
func SourcePath(buildRoot, contentRoot, sourceExt, file string) string {
	rel, err := filepath.Rel(buildRoot, file)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return file
	}

	source := filepath.ToSlash(filepath.Join(contentRoot, rel))
	if strings.HasSuffix(source, ".html") {
		source = strings.TrimSuffix(source, ".html") + sourceExt
	}
	return source
}

// resolveFile maps a site-absolute destination to a file under root.
// Directories redirect to their index.html until a file is found or the
// stat fails.
func resolveFile(root, destination string) (string, error) {
	candidate := filepath.Join(root, filepath.FromSlash(destination))
	if candidate != root && !strings.HasPrefix(candidate, root+string(filepath.Separator)) {
		return "", fmt.Errorf("%s: %w", destination, ErrOutsideRoot)
	}

	for {
		info, err := os.Stat(candidate)
		if err != nil {
			return "", err
		}
		if !info.IsDir() {
			return candidate, nil
		}
		candidate = filepath.Join(candidate, "index.html")
	}
}

// validateRecord runs every check that applies to rec. It never fails the
// pipeline: problems are recorded in the returned checks.
func validateRecord(ctx context.Context, logger *slog.Logger, opts Options, rec LinkRecord) Result {
	source := SourcePath(opts.BuildRoot, opts.ContentRoot, opts.SourceExt, rec.Source)
	res := Result{
		Record:  rec,
		Message: fmt.Sprintf("%q links to %q -", source, rec.Destination),
	}

	if isExternal(rec.Destination) {
		res.Checks = append(res.Checks, checkExternalLink(ctx, logger, opts, rec.Destination))
		return res
	}

	absolute := Check{Name: checkAbsolute, OK: strings.HasPrefix(rec.Destination, "/")}
	if !absolute.OK {
		absolute.Err = ErrNotAbsolute
	}

	exists := Check{Name: checkExists}
	if file, err := resolveFile(opts.BuildRoot, rec.Destination); err != nil {
		logger.DebugContext(ctx, "Link target missing",
			slog.String("source", source),
			slog.String("destination", rec.Destination),
			slog.Any("error", err),
		)
		exists.Err = err
	} else {
		logger.DebugContext(ctx, "Link target found", slog.String("destination", rec.Destination), slog.String("file", file))
		exists.OK = true
	}

	res.Checks = append(res.Checks, absolute, exists)
	return res
}
