package checker

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// readFile is swapped out in tests to simulate read failures.
var readFile = os.ReadFile

var schemePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.\-]*:`)

// isExternal reports whether href leaves the site: it carries a URL scheme
// or is protocol-relative.
func isExternal(href string) bool {
	return strings.HasPrefix(href, "//") || schemePattern.MatchString(href)
}

// normalizeHref returns the destination to record for href and whether a
// record should be emitted at all.
func normalizeHref(href string, checkExternal bool) (string, bool) {
	href = strings.TrimSpace(href)

	// Empty and same-page anchors link nowhere we can check.
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}

	if i := strings.IndexByte(href, '#'); i >= 0 {
		href = href[:i]
	}

	if isExternal(href) && !checkExternal {
		return "", false
	}
	return href, true
}

// extractFileLinks reads one built file and returns a record for every
// qualifying anchor. Files that are not HTML yield nothing.
func extractFileLinks(ctx context.Context, logger *slog.Logger, path string, checkExternal bool) ([]LinkRecord, error) {
	if filepath.Ext(path) != ".html" {
		return nil, nil
	}

	logger = logger.With(slog.String("file", path))
	logger.DebugContext(ctx, "Reading HTML file")

	data, err := readFile(path)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to read HTML file", slog.Any("error", err))
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	root, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		logger.ErrorContext(ctx, "Failed to parse HTML document", slog.Any("error", err))
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return extractLinks(ctx, logger, goquery.NewDocumentFromNode(root), path, checkExternal), nil
}

func extractLinks(ctx context.Context, logger *slog.Logger, doc *goquery.Document, source string, checkExternal bool) []LinkRecord {
	var records []LinkRecord
	skipped := 0

	doc.Find("a").Each(func(i int, s *goquery.Selection) {
		href, _ := s.Attr("href")

		destination, ok := normalizeHref(href, checkExternal)
		if !ok {
			logger.DebugContext(ctx, "Skipping link", slog.String("href", href))
			skipped++
			return
		}

		records = append(records, LinkRecord{
			Destination: destination,
			Source:      source,
		})
	})

	logger.DebugContext(ctx, "Finished extracting links",
		slog.Int("links_found", len(records)),
		slog.Int("links_skipped", skipped),
	)
	return records
}
