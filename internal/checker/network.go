package checker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

var errNotHTTP = errors.New("not an http link")

// httpURL returns the URL to request for an external destination.
// Protocol-relative links are requested over https.
func httpURL(destination string) (string, error) {
	if strings.HasPrefix(destination, "//") {
		return "https:" + destination, nil
	}
	lower := strings.ToLower(destination)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return destination, nil
	}
	return "", errNotHTTP
}

// probeLink issues a single request and returns the status code. HEAD is
// tried first; servers that reject it get a GET.
func probeLink(ctx context.Context, client *http.Client, url string) (int, error) {
	status, err := doRequest(ctx, client, http.MethodHead, url)
	if err == nil && status == http.StatusMethodNotAllowed {
		return doRequest(ctx, client, http.MethodGet, url)
	}
	return status, err
}

func doRequest(ctx context.Context, client *http.Client, method, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}

// checkExternalLink pings an external destination with retries and
// exponential backoff. Non-HTTP schemes are skipped.
func checkExternalLink(ctx context.Context, logger *slog.Logger, opts Options, destination string) Check {
	check := Check{Name: checkReachable}

	url, err := httpURL(destination)
	if err != nil {
		logger.DebugContext(ctx, "Skipping non-HTTP link", slog.String("destination", destination))
		check.Skipped = true
		check.Err = err
		return check
	}

	logger = logger.With(slog.String("url", url))
	logger.DebugContext(ctx, "Starting link check")

	client := &http.Client{Timeout: opts.Timeout}
	backoff := opts.InitialBackoff

	for i := 0; i < opts.MaxRetries; i++ {
		attempt := i + 1

		status, err := probeLink(ctx, client, url)
		if err == nil && status >= 200 && status < 300 {
			logger.InfoContext(ctx, "Link is accessible", slog.Int("status_code", status))
			check.OK = true
			return check
		}

		if err != nil {
			check.Err = fmt.Errorf("request failed: %w", err)
		} else {
			check.Err = fmt.Errorf("unexpected status code %d", status)
		}

		if ctx.Err() != nil {
			break
		}

		if attempt < opts.MaxRetries {
			logger.WarnContext(ctx, "Link check failed, retrying...",
				slog.Int("attempt", attempt),
				slog.Any("error", check.Err),
				slog.Duration("backoff_duration", backoff),
			)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				check.Err = ctx.Err()
				return check
			}
			backoff *= 2
		}
	}

	logger.ErrorContext(ctx, "Link is inaccessible after all retries",
		slog.Int("max_retries", opts.MaxRetries),
		slog.Any("error", check.Err),
	)
	return check
}
