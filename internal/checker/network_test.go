package checker

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

var testLogger = newTestLogger()

func fastOptions() Options {
	return Options{
		Timeout:        time.Second,
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
	}.withDefaults()
}

func TestCheckExternalLink_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	check := checkExternalLink(context.Background(), testLogger, fastOptions(), server.URL)
	if !check.OK {
		t.Errorf("Expected link to be reachable, got error: %v", check.Err)
	}
	if check.Name != checkReachable {
		t.Errorf("Expected check name %q, got %q", checkReachable, check.Name)
	}
}

func TestCheckExternalLink_FailureAfterRetries(t *testing.T) {
	var requestCount int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requestCount, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	check := checkExternalLink(context.Background(), testLogger, fastOptions(), server.URL)
	if check.OK {
		t.Fatal("Expected link to be unreachable")
	}
	if check.Err == nil {
		t.Error("Expected an error describing the failure")
	}
	if got := atomic.LoadInt32(&requestCount); got != 3 {
		t.Errorf("Expected 3 requests, but got %d", got)
	}
}

func TestCheckExternalLink_SuccessAfterOneRetry(t *testing.T) {
	var requestCount int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&requestCount, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	check := checkExternalLink(context.Background(), testLogger, fastOptions(), server.URL)
	if !check.OK {
		t.Errorf("Expected link to be reachable, got error: %v", check.Err)
	}
	if got := atomic.LoadInt32(&requestCount); got != 2 {
		t.Errorf("Expected 2 requests, but got %d", got)
	}
}

func TestCheckExternalLink_HeadNotAllowed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	check := checkExternalLink(context.Background(), testLogger, fastOptions(), server.URL)
	if !check.OK {
		t.Errorf("Expected GET fallback to succeed, got error: %v", check.Err)
	}
}

func TestCheckExternalLink_ConnectionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	check := checkExternalLink(context.Background(), testLogger, fastOptions(), server.URL)
	if check.OK {
		t.Error("Expected a closed server to be unreachable")
	}
}

func TestCheckExternalLink_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	start := time.Now()
	check := checkExternalLink(ctx, testLogger, fastOptions(), server.URL)
	if check.OK {
		t.Error("Expected a cancelled check to fail")
	}
	if elapsed := time.Since(start); elapsed > 150*time.Millisecond {
		t.Errorf("Expected cancellation to stop the check early, took %s", elapsed)
	}
}

func TestCheckExternalLink_NonHTTPSchemeSkipped(t *testing.T) {
	check := checkExternalLink(context.Background(), testLogger, fastOptions(), "mailto:someone@example.com")
	if !check.Skipped {
		t.Fatal("Expected mailto link to be skipped")
	}
	if !errors.Is(check.Err, errNotHTTP) {
		t.Errorf("Expected errNotHTTP, got %v", check.Err)
	}
}

func TestHTTPURL(t *testing.T) {
	testCases := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{input: "http://example.com", want: "http://example.com"},
		{input: "HTTPS://example.com/a", want: "HTTPS://example.com/a"},
		{input: "//cdn.example.com/x.js", want: "https://cdn.example.com/x.js"},
		{input: "ftp://example.com", wantErr: true},
		{input: "tel:+123", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			got, err := httpURL(tc.input)
			if (err != nil) != tc.wantErr {
				t.Fatalf("httpURL(%q) error = %v, wantErr %v", tc.input, err, tc.wantErr)
			}
			if got != tc.want {
				t.Errorf("httpURL(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}
