package report

import (
	"bytes"
	"errors"
	"io/fs"
	"strings"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"sitelinks/internal/checker"
)

func sampleReport() *checker.Report {
	return &checker.Report{
		Results: []checker.Result{
			{
				Record:  checker.LinkRecord{Destination: "/b.html", Source: "/site/build/a.html"},
				Message: `"content/a.md" links to "/b.html" -`,
				Checks: []checker.Check{
					{Name: "should be absolute", OK: true},
					{Name: "should exist", OK: true},
				},
			},
			{
				Record:  checker.LinkRecord{Destination: "/c.html", Source: "/site/build/a.html"},
				Message: `"content/a.md" links to "/c.html" -`,
				Checks: []checker.Check{
					{Name: "should be absolute", OK: true},
					{Name: "should exist", Err: fs.ErrNotExist},
				},
			},
			{
				Record:  checker.LinkRecord{Destination: "mailto:a@example.com", Source: "/site/build/a.html"},
				Message: `"content/a.md" links to "mailto:a@example.com" -`,
				Checks: []checker.Check{
					{Name: "should be reachable", Skipped: true, Err: errors.New("not an http link")},
				},
			},
		},
	}
}

func runReporter(t *testing.T, format string, report *checker.Report) string {
	t.Helper()
	var buf bytes.Buffer
	r, err := New(format, &buf)
	require.NoError(t, err)
	require.NoError(t, r.Begin())
	for _, res := range report.Results {
		r.Result(res)
	}
	require.NoError(t, r.End(report))
	return buf.String()
}

func TestTAP(t *testing.T) {
	out := runReporter(t, FormatTAP, sampleReport())

	assert.True(t, strings.HasPrefix(out, "TAP version 13\n# inbound links\n"))
	assert.Contains(t, out, `ok 1 - "content/a.md" links to "/b.html" - should be absolute`)
	assert.Contains(t, out, `ok 2 - "content/a.md" links to "/b.html" - should exist`)
	assert.Contains(t, out, `not ok 4 - "content/a.md" links to "/c.html" - should exist`)
	assert.Contains(t, out, "  ---\n    operator: error\n    message: file does not exist\n  ...\n")
	assert.Contains(t, out, "ok 5 # SKIP \"content/a.md\" links to \"mailto:a@example.com\" - should be reachable: not an http link")
	assert.Contains(t, out, "ok 6 - streaming link pipeline should not error")
	assert.Contains(t, out, "1..6\n")
	assert.Contains(t, out, "# tests 6\n")
	assert.Contains(t, out, "# pass  4\n")
	assert.Contains(t, out, "# skip  1\n")
	assert.Contains(t, out, "# fail  1\n")
	assert.NotContains(t, out, "# ok")
}

func TestTAP_AllPassing(t *testing.T) {
	report := sampleReport()
	report.Results = report.Results[:1]

	out := runReporter(t, FormatTAP, report)

	assert.Contains(t, out, "1..3\n")
	assert.Contains(t, out, "# tests 3\n")
	assert.Contains(t, out, "# pass  3\n")
	assert.NotContains(t, out, "not ok")
	assert.True(t, strings.HasSuffix(out, "# ok\n"))
}

func TestTAP_PipelineError(t *testing.T) {
	report := &checker.Report{Err: errors.New("failed to walk build: boom")}

	out := runReporter(t, FormatTAP, report)

	assert.Contains(t, out, "not ok 1 - streaming link pipeline should not error")
	assert.Contains(t, out, "failed to walk build: boom")
	assert.Contains(t, out, "# tests 1\n")
	assert.Contains(t, out, "# fail  1\n")
}

func TestTAP_DiagnosticIsYAML(t *testing.T) {
	msg := "failed to read a.html: open a.html: \"quoted\" # not a comment\nsecond line"
	report := &checker.Report{Err: errors.New(msg)}

	out := runReporter(t, FormatTAP, report)

	start := strings.Index(out, "  ---\n")
	end := strings.Index(out, "  ...\n")
	require.True(t, start >= 0 && end > start, "no diagnostic block in:\n%s", out)

	var diag diagnostic
	require.NoError(t, yaml.Unmarshal([]byte(out[start+len("  ---\n"):end]), &diag))
	assert.Equal(t, "error", diag.Operator)
	assert.Equal(t, msg, diag.Message)
}

func TestJSON(t *testing.T) {
	out := runReporter(t, FormatJSON, sampleReport())

	var doc document
	require.NoError(t, jsoniter.Unmarshal([]byte(out), &doc))
	assert.False(t, doc.OK)
	assert.Equal(t, 3, doc.Passed)
	assert.Equal(t, 1, doc.Failed)
	assert.Equal(t, 1, doc.Skipped)
	require.Len(t, doc.Results, 3)
	assert.Equal(t, "/c.html", doc.Results[1].Destination)
	assert.Equal(t, "file does not exist", doc.Results[1].Checks[1].Error)
	assert.Empty(t, doc.Error)
}

func TestYAML(t *testing.T) {
	report := sampleReport()
	report.Err = errors.New("boom")

	out := runReporter(t, FormatYAML, report)

	var doc document
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	assert.False(t, doc.OK)
	assert.Equal(t, 3, doc.Passed)
	assert.Equal(t, 1, doc.Failed)
	assert.Equal(t, "boom", doc.Error)
	require.Len(t, doc.Results, 3)
	assert.True(t, doc.Results[2].Checks[0].Skipped)
}

func TestNew_UnknownFormat(t *testing.T) {
	_, err := New("xml", &bytes.Buffer{})
	assert.Error(t, err)
}
