// Package report writes link check results in TAP, JSON or YAML.
package report

import (
	"fmt"
	"io"
	"strings"

	"sitelinks/internal/checker"
)

// Reporter receives results while a run is in progress and the finished
// report at the end.
type Reporter interface {
	Begin() error
	Result(res checker.Result)
	End(report *checker.Report) error
}

const (
	FormatTAP  = "tap"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Formats lists the accepted output formats.
var Formats = []string{FormatTAP, FormatJSON, FormatYAML}

// New returns a reporter writing format to w.
func New(format string, w io.Writer) (Reporter, error) {
	switch strings.ToLower(format) {
	case FormatTAP, "":
		return NewTAP(w, "inbound links"), nil
	case FormatJSON:
		return &documentReporter{w: w, encode: encodeJSON}, nil
	case FormatYAML, "yml":
		return &documentReporter{w: w, encode: encodeYAML}, nil
	default:
		return nil, fmt.Errorf("unknown report format %q (want one of %s)", format, strings.Join(Formats, ", "))
	}
}

type document struct {
	OK      bool          `json:"ok" yaml:"ok"`
	Passed  int           `json:"passed" yaml:"passed"`
	Failed  int           `json:"failed" yaml:"failed"`
	Skipped int           `json:"skipped" yaml:"skipped"`
	Error   string        `json:"error,omitempty" yaml:"error,omitempty"`
	Results []resultEntry `json:"results" yaml:"results"`
}

type resultEntry struct {
	Destination string       `json:"destination" yaml:"destination"`
	Source      string       `json:"source" yaml:"source"`
	Message     string       `json:"message" yaml:"message"`
	Checks      []checkEntry `json:"checks" yaml:"checks"`
}

type checkEntry struct {
	Name    string `json:"name" yaml:"name"`
	OK      bool   `json:"ok" yaml:"ok"`
	Skipped bool   `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

func newDocument(report *checker.Report) document {
	doc := document{
		OK:      !report.Failed(),
		Results: make([]resultEntry, 0, len(report.Results)),
	}
	doc.Passed, doc.Failed, doc.Skipped = report.Counts()
	if report.Err != nil {
		doc.Error = report.Err.Error()
	}

	for _, res := range report.Results {
		entry := resultEntry{
			Destination: res.Record.Destination,
			Source:      res.Record.Source,
			Message:     res.Message,
		}
		for _, c := range res.Checks {
			ce := checkEntry{Name: c.Name, OK: c.OK, Skipped: c.Skipped}
			if c.Err != nil {
				ce.Error = c.Err.Error()
			}
			entry.Checks = append(entry.Checks, ce)
		}
		doc.Results = append(doc.Results, entry)
	}
	return doc
}

// documentReporter writes one document built from the final report.
type documentReporter struct {
	w      io.Writer
	encode func(io.Writer, document) error
}

func (r *documentReporter) Begin() error { return nil }

func (r *documentReporter) Result(checker.Result) {}

func (r *documentReporter) End(report *checker.Report) error {
	return r.encode(r.w, newDocument(report))
}
