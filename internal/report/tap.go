package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	tap "github.com/mndrix/tap-go"
	"gopkg.in/yaml.v3"

	"sitelinks/internal/checker"
)

// TAP streams one TAP 13 assertion per check as results arrive, followed by
// an assertion that the pipeline itself did not error.
type TAP struct {
	w    *bufio.Writer
	t    *tap.T
	name string
	pass int
	fail int
	skip int
}

// diagnostic is the YAML block attached to a failed assertion.
type diagnostic struct {
	Operator string `yaml:"operator"`
	Message  string `yaml:"message"`
}

func NewTAP(w io.Writer, name string) *TAP {
	bw := bufio.NewWriter(w)
	t := tap.New()
	t.Writer = bw
	return &TAP{w: bw, t: t, name: name}
}

func (t *TAP) Begin() error {
	t.t.Header(0)
	t.t.Diagnostic(t.name)
	return t.w.Flush()
}

func (t *TAP) Result(res checker.Result) {
	for _, c := range res.Checks {
		t.assert(res.Message+" "+c.Name, c)
	}
	// A write error sticks to the buffer and is returned by End.
	_ = t.w.Flush()
}

func (t *TAP) End(report *checker.Report) error {
	t.assert("streaming link pipeline should not error", checker.Check{
		OK:  report.Err == nil,
		Err: report.Err,
	})

	fmt.Fprintln(t.w)
	t.t.AutoPlan()
	t.t.Diagnosticf("tests %d", t.t.Count())
	t.t.Diagnosticf("pass  %d", t.pass)
	if t.skip > 0 {
		t.t.Diagnosticf("skip  %d", t.skip)
	}
	if t.fail > 0 {
		t.t.Diagnosticf("fail  %d", t.fail)
	} else {
		fmt.Fprintln(t.w)
		t.t.Diagnostic("ok")
	}
	return t.w.Flush()
}

func (t *TAP) assert(description string, c checker.Check) {
	switch {
	case c.Skipped:
		t.skip++
		reason := "skipped"
		if c.Err != nil {
			reason = c.Err.Error()
		}
		t.t.Skip(1, description+": "+reason)
	case c.OK:
		t.pass++
		t.t.Pass(description)
	default:
		t.fail++
		t.t.Fail(description)
		if c.Err != nil {
			t.diagnose(diagnostic{Operator: "error", Message: c.Err.Error()})
		}
	}
}

// diagnose writes d as an indented YAML block under the last assertion.
func (t *TAP) diagnose(d diagnostic) {
	out, err := yaml.Marshal(d)
	if err != nil {
		t.t.Diagnosticf("could not encode diagnostic: %v", err)
		return
	}
	fmt.Fprintln(t.w, "  ---")
	for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		fmt.Fprintf(t.w, "    %s\n", line)
	}
	fmt.Fprintln(t.w, "  ...")
}
