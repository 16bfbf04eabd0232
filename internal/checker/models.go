package checker

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
)

var (
	// ErrNotAbsolute marks an internal link that does not start with "/".
	ErrNotAbsolute = errors.New("link is not root-absolute")
	// ErrOutsideRoot marks a destination that resolves outside the build root.
	ErrOutsideRoot = errors.New("link resolves outside the build root")
)

// LinkRecord is one anchor found in a built page.
type LinkRecord struct {
	Destination string
	Source      string
}

// Check is a single assertion made about a LinkRecord.
type Check struct {
	Name    string
	OK      bool
	Skipped bool
	Err     error
}

// Result holds every check made for one record. Message is the
// human-facing prefix naming the authored source and the destination.
type Result struct {
	Record  LinkRecord
	Message string
	Checks  []Check
}

func (r Result) Failed() bool {
	for _, c := range r.Checks {
		if !c.OK && !c.Skipped {
			return true
		}
	}
	return false
}

// Report is the outcome of one pipeline run.
type Report struct {
	Results []Result
	// Err is the terminal structural error, nil on a clean end of stream.
	Err error
}

func (r *Report) Failed() bool {
	if r.Err != nil {
		return true
	}
	for _, res := range r.Results {
		if res.Failed() {
			return true
		}
	}
	return false
}

// Counts returns the number of passed, failed and skipped checks.
func (r *Report) Counts() (passed, failed, skipped int) {
	for _, res := range r.Results {
		for _, c := range res.Checks {
			switch {
			case c.Skipped:
				skipped++
			case c.OK:
				passed++
			default:
				failed++
			}
		}
	}
	return passed, failed, skipped
}

// Errors combines every failed check and the terminal error into one error.
func (r *Report) Errors() error {
	var errs []error
	for _, res := range r.Results {
		for _, c := range res.Checks {
			if c.OK || c.Skipped {
				continue
			}
			if c.Err != nil {
				errs = append(errs, fmt.Errorf("%s %s: %w", res.Message, c.Name, c.Err))
			} else {
				errs = append(errs, fmt.Errorf("%s %s", res.Message, c.Name))
			}
		}
	}
	if r.Err != nil {
		errs = append(errs, fmt.Errorf("streaming link pipeline: %w", r.Err))
	}
	return multierr.Combine(errs...)
}

// Options configures a run.
type Options struct {
	// BuildRoot is the directory holding the generated HTML files.
	BuildRoot string
	// ContentRoot and SourceExt translate a built page back to the file it
	// was authored in, for failure messages.
	ContentRoot string
	SourceExt   string

	CheckExternal bool
	Workers       int

	// External link checking.
	Timeout        time.Duration
	MaxRetries     int
	InitialBackoff time.Duration
}

const (
	DefaultContentRoot    = "./content"
	DefaultSourceExt      = ".md"
	DefaultWorkers        = 4
	DefaultTimeout        = 10 * time.Second
	DefaultMaxRetries     = 3
	DefaultInitialBackoff = 1 * time.Second
)

func (o Options) withDefaults() Options {
	if o.ContentRoot == "" {
		o.ContentRoot = DefaultContentRoot
	}
	if o.SourceExt == "" {
		o.SourceExt = DefaultSourceExt
	}
	if o.Workers < 1 {
		o.Workers = DefaultWorkers
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.MaxRetries < 1 {
		o.MaxRetries = DefaultMaxRetries
	}
	if o.InitialBackoff <= 0 {
		o.InitialBackoff = DefaultInitialBackoff
	}
	return o
}
