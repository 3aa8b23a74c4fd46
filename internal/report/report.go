// Package report accumulates job outcomes and renders the compile log.
package report

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Norgate-AV/shc/internal/cache"
)

const ruleWidth = 80

// Report is the ordered list of outcomes of one run
type Report struct {
	// CompilerVersion is the backend identity shown in the header
	CompilerVersion string

	// Incremental is false when the run ignored the cache
	Incremental bool

	// DryRun marks reports of runs that did not compile anything
	DryRun bool

	Started  time.Time
	outcomes []Outcome
}

// New creates an empty report
func New() *Report {
	return &Report{
		CompilerVersion: "unknown",
		Incremental:     true,
		Started:         time.Now(),
	}
}

// Add appends an outcome
func (r *Report) Add(o Outcome) {
	r.outcomes = append(r.outcomes, o)
}

// Outcomes returns the outcomes in submission order
func (r *Report) Outcomes() []Outcome {
	out := make([]Outcome, len(r.outcomes))
	copy(out, r.outcomes)

	return out
}

// Counts folds the outcomes into per-status counts
func (r *Report) Counts() Counts {
	counts := make(Counts)
	for _, o := range r.outcomes {
		counts[o.Status]++
	}

	return counts
}

// TotalElapsed is the sum of the per-job elapsed times
func (r *Report) TotalElapsed() time.Duration {
	var total time.Duration
	for _, o := range r.outcomes {
		total += o.Elapsed
	}

	return total
}

// Failed reports whether any job ended in an error
func (r *Report) Failed() bool {
	return r.Counts()[StatusError] > 0
}

// SummaryLine renders the per-status counts, e.g. "2 SKIP, 1 NEW, 1 ERROR"
func (r *Report) SummaryLine() string {
	counts := r.Counts()

	var parts []string
	for _, status := range summaryOrder {
		if n := counts[status]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, status))
		}
	}

	if len(parts) == 0 {
		return "no shaders"
	}

	return strings.Join(parts, ", ")
}

// WriteFile replaces the log at path; a failed write leaves the previous log intact
func (r *Report) WriteFile(path string) error {
	var buf bytes.Buffer
	if _, err := r.WriteTo(&buf); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}

	if err := cache.WriteFileAtomic(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	return nil
}

// WriteTo renders the report: header, entries grouped by status, then the summary
func (r *Report) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	rule := strings.Repeat("=", ruleWidth)

	mode := "Incremental (hash-based)"
	if !r.Incremental {
		mode = "Full rebuild"
	}
	if r.DryRun {
		mode += ", dry run"
	}

	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "Shader Compilation Log")
	fmt.Fprintf(&b, "Date: %s\n", r.Started.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Compiler Version: %s\n", r.CompilerVersion)
	fmt.Fprintf(&b, "Mode: %s\n", mode)
	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b)

	for _, status := range reportOrder {
		for _, o := range r.outcomes {
			if o.Status == status {
				writeEntry(&b, o)
				fmt.Fprintln(&b)
			}
		}
	}

	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "Summary: %s\n", r.SummaryLine())
	fmt.Fprintf(&b, "Total time: %s\n", seconds(r.TotalElapsed()))
	fmt.Fprintln(&b, rule)

	n, err := io.WriteString(w, b.String())
	return int64(n), err
}

func writeEntry(b *strings.Builder, o Outcome) {
	fmt.Fprintf(b, "[%s] %s (%s)\n", o.Status, o.Job, o.Profile)
	fmt.Fprintf(b, "     Source: %s\n", o.Source)

	switch o.Status {
	case StatusSkip:
		fmt.Fprintln(b, "     Status: Up to date (hash match)")
		fmt.Fprintf(b, "     Hash: %s\n", o.NewHash)

	case StatusRecompile:
		fmt.Fprintf(b, "     Status: %s\n", orDefault(o.Reason, "Source changed"))
		fmt.Fprintf(b, "     Old hash: %s\n", o.OldHash)
		fmt.Fprintf(b, "     New hash: %s\n", o.NewHash)
		writeChangedIncludes(b, o)
		writeOutputAndTime(b, o)

	case StatusNew:
		fmt.Fprintln(b, "     Status: First compilation")
		fmt.Fprintf(b, "     Hash: %s\n", o.NewHash)
		writeOutputAndTime(b, o)

	case StatusWarning:
		if o.Reason != "" {
			fmt.Fprintf(b, "     Status: %s\n", o.Reason)
		}
		fmt.Fprintf(b, "     Warning: %s\n", indent(o.Message))
		writeChangedIncludes(b, o)
		writeOutputAndTime(b, o)

	case StatusError:
		fmt.Fprintf(b, "     Error: %s\n", indent(o.Message))
		if o.Elapsed > 0 {
			fmt.Fprintf(b, "     Time: %s\n", seconds(o.Elapsed))
		}
	}
}

func writeChangedIncludes(b *strings.Builder, o Outcome) {
	if len(o.AddedIncludes) == 0 && len(o.RemovedIncludes) == 0 {
		return
	}

	fmt.Fprintln(b, "     Changed includes:")
	for _, inc := range o.AddedIncludes {
		fmt.Fprintf(b, "       + %s\n", inc)
	}
	for _, inc := range o.RemovedIncludes {
		fmt.Fprintf(b, "       - %s\n", inc)
	}
}

func writeOutputAndTime(b *strings.Builder, o Outcome) {
	if o.Output != "" {
		fmt.Fprintf(b, "     Output: %s\n", o.Output)
	}
	fmt.Fprintf(b, "     Time: %s\n", seconds(o.Elapsed))
}

// indent aligns continuation lines of multi-line diagnostics under the first line
func indent(msg string) string {
	return strings.ReplaceAll(strings.TrimSpace(msg), "\n", "\n            ")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}

	return s
}

// seconds formats d like "0.123s"
func seconds(d time.Duration) string {
	return fmt.Sprintf("%.3fs", d.Seconds())
}
