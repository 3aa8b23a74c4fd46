package report

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// Progress receives live notifications while jobs are processed
type Progress interface {
	Start(total int)
	Compiling(job, target string)
	Done(o Outcome)
	Finish()
}

// ConsoleOptions controls what the console prints
type ConsoleOptions struct {
	// Verbose also prints skipped jobs and each backend invocation
	Verbose bool

	// DryRun prints compile candidates as "WOULD COMPILE"
	DryRun bool
}

var statusColors = map[Status]*color.Color{
	StatusSkip:      color.New(color.FgHiBlack),
	StatusNew:       color.New(color.FgGreen),
	StatusRecompile: color.New(color.FgCyan),
	StatusWarning:   color.New(color.FgYellow),
	StatusError:     color.New(color.FgRed, color.Bold),
}

// Console prints per-job status lines and, on terminals, a progress bar
type Console struct {
	mu     sync.Mutex
	out    io.Writer
	barOut io.Writer
	bar    *progressbar.ProgressBar
	opts   ConsoleOptions
}

// NewConsole creates a console writing status lines to out. A progress bar is drawn on
// barOut when it is a terminal.
func NewConsole(out, barOut io.Writer, opts ConsoleOptions) *Console {
	c := &Console{
		out:  out,
		opts: opts,
	}

	if f, ok := barOut.(*os.File); ok && isTerminal(f) {
		c.barOut = f
	}

	return c
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Start announces the number of jobs
func (c *Console) Start(total int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.barOut == nil || total == 0 {
		return
	}

	c.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(c.barOut),
		progressbar.OptionSetDescription("Compiling"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionClearOnFinish(),
	)
}

// Compiling prints a backend invocation in verbose mode
func (c *Console) Compiling(job, target string) {
	if !c.opts.Verbose {
		return
	}

	c.println(fmt.Sprintf("[COMPILE] %s -> %s", job, target))
}

// Done prints the status line of a finished job and advances the bar
func (c *Console) Done(o Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if line := c.statusLine(o); line != "" {
		c.printLocked(line)
	}

	if c.bar != nil {
		c.bar.Describe(o.Job)
		_ = c.bar.Add(1)
	}
}

// Finish removes the progress bar
func (c *Console) Finish() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.bar != nil {
		_ = c.bar.Finish()
		c.bar = nil
	}
}

// Summary prints the closing counts and the overall verdict
func (c *Console) Summary(r *Report, reportPath string) {
	counts := r.Counts()

	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, "=== Summary ===")
	fmt.Fprintf(c.out, "  Compiled: %d\n", counts.Compiled())
	fmt.Fprintf(c.out, "  Skipped:  %d\n", counts[StatusSkip])
	fmt.Fprintf(c.out, "  Warnings: %d\n", counts[StatusWarning])
	fmt.Fprintf(c.out, "  Errors:   %d\n", counts[StatusError])
	fmt.Fprintf(c.out, "  Time:     %s\n", seconds(r.TotalElapsed()))
	fmt.Fprintln(c.out)

	if r.Failed() {
		statusColors[StatusError].Fprintf(c.out, "Build FAILED with %d error(s)\n", counts[StatusError])
		if reportPath != "" {
			fmt.Fprintf(c.out, "See %s for details\n", reportPath)
		}

		return
	}

	statusColors[StatusNew].Fprintln(c.out, "Build SUCCEEDED")
}

func (c *Console) statusLine(o Outcome) string {
	tag := statusColors[o.Status].Sprintf("[%s]", o.Status)

	switch o.Status {
	case StatusSkip:
		if !c.opts.Verbose {
			return ""
		}

		return fmt.Sprintf("%s %s (up to date)", tag, o.Job)

	case StatusNew, StatusRecompile:
		if c.opts.DryRun {
			return fmt.Sprintf("%s %s", statusColors[o.Status].Sprint("[WOULD COMPILE]"), o.Job)
		}

		return fmt.Sprintf("%s %s (%s)", tag, o.Job, seconds(o.Elapsed))

	case StatusWarning:
		return fmt.Sprintf("%s %s: %s", tag, o.Job, firstLine(o.Message))

	case StatusError:
		return fmt.Sprintf("%s %s: %s", tag, o.Job, firstLine(o.Message))
	}

	return ""
}

func (c *Console) println(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.printLocked(line)
}

// printLocked prints a line above the progress bar
func (c *Console) printLocked(line string) {
	if c.bar != nil {
		_ = c.bar.Clear()
	}

	fmt.Fprintln(c.out, line)
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}
