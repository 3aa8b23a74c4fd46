package report

import (
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func newTestConsole(t *testing.T, opts ConsoleOptions) (*Console, *strings.Builder) {
	t.Helper()

	noColor := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = noColor })

	var out strings.Builder
	// a strings.Builder is never a terminal, so no progress bar is drawn
	return NewConsole(&out, &out, opts), &out
}

func TestConsole_Done(t *testing.T) {
	c, out := newTestConsole(t, ConsoleOptions{})

	c.Start(4)
	c.Compiling("gbuffer", "DXIL")
	c.Done(Outcome{Job: "gbuffer", Status: StatusSkip})
	c.Done(Outcome{Job: "lighting", Status: StatusNew, Elapsed: 1500 * time.Millisecond})
	c.Done(Outcome{Job: "sky", Status: StatusWarning, Message: "SPIR-V compilation failed\nmore detail"})
	c.Done(Outcome{Job: "broken", Status: StatusError, Message: "Source file not found"})
	c.Finish()

	assert.Equal(t, "[NEW] lighting (1.500s)\n[WARNING] sky: SPIR-V compilation failed\n[ERROR] broken: Source file not found\n", out.String())
}

func TestConsole_Verbose(t *testing.T) {
	c, out := newTestConsole(t, ConsoleOptions{Verbose: true})

	c.Compiling("gbuffer", "DXIL")
	c.Done(Outcome{Job: "water", Status: StatusSkip})

	assert.Equal(t, "[COMPILE] gbuffer -> DXIL\n[SKIP] water (up to date)\n", out.String())
}

func TestConsole_DryRun(t *testing.T) {
	c, out := newTestConsole(t, ConsoleOptions{DryRun: true})

	c.Done(Outcome{Job: "gbuffer", Status: StatusRecompile})
	c.Done(Outcome{Job: "lighting", Status: StatusNew})

	assert.Equal(t, "[WOULD COMPILE] gbuffer\n[WOULD COMPILE] lighting\n", out.String())
}

func TestConsole_Summary(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		c, out := newTestConsole(t, ConsoleOptions{})
		r := New()
		r.Add(Outcome{Job: "a", Status: StatusNew})
		r.Add(Outcome{Job: "b", Status: StatusSkip})

		c.Summary(r, "shader_compile.log")

		assert.Contains(t, out.String(), "Compiled: 1")
		assert.Contains(t, out.String(), "Skipped:  1")
		assert.Contains(t, out.String(), "Build SUCCEEDED")
	})

	t.Run("failure", func(t *testing.T) {
		c, out := newTestConsole(t, ConsoleOptions{})
		r := New()
		r.Add(Outcome{Job: "a", Status: StatusError})

		c.Summary(r, "shader_compile.log")

		assert.Contains(t, out.String(), "Build FAILED with 1 error(s)")
		assert.Contains(t, out.String(), "See shader_compile.log for details")
	})
}
