package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/Norgate-AV/shc/internal/codes"
	"github.com/Norgate-AV/shc/internal/config"
	"github.com/Norgate-AV/shc/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var rootCmd = &cobra.Command{
	Use:   "shc [manifest]",
	Short: "Incremental shader compiler",
	Long: `Compile the shaders listed in a manifest with DXC, skipping every shader whose
source, includes, defines, profile and entry point are unchanged since the last build.`,
	RunE:         runBuild,
	SilenceUsage: true,
	Args:         cobra.MaximumNArgs(1),
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	err := rootCmd.ExecuteContext(ctx)
	stop()

	if code := exitCode(err, os.Stderr); !codes.IsSuccess(code) {
		os.Exit(code)
	}
}

// exitCode classifies err and describes non-zero codes on w
func exitCode(err error, w io.Writer) int {
	code := codes.ExitCode(err)
	if !codes.IsSuccess(code) {
		fmt.Fprintf(w, "shc: %s (exit code %d)\n", codes.GetErrorMessage(code), code)
	}

	return code
}

func init() {
	rootCmd.Version = fmt.Sprintf("%s (%s) %s", version.Version, version.Commit, version.BuildTime)
	addFlags(rootCmd.PersistentFlags())
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(cacheCmd)
}

// addFlags registers the flags shared by every command
func addFlags(flags *pflag.FlagSet) {
	flags.StringP("manifest", "m", "", "Shader manifest (.json, .yaml, .toml or .hcl)")
	flags.StringP("output", "o", "", "Output directory for compiled bytecode")
	flags.StringP("report", "r", config.DefaultReportFile, "Compile log file")
	flags.StringP("cache", "c", config.DefaultCacheFile, "Cache file (.json, or .db for BoltDB)")
	flags.BoolP("force", "f", false, "Ignore the cache and rebuild every shader")
	flags.BoolP("verbose", "v", false, "Verbose output")
	flags.BoolP("dry-run", "n", false, "Show what would be compiled without compiling")
	flags.IntP("jobs", "j", config.DefaultJobs, "Number of shaders compiled in parallel (0 = one per CPU)")
	flags.StringSliceP("include", "I", []string{}, "Additional include directories")
	flags.String("compiler-path", "", "Path to the dxc executable")
}
