package cmd

import (
	"context"
	"os"
	"path/filepath"

	"github.com/Norgate-AV/shc/internal/build"
	"github.com/Norgate-AV/shc/internal/compiler"
	"github.com/Norgate-AV/shc/internal/config"
	"github.com/Norgate-AV/shc/internal/logger"
	"github.com/Norgate-AV/shc/internal/report"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var buildCmd = &cobra.Command{
	Use:          "build [manifest]",
	Short:        "Build the shaders of a manifest",
	Long:         `Compile every out-of-date shader of a manifest and write the compile log.`,
	RunE:         runBuild,
	SilenceUsage: true,
	Args:         cobra.MaximumNArgs(1),
}

// newBackend creates the compiler backend for a build
var newBackend = func(cfg *config.Config, log *zap.Logger) compiler.Backend {
	return compiler.NewDXC(cfg.CompilerPath, compiler.DefaultSearchDirs(filepath.Dir(cfg.ManifestPath)), log)
}

func runBuild(cmd *cobra.Command, args []string) error {
	// the manifest may also be given as the only argument
	if len(args) == 1 && !cmd.Flags().Changed("manifest") {
		if err := cmd.Flags().Set("manifest", args[0]); err != nil {
			return err
		}
	}

	cfg, err := config.NewLoader().LoadForBuild(cmd)
	if err != nil {
		return err
	}

	log := logger.New(os.Stderr, cfg.Verbose)
	defer func() { _ = log.Sync() }()

	log.Debug("configuration",
		zap.String("manifest", cfg.ManifestPath),
		zap.String("output", cfg.OutputDir),
		zap.String("cache", cfg.CachePath),
		zap.String("report", cfg.ReportPath),
		zap.Int("jobs", cfg.Jobs),
		zap.Bool("force", cfg.Force),
		zap.Bool("dry_run", cfg.DryRun))

	console := report.NewConsole(cmd.OutOrStdout(), os.Stderr, report.ConsoleOptions{
		Verbose: cfg.Verbose,
		DryRun:  cfg.DryRun,
	})

	session := build.NewSession(build.Options{
		ManifestPath: cfg.ManifestPath,
		OutputDir:    cfg.OutputDir,
		ReportPath:   cfg.ReportPath,
		CachePath:    cfg.CachePath,
		Force:        cfg.Force,
		DryRun:       cfg.DryRun,
		Jobs:         cfg.Jobs,
		IncludeDirs:  cfg.IncludeDirs,
	}, newBackend(cfg, log), console, log)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	_, err = session.Run(ctx)
	return err
}
