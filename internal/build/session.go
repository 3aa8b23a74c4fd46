// Package build runs the incremental compile pass over a manifest.
//
// A Session owns everything with run lifetime: the manifest, the compiler backend, the cache
// store and the report. The Orchestrator handles a single job: it resolves includes, hashes the
// job, asks the store whether it is up to date and compiles it when it is not.
package build

import (
	"context"
	"fmt"
	"os"

	"github.com/Norgate-AV/shc/internal/cache"
	"github.com/Norgate-AV/shc/internal/codes"
	"github.com/Norgate-AV/shc/internal/compiler"
	"github.com/Norgate-AV/shc/internal/include"
	"github.com/Norgate-AV/shc/internal/manifest"
	"github.com/Norgate-AV/shc/internal/report"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Options configures a Session
type Options struct {
	ManifestPath string
	OutputDir    string

	// ReportPath is where the compile log is written; empty disables it
	ReportPath string

	CachePath string
	Force     bool
	DryRun    bool

	// Jobs is the number of concurrent workers; values below 2 process jobs sequentially
	Jobs int

	// IncludeDirs are searched before the manifest's include dirs
	IncludeDirs []string
}

// Display shows live progress and the closing summary
type Display interface {
	report.Progress
	Summary(r *report.Report, reportPath string)
}

// Session is a single build invocation
type Session struct {
	opts    Options
	backend compiler.Backend
	display Display
	logger  *zap.Logger
}

// NewSession creates a session. The backend is not touched until Run, and never in dry runs.
func NewSession(opts Options, backend compiler.Backend, display Display, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}

	if opts.CachePath == "" {
		opts.CachePath = cache.DefaultCacheFile
	}

	if display == nil {
		display = nopDisplay{}
	}

	return &Session{
		opts:    opts,
		backend: backend,
		display: display,
		logger:  logger,
	}
}

// Run processes every job of the manifest and returns the report.
//
// Configuration and backend initialization failures abort before any job and are classified
// with codes.ErrConfiguration and codes.ErrBackendInit. A run that completes with at least one
// failed job returns codes.ErrBuildFailed alongside the report.
func (s *Session) Run(ctx context.Context) (rep *report.Report, err error) {
	if s.opts.OutputDir == "" {
		return nil, fmt.Errorf("%w: output directory not specified", codes.ErrConfiguration)
	}

	m, err := manifest.Load(s.opts.ManifestPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", codes.ErrConfiguration, err)
	}

	s.logger.Debug("loaded manifest", zap.String("path", m.Path), zap.Int("jobs", len(m.Jobs)))

	rep = report.New()
	rep.DryRun = s.opts.DryRun

	if !s.opts.DryRun {
		if s.backend == nil {
			return nil, fmt.Errorf("%w: no compiler backend", codes.ErrBackendInit)
		}

		if err := s.backend.Init(); err != nil {
			return nil, fmt.Errorf("%w: %w", codes.ErrBackendInit, err)
		}

		defer func() {
			if cerr := s.backend.Close(); cerr != nil {
				err = multierr.Append(err, fmt.Errorf("failed to release compiler: %w", cerr))
			}
		}()

		rep.CompilerVersion = s.backend.Version()
	}

	store, err := cache.Load(s.opts.CachePath)
	if err != nil {
		s.logger.Warn("ignoring unreadable cache, rebuilding everything", zap.String("path", s.opts.CachePath), zap.Error(err))
		store = cache.NewStore()
	}

	force, forceReason := s.opts.Force, ReasonForced
	if !s.opts.DryRun {
		if store.CompilerVersionChanged(rep.CompilerVersion) {
			s.logger.Warn("compiler version changed, forcing full rebuild",
				zap.String("cached", store.CompilerVersion()),
				zap.String("current", rep.CompilerVersion))

			if !force {
				force, forceReason = true, ReasonCompilerChanged
			}
		}

		store.SetCompilerVersion(rep.CompilerVersion)

		if err := os.MkdirAll(s.opts.OutputDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	rep.Incremental = !force

	searchDirs := make([]string, 0, len(s.opts.IncludeDirs)+len(m.IncludeDirs)+1)
	searchDirs = append(searchDirs, s.opts.IncludeDirs...)
	searchDirs = append(searchDirs, m.IncludeDirs...)
	searchDirs = append(searchDirs, m.BaseDir)

	resolver := include.NewResolver(s.logger, searchDirs...)
	s.logger.Debug("include search dirs", zap.Strings("dirs", resolver.SearchDirs()))

	orch := NewOrchestrator(store, resolver, s.backend, s.display, s.logger, OrchestratorOptions{
		OutputDir:   s.opts.OutputDir,
		Force:       force,
		ForceReason: forceReason,
		DryRun:      s.opts.DryRun,
		IncludeDirs: searchDirs,
	})

	s.display.Start(len(m.Jobs))
	outcomes, err := s.process(ctx, orch, m.Jobs)
	s.display.Finish()

	if err != nil {
		return nil, err
	}

	for _, o := range outcomes {
		rep.Add(o)
	}

	var persistErr error
	reportPath := ""
	if !s.opts.DryRun {
		persistErr = store.Save(s.opts.CachePath)

		if s.opts.ReportPath != "" {
			if werr := rep.WriteFile(s.opts.ReportPath); werr != nil {
				persistErr = multierr.Append(persistErr, werr)
			} else {
				reportPath = s.opts.ReportPath
			}
		}
	}

	s.display.Summary(rep, reportPath)

	if persistErr != nil {
		return rep, persistErr
	}

	if rep.Failed() {
		return rep, fmt.Errorf("%w: %d shader(s) failed", codes.ErrBuildFailed, rep.Counts()[report.StatusError])
	}

	return rep, nil
}

// process runs the jobs and returns their outcomes in manifest order
func (s *Session) process(ctx context.Context, orch *Orchestrator, jobs []manifest.Job) ([]report.Outcome, error) {
	outcomes := make([]report.Outcome, len(jobs))

	if s.opts.Jobs < 2 {
		for i, job := range jobs {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			outcomes[i] = orch.Process(job)
		}

		return outcomes, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Jobs)

	for i, job := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			outcomes[i] = orch.Process(job)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return outcomes, nil
}

type nopDisplay struct {
	nopProgress
}

func (nopDisplay) Summary(*report.Report, string) {}
