package build

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Norgate-AV/shc/internal/cache"
	"github.com/Norgate-AV/shc/internal/compiler"
	"github.com/Norgate-AV/shc/internal/include"
	"github.com/Norgate-AV/shc/internal/manifest"
	"github.com/Norgate-AV/shc/internal/report"
	"github.com/Norgate-AV/shc/internal/utils"
	"go.uber.org/zap"
)

// Rebuild reasons shown for recompiled jobs
const (
	ReasonFirst           = "First compilation"
	ReasonHashChanged     = "Source changed"
	ReasonOutputMissing   = "Output missing"
	ReasonForced          = "Forced rebuild"
	ReasonCompilerChanged = "Compiler version changed"
)

// OrchestratorOptions controls how jobs are classified and compiled
type OrchestratorOptions struct {
	// OutputDir receives <name>.dxil and <name>.spv
	OutputDir string

	// Force compiles every job regardless of the cache
	Force bool

	// ForceReason is reported for jobs rebuilt because of Force
	ForceReason string

	// DryRun classifies jobs without invoking the backend or writing anything
	DryRun bool

	// IncludeDirs are passed to the backend ahead of the per-source directories
	IncludeDirs []string
}

// Orchestrator drives single jobs from classification to a recorded outcome
type Orchestrator struct {
	store    *cache.Store
	resolver *include.Resolver
	backend  compiler.Backend
	progress report.Progress
	logger   *zap.Logger
	opts     OrchestratorOptions
	now      func() time.Time
}

// NewOrchestrator creates an orchestrator. backend may be nil for dry runs.
func NewOrchestrator(store *cache.Store, resolver *include.Resolver, backend compiler.Backend, progress report.Progress, logger *zap.Logger, opts OrchestratorOptions) *Orchestrator {
	if progress == nil {
		progress = nopProgress{}
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	if opts.ForceReason == "" {
		opts.ForceReason = ReasonForced
	}

	return &Orchestrator{
		store:    store,
		resolver: resolver,
		backend:  backend,
		progress: progress,
		logger:   logger,
		opts:     opts,
		now:      time.Now,
	}
}

// Process runs one job to completion and returns its outcome. Per-job failures never
// escape as errors; they are reported as Error or Warning outcomes.
func (o *Orchestrator) Process(job manifest.Job) report.Outcome {
	t := newTracker(job.Name)
	out := o.process(job, t)
	t.advance(Recorded)

	o.progress.Done(out)

	return out
}

func (o *Orchestrator) process(job manifest.Job, t *tracker) report.Outcome {
	out := report.Outcome{
		Job:     job.Name,
		Profile: job.Profile,
		Source:  job.Path,
	}

	log := o.logger.With(zap.String("job", job.Name))

	if !isRegularFile(job.Source) {
		t.advance(Failed)
		return fail(out, "Source file not found: "+job.Source)
	}

	includes, err := o.resolver.Resolve(job.Source)
	if err != nil {
		t.advance(Failed)
		return fail(out, fmt.Sprintf("failed to resolve includes: %v", err))
	}

	hash, err := cache.HashJob(job.Source, includes, job.Defines, job.Profile, job.EntryPoint)
	if err != nil {
		t.advance(Failed)
		return fail(out, fmt.Sprintf("failed to hash job: %v", err))
	}
	out.NewHash = hash

	prior, hadPrior := o.store.Get(job.Name)
	out.OldHash = prior.Hash

	if !o.opts.Force && o.store.UpToDate(job.Name, hash) {
		t.advance(Skipped)
		out.Status = report.StatusSkip
		log.Debug("up to date", zap.String("hash", hash))

		return out
	}

	t.advance(Compiling)

	out.Status = report.StatusNew
	out.Reason = ReasonFirst
	if hadPrior {
		out.Status = report.StatusRecompile
		out.Reason = o.rebuildReason(prior, hash)
		out.RemovedIncludes, out.AddedIncludes = utils.Diff(prior.Includes, includes)
	}

	log.Debug("needs compile", zap.String("reason", out.Reason), zap.String("old", prior.Hash), zap.String("new", hash))

	if o.opts.DryRun {
		t.advance(Succeeded)
		out.Message = "dry run: not compiled"

		return out
	}

	primaryOut := filepath.Join(o.opts.OutputDir, job.Name+compiler.TargetPrimary.Ext())
	req := compiler.Request{
		SourcePath:  job.Source,
		EntryPoint:  job.EntryPoint,
		Profile:     job.Profile,
		Defines:     job.Defines,
		IncludeDirs: o.compilerIncludeDirs(job.Source),
		Target:      compiler.TargetPrimary,
	}

	o.progress.Compiling(job.Name, compiler.TargetPrimary.String())
	result := o.backend.Compile(req)
	out.Elapsed = result.Elapsed

	if !result.Success {
		t.advance(Failed)
		return fail(out, orDefault(result.ErrorText, "compilation failed"))
	}

	if err := cache.WriteArtifact(primaryOut, result.Bytecode); err != nil {
		t.advance(Failed)
		return fail(out, fmt.Sprintf("Failed to save %s: %v", compiler.TargetPrimary, err))
	}

	var warnings []string
	if result.WarningText != "" {
		warnings = append(warnings, result.WarningText)
	}

	secondaryOut := ""
	if job.Secondary {
		secondaryOut = filepath.Join(o.opts.OutputDir, job.Name+compiler.TargetSecondary.Ext())

		warning, ok := o.compileSecondary(job.Name, req, secondaryOut, &out)
		if warning != "" {
			warnings = append(warnings, warning)
		}
		if !ok {
			o.discardSecondary(job.Name, secondaryOut)
			secondaryOut = ""
		}
	}

	t.advance(Succeeded)

	o.store.Put(cache.Record{
		Name:            job.Name,
		Hash:            hash,
		Source:          job.Path,
		Includes:        includes,
		Defines:         job.Defines,
		PrimaryOutput:   primaryOut,
		SecondaryOutput: secondaryOut,
		Timestamp:       o.now(),
	})

	out.Output = primaryOut

	if len(warnings) > 0 {
		out.Status = report.StatusWarning
		out.Message = strings.Join(warnings, "\n")
	}

	return out
}

// compileSecondary builds the secondary target. Its failures only produce warnings;
// ok is false when no fresh artifact was written to path.
func (o *Orchestrator) compileSecondary(job string, req compiler.Request, path string, out *report.Outcome) (warning string, ok bool) {
	req.Target = compiler.TargetSecondary

	o.progress.Compiling(job, compiler.TargetSecondary.String())
	result := o.backend.Compile(req)
	out.Elapsed += result.Elapsed

	if !result.Success {
		o.logger.Warn("secondary target failed", zap.String("job", job), zap.String("target", req.Target.String()))
		return fmt.Sprintf("%s compilation failed: %s", req.Target, orDefault(result.ErrorText, "unknown error")), false
	}

	if err := cache.WriteArtifact(path, result.Bytecode); err != nil {
		return fmt.Sprintf("Failed to save %s: %v", req.Target, err), false
	}

	return result.WarningText, true
}

// discardSecondary removes a secondary artifact left by an earlier build
func (o *Orchestrator) discardSecondary(job, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		o.logger.Warn("failed to remove stale secondary output", zap.String("job", job), zap.String("path", path), zap.Error(err))
	}
}

func (o *Orchestrator) rebuildReason(prior cache.Record, hash string) string {
	switch {
	case o.opts.Force:
		return o.opts.ForceReason
	case prior.Hash != hash:
		return ReasonHashChanged
	default:
		return ReasonOutputMissing
	}
}

// compilerIncludeDirs returns the configured dirs followed by the source dir and its ../include
func (o *Orchestrator) compilerIncludeDirs(source string) []string {
	dir := filepath.Dir(source)

	dirs := make([]string, 0, len(o.opts.IncludeDirs)+2)
	dirs = append(dirs, o.opts.IncludeDirs...)
	dirs = append(dirs, dir, filepath.Join(dir, "..", "include"))

	return dirs
}

func fail(out report.Outcome, msg string) report.Outcome {
	out.Status = report.StatusError
	out.Message = msg

	return out
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}

	return s
}

type nopProgress struct{}

func (nopProgress) Start(int)                {}
func (nopProgress) Compiling(string, string) {}
func (nopProgress) Done(report.Outcome)      {}
func (nopProgress) Finish()                  {}
