package config

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/Norgate-AV/shc/internal/cache"
	"github.com/Norgate-AV/shc/internal/codes"
	"github.com/spf13/viper"
)

// Default configuration values
const (
	DefaultReportFile = "shader_compile.log"
	DefaultCacheFile  = cache.DefaultCacheFile
	DefaultJobs       = 1
	DefaultVerbose    = false
)

// Holds the configuration options for shc
type Config struct {
	// Path to the shader manifest
	ManifestPath string

	// Directory receiving compiled bytecode
	OutputDir string

	// Path of the compile log
	ReportPath string

	// Path of the cache file (.json, or .db/.bolt for BoltDB)
	CachePath string

	// Path to the dxc executable; empty searches PATH and the project tree
	CompilerPath string

	// Extra include search directories
	IncludeDirs []string

	// Ignore the cache and rebuild every job
	Force bool

	// Enable verbose output
	Verbose bool

	// Classify jobs without compiling or writing anything
	DryRun bool

	// Number of concurrent compile workers; 0 uses one per CPU
	Jobs int
}

func fromViper() *Config {
	return &Config{
		ManifestPath: viper.GetString("manifest"),
		OutputDir:    viper.GetString("output"),
		ReportPath:   viper.GetString("report"),
		CachePath:    viper.GetString("cache"),
		CompilerPath: viper.GetString("compiler_path"),
		IncludeDirs:  viper.GetStringSlice("include"),
		Force:        viper.GetBool("force"),
		Verbose:      viper.GetBool("verbose"),
		DryRun:       viper.GetBool("dry_run"),
		Jobs:         viper.GetInt("jobs"),
	}
}

// Load builds a validated Config from the current viper state
func Load() (*Config, error) {
	cfg := fromViper()

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the required fields and resolves every path to an absolute one
func (c *Config) Validate() error {
	if c.ManifestPath == "" {
		return fmt.Errorf("%w: manifest not specified (use --manifest)", codes.ErrConfiguration)
	}

	if c.OutputDir == "" {
		return fmt.Errorf("%w: output directory not specified (use --output)", codes.ErrConfiguration)
	}

	return c.resolve()
}

// resolve applies defaults and makes paths absolute
func (c *Config) resolve() error {
	if c.CachePath == "" {
		c.CachePath = DefaultCacheFile
	}

	if c.Jobs == 0 {
		c.Jobs = runtime.NumCPU()
	}

	if c.Jobs < 0 {
		return fmt.Errorf("%w: invalid number of jobs: %d", codes.ErrConfiguration, c.Jobs)
	}

	// a bare compiler name is looked up on PATH by the backend
	paths := []*string{&c.ManifestPath, &c.OutputDir, &c.ReportPath, &c.CachePath}
	if isPath(c.CompilerPath) {
		paths = append(paths, &c.CompilerPath)
	}

	for _, p := range paths {
		if *p == "" {
			continue
		}

		abs, err := filepath.Abs(*p)
		if err != nil {
			return fmt.Errorf("%w: invalid path %s: %v", codes.ErrConfiguration, *p, err)
		}

		*p = abs
	}

	// Resolve include folders
	dirs := make([]string, 0, len(c.IncludeDirs))
	for _, dir := range c.IncludeDirs {
		if dir == "" {
			continue
		}

		abs, err := filepath.Abs(dir)
		if err != nil {
			return fmt.Errorf("%w: invalid include path %s: %v", codes.ErrConfiguration, dir, err)
		}

		dirs = append(dirs, abs)
	}
	c.IncludeDirs = dirs

	return nil
}

// isPath reports whether p names a file by path rather than a bare executable name
func isPath(p string) bool {
	return strings.ContainsRune(p, filepath.Separator) || strings.Contains(p, "/")
}
