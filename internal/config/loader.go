package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. SHC_OUTPUT or SHC_DRY_RUN
const EnvPrefix = "SHC"

// flagKeys maps command flags to their viper keys
var flagKeys = map[string]string{
	"manifest":      "manifest",
	"output":        "output",
	"report":        "report",
	"cache":         "cache",
	"force":         "force",
	"verbose":       "verbose",
	"dry-run":       "dry_run",
	"jobs":          "jobs",
	"include":       "include",
	"compiler-path": "compiler_path",
}

// Loader handles configuration loading from various sources.
//
// Sources are layered, later ones overriding earlier ones: defaults, the global config file,
// the local .shc.* file nearest to the manifest, SHC_* environment variables, and flags.
type Loader struct {
	// userConfigDir locates the directory holding shc/config.*
	userConfigDir func() (string, error)
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{
		userConfigDir: os.UserConfigDir,
	}
}

// LoadForBuild loads configuration specifically for build operations
func (l *Loader) LoadForBuild(cmd *cobra.Command) (*Config, error) {
	l.prepare(cmd)
	l.loadLocalConfig(viper.GetString("manifest"))

	return Load()
}

// LoadForCache loads configuration for cache maintenance. Neither a manifest nor an output
// directory is required; the local config is searched from the manifest directory when one is
// given, else from the working directory.
func (l *Loader) LoadForCache(cmd *cobra.Command) (*Config, error) {
	l.prepare(cmd)

	start := viper.GetString("manifest")
	if start == "" {
		if wd, err := os.Getwd(); err == nil {
			start = filepath.Join(wd, DefaultCacheFile)
		}
	}
	l.loadLocalConfig(start)

	cfg := fromViper()
	if err := cfg.resolve(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (l *Loader) prepare(cmd *cobra.Command) {
	l.setupViperDefaults()
	l.loadGlobalConfig()
	l.setupEnv()
	l.bindCommandFlags(cmd)
}

// setupViperDefaults sets up default values for viper
func (l *Loader) setupViperDefaults() {
	viper.SetDefault("report", DefaultReportFile)
	viper.SetDefault("cache", DefaultCacheFile)
	viper.SetDefault("jobs", DefaultJobs)
	viper.SetDefault("verbose", DefaultVerbose)
	viper.SetDefault("compiler_path", "")
}

// setupEnv enables SHC_* environment overrides
func (l *Loader) setupEnv() {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// loadGlobalConfig loads global configuration from the user config directory
func (l *Loader) loadGlobalConfig() {
	base, err := l.userConfigDir()
	if err != nil || base == "" {
		return
	}

	globalPath := FindGlobalConfig(filepath.Join(base, "shc"))
	if globalPath == "" {
		return
	}

	viper.SetConfigFile(globalPath)
	_ = viper.ReadInConfig()
}

// loadLocalConfig merges the local config nearest to path over the global config
func (l *Loader) loadLocalConfig(path string) {
	if path == "" {
		return
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return // silently ignore, config.Load() will handle validation
	}

	localPath := FindLocalConfig(filepath.Dir(abs))
	if localPath == "" {
		return
	}

	viper.SetConfigFile(localPath)
	_ = viper.MergeInConfig()
}

// bindCommandFlags binds command flags to viper
func (l *Loader) bindCommandFlags(cmd *cobra.Command) {
	if cmd == nil {
		return
	}

	for flag, key := range flagKeys {
		if f := cmd.Flags().Lookup(flag); f != nil {
			_ = viper.BindPFlag(key, f)
		}
	}
}
