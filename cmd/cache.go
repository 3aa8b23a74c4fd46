package cmd

import (
	"fmt"
	"time"

	"github.com/Norgate-AV/shc/internal/cache"
	"github.com/Norgate-AV/shc/internal/codes"
	"github.com/Norgate-AV/shc/internal/config"
	"github.com/Norgate-AV/shc/internal/manifest"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the build cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:          "stats",
	Short:        "Show cache statistics",
	RunE:         runCacheStats,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
}

var cacheClearCmd = &cobra.Command{
	Use:          "clear",
	Short:        "Remove every cache record",
	Long:         `Remove every record from the cache so that the next build compiles all shaders.`,
	RunE:         runCacheClear,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
}

var cachePruneCmd = &cobra.Command{
	Use:          "prune",
	Short:        "Remove records of shaders no longer in the manifest",
	RunE:         runCachePrune,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cachePruneCmd)
}

func loadCache(cmd *cobra.Command) (*config.Config, *cache.Store, error) {
	cfg, err := config.NewLoader().LoadForCache(cmd)
	if err != nil {
		return nil, nil, err
	}

	store, err := cache.Load(cfg.CachePath)
	if err != nil {
		return nil, nil, err
	}

	return cfg, store, nil
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	cfg, store, err := loadCache(cmd)
	if err != nil {
		return err
	}

	count, size := store.Stats()
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Cache:    %s\n", cfg.CachePath)
	fmt.Fprintf(out, "Compiler: %s\n", orUnknown(store.CompilerVersion()))
	fmt.Fprintf(out, "Entries:  %d\n", count)
	fmt.Fprintf(out, "Outputs:  %s\n", humanize.Bytes(uint64(size)))

	var newest time.Time
	for _, name := range store.Names() {
		record, _ := store.Get(name)
		if record.Timestamp.After(newest) {
			newest = record.Timestamp
		}

		if cfg.Verbose {
			fmt.Fprintf(out, "  %-24s %s  %s\n", name, record.Hash, humanize.Time(record.Timestamp))
		}
	}

	if !newest.IsZero() {
		fmt.Fprintf(out, "Updated:  %s\n", humanize.Time(newest))
	}

	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	cfg, store, err := loadCache(cmd)
	if err != nil {
		return err
	}

	count := store.Len()
	store.Clear()

	if err := store.Save(cfg.CachePath); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d %s from %s\n", count, plural(count, "entry", "entries"), cfg.CachePath)

	return nil
}

func runCachePrune(cmd *cobra.Command, args []string) error {
	cfg, store, err := loadCache(cmd)
	if err != nil {
		return err
	}

	if cfg.ManifestPath == "" {
		return fmt.Errorf("%w: manifest not specified (use --manifest)", codes.ErrConfiguration)
	}

	m, err := manifest.Load(cfg.ManifestPath)
	if err != nil {
		return fmt.Errorf("%w: %w", codes.ErrConfiguration, err)
	}

	keep := make(map[string]bool, len(m.Jobs))
	for _, name := range m.Names() {
		keep[name] = true
	}

	var pruned []string
	for _, name := range store.Names() {
		if !keep[name] {
			store.Remove(name)
			pruned = append(pruned, name)
		}
	}

	if len(pruned) > 0 {
		if err := store.Save(cfg.CachePath); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	for _, name := range pruned {
		fmt.Fprintf(out, "  - %s\n", name)
	}
	fmt.Fprintf(out, "Pruned %d stale %s\n", len(pruned), plural(len(pruned), "entry", "entries"))

	return nil
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}

	return s
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}

	return many
}
