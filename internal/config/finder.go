package config

import (
	"os"
	"path/filepath"
)

// configExts are the config file formats viper reads, in lookup order
var configExts = []string{"yml", "yaml", "json", "toml"}

// FindLocalConfig finds local config file by walking up directories
func FindLocalConfig(dir string) string {
	for {
		for _, ext := range configExts {
			path := filepath.Join(dir, ".shc."+ext)

			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}

		dir = parent
	}

	return ""
}

// FindGlobalConfig returns the first config.<ext> in dir, or "" if there is none
func FindGlobalConfig(dir string) string {
	if dir == "" {
		return ""
	}

	for _, ext := range configExts {
		path := filepath.Join(dir, "config."+ext)

		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}

	return ""
}
