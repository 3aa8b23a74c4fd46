// Package manifest loads the list of compile jobs.
//
// Manifests may be written as JSON, YAML, TOML or HCL; the format is picked from the file
// extension. Every format decodes into the same logical schema:
//
//	version       manifest version string (informational)
//	include_dirs  extra include search directories, relative to the manifest
//	shaders       ordered list of jobs {name, path, entry, profile, defines, spirv}
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Job is one named compile unit
type Job struct {
	// Name uniquely identifies the job and keys its cache record
	Name string

	// Path is the source path as written in the manifest
	Path string

	// Source is the absolute source path
	Source string

	// EntryPoint is the shader entry function
	EntryPoint string

	// Profile is the target profile (e.g. ps_6_6)
	Profile string

	// Defines are preprocessor defines in NAME or NAME=VALUE form
	Defines []string

	// Secondary requests the secondary (SPIR-V) target
	Secondary bool
}

// Manifest is a loaded, validated manifest
type Manifest struct {
	// Path is the absolute manifest path
	Path string

	// BaseDir is the directory job paths are relative to
	BaseDir string

	Version string

	// IncludeDirs are absolute include search directories declared by the manifest
	IncludeDirs []string

	Jobs []Job
}

// rawJob is the on-disk shape of a job, shared by all formats
type rawJob struct {
	Name    string   `json:"name" yaml:"name" toml:"name"`
	Path    string   `json:"path" yaml:"path" toml:"path"`
	Entry   string   `json:"entry" yaml:"entry" toml:"entry"`
	Profile string   `json:"profile" yaml:"profile" toml:"profile"`
	Defines []string `json:"defines" yaml:"defines" toml:"defines"`
	Spirv   bool     `json:"spirv" yaml:"spirv" toml:"spirv"`
}

// rawManifest is the on-disk shape of a manifest
type rawManifest struct {
	Version     string   `json:"version" yaml:"version" toml:"version"`
	IncludeDirs []string `json:"include_dirs" yaml:"include_dirs" toml:"include_dirs"`
	Shaders     []rawJob `json:"shaders" yaml:"shaders" toml:"shaders"`
}

// Load reads and validates the manifest at path.
// Jobs without a name or path are dropped; later jobs reusing a name are dropped.
// A manifest without any remaining job is an error.
func Load(path string) (*Manifest, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve manifest path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("cannot open manifest file: %w", err)
	}

	raw, err := decoderFor(absPath)(absPath, data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}

	m := &Manifest{
		Path:    absPath,
		BaseDir: filepath.Dir(absPath),
		Version: raw.Version,
	}

	for _, dir := range raw.IncludeDirs {
		if dir != "" {
			m.IncludeDirs = append(m.IncludeDirs, m.resolve(dir))
		}
	}

	seen := make(map[string]bool, len(raw.Shaders))
	for _, rj := range raw.Shaders {
		if rj.Name == "" || rj.Path == "" || seen[rj.Name] {
			continue
		}

		seen[rj.Name] = true
		m.Jobs = append(m.Jobs, Job{
			Name:       rj.Name,
			Path:       rj.Path,
			Source:     m.resolve(rj.Path),
			EntryPoint: rj.Entry,
			Profile:    rj.Profile,
			Defines:    append([]string{}, rj.Defines...),
			Secondary:  rj.Spirv,
		})
	}

	if len(m.Jobs) == 0 {
		return nil, fmt.Errorf("manifest %s defines no valid shaders", path)
	}

	return m, nil
}

// Names returns the job names in manifest order
func (m *Manifest) Names() []string {
	names := make([]string, len(m.Jobs))
	for i, job := range m.Jobs {
		names[i] = job.Name
	}

	return names
}

// resolve makes p absolute relative to the manifest directory
func (m *Manifest) resolve(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}

	return filepath.Join(m.BaseDir, filepath.FromSlash(p))
}

// decoderFor picks a decoder from the manifest's extension, defaulting to JSON
func decoderFor(path string) func(string, []byte) (*rawManifest, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		return decodeYAML
	case ".toml":
		return decodeTOML
	case ".hcl":
		return decodeHCL
	default:
		return decodeJSON
	}
}
