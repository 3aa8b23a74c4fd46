package cache

import "time"

// Record describes the last successful build of a job
type Record struct {
	// Name is the job name; it is the key of the record in the store
	Name string `json:"-"`

	// Hash is the job fingerprint at the time of the build
	Hash string `json:"hash"`

	// Source is the source path as written in the manifest
	Source string `json:"source"`

	// Includes are the resolved absolute include paths
	Includes []string `json:"includes"`

	// Defines are the preprocessor defines the job was built with
	Defines []string `json:"defines"`

	// PrimaryOutput is the path of the primary (DXIL) bytecode
	PrimaryOutput string `json:"output_primary"`

	// SecondaryOutput is the path of the secondary (SPIR-V) bytecode, empty if not requested
	SecondaryOutput string `json:"output_secondary"`

	// Timestamp when the build completed
	Timestamp time.Time `json:"last_compiled"`
}

// clone returns a deep copy so callers never share slices with the store
func (r Record) clone() Record {
	c := r
	c.Includes = append([]string{}, r.Includes...)
	c.Defines = append([]string{}, r.Defines...)

	return c
}
