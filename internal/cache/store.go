// Package cache provides build caching functionality for incremental shader compilation.
//
// The store keeps one record per job name describing its last successful build:
//
//  1. The job fingerprint (source + includes + defines + profile + entry point)
//  2. The resolved include set and defines the job was built with
//  3. The paths of the compiled primary and secondary bytecode
//
// Records live in memory for the duration of a run. They are loaded once at start and
// saved once at the end, atomically replacing the previous file. The backing file is a JSON
// document, or a BoltDB database when the path ends in .db or .bolt.
package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"sync"
)

const (
	// DefaultCacheFile is the default cache file name
	DefaultCacheFile = "shader_cache.json"

	// SchemaVersion is written to every saved cache file
	SchemaVersion = "1.0"
)

// Store maps job names to the record of their last successful build.
//
// A store must not be shared between processes; within one process it is safe for
// concurrent use.
type Store struct {
	mu              sync.RWMutex
	compilerVersion string
	records         map[string]Record
}

// document is the logical schema of a persisted store
type document struct {
	Version         string            `json:"version"`
	CompilerVersion string            `json:"compiler_version"`
	Entries         map[string]Record `json:"entries"`
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		records: make(map[string]Record),
	}
}

// Load reads the store persisted at path.
// A missing file is not an error: an empty store is returned.
func Load(path string) (*Store, error) {
	doc, err := persisterFor(path).read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewStore(), nil
		}

		return nil, fmt.Errorf("failed to load cache %s: %w", path, err)
	}

	s := NewStore()
	s.compilerVersion = doc.CompilerVersion

	for name, record := range doc.Entries {
		if name == "" {
			continue
		}

		record.Name = name
		s.records[name] = record.clone()
	}

	return s, nil
}

// Save writes the full store to path, replacing any previous file atomically
func (s *Store) Save(path string) error {
	s.mu.RLock()
	doc := &document{
		Version:         SchemaVersion,
		CompilerVersion: s.compilerVersion,
		Entries:         make(map[string]Record, len(s.records)),
	}

	for name, record := range s.records {
		doc.Entries[name] = record.clone()
	}
	s.mu.RUnlock()

	if err := persisterFor(path).write(path, doc); err != nil {
		return fmt.Errorf("failed to save cache %s: %w", path, err)
	}

	return nil
}

// UpToDate reports whether the job has a record with the given hash whose primary output
// still exists on disk
func (s *Store) UpToDate(name, hash string) bool {
	s.mu.RLock()
	record, ok := s.records[name]
	s.mu.RUnlock()

	if !ok || record.Hash != hash {
		return false
	}

	return fileExists(record.PrimaryOutput)
}

// CompilerVersion returns the compiler identity stored with the cache
func (s *Store) CompilerVersion() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.compilerVersion
}

// SetCompilerVersion sets the compiler identity written on the next Save
func (s *Store) SetCompilerVersion(version string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.compilerVersion = version
}

// CompilerVersionChanged returns true if a compiler identity was stored and differs from current
func (s *Store) CompilerVersionChanged(current string) bool {
	stored := s.CompilerVersion()
	return stored != "" && stored != current
}

// Put inserts or fully replaces the record for record.Name
func (s *Store) Put(record Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[record.Name] = record.clone()
}

// Get returns a copy of the record for name
func (s *Store) Get(name string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[name]
	if !ok {
		return Record{}, false
	}

	return record.clone(), true
}

// Remove deletes the record for name, if any
func (s *Store) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, name)
}

// HasEntry reports whether a record exists for name
func (s *Store) HasEntry(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.records[name]
	return ok
}

// GetHash returns the stored hash for name, or "" if there is no record
func (s *Store) GetHash(name string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.records[name].Hash
}

// Names returns the sorted job names with a record
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.records))
	for name := range s.records {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Len returns the number of records
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records)
}

// Clear removes all records. The compiler identity is kept.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]Record)
}

// Stats returns the record count and the total size of the recorded outputs still on disk
func (s *Store) Stats() (int, int64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var totalSize int64
	for _, record := range s.records {
		totalSize += OutputSize(record.PrimaryOutput, record.SecondaryOutput)
	}

	return len(s.records), totalSize
}

// fileExists reports whether path names an existing file
func fileExists(path string) bool {
	if path == "" {
		return false
	}

	_, err := os.Stat(path)
	return err == nil
}
