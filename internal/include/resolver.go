// Package include discovers the transitive #include dependencies of a shader source file.
//
// Resolution is best-effort: an include that cannot be found on any search path is left out
// of the dependency set instead of failing the walk. A job whose search paths are misconfigured
// therefore hashes fewer files than the compiler actually reads.
package include

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"go.uber.org/zap"
)

// includeDirective matches `#include "path"` and `#include <path>` at the start of a line
var includeDirective = regexp.MustCompile(`(?m)^[ \t]*#[ \t]*include[ \t]*[<"]([^>"\r\n]+)[>"]`)

// fallbackDirs are tried relative to the including file after the configured search dirs
var fallbackDirs = []string{
	filepath.Join("..", "include"),
	"include",
	"..",
}

// Resolver walks include directives and resolves them against search directories
type Resolver struct {
	searchDirs []string
	logger     *zap.Logger
}

// NewResolver creates a resolver that consults searchDirs, in order, after the including
// file's own directory
func NewResolver(logger *zap.Logger, searchDirs ...string) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}

	dirs := make([]string, 0, len(searchDirs))
	for _, dir := range searchDirs {
		if dir == "" {
			continue
		}

		if abs, err := filepath.Abs(dir); err == nil {
			dir = abs
		}

		dirs = append(dirs, dir)
	}

	return &Resolver{
		searchDirs: dirs,
		logger:     logger,
	}
}

// SearchDirs returns the absolute search directories in priority order
func (r *Resolver) SearchDirs() []string {
	dirs := make([]string, len(r.searchDirs))
	copy(dirs, r.searchDirs)

	return dirs
}

// Resolve returns the sorted, de-duplicated absolute paths of every file transitively
// included by sourcePath. The source itself is never part of the result.
func (r *Resolver) Resolve(sourcePath string) ([]string, error) {
	root, err := canonical(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve source path: %w", err)
	}

	content, err := os.ReadFile(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read source file: %w", err)
	}

	visited := map[string]bool{root: true}
	deps := make(map[string]bool)
	r.walk(root, content, visited, deps)

	result := make([]string, 0, len(deps))
	for dep := range deps {
		if dep != root {
			result = append(result, dep)
		}
	}

	sort.Strings(result)

	return result, nil
}

// walk scans content (the text of file) and recurses into every include not yet visited
func (r *Resolver) walk(file string, content []byte, visited, deps map[string]bool) {
	baseDir := filepath.Dir(file)

	for _, match := range includeDirective.FindAllSubmatch(content, -1) {
		name := string(match[1])

		resolved := r.resolvePath(baseDir, name)
		if resolved == "" {
			r.logger.Debug("unresolved include",
				zap.String("file", file),
				zap.String("include", name))
			continue
		}

		deps[resolved] = true
		if visited[resolved] {
			continue
		}

		visited[resolved] = true

		nested, err := os.ReadFile(resolved)
		if err != nil {
			r.logger.Debug("unreadable include",
				zap.String("include", resolved),
				zap.Error(err))
			continue
		}

		r.walk(resolved, nested, visited, deps)
	}
}

// resolvePath finds name relative to baseDir, the search dirs, then the fallbacks.
// Returns "" when the include cannot be found.
func (r *Resolver) resolvePath(baseDir, name string) string {
	if filepath.IsAbs(name) {
		return existingFile(name)
	}

	candidates := make([]string, 0, 1+len(r.searchDirs)+len(fallbackDirs))
	candidates = append(candidates, filepath.Join(baseDir, name))

	for _, dir := range r.searchDirs {
		candidates = append(candidates, filepath.Join(dir, name))
	}

	for _, prefix := range fallbackDirs {
		candidates = append(candidates, filepath.Join(baseDir, prefix, name))
	}

	for _, candidate := range candidates {
		if path := existingFile(candidate); path != "" {
			return path
		}
	}

	return ""
}

// existingFile returns the canonical path of path if it is a regular file
func existingFile(path string) string {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return ""
	}

	canon, err := canonical(path)
	if err != nil {
		return ""
	}

	return canon
}

// canonical makes path absolute and resolves symlinks when possible
func canonical(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}

	return abs, nil
}
