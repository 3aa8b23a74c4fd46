package cache

import (
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"

	"github.com/Norgate-AV/shc/internal/utils"
)

// Seed is the starting value of every job fingerprint (the FNV-1a 64-bit offset basis)
const Seed uint64 = 14695981039346656037

// HashJob creates the fingerprint of a compile job.
// The fingerprint is based on:
// - Source file content
// - Content of every resolved include (sorted by path)
// - Preprocessor defines (sorted)
// - Target profile
// - Entry point
func HashJob(sourceFile string, includes, defines []string, profile, entryPoint string) (string, error) {
	h := Seed

	sourceHash, err := HashFile(sourceFile)
	if err != nil {
		return "", fmt.Errorf("failed to hash source file: %w", err)
	}
	h = Combine(h, sourceHash)

	for _, inc := range utils.SortedCopy(includes) {
		incHash, err := HashFile(inc)
		if err != nil {
			return "", fmt.Errorf("failed to hash include %s: %w", inc, err)
		}
		h = Combine(h, incHash)
	}

	for _, def := range utils.SortedCopy(defines) {
		h = Combine(h, xxhash.Sum64String(def))
	}

	h = Combine(h, xxhash.Sum64String(profile))
	h = Combine(h, xxhash.Sum64String(entryPoint))

	return fmt.Sprintf("%016x", h), nil
}

// Combine mixes h2 into h1
func Combine(h1, h2 uint64) uint64 {
	return h1 ^ (h2 + 0x9e3779b9 + (h1 << 6) + (h1 >> 2))
}

// HashFile creates a hash of a file's content
func HashFile(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	d := xxhash.New()
	if _, err := io.Copy(d, f); err != nil {
		return 0, err
	}

	return d.Sum64(), nil
}
