package cache

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteArtifact writes compiled bytecode to path, creating parent directories as needed.
// The previous file, if any, is replaced atomically.
func WriteArtifact(path string, bytecode []byte) error {
	if len(bytecode) == 0 {
		return fmt.Errorf("refusing to write empty bytecode to %s", path)
	}

	if err := WriteFileAtomic(path, bytecode, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}

// WriteFileAtomic writes data to a temp file in the destination directory and renames it
// over path, so readers never observe a partially written file
func WriteFileAtomic(path string, data []byte, perm os.FileMode) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}

	if err := tmp.Sync(); err != nil {
		return err
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmp.Name(), perm); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}

// OutputSize returns the combined size of the given files, ignoring missing ones
func OutputSize(paths ...string) int64 {
	var total int64

	for _, path := range paths {
		if path == "" {
			continue
		}

		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}

		total += info.Size()
	}

	return total
}
