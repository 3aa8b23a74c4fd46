package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
	"go.uber.org/multierr"
)

const (
	// bucketName is the BoltDB bucket holding one JSON record per job name
	bucketName = "builds"

	// metaBucketName holds the schema and compiler identity
	metaBucketName = "meta"

	metaVersionKey         = "version"
	metaCompilerVersionKey = "compiler_version"
)

// boltPersister stores the document in a BoltDB file
type boltPersister struct{}

func (boltPersister) read(path string) (*document, error) {
	// bbolt creates missing files, even read-only
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	defer db.Close()

	doc := &document{Entries: make(map[string]Record)}
	err = db.View(func(tx *bbolt.Tx) error {
		if meta := tx.Bucket([]byte(metaBucketName)); meta != nil {
			doc.Version = string(meta.Get([]byte(metaVersionKey)))
			doc.CompilerVersion = string(meta.Get([]byte(metaCompilerVersionKey)))
		}

		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return nil
		}

		return b.ForEach(func(k, v []byte) error {
			var record Record
			if err := json.Unmarshal(v, &record); err != nil {
				return fmt.Errorf("invalid record %q: %w", k, err)
			}

			doc.Entries[string(k)] = record
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return doc, nil
}

// write builds a fresh database next to path and renames it into place
func (boltPersister) write(path string, doc *document) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}

	tmpPath := tmp.Name()
	if err := tmp.Close(); err != nil {
		return err
	}

	defer func() {
		if err != nil {
			os.Remove(tmpPath)
		}
	}()

	db, err := bbolt.Open(tmpPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return fmt.Errorf("failed to open cache database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		meta, err := tx.CreateBucketIfNotExists([]byte(metaBucketName))
		if err != nil {
			return err
		}

		if err := meta.Put([]byte(metaVersionKey), []byte(doc.Version)); err != nil {
			return err
		}

		if err := meta.Put([]byte(metaCompilerVersionKey), []byte(doc.CompilerVersion)); err != nil {
			return err
		}

		b, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		if err != nil {
			return err
		}

		for name, record := range doc.Entries {
			data, err := json.Marshal(record)
			if err != nil {
				return err
			}

			if err := b.Put([]byte(name), data); err != nil {
				return err
			}
		}

		return nil
	})

	err = multierr.Append(err, db.Close())
	if err != nil {
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to replace cache database: %w", err)
	}

	return nil
}
