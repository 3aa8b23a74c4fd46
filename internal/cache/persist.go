package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// persister reads and writes the logical cache document in one concrete file format
type persister interface {
	read(path string) (*document, error)
	write(path string, doc *document) error
}

// persisterFor picks the file format from the path extension
func persisterFor(path string) persister {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".bolt":
		return boltPersister{}
	default:
		return jsonPersister{}
	}
}

// jsonPersister stores the whole document as indented JSON
type jsonPersister struct{}

func (jsonPersister) read(path string) (*document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	return &doc, nil
}

func (jsonPersister) write(path string, doc *document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	return WriteFileAtomic(path, append(data, '\n'), 0o644)
}
