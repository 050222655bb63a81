package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nao1215/webindex/internal/config"
	"github.com/nao1215/webindex/internal/index"
	"github.com/nao1215/webindex/internal/model"
)

// PersistenceError reports a failed read or write of an artifact.
type PersistenceError struct {
	// Op is "save" or "load".
	Op   string
	Path string
	Err  error
}

// Error implements the error interface.
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Store locates the artifacts inside one data directory.
type Store struct {
	dir string
}

// New creates a Store for dir. The directory is created on the first save.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the data directory.
func (s *Store) Dir() string {
	return s.dir
}

// DocumentsPath returns the path of documents.json.
func (s *Store) DocumentsPath() string {
	return filepath.Join(s.dir, config.DocumentsFile)
}

// IndexPath returns the path of inverted_index.json.
func (s *Store) IndexPath() string {
	return filepath.Join(s.dir, config.IndexFile)
}

// DocumentMapPath returns the path of inverted_index_doc_map.json.
func (s *Store) DocumentMapPath() string {
	return filepath.Join(s.dir, config.DocumentMapFile)
}

// SaveDocuments writes docs in order.
func (s *Store) SaveDocuments(docs []model.Document) error {
	if docs == nil {
		docs = make([]model.Document, 0)
	}
	return writeJSON(s.DocumentsPath(), docs)
}

// LoadDocuments reads the documents written by SaveDocuments.
func (s *Store) LoadDocuments() ([]model.Document, error) {
	var docs []model.Document
	if err := readJSON(s.DocumentsPath(), &docs); err != nil {
		return nil, err
	}
	if docs == nil {
		docs = make([]model.Document, 0)
	}
	return docs, nil
}

// SaveIndex writes the document map and then the inverted index.
func (s *Store) SaveIndex(idx index.InvertedIndex, docs index.DocumentMap) error {
	if docs == nil {
		docs = make(index.DocumentMap)
	}
	if idx == nil {
		idx = make(index.InvertedIndex)
	}
	if err := writeJSON(s.DocumentMapPath(), docs); err != nil {
		return err
	}
	return writeJSON(s.IndexPath(), idx)
}

// LoadIndex reads both index files and checks that they agree.
func (s *Store) LoadIndex() (index.InvertedIndex, index.DocumentMap, error) {
	var idx index.InvertedIndex
	if err := readJSON(s.IndexPath(), &idx); err != nil {
		return nil, nil, err
	}
	var docs index.DocumentMap
	if err := readJSON(s.DocumentMapPath(), &docs); err != nil {
		return nil, nil, err
	}
	if idx == nil {
		idx = make(index.InvertedIndex)
	}
	if docs == nil {
		docs = make(index.DocumentMap)
	}
	if err := idx.Validate(docs); err != nil {
		return nil, nil, &PersistenceError{Op: "load", Path: s.IndexPath(), Err: err}
	}
	return idx, docs, nil
}

func writeJSON(path string, v any) (err error) {
	defer func() {
		if err != nil {
			err = &PersistenceError{Op: "save", Path: path, Err: err}
		}
	}()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return err
	}
	committed = true
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return &PersistenceError{Op: "load", Path: path, Err: err}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &PersistenceError{Op: "load", Path: path, Err: err}
	}
	return nil
}
