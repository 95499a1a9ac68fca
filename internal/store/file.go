package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/simplepos/pos-backend/internal/models"
)

// FileStore persists the dataset as one JSON document. Save writes to a temp
// file in the same directory and renames it over the target, so a concurrent
// Load never observes a partially written snapshot.
type FileStore struct{ path string }

func NewFileStore(path string) *FileStore { return &FileStore{path: path} }

func (s *FileStore) Load() (models.Dataset, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return models.Dataset{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var d models.Dataset
	if err := json.Unmarshal(b, &d); err != nil {
		return models.Dataset{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if d.Transactions == nil {
		d.Transactions = []models.Transaction{}
	}
	return d, nil
}

func (s *FileStore) Save(d models.Dataset) error {
	// Compact marshaling passes the raw merchant document through untouched;
	// indentation would reformat its whitespace and break the verbatim
	// contract.
	b, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".pos-*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
