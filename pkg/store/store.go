// Package store persists analysis outcomes as a JSON file or in SQLite.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/amosWeiskopf/phishsmith/internal/models"
)

// Store saves and reloads analysis outcomes.
type Store interface {
	Save(ctx context.Context, outcomes []models.Outcome) error
	Load(ctx context.Context) ([]models.Outcome, error)
	Close() error
}

// Open returns the store named by kind: "file" or "database".
func Open(kind, path string) (Store, error) {
	switch kind {
	case "", "file":
		return NewFileStore(path), nil
	case "database":
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", kind)
	}
}

// FileStore writes every outcome of a run as one indented JSON array.
type FileStore struct {
	path string
}

// NewFileStore creates a new FileStore writing to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Save replaces the file contents with outcomes.
func (s *FileStore) Save(_ context.Context, outcomes []models.Outcome) error {
	if outcomes == nil {
		outcomes = []models.Outcome{}
	}
	data, err := json.MarshalIndent(outcomes, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	return nil
}

// Load reads outcomes back. A missing file yields no outcomes.
func (s *FileStore) Load(_ context.Context) ([]models.Outcome, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read results: %w", err)
	}
	var outcomes []models.Outcome
	if err := json.Unmarshal(data, &outcomes); err != nil {
		return nil, fmt.Errorf("failed to parse results: %w", err)
	}
	return outcomes, nil
}

func (s *FileStore) Close() error { return nil }
