// Package references stores and maintains the per-brand reference
// screenshots that candidate pages are compared against.
package references

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/amosWeiskopf/phishsmith/internal/models"
	"github.com/amosWeiskopf/phishsmith/pkg/utils"
)

// ErrNotFound is returned when a reference image does not exist.
var ErrNotFound = errors.New("reference not found")

// Store persists encoded reference images keyed by brand and variant.
type Store interface {
	Get(ctx context.Context, shortName string, variant models.Variant) ([]byte, error)
	Put(ctx context.Context, shortName string, variant models.Variant, data []byte) error
	Exists(ctx context.Context, shortName string, variant models.Variant) (bool, error)
}

// Key is the object name of a reference image, "<short>_<variant>.png".
func Key(shortName string, variant models.Variant) string {
	return utils.SanitizeFilename(fmt.Sprintf("%s_%s.png", shortName, variant))
}

// FileStore keeps references as PNG files in one directory.
type FileStore struct {
	dir string
}

// NewFileStore creates a new FileStore rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Path returns the file path of a reference image.
func (s *FileStore) Path(shortName string, variant models.Variant) string {
	return filepath.Join(s.dir, Key(shortName, variant))
}

func (s *FileStore) Get(_ context.Context, shortName string, variant models.Variant) ([]byte, error) {
	data, err := os.ReadFile(s.Path(shortName, variant))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

func (s *FileStore) Put(_ context.Context, shortName string, variant models.Variant, data []byte) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(s.Path(shortName, variant), data, 0644)
}

func (s *FileStore) Exists(_ context.Context, shortName string, variant models.Variant) (bool, error) {
	_, err := os.Stat(s.Path(shortName, variant))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}
