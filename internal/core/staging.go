package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var ErrInvalidFilename = errors.New("invalid upload filename")

// UploadStager writes uploads into a shared directory so they can be loaded
// from disk. Files are keyed by the client filename only, so two concurrent
// uploads with the same name will overwrite each other.
type UploadStager struct {
	dir string
}

func NewUploadStager(dir string) (*UploadStager, error) {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create upload directory %s: %w", dir, err)
	}
	return &UploadStager{dir: dir}, nil
}

func (s *UploadStager) Dir() string {
	return s.dir
}

func (s *UploadStager) Stage(filename string, data []byte) (string, error) {
	name := filepath.Base(filepath.Clean("/" + filename))
	if name == "/" || name == "." {
		return "", fmt.Errorf("%w %q", ErrInvalidFilename, filename)
	}

	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to stage upload %s: %w", path, err)
	}
	return path, nil
}

func (s *UploadStager) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove staged upload %s: %w", path, err)
	}
	return nil
}
