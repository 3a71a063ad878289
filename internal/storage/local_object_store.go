package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalObjectStore keeps objects as files under baseDir/<bucket>/<key>.
type LocalObjectStore struct {
	baseDir string
}

var _ ObjectStore = (*LocalObjectStore)(nil)

func NewLocalObjectStore(dir string) (*LocalObjectStore, error) {
	baseDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path for %s: %w", dir, err)
	}

	return &LocalObjectStore{baseDir: baseDir}, nil
}

func (s *LocalObjectStore) CreateBucket(ctx context.Context, bucket string) error {
	if err := os.MkdirAll(filepath.Join(s.baseDir, bucket), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
	}
	return nil
}

func (s *LocalObjectStore) PutObject(ctx context.Context, bucket, key string, data io.Reader) error {
	path := localStorageFullpath(s.baseDir, bucket, key)
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create directory for %s/%s: %w", bucket, key, err)
	}

	dst, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file %s/%s: %w", bucket, key, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, data); err != nil {
		return fmt.Errorf("failed to write file %s/%s: %w", bucket, key, err)
	}

	return nil
}

func (s *LocalObjectStore) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	data, err := os.ReadFile(localStorageFullpath(s.baseDir, bucket, key))
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s/%s: %w", bucket, key, err)
	}
	return data, nil
}

func (s *LocalObjectStore) iterObjects(bucket, prefix string) ObjectIterator {
	return func(yield func(obj Object, err error) bool) {
		root := filepath.Join(s.baseDir, bucket)

		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}

			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			key := filepath.ToSlash(rel)
			if !strings.HasPrefix(key, prefix) {
				return nil
			}

			info, err := d.Info()
			if err != nil {
				return err
			}
			if !yield(Object{Name: key, Size: info.Size()}, nil) {
				return fs.SkipAll
			}
			return nil
		})
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			yield(Object{}, err)
		}
	}
}

func (s *LocalObjectStore) ListObjects(ctx context.Context, bucket, prefix string) ([]Object, error) {
	var objects []Object
	for obj, err := range s.iterObjects(bucket, prefix) {
		if err != nil {
			return nil, fmt.Errorf("failed to list objects in %s/%s: %w", bucket, prefix, err)
		}
		objects = append(objects, obj)
	}
	return objects, nil
}

func (s *LocalObjectStore) DeleteObjects(ctx context.Context, bucket, prefix string) error {
	objects, err := s.ListObjects(ctx, bucket, prefix)
	if err != nil {
		return err
	}

	for _, obj := range objects {
		if err := os.Remove(localStorageFullpath(s.baseDir, bucket, obj.Name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete object %s/%s: %w", bucket, obj.Name, err)
		}
	}

	// Drop the directory left behind when the prefix names one.
	if dir := strings.TrimSuffix(prefix, "/"); dir != "" {
		path := localStorageFullpath(s.baseDir, bucket, dir)
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if err := os.RemoveAll(path); err != nil {
				return fmt.Errorf("failed to delete objects in %s/%s: %w", bucket, prefix, err)
			}
		}
	}

	return nil
}
