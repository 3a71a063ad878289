package storage

import (
	"path/filepath"
	"strings"
)

// localStorageFullpath maps a bucket and object key onto a path under baseDir.
// Keys are slash separated and cannot climb out of the bucket.
func localStorageFullpath(baseDir, bucket, key string) string {
	clean := filepath.Clean("/" + filepath.FromSlash(key))
	return filepath.Join(baseDir, bucket, strings.TrimPrefix(clean, string(filepath.Separator)))
}
