package storage

import (
	"context"
	"io"
)

type Object struct {
	Name string
	Size int64
}

type ObjectIterator func(yield func(obj Object, err error) bool)

type ObjectStore interface {
	CreateBucket(ctx context.Context, bucket string) error

	PutObject(ctx context.Context, bucket, key string, data io.Reader) error

	GetObject(ctx context.Context, bucket, key string) ([]byte, error)

	ListObjects(ctx context.Context, bucket, prefix string) ([]Object, error)

	// DeleteObjects removes every object whose key starts with prefix.
	DeleteObjects(ctx context.Context, bucket, prefix string) error
}
