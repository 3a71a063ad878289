package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type S3ObjectStore struct {
	client     *s3.Client
	downloader *manager.Downloader
	uploader   *manager.Uploader
}

var _ ObjectStore = (*S3ObjectStore)(nil)

func NewS3ObjectStore(cfg S3ClientConfig) (*S3ObjectStore, error) {
	client, err := initializeS3Client(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize s3 client: %w", err)
	}

	return &S3ObjectStore{
		client:     client,
		downloader: manager.NewDownloader(client),
		uploader:   manager.NewUploader(client),
	}, nil
}

func (s *S3ObjectStore) iterObjects(ctx context.Context, bucket, prefix string) ObjectIterator {
	return func(yield func(obj Object, err error) bool) {
		paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
			Bucket: aws.String(bucket),
			Prefix: aws.String(prefix),
		})

		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				yield(Object{}, err)
				return
			}

			for _, obj := range page.Contents {
				if !yield(Object{Name: aws.ToString(obj.Key), Size: aws.ToInt64(obj.Size)}, nil) {
					return
				}
			}
		}
	}
}

func (s *S3ObjectStore) CreateBucket(ctx context.Context, bucket string) error {
	_, err := s.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(bucket),
	})
	if err != nil {
		var existErr *types.BucketAlreadyExists
		var ownedErr *types.BucketAlreadyOwnedByYou
		if errors.As(err, &existErr) || errors.As(err, &ownedErr) {
			slog.Info("Bucket already exists", "bucket", bucket)
			return nil
		}

		return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
	}

	slog.Info("Bucket created successfully", "bucket", bucket)

	return nil
}

func (s *S3ObjectStore) PutObject(ctx context.Context, bucket, key string, data io.Reader) error {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   data,
	})
	if err != nil {
		return fmt.Errorf("failed to upload object to s3://%s/%s: %w", bucket, key, err)
	}
	slog.Info("Object uploaded successfully", "bucket", bucket, "key", key)

	return nil
}

func (s *S3ObjectStore) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	headObj, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object size for s3://%s/%s: %w", bucket, key, err)
	}

	buffer := manager.NewWriteAtBuffer(make([]byte, 0, aws.ToInt64(headObj.ContentLength)))

	_, err = s.downloader.Download(ctx, buffer, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download object s3://%s/%s: %w", bucket, key, err)
	}

	return buffer.Bytes(), nil
}

func (s *S3ObjectStore) ListObjects(ctx context.Context, bucket, prefix string) ([]Object, error) {
	var objects []Object
	for obj, err := range s.iterObjects(ctx, bucket, prefix) {
		if err != nil {
			return nil, fmt.Errorf("failed to list objects in bucket %s with prefix %s: %w", bucket, prefix, err)
		}
		objects = append(objects, obj)
	}
	return objects, nil
}

func (s *S3ObjectStore) DeleteObjects(ctx context.Context, bucket string, prefix string) error {
	for obj, err := range s.iterObjects(ctx, bucket, prefix) {
		if err != nil {
			return fmt.Errorf("failed to iterate objects in bucket %s with prefix %s: %w", bucket, prefix, err)
		}

		_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(obj.Name),
		})
		if err != nil {
			return fmt.Errorf("failed to delete objects in bucket %s with prefix %s: %w", bucket, prefix, err)
		}
	}

	slog.Info("Objects deleted successfully", "bucket", bucket, "prefix", prefix)

	return nil
}
