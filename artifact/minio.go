package artifact

import (
	"context"
	"io"

	"github.com/minio/minio-go/v7"
)

// MinIOStore serves artifacts out of an object-store bucket. Location tokens
// are object names.
type MinIOStore struct {
	client *minio.Client
	bucket string
}

func NewMinIOStore(client *minio.Client, bucket string) *MinIOStore {
	return &MinIOStore{
		client: client,
		bucket: bucket,
	}
}

func (s *MinIOStore) Open(ctx context.Context, location string) (io.ReadCloser, int64, error) {
	info, err := s.client.StatObject(ctx, s.bucket, location, minio.StatObjectOptions{})
	if err != nil {
		if resp := minio.ToErrorResponse(err); resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" {
			return nil, 0, ErrNotFound
		}
		return nil, 0, err
	}

	obj, err := s.client.GetObject(ctx, s.bucket, location, minio.GetObjectOptions{})
	if err != nil {
		return nil, 0, err
	}
	return obj, info.Size, nil
}
