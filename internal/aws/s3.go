package aws

import (
	"context"
	"fmt"
	"path"
	"time"
)

// SnapshotUploader uploads catalog snapshot documents to S3.
type SnapshotUploader struct {
	client Client
	bucket string
	prefix string
}

// NewSnapshotUploader creates an uploader writing under bucket/prefix.
func NewSnapshotUploader(client Client, bucket, prefix string) *SnapshotUploader {
	return &SnapshotUploader{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}
}

// Upload writes one snapshot document under a timestamped key and returns
// its S3 URI.
func (u *SnapshotUploader) Upload(ctx context.Context, data []byte, takenAt time.Time) (string, error) {
	name := fmt.Sprintf("catalog-%s.yaml", takenAt.UTC().Format("20060102T150405Z"))
	key := path.Join(u.prefix, name)

	if err := u.client.UploadToS3(ctx, u.bucket, key, data); err != nil {
		return "", fmt.Errorf("uploading snapshot: %w", err)
	}
	return fmt.Sprintf("s3://%s/%s", u.bucket, key), nil
}
