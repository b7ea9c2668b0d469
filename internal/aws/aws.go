package aws

import "context"

// Client defines the AWS operations the catalog publishing commands need.
type Client interface {
	VerifyCredentials(ctx context.Context) (*CallerIdentity, error)
	CheckBucketAccess(ctx context.Context, bucket string) error
	UploadToS3(ctx context.Context, bucket, key string, data []byte) error
	EnsureGlueDatabase(ctx context.Context, name string) error
	PutGlueTable(ctx context.Context, database string, table GlueTable) error
}

// CallerIdentity holds AWS STS caller identity information.
type CallerIdentity struct {
	Account string
	ARN     string
	UserID  string
}
