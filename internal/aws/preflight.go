package aws

import (
	"context"
	"fmt"
)

// PreflightResult holds the outcome of a publishing pre-flight check.
type PreflightResult struct {
	Identity        *CallerIdentity
	BucketReachable bool
	Errors          []string
}

// RunPreflight verifies the caller's credentials and, when a bucket is
// configured, that the bucket accepts requests. Credential failure is an
// error; an unreachable bucket is recorded in the result so the caller can
// still publish to Glue.
func RunPreflight(ctx context.Context, client Client, bucket string) (*PreflightResult, error) {
	identity, err := client.VerifyCredentials(ctx)
	if err != nil {
		return nil, fmt.Errorf("verifying credentials: %w", err)
	}

	result := &PreflightResult{Identity: identity}
	if bucket == "" {
		return result, nil
	}

	if err := client.CheckBucketAccess(ctx, bucket); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("bucket %s: %v", bucket, err))
		return result, nil
	}
	result.BucketReachable = true
	return result, nil
}
