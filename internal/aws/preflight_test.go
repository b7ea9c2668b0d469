package aws

import (
	"context"
	"errors"
	"testing"
)

func TestRunPreflight_NoBucket(t *testing.T) {
	mock := NewMockClient()

	result, err := RunPreflight(context.Background(), mock, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Identity == nil || result.Identity.Account != "123456789012" {
		t.Errorf("identity = %+v", result.Identity)
	}
	if result.BucketReachable {
		t.Error("no bucket was checked, reachable should be false")
	}
	if len(result.Errors) != 0 {
		t.Errorf("errors = %v, want none", result.Errors)
	}
}

func TestRunPreflight_BucketReachable(t *testing.T) {
	mock := NewMockClient()

	result, err := RunPreflight(context.Background(), mock, "my-bucket")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.BucketReachable {
		t.Error("bucket should be reachable")
	}
	if len(mock.CheckedBuckets) != 1 || mock.CheckedBuckets[0] != "my-bucket" {
		t.Errorf("checked buckets = %v", mock.CheckedBuckets)
	}
}

func TestRunPreflight_BucketUnreachable(t *testing.T) {
	mock := NewMockClient()
	mock.BucketErr = errors.New("403 forbidden")

	result, err := RunPreflight(context.Background(), mock, "my-bucket")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.BucketReachable {
		t.Error("bucket should not be reachable")
	}
	if len(result.Errors) != 1 {
		t.Errorf("errors = %v, want one", result.Errors)
	}
}

func TestRunPreflight_BadCredentials(t *testing.T) {
	mock := NewMockClient()
	mock.IdentityErr = errors.New("expired token")

	if _, err := RunPreflight(context.Background(), mock, ""); err == nil {
		t.Error("expected error when credentials fail")
	}
}
