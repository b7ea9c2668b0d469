package aws

import "context"

// MockClient is a test double for the Client interface.
type MockClient struct {
	Identity    *CallerIdentity
	IdentityErr error
	BucketErr   error
	UploadErr   error
	DatabaseErr error
	TableErr    error

	// Track calls
	UploadedObjects map[string][]byte      // bucket/key → data
	CheckedBuckets  []string
	GlueDatabases   []string
	GlueTables      map[string][]GlueTable // database → tables written
}

// NewMockClient creates a new MockClient with default values.
func NewMockClient() *MockClient {
	return &MockClient{
		Identity: &CallerIdentity{
			Account: "123456789012",
			ARN:     "arn:aws:iam::123456789012:user/test",
			UserID:  "AIDA12345",
		},
		UploadedObjects: make(map[string][]byte),
		GlueTables:      make(map[string][]GlueTable),
	}
}

func (m *MockClient) VerifyCredentials(_ context.Context) (*CallerIdentity, error) {
	return m.Identity, m.IdentityErr
}

func (m *MockClient) CheckBucketAccess(_ context.Context, bucket string) error {
	if m.BucketErr != nil {
		return m.BucketErr
	}
	m.CheckedBuckets = append(m.CheckedBuckets, bucket)
	return nil
}

func (m *MockClient) UploadToS3(_ context.Context, bucket, key string, data []byte) error {
	if m.UploadErr != nil {
		return m.UploadErr
	}
	fullKey := bucket + "/" + key
	m.UploadedObjects[fullKey] = data
	return nil
}

func (m *MockClient) EnsureGlueDatabase(_ context.Context, name string) error {
	if m.DatabaseErr != nil {
		return m.DatabaseErr
	}
	m.GlueDatabases = append(m.GlueDatabases, name)
	return nil
}

func (m *MockClient) PutGlueTable(_ context.Context, database string, table GlueTable) error {
	if m.TableErr != nil {
		return m.TableErr
	}
	m.GlueTables[database] = append(m.GlueTables[database], table)
	return nil
}
