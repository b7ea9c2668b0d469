package aws

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	gluetypes "github.com/aws/aws-sdk-go-v2/service/glue/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// RealClient implements Client using the AWS SDK v2.
type RealClient struct {
	cfg        aws.Config
	stsClient  *sts.Client
	s3Client   *s3.Client
	glueClient *glue.Client
}

// NewRealClient creates a new AWS client with the given profile and region.
func NewRealClient(ctx context.Context, profile, region string) (*RealClient, error) {
	var opts []func(*awsconfig.LoadOptions) error

	if profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return &RealClient{
		cfg:        cfg,
		stsClient:  sts.NewFromConfig(cfg),
		s3Client:   s3.NewFromConfig(cfg),
		glueClient: glue.NewFromConfig(cfg),
	}, nil
}

// VerifyCredentials checks the current AWS credentials using STS.
func (c *RealClient) VerifyCredentials(ctx context.Context) (*CallerIdentity, error) {
	out, err := c.stsClient.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, fmt.Errorf("getting caller identity: %w", err)
	}

	return &CallerIdentity{
		Account: aws.ToString(out.Account),
		ARN:     aws.ToString(out.Arn),
		UserID:  aws.ToString(out.UserId),
	}, nil
}

// CheckBucketAccess checks that the bucket exists and accepts requests.
func (c *RealClient) CheckBucketAccess(ctx context.Context, bucket string) error {
	_, err := c.s3Client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err != nil {
		return fmt.Errorf("checking bucket %s: %w", bucket, err)
	}
	return nil
}

// UploadToS3 uploads data bytes to an S3 bucket.
func (c *RealClient) UploadToS3(ctx context.Context, bucket, key string, data []byte) error {
	_, err := c.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("uploading to s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}

// EnsureGlueDatabase creates the Glue database if it does not exist yet.
func (c *RealClient) EnsureGlueDatabase(ctx context.Context, name string) error {
	_, err := c.glueClient.GetDatabase(ctx, &glue.GetDatabaseInput{Name: aws.String(name)})
	if err == nil {
		return nil
	}
	var notFound *gluetypes.EntityNotFoundException
	if !errors.As(err, &notFound) {
		return fmt.Errorf("getting Glue database %s: %w", name, err)
	}

	_, err = c.glueClient.CreateDatabase(ctx, &glue.CreateDatabaseInput{
		DatabaseInput: &gluetypes.DatabaseInput{Name: aws.String(name)},
	})
	if err != nil {
		return fmt.Errorf("creating Glue database %s: %w", name, err)
	}
	return nil
}

// PutGlueTable creates or replaces one table in a Glue database.
func (c *RealClient) PutGlueTable(ctx context.Context, database string, table GlueTable) error {
	input := &gluetypes.TableInput{
		Name:              aws.String(table.Name),
		Parameters:        table.Parameters,
		StorageDescriptor: &gluetypes.StorageDescriptor{},
	}
	for _, col := range table.Columns {
		input.StorageDescriptor.Columns = append(input.StorageDescriptor.Columns,
			gluetypes.Column{Name: aws.String(col.Name), Type: aws.String(col.Type)})
	}

	_, err := c.glueClient.CreateTable(ctx, &glue.CreateTableInput{
		DatabaseName: aws.String(database),
		TableInput:   input,
	})
	if err == nil {
		return nil
	}
	var exists *gluetypes.AlreadyExistsException
	if !errors.As(err, &exists) {
		return fmt.Errorf("creating Glue table %s: %w", table.Name, err)
	}

	_, err = c.glueClient.UpdateTable(ctx, &glue.UpdateTableInput{
		DatabaseName: aws.String(database),
		TableInput:   input,
	})
	if err != nil {
		return fmt.Errorf("updating Glue table %s: %w", table.Name, err)
	}
	return nil
}
