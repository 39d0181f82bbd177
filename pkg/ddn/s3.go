package ddn

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/ddn-qa/robotel/pkg/config"
	"github.com/sirupsen/logrus"
)

// Object is one entry from a bucket listing.
type Object struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// ObjectStore manages per-tenant S3 clients against the EXAScaler
// S3-compatible object API.
type ObjectStore struct {
	log     logrus.FieldLogger
	cfg     *config.S3Config
	clients map[string]*s3.Client
}

// NewObjectStore creates an S3 keyword surface. Clients are created lazily
// per tenant and cached for the run.
func NewObjectStore(log logrus.FieldLogger, cfg *config.S3Config) *ObjectStore {
	return &ObjectStore{
		log:     log.WithField("component", "s3"),
		cfg:     cfg,
		clients: make(map[string]*s3.Client, 4),
	}
}

// CreateClient builds and caches an S3 client for a tenant. Empty credentials
// fall back to the configured defaults.
func (o *ObjectStore) CreateClient(tenant, accessKey, secretKey string) *s3.Client {
	if accessKey == "" {
		accessKey = o.cfg.AccessKeyID
	}

	if secretKey == "" {
		secretKey = o.cfg.SecretAccessKey
	}

	client := s3.New(s3.Options{}, func(opt *s3.Options) {
		opt.Region = o.cfg.Region

		if o.cfg.Endpoint != "" {
			opt.BaseEndpoint = aws.String(o.cfg.Endpoint)
		}

		opt.UsePathStyle = o.cfg.ForcePathStyle

		if accessKey != "" && secretKey != "" {
			opt.Credentials = credentials.NewStaticCredentialsProvider(
				accessKey, secretKey, "",
			)
		}
	})

	o.clients[tenant] = client

	o.log.WithField("tenant", tenant).Debug("Created S3 client")

	return client
}

// clientFor returns the cached client for a tenant, creating one with the
// default credentials when missing.
func (o *ObjectStore) clientFor(tenant string) *s3.Client {
	if client, ok := o.clients[tenant]; ok {
		return client
	}

	return o.CreateClient(tenant, "", "")
}

// CreateBucket creates a bucket for a tenant and returns its location.
func (o *ObjectStore) CreateBucket(
	ctx context.Context, tenant, bucket, locationConstraint string,
) (string, error) {
	input := &s3.CreateBucketInput{
		Bucket: aws.String(bucket),
	}

	if locationConstraint != "" {
		input.CreateBucketConfiguration = &s3types.CreateBucketConfiguration{
			LocationConstraint: s3types.BucketLocationConstraint(locationConstraint),
		}
	}

	out, err := o.clientFor(tenant).CreateBucket(ctx, input)
	if err != nil {
		return "", fmt.Errorf("creating bucket %s: %w", bucket, err)
	}

	return aws.ToString(out.Location), nil
}

// ListObjects lists the objects in a tenant's bucket. The tenant's client
// must already exist; listing does not implicitly create credentials.
func (o *ObjectStore) ListObjects(ctx context.Context, tenant, bucket string) ([]Object, error) {
	client, ok := o.clients[tenant]
	if !ok {
		return nil, fmt.Errorf("no S3 client created for tenant %q", tenant)
	}

	out, err := client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("listing objects in %s: %w", bucket, err)
	}

	objects := make([]Object, 0, len(out.Contents))

	for _, item := range out.Contents {
		objects = append(objects, Object{
			Key:          aws.ToString(item.Key),
			Size:         aws.ToInt64(item.Size),
			LastModified: aws.ToTime(item.LastModified),
		})
	}

	return objects, nil
}

// PutObject writes one object into a tenant's bucket.
func (o *ObjectStore) PutObject(
	ctx context.Context, tenant, bucket, key string, body []byte, contentType string,
) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := o.clientFor(tenant).PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("putting object %s/%s: %w", bucket, key, err)
	}

	return nil
}
