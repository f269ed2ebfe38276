package storage

import (
	"bytes"
	"context"
	"fmt"
	"jarvis/app/config"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/samber/do"
)

type StoredObject struct {
	ID   string
	Name string
}

type Client struct {
	cfg *config.Config
	s3  *s3.Client
}

func NewClient(di *do.Injector) (*Client, error) {
	ctx := do.MustInvoke[context.Context](di)
	cfg := do.MustInvoke[*config.Config](di)

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Storage.Region),
	}
	if cfg.Storage.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.Storage.AccessKeyID, cfg.Storage.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Client{
		cfg: cfg,
		s3:  client,
	}, nil
}

// Upload persists raw audio bytes for out-of-band processing. A failure here
// is fatal to the ingest event and must reach the caller.
func (c *Client) Upload(ctx context.Context, data []byte, filename, contentType string) (*StoredObject, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(c.cfg.Storage.Bucket),
		Key:    aws.String(filename),
		Body:   bytes.NewReader(data),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	out, err := c.s3.PutObject(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to upload %q to bucket %q: %w", filename, c.cfg.Storage.Bucket, err)
	}

	return &StoredObject{
		ID:   strings.Trim(aws.ToString(out.ETag), `"`),
		Name: filename,
	}, nil
}
