// Package s3io moves split inputs and outputs between local disk and S3.
package s3io

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Client wraps the S3 API client used by the transfer managers.
type Client struct {
	s3 *s3.Client
}

// NewClient creates a client from the default AWS configuration chain
// (environment, shared config, instance role).
func NewClient(ctx context.Context) (*Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return &Client{s3: s3.NewFromConfig(cfg)}, nil
}

// NewClientWithConfig creates a client from a prepared AWS config.
func NewClientWithConfig(cfg aws.Config) *Client {
	return &Client{s3: s3.NewFromConfig(cfg)}
}

// ParseURI parses an S3 URI (s3://bucket/key) into bucket and key components.
func ParseURI(uri string) (bucket, key string, err error) {
	if !strings.HasPrefix(uri, "s3://") {
		return "", "", errors.New("invalid S3 URI: must start with s3://")
	}

	path := strings.TrimPrefix(uri, "s3://")
	parts := strings.SplitN(path, "/", 2)
	if len(parts) < 1 || parts[0] == "" {
		return "", "", errors.New("invalid S3 URI: missing bucket name")
	}

	bucket = parts[0]
	if len(parts) == 2 {
		key = parts[1]
	}

	return bucket, key, nil
}
