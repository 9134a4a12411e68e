package objectstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Client reads whole objects from S3 into memory.
type Client struct {
	downloader *manager.Downloader
}

// New creates a Client over the given S3 API. *s3.Client satisfies
// manager.DownloadAPIClient.
func New(api manager.DownloadAPIClient) (*Client, error) {
	if api == nil {
		return nil, errors.New("objectstore: api must not be nil")
	}
	return &Client{downloader: manager.NewDownloader(api)}, nil
}

// GetObject downloads s3://bucket/key and returns its full body. No size limit
// is applied.
func (c *Client) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	if c.downloader == nil {
		return nil, errors.New("objectstore: client not initialized")
	}
	if strings.TrimSpace(bucket) == "" || key == "" {
		return nil, errors.New("objectstore: bucket and key are required")
	}

	buf := manager.NewWriteAtBuffer(nil)
	n, err := c.downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("objectstore: get s3://%s/%s: %w", bucket, key, err)
	}
	return buf.Bytes()[:n], nil
}
