package s3

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Downloader lists and reads log objects from S3
type Downloader struct {
	client *Client
}

// NewDownloader creates a new downloader
func NewDownloader(client *Client) *Downloader {
	return &Downloader{client: client}
}

// ListKeys returns the keys under prefix in lexicographic order, following
// every result page. Folder placeholder keys ending in "/" are skipped.
func (d *Downloader) ListKeys(ctx context.Context, bucket, prefix string) ([]string, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
	}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}

	var keys []string
	paginator := s3.NewListObjectsV2Paginator(d.client.s3Client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: bucket=%s, prefix=%s: %w", bucket, prefix, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if key == "" || strings.HasSuffix(key, "/") {
				continue
			}
			keys = append(keys, key)
		}
	}

	slices.Sort(keys)
	return keys, nil
}

// Open returns the body of an object. The caller must close it.
// Retries are handled automatically by the SDK client based on its retry configuration.
func (d *Downloader) Open(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	out, err := d.client.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object: bucket=%s, key=%s: %w", bucket, key, err)
	}
	return out.Body, nil
}
