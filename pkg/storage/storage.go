// Package storage uploads and deletes public blobs in S3-compatible buckets.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/CyrilCartoux/watch-pros-sub002/pkg/config"
	"github.com/CyrilCartoux/watch-pros-sub002/prometheus"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ObjectAPI is the subset of the S3 client used by Store
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// Store writes objects to buckets and builds their public URLs
type Store struct {
	client    ObjectAPI
	publicURL string
}

// New builds a Store on top of an S3 client
func New(client ObjectAPI, publicURL string) *Store {
	return &Store{client: client, publicURL: strings.TrimRight(publicURL, "/")}
}

// NewFromConfig creates an S3 client from storage configuration
func NewFromConfig(ctx context.Context, cfg config.StorageConfig) (*Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load storage config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return New(client, cfg.PublicURL), nil
}

// Upload stores data at bucket/path and returns its public URL
func (s *Store) Upload(ctx context.Context, bucket, path, contentType string, data []byte) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(path),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	prometheus.RecordStorageOperation(bucket, "upload", err)
	if err != nil {
		return "", fmt.Errorf("upload %s/%s: %w", bucket, path, err)
	}
	return s.PublicURL(bucket, path), nil
}

// Delete removes the given paths from bucket in one request
func (s *Store) Delete(ctx context.Context, bucket string, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}

	objects := make([]types.ObjectIdentifier, 0, len(paths))
	for _, p := range paths {
		objects = append(objects, types.ObjectIdentifier{Key: aws.String(p)})
	}

	out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(bucket),
		Delete: &types.Delete{Objects: objects, Quiet: aws.Bool(true)},
	})
	if err == nil && len(out.Errors) > 0 {
		first := out.Errors[0]
		err = fmt.Errorf("%d objects not deleted, first %s: %s", len(out.Errors), aws.ToString(first.Key), aws.ToString(first.Message))
	}
	prometheus.RecordStorageOperation(bucket, "delete", err)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", bucket, err)
	}
	return nil
}

// PublicURL returns the URL a stored object is served from
func (s *Store) PublicURL(bucket, path string) string {
	return s.publicURL + "/" + bucket + "/" + path
}

// PathFromURL recovers the object path of a URL produced by PublicURL.
// Only the part after "/{bucket}/" is used so URLs from another host still resolve.
func (s *Store) PathFromURL(bucket, url string) (string, bool) {
	return PathFromURL(bucket, url)
}

// PathFromURL extracts the object path following "/{bucket}/" in url
func PathFromURL(bucket, url string) (string, bool) {
	marker := "/" + bucket + "/"
	i := strings.LastIndex(url, marker)
	if i < 0 {
		return "", false
	}
	path := url[i+len(marker):]
	if q := strings.IndexAny(path, "?#"); q >= 0 {
		path = path[:q]
	}
	if path == "" {
		return "", false
	}
	return path, true
}
