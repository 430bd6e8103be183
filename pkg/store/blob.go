package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/harun/chatrelay/internal/tracing"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

// DirBlobStore writes blobs below a local directory.
type DirBlobStore struct {
	root   string
	logger zerolog.Logger
}

// NewDirBlobStore resolves root to an absolute path.
func NewDirBlobStore(root string, logger zerolog.Logger) (*DirBlobStore, error) {
	if root == "" {
		return nil, errors.New("blob directory is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve blob directory: %w", err)
	}
	return &DirBlobStore{
		root:   abs,
		logger: logger.With().Str("component", "dir_blob_store").Logger(),
	}, nil
}

// Put writes data at root/path and returns a file:// locator.
func (b *DirBlobStore) Put(ctx context.Context, p string, data []byte) (string, error) {
	if err := validatePath(p); err != nil {
		return "", storeErr("dir", "put", p, err)
	}
	if err := ctx.Err(); err != nil {
		return "", storeErr("dir", "put", p, err)
	}

	full := filepath.Join(b.root, filepath.FromSlash(p))
	if err := writeFileAtomic(full, data); err != nil {
		return "", storeErr("dir", "put", p, err)
	}

	b.logger.Debug().Str("path", full).Int("bytes", len(data)).Msg("Blob written")
	return "file://" + filepath.ToSlash(full), nil
}

// S3API is the subset of the S3 client the blob store uses.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3BlobStore writes blobs as objects under an optional key prefix.
type S3BlobStore struct {
	client S3API
	bucket string
	prefix string
	logger zerolog.Logger
}

// NewS3BlobStore creates a blob store over an existing S3 client.
func NewS3BlobStore(client S3API, bucket, prefix string, logger zerolog.Logger) (*S3BlobStore, error) {
	if client == nil {
		return nil, errors.New("s3 client is required")
	}
	if bucket == "" {
		return nil, errors.New("bucket is required")
	}
	return &S3BlobStore{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		logger: logger.With().Str("component", "s3_blob_store").Logger(),
	}, nil
}

// NewS3BlobStoreFromConfig builds the S3 client from an AWS config.
func NewS3BlobStoreFromConfig(awsCfg aws.Config, bucket, prefix string, logger zerolog.Logger) (*S3BlobStore, error) {
	return NewS3BlobStore(s3.NewFromConfig(awsCfg), bucket, prefix, logger)
}

// Put uploads data and returns an s3://bucket/key locator.
func (b *S3BlobStore) Put(ctx context.Context, p string, data []byte) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "chatrelay.store", "blob.put",
		attribute.String("store", "s3"),
		attribute.String("bucket", b.bucket),
		attribute.String("path", p),
	)
	defer span.End()

	if err := validatePath(p); err != nil {
		tracing.FailSpan(span, err)
		return "", storeErr("s3", "put", p, err)
	}

	key := p
	if b.prefix != "" {
		key = path.Join(b.prefix, p)
	}

	contentType := mime.TypeByExtension(path.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if _, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	}); err != nil {
		tracing.FailSpan(span, err)
		return "", storeErr("s3", "put", key, err)
	}

	b.logger.Debug().Str("bucket", b.bucket).Str("key", key).Int("bytes", len(data)).Msg("Blob uploaded")
	return fmt.Sprintf("s3://%s/%s", b.bucket, key), nil
}
