// Package remote lists and uploads objects on an S3 compatible store
package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"path"
	"strings"

	"github.com/lewtec/barber/internal/domain"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Client talks to the bucket named by the first element of every path
type Client struct {
	cl     *minio.Client
	logger *log.Logger
}

// Options tunes how the client connects
type Options struct {
	// Region skips the bucket location lookup when set
	Region string
	Logger *log.Logger
}

// New connects to the endpoint of alias
func New(a Alias, opts Options) (*Client, error) {
	endpoint, err := a.Endpoint()
	if err != nil {
		return nil, err
	}
	cl, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(a.AccessKey, a.SecretKey, ""),
		Secure: a.Secure(),
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: while creating client for '%s': %w", domain.ErrNetwork, endpoint, err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Client{cl: cl, logger: logger}, nil
}

// Dial resolves alias and connects to it
func Dial(alias, configPath string, opts Options) (*Client, error) {
	a, err := ResolveAlias(alias, configPath)
	if err != nil {
		return nil, err
	}
	return New(a, opts)
}

// SplitBucket splits "bucket/ham/spam" into "bucket" and "ham/spam"
func SplitBucket(p string) (bucket, key string) {
	p = strings.Trim(path.Clean("/"+p), "/")
	bucket, key, _ = strings.Cut(p, "/")
	return bucket, key
}

// List returns every object key under p, relative to the bucket
func (c *Client) List(ctx context.Context, p string) ([]string, error) {
	bucket, prefix := SplitBucket(p)
	var keys []string
	for obj := range c.cl.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("%w: while listing '%s': %w", domain.ErrNetwork, p, obj.Err)
		}
		keys = append(keys, obj.Key)
	}
	c.logger.Printf("remote: %d objects under '%s'", len(keys), p)
	return keys, nil
}

// Send uploads content as the JPEG object at destination. Only .jpg and
// .jpeg names are accepted.
func (c *Client) Send(ctx context.Context, content []byte, destination string) error {
	ext := path.Ext(destination)
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg":
	default:
		return fmt.Errorf("%w: file extension '%s' of '%s'", domain.ErrUnsupportedFormat, ext, destination)
	}
	bucket, key := SplitBucket(destination)
	if key == "" {
		return fmt.Errorf("%w: '%s' names no object", domain.ErrUnsupportedFormat, destination)
	}
	_, err := c.cl.PutObject(ctx, bucket, key, bytes.NewReader(content), int64(len(content)), minio.PutObjectOptions{
		ContentType: "image/jpeg",
	})
	if err != nil {
		return fmt.Errorf("%w: while uploading '%s': %w", domain.ErrNetwork, destination, err)
	}
	c.logger.Printf("remote: uploaded '%s' (%d bytes)", destination, len(content))
	return nil
}
