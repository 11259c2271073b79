// Package objectstore reads datasets from, and uploads reports to, an
// S3-compatible bucket.
package objectstore

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"circularity-gap/adapters/exiobase"
	"circularity-gap/core/types"
	"circularity-gap/internal/config"
	cgerrors "circularity-gap/internal/errors"
	"circularity-gap/internal/logging"
)

// Client is a bucket-scoped MinIO client
type Client struct {
	client *minio.Client
	bucket string
	region string

	initOnce sync.Once
	initErr  error
}

// NewClient validates the storage settings and builds a client.
// No request is made until the bucket is first used.
func NewClient(cfg config.StorageConfig) (*Client, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, cgerrors.Config("s3 endpoint is required", nil)
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, cgerrors.Config("s3 access key and secret key are required", nil)
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, cgerrors.Config("s3 bucket is required", nil)
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, cgerrors.Config("init s3 client", err)
	}

	return &Client{client: client, bucket: bucket, region: region}, nil
}

// Bucket returns the bucket name
func (c *Client) Bucket() string { return c.bucket }

func (c *Client) ensureBucket(ctx context.Context) error {
	c.initOnce.Do(func() {
		exists, err := c.client.BucketExists(ctx, c.bucket)
		if err != nil {
			c.initErr = err
			return
		}
		if exists {
			return
		}
		c.initErr = c.client.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{Region: c.region})
	})
	return c.initErr
}

// ObjectKey joins a prefix and a file name into a bucket key
func ObjectKey(prefix, name string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	name = strings.TrimLeft(strings.TrimSpace(name), "/")
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

// Provider reads dataset files stored under a key prefix
type Provider struct {
	client *Client
	prefix string
}

// NewProvider reads tables from prefix/<TABLE>.txt
func NewProvider(client *Client, prefix string) *Provider {
	return &Provider{client: client, prefix: prefix}
}

// Load fetches and parses one table
func (p *Provider) Load(ctx context.Context, name types.TableName) (*types.FlowTable, error) {
	key := ObjectKey(p.prefix, exiobase.FileName(string(name)))
	obj, err := p.get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	logging.FromContext(ctx).Debug("reading table object", zap.String("bucket", p.client.bucket), zap.String("key", key))
	return exiobase.ParseTable(name, obj)
}

// LoadPopulation fetches and parses POP.txt
func (p *Provider) LoadPopulation(ctx context.Context) (*types.PopulationVector, error) {
	obj, err := p.get(ctx, ObjectKey(p.prefix, exiobase.FileName(types.PopulationFile)))
	if err != nil {
		return nil, err
	}
	defer obj.Close()
	return exiobase.ParsePopulation(obj)
}

// Source is the s3:// URL of the prefix
func (p *Provider) Source() string {
	return "s3://" + ObjectKey(p.client.bucket, p.prefix)
}

func (p *Provider) get(ctx context.Context, key string) (*minio.Object, error) {
	obj, err := p.client.client.GetObject(ctx, p.client.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, wrapS3(key, err)
	}
	// GetObject is lazy; Stat surfaces missing keys before parsing starts
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, wrapS3(key, err)
	}
	return obj, nil
}

func wrapS3(key string, err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" {
		return cgerrors.Wrapf(cgerrors.TypeInput, err, "object not found: %s", key).WithContext("key", key)
	}
	return cgerrors.Wrapf(cgerrors.TypeInput, err, "fetch %s", key).WithContext("key", key)
}

// Uploader copies written report files into the bucket
type Uploader struct {
	client *Client
	prefix string
}

// NewUploader stores files under prefix/<run id>/<file name>
func NewUploader(client *Client, prefix string) *Uploader {
	return &Uploader{client: client, prefix: prefix}
}

// Upload puts a local file into the bucket and returns its s3:// URL
func (u *Uploader) Upload(ctx context.Context, runID, localPath string) (string, error) {
	if strings.TrimSpace(runID) == "" {
		return "", cgerrors.Input("run id is required")
	}
	if err := u.client.ensureBucket(ctx); err != nil {
		return "", cgerrors.Wrapf(cgerrors.TypeInput, err, "ensure bucket %s", u.client.bucket)
	}

	key := ObjectKey(ObjectKey(u.prefix, runID), filepath.Base(localPath))
	info, err := u.client.client.FPutObject(ctx, u.client.bucket, key, localPath, minio.PutObjectOptions{
		ContentType: ContentType(localPath),
	})
	if err != nil {
		return "", cgerrors.Wrapf(cgerrors.TypeInput, err, "upload %s to %s", localPath, u.client.bucket).WithContext("key", key)
	}

	logging.FromContext(ctx).Info("report uploaded",
		zap.String("bucket", u.client.bucket),
		zap.String("key", key),
		zap.Int64("bytes", info.Size),
	)
	return fmt.Sprintf("s3://%s/%s", u.client.bucket, key), nil
}

// ContentType picks the MIME type of a report file
func ContentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".png":
		return "image/png"
	case ".json":
		return "application/json"
	case ".txt":
		return "text/plain"
	}
	return "application/octet-stream"
}
