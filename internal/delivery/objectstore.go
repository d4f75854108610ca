// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

package delivery

import (
	"context"
	"fmt"
	"path"
	"strconv"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/one2talk/votekeeper/internal/logging"
)

// ObjectStoreConfig holds the settings of an S3 compatible bucket. For
// Cloudflare R2 set AccountID and leave Endpoint empty.
type ObjectStoreConfig struct {
	Endpoint        string
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	// Prefix is prepended to object keys, e.g. "backups/".
	Prefix string
	Region string
	UseSSL bool
}

// Enabled reports whether enough is set to build a client.
func (c ObjectStoreConfig) Enabled() bool {
	return (c.Endpoint != "" || c.AccountID != "") && c.AccessKeyID != "" && c.SecretAccessKey != "" && c.Bucket != ""
}

func (c ObjectStoreConfig) endpoint() (string, bool) {
	if c.Endpoint != "" {
		return c.Endpoint, c.UseSSL
	}
	return c.AccountID + ".r2.cloudflarestorage.com", true
}

// ObjectStore uploads archives to a bucket.
type ObjectStore struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewObjectStore connects to the bucket, creating it when absent.
func NewObjectStore(ctx context.Context, cfg ObjectStoreConfig) (*ObjectStore, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("%w: object store endpoint, keys and bucket are required", ErrNotConfigured)
	}
	endpoint, secure := cfg.endpoint()
	region := cfg.Region
	if region == "" {
		region = "auto"
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: secure,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("create object store client: %w", err)
	}
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %q: %w", cfg.Bucket, err)
	}
	if !exists {
		logging.Infof("delivery: bucket %s not found, creating it", cfg.Bucket)
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return nil, fmt.Errorf("create bucket %q: %w", cfg.Bucket, err)
		}
	}
	return &ObjectStore{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// Name implements Sink.
func (o *ObjectStore) Name() string { return "object-store" }

// Key is the object key an archive is stored under.
func (o *ObjectStore) Key(r Report) string { return path.Join(o.prefix, r.Name()) }

// Deliver uploads the archive file.
func (o *ObjectStore) Deliver(ctx context.Context, r Report) error {
	key := o.Key(r)
	meta := map[string]string{"assets": strconv.Itoa(r.AssetCount)}
	if total := r.Counts.Total(); total > 0 {
		meta["rows"] = strconv.FormatInt(total, 10)
	}
	info, err := o.client.FPutObject(ctx, o.bucket, key, r.ArchivePath, minio.PutObjectOptions{
		ContentType:  "application/zip",
		UserMetadata: meta,
	})
	if err != nil {
		return fmt.Errorf("%w: upload %s: %v", ErrRejected, key, err)
	}
	logging.Infof("delivery: stored %s in bucket %s (%d bytes, etag %s)", key, o.bucket, info.Size, info.ETag)
	return nil
}
