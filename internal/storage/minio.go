package storage

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"objectvault/internal/config"
)

// minioProvider implements Provider against any S3-compatible endpoint
// (AWS S3, MinIO, and S3 API fronts). It is safe for concurrent use by
// multiple goroutines.
type minioProvider struct {
	client *minio.Client
}

// NewMinIO creates the S3-compatible storage provider.
// Endpoint and credentials are required: presigned URLs are computed with the
// account keys, so their absence is a construction-time error, never a
// deferred URL failure.
func NewMinIO(cfg config.S3Config) (Provider, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("s3 credentials are required")
	}

	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}

	return &minioProvider{client: cli}, nil
}

func (p *minioProvider) Name() string { return "s3" }

func (p *minioProvider) Object(bucket, name string) ObjectFile {
	return &minioObject{client: p.client, bucket: bucket, name: name}
}

// SignedURL presigns a single-method request against the object using the
// account credentials.
func (p *minioProvider) SignedURL(ctx context.Context, bucket, name string, req SignedURLRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	u, err := p.client.Presign(ctx, req.Method, bucket, name, req.ExpiresIn, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign %s %s/%s: %w", req.Method, bucket, name, err)
	}
	return u.String(), nil
}

func (p *minioProvider) ParsePath(path string) (string, string, error) {
	return ParseObjectPath(path)
}

// minioObject is the per-object handle for the S3-compatible backend.
type minioObject struct {
	client *minio.Client
	bucket string
	name   string
}

func (o *minioObject) Path() string {
	return "/" + o.bucket + "/" + o.name
}

// Exists collapses 404 responses (missing key or bucket) to false. Any other
// backend failure propagates.
func (o *minioObject) Exists(ctx context.Context) (bool, error) {
	_, err := o.client.StatObject(ctx, o.bucket, o.name, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).StatusCode == http.StatusNotFound {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", o.Path(), err)
	}
	return true, nil
}

func (o *minioObject) Metadata(ctx context.Context) (ObjectMetadata, error) {
	st, err := o.client.StatObject(ctx, o.bucket, o.name, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).StatusCode == http.StatusNotFound {
			return ObjectMetadata{}, ErrObjectNotFound
		}
		return ObjectMetadata{}, fmt.Errorf("stat %s: %w", o.Path(), err)
	}
	// User metadata keys arrive canonicalized from X-Amz-Meta headers; fold
	// them back to lower case so lookups behave the same on every backend.
	custom := make(map[string]string, len(st.UserMetadata))
	for k, v := range st.UserMetadata {
		custom[strings.ToLower(k)] = v
	}
	return ObjectMetadata{
		ContentType: st.ContentType,
		Size:        st.Size,
		Custom:      custom,
	}, nil
}

// SetMetadata merges patch into the current user metadata and writes the
// union back with a server-side copy onto itself. The read-modify-write is
// not serialized across callers.
func (o *minioObject) SetMetadata(ctx context.Context, patch map[string]string) error {
	current, err := o.Metadata(ctx)
	if err != nil {
		return err
	}
	_, err = o.client.CopyObject(ctx,
		minio.CopyDestOptions{
			Bucket:          o.bucket,
			Object:          o.name,
			UserMetadata:    mergeMetadata(current.Custom, patch),
			ReplaceMetadata: true,
		},
		minio.CopySrcOptions{
			Bucket: o.bucket,
			Object: o.name,
		},
	)
	if err != nil {
		return fmt.Errorf("set metadata on %s: %w", o.Path(), err)
	}
	return nil
}

// Download streams the object to sink; headers are derived from a fresh stat
// and always precede body bytes.
func (o *minioObject) Download(ctx context.Context, sink DownloadSink, cacheTTL time.Duration) error {
	meta, err := o.Metadata(ctx)
	if err != nil {
		return err
	}
	obj, err := o.client.GetObject(ctx, o.bucket, o.name, minio.GetObjectOptions{})
	if err != nil {
		return fmt.Errorf("get %s: %w", o.Path(), err)
	}
	return streamTo(sink, o.Path(), meta, cacheTTL, obj)
}

func (o *minioObject) Delete(ctx context.Context) error {
	if err := o.client.RemoveObject(ctx, o.bucket, o.name, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete %s: %w", o.Path(), err)
	}
	return nil
}
