package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"objectvault/internal/config"
)

// gcsProvider implements Provider on Google Cloud Storage.
type gcsProvider struct {
	client *gcs.Client
}

// NewGCS creates the Google Cloud Storage provider.
// A service account credentials file is required: V4 URL signing needs the
// account's private key, so missing credentials fail here rather than on the
// first SignedURL call.
func NewGCS(ctx context.Context, cfg config.GCSConfig) (Provider, error) {
	if cfg.CredentialsFile == "" {
		return nil, fmt.Errorf("gcs credentials file is required")
	}

	cli, err := gcs.NewClient(ctx, option.WithCredentialsFile(cfg.CredentialsFile))
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}

	return &gcsProvider{client: cli}, nil
}

func (p *gcsProvider) Name() string { return "gcs" }

func (p *gcsProvider) Object(bucket, name string) ObjectFile {
	return &gcsObject{handle: p.client.Bucket(bucket).Object(name), bucket: bucket, name: name}
}

// SignedURL mints a V4 signed URL using the service account credentials the
// client was constructed with.
func (p *gcsProvider) SignedURL(ctx context.Context, bucket, name string, req SignedURLRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	u, err := p.client.Bucket(bucket).SignedURL(name, &gcs.SignedURLOptions{
		Scheme:  gcs.SigningSchemeV4,
		Method:  req.Method,
		Expires: time.Now().Add(req.ExpiresIn),
	})
	if err != nil {
		return "", fmt.Errorf("sign %s /%s/%s: %w", req.Method, bucket, name, err)
	}
	return u, nil
}

func (p *gcsProvider) ParsePath(path string) (string, string, error) {
	return ParseObjectPath(path)
}

// gcsObject is the per-object handle for the GCS backend.
type gcsObject struct {
	handle *gcs.ObjectHandle
	bucket string
	name   string
}

func (o *gcsObject) Path() string {
	return "/" + o.bucket + "/" + o.name
}

func (o *gcsObject) Exists(ctx context.Context) (bool, error) {
	_, err := o.handle.Attrs(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("attrs %s: %w", o.Path(), err)
	}
	return true, nil
}

func (o *gcsObject) Metadata(ctx context.Context) (ObjectMetadata, error) {
	attrs, err := o.handle.Attrs(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return ObjectMetadata{}, ErrObjectNotFound
		}
		return ObjectMetadata{}, fmt.Errorf("attrs %s: %w", o.Path(), err)
	}
	custom := make(map[string]string, len(attrs.Metadata))
	for k, v := range attrs.Metadata {
		custom[k] = v
	}
	return ObjectMetadata{
		ContentType: attrs.ContentType,
		Size:        attrs.Size,
		Custom:      custom,
	}, nil
}

// SetMetadata merges patch over the current metadata; the attrs update
// replaces the whole map, so the union is computed here first.
func (o *gcsObject) SetMetadata(ctx context.Context, patch map[string]string) error {
	current, err := o.Metadata(ctx)
	if err != nil {
		return err
	}
	_, err = o.handle.Update(ctx, gcs.ObjectAttrsToUpdate{
		Metadata: mergeMetadata(current.Custom, patch),
	})
	if err != nil {
		return fmt.Errorf("set metadata on %s: %w", o.Path(), err)
	}
	return nil
}

func (o *gcsObject) Download(ctx context.Context, sink DownloadSink, cacheTTL time.Duration) error {
	meta, err := o.Metadata(ctx)
	if err != nil {
		return err
	}
	r, err := o.handle.NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return ErrObjectNotFound
		}
		return fmt.Errorf("open %s: %w", o.Path(), err)
	}
	return streamTo(sink, o.Path(), meta, cacheTTL, r)
}

func (o *gcsObject) Delete(ctx context.Context) error {
	if err := o.handle.Delete(ctx); err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return ErrObjectNotFound
		}
		return fmt.Errorf("delete %s: %w", o.Path(), err)
	}
	return nil
}
