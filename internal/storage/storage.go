package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Package storage contains the provider-agnostic object storage abstraction:
// one ObjectFile/Provider contract implemented by S3-compatible, GCS, Azure
// Blob and local filesystem backends. Implementations stream object bytes and
// never buffer whole objects in memory.

// MetadataKeyVisibility is the reserved custom metadata key that classifies an
// object as "public" or "private". It gates the Cache-Control header written
// on download; anything other than "public" is served as private.
const MetadataKeyVisibility = "aclvisibility"

// ErrObjectNotFound indicates the requested object does not exist.
// The entity-resolution layer also returns it for malformed entity paths, so
// callers cannot probe the internal layout.
var ErrObjectNotFound = errors.New("object not found")

// ObjectMetadata is the backend-neutral shape of an object's properties.
// Custom holds user metadata; keys are case-sensitive except where the backend
// itself is case-insensitive (Azure).
type ObjectMetadata struct {
	ContentType string
	Size        int64
	Custom      map[string]string
}

// Visibility returns the ACL visibility recorded in custom metadata,
// defaulting to "private" when the marker is absent.
func (m ObjectMetadata) Visibility() string {
	if m.Custom[MetadataKeyVisibility] == "public" {
		return "public"
	}
	return "private"
}

// SignedURLRequest describes a capability URL to mint: exactly one HTTP
// method, one object, one expiry.
type SignedURLRequest struct {
	Method    string
	ExpiresIn time.Duration
}

// Validate checks the method is one of GET/PUT/DELETE/HEAD and the expiry is
// positive.
func (r SignedURLRequest) Validate() error {
	switch r.Method {
	case "GET", "PUT", "DELETE", "HEAD":
	default:
		return fmt.Errorf("unsupported signed url method %q", r.Method)
	}
	if r.ExpiresIn <= 0 {
		return fmt.Errorf("signed url expiry must be positive, got %s", r.ExpiresIn)
	}
	return nil
}

// ObjectFile is a handle to a single object in a backend.
// Handles are cheap to create and do not imply the object exists.
type ObjectFile interface {
	// Exists reports whether the object is present. A backend not-found
	// signal collapses to false; any other backend error propagates.
	Exists(ctx context.Context) (bool, error)

	// Download writes the object's headers and then its bytes to sink.
	// Headers always precede body bytes; see StreamError for mid-stream
	// failures. cacheTTL bounds the Cache-Control max-age.
	Download(ctx context.Context, sink DownloadSink, cacheTTL time.Duration) error

	// Metadata reads the object's properties, normalized to ObjectMetadata.
	Metadata(ctx context.Context) (ObjectMetadata, error)

	// SetMetadata merges patch into the object's custom metadata: existing
	// keys not in patch survive, patched keys overwrite. The read-modify-write
	// is not serialized; concurrent callers race with last-write-wins.
	SetMetadata(ctx context.Context, patch map[string]string) error

	// Delete removes the object and any metadata sidecar.
	Delete(ctx context.Context) error

	// Path returns the "/bucket/object" form of this handle, for diagnostics
	// and canonical-path bookkeeping.
	Path() string
}

// Provider is a storage backend: a factory for object handles plus the
// provider-level operations that don't belong to a single object.
type Provider interface {
	// Name returns a static identifier for diagnostics and config echo.
	Name() string

	// Object returns a handle for the given bucket and object name.
	Object(bucket, name string) ObjectFile

	// SignedURL mints a time-bounded capability URL scoped to one method and
	// one object.
	SignedURL(ctx context.Context, bucket, name string, req SignedURLRequest) (string, error)

	// ParsePath splits a "/bucket/object..." path into its identity parts.
	// All providers enforce the same minimum-segment rule; see ParseObjectPath.
	ParsePath(path string) (bucket, name string, err error)
}

// ParseObjectPath derives an object identity from a "/bucket/object..." path.
// The bucket and the object name must both be non-empty: "/bucket/" and
// "//object" are rejected. A missing leading slash is tolerated and prepended
// before splitting. Every provider routes identity resolution through this
// function so the rule is backend-independent.
func ParseObjectPath(path string) (bucket, name string, err error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	parts := strings.Split(path, "/")
	// parts[0] is the empty segment before the leading slash.
	if len(parts) < 3 {
		return "", "", fmt.Errorf("invalid object path %q: must contain at least a bucket and an object name", path)
	}
	bucket = parts[1]
	name = strings.Join(parts[2:], "/")
	if bucket == "" || name == "" {
		return "", "", fmt.Errorf("invalid object path %q: bucket and object name must be non-empty", path)
	}
	return bucket, name, nil
}

// mergeMetadata overlays patch onto current without mutating either map.
func mergeMetadata(current, patch map[string]string) map[string]string {
	merged := make(map[string]string, len(current)+len(patch))
	for k, v := range current {
		merged[k] = v
	}
	for k, v := range patch {
		merged[k] = v
	}
	return merged
}
