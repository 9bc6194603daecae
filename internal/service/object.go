package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"objectvault/internal/acl"
	"objectvault/internal/config"
	"objectvault/internal/storage"
)

var (
	// ErrSearchPathsRequired means PUBLIC_OBJECT_SEARCH_PATHS is missing.
	// Raised at construction: a misconfigured service must not start.
	ErrSearchPathsRequired = errors.New("no public object search paths configured")
	// ErrPrivateDirRequired means PRIVATE_OBJECT_DIR is missing. Raised when
	// an entity operation actually needs it, not at construction.
	ErrPrivateDirRequired = errors.New("private object dir not configured")
)

// uploadURLExpiry bounds entity upload URLs. Fixed by design; clients upload
// directly to the backend and the URL must not outlive the upload flow.
const uploadURLExpiry = 900 * time.Second

// ObjectService defines the use cases for public object search, entity
// uploads via signed URLs, canonical entity paths and ACL enforcement.
type ObjectService interface {
	// SearchPublicObject probes the configured public search prefixes in
	// order and returns the first existing object, or storage.ErrObjectNotFound.
	SearchPublicObject(ctx context.Context, filePath string) (storage.ObjectFile, error)

	// EntityUploadURL mints a PUT-scoped signed URL for a fresh entity id
	// under the private root.
	EntityUploadURL(ctx context.Context) (string, error)

	// EntityFile resolves a canonical "/objects/<entityId>" path to its
	// object. Bad path shapes and missing objects both report
	// storage.ErrObjectNotFound, deliberately indistinguishable.
	EntityFile(ctx context.Context, objectPath string) (storage.ObjectFile, error)

	// NormalizeEntityPath rewrites recognized storage URLs to the canonical
	// entity path. Idempotent; unrecognized inputs pass through unchanged.
	NormalizeEntityPath(rawPath string) (string, error)

	// TrySetEntityACLPolicy normalizes rawPath and, when it yields an
	// absolute path, persists the policy on the resolved entity. Returns the
	// normalized path either way.
	TrySetEntityACLPolicy(ctx context.Context, rawPath string, policy acl.Policy) (string, error)

	// CanAccessEntity evaluates the object's stored policy for the caller.
	CanAccessEntity(ctx context.Context, userID string, f storage.ObjectFile, perm acl.Permission) (bool, error)
}

// objectService is the concrete ObjectService backed by the provider factory.
type objectService struct {
	factory     *storage.Factory
	searchPaths []string
	privateDir  string
	s3Endpoint  string
	tracer      trace.Tracer
}

// NewObjectService constructs the service. Search paths are deduplicated but
// keep their configured order; an empty list is a startup fault.
func NewObjectService(factory *storage.Factory, cfg config.StorageConfig) (ObjectService, error) {
	if len(cfg.PublicSearchPaths) == 0 {
		return nil, ErrSearchPathsRequired
	}
	seen := make(map[string]struct{}, len(cfg.PublicSearchPaths))
	var paths []string
	for _, p := range cfg.PublicSearchPaths {
		p = strings.TrimSuffix(p, "/")
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		paths = append(paths, p)
	}
	return &objectService{
		factory:     factory,
		searchPaths: paths,
		privateDir:  strings.TrimSuffix(cfg.PrivateDir, "/"),
		s3Endpoint:  cfg.S3.Endpoint,
		tracer:      otel.Tracer("objectvault/service"),
	}, nil
}

func (s *objectService) SearchPublicObject(ctx context.Context, filePath string) (storage.ObjectFile, error) {
	ctx, span := s.tracer.Start(ctx, "object.search_public")
	defer span.End()

	provider, err := s.factory.Provider(ctx)
	if err != nil {
		return nil, err
	}

	filePath = strings.TrimPrefix(filePath, "/")
	for _, searchPath := range s.searchPaths {
		bucket, name, err := provider.ParsePath(searchPath + "/" + filePath)
		if err != nil {
			return nil, err
		}
		f := provider.Object(bucket, name)
		exists, err := f.Exists(ctx)
		if err != nil {
			return nil, fmt.Errorf("search %s: %w", f.Path(), err)
		}
		if exists {
			return f, nil
		}
	}
	return nil, storage.ErrObjectNotFound
}

func (s *objectService) EntityUploadURL(ctx context.Context) (string, error) {
	ctx, span := s.tracer.Start(ctx, "object.entity_upload_url")
	defer span.End()

	if s.privateDir == "" {
		return "", ErrPrivateDirRequired
	}
	provider, err := s.factory.Provider(ctx)
	if err != nil {
		return "", err
	}

	objectID := uuid.NewString()
	bucket, name, err := provider.ParsePath(fmt.Sprintf("%s/uploads/%s", s.privateDir, objectID))
	if err != nil {
		return "", err
	}
	return provider.SignedURL(ctx, bucket, name, storage.SignedURLRequest{
		Method:    "PUT",
		ExpiresIn: uploadURLExpiry,
	})
}

func (s *objectService) EntityFile(ctx context.Context, objectPath string) (storage.ObjectFile, error) {
	ctx, span := s.tracer.Start(ctx, "object.entity_file")
	defer span.End()

	if !strings.HasPrefix(objectPath, "/objects/") {
		return nil, storage.ErrObjectNotFound
	}
	entityID := strings.TrimPrefix(objectPath, "/objects/")
	if entityID == "" {
		return nil, storage.ErrObjectNotFound
	}
	if s.privateDir == "" {
		return nil, ErrPrivateDirRequired
	}

	provider, err := s.factory.Provider(ctx)
	if err != nil {
		return nil, err
	}
	bucket, name, err := provider.ParsePath(s.privateDir + "/" + entityID)
	if err != nil {
		return nil, storage.ErrObjectNotFound
	}
	f := provider.Object(bucket, name)
	exists, err := f.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", f.Path(), err)
	}
	if !exists {
		return nil, storage.ErrObjectNotFound
	}
	return f, nil
}

func (s *objectService) NormalizeEntityPath(rawPath string) (string, error) {
	if !strings.HasPrefix(rawPath, "http://") && !strings.HasPrefix(rawPath, "https://") {
		return rawPath, nil
	}
	u, err := url.Parse(rawPath)
	if err != nil {
		return "", fmt.Errorf("malformed object url %q: %w", rawPath, err)
	}

	objectPath, ok := s.storageObjectPath(u)
	if !ok {
		return rawPath, nil
	}
	if s.privateDir == "" {
		return objectPath, nil
	}

	dir := s.privateDir + "/"
	if !strings.HasPrefix(objectPath, dir) {
		return objectPath, nil
	}
	return "/objects/" + strings.TrimPrefix(objectPath, dir), nil
}

// storageObjectPath extracts the "/bucket/object" path from a recognized
// storage URL shape, host and query stripped. Recognized: GCS path- and
// virtual-host-style, S3 path- and virtual-host-style, a configured
// S3-compatible endpoint, Azure blob URLs, and this service's own
// local-object URLs.
func (s *objectService) storageObjectPath(u *url.URL) (string, bool) {
	host := u.Hostname()
	switch {
	case strings.HasPrefix(u.Path, "/local-objects/"):
		return strings.TrimPrefix(u.Path, "/local-objects"), true
	case host == "storage.googleapis.com":
		return u.Path, true
	case strings.HasSuffix(host, ".storage.googleapis.com"):
		bucket := strings.TrimSuffix(host, ".storage.googleapis.com")
		return "/" + bucket + u.Path, true
	case host == "s3.amazonaws.com",
		strings.HasPrefix(host, "s3.") && strings.HasSuffix(host, ".amazonaws.com"):
		return u.Path, true
	case strings.HasSuffix(host, ".amazonaws.com") && strings.Contains(host, ".s3"):
		bucket := host[:strings.Index(host, ".s3")]
		return "/" + bucket + u.Path, true
	case strings.HasSuffix(host, ".blob.core.windows.net"):
		return u.Path, true
	case s.s3Endpoint != "" && u.Host == s.s3Endpoint:
		return u.Path, true
	}
	return "", false
}

func (s *objectService) TrySetEntityACLPolicy(ctx context.Context, rawPath string, policy acl.Policy) (string, error) {
	ctx, span := s.tracer.Start(ctx, "object.set_acl_policy")
	defer span.End()

	normalized, err := s.NormalizeEntityPath(rawPath)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(normalized, "/") {
		return normalized, nil
	}
	f, err := s.EntityFile(ctx, normalized)
	if err != nil {
		return "", err
	}
	if err := acl.SetPolicy(ctx, f, policy); err != nil {
		return "", fmt.Errorf("set acl policy on %s: %w", f.Path(), err)
	}
	return normalized, nil
}

func (s *objectService) CanAccessEntity(ctx context.Context, userID string, f storage.ObjectFile, perm acl.Permission) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "object.can_access")
	defer span.End()

	if perm == "" {
		perm = acl.PermissionRead
	}
	policy, err := acl.PolicyFor(ctx, f)
	if err != nil {
		return false, err
	}
	return acl.CanAccess(userID, policy, perm), nil
}
