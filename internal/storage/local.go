package storage

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"objectvault/internal/config"
)

// localMetaDirName is the parallel tree under the root that holds metadata
// sidecars, keeping them out of the object namespace.
const localMetaDirName = ".meta"

// LocalProvider implements Provider on the local filesystem. Objects live
// under <root>/<bucket>/<object> with JSON metadata sidecars in a parallel
// .meta tree. Its "signed" URLs are HMAC-signed tokens served back through
// the application's own /local-objects routes.
type LocalProvider struct {
	root    string
	baseURL string
	secret  []byte
}

// NewLocal creates the filesystem storage provider. The root directory is
// created if missing. When no signing secret is configured an ephemeral one
// is generated; URLs minted before a restart then stop verifying, which is
// acceptable for the dev/fallback role this backend plays.
func NewLocal(cfg config.LocalConfig) (*LocalProvider, error) {
	if cfg.Root == "" {
		return nil, fmt.Errorf("local storage root is required")
	}
	if err := os.MkdirAll(cfg.Root, 0o755); err != nil {
		return nil, fmt.Errorf("create local storage root: %w", err)
	}

	secret := []byte(cfg.SigningSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("generate signing secret: %w", err)
		}
	}

	return &LocalProvider{
		root:    cfg.Root,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		secret:  secret,
	}, nil
}

func (p *LocalProvider) Name() string { return "local" }

func (p *LocalProvider) Object(bucket, name string) ObjectFile {
	return &localObject{provider: p, bucket: bucket, name: name}
}

// SignedURL embeds an HMAC-signed token in a URL served by this process.
func (p *LocalProvider) SignedURL(ctx context.Context, bucket, name string, req SignedURLRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	token, err := signLocalToken(p.secret, localToken{
		Bucket:    bucket,
		Object:    name,
		Method:    req.Method,
		ExpiresAt: time.Now().Add(req.ExpiresIn).Unix(),
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/local-objects/%s/%s?token=%s", p.baseURL, bucket, name, url.QueryEscape(token)), nil
}

func (p *LocalProvider) ParsePath(path string) (string, string, error) {
	return ParseObjectPath(path)
}

// VerifyToken validates a capability token against the request actually being
// made: signature, expiry, method and object identity all have to match.
func (p *LocalProvider) VerifyToken(token, method, bucket, name string) error {
	t, err := verifyLocalToken(p.secret, token, time.Now())
	if err != nil {
		return err
	}
	if t.Method != method || t.Bucket != bucket || t.Object != name {
		return errTokenInvalid
	}
	return nil
}

// Put stores object bytes and resets the metadata sidecar to the uploaded
// Content-Type. It backs the PUT half of locally signed URLs.
func (p *LocalProvider) Put(ctx context.Context, bucket, name string, r io.Reader, contentType string) error {
	objPath := p.objectPath(bucket, name)
	if err := os.MkdirAll(filepath.Dir(objPath), 0o755); err != nil {
		return fmt.Errorf("create object dir: %w", err)
	}
	f, err := os.Create(objPath)
	if err != nil {
		return fmt.Errorf("create object file: %w", err)
	}
	_, copyErr := io.Copy(f, r)
	closeErr := f.Close()
	if copyErr != nil {
		return fmt.Errorf("write object %s/%s: %w", bucket, name, copyErr)
	}
	if closeErr != nil {
		return fmt.Errorf("write object %s/%s: %w", bucket, name, closeErr)
	}
	return p.writeMeta(bucket, name, localMeta{ContentType: contentType})
}

func (p *LocalProvider) objectPath(bucket, name string) string {
	return filepath.Join(p.root, bucket, filepath.FromSlash(name))
}

func (p *LocalProvider) metaPath(bucket, name string) string {
	return filepath.Join(p.root, localMetaDirName, bucket, filepath.FromSlash(name)+".json")
}

// localMeta is the sidecar document: the properties a cloud backend would
// keep natively.
type localMeta struct {
	ContentType string            `json:"contentType,omitempty"`
	Custom      map[string]string `json:"metadata,omitempty"`
}

func (p *LocalProvider) readMeta(bucket, name string) (localMeta, error) {
	b, err := os.ReadFile(p.metaPath(bucket, name))
	if err != nil {
		if os.IsNotExist(err) {
			// Objects written out-of-band have no sidecar; defaults apply.
			return localMeta{}, nil
		}
		return localMeta{}, fmt.Errorf("read metadata sidecar: %w", err)
	}
	var m localMeta
	if err := json.Unmarshal(b, &m); err != nil {
		return localMeta{}, fmt.Errorf("decode metadata sidecar: %w", err)
	}
	return m, nil
}

// writeMeta persists the sidecar via temp-file rename so readers never see a
// partial document.
func (p *LocalProvider) writeMeta(bucket, name string, m localMeta) error {
	path := p.metaPath(bucket, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create sidecar dir: %w", err)
	}
	b, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode metadata sidecar: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write metadata sidecar: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace metadata sidecar: %w", err)
	}
	return nil
}

// localObject is the per-object handle for the filesystem backend.
type localObject struct {
	provider *LocalProvider
	bucket   string
	name     string
}

func (o *localObject) Path() string {
	return "/" + o.bucket + "/" + o.name
}

func (o *localObject) Exists(ctx context.Context) (bool, error) {
	st, err := os.Stat(o.provider.objectPath(o.bucket, o.name))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", o.Path(), err)
	}
	// Directories exist on disk but are not objects.
	return !st.IsDir(), nil
}

func (o *localObject) Metadata(ctx context.Context) (ObjectMetadata, error) {
	st, err := os.Stat(o.provider.objectPath(o.bucket, o.name))
	if err != nil {
		if os.IsNotExist(err) {
			return ObjectMetadata{}, ErrObjectNotFound
		}
		return ObjectMetadata{}, fmt.Errorf("stat %s: %w", o.Path(), err)
	}
	if st.IsDir() {
		return ObjectMetadata{}, ErrObjectNotFound
	}
	m, err := o.provider.readMeta(o.bucket, o.name)
	if err != nil {
		return ObjectMetadata{}, err
	}
	custom := make(map[string]string, len(m.Custom))
	for k, v := range m.Custom {
		custom[k] = v
	}
	return ObjectMetadata{
		ContentType: m.ContentType,
		Size:        st.Size(),
		Custom:      custom,
	}, nil
}

// SetMetadata merges patch into the sidecar's custom metadata.
func (o *localObject) SetMetadata(ctx context.Context, patch map[string]string) error {
	if ok, err := o.Exists(ctx); err != nil {
		return err
	} else if !ok {
		return ErrObjectNotFound
	}
	m, err := o.provider.readMeta(o.bucket, o.name)
	if err != nil {
		return err
	}
	m.Custom = mergeMetadata(m.Custom, patch)
	return o.provider.writeMeta(o.bucket, o.name, m)
}

func (o *localObject) Download(ctx context.Context, sink DownloadSink, cacheTTL time.Duration) error {
	meta, err := o.Metadata(ctx)
	if err != nil {
		return err
	}
	f, err := os.Open(o.provider.objectPath(o.bucket, o.name))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrObjectNotFound
		}
		return fmt.Errorf("open %s: %w", o.Path(), err)
	}
	return streamTo(sink, o.Path(), meta, cacheTTL, f)
}

// Delete removes the object; the sidecar removal is best-effort, its absence
// is not an error.
func (o *localObject) Delete(ctx context.Context) error {
	err := os.Remove(o.provider.objectPath(o.bucket, o.name))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrObjectNotFound
		}
		return fmt.Errorf("delete %s: %w", o.Path(), err)
	}
	_ = os.Remove(o.provider.metaPath(o.bucket, o.name))
	return nil
}
