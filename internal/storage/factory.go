package storage

import (
	"context"
	"log"
	"strings"
	"sync"

	"objectvault/internal/config"
)

// Factory lazily constructs and caches the single Provider the process uses.
// Construction is guarded so concurrent first use builds exactly one adapter;
// afterwards reads are cheap. The composition root owns the Factory and
// injects it; there is no package-level instance.
type Factory struct {
	mu       sync.Mutex
	cfg      config.StorageConfig
	provider Provider
}

// NewFactory creates a Factory for the given storage configuration.
func NewFactory(cfg config.StorageConfig) *Factory {
	return &Factory{cfg: cfg}
}

// Provider returns the cached adapter, constructing it on first use.
// The provider name is matched case-insensitively with aliases; unknown names
// warn and fall back to the filesystem adapter so storage is always available
// in some form. Cloud adapter construction errors propagate (missing
// credentials are configuration faults, not conditions to mask).
func (f *Factory) Provider(ctx context.Context) (Provider, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.provider != nil {
		return f.provider, nil
	}

	p, err := f.build(ctx)
	if err != nil {
		return nil, err
	}
	f.provider = p
	return p, nil
}

func (f *Factory) build(ctx context.Context) (Provider, error) {
	name := strings.ToLower(strings.TrimSpace(f.cfg.Provider))
	switch name {
	case "s3", "aws":
		return NewMinIO(f.cfg.S3)
	case "gcs", "google":
		return NewGCS(ctx, f.cfg.GCS)
	case "azure", "blob":
		return NewAzure(f.cfg.Azure)
	case "local", "filesystem", "":
		return NewLocal(f.cfg.Local)
	default:
		log.Printf("unknown storage provider %q, falling back to local filesystem", f.cfg.Provider)
		return NewLocal(f.cfg.Local)
	}
}

// Reset clears the cached provider so the next Provider call rebuilds it.
// Test-only escape hatch; nothing on a request path calls it.
func (f *Factory) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.provider = nil
}
