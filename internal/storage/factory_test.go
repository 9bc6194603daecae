package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"objectvault/internal/config"
)

func factoryConfig(t *testing.T, provider string) config.StorageConfig {
	t.Helper()
	return config.StorageConfig{
		Provider: provider,
		Local:    testLocalConfig(t),
	}
}

func TestFactoryCachesSingleInstance(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(factoryConfig(t, "local"))

	first, err := f.Provider(ctx)
	require.NoError(t, err)
	second, err := f.Provider(ctx)
	require.NoError(t, err)

	assert.Same(t, first, second)
}

func TestFactoryReset(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(factoryConfig(t, "local"))

	first, err := f.Provider(ctx)
	require.NoError(t, err)

	f.Reset()

	second, err := f.Provider(ctx)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
}

func TestFactoryAliases(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		provider string
		want     string
	}{
		{name: "local", provider: "local", want: "local"},
		{name: "filesystem alias", provider: "filesystem", want: "local"},
		{name: "case insensitive", provider: "LoCaL", want: "local"},
		{name: "empty defaults to local", provider: "", want: "local"},
		{name: "unknown falls back to local", provider: "tape-robot", want: "local"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFactory(factoryConfig(t, tt.provider))
			p, err := f.Provider(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Name())
		})
	}
}

func TestFactoryCloudCredentialFaults(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		provider string
	}{
		{name: "s3 without credentials", provider: "s3"},
		{name: "aws alias", provider: "aws"},
		{name: "gcs without credentials", provider: "gcs"},
		{name: "azure without credentials", provider: "azure"},
		{name: "blob alias", provider: "blob"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFactory(factoryConfig(t, tt.provider))
			_, err := f.Provider(ctx)
			assert.Error(t, err, "missing credentials must fail construction, not later URL calls")
		})
	}
}
