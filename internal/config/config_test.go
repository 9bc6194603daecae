package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	// Save current env and restore later
	origProvider := os.Getenv("STORAGE_PROVIDER")
	defer os.Setenv("STORAGE_PROVIDER", origProvider)

	os.Setenv("STORAGE_PROVIDER", "gcs")
	os.Setenv("PUBLIC_OBJECT_SEARCH_PATHS", "/assets/public, /shared/public")
	os.Setenv("PRIVATE_OBJECT_DIR", "/assets/private")
	os.Setenv("S3_USE_SSL", "false")
	defer func() {
		os.Unsetenv("PUBLIC_OBJECT_SEARCH_PATHS")
		os.Unsetenv("PRIVATE_OBJECT_DIR")
		os.Unsetenv("S3_USE_SSL")
	}()

	cfg := Load()

	assert.Equal(t, "gcs", cfg.Storage.Provider)
	assert.Equal(t, []string{"/assets/public", "/shared/public"}, cfg.Storage.PublicSearchPaths)
	assert.Equal(t, "/assets/private", cfg.Storage.PrivateDir)
	assert.False(t, cfg.Storage.S3.UseSSL)
}

func TestLoadDefaults(t *testing.T) {
	os.Unsetenv("STORAGE_PROVIDER")
	os.Unsetenv("PUBLIC_OBJECT_SEARCH_PATHS")
	os.Unsetenv("PRIVATE_OBJECT_DIR")

	cfg := Load()

	assert.Equal(t, "local", cfg.Storage.Provider)
	assert.Nil(t, cfg.Storage.PublicSearchPaths)
	assert.Empty(t, cfg.Storage.PrivateDir)
}

func TestSplitPaths(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{name: "empty", in: "", want: nil},
		{name: "single", in: "/a/b", want: []string{"/a/b"}},
		{name: "order preserved", in: "/z,/a,/m", want: []string{"/z", "/a", "/m"}},
		{name: "whitespace and empties dropped", in: " /a , ,/b, ", want: []string{"/a", "/b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitPaths(tt.in))
		})
	}
}

func TestGetEnv(t *testing.T) {
	key := "TEST_ENV_VAR"
	os.Setenv(key, "value")
	defer os.Unsetenv(key)

	assert.Equal(t, "value", getEnv(key, "default"))
	assert.Equal(t, "default", getEnv("NON_EXISTENT", "default"))
}

func TestGetEnvBool(t *testing.T) {
	key := "TEST_BOOL_VAR"

	os.Setenv(key, "true")
	assert.True(t, getEnvBool(key, false))

	os.Setenv(key, "false")
	assert.False(t, getEnvBool(key, true))

	os.Setenv(key, "invalid")
	assert.True(t, getEnvBool(key, true))

	os.Unsetenv(key)
	assert.True(t, getEnvBool(key, true))
}
