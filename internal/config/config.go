package config

import (
	"os"
	"strconv"
	"strings"
)

// S3Config holds settings for the S3 / S3-compatible storage backend.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
}

// GCSConfig holds settings for the Google Cloud Storage backend.
type GCSConfig struct {
	CredentialsFile string
	Project         string
}

// AzureConfig holds settings for the Azure Blob Storage backend.
type AzureConfig struct {
	Account  string
	Key      string
	Endpoint string
}

// LocalConfig holds settings for the filesystem storage backend.
// BaseURL is the externally reachable address used when minting signed URLs;
// SigningSecret keys the HMAC over those URL tokens.
type LocalConfig struct {
	Root          string
	BaseURL       string
	SigningSecret string
}

// StorageConfig selects and configures the active storage backend and the
// object layout on top of it.
//
// PublicSearchPaths is order-significant: public object lookups probe each
// prefix in the order configured and return the first match.
// PrivateDir has no default; operations on entity objects fail without it.
type StorageConfig struct {
	Provider          string
	PublicSearchPaths []string
	PrivateDir        string
	S3                S3Config
	GCS               GCSConfig
	Azure             AzureConfig
	Local             LocalConfig
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost string
	Port    string
	Storage StorageConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost: getEnv("APP_HOST", "localhost:8080"),
		Port:    getEnv("PORT", "8080"), // default only for non-sensitive value
		Storage: StorageConfig{
			Provider:          getEnv("STORAGE_PROVIDER", "local"),
			PublicSearchPaths: splitPaths(getEnv("PUBLIC_OBJECT_SEARCH_PATHS", "")),
			PrivateDir:        getEnv("PRIVATE_OBJECT_DIR", ""),
			S3: S3Config{
				Endpoint:  getEnv("S3_ENDPOINT", ""),
				AccessKey: getEnv("S3_ACCESS_KEY", ""),
				SecretKey: getEnv("S3_SECRET_KEY", ""),
				Region:    getEnv("S3_REGION", ""),
				UseSSL:    getEnvBool("S3_USE_SSL", true),
			},
			GCS: GCSConfig{
				CredentialsFile: getEnv("GCS_CREDENTIALS_FILE", ""),
				Project:         getEnv("GCS_PROJECT", ""),
			},
			Azure: AzureConfig{
				Account:  getEnv("AZURE_STORAGE_ACCOUNT", ""),
				Key:      getEnv("AZURE_STORAGE_KEY", ""),
				Endpoint: getEnv("AZURE_STORAGE_ENDPOINT", ""),
			},
			Local: LocalConfig{
				Root:          getEnv("LOCAL_STORAGE_ROOT", ".data/objects"),
				BaseURL:       getEnv("LOCAL_STORAGE_BASE_URL", "http://localhost:8080"),
				SigningSecret: getEnv("LOCAL_SIGNING_SECRET", ""),
			},
		},
	}
}

// splitPaths parses a comma-separated list, trimming whitespace and dropping
// empty entries while preserving order.
func splitPaths(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}
