package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads for the duration of t.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"STOREMAP_ENDPOINT", "STOREMAP_ADDR", "STOREMAP_DB", "STOREMAP_CACHE_QUOTA",
		"STOREMAP_MAP_IMAGE", "STOREMAP_STATIC_DIR", "STOREMAP_ALLOWED_ORIGINS",
		"STOREMAP_LOG_LEVEL", "STOREMAP_LOG_DEV", "STOREMAP_LIST_LIMIT",
		"STOREMAP_TIME_ZONE", "PORT",
	} {
		t.Setenv(k, "")
	}
	// Keep a stray .env in the package directory out of the picture.
	t.Chdir(t.TempDir())
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "storemap.yaml", `
endpoint: https://example.com/catalog.json
addr: ":9000"
list_limit: 20
time_zone: UTC
allowed_origins:
  - https://shop.example.com
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/catalog.json", cfg.Endpoint)
	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, 20, cfg.ListLimit)
	assert.Equal(t, []string{"https://shop.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, "storemap.db", cfg.DBPath, "unset keys keep their default")
	require.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "storemap.yaml", "endpoint: https://yaml.example.com\nlist_limit: 20\n")
	t.Setenv("STOREMAP_ENDPOINT", "https://env.example.com")
	t.Setenv("STOREMAP_LIST_LIMIT", "5")
	t.Setenv("STOREMAP_CACHE_QUOTA", "1024")
	t.Setenv("STOREMAP_LOG_DEV", "true")
	t.Setenv("STOREMAP_ALLOWED_ORIGINS", " https://a.example.com , ,https://b.example.com")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.com", cfg.Endpoint)
	assert.Equal(t, 5, cfg.ListLimit)
	assert.Equal(t, 1024, cfg.CacheQuotaBytes)
	assert.True(t, cfg.LogDevelopment)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.AllowedOrigins)
}

func TestLoad_Port(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "3000")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":3000", cfg.Addr)

	t.Setenv("STOREMAP_ADDR", "127.0.0.1:8081")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8081", cfg.Addr)
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	require.NoError(t, os.Unsetenv("STOREMAP_DB"))
	require.NoError(t, os.WriteFile(".env", []byte("STOREMAP_DB=from-dotenv.db\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("STOREMAP_DB") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv.db", cfg.DBPath)
}

func TestLoad_BadValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("STOREMAP_LIST_LIMIT", "twelve")
	_, err := Load("")
	assert.ErrorContains(t, err, "STOREMAP_LIST_LIMIT")

	clearEnv(t)
	path := writeFile(t, "bad.yaml", "list_limit: [1\n")
	_, err = Load(path)
	assert.ErrorContains(t, err, "failed to parse config")
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.ErrorContains(t, cfg.Validate(), "endpoint is required")

	cfg.Endpoint = "https://example.com"
	cfg.ListLimit = 0
	assert.ErrorContains(t, cfg.Validate(), "list_limit")

	cfg.ListLimit = 12
	cfg.TimeZone = "Mars/Olympus"
	assert.ErrorContains(t, cfg.Validate(), "invalid time_zone")

	cfg.TimeZone = "UTC"
	require.NoError(t, cfg.Validate())
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}
