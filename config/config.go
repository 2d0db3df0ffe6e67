/*
Package config loads the service configuration.

PRECEDENCE (lowest to highest):
  1. DefaultConfig()
  2. YAML file (optional; missing file means defaults)
  3. .env file in the working directory (does not override real env vars)
  4. STOREMAP_* environment variables
  5. Command-line flags (applied by cmd/storemap)

ENVIRONMENT:
  STOREMAP_ENDPOINT         Catalog endpoint URL
  STOREMAP_ADDR             HTTP listen address
  STOREMAP_DB               SQLite path (":memory:" for none)
  STOREMAP_CACHE_QUOTA      Cache byte budget
  STOREMAP_MAP_IMAGE        Base map image path
  STOREMAP_STATIC_DIR       Widget static assets
  STOREMAP_ALLOWED_ORIGINS  Comma-separated CORS origins
  STOREMAP_LOG_LEVEL        debug, info, warn, error
  STOREMAP_LOG_DEV          true for console logging
  STOREMAP_LIST_LIMIT       Max results per search response
  STOREMAP_TIME_ZONE        IANA zone for cache timestamps
  PORT                      Listen port (hosting platforms)
*/
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all service configuration.
type Config struct {
	// Remote catalog
	Endpoint string `yaml:"endpoint"`

	// HTTP
	Addr           string   `yaml:"addr"`
	StaticDir      string   `yaml:"static_dir"`
	AllowedOrigins []string `yaml:"allowed_origins"`

	// Local storage
	DBPath          string `yaml:"db_path"`
	CacheQuotaBytes int    `yaml:"cache_quota_bytes"`

	// Map
	MapImage  string `yaml:"map_image"`
	ListLimit int    `yaml:"list_limit"`
	TimeZone  string `yaml:"time_zone"`

	// Logging
	LogLevel       string `yaml:"log_level"`
	LogDevelopment bool   `yaml:"log_development"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Addr:            ":8080",
		StaticDir:       "./web",
		AllowedOrigins:  []string{"http://localhost:5173", "http://localhost:8080"},
		DBPath:          "storemap.db",
		CacheQuotaBytes: 5 << 20,
		ListLimit:       12,
		LogLevel:        "info",
	}
}

// Load reads path (if it exists), then .env, then the environment.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// defaults
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("STOREMAP_ENDPOINT"); v != "" {
		c.Endpoint = v
	}
	if v := os.Getenv("STOREMAP_ADDR"); v != "" {
		c.Addr = v
	} else if port := strings.TrimPrefix(os.Getenv("PORT"), ":"); port != "" {
		c.Addr = ":" + port
	}
	if v := os.Getenv("STOREMAP_DB"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("STOREMAP_MAP_IMAGE"); v != "" {
		c.MapImage = v
	}
	if v := os.Getenv("STOREMAP_STATIC_DIR"); v != "" {
		c.StaticDir = v
	}
	if v := os.Getenv("STOREMAP_ALLOWED_ORIGINS"); v != "" {
		c.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("STOREMAP_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("STOREMAP_TIME_ZONE"); v != "" {
		c.TimeZone = v
	}
	if v := os.Getenv("STOREMAP_LOG_DEV"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("STOREMAP_LOG_DEV: %w", err)
		}
		c.LogDevelopment = b
	}
	if v := os.Getenv("STOREMAP_CACHE_QUOTA"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("STOREMAP_CACHE_QUOTA: %w", err)
		}
		c.CacheQuotaBytes = n
	}
	if v := os.Getenv("STOREMAP_LIST_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("STOREMAP_LIST_LIMIT: %w", err)
		}
		c.ListLimit = n
	}
	return nil
}

// Validate checks the fields needed to run.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return errors.New("endpoint is required (set endpoint, STOREMAP_ENDPOINT or --endpoint)")
	}
	if c.ListLimit <= 0 {
		return fmt.Errorf("list_limit must be positive, got %d", c.ListLimit)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves TimeZone; empty means the local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.TimeZone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid time_zone %q: %w", c.TimeZone, err)
	}
	return loc, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
