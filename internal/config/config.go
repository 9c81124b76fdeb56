// Package config loads the search-api process configuration.
//
// Values are resolved in three layers: built-in defaults, an optional YAML
// file, then SEARCH_* environment variables. Command-line flags are applied
// on top by the caller.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Sternrassler/music-search-api/pkg/api"
	"github.com/Sternrassler/music-search-api/pkg/catalog"
	"github.com/Sternrassler/music-search-api/pkg/fetch"
	"github.com/Sternrassler/music-search-api/pkg/logging"
	"github.com/Sternrassler/music-search-api/pkg/search"
)

// Config is the full process configuration.
type Config struct {
	// Addr is the listen address.
	Addr string `yaml:"addr"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	Upstream Upstream        `yaml:"upstream"`
	Fetch    Fetch           `yaml:"fetch"`
	API      API             `yaml:"api"`
	Defaults search.Defaults `yaml:"defaults"`
	Log      Log             `yaml:"log"`
}

// Upstream configures the catalog client.
type Upstream struct {
	BaseURL   string        `yaml:"base_url"`
	UserAgent string        `yaml:"user_agent"`
	Referer   string        `yaml:"referer"`
	Timeout   time.Duration `yaml:"timeout"`
}

// Fetch configures detail enrichment.
type Fetch struct {
	Concurrency int `yaml:"concurrency"`
	Retries     int `yaml:"retries"`
}

// API configures request defaults.
type API struct {
	DefaultNum     int    `yaml:"default_num"`
	MaxNum         int    `yaml:"max_num"`
	DefaultQuality string `yaml:"default_quality"`
}

// Log configures the process logger.
type Log struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Default returns the built-in configuration.
func Default() Config {
	cat := catalog.DefaultConfig()
	f := fetch.DefaultConfig()
	a := api.DefaultConfig()

	return Config{
		Addr:            ":8080",
		ShutdownTimeout: 10 * time.Second,
		Upstream: Upstream{
			BaseURL:   cat.BaseURL,
			UserAgent: cat.UserAgent,
			Referer:   cat.Referer,
			Timeout:   cat.Timeout,
		},
		Fetch: Fetch{
			Concurrency: f.ConcurrencyLimit,
			Retries:     f.RetryLimit,
		},
		API: API{
			DefaultNum:     a.DefaultNum,
			MaxNum:         a.MaxNum,
			DefaultQuality: string(a.DefaultQuality),
		},
		Defaults: search.DefaultValues(),
		Log: Log{
			Level: string(logging.LevelInfo),
		},
	}
}

// Load returns the defaults overlaid with the YAML file at path.
// An empty path yields the defaults. Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Environment variables read by ApplyEnv.
const (
	EnvAddr            = "SEARCH_ADDR"
	EnvUpstreamURL     = "SEARCH_UPSTREAM_URL"
	EnvUserAgent       = "SEARCH_USER_AGENT"
	EnvUpstreamTimeout = "SEARCH_UPSTREAM_TIMEOUT"
	EnvConcurrency     = "SEARCH_CONCURRENCY"
	EnvRetries         = "SEARCH_RETRIES"
	EnvLogLevel        = "SEARCH_LOG_LEVEL"
	EnvLogPretty       = "SEARCH_LOG_PRETTY"
)

// ApplyEnv overrides fields from SEARCH_* environment variables.
// Unset or empty variables leave the field unchanged.
func (c *Config) ApplyEnv() error {
	c.Addr = getEnv(EnvAddr, c.Addr)
	c.Upstream.BaseURL = getEnv(EnvUpstreamURL, c.Upstream.BaseURL)
	c.Upstream.UserAgent = getEnv(EnvUserAgent, c.Upstream.UserAgent)
	c.Log.Level = getEnv(EnvLogLevel, c.Log.Level)

	var err error
	if c.Upstream.Timeout, err = envDuration(EnvUpstreamTimeout, c.Upstream.Timeout); err != nil {
		return err
	}
	if c.Fetch.Concurrency, err = envInt(EnvConcurrency, c.Fetch.Concurrency); err != nil {
		return err
	}
	if c.Fetch.Retries, err = envInt(EnvRetries, c.Fetch.Retries); err != nil {
		return err
	}
	if c.Log.Pretty, err = envBool(EnvLogPretty, c.Log.Pretty); err != nil {
		return err
	}
	return nil
}

// Validate checks every section.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("addr is required")
	}
	if c.ShutdownTimeout < 0 {
		return fmt.Errorf("shutdown_timeout must be >= 0 (got %s)", c.ShutdownTimeout)
	}
	if err := c.CatalogConfig().Validate(); err != nil {
		return fmt.Errorf("upstream: %w", err)
	}
	if err := c.FetchConfig().Validate(); err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	if c.API.MaxNum < 1 {
		return fmt.Errorf("api: max_num must be >= 1 (got %d)", c.API.MaxNum)
	}
	if c.API.DefaultNum < 1 || c.API.DefaultNum > c.API.MaxNum {
		return fmt.Errorf("api: default_num must be between 1 and %d (got %d)", c.API.MaxNum, c.API.DefaultNum)
	}
	if _, err := catalog.ParseQuality(c.API.DefaultQuality); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if !logging.ValidLevel(c.Log.Level) {
		return fmt.Errorf("log: unknown level %q", c.Log.Level)
	}
	return nil
}

// CatalogConfig returns the catalog client configuration.
func (c Config) CatalogConfig() catalog.Config {
	return catalog.Config{
		BaseURL:   c.Upstream.BaseURL,
		UserAgent: c.Upstream.UserAgent,
		Referer:   c.Upstream.Referer,
		Timeout:   c.Upstream.Timeout,
	}
}

// FetchConfig returns the enrichment limits. The logger is left unset.
func (c Config) FetchConfig() fetch.Config {
	return fetch.Config{
		ConcurrencyLimit: c.Fetch.Concurrency,
		RetryLimit:       c.Fetch.Retries,
	}
}

// APIConfig returns the handler configuration. Call Validate first.
func (c Config) APIConfig() api.Config {
	quality, _ := catalog.ParseQuality(c.API.DefaultQuality)
	return api.Config{
		DefaultNum:     c.API.DefaultNum,
		MaxNum:         c.API.MaxNum,
		DefaultQuality: quality,
	}
}

// LoggingConfig returns the logger configuration.
func (c Config) LoggingConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.LogLevel(c.Log.Level)
	cfg.Pretty = c.Log.Pretty
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func envInt(key string, defaultValue int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, raw)
	}
	return v, nil
}

func envBool(key string, defaultValue bool) (bool, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s: invalid boolean %q", key, raw)
	}
	return v, nil
}

func envDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", key, raw)
	}
	return v, nil
}
