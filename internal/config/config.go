// Package config loads client configuration.
//
// Values are resolved in order, later sources winning:
//   - built-in defaults
//   - the YAML file given by --config or SPENDSYNC_CONFIG, if any
//   - environment variables, including those loaded from a .env file
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/mmynk/spendsync/internal/resource"
	"github.com/mmynk/spendsync/pkg/logging"
)

// Environment variables read by Load.
const (
	EnvConfig       = "SPENDSYNC_CONFIG"
	EnvBaseURL      = "SPENDSYNC_BASE_URL"
	EnvTimeout      = "SPENDSYNC_TIMEOUT"
	EnvCredentialDB = "SPENDSYNC_CREDENTIAL_DB"
	EnvOrdering     = "SPENDSYNC_ORDERING"
	EnvLogLevel     = "LOG_LEVEL"
)

// Config is the client configuration.
type Config struct {
	// BaseURL is the backend API root.
	BaseURL string `yaml:"base_url"`

	// Timeout bounds each HTTP request, e.g. "30s".
	Timeout Duration `yaml:"timeout"`

	// CredentialDB is the SQLite file holding the saved credential. Empty
	// keeps the credential in memory only.
	CredentialDB string `yaml:"credential_db"`

	// Ordering is "settled-last" or "dispatched-last".
	Ordering string `yaml:"ordering"`

	// LogLevel is debug, info, warn or error.
	LogLevel string `yaml:"log_level"`
}

// Duration is a time.Duration written as a Go duration string in YAML.
type Duration time.Duration

// UnmarshalYAML parses strings such as "1m30s".
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		BaseURL:      "http://localhost:3001/api",
		Timeout:      Duration(30 * time.Second),
		CredentialDB: defaultCredentialDB(),
		Ordering:     resource.SettledLast.String(),
		LogLevel:     "info",
	}
}

func defaultCredentialDB() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "spendsync", "session.db")
}

// Load resolves the configuration. path may be empty, in which case
// SPENDSYNC_CONFIG is consulted; a missing file is only an error when a
// path was given explicitly. A .env file in the working directory is loaded
// first if present; it never overrides variables already set.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()
	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvBaseURL); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv(EnvTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvTimeout, err)
		}
		c.Timeout = Duration(d)
	}
	if v, ok := os.LookupEnv(EnvCredentialDB); ok {
		c.CredentialDB = v
	}
	if v := os.Getenv(EnvOrdering); v != "" {
		c.Ordering = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	return nil
}

// Validate checks that every field is usable.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("base_url must be an http(s) URL, got %q", c.BaseURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", time.Duration(c.Timeout))
	}
	if _, err := resource.ParsePolicy(c.Ordering); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level: %w", err)
	}
	return nil
}

// Policy returns the parsed ordering policy. Call Validate first.
func (c *Config) Policy() resource.Policy {
	p, _ := resource.ParsePolicy(c.Ordering)
	return p
}

// RequestTimeout returns Timeout as a time.Duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Timeout)
}
