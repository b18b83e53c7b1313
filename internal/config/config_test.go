package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mmynk/spendsync/internal/resource"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "spendsync.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

// clearEnv unsets every variable Load reads for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvConfig, EnvBaseURL, EnvTimeout, EnvCredentialDB, EnvOrdering, EnvLogLevel} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	// Keep any .env in the package directory out of the way.
	t.Chdir(t.TempDir())
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.BaseURL != Default().BaseURL || cfg.RequestTimeout() != 30*time.Second {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.Policy() != resource.SettledLast {
		t.Errorf("Policy() = %v, want settled-last", cfg.Policy())
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
base_url: https://api.example.com/v1
timeout: 5s
credential_db: ""
ordering: dispatched-last
log_level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.BaseURL != "https://api.example.com/v1" || cfg.RequestTimeout() != 5*time.Second {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.CredentialDB != "" || cfg.Policy() != resource.DispatchedLast || cfg.LogLevel != "debug" {
		t.Errorf("file values not applied: %+v", cfg)
	}

	t.Setenv(EnvBaseURL, "http://localhost:9999")
	t.Setenv(EnvTimeout, "1m")
	t.Setenv(EnvOrdering, "settled-last")
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.BaseURL != "http://localhost:9999" || cfg.RequestTimeout() != time.Minute || cfg.Policy() != resource.SettledLast {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
}

func TestLoadConfigFromEnvPath(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvConfig, writeConfig(t, "base_url: http://backend:8080\n"))

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.BaseURL != "http://backend:8080" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	if err := os.WriteFile(".env", []byte(EnvBaseURL+"=http://from-dotenv:3000\n"), 0o600); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv(EnvBaseURL) })

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.BaseURL != "http://from-dotenv:3000" {
		t.Errorf("BaseURL = %q, want value from .env", cfg.BaseURL)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		env     map[string]string
		wantErr string
	}{
		{name: "bad url", file: "base_url: ftp://x\n", wantErr: "base_url"},
		{name: "bad duration", file: "timeout: soon\n", wantErr: "invalid duration"},
		{name: "negative timeout", file: "timeout: -1s\n", wantErr: "timeout must be positive"},
		{name: "bad ordering", file: "ordering: random\n", wantErr: "ordering policy"},
		{name: "bad log level", file: "log_level: loud\n", wantErr: "log_level"},
		{name: "bad env timeout", env: map[string]string{EnvTimeout: "forever"}, wantErr: EnvTimeout},
		{name: "malformed yaml", file: "base_url: [\n", wantErr: "failed to parse config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.file != "" {
				path = writeConfig(t, tt.file)
			}
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}

	t.Run("missing explicit file", func(t *testing.T) {
		clearEnv(t)
		if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Error("expected error for missing config file")
		}
	})
}
