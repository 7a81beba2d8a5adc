package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TRAVEL_CONFIG_FILE", "")
	t.Setenv("PORT", "")
	t.Setenv("TZ", "UTC")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Port)
	}
	if cfg.TransitCacheTTL != 5*time.Minute {
		t.Errorf("transit ttl = %v, want 5m", cfg.TransitCacheTTL)
	}
	if cfg.BatchConcurrency != 4 {
		t.Errorf("batch concurrency = %d, want 4", cfg.BatchConcurrency)
	}
	if cfg.Location == nil {
		t.Error("location not resolved")
	}
}

func TestLoadYAMLOverlayAndEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "travel.yml")
	body := []byte("port: 9090\nbatch_concurrency: 2\ntransit_cache_ttl: 2m\nresrobot_base_url: https://example.test/v2.1/\n")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("TRAVEL_CONFIG_FILE", path)
	t.Setenv("TZ", "UTC")
	t.Setenv("PORT", "7070")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 7070 {
		t.Errorf("port = %d, want env value 7070", cfg.Port)
	}
	if cfg.BatchConcurrency != 2 {
		t.Errorf("batch concurrency = %d, want 2 from yaml", cfg.BatchConcurrency)
	}
	if cfg.TransitCacheTTL != 2*time.Minute {
		t.Errorf("transit ttl = %v, want 2m from yaml", cfg.TransitCacheTTL)
	}
	if cfg.ResRobotBaseURL != "https://example.test/v2.1" {
		t.Errorf("resrobot base = %q, want trailing slash trimmed", cfg.ResRobotBaseURL)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
	}{
		{name: "non-numeric port", key: "PORT", value: "abc"},
		{name: "port out of range", key: "PORT", value: "70000"},
		{name: "zero concurrency", key: "BATCH_CONCURRENCY", value: "0"},
		{name: "bad duration", key: "CAR_CACHE_TTL", value: "soon"},
		{name: "bad zone", key: "TZ", value: "Mars/Olympus"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("TRAVEL_CONFIG_FILE", "")
			t.Setenv("TZ", "UTC")
			t.Setenv(tc.key, tc.value)

			_, err := Load()
			var ce *ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
		})
	}
}
