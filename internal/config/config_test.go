package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearEnv blanks every variable Config reads so host settings do not
// leak into tests. cleanenv treats an empty value as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"GEMINI_IMAGE_MODEL", "GEMINI_TRANSPORT", "GEMINI_TIMEOUT", "GEMINI_BASE_URL", "SSM_API_KEY_PARAM",
		"STYLIST_PORT", "STYLIST_LOG_LEVEL", "STYLIST_MAX_UPLOAD_BYTES", "STYLIST_REQUESTS_PER_SECOND",
		"STYLIST_METRICS", "STYLIST_SKIP_VALIDATION", "STYLIST_EXPORT_BUCKET", "STYLIST_EXPORT_PREFIX",
		"STYLIST_THUMBNAIL_TTL",
	} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Model != "gemini-2.5-flash-image" {
		t.Errorf("Model = %q", cfg.Model)
	}
	if cfg.Transport != "sdk" {
		t.Errorf("Transport = %q", cfg.Transport)
	}
	if cfg.Timeout != 120*time.Second {
		t.Errorf("Timeout = %v", cfg.Timeout)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d", cfg.Port)
	}
	if cfg.MaxUploadBytes != 5*1024*1024 {
		t.Errorf("MaxUploadBytes = %d", cfg.MaxUploadBytes)
	}
	if cfg.ThumbnailTTL != 30*time.Minute {
		t.Errorf("ThumbnailTTL = %v", cfg.ThumbnailTTL)
	}
	if cfg.Limiter() != nil {
		t.Error("Limiter() should be nil by default")
	}
	if cfg.ExportEnabled() {
		t.Error("ExportEnabled() should be false by default")
	}
}

func TestLoadMissingNamedFile(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Load() with a missing named file error = %v, want fs.ErrNotExist", err)
	}
}

func TestLoadFromEnvFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), ".env")
	content := strings.Join([]string{
		"GEMINI_TRANSPORT=rest",
		"STYLIST_PORT=9090",
		"STYLIST_REQUESTS_PER_SECOND=2.5",
		"STYLIST_EXPORT_BUCKET=stylized-out",
		"STYLIST_METRICS=true",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	// Process environment wins over the file.
	t.Setenv("STYLIST_PORT", "7070")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Transport != "rest" {
		t.Errorf("Transport = %q, want rest", cfg.Transport)
	}
	if cfg.Port != 7070 {
		t.Errorf("Port = %d, want 7070 from process env", cfg.Port)
	}
	if !cfg.Metrics {
		t.Error("Metrics = false, want true")
	}
	if !cfg.ExportEnabled() || cfg.ExportBucket != "stylized-out" {
		t.Errorf("ExportBucket = %q", cfg.ExportBucket)
	}
	lim := cfg.Limiter()
	if lim == nil || float64(lim.Limit()) != 2.5 {
		t.Errorf("Limiter() = %v, want 2.5/s", lim)
	}
}

func TestValidate(t *testing.T) {
	base := Config{Transport: "sdk", Port: 8080, MaxUploadBytes: 1, Timeout: time.Second}
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"transport", func(c *Config) { c.Transport = "grpc" }},
		{"port", func(c *Config) { c.Port = 0 }},
		{"upload", func(c *Config) { c.MaxUploadBytes = 0 }},
		{"rate", func(c *Config) { c.RequestsPerSecond = -1 }},
		{"timeout", func(c *Config) { c.Timeout = 0 }},
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("Validate() on base config = %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	desc := Describe()
	for _, name := range []string{"GEMINI_IMAGE_MODEL", "STYLIST_EXPORT_BUCKET"} {
		if !strings.Contains(desc, name) {
			t.Errorf("Describe() missing %s", name)
		}
	}
}
