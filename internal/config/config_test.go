package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/FransAris/visio-to-xml/errors"
)

// isolateEnv points config and cache discovery at temp dirs so tests
// never read the developer's real files.
func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	isolateEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !cfg.OCR.Enabled {
		t.Error("OCR.Enabled = false, want true")
	}
	if cfg.OCR.Engine != "vision" {
		t.Errorf("OCR.Engine = %q, want %q", cfg.OCR.Engine, "vision")
	}
	if cfg.OCR.APIURL != DefaultAPIURL {
		t.Errorf("OCR.APIURL = %q, want %q", cfg.OCR.APIURL, DefaultAPIURL)
	}
	if cfg.OCR.ConfidenceThreshold != 0.8 {
		t.Errorf("OCR.ConfidenceThreshold = %v, want 0.8", cfg.OCR.ConfidenceThreshold)
	}
	if cfg.OCR.MaxImageSize != 1024 {
		t.Errorf("OCR.MaxImageSize = %d, want 1024", cfg.OCR.MaxImageSize)
	}
	if cfg.OCR.Timeout.Duration != 30*time.Second {
		t.Errorf("OCR.Timeout = %v, want 30s", cfg.OCR.Timeout.Duration)
	}
	if cfg.OCR.Concurrency != 4 {
		t.Errorf("OCR.Concurrency = %d, want 4", cfg.OCR.Concurrency)
	}
	if len(cfg.OCR.Languages) != 1 || cfg.OCR.Languages[0] != "eng" {
		t.Errorf("OCR.Languages = %v, want [eng]", cfg.OCR.Languages)
	}
	if cfg.Cache.Dir == "" {
		t.Error("Cache.Dir is empty, want XDG default")
	}
	if cfg.Cache.TTL.Duration != 7*24*time.Hour {
		t.Errorf("Cache.TTL = %v, want 168h", cfg.Cache.TTL.Duration)
	}
	if cfg.Output.Format != "drawio" {
		t.Errorf("Output.Format = %q, want %q", cfg.Output.Format, "drawio")
	}
	if cfg.Output.Dir != "output" {
		t.Errorf("Output.Dir = %q, want %q", cfg.Output.Dir, "output")
	}
}

func TestLoadFile(t *testing.T) {
	isolateEnv(t)

	path := writeConfig(t, `
[ocr]
enabled = false
engine = "tesseract"
languages = ["eng", "deu"]
confidence_threshold = 0.5
timeout = "10s"
max_image_size = 512

[cache]
dir = "/tmp/visio-cache"
ttl = "1h"

[output]
format = "mermaid"
dir = "out"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.OCR.Enabled {
		t.Error("OCR.Enabled = true, want false")
	}
	if cfg.OCR.Engine != "tesseract" {
		t.Errorf("OCR.Engine = %q, want %q", cfg.OCR.Engine, "tesseract")
	}
	if len(cfg.OCR.Languages) != 2 || cfg.OCR.Languages[1] != "deu" {
		t.Errorf("OCR.Languages = %v, want [eng deu]", cfg.OCR.Languages)
	}
	if cfg.OCR.ConfidenceThreshold != 0.5 {
		t.Errorf("OCR.ConfidenceThreshold = %v, want 0.5", cfg.OCR.ConfidenceThreshold)
	}
	if cfg.OCR.Timeout.Duration != 10*time.Second {
		t.Errorf("OCR.Timeout = %v, want 10s", cfg.OCR.Timeout.Duration)
	}
	if cfg.OCR.MaxImageSize != 512 {
		t.Errorf("OCR.MaxImageSize = %d, want 512", cfg.OCR.MaxImageSize)
	}
	if cfg.Cache.Dir != "/tmp/visio-cache" {
		t.Errorf("Cache.Dir = %q, want /tmp/visio-cache", cfg.Cache.Dir)
	}
	if cfg.Cache.TTL.Duration != time.Hour {
		t.Errorf("Cache.TTL = %v, want 1h", cfg.Cache.TTL.Duration)
	}
	if cfg.Output.Format != "mermaid" {
		t.Errorf("Output.Format = %q, want %q", cfg.Output.Format, "mermaid")
	}

	// Fields absent from the file keep their defaults.
	if cfg.OCR.APIURL != DefaultAPIURL {
		t.Errorf("OCR.APIURL = %q, want default", cfg.OCR.APIURL)
	}
	if cfg.OCR.Concurrency != DefaultConcurrency {
		t.Errorf("OCR.Concurrency = %d, want default", cfg.OCR.Concurrency)
	}
}

func TestLoadDefaultLocation(t *testing.T) {
	configHome := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configHome)
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	dir := filepath.Join(configHome, "visio2xml")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	content := "[output]\nformat = \"dot\"\n"
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Output.Format != "dot" {
		t.Errorf("Output.Format = %q, want %q", cfg.Output.Format, "dot")
	}
}

func TestLoadExplicitMissingFile(t *testing.T) {
	isolateEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err == nil {
		t.Fatal("Load with explicit missing path should fail")
	}
	if !errors.Is(err, errors.ErrCodeConfig) {
		t.Errorf("error code = %v, want %v", errors.GetCode(err), errors.ErrCodeConfig)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	isolateEnv(t)

	path := writeConfig(t, "[ocr\nenabled = oops")
	_, err := Load(path)
	if err == nil {
		t.Fatal("Load with malformed TOML should fail")
	}
	if !errors.Is(err, errors.ErrCodeConfig) {
		t.Errorf("error code = %v, want %v", errors.GetCode(err), errors.ErrCodeConfig)
	}
}

func TestEnvOverrides(t *testing.T) {
	isolateEnv(t)

	path := writeConfig(t, `
[ocr]
engine = "tesseract"
api_key = "from-file"
`)

	t.Setenv("VISIO2XML_OCR_ENGINE", "vision")
	t.Setenv("VISIO2XML_OCR_API_KEY", "from-env")
	t.Setenv("VISIO2XML_OCR_LANGUAGES", "eng, fra")
	t.Setenv("VISIO2XML_OCR_TIMEOUT", "5s")
	t.Setenv("VISIO2XML_OCR_CONCURRENCY", "2")
	t.Setenv("VISIO2XML_CACHE_TTL", "90m")
	t.Setenv("VISIO2XML_OUTPUT_FORMAT", "ALL")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.OCR.Engine != "vision" {
		t.Errorf("OCR.Engine = %q, want env override %q", cfg.OCR.Engine, "vision")
	}
	if cfg.OCR.APIKey != "from-env" {
		t.Errorf("OCR.APIKey = %q, want env override", cfg.OCR.APIKey)
	}
	if len(cfg.OCR.Languages) != 2 || cfg.OCR.Languages[1] != "fra" {
		t.Errorf("OCR.Languages = %v, want [eng fra]", cfg.OCR.Languages)
	}
	if cfg.OCR.Timeout.Duration != 5*time.Second {
		t.Errorf("OCR.Timeout = %v, want 5s", cfg.OCR.Timeout.Duration)
	}
	if cfg.OCR.Concurrency != 2 {
		t.Errorf("OCR.Concurrency = %d, want 2", cfg.OCR.Concurrency)
	}
	if cfg.Cache.TTL.Duration != 90*time.Minute {
		t.Errorf("Cache.TTL = %v, want 90m", cfg.Cache.TTL.Duration)
	}
	if cfg.Output.Format != "all" {
		t.Errorf("Output.Format = %q, want %q", cfg.Output.Format, "all")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "unknown engine",
			mutate:  func(c *Config) { c.OCR.Engine = "magic" },
			wantErr: true,
		},
		{
			name:   "engine case normalized",
			mutate: func(c *Config) { c.OCR.Engine = "Tesseract" },
		},
		{
			name:    "threshold above one",
			mutate:  func(c *Config) { c.OCR.ConfidenceThreshold = 1.5 },
			wantErr: true,
		},
		{
			name:    "negative threshold",
			mutate:  func(c *Config) { c.OCR.ConfidenceThreshold = -0.1 },
			wantErr: true,
		},
		{
			name:    "tiny max image size",
			mutate:  func(c *Config) { c.OCR.MaxImageSize = 32 },
			wantErr: true,
		},
		{
			name:    "unknown output format",
			mutate:  func(c *Config) { c.Output.Format = "png" },
			wantErr: true,
		},
		{
			name:   "zero concurrency falls back to default",
			mutate: func(c *Config) { c.OCR.Concurrency = 0 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateEnv(t)
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.ValidateAndSetDefaults()
			if tt.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if err != nil && !errors.Is(err, errors.ErrCodeConfig) {
				t.Errorf("error code = %v, want %v", errors.GetCode(err), errors.ErrCodeConfig)
			}
		})
	}
}

func TestValidateIdempotent(t *testing.T) {
	isolateEnv(t)

	cfg := Default()
	if err := cfg.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("first validate: %v", err)
	}
	dir := cfg.Cache.Dir

	// A second call must not re-resolve or error.
	if err := cfg.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("second validate: %v", err)
	}
	if cfg.Cache.Dir != dir {
		t.Errorf("Cache.Dir changed on revalidation: %q != %q", cfg.Cache.Dir, dir)
	}
}

func TestDefaultPaths(t *testing.T) {
	configHome := t.TempDir()
	cacheHome := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configHome)
	t.Setenv("XDG_CACHE_HOME", cacheHome)

	p, err := DefaultPath()
	if err != nil {
		t.Fatalf("DefaultPath: %v", err)
	}
	if want := filepath.Join(configHome, "visio2xml", "config.toml"); p != want {
		t.Errorf("DefaultPath() = %q, want %q", p, want)
	}

	d, err := DefaultCacheDir()
	if err != nil {
		t.Fatalf("DefaultCacheDir: %v", err)
	}
	if want := filepath.Join(cacheHome, "visio2xml"); d != want {
		t.Errorf("DefaultCacheDir() = %q, want %q", d, want)
	}
}
