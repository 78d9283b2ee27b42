// Package config loads and validates visio2xml configuration.
//
// Configuration is read from a TOML file (default
// ~/.config/visio2xml/config.toml), then overridden by VISIO2XML_*
// environment variables. Absent values fall back to defaults, so a
// missing file is not an error.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/FransAris/visio-to-xml/errors"
)

const (
	// appName is the application name used for directories.
	appName = "visio2xml"

	// DefaultEngine is the recognition engine used when none is configured.
	DefaultEngine = "vision"

	// DefaultAPIURL is the base URL of the hosted vision API.
	DefaultAPIURL = "https://api.mistral.ai/v1"

	// DefaultConfidenceThreshold is the minimum confidence for accepting
	// recognized text.
	DefaultConfidenceThreshold = 0.8

	// DefaultMaxImageSize is the maximum image dimension in pixels before
	// downscaling for recognition.
	DefaultMaxImageSize = 1024

	// DefaultConcurrency is the number of images recognized in parallel.
	DefaultConcurrency = 4

	// DefaultTimeout is the per-image recognition timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultCacheTTL is how long cached recognition results stay valid.
	DefaultCacheTTL = 7 * 24 * time.Hour

	// DefaultOutputFormat is the emitter used when none is requested.
	DefaultOutputFormat = "drawio"

	// DefaultOutputDir is where converted files are written.
	DefaultOutputDir = "output"
)

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "VISIO2XML_"

// ValidEngines is the set of supported recognition engines.
var ValidEngines = map[string]bool{
	"vision":    true,
	"tesseract": true,
}

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	"drawio":  true,
	"mermaid": true,
	"dot":     true,
	"all":     true,
}

// Duration wraps time.Duration so TOML strings like "30s" decode directly.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config is the full application configuration.
type Config struct {
	OCR    OCRConfig    `toml:"ocr"`
	Cache  CacheConfig  `toml:"cache"`
	Output OutputConfig `toml:"output"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `toml:"-"`
}

// OCRConfig controls label recognition for image-bearing shapes.
type OCRConfig struct {
	Enabled             bool     `toml:"enabled"`
	Engine              string   `toml:"engine"`
	APIURL              string   `toml:"api_url"`
	APIKey              string   `toml:"api_key"`
	Languages           []string `toml:"languages"`
	ConfidenceThreshold float64  `toml:"confidence_threshold"`
	Timeout             Duration `toml:"timeout"`
	MaxImageSize        int      `toml:"max_image_size"`
	Concurrency         int      `toml:"concurrency"`
}

// CacheConfig controls the recognition result cache.
type CacheConfig struct {
	Dir string   `toml:"dir"`
	TTL Duration `toml:"ttl"`
}

// OutputConfig controls where and how converted files are written.
type OutputConfig struct {
	Dir    string `toml:"dir"`
	Format string `toml:"format"`
}

// Default returns a configuration with every field set to its default.
func Default() *Config {
	return &Config{
		OCR: OCRConfig{
			Enabled:             true,
			Engine:              DefaultEngine,
			APIURL:              DefaultAPIURL,
			Languages:           []string{"eng"},
			ConfidenceThreshold: DefaultConfidenceThreshold,
			Timeout:             Duration{DefaultTimeout},
			MaxImageSize:        DefaultMaxImageSize,
			Concurrency:         DefaultConcurrency,
		},
		Cache: CacheConfig{
			TTL: Duration{DefaultCacheTTL},
		},
		Output: OutputConfig{
			Dir:    DefaultOutputDir,
			Format: DefaultOutputFormat,
		},
	}
}

// DefaultPath returns the default config file location
// (~/.config/visio2xml/config.toml, honoring XDG_CONFIG_HOME).
func DefaultPath() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// DefaultCacheDir returns the default cache directory using the XDG
// standard (~/.cache/visio2xml/).
func DefaultCacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// Load reads configuration from path, applies environment overrides, and
// validates the result. An empty path means the default location; a file
// that does not exist at the default location yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err == nil {
			path = p
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, errors.Wrap(errors.ErrCodeConfig, err, "parse config %s", path).WithPart(path)
			}
		case os.IsNotExist(err) && !explicit:
			// Defaults apply when the default-location file is absent.
		default:
			return nil, errors.Wrap(errors.ErrCodeConfig, err, "read config %s", path).WithPart(path)
		}
	}

	cfg.applyEnv()

	if err := cfg.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides fields from VISIO2XML_* environment variables.
func (c *Config) applyEnv() {
	if v, ok := envLookup("OCR_ENABLED"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			c.OCR.Enabled = b
		}
	}
	if v, ok := envLookup("OCR_ENGINE"); ok {
		c.OCR.Engine = v
	}
	if v, ok := envLookup("OCR_API_URL"); ok {
		c.OCR.APIURL = v
	}
	if v, ok := envLookup("OCR_API_KEY"); ok {
		c.OCR.APIKey = v
	}
	if v, ok := envLookup("OCR_LANGUAGES"); ok {
		c.OCR.Languages = splitList(v)
	}
	if v, ok := envLookup("OCR_CONFIDENCE_THRESHOLD"); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.OCR.ConfidenceThreshold = f
		}
	}
	if v, ok := envLookup("OCR_TIMEOUT"); ok {
		if d, err := time.ParseDuration(v); err == nil {
			c.OCR.Timeout = Duration{d}
		}
	}
	if v, ok := envLookup("OCR_MAX_IMAGE_SIZE"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.OCR.MaxImageSize = n
		}
	}
	if v, ok := envLookup("OCR_CONCURRENCY"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.OCR.Concurrency = n
		}
	}
	if v, ok := envLookup("CACHE_DIR"); ok {
		c.Cache.Dir = v
	}
	if v, ok := envLookup("CACHE_TTL"); ok {
		if d, err := time.ParseDuration(v); err == nil {
			c.Cache.TTL = Duration{d}
		}
	}
	if v, ok := envLookup("OUTPUT_DIR"); ok {
		c.Output.Dir = v
	}
	if v, ok := envLookup("OUTPUT_FORMAT"); ok {
		c.Output.Format = strings.ToLower(v)
	}
}

func envLookup(key string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// splitList parses a comma-separated list, trimming whitespace.
func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ValidateAndSetDefaults checks field ranges and fills remaining
// defaults. This method is idempotent - calling it multiple times has
// the same effect as calling it once.
func (c *Config) ValidateAndSetDefaults() error {
	if c.validated {
		return nil
	}

	c.OCR.Engine = strings.ToLower(c.OCR.Engine)
	if c.OCR.Engine == "" {
		c.OCR.Engine = DefaultEngine
	}
	if !ValidEngines[c.OCR.Engine] {
		return errors.New(errors.ErrCodeConfig, "invalid ocr.engine %q (must be 'vision' or 'tesseract')", c.OCR.Engine)
	}
	if c.OCR.APIURL == "" {
		c.OCR.APIURL = DefaultAPIURL
	}
	if len(c.OCR.Languages) == 0 {
		c.OCR.Languages = []string{"eng"}
	}
	if c.OCR.ConfidenceThreshold < 0 || c.OCR.ConfidenceThreshold > 1 {
		return errors.New(errors.ErrCodeConfig, "invalid ocr.confidence_threshold %v (must be in [0, 1])", c.OCR.ConfidenceThreshold)
	}
	if c.OCR.Timeout.Duration <= 0 {
		c.OCR.Timeout = Duration{DefaultTimeout}
	}
	if c.OCR.MaxImageSize <= 0 {
		c.OCR.MaxImageSize = DefaultMaxImageSize
	}
	if c.OCR.MaxImageSize < 64 {
		return errors.New(errors.ErrCodeConfig, "invalid ocr.max_image_size %d (must be at least 64)", c.OCR.MaxImageSize)
	}
	if c.OCR.Concurrency <= 0 {
		c.OCR.Concurrency = DefaultConcurrency
	}

	if c.Cache.Dir == "" {
		if dir, err := DefaultCacheDir(); err == nil {
			c.Cache.Dir = dir
		}
	}
	if c.Cache.TTL.Duration <= 0 {
		c.Cache.TTL = Duration{DefaultCacheTTL}
	}

	if c.Output.Dir == "" {
		c.Output.Dir = DefaultOutputDir
	}
	c.Output.Format = strings.ToLower(c.Output.Format)
	if c.Output.Format == "" {
		c.Output.Format = DefaultOutputFormat
	}
	if !ValidFormats[c.Output.Format] {
		return errors.New(errors.ErrCodeConfig, "invalid output.format %q (must be one of: drawio, mermaid, dot, all)", c.Output.Format)
	}

	c.validated = true
	return nil
}
