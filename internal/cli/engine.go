package cli

import (
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/FransAris/visio-to-xml/internal/cache"
	"github.com/FransAris/visio-to-xml/internal/config"
	"github.com/FransAris/visio-to-xml/ocr"
)

// Retry settings for the hosted vision API.
const (
	visionRetryAttempts = 3
	visionRetryDelay    = time.Second
)

// buildEngine constructs the recognition engine described by cfg, wrapped
// in a result cache when one can be opened. It returns nil when
// recognition is disabled or not usable, logging the reason, so callers
// can convert without enrichment instead of failing.
func buildEngine(cfg *config.Config, logger *log.Logger) ocr.Engine {
	if !cfg.OCR.Enabled {
		logger.Debug("recognition disabled by configuration")
		return nil
	}

	var engine ocr.Engine
	switch cfg.OCR.Engine {
	case "tesseract":
		engine = ocr.NewTesseractEngine()
	default:
		key := visionAPIKey(cfg)
		if key == "" {
			logger.Warn("no vision api key configured, image labels stay as parsed",
				"hint", "set "+config.EnvPrefix+"OCR_API_KEY or MISTRAL_API_KEY")
			return nil
		}
		engine = ocr.NewVisionEngine(cfg.OCR.APIURL, key,
			ocr.WithVisionRetry(visionRetryAttempts, visionRetryDelay))
	}

	c, err := cache.New(cfg.Cache.Dir, cfg.Cache.TTL.Duration)
	if err != nil {
		logger.Warn("recognition cache unavailable", "err", err)
		return engine
	}
	return ocr.NewCachingEngine(engine, c)
}

// visionAPIKey returns the configured API key, falling back to the
// MISTRAL_API_KEY environment variable.
func visionAPIKey(cfg *config.Config) string {
	if cfg.OCR.APIKey != "" {
		return cfg.OCR.APIKey
	}
	return os.Getenv("MISTRAL_API_KEY")
}
