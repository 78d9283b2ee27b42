package ocr

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/FransAris/visio-to-xml/internal/cache"
)

// CachingEngine serves repeated recognitions of the same image from a file
// cache instead of the wrapped engine. Only successful results are cached.
type CachingEngine struct {
	engine Engine
	cache  *cache.Cache
}

// NewCachingEngine wraps engine with the given cache.
func NewCachingEngine(engine Engine, c *cache.Cache) *CachingEngine {
	return &CachingEngine{engine: engine, cache: c}
}

func (e *CachingEngine) Name() string { return e.engine.Name() }

// Recognize returns the cached result when present, otherwise delegates
// and stores the outcome.
func (e *CachingEngine) Recognize(ctx context.Context, img Input) (Result, error) {
	key := cacheKey(e.engine.Name(), img)

	var cached Result
	if ok, _ := e.cache.Get(key, &cached); ok {
		return cached, nil
	}

	res, err := e.engine.Recognize(ctx, img)
	if err != nil {
		return Result{}, err
	}
	_ = e.cache.Set(key, res)
	return res, nil
}

// cacheKey derives a stable key from the image bytes, the engine name, and
// the language hints, so changing any of them misses the cache.
func cacheKey(engine string, img Input) string {
	h := sha256.New()
	h.Write(img.Bytes)
	h.Write([]byte(engine))
	h.Write([]byte(strings.Join(img.Languages, "+")))
	return hex.EncodeToString(h.Sum(nil))
}
