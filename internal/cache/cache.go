// Package cache provides file-based caching of JSON-marshalable values,
// used to keep recognition results across runs.
//
// Entries are JSON files named by the SHA-256 hash of their key, so keys
// may be arbitrarily long and contain any characters. Expiry is based on
// file modification time; a TTL of 0 means entries never expire.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"
)

// ErrExpired is returned by [Cache.Get] when an entry exists but has
// exceeded its time-to-live. The stale file stays on disk until the next
// Set or Clear.
var ErrExpired = errors.New("cache entry expired")

// Cache stores entries in a single directory. Instances are safe to share
// across processes, the filesystem provides atomic file operations, but a
// single instance is not goroutine-safe for the same key.
type Cache struct {
	dir string
	ttl time.Duration
}

// New creates a Cache rooted at dir with the given TTL. An empty dir
// selects ~/.cache/visio2xml. The directory is created if needed.
func New(dir string, ttl time.Duration) (*Cache, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(home, ".cache", "visio2xml")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir, ttl: ttl}, nil
}

// Dir returns the cache directory.
func (c *Cache) Dir() string { return c.dir }

// TTL returns the entry time-to-live. Zero means no expiry.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Get reads the entry for key into v. It returns (true, nil) on a fresh
// hit, (false, nil) on a miss, and (false, ErrExpired) when the entry
// exists but is stale.
func (c *Cache) Get(key string, v any) (bool, error) {
	path := c.keyPath(key)
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if c.ttl > 0 && time.Since(info.ModTime()) > c.ttl {
		return false, ErrExpired
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(data, v)
}

// Set stores v under key, replacing any previous entry and refreshing its
// TTL.
func (c *Cache) Set(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return os.WriteFile(c.keyPath(key), data, 0o644)
}

// Stats summarizes the cache contents.
type Stats struct {
	Entries int
	Bytes   int64
	Oldest  time.Time
}

// Stats walks the cache directory and reports entry count, total size, and
// the oldest entry's modification time.
func (c *Cache) Stats() (Stats, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return Stats{}, err
	}
	var st Stats
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		st.Entries++
		st.Bytes += info.Size()
		if st.Oldest.IsZero() || info.ModTime().Before(st.Oldest) {
			st.Oldest = info.ModTime()
		}
	}
	return st, nil
}

// Clear removes every entry and returns how many were removed.
func (c *Cache) Clear() (int, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, e.Name())); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func (c *Cache) keyPath(key string) string {
	h := sha256.Sum256([]byte(key))
	return filepath.Join(c.dir, hex.EncodeToString(h[:]))
}
