package index

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/google/renameio"
)

// cacheEntry pairs an article's content hash with its embedding, so a changed
// article text invalidates the cached vector automatically.
type cacheEntry struct {
	Hash   string    `json:"hash"`
	Vector []float32 `json:"vector"`
}

// vectorCache is the on-disk embedding cache: one JSON object keyed by
// article ID. Writes go through an atomic replace guarded by a file lock, so
// concurrent builders on the same cache path never interleave partial files.
type vectorCache struct {
	path    string
	entries map[string]cacheEntry
}

// ContentHash returns the hex SHA-1 of an article text, the cache
// invalidation key.
func ContentHash(text string) string {
	sum := sha1.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}

// loadVectorCache reads the cache file at path. A missing file yields an
// empty cache; a corrupt file is discarded with a warning rather than
// aborting the index build.
func loadVectorCache(path string) *vectorCache {
	c := &vectorCache{
		path:    path,
		entries: make(map[string]cacheEntry),
	}
	if path == "" {
		return c
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("embedding_cache_unreadable",
				slog.String("path", path),
				slog.String("error", err.Error()))
		}
		return c
	}
	if err := json.Unmarshal(data, &c.entries); err != nil {
		slog.Warn("embedding_cache_corrupt",
			slog.String("path", path),
			slog.String("error", err.Error()))
		c.entries = make(map[string]cacheEntry)
	}
	return c
}

// get returns the cached vector for articleID when its content hash matches.
func (c *vectorCache) get(articleID, hash string) ([]float32, bool) {
	entry, ok := c.entries[articleID]
	if !ok || entry.Hash != hash || len(entry.Vector) == 0 {
		return nil, false
	}
	return entry.Vector, true
}

// put stores a vector. Empty vectors are never cached: a placeholder from a
// failed provider call must be retried on the next build.
func (c *vectorCache) put(articleID, hash string, vector []float32) {
	if len(vector) == 0 {
		return
	}
	c.entries[articleID] = cacheEntry{Hash: hash, Vector: vector}
}

// persist writes the cache atomically under a sibling .lock file. Called
// after every embedded batch, so an interrupted build keeps its progress.
func (c *vectorCache) persist() error {
	if c.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	lock := flock.New(c.path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock embedding cache: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	data, err := json.Marshal(c.entries)
	if err != nil {
		return fmt.Errorf("marshal embedding cache: %w", err)
	}
	if err := renameio.WriteFile(c.path, data, 0o644); err != nil {
		return fmt.Errorf("write embedding cache: %w", err)
	}
	return nil
}
