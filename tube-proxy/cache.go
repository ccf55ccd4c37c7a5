package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/pebble/v2"
)

// responseCache keeps upstream API responses in a PebbleDB key-value store
// with a per-entry TTL. A nil cache is valid and caches nothing, so the
// proxy runs fine without a data directory.
type responseCache struct {
	db  *pebble.DB
	now func() time.Time
}

type cacheEntry struct {
	Expires time.Time       `json:"expires"`
	Body    json.RawMessage `json:"body"`
}

func openResponseCache(dir string) (*responseCache, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := pebble.Open(filepath.Clean(dir), &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &responseCache{db: db, now: time.Now}, nil
}

// Get returns the cached body for key, expiring stale entries lazily.
func (c *responseCache) Get(key string) (json.RawMessage, bool) {
	if c == nil || c.db == nil {
		return nil, false
	}
	val, closer, err := c.db.Get([]byte(key))
	if err != nil {
		return nil, false
	}
	var e cacheEntry
	uerr := json.Unmarshal(val, &e)
	_ = closer.Close()
	if uerr != nil {
		return nil, false
	}
	if c.now().After(e.Expires) {
		_ = c.db.Delete([]byte(key), pebble.NoSync)
		return nil, false
	}
	return e.Body, true
}

// Put stores body under key for ttl.
func (c *responseCache) Put(key string, body json.RawMessage, ttl time.Duration) error {
	if c == nil || c.db == nil {
		return nil
	}
	val, err := json.Marshal(cacheEntry{Expires: c.now().Add(ttl), Body: body})
	if err != nil {
		return err
	}
	return c.db.Set([]byte(key), val, pebble.NoSync)
}

func (c *responseCache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	if err := c.db.Close(); err != nil && !errors.Is(err, pebble.ErrClosed) {
		return err
	}
	return nil
}
