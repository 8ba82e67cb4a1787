package builder

import (
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// BuildFunc compiles the file at path and returns its artifact.
type BuildFunc func(path string) (*Template, error)

// Cache is a path-keyed artifact cache with modification-time invalidation.
// Concurrent lookups of the same path share a single in-flight build.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*Template
	group   singleflight.Group
	log     *slog.Logger
}

// NewCache returns an empty Cache logging through log. A nil log discards.
func NewCache(log *slog.Logger) *Cache {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Cache{entries: map[string]*Template{}, log: log}
}

// Get returns the cached artifact for path if its recorded modification
// time is not older than mtime, rebuilding through build otherwise. A
// failed build leaves any stale entry untouched and returns the error.
func (c *Cache) Get(path string, mtime time.Time, build BuildFunc) (*Template, error) {
	c.mu.RLock()
	t, ok := c.entries[path]
	c.mu.RUnlock()
	if ok && !t.MTime.Before(mtime) {
		return t, nil
	}

	v, err, shared := c.group.Do(path, func() (any, error) {
		// Re-check under the flight: a concurrent caller may have
		// completed the rebuild while this one was queued.
		c.mu.RLock()
		t, ok := c.entries[path]
		c.mu.RUnlock()
		if ok && !t.MTime.Before(mtime) {
			return t, nil
		}

		built, err := build(path)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[path] = built
		c.mu.Unlock()
		return built, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.log.Debug("shared in-flight build", "path", path)
	}
	return v.(*Template), nil
}

// Ready reports whether path has a cached artifact no older than mtime.
func (c *Cache) Ready(path string, mtime time.Time) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.entries[path]
	return ok && !t.MTime.Before(mtime)
}

// Peek returns the cached artifact for path regardless of freshness.
func (c *Cache) Peek(path string) (*Template, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.entries[path]
	return t, ok
}

// Clear drops the entry for path.
func (c *Cache) Clear(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, path)
}

// ClearAll drops every entry.
func (c *Cache) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[string]*Template{}
}

// Len reports the number of cached artifacts.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
