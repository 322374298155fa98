package catalog

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// DefaultCacheSize is used when NewCache is given a non-positive size.
const DefaultCacheSize = 16

// Cache maps a source identity (a file path and mtime, an upload hash) to the
// catalog already built from it. Concurrent loads of the same key share one
// call. Failed loads are not cached.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*Catalog
	order   []string
	max     int

	group singleflight.Group
}

// NewCache creates a cache holding at most size catalogs.
func NewCache(size int) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &Cache{
		entries: make(map[string]*Catalog),
		max:     size,
	}
}

// Get returns the cached catalog for key.
func (c *Cache) Get(key string) (*Catalog, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cat, ok := c.entries[key]
	return cat, ok
}

// Put stores cat under key, evicting the oldest entry when full.
func (c *Cache) Put(key string, cat *Catalog) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		c.entries[key] = cat
		return
	}

	for len(c.order) >= c.max {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[key] = cat
	c.order = append(c.order, key)
}

// GetOrLoad returns the cached catalog for key, calling load on a miss.
// The bool result reports whether the catalog came from the cache.
func (c *Cache) GetOrLoad(key string, load func() (*Catalog, error)) (*Catalog, bool, error) {
	if cat, ok := c.Get(key); ok {
		return cat, true, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		if cat, ok := c.Get(key); ok {
			return cat, nil
		}
		cat, err := load()
		if err != nil {
			return nil, err
		}
		c.Put(key, cat)
		return cat, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*Catalog), false, nil
}

// Len returns the number of cached catalogs.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
