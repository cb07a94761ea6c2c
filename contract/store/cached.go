package store

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

type cacheEntry struct {
	value *string
}

// Cached is a read-through LRU in front of another Backend. Misses are cached too.
type Cached struct {
	inner Backend
	cache *lru.Cache[string, cacheEntry]
}

func NewCached(inner Backend, size int) (*Cached, error) {
	c, err := lru.New[string, cacheEntry](size)
	if err != nil {
		return nil, err
	}
	return &Cached{inner: inner, cache: c}, nil
}

func (c *Cached) Load(key string) (*string, error) {
	if e, ok := c.cache.Get(key); ok {
		return copyValue(e.value), nil
	}
	v, err := c.inner.Load(key)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, cacheEntry{value: copyValue(v)})
	return v, nil
}

func (c *Cached) Apply(changes []Change) error {
	if err := c.inner.Apply(changes); err != nil {
		// the inner write may have partially landed; forget everything it touched
		for _, ch := range changes {
			c.cache.Remove(ch.Key)
		}
		return err
	}
	for _, ch := range changes {
		c.cache.Add(ch.Key, cacheEntry{value: copyValue(ch.Value)})
	}
	return nil
}

func (c *Cached) Close() error {
	c.cache.Purge()
	return c.inner.Close()
}

// Stats returns the number of cached keys.
func (c *Cached) Stats() int {
	return c.cache.Len()
}

func copyValue(v *string) *string {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
