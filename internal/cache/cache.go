// Package cache memoizes expensive fetches. Concurrent misses for one key
// share a single fetch; entries past their TTL are served while a refresh
// runs in the background.
package cache

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

const DefaultTTL = 10 * time.Minute

type CacheEntry[T any] struct {
	value     T
	fetchedAt time.Time
}

type Cache[T any] struct {
	entries *lru.Cache[string, CacheEntry[T]]
	sfg     singleflight.Group
	ttl     time.Duration
	now     func() time.Time
}

// New returns a cache holding at most size entries.
func New[T any](size int, ttl time.Duration) (*Cache[T], error) {
	entries, err := lru.New[string, CacheEntry[T]](size)
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache[T]{entries: entries, ttl: ttl, now: time.Now}, nil
}

// Get returns the cached value for key or calls fn to fetch it. Failed
// fetches are not cached.
func (c *Cache[T]) Get(key string, fn func() (T, error)) (T, error) {
	entry, ok := c.entries.Get(key)
	if ok {
		if c.now().Sub(entry.fetchedAt) > c.ttl {
			go func() {
				c.sfg.Do(key, func() (any, error) {
					result, err := fn()
					if err == nil {
						c.entries.Add(key, CacheEntry[T]{value: result, fetchedAt: c.now()})
					}
					return nil, nil
				})
			}()
		}
		return entry.value, nil
	}

	v, err, _ := c.sfg.Do(key, func() (any, error) {
		if e, ok := c.entries.Get(key); ok {
			return e, nil
		}
		res, err := fn()
		if err != nil {
			return nil, err
		}
		newEntry := CacheEntry[T]{value: res, fetchedAt: c.now()}
		c.entries.Add(key, newEntry)
		return newEntry, nil
	})

	if err != nil {
		var zero T
		return zero, err
	}
	return v.(CacheEntry[T]).value, nil
}

func (c *Cache[T]) Remove(key string) {
	c.entries.Remove(key)
}

func (c *Cache[T]) Len() int {
	return c.entries.Len()
}
