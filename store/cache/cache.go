package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Config holds the configuration for a Cache.
type Config struct {
	// DefaultTTL is applied by Set. Zero means entries never expire.
	DefaultTTL time.Duration
	// CleanupInterval is how often expired entries are swept. Zero disables
	// the background sweeper; expired entries are still dropped lazily on Get.
	CleanupInterval time.Duration
	// MaxItems bounds the cache size. Zero means unbounded. When full, Set
	// evicts an arbitrary existing entry.
	MaxItems int
	// OnEviction is called for every removed entry, if set.
	OnEviction func(key string, value any)
}

type item struct {
	value     any
	expiresAt time.Time // zero means no expiry
}

func (i *item) expired(now time.Time) bool {
	return !i.expiresAt.IsZero() && now.After(i.expiresAt)
}

// Cache is an in-memory TTL cache with optional background cleanup.
type Cache struct {
	config Config

	data sync.Map
	size atomic.Int64

	closeOnce sync.Once
	done      chan struct{}
}

// New creates a new Cache and starts its cleanup goroutine when a
// CleanupInterval is configured.
func New(config Config) *Cache {
	c := &Cache{
		config: config,
		done:   make(chan struct{}),
	}
	if config.CleanupInterval > 0 {
		go c.cleanupLoop()
	}
	return c
}

func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(c.config.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case now := <-ticker.C:
			c.data.Range(func(key, value any) bool {
				if it, ok := value.(*item); ok && it.expired(now) {
					c.evict(key.(string), it)
				}
				return true
			})
		}
	}
}

func (c *Cache) evict(key string, it *item) {
	if _, loaded := c.data.LoadAndDelete(key); loaded {
		c.size.Add(-1)
		if c.config.OnEviction != nil {
			c.config.OnEviction(key, it.value)
		}
	}
}

// Get returns the cached value for key, dropping it when expired.
func (c *Cache) Get(_ context.Context, key string) (any, bool) {
	value, ok := c.data.Load(key)
	if !ok {
		return nil, false
	}
	it := value.(*item)
	if it.expired(time.Now()) {
		c.evict(key, it)
		return nil, false
	}
	return it.value, true
}

// Set stores a value under the default TTL.
func (c *Cache) Set(ctx context.Context, key string, value any) {
	c.SetWithTTL(ctx, key, value, c.config.DefaultTTL)
}

// SetWithTTL stores a value with an explicit TTL. Zero TTL means no expiry.
func (c *Cache) SetWithTTL(_ context.Context, key string, value any, ttl time.Duration) {
	it := &item{value: value}
	if ttl > 0 {
		it.expiresAt = time.Now().Add(ttl)
	}

	if c.config.MaxItems > 0 && c.size.Load() >= int64(c.config.MaxItems) {
		if _, exists := c.data.Load(key); !exists {
			c.evictOne()
		}
	}

	if _, loaded := c.data.Swap(key, it); !loaded {
		c.size.Add(1)
	}
}

// evictOne removes an arbitrary entry, preferring an expired one.
func (c *Cache) evictOne() {
	now := time.Now()
	var fallbackKey string
	var fallbackItem *item
	evicted := false
	c.data.Range(func(key, value any) bool {
		it := value.(*item)
		if it.expired(now) {
			c.evict(key.(string), it)
			evicted = true
			return false
		}
		if fallbackItem == nil {
			fallbackKey, fallbackItem = key.(string), it
		}
		return true
	})
	if !evicted && fallbackItem != nil {
		c.evict(fallbackKey, fallbackItem)
	}
}

// Delete removes a value.
func (c *Cache) Delete(_ context.Context, key string) {
	if value, loaded := c.data.LoadAndDelete(key); loaded {
		c.size.Add(-1)
		if c.config.OnEviction != nil {
			c.config.OnEviction(key, value.(*item).value)
		}
	}
}

// Clear removes every value.
func (c *Cache) Clear(ctx context.Context) {
	c.data.Range(func(key, _ any) bool {
		c.Delete(ctx, key.(string))
		return true
	})
}

// Keys returns the keys of all live entries.
func (c *Cache) Keys() []string {
	now := time.Now()
	keys := []string{}
	c.data.Range(func(key, value any) bool {
		if it := value.(*item); !it.expired(now) {
			keys = append(keys, key.(string))
		}
		return true
	})
	return keys
}

// Size returns the number of stored entries, including not-yet-swept expired
// ones.
func (c *Cache) Size() int64 {
	return c.size.Load()
}

// Close stops the cleanup goroutine.
func (c *Cache) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
	})
	return nil
}
