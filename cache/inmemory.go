package cache

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"time"
)

type value struct {
	object       any
	created      time.Time
	expires      time.Time
	lastAccessed time.Time
	hits         int
	seq          uint64
}

func (v *value) expired(now time.Time) bool {
	return now.After(v.expires)
}

// detach copies encoded payloads so the cache and its callers never share
// a backing array.
func detach(val any) any {
	if b, ok := val.([]byte); ok {
		return bytes.Clone(b)
	}
	return val
}

type inMemoryCache struct {
	ctx       context.Context
	cancel    context.CancelFunc
	cache     map[string]*value
	seq       uint64
	mutex     sync.Mutex
	waitGroup sync.WaitGroup
	once      sync.Once
	cfg       config
}

var _ Cache = (*inMemoryCache)(nil)

func (c *inMemoryCache) Get(_ context.Context, key string) (bool, any, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	val, ok := c.cache[key]
	if !ok {
		return false, nil, nil
	}
	now := c.cfg.now()
	if val.expired(now) {
		delete(c.cache, key)
		return false, nil, nil
	}
	val.lastAccessed = now
	val.hits++
	return true, detach(val.object), nil
}

func (c *inMemoryCache) Hits(_ context.Context, key string) (bool, int) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if v, ok := c.cache[key]; ok {
		return true, v.hits
	}
	return false, 0
}

func (c *inMemoryCache) Set(_ context.Context, key string, val any, expires time.Duration) error {
	if expires <= 0 {
		expires = c.cfg.defaultExpires
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	now := c.cfg.now()
	if v, ok := c.cache[key]; ok {
		v.object = detach(val)
		v.hits = 0
		v.expires = now.Add(expires)
		v.lastAccessed = now
		return nil
	}
	c.purgeExpired(now)
	if len(c.cache) >= c.cfg.capacity {
		c.evictLRU()
	}
	c.seq++
	c.cache[key] = &value{
		object:       detach(val),
		created:      now,
		expires:      now.Add(expires),
		lastAccessed: now,
		seq:          c.seq,
	}
	return nil
}

// purgeExpired must be called with the mutex held.
func (c *inMemoryCache) purgeExpired(now time.Time) int {
	var count int
	for key, val := range c.cache {
		if val.expired(now) {
			delete(c.cache, key)
			count++
		}
	}
	return count
}

// evictLRU removes the entry with the oldest access time, the earliest
// inserted one on a tie. Must be called with the mutex held.
func (c *inMemoryCache) evictLRU() {
	var oldestKey string
	var oldest *value
	for key, val := range c.cache {
		if oldest == nil ||
			val.lastAccessed.Before(oldest.lastAccessed) ||
			(val.lastAccessed.Equal(oldest.lastAccessed) && val.seq < oldest.seq) {
			oldest = val
			oldestKey = key
		}
	}
	if oldest != nil {
		delete(c.cache, oldestKey)
	}
}

func (c *inMemoryCache) Delete(_ context.Context, key string) (bool, error) {
	c.mutex.Lock()
	_, ok := c.cache[key]
	if ok {
		delete(c.cache, key)
	}
	c.mutex.Unlock()
	return ok, nil
}

func (c *inMemoryCache) Clear(_ context.Context) error {
	c.mutex.Lock()
	c.cache = make(map[string]*value)
	c.mutex.Unlock()
	return nil
}

func (c *inMemoryCache) InvalidatePattern(_ context.Context, pattern string) (int, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	var count int
	for key := range c.cache {
		if strings.Contains(key, pattern) {
			delete(c.cache, key)
			count++
		}
	}
	return count, nil
}

func (c *inMemoryCache) Entry(_ context.Context, key string) (Entry, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	v, ok := c.cache[key]
	if !ok {
		return Entry{}, false
	}
	return Entry{
		Key:            key,
		Value:          detach(v.object),
		CreatedAt:      v.created,
		ExpiresAt:      v.expires,
		LastAccessedAt: v.lastAccessed,
		Hits:           v.hits,
	}, true
}

func (c *inMemoryCache) Stats(_ context.Context) Stats {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	now := c.cfg.now()
	stats := Stats{Total: len(c.cache), MaxSize: c.cfg.capacity}
	for _, val := range c.cache {
		if val.expired(now) {
			stats.Expired++
		} else {
			stats.Valid++
		}
	}
	return stats
}

func (c *inMemoryCache) Close() error {
	c.once.Do(func() {
		c.cancel()
		c.waitGroup.Wait()
	})
	return nil
}

func (c *inMemoryCache) run() {
	defer c.waitGroup.Done()
	ticker := time.NewTicker(c.cfg.expiryCheck)
	defer ticker.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.mutex.Lock()
			c.purgeExpired(c.cfg.now())
			c.mutex.Unlock()
		}
	}
}

// NewInMemory returns a new in-memory Cache bounded by the configured
// capacity. Expired entries never count against the capacity: they are
// purged before any eviction decision is made.
func NewInMemory(parent context.Context, opts ...Option) Cache {
	cfg := applyOptions(opts)
	ctx, cancel := context.WithCancel(parent)
	c := &inMemoryCache{
		ctx:    ctx,
		cancel: cancel,
		cache:  make(map[string]*value),
		cfg:    cfg,
	}
	if cfg.expiryCheck > 0 {
		c.waitGroup.Add(1)
		go c.run()
	}
	return c
}
