package loadercache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mpapenbr/racesim-core-go/log"
	"github.com/mpapenbr/racesim-core-go/pkg/utils/cache"
)

// based on github.com/kittpat1413/go-common/framework/cache/localcache/localcache.go

type (
	Option[K comparable, V any] func(*config[K, V])
	item[T any]                 struct {
		data    T
		expires *time.Time
	}
	loaderFunc[K comparable, V any] func(context.Context, K) (*V, error)
	config[K comparable, V any]     struct {
		expiration time.Duration
		loader     loaderFunc[K, V]
		l          *log.Logger
	}
	loaderCache[K comparable, V any] struct {
		mutex  sync.RWMutex
		group  singleflight.Group
		items  map[K]item[*V]
		config *config[K, V]
	}
)

// WithExpiration marks entries stale after the given duration. Without
// it entries live for the process lifetime.
func WithExpiration[K comparable, V any](expiration time.Duration) Option[K, V] {
	return func(c *config[K, V]) {
		c.expiration = expiration
	}
}

func WithLoader[K comparable, V any](lf loaderFunc[K, V]) Option[K, V] {
	return func(c *config[K, V]) {
		c.loader = lf
	}
}

func WithLogger[K comparable, V any](arg *log.Logger) Option[K, V] {
	return func(c *config[K, V]) {
		c.l = arg
	}
}

func New[K comparable, V any](opts ...Option[K, V]) cache.Cache[K, V] {
	c := &config[K, V]{
		l: log.Default().Named("cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return &loaderCache[K, V]{
		items:  make(map[K]item[*V]),
		config: c,
	}
}

// Get returns the cached entry or builds it via the loader. Concurrent
// requests for the same key share a single load, entries are replaced
// atomically and failed loads are not cached.
func (c *loaderCache[K, V]) Get(ctx context.Context, key K) (*V, error) {
	if v, ok := c.lookup(key); ok {
		return v, nil
	}
	v, err, _ := c.group.Do(flightKey(key), func() (any, error) {
		// another flight may have stored the entry in the meantime
		if v, ok := c.lookup(key); ok {
			return v, nil
		}
		return c.load(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	ret, _ := v.(*V)
	return ret, nil
}

func (c *loaderCache[K, V]) Invalidate(ctx context.Context, key K) {
	c.mutex.Lock()
	delete(c.items, key)
	remain := len(c.items)
	c.mutex.Unlock()
	c.group.Forget(flightKey(key))
	c.config.l.Debug("Invalidate", log.Any("key", key), log.Int("remain items", remain))
}

func (c *loaderCache[K, V]) InvalidateAll(ctx context.Context) {
	c.mutex.Lock()
	keys := make([]K, 0, len(c.items))
	for k := range c.items {
		keys = append(keys, k)
	}
	clear(c.items)
	c.mutex.Unlock()
	for _, k := range keys {
		c.group.Forget(flightKey(k))
	}
	c.config.l.Debug("InvalidateAll", log.Int("invalidated", len(keys)))
}

func (c *loaderCache[K, V]) lookup(key K) (*V, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	cacheItem, ok := c.items[key]
	if !ok {
		return nil, false
	}
	if cacheItem.expires != nil && cacheItem.expires.Before(time.Now()) {
		return nil, false
	}
	return cacheItem.data, true
}

func (c *loaderCache[K, V]) load(ctx context.Context, key K) (*V, error) {
	if c.config.loader == nil {
		return nil, cache.ErrCacheMiss
	}
	v, err := c.config.loader(ctx, key)
	c.config.l.Debug("loaderCache.load", log.Any("key", key))
	if err != nil {
		c.config.l.Error("error loading entry", log.ErrorField(err))
		return nil, err
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	newItem := item[*V]{data: v}
	if c.config.expiration > 0 {
		expires := time.Now().Add(c.config.expiration)
		newItem.expires = &expires
	}
	c.items[key] = newItem
	return v, nil
}

func flightKey[K comparable](key K) string {
	return fmt.Sprint(key)
}
