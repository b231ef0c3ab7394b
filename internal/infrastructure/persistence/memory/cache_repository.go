// Package memory provides an in-process cache used when Redis is disabled.
package memory

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/tymenu/tymenu/internal/ports/outbound"
)

type cacheItem struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

func (i cacheItem) expired(now time.Time) bool {
	return !i.expiresAt.IsZero() && now.After(i.expiresAt)
}

// CacheRepository implements outbound.CacheRepository in memory.
type CacheRepository struct {
	data  map[string]cacheItem
	mutex sync.Mutex
	now   func() time.Time
	stop  chan struct{}
	once  sync.Once
}

// NewCacheRepository starts a janitor that evicts expired items every
// interval until Close is called.
func NewCacheRepository(interval time.Duration) *CacheRepository {
	repo := &CacheRepository{
		data: make(map[string]cacheItem),
		now:  time.Now,
		stop: make(chan struct{}),
	}
	if interval > 0 {
		go repo.cleanup(interval)
	}
	return repo
}

var _ outbound.CacheRepository = (*CacheRepository)(nil)

func (r *CacheRepository) Get(_ context.Context, key string) ([]byte, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	item, ok := r.lookup(key)
	if !ok {
		return nil, outbound.ErrCacheMiss
	}
	out := make([]byte, len(item.value))
	copy(out, item.value)
	return out, nil
}

// Set stores value; a zero ttl keeps the key until deleted.
func (r *CacheRepository) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	item := cacheItem{value: append([]byte(nil), value...)}
	if ttl > 0 {
		item.expiresAt = r.now().Add(ttl)
	}
	r.data[key] = item
	return nil
}

func (r *CacheRepository) Delete(_ context.Context, keys ...string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, k := range keys {
		delete(r.data, k)
	}
	return nil
}

func (r *CacheRepository) Exists(_ context.Context, key string) (bool, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	_, ok := r.lookup(key)
	return ok, nil
}

// Increment bumps a decimal counter that expires ttl after it was created.
func (r *CacheRepository) Increment(_ context.Context, key string, ttl time.Duration) (int64, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	item, ok := r.lookup(key)
	var n int64
	if ok {
		parsed, err := strconv.ParseInt(string(item.value), 10, 64)
		if err != nil {
			return 0, err
		}
		n = parsed
	} else if ttl > 0 {
		item.expiresAt = r.now().Add(ttl)
	}
	n++
	item.value = []byte(strconv.FormatInt(n, 10))
	r.data[key] = item
	return n, nil
}

// Close stops the janitor.
func (r *CacheRepository) Close() {
	r.once.Do(func() { close(r.stop) })
}

// lookup must be called with the mutex held.
func (r *CacheRepository) lookup(key string) (cacheItem, bool) {
	item, ok := r.data[key]
	if !ok {
		return cacheItem{}, false
	}
	if item.expired(r.now()) {
		delete(r.data, key)
		return cacheItem{}, false
	}
	return item, true
}

func (r *CacheRepository) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.mutex.Lock()
			now := r.now()
			for key, item := range r.data {
				if item.expired(now) {
					delete(r.data, key)
				}
			}
			r.mutex.Unlock()
		case <-r.stop:
			return
		}
	}
}
