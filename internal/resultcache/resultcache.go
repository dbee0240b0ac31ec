// Package resultcache memoizes aggregate results in a key-value store.
package resultcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Store is a key-value store of opaque values.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// MemoryStore is a process-local Store. Entries live until the store is
// discarded.
type MemoryStore struct {
	entries sync.Map
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Get returns the value stored under key.
func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.entries.Load(key)
	if !ok {
		return nil, false, nil
	}
	return v.([]byte), true, nil
}

// Set stores value under key.
func (m *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	m.entries.Store(key, append([]byte(nil), value...))
	return nil
}

// Cache serializes results as JSON into a Store.
type Cache struct {
	store  Store
	prefix string
	logger *zap.Logger
}

// New creates a cache over store. Keys are namespaced with prefix.
func New(store Store, prefix string) *Cache {
	return &Cache{
		store:  store,
		prefix: prefix,
		logger: zap.NewNop(),
	}
}

// SetLogger sets the logger for cache warnings.
func (c *Cache) SetLogger(l *zap.Logger) {
	c.logger = l
}

// Key returns a fixed-length key fingerprinting parts. It may be called on
// a nil cache.
func (c *Cache) Key(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	if c == nil {
		return hex.EncodeToString(sum[:])
	}
	return c.prefix + hex.EncodeToString(sum[:])
}

// Do returns the cached value under key, or computes, stores and returns it
// on a miss. A nil cache always computes. Store failures are logged and
// the value is computed without caching; compute errors are returned and
// never cached. Concurrent misses on one key may compute more than once.
func Do[T any](ctx context.Context, c *Cache, key string, compute func(context.Context) (T, error)) (T, error) {
	if c == nil {
		return compute(ctx)
	}

	data, ok, err := c.store.Get(ctx, key)
	switch {
	case err != nil:
		c.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
	case ok:
		var v T
		err := json.Unmarshal(data, &v)
		if err == nil {
			c.logger.Debug("cache hit", zap.String("key", key))
			return v, nil
		}
		c.logger.Warn("discarding unreadable cache entry", zap.String("key", key), zap.Error(err))
	}

	v, err := compute(ctx)
	if err != nil {
		return v, err
	}

	data, err = json.Marshal(v)
	if err != nil {
		c.logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return v, nil
	}
	if err := c.store.Set(ctx, key, data); err != nil {
		c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
	return v, nil
}
