// Package cache provides the durable key/value caches of the collection
// pipeline.
//
// A Cache is a typed, in-memory view of one storage namespace. Reads are
// served from memory after Open. Set only marks a key dirty; Flush writes the
// dirty keys through the backing store and must be called after each unit of
// work (one pair, one page, one detail fetch) so an interruption loses at most
// that unit.
package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/samber/lo"

	"github.com/utof/debtds/internal/collect/metrics"
	"github.com/utof/debtds/internal/infra/storage"
)

// Cache is a typed view of one KVStore namespace.
type Cache[V any] struct {
	namespace string
	store     storage.KVStore

	mu      sync.RWMutex
	entries map[string]V
	dirty   map[string]struct{}
}

// Flusher is anything that persists pending writes.
type Flusher interface {
	Flush(ctx context.Context) error
}

// Open loads a namespace. Entries that do not decode into V are skipped with
// a warning and will be overwritten by the next Set of that key.
func Open[V any](ctx context.Context, store storage.KVStore, namespace string) (*Cache[V], error) {
	raw, err := store.Load(ctx, namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to load cache %s: %w", namespace, err)
	}

	c := &Cache[V]{
		namespace: namespace,
		store:     store,
		entries:   make(map[string]V, len(raw)),
		dirty:     make(map[string]struct{}),
	}
	for key, data := range raw {
		var v V
		if err := json.Unmarshal(data, &v); err != nil {
			slog.Warn("Skipping unreadable cache entry", "cache", namespace, "key", key, "error", err)
			continue
		}
		c.entries[key] = v
	}

	metrics.CacheEntries.WithLabelValues(namespace).Set(float64(len(c.entries)))
	slog.Debug("Cache opened", "cache", namespace, "entries", len(c.entries))
	return c, nil
}

// Namespace returns the storage namespace of the cache.
func (c *Cache[V]) Namespace() string {
	return c.namespace
}

// Get returns the cached value for key.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	v, ok := c.entries[key]
	c.mu.RUnlock()

	result := "miss"
	if ok {
		result = "hit"
	}
	metrics.CacheLookups.WithLabelValues(c.namespace, result).Inc()
	return v, ok
}

// Peek returns the cached value without counting a lookup.
func (c *Cache[V]) Peek(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

// Has reports whether key is cached without counting a lookup.
func (c *Cache[V]) Has(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[key]
	return ok
}

// Set stores v under key. The value is persisted on the next Flush.
func (c *Cache[V]) Set(key string, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = v
	c.dirty[key] = struct{}{}
}

// Delete removes key from memory and from the store immediately.
func (c *Cache[V]) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	delete(c.dirty, key)
	c.mu.Unlock()

	if err := c.store.Delete(ctx, c.namespace, key); err != nil {
		return fmt.Errorf("failed to delete %s from %s: %w", key, c.namespace, err)
	}
	return nil
}

// Len returns the number of cached entries.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Keys returns the cached keys in sorted order.
func (c *Cache[V]) Keys() []string {
	c.mu.RLock()
	keys := lo.Keys(c.entries)
	c.mu.RUnlock()
	slices.Sort(keys)
	return keys
}

// Flush writes dirty entries to the store. Entries stay dirty if the write
// fails so a later Flush can retry them.
func (c *Cache[V]) Flush(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.dirty) == 0 {
		return nil
	}

	batch := make(map[string][]byte, len(c.dirty))
	for key := range c.dirty {
		data, err := encode(c.entries[key])
		if err != nil {
			return fmt.Errorf("failed to encode %s/%s: %w", c.namespace, key, err)
		}
		batch[key] = data
	}

	if err := c.store.Put(ctx, c.namespace, batch); err != nil {
		return fmt.Errorf("failed to flush cache %s: %w", c.namespace, err)
	}
	clear(c.dirty)
	metrics.CacheEntries.WithLabelValues(c.namespace).Set(float64(len(c.entries)))
	return nil
}

// FlushAll flushes every cache and reports all failures together.
func FlushAll(ctx context.Context, caches ...Flusher) error {
	var result *multierror.Error
	for _, c := range caches {
		if err := c.Flush(ctx); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
