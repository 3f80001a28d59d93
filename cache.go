package restql

import (
	"context"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/syssam/restql/querylanguage"
	"github.com/syssam/restql/schema"
)

// Cache is the interface for caching introspected schemas. The core never
// caches on its own; callers opt in by wrapping their schema loader with
// NewSchemaCache and an implementation of this interface (in-memory,
// Redis, Memcached).
type Cache interface {
	// Get retrieves a value from the cache.
	// Returns nil, nil if the key doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache with an optional TTL.
	// If ttl is 0, the value should not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from the cache.
	Delete(ctx context.Context, key string) error
}

// SchemaCache decorates a SchemaLoader with snapshot caching. Snapshots
// are msgpack-encoded; a stale or undecodable entry falls through to the
// underlying loader.
type SchemaCache struct {
	loader querylanguage.SchemaLoader
	cache  Cache
	ttl    time.Duration
}

// NewSchemaCache returns a caching decorator over the given loader.
func NewSchemaCache(loader querylanguage.SchemaLoader, cache Cache, ttl time.Duration) *SchemaCache {
	return &SchemaCache{loader: loader, cache: cache, ttl: ttl}
}

func schemaCacheKey(table string) string {
	return "restql:schema:" + table
}

// Schema implements querylanguage.SchemaLoader.
func (c *SchemaCache) Schema(ctx context.Context, table string) (*schema.Schema, error) {
	if raw, err := c.cache.Get(ctx, schemaCacheKey(table)); err == nil && raw != nil {
		var s schema.Schema
		if err := msgpack.Unmarshal(raw, &s); err == nil {
			return &s, nil
		}
	}
	s, err := c.loader.Schema(ctx, table)
	if err != nil {
		return nil, err
	}
	if raw, err := msgpack.Marshal(s); err == nil {
		// Best effort; a write failure must not fail the lookup.
		_ = c.cache.Set(ctx, schemaCacheKey(table), raw, c.ttl)
	}
	return s, nil
}

// Invalidate drops the cached snapshot for a table, e.g. after a
// migration.
func (c *SchemaCache) Invalidate(ctx context.Context, table string) error {
	return c.cache.Delete(ctx, schemaCacheKey(table))
}
