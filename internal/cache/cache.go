// Package cache implements the Hot Metadata Cache (§4.8): a short-TTL,
// read-through view of a catalog.Adapter that serves table metadata
// resolution from memory and is invalidated the moment a write,
// update/delete, or compaction successfully commits a new snapshot.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/tansive/tablelake/internal/catalog"
	"github.com/tansive/tablelake/internal/types"
)

// DefaultTTL is §4.8's default metadata freshness window.
const DefaultTTL = 5 * time.Second

type entry struct {
	meta      *catalog.TableMetadata
	expiresAt time.Time
}

func (e *entry) isExpired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// Cache wraps a catalog.Adapter with a single-writer/many-reader TTL
// cache of resolved TableMetadata, and implements query.Resolver
// directly so internal/query's Executor can sit on top of it without
// depending on this package.
type Cache struct {
	Adapter catalog.Adapter
	TTL     time.Duration

	mu      sync.RWMutex
	entries map[string]*entry
}

// New wraps adapter with a cache using ttl as the freshness window. A
// zero ttl uses DefaultTTL.
func New(adapter catalog.Adapter, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		Adapter: adapter,
		TTL:     ttl,
		entries: make(map[string]*entry),
	}
}

func key(id types.TableIdentity) string {
	return id.String()
}

// Resolve satisfies query.Resolver: it serves a live cache entry
// without touching the underlying catalog, and reports whether the
// value returned was a cache hit.
func (c *Cache) Resolve(ctx context.Context, id types.TableIdentity) (*catalog.TableMetadata, bool, error) {
	k := key(id)
	now := time.Now()

	c.mu.RLock()
	e, ok := c.entries[k]
	c.mu.RUnlock()
	if ok && !e.isExpired(now) {
		return e.meta, true, nil
	}

	meta, err := c.Adapter.Resolve(ctx, id)
	if err != nil {
		return nil, false, err
	}

	c.mu.Lock()
	c.entries[k] = &entry{meta: meta, expiresAt: now.Add(c.TTL)}
	c.mu.Unlock()

	return meta, false, nil
}

// Invalidate drops id's cached entry, if any. internal/writer (whose
// commits also carry internal/mvcc's changes) and internal/compactor
// call this right after a
// successful commit so the next read observes the new snapshot
// immediately rather than waiting out the TTL (§4.8 "invalidated on
// write").
func (c *Cache) Invalidate(id types.TableIdentity) {
	c.mu.Lock()
	delete(c.entries, key(id))
	c.mu.Unlock()
}

// ListTables passes straight through to the wrapped Adapter —
// directory listings are cheap and change too unpredictably (across
// every table in a namespace, not just one) to benefit from this
// cache's per-table TTL.
func (c *Cache) ListTables(ctx context.Context, tenant types.TenantID, namespace types.Namespace) ([]string, error) {
	return c.Adapter.ListTables(ctx, tenant, namespace)
}
