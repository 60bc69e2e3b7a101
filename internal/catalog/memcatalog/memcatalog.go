// Package memcatalog is an in-process catalog.Adapter backed by a
// guarded map. It is the reference implementation used by tests and by
// single-worker dev-mode deployments; its commit step still implements
// the same compare-and-swap contract a real catalog's atomic pointer
// swap provides (§4.1, §5 "Ordering guarantees").
package memcatalog

import (
	"context"
	"sync"
	"time"

	"github.com/tansive/tablelake/internal/catalog"
	"github.com/tansive/tablelake/internal/ids"
	"github.com/tansive/tablelake/internal/schema"
	"github.com/tansive/tablelake/internal/types"
)

// Catalog is an in-memory catalog.Adapter.
type Catalog struct {
	mu     sync.Mutex
	tables map[string]*catalog.TableMetadata
}

// New returns an empty in-memory catalog.
func New() *Catalog {
	return &Catalog{tables: make(map[string]*catalog.TableMetadata)}
}

func key(id types.TableIdentity) string {
	return id.String()
}

func (c *Catalog) Resolve(ctx context.Context, id types.TableIdentity) (*catalog.TableMetadata, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.tables[key(id)]
	if !ok {
		return nil, catalog.ErrNotFound.New("table " + id.String() + " not found")
	}
	return cloneMetadata(m), nil
}

func (c *Catalog) CreateTable(ctx context.Context, id types.TableIdentity, phys *schema.PhysicalSchema, properties map[string]string, ifNotExists bool) (*catalog.TableMetadata, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.tables[key(id)]; ok {
		if ifNotExists {
			return cloneMetadata(existing), nil
		}
		return nil, catalog.ErrAlreadyExists.New("table " + id.String() + " already exists")
	}

	props := make(map[string]string, len(properties))
	for k, v := range properties {
		props[k] = v
	}

	m := &catalog.TableMetadata{
		Identity:       id,
		PhysicalSchema: phys,
		Properties:     props,
		Current:        nil,
		History:        nil,
		CreatedAt:      time.Now().UTC(),
	}
	c.tables[key(id)] = m
	return cloneMetadata(m), nil
}

func (c *Catalog) ListTables(ctx context.Context, tenant types.TenantID, namespace types.Namespace) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var names []string
	for _, m := range c.tables {
		if m.Identity.TenantID == tenant && m.Identity.Namespace == namespace {
			names = append(names, string(m.Identity.Name))
		}
	}
	return names, nil
}

func (c *Catalog) Commit(ctx context.Context, id types.TableIdentity, expectedCurrentSnapshotID string, newSnapshot *catalog.Snapshot) (*catalog.TableMetadata, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := c.tables[key(id)]
	if !ok {
		return nil, catalog.ErrNotFound.New("table " + id.String() + " not found")
	}

	currentID := ""
	if m.Current != nil {
		currentID = m.Current.ID
	}
	if currentID != expectedCurrentSnapshotID {
		return nil, catalog.ErrConflict.New("table " + id.String() + " was committed concurrently")
	}

	if newSnapshot.ID == "" {
		newSnapshot.ID = ids.NewUUID().String()
	}
	if newSnapshot.CommitTime.IsZero() {
		newSnapshot.CommitTime = time.Now().UTC()
	}

	m.Current = newSnapshot
	m.History = append(m.History, newSnapshot)
	return cloneMetadata(m), nil
}

func (c *Catalog) ExpireSnapshots(ctx context.Context, id types.TableIdentity, olderThan time.Time) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := c.tables[key(id)]
	if !ok {
		return 0, catalog.ErrNotFound.New("table " + id.String() + " not found")
	}

	kept := m.History[:0:0]
	removed := 0
	for _, s := range m.History {
		keep := !s.CommitTime.Before(olderThan) || (m.Current != nil && s.ID == m.Current.ID)
		if keep {
			kept = append(kept, s)
		} else {
			removed++
		}
	}
	m.History = kept
	return removed, nil
}

func cloneMetadata(m *catalog.TableMetadata) *catalog.TableMetadata {
	clone := *m
	history := make([]*catalog.Snapshot, len(m.History))
	copy(history, m.History)
	clone.History = history
	return &clone
}
