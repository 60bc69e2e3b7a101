// Package catalog is the Catalog Adapter (§4.1): it abstracts the
// catalog so the rest of the engine never depends on a specific
// implementation, only on Adapter. Two implementations ship:
// memcatalog (in-process, for tests and single-worker dev mode) and
// pgcatalog (Postgres-backed, one concrete rendering of the "REST or
// cloud-managed" catalog variants named in §4.1).
package catalog

import (
	"context"
	"time"

	"github.com/tansive/tablelake/internal/schema"
	"github.com/tansive/tablelake/internal/storage"
	"github.com/tansive/tablelake/internal/types"
)

// Snapshot is an immutable logical view of a table at a point in time
// (GLOSSARY "Snapshot"), referenced by one metadata object.
type Snapshot struct {
	ID         string
	CommitTime time.Time
	Files      []storage.DataFile
	// Operation records why this snapshot exists ("append", "overwrite"
	// for compaction, "delete" for a hard-delete rewrite) — informational
	// only, never interpreted by the Planner.
	Operation string
}

// TableMetadata is everything the catalog tracks for one table: its
// physical schema, properties (§6 "table.write.*" etc.), and the
// snapshot chain. "Metadata location" in §4.1 is, in this
// implementation, the resolved *TableMetadata value itself rather than
// a separate indirection — the narrow interface in §1 only requires
// that the engine never depend on how the pointer is stored, which
// Adapter still guarantees.
type TableMetadata struct {
	Identity       types.TableIdentity
	PhysicalSchema *schema.PhysicalSchema
	Properties     map[string]string
	Current        *Snapshot
	History        []*Snapshot // ordered oldest to newest, includes Current
	CreatedAt      time.Time
}

// SnapshotAsOf returns the snapshot whose CommitTime is the greatest
// value <= asOf (§4.5 rule 1, Open Question resolved in SPEC_FULL.md:
// "nearest commit <= as_of", inclusive of equality). Returns nil if asOf
// precedes every snapshot.
func (m *TableMetadata) SnapshotAsOf(asOf time.Time) *Snapshot {
	var best *Snapshot
	for _, s := range m.History {
		if s.CommitTime.After(asOf) {
			continue
		}
		if best == nil || s.CommitTime.After(best.CommitTime) {
			best = s
		}
	}
	return best
}

// Adapter is the Catalog Adapter's narrow interface (§4.1).
type Adapter interface {
	// Resolve maps (tenant, namespace, name) to the table's current
	// metadata. Returns ErrNotFound if absent.
	Resolve(ctx context.Context, id types.TableIdentity) (*TableMetadata, error)

	// CreateTable registers a new table with an empty snapshot chain.
	// Returns ErrAlreadyExists unless ifNotExists is set, in which case
	// an existing table of the same identity is returned without error.
	CreateTable(ctx context.Context, id types.TableIdentity, phys *schema.PhysicalSchema, properties map[string]string, ifNotExists bool) (*TableMetadata, error)

	// ListTables returns every table name registered under
	// (tenant, namespace).
	ListTables(ctx context.Context, tenant types.TenantID, namespace types.Namespace) ([]string, error)

	// Commit atomically swaps the table's current snapshot pointer from
	// expectedCurrentSnapshotID to newSnapshot, the "atomic pointer
	// swap" of §4.1/§5. Returns ErrConflict if the table's current
	// snapshot id no longer matches expectedCurrentSnapshotID (someone
	// else committed first).
	Commit(ctx context.Context, id types.TableIdentity, expectedCurrentSnapshotID string, newSnapshot *Snapshot) (*TableMetadata, error)

	// ExpireSnapshots drops every snapshot (other than Current) with
	// CommitTime before olderThan, returning the count removed (§4.1,
	// §4.7 step 6).
	ExpireSnapshots(ctx context.Context, id types.TableIdentity, olderThan time.Time) (int, error)
}
