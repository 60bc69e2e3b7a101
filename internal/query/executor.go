package query

import (
	"context"
	"time"

	"github.com/tansive/tablelake/internal/catalog"
	"github.com/tansive/tablelake/internal/ids"
	"github.com/tansive/tablelake/internal/storage"
	"github.com/tansive/tablelake/internal/types"
)

// Executor is the Query Planner/Executor (§4.5). It has no internal
// state — every Execute call resolves metadata fresh (or via Resolver,
// which the Hot Metadata Cache wraps).
type Executor struct {
	Resolver Resolver
	Store    storage.ObjectStore
}

// Resolver is the narrow slice of catalog.Adapter the Planner needs,
// letting the Hot Metadata Cache (§4.8) sit in front of a
// catalog.Adapter without the query package depending on the cache
// package.
type Resolver interface {
	Resolve(ctx context.Context, id types.TableIdentity) (*catalog.TableMetadata, bool, error)
}

// directResolver adapts a catalog.Adapter straight to Resolver,
// reporting every resolution as a cache miss.
type directResolver struct {
	Adapter catalog.Adapter
}

func (d directResolver) Resolve(ctx context.Context, id types.TableIdentity) (*catalog.TableMetadata, bool, error) {
	m, err := d.Adapter.Resolve(ctx, id)
	return m, false, err
}

// NewDirectExecutor builds an Executor that resolves metadata straight
// from cat on every call, with no caching layer.
func NewDirectExecutor(cat catalog.Adapter, store storage.ObjectStore) *Executor {
	return &Executor{Resolver: directResolver{Adapter: cat}, Store: store}
}

// Execute runs req against id's table (§4.5 "Planning rules").
func (e *Executor) Execute(ctx context.Context, id types.TableIdentity, req Request) (*Result, error) {
	start := time.Now()
	queryID := ids.NewQueryID()

	meta, cacheHit, err := e.Resolver.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	// Plan-time path validation (§9): every dotted field path named in
	// the request must resolve against the table's physical schema
	// before any row is scanned or matched.
	if err := validateRequestPaths(meta.PhysicalSchema, req); err != nil {
		return nil, err
	}

	// Rule 1: resolve the snapshot.
	var snapshot *catalog.Snapshot
	if req.AsOf != nil {
		snapshot = meta.SnapshotAsOf(*req.AsOf)
	} else {
		snapshot = meta.Current
	}
	if snapshot == nil {
		return emptyResult(queryID, start, cacheHit), nil
	}

	// Rule 2: scan the snapshot's data files.
	rows, err := e.Store.ReadRows(ctx, snapshot.Files)
	if err != nil {
		return nil, ErrQuery.New("failed to read data files").Err(err)
	}
	scannedRows := len(rows)
	var scannedBytes int64
	for _, f := range snapshot.Files {
		scannedBytes += f.Bytes
	}

	// Rule 3: mandatory tenant predicate.
	rows = filterTenant(rows, id.TenantID)

	// Rule 5: latest-version resolution, unless explicitly skipped
	// (the Compactor's rewrite scan sets skip_versioning=true).
	if !req.SkipVersioning {
		rows = latestVersions(rows)
	}

	// Rule 4: deleted-row filtering, applied on the latest-version
	// projection, not before it.
	if !req.IncludeDeleted {
		rows = filterOutDeleted(rows)
	}

	// Rule 6: user filters.
	filtered := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		ok, err := matchesAll(row, req.Filters)
		if err != nil {
			return nil, err
		}
		if ok {
			filtered = append(filtered, row)
		}
	}
	rows = filtered

	// Rule 7: group_by + aggregations, then having, then sort, then
	// offset/limit.
	rows, err = aggregate(rows, req.GroupBy, req.Aggregations)
	if err != nil {
		return nil, err
	}
	if len(req.Having) > 0 {
		havingFiltered := make([]map[string]any, 0, len(rows))
		for _, row := range rows {
			ok, err := matchesAll(row, req.Having)
			if err != nil {
				return nil, err
			}
			if ok {
				havingFiltered = append(havingFiltered, row)
			}
		}
		rows = havingFiltered
	}
	sortRows(rows, req.Sort)
	rows = paginate(rows, req.Offset, req.Limit)

	// Rule 8: projection.
	if !req.Raw {
		rows = project(rows, req.Projection)
	}

	result := &Result{
		Rows: rows,
		Metadata: Metadata{
			RowCount:        len(rows),
			ExecutionTimeMS: time.Since(start).Milliseconds(),
			ScannedRows:     scannedRows,
			ScannedBytes:    scannedBytes,
			CacheHit:        cacheHit,
			QueryID:         queryID,
		},
	}
	return result, nil
}

func emptyResult(queryID string, start time.Time, cacheHit bool) *Result {
	return &Result{
		Rows: []map[string]any{},
		Metadata: Metadata{
			RowCount:        0,
			ExecutionTimeMS: time.Since(start).Milliseconds(),
			CacheHit:        cacheHit,
			QueryID:         queryID,
		},
	}
}

func filterTenant(rows []map[string]any, tenant types.TenantID) []map[string]any {
	out := rows[:0:0]
	for _, row := range rows {
		if tv, _ := row[types.ColTenantID].(string); tv == string(tenant) {
			out = append(out, row)
		}
	}
	return out
}

func filterOutDeleted(rows []map[string]any) []map[string]any {
	out := rows[:0:0]
	for _, row := range rows {
		if !isDeleted(row) {
			out = append(out, row)
		}
	}
	return out
}

func paginate(rows []map[string]any, offset, limit *int) []map[string]any {
	if offset != nil {
		o := *offset
		if o >= len(rows) {
			return []map[string]any{}
		}
		if o > 0 {
			rows = rows[o:]
		}
	}
	if limit != nil {
		l := *limit
		if l <= 0 {
			return []map[string]any{}
		}
		if l < len(rows) {
			rows = rows[:l]
		}
	}
	return rows
}

// project returns all user columns when projection is empty, otherwise
// exactly the requested columns — system columns included only when
// explicitly named (§4.5 rule 8).
func project(rows []map[string]any, projection []string) []map[string]any {
	if len(projection) == 0 {
		out := make([]map[string]any, len(rows))
		for i, row := range rows {
			out[i] = stripSystemColumns(row)
		}
		return out
	}
	out := make([]map[string]any, len(rows))
	for i, row := range rows {
		projected := make(map[string]any, len(projection))
		for _, field := range projection {
			if v, ok := fieldValue(row, field); ok {
				projected[field] = v
			}
		}
		out[i] = projected
	}
	return out
}

func stripSystemColumns(row map[string]any) map[string]any {
	out := make(map[string]any, len(row))
	for k, v := range row {
		if !types.IsSystemColumn(k) {
			out[k] = v
		}
	}
	return out
}
