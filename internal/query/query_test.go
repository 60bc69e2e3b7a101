package query

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tansive/tablelake/internal/catalog"
	"github.com/tansive/tablelake/internal/catalog/memcatalog"
	"github.com/tansive/tablelake/internal/record"
	"github.com/tansive/tablelake/internal/schema"
	"github.com/tansive/tablelake/internal/storage"
	"github.com/tansive/tablelake/internal/storage/localstore"
	"github.com/tansive/tablelake/internal/types"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type testFixture struct {
	store *localstore.Store
	cat   catalog.Adapter
	id    types.TableIdentity
}

func newFixture(t *testing.T) *testFixture {
	t.Helper()
	store, err := localstore.Open(filepath.Join(t.TempDir(), "query_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cat := memcatalog.New()
	id := types.TableIdentity{TenantID: "t1", Namespace: "sales", Name: "orders"}

	us, err := schema.ParseUserSchema([]byte(`{"fields":{"order_id":{"type":"long"},"amount":{"type":"double"},"region":{"type":"string"}}}`))
	require.NoError(t, err)
	phys, err := us.ToPhysical()
	require.NoError(t, err)
	_, err = cat.CreateTable(context.Background(), id, phys, nil, false)
	require.NoError(t, err)

	return &testFixture{store: store, cat: cat, id: id}
}

// commitRows writes rows as a single data file and commits it as the
// table's only snapshot (replacing any existing one, for test setup
// convenience — production code always appends via internal/writer).
func (f *testFixture) commitRows(t *testing.T, columns []string, rows []map[string]any) {
	t.Helper()
	prefix := storage.ObjectKey(f.id.String())
	files, err := f.store.PutRowBatch(context.Background(), prefix, storage.RowBatch{Columns: columns, Rows: rows}, 128, storage.CodecZstd)
	require.NoError(t, err)

	meta, err := f.cat.Resolve(context.Background(), f.id)
	require.NoError(t, err)
	expected := ""
	if meta.Current != nil {
		expected = meta.Current.ID
	}
	_, err = f.cat.Commit(context.Background(), f.id, expected, &catalog.Snapshot{Files: files, Operation: "append"})
	require.NoError(t, err)
}

func row(clock record.Clock, tenant types.TenantID, orderID int64, amount float64, region string) map[string]any {
	r, _ := record.NewRow(clock, tenant, map[string]any{
		"order_id": orderID,
		"amount":   amount,
		"region":   region,
	})
	return r
}

var cols = []string{"order_id", "amount", "region", "_tenant_id", "_record_id", "_timestamp", "_version", "_deleted", "_deleted_at"}

func TestExecuteEmptyTableReturnsEmptyResult(t *testing.T) {
	f := newFixture(t)
	exec := NewDirectExecutor(f.cat, f.store)

	result, err := exec.Execute(context.Background(), f.id, Request{})
	require.NoError(t, err)
	assert.Empty(t, result.Rows)
	assert.Equal(t, 0, result.Metadata.RowCount)
}

func TestExecuteFiltersAndProjects(t *testing.T) {
	f := newFixture(t)
	clock := fixedClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	f.commitRows(t, cols, []map[string]any{
		row(clock, "t1", 1, 10.0, "us-east"),
		row(clock, "t1", 2, 20.0, "us-west"),
		row(clock, "t1", 3, 30.0, "us-east"),
	})

	exec := NewDirectExecutor(f.cat, f.store)
	result, err := exec.Execute(context.Background(), f.id, Request{
		Filters:    []Filter{{Field: "region", Operator: "eq", Value: "us-east"}},
		Projection: []string{"order_id", "amount"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Metadata.RowCount)
	for _, r := range result.Rows {
		assert.Contains(t, []any{int64(1), int64(3)}, r["order_id"])
		assert.NotContains(t, r, "region")
	}
}

func TestExecuteLatestVersionResolution(t *testing.T) {
	f := newFixture(t)
	clock := fixedClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	v1 := row(clock, "t1", 1, 10.0, "us-east")

	laterClock := fixedClock{t: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)}
	v2 := record.NextVersion(laterClock, record.Row(v1), map[string]any{"amount": 15.0})

	f.commitRows(t, cols, []map[string]any{v1, map[string]any(v2)})

	exec := NewDirectExecutor(f.cat, f.store)
	result, err := exec.Execute(context.Background(), f.id, Request{})
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, 15.0, result.Rows[0]["amount"])
}

func TestExecuteIncludeDeletedAndSkipVersioning(t *testing.T) {
	f := newFixture(t)
	clock := fixedClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	v1 := row(clock, "t1", 1, 10.0, "us-east")
	deleted := record.MarkDeleted(fixedClock{t: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)}, record.Row(v1))

	f.commitRows(t, cols, []map[string]any{v1, map[string]any(deleted)})

	exec := NewDirectExecutor(f.cat, f.store)

	visible, err := exec.Execute(context.Background(), f.id, Request{})
	require.NoError(t, err)
	assert.Empty(t, visible.Rows, "soft-deleted latest version hidden by default")

	withDeleted, err := exec.Execute(context.Background(), f.id, Request{IncludeDeleted: true})
	require.NoError(t, err)
	require.Len(t, withDeleted.Rows, 1)

	allVersions, err := exec.Execute(context.Background(), f.id, Request{IncludeDeleted: true, SkipVersioning: true})
	require.NoError(t, err)
	assert.Len(t, allVersions.Rows, 2)
}

func TestExecuteAggregationsAndGroupBy(t *testing.T) {
	f := newFixture(t)
	clock := fixedClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	f.commitRows(t, cols, []map[string]any{
		row(clock, "t1", 1, 10.0, "us-east"),
		row(clock, "t1", 2, 20.0, "us-east"),
		row(clock, "t1", 3, 30.0, "us-west"),
	})

	exec := NewDirectExecutor(f.cat, f.store)
	result, err := exec.Execute(context.Background(), f.id, Request{
		GroupBy:      []string{"region"},
		Aggregations: []Aggregation{{Function: "sum", Field: "amount", Alias: "total"}},
		Sort:         []Sort{{Field: "region"}},
	})
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)
	assert.Equal(t, "us-east", result.Rows[0]["region"])
	assert.Equal(t, 30.0, result.Rows[0]["total"])
	assert.Equal(t, "us-west", result.Rows[1]["region"])
	assert.Equal(t, 30.0, result.Rows[1]["total"])
}

func TestExecuteLikeFilter(t *testing.T) {
	f := newFixture(t)
	clock := fixedClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	f.commitRows(t, cols, []map[string]any{
		row(clock, "t1", 1, 10.0, "us-east"),
		row(clock, "t1", 2, 20.0, "eu-west"),
	})

	exec := NewDirectExecutor(f.cat, f.store)
	result, err := exec.Execute(context.Background(), f.id, Request{
		Filters: []Filter{{Field: "region", Operator: "like", Value: "us-%"}},
	})
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "us-east", result.Rows[0]["region"])
}

func TestExecuteTypeMismatch(t *testing.T) {
	f := newFixture(t)
	clock := fixedClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	f.commitRows(t, cols, []map[string]any{row(clock, "t1", 1, 10.0, "us-east")})

	exec := NewDirectExecutor(f.cat, f.store)
	_, err := exec.Execute(context.Background(), f.id, Request{
		Filters: []Filter{{Field: "amount", Operator: "gt", Value: "not-a-number"}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestExecuteLimitZeroReturnsEmpty(t *testing.T) {
	f := newFixture(t)
	clock := fixedClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	f.commitRows(t, cols, []map[string]any{row(clock, "t1", 1, 10.0, "us-east")})

	exec := NewDirectExecutor(f.cat, f.store)
	zero := 0
	result, err := exec.Execute(context.Background(), f.id, Request{Limit: &zero})
	require.NoError(t, err)
	assert.Empty(t, result.Rows)
}

func newStructFixture(t *testing.T) *testFixture {
	t.Helper()
	store, err := localstore.Open(filepath.Join(t.TempDir(), "query_struct_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cat := memcatalog.New()
	id := types.TableIdentity{TenantID: "t1", Namespace: "sales", Name: "customers"}

	us, err := schema.ParseUserSchema([]byte(`{"fields":{
		"order_id":{"type":"long"},
		"address":{"type":"struct","fields":{
			"city":{"type":"string"},
			"state":{"type":"string"}
		}}
	}}`))
	require.NoError(t, err)
	phys, err := us.ToPhysical()
	require.NoError(t, err)
	_, err = cat.CreateTable(context.Background(), id, phys, nil, false)
	require.NoError(t, err)

	return &testFixture{store: store, cat: cat, id: id}
}

func structRow(clock record.Clock, tenant types.TenantID, orderID int64, city, state string) map[string]any {
	r, _ := record.NewRow(clock, tenant, map[string]any{
		"order_id": orderID,
		"address": map[string]any{
			"city":  city,
			"state": state,
		},
	})
	return r
}

// TestExecuteNestedStructFieldFilterAndProjection is scenario 6 (§9
// "Nested struct query"): filtering and projecting on dotted paths into
// a struct-typed field.
func TestExecuteNestedStructFieldFilterAndProjection(t *testing.T) {
	f := newStructFixture(t)
	clock := fixedClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	structCols := []string{"order_id", "address", "_tenant_id", "_record_id", "_timestamp", "_version", "_deleted", "_deleted_at"}
	f.commitRows(t, structCols, []map[string]any{
		structRow(clock, "t1", 1, "Springfield", "IL"),
		structRow(clock, "t1", 2, "Portland", "OR"),
	})

	exec := NewDirectExecutor(f.cat, f.store)
	result, err := exec.Execute(context.Background(), f.id, Request{
		Filters:    []Filter{{Field: "address.state", Operator: "eq", Value: "IL"}},
		Projection: []string{"order_id", "address.city", "address.state"},
	})
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, int64(1), result.Rows[0]["order_id"])
	assert.Equal(t, "Springfield", result.Rows[0]["address.city"])
	assert.Equal(t, "IL", result.Rows[0]["address.state"])
}

// TestExecuteRejectsDottedPathIntoScalarField covers §9's "fail with
// InvalidRequest if any segment is not a struct member": "amount" is a
// scalar double, so "amount.sub" must fail at plan time rather than
// silently no-matching.
func TestExecuteRejectsDottedPathIntoScalarField(t *testing.T) {
	f := newFixture(t)
	clock := fixedClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	f.commitRows(t, cols, []map[string]any{row(clock, "t1", 1, 10.0, "us-east")})

	exec := NewDirectExecutor(f.cat, f.store)
	_, err := exec.Execute(context.Background(), f.id, Request{
		Filters: []Filter{{Field: "amount.sub", Operator: "eq", Value: 1}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

// TestExecuteRejectsUnknownField covers the same rule for a field that
// doesn't exist in the schema at all.
func TestExecuteRejectsUnknownField(t *testing.T) {
	f := newFixture(t)
	clock := fixedClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	f.commitRows(t, cols, []map[string]any{row(clock, "t1", 1, 10.0, "us-east")})

	exec := NewDirectExecutor(f.cat, f.store)
	_, err := exec.Execute(context.Background(), f.id, Request{
		Sort: []Sort{{Field: "nonexistent"}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestExecuteAsOfEarlierThanFirstSnapshotIsEmpty(t *testing.T) {
	f := newFixture(t)
	clock := fixedClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	f.commitRows(t, cols, []map[string]any{row(clock, "t1", 1, 10.0, "us-east")})

	exec := NewDirectExecutor(f.cat, f.store)
	early := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	result, err := exec.Execute(context.Background(), f.id, Request{AsOf: &early})
	require.NoError(t, err)
	assert.Empty(t, result.Rows)
}
