package engine

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tansive/tablelake/internal/catalog/memcatalog"
	"github.com/tansive/tablelake/internal/storage/localstore"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func newFixture(t *testing.T) *Engine {
	t.Helper()
	store, err := localstore.Open(filepath.Join(t.TempDir(), "engine_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	eng := New(memcatalog.New(), store, fixedClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)})
	eng.WriterConfig.TargetFileSizeMB = 1
	return eng
}

func createOrdersTable(t *testing.T, eng *Engine) {
	t.Helper()
	resp := eng.Dispatch(context.Background(), Envelope{
		Operation: OpCreateTable,
		TenantID:  "t1",
		Namespace: "sales",
		Table:     "orders",
		Schema:    []byte(`{"fields":{"order_id":{"type":"long"},"region":{"type":"string"}}}`),
	})
	require.True(t, resp.Success, "%+v", resp.Error)
}

func TestCreateTableThenDescribe(t *testing.T) {
	eng := newFixture(t)
	createOrdersTable(t, eng)

	resp := eng.Dispatch(context.Background(), Envelope{
		Operation: OpDescribeTable,
		TenantID:  "t1",
		Namespace: "sales",
		Table:     "orders",
	})
	require.True(t, resp.Success, "%+v", resp.Error)
	data := resp.Data.(map[string]any)
	assert.Contains(t, data, "columns")
}

func TestCreateTableWithoutIfNotExistsConflicts(t *testing.T) {
	eng := newFixture(t)
	createOrdersTable(t, eng)

	resp := eng.Dispatch(context.Background(), Envelope{
		Operation: OpCreateTable,
		TenantID:  "t1",
		Namespace: "sales",
		Table:     "orders",
		Schema:    []byte(`{"fields":{"order_id":{"type":"long"}}}`),
	})
	assert.False(t, resp.Success)
	assert.Equal(t, "AlreadyExists", resp.Error.Code)
}

func TestWriteThenQueryRoundTrip(t *testing.T) {
	eng := newFixture(t)
	createOrdersTable(t, eng)

	writeResp := eng.Dispatch(context.Background(), Envelope{
		Operation: OpWrite,
		TenantID:  "t1",
		Namespace: "sales",
		Table:     "orders",
		Rows: []map[string]any{
			{"order_id": int64(1), "region": "west"},
			{"order_id": int64(2), "region": "east"},
		},
	})
	require.True(t, writeResp.Success, "%+v", writeResp.Error)

	queryResp := eng.Dispatch(context.Background(), Envelope{
		Operation: OpQuery,
		TenantID:  "t1",
		Namespace: "sales",
		Table:     "orders",
		Filters:   []byte(`[{"field":"region","operator":"eq","value":"west"}]`),
	})
	require.True(t, queryResp.Success, "%+v", queryResp.Error)
	rows := queryResp.Data.([]map[string]any)
	require.Len(t, rows, 1)
	assert.EqualValues(t, 1, rows[0]["order_id"])
	require.NotNil(t, queryResp.Metadata)
	assert.Equal(t, 1, queryResp.Metadata.RowCount)
}

func TestQueryLegacyMapFilterForm(t *testing.T) {
	eng := newFixture(t)
	createOrdersTable(t, eng)
	eng.Dispatch(context.Background(), Envelope{
		Operation: OpWrite, TenantID: "t1", Namespace: "sales", Table: "orders",
		Rows: []map[string]any{{"order_id": int64(1), "region": "west"}},
	})

	resp := eng.Dispatch(context.Background(), Envelope{
		Operation: OpQuery, TenantID: "t1", Namespace: "sales", Table: "orders",
		Filters: []byte(`{"region":{"eq":"west"}}`),
	})
	require.True(t, resp.Success, "%+v", resp.Error)
	assert.Len(t, resp.Data.([]map[string]any), 1)
}

func TestUpdateThenQuerySeesOneVersion(t *testing.T) {
	eng := newFixture(t)
	createOrdersTable(t, eng)
	eng.Dispatch(context.Background(), Envelope{
		Operation: OpWrite, TenantID: "t1", Namespace: "sales", Table: "orders",
		Rows: []map[string]any{{"order_id": int64(1), "region": "west"}},
	})

	updateResp := eng.Dispatch(context.Background(), Envelope{
		Operation: OpUpdate, TenantID: "t1", Namespace: "sales", Table: "orders",
		Filters: []byte(`[{"field":"order_id","operator":"eq","value":1}]`),
		Updates: map[string]any{"region": "north"},
	})
	require.True(t, updateResp.Success, "%+v", updateResp.Error)

	queryResp := eng.Dispatch(context.Background(), Envelope{
		Operation: OpQuery, TenantID: "t1", Namespace: "sales", Table: "orders",
	})
	require.True(t, queryResp.Success, "%+v", queryResp.Error)
	rows := queryResp.Data.([]map[string]any)
	require.Len(t, rows, 1)
	assert.Equal(t, "north", rows[0]["region"])
}

func TestDeleteHidesRowFromDefaultQuery(t *testing.T) {
	eng := newFixture(t)
	createOrdersTable(t, eng)
	eng.Dispatch(context.Background(), Envelope{
		Operation: OpWrite, TenantID: "t1", Namespace: "sales", Table: "orders",
		Rows: []map[string]any{{"order_id": int64(1), "region": "west"}},
	})

	delResp := eng.Dispatch(context.Background(), Envelope{
		Operation: OpDelete, TenantID: "t1", Namespace: "sales", Table: "orders",
		Filters: []byte(`[{"field":"order_id","operator":"eq","value":1}]`),
	})
	require.True(t, delResp.Success, "%+v", delResp.Error)

	queryResp := eng.Dispatch(context.Background(), Envelope{
		Operation: OpQuery, TenantID: "t1", Namespace: "sales", Table: "orders",
	})
	require.True(t, queryResp.Success, "%+v", queryResp.Error)
	assert.Len(t, queryResp.Data.([]map[string]any), 0)
}

func TestHardDeleteWithoutConfirmFails(t *testing.T) {
	eng := newFixture(t)
	createOrdersTable(t, eng)
	eng.Dispatch(context.Background(), Envelope{
		Operation: OpWrite, TenantID: "t1", Namespace: "sales", Table: "orders",
		Rows: []map[string]any{{"order_id": int64(1), "region": "west"}},
	})

	resp := eng.Dispatch(context.Background(), Envelope{
		Operation: OpHardDelete, TenantID: "t1", Namespace: "sales", Table: "orders",
		Filters: []byte(`[{"field":"order_id","operator":"eq","value":1}]`),
	})
	assert.False(t, resp.Success)
	assert.Equal(t, "ConfirmationRequired", resp.Error.Code)
}

func TestCompactBelowMinFilesReportsNotCompacted(t *testing.T) {
	eng := newFixture(t)
	createOrdersTable(t, eng)
	eng.Dispatch(context.Background(), Envelope{
		Operation: OpWrite, TenantID: "t1", Namespace: "sales", Table: "orders",
		Rows: []map[string]any{{"order_id": int64(1), "region": "west"}},
	})

	resp := eng.Dispatch(context.Background(), Envelope{
		Operation: OpCompact, TenantID: "t1", Namespace: "sales", Table: "orders",
	})
	require.True(t, resp.Success, "%+v", resp.Error)
}

func TestListTablesReturnsCreatedTable(t *testing.T) {
	eng := newFixture(t)
	createOrdersTable(t, eng)

	resp := eng.Dispatch(context.Background(), Envelope{
		Operation: OpListTables, TenantID: "t1", Namespace: "sales",
	})
	require.True(t, resp.Success, "%+v", resp.Error)
	data := resp.Data.(map[string]any)
	assert.Contains(t, data["tables"], "orders")
}

func TestMissingTenantIDFailsValidation(t *testing.T) {
	eng := newFixture(t)
	resp := eng.Dispatch(context.Background(), Envelope{
		Operation: OpListTables, Namespace: "sales",
	})
	assert.False(t, resp.Success)
	assert.Equal(t, "InvalidRequest", resp.Error.Code)
}

func TestUnrecognizedOperationFails(t *testing.T) {
	eng := newFixture(t)
	resp := eng.Dispatch(context.Background(), Envelope{
		Operation: "NOT_A_REAL_OP", TenantID: "t1", Namespace: "sales", Table: "orders",
	})
	assert.False(t, resp.Success)
	assert.Equal(t, "InvalidRequest", resp.Error.Code)
}

func TestHandleRoundTripsJSON(t *testing.T) {
	eng := newFixture(t)
	createOrdersTable(t, eng)

	raw := []byte(`{"operation":"WRITE","tenant_id":"t1","namespace":"sales","table":"orders","rows":[{"order_id":1,"region":"west"}]}`)
	out := eng.Handle(context.Background(), raw)
	assert.Contains(t, string(out), `"success":true`)
}
