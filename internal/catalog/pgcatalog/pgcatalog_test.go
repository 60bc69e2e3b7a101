package pgcatalog

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tansive/tablelake/internal/catalog"
	"github.com/tansive/tablelake/internal/schema"
	"github.com/tansive/tablelake/internal/types"
)

// openTestDB connects against TABLELAKE_TEST_DATABASE_URL. The suite
// skips entirely when it isn't set or unreachable, same posture as the
// Postgres-backed tests it's grounded on.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TABLELAKE_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TABLELAKE_TEST_DATABASE_URL not set")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Skipf("failed to open test database: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("test database unreachable: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testIdentity() types.TableIdentity {
	return types.TableIdentity{TenantID: "t1", Namespace: "sales", Name: "orders"}
}

func testPhysicalSchema(t *testing.T) *schema.PhysicalSchema {
	t.Helper()
	us, err := schema.ParseUserSchema([]byte(`{"fields":{"id":{"type":"long","required":true}}}`))
	require.NoError(t, err)
	phys, err := us.ToPhysical()
	require.NoError(t, err)
	return phys
}

func cleanupTable(t *testing.T, db *sql.DB, id types.TableIdentity) {
	t.Helper()
	_, _ = db.Exec(`DELETE FROM tablelake_tables WHERE tenant_id = $1 AND namespace = $2 AND name = $3`,
		id.TenantID, id.Namespace, id.Name)
}

func TestCreateAndResolve(t *testing.T) {
	db := openTestDB(t)
	c := New(db)
	ctx := context.Background()
	id := testIdentity()
	defer cleanupTable(t, db, id)

	_, err := c.CreateTable(ctx, id, testPhysicalSchema(t), map[string]string{"owner": "sales-team"}, false)
	require.NoError(t, err)

	m, err := c.Resolve(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, m.Identity)
	assert.Nil(t, m.Current)
	assert.Equal(t, "sales-team", m.Properties["owner"])
}

func TestCreateTableAlreadyExists(t *testing.T) {
	db := openTestDB(t)
	c := New(db)
	ctx := context.Background()
	id := testIdentity()
	defer cleanupTable(t, db, id)

	_, err := c.CreateTable(ctx, id, testPhysicalSchema(t), nil, false)
	require.NoError(t, err)

	_, err = c.CreateTable(ctx, id, testPhysicalSchema(t), nil, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, catalog.ErrAlreadyExists)

	_, err = c.CreateTable(ctx, id, testPhysicalSchema(t), nil, true)
	require.NoError(t, err, "if_not_exists should not error")
}

func TestResolveNotFound(t *testing.T) {
	db := openTestDB(t)
	c := New(db)
	_, err := c.Resolve(context.Background(), testIdentity())
	require.Error(t, err)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestCommitConflict(t *testing.T) {
	db := openTestDB(t)
	c := New(db)
	ctx := context.Background()
	id := testIdentity()
	defer cleanupTable(t, db, id)

	_, err := c.CreateTable(ctx, id, testPhysicalSchema(t), nil, false)
	require.NoError(t, err)

	snap1 := &catalog.Snapshot{Operation: "append"}
	m, err := c.Commit(ctx, id, "", snap1)
	require.NoError(t, err)
	require.NotNil(t, m.Current)

	_, err = c.Commit(ctx, id, "", &catalog.Snapshot{Operation: "append"})
	require.Error(t, err)
	assert.ErrorIs(t, err, catalog.ErrConflict)

	m2, err := c.Commit(ctx, id, m.Current.ID, &catalog.Snapshot{Operation: "append"})
	require.NoError(t, err)
	assert.Len(t, m2.History, 2)
}

func TestListTables(t *testing.T) {
	db := openTestDB(t)
	c := New(db)
	ctx := context.Background()
	phys := testPhysicalSchema(t)

	a := types.TableIdentity{TenantID: "t1", Namespace: "ns-pg-list", Name: "a"}
	b := types.TableIdentity{TenantID: "t1", Namespace: "ns-pg-list", Name: "b"}
	other := types.TableIdentity{TenantID: "t2", Namespace: "ns-pg-list", Name: "c"}
	defer cleanupTable(t, db, a)
	defer cleanupTable(t, db, b)
	defer cleanupTable(t, db, other)

	_, err := c.CreateTable(ctx, a, phys, nil, false)
	require.NoError(t, err)
	_, err = c.CreateTable(ctx, b, phys, nil, false)
	require.NoError(t, err)
	_, err = c.CreateTable(ctx, other, phys, nil, false)
	require.NoError(t, err)

	names, err := c.ListTables(ctx, "t1", "ns-pg-list")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, names)
}

func TestExpireSnapshots(t *testing.T) {
	db := openTestDB(t)
	c := New(db)
	ctx := context.Background()
	id := testIdentity()
	defer cleanupTable(t, db, id)

	_, err := c.CreateTable(ctx, id, testPhysicalSchema(t), nil, false)
	require.NoError(t, err)

	old := time.Now().Add(-time.Hour)
	m, err := c.Commit(ctx, id, "", &catalog.Snapshot{CommitTime: old})
	require.NoError(t, err)

	_, err = c.Commit(ctx, id, m.Current.ID, &catalog.Snapshot{CommitTime: time.Now()})
	require.NoError(t, err)

	removed, err := c.ExpireSnapshots(ctx, id, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}
