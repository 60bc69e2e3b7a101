package memcatalog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tansive/tablelake/internal/catalog"
	"github.com/tansive/tablelake/internal/schema"
	"github.com/tansive/tablelake/internal/types"
)

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

func TestCreateAndResolve(t *testing.T) {
	c := New()
	ctx := context.Background()
	id := testIdentity()
	phys := testPhysicalSchema(t)

	_, err := c.CreateTable(ctx, id, phys, nil, false)
	require.NoError(t, err)

	m, err := c.Resolve(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, m.Identity)
	assert.Nil(t, m.Current)
}

func TestCreateTableAlreadyExists(t *testing.T) {
	c := New()
	ctx := context.Background()
	id := testIdentity()
	phys := testPhysicalSchema(t)

	_, err := c.CreateTable(ctx, id, phys, nil, false)
	require.NoError(t, err)

	_, err = c.CreateTable(ctx, id, phys, nil, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, catalog.ErrAlreadyExists)

	_, err = c.CreateTable(ctx, id, phys, nil, true)
	require.NoError(t, err, "if_not_exists should not error")
}

func TestResolveNotFound(t *testing.T) {
	c := New()
	_, err := c.Resolve(context.Background(), testIdentity())
	require.Error(t, err)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestCommitConflict(t *testing.T) {
	c := New()
	ctx := context.Background()
	id := testIdentity()
	_, err := c.CreateTable(ctx, id, testPhysicalSchema(t), nil, false)
	require.NoError(t, err)

	snap1 := &catalog.Snapshot{Operation: "append"}
	m, err := c.Commit(ctx, id, "", snap1)
	require.NoError(t, err)
	require.NotNil(t, m.Current)

	// Commit again with a stale expected id.
	_, err = c.Commit(ctx, id, "", &catalog.Snapshot{Operation: "append"})
	require.Error(t, err)
	assert.ErrorIs(t, err, catalog.ErrConflict)

	// Commit with the correct expected id succeeds.
	m2, err := c.Commit(ctx, id, m.Current.ID, &catalog.Snapshot{Operation: "append"})
	require.NoError(t, err)
	assert.Len(t, m2.History, 2)
}

func TestListTables(t *testing.T) {
	c := New()
	ctx := context.Background()
	phys := testPhysicalSchema(t)

	_, err := c.CreateTable(ctx, types.TableIdentity{TenantID: "t1", Namespace: "ns", Name: "a"}, phys, nil, false)
	require.NoError(t, err)
	_, err = c.CreateTable(ctx, types.TableIdentity{TenantID: "t1", Namespace: "ns", Name: "b"}, phys, nil, false)
	require.NoError(t, err)
	_, err = c.CreateTable(ctx, types.TableIdentity{TenantID: "t2", Namespace: "ns", Name: "c"}, phys, nil, false)
	require.NoError(t, err)

	names, err := c.ListTables(ctx, "t1", "ns")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, names)
}

func TestExpireSnapshots(t *testing.T) {
	c := New()
	ctx := context.Background()
	id := testIdentity()
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
