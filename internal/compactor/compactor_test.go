package compactor

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tansive/tablelake/internal/catalog/memcatalog"
	"github.com/tansive/tablelake/internal/schema"
	"github.com/tansive/tablelake/internal/storage/localstore"
	"github.com/tansive/tablelake/internal/types"
	"github.com/tansive/tablelake/internal/writer"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func newFixture(t *testing.T) (*Compactor, *writer.Writer, types.TableIdentity) {
	t.Helper()
	store, err := localstore.Open(filepath.Join(t.TempDir(), "compactor_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cat := memcatalog.New()
	id := types.TableIdentity{TenantID: "t1", Namespace: "sales", Name: "orders"}

	us, err := schema.ParseUserSchema([]byte(`{"fields":{"order_id":{"type":"long"}}}`))
	require.NoError(t, err)
	phys, err := us.ToPhysical()
	require.NoError(t, err)
	_, err = cat.CreateTable(context.Background(), id, phys, nil, false)
	require.NoError(t, err)

	clock := fixedClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	wr := writer.New(cat, store, clock)
	comp := New(cat, store, clock, Config{SmallFileThresholdMB: 64, MinFilesToCompact: 3, MaxRetries: 3})
	return comp, wr, id
}

func writeOneRow(t *testing.T, wr *writer.Writer, id types.TableIdentity, orderID int64) {
	t.Helper()
	cfg := writer.DefaultConfig()
	cfg.TargetFileSizeMB = 1
	_, err := wr.Append(context.Background(), id, cfg, []map[string]any{{"order_id": orderID}})
	require.NoError(t, err)
}

func TestCompactBelowMinFilesIsNoopWithoutForce(t *testing.T) {
	comp, wr, id := newFixture(t)
	writeOneRow(t, wr, id, 1)
	writeOneRow(t, wr, id, 2)

	result, err := comp.Compact(context.Background(), id, Request{})
	require.NoError(t, err)
	assert.False(t, result.Compacted)
	assert.Equal(t, 2, result.FilesBefore)
}

func TestCompactRewritesSmallFiles(t *testing.T) {
	comp, wr, id := newFixture(t)
	for i := int64(1); i <= 5; i++ {
		writeOneRow(t, wr, id, i)
	}

	result, err := comp.Compact(context.Background(), id, Request{TargetFileSizeMB: 128})
	require.NoError(t, err)
	assert.True(t, result.Compacted)
	assert.Equal(t, 5, result.FilesBefore)
	assert.Equal(t, 5, result.FilesCompacted)
	assert.Equal(t, 1, result.FilesAfter)
}

func TestCompactForcesBelowThresholdWhenRequested(t *testing.T) {
	comp, wr, id := newFixture(t)
	writeOneRow(t, wr, id, 1)
	writeOneRow(t, wr, id, 2)

	result, err := comp.Compact(context.Background(), id, Request{Force: true, TargetFileSizeMB: 128})
	require.NoError(t, err)
	assert.True(t, result.Compacted)
	assert.Equal(t, 2, result.FilesCompacted)
}

func TestCompactPreservesRowSet(t *testing.T) {
	comp, wr, id := newFixture(t)
	for i := int64(1); i <= 4; i++ {
		writeOneRow(t, wr, id, i)
	}

	_, err := comp.Compact(context.Background(), id, Request{TargetFileSizeMB: 128})
	require.NoError(t, err)

	meta, err := comp.Catalog.Resolve(context.Background(), id)
	require.NoError(t, err)
	rows, err := comp.Store.ReadRows(context.Background(), meta.Current.Files)
	require.NoError(t, err)

	seen := make(map[int64]bool)
	for _, r := range rows {
		seen[r["order_id"].(int64)] = true
	}
	for i := int64(1); i <= 4; i++ {
		assert.True(t, seen[i], "order_id %d should survive compaction", i)
	}
}

func TestCompactExpiresSnapshotsWhenRequested(t *testing.T) {
	comp, wr, id := newFixture(t)
	for i := int64(1); i <= 4; i++ {
		writeOneRow(t, wr, id, i)
	}

	// The compactor's clock runs two hours past the writes, beyond the
	// one-hour retention window.
	comp.Clock = fixedClock{t: time.Date(2026, 1, 1, 2, 0, 0, 0, time.UTC)}

	result, err := comp.Compact(context.Background(), id, Request{
		TargetFileSizeMB:       128,
		ExpireSnapshots:        true,
		SnapshotRetentionHours: 1,
	})
	require.NoError(t, err)
	assert.True(t, result.Compacted)
	assert.GreaterOrEqual(t, result.SnapshotsExpired, 1)
}

func TestCompactRespectsMaxFilesCap(t *testing.T) {
	comp, wr, id := newFixture(t)
	for i := int64(1); i <= 6; i++ {
		writeOneRow(t, wr, id, i)
	}

	result, err := comp.Compact(context.Background(), id, Request{Force: true, TargetFileSizeMB: 128, MaxFiles: 3})
	require.NoError(t, err)
	assert.True(t, result.Compacted)
	assert.Equal(t, 3, result.FilesCompacted)
	assert.Equal(t, 6-3+1, result.FilesAfter)
}
