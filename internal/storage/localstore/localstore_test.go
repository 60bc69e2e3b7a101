package localstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tansive/tablelake/internal/storage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "objects.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPutAndReadRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	batch := storage.RowBatch{
		Columns: []string{"id", "name"},
		Rows: []map[string]any{
			{"id": 1, "name": "A"},
			{"id": 2, "name": "B"},
		},
	}
	files, err := s.PutRowBatch(ctx, "tenant1_sales/orders/data", batch, 128, storage.CodecZstd)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.EqualValues(t, 2, files[0].RowCount)

	rows, err := s.ReadRows(ctx, files)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestPutWithSnappyCodec(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	batch := storage.RowBatch{Columns: []string{"id"}, Rows: []map[string]any{{"id": 1}}}
	files, err := s.PutRowBatch(ctx, "t_ns/tbl/data", batch, 128, storage.CodecSnappy)
	require.NoError(t, err)

	rows, err := s.ReadRows(ctx, files)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.EqualValues(t, 1, rows[0]["id"])
}

func TestListAndDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	batch := storage.RowBatch{Columns: []string{"id"}, Rows: []map[string]any{{"id": 1}}}
	files, err := s.PutRowBatch(ctx, "t_ns/tbl/data", batch, 128, storage.CodecZstd)
	require.NoError(t, err)

	listed, err := s.List(ctx, "t_ns/tbl/data")
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	require.NoError(t, s.Delete(ctx, files))

	listed, err = s.List(ctx, "t_ns/tbl/data")
	require.NoError(t, err)
	assert.Len(t, listed, 0)
}
