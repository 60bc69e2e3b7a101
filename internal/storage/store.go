// Package storage defines the narrow interface the engine consumes the
// columnar table format and S3-compatible object storage through (§1:
// "the core consumes them through narrow interfaces"). The actual
// columnar file format and bin-packer are out of scope; this package
// only needs enough surface for the Writer, Planner, and Compactor to
// do their jobs against *some* object store and *some* row-batch codec.
package storage

import (
	"context"
	"time"
)

// ObjectKey addresses one object within a table's data or metadata tree,
// scoped tenant/namespace/table/... (§6 "Persisted state").
type ObjectKey string

// DataFile describes one physical data file backing a snapshot (§3
// "Ownership and lifecycle": "Data files are owned by snapshots").
type DataFile struct {
	Key      ObjectKey
	Bytes    int64
	RowCount int64
	// Stats is a minimal per-column summary (min/max as strings,
	// adequate for the Planner's trivial stats reporting and the
	// Compactor's size-based bucketing). A real columnar format would
	// carry typed bounds; this engine only ever reads Stats for
	// reporting, never for predicate pushdown.
	Stats map[string]ColumnStats
}

// ColumnStats is a per-column summary attached to a DataFile.
type ColumnStats struct {
	Min string
	Max string
}

// RowBatch is a closed, physically-typed set of rows ready to be
// persisted as one or more DataFiles (§4.4 "Input: a complete,
// physically-typed row batch").
type RowBatch struct {
	Columns []string
	Rows    []map[string]any
}

// ObjectStore is the narrow interface onto S3-compatible object storage
// (§6 "Configuration": s3.bucket_name / s3.endpoint, etc). Every method
// takes a context because storage I/O is one of the engine's blocking
// points (§5 "Suspension/blocking points").
type ObjectStore interface {
	// PutRowBatch bin-packs batch into one or more new data files under
	// prefix, honoring targetFileSizeMB and codec, and returns their
	// descriptors (§4.4 "Target file size").
	PutRowBatch(ctx context.Context, prefix ObjectKey, batch RowBatch, targetFileSizeMB int, codec CompressionCodec) ([]DataFile, error)

	// ReadRows decodes every row across files, unfiltered — callers
	// (the Planner) push predicates down in memory, not into this call.
	ReadRows(ctx context.Context, files []DataFile) ([]map[string]any, error)

	// List enumerates the live data files under prefix.
	List(ctx context.Context, prefix ObjectKey) ([]DataFile, error)

	// Delete removes the objects backing files. Used by the Compactor
	// once a rewrite's replacement files are durably committed.
	Delete(ctx context.Context, files []DataFile) error
}

// CompressionCodec selects the codec a written data file is compressed
// with (§4.4 "compression defaults to zstd"; §6
// table.write.compression_codec).
type CompressionCodec string

const (
	CodecZstd   CompressionCodec = "zstd"
	CodecSnappy CompressionCodec = "snappy"
	CodecNone   CompressionCodec = "none"
)

// SnapshotMeta is the minimal information the Planner needs about a
// snapshot to select it under as_of (§4.5 rule 1) without loading its
// file list.
type SnapshotMeta struct {
	ID         string
	CommitTime time.Time
	Files      []DataFile
}
