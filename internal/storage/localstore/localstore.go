// Package localstore is a reference ObjectStore implementation backed
// by a single embedded bbolt database, standing in for S3-compatible
// object storage (§1, §6 "s3.*") in tests and single-process
// deployments. Each table gets its own bucket; each data file is one
// key within it, gob-encoded and compressed per its CompressionCodec.
package localstore

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"sync"
	"time"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"go.etcd.io/bbolt"

	"github.com/tansive/tablelake/internal/ids"
	"github.com/tansive/tablelake/internal/storage"
)

func init() {
	gob.Register(map[string]any{})
	gob.Register(time.Time{})
}

// Store is a bbolt-backed storage.ObjectStore.
type Store struct {
	db *bbolt.DB
	mu sync.Mutex
}

// Open opens (creating if absent) the bbolt file at path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open local object store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying bbolt file.
func (s *Store) Close() error {
	return s.db.Close()
}

func bucketFor(prefix storage.ObjectKey) []byte {
	return []byte(prefix)
}

type encodedBatch struct {
	Columns []string
	Rows    []map[string]any
}

func (s *Store) PutRowBatch(ctx context.Context, prefix storage.ObjectKey, batch storage.RowBatch, targetFileSizeMB int, codec storage.CompressionCodec) ([]storage.DataFile, error) {
	if targetFileSizeMB <= 0 {
		targetFileSizeMB = 128
	}
	groups := binPack(batch.Rows, targetFileSizeMB)

	var out []storage.DataFile
	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(bucketFor(prefix))
		if err != nil {
			return err
		}
		for _, rows := range groups {
			key := storage.ObjectKey(fmt.Sprintf("%s/%s.dat", prefix, ids.NewUUID().String()))
			payload, err := encode(encodedBatch{Columns: batch.Columns, Rows: rows}, codec)
			if err != nil {
				return err
			}
			if err := bucket.Put([]byte(key), payload); err != nil {
				return err
			}
			out = append(out, storage.DataFile{
				Key:      key,
				Bytes:    int64(len(payload)),
				RowCount: int64(len(rows)),
				Stats:    columnStats(batch.Columns, rows),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) ReadRows(ctx context.Context, files []storage.DataFile) ([]map[string]any, error) {
	var all []map[string]any
	err := s.db.View(func(tx *bbolt.Tx) error {
		for _, f := range files {
			bucket, key, err := s.locate(tx, f.Key)
			if err != nil {
				return err
			}
			payload := bucket.Get(key)
			if payload == nil {
				return fmt.Errorf("data file %s not found", f.Key)
			}
			var batch encodedBatch
			if err := decode(payload, &batch); err != nil {
				return err
			}
			all = append(all, batch.Rows...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return all, nil
}

func (s *Store) List(ctx context.Context, prefix storage.ObjectKey) ([]storage.DataFile, error) {
	var out []storage.DataFile
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketFor(prefix))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, v []byte) error {
			var batch encodedBatch
			if err := decode(v, &batch); err != nil {
				return err
			}
			out = append(out, storage.DataFile{
				Key:      storage.ObjectKey(k),
				Bytes:    int64(len(v)),
				RowCount: int64(len(batch.Rows)),
				Stats:    columnStats(batch.Columns, batch.Rows),
			})
			return nil
		})
	})
	return out, err
}

func (s *Store) Delete(ctx context.Context, files []storage.DataFile) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, f := range files {
			bucket, key, err := s.locate(tx, f.Key)
			if err != nil {
				return err
			}
			if err := bucket.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
}

// locate finds the bucket owning key. Keys are "<prefix>/<file>.dat";
// the bucket is keyed by the full prefix portion.
func (s *Store) locate(tx *bbolt.Tx, full storage.ObjectKey) (*bbolt.Bucket, []byte, error) {
	idx := lastSlash(string(full))
	if idx < 0 {
		return nil, nil, fmt.Errorf("malformed object key %q", full)
	}
	prefix := string(full)[:idx]
	bucket := tx.Bucket([]byte(prefix))
	if bucket == nil {
		return nil, nil, fmt.Errorf("no bucket for prefix %q", prefix)
	}
	return bucket, []byte(full), nil
}

func lastSlash(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '/' {
			return i
		}
	}
	return -1
}

func encode(batch encodedBatch, codec storage.CompressionCodec) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(batch); err != nil {
		return nil, err
	}
	switch codec {
	case storage.CodecSnappy:
		return snappy.Encode(nil, buf.Bytes()), nil
	case storage.CodecNone:
		return buf.Bytes(), nil
	default: // storage.CodecZstd and "" both default to zstd (§4.4)
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, err
		}
		defer enc.Close()
		return enc.EncodeAll(buf.Bytes(), nil), nil
	}
}

// decode tries zstd first (the default codec), falling back to snappy
// and raw gob. The codec isn't persisted as a separate field, so this
// mirrors how a real columnar reader would sniff the container magic
// bytes rather than trust a side channel.
func decode(payload []byte, out *encodedBatch) error {
	if raw, err := zstdDecode(payload); err == nil {
		return gob.NewDecoder(bytes.NewReader(raw)).Decode(out)
	}
	if raw, err := snappy.Decode(nil, payload); err == nil {
		return gob.NewDecoder(bytes.NewReader(raw)).Decode(out)
	}
	return gob.NewDecoder(bytes.NewReader(payload)).Decode(out)
}

func zstdDecode(payload []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(payload, nil)
}

// binPack groups rows into chunks roughly bounded by targetFileSizeMB,
// estimating row size rather than exact encoded size — adequate for a
// reference implementation whose bin-packer isn't the object of the
// spec (§1: "the columnar file format... out of scope").
func binPack(rows []map[string]any, targetFileSizeMB int) [][]map[string]any {
	if len(rows) == 0 {
		return nil
	}
	const estBytesPerRow = 256
	maxRows := (targetFileSizeMB * 1024 * 1024) / estBytesPerRow
	if maxRows <= 0 {
		maxRows = 1
	}
	var groups [][]map[string]any
	for i := 0; i < len(rows); i += maxRows {
		end := i + maxRows
		if end > len(rows) {
			end = len(rows)
		}
		groups = append(groups, rows[i:end])
	}
	return groups
}

func columnStats(columns []string, rows []map[string]any) map[string]storage.ColumnStats {
	stats := make(map[string]storage.ColumnStats, len(columns))
	for _, col := range columns {
		var min, max string
		first := true
		for _, r := range rows {
			v := fmt.Sprintf("%v", r[col])
			if first || v < min {
				min = v
			}
			if first || v > max {
				max = v
			}
			first = false
		}
		stats[col] = storage.ColumnStats{Min: min, Max: max}
	}
	return stats
}
