// Package writer implements the Writer (§4.4): appending a row batch
// and producing a new committed snapshot, with bounded retry on catalog
// commit conflicts and the opportunistic small-file check of §4.7.
package writer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog/log"

	"github.com/tansive/tablelake/internal/catalog"
	"github.com/tansive/tablelake/internal/ids"
	"github.com/tansive/tablelake/internal/metrics"
	"github.com/tansive/tablelake/internal/record"
	"github.com/tansive/tablelake/internal/storage"
	"github.com/tansive/tablelake/internal/types"
)

// AppendResult is what the engine facade reports back to the caller
// after a WRITE (§4.4, §4.7 "the response includes compaction_recommended").
type AppendResult struct {
	SnapshotID            string
	RowsWritten           int
	CompactionRecommended bool
	SmallFilesCount       int
}

// Invalidator drops a table's cached metadata. internal/cache.Cache
// satisfies this; kept narrow here so internal/writer never depends on
// the cache package, mirroring how internal/query.Resolver keeps the
// Planner decoupled from it.
type Invalidator interface {
	Invalidate(id types.TableIdentity)
}

// Writer appends row batches for every table a process handles. One
// Writer is shared across requests; writeCounter is keyed by table so
// the opportunistic check interval (§4.7) is tracked per table, not
// globally.
type Writer struct {
	Catalog catalog.Adapter
	Store   storage.ObjectStore
	Clock   record.Clock
	// Cache, if set, is invalidated for id right after every successful
	// commit (§4.8 "invalidated on write"). Nil is valid — a Writer
	// with no cache in front of it simply skips this step.
	Cache Invalidator

	mu           sync.Mutex
	writeCounter map[string]int
}

// New constructs a Writer. clock may be nil to use record.SystemClock.
func New(cat catalog.Adapter, store storage.ObjectStore, clock record.Clock) *Writer {
	if clock == nil {
		clock = record.SystemClock
	}
	return &Writer{
		Catalog:      cat,
		Store:        store,
		Clock:        clock,
		writeCounter: make(map[string]int),
	}
}

// Append is the Writer's sole entry point for WRITE (§4.4). userRows are
// raw user-field maps, not yet carrying system columns — Append builds
// the Record Envelope for each one via record.NewRow, each a fresh
// logical record at _version=1.
func (w *Writer) Append(ctx context.Context, id types.TableIdentity, cfg Config, userRows []map[string]any) (*AppendResult, error) {
	meta, err := w.Catalog.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := validateRows(meta, userRows); err != nil {
		return nil, err
	}

	rows := make([]record.Row, 0, len(userRows))
	for _, uf := range userRows {
		row, err := record.NewRow(w.Clock, id.TenantID, uf)
		if err != nil {
			return nil, ErrSchemaMismatch.New("failed to compute record id").Err(err)
		}
		rows = append(rows, row)
	}

	return w.commitRows(ctx, id, cfg, meta, rows, "append", false)
}

// AppendVersions commits already-built Record Envelopes produced by
// UPDATE/DELETE (internal/mvcc): each row already carries every system
// column (_record_id inherited, _version incremented) from
// record.NextVersion/record.MarkDeleted, so no NewRow call or
// system-column rejection applies here. op labels the resulting
// snapshot's Operation ("update" or "delete"). Per §4.6's append-only
// contract, the new versions are added alongside every existing file,
// never replacing one.
func (w *Writer) AppendVersions(ctx context.Context, id types.TableIdentity, cfg Config, rows []record.Row, op string) (*AppendResult, error) {
	meta, err := w.Catalog.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	return w.commitRows(ctx, id, cfg, meta, rows, op, false)
}

// Overwrite commits rows as the table's entire new content, replacing
// (not appending to) the current file set. Used by HARD_DELETE (§4.6,
// rewriting the table to exclude every version of the erased
// records) and the Compactor (§4.7, rewriting small files into
// target-sized ones). meta must already be resolved by the caller since
// both callers derive rows from a scan of that same metadata.
func (w *Writer) Overwrite(ctx context.Context, id types.TableIdentity, cfg Config, meta *catalog.TableMetadata, rows []record.Row, op string) (*AppendResult, error) {
	return w.commitRows(ctx, id, cfg, meta, rows, op, true)
}

func (w *Writer) commitRows(ctx context.Context, id types.TableIdentity, cfg Config, meta *catalog.TableMetadata, rows []record.Row, op string, overwrite bool) (*AppendResult, error) {
	batch := storage.RowBatch{
		Columns: meta.PhysicalSchema.ColumnNames(),
		Rows:    toMaps(rows),
	}
	prefix := storage.ObjectKey(id.String())

	var result *AppendResult
	var err error
	attempt := 0
	err = retry.Do(func() error {
		attempt++
		// Re-resolve on every attempt after the first: a conflict means
		// someone else's commit moved the current snapshot, and our
		// append must be based on the latest file list (§4.4 "retries
		// by re-resolving metadata and re-committing").
		if attempt > 1 {
			metrics.CommitRetriesTotal.WithLabelValues("writer").Inc()
			meta, err = w.Catalog.Resolve(ctx, id)
			if err != nil {
				return retry.Unrecoverable(err)
			}
		}

		var newFiles []storage.DataFile
		if len(rows) > 0 {
			newFiles, err = w.Store.PutRowBatch(ctx, prefix, batch, cfg.TargetFileSizeMB, cfg.CompressionCodec)
			if err != nil {
				return ErrResourceExhausted.New("failed to write data files").Err(err)
			}
		}

		var files []storage.DataFile
		if overwrite {
			files = newFiles
		} else {
			files = append(append([]storage.DataFile(nil), currentFiles(meta)...), newFiles...)
		}
		expected := ""
		if meta.Current != nil {
			expected = meta.Current.ID
		}

		newSnapshot := &catalog.Snapshot{
			ID:         ids.NewUUID().String(),
			CommitTime: w.Clock.Now(),
			Files:      files,
			Operation:  op,
		}

		updated, commitErr := w.Catalog.Commit(ctx, id, expected, newSnapshot)
		if commitErr != nil {
			if errors.Is(commitErr, catalog.ErrConflict) {
				log.Ctx(ctx).Warn().Str("table", id.String()).Int("attempt", attempt).Msg("write commit conflict, retrying")
				return commitErr
			}
			return retry.Unrecoverable(commitErr)
		}

		if w.Cache != nil {
			w.Cache.Invalidate(id)
		}

		result = &AppendResult{
			SnapshotID:  newSnapshot.ID,
			RowsWritten: len(rows),
		}
		result.CompactionRecommended, result.SmallFilesCount = w.checkOpportunisticCompaction(ctx, id, cfg, updated)
		return nil
	},
		retry.Attempts(maxAttempts(cfg.MaxRetries)),
		retry.Delay(50*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		if errors.Is(err, catalog.ErrConflict) {
			return nil, ErrWriteConflict.New("exhausted retries committing write").Err(err)
		}
		return nil, err
	}
	return result, nil
}

func maxAttempts(maxRetries uint) uint {
	// retry.Attempts counts the first try too, so N retries means N+1
	// attempts total.
	if maxRetries == 0 {
		return 1
	}
	return maxRetries + 1
}

func currentFiles(meta *catalog.TableMetadata) []storage.DataFile {
	if meta.Current == nil {
		return nil
	}
	return meta.Current.Files
}

func toMaps(rows []record.Row) []map[string]any {
	out := make([]map[string]any, len(rows))
	for i, r := range rows {
		out[i] = map[string]any(r)
	}
	return out
}

// checkOpportunisticCompaction implements §4.7's non-blocking check:
// every Nth successful write for this table, list its current files and
// count those under the small-file threshold.
func (w *Writer) checkOpportunisticCompaction(ctx context.Context, id types.TableIdentity, cfg Config, meta *catalog.TableMetadata) (recommended bool, smallFiles int) {
	w.mu.Lock()
	key := id.String()
	w.writeCounter[key]++
	n := w.writeCounter[key]
	w.mu.Unlock()

	interval := cfg.OpportunisticCheckInterval
	if interval <= 0 {
		interval = 1
	}
	if n%interval != 0 {
		return false, 0
	}

	thresholdBytes := int64(cfg.SmallFileThresholdMB) * 1024 * 1024
	for _, f := range currentFiles(meta) {
		if f.Bytes < thresholdBytes {
			smallFiles++
		}
	}
	return smallFiles >= cfg.MinFilesToCompact, smallFiles
}

func validateRows(meta *catalog.TableMetadata, rows []map[string]any) error {
	for _, row := range rows {
		for _, f := range meta.PhysicalSchema.UserFields {
			if f.Required {
				if v, ok := row[f.Name]; !ok || v == nil {
					return ErrSchemaMismatch.New("missing required field " + f.Name)
				}
			}
		}
		for k := range row {
			if types.IsSystemColumn(k) {
				return ErrSchemaMismatch.New("row batch must not set system column " + k)
			}
			if _, ok := meta.PhysicalSchema.Lookup(k); !ok {
				return ErrSchemaMismatch.New("unknown field " + k + " not present in table schema")
			}
		}
	}
	return nil
}
