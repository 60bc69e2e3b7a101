// Package compactor implements the explicit COMPACT operation (§4.7):
// rewriting a table's small data files into fewer, target-sized ones
// without changing the logical row set. The non-blocking "opportunistic"
// detection that recommends compaction lives in internal/writer, next
// to the write path it observes; this package is only the operation a
// client can explicitly request.
package compactor

import (
	"context"
	"errors"
	"sort"
	"strings"
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

// Invalidator drops a table's cached metadata. internal/cache.Cache
// satisfies this; kept narrow so internal/compactor never depends on
// the cache package directly.
type Invalidator interface {
	Invalidate(id types.TableIdentity)
}

// Compactor runs COMPACT for every table a process handles.
type Compactor struct {
	Catalog catalog.Adapter
	Store   storage.ObjectStore
	Clock   record.Clock
	Config  Config
	// Cache, if set, is invalidated for id right after every successful
	// compaction commit (§4.8).
	Cache Invalidator
}

// New constructs a Compactor. clock may be nil to use record.SystemClock.
func New(cat catalog.Adapter, store storage.ObjectStore, clock record.Clock, cfg Config) *Compactor {
	if clock == nil {
		clock = record.SystemClock
	}
	return &Compactor{Catalog: cat, Store: store, Clock: clock, Config: cfg}
}

// Request is COMPACT's input (§4.7).
type Request struct {
	Force                  bool
	TargetFileSizeMB       int
	MaxFiles               int
	PartitionFilter        string
	ExpireSnapshots        bool
	SnapshotRetentionHours int
}

// Result is COMPACT's output statistics (§4.7).
type Result struct {
	Compacted           bool  `json:"compacted"`
	FilesBefore         int   `json:"files_before"`
	FilesAfter          int   `json:"files_after"`
	FilesCompacted      int   `json:"files_compacted"`
	FilesRemoved        int   `json:"files_removed"`
	BytesBefore         int64 `json:"bytes_before"`
	BytesAfter          int64 `json:"bytes_after"`
	BytesSaved          int64 `json:"bytes_saved"`
	SnapshotsExpired    int   `json:"snapshots_expired"`
	CompactionTimeMS    int64 `json:"compaction_time_ms"`
	SmallFilesRemaining int   `json:"small_files_remaining"`
}

// Compact implements §4.7's explicit COMPACT procedure. On a commit
// conflict it discards the just-written replacement files and retries
// against freshly resolved metadata (bounded by Config.MaxRetries);
// old files stay live until the atomic metadata swap, so a failed or
// abandoned attempt never leaves a dangling pointer.
func (c *Compactor) Compact(ctx context.Context, id types.TableIdentity, req Request) (*Result, error) {
	start := time.Now()
	thresholdBytes := int64(c.Config.SmallFileThresholdMB) * 1024 * 1024

	var result *Result
	attempt := 0
	err := retry.Do(func() error {
		attempt++
		if attempt > 1 {
			metrics.CommitRetriesTotal.WithLabelValues("compactor").Inc()
		}

		meta, err := c.Catalog.Resolve(ctx, id)
		if err != nil {
			return retry.Unrecoverable(err)
		}
		current := currentFiles(meta)
		bytesBefore := sumBytes(current)

		candidates := selectCandidates(current, thresholdBytes, req.PartitionFilter, req.MaxFiles)
		if len(candidates) < c.Config.MinFilesToCompact && !req.Force {
			result = &Result{
				FilesBefore:         len(current),
				BytesBefore:         bytesBefore,
				SmallFilesRemaining: countUnder(current, thresholdBytes),
				CompactionTimeMS:    time.Since(start).Milliseconds(),
			}
			return nil
		}

		survivors := excludeFiles(current, candidates)

		rows, err := c.Store.ReadRows(ctx, candidates)
		if err != nil {
			return retry.Unrecoverable(ErrCompactor.New("failed reading candidate files").Err(err))
		}

		targetMB := req.TargetFileSizeMB
		if targetMB <= 0 {
			targetMB = 128
		}
		prefix := storage.ObjectKey(id.String())
		var newFiles []storage.DataFile
		if len(rows) > 0 {
			newFiles, err = c.Store.PutRowBatch(ctx, prefix, storage.RowBatch{
				Columns: meta.PhysicalSchema.ColumnNames(),
				Rows:    rows,
			}, targetMB, storage.CodecZstd)
			if err != nil {
				return retry.Unrecoverable(ErrCompactor.New("failed writing compacted files").Err(err))
			}
		}

		newSnapshot := &catalog.Snapshot{
			ID:         ids.NewUUID().String(),
			CommitTime: c.Clock.Now(),
			Files:      append(append([]storage.DataFile(nil), survivors...), newFiles...),
			Operation:  "compact",
		}
		expected := ""
		if meta.Current != nil {
			expected = meta.Current.ID
		}

		_, commitErr := c.Catalog.Commit(ctx, id, expected, newSnapshot)
		if commitErr != nil {
			// Discard the rewritten files before retrying against fresh
			// metadata — a failed commit must never leave orphaned
			// replacement files live in storage (§4.7 "Failure").
			_ = c.Store.Delete(ctx, newFiles)
			if errors.Is(commitErr, catalog.ErrConflict) {
				log.Ctx(ctx).Warn().Str("table", id.String()).Int("attempt", attempt).Msg("compaction commit conflict, retrying")
				return commitErr
			}
			return retry.Unrecoverable(commitErr)
		}

		if c.Cache != nil {
			c.Cache.Invalidate(id)
		}

		bytesAfter := sumBytes(newSnapshot.Files)
		result = &Result{
			Compacted:           true,
			FilesBefore:         len(current),
			FilesAfter:          len(newSnapshot.Files),
			FilesCompacted:      len(candidates),
			FilesRemoved:        len(candidates) - len(newFiles),
			BytesBefore:         bytesBefore,
			BytesAfter:          bytesAfter,
			BytesSaved:          bytesBefore - bytesAfter,
			SmallFilesRemaining: countUnder(newSnapshot.Files, thresholdBytes),
			CompactionTimeMS:    time.Since(start).Milliseconds(),
		}

		if req.ExpireSnapshots {
			retention := req.SnapshotRetentionHours
			if retention <= 0 {
				retention = 168
			}
			olderThan := c.Clock.Now().Add(-time.Duration(retention) * time.Hour)
			expired, expireErr := c.Catalog.ExpireSnapshots(ctx, id, olderThan)
			if expireErr != nil {
				return retry.Unrecoverable(expireErr)
			}
			result.SnapshotsExpired = expired
		}
		return nil
	},
		retry.Attempts(maxAttempts(c.Config.MaxRetries)),
		retry.Delay(50*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		if errors.Is(err, catalog.ErrConflict) {
			return nil, ErrCompactionConflict.New("exhausted retries committing compaction").Err(err)
		}
		return nil, err
	}
	return result, nil
}

func maxAttempts(maxRetries uint) uint {
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

func sumBytes(files []storage.DataFile) int64 {
	var total int64
	for _, f := range files {
		total += f.Bytes
	}
	return total
}

func countUnder(files []storage.DataFile, thresholdBytes int64) int {
	n := 0
	for _, f := range files {
		if f.Bytes < thresholdBytes {
			n++
		}
	}
	return n
}

// selectCandidates picks the small-file rewrite set (§4.7 step 2):
// files under thresholdBytes, optionally restricted to keys containing
// partitionFilter, smallest first, capped at maxFiles (0 means
// unbounded). Sorting ascending by size means a cap always keeps the
// files that benefit compaction the most.
func selectCandidates(files []storage.DataFile, thresholdBytes int64, partitionFilter string, maxFiles int) []storage.DataFile {
	var small []storage.DataFile
	for _, f := range files {
		if f.Bytes >= thresholdBytes {
			continue
		}
		if partitionFilter != "" && !strings.Contains(string(f.Key), partitionFilter) {
			continue
		}
		small = append(small, f)
	}
	sort.Slice(small, func(i, j int) bool { return small[i].Bytes < small[j].Bytes })
	if maxFiles > 0 && len(small) > maxFiles {
		small = small[:maxFiles]
	}
	return small
}

// excludeFiles returns files minus candidates, by key.
func excludeFiles(files, candidates []storage.DataFile) []storage.DataFile {
	excluded := make(map[storage.ObjectKey]struct{}, len(candidates))
	for _, f := range candidates {
		excluded[f.Key] = struct{}{}
	}
	out := make([]storage.DataFile, 0, len(files))
	for _, f := range files {
		if _, ok := excluded[f.Key]; !ok {
			out = append(out, f)
		}
	}
	return out
}
