// Package mvcc implements UPDATE, soft DELETE, and HARD_DELETE (§4.6):
// the MVCC layer that sits atop the Query Planner (internal/query) and
// the Writer (internal/writer). UPDATE/DELETE read the matching latest
// versions, mint exactly one new version per matching logical row, and
// commit them in a single batch. HARD_DELETE instead rewrites the
// table's whole file set without any version of the matching records.
package mvcc

import (
	"context"
	"strings"
	"time"

	"github.com/tansive/tablelake/internal/catalog"
	"github.com/tansive/tablelake/internal/query"
	"github.com/tansive/tablelake/internal/record"
	"github.com/tansive/tablelake/internal/types"
	"github.com/tansive/tablelake/internal/writer"
)

// Engine is the UPDATE/DELETE/HARD_DELETE entry point. It has no state
// of its own — everything flows through the Executor and Writer it
// wraps.
type Engine struct {
	Executor *query.Executor
	Writer   *writer.Writer
	Clock    record.Clock
}

// New constructs an Engine. clock may be nil to use record.SystemClock.
func New(executor *query.Executor, w *writer.Writer, clock record.Clock) *Engine {
	if clock == nil {
		clock = record.SystemClock
	}
	return &Engine{Executor: executor, Writer: w, Clock: clock}
}

// UpdateRequest is UPDATE's input (§4.6).
type UpdateRequest struct {
	Filters []query.Filter
	Updates map[string]any
}

// Result is the outcome of UPDATE/DELETE: how many logical rows were
// touched and the snapshot the change landed in (§4.6 "records_updated").
type Result struct {
	SnapshotID     string
	RecordsUpdated int
}

// Update implements §4.6 UPDATE: clone every matching latest version,
// overlay the caller's updates, advance the version, commit once.
func (e *Engine) Update(ctx context.Context, id types.TableIdentity, cfg writer.Config, req UpdateRequest) (*Result, error) {
	if err := validateUpdates(req.Updates); err != nil {
		return nil, err
	}
	return e.applyVersions(ctx, id, cfg, req.Filters, req.Updates, "update")
}

// Delete implements §4.6 soft DELETE: identical procedure to UPDATE
// with updates = {_deleted: true, _deleted_at: now}. Internal, so the
// system-column restriction Update enforces on caller input doesn't
// apply here.
func (e *Engine) Delete(ctx context.Context, id types.TableIdentity, cfg writer.Config, filters []query.Filter) (*Result, error) {
	now := e.Clock.Now()
	updates := map[string]any{
		types.ColDeleted:   true,
		types.ColDeletedAt: now,
	}
	return e.applyVersions(ctx, id, cfg, filters, updates, "delete")
}

// applyVersions is the shared UPDATE/DELETE procedure (§4.6 steps 1-3):
// resolve matching latest versions with full columns, mint exactly one
// new version per match via record.NextVersion, commit the batch.
func (e *Engine) applyVersions(ctx context.Context, id types.TableIdentity, cfg writer.Config, filters []query.Filter, updates map[string]any, op string) (*Result, error) {
	result, err := e.Executor.Execute(ctx, id, query.Request{
		Filters: filters,
		Raw:     true,
	})
	if err != nil {
		return nil, err
	}
	if len(result.Rows) == 0 {
		return &Result{RecordsUpdated: 0}, nil
	}

	versions := make([]record.Row, 0, len(result.Rows))
	for _, row := range result.Rows {
		versions = append(versions, record.NextVersion(e.Clock, record.Row(row), updates))
	}

	appendResult, err := e.Writer.AppendVersions(ctx, id, cfg, versions, op)
	if err != nil {
		return nil, err
	}
	return &Result{SnapshotID: appendResult.SnapshotID, RecordsUpdated: len(versions)}, nil
}

// HardDeleteRequest is HARD_DELETE's input (§4.6, §7 ConfirmationRequired).
type HardDeleteRequest struct {
	Filters                []query.Filter
	Confirm                bool
	ExpireSnapshots        bool
	SnapshotRetentionHours int
}

// HardDeleteResult reports what HARD_DELETE erased.
type HardDeleteResult struct {
	SnapshotID       string
	RecordsErased    int
	SnapshotsExpired int
}

// HardDelete implements §4.6 HARD_DELETE: rewrites the table excluding
// every version (not just the latest) of any logical row whose latest
// version matches filters. Requires confirm=true. Per the Open
// Question resolved in the expanded spec, also expires snapshots when
// requested so the erasure is not recoverable from prior snapshot
// history.
func (e *Engine) HardDelete(ctx context.Context, id types.TableIdentity, cfg writer.Config, catalogAdapter catalog.Adapter, req HardDeleteRequest) (*HardDeleteResult, error) {
	if !req.Confirm {
		return nil, ErrConfirmationRequired.New("hard delete requires confirm=true")
	}

	matched, err := e.Executor.Execute(ctx, id, query.Request{
		Filters: req.Filters,
		Raw:     true,
	})
	if err != nil {
		return nil, err
	}
	erasedIDs := make(map[string]struct{}, len(matched.Rows))
	for _, row := range matched.Rows {
		erasedIDs[record.Row(row).RecordID()] = struct{}{}
	}
	if len(erasedIDs) == 0 {
		return &HardDeleteResult{}, nil
	}

	all, err := e.Executor.Execute(ctx, id, query.Request{
		SkipVersioning: true,
		IncludeDeleted: true,
		Raw:            true,
	})
	if err != nil {
		return nil, err
	}

	survivors := make([]record.Row, 0, len(all.Rows))
	for _, row := range all.Rows {
		if _, erased := erasedIDs[record.Row(row).RecordID()]; !erased {
			survivors = append(survivors, record.Row(row))
		}
	}

	meta, err := catalogAdapter.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	appendResult, err := e.Writer.Overwrite(ctx, id, cfg, meta, survivors, "hard_delete")
	if err != nil {
		return nil, err
	}

	result := &HardDeleteResult{
		SnapshotID:    appendResult.SnapshotID,
		RecordsErased: len(erasedIDs),
	}
	if req.ExpireSnapshots {
		retention := req.SnapshotRetentionHours
		if retention <= 0 {
			retention = 168
		}
		olderThan := e.Clock.Now().Add(-time.Duration(retention) * time.Hour)
		expired, err := catalogAdapter.ExpireSnapshots(ctx, id, olderThan)
		if err != nil {
			return nil, err
		}
		result.SnapshotsExpired = expired
	}
	return result, nil
}

// validateUpdates enforces §4.6's two UPDATE restrictions: no dotted
// nested-field keys (whole-column replacement only) and no direct
// writes to a system column (those are only ever set by NextVersion).
func validateUpdates(updates map[string]any) error {
	for k := range updates {
		if strings.Contains(k, ".") {
			return ErrNestedFieldUpdate.New("cannot update nested field " + k + " directly")
		}
		if types.IsSystemColumn(k) {
			return ErrSystemColumnUpdate.New("cannot set system column " + k + " via update")
		}
	}
	return nil
}
