// Package engine is the facade named in §6: it decodes a single
// operation envelope, dispatches to the component that owns that
// operation (Catalog Adapter, Writer, Query Planner, MVCC, Compactor),
// and encodes a single response envelope, mapping every apperrors.Error
// to its §7 code along the way.
package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tansive/tablelake/internal/apperrors"
	"github.com/tansive/tablelake/internal/cache"
	"github.com/tansive/tablelake/internal/catalog"
	"github.com/tansive/tablelake/internal/compactor"
	"github.com/tansive/tablelake/internal/ids"
	"github.com/tansive/tablelake/internal/metrics"
	"github.com/tansive/tablelake/internal/mvcc"
	"github.com/tansive/tablelake/internal/query"
	"github.com/tansive/tablelake/internal/record"
	"github.com/tansive/tablelake/internal/schema"
	"github.com/tansive/tablelake/internal/storage"
	"github.com/tansive/tablelake/internal/types"
	"github.com/tansive/tablelake/internal/writer"
)

// Engine wires every component together behind the single Dispatch
// entry point. One Engine instance is shared across requests within a
// worker (§5 "stateless workers").
type Engine struct {
	Catalog   catalog.Adapter
	Store     storage.ObjectStore
	Cache     *cache.Cache
	Executor  *query.Executor
	Writer    *writer.Writer
	MVCC      *mvcc.Engine
	Compactor *compactor.Compactor

	WriterConfig    writer.Config
	CompactorConfig compactor.Config
}

// New wires a full Engine over cat/store with the Hot Metadata Cache
// (§4.8) in front of metadata resolution, and clock driving every
// system-column timestamp. clock may be nil to use record.SystemClock.
func New(cat catalog.Adapter, store storage.ObjectStore, clock record.Clock) *Engine {
	if clock == nil {
		clock = record.SystemClock
	}

	c := cache.New(cat, cache.DefaultTTL)
	executor := &query.Executor{Resolver: c, Store: store}
	w := writer.New(cat, store, clock)
	w.Cache = c
	comp := compactor.New(cat, store, clock, compactor.DefaultConfig())
	comp.Cache = c

	return &Engine{
		Catalog:         cat,
		Store:           store,
		Cache:           c,
		Executor:        executor,
		Writer:          w,
		MVCC:            mvcc.New(executor, w, clock),
		Compactor:       comp,
		WriterConfig:    writer.DefaultConfig(),
		CompactorConfig: compactor.DefaultConfig(),
	}
}

// DecodeEnvelope parses a raw JSON operation envelope.
func DecodeEnvelope(raw []byte) (*Envelope, error) {
	var env Envelope
	if err := codec.Unmarshal(raw, &env); err != nil {
		return nil, ErrInvalidRequest.New("malformed operation envelope").Err(err)
	}
	return &env, nil
}

// Handle decodes raw, dispatches it, and encodes the response — the
// single entry point a transport-agnostic caller (CLI, test, future
// server) needs.
func (e *Engine) Handle(ctx context.Context, raw []byte) []byte {
	env, err := DecodeEnvelope(raw)
	if err != nil {
		resp := errorResponse(ids.NewRequestID(), 0, err)
		out, _ := codec.Marshal(resp)
		return out
	}
	resp := e.Dispatch(ctx, *env)
	out, marshalErr := codec.Marshal(resp)
	if marshalErr != nil {
		out, _ = codec.Marshal(errorResponse(resp.RequestID, resp.ExecutionTimeMS, ErrEngine.New("failed encoding response").Err(marshalErr)))
	}
	return out
}

// Dispatch runs one operation envelope to completion (§6/§7).
func (e *Engine) Dispatch(ctx context.Context, env Envelope) Response {
	requestID := ids.NewRequestID()
	start := time.Now()
	timer := metrics.NewTimer(string(env.Operation))

	logger := log.Ctx(ctx).With().Str("request_id", requestID).Str("operation", string(env.Operation)).Logger()
	ctx = logger.WithContext(ctx)

	if err := validateEnvelope(env); err != nil {
		timer.Observe("error")
		return errorResponse(requestID, elapsedMS(start), err)
	}

	data, meta, compactionRecommended, smallFilesCount, err := e.route(ctx, env)
	elapsed := elapsedMS(start)
	if err != nil {
		logger.Warn().Err(err).Msg("operation failed")
		timer.Observe("error")
		return errorResponse(requestID, elapsed, err)
	}
	timer.Observe("success")

	resp := Response{
		Success:         true,
		Data:            data,
		Metadata:        meta,
		RequestID:       requestID,
		ExecutionTimeMS: elapsed,
	}
	if compactionRecommended != nil {
		resp.CompactionRecommended = compactionRecommended
	}
	if smallFilesCount != nil {
		resp.SmallFilesCount = smallFilesCount
	}
	return resp
}

func (e *Engine) route(ctx context.Context, env Envelope) (data any, meta *query.Metadata, compactionRecommended *bool, smallFilesCount *int, err error) {
	id := types.TableIdentity{
		TenantID:  types.TenantID(env.TenantID),
		Namespace: types.Namespace(env.Namespace),
		Name:      types.TableName(env.Table),
	}

	switch env.Operation {
	case OpCreateTable:
		data, err = e.createTable(ctx, id, env)
		return
	case OpWrite:
		data, compactionRecommended, smallFilesCount, err = e.write(ctx, id, env)
		return
	case OpQuery:
		data, meta, err = e.query(ctx, id, env)
		return
	case OpUpdate:
		data, err = e.update(ctx, id, env)
		return
	case OpDelete:
		data, err = e.delete(ctx, id, env)
		return
	case OpHardDelete:
		data, err = e.hardDelete(ctx, id, env)
		return
	case OpListTables:
		data, err = e.listTables(ctx, id)
		return
	case OpDescribeTable:
		data, err = e.describeTable(ctx, id)
		return
	case OpCompact:
		data, err = e.compact(ctx, id, env)
		return
	default:
		err = ErrInvalidRequest.New("unrecognized operation " + string(env.Operation))
		return
	}
}

func (e *Engine) createTable(ctx context.Context, id types.TableIdentity, env Envelope) (any, error) {
	us, err := schema.ParseUserSchema(env.Schema)
	if err != nil {
		return nil, err
	}
	phys, err := us.ToPhysical()
	if err != nil {
		return nil, err
	}
	meta, err := e.Catalog.CreateTable(ctx, id, phys, env.Properties, env.IfNotExists)
	if err != nil {
		return nil, err
	}
	return describeResponse(meta), nil
}

func (e *Engine) write(ctx context.Context, id types.TableIdentity, env Envelope) (any, *bool, *int, error) {
	result, err := e.Writer.Append(ctx, id, e.WriterConfig, env.Rows)
	if err != nil {
		return nil, nil, nil, err
	}
	return map[string]any{
		"snapshot_id":  result.SnapshotID,
		"rows_written": result.RowsWritten,
	}, &result.CompactionRecommended, &result.SmallFilesCount, nil
}

func (e *Engine) query(ctx context.Context, id types.TableIdentity, env Envelope) (any, *query.Metadata, error) {
	filters, err := parseFilters(env.Filters)
	if err != nil {
		return nil, nil, err
	}
	having, err := parseFilters(env.Having)
	if err != nil {
		return nil, nil, err
	}

	req := query.Request{
		Projection:     env.Projection,
		Filters:        filters,
		Sort:           toQuerySort(env.Sort),
		GroupBy:        env.GroupBy,
		Aggregations:   toQueryAggregations(env.Aggregations),
		Having:         having,
		Limit:          env.Limit,
		Offset:         env.Offset,
		AsOf:           env.AsOf,
		IncludeDeleted: env.IncludeDeleted,
		SkipVersioning: env.SkipVersioning,
	}
	result, err := e.Executor.Execute(ctx, id, req)
	if err != nil {
		return nil, nil, err
	}
	metrics.ScannedRows.Add(float64(result.Metadata.ScannedRows))
	metrics.ScannedBytes.Add(float64(result.Metadata.ScannedBytes))
	cacheOutcome := "miss"
	if result.Metadata.CacheHit {
		cacheOutcome = "hit"
	}
	metrics.CacheHitsTotal.WithLabelValues(cacheOutcome).Inc()
	return result.Rows, &result.Metadata, nil
}

func (e *Engine) update(ctx context.Context, id types.TableIdentity, env Envelope) (any, error) {
	filters, err := parseFilters(env.Filters)
	if err != nil {
		return nil, err
	}
	result, err := e.MVCC.Update(ctx, id, e.WriterConfig, mvcc.UpdateRequest{Filters: filters, Updates: env.Updates})
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"snapshot_id":     result.SnapshotID,
		"records_updated": result.RecordsUpdated,
	}, nil
}

func (e *Engine) delete(ctx context.Context, id types.TableIdentity, env Envelope) (any, error) {
	filters, err := parseFilters(env.Filters)
	if err != nil {
		return nil, err
	}
	result, err := e.MVCC.Delete(ctx, id, e.WriterConfig, filters)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"snapshot_id":     result.SnapshotID,
		"records_updated": result.RecordsUpdated,
	}, nil
}

func (e *Engine) hardDelete(ctx context.Context, id types.TableIdentity, env Envelope) (any, error) {
	filters, err := parseFilters(env.Filters)
	if err != nil {
		return nil, err
	}
	result, err := e.MVCC.HardDelete(ctx, id, e.WriterConfig, e.Catalog, mvcc.HardDeleteRequest{
		Filters:                filters,
		Confirm:                env.Confirm,
		ExpireSnapshots:        env.ExpireSnapshots,
		SnapshotRetentionHours: env.SnapshotRetentionHours,
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"snapshot_id":       result.SnapshotID,
		"records_erased":    result.RecordsErased,
		"snapshots_expired": result.SnapshotsExpired,
	}, nil
}

func (e *Engine) listTables(ctx context.Context, id types.TableIdentity) (any, error) {
	names, err := e.Catalog.ListTables(ctx, id.TenantID, id.Namespace)
	if err != nil {
		return nil, err
	}
	return map[string]any{"tables": names}, nil
}

func (e *Engine) describeTable(ctx context.Context, id types.TableIdentity) (any, error) {
	meta, err := e.Catalog.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	return describeResponse(meta), nil
}

func (e *Engine) compact(ctx context.Context, id types.TableIdentity, env Envelope) (any, error) {
	result, err := e.Compactor.Compact(ctx, id, compactor.Request{
		Force:                  env.Force,
		TargetFileSizeMB:       env.TargetFileSizeMB,
		MaxFiles:               env.MaxFiles,
		PartitionFilter:        env.PartitionFilter,
		ExpireSnapshots:        env.ExpireSnapshots,
		SnapshotRetentionHours: env.SnapshotRetentionHours,
	})
	if err != nil {
		return nil, err
	}
	metrics.SmallFilesGauge.WithLabelValues(id.String()).Set(float64(result.SmallFilesRemaining))
	return result, nil
}

func describeResponse(meta *catalog.TableMetadata) map[string]any {
	out := map[string]any{
		"columns":    meta.PhysicalSchema.ColumnNames(),
		"properties": meta.Properties,
		"created_at": meta.CreatedAt,
	}
	if meta.Current != nil {
		out["current_snapshot_id"] = meta.Current.ID
		out["file_count"] = len(meta.Current.Files)
	}
	out["snapshot_count"] = len(meta.History)
	return out
}

func toQuerySort(in []SortInput) []query.Sort {
	out := make([]query.Sort, 0, len(in))
	for _, s := range in {
		out = append(out, query.Sort{Field: s.Field, Desc: s.Order == "desc"})
	}
	return out
}

func toQueryAggregations(in []AggregationInput) []query.Aggregation {
	out := make([]query.Aggregation, 0, len(in))
	for _, a := range in {
		field := ""
		if a.Field != nil {
			field = *a.Field
		}
		out = append(out, query.Aggregation{Function: a.Function, Field: field, Alias: a.Alias})
	}
	return out
}

func elapsedMS(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}

func errorResponse(requestID string, elapsed int64, err error) Response {
	code := codeFor(err)
	msg := err.Error()
	if ae, ok := err.(apperrors.Error); ok {
		msg = ae.ErrorAll()
	}
	return Response{
		Success:         false,
		RequestID:       requestID,
		ExecutionTimeMS: elapsed,
		Error:           &ErrorInfo{Code: code, Message: msg},
	}
}
