// Package query implements the Query Planner/Executor (§4.5): resolving
// a table's snapshot, scanning its data files, collapsing multi-version
// rows down to each logical record's latest value, and applying
// filters, grouping, aggregation, sort, and pagination in memory.
package query

import "time"

// Filter is one `{field, operator, value}` conjunct (§4.5 rule 6).
// Field may use dot notation to reach into struct fields
// ("address.city"); array filters are limited to "like" against a
// serialized form (§4.5).
type Filter struct {
	Field    string
	Operator string // eq, ne, gt, gte, lt, lte, in, like, between
	Value    any
	// High is the second bound for "between", inclusive on both ends.
	High any
}

// Sort is one `{field, asc|desc}` entry (§4.5).
type Sort struct {
	Field string
	Desc  bool
}

// Aggregation is one `{function, field, alias}` entry (§4.5).
type Aggregation struct {
	Function string // count, sum, avg, min, max, stddev, variance, median, count_distinct
	Field    string
	Alias    string
}

// Request is the Query Planner's input (§4.5).
type Request struct {
	Projection     []string
	Filters        []Filter
	Sort           []Sort
	GroupBy        []string
	Aggregations   []Aggregation
	Having         []Filter
	Limit          *int
	Offset         *int
	AsOf           *time.Time
	IncludeDeleted bool
	SkipVersioning bool
	// Raw bypasses rule 8's projection/system-column stripping entirely,
	// returning full envelope rows (system columns included). Used by
	// internal/mvcc and internal/compactor, which need _record_id/
	// _version/_tenant_id intact to build the next version or rewrite a
	// partition; never set by a client-facing QUERY.
	Raw bool
}

// Metadata is the execution-metadata block returned alongside rows
// (§4.5 "Output").
type Metadata struct {
	RowCount        int    `json:"row_count"`
	ExecutionTimeMS int64  `json:"execution_time_ms"`
	ScannedRows     int    `json:"scanned_rows"`
	ScannedBytes    int64  `json:"scanned_bytes"`
	CacheHit        bool   `json:"cache_hit"`
	QueryID         string `json:"query_id"`
}

// Result is the Query Planner's output (§4.5).
type Result struct {
	Rows     []map[string]any
	Metadata Metadata
}
