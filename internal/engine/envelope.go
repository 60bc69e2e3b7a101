package engine

import (
	"encoding/json"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/tansive/tablelake/internal/query"
)

// codec is the engine's envelope (de)serializer — jsoniter in place of
// encoding/json on the hot request/response path, as the teacher does
// throughout catalogmanager for its own JSON-heavy document types.
// json.RawMessage itself is still the stdlib type: jsoniter's
// CompatibleWithStandardLibrary config understands it natively.
var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// Operation is one of the nine operations named in §6.
type Operation string

const (
	OpCreateTable   Operation = "CREATE_TABLE"
	OpWrite         Operation = "WRITE"
	OpQuery         Operation = "QUERY"
	OpUpdate        Operation = "UPDATE"
	OpDelete        Operation = "DELETE"
	OpHardDelete    Operation = "HARD_DELETE"
	OpListTables    Operation = "LIST_TABLES"
	OpDescribeTable Operation = "DESCRIBE_TABLE"
	OpCompact       Operation = "COMPACT"
)

// FilterInput is the list form of one filter conjunct (§6 "Filter
// form"). For "between", Value carries a two-element
// [low, high] array.
type FilterInput struct {
	Field    string `json:"field" validate:"required"`
	Operator string `json:"operator" validate:"required"`
	Value    any    `json:"value"`
}

// AggregationInput mirrors §6's aggregation form.
type AggregationInput struct {
	Function string  `json:"function" validate:"required"`
	Field    *string `json:"field"`
	Alias    string  `json:"alias"`
}

// SortInput is one `{field, asc|desc}` entry.
type SortInput struct {
	Field string `json:"field" validate:"required"`
	Order string `json:"order"` // "asc" (default) or "desc"
}

// Envelope is the single operation envelope every request is (§6).
// Every operation populates only the fields relevant to it; unused
// fields are left zero.
type Envelope struct {
	Operation Operation `json:"operation" validate:"required"`
	TenantID  string    `json:"tenant_id" validate:"required"`
	Namespace string    `json:"namespace" validate:"required"`
	Table     string    `json:"table"`

	// CREATE_TABLE
	Schema      json.RawMessage   `json:"schema,omitempty"`
	Properties  map[string]string `json:"properties,omitempty"`
	IfNotExists bool              `json:"if_not_exists,omitempty"`

	// WRITE
	Rows []map[string]any `json:"rows,omitempty"`

	// QUERY / UPDATE / DELETE / HARD_DELETE filters — accepts both the
	// list form and the legacy `{"field":{"op":value}}` map form (§6).
	Filters        json.RawMessage    `json:"filters,omitempty"`
	Projection     []string           `json:"projection,omitempty"`
	Sort           []SortInput        `json:"sort,omitempty"`
	GroupBy        []string           `json:"group_by,omitempty"`
	Aggregations   []AggregationInput `json:"aggregations,omitempty"`
	Having         json.RawMessage    `json:"having,omitempty"`
	Limit          *int               `json:"limit,omitempty"`
	Offset         *int               `json:"offset,omitempty"`
	AsOf           *time.Time         `json:"as_of,omitempty"`
	IncludeDeleted bool               `json:"include_deleted,omitempty"`
	SkipVersioning bool               `json:"skip_versioning,omitempty"`

	// UPDATE
	Updates map[string]any `json:"updates,omitempty"`

	// HARD_DELETE / COMPACT
	Confirm                bool `json:"confirm,omitempty"`
	ExpireSnapshots        bool `json:"expire_snapshots,omitempty"`
	SnapshotRetentionHours int  `json:"snapshot_retention_hours,omitempty"`

	// COMPACT
	Force            bool   `json:"force,omitempty"`
	TargetFileSizeMB int    `json:"target_file_size_mb,omitempty"`
	MaxFiles         int    `json:"max_files,omitempty"`
	PartitionFilter  string `json:"partition_filter,omitempty"`
}

// ErrorInfo is the response envelope's `error` block (§6/§7).
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Response is the single response envelope every operation returns
// (§6 "Response envelope").
type Response struct {
	Success               bool            `json:"success"`
	Data                  any             `json:"data,omitempty"`
	Metadata              *query.Metadata `json:"metadata,omitempty"`
	RequestID             string          `json:"request_id"`
	ExecutionTimeMS       int64           `json:"execution_time_ms"`
	Error                 *ErrorInfo      `json:"error,omitempty"`
	CompactionRecommended *bool           `json:"compaction_recommended,omitempty"`
	SmallFilesCount       *int            `json:"small_files_count,omitempty"`
}
