// Package types holds the identifiers and field-type vocabulary shared
// across the engine: tenant/table identity and the system columns every
// row carries (§3).
package types

import (
	"strings"

	"golang.org/x/text/cases"
)

var foldCase = cases.Fold()

// TenantID identifies the tenant owning a table. Non-empty by contract;
// enforced at the operation-envelope validation boundary, not here.
type TenantID string

// Namespace groups tables within a tenant.
type Namespace string

// TableName is the user-facing table name within a namespace.
type TableName string

// TableIdentity is the full (tenant, namespace, name) address of a
// table (§3 "Table identity").
type TableIdentity struct {
	TenantID  TenantID
	Namespace Namespace
	Name      TableName
}

// PhysicalNamespace forms the catalog-layer namespace string that
// enforces tenant isolation at the catalog (§3: `"{tenant_id}_{namespace}"`).
func (t TableIdentity) PhysicalNamespace() string {
	return string(t.TenantID) + "_" + string(t.Namespace)
}

func (t TableIdentity) String() string {
	return t.PhysicalNamespace() + "/" + string(t.Name)
}

// System column names (§3 "Physical schema").
const (
	ColTenantID  = "_tenant_id"
	ColRecordID  = "_record_id"
	ColTimestamp = "_timestamp"
	ColVersion   = "_version"
	ColDeleted   = "_deleted"
	ColDeletedAt = "_deleted_at"
)

// SystemColumns lists the six system columns in the fixed order they are
// appended after user columns (§3 invariant: "declaration order followed
// by system columns").
var SystemColumns = []string{
	ColTenantID, ColRecordID, ColTimestamp, ColVersion, ColDeleted, ColDeletedAt,
}

// IsSystemColumn reports whether name is one of the six reserved columns.
func IsSystemColumn(name string) bool {
	for _, c := range SystemColumns {
		if c == name {
			return true
		}
	}
	return false
}

// FieldType is the closed set of user schema field types (§3 "User
// schema"). Modeled as a Go string enum rather than the teacher's
// dynamic-dispatch-by-name pattern, per the redesign note in §9: schemas
// are tagged variants matched exhaustively, not looked up at runtime.
type FieldType string

const (
	TypeString    FieldType = "string"
	TypeInteger   FieldType = "integer"
	TypeLong      FieldType = "long"
	TypeFloat     FieldType = "float"
	TypeDouble    FieldType = "double"
	TypeBoolean   FieldType = "boolean"
	TypeDate      FieldType = "date"
	TypeTimestamp FieldType = "timestamp"
	TypeDecimal   FieldType = "decimal"
	TypeBinary    FieldType = "binary"
	TypeArray     FieldType = "array"
	TypeMap       FieldType = "map"
	TypeStruct    FieldType = "struct"
)

// primitiveAliases canonicalizes alternate spellings of primitive type
// names (§4.2: "int ≡ integer").
var primitiveAliases = map[string]FieldType{
	"int":       TypeInteger,
	"integer":   TypeInteger,
	"long":      TypeLong,
	"bigint":    TypeLong,
	"float":     TypeFloat,
	"double":    TypeDouble,
	"string":    TypeString,
	"str":       TypeString,
	"boolean":   TypeBoolean,
	"bool":      TypeBoolean,
	"date":      TypeDate,
	"timestamp": TypeTimestamp,
	"decimal":   TypeDecimal,
	"binary":    TypeBinary,
	"bytes":     TypeBinary,
	"array":     TypeArray,
	"list":      TypeArray,
	"map":       TypeMap,
	"struct":    TypeStruct,
	"record":    TypeStruct,
}

// CanonicalTypeName folds an arbitrary-case, alias-bearing user type name
// to its canonical FieldType. ok is false for unrecognized names, which
// the caller turns into InvalidSchema (§4.2).
func CanonicalTypeName(name string) (FieldType, bool) {
	t, ok := primitiveAliases[foldCase.String(strings.TrimSpace(name))]
	return t, ok
}

// IsPrimitive reports whether t is a scalar (non-nested) type.
func IsPrimitive(t FieldType) bool {
	switch t {
	case TypeArray, TypeMap, TypeStruct:
		return false
	default:
		return true
	}
}
