// Package schema implements the Schema Mapper (§4.2): translating a
// user-facing JSON schema into a physically-typed schema with stable,
// depth-first field identifiers, plus the Record Envelope's six system
// columns (§3).
package schema

import (
	"encoding/json"

	"github.com/tansive/tablelake/internal/types"
)

// FieldDefinition is a single field in either the user schema or the
// physical schema produced from it. Nested kinds (array/map/struct) are
// represented as tagged variants per §9's redesign note rather than via
// dynamic type-name dispatch.
type FieldDefinition struct {
	Name     string          `json:"-"`
	Type     types.FieldType `json:"type"`
	Required bool            `json:"required,omitempty"`

	// Array
	Items *FieldDefinition `json:"items,omitempty"`

	// Map
	KeyType   types.FieldType  `json:"key_type,omitempty"`
	ValueType *FieldDefinition `json:"value_type,omitempty"`

	// Struct — ordered, not a map, so depth-first declaration order
	// survives (§4.2).
	Fields []*FieldDefinition `json:"-"`

	// ID is the stable field identifier assigned by ToPhysical. Zero
	// until assignment.
	ID int `json:"-"`
}

// UserSchema is the parsed, order-preserving "fields" map from a
// CREATE_TABLE request (§6 "Schema input form").
type UserSchema struct {
	Fields []*FieldDefinition
}

// PhysicalSchema is the user schema augmented with the six system
// columns, all fields carrying stable ids (§3 "Physical schema").
type PhysicalSchema struct {
	UserFields   []*FieldDefinition
	SystemFields []*FieldDefinition
}

// ColumnNames returns every column name in the fixed physical order:
// user columns in declaration order, then the six system columns
// (§3 invariant).
func (p *PhysicalSchema) ColumnNames() []string {
	names := make([]string, 0, len(p.UserFields)+len(types.SystemColumns))
	for _, f := range p.UserFields {
		names = append(names, f.Name)
	}
	names = append(names, types.SystemColumns...)
	return names
}

// Lookup finds a top-level user field by name.
func (p *PhysicalSchema) Lookup(name string) (*FieldDefinition, bool) {
	for _, f := range p.UserFields {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// rawFieldDefinition mirrors the wire shape for json.Unmarshal of a
// single nested field; object-valued "fields" is decoded separately via
// orderedObjectKeys to preserve declaration order, which encoding/json's
// map decoding does not guarantee.
type rawFieldDefinition struct {
	Type      string          `json:"type"`
	Required  bool            `json:"required"`
	Items     json.RawMessage `json:"items"`
	KeyType   string          `json:"key_type"`
	ValueType json.RawMessage `json:"value_type"`
	Fields    json.RawMessage `json:"fields"`
}
