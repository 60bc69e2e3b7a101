package query

// Dotted nested-field resolution (§4.5 rule 6, "address.city") is
// implemented by round-tripping a row through its canonical JSON
// encoding and resolving the path with gjson, the same tool the Schema
// Mapper uses to walk an ordered JSON document rather than hand-rolling
// a map-path walker for every nesting shape (array/map/struct).

import (
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/tidwall/gjson"

	"github.com/tansive/tablelake/internal/schema"
	"github.com/tansive/tablelake/internal/types"
)

var jsonc = jsoniter.ConfigCompatibleWithStandardLibrary

// fieldValue resolves a (possibly dotted) field path against row,
// returning the raw Go value and whether the path existed at all. A
// non-existent path returns (nil, false), distinct from a present path
// holding an explicit null.
func fieldValue(row map[string]any, path string) (any, bool) {
	// The common case — a bare top-level column — never needs to pay for
	// a JSON round trip.
	if v, ok := row[path]; ok {
		return v, true
	}

	encoded, err := jsonc.Marshal(row)
	if err != nil {
		return nil, false
	}
	result := gjson.GetBytes(encoded, gjsonPath(path))
	if !result.Exists() {
		return nil, false
	}
	return result.Value(), true
}

// gjsonPath adapts a dotted field path to gjson's own dot syntax. The
// two already agree field-for-field; this exists as the single seam
// where a future escaping rule (field names containing literal dots)
// would be handled.
func gjsonPath(path string) string {
	return path
}

// validatePath resolves a (possibly dotted) field path against phys's
// user fields at plan time, failing with ErrInvalidRequest if any
// segment past the first isn't reached through a struct field (§9
// "Nested-field filters via dotted names... resolved against the
// schema at plan time; fail with InvalidRequest if any segment is not
// a struct member"). An empty path (e.g. count(*)'s field-less
// aggregation) is always valid, and so is a bare system column name,
// which a request may name explicitly (§4.5 rule 8).
func validatePath(phys *schema.PhysicalSchema, path string) error {
	if path == "" || types.IsSystemColumn(path) {
		return nil
	}
	segments := strings.Split(path, ".")
	fields := phys.UserFields
	for i, seg := range segments {
		field := lookupField(fields, seg)
		if field == nil {
			return ErrInvalidRequest.New(fmt.Sprintf("unknown field %q in path %q", seg, path))
		}
		if i == len(segments)-1 {
			break
		}
		if field.Type != types.TypeStruct {
			return ErrInvalidRequest.New(fmt.Sprintf("%q in path %q is not a struct field", seg, path))
		}
		fields = field.Fields
	}
	return nil
}

func lookupField(fields []*schema.FieldDefinition, name string) *schema.FieldDefinition {
	for _, f := range fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// validateRequestPaths walks every dotted field path named anywhere in
// req — filters, having, sort, group_by, aggregations, and the explicit
// projection — against phys before the Planner runs a single
// matchesAll/project step (§9). Raw requests (internal/mvcc,
// internal/compactor) still validate their filters, since those name
// user fields too; only the projection step they skip is exempt.
func validateRequestPaths(phys *schema.PhysicalSchema, req Request) error {
	for _, f := range req.Filters {
		if err := validatePath(phys, f.Field); err != nil {
			return err
		}
	}
	for _, f := range req.Having {
		if err := validatePath(phys, f.Field); err != nil {
			return err
		}
	}
	for _, s := range req.Sort {
		if err := validatePath(phys, s.Field); err != nil {
			return err
		}
	}
	for _, g := range req.GroupBy {
		if err := validatePath(phys, g); err != nil {
			return err
		}
	}
	for _, a := range req.Aggregations {
		if err := validatePath(phys, a.Field); err != nil {
			return err
		}
	}
	if !req.Raw {
		for _, p := range req.Projection {
			if err := validatePath(phys, p); err != nil {
				return err
			}
		}
	}
	return nil
}
