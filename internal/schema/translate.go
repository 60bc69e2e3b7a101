package schema

import "github.com/tansive/tablelake/internal/types"

// ToPhysical assigns stable, depth-first field ids starting at 1 (§4.2)
// and appends the six system columns, producing the physical schema the
// table-format writer and planner operate against.
//
// Field ids must be stable for the lifetime of a table. Calling
// ToPhysical twice on the same UserSchema value is therefore only safe
// at CREATE_TABLE time, before the assignment is persisted — later
// schema reads must rehydrate ids from the stored physical schema, not
// recompute them.
func (u *UserSchema) ToPhysical() (*PhysicalSchema, error) {
	if len(u.Fields) == 0 {
		return nil, ErrInvalidSchema.New("schema must declare at least one field")
	}
	next := 1
	userFields := make([]*FieldDefinition, 0, len(u.Fields))
	for _, f := range u.Fields {
		assigned := assignIDs(f, &next)
		userFields = append(userFields, assigned)
	}

	systemFields := make([]*FieldDefinition, 0, len(types.SystemColumns))
	for _, name := range types.SystemColumns {
		systemFields = append(systemFields, &FieldDefinition{
			Name:     name,
			Type:     systemColumnType(name),
			Required: name != types.ColDeletedAt,
			ID:       next,
		})
		next++
	}

	return &PhysicalSchema{UserFields: userFields, SystemFields: systemFields}, nil
}

// assignIDs walks f depth-first, assigning *next to f itself before
// recursing into its nested members — matching "depth-first declaration
// order" (§4.2): a struct's own id precedes its children's.
func assignIDs(f *FieldDefinition, next *int) *FieldDefinition {
	f.ID = *next
	*next++

	switch f.Type {
	case types.TypeArray:
		if f.Items != nil {
			assignIDs(f.Items, next)
		}
	case types.TypeMap:
		if f.ValueType != nil {
			assignIDs(f.ValueType, next)
		}
	case types.TypeStruct:
		for _, child := range f.Fields {
			assignIDs(child, next)
		}
	}
	return f
}

func systemColumnType(name string) types.FieldType {
	switch name {
	case types.ColVersion:
		return types.TypeInteger
	case types.ColTimestamp, types.ColDeletedAt:
		return types.TypeTimestamp
	case types.ColDeleted:
		return types.TypeBoolean
	default:
		return types.TypeString
	}
}

// MaxNestingDepth reports the deepest nesting level across all user
// fields, for the depth-3 warning noted in §4.2 ("implementations may
// warn beyond depth 3"). Depth 1 is a top-level field.
func (u *UserSchema) MaxNestingDepth() int {
	max := 0
	for _, f := range u.Fields {
		if d := depthOf(f, 1); d > max {
			max = d
		}
	}
	return max
}

func depthOf(f *FieldDefinition, depth int) int {
	switch f.Type {
	case types.TypeArray:
		if f.Items != nil {
			return depthOf(f.Items, depth+1)
		}
	case types.TypeMap:
		if f.ValueType != nil {
			return depthOf(f.ValueType, depth+1)
		}
	case types.TypeStruct:
		max := depth
		for _, child := range f.Fields {
			if d := depthOf(child, depth+1); d > max {
				max = d
			}
		}
		return max
	}
	return depth
}
