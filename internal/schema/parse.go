package schema

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/tansive/tablelake/internal/types"
)

// ParseUserSchema parses a CREATE_TABLE "schema" document (§6) into an
// order-preserving UserSchema. gjson.ForEach walks object members in
// their source order, which the standard library's map-based decoding
// does not guarantee — declaration order is load-bearing here because
// field ids are assigned depth-first over it (§4.2).
func ParseUserSchema(raw []byte) (*UserSchema, error) {
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, ErrInvalidSchema.New("schema is not valid JSON").Err(err)
	}
	if err := validateAgainstMetaSchema(generic); err != nil {
		return nil, ErrInvalidSchema.New("schema does not match the recognized field shape").Err(err)
	}

	root := gjson.ParseBytes(raw)
	fieldsVal := root.Get("fields")
	if !fieldsVal.Exists() || !fieldsVal.IsObject() {
		return nil, ErrInvalidSchema.New(`schema must have an object "fields" member`)
	}

	fields, err := parseFieldObject(fieldsVal)
	if err != nil {
		return nil, err
	}
	return &UserSchema{Fields: fields}, nil
}

func parseFieldObject(obj gjson.Result) ([]*FieldDefinition, error) {
	var (
		fields []*FieldDefinition
		parseErr error
	)
	obj.ForEach(func(key, value gjson.Result) bool {
		if types.IsSystemColumn(key.String()) {
			parseErr = ErrReservedFieldName.New(fmt.Sprintf("field %q collides with a system column", key.String()))
			return false
		}
		fd, err := parseFieldDefinition(key.String(), value)
		if err != nil {
			parseErr = err
			return false
		}
		fields = append(fields, fd)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return fields, nil
}

func parseFieldDefinition(name string, v gjson.Result) (*FieldDefinition, error) {
	if !v.IsObject() {
		return nil, ErrInvalidSchema.New(fmt.Sprintf("field %q must be an object", name))
	}
	typeName := v.Get("type").String()
	ft, ok := types.CanonicalTypeName(typeName)
	if !ok {
		return nil, ErrUnknownType.New(fmt.Sprintf("field %q has unknown type %q", name, typeName))
	}

	fd := &FieldDefinition{
		Name:     name,
		Type:     ft,
		Required: v.Get("required").Bool(),
	}

	switch ft {
	case types.TypeArray:
		items := v.Get("items")
		if !items.Exists() {
			return nil, ErrMissingNestedSpec.New(fmt.Sprintf(`array field %q requires "items"`, name))
		}
		itemDef, err := parseFieldDefinition(name+".items", items)
		if err != nil {
			return nil, err
		}
		fd.Items = itemDef

	case types.TypeMap:
		keyTypeName := v.Get("key_type").String()
		keyType, ok := types.CanonicalTypeName(keyTypeName)
		if !ok || !types.IsPrimitive(keyType) {
			return nil, ErrMissingNestedSpec.New(fmt.Sprintf(`map field %q requires a primitive "key_type"`, name))
		}
		valueVal := v.Get("value_type")
		if !valueVal.Exists() {
			return nil, ErrMissingNestedSpec.New(fmt.Sprintf(`map field %q requires "value_type"`, name))
		}
		valueDef, err := parseFieldDefinition(name+".value", valueVal)
		if err != nil {
			return nil, err
		}
		fd.KeyType = keyType
		fd.ValueType = valueDef

	case types.TypeStruct:
		fieldsVal := v.Get("fields")
		if !fieldsVal.Exists() || !fieldsVal.IsObject() {
			return nil, ErrMissingNestedSpec.New(fmt.Sprintf(`struct field %q requires "fields"`, name))
		}
		nested, err := parseFieldObject(fieldsVal)
		if err != nil {
			return nil, err
		}
		fd.Fields = nested
	}

	return fd, nil
}
