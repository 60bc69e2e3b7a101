package pgcatalog

// FieldDefinition.Name and .Fields are excluded from encoding/json via
// json:"-" tags because declaration order must survive field.go's
// ordered parsing path (§4.2), which an object-keyed json.Marshal
// cannot guarantee. Storing the physical schema in a jsonb column needs
// its own order-preserving wire shape, so a wireField array stands in
// for encoding/json's struct tags here the same way gjson stands in for
// it on the CREATE_TABLE ingest path.

import (
	"github.com/tansive/tablelake/internal/schema"
	"github.com/tansive/tablelake/internal/types"
)

type wireField struct {
	Name      string          `json:"name"`
	Type      types.FieldType `json:"type"`
	Required  bool            `json:"required,omitempty"`
	ID        int             `json:"id"`
	Items     *wireField      `json:"items,omitempty"`
	KeyType   types.FieldType `json:"key_type,omitempty"`
	ValueType *wireField      `json:"value_type,omitempty"`
	Fields    []*wireField    `json:"fields,omitempty"`
}

type wireSchema struct {
	UserFields   []*wireField `json:"user_fields"`
	SystemFields []*wireField `json:"system_fields"`
}

func toWireField(f *schema.FieldDefinition) *wireField {
	if f == nil {
		return nil
	}
	w := &wireField{
		Name:      f.Name,
		Type:      f.Type,
		Required:  f.Required,
		ID:        f.ID,
		Items:     toWireField(f.Items),
		KeyType:   f.KeyType,
		ValueType: toWireField(f.ValueType),
	}
	for _, sub := range f.Fields {
		w.Fields = append(w.Fields, toWireField(sub))
	}
	return w
}

func fromWireField(w *wireField) *schema.FieldDefinition {
	if w == nil {
		return nil
	}
	f := &schema.FieldDefinition{
		Name:      w.Name,
		Type:      w.Type,
		Required:  w.Required,
		ID:        w.ID,
		Items:     fromWireField(w.Items),
		KeyType:   w.KeyType,
		ValueType: fromWireField(w.ValueType),
	}
	for _, sub := range w.Fields {
		f.Fields = append(f.Fields, fromWireField(sub))
	}
	return f
}

func marshalSchema(phys *schema.PhysicalSchema) ([]byte, error) {
	w := wireSchema{}
	for _, f := range phys.UserFields {
		w.UserFields = append(w.UserFields, toWireField(f))
	}
	for _, f := range phys.SystemFields {
		w.SystemFields = append(w.SystemFields, toWireField(f))
	}
	return jsonc.Marshal(w)
}

func unmarshalSchema(raw []byte) (*schema.PhysicalSchema, error) {
	var w wireSchema
	if err := jsonc.Unmarshal(raw, &w); err != nil {
		return nil, err
	}
	phys := &schema.PhysicalSchema{}
	for _, f := range w.UserFields {
		phys.UserFields = append(phys.UserFields, fromWireField(f))
	}
	for _, f := range w.SystemFields {
		phys.SystemFields = append(phys.SystemFields, fromWireField(f))
	}
	return phys, nil
}

func unmarshalProperties(raw []byte) (map[string]string, error) {
	props := make(map[string]string)
	if len(raw) == 0 {
		return props, nil
	}
	if err := jsonc.Unmarshal(raw, &props); err != nil {
		return nil, err
	}
	return props, nil
}
