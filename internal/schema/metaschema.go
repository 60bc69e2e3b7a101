package schema

import (
	"bytes"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// fieldDefinitionMetaSchema describes the legal JSON shape of a
// FieldDefinition (§4.2, §6 "Schema input form"). It is intentionally
// permissive about cross-field rules ("array requires items") — those
// are structural invariants better expressed as exhaustive Go switches
// per §9's redesign note, not meta-schema constraints — and strict only
// about the recognized type vocabulary and the recursive shape.
const fieldDefinitionMetaSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "$id": "https://tablelake/schemas/field-definition.json",
  "$defs": {
    "field": {
      "type": "object",
      "required": ["type"],
      "properties": {
        "type": {
          "type": "string",
          "enum": ["string","integer","int","long","float","double","boolean","bool","date","timestamp","decimal","binary","bytes","array","list","map","struct","record"]
        },
        "required": {"type": "boolean"},
        "items": {"$ref": "#/$defs/field"},
        "key_type": {"type": "string"},
        "value_type": {"$ref": "#/$defs/field"},
        "fields": {
          "type": "object",
          "additionalProperties": {"$ref": "#/$defs/field"}
        }
      }
    }
  },
  "type": "object",
  "required": ["fields"],
  "properties": {
    "fields": {
      "type": "object",
      "additionalProperties": {"$ref": "#/$defs/field"}
    }
  }
}`

var (
	metaSchemaOnce sync.Once
	metaSchema     *jsonschema.Schema
	metaSchemaErr  error
)

func compiledMetaSchema() (*jsonschema.Schema, error) {
	metaSchemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		const id = "https://tablelake/schemas/field-definition.json"
		if err := c.AddResource(id, bytes.NewReader([]byte(fieldDefinitionMetaSchemaJSON))); err != nil {
			metaSchemaErr = err
			return
		}
		metaSchema, metaSchemaErr = c.Compile(id)
	})
	return metaSchema, metaSchemaErr
}

// validateAgainstMetaSchema rejects a CREATE_TABLE schema document whose
// shape doesn't even match the recognized field-type vocabulary or the
// recursive array/map/struct spec shape, before the Schema Mapper ever
// walks it.
func validateAgainstMetaSchema(doc any) error {
	s, err := compiledMetaSchema()
	if err != nil {
		return err
	}
	return s.Validate(doc)
}
