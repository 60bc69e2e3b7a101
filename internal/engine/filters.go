package engine

import (
	"encoding/json"

	"github.com/tansive/tablelake/internal/query"
)

// parseFilters decodes a filters block in either the list form
// (`[{"field":...,"operator":...,"value":...}]`) or the legacy map
// form (`{"field":{"op":value}}`), desugaring the latter to the same
// []query.Filter the Planner expects (§6 "Filter form"). A nil/empty
// raw value yields no filters.
func parseFilters(raw json.RawMessage) ([]query.Filter, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var list []FilterInput
	if err := codec.Unmarshal(raw, &list); err == nil {
		return toQueryFilters(list)
	}

	var legacy map[string]map[string]any
	if err := codec.Unmarshal(raw, &legacy); err != nil {
		return nil, ErrInvalidRequest.New("filters must be a list of {field,operator,value} or a legacy {field:{op:value}} map").Err(err)
	}
	list = make([]FilterInput, 0, len(legacy))
	for field, ops := range legacy {
		for op, value := range ops {
			list = append(list, FilterInput{Field: field, Operator: op, Value: value})
		}
	}
	return toQueryFilters(list)
}

func toQueryFilters(inputs []FilterInput) ([]query.Filter, error) {
	filters := make([]query.Filter, 0, len(inputs))
	for _, in := range inputs {
		f := query.Filter{Field: in.Field, Operator: in.Operator, Value: in.Value}
		if in.Operator == "between" {
			bounds, ok := in.Value.([]any)
			if !ok || len(bounds) != 2 {
				return nil, ErrInvalidRequest.New("between filter on " + in.Field + " requires a two-element [low, high] value")
			}
			f.Value = bounds[0]
			f.High = bounds[1]
		}
		filters = append(filters, f)
	}
	return filters, nil
}
