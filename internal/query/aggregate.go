package query

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// aggregate implements §4.5 rule 7's group_by + aggregations step. With
// neither set, rows pass through unchanged. With aggregations but no
// group_by, the whole row set is treated as a single group.
func aggregate(rows []map[string]any, groupBy []string, aggs []Aggregation) ([]map[string]any, error) {
	if len(groupBy) == 0 && len(aggs) == 0 {
		return rows, nil
	}

	groups := make(map[string][]map[string]any)
	var order []string
	for _, row := range rows {
		key := groupKey(row, groupBy)
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], row)
	}
	if len(groupBy) == 0 && len(groups) == 0 {
		// No input rows but aggregations were requested: still report one
		// group's worth of zero-valued aggregates, matching the usual SQL
		// behavior for count()/sum() over an empty set.
		order = []string{""}
		groups[""] = nil
	}

	out := make([]map[string]any, 0, len(order))
	for _, key := range order {
		groupRows := groups[key]
		result := make(map[string]any, len(groupBy)+len(aggs))
		if len(groupRows) > 0 {
			for _, field := range groupBy {
				v, _ := fieldValue(groupRows[0], field)
				result[field] = v
			}
		}
		for _, agg := range aggs {
			v, err := computeAggregation(groupRows, agg)
			if err != nil {
				return nil, err
			}
			alias := agg.Alias
			if alias == "" {
				alias = agg.Function + "_" + agg.Field
			}
			result[alias] = v
		}
		out = append(out, result)
	}
	return out, nil
}

func groupKey(row map[string]any, groupBy []string) string {
	parts := make([]string, len(groupBy))
	for i, field := range groupBy {
		v, _ := fieldValue(row, field)
		parts[i] = fmt.Sprintf("%v", v)
	}
	return strings.Join(parts, "\x1f")
}

func computeAggregation(rows []map[string]any, agg Aggregation) (any, error) {
	switch agg.Function {
	case "count":
		return len(rows), nil
	case "count_distinct":
		seen := make(map[string]struct{}, len(rows))
		for _, row := range rows {
			v, _ := fieldValue(row, agg.Field)
			seen[fmt.Sprintf("%v", v)] = struct{}{}
		}
		return len(seen), nil
	}

	values := numericValues(rows, agg.Field)
	switch agg.Function {
	case "sum":
		return sum(values), nil
	case "avg":
		if len(values) == 0 {
			return nil, nil
		}
		return sum(values) / float64(len(values)), nil
	case "min":
		return minOf(values), nil
	case "max":
		return maxOf(values), nil
	case "stddev":
		return math.Sqrt(variance(values)), nil
	case "variance":
		return variance(values), nil
	case "median":
		return median(values), nil
	default:
		return nil, ErrInvalidRequest.New("unknown aggregation function " + agg.Function)
	}
}

func numericValues(rows []map[string]any, field string) []float64 {
	out := make([]float64, 0, len(rows))
	for _, row := range rows {
		v, ok := fieldValue(row, field)
		if !ok {
			continue
		}
		if f, ok := asFloat(v); ok {
			out = append(out, f)
		}
	}
	return out
}

func sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}

func minOf(values []float64) any {
	if len(values) == 0 {
		return nil
	}
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxOf(values []float64) any {
	if len(values) == 0 {
		return nil
	}
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := sum(values) / float64(len(values))
	var acc float64
	for _, v := range values {
		d := v - mean
		acc += d * d
	}
	return acc / float64(len(values))
}

func median(values []float64) any {
	if len(values) == 0 {
		return nil
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
