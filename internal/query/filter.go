package query

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gobwas/glob"
)

// matchesAll reports whether row satisfies every filter, ANDed (§4.5
// rule 6).
func matchesAll(row map[string]any, filters []Filter) (bool, error) {
	for _, f := range filters {
		ok, err := matches(row, f)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func matches(row map[string]any, f Filter) (bool, error) {
	actual, present := fieldValue(row, f.Field)

	switch f.Operator {
	case "in":
		values, ok := f.Value.([]any)
		if !ok {
			return false, ErrInvalidRequest.New("'in' filter value must be a list")
		}
		for _, v := range values {
			if present {
				cmp, err := compareValues(actual, v)
				if err == nil && cmp == 0 {
					return true, nil
				}
			}
		}
		return false, nil

	case "like":
		if !present {
			return false, nil
		}
		pattern, ok := f.Value.(string)
		if !ok {
			return false, ErrInvalidRequest.New("'like' filter value must be a string")
		}
		g, err := glob.Compile(sqlLikeToGlob(pattern))
		if err != nil {
			return false, ErrInvalidRequest.New("invalid like pattern").Err(err)
		}
		return g.Match(stringify(actual)), nil

	case "between":
		if !present {
			return false, nil
		}
		lowCmp, err := compareValues(actual, f.Value)
		if err != nil {
			return false, err
		}
		highCmp, err := compareValues(actual, f.High)
		if err != nil {
			return false, err
		}
		return lowCmp >= 0 && highCmp <= 0, nil

	default:
		if !present {
			return false, nil
		}
		cmp, err := compareValues(actual, f.Value)
		if err != nil {
			return false, err
		}
		switch f.Operator {
		case "eq":
			return cmp == 0, nil
		case "ne":
			return cmp != 0, nil
		case "gt":
			return cmp > 0, nil
		case "gte":
			return cmp >= 0, nil
		case "lt":
			return cmp < 0, nil
		case "lte":
			return cmp <= 0, nil
		default:
			return false, ErrInvalidRequest.New("unknown filter operator " + f.Operator)
		}
	}
}

// sqlLikeToGlob translates SQL LIKE wildcards (% and _) into the
// */? glob syntax gobwas/glob expects, escaping glob's own special
// characters in the literal portions of the pattern first (§4.5 "like
// uses %/_ wildcards").
func sqlLikeToGlob(pattern string) string {
	var b strings.Builder
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteRune('*')
		case '_':
			b.WriteRune('?')
		case '*', '?', '[', ']', '{', '}', '!', '\\':
			b.WriteRune('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// compareValues implements §4.5's comparison semantics: string
// comparisons are byte-ordinal, numeric types compare numerically
// regardless of which Go numeric kind decoded them, time.Time values
// compare chronologically. Comparing across incompatible kinds fails
// with TypeMismatch rather than silently coercing.
func compareValues(a, b any) (int, error) {
	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			switch {
			case af < bf:
				return -1, nil
			case af > bf:
				return 1, nil
			default:
				return 0, nil
			}
		}
		return 0, ErrTypeMismatch.New(fmt.Sprintf("cannot compare numeric value to %T", b))
	}

	if at, aok := asTime(a); aok {
		if bt, bok := asTime(b); bok {
			switch {
			case at.Before(bt):
				return -1, nil
			case at.After(bt):
				return 1, nil
			default:
				return 0, nil
			}
		}
		return 0, ErrTypeMismatch.New(fmt.Sprintf("cannot compare timestamp value to %T", b))
	}

	if as, aok := a.(string); aok {
		if bs, bok := b.(string); bok {
			return strings.Compare(as, bs), nil
		}
		return 0, ErrTypeMismatch.New(fmt.Sprintf("cannot compare string value to %T", b))
	}

	if ab, aok := a.(bool); aok {
		if bb, bok := b.(bool); bok {
			if ab == bb {
				return 0, nil
			}
			return -1, nil
		}
		return 0, ErrTypeMismatch.New(fmt.Sprintf("cannot compare boolean value to %T", b))
	}

	return 0, ErrTypeMismatch.New(fmt.Sprintf("cannot compare %T to %T", a, b))
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func asTime(v any) (time.Time, bool) {
	t, ok := v.(time.Time)
	return t, ok
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// sortRows orders rows in place per §4.5 rule 7, applied after
// group/aggregate/having. Multiple sort keys are applied in order,
// stable so ties preserve prior ordering.
func sortRows(rows []map[string]any, keys []Sort) {
	sort.SliceStable(rows, func(i, j int) bool {
		for _, k := range keys {
			av, _ := fieldValue(rows[i], k.Field)
			bv, _ := fieldValue(rows[j], k.Field)
			cmp, err := compareValues(av, bv)
			if err != nil || cmp == 0 {
				continue
			}
			if k.Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}
