package object

import (
	"sort"
	"strings"
)

// MatchesFilters reports whether the object satisfies every filter.
func MatchesFilters(obj Object, filters []Filter) bool {
	for _, f := range filters {
		if !matchFilter(obj, f) {
			return false
		}
	}
	return true
}

// MatchesOptions applies both the filters and the OR-of-AND pagination
// rules of opts.
func MatchesOptions(obj Object, opts *ListOptions) bool {
	if !MatchesFilters(obj, opts.Filters) {
		return false
	}
	if len(opts.Pagination) == 0 {
		return true
	}
	for _, group := range opts.Pagination {
		if MatchesFilters(obj, group) {
			return true
		}
	}
	return false
}

// SortObjects orders objects in place. An empty sort specification falls
// back to the deterministic last_modified-descending order every listing
// guarantees.
func SortObjects(objs []Object, sorting []Sort) {
	if len(sorting) == 0 {
		sorting = []Sort{{Field: FieldLastModified, Descending: true}}
	}
	sort.SliceStable(objs, func(i, j int) bool {
		for _, s := range sorting {
			a, _ := objs[i].Lookup(s.Field)
			b, _ := objs[j].Lookup(s.Field)
			c := Compare(a, b)
			if c == 0 {
				continue
			}
			if s.Descending {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

// matchFilter evaluates one filter against one object. Missing fields only
// match negative operators (not/exclude) and the has operator with a false
// value.
func matchFilter(obj Object, f Filter) bool {
	v, ok := obj.Lookup(f.Field)

	switch f.Operator {
	case OpHas:
		want, _ := f.Value.(bool)
		return ok == want
	case OpNot:
		return !ok || Compare(v, f.Value) != 0
	case OpExclude:
		return !ok || !valueIn(v, f.Value)
	}

	if !ok {
		return false
	}

	switch f.Operator {
	case OpEqual, "":
		return Compare(v, f.Value) == 0
	case OpMin:
		return Compare(v, f.Value) >= 0
	case OpMax:
		return Compare(v, f.Value) <= 0
	case OpLT:
		return Compare(v, f.Value) < 0
	case OpGT:
		return Compare(v, f.Value) > 0
	case OpIn:
		return valueIn(v, f.Value)
	case OpLike:
		s, okS := v.(string)
		pat, okP := f.Value.(string)
		if !okS || !okP {
			return false
		}
		return strings.Contains(strings.ToLower(s), strings.ToLower(pat))
	case OpContains:
		list, okL := v.([]any)
		if !okL {
			return false
		}
		for _, want := range valueList(f.Value) {
			if !listContains(list, want) {
				return false
			}
		}
		return true
	case OpContainsAny:
		list, okL := v.([]any)
		if !okL {
			return false
		}
		for _, want := range valueList(f.Value) {
			if listContains(list, want) {
				return true
			}
		}
		return false
	}
	return false
}

func valueList(v any) []any {
	if list, ok := v.([]any); ok {
		return list
	}
	return []any{v}
}

func valueIn(v, candidates any) bool {
	for _, c := range valueList(candidates) {
		if Compare(v, c) == 0 {
			return true
		}
	}
	return false
}

func listContains(list []any, want any) bool {
	for _, e := range list {
		if Compare(e, want) == 0 {
			return true
		}
	}
	return false
}

// Compare orders two JSON-ish values. Numbers compare numerically across
// int/int64/float64; otherwise values compare within their own type, and
// mismatched types compare by type name so sorting stays deterministic.
func Compare(a, b any) int {
	af, aNum := asFloat(a)
	bf, bNum := asFloat(b)
	if aNum && bNum {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}

	switch at := a.(type) {
	case string:
		if bt, ok := b.(string); ok {
			return strings.Compare(at, bt)
		}
	case bool:
		if bt, ok := b.(bool); ok {
			switch {
			case at == bt:
				return 0
			case bt:
				return -1
			default:
				return 1
			}
		}
	case nil:
		if b == nil {
			return 0
		}
		return -1
	}
	if b == nil {
		return 1
	}
	return strings.Compare(typeName(a), typeName(b))
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case float64:
		return t, true
	}
	return 0, false
}

func typeName(v any) string {
	switch v.(type) {
	case bool:
		return "bool"
	case string:
		return "string"
	case []any:
		return "list"
	case map[string]any, Object:
		return "map"
	default:
		return "other"
	}
}
