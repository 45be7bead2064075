package object

import "strings"

// Operator is a filter comparison operator.
type Operator string

// Comparison operators supported by storage backends.
const (
	OpEqual       Operator = "eq"
	OpNot         Operator = "not"
	OpMin         Operator = "min" // >=
	OpMax         Operator = "max" // <=
	OpLT          Operator = "lt"
	OpGT          Operator = "gt"
	OpIn          Operator = "in"
	OpExclude     Operator = "exclude"
	OpLike        Operator = "like"
	OpHas         Operator = "has"
	OpContains    Operator = "contains"
	OpContainsAny Operator = "contains_any"
)

// Filter is a single comparison applied to one field. Field may be a dotted
// path into nested maps.
type Filter struct {
	Field    string
	Value    any
	Operator Operator
}

// Sort orders results on one field. Field may be a dotted path.
type Sort struct {
	Field      string
	Descending bool
}

// ListOptions bundles the query surface shared by ListAll, DeleteAll and
// CountAll. Pagination holds OR-of-AND continuation rules decoded from a
// pagination token: an object matches when every filter of at least one
// rule matches.
type ListOptions struct {
	Filters        []Filter
	Sorting        []Sort
	Pagination     [][]Filter
	Limit          int
	IncludeDeleted bool
}

func lookupPath(m map[string]any, field string) (any, bool) {
	if !strings.Contains(field, ".") {
		v, ok := m[field]
		return v, ok
	}
	parts := strings.Split(field, ".")
	cur := any(m)
	for _, p := range parts {
		node, ok := cur.(map[string]any)
		if !ok {
			if obj, isObj := cur.(Object); isObj {
				node = map[string]any(obj)
			} else {
				return nil, false
			}
		}
		cur, ok = node[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}
