package object

import "testing"

func TestMatchFilter(t *testing.T) {
	obj := Object{
		"id":     "r1",
		"rank":   3,
		"title":  "Moby Dick",
		"tags":   []any{"novel", "classic"},
		"author": map[string]any{"name": "melville"},
	}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"eq match", Filter{Field: "id", Value: "r1", Operator: OpEqual}, true},
		{"eq default operator", Filter{Field: "id", Value: "r1"}, true},
		{"eq mismatch", Filter{Field: "id", Value: "r2", Operator: OpEqual}, false},
		{"eq numeric cross-type", Filter{Field: "rank", Value: 3.0, Operator: OpEqual}, true},
		{"min inclusive", Filter{Field: "rank", Value: 3, Operator: OpMin}, true},
		{"max exceeded", Filter{Field: "rank", Value: 2, Operator: OpMax}, false},
		{"lt strict", Filter{Field: "rank", Value: 3, Operator: OpLT}, false},
		{"gt strict", Filter{Field: "rank", Value: 2, Operator: OpGT}, true},
		{"in hit", Filter{Field: "id", Value: []any{"r0", "r1"}, Operator: OpIn}, true},
		{"in miss", Filter{Field: "id", Value: []any{"r0", "r2"}, Operator: OpIn}, false},
		{"exclude hit", Filter{Field: "id", Value: []any{"r1"}, Operator: OpExclude}, false},
		{"exclude missing field", Filter{Field: "nope", Value: []any{"x"}, Operator: OpExclude}, true},
		{"not mismatch", Filter{Field: "id", Value: "r2", Operator: OpNot}, true},
		{"not missing field", Filter{Field: "nope", Value: "x", Operator: OpNot}, true},
		{"like case-insensitive substring", Filter{Field: "title", Value: "moby", Operator: OpLike}, true},
		{"like miss", Filter{Field: "title", Value: "ahab", Operator: OpLike}, false},
		{"has present", Filter{Field: "title", Value: true, Operator: OpHas}, true},
		{"has absent", Filter{Field: "nope", Value: false, Operator: OpHas}, true},
		{"contains all", Filter{Field: "tags", Value: []any{"novel", "classic"}, Operator: OpContains}, true},
		{"contains partial", Filter{Field: "tags", Value: []any{"novel", "poem"}, Operator: OpContains}, false},
		{"contains_any partial", Filter{Field: "tags", Value: []any{"novel", "poem"}, Operator: OpContainsAny}, true},
		{"contains_any miss", Filter{Field: "tags", Value: []any{"poem"}, Operator: OpContainsAny}, false},
		{"dotted path", Filter{Field: "author.name", Value: "melville", Operator: OpEqual}, true},
		{"dotted path missing", Filter{Field: "author.born", Value: 1819, Operator: OpEqual}, false},
		{"missing field positive operator", Filter{Field: "nope", Value: 1, Operator: OpMin}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := matchFilter(obj, tc.filter); got != tc.want {
				t.Fatalf("matchFilter(%+v) = %v, want %v", tc.filter, got, tc.want)
			}
		})
	}
}

func TestMatchesOptionsPaginationRules(t *testing.T) {
	obj := Object{"id": "r5", "last_modified": int64(100)}
	opts := &ListOptions{
		Pagination: [][]Filter{
			{
				{Field: "last_modified", Value: int64(100), Operator: OpEqual},
				{Field: "id", Value: "r4", Operator: OpGT},
			},
			{{Field: "last_modified", Value: int64(100), Operator: OpGT}},
		},
	}
	if !MatchesOptions(obj, opts) {
		t.Fatal("object past the cursor should match the continuation rules")
	}

	before := Object{"id": "r3", "last_modified": int64(100)}
	if MatchesOptions(before, opts) {
		t.Fatal("object before the cursor should not match")
	}
}

func TestSortObjects(t *testing.T) {
	objs := []Object{
		{"id": "a", "rank": 2, "last_modified": int64(10)},
		{"id": "b", "rank": 1, "last_modified": int64(30)},
		{"id": "c", "rank": 2, "last_modified": int64(20)},
	}

	SortObjects(objs, []Sort{{Field: "rank"}, {Field: "last_modified", Descending: true}})
	got := objs[0].ID() + objs[1].ID() + objs[2].ID()
	if got != "bca" {
		t.Fatalf("sorted order = %q, want %q", got, "bca")
	}

	// Empty spec falls back to last_modified descending.
	SortObjects(objs, nil)
	if objs[0].ID() != "b" || objs[2].ID() != "a" {
		t.Fatalf("default order wrong: %v %v %v", objs[0].ID(), objs[1].ID(), objs[2].ID())
	}
}

func TestCompareMixedTypes(t *testing.T) {
	if Compare(nil, "x") >= 0 {
		t.Fatal("nil should order before any value")
	}
	if Compare(true, false) <= 0 {
		t.Fatal("true should order after false")
	}
	if Compare(int64(2), 2.0) != 0 {
		t.Fatal("numeric values should compare across Go types")
	}
	if Compare("b", "a") <= 0 {
		t.Fatal("strings should compare lexicographically")
	}
}
