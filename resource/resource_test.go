package resource

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"testing"

	"github.com/xraph/shelf"
	"github.com/xraph/shelf/id"
	"github.com/xraph/shelf/model"
	"github.com/xraph/shelf/object"
	"github.com/xraph/shelf/store/memory"
)

func newTestResource(t *testing.T) (*Resource, *memory.Store) {
	t.Helper()
	s := memory.New()
	desc := Descriptor{
		Name:               "record",
		CollectionPath:     "/buckets/b/collections/c/records",
		ObjectPathTemplate: "/buckets/b/collections/c/records/{id}",
		IDGenerator:        id.Name{},
	}
	m := &model.Model{
		Storage:    s,
		ACL:        s,
		Resource:   "record",
		ParentID:   "/buckets/b/collections/c",
		Principal:  "basicauth:alice",
		Principals: []string{"basicauth:alice", shelf.PrincipalEveryone},
		Config:     shelf.DefaultConfig(),
	}
	return New(desc, m, shelf.DefaultConfig(), nil), s
}

// cmpBySort orders two objects under a sort spec, for cross-page ordering
// assertions.
func cmpBySort(a, b object.Object, sorting []object.Sort) int {
	for _, s := range sorting {
		av, _ := a.Lookup(s.Field)
		bv, _ := b.Lookup(s.Field)
		c := object.Compare(av, bv)
		if c == 0 {
			continue
		}
		if s.Descending {
			return -c
		}
		return c
	}
	return 0
}

func TestPaginationRoundTrip(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestResource(t)

	for i := 0; i < 25; i++ {
		obj := object.Object{"n": i, "group": i % 3}
		if _, _, err := r.CollectionPost(ctx, obj, Preconditions{}); err != nil {
			t.Fatal(err)
		}
	}

	cases := []struct {
		name    string
		spec    string
		sorting []object.Sort
	}{
		{"default", "", []object.Sort{{Field: object.FieldLastModified, Descending: true}}},
		{"one key ascending", "n", []object.Sort{{Field: "n"}}},
		{"one key descending", "-n", []object.Sort{{Field: "n", Descending: true}}},
		{"two keys ascending", "group,n", []object.Sort{{Field: "group"}, {Field: "n"}}},
		{"two keys descending", "-group,-n", []object.Sort{{Field: "group", Descending: true}, {Field: "n", Descending: true}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			nextQuery := func(token string) url.Values {
				q := url.Values{"_limit": {"10"}}
				if tc.spec != "" {
					q.Set("_sort", tc.spec)
				}
				if token != "" {
					q.Set("_token", token)
				}
				return q
			}

			seen := make(map[string]bool)
			var collected []object.Object
			query := nextQuery("")
			pages := 0
			for {
				page, err := r.CollectionGet(ctx, query, nil, Preconditions{})
				if err != nil {
					t.Fatal(err)
				}
				pages++
				for _, obj := range page.Objects {
					if seen[obj.ID()] {
						t.Fatalf("object %s served twice", obj.ID())
					}
					seen[obj.ID()] = true
					collected = append(collected, obj)
				}
				if page.NextToken == "" {
					break
				}
				query = nextQuery(page.NextToken)
			}

			if len(seen) != 25 {
				t.Fatalf("expected 25 distinct objects across pages, got %d", len(seen))
			}
			if pages != 3 {
				t.Fatalf("expected 3 pages, got %d", pages)
			}
			for i := 1; i < len(collected); i++ {
				if cmpBySort(collected[i-1], collected[i], tc.sorting) > 0 {
					t.Fatalf("ordering broken across pages at position %d", i)
				}
			}
		})
	}
}

func TestCollectionGetSharedIDs(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestResource(t)

	for _, oid := range []string{"a", "b", "c"} {
		if _, _, err := r.CollectionPost(ctx, object.Object{"id": oid}, Preconditions{}); err != nil {
			t.Fatal(err)
		}
	}

	page, err := r.CollectionGet(ctx, url.Values{}, []string{"a", "c"}, Preconditions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Objects) != 2 {
		t.Fatalf("expected 2 shared objects, got %d", len(page.Objects))
	}

	// Computed-but-empty narrows to nothing; nil leaves the listing alone.
	empty, err := r.CollectionGet(ctx, url.Values{}, []string{}, Preconditions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(empty.Objects) != 0 {
		t.Fatalf("expected an empty page, got %d objects", len(empty.Objects))
	}
}

func TestCollectionPostExistingID(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestResource(t)

	first, created, err := r.CollectionPost(ctx, object.Object{"id": "dup", "v": 1}, Preconditions{})
	if err != nil || !created {
		t.Fatalf("first post failed: created=%v err=%v", created, err)
	}

	second, created, err := r.CollectionPost(ctx, object.Object{"id": "dup", "v": 2}, Preconditions{})
	if err != nil {
		t.Fatal(err)
	}
	if created {
		t.Fatal("second post must not create")
	}
	if second.LastModified() != first.LastModified() {
		t.Fatal("existing object was modified by a duplicate post")
	}
}

func TestCollectionPostRejectsInvalidID(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestResource(t)

	_, _, err := r.CollectionPost(ctx, object.Object{"id": "not ok"}, Preconditions{})
	if !errors.Is(err, shelf.ErrInvalidParameters) {
		t.Fatalf("expected invalid parameters, got %v", err)
	}
}

func TestPutCreateAndReplace(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestResource(t)

	obj, created, err := r.ObjectPut(ctx, "x", object.Object{"v": 1}, nil, Preconditions{})
	if err != nil {
		t.Fatal(err)
	}
	if !created {
		t.Fatal("expected a create")
	}

	replaced, created, err := r.ObjectPut(ctx, "x", object.Object{"v": 2}, nil, Preconditions{})
	if err != nil {
		t.Fatal(err)
	}
	if created {
		t.Fatal("expected a replace")
	}
	if replaced.LastModified() <= obj.LastModified() {
		t.Fatal("replace did not bump the timestamp")
	}
}

func TestPutOverTombstone(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestResource(t)

	if _, _, err := r.ObjectPut(ctx, "x", object.Object{"v": 1}, nil, Preconditions{}); err != nil {
		t.Fatal(err)
	}
	if _, err := r.ObjectDelete(ctx, "x", Preconditions{}, 0); err != nil {
		t.Fatal(err)
	}

	// If-None-Match: * must not treat the tombstone as existing.
	obj, created, err := r.ObjectPut(ctx, "x", object.Object{"v": 2}, nil, Preconditions{IfNoneMatchAny: true})
	if err != nil {
		t.Fatal(err)
	}
	if !created {
		t.Fatal("re-creation over a tombstone must go through create")
	}
	if obj["v"] != 2 {
		t.Fatalf("unexpected body: %v", obj)
	}
}

func TestPutIfNoneMatchAnyConflict(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestResource(t)

	if _, _, err := r.ObjectPut(ctx, "x", object.Object{"v": 1, "secret": "s"}, nil, Preconditions{}); err != nil {
		t.Fatal(err)
	}

	_, _, err := r.ObjectPut(ctx, "x", object.Object{"v": 2}, nil, Preconditions{IfNoneMatchAny: true})
	var pre *PreconditionError
	if !errors.As(err, &pre) {
		t.Fatalf("expected a precondition error, got %v", err)
	}
	if !errors.Is(err, shelf.ErrPreconditionFailed) {
		t.Fatal("precondition error must unwrap to the sentinel")
	}
	if pre.Existing == nil || pre.Existing["secret"] != "s" {
		t.Fatalf("conflict payload missing existing object: %v", pre.Existing)
	}
	if _, ok := pre.Existing[object.FieldPermissions]; ok {
		t.Fatal("conflict payload must not leak permissions")
	}
}

func TestIfMatchConflict(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestResource(t)

	obj, _, err := r.ObjectPut(ctx, "x", object.Object{"v": 1}, nil, Preconditions{})
	if err != nil {
		t.Fatal(err)
	}

	_, _, err = r.ObjectPut(ctx, "x", object.Object{"v": 2}, nil, Preconditions{IfMatch: obj.LastModified() - 1})
	if !errors.Is(err, shelf.ErrPreconditionFailed) {
		t.Fatalf("expected precondition failure, got %v", err)
	}

	// A matching If-Match goes through.
	if _, _, err := r.ObjectPut(ctx, "x", object.Object{"v": 3}, nil, Preconditions{IfMatch: obj.LastModified()}); err != nil {
		t.Fatal(err)
	}
}

func TestObjectGetNotModified(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestResource(t)

	obj, _, err := r.ObjectPut(ctx, "x", object.Object{"v": 1}, nil, Preconditions{})
	if err != nil {
		t.Fatal(err)
	}
	_, err = r.ObjectGet(ctx, "x", Preconditions{IfNoneMatch: obj.LastModified()})
	if !errors.Is(err, shelf.ErrNotModified) {
		t.Fatalf("expected not modified, got %v", err)
	}
}

func TestMergePatchNullDeletesField(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestResource(t)

	if _, _, err := r.ObjectPut(ctx, "x", object.Object{"keep": 1, "drop": 2, "nested": map[string]any{"a": 1, "b": 2}}, nil, Preconditions{}); err != nil {
		t.Fatal(err)
	}

	patched, err := r.ObjectPatch(ctx, "x", object.Object{
		"drop":   nil,
		"nested": map[string]any{"b": nil, "c": 3},
	}, true, Preconditions{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := patched["drop"]; ok {
		t.Fatal("null did not delete the field")
	}
	nested := patched["nested"].(map[string]any)
	if _, ok := nested["b"]; ok {
		t.Fatal("nested null did not delete the field")
	}
	if nested["a"] != 1 || nested["c"] != 3 {
		t.Fatalf("nested merge wrong: %v", nested)
	}
}

func TestPlainPatchDoesNotMergeNested(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestResource(t)

	if _, _, err := r.ObjectPut(ctx, "x", object.Object{"nested": map[string]any{"a": 1}}, nil, Preconditions{}); err != nil {
		t.Fatal(err)
	}
	patched, err := r.ObjectPatch(ctx, "x", object.Object{"nested": map[string]any{"b": 2}}, false, Preconditions{})
	if err != nil {
		t.Fatal(err)
	}
	nested := patched["nested"].(map[string]any)
	if _, ok := nested["a"]; ok {
		t.Fatal("plain patch must replace nested maps, not merge them")
	}
}

func TestNoOpPatchKeepsTimestamp(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestResource(t)

	obj, _, err := r.ObjectPut(ctx, "x", object.Object{"v": 1}, nil, Preconditions{})
	if err != nil {
		t.Fatal(err)
	}

	same, err := r.ObjectPatch(ctx, "x", object.Object{"v": 1}, false, Preconditions{})
	if err != nil {
		t.Fatal(err)
	}
	if same.LastModified() != obj.LastModified() {
		t.Fatal("no-op patch bumped the timestamp")
	}
}

func TestPatchPreservesPermissions(t *testing.T) {
	ctx := context.Background()
	r, s := newTestResource(t)

	if _, _, err := r.ObjectPut(ctx, "x", object.Object{
		"v":                     1,
		object.FieldPermissions: map[string][]string{"read": {"basicauth:bob"}},
	}, nil, Preconditions{}); err != nil {
		t.Fatal(err)
	}

	if _, err := r.ObjectPatch(ctx, "x", object.Object{"v": 2}, false, Preconditions{}); err != nil {
		t.Fatal(err)
	}

	perms, _ := s.GetObjectPermissions(ctx, "/buckets/b/collections/c/records/x")
	if !perms["read"].Has("basicauth:bob") {
		t.Fatalf("patch dropped an unrelated ACE: %v", perms.Flatten())
	}
}

func TestUnknownFilterRejected(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestResource(t)
	r.Desc.KnownFields = []string{"title"}

	_, err := r.CollectionGet(ctx, url.Values{"bogus": {"1"}}, nil, Preconditions{})
	if !errors.Is(err, shelf.ErrInvalidParameters) {
		t.Fatalf("expected invalid parameters, got %v", err)
	}

	// With PreserveUnknown the same query is accepted.
	preserve := true
	r.Desc.Options.Global.PreserveUnknown = &preserve
	if _, err := r.CollectionGet(ctx, url.Values{"bogus": {"1"}}, nil, Preconditions{}); err != nil {
		t.Fatal(err)
	}
}

func TestFilterOperators(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestResource(t)

	for _, o := range []object.Object{
		{"id": "a", "rank": 1, "title": "alpha"},
		{"id": "b", "rank": 2, "title": "beta"},
		{"id": "c", "rank": 3, "title": "gamma"},
	} {
		if _, _, err := r.CollectionPost(ctx, o, Preconditions{}); err != nil {
			t.Fatal(err)
		}
	}

	cases := []struct {
		query url.Values
		want  int
	}{
		{url.Values{"min_rank": {"2"}}, 2},
		{url.Values{"max_rank": {"2"}}, 2},
		{url.Values{"not_title": {"beta"}}, 2},
		{url.Values{"in_id": {"a,c"}}, 2},
		{url.Values{"exclude_id": {"a"}}, 2},
		{url.Values{"like_title": {"amm"}}, 1},
		{url.Values{"gt_rank": {"3"}}, 0},
		{url.Values{"has_title": {"true"}}, 3},
		{url.Values{"title": {"alpha"}}, 1},
	}
	for _, c := range cases {
		page, err := r.CollectionGet(ctx, c.query, nil, Preconditions{})
		if err != nil {
			t.Fatalf("%v: %v", c.query, err)
		}
		if len(page.Objects) != c.want {
			t.Fatalf("%v: expected %d objects, got %d", c.query, c.want, len(page.Objects))
		}
	}
}

func TestSinceIncludesTombstones(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestResource(t)

	first, _, err := r.ObjectPut(ctx, "x", object.Object{"v": 1}, nil, Preconditions{})
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := r.ObjectPut(ctx, "y", object.Object{"v": 2}, nil, Preconditions{}); err != nil {
		t.Fatal(err)
	}
	if _, err := r.ObjectDelete(ctx, "y", Preconditions{}, 0); err != nil {
		t.Fatal(err)
	}

	_, err = r.CollectionGet(ctx, url.Values{"_since": {"oops"}}, nil, Preconditions{})
	if !errors.Is(err, shelf.ErrInvalidParameters) {
		t.Fatalf("expected invalid parameters for bad _since, got %v", err)
	}

	since := first.LastModified()
	query := url.Values{"_since": {strconv.FormatInt(since, 10)}}
	page, err := r.CollectionGet(ctx, query, nil, Preconditions{})
	if err != nil {
		t.Fatal(err)
	}
	sawTombstone := false
	for _, obj := range page.Objects {
		if obj.LastModified() <= since {
			t.Fatalf("object %s not newer than _since", obj.ID())
		}
		if obj.ID() == "y" {
			if !obj.Deleted() {
				t.Fatal("y should surface as a tombstone")
			}
			sawTombstone = true
		}
	}
	if !sawTombstone {
		t.Fatal("_since listing must include tombstones")
	}
}

func TestOptionsPrecedence(t *testing.T) {
	private := "private"
	readPerm := "read"
	size5 := 5
	opts := Options{
		Global:     MethodOptions{Permission: &readPerm},
		Collection: MethodOptions{PageSize: &size5},
		ByMethod:   map[string]MethodOptions{"POST": {Permission: &private}},
	}

	merged := opts.Resolve("GET", true)
	if merged.permission() != "read" || merged.PageSize == nil || *merged.PageSize != 5 {
		t.Fatalf("unexpected GET merge: %+v", merged)
	}

	merged = opts.Resolve("POST", true)
	if merged.permission() != "private" {
		t.Fatalf("method override lost: %+v", merged)
	}

	merged = opts.Resolve("GET", false)
	if merged.PageSize != nil {
		t.Fatal("collection page size leaked onto the object endpoint")
	}
}
