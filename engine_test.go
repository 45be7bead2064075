package shelf_test

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"testing"

	"github.com/xraph/shelf"
	"github.com/xraph/shelf/acl"
	"github.com/xraph/shelf/object"
	"github.com/xraph/shelf/store/memory"
)

const (
	collectionPath = "/buckets/b1/collections/c1/records"
	objectTemplate = "/buckets/b1/collections/c1/records/{id}"
	parentID       = "/buckets/b1/collections/c1"

	alice = "account:alice"
	bob   = "account:bob"
)

func newEngine(t *testing.T, s *memory.Store, opts ...shelf.Option) *shelf.Engine {
	t.Helper()
	opts = append([]shelf.Option{shelf.WithStorage(s), shelf.WithACL(s)}, opts...)
	eng, err := shelf.NewEngine(opts...)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return eng
}

func recordRequest(method, objectID string, principals ...string) *shelf.RequestInfo {
	onCollection := objectID == ""
	path := collectionPath
	if !onCollection {
		path = parentID + "/records/" + objectID
	}
	return &shelf.RequestInfo{
		Method: method,
		Path:   path,
		Binding: &shelf.ResourceBinding{
			Name:               "record",
			OnCollection:       onCollection,
			ParentID:           parentID,
			ObjectID:           objectID,
			CollectionPath:     collectionPath,
			ObjectPathTemplate: objectTemplate,
		},
		Principals: principals,
	}
}

func authenticated(user string) []string {
	return []string{shelf.PrincipalEveryone, shelf.PrincipalAuthenticated, user}
}

func TestCollectionSharingFallback(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	for _, id := range []string{"1", "2"} {
		if err := s.AddPrincipalToACE(ctx, collectionPath+"/"+id, shelf.PermissionRead, alice); err != nil {
			t.Fatalf("grant: %v", err)
		}
	}
	eng := newEngine(t, s)

	req := recordRequest(http.MethodGet, "", authenticated(alice)...)
	ac, allowed, err := eng.Authorize(ctx, req, shelf.PermissionDynamic)
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if !allowed {
		t.Fatal("listing should be allowed through the sharing fallback")
	}
	if want := []string{"1", "2"}; !reflect.DeepEqual(ac.SharedIDs, want) {
		t.Fatalf("SharedIDs = %v, want %v", ac.SharedIDs, want)
	}
}

func TestCollectionSharingNothingShared(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	eng := newEngine(t, s)

	req := recordRequest(http.MethodGet, "", authenticated(bob)...)
	ac, allowed, err := eng.Authorize(ctx, req, shelf.PermissionDynamic)
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if allowed {
		t.Fatal("listing should be denied with nothing shared")
	}
	if ac.SharedIDs == nil || len(ac.SharedIDs) != 0 {
		t.Fatalf("SharedIDs should be computed and empty, got %v", ac.SharedIDs)
	}
}

func TestCollectionCreateFallback(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	// Creators see an empty listing even with nothing shared.
	if err := s.AddPrincipalToACE(ctx, "", "record:create", alice); err != nil {
		t.Fatalf("grant: %v", err)
	}
	eng := newEngine(t, s)

	req := recordRequest(http.MethodGet, "", authenticated(alice)...)
	ac, allowed, err := eng.Authorize(ctx, req, shelf.PermissionDynamic)
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if !allowed {
		t.Fatal("creators should be allowed to list")
	}
	if len(ac.SharedIDs) != 0 {
		t.Fatalf("SharedIDs = %v, want empty", ac.SharedIDs)
	}
}

func TestParentReadFallbackOnMissingObject(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	// Read on the collection URI lets the caller receive a 404 instead of
	// a 403 for writes against missing objects.
	if err := s.AddPrincipalToACE(ctx, collectionPath, shelf.PermissionRead, alice); err != nil {
		t.Fatalf("grant: %v", err)
	}
	eng := newEngine(t, s)

	req := recordRequest(http.MethodPatch, "missing", authenticated(alice)...)
	_, allowed, err := eng.Authorize(ctx, req, shelf.PermissionDynamic)
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if !allowed {
		t.Fatal("write on a missing object should degrade to a parent read check")
	}

	req = recordRequest(http.MethodPatch, "missing", authenticated(bob)...)
	_, allowed, err = eng.Authorize(ctx, req, shelf.PermissionDynamic)
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if allowed {
		t.Fatal("caller without parent read should stay denied")
	}
}

func TestPutOnMissingObjectRequiresCreate(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	if err := s.AddPrincipalToACE(ctx, collectionPath, "record:create", alice); err != nil {
		t.Fatalf("grant: %v", err)
	}
	eng := newEngine(t, s)

	req := recordRequest(http.MethodPut, "fresh", authenticated(alice)...)
	ac, allowed, err := eng.Authorize(ctx, req, shelf.PermissionDynamic)
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if ac.RequiredPermission != shelf.PermissionCreate {
		t.Fatalf("RequiredPermission = %q, want %q", ac.RequiredPermission, shelf.PermissionCreate)
	}
	if ac.PermissionObjectID != collectionPath {
		t.Fatalf("PermissionObjectID = %q, want collection URI", ac.PermissionObjectID)
	}
	if !allowed {
		t.Fatal("caller with the create permission should be allowed")
	}
}

func TestPutIfNoneMatchAnyRequiresCreate(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	obj := object.Object{"id": "r1"}
	if _, err := s.Create(ctx, "record", parentID, obj); err != nil {
		t.Fatalf("create: %v", err)
	}
	// Write on the object is not enough for an only-create PUT.
	if err := s.AddPrincipalToACE(ctx, collectionPath+"/r1", shelf.PermissionWrite, alice); err != nil {
		t.Fatalf("grant: %v", err)
	}
	eng := newEngine(t, s)

	req := recordRequest(http.MethodPut, "r1", authenticated(alice)...)
	req.IfNoneMatchAny = true
	ac, allowed, err := eng.Authorize(ctx, req, shelf.PermissionDynamic)
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if ac.RequiredPermission != shelf.PermissionCreate {
		t.Fatalf("RequiredPermission = %q, want %q", ac.RequiredPermission, shelf.PermissionCreate)
	}
	if allowed {
		t.Fatal("only-create PUT must be authorized as a create, not a write")
	}
}

func TestPrivatePermission(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t, memory.New())

	req := recordRequest(http.MethodGet, "", authenticated(alice)...)
	_, allowed, err := eng.Authorize(ctx, req, shelf.PermissionPrivate)
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if !allowed {
		t.Fatal("authenticated caller should pass a private check")
	}

	req = recordRequest(http.MethodGet, "", shelf.PrincipalEveryone)
	_, allowed, err = eng.Authorize(ctx, req, shelf.PermissionPrivate)
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if allowed {
		t.Fatal("anonymous caller should fail a private check")
	}
}

func TestBypassPrincipals(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	obj := object.Object{"id": "r1"}
	if _, err := s.Create(ctx, "record", parentID, obj); err != nil {
		t.Fatalf("create: %v", err)
	}
	cfg := shelf.DefaultConfig()
	cfg.BypassPrincipals = map[string][]string{
		"record_read_principals": {shelf.PrincipalEveryone},
	}
	eng := newEngine(t, s, shelf.WithConfig(cfg))

	req := recordRequest(http.MethodGet, "r1", shelf.PrincipalEveryone)
	_, allowed, err := eng.Authorize(ctx, req, shelf.PermissionDynamic)
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if !allowed {
		t.Fatal("bypass principals should grant without consulting ACEs")
	}
}

func TestBypassPrincipalsCreate(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	cfg := shelf.DefaultConfig()
	// The settings key uses the plain permission name even though the
	// policy checks the dynamic "record:create" form.
	cfg.BypassPrincipals = map[string][]string{
		"record_create_principals": {shelf.PrincipalAuthenticated},
	}
	eng := newEngine(t, s, shelf.WithConfig(cfg))

	req := recordRequest(http.MethodPost, "", authenticated(alice)...)
	_, allowed, err := eng.Authorize(ctx, req, shelf.PermissionDynamic)
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if !allowed {
		t.Fatal("bypass principals should grant creates without ACEs")
	}

	req = recordRequest(http.MethodPost, "", shelf.PrincipalEveryone)
	_, allowed, err = eng.Authorize(ctx, req, shelf.PermissionDynamic)
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if allowed {
		t.Fatal("anonymous caller should not match the authenticated bypass")
	}
}

func TestEnforceErrors(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	obj := object.Object{"id": "r1"}
	if _, err := s.Create(ctx, "record", parentID, obj); err != nil {
		t.Fatalf("create: %v", err)
	}
	eng := newEngine(t, s)

	req := recordRequest(http.MethodGet, "r1", shelf.PrincipalEveryone)
	if _, err := eng.Enforce(ctx, req, shelf.PermissionDynamic); !errors.Is(err, shelf.ErrUnauthenticated) {
		t.Fatalf("anonymous denial should be ErrUnauthenticated, got %v", err)
	}

	req = recordRequest(http.MethodGet, "r1", authenticated(bob)...)
	if _, err := eng.Enforce(ctx, req, shelf.PermissionDynamic); !errors.Is(err, shelf.ErrAccessDenied) {
		t.Fatalf("authenticated denial should be ErrAccessDenied, got %v", err)
	}
}

func TestExpanderInheritance(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	obj := object.Object{"id": "r1"}
	if _, err := s.Create(ctx, "record", parentID, obj); err != nil {
		t.Fatalf("create: %v", err)
	}
	// Write on the collection object implies write on its records.
	if err := s.AddPrincipalToACE(ctx, parentID, shelf.PermissionWrite, alice); err != nil {
		t.Fatalf("grant: %v", err)
	}
	expand := func(objectID, permission string) []acl.BoundPermission {
		return []acl.BoundPermission{
			{ObjectID: objectID, Permission: permission},
			{ObjectID: parentID, Permission: shelf.PermissionWrite},
		}
	}
	eng := newEngine(t, s, shelf.WithPolicy(shelf.NewPolicy(expand, nil)))

	req := recordRequest(http.MethodPatch, "r1", authenticated(alice)...)
	_, allowed, err := eng.Authorize(ctx, req, shelf.PermissionDynamic)
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if !allowed {
		t.Fatal("inherited write should authorize the record write")
	}
}
