// Package shelf provides a pluggable REST object-store framework for Go:
// schemaless resources with CRUD semantics, fine-grained per-object
// permissions, timestamp-based concurrency control (ETags) and cursor
// pagination.
//
// The interesting part is the authorization resolution engine: every
// request is mapped to a required permission on an object URI, checked
// against the caller's principals directly, through bound (inherited)
// permissions, or through the shared-objects fallback for collection
// listings.
//
//	eng, err := shelf.NewEngine(
//	    shelf.WithStorage(memStore),
//	    shelf.WithACL(memStore),
//	)
//	allowed, authCtx, err := eng.Authorize(ctx, req, shelf.PermissionDynamic)
package shelf

// Well-known pseudo-principals, automatically part of every caller's
// principal set depending on authentication state.
const (
	// PrincipalEveryone is held by every caller, authenticated or not.
	PrincipalEveryone = "system.Everyone"

	// PrincipalAuthenticated is held by every authenticated caller.
	PrincipalAuthenticated = "system.Authenticated"
)

// Core permission names. Resource-scoped create permissions are derived as
// "<resource>:create" at check time.
const (
	PermissionRead   = "read"
	PermissionWrite  = "write"
	PermissionCreate = "create"
)

// Sentinel permission values accepted by Policy.Authorize in place of a
// concrete permission name.
const (
	// PermissionDynamic resolves the required permission from the
	// authorization context built for the request.
	PermissionDynamic = "dynamic"

	// PermissionPrivate grants any authenticated principal.
	PermissionPrivate = "private"
)

// ResourceBinding describes the resource endpoint a request matched.
// Requests matching no resource route carry a nil binding and pass through
// authorization untouched.
type ResourceBinding struct {
	// Name is the registered resource name ("bucket", "record", ...).
	Name string

	// OnCollection is true for the plural endpoint, false for the
	// single-object endpoint.
	OnCollection bool

	// ParentID scopes the objects ("" for top-level resources, a parent
	// URI such as "/buckets/b1" otherwise).
	ParentID string

	// ObjectID is the id from the matched object route, empty on
	// collection endpoints.
	ObjectID string

	// CollectionPath is the version-stripped URI of the plural endpoint
	// for this request's scope.
	CollectionPath string

	// ObjectPathTemplate is the sibling single-object URI with the actual
	// parent ids substituted and "{id}" left as the id placeholder. Empty
	// for list-only resources.
	ObjectPathTemplate string
}

// RequestInfo is the transport-agnostic description of an inbound request,
// threaded explicitly through the authorization and endpoint layers.
type RequestInfo struct {
	Method string

	// Path is the request URI stripped of any version prefix.
	Path string

	// Binding is the matched resource route, nil outside resource routes.
	Binding *ResourceBinding

	// Principals is the caller's full principal set, including the
	// system pseudo-principals.
	Principals []string

	// Parsed concurrency-control preconditions.
	IfMatch        int64 // 0 = absent
	IfNoneMatch    int64 // 0 = absent
	IfNoneMatchAny bool  // If-None-Match: *
}

// Authenticated reports whether the request carries any principal beyond
// system.Everyone.
func (r *RequestInfo) Authenticated() bool {
	for _, p := range r.Principals {
		if p == PrincipalAuthenticated {
			return true
		}
	}
	return false
}
