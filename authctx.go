package shelf

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/xraph/shelf/acl"
	"github.com/xraph/shelf/object"
)

// Expander expands one (object URI, permission) pair into the full list of
// bound pairs that satisfy it, modelling permission inheritance ("write on
// the parent implies write here"). A nil Expander is the identity.
type Expander func(objectID, permission string) []acl.BoundPermission

// AuthContext is the per-request authorization resolution: which permission
// the request requires, on which object URI, and the state needed by the
// decision procedure. Build one per request with NewAuthContext; it is
// never shared across requests.
type AuthContext struct {
	// ResourceName is the matched resource, "" outside resource routes.
	ResourceName string

	// OnCollection is true when the plural endpoint matched.
	OnCollection bool

	// RequiredPermission is read, write, create or "<resource>:create".
	RequiredPermission string

	// PermissionObjectID is the object URI the permission applies to.
	PermissionObjectID string

	// CurrentObject is the fetched object for unsafe single-object
	// requests, nil when the object does not exist (the endpoint layer
	// decides 404 semantics later).
	CurrentObject object.Object

	// SharedIDs is set by FetchSharedObjects: nil means not computed,
	// empty means computed and nothing is shared.
	SharedIDs []string

	objectIDMatch string
	aclStore      acl.Store
	cache         Cache
	config        Config
}

var unsafeMethods = map[string]bool{
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

var methodPermissions = map[string]string{
	http.MethodHead:   PermissionRead,
	http.MethodGet:    PermissionRead,
	http.MethodPost:   PermissionCreate,
	http.MethodDelete: PermissionWrite,
	http.MethodPatch:  PermissionWrite,
}

// NewAuthContext resolves the authorization context for one request.
// Requests with no resource binding resolve to a context requiring no
// permission. Storage is consulted only to fetch the current object on
// unsafe single-object methods; a missing object is not an error here.
func NewAuthContext(ctx context.Context, req *RequestInfo, storage object.Store, aclStore acl.Store, cfg Config, cache Cache) (*AuthContext, error) {
	ac := &AuthContext{aclStore: aclStore, cache: cache, config: cfg}
	b := req.Binding
	if b == nil {
		return ac, nil
	}

	ac.ResourceName = b.Name
	ac.OnCollection = b.OnCollection

	if !b.OnCollection && unsafeMethods[req.Method] {
		obj, err := storage.Get(ctx, b.Name, b.ParentID, b.ObjectID)
		switch {
		case err == nil:
			ac.CurrentObject = obj
		case errors.Is(err, ErrObjectNotFound):
			// Decided later by the endpoint layer.
		default:
			return nil, fmt.Errorf("authorization context: %w", err)
		}
	}

	ac.PermissionObjectID = req.Path
	switch {
	case req.Method == http.MethodPut && ac.CurrentObject == nil:
		// The object does not exist yet: creation is authorized at the
		// collection level.
		ac.RequiredPermission = PermissionCreate
		ac.PermissionObjectID = collectionURI(req)
	case req.Method == http.MethodPut && req.IfNoneMatchAny:
		// "Only create" semantics: overwriting must be authorized as a
		// create even though the object exists.
		ac.RequiredPermission = PermissionCreate
		ac.PermissionObjectID = collectionURI(req)
	case req.Method == http.MethodPut:
		ac.RequiredPermission = PermissionWrite
	default:
		ac.RequiredPermission = methodPermissions[req.Method]
	}

	if b.ObjectPathTemplate != "" {
		ac.objectIDMatch = strings.Replace(b.ObjectPathTemplate, "{id}", "*", 1)
	} else {
		// List-only resources have no sibling object route.
		ac.objectIDMatch = b.CollectionPath + "/*"
	}

	return ac, nil
}

func collectionURI(req *RequestInfo) string {
	if req.Binding.CollectionPath != "" {
		return req.Binding.CollectionPath
	}
	return parentURI(req.Path)
}

// ObjectIDMatch returns the wildcard URI pattern matching any object of the
// bound resource scope.
func (ac *AuthContext) ObjectIDMatch() string { return ac.objectIDMatch }

// CheckPermission checks the bound pairs against the principals. The
// settings-driven bypass list short-circuits the permission backend; a
// cache, when configured, short-circuits repeated identical checks.
func (ac *AuthContext) CheckPermission(ctx context.Context, principals []string, bound []acl.BoundPermission) (bool, error) {
	for _, b := range bound {
		for _, bypass := range ac.config.BypassFor(ac.ResourceName, b.Permission) {
			for _, p := range principals {
				if p == bypass {
					return true, nil
				}
			}
		}
	}

	var key string
	if ac.cache != nil {
		key = CheckKey(principals, bound)
		if allowed, ok := ac.cache.GetCheck(ctx, key); ok {
			return allowed, nil
		}
	}
	allowed, err := ac.aclStore.CheckPermission(ctx, principals, bound)
	if err != nil {
		return false, fmt.Errorf("check permission: %w", err)
	}
	if ac.cache != nil {
		ac.cache.SetCheck(ctx, key, allowed)
	}
	return allowed, nil
}

// FetchSharedObjects queries the permission backend for objects of this
// collection accessible to the principals under the given permission,
// expanded through the bound-permission callback. The bare object ids are
// recorded on the context (SharedIDs) and returned; the result is an empty
// slice, never nil, once computed.
func (ac *AuthContext) FetchSharedObjects(ctx context.Context, permission string, principals []string, expand Expander) ([]string, error) {
	bound := []acl.BoundPermission{{ObjectID: ac.objectIDMatch, Permission: permission}}
	if expand != nil {
		bound = expand(ac.objectIDMatch, permission)
	}
	byURI, err := ac.aclStore.GetAccessibleObjects(ctx, principals, bound, false)
	if err != nil {
		return nil, fmt.Errorf("fetch shared objects: %w", err)
	}
	ids := make([]string, 0, len(byURI))
	for uri := range byURI {
		ids = append(ids, leafID(uri))
	}
	sort.Strings(ids)
	ac.SharedIDs = ids
	return ids, nil
}
