// Package model implements the permission-aware object model: CRUD on
// objects scoped to one (resource, parent) pair, with ownership enforcement
// and permission annotation on top of the raw storage and permission
// backends.
package model

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/shelf"
	"github.com/xraph/shelf/acl"
	"github.com/xraph/shelf/object"
	"github.com/xraph/shelf/plugin"
)

// Model binds the backends to one (resource, parent) scope and one caller.
// Build one per request (or per administrative operation); it carries the
// caller's identity for the ownership grant and annotation visibility.
type Model struct {
	// Storage is the object storage backend.
	Storage object.Store

	// ACL is the permission backend.
	ACL acl.Store

	// Resource is the resource name, ParentID the bound parent URI.
	Resource string
	ParentID string

	// Principal is the caller's user principal, granted write on every
	// object this model creates or updates. Empty for anonymous callers.
	Principal string

	// Principals is the caller's full effective principal set, used to
	// decide permission annotation visibility.
	Principals []string

	// URIFor maps a bare object id to its permission URI. Nil falls back
	// to "<parent>/<resource>s/<id>".
	URIFor func(objectID string) string

	// Plugins receives lifecycle events. May be nil.
	Plugins *plugin.Registry

	// Cache holds permission verdicts to invalidate on ACE changes.
	// May be nil.
	Cache shelf.Cache

	Config shelf.Config
}

func (m *Model) objectURI(objectID string) string {
	if m.URIFor != nil {
		return m.URIFor(objectID)
	}
	return fmt.Sprintf("%s/%ss/%s", m.ParentID, m.Resource, objectID)
}

func (m *Model) event() plugin.Event {
	return plugin.Event{Resource: m.Resource, ParentID: m.ParentID}
}

// Timestamp returns the resource-level counter. On an empty resource a
// read-only deployment cannot bootstrap the counter, so the failure is
// reported as backend unavailability instead of a raw storage error.
func (m *Model) Timestamp(ctx context.Context) (int64, error) {
	ts, err := m.Storage.ResourceTimestamp(ctx, m.Resource, m.ParentID)
	if err != nil {
		if m.Config.ReadOnly {
			return 0, fmt.Errorf("%w: cannot initialize timestamp on a read-only deployment: %v", shelf.ErrBackendUnavailable, err)
		}
		return 0, err
	}
	return ts, nil
}

// GetObjects lists objects matching opts. Results are not annotated with
// permissions; list endpoints annotate selectively (see GetObject).
func (m *Model) GetObjects(ctx context.Context, opts *object.ListOptions) ([]object.Object, error) {
	objects, err := m.Storage.ListAll(ctx, m.Resource, m.ParentID, opts)
	if err != nil {
		return nil, err
	}
	if m.Plugins != nil {
		m.Plugins.EmitAfterList(ctx, m.event(), objects)
	}
	return objects, nil
}

// CountObjects counts live objects matching the filters.
func (m *Model) CountObjects(ctx context.Context, filters []object.Filter) (int, error) {
	return m.Storage.CountAll(ctx, m.Resource, m.ParentID, filters)
}

// GetObject returns one annotated object or shelf.ErrObjectNotFound.
func (m *Model) GetObject(ctx context.Context, objectID string) (object.Object, error) {
	obj, err := m.Storage.Get(ctx, m.Resource, m.ParentID, objectID)
	if err != nil {
		return nil, err
	}
	if err := m.annotate(ctx, obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// CreateObject persists a new object along with its ACEs, grants write to
// the current principal, and returns the annotated result.
func (m *Model) CreateObject(ctx context.Context, obj object.Object) (object.Object, error) {
	if m.Config.ReadOnly {
		return nil, shelf.ErrReadOnly
	}
	perms := popPermissions(obj)
	created, err := m.Storage.Create(ctx, m.Resource, m.ParentID, obj)
	if err != nil {
		return nil, err
	}
	if err := m.setPermissions(ctx, created.ID(), perms); err != nil {
		return nil, err
	}
	if err := m.annotate(ctx, created); err != nil {
		return nil, err
	}
	if m.Plugins != nil {
		m.Plugins.EmitObjectCreated(ctx, m.event(), created)
	}
	return created, nil
}

// UpdateObject persists obj under objectID (creating it when absent),
// replaces the object's ACE set with the supplied permissions, grants
// write to the current principal, and returns the annotated result.
func (m *Model) UpdateObject(ctx context.Context, objectID string, obj object.Object) (object.Object, error) {
	if m.Config.ReadOnly {
		return nil, shelf.ErrReadOnly
	}
	perms := popPermissions(obj)
	old, err := m.Storage.Get(ctx, m.Resource, m.ParentID, objectID)
	if err != nil && !errors.Is(err, shelf.ErrObjectNotFound) {
		return nil, err
	}
	updated, err := m.Storage.Update(ctx, m.Resource, m.ParentID, objectID, obj)
	if err != nil {
		return nil, err
	}
	if err := m.setPermissions(ctx, objectID, perms); err != nil {
		return nil, err
	}
	if err := m.annotate(ctx, updated); err != nil {
		return nil, err
	}
	if m.Plugins != nil {
		m.Plugins.EmitObjectUpdated(ctx, m.event(), old, updated)
	}
	return updated, nil
}

// DeleteObject tombstones one object and removes all its ACEs. A non-zero
// lastModified forces the tombstone timestamp when strictly greater than
// the object's current one.
func (m *Model) DeleteObject(ctx context.Context, objectID string, lastModified int64) (object.Object, error) {
	if m.Config.ReadOnly {
		return nil, shelf.ErrReadOnly
	}
	uri := m.objectURI(objectID)
	if err := m.ACL.DeleteObjectPermissions(ctx, uri); err != nil {
		return nil, err
	}
	m.invalidate(ctx, uri)
	tombstone, err := m.Storage.Delete(ctx, m.Resource, m.ParentID, objectID, lastModified)
	if err != nil {
		return nil, err
	}
	if m.Plugins != nil {
		m.Plugins.EmitObjectDeleted(ctx, m.event(), tombstone)
		m.Plugins.EmitPermissionsChanged(ctx, uri, nil)
	}
	return tombstone, nil
}

// DeleteObjects bulk-tombstones every object matching opts. A full wipe
// (no filters) removes permissions with a single wildcard deletion rather
// than one call per object.
func (m *Model) DeleteObjects(ctx context.Context, opts *object.ListOptions) ([]object.Object, error) {
	if m.Config.ReadOnly {
		return nil, shelf.ErrReadOnly
	}
	tombstones, err := m.Storage.DeleteAll(ctx, m.Resource, m.ParentID, opts)
	if err != nil {
		return nil, err
	}
	if opts == nil || len(opts.Filters) == 0 {
		wildcard := m.objectURI("*")
		if err := m.ACL.DeleteObjectPermissions(ctx, wildcard); err != nil {
			return nil, err
		}
	} else {
		uris := make([]string, 0, len(tombstones))
		for _, ts := range tombstones {
			uris = append(uris, m.objectURI(ts.ID()))
		}
		if len(uris) > 0 {
			if err := m.ACL.DeleteObjectPermissions(ctx, uris...); err != nil {
				return nil, err
			}
		}
	}
	for _, ts := range tombstones {
		m.invalidate(ctx, m.objectURI(ts.ID()))
		if m.Plugins != nil {
			m.Plugins.EmitObjectDeleted(ctx, m.event(), ts)
		}
	}
	return tombstones, nil
}

// setPermissions replaces the ACE set of one object and re-applies the
// ownership grant.
func (m *Model) setPermissions(ctx context.Context, objectID string, perms acl.PermissionSet) error {
	uri := m.objectURI(objectID)
	if err := m.ACL.ReplaceObjectPermissions(ctx, uri, perms); err != nil {
		return err
	}
	if m.Config.OwnershipGrantEnabled() && m.Principal != "" {
		if err := m.ACL.AddPrincipalToACE(ctx, uri, shelf.PermissionWrite, m.Principal); err != nil {
			return err
		}
	}
	m.invalidate(ctx, uri)
	if m.Plugins != nil {
		m.Plugins.EmitPermissionsChanged(ctx, uri, perms)
	}
	return nil
}

// annotate attaches the ephemeral permissions field. Callers outside the
// write ACE see an empty map: permissions are only visible to principals
// who can write the object.
func (m *Model) annotate(ctx context.Context, obj object.Object) error {
	uri := m.objectURI(obj.ID())
	perms, err := m.ACL.GetObjectPermissions(ctx, uri)
	if err != nil {
		return err
	}
	writers := perms[shelf.PermissionWrite]
	visible := m.Principal != "" && writers.Has(m.Principal)
	if !visible {
		for _, p := range m.Principals {
			if writers.Has(p) {
				visible = true
				break
			}
		}
	}
	if visible {
		obj[object.FieldPermissions] = perms.Flatten()
	} else {
		obj[object.FieldPermissions] = map[string][]string{}
	}
	return nil
}

func (m *Model) invalidate(ctx context.Context, uri string) {
	if m.Cache != nil {
		m.Cache.InvalidateObject(ctx, uri)
	}
}

func popPermissions(obj object.Object) acl.PermissionSet {
	raw, ok := obj[object.FieldPermissions]
	if !ok {
		return acl.PermissionSet{}
	}
	delete(obj, object.FieldPermissions)
	return acl.ParsePermissionSet(raw)
}
