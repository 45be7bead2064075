// Package plugin defines the plugin system for shelf.
// Plugins are notified of lifecycle events (object created, deleted,
// permissions replaced, etc.) and can react — logging, metrics, change
// feeds, cache invalidation.
//
// Each lifecycle hook is a separate interface so plugins opt in only
// to the events they care about.
package plugin

import (
	"context"

	"github.com/xraph/shelf/acl"
	"github.com/xraph/shelf/object"
)

// Plugin is the base interface all plugins must implement.
type Plugin interface {
	// Name returns a unique human-readable name for the plugin.
	Name() string
}

// Event carries the scope of an object lifecycle notification.
type Event struct {
	Resource string
	ParentID string
}

// ──────────────────────────────────────────────────
// Object lifecycle hooks
// ──────────────────────────────────────────────────

// ObjectCreated is called after an object is created and its ownership
// grant persisted.
type ObjectCreated interface {
	OnObjectCreated(ctx context.Context, ev Event, obj object.Object) error
}

// ObjectUpdated is called after an object is updated. old is the previous
// state, nil when the update re-created the object over a tombstone.
type ObjectUpdated interface {
	OnObjectUpdated(ctx context.Context, ev Event, old, updated object.Object) error
}

// ObjectDeleted is called after an object is deleted, with its tombstone.
type ObjectDeleted interface {
	OnObjectDeleted(ctx context.Context, ev Event, tombstone object.Object) error
}

// AfterList is called after a listing is served, with the objects returned.
type AfterList interface {
	OnAfterList(ctx context.Context, ev Event, objects []object.Object) error
}

// ──────────────────────────────────────────────────
// Permission lifecycle hooks
// ──────────────────────────────────────────────────

// PermissionsChanged is called after the ACE set of an object URI is
// replaced or deleted (perms is nil on deletion).
type PermissionsChanged interface {
	OnPermissionsChanged(ctx context.Context, objectURI string, perms acl.PermissionSet) error
}

// ──────────────────────────────────────────────────
// Authorization hooks
// ──────────────────────────────────────────────────

// AfterAuthorize is called after an authorization decision. The req
// parameter is *shelf.RequestInfo (passed as any to avoid import cycle).
type AfterAuthorize interface {
	OnAfterAuthorize(ctx context.Context, req any, allowed bool) error
}

// ──────────────────────────────────────────────────
// Shutdown hook
// ──────────────────────────────────────────────────

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
