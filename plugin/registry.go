package plugin

import (
	"context"
	"log/slog"

	"github.com/xraph/shelf/acl"
	"github.com/xraph/shelf/object"
)

// Named entry types pair a hook with the plugin name for logging.

type objectCreatedEntry struct {
	name string
	hook ObjectCreated
}
type objectUpdatedEntry struct {
	name string
	hook ObjectUpdated
}
type objectDeletedEntry struct {
	name string
	hook ObjectDeleted
}
type afterListEntry struct {
	name string
	hook AfterList
}
type permissionsChangedEntry struct {
	name string
	hook PermissionsChanged
}
type afterAuthorizeEntry struct {
	name string
	hook AfterAuthorize
}
type shutdownEntry struct {
	name string
	hook Shutdown
}

// Registry holds registered plugins and dispatches lifecycle events.
// It type-caches plugins at registration time so emit calls iterate
// only over plugins implementing the relevant hook.
type Registry struct {
	plugins []Plugin
	logger  *slog.Logger

	objectCreated      []objectCreatedEntry
	objectUpdated      []objectUpdatedEntry
	objectDeleted      []objectDeletedEntry
	afterList          []afterListEntry
	permissionsChanged []permissionsChangedEntry
	afterAuthorize     []afterAuthorizeEntry
	shutdown           []shutdownEntry
}

// NewRegistry creates a plugin registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// Register adds a plugin and type-asserts it into all applicable
// hook caches. Plugins are notified in registration order.
func (r *Registry) Register(p Plugin) {
	r.plugins = append(r.plugins, p)
	name := p.Name()

	if h, ok := p.(ObjectCreated); ok {
		r.objectCreated = append(r.objectCreated, objectCreatedEntry{name, h})
	}
	if h, ok := p.(ObjectUpdated); ok {
		r.objectUpdated = append(r.objectUpdated, objectUpdatedEntry{name, h})
	}
	if h, ok := p.(ObjectDeleted); ok {
		r.objectDeleted = append(r.objectDeleted, objectDeletedEntry{name, h})
	}
	if h, ok := p.(AfterList); ok {
		r.afterList = append(r.afterList, afterListEntry{name, h})
	}
	if h, ok := p.(PermissionsChanged); ok {
		r.permissionsChanged = append(r.permissionsChanged, permissionsChangedEntry{name, h})
	}
	if h, ok := p.(AfterAuthorize); ok {
		r.afterAuthorize = append(r.afterAuthorize, afterAuthorizeEntry{name, h})
	}
	if h, ok := p.(Shutdown); ok {
		r.shutdown = append(r.shutdown, shutdownEntry{name, h})
	}
}

// Plugins returns all registered plugins.
func (r *Registry) Plugins() []Plugin { return r.plugins }

// EmitObjectCreated notifies all plugins that implement ObjectCreated.
func (r *Registry) EmitObjectCreated(ctx context.Context, ev Event, obj object.Object) {
	for _, e := range r.objectCreated {
		if err := e.hook.OnObjectCreated(ctx, ev, obj); err != nil {
			r.logHookError("OnObjectCreated", e.name, err)
		}
	}
}

// EmitObjectUpdated notifies all plugins that implement ObjectUpdated.
func (r *Registry) EmitObjectUpdated(ctx context.Context, ev Event, old, updated object.Object) {
	for _, e := range r.objectUpdated {
		if err := e.hook.OnObjectUpdated(ctx, ev, old, updated); err != nil {
			r.logHookError("OnObjectUpdated", e.name, err)
		}
	}
}

// EmitObjectDeleted notifies all plugins that implement ObjectDeleted.
func (r *Registry) EmitObjectDeleted(ctx context.Context, ev Event, tombstone object.Object) {
	for _, e := range r.objectDeleted {
		if err := e.hook.OnObjectDeleted(ctx, ev, tombstone); err != nil {
			r.logHookError("OnObjectDeleted", e.name, err)
		}
	}
}

// EmitAfterList notifies all plugins that implement AfterList.
func (r *Registry) EmitAfterList(ctx context.Context, ev Event, objects []object.Object) {
	for _, e := range r.afterList {
		if err := e.hook.OnAfterList(ctx, ev, objects); err != nil {
			r.logHookError("OnAfterList", e.name, err)
		}
	}
}

// EmitPermissionsChanged notifies all plugins that implement
// PermissionsChanged.
func (r *Registry) EmitPermissionsChanged(ctx context.Context, objectURI string, perms acl.PermissionSet) {
	for _, e := range r.permissionsChanged {
		if err := e.hook.OnPermissionsChanged(ctx, objectURI, perms); err != nil {
			r.logHookError("OnPermissionsChanged", e.name, err)
		}
	}
}

// EmitAfterAuthorize notifies all plugins that implement AfterAuthorize.
func (r *Registry) EmitAfterAuthorize(ctx context.Context, req any, allowed bool) {
	for _, e := range r.afterAuthorize {
		if err := e.hook.OnAfterAuthorize(ctx, req, allowed); err != nil {
			r.logHookError("OnAfterAuthorize", e.name, err)
		}
	}
}

// EmitShutdown notifies all plugins that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		if err := e.hook.OnShutdown(ctx); err != nil {
			r.logHookError("OnShutdown", e.name, err)
		}
	}
}

// logHookError logs a hook failure. Hook errors never propagate to the
// caller: a misbehaving plugin must not break request handling.
func (r *Registry) logHookError(hook, plugin string, err error) {
	r.logger.Error("plugin hook failed",
		slog.String("hook", hook),
		slog.String("plugin", plugin),
		slog.String("error", err.Error()),
	)
}
