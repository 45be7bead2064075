package shelf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/xraph/shelf/acl"
	"github.com/xraph/shelf/id"
	"github.com/xraph/shelf/object"
	"github.com/xraph/shelf/plugin"
)

// Engine ties the object storage and permission backends together with the
// authorization policy. Resource endpoints resolve and authorize every
// request through it.
type Engine struct {
	storage  object.Store
	aclStore acl.Store
	policy   *Policy
	cache    Cache
	plugins  *plugin.Registry
	idGen    id.Generator
	logger   *slog.Logger
	config   Config
}

// NewEngine creates a new shelf engine with the given options.
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		idGen:  id.UUID4{},
		logger: slog.Default(),
		config: DefaultConfig(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.storage == nil {
		return nil, errors.New("shelf: storage is required")
	}
	if e.aclStore == nil {
		return nil, errors.New("shelf: permission backend is required")
	}
	if e.policy == nil {
		e.policy = NewPolicy(nil, e.logger)
	}
	return e, nil
}

// Storage returns the object storage backend.
func (e *Engine) Storage() object.Store { return e.storage }

// ACL returns the permission backend.
func (e *Engine) ACL() acl.Store { return e.aclStore }

// Policy returns the authorization policy.
func (e *Engine) Policy() *Policy { return e.policy }

// Cache returns the verdict cache (may be nil).
func (e *Engine) Cache() Cache { return e.cache }

// Plugins returns the plugin registry (may be nil).
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// IDGenerator returns the object id generator.
func (e *Engine) IDGenerator() id.Generator { return e.idGen }

// Logger returns the engine logger.
func (e *Engine) Logger() *slog.Logger { return e.logger }

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.config }

// Resolve builds the authorization context for one request.
func (e *Engine) Resolve(ctx context.Context, req *RequestInfo) (*AuthContext, error) {
	return NewAuthContext(ctx, req, e.storage, e.aclStore, e.config, e.cache)
}

// Authorize resolves and decides one request in a single call. This is the
// hot path: every resource request goes through it before any storage
// mutation.
func (e *Engine) Authorize(ctx context.Context, req *RequestInfo, permission string) (*AuthContext, bool, error) {
	ac, err := e.Resolve(ctx, req)
	if err != nil {
		return nil, false, err
	}
	allowed, err := e.policy.Authorize(ctx, ac, req.Principals, permission)
	if err != nil {
		return nil, false, err
	}
	return ac, allowed, nil
}

// Enforce returns an error when the request is denied: ErrUnauthenticated
// for anonymous callers, ErrAccessDenied otherwise.
func (e *Engine) Enforce(ctx context.Context, req *RequestInfo, permission string) (*AuthContext, error) {
	ac, allowed, err := e.Authorize(ctx, req, permission)
	if err != nil {
		return nil, err
	}
	if !allowed {
		if !req.Authenticated() {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("%w: %s on %s", ErrAccessDenied, ac.RequiredPermission, ac.PermissionObjectID)
	}
	return ac, nil
}

// Start performs any startup initialization.
func (e *Engine) Start(_ context.Context) error { return nil }

// Stop performs graceful shutdown and fires the shutdown hooks.
func (e *Engine) Stop(ctx context.Context) error {
	if e.plugins != nil {
		e.plugins.EmitShutdown(ctx)
	}
	return nil
}

// Health pings both backends.
func (e *Engine) Health(ctx context.Context) error {
	if err := e.storage.Ping(ctx); err != nil {
		return fmt.Errorf("%w: storage: %v", ErrBackendUnavailable, err)
	}
	if err := e.aclStore.Ping(ctx); err != nil {
		return fmt.Errorf("%w: permission backend: %v", ErrBackendUnavailable, err)
	}
	return nil
}
