package shelf

import (
	"log/slog"

	"github.com/xraph/shelf/acl"
	"github.com/xraph/shelf/id"
	"github.com/xraph/shelf/object"
	"github.com/xraph/shelf/plugin"
)

// Option is a functional option for the Engine.
type Option func(*Engine)

// WithStorage sets the object storage backend.
func WithStorage(s object.Store) Option { return func(e *Engine) { e.storage = s } }

// WithACL sets the permission backend.
func WithACL(s acl.Store) Option { return func(e *Engine) { e.aclStore = s } }

// WithPolicy sets the authorization policy.
func WithPolicy(p *Policy) Option { return func(e *Engine) { e.policy = p } }

// WithCache sets the permission verdict cache.
func WithCache(c Cache) Option { return func(e *Engine) { e.cache = c } }

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.logger = l } }

// WithConfig sets the engine configuration.
func WithConfig(c Config) Option { return func(e *Engine) { e.config = c } }

// WithIDGenerator sets the object id generator.
func WithIDGenerator(g id.Generator) Option { return func(e *Engine) { e.idGen = g } }

// WithPlugin registers a plugin with the engine.
func WithPlugin(x plugin.Plugin) Option {
	return func(e *Engine) {
		if e.plugins == nil {
			e.plugins = plugin.NewRegistry(e.logger)
		}
		e.plugins.Register(x)
	}
}
