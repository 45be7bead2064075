package extension

import (
	"log/slog"

	"github.com/xraph/shelf"
	"github.com/xraph/shelf/plugin"
	"github.com/xraph/shelf/resource"
	"github.com/xraph/shelf/store"
)

// ExtOption configures the shelf Forge extension.
type ExtOption func(*Extension)

// WithStore sets the composite persistence backend (object storage and
// permission backend in one).
func WithStore(s store.Store) ExtOption {
	return func(e *Extension) {
		e.store = s
	}
}

// WithConfig sets the extension configuration.
func WithConfig(cfg Config) ExtOption {
	return func(e *Extension) {
		e.config = cfg
	}
}

// WithEngineOptions adds engine-level options.
func WithEngineOptions(opts ...shelf.Option) ExtOption {
	return func(e *Extension) {
		e.engOpts = append(e.engOpts, opts...)
	}
}

// WithPlugin registers a lifecycle hook plugin.
func WithPlugin(x plugin.Plugin) ExtOption {
	return func(e *Extension) {
		e.plugins = append(e.plugins, x)
	}
}

// WithResource mounts a resource descriptor when routes are registered.
func WithResource(desc resource.Descriptor) ExtOption {
	return func(e *Extension) {
		e.resources = append(e.resources, desc)
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) ExtOption {
	return func(e *Extension) {
		e.logger = l
	}
}

// WithDisableRoutes disables the registration of HTTP routes.
func WithDisableRoutes() ExtOption {
	return func(e *Extension) {
		e.config.DisableRoutes = true
	}
}

// WithDisableMigrate disables auto-migration on start.
func WithDisableMigrate() ExtOption {
	return func(e *Extension) {
		e.config.DisableMigrate = true
	}
}
