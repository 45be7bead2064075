// Package extension provides a Forge extension entry point for shelf.
package extension

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/shelf"
	"github.com/xraph/shelf/api"
	"github.com/xraph/shelf/middleware"
	"github.com/xraph/shelf/plugin"
	"github.com/xraph/shelf/resource"
	"github.com/xraph/shelf/store"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "shelf"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Pluggable REST object store with per-object permissions and sync-friendly timestamps"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts shelf as a Forge extension.
type Extension struct {
	config     Config
	eng        *shelf.Engine
	apiHandler *api.API
	logger     *slog.Logger
	store      store.Store
	engOpts    []shelf.Option
	plugins    []plugin.Plugin
	resources  []resource.Descriptor
}

// New creates a shelf Forge extension with the given options.
func New(opts ...ExtOption) *Extension {
	e := &Extension{config: DefaultConfig()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns the extension name.
func (e *Extension) Name() string { return ExtensionName }

// Description returns the extension description.
func (e *Extension) Description() string { return ExtensionDescription }

// Version returns the extension version.
func (e *Extension) Version() string { return ExtensionVersion }

// Dependencies returns the list of extension names this extension depends on.
func (e *Extension) Dependencies() []string { return []string{} }

// Engine returns the underlying shelf engine.
func (e *Extension) Engine() *shelf.Engine { return e.eng }

// API returns the API handler.
func (e *Extension) API() *api.API { return e.apiHandler }

// Register implements [forge.Extension]. It initializes the engine,
// registers it in the DI container, and optionally registers HTTP routes.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.init(fapp); err != nil {
		return err
	}

	if err := vessel.Provide(fapp.Container(), func() (*shelf.Engine, error) {
		return e.eng, nil
	}); err != nil {
		return fmt.Errorf("shelf: register engine in container: %w", err)
	}

	return nil
}

func (e *Extension) init(fapp forge.App) error {
	logger := e.logger
	if logger == nil {
		logger = slog.Default()
	}

	backend := e.store
	if backend == nil {
		// Fall back to a store registered in the DI container.
		if s, err := forge.Inject[store.Store](fapp.Container()); err == nil {
			backend = s
		}
	}

	opts := make([]shelf.Option, 0, len(e.engOpts)+len(e.plugins)+3)
	opts = append(opts, shelf.WithLogger(logger))
	if backend != nil {
		opts = append(opts, shelf.WithStorage(backend), shelf.WithACL(backend))
	}
	opts = append(opts, e.engOpts...)
	for _, x := range e.plugins {
		opts = append(opts, shelf.WithPlugin(x))
	}

	eng, err := shelf.NewEngine(opts...)
	if err != nil {
		return fmt.Errorf("shelf: create engine: %w", err)
	}
	e.eng = eng

	var apiOpts []api.Option
	if e.config.BasePath != "" {
		apiOpts = append(apiOpts, api.WithPrefix(e.config.BasePath))
	}
	e.apiHandler = api.New(eng, fapp.Router(), apiOpts...)

	if !e.config.DisableRoutes {
		fapp.Router().Use(middleware.Principals(eng))
		if err := e.apiHandler.RegisterUtilityRoutes(); err != nil {
			return fmt.Errorf("shelf: register utility routes: %w", err)
		}
		for _, desc := range e.resources {
			if err := e.apiHandler.Register(desc); err != nil {
				return fmt.Errorf("shelf: register resource %q: %w", desc.Name, err)
			}
		}
	}

	return nil
}

// Start runs migrations (unless disabled) and starts the engine.
func (e *Extension) Start(ctx context.Context) error {
	if e.eng == nil {
		return errors.New("shelf: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if m, ok := e.eng.Storage().(interface{ Migrate(context.Context) error }); ok {
			if err := m.Migrate(ctx); err != nil {
				return fmt.Errorf("shelf: migration failed: %w", err)
			}
		} else if err := e.eng.Storage().InitializeSchema(ctx, false); err != nil {
			return fmt.Errorf("shelf: schema initialization failed: %w", err)
		}
	}

	return e.eng.Start(ctx)
}

// Stop gracefully shuts down the engine.
func (e *Extension) Stop(ctx context.Context) error {
	if e.eng == nil {
		return nil
	}
	return e.eng.Stop(ctx)
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.eng == nil {
		return errors.New("shelf: extension not initialized")
	}
	return e.eng.Health(ctx)
}

// Handler returns the HTTP handler for all API routes.
func (e *Extension) Handler() http.Handler {
	if e.apiHandler == nil {
		return http.NotFoundHandler()
	}
	return e.apiHandler.Handler()
}
