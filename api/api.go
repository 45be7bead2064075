// Package api exposes shelf resources over HTTP through Forge routers.
//
// Each registered resource descriptor is mounted as a pair of endpoints
// (collection and single-object) under the configured version prefix. The
// handlers translate HTTP requests into authorization contexts and model
// operations; they hold no state of their own.
package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/shelf"
	"github.com/xraph/shelf/resource"
)

// DefaultPrefix is the URL version prefix prepended to every resource
// route.
const DefaultPrefix = "/v1"

// API mounts shelf resources on a Forge router.
type API struct {
	eng       *shelf.Engine
	router    forge.Router
	prefix    string
	resources []resource.Descriptor
}

// Option configures the API.
type Option func(*API)

// WithPrefix overrides the URL version prefix.
func WithPrefix(prefix string) Option { return func(a *API) { a.prefix = prefix } }

// New creates an API from an Engine and a Forge router.
func New(eng *shelf.Engine, router forge.Router, opts ...Option) *API {
	a := &API{eng: eng, router: router, prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Engine returns the underlying engine.
func (a *API) Engine() *shelf.Engine { return a.eng }

// Resources returns the registered resource descriptors.
func (a *API) Resources() []resource.Descriptor { return a.resources }

// Register mounts the endpoints of one resource descriptor.
func (a *API) Register(desc resource.Descriptor) error {
	h := &resourceHandler{api: a, desc: desc}
	if err := h.register(a.router); err != nil {
		return err
	}
	a.resources = append(a.resources, desc)
	return nil
}

// RegisterUtilityRoutes mounts the server-info and heartbeat endpoints.
func (a *API) RegisterUtilityRoutes() error {
	g := a.router.Group(a.prefix, forge.WithGroupTags("utility"))

	if err := g.GET("/", a.hello,
		forge.WithSummary("Server info"),
		forge.WithDescription("Returns the server capabilities and settings."),
		forge.WithOperationID("serverInfo"),
		forge.WithResponseSchema(http.StatusOK, "Server info", HelloResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.GET("/__heartbeat__", a.heartbeat,
		forge.WithSummary("Heartbeat"),
		forge.WithDescription("Reports backend health."),
		forge.WithOperationID("heartbeat"),
		forge.WithResponseSchema(http.StatusOK, "Backend health", HeartbeatResponse{}),
		forge.WithErrorResponses(),
	)
}

// Handler returns the fully assembled http.Handler.
func (a *API) Handler() http.Handler {
	if a.router == nil {
		a.router = forge.NewRouter()
	}
	return a.router.Handler()
}

func (a *API) hello(ctx forge.Context, _ *struct{}) (*HelloResponse, error) {
	cfg := a.eng.Config()
	resp := &HelloResponse{
		ProjectName:    "shelf",
		HTTPAPIVersion: a.prefix,
		Settings: HelloSettings{
			ReadOnly:        cfg.ReadOnly,
			DefaultPageSize: cfg.DefaultPageSize,
			MaxPageSize:     cfg.MaxPageSize,
		},
	}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) heartbeat(ctx forge.Context, _ *struct{}) (*HeartbeatResponse, error) {
	resp := &HeartbeatResponse{Storage: true, Permission: true}
	if err := a.eng.Storage().Ping(ctx.Context()); err != nil {
		resp.Storage = false
	}
	if err := a.eng.ACL().Ping(ctx.Context()); err != nil {
		resp.Permission = false
	}
	status := http.StatusOK
	if !resp.Storage || !resp.Permission {
		status = http.StatusServiceUnavailable
	}
	return resp, ctx.JSON(status, resp)
}
