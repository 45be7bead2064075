package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/xraph/forge"

	"github.com/xraph/shelf"
	"github.com/xraph/shelf/model"
	"github.com/xraph/shelf/object"
	"github.com/xraph/shelf/resource"
)

// resourceHandler serves the endpoints of one resource descriptor.
type resourceHandler struct {
	api  *API
	desc resource.Descriptor
}

func (h *resourceHandler) register(router forge.Router) error {
	g := router.Group(h.api.prefix, forge.WithGroupTags(h.desc.Name))
	name := capitalize(h.desc.Name)
	col := routePath(h.desc.CollectionPath)

	if err := g.GET(col, h.collectionGet,
		forge.WithSummary("List "+h.desc.Name+"s"),
		forge.WithDescription("Lists objects with filtering, sorting and cursor pagination."),
		forge.WithOperationID("list"+name+"s"),
		forge.WithRequestSchema(ListRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Object page", PageResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.POST(col, h.collectionPost,
		forge.WithSummary("Create "+h.desc.Name),
		forge.WithDescription("Creates a new object. Posting an existing id returns the existing object unchanged."),
		forge.WithOperationID("create"+name),
		forge.WithRequestSchema(ObjectRequest{}),
		forge.WithCreatedResponse(&ObjectResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.DELETE(col, h.collectionDelete,
		forge.WithSummary("Delete "+h.desc.Name+"s"),
		forge.WithDescription("Bulk-deletes the objects matching the query filters."),
		forge.WithOperationID("delete"+name+"s"),
		forge.WithResponseSchema(http.StatusOK, "Deleted tombstones", PageResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if h.desc.ObjectPathTemplate == "" {
		return nil
	}
	obj := routePath(h.desc.ObjectPathTemplate)

	if err := g.GET(obj, h.objectGet,
		forge.WithSummary("Get "+h.desc.Name),
		forge.WithDescription("Returns one object with its visible permissions."),
		forge.WithOperationID("get"+name),
		forge.WithResponseSchema(http.StatusOK, "Object", ObjectResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.PUT(obj, h.objectPut,
		forge.WithSummary("Replace "+h.desc.Name),
		forge.WithDescription("Replaces the object, creating it when absent."),
		forge.WithOperationID("put"+name),
		forge.WithRequestSchema(ObjectRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Object", ObjectResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.PATCH(obj, h.objectPatch,
		forge.WithSummary("Patch "+h.desc.Name),
		forge.WithDescription("Partially updates the object. With application/merge-patch+json, null deletes a field."),
		forge.WithOperationID("patch"+name),
		forge.WithRequestSchema(PatchRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Object", ObjectResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.DELETE(obj, h.objectDelete,
		forge.WithSummary("Delete "+h.desc.Name),
		forge.WithDescription("Tombstones the object."),
		forge.WithOperationID("delete"+name),
		forge.WithResponseSchema(http.StatusOK, "Tombstone", ObjectResponse{}),
		forge.WithErrorResponses(),
	)
}

// requestInfo rebuilds the transport-agnostic request description from the
// matched route.
func (h *resourceHandler) requestInfo(ctx forge.Context, onCollection bool) (*shelf.RequestInfo, resource.Preconditions, error) {
	r := ctx.Request()
	pre, err := preconditionsFrom(r)
	if err != nil {
		return nil, pre, err
	}

	collectionPath := fillPath(ctx, h.desc.CollectionPath)
	objectTemplate := ""
	if h.desc.ObjectPathTemplate != "" {
		objectTemplate = fillPath(ctx, h.desc.ObjectPathTemplate)
	}

	path := collectionPath
	objectID := ""
	if !onCollection {
		objectID = ctx.Param("id")
		path = strings.Replace(objectTemplate, "{id}", objectID, 1)
	}

	req := &shelf.RequestInfo{
		Method: r.Method,
		Path:   path,
		Binding: &shelf.ResourceBinding{
			Name:               h.desc.Name,
			OnCollection:       onCollection,
			ParentID:           parentOf(collectionPath),
			ObjectID:           objectID,
			CollectionPath:     collectionPath,
			ObjectPathTemplate: objectTemplate,
		},
		Principals:     shelf.PrincipalsFromContext(ctx.Context()),
		IfMatch:        pre.IfMatch,
		IfNoneMatch:    pre.IfNoneMatch,
		IfNoneMatchAny: pre.IfNoneMatchAny,
	}
	return req, pre, nil
}

// resource binds the descriptor to a per-request model. The descriptor copy
// gets the concrete request paths so object URIs come out fully resolved.
func (h *resourceHandler) resource(ctx forge.Context, req *shelf.RequestInfo) *resource.Resource {
	eng := h.api.eng
	desc := h.desc
	desc.CollectionPath = req.Binding.CollectionPath
	desc.ObjectPathTemplate = req.Binding.ObjectPathTemplate

	m := &model.Model{
		Storage:    eng.Storage(),
		ACL:        eng.ACL(),
		Resource:   desc.Name,
		ParentID:   req.Binding.ParentID,
		Principal:  shelf.UserIDFromContext(ctx.Context()),
		Principals: req.Principals,
		Plugins:    eng.Plugins(),
		Cache:      eng.Cache(),
		Config:     eng.Config(),
	}
	return resource.New(desc, m, eng.Config(), eng.Logger())
}

// enforce authorizes one request and fires the post-authorization hook.
func (h *resourceHandler) enforce(ctx forge.Context, req *shelf.RequestInfo, res *resource.Resource) (*shelf.AuthContext, error) {
	ac, err := h.api.eng.Enforce(ctx.Context(), req, res.Permission(req.Method, req.Binding.OnCollection))
	if plugins := h.api.eng.Plugins(); plugins != nil {
		plugins.EmitAfterAuthorize(ctx.Context(), req, err == nil)
	}
	return ac, err
}

func (h *resourceHandler) collectionGet(ctx forge.Context, _ *ListRequest) (*PageResponse, error) {
	req, pre, err := h.requestInfo(ctx, true)
	if err != nil {
		return nil, respondError(ctx, err)
	}
	res := h.resource(ctx, req)
	ac, err := h.enforce(ctx, req, res)
	if err != nil {
		return nil, respondError(ctx, err)
	}

	page, err := res.CollectionGet(ctx.Context(), ctx.Request().URL.Query(), ac.SharedIDs, pre)
	if err != nil {
		return nil, respondError(ctx, err)
	}

	setETag(ctx, page.Timestamp)
	ctx.SetHeader("Total-Objects", strconv.Itoa(page.Total))
	if page.NextToken != "" {
		ctx.SetHeader("Next-Page", nextPageURL(ctx.Request(), page.NextToken))
	}
	resp := &PageResponse{Data: page.Objects}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (h *resourceHandler) collectionPost(ctx forge.Context, body *ObjectRequest) (*ObjectResponse, error) {
	req, pre, err := h.requestInfo(ctx, true)
	if err != nil {
		return nil, respondError(ctx, err)
	}
	res := h.resource(ctx, req)
	if _, err := h.enforce(ctx, req, res); err != nil {
		return nil, respondError(ctx, err)
	}

	obj := object.Object(body.Data)
	if obj == nil {
		obj = object.Object{}
	}
	if len(body.Permissions) > 0 {
		obj[object.FieldPermissions] = body.Permissions
	}

	stored, created, err := res.CollectionPost(ctx.Context(), obj, pre)
	if err != nil {
		return nil, respondError(ctx, err)
	}

	setETag(ctx, stored.LastModified())
	resp := envelope(stored)
	if created {
		return resp, ctx.JSON(http.StatusCreated, resp)
	}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (h *resourceHandler) collectionDelete(ctx forge.Context, _ *ListRequest) (*PageResponse, error) {
	req, pre, err := h.requestInfo(ctx, true)
	if err != nil {
		return nil, respondError(ctx, err)
	}
	res := h.resource(ctx, req)
	if _, err := h.enforce(ctx, req, res); err != nil {
		return nil, respondError(ctx, err)
	}

	tombstones, err := res.CollectionDelete(ctx.Context(), ctx.Request().URL.Query(), pre)
	if err != nil {
		return nil, respondError(ctx, err)
	}
	resp := &PageResponse{Data: tombstones}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (h *resourceHandler) objectGet(ctx forge.Context, _ *struct{}) (*ObjectResponse, error) {
	req, pre, err := h.requestInfo(ctx, false)
	if err != nil {
		return nil, respondError(ctx, err)
	}
	res := h.resource(ctx, req)
	if _, err := h.enforce(ctx, req, res); err != nil {
		return nil, respondError(ctx, err)
	}

	obj, err := res.ObjectGet(ctx.Context(), req.Binding.ObjectID, pre)
	if err != nil {
		return nil, respondError(ctx, err)
	}

	setETag(ctx, obj.LastModified())
	resp := envelope(obj)
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (h *resourceHandler) objectPut(ctx forge.Context, body *ObjectRequest) (*ObjectResponse, error) {
	req, pre, err := h.requestInfo(ctx, false)
	if err != nil {
		return nil, respondError(ctx, err)
	}
	res := h.resource(ctx, req)
	ac, err := h.enforce(ctx, req, res)
	if err != nil {
		return nil, respondError(ctx, err)
	}

	obj := object.Object(body.Data)
	if obj == nil {
		obj = object.Object{}
	}
	if len(body.Permissions) > 0 {
		obj[object.FieldPermissions] = body.Permissions
	}

	stored, created, err := res.ObjectPut(ctx.Context(), req.Binding.ObjectID, obj, ac.CurrentObject, pre)
	if err != nil {
		return nil, respondError(ctx, err)
	}

	setETag(ctx, stored.LastModified())
	resp := envelope(stored)
	if created {
		return resp, ctx.JSON(http.StatusCreated, resp)
	}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (h *resourceHandler) objectPatch(ctx forge.Context, body *PatchRequest) (*ObjectResponse, error) {
	req, pre, err := h.requestInfo(ctx, false)
	if err != nil {
		return nil, respondError(ctx, err)
	}
	res := h.resource(ctx, req)
	if _, err := h.enforce(ctx, req, res); err != nil {
		return nil, respondError(ctx, err)
	}

	patch := object.Object(body.Data)
	if patch == nil {
		patch = object.Object{}
	}
	if len(body.Permissions) > 0 {
		patch[object.FieldPermissions] = body.Permissions
	}
	merge := strings.HasPrefix(ctx.Request().Header.Get("Content-Type"), "application/merge-patch+json")

	updated, err := res.ObjectPatch(ctx.Context(), req.Binding.ObjectID, patch, merge, pre)
	if err != nil {
		return nil, respondError(ctx, err)
	}

	setETag(ctx, updated.LastModified())
	resp := envelope(updated)
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (h *resourceHandler) objectDelete(ctx forge.Context, _ *DeleteObjectRequest) (*ObjectResponse, error) {
	req, pre, err := h.requestInfo(ctx, false)
	if err != nil {
		return nil, respondError(ctx, err)
	}
	res := h.resource(ctx, req)
	if _, err := h.enforce(ctx, req, res); err != nil {
		return nil, respondError(ctx, err)
	}

	var forced int64
	if raw := ctx.Request().URL.Query().Get("last_modified"); raw != "" {
		ts, parseErr := strconv.ParseInt(raw, 10, 64)
		if parseErr != nil {
			return nil, respondError(ctx, shelf.ErrInvalidParameters)
		}
		forced = ts
	}

	tombstone, err := res.ObjectDelete(ctx.Context(), req.Binding.ObjectID, pre, forced)
	if err != nil {
		return nil, respondError(ctx, err)
	}

	setETag(ctx, tombstone.LastModified())
	resp := &ObjectResponse{Data: tombstone, Permissions: map[string][]string{}}
	return resp, ctx.JSON(http.StatusOK, resp)
}
