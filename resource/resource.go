package resource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/xraph/shelf"
	"github.com/xraph/shelf/model"
	"github.com/xraph/shelf/object"
	"github.com/xraph/shelf/token"
)

// Resource executes the CRUD operations of one descriptor for one request,
// through a model already bound to the caller and parent scope.
type Resource struct {
	Desc   Descriptor
	Model  *model.Model
	Config shelf.Config
	Logger *slog.Logger
}

// New binds a descriptor to a per-request model. The model's URI mapping is
// aligned with the descriptor's object path template.
func New(desc Descriptor, m *model.Model, cfg shelf.Config, logger *slog.Logger) *Resource {
	if logger == nil {
		logger = slog.Default()
	}
	m.URIFor = desc.ObjectURI
	return &Resource{Desc: desc, Model: m, Config: cfg, Logger: logger}
}

// Page is one collection listing result.
type Page struct {
	Objects   []object.Object
	Total     int
	Timestamp int64

	// NextToken continues the listing when the page was full. Empty on
	// the last page.
	NextToken string
}

// Permission returns the nominal permission the policy should enforce for
// one endpoint, after option merging.
func (r *Resource) Permission(method string, onCollection bool) string {
	return r.Desc.Options.Resolve(method, onCollection).permission()
}

// CollectionGet lists the collection. sharedIDs narrows the listing to the
// object ids shared with the caller; nil means unrestricted, an empty
// slice yields an empty page (authorized through the sharing fallback but
// nothing visible).
func (r *Resource) CollectionGet(ctx context.Context, query url.Values, sharedIDs []string, pre Preconditions) (*Page, error) {
	opts := r.Desc.Options.Resolve("GET", true)

	timestamp, err := r.Model.Timestamp(ctx)
	if err != nil {
		return nil, err
	}
	if err := checkPreconditions(pre, timestamp, nil); err != nil {
		return nil, err
	}

	listOpts, offset, err := ParseListOptions(r.Desc, opts, r.Config, query)
	if err != nil {
		return nil, err
	}
	if sharedIDs != nil {
		ids := make([]any, len(sharedIDs))
		for i, id := range sharedIDs {
			ids[i] = id
		}
		listOpts.Filters = append(listOpts.Filters, object.Filter{
			Field:    object.FieldID,
			Value:    ids,
			Operator: object.OpIn,
		})
	}

	objects, err := r.Model.GetObjects(ctx, listOpts)
	if err != nil {
		return nil, err
	}
	total, err := r.Model.CountObjects(ctx, listOpts.Filters)
	if err != nil {
		return nil, err
	}

	page := &Page{Objects: objects, Total: total, Timestamp: timestamp}
	if listOpts.Limit > 0 && len(objects) == listOpts.Limit {
		last := objects[len(objects)-1]
		page.NextToken = token.Encode(listOpts.Sorting, last, offset+len(objects))
	}
	projectFields(page.Objects, query.Get(paramFields))
	return page, nil
}

// CollectionPost creates an object. A client-supplied id must satisfy the
// resource's generator; posting an id that already exists returns the
// existing object untouched, with created=false.
func (r *Resource) CollectionPost(ctx context.Context, body object.Object, pre Preconditions) (object.Object, bool, error) {
	timestamp, err := r.Model.Timestamp(ctx)
	if err != nil {
		return nil, false, err
	}
	if err := checkPreconditions(pre, timestamp, nil); err != nil {
		return nil, false, err
	}

	if body == nil {
		body = object.Object{}
	}
	if suppliedID := body.ID(); suppliedID != "" && !r.Desc.Generator().Match(suppliedID) {
		return nil, false, fmt.Errorf("%w: invalid object id %q", shelf.ErrInvalidParameters, suppliedID)
	}

	created, err := r.Model.CreateObject(ctx, body)
	if errors.Is(err, shelf.ErrConstraintViolation) && body.ID() != "" {
		existing, getErr := r.Model.GetObject(ctx, body.ID())
		if getErr != nil {
			return nil, false, err
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return created, true, nil
}

// CollectionDelete bulk-deletes the objects matching the query filters.
func (r *Resource) CollectionDelete(ctx context.Context, query url.Values, pre Preconditions) ([]object.Object, error) {
	opts := r.Desc.Options.Resolve("DELETE", true)

	timestamp, err := r.Model.Timestamp(ctx)
	if err != nil {
		return nil, err
	}
	if err := checkPreconditions(pre, timestamp, nil); err != nil {
		return nil, err
	}

	listOpts, _, err := ParseListOptions(r.Desc, opts, r.Config, query)
	if err != nil {
		return nil, err
	}
	return r.Model.DeleteObjects(ctx, listOpts)
}

// ObjectGet returns one object after evaluating its preconditions.
func (r *Resource) ObjectGet(ctx context.Context, objectID string, pre Preconditions) (object.Object, error) {
	obj, err := r.Model.GetObject(ctx, objectID)
	if err != nil {
		return nil, err
	}
	if err := checkPreconditions(pre, obj.LastModified(), obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// ObjectPut replaces or creates the object at objectID. current is the
// caller's already-fetched state (from authorization resolution) and may be
// nil; it is re-fetched when absent so administrative callers can use the
// operation directly. Re-creation over a tombstone goes through create,
// never update.
func (r *Resource) ObjectPut(ctx context.Context, objectID string, body object.Object, current object.Object, pre Preconditions) (object.Object, bool, error) {
	if !r.Desc.Generator().Match(objectID) {
		return nil, false, fmt.Errorf("%w: invalid object id %q", shelf.ErrInvalidParameters, objectID)
	}
	if current == nil {
		existing, err := r.Model.GetObject(ctx, objectID)
		if err != nil && !errors.Is(err, shelf.ErrObjectNotFound) {
			return nil, false, err
		}
		current = existing
	}

	var timestamp int64
	if current != nil {
		timestamp = current.LastModified()
	}
	if err := checkPreconditions(pre, timestamp, current); err != nil {
		return nil, false, err
	}

	if body == nil {
		body = object.Object{}
	}
	if current != nil {
		updated, err := r.Model.UpdateObject(ctx, objectID, body)
		return updated, false, err
	}
	body.SetID(objectID)
	created, err := r.Model.CreateObject(ctx, body)
	return created, true, err
}

// ObjectPatch partially updates one object. With merge, RFC 7386 semantics
// apply (null deletes a field, nested maps merge); otherwise only the
// fields present in the patch are overwritten. A patch that changes
// nothing returns the current state without touching storage, so the
// timestamp does not move.
func (r *Resource) ObjectPatch(ctx context.Context, objectID string, patch object.Object, merge bool, pre Preconditions) (object.Object, error) {
	current, err := r.Model.GetObject(ctx, objectID)
	if err != nil {
		return nil, err
	}
	if err := checkPreconditions(pre, current.LastModified(), current); err != nil {
		return nil, err
	}

	patch = patch.Clone()
	patchPerms, hasPerms := patch[object.FieldPermissions]
	delete(patch, object.FieldPermissions)

	work := stripPermissions(current)
	delete(work, object.FieldLastModified)
	if merge {
		mergePatch(work, patch)
	} else {
		applyChanges(work, patch)
	}

	changed := changedFields(stripPermissions(current), work)
	if len(changed) == 0 && !hasPerms {
		return current, nil
	}

	perms := mergedPermissions(current, patchPerms)
	if perms != nil {
		work[object.FieldPermissions] = perms
	}
	return r.Model.UpdateObject(ctx, objectID, work)
}

// ObjectDelete tombstones one object. lastModified optionally forces the
// tombstone timestamp (ignored unless strictly in the future of the
// object's own).
func (r *Resource) ObjectDelete(ctx context.Context, objectID string, pre Preconditions, lastModified int64) (object.Object, error) {
	current, err := r.Model.GetObject(ctx, objectID)
	if err != nil {
		return nil, err
	}
	if err := checkPreconditions(pre, current.LastModified(), current); err != nil {
		return nil, err
	}
	return r.Model.DeleteObject(ctx, objectID, lastModified)
}

// mergedPermissions overlays the patch's permission entries on the current
// annotation, preserving untouched ACEs across the replace-style update.
func mergedPermissions(current object.Object, patchPerms any) map[string][]string {
	base, _ := current[object.FieldPermissions].(map[string][]string)
	merged := make(map[string][]string, len(base))
	for perm, principals := range base {
		merged[perm] = append([]string(nil), principals...)
	}
	switch p := patchPerms.(type) {
	case map[string][]string:
		for perm, principals := range p {
			merged[perm] = principals
		}
	case map[string]any:
		for perm, v := range p {
			list, ok := v.([]any)
			if !ok {
				continue
			}
			principals := make([]string, 0, len(list))
			for _, e := range list {
				if s, ok := e.(string); ok {
					principals = append(principals, s)
				}
			}
			merged[perm] = principals
		}
	case nil:
		if len(merged) == 0 {
			return nil
		}
	}
	return merged
}

// projectFields narrows listed objects to the requested comma-separated
// field set; id and last_modified always survive.
func projectFields(objects []object.Object, raw string) {
	if raw == "" {
		return
	}
	keep := map[string]bool{object.FieldID: true, object.FieldLastModified: true, object.FieldDeleted: true}
	for _, f := range strings.Split(raw, ",") {
		if f = strings.TrimSpace(f); f != "" {
			keep[f] = true
		}
	}
	for _, obj := range objects {
		for key := range obj {
			if !keep[key] {
				delete(obj, key)
			}
		}
	}
}
