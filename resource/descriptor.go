// Package resource implements the endpoint orchestration layer: request
// parsing (filters, sorting, pagination), precondition checks, and the CRUD
// operations themselves on top of the object model.
package resource

import (
	"strings"

	"github.com/xraph/shelf"
	"github.com/xraph/shelf/id"
)

// Descriptor declares one registered resource: its name, URI layout, and
// per-endpoint behavior overrides.
type Descriptor struct {
	// Name is the singular resource name ("record").
	Name string

	// CollectionPath is the collection URI ("/buckets/{bucket}/records"
	// with concrete parent segments filled in at request time).
	CollectionPath string

	// ObjectPathTemplate is the single-object URI template, with "{id}"
	// standing for the object id. Empty for list-only resources.
	ObjectPathTemplate string

	// IDGenerator validates client-supplied ids and generates missing
	// ones. Nil defaults to UUID4.
	IDGenerator id.Generator

	// KnownFields lists the filterable/sortable top-level fields besides
	// the reserved ones. Empty means any field is accepted.
	KnownFields []string

	Options Options
}

// Generator returns the configured id generator or the UUID4 default.
func (d Descriptor) Generator() id.Generator {
	if d.IDGenerator != nil {
		return d.IDGenerator
	}
	return id.UUID4{}
}

// ObjectURI returns the permission URI for one object id.
func (d Descriptor) ObjectURI(objectID string) string {
	if d.ObjectPathTemplate != "" {
		return strings.Replace(d.ObjectPathTemplate, "{id}", objectID, 1)
	}
	return d.CollectionPath + "/" + objectID
}

// knownField reports whether a filter/sort field is acceptable. Dotted
// paths are judged by their root segment.
func (d Descriptor) knownField(field string) bool {
	if len(d.KnownFields) == 0 {
		return true
	}
	root, _, _ := strings.Cut(field, ".")
	switch root {
	case "id", "last_modified", "deleted":
		return true
	}
	for _, f := range d.KnownFields {
		if f == root {
			return true
		}
	}
	return false
}

// MethodOptions are the overridable knobs of one endpoint. Nil fields
// inherit from the next precedence level.
type MethodOptions struct {
	// Permission is the nominal permission handed to the policy:
	// "dynamic" (default), "private", or an explicit permission name.
	Permission *string

	// PreserveUnknown accepts filters and sorts on fields outside
	// KnownFields instead of rejecting the request.
	PreserveUnknown *bool

	// PageSize overrides the configured default page size.
	PageSize *int
}

// Options configures endpoints at three precedence levels, merged by
// Resolve: method-specific beats endpoint-type-specific beats global.
type Options struct {
	Global     MethodOptions
	Collection MethodOptions
	Object     MethodOptions
	ByMethod   map[string]MethodOptions
}

// Resolve merges the three levels for one (method, endpoint type) pair.
func (o Options) Resolve(method string, onCollection bool) MethodOptions {
	merged := o.Global
	if onCollection {
		merged = overlay(merged, o.Collection)
	} else {
		merged = overlay(merged, o.Object)
	}
	if m, ok := o.ByMethod[method]; ok {
		merged = overlay(merged, m)
	}
	return merged
}

func overlay(base, over MethodOptions) MethodOptions {
	if over.Permission != nil {
		base.Permission = over.Permission
	}
	if over.PreserveUnknown != nil {
		base.PreserveUnknown = over.PreserveUnknown
	}
	if over.PageSize != nil {
		base.PageSize = over.PageSize
	}
	return base
}

// permission returns the nominal permission, defaulting to dynamic.
func (m MethodOptions) permission() string {
	if m.Permission != nil {
		return *m.Permission
	}
	return shelf.PermissionDynamic
}

func (m MethodOptions) preserveUnknown() bool {
	return m.PreserveUnknown != nil && *m.PreserveUnknown
}
