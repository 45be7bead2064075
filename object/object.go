// Package object defines the schemaless document type managed by shelf and
// its storage backend interface. Objects are JSON-like documents with a
// handful of reserved fields; everything else is caller-defined.
package object

// Reserved field names. FieldPermissions is ephemeral: it is attached to
// read responses and stripped before anything reaches a backend.
const (
	FieldID           = "id"
	FieldLastModified = "last_modified"
	FieldDeleted      = "deleted"
	FieldPermissions  = "__permissions__"
)

// Object is a schemaless document. Reserved fields are accessed through the
// typed helpers below; all other fields are opaque to shelf.
type Object map[string]any

// ID returns the object identifier, or "" if unset.
func (o Object) ID() string {
	v, _ := o[FieldID].(string)
	return v
}

// SetID sets the object identifier.
func (o Object) SetID(id string) { o[FieldID] = id }

// LastModified returns the millisecond timestamp assigned by storage,
// or 0 if the object has never been persisted.
func (o Object) LastModified() int64 {
	switch v := o[FieldLastModified].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		// JSON decoding yields float64 for numbers.
		return int64(v)
	}
	return 0
}

// SetLastModified sets the storage timestamp.
func (o Object) SetLastModified(ts int64) { o[FieldLastModified] = ts }

// Deleted reports whether the object is a tombstone.
func (o Object) Deleted() bool {
	v, _ := o[FieldDeleted].(bool)
	return v
}

// Tombstone returns the minimal deletion marker for this object: id,
// last_modified and deleted only.
func (o Object) Tombstone() Object {
	return Object{
		FieldID:           o.ID(),
		FieldLastModified: o.LastModified(),
		FieldDeleted:      true,
	}
}

// Clone returns a deep copy of the object. Nested maps and slices are
// copied; scalar values are shared.
func (o Object) Clone() Object {
	if o == nil {
		return nil
	}
	c := make(Object, len(o))
	for k, v := range o {
		c[k] = cloneValue(v)
	}
	return c
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = cloneValue(e)
		}
		return m
	case Object:
		return map[string]any(t.Clone())
	case []any:
		s := make([]any, len(t))
		for i, e := range t {
			s[i] = cloneValue(e)
		}
		return s
	default:
		return v
	}
}

// Lookup resolves a possibly dotted field path against the object. A field
// name containing a literal dot is tried verbatim first, then as a nested
// path. The second return value reports whether the path resolved.
func (o Object) Lookup(field string) (any, bool) {
	if v, ok := o[field]; ok {
		return v, true
	}
	return lookupPath(map[string]any(o), field)
}
