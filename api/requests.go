package api

// ObjectRequest is the body for creating or replacing an object.
type ObjectRequest struct {
	Data        map[string]any      `json:"data" description:"Object fields"`
	Permissions map[string][]string `json:"permissions,omitempty" description:"ACEs to set on the object (permission name to principal list)"`
}

// PatchRequest is the body for partially updating an object. With the
// application/merge-patch+json content type, null values delete fields.
type PatchRequest struct {
	Data        map[string]any      `json:"data,omitempty" description:"Fields to change"`
	Permissions map[string][]string `json:"permissions,omitempty" description:"ACEs to overlay on the object"`
}

// ListRequest documents the query parameters of collection endpoints.
// Arbitrary additional parameters are interpreted as field filters, with
// optional operator prefixes (min_, max_, not_, in_, exclude_, like_,
// has_, contains_, contains_any_, gt_, lt_).
type ListRequest struct {
	Limit  int    `query:"_limit" description:"Maximum objects per page"`
	Sort   string `query:"_sort" description:"Comma-separated sort fields, '-' prefix for descending"`
	Token  string `query:"_token" description:"Continuation token from a previous page"`
	Since  string `query:"_since" description:"Only objects (and tombstones) modified strictly after this timestamp"`
	Before string `query:"_before" description:"Only objects (and tombstones) modified strictly before this timestamp"`
	Fields string `query:"_fields" description:"Comma-separated field projection"`
}

// DeleteObjectRequest documents the query parameters of object deletion.
type DeleteObjectRequest struct {
	LastModified int64 `query:"last_modified" description:"Forced tombstone timestamp (ignored unless in the future)"`
}
