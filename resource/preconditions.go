package resource

import (
	"fmt"

	"github.com/xraph/shelf"
	"github.com/xraph/shelf/object"
)

// Preconditions carries the concurrency-control headers of one request.
// Zero values mean the header was absent.
type Preconditions struct {
	// IfMatch is the expected current timestamp; a mismatch conflicts.
	IfMatch int64

	// IfNoneMatch refuses the request when the timestamp still matches
	// (a 304 on reads).
	IfNoneMatch int64

	// IfNoneMatchAny is the "only if absent" form: the write must not
	// target an existing object.
	IfNoneMatchAny bool
}

// PreconditionError reports an If-Match (or If-None-Match: *) conflict,
// carrying the current state so clients can resolve it. It unwraps to
// shelf.ErrPreconditionFailed.
type PreconditionError struct {
	// Existing is the conflicting object, without its permission
	// annotation. Nil for collection-level conflicts.
	Existing object.Object

	// Timestamp is the current timestamp the precondition lost against.
	Timestamp int64
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("shelf: precondition failed at timestamp %d", e.Timestamp)
}

func (e *PreconditionError) Unwrap() error { return shelf.ErrPreconditionFailed }

// checkPreconditions evaluates the headers against the current timestamp
// and object. current is nil on collection endpoints and on missing
// objects; tombstones never count as existing for IfNoneMatchAny, so
// re-creation over a deleted id is not blocked.
func checkPreconditions(pre Preconditions, timestamp int64, current object.Object) error {
	if pre.IfNoneMatchAny {
		if current != nil && !current.Deleted() {
			return &PreconditionError{Existing: stripPermissions(current), Timestamp: current.LastModified()}
		}
		return nil
	}
	if pre.IfNoneMatch != 0 && pre.IfNoneMatch == timestamp {
		return shelf.ErrNotModified
	}
	if pre.IfMatch != 0 && pre.IfMatch != timestamp {
		return &PreconditionError{Existing: stripPermissions(current), Timestamp: timestamp}
	}
	return nil
}

func stripPermissions(obj object.Object) object.Object {
	if obj == nil {
		return nil
	}
	c := obj.Clone()
	delete(c, object.FieldPermissions)
	return c
}
