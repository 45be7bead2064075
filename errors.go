package shelf

import "errors"

var (
	// ErrObjectNotFound is returned when an object does not exist (or is
	// a tombstone).
	ErrObjectNotFound = errors.New("shelf: object not found")

	// ErrConstraintViolation is returned on id or unique-field conflicts.
	ErrConstraintViolation = errors.New("shelf: constraint violation")

	// ErrBackendUnavailable is returned when a storage or permission
	// backend fails; callers should surface it as a retryable condition.
	ErrBackendUnavailable = errors.New("shelf: backend unavailable")

	// ErrInvalidToken is returned for malformed or mismatched pagination
	// tokens.
	ErrInvalidToken = errors.New("shelf: invalid pagination token")

	// ErrInvalidParameters is returned for invalid filters, sort fields
	// or precondition header values.
	ErrInvalidParameters = errors.New("shelf: invalid parameters")

	// ErrNotModified is returned when an If-None-Match precondition
	// matches the current timestamp on a safe method.
	ErrNotModified = errors.New("shelf: not modified")

	// ErrPreconditionFailed is returned when an If-Match precondition
	// does not match, or If-None-Match: * hits an existing object.
	ErrPreconditionFailed = errors.New("shelf: precondition failed")

	// ErrAccessDenied is returned when authorization denies a request.
	ErrAccessDenied = errors.New("shelf: access denied")

	// ErrUnauthenticated is returned when authorization denies a request
	// that carried no authenticated principal.
	ErrUnauthenticated = errors.New("shelf: authentication required")

	// ErrReadOnly is returned when a write is attempted in a read-only
	// deployment.
	ErrReadOnly = errors.New("shelf: read-only mode")
)
