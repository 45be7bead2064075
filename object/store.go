package object

import "context"

// Store defines the storage backend contract. Objects are scoped by
// (resource, parentID); within one scope, every write bumps a resource-level
// millisecond counter so that last_modified values are strictly increasing
// and unique.
//
// Implementations return shelf.ErrObjectNotFound (wrapped) for missing
// objects and shelf.ErrBackendUnavailable for infrastructure failures.
type Store interface {
	// Get returns the object, or a not-found error. Tombstones are not
	// returned by Get.
	Get(ctx context.Context, resource, parentID, objectID string) (Object, error)

	// Create persists a new object, assigning an id from the configured
	// generator when absent and a fresh last_modified. A client-supplied
	// last_modified that is not strictly greater than the resource
	// timestamp is dropped and reassigned. Creating over a live object
	// with the same id fails with a constraint-violation error; creating
	// over a tombstone replaces it.
	Create(ctx context.Context, resource, parentID string, obj Object) (Object, error)

	// Update persists obj under objectID, creating it if absent, and
	// assigns a fresh last_modified (client values below the resource
	// timestamp are dropped, as for Create).
	Update(ctx context.Context, resource, parentID, objectID string, obj Object) (Object, error)

	// Delete converts the object into a tombstone retaining only id,
	// last_modified and deleted=true. lastModified forces the tombstone
	// timestamp only when strictly greater than the object's current one;
	// pass 0 to let the counter assign it.
	Delete(ctx context.Context, resource, parentID, objectID string, lastModified int64) (Object, error)

	// DeleteAll tombstones every object matching opts and returns the
	// tombstones.
	DeleteAll(ctx context.Context, resource, parentID string, opts *ListOptions) ([]Object, error)

	// ListAll returns objects matching opts in sorted order.
	ListAll(ctx context.Context, resource, parentID string, opts *ListOptions) ([]Object, error)

	// CountAll returns the number of live objects matching the filters.
	CountAll(ctx context.Context, resource, parentID string, filters []Filter) (int, error)

	// ResourceTimestamp returns the current resource-level counter,
	// initializing it on first access. Backends that cannot write (e.g.
	// a read-only replica asked about an empty resource) fail with a
	// backend error.
	ResourceTimestamp(ctx context.Context, resource, parentID string) (int64, error)

	// InitializeSchema performs idempotent setup. With dryRun it only
	// verifies, never writes.
	InitializeSchema(ctx context.Context, dryRun bool) error

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}
