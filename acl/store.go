package acl

import "context"

// Store defines the permission backend contract.
//
// Object URIs act as opaque keys except in GetAccessibleObjects, where a
// trailing "*" in a pair's ObjectID matches any stored URI sharing the
// prefix before the wildcard.
type Store interface {
	// GetObjectPermissions returns all ACEs for one object URI. A URI
	// with no ACEs yields an empty set, not an error.
	GetObjectPermissions(ctx context.Context, objectID string) (PermissionSet, error)

	// ReplaceObjectPermissions replaces (never merges) the ACE set of an
	// object URI. Permissions mapped to empty sets are removed.
	ReplaceObjectPermissions(ctx context.Context, objectID string, perms PermissionSet) error

	// AddPrincipalToACE grants one principal one permission on one object.
	AddPrincipalToACE(ctx context.Context, objectID, permission, principal string) error

	// RemovePrincipalFromACE revokes one principal's permission on one
	// object.
	RemovePrincipalFromACE(ctx context.Context, objectID, permission, principal string) error

	// DeleteObjectPermissions removes every ACE of each given object URI.
	// A URI ending in "*" removes ACEs for all objects sharing the prefix.
	DeleteObjectPermissions(ctx context.Context, objectIDs ...string) error

	// CheckPermission reports whether any of the principals holds any of
	// the bound pairs.
	CheckPermission(ctx context.Context, principals []string, bound []BoundPermission) (bool, error)

	// GetAccessibleObjects returns, for each object URI matching any of
	// the bound pairs and accessible to any of the principals, the list
	// of matched permissions. With withChildren, a wildcard pair also
	// matches URIs nested below the prefix; without it, only direct
	// children of the prefix match.
	GetAccessibleObjects(ctx context.Context, principals []string, bound []BoundPermission, withChildren bool) (map[string][]string, error)

	// GetAuthorizedPrincipals returns every principal holding at least one
	// of the bound pairs.
	GetAuthorizedPrincipals(ctx context.Context, bound []BoundPermission) ([]string, error)

	// GetUserPrincipals returns the extra principals granted to a user id
	// (group memberships and the like), not including the user principal
	// itself.
	GetUserPrincipals(ctx context.Context, userID string) ([]string, error)

	// AddUserPrincipal adds an extra principal to a user.
	AddUserPrincipal(ctx context.Context, userID, principal string) error

	// RemoveUserPrincipal removes an extra principal from a user.
	RemoveUserPrincipal(ctx context.Context, userID, principal string) error

	// InitializeSchema performs idempotent setup. With dryRun it only
	// verifies, never writes.
	InitializeSchema(ctx context.Context, dryRun bool) error

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}
