// Package store defines the composite backend interface: one
// implementation providing both object storage and the permission backend.
// Concrete implementations live in subpackages (memory, postgres, sqlite).
package store

import (
	"github.com/xraph/shelf/acl"
	"github.com/xraph/shelf/object"
)

// Store is the composite backend. The overlapping lifecycle methods
// (InitializeSchema, Ping, Close) are shared.
type Store interface {
	object.Store
	acl.Store
}
