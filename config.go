package shelf

import "strings"

// Config holds configuration for the shelf engine.
type Config struct {
	// ReadOnly refuses every write operation. Timestamp reads on empty
	// resources are downgraded to a clear service-unavailable condition
	// instead of a raw backend error.
	ReadOnly bool `json:"read_only,omitempty" yaml:"read_only"`

	// DefaultPageSize caps collection listings when the request does not
	// set a limit. Zero means unlimited.
	DefaultPageSize int `json:"default_page_size,omitempty" yaml:"default_page_size"`

	// MaxPageSize is the hard ceiling on any requested limit.
	// Zero means no ceiling.
	MaxPageSize int `json:"max_page_size,omitempty" yaml:"max_page_size"`

	// BypassPrincipals maps "<resource>_<permission>_principals" keys to
	// principals granted that permission without consulting the
	// permission backend.
	BypassPrincipals map[string][]string `json:"bypass_principals,omitempty" yaml:"bypass_principals"`

	// ExplicitPermissions disables the write-ACE auto-grant to the
	// current principal when true.
	// Defaults to false (ownership grant enabled).
	ExplicitPermissions *bool `json:"explicit_permissions,omitempty" yaml:"explicit_permissions"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DefaultPageSize: 100,
		MaxPageSize:     10000,
	}
}

// OwnershipGrantEnabled reports whether creates and updates grant write to
// the current principal automatically.
func (c Config) OwnershipGrantEnabled() bool {
	return c.ExplicitPermissions == nil || !*c.ExplicitPermissions
}

// BypassFor returns the configured bypass principals for one resource and
// permission, if any. The dynamic create permission "<resource>:create"
// maps to the same "<resource>_create_principals" key as the plain name.
func (c Config) BypassFor(resource, permission string) []string {
	if c.BypassPrincipals == nil {
		return nil
	}
	permission = strings.TrimPrefix(permission, resource+":")
	return c.BypassPrincipals[resource+"_"+permission+"_principals"]
}
