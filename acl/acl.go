// Package acl defines the access-control entities and the permission
// backend interface. ACEs map (object URI, permission) to sets of principal
// strings; URIs are path-like ("/buckets/b1/collections/c1").
package acl

import "sort"

// PrincipalSet is a set of principal strings.
type PrincipalSet map[string]struct{}

// NewPrincipalSet builds a set from the given principals.
func NewPrincipalSet(principals ...string) PrincipalSet {
	s := make(PrincipalSet, len(principals))
	for _, p := range principals {
		s[p] = struct{}{}
	}
	return s
}

// Add inserts a principal.
func (s PrincipalSet) Add(p string) { s[p] = struct{}{} }

// Has reports membership.
func (s PrincipalSet) Has(p string) bool {
	_, ok := s[p]
	return ok
}

// Intersects reports whether any of the given principals is in the set.
func (s PrincipalSet) Intersects(principals []string) bool {
	for _, p := range principals {
		if s.Has(p) {
			return true
		}
	}
	return false
}

// List returns the principals in sorted order.
func (s PrincipalSet) List() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Clone returns a copy of the set.
func (s PrincipalSet) Clone() PrincipalSet {
	c := make(PrincipalSet, len(s))
	for p := range s {
		c[p] = struct{}{}
	}
	return c
}

// PermissionSet maps a permission name to the principals holding it on one
// object.
type PermissionSet map[string]PrincipalSet

// Clone returns a deep copy.
func (ps PermissionSet) Clone() PermissionSet {
	c := make(PermissionSet, len(ps))
	for perm, principals := range ps {
		c[perm] = principals.Clone()
	}
	return c
}

// Flatten converts the set to a JSON-friendly map of sorted principal
// lists, the shape exposed in the __permissions__ annotation.
func (ps PermissionSet) Flatten() map[string][]string {
	out := make(map[string][]string, len(ps))
	for perm, principals := range ps {
		out[perm] = principals.List()
	}
	return out
}

// ParsePermissionSet converts the JSON-decoded shape of a permissions
// payload (map of permission name to list of principals) back into a
// PermissionSet. Unknown value shapes are skipped.
func ParsePermissionSet(raw any) PermissionSet {
	ps := PermissionSet{}
	switch m := raw.(type) {
	case map[string][]string:
		for perm, principals := range m {
			ps[perm] = NewPrincipalSet(principals...)
		}
	case map[string]any:
		for perm, v := range m {
			list, ok := v.([]any)
			if !ok {
				continue
			}
			set := make(PrincipalSet, len(list))
			for _, e := range list {
				if s, ok := e.(string); ok {
					set.Add(s)
				}
			}
			ps[perm] = set
		}
	case PermissionSet:
		return m.Clone()
	}
	return ps
}

// BoundPermission is one (object URI, permission) pair checked against a
// principal set. Bound-permission expansion turns a single required pair
// into several, modelling "permission on a related object implies this one".
type BoundPermission struct {
	ObjectID   string
	Permission string
}
