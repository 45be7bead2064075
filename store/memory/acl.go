package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/xraph/shelf/acl"
)

func (s *Store) GetObjectPermissions(_ context.Context, objectID string) (acl.PermissionSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := acl.PermissionSet{}
	for perm, principals := range s.perms[objectID] {
		set := acl.NewPrincipalSet()
		for p := range principals {
			set.Add(p)
		}
		out[perm] = set
	}
	return out, nil
}

func (s *Store) ReplaceObjectPermissions(_ context.Context, objectID string, perms acl.PermissionSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := make(map[string]map[string]struct{}, len(perms))
	for perm, principals := range perms {
		if len(principals) == 0 {
			continue
		}
		set := make(map[string]struct{}, len(principals))
		for p := range principals {
			set[p] = struct{}{}
		}
		entry[perm] = set
	}
	if len(entry) == 0 {
		delete(s.perms, objectID)
		return nil
	}
	s.perms[objectID] = entry
	return nil
}

func (s *Store) AddPrincipalToACE(_ context.Context, objectID, permission, principal string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.perms[objectID] == nil {
		s.perms[objectID] = make(map[string]map[string]struct{})
	}
	if s.perms[objectID][permission] == nil {
		s.perms[objectID][permission] = make(map[string]struct{})
	}
	s.perms[objectID][permission][principal] = struct{}{}
	return nil
}

func (s *Store) RemovePrincipalFromACE(_ context.Context, objectID, permission, principal string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if set := s.perms[objectID][permission]; set != nil {
		delete(set, principal)
		if len(set) == 0 {
			delete(s.perms[objectID], permission)
		}
		if len(s.perms[objectID]) == 0 {
			delete(s.perms, objectID)
		}
	}
	return nil
}

func (s *Store) DeleteObjectPermissions(_ context.Context, objectIDs ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, objectID := range objectIDs {
		if prefix, ok := strings.CutSuffix(objectID, "*"); ok {
			for uri := range s.perms {
				if strings.HasPrefix(uri, prefix) {
					delete(s.perms, uri)
				}
			}
			continue
		}
		delete(s.perms, objectID)
	}
	return nil
}

func (s *Store) CheckPermission(_ context.Context, principals []string, bound []acl.BoundPermission) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range bound {
		set := s.perms[b.ObjectID][b.Permission]
		for _, p := range principals {
			if _, ok := set[p]; ok {
				return true, nil
			}
		}
	}
	return false, nil
}

func (s *Store) GetAccessibleObjects(_ context.Context, principals []string, bound []acl.BoundPermission, withChildren bool) (map[string][]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make(map[string]map[string]struct{})
	for _, b := range bound {
		prefix, wildcard := strings.CutSuffix(b.ObjectID, "*")
		for uri, perms := range s.perms {
			if wildcard {
				if !strings.HasPrefix(uri, prefix) {
					continue
				}
				// Without withChildren a wildcard only matches direct
				// children of the prefix.
				if !withChildren && strings.Contains(uri[len(prefix):], "/") {
					continue
				}
			} else if uri != b.ObjectID {
				continue
			}
			set := perms[b.Permission]
			granted := false
			for _, p := range principals {
				if _, ok := set[p]; ok {
					granted = true
					break
				}
			}
			if !granted {
				continue
			}
			if matched[uri] == nil {
				matched[uri] = make(map[string]struct{})
			}
			matched[uri][b.Permission] = struct{}{}
		}
	}

	out := make(map[string][]string, len(matched))
	for uri, perms := range matched {
		list := make([]string, 0, len(perms))
		for p := range perms {
			list = append(list, p)
		}
		sort.Strings(list)
		out[uri] = list
	}
	return out, nil
}

func (s *Store) GetAuthorizedPrincipals(_ context.Context, bound []acl.BoundPermission) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := make(map[string]struct{})
	for _, b := range bound {
		for p := range s.perms[b.ObjectID][b.Permission] {
			set[p] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) GetUserPrincipals(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.userPrincipals[userID]))
	for p := range s.userPrincipals[userID] {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) AddUserPrincipal(_ context.Context, userID, principal string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userPrincipals[userID] == nil {
		s.userPrincipals[userID] = make(map[string]struct{})
	}
	s.userPrincipals[userID][principal] = struct{}{}
	return nil
}

func (s *Store) RemoveUserPrincipal(_ context.Context, userID, principal string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if set := s.userPrincipals[userID]; set != nil {
		delete(set, principal)
		if len(set) == 0 {
			delete(s.userPrincipals, userID)
		}
	}
	return nil
}
