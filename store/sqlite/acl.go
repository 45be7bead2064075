package sqlite

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/xraph/shelf"
	"github.com/xraph/shelf/acl"
)

func (s *Store) GetObjectPermissions(ctx context.Context, objectID string) (acl.PermissionSet, error) {
	var models []aceModel
	err := s.sdb.NewSelect(&models).
		Where("object_id = ?", objectID).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: get permissions: %v", shelf.ErrBackendUnavailable, err)
	}
	out := acl.PermissionSet{}
	for i := range models {
		if out[models[i].Permission] == nil {
			out[models[i].Permission] = acl.NewPrincipalSet()
		}
		out[models[i].Permission].Add(models[i].Principal)
	}
	return out, nil
}

func (s *Store) ReplaceObjectPermissions(ctx context.Context, objectID string, perms acl.PermissionSet) error {
	_, err := s.sdb.NewDelete((*aceModel)(nil)).
		Where("object_id = ?", objectID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("%w: replace permissions: %v", shelf.ErrBackendUnavailable, err)
	}
	for perm, principals := range perms {
		for _, principal := range principals.List() {
			m := &aceModel{ObjectID: objectID, Permission: perm, Principal: principal}
			if _, err := s.sdb.NewInsert(m).Exec(ctx); err != nil && !isUniqueViolation(err) {
				return fmt.Errorf("%w: replace permissions: %v", shelf.ErrBackendUnavailable, err)
			}
		}
	}
	return nil
}

func (s *Store) AddPrincipalToACE(ctx context.Context, objectID, permission, principal string) error {
	m := &aceModel{ObjectID: objectID, Permission: permission, Principal: principal}
	if _, err := s.sdb.NewInsert(m).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return fmt.Errorf("%w: add principal: %v", shelf.ErrBackendUnavailable, err)
	}
	return nil
}

func (s *Store) RemovePrincipalFromACE(ctx context.Context, objectID, permission, principal string) error {
	_, err := s.sdb.NewDelete((*aceModel)(nil)).
		Where("object_id = ?", objectID).
		Where("permission = ?", permission).
		Where("principal = ?", principal).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("%w: remove principal: %v", shelf.ErrBackendUnavailable, err)
	}
	return nil
}

func (s *Store) DeleteObjectPermissions(ctx context.Context, objectIDs ...string) error {
	for _, objectID := range objectIDs {
		var err error
		if prefix, ok := strings.CutSuffix(objectID, "*"); ok {
			_, err = s.sdb.NewDelete((*aceModel)(nil)).
				Where("object_id LIKE ? ESCAPE '\\'", escapeLike(prefix)+"%").
				Exec(ctx)
		} else {
			_, err = s.sdb.NewDelete((*aceModel)(nil)).
				Where("object_id = ?", objectID).
				Exec(ctx)
		}
		if err != nil {
			return fmt.Errorf("%w: delete permissions: %v", shelf.ErrBackendUnavailable, err)
		}
	}
	return nil
}

func (s *Store) CheckPermission(ctx context.Context, principals []string, bound []acl.BoundPermission) (bool, error) {
	for _, b := range bound {
		var models []aceModel
		err := s.sdb.NewSelect(&models).
			Where("object_id = ?", b.ObjectID).
			Where("permission = ?", b.Permission).
			Scan(ctx)
		if err != nil {
			return false, fmt.Errorf("%w: check permission: %v", shelf.ErrBackendUnavailable, err)
		}
		for i := range models {
			for _, p := range principals {
				if models[i].Principal == p {
					return true, nil
				}
			}
		}
	}
	return false, nil
}

func (s *Store) GetAccessibleObjects(ctx context.Context, principals []string, bound []acl.BoundPermission, withChildren bool) (map[string][]string, error) {
	matched := make(map[string]map[string]struct{})
	for _, b := range bound {
		prefix, wildcard := strings.CutSuffix(b.ObjectID, "*")

		var models []aceModel
		q := s.sdb.NewSelect(&models).Where("permission = ?", b.Permission)
		if wildcard {
			q = q.Where("object_id LIKE ? ESCAPE '\\'", escapeLike(prefix)+"%")
		} else {
			q = q.Where("object_id = ?", b.ObjectID)
		}
		if err := q.Scan(ctx); err != nil {
			return nil, fmt.Errorf("%w: accessible objects: %v", shelf.ErrBackendUnavailable, err)
		}

		for i := range models {
			uri := models[i].ObjectID
			if wildcard && !withChildren && strings.Contains(uri[len(prefix):], "/") {
				continue
			}
			granted := false
			for _, p := range principals {
				if models[i].Principal == p {
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

func (s *Store) GetAuthorizedPrincipals(ctx context.Context, bound []acl.BoundPermission) ([]string, error) {
	set := make(map[string]struct{})
	for _, b := range bound {
		var models []aceModel
		err := s.sdb.NewSelect(&models).
			Where("object_id = ?", b.ObjectID).
			Where("permission = ?", b.Permission).
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: authorized principals: %v", shelf.ErrBackendUnavailable, err)
		}
		for i := range models {
			set[models[i].Principal] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) GetUserPrincipals(ctx context.Context, userID string) ([]string, error) {
	var models []userPrincipalModel
	err := s.sdb.NewSelect(&models).
		Where("user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: user principals: %v", shelf.ErrBackendUnavailable, err)
	}
	out := make([]string, 0, len(models))
	for i := range models {
		out = append(out, models[i].Principal)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) AddUserPrincipal(ctx context.Context, userID, principal string) error {
	m := &userPrincipalModel{UserID: userID, Principal: principal}
	if _, err := s.sdb.NewInsert(m).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return fmt.Errorf("%w: add user principal: %v", shelf.ErrBackendUnavailable, err)
	}
	return nil
}

func (s *Store) RemoveUserPrincipal(ctx context.Context, userID, principal string) error {
	_, err := s.sdb.NewDelete((*userPrincipalModel)(nil)).
		Where("user_id = ?", userID).
		Where("principal = ?", principal).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("%w: remove user principal: %v", shelf.ErrBackendUnavailable, err)
	}
	return nil
}

// escapeLike escapes LIKE metacharacters in a URI prefix.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
