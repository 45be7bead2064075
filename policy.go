package shelf

import (
	"context"
	"log/slog"
	"strings"

	"github.com/xraph/shelf/acl"
)

// Policy is the authorization decision procedure. One Policy instance is
// shared by every resource; all per-request state lives in the AuthContext.
type Policy struct {
	// Expand, when set, models permission inheritance across related
	// objects. Nil means identity expansion.
	Expand Expander

	Logger *slog.Logger
}

// NewPolicy returns a Policy with the given expander. A nil logger falls
// back to slog.Default.
func NewPolicy(expand Expander, logger *slog.Logger) *Policy {
	if logger == nil {
		logger = slog.Default()
	}
	return &Policy{Expand: expand, Logger: logger}
}

// Authorize decides whether principals may perform the request resolved
// into ac. The nominal permission is usually PermissionDynamic ("use the
// permission the context resolved") or PermissionPrivate ("any
// authenticated caller"); an explicit permission name pins the check.
func (p *Policy) Authorize(ctx context.Context, ac *AuthContext, principals []string, permission string) (bool, error) {
	if permission == PermissionPrivate {
		for _, pr := range principals {
			if pr == PrincipalAuthenticated {
				return true, nil
			}
		}
		return false, nil
	}

	if permission == PermissionDynamic {
		permission = ac.RequiredPermission
	}
	createPermission := ac.ResourceName + ":" + PermissionCreate
	if permission == PermissionCreate {
		permission = createPermission
	}

	bound := []acl.BoundPermission{{ObjectID: ac.PermissionObjectID, Permission: permission}}
	if p.Expand != nil {
		bound = p.Expand(ac.PermissionObjectID, permission)
	}

	allowed, err := ac.CheckPermission(ctx, principals, bound)
	if err != nil {
		return false, err
	}

	// A write against a missing object degrades to a read check on the
	// parent: callers who can see the parent get a 404 from the endpoint
	// layer instead of a misleading 403.
	if !allowed && permission == PermissionWrite && !ac.OnCollection && ac.CurrentObject == nil {
		parent := []acl.BoundPermission{{
			ObjectID:   parentURI(ac.PermissionObjectID),
			Permission: PermissionRead,
		}}
		allowed, err = ac.CheckPermission(ctx, principals, parent)
		if err != nil {
			return false, err
		}
	}

	// Collection listings are also authorized when at least one object in
	// the collection is shared with the caller, or when the caller may
	// create objects here (an empty listing is a sensible answer then).
	// The endpoint layer narrows the results to ac.SharedIDs.
	if !allowed && ac.OnCollection && !strings.HasSuffix(permission, ":"+PermissionCreate) {
		shared, err := ac.FetchSharedObjects(ctx, permission, principals, p.Expand)
		if err != nil {
			return false, err
		}
		allowed = len(shared) > 0

		if !allowed {
			createBound := []acl.BoundPermission{{ObjectID: "", Permission: createPermission}}
			if len(bound) > 1 {
				createBound = []acl.BoundPermission{{
					ObjectID:   parentURI(ac.PermissionObjectID),
					Permission: createPermission,
				}}
			}
			allowed, err = ac.CheckPermission(ctx, principals, createBound)
			if err != nil {
				return false, err
			}
		}
	}

	if !allowed {
		principal := ""
		if len(principals) > 0 {
			principal = principals[0]
		}
		p.Logger.Warn("permission denied",
			slog.String("permission", permission),
			slog.String("object_id", ac.PermissionObjectID),
			slog.String("principal", principal),
		)
	}
	return allowed, nil
}
