// Package middleware provides principal resolution and authorization
// middleware for shelf over Forge.
package middleware

import (
	"encoding/json"

	"github.com/xraph/forge"

	"github.com/xraph/shelf"
	"github.com/xraph/shelf/acl"
)

// userPrefix namespaces authenticated user ids in the principal space.
const userPrefix = "account:"

// Principals resolves the caller's principal set and attaches it to the
// request context. Every caller holds system.Everyone; authenticated
// callers (Forge user id present) additionally hold system.Authenticated,
// their user principal ("account:<id>") and every group principal the
// permission backend maps them to. The user principal is also recorded as
// the caller id, so ownership grants land on it.
func Principals(eng *shelf.Engine) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			rctx := ctx.Context()
			principals := []string{shelf.PrincipalEveryone}

			if userID := forge.UserIDFromContext(rctx); userID != "" {
				principal := userPrefix + userID
				principals = append(principals, shelf.PrincipalAuthenticated, principal)
				if extra, err := resolveGroups(ctx, eng.ACL(), principal); err == nil {
					principals = append(principals, extra...)
				} else {
					eng.Logger().Warn("group principal resolution failed",
						"principal", principal, "error", err)
				}
				rctx = shelf.WithUserID(rctx, principal)
			}

			rctx = shelf.WithPrincipals(rctx, principals)
			r := ctx.Request()
			*r = *r.WithContext(rctx)
			return next(ctx)
		}
	}
}

func resolveGroups(ctx forge.Context, store acl.Store, principal string) ([]string, error) {
	return store.GetUserPrincipals(ctx.Context(), principal)
}

// RequireAuthenticated rejects anonymous callers with 401.
func RequireAuthenticated() forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			for _, p := range shelf.PrincipalsFromContext(ctx.Context()) {
				if p == shelf.PrincipalAuthenticated {
					return next(ctx)
				}
			}
			return denyResponse(ctx, 401, "authentication required")
		}
	}
}

// Require enforces a fixed permission on a fixed object URI, regardless of
// the matched route. Useful for gating non-resource endpoints behind an
// entry in the permission tree.
func Require(eng *shelf.Engine, permission, objectURI string) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			principals := shelf.PrincipalsFromContext(ctx.Context())
			bound := []acl.BoundPermission{{ObjectID: objectURI, Permission: permission}}
			if expand := eng.Policy().Expand; expand != nil {
				bound = expand(objectURI, permission)
			}
			allowed, err := eng.ACL().CheckPermission(ctx.Context(), principals, bound)
			if err != nil {
				return denyResponse(ctx, 503, "permission backend unavailable")
			}
			if !allowed {
				return denyResponse(ctx, 403, "access denied")
			}
			return next(ctx)
		}
	}
}

func denyResponse(ctx forge.Context, status int, message string) error {
	ctx.SetHeader("Content-Type", "application/json")
	ctx.Response().WriteHeader(status)
	return json.NewEncoder(ctx.Response()).Encode(map[string]string{"error": message})
}
