package shelf

import "context"

type contextKey int

const (
	ctxKeyPrincipals contextKey = iota
	ctxKeyUserID
)

// WithPrincipals returns a context carrying the caller's resolved
// principal set.
func WithPrincipals(ctx context.Context, principals []string) context.Context {
	return context.WithValue(ctx, ctxKeyPrincipals, principals)
}

// PrincipalsFromContext returns the caller's principal set, defaulting to
// just system.Everyone when none was resolved.
func PrincipalsFromContext(ctx context.Context) []string {
	v, ok := ctx.Value(ctxKeyPrincipals).([]string)
	if !ok || len(v) == 0 {
		return []string{PrincipalEveryone}
	}
	return v
}

// WithUserID returns a context carrying the authenticated user id.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKeyUserID, userID)
}

// UserIDFromContext returns the authenticated user id, or "" for
// anonymous callers.
func UserIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyUserID).(string)
	return v
}
