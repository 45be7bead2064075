package shelf

import (
	"context"
	"sort"
	"strings"

	"github.com/xraph/shelf/acl"
)

// Cache stores permission-check verdicts so repeated checks within and
// across requests (batched sub-requests in particular) skip the permission
// backend.
type Cache interface {
	// GetCheck returns a cached verdict, if available.
	GetCheck(ctx context.Context, key string) (allowed, ok bool)

	// SetCheck stores a verdict.
	SetCheck(ctx context.Context, key string, allowed bool)

	// InvalidateObject removes every verdict involving the object URI.
	// Called after ACE mutations.
	InvalidateObject(ctx context.Context, objectID string)
}

// CheckKey derives a deterministic cache key from a principal set and the
// bound pairs being checked. Each bound pair contributes an
// "objectID#permission" segment so object-level invalidation can match on
// the URI.
func CheckKey(principals []string, bound []acl.BoundPermission) string {
	ps := append([]string(nil), principals...)
	sort.Strings(ps)
	parts := make([]string, 0, len(bound)+1)
	for _, b := range bound {
		parts = append(parts, b.ObjectID+"#"+b.Permission)
	}
	sort.Strings(parts)
	parts = append(parts, strings.Join(ps, ","))
	return strings.Join(parts, "|")
}
