package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/xraph/forge"

	"github.com/xraph/shelf"
	"github.com/xraph/shelf/resource"
)

// retryAfterSeconds is the Retry-After hint sent with 503 responses.
const retryAfterSeconds = "30"

// respondError maps domain errors to HTTP responses. Statuses Forge has no
// helper for (304, 401, 409, 412, 503) are written directly.
func respondError(ctx forge.Context, err error) error {
	if err == nil {
		return nil
	}
	var pe *resource.PreconditionError
	switch {
	case errors.Is(err, shelf.ErrNotModified):
		return ctx.NoContent(http.StatusNotModified)
	case errors.As(err, &pe):
		setETag(ctx, pe.Timestamp)
		body := map[string]any{"message": "precondition failed"}
		if pe.Existing != nil {
			body["existing"] = pe.Existing
		}
		return ctx.JSON(http.StatusPreconditionFailed, body)
	case errors.Is(err, shelf.ErrPreconditionFailed):
		return ctx.JSON(http.StatusPreconditionFailed, map[string]string{"message": err.Error()})
	case errors.Is(err, shelf.ErrUnauthenticated):
		return ctx.JSON(http.StatusUnauthorized, map[string]string{"error": err.Error()})
	case errors.Is(err, shelf.ErrAccessDenied):
		return forge.Forbidden(err.Error())
	case errors.Is(err, shelf.ErrObjectNotFound):
		return forge.NotFound(err.Error())
	case errors.Is(err, shelf.ErrConstraintViolation):
		return ctx.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, shelf.ErrInvalidParameters), errors.Is(err, shelf.ErrInvalidToken):
		return forge.BadRequest(err.Error())
	case errors.Is(err, shelf.ErrReadOnly):
		return ctx.JSON(http.StatusMethodNotAllowed, map[string]string{"error": err.Error()})
	case errors.Is(err, shelf.ErrBackendUnavailable):
		ctx.SetHeader("Retry-After", retryAfterSeconds)
		return ctx.JSON(http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	}
	return err
}

// setETag writes the quoted-timestamp entity tag and the matching
// Last-Modified date.
func setETag(ctx forge.Context, timestamp int64) {
	ctx.SetHeader("ETag", `"`+strconv.FormatInt(timestamp, 10)+`"`)
	ctx.SetHeader("Last-Modified", time.UnixMilli(timestamp).UTC().Format(http.TimeFormat))
}

// parseETagValue parses a quoted-timestamp entity tag header value.
func parseETagValue(raw string) (int64, error) {
	trimmed := strings.Trim(strings.TrimSpace(raw), `"`)
	ts, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil || ts < 0 {
		return 0, fmt.Errorf("%w: invalid entity tag %q", shelf.ErrInvalidParameters, raw)
	}
	return ts, nil
}

// preconditionsFrom parses the concurrency-control headers of one request.
func preconditionsFrom(r *http.Request) (resource.Preconditions, error) {
	var pre resource.Preconditions
	if raw := r.Header.Get("If-Match"); raw != "" {
		ts, err := parseETagValue(raw)
		if err != nil {
			return pre, err
		}
		pre.IfMatch = ts
	}
	if raw := r.Header.Get("If-None-Match"); raw != "" {
		if raw == "*" {
			pre.IfNoneMatchAny = true
		} else {
			ts, err := parseETagValue(raw)
			if err != nil {
				return pre, err
			}
			pre.IfNoneMatch = ts
		}
	}
	return pre, nil
}

// routePath converts "{param}" placeholders to Forge ":param" segments.
func routePath(template string) string {
	segs := strings.Split(template, "/")
	for i, s := range segs {
		if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
			segs[i] = ":" + s[1:len(s)-1]
		}
	}
	return strings.Join(segs, "/")
}

// fillPath substitutes matched path parameters into a "{param}" template.
// The "{id}" placeholder is left in place; object handlers substitute it
// themselves.
func fillPath(ctx forge.Context, template string) string {
	segs := strings.Split(template, "/")
	for i, s := range segs {
		if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
			name := s[1 : len(s)-1]
			if name == "id" {
				continue
			}
			segs[i] = ctx.Param(name)
		}
	}
	return strings.Join(segs, "/")
}

// parentOf truncates the trailing segment off a collection URI, yielding
// the parent object URI ("" for top-level resources).
func parentOf(collectionPath string) string {
	idx := strings.LastIndex(collectionPath, "/")
	if idx <= 0 {
		return ""
	}
	return collectionPath[:idx]
}

// nextPageURL rebuilds the request URL with the continuation token.
func nextPageURL(r *http.Request, token string) string {
	u := *r.URL
	q := u.Query()
	q.Set("_token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
