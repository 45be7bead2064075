package resource

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/xraph/shelf"
	"github.com/xraph/shelf/object"
	"github.com/xraph/shelf/token"
)

// Reserved query parameters understood by collection endpoints.
const (
	paramLimit  = "_limit"
	paramSort   = "_sort"
	paramToken  = "_token"
	paramSince  = "_since"
	paramBefore = "_before"
	paramFields = "_fields"
)

var operatorPrefixes = []struct {
	prefix string
	op     object.Operator
}{
	// Longest prefixes first so contains_any_ wins over contains_.
	{"contains_any_", object.OpContainsAny},
	{"contains_", object.OpContains},
	{"exclude_", object.OpExclude},
	{"like_", object.OpLike},
	{"min_", object.OpMin},
	{"max_", object.OpMax},
	{"not_", object.OpNot},
	{"has_", object.OpHas},
	{"lt_", object.OpLT},
	{"gt_", object.OpGT},
	{"in_", object.OpIn},
}

// ParseListOptions turns a collection query string into storage list
// options. limit precedence: explicit _limit (capped by MaxPageSize), then
// the endpoint page size, then the configured default. All client errors
// wrap shelf.ErrInvalidParameters.
func ParseListOptions(desc Descriptor, opts MethodOptions, cfg shelf.Config, query url.Values) (*object.ListOptions, int, error) {
	out := &object.ListOptions{}

	sorting, err := parseSorting(desc, opts, query.Get(paramSort))
	if err != nil {
		return nil, 0, err
	}
	out.Sorting = sorting

	filters, includeDeleted, err := parseFilters(desc, opts, query)
	if err != nil {
		return nil, 0, err
	}
	out.Filters = filters
	out.IncludeDeleted = includeDeleted

	limit := cfg.DefaultPageSize
	if opts.PageSize != nil {
		limit = *opts.PageSize
	}
	if raw := query.Get(paramLimit); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return nil, 0, fmt.Errorf("%w: %s is not a positive integer", shelf.ErrInvalidParameters, paramLimit)
		}
	}
	if cfg.MaxPageSize > 0 && (limit == 0 || limit > cfg.MaxPageSize) {
		limit = cfg.MaxPageSize
	}
	out.Limit = limit

	offset := 0
	if raw := query.Get(paramToken); raw != "" {
		rules, tokenOffset, err := token.Decode(raw, out.Sorting)
		if err != nil {
			return nil, 0, err
		}
		out.Pagination = rules
		offset = tokenOffset
	}
	return out, offset, nil
}

// parseSorting parses the _sort parameter ("-" prefix for descending,
// comma-separated) and appends the deterministic -last_modified tiebreaker
// when the caller did not sort on it.
func parseSorting(desc Descriptor, opts MethodOptions, raw string) ([]object.Sort, error) {
	var sorting []object.Sort
	sawModified := false
	if raw != "" {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			s := object.Sort{Field: part}
			if strings.HasPrefix(part, "-") {
				s = object.Sort{Field: part[1:], Descending: true}
			}
			if !opts.preserveUnknown() && !desc.knownField(s.Field) {
				return nil, fmt.Errorf("%w: unknown sort field %q", shelf.ErrInvalidParameters, s.Field)
			}
			if s.Field == object.FieldLastModified {
				sawModified = true
			}
			sorting = append(sorting, s)
		}
	}
	if !sawModified {
		sorting = append(sorting, object.Sort{Field: object.FieldLastModified, Descending: true})
	}
	return sorting, nil
}

func parseFilters(desc Descriptor, opts MethodOptions, query url.Values) ([]object.Filter, bool, error) {
	var filters []object.Filter
	includeDeleted := false
	for key, values := range query {
		if len(values) == 0 {
			continue
		}
		raw := values[0]
		switch key {
		case paramLimit, paramSort, paramToken, paramFields:
			continue
		case paramSince, paramBefore:
			ts, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return nil, false, fmt.Errorf("%w: %s is not an integer timestamp", shelf.ErrInvalidParameters, key)
			}
			op := object.OpGT
			if key == paramBefore {
				op = object.OpLT
			}
			filters = append(filters, object.Filter{Field: object.FieldLastModified, Value: ts, Operator: op})
			// Sync-style polling needs deletions too.
			includeDeleted = true
			continue
		}
		if strings.HasPrefix(key, "_") {
			return nil, false, fmt.Errorf("%w: unknown parameter %q", shelf.ErrInvalidParameters, key)
		}

		field, op := splitOperator(key)
		if !opts.preserveUnknown() && !desc.knownField(field) {
			return nil, false, fmt.Errorf("%w: unknown filter field %q", shelf.ErrInvalidParameters, field)
		}

		f := object.Filter{Field: field, Operator: op}
		switch op {
		case object.OpIn, object.OpExclude, object.OpContains, object.OpContainsAny:
			parts := strings.Split(raw, ",")
			list := make([]any, 0, len(parts))
			for _, p := range parts {
				list = append(list, parseValue(p))
			}
			f.Value = list
		case object.OpHas:
			f.Value = raw != "false" && raw != "0"
		default:
			f.Value = parseValue(raw)
		}
		filters = append(filters, f)
	}
	return filters, includeDeleted, nil
}

func splitOperator(key string) (string, object.Operator) {
	for _, p := range operatorPrefixes {
		if field, ok := strings.CutPrefix(key, p.prefix); ok && field != "" {
			return field, p.op
		}
	}
	return key, object.OpEqual
}

// parseValue decodes a query value the way a JSON document would: numbers,
// booleans and null get their typed form, everything else stays a string.
func parseValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	switch v.(type) {
	case float64, bool, nil:
		return v
	}
	return raw
}
