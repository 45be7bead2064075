// Package token implements the opaque pagination cursor: a base64-encoded
// JSON snapshot of the last object of a page plus the page offset, tied to
// the sort specification in force when it was issued.
package token

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/xraph/shelf"
	"github.com/xraph/shelf/object"
)

type payload struct {
	LastObject map[string]any `json:"last_object"`
	Offset     int            `json:"offset"`
}

// Encode builds a cursor from the sort specification, the last object of
// the page just served, and the running offset. Sort fields absent from the
// object (including dotted nested paths that resolve to nothing) are
// dropped from the snapshot rather than erroring.
func Encode(sorting []object.Sort, last object.Object, offset int) string {
	p := payload{LastObject: make(map[string]any, len(sorting)), Offset: offset}
	for _, s := range sorting {
		if v, ok := last.Lookup(s.Field); ok {
			p.LastObject[s.Field] = v
		}
	}
	raw, _ := json.Marshal(p)
	return base64.URLEncoding.EncodeToString(raw)
}

// Decode parses a cursor issued by Encode and rebuilds the continuation
// rules for the request's current sort specification: an OR of AND-groups
// reproducing "strictly after the last seen row" in lexicographic order.
// Each group fixes the leading sort fields with equality and compares the
// trailing one strictly, peeling one field per group. Levels whose strict
// field was dropped at encode time are skipped.
//
// Any structural problem (bad base64, bad JSON, wrong shape) reports
// invalid parameters to the caller.
func Decode(raw string, sorting []object.Sort) ([][]object.Filter, int, error) {
	decoded, err := base64.URLEncoding.DecodeString(raw)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: pagination token: %v", shelf.ErrInvalidToken, err)
	}

	var shape map[string]json.RawMessage
	if err := json.Unmarshal(decoded, &shape); err != nil {
		return nil, 0, fmt.Errorf("%w: pagination token: %v", shelf.ErrInvalidToken, err)
	}
	if len(shape) != 2 {
		return nil, 0, fmt.Errorf("%w: pagination token has wrong shape", shelf.ErrInvalidToken)
	}
	rawLast, okLast := shape["last_object"]
	rawOffset, okOffset := shape["offset"]
	if !okLast || !okOffset {
		return nil, 0, fmt.Errorf("%w: pagination token has wrong shape", shelf.ErrInvalidToken)
	}
	var last map[string]any
	if err := json.Unmarshal(rawLast, &last); err != nil || last == nil {
		return nil, 0, fmt.Errorf("%w: pagination token last_object is not a mapping", shelf.ErrInvalidToken)
	}
	var offset int
	if err := json.Unmarshal(rawOffset, &offset); err != nil {
		return nil, 0, fmt.Errorf("%w: pagination token offset is not an integer", shelf.ErrInvalidToken)
	}

	var rules [][]object.Filter
	for n := len(sorting); n > 0; n-- {
		strict := sorting[n-1]
		strictValue, ok := last[strict.Field]
		if !ok {
			continue
		}
		group := make([]object.Filter, 0, n)
		for _, s := range sorting[:n-1] {
			v, ok := last[s.Field]
			if !ok {
				continue
			}
			group = append(group, object.Filter{Field: s.Field, Value: v, Operator: object.OpEqual})
		}
		op := object.OpGT
		if strict.Descending {
			op = object.OpLT
		}
		group = append(group, object.Filter{Field: strict.Field, Value: strictValue, Operator: op})
		rules = append(rules, group)
	}
	return rules, offset, nil
}
