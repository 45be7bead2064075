package token

import (
	"encoding/base64"
	"errors"
	"testing"

	"github.com/xraph/shelf"
	"github.com/xraph/shelf/object"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	sorting := []object.Sort{
		{Field: "title"},
		{Field: "last_modified", Descending: true},
	}
	last := object.Object{"id": "abc", "title": "zebra", "last_modified": int64(42)}

	tok := Encode(sorting, last, 10)
	rules, offset, err := Decode(tok, sorting)
	if err != nil {
		t.Fatal(err)
	}
	if offset != 10 {
		t.Fatalf("expected offset 10, got %d", offset)
	}

	// Two sort fields peel into two OR-groups.
	if len(rules) != 2 {
		t.Fatalf("expected 2 rule groups, got %d", len(rules))
	}

	// Deepest group: title equal, last_modified strictly before.
	first := rules[0]
	if len(first) != 2 {
		t.Fatalf("expected 2 filters in first group, got %d", len(first))
	}
	if first[0].Field != "title" || first[0].Operator != object.OpEqual {
		t.Fatalf("unexpected first filter: %+v", first[0])
	}
	if first[1].Field != "last_modified" || first[1].Operator != object.OpLT {
		t.Fatalf("unexpected second filter: %+v", first[1])
	}

	// Peeled group: title strictly after (ascending).
	second := rules[1]
	if len(second) != 1 || second[0].Field != "title" || second[0].Operator != object.OpGT {
		t.Fatalf("unexpected peeled group: %+v", second)
	}
}

func TestEncodeDropsMissingFields(t *testing.T) {
	sorting := []object.Sort{
		{Field: "missing"},
		{Field: "last_modified", Descending: true},
	}
	last := object.Object{"id": "abc", "last_modified": int64(7)}

	tok := Encode(sorting, last, 0)
	rules, _, err := Decode(tok, sorting)
	if err != nil {
		t.Fatal(err)
	}
	// Only the level whose strict field survived is kept.
	if len(rules) != 1 {
		t.Fatalf("expected 1 rule group, got %d", len(rules))
	}
	if rules[0][0].Field != "last_modified" || rules[0][0].Operator != object.OpLT {
		t.Fatalf("unexpected group: %+v", rules[0])
	}
}

func TestEncodeNestedField(t *testing.T) {
	sorting := []object.Sort{{Field: "author.name"}}
	last := object.Object{"id": "abc", "author": map[string]any{"name": "ann"}}

	tok := Encode(sorting, last, 0)
	rules, _, err := Decode(tok, sorting)
	if err != nil {
		t.Fatal(err)
	}
	if len(rules) != 1 || rules[0][0].Value != "ann" {
		t.Fatalf("nested field not carried through: %+v", rules)
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	sorting := []object.Sort{{Field: "last_modified", Descending: true}}

	cases := map[string]string{
		"bad base64":   "%%%",
		"bad json":     base64.URLEncoding.EncodeToString([]byte("{nope")),
		"not a map":    base64.URLEncoding.EncodeToString([]byte(`["a","b"]`)),
		"missing keys": base64.URLEncoding.EncodeToString([]byte(`{"last_object":{}}`)),
		"extra keys":   base64.URLEncoding.EncodeToString([]byte(`{"last_object":{},"offset":0,"x":1}`)),
		"bad offset":   base64.URLEncoding.EncodeToString([]byte(`{"last_object":{},"offset":"ten"}`)),
		"null last":    base64.URLEncoding.EncodeToString([]byte(`{"last_object":null,"offset":0}`)),
	}
	for name, raw := range cases {
		if _, _, err := Decode(raw, sorting); !errors.Is(err, shelf.ErrInvalidToken) {
			t.Fatalf("%s: expected ErrInvalidToken, got %v", name, err)
		}
	}
}
