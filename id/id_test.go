package id

import "testing"

func TestUUID4(t *testing.T) {
	g := UUID4{}
	s := g.Generate()
	if !g.Match(s) {
		t.Fatalf("generated id %q does not match", s)
	}
	if g.Match("not-a-uuid") {
		t.Fatal("accepted a non-uuid id")
	}
	if g.Match("") {
		t.Fatal("accepted an empty id")
	}
}

func TestTypeID(t *testing.T) {
	g := TypeID{Prefix: "rec"}
	s := g.Generate()
	if !g.Match(s) {
		t.Fatalf("generated id %q does not match", s)
	}
	other := TypeID{Prefix: "blob"}
	if other.Match(s) {
		t.Fatal("matched an id with the wrong prefix")
	}
}

func TestName(t *testing.T) {
	g := Name{}
	for _, valid := range []string{"my-object", "Object_1", "a"} {
		if !g.Match(valid) {
			t.Fatalf("rejected valid name %q", valid)
		}
	}
	for _, invalid := range []string{"", "-leading", "_leading", "sp ace", "uni/code"} {
		if g.Match(invalid) {
			t.Fatalf("accepted invalid name %q", invalid)
		}
	}
	if !g.Match(g.Generate()) {
		t.Fatal("generated fallback id does not match")
	}
}
