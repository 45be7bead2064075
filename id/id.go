// Package id provides pluggable object id generation. Resources accept any
// Generator; the default produces UUID4 strings.
package id

import (
	"strings"

	"github.com/google/uuid"
	"go.jetify.com/typeid/v2"
)

// Generator produces new object ids and validates client-supplied ones.
type Generator interface {
	// Generate returns a fresh unique id.
	Generate() string

	// Match reports whether s is a well-formed id for this generator.
	// Client-supplied ids that do not match are rejected before storage.
	Match(s string) bool
}

// UUID4 generates random UUID ids. This is the default generator.
type UUID4 struct{}

func (UUID4) Generate() string { return uuid.NewString() }

func (UUID4) Match(s string) bool {
	u, err := uuid.Parse(s)
	return err == nil && u.Version() == 4
}

// TypeID generates prefix-qualified, K-sortable ids in the
// "prefix_suffix" TypeID format.
type TypeID struct {
	Prefix string
}

func (g TypeID) Generate() string {
	tid, err := typeid.Generate(g.Prefix)
	if err != nil {
		// An invalid prefix is a programming error, not request input.
		panic("id: invalid typeid prefix " + g.Prefix)
	}
	return tid.String()
}

func (g TypeID) Match(s string) bool {
	tid, err := typeid.Parse(s)
	if err != nil {
		return false
	}
	return tid.Prefix() == g.Prefix
}

// Name generates no ids at all and accepts any non-empty URL-safe name.
// Useful for resources whose ids are chosen by clients (slug-style).
type Name struct{}

func (Name) Generate() string { return uuid.NewString() }

func (Name) Match(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '_':
		default:
			return false
		}
	}
	return !strings.HasPrefix(s, "-") && !strings.HasPrefix(s, "_")
}
