package cache

import (
	"context"
	"testing"
	"time"

	"github.com/xraph/shelf"
	"github.com/xraph/shelf/acl"
)

func TestMemoryGetSet(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	key := shelf.CheckKey([]string{"basicauth:alice"}, []acl.BoundPermission{
		{ObjectID: "/buckets/b", Permission: "read"},
	})

	if _, ok := c.GetCheck(ctx, key); ok {
		t.Fatal("unexpected hit on empty cache")
	}

	c.SetCheck(ctx, key, true)
	allowed, ok := c.GetCheck(ctx, key)
	if !ok || !allowed {
		t.Fatalf("expected cached allow, got allowed=%v ok=%v", allowed, ok)
	}
}

func TestMemoryTTLExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(WithTTL(time.Millisecond))

	c.SetCheck(ctx, "k", true)
	time.Sleep(5 * time.Millisecond)
	if _, ok := c.GetCheck(ctx, "k"); ok {
		t.Fatal("expired entry served")
	}
}

func TestMemoryInvalidateObject(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	keyB := shelf.CheckKey([]string{"p"}, []acl.BoundPermission{{ObjectID: "/buckets/b", Permission: "read"}})
	keyOther := shelf.CheckKey([]string{"p"}, []acl.BoundPermission{{ObjectID: "/buckets/other", Permission: "read"}})
	c.SetCheck(ctx, keyB, true)
	c.SetCheck(ctx, keyOther, false)

	c.InvalidateObject(ctx, "/buckets/b")

	if _, ok := c.GetCheck(ctx, keyB); ok {
		t.Fatal("invalidated entry served")
	}
	if _, ok := c.GetCheck(ctx, keyOther); !ok {
		t.Fatal("unrelated entry dropped")
	}
}

func TestMemoryEviction(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(WithMaxSize(2))

	c.SetCheck(ctx, "a", true)
	c.SetCheck(ctx, "b", true)
	c.SetCheck(ctx, "c", true)

	hits := 0
	for _, k := range []string{"a", "b", "c"} {
		if _, ok := c.GetCheck(ctx, k); ok {
			hits++
		}
	}
	if hits > 2 {
		t.Fatalf("expected at most 2 entries after eviction, got %d", hits)
	}
}
