package cli

import (
	"context"
	"errors"
	"testing"

	"github.com/xraph/shelf"
	"github.com/xraph/shelf/object"
	"github.com/xraph/shelf/store/memory"
)

func seedCollection(t *testing.T, s *memory.Store) {
	t.Helper()
	ctx := context.Background()

	bucket := object.Object{"id": "b1"}
	if _, err := s.Create(ctx, "bucket", "", bucket); err != nil {
		t.Fatalf("create bucket: %v", err)
	}
	col := object.Object{"id": "c1", "title": "articles"}
	if _, err := s.Create(ctx, "collection", "/buckets/b1", col); err != nil {
		t.Fatalf("create collection: %v", err)
	}
	for _, id := range []string{"r1", "r2"} {
		rec := object.Object{"id": id, "body": "text-" + id}
		if _, err := s.Create(ctx, "record", "/buckets/b1/collections/c1", rec); err != nil {
			t.Fatalf("create record %s: %v", id, err)
		}
	}
	if err := s.AddPrincipalToACE(ctx, "/buckets/b1/collections/c1", "read", "account:alice"); err != nil {
		t.Fatalf("grant collection read: %v", err)
	}
	if err := s.AddPrincipalToACE(ctx, "/buckets/b1/collections/c1/records/r1", "write", "account:bob"); err != nil {
		t.Fatalf("grant record write: %v", err)
	}
}

func TestDeleteCollection(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	seedCollection(t, s)
	admin := NewAdmin(s, shelf.DefaultConfig(), nil)

	if err := admin.DeleteCollection(ctx, "b1", "c1", false); err != nil {
		t.Fatalf("DeleteCollection: %v", err)
	}

	if _, err := s.Get(ctx, "collection", "/buckets/b1", "c1"); !errors.Is(err, shelf.ErrObjectNotFound) {
		t.Fatalf("collection should be gone, got %v", err)
	}
	live, err := s.ListAll(ctx, "record", "/buckets/b1/collections/c1", nil)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(live) != 0 {
		t.Fatalf("expected no live records, got %d", len(live))
	}
	perms, err := s.GetObjectPermissions(ctx, "/buckets/b1/collections/c1/records/r1")
	if err != nil {
		t.Fatalf("GetObjectPermissions: %v", err)
	}
	if len(perms) != 0 {
		t.Fatalf("record ACEs should be wiped, got %v", perms)
	}
}

func TestDeleteCollectionMissingBucket(t *testing.T) {
	s := memory.New()
	admin := NewAdmin(s, shelf.DefaultConfig(), nil)

	err := admin.DeleteCollection(context.Background(), "nope", "c1", false)
	if !errors.Is(err, ErrParentNotFound) {
		t.Fatalf("expected ErrParentNotFound, got %v", err)
	}
	if code := exitCode(err); code != ExitParentNotFound {
		t.Fatalf("exit code = %d, want %d", code, ExitParentNotFound)
	}
}

func TestDeleteCollectionMissingCollection(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	if _, err := s.Create(ctx, "bucket", "", object.Object{"id": "b1"}); err != nil {
		t.Fatalf("create bucket: %v", err)
	}
	admin := NewAdmin(s, shelf.DefaultConfig(), nil)

	err := admin.DeleteCollection(ctx, "b1", "nope", false)
	if !errors.Is(err, ErrCollectionNotFound) {
		t.Fatalf("expected ErrCollectionNotFound, got %v", err)
	}
	if code := exitCode(err); code != ExitCollectionNotFound {
		t.Fatalf("exit code = %d, want %d", code, ExitCollectionNotFound)
	}
}

func TestDeleteCollectionReadOnly(t *testing.T) {
	s := memory.New()
	seedCollection(t, s)
	cfg := shelf.DefaultConfig()
	cfg.ReadOnly = true
	admin := NewAdmin(s, cfg, nil)

	err := admin.DeleteCollection(context.Background(), "b1", "c1", false)
	if !errors.Is(err, shelf.ErrReadOnly) {
		t.Fatalf("expected ErrReadOnly, got %v", err)
	}
	if code := exitCode(err); code != ExitReadOnly {
		t.Fatalf("exit code = %d, want %d", code, ExitReadOnly)
	}
}

func TestRenameCollection(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	seedCollection(t, s)
	if _, err := s.Delete(ctx, "record", "/buckets/b1/collections/c1", "r2", 0); err != nil {
		t.Fatalf("tombstone r2: %v", err)
	}
	admin := NewAdmin(s, shelf.DefaultConfig(), nil)

	if err := admin.RenameCollection(ctx, "b1", "c1", "c2", false, false); err != nil {
		t.Fatalf("RenameCollection: %v", err)
	}

	moved, err := s.Get(ctx, "collection", "/buckets/b1", "c2")
	if err != nil {
		t.Fatalf("renamed collection missing: %v", err)
	}
	if moved["title"] != "articles" {
		t.Fatalf("collection data not moved: %v", moved)
	}

	rec, err := s.Get(ctx, "record", "/buckets/b1/collections/c2", "r1")
	if err != nil {
		t.Fatalf("record not moved: %v", err)
	}
	if rec["body"] != "text-r1" {
		t.Fatalf("record data not moved: %v", rec)
	}

	all, err := s.ListAll(ctx, "record", "/buckets/b1/collections/c2", &object.ListOptions{IncludeDeleted: true})
	if err != nil {
		t.Fatalf("ListAll new scope: %v", err)
	}
	foundTombstone := false
	for _, obj := range all {
		if obj.ID() == "r2" && obj.Deleted() {
			foundTombstone = true
		}
	}
	if !foundTombstone {
		t.Fatal("tombstone for r2 not carried into the new scope")
	}

	perms, err := s.GetObjectPermissions(ctx, "/buckets/b1/collections/c2")
	if err != nil {
		t.Fatalf("GetObjectPermissions: %v", err)
	}
	if !perms["read"].Has("account:alice") {
		t.Fatalf("collection ACEs not moved: %v", perms)
	}
	recPerms, err := s.GetObjectPermissions(ctx, "/buckets/b1/collections/c2/records/r1")
	if err != nil {
		t.Fatalf("GetObjectPermissions record: %v", err)
	}
	if !recPerms["write"].Has("account:bob") {
		t.Fatalf("record ACEs not moved: %v", recPerms)
	}

	if _, err := s.Get(ctx, "collection", "/buckets/b1", "c1"); !errors.Is(err, shelf.ErrObjectNotFound) {
		t.Fatalf("old collection should be tombstoned, got %v", err)
	}
	oldPerms, err := s.GetObjectPermissions(ctx, "/buckets/b1/collections/c1/records/r1")
	if err != nil {
		t.Fatalf("GetObjectPermissions old record: %v", err)
	}
	if len(oldPerms) != 0 {
		t.Fatalf("old record ACEs should be wiped, got %v", oldPerms)
	}
}

func TestDeleteCollectionDryRun(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	seedCollection(t, s)
	admin := NewAdmin(s, shelf.DefaultConfig(), nil)

	if err := admin.DeleteCollection(ctx, "b1", "c1", true); err != nil {
		t.Fatalf("DeleteCollection dry run: %v", err)
	}

	if _, err := s.Get(ctx, "collection", "/buckets/b1", "c1"); err != nil {
		t.Fatalf("dry run must not touch the collection: %v", err)
	}
	live, err := s.ListAll(ctx, "record", "/buckets/b1/collections/c1", nil)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(live) != 2 {
		t.Fatalf("dry run must not touch records, got %d live", len(live))
	}

	// The hierarchy is still verified.
	err = admin.DeleteCollection(ctx, "nope", "c1", true)
	if !errors.Is(err, ErrParentNotFound) {
		t.Fatalf("expected ErrParentNotFound, got %v", err)
	}
}

func TestRenameCollectionDryRun(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	seedCollection(t, s)
	admin := NewAdmin(s, shelf.DefaultConfig(), nil)

	if err := admin.RenameCollection(ctx, "b1", "c1", "c2", false, true); err != nil {
		t.Fatalf("RenameCollection dry run: %v", err)
	}

	if _, err := s.Get(ctx, "collection", "/buckets/b1", "c1"); err != nil {
		t.Fatalf("dry run must not touch the source collection: %v", err)
	}
	if _, err := s.Get(ctx, "collection", "/buckets/b1", "c2"); !errors.Is(err, shelf.ErrObjectNotFound) {
		t.Fatalf("dry run must not create the destination, got %v", err)
	}

	// The existing-destination refusal still applies without force.
	if _, err := s.Create(ctx, "collection", "/buckets/b1", object.Object{"id": "c2"}); err != nil {
		t.Fatalf("create target: %v", err)
	}
	err := admin.RenameCollection(ctx, "b1", "c1", "c2", false, true)
	if !errors.Is(err, shelf.ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation, got %v", err)
	}
}

func TestRenameCollectionForce(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	seedCollection(t, s)
	if _, err := s.Create(ctx, "collection", "/buckets/b1", object.Object{"id": "c2", "title": "stale"}); err != nil {
		t.Fatalf("create target: %v", err)
	}
	stale := object.Object{"id": "s1", "body": "old"}
	if _, err := s.Create(ctx, "record", "/buckets/b1/collections/c2", stale); err != nil {
		t.Fatalf("create stale record: %v", err)
	}

	admin := NewAdmin(s, shelf.DefaultConfig(), nil)
	if err := admin.RenameCollection(ctx, "b1", "c1", "c2", true, false); err != nil {
		t.Fatalf("RenameCollection force: %v", err)
	}

	moved, err := s.Get(ctx, "collection", "/buckets/b1", "c2")
	if err != nil {
		t.Fatalf("destination collection missing: %v", err)
	}
	if moved["title"] != "articles" {
		t.Fatalf("destination not overwritten: %v", moved)
	}
	if _, err := s.Get(ctx, "record", "/buckets/b1/collections/c2", "s1"); !errors.Is(err, shelf.ErrObjectNotFound) {
		t.Fatalf("stale destination record should be tombstoned, got %v", err)
	}
	if _, err := s.Get(ctx, "record", "/buckets/b1/collections/c2", "r1"); err != nil {
		t.Fatalf("moved record missing: %v", err)
	}
	if _, err := s.Get(ctx, "collection", "/buckets/b1", "c1"); !errors.Is(err, shelf.ErrObjectNotFound) {
		t.Fatalf("old collection should be tombstoned, got %v", err)
	}
}

func TestRenameCollectionTargetExists(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	seedCollection(t, s)
	if _, err := s.Create(ctx, "collection", "/buckets/b1", object.Object{"id": "c2"}); err != nil {
		t.Fatalf("create target: %v", err)
	}
	admin := NewAdmin(s, shelf.DefaultConfig(), nil)

	err := admin.RenameCollection(ctx, "b1", "c1", "c2", false, false)
	if !errors.Is(err, shelf.ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation, got %v", err)
	}
}
