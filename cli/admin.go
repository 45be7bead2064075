package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/xraph/shelf"
	"github.com/xraph/shelf/model"
	"github.com/xraph/shelf/object"
	"github.com/xraph/shelf/store"
)

// Administrative failures with dedicated exit codes.
var (
	// ErrParentNotFound reports a missing bucket.
	ErrParentNotFound = errors.New("shelfadm: bucket not found")

	// ErrCollectionNotFound reports a missing collection inside an
	// existing bucket.
	ErrCollectionNotFound = errors.New("shelfadm: collection not found")
)

// Admin performs maintenance operations directly against the backends,
// outside the request authorization path.
type Admin struct {
	Store  store.Store
	Config shelf.Config
	Logger *slog.Logger
}

// NewAdmin creates an Admin over the composite store.
func NewAdmin(s store.Store, cfg shelf.Config, logger *slog.Logger) *Admin {
	if logger == nil {
		logger = slog.Default()
	}
	return &Admin{Store: s, Config: cfg, Logger: logger}
}

// model binds one (resource, parent) scope with no caller identity, so no
// ownership grant is applied.
func (a *Admin) model(resource, parentID string) *model.Model {
	return &model.Model{
		Storage:  a.Store,
		ACL:      a.Store,
		Resource: resource,
		ParentID: parentID,
		Config:   a.Config,
	}
}

// Migrate initializes or upgrades the storage schema. With dryRun it only
// verifies whether setup would be needed.
func (a *Admin) Migrate(ctx context.Context, dryRun bool) error {
	if a.Config.ReadOnly && !dryRun {
		return shelf.ErrReadOnly
	}
	if !dryRun {
		if m, ok := a.Store.(interface{ Migrate(context.Context) error }); ok {
			return m.Migrate(ctx)
		}
	}
	return a.Store.InitializeSchema(ctx, dryRun)
}

func bucketURI(bucket string) string { return "/buckets/" + bucket }

func collectionURI(bucket, collection string) string {
	return bucketURI(bucket) + "/collections/" + collection
}

// checkHierarchy verifies the bucket and collection exist.
func (a *Admin) checkHierarchy(ctx context.Context, bucket, collection string) error {
	if _, err := a.Store.Get(ctx, "bucket", "", bucket); err != nil {
		if errors.Is(err, shelf.ErrObjectNotFound) {
			return fmt.Errorf("%w: %q", ErrParentNotFound, bucket)
		}
		return err
	}
	if _, err := a.Store.Get(ctx, "collection", bucketURI(bucket), collection); err != nil {
		if errors.Is(err, shelf.ErrObjectNotFound) {
			return fmt.Errorf("%w: %q in bucket %q", ErrCollectionNotFound, collection, bucket)
		}
		return err
	}
	return nil
}

// DeleteCollection removes a collection, its records and every associated
// ACE. Records and the collection object leave tombstones behind. With
// dryRun the hierarchy is verified and the impact reported, nothing changes.
func (a *Admin) DeleteCollection(ctx context.Context, bucket, collection string, dryRun bool) error {
	if a.Config.ReadOnly {
		return shelf.ErrReadOnly
	}
	if err := a.checkHierarchy(ctx, bucket, collection); err != nil {
		return err
	}

	if dryRun {
		count, err := a.Store.CountAll(ctx, "record", collectionURI(bucket, collection), nil)
		if err != nil {
			return err
		}
		a.Logger.Info("collection delete dry run",
			"bucket", bucket, "collection", collection, "records", count)
		return nil
	}

	removed, err := a.removeCollection(ctx, bucket, collection)
	if err != nil {
		return err
	}
	a.Logger.Info("collection deleted",
		"bucket", bucket, "collection", collection, "records", removed)
	return nil
}

// removeCollection tombstones every record (wiping their ACEs) and the
// collection object itself, returning the record count.
func (a *Admin) removeCollection(ctx context.Context, bucket, collection string) (int, error) {
	records := a.model("record", collectionURI(bucket, collection))
	tombstones, err := records.DeleteObjects(ctx, nil)
	if err != nil {
		return 0, err
	}

	collections := a.model("collection", bucketURI(bucket))
	if _, err := collections.DeleteObject(ctx, collection, 0); err != nil {
		return 0, err
	}
	return len(tombstones), nil
}

// RenameCollection moves a collection to a new name: the collection object,
// its ACEs, every record (live and tombstoned) and the per-record ACEs.
// Record timestamps are carried forward where the new scope's clock allows.
// The old name is tombstoned so synchronizing clients observe the removal.
// An existing destination is refused unless force is set, in which case it
// is deleted first. With dryRun the move is validated and reported, nothing
// changes.
func (a *Admin) RenameCollection(ctx context.Context, bucket, oldName, newName string, force, dryRun bool) error {
	if a.Config.ReadOnly {
		return shelf.ErrReadOnly
	}
	if err := a.checkHierarchy(ctx, bucket, oldName); err != nil {
		return err
	}
	targetExists := false
	if _, err := a.Store.Get(ctx, "collection", bucketURI(bucket), newName); err == nil {
		if !force {
			return fmt.Errorf("%w: collection %q already exists in bucket %q",
				shelf.ErrConstraintViolation, newName, bucket)
		}
		targetExists = true
	} else if !errors.Is(err, shelf.ErrObjectNotFound) {
		return err
	}

	oldURI := collectionURI(bucket, oldName)
	newURI := collectionURI(bucket, newName)

	if dryRun {
		count, err := a.Store.CountAll(ctx, "record", oldURI, nil)
		if err != nil {
			return err
		}
		a.Logger.Info("collection rename dry run",
			"bucket", bucket, "from", oldName, "to", newName,
			"records", count, "replaces_existing", targetExists)
		return nil
	}

	if targetExists {
		if _, err := a.removeCollection(ctx, bucket, newName); err != nil {
			return err
		}
	}

	colObj, err := a.Store.Get(ctx, "collection", bucketURI(bucket), oldName)
	if err != nil {
		return err
	}
	moved := colObj.Clone()
	moved.SetID(newName)
	if _, err := a.Store.Update(ctx, "collection", bucketURI(bucket), newName, moved); err != nil {
		return err
	}
	if err := a.moveACEs(ctx, oldURI, newURI); err != nil {
		return err
	}

	records, err := a.Store.ListAll(ctx, "record", oldURI, &object.ListOptions{IncludeDeleted: true})
	if err != nil {
		return err
	}
	for _, rec := range records {
		if err := a.moveRecord(ctx, oldURI, newURI, rec); err != nil {
			return err
		}
	}

	if _, err := a.Store.DeleteAll(ctx, "record", oldURI, nil); err != nil {
		return err
	}
	if err := a.Store.DeleteObjectPermissions(ctx, oldURI+"/*"); err != nil {
		return err
	}

	collections := a.model("collection", bucketURI(bucket))
	if _, err := collections.DeleteObject(ctx, oldName, 0); err != nil {
		return err
	}

	a.Logger.Info("collection renamed",
		"bucket", bucket, "from", oldName, "to", newName, "records", len(records))
	return nil
}

// moveRecord re-homes one record (or tombstone) into the new scope, keeping
// its timestamp. Tombstones are recreated and immediately re-deleted with
// their original forced timestamp.
func (a *Admin) moveRecord(ctx context.Context, oldURI, newURI string, rec object.Object) error {
	recID := rec.ID()
	if rec.Deleted() {
		placeholder := object.Object{}
		placeholder.SetID(recID)
		if _, err := a.Store.Create(ctx, "record", newURI, placeholder); err != nil {
			return err
		}
		if _, err := a.Store.Delete(ctx, "record", newURI, recID, rec.LastModified()); err != nil {
			return err
		}
		return nil
	}

	if _, err := a.Store.Update(ctx, "record", newURI, recID, rec.Clone()); err != nil {
		return err
	}
	return a.moveACEs(ctx, oldURI+"/records/"+recID, newURI+"/records/"+recID)
}

// moveACEs copies the ACE set from one object URI to another and clears
// the source.
func (a *Admin) moveACEs(ctx context.Context, fromURI, toURI string) error {
	perms, err := a.Store.GetObjectPermissions(ctx, fromURI)
	if err != nil {
		return err
	}
	if len(perms) > 0 {
		if err := a.Store.ReplaceObjectPermissions(ctx, toURI, perms); err != nil {
			return err
		}
	}
	return a.Store.DeleteObjectPermissions(ctx, fromURI)
}
