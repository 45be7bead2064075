// Package postgres provides a PostgreSQL implementation of the shelf
// composite store using grove ORM with Go-based migrations.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/shelf"
	"github.com/xraph/shelf/id"
	"github.com/xraph/shelf/object"
	"github.com/xraph/shelf/store"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// pgUniqueViolation is the PostgreSQL error code for unique constraint
// violations.
const pgUniqueViolation = "23505"

// Store is a PostgreSQL implementation of the composite shelf store.
type Store struct {
	db    *grove.DB
	pgdb  *pgdriver.PgDB
	idGen id.Generator
}

// Option configures the postgres store.
type Option func(*Store)

// WithIDGenerator sets the generator used when a created object carries
// no id. Defaults to UUID4.
func WithIDGenerator(g id.Generator) Option { return func(s *Store) { s.idGen = g } }

// New creates a new PostgreSQL store.
func New(db *grove.DB, opts ...Option) *Store {
	s := &Store{
		db:    db,
		pgdb:  pgdriver.Unwrap(db),
		idGen: id.UUID4{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Migrate runs programmatic migrations via the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pgdb)
	if err != nil {
		return fmt.Errorf("shelf: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("shelf: migration failed: %w", err)
	}
	return nil
}

// InitializeSchema migrates the schema. With dryRun it only probes the
// tables and reports whether setup would be needed.
func (s *Store) InitializeSchema(ctx context.Context, dryRun bool) error {
	if dryRun {
		var probe []objectModel
		if err := s.pgdb.NewSelect(&probe).Limit(1).Scan(ctx); err != nil {
			return fmt.Errorf("shelf: schema not initialized: %w", err)
		}
		return nil
	}
	return s.Migrate(ctx)
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// nextTimestamp advances the scope counter, honoring a client value only
// when strictly ahead of it.
func (s *Store) nextTimestamp(ctx context.Context, resource, parentID string, client int64) (int64, error) {
	current, exists, err := s.currentTimestamp(ctx, resource, parentID)
	if err != nil {
		return 0, err
	}

	next := time.Now().UnixMilli()
	if client > current {
		next = client
	} else if next <= current {
		next = current + 1
	}

	m := &timestampModel{Resource: resource, ParentID: parentID, LastModified: next}
	if exists {
		_, err = s.pgdb.NewUpdate(m).WherePK().Exec(ctx)
	} else {
		_, err = s.pgdb.NewInsert(m).Exec(ctx)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: bump timestamp: %v", shelf.ErrBackendUnavailable, err)
	}
	return next, nil
}

func (s *Store) currentTimestamp(ctx context.Context, resource, parentID string) (int64, bool, error) {
	m := new(timestampModel)
	err := s.pgdb.NewSelect(m).
		Where("resource = ?", resource).
		Where("parent_id = ?", parentID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("%w: read timestamp: %v", shelf.ErrBackendUnavailable, err)
	}
	return m.LastModified, true, nil
}

func (s *Store) Get(ctx context.Context, resource, parentID, objectID string) (object.Object, error) {
	m := new(objectModel)
	err := s.pgdb.NewSelect(m).
		Where("resource = ?", resource).
		Where("parent_id = ?", parentID).
		Where("id = ?", objectID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s/%s", shelf.ErrObjectNotFound, resource, parentID, objectID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get object: %v", shelf.ErrBackendUnavailable, err)
	}
	return objectFromModel(m), nil
}

func (s *Store) Create(ctx context.Context, resource, parentID string, obj object.Object) (object.Object, error) {
	stored := obj.Clone()
	if stored.ID() == "" {
		stored.SetID(s.idGen.Generate())
	}

	ts, err := s.nextTimestamp(ctx, resource, parentID, stored.LastModified())
	if err != nil {
		return nil, err
	}
	stored.SetLastModified(ts)

	if err := s.dropTombstone(ctx, resource, parentID, stored.ID()); err != nil {
		return nil, err
	}

	m := objectToModel(resource, parentID, stored)
	if _, err := s.pgdb.NewInsert(m).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: object %q already exists", shelf.ErrConstraintViolation, stored.ID())
		}
		return nil, fmt.Errorf("%w: create object: %v", shelf.ErrBackendUnavailable, err)
	}
	return stored, nil
}

func (s *Store) Update(ctx context.Context, resource, parentID, objectID string, obj object.Object) (object.Object, error) {
	stored := obj.Clone()
	stored.SetID(objectID)

	ts, err := s.nextTimestamp(ctx, resource, parentID, stored.LastModified())
	if err != nil {
		return nil, err
	}
	stored.SetLastModified(ts)

	if err := s.dropTombstone(ctx, resource, parentID, objectID); err != nil {
		return nil, err
	}

	m := objectToModel(resource, parentID, stored)
	_, getErr := s.Get(ctx, resource, parentID, objectID)
	switch {
	case getErr == nil:
		if _, err := s.pgdb.NewUpdate(m).WherePK().Exec(ctx); err != nil {
			return nil, fmt.Errorf("%w: update object: %v", shelf.ErrBackendUnavailable, err)
		}
	case errors.Is(getErr, shelf.ErrObjectNotFound):
		if _, err := s.pgdb.NewInsert(m).Exec(ctx); err != nil {
			return nil, fmt.Errorf("%w: upsert object: %v", shelf.ErrBackendUnavailable, err)
		}
	default:
		return nil, getErr
	}
	return stored, nil
}

func (s *Store) Delete(ctx context.Context, resource, parentID, objectID string, lastModified int64) (object.Object, error) {
	existing, err := s.Get(ctx, resource, parentID, objectID)
	if err != nil {
		return nil, err
	}

	ts, err := s.nextTimestamp(ctx, resource, parentID, lastModified)
	if err != nil {
		return nil, err
	}

	_, err = s.pgdb.NewDelete((*objectModel)(nil)).
		Where("resource = ?", resource).
		Where("parent_id = ?", parentID).
		Where("id = ?", objectID).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: delete object: %v", shelf.ErrBackendUnavailable, err)
	}

	tombstone := existing.Tombstone()
	tombstone.SetLastModified(ts)
	if err := s.writeTombstone(ctx, resource, parentID, tombstone); err != nil {
		return nil, err
	}
	return tombstone, nil
}

func (s *Store) DeleteAll(ctx context.Context, resource, parentID string, opts *object.ListOptions) ([]object.Object, error) {
	if opts == nil {
		opts = &object.ListOptions{}
	}
	live := *opts
	live.IncludeDeleted = false
	matched, err := s.ListAll(ctx, resource, parentID, &live)
	if err != nil {
		return nil, err
	}

	tombstones := make([]object.Object, 0, len(matched))
	for _, obj := range matched {
		tombstone, err := s.Delete(ctx, resource, parentID, obj.ID(), 0)
		if err != nil {
			return nil, err
		}
		tombstones = append(tombstones, tombstone)
	}
	return tombstones, nil
}

func (s *Store) ListAll(ctx context.Context, resource, parentID string, opts *object.ListOptions) ([]object.Object, error) {
	if opts == nil {
		opts = &object.ListOptions{}
	}

	var models []objectModel
	err := s.pgdb.NewSelect(&models).
		Where("resource = ?", resource).
		Where("parent_id = ?", parentID).
		OrderExpr("last_modified DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list objects: %v", shelf.ErrBackendUnavailable, err)
	}

	out := make([]object.Object, 0, len(models))
	for i := range models {
		obj := objectFromModel(&models[i])
		if object.MatchesOptions(obj, opts) {
			out = append(out, obj)
		}
	}

	if opts.IncludeDeleted {
		var stones []tombstoneModel
		err := s.pgdb.NewSelect(&stones).
			Where("resource = ?", resource).
			Where("parent_id = ?", parentID).
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: list tombstones: %v", shelf.ErrBackendUnavailable, err)
		}
		for i := range stones {
			obj := tombstoneFromModel(&stones[i])
			if object.MatchesOptions(obj, opts) {
				out = append(out, obj)
			}
		}
	}

	object.SortObjects(out, opts.Sorting)
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (s *Store) CountAll(ctx context.Context, resource, parentID string, filters []object.Filter) (int, error) {
	objs, err := s.ListAll(ctx, resource, parentID, &object.ListOptions{Filters: filters})
	if err != nil {
		return 0, err
	}
	return len(objs), nil
}

func (s *Store) ResourceTimestamp(ctx context.Context, resource, parentID string) (int64, error) {
	current, exists, err := s.currentTimestamp(ctx, resource, parentID)
	if err != nil {
		return 0, err
	}
	if exists {
		return current, nil
	}
	return s.nextTimestamp(ctx, resource, parentID, 0)
}

func (s *Store) dropTombstone(ctx context.Context, resource, parentID, objectID string) error {
	_, err := s.pgdb.NewDelete((*tombstoneModel)(nil)).
		Where("resource = ?", resource).
		Where("parent_id = ?", parentID).
		Where("id = ?", objectID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("%w: drop tombstone: %v", shelf.ErrBackendUnavailable, err)
	}
	return nil
}

func (s *Store) writeTombstone(ctx context.Context, resource, parentID string, tombstone object.Object) error {
	m := &tombstoneModel{
		Resource:     resource,
		ParentID:     parentID,
		ID:           tombstone.ID(),
		LastModified: tombstone.LastModified(),
	}
	if _, err := s.pgdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("%w: write tombstone: %v", shelf.ErrBackendUnavailable, err)
	}
	return nil
}
