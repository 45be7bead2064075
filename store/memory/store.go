// Package memory provides an in-memory composite store for tests and
// development. All data is lost on process exit.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/xraph/shelf"
	"github.com/xraph/shelf/id"
	"github.com/xraph/shelf/object"
	"github.com/xraph/shelf/store"
)

// Compile-time check that *Store implements the composite interface.
var _ store.Store = (*Store)(nil)

type scopeKey struct {
	resource string
	parentID string
}

// Store is a thread-safe in-memory implementation of store.Store.
type Store struct {
	mu sync.RWMutex

	objects    map[scopeKey]map[string]object.Object
	tombstones map[scopeKey]map[string]object.Object
	timestamps map[scopeKey]int64

	// perms maps object URI -> permission -> principal set.
	perms map[string]map[string]map[string]struct{}
	// userPrincipals maps user id -> extra principals.
	userPrincipals map[string]map[string]struct{}

	idGen id.Generator
}

// Option configures the memory store.
type Option func(*Store)

// WithIDGenerator sets the generator used when a created object carries
// no id. Defaults to UUID4.
func WithIDGenerator(g id.Generator) Option { return func(s *Store) { s.idGen = g } }

// New creates an empty memory store.
func New(opts ...Option) *Store {
	s := &Store{
		objects:        make(map[scopeKey]map[string]object.Object),
		tombstones:     make(map[scopeKey]map[string]object.Object),
		timestamps:     make(map[scopeKey]int64),
		perms:          make(map[string]map[string]map[string]struct{}),
		userPrincipals: make(map[string]map[string]struct{}),
		idGen:          id.UUID4{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// bump advances the scope counter and returns the new value. Wall-clock
// milliseconds when ahead of the counter, counter+1 otherwise, so values
// stay strictly increasing and unique even for writes within one
// millisecond. Caller must hold the write lock.
func (s *Store) bump(scope scopeKey) int64 {
	now := time.Now().UnixMilli()
	last := s.timestamps[scope]
	if now <= last {
		now = last + 1
	}
	s.timestamps[scope] = now
	return now
}

// assignTimestamp honors a client-supplied last_modified only when it is
// strictly greater than the scope counter; anything else is dropped and
// reassigned. Caller must hold the write lock.
func (s *Store) assignTimestamp(scope scopeKey, obj object.Object) {
	if ts := obj.LastModified(); ts > s.timestamps[scope] {
		s.timestamps[scope] = ts
		obj.SetLastModified(ts)
		return
	}
	obj.SetLastModified(s.bump(scope))
}

func (s *Store) Get(_ context.Context, resource, parentID, objectID string) (object.Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	scope := scopeKey{resource, parentID}
	obj, ok := s.objects[scope][objectID]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s/%s", shelf.ErrObjectNotFound, resource, parentID, objectID)
	}
	return obj.Clone(), nil
}

func (s *Store) Create(_ context.Context, resource, parentID string, obj object.Object) (object.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	scope := scopeKey{resource, parentID}

	stored := obj.Clone()
	if stored.ID() == "" {
		stored.SetID(s.idGen.Generate())
	}
	objectID := stored.ID()

	if _, exists := s.objects[scope][objectID]; exists {
		return nil, fmt.Errorf("%w: object %q already exists", shelf.ErrConstraintViolation, objectID)
	}
	delete(s.tombstones[scope], objectID)

	s.assignTimestamp(scope, stored)
	if s.objects[scope] == nil {
		s.objects[scope] = make(map[string]object.Object)
	}
	s.objects[scope][objectID] = stored
	return stored.Clone(), nil
}

func (s *Store) Update(_ context.Context, resource, parentID, objectID string, obj object.Object) (object.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	scope := scopeKey{resource, parentID}

	stored := obj.Clone()
	stored.SetID(objectID)
	delete(s.tombstones[scope], objectID)

	s.assignTimestamp(scope, stored)
	if s.objects[scope] == nil {
		s.objects[scope] = make(map[string]object.Object)
	}
	s.objects[scope][objectID] = stored
	return stored.Clone(), nil
}

func (s *Store) Delete(_ context.Context, resource, parentID, objectID string, lastModified int64) (object.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	scope := scopeKey{resource, parentID}

	obj, ok := s.objects[scope][objectID]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s/%s", shelf.ErrObjectNotFound, resource, parentID, objectID)
	}
	delete(s.objects[scope], objectID)

	tombstone := obj.Tombstone()
	if lastModified > s.timestamps[scope] {
		s.timestamps[scope] = lastModified
		tombstone.SetLastModified(lastModified)
	} else {
		tombstone.SetLastModified(s.bump(scope))
	}
	if s.tombstones[scope] == nil {
		s.tombstones[scope] = make(map[string]object.Object)
	}
	s.tombstones[scope][objectID] = tombstone
	return tombstone.Clone(), nil
}

func (s *Store) DeleteAll(ctx context.Context, resource, parentID string, opts *object.ListOptions) ([]object.Object, error) {
	if opts == nil {
		opts = &object.ListOptions{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	scope := scopeKey{resource, parentID}

	matched := make([]object.Object, 0)
	for _, obj := range s.objects[scope] {
		if object.MatchesOptions(obj, opts) {
			matched = append(matched, obj)
		}
	}
	object.SortObjects(matched, opts.Sorting)
	if opts.Limit > 0 && len(matched) > opts.Limit {
		matched = matched[:opts.Limit]
	}

	tombstones := make([]object.Object, 0, len(matched))
	for _, obj := range matched {
		objectID := obj.ID()
		delete(s.objects[scope], objectID)
		tombstone := obj.Tombstone()
		tombstone.SetLastModified(s.bump(scope))
		if s.tombstones[scope] == nil {
			s.tombstones[scope] = make(map[string]object.Object)
		}
		s.tombstones[scope][objectID] = tombstone
		tombstones = append(tombstones, tombstone.Clone())
	}
	return tombstones, nil
}

func (s *Store) ListAll(_ context.Context, resource, parentID string, opts *object.ListOptions) ([]object.Object, error) {
	if opts == nil {
		opts = &object.ListOptions{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	scope := scopeKey{resource, parentID}

	out := make([]object.Object, 0)
	for _, obj := range s.objects[scope] {
		if object.MatchesOptions(obj, opts) {
			out = append(out, obj.Clone())
		}
	}
	if opts.IncludeDeleted {
		for _, obj := range s.tombstones[scope] {
			if object.MatchesOptions(obj, opts) {
				out = append(out, obj.Clone())
			}
		}
	}
	object.SortObjects(out, opts.Sorting)
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (s *Store) CountAll(_ context.Context, resource, parentID string, filters []object.Filter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	scope := scopeKey{resource, parentID}

	count := 0
	for _, obj := range s.objects[scope] {
		if object.MatchesFilters(obj, filters) {
			count++
		}
	}
	return count, nil
}

func (s *Store) ResourceTimestamp(_ context.Context, resource, parentID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	scope := scopeKey{resource, parentID}
	if ts, ok := s.timestamps[scope]; ok {
		return ts, nil
	}
	return s.bump(scope), nil
}

func (s *Store) InitializeSchema(_ context.Context, _ bool) error { return nil }

func (s *Store) Ping(_ context.Context) error { return nil }

func (s *Store) Close() error { return nil }
