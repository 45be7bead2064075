// Package auditlog records authorization decisions and object lifecycle
// events through the plugin hooks, keeping a bounded in-memory history for
// inspection and tests.
package auditlog

import (
	"context"
	"sync"
	"time"

	"github.com/xraph/shelf"
	"github.com/xraph/shelf/id"
	"github.com/xraph/shelf/object"
	"github.com/xraph/shelf/plugin"
)

// Entry kinds.
const (
	KindDecision = "decision"
	KindCreated  = "created"
	KindUpdated  = "updated"
	KindDeleted  = "deleted"
)

// Entry is one audit record.
type Entry struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Resource  string    `json:"resource,omitempty"`
	ParentID  string    `json:"parent_id,omitempty"`
	ObjectID  string    `json:"object_id,omitempty"`
	Method    string    `json:"method,omitempty"`
	Path      string    `json:"path,omitempty"`
	Principal string    `json:"principal,omitempty"`
	Allowed   bool      `json:"allowed"`
	CreatedAt time.Time `json:"created_at"`
}

// QueryFilter narrows Entries results. Zero fields match everything.
type QueryFilter struct {
	Kind      string
	Resource  string
	Principal string
	Denied    bool
	Limit     int
}

// DefaultMaxEntries bounds the in-memory history.
const DefaultMaxEntries = 1000

// Log is a plugin recording authorization and lifecycle events.
type Log struct {
	mu      sync.RWMutex
	entries []Entry
	max     int
	idGen   id.Generator
}

// Option configures the audit log.
type Option func(*Log)

// WithMaxEntries bounds the history; older entries are dropped first.
func WithMaxEntries(n int) Option { return func(l *Log) { l.max = n } }

// New creates an audit log plugin.
func New(opts ...Option) *Log {
	l := &Log{
		max:   DefaultMaxEntries,
		idGen: id.TypeID{Prefix: "audit"},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Name implements plugin.Plugin.
func (l *Log) Name() string { return "auditlog" }

// OnAfterAuthorize records one authorization decision.
func (l *Log) OnAfterAuthorize(_ context.Context, req any, allowed bool) error {
	e := Entry{Kind: KindDecision, Allowed: allowed}
	if info, ok := req.(*shelf.RequestInfo); ok {
		e.Method = info.Method
		e.Path = info.Path
		if info.Binding != nil {
			e.Resource = info.Binding.Name
			e.ParentID = info.Binding.ParentID
			e.ObjectID = info.Binding.ObjectID
		}
		if len(info.Principals) > 0 {
			e.Principal = info.Principals[len(info.Principals)-1]
		}
	}
	l.append(e)
	return nil
}

// OnObjectCreated records an object creation.
func (l *Log) OnObjectCreated(_ context.Context, ev plugin.Event, obj object.Object) error {
	l.append(Entry{
		Kind: KindCreated, Resource: ev.Resource, ParentID: ev.ParentID,
		ObjectID: obj.ID(), Allowed: true,
	})
	return nil
}

// OnObjectUpdated records an object update.
func (l *Log) OnObjectUpdated(_ context.Context, ev plugin.Event, _, updated object.Object) error {
	l.append(Entry{
		Kind: KindUpdated, Resource: ev.Resource, ParentID: ev.ParentID,
		ObjectID: updated.ID(), Allowed: true,
	})
	return nil
}

// OnObjectDeleted records a deletion.
func (l *Log) OnObjectDeleted(_ context.Context, ev plugin.Event, tombstone object.Object) error {
	l.append(Entry{
		Kind: KindDeleted, Resource: ev.Resource, ParentID: ev.ParentID,
		ObjectID: tombstone.ID(), Allowed: true,
	})
	return nil
}

func (l *Log) append(e Entry) {
	e.ID = l.idGen.Generate()
	e.CreatedAt = time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
	if l.max > 0 && len(l.entries) > l.max {
		l.entries = l.entries[len(l.entries)-l.max:]
	}
}

// Entries returns the recorded entries matching the filter, oldest first.
func (l *Log) Entries(filter QueryFilter) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Entry, 0, len(l.entries))
	for _, e := range l.entries {
		if filter.Kind != "" && e.Kind != filter.Kind {
			continue
		}
		if filter.Resource != "" && e.Resource != filter.Resource {
			continue
		}
		if filter.Principal != "" && e.Principal != filter.Principal {
			continue
		}
		if filter.Denied && e.Allowed {
			continue
		}
		out = append(out, e)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out
}

// Purge drops entries recorded before the cutoff and reports how many were
// removed.
func (l *Log) Purge(before time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.entries[:0]
	for _, e := range l.entries {
		if !e.CreatedAt.Before(before) {
			kept = append(kept, e)
		}
	}
	removed := len(l.entries) - len(kept)
	l.entries = kept
	return removed
}
