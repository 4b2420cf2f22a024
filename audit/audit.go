// Package audit defines the grant-change audit trail: structured entries,
// the Sink interface mutating callers are notified through, and a fan-out
// Registry. Sinks are notified only when a mutation actually affected
// storage; no-op revokes never reach a sink.
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/xraph/hallpass/id"
)

// Action identifies the kind of grant mutation recorded by an entry.
type Action string

const (
	// ActionGrantAdded records an inserted grant fact.
	ActionGrantAdded Action = "grant_added"

	// ActionGrantRemoved records a removed grant fact, or a bulk removal.
	ActionGrantRemoved Action = "grant_removed"
)

// Entry is a single grant-change audit record. Principal fields carry the
// user uuid+login or group uuid+name, and stay empty for Anyone; project
// fields stay empty for global grants. Bulk removals produce one entry with
// RemovedCount > 1 and only the fields that scoped the removal.
type Entry struct {
	ID               id.AuditID   `json:"id" db:"id"`
	Action           Action       `json:"action" db:"action"`
	Permission       string       `json:"permission,omitempty" db:"permission"`
	UserID           id.UserID    `json:"user_id,omitempty" db:"user_id"`
	UserLogin        string       `json:"user_login,omitempty" db:"user_login"`
	GroupID          id.GroupID   `json:"group_id,omitempty" db:"group_id"`
	GroupName        string       `json:"group_name,omitempty" db:"group_name"`
	ProjectID        id.ProjectID `json:"project_id,omitempty" db:"project_id"`
	ProjectKey       string       `json:"project_key,omitempty" db:"project_key"`
	ProjectName      string       `json:"project_name,omitempty" db:"project_name"`
	ProjectQualifier string       `json:"project_qualifier,omitempty" db:"project_qualifier"`
	RemovedCount     int64        `json:"removed_count,omitempty" db:"removed_count"`
	At               time.Time    `json:"at" db:"at"`
}

// Sink receives grant-change notifications. Implementations must be safe
// for concurrent use; the registry invokes them synchronously in the
// mutating call.
type Sink interface {
	// Name returns a unique human-readable name for the sink.
	Name() string

	// Record receives one audit entry.
	Record(ctx context.Context, e *Entry) error
}

// Recorder is an in-memory sink for tests.
type Recorder struct {
	mu      sync.Mutex
	entries []*Entry
}

// NewRecorder creates an empty in-memory sink.
func NewRecorder() *Recorder { return &Recorder{} }

// Name implements Sink.
func (r *Recorder) Name() string { return "recorder" }

// Record implements Sink.
func (r *Recorder) Record(_ context.Context, e *Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *e
	r.entries = append(r.entries, &cp)
	return nil
}

// Entries returns a copy of everything recorded so far.
func (r *Recorder) Entries() []*Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// StoreSink persists entries through an audit Store, so deployments backed
// by a transactional store keep grant rows and audit rows together.
type StoreSink struct {
	store Store
}

// NewStoreSink creates a sink writing through the given store.
func NewStoreSink(s Store) *StoreSink { return &StoreSink{store: s} }

// Name implements Sink.
func (s *StoreSink) Name() string { return "store" }

// Record implements Sink.
func (s *StoreSink) Record(ctx context.Context, e *Entry) error {
	return s.store.InsertAuditEntry(ctx, e)
}
