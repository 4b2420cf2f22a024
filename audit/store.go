package audit

import (
	"context"
	"time"
)

// QueryFilter contains filters for querying persisted audit entries.
type QueryFilter struct {
	Action     Action     `json:"action,omitempty"`
	Permission string     `json:"permission,omitempty"`
	UserID     string     `json:"user_id,omitempty"`
	GroupID    string     `json:"group_id,omitempty"`
	ProjectID  string     `json:"project_id,omitempty"`
	After      *time.Time `json:"after,omitempty"`
	Before     *time.Time `json:"before,omitempty"`
	Limit      int        `json:"limit,omitempty"`
	Offset     int        `json:"offset,omitempty"`
}

// Store defines persistence operations for audit entries.
type Store interface {
	// InsertAuditEntry persists one entry.
	InsertAuditEntry(ctx context.Context, e *Entry) error

	// SelectAuditEntries returns entries matching the filter, newest first.
	SelectAuditEntries(ctx context.Context, filter *QueryFilter) ([]*Entry, error)

	// PurgeAuditEntries removes entries recorded before the given time and
	// returns the removed count.
	PurgeAuditEntries(ctx context.Context, before time.Time) (int64, error)
}
