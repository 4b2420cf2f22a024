// Package store defines the aggregate persistence interface. Each subsystem
// (principal, project, grant, audit) defines its own store interface. The
// composite Store composes them all.
// Backends: Postgres, SQLite, MongoDB, and Memory.
package store

import (
	"context"

	"github.com/xraph/hallpass/audit"
	"github.com/xraph/hallpass/grant"
	"github.com/xraph/hallpass/principal"
	"github.com/xraph/hallpass/project"
)

// Store is the aggregate persistence interface.
// A single backend (postgres, sqlite, mongo, memory) implements all of the
// subsystem stores.
type Store interface {
	principal.Store
	project.Store
	grant.Store
	audit.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks database connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
