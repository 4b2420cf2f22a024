package project

import (
	"context"

	"github.com/xraph/hallpass/id"
)

// Store defines persistence operations for projects.
type Store interface {
	// CreateProject persists a new project.
	CreateProject(ctx context.Context, p *Project) error

	// GetProject retrieves a project by ID.
	GetProject(ctx context.Context, projectID id.ProjectID) (*Project, error)

	// UpdateVisibility flips the private flag of a project.
	UpdateVisibility(ctx context.Context, projectID id.ProjectID, private bool) error

	// DeleteProject removes a project.
	DeleteProject(ctx context.Context, projectID id.ProjectID) error

	// SelectByIDs returns the projects matching the given IDs. Unknown IDs
	// are skipped, never an error. The ID list is bounded: callers chunk
	// large batches before reaching the store.
	SelectByIDs(ctx context.Context, projectIDs []id.ProjectID) ([]*Project, error)
}
