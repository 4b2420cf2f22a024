// Package grant defines the permission grant fact, the PermissionQuery
// listing descriptor, and the grant store interface.
package grant

import (
	"time"

	"github.com/xraph/hallpass/id"
	"github.com/xraph/hallpass/principal"
)

// Grant is a current-state permission fact: a principal holds a permission,
// either platform-wide (ProjectID is nil) or on one specific project.
// Global and project-scoped grants for the same principal and permission are
// independent facts; removing one never touches the other.
type Grant struct {
	ID         id.GrantID    `json:"id" db:"id"`
	Principal  principal.Ref `json:"principal" db:"-"`
	Permission string        `json:"permission" db:"role"`
	ProjectID  id.ProjectID  `json:"project_id,omitempty" db:"project_id"`
	CreatedAt  time.Time     `json:"created_at" db:"created_at"`
}

// Global reports whether the grant applies platform-wide.
func (g *Grant) Global() bool { return g.ProjectID.IsNil() }
