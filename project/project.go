// Package project defines the protected resource entity and its store
// interface. A project's visibility flag gates the implicit-access rule for
// the two public permission keys.
package project

import (
	"time"

	"github.com/xraph/hallpass/id"
)

// Qualifier values conventionally carried by projects.
const (
	QualifierProject = "TRK"
	QualifierView    = "VW"
	QualifierSubView = "SVW"
	QualifierApp     = "APP"
)

// Project is a protected resource. Provisioning and removal are owned by an
// external management layer; hallpass reads projects to resolve visibility.
type Project struct {
	ID        id.ProjectID `json:"id" db:"id"`
	Key       string       `json:"key" db:"key"`
	Name      string       `json:"name" db:"name"`
	Qualifier string       `json:"qualifier" db:"qualifier"`
	Private   bool         `json:"private" db:"private"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
}

// Public reports whether the project is publicly visible.
func (p *Project) Public() bool { return !p.Private }
