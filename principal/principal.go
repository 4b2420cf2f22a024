// Package principal defines the entities that can hold permissions: users,
// groups, and the singular Anyone pseudo-group.
package principal

import (
	"fmt"
	"time"

	"github.com/xraph/hallpass/id"
)

// AnyoneName is the reserved display name of the Anyone pseudo-group. It is
// never a valid group name and never carries a group ID in store-facing calls.
const AnyoneName = "Anyone"

// User is an individual identity. Lifecycle is owned by an external
// management layer; hallpass only reads users.
type User struct {
	ID        id.UserID `json:"id" db:"id"`
	Login     string    `json:"login" db:"login"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email,omitempty" db:"email"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Group is a named collection of users. Membership is flat: users belong
// directly to groups, there is no group nesting.
type Group struct {
	ID          id.GroupID `json:"id" db:"id"`
	Name        string     `json:"name" db:"name"`
	Description string     `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// Kind identifies the variant of a principal reference.
type Kind string

const (
	// KindUser references an individual user.
	KindUser Kind = "user"

	// KindGroup references a named group.
	KindGroup Kind = "group"

	// KindAnyone references the Anyone pseudo-group. Grants to Anyone are
	// visible to every request, including unauthenticated ones.
	KindAnyone Kind = "anyone"
)

// Ref is a tagged reference to exactly one principal variant. The Anyone
// variant carries no ID; modelling it as its own kind keeps the
// Anyone-specific authorization rules out of null checks.
type Ref struct {
	Kind Kind  `json:"kind"`
	ID   id.ID `json:"id,omitempty"`
}

// ForUser returns a reference to an individual user.
func ForUser(userID id.UserID) Ref {
	return Ref{Kind: KindUser, ID: userID}
}

// ForGroup returns a reference to a named group.
func ForGroup(groupID id.GroupID) Ref {
	return Ref{Kind: KindGroup, ID: groupID}
}

// Anyone returns the reference to the Anyone pseudo-group.
func Anyone() Ref {
	return Ref{Kind: KindAnyone}
}

// IsAnyone reports whether the reference is the Anyone pseudo-group.
func (r Ref) IsAnyone() bool { return r.Kind == KindAnyone }

// Validate checks the internal consistency of the reference.
func (r Ref) Validate() error {
	switch r.Kind {
	case KindUser, KindGroup:
		if r.ID.IsNil() {
			return fmt.Errorf("principal: %s reference requires an ID", r.Kind)
		}
		return nil
	case KindAnyone:
		if !r.ID.IsNil() {
			return fmt.Errorf("principal: anyone reference must not carry an ID")
		}
		return nil
	default:
		return fmt.Errorf("principal: unknown kind %q", r.Kind)
	}
}

// String renders the reference for logs and audit payloads.
func (r Ref) String() string {
	if r.Kind == KindAnyone {
		return AnyoneName
	}
	return fmt.Sprintf("%s:%s", r.Kind, r.ID)
}
