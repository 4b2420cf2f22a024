package principal

import (
	"context"

	"github.com/xraph/hallpass/id"
)

// Store defines persistence operations for users, groups, and membership.
// User and group lifecycle is driven by an external management layer; the
// resolution engine itself only reads.
type Store interface {
	// CreateUser persists a new user.
	CreateUser(ctx context.Context, u *User) error

	// GetUser retrieves a user by ID.
	GetUser(ctx context.Context, userID id.UserID) (*User, error)

	// DeleteUser removes a user and their group memberships.
	DeleteUser(ctx context.Context, userID id.UserID) error

	// CreateGroup persists a new group.
	CreateGroup(ctx context.Context, g *Group) error

	// GetGroup retrieves a group by ID.
	GetGroup(ctx context.Context, groupID id.GroupID) (*Group, error)

	// DeleteGroup removes a group and its memberships.
	DeleteGroup(ctx context.Context, groupID id.GroupID) error

	// AddMember records that a user belongs to a group. Adding an existing
	// membership is a no-op.
	AddMember(ctx context.Context, groupID id.GroupID, userID id.UserID) error

	// RemoveMember removes a user from a group. Removing a missing
	// membership is a no-op.
	RemoveMember(ctx context.Context, groupID id.GroupID, userID id.UserID) error

	// SelectGroupIDsForUser returns the IDs of every group the user belongs to.
	SelectGroupIDsForUser(ctx context.Context, userID id.UserID) ([]id.GroupID, error)
}
