package grant

import (
	"context"

	"github.com/xraph/hallpass/id"
	"github.com/xraph/hallpass/principal"
)

// Store defines persistence operations for permission grants, including the
// resolution primitives consumed by the engine.
//
// Every method taking a list of candidate IDs assumes a bounded list: the
// engine partitions large batches into store-safe chunks before calling, so
// implementations may translate the list directly into a set-membership
// predicate (SQL IN, Mongo $in).
type Store interface {
	// SelectGlobalPermissionsForUser returns the union of global permissions
	// granted to the user directly, to any group the user belongs to, and to
	// Anyone. The result may contain duplicates across paths.
	SelectGlobalPermissionsForUser(ctx context.Context, userID id.UserID) ([]string, error)

	// SelectGlobalPermissionsOfAnyone returns the global permissions granted
	// to the Anyone pseudo-group.
	SelectGlobalPermissionsOfAnyone(ctx context.Context) ([]string, error)

	// SelectProjectPermissionsForUser returns the permissions the user holds
	// on the project through direct grants, group grants, or Anyone grants.
	// An unknown project yields an empty result.
	SelectProjectPermissionsForUser(ctx context.Context, projectID id.ProjectID, userID id.UserID) ([]string, error)

	// SelectProjectPermissionsOfAnyone returns the permissions granted to
	// Anyone on the project.
	SelectProjectPermissionsOfAnyone(ctx context.Context, projectID id.ProjectID) ([]string, error)

	// KeepAuthorizedProjectIDs returns the subset of projectIDs the user is
	// authorized on for the permission: implicit access on public projects
	// for the two public keys, plus direct, group, and Anyone grants.
	// Unknown project IDs are dropped silently.
	KeepAuthorizedProjectIDs(ctx context.Context, projectIDs []id.ProjectID, userID id.UserID, permission string) ([]id.ProjectID, error)

	// KeepAuthorizedProjectIDsForAnyone is the anonymous variant: only
	// implicit public access and Anyone grants qualify.
	KeepAuthorizedProjectIDsForAnyone(ctx context.Context, projectIDs []id.ProjectID, permission string) ([]id.ProjectID, error)

	// KeepAuthorizedUserIDs returns the subset of userIDs authorized for the
	// permission on the project via direct or group grants, or implicitly
	// when the project is public and the permission is a public key. Anyone
	// grants never qualify a named user. Unknown user IDs are dropped.
	KeepAuthorizedUserIDs(ctx context.Context, userIDs []id.UserID, permission string, projectID id.ProjectID) ([]id.UserID, error)

	// CountUsersWithGlobalPermissionExcludingGroup counts distinct users
	// holding the global permission while disregarding the excluded group's
	// membership-derived contribution. An unknown group is a no-op.
	CountUsersWithGlobalPermissionExcludingGroup(ctx context.Context, permission string, excludedGroupID id.GroupID) (int, error)

	// CountUsersWithGlobalPermissionExcludingUser counts distinct users
	// holding the global permission while disregarding the excluded user's
	// direct grant. An unknown user is a no-op.
	CountUsersWithGlobalPermissionExcludingUser(ctx context.Context, permission string, excludedUserID id.UserID) (int, error)

	// SelectUserIDsWithGlobalPermission returns the distinct users holding
	// the global permission directly or through group membership.
	SelectUserIDsWithGlobalPermission(ctx context.Context, permission string) ([]id.UserID, error)

	// SelectPrincipalsWithPermissionOnProjectBut returns every principal
	// holding at least one permission on the project other than the given
	// one, and not holding the given one. Anyone appears as its own entry
	// under the same rule.
	SelectPrincipalsWithPermissionOnProjectBut(ctx context.Context, projectID id.ProjectID, permission string) ([]principal.Ref, error)

	// SelectUserIDsByQuery returns one page of user IDs matching the query,
	// ordered per the PermissionQuery contract.
	SelectUserIDsByQuery(ctx context.Context, q *PermissionQuery) ([]id.UserID, error)

	// CountUsersByQuery returns the total number of users matching the
	// query, ignoring pagination.
	CountUsersByQuery(ctx context.Context, q *PermissionQuery) (int, error)

	// SelectGroupNamesByQuery returns one page of group names matching the
	// query. The Anyone pseudo-entry is listed first when it qualifies.
	SelectGroupNamesByQuery(ctx context.Context, q *PermissionQuery) ([]string, error)

	// CountGroupsByQuery returns the total number of groups (including the
	// Anyone pseudo-entry) matching the query, ignoring pagination.
	CountGroupsByQuery(ctx context.Context, q *PermissionQuery) (int, error)

	// InsertGrant persists a new grant fact. The store does not deduplicate;
	// callers check existence first.
	InsertGrant(ctx context.Context, g *Grant) error

	// DeleteGrant removes the grant matching exactly (principal, permission,
	// project|global) and returns the number of rows removed.
	DeleteGrant(ctx context.Context, ref principal.Ref, permission string, projectID id.ProjectID) (int64, error)

	// DeleteGrantsByProject removes every grant scoped to the project and
	// returns the removed count. Global grants are untouched.
	DeleteGrantsByProject(ctx context.Context, projectID id.ProjectID) (int64, error)

	// DeleteGrantsByProjectAndPrincipal removes every grant the principal
	// (including Anyone) holds on the project and returns the removed count.
	DeleteGrantsByProjectAndPrincipal(ctx context.Context, projectID id.ProjectID, ref principal.Ref) (int64, error)

	// DeleteGrantsByProjectAndPermission removes every grant bearing the
	// permission on the project and returns the removed count. Global grants
	// bearing the same permission key are untouched.
	DeleteGrantsByProjectAndPermission(ctx context.Context, projectID id.ProjectID, permission string) (int64, error)
}
