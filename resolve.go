package hallpass

import (
	"context"
	"sort"

	"github.com/xraph/hallpass/id"
	"github.com/xraph/hallpass/principal"
)

// SelectGlobalPermissions returns the union of global permissions granted to
// the user directly, to every group the user belongs to, and to Anyone. The
// result is de-duplicated and sorted; order carries no meaning.
func (e *Engine) SelectGlobalPermissions(ctx context.Context, userID id.UserID) ([]string, error) {
	if userID.IsNil() {
		return e.SelectGlobalPermissionsOfAnonymous(ctx)
	}
	perms, err := e.store.SelectGlobalPermissionsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return dedupStrings(perms), nil
}

// SelectGlobalPermissionsOfAnonymous returns the global permissions visible
// to an unauthenticated request: exactly the Anyone grants.
func (e *Engine) SelectGlobalPermissionsOfAnonymous(ctx context.Context) ([]string, error) {
	perms, err := e.store.SelectGlobalPermissionsOfAnyone(ctx)
	if err != nil {
		return nil, err
	}
	return dedupStrings(perms), nil
}

// SelectProjectPermissions returns the permissions the user holds on the
// project through any combination of direct, group, and Anyone grants,
// de-duplicated. An unknown project resolves to an empty result.
func (e *Engine) SelectProjectPermissions(ctx context.Context, projectID id.ProjectID, userID id.UserID) ([]string, error) {
	if userID.IsNil() {
		return e.SelectProjectPermissionsOfAnonymous(ctx, projectID)
	}
	perms, err := e.store.SelectProjectPermissionsForUser(ctx, projectID, userID)
	if err != nil {
		return nil, err
	}
	return dedupStrings(perms), nil
}

// SelectProjectPermissionsOfAnonymous returns the permissions granted to
// Anyone on the project.
func (e *Engine) SelectProjectPermissionsOfAnonymous(ctx context.Context, projectID id.ProjectID) ([]string, error) {
	perms, err := e.store.SelectProjectPermissionsOfAnyone(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return dedupStrings(perms), nil
}

// KeepAuthorizedProjectIDs returns the subset of projectIDs the principal is
// authorized on under the permission. A nil userID means anonymous: only
// implicit public access and Anyone grants qualify. Result order is
// unspecified; the result is a set.
//
// Large candidate batches are partitioned into store-safe chunks and the
// per-chunk results merged. Chunking is invisible to callers: the outcome is
// identical for any chunk size. IDs that reference no existing project are
// dropped, never an error. Chunks are independent reads; callers needing a
// strictly consistent view across the whole batch wrap the call in their own
// store transaction.
func (e *Engine) KeepAuthorizedProjectIDs(ctx context.Context, projectIDs []id.ProjectID, userID id.UserID, permission string) ([]id.ProjectID, error) {
	if len(projectIDs) == 0 {
		return nil, nil
	}

	var authorized []id.ProjectID
	for _, window := range chunks(projectIDs, e.config.chunkSize()) {
		var (
			kept []id.ProjectID
			err  error
		)
		if userID.IsNil() {
			kept, err = e.store.KeepAuthorizedProjectIDsForAnyone(ctx, window, permission)
		} else {
			kept, err = e.store.KeepAuthorizedProjectIDs(ctx, window, userID, permission)
		}
		if err != nil {
			return nil, err
		}
		authorized = append(authorized, kept...)
	}
	return dedupIDs(authorized), nil
}

// KeepAuthorizedUserIDs returns the subset of userIDs authorized for the
// permission on the project, via direct grant, group grant, or implicit
// public access. Anyone grants on the project never qualify a named user:
// they authorize anonymous access only. Same chunking contract as
// KeepAuthorizedProjectIDs.
func (e *Engine) KeepAuthorizedUserIDs(ctx context.Context, userIDs []id.UserID, permission string, projectID id.ProjectID) ([]id.UserID, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	var authorized []id.UserID
	for _, window := range chunks(userIDs, e.config.chunkSize()) {
		kept, err := e.store.KeepAuthorizedUserIDs(ctx, window, permission, projectID)
		if err != nil {
			return nil, err
		}
		authorized = append(authorized, kept...)
	}
	return dedupIDs(authorized), nil
}

// CountUsersWithGlobalPermissionExcludingGroup counts distinct users holding
// the global permission while disregarding the excluded group's
// membership-derived contribution. Answers "how many administrators remain
// if this group grant goes away" without mutating anything. An unknown
// group leaves the count unchanged.
func (e *Engine) CountUsersWithGlobalPermissionExcludingGroup(ctx context.Context, permission string, excludedGroupID id.GroupID) (int, error) {
	return e.store.CountUsersWithGlobalPermissionExcludingGroup(ctx, permission, excludedGroupID)
}

// CountUsersWithGlobalPermissionExcludingUser is the direct-grant variant:
// it disregards the excluded user's own grant but still counts the user when
// a group path applies. An unknown user leaves the count unchanged.
func (e *Engine) CountUsersWithGlobalPermissionExcludingUser(ctx context.Context, permission string, excludedUserID id.UserID) (int, error) {
	return e.store.CountUsersWithGlobalPermissionExcludingUser(ctx, permission, excludedUserID)
}

// SelectUserIDsWithGlobalPermission returns the distinct users holding the
// global permission directly or through group membership.
func (e *Engine) SelectUserIDsWithGlobalPermission(ctx context.Context, permission string) ([]id.UserID, error) {
	ids, err := e.store.SelectUserIDsWithGlobalPermission(ctx, permission)
	if err != nil {
		return nil, err
	}
	return dedupIDs(ids), nil
}

// SelectPrincipalsWithPermissionOnProjectBut returns every principal holding
// some permission on the project but not the given one. Principals with no
// permission on the project at all are absent.
func (e *Engine) SelectPrincipalsWithPermissionOnProjectBut(ctx context.Context, projectID id.ProjectID, permission string) ([]principal.Ref, error) {
	return e.store.SelectPrincipalsWithPermissionOnProjectBut(ctx, projectID, permission)
}

// dedupStrings returns the sorted distinct values of in.
func dedupStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// dedupIDs returns the sorted distinct values of in.
func dedupIDs(in []id.ID) []id.ID {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]id.ID, 0, len(in))
	for _, v := range in {
		key := v.String()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
