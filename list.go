package hallpass

import (
	"context"

	"github.com/xraph/hallpass/grant"
	"github.com/xraph/hallpass/id"
)

// SelectUserIDsByQuery returns one page of user IDs matching the query.
// Users holding at least one qualifying grant in the requested scope come
// first, then users holding none; within each partition users are ordered by
// case-insensitive name. The partition is computed over all candidates
// before pagination, so it is stable across page boundaries.
func (e *Engine) SelectUserIDsByQuery(ctx context.Context, q *grant.PermissionQuery) ([]id.UserID, error) {
	return e.store.SelectUserIDsByQuery(ctx, q)
}

// CountUsersByQuery returns the total number of users matching the query,
// ignoring pagination.
func (e *Engine) CountUsersByQuery(ctx context.Context, q *grant.PermissionQuery) (int, error) {
	return e.store.CountUsersByQuery(ctx, q)
}

// SelectGroupNamesByQuery returns one page of group names matching the
// query. The Anyone pseudo-entry is pinned before all named groups when it
// qualifies; named groups follow the same holders-first, then
// case-insensitive-name order as user listings.
func (e *Engine) SelectGroupNamesByQuery(ctx context.Context, q *grant.PermissionQuery) ([]string, error) {
	return e.store.SelectGroupNamesByQuery(ctx, q)
}

// CountGroupsByQuery returns the total number of groups matching the query,
// including the Anyone pseudo-entry, ignoring pagination.
func (e *Engine) CountGroupsByQuery(ctx context.Context, q *grant.PermissionQuery) (int, error) {
	return e.store.CountGroupsByQuery(ctx, q)
}
