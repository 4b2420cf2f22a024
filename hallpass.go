// Package hallpass resolves authorization for projects and platform-wide
// operations.
//
// The engine reconciles direct user grants, group grants through
// membership, and wildcard Anyone grants against each
// project's public/private visibility, and answers both directions of the
// question: which projects may this principal act on, and which principals
// hold a permission on this project (or globally).
//
//	eng, err := hallpass.NewEngine(
//	    hallpass.WithStore(memStore),
//	)
//	authorized, err := eng.KeepAuthorizedProjectIDs(ctx, candidates, userID, permission.ProjectUser)
//
// All resolution calls are pure reads over an externally-owned grant store
// and may run concurrently without coordination. Grant mutations notify the
// registered audit sinks synchronously, and only when storage was actually
// affected.
package hallpass

import "github.com/xraph/hallpass/grant"

// PermissionQuery is the validated, immutable descriptor of a principal
// listing request. See grant.PermissionQuery.
type PermissionQuery = grant.PermissionQuery

// QueryBuilder assembles a PermissionQuery. See grant.QueryBuilder.
type QueryBuilder = grant.QueryBuilder

// NewQueryBuilder returns a query builder with default pagination.
func NewQueryBuilder() *QueryBuilder { return grant.NewQueryBuilder() }
