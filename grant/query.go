package grant

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xraph/hallpass/id"
)

// Pagination and search bounds for PermissionQuery.
const (
	DefaultPageSize      = 20
	DefaultPageIndex     = 1
	SearchQueryMinLength = 3
)

// Query validation errors.
var (
	// ErrEmptyPermission is returned when a permission filter is set to the
	// empty string.
	ErrEmptyPermission = errors.New("grant: permission filter must not be empty")

	// ErrPermissionRequired is returned when a query carries neither a
	// permission filter nor the at-least-one-permission flag. A caller must
	// supply a permission or explicitly opt into at-least-one-permission
	// mode.
	ErrPermissionRequired = errors.New("grant: a permission or at-least-one-permission mode is required")

	// ErrSearchTooShort is returned when the free-text search is shorter
	// than SearchQueryMinLength after trimming.
	ErrSearchTooShort = fmt.Errorf("grant: search query must be at least %d characters", SearchQueryMinLength)
)

// PermissionQuery is an immutable, validated descriptor of a principal
// listing request against the grant relation: target scope (global or one
// project), optional permission filter, optional free-text search, the
// at-least-one-permission flag, and pagination.
//
// Listing operations consuming a query order principals holding at least one
// qualifying grant in the requested scope before principals holding none,
// and within each partition by case-insensitive name. The partition is
// computed over the full candidate set before pagination is applied.
type PermissionQuery struct {
	permission               string
	withAtLeastOnePermission bool
	projectID                id.ProjectID
	searchQuery              string
	pageSize                 int
	pageIndex                int
}

// Permission returns the permission filter, empty when unset.
func (q *PermissionQuery) Permission() string { return q.permission }

// WithAtLeastOnePermission reports whether only principals holding at least
// one grant in scope are listed.
func (q *PermissionQuery) WithAtLeastOnePermission() bool { return q.withAtLeastOnePermission }

// ProjectID returns the project scope; the Nil ID means global scope.
func (q *PermissionQuery) ProjectID() id.ProjectID { return q.projectID }

// GlobalScope reports whether the query targets global grants.
func (q *PermissionQuery) GlobalScope() bool { return q.projectID.IsNil() }

// SearchQuery returns the free-text search, empty when unset.
func (q *PermissionQuery) SearchQuery() string { return q.searchQuery }

// PageSize returns the page size.
func (q *PermissionQuery) PageSize() int { return q.pageSize }

// PageIndex returns the 1-based page index.
func (q *PermissionQuery) PageIndex() int { return q.pageIndex }

// PageOffset returns the number of principals to skip before the page.
func (q *PermissionQuery) PageOffset() int { return (q.pageIndex - 1) * q.pageSize }

// QueryBuilder assembles a PermissionQuery. Validation happens in Build,
// never at use time.
type QueryBuilder struct {
	permission    string
	permissionSet bool
	atLeastOne    bool
	projectID     id.ProjectID
	searchQuery   string
	pageSize      int
	pageIndex     int
}

// NewQueryBuilder returns a builder with default pagination.
func NewQueryBuilder() *QueryBuilder {
	return &QueryBuilder{
		pageSize:  DefaultPageSize,
		pageIndex: DefaultPageIndex,
	}
}

// SetPermission names the permission that makes a principal a holder for
// ordering purposes. Combined with SetWithAtLeastOnePermission the listing
// drops non-holders entirely.
func (b *QueryBuilder) SetPermission(permission string) *QueryBuilder {
	b.permission = permission
	b.permissionSet = true
	return b
}

// SetWithAtLeastOnePermission restricts the listing to principals holding at
// least one grant in the requested scope.
func (b *QueryBuilder) SetWithAtLeastOnePermission() *QueryBuilder {
	b.atLeastOne = true
	return b
}

// SetProject scopes the query to a single project. Without a project scope
// the query targets global grants.
func (b *QueryBuilder) SetProject(projectID id.ProjectID) *QueryBuilder {
	b.projectID = projectID
	return b
}

// SetSearchQuery filters principals by name, login, or email.
func (b *QueryBuilder) SetSearchQuery(search string) *QueryBuilder {
	b.searchQuery = strings.TrimSpace(search)
	return b
}

// SetPageSize overrides the default page size.
func (b *QueryBuilder) SetPageSize(size int) *QueryBuilder {
	b.pageSize = size
	return b
}

// SetPageIndex overrides the default 1-based page index.
func (b *QueryBuilder) SetPageIndex(index int) *QueryBuilder {
	b.pageIndex = index
	return b
}

// Build validates the builder and returns the immutable query.
func (b *QueryBuilder) Build() (*PermissionQuery, error) {
	if b.permissionSet && b.permission == "" {
		return nil, ErrEmptyPermission
	}
	if !b.permissionSet && !b.atLeastOne {
		return nil, ErrPermissionRequired
	}
	if b.searchQuery != "" && len(b.searchQuery) < SearchQueryMinLength {
		return nil, ErrSearchTooShort
	}
	if b.pageSize <= 0 {
		return nil, fmt.Errorf("grant: page size must be positive, got %d", b.pageSize)
	}
	if b.pageIndex < 1 {
		return nil, fmt.Errorf("grant: page index must be >= 1, got %d", b.pageIndex)
	}

	return &PermissionQuery{
		permission:               b.permission,
		withAtLeastOnePermission: b.atLeastOne,
		projectID:                b.projectID,
		searchQuery:              b.searchQuery,
		pageSize:                 b.pageSize,
		pageIndex:                b.pageIndex,
	}, nil
}
