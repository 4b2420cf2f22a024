// Package memory provides an in-memory implementation of the hallpass
// composite store. It is intended for testing and development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/xraph/hallpass/audit"
	"github.com/xraph/hallpass/grant"
	"github.com/xraph/hallpass/id"
	"github.com/xraph/hallpass/permission"
	"github.com/xraph/hallpass/principal"
	"github.com/xraph/hallpass/project"
	"github.com/xraph/hallpass/store"
)

// Compile-time interface checks.
var (
	_ principal.Store = (*Store)(nil)
	_ project.Store   = (*Store)(nil)
	_ grant.Store     = (*Store)(nil)
	_ audit.Store     = (*Store)(nil)
	_ store.Store     = (*Store)(nil)
)

// Store is a thread-safe in-memory store for all hallpass entities.
type Store struct {
	mu sync.RWMutex

	users    map[string]*principal.User
	groups   map[string]*principal.Group
	members  map[string]map[string]struct{} // groupID -> set of userIDs
	projects map[string]*project.Project
	grants   map[string]*grant.Grant
	auditLog []*audit.Entry // append order, oldest first
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		users:    make(map[string]*principal.User),
		groups:   make(map[string]*principal.Group),
		members:  make(map[string]map[string]struct{}),
		projects: make(map[string]*project.Project),
		grants:   make(map[string]*grant.Grant),
	}
}

// Migrate is a no-op for the memory store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping is a no-op for the memory store.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (s *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// Principal Store
// ──────────────────────────────────────────────────

func (s *Store) CreateUser(_ context.Context, u *principal.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID.String()] = copyUser(u)
	return nil
}

func (s *Store) GetUser(_ context.Context, userID id.UserID) (*principal.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID.String()]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, errNotFound)
	}
	return copyUser(u), nil
}

func (s *Store) DeleteUser(_ context.Context, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	uk := userID.String()
	delete(s.users, uk)
	for _, set := range s.members {
		delete(set, uk)
	}
	return nil
}

func (s *Store) CreateGroup(_ context.Context, g *principal.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[g.ID.String()] = copyGroup(g)
	return nil
}

func (s *Store) GetGroup(_ context.Context, groupID id.GroupID) (*principal.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[groupID.String()]
	if !ok {
		return nil, fmt.Errorf("group %s: %w", groupID, errNotFound)
	}
	return copyGroup(g), nil
}

func (s *Store) DeleteGroup(_ context.Context, groupID id.GroupID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	gk := groupID.String()
	delete(s.groups, gk)
	delete(s.members, gk)
	return nil
}

func (s *Store) AddMember(_ context.Context, groupID id.GroupID, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	gk := groupID.String()
	if s.members[gk] == nil {
		s.members[gk] = make(map[string]struct{})
	}
	s.members[gk][userID.String()] = struct{}{}
	return nil
}

func (s *Store) RemoveMember(_ context.Context, groupID id.GroupID, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if set, ok := s.members[groupID.String()]; ok {
		delete(set, userID.String())
	}
	return nil
}

func (s *Store) SelectGroupIDsForUser(_ context.Context, userID id.UserID) ([]id.GroupID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	uk := userID.String()
	var result []id.GroupID
	for gk, set := range s.members {
		if _, ok := set[uk]; !ok {
			continue
		}
		if g, ok := s.groups[gk]; ok {
			result = append(result, g.ID)
		}
	}
	return result, nil
}

// ──────────────────────────────────────────────────
// Project Store
// ──────────────────────────────────────────────────

func (s *Store) CreateProject(_ context.Context, p *project.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[p.ID.String()] = copyProject(p)
	return nil
}

func (s *Store) GetProject(_ context.Context, projectID id.ProjectID) (*project.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[projectID.String()]
	if !ok {
		return nil, fmt.Errorf("project %s: %w", projectID, errNotFound)
	}
	return copyProject(p), nil
}

func (s *Store) UpdateVisibility(_ context.Context, projectID id.ProjectID, private bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[projectID.String()]
	if !ok {
		return fmt.Errorf("project %s: %w", projectID, errNotFound)
	}
	p.Private = private
	return nil
}

func (s *Store) DeleteProject(_ context.Context, projectID id.ProjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.projects, projectID.String())
	return nil
}

func (s *Store) SelectByIDs(_ context.Context, projectIDs []id.ProjectID) ([]*project.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*project.Project
	for _, pid := range projectIDs {
		if p, ok := s.projects[pid.String()]; ok {
			result = append(result, copyProject(p))
		}
	}
	return result, nil
}

// ──────────────────────────────────────────────────
// Grant Store: resolution primitives
// ──────────────────────────────────────────────────

func (s *Store) SelectGlobalPermissionsForUser(_ context.Context, userID id.UserID) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	groups := s.groupKeysOf(userID.String())
	var perms []string
	for _, g := range s.grants {
		if g.Global() && s.refAppliesTo(g.Principal, userID.String(), groups) {
			perms = append(perms, g.Permission)
		}
	}
	return perms, nil
}

func (s *Store) SelectGlobalPermissionsOfAnyone(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var perms []string
	for _, g := range s.grants {
		if g.Global() && g.Principal.IsAnyone() {
			perms = append(perms, g.Permission)
		}
	}
	return perms, nil
}

func (s *Store) SelectProjectPermissionsForUser(_ context.Context, projectID id.ProjectID, userID id.UserID) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	groups := s.groupKeysOf(userID.String())
	pk := projectID.String()
	var perms []string
	for _, g := range s.grants {
		if g.ProjectID.String() == pk && !g.Global() && s.refAppliesTo(g.Principal, userID.String(), groups) {
			perms = append(perms, g.Permission)
		}
	}
	return perms, nil
}

func (s *Store) SelectProjectPermissionsOfAnyone(_ context.Context, projectID id.ProjectID) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pk := projectID.String()
	var perms []string
	for _, g := range s.grants {
		if g.ProjectID.String() == pk && !g.Global() && g.Principal.IsAnyone() {
			perms = append(perms, g.Permission)
		}
	}
	return perms, nil
}

func (s *Store) KeepAuthorizedProjectIDs(_ context.Context, projectIDs []id.ProjectID, userID id.UserID, perm string) ([]id.ProjectID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	groups := s.groupKeysOf(userID.String())
	var kept []id.ProjectID
	for _, pid := range projectIDs {
		p, ok := s.projects[pid.String()]
		if !ok {
			continue
		}
		if p.Public() && permission.IsPublicKey(perm) {
			kept = append(kept, pid)
			continue
		}
		if s.hasProjectGrant(pid.String(), perm, userID.String(), groups, true) {
			kept = append(kept, pid)
		}
	}
	return kept, nil
}

func (s *Store) KeepAuthorizedProjectIDsForAnyone(_ context.Context, projectIDs []id.ProjectID, perm string) ([]id.ProjectID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var kept []id.ProjectID
	for _, pid := range projectIDs {
		p, ok := s.projects[pid.String()]
		if !ok {
			continue
		}
		if p.Public() && permission.IsPublicKey(perm) {
			kept = append(kept, pid)
			continue
		}
		if s.hasProjectGrant(pid.String(), perm, "", nil, true) {
			kept = append(kept, pid)
		}
	}
	return kept, nil
}

func (s *Store) KeepAuthorizedUserIDs(_ context.Context, userIDs []id.UserID, perm string, projectID id.ProjectID) ([]id.UserID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, projectExists := s.projects[projectID.String()]
	implicit := projectExists && p.Public() && permission.IsPublicKey(perm)
	var kept []id.UserID
	for _, uid := range userIDs {
		if _, ok := s.users[uid.String()]; !ok {
			continue
		}
		if implicit {
			kept = append(kept, uid)
			continue
		}
		groups := s.groupKeysOf(uid.String())
		// Anyone grants authorize anonymous access, never a named user.
		if s.hasProjectGrant(projectID.String(), perm, uid.String(), groups, false) {
			kept = append(kept, uid)
		}
	}
	return kept, nil
}

func (s *Store) CountUsersWithGlobalPermissionExcludingGroup(_ context.Context, perm string, excludedGroupID id.GroupID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countGlobalHolders(perm, excludedGroupID.String(), ""), nil
}

func (s *Store) CountUsersWithGlobalPermissionExcludingUser(_ context.Context, perm string, excludedUserID id.UserID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countGlobalHolders(perm, "", excludedUserID.String()), nil
}

func (s *Store) SelectUserIDsWithGlobalPermission(_ context.Context, perm string) ([]id.UserID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []id.UserID
	for uk, u := range s.users {
		if s.holdsGlobalDirect(uk, perm) || s.holdsGlobalViaGroup(uk, perm, "") {
			result = append(result, u.ID)
		}
	}
	return result, nil
}

func (s *Store) SelectPrincipalsWithPermissionOnProjectBut(_ context.Context, projectID id.ProjectID, perm string) ([]principal.Ref, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pk := projectID.String()
	held := make(map[string]map[string]struct{}) // ref key -> set of permissions
	refs := make(map[string]principal.Ref)
	for _, g := range s.grants {
		if g.Global() || g.ProjectID.String() != pk {
			continue
		}
		rk := g.Principal.String()
		if held[rk] == nil {
			held[rk] = make(map[string]struct{})
			refs[rk] = g.Principal
		}
		held[rk][g.Permission] = struct{}{}
	}
	var result []principal.Ref
	for rk, perms := range held {
		if _, ok := perms[perm]; ok {
			continue
		}
		result = append(result, refs[rk])
	}
	sort.Slice(result, func(i, j int) bool { return result[i].String() < result[j].String() })
	return result, nil
}

// ──────────────────────────────────────────────────
// Grant Store: query-driven listings
// ──────────────────────────────────────────────────

func (s *Store) SelectUserIDsByQuery(_ context.Context, q *grant.PermissionQuery) ([]id.UserID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := s.usersByQuery(q)
	result := make([]id.UserID, 0, len(users))
	for _, u := range users {
		result = append(result, u.ID)
	}
	return paginate(result, q.PageOffset(), q.PageSize()), nil
}

func (s *Store) CountUsersByQuery(_ context.Context, q *grant.PermissionQuery) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.usersByQuery(q)), nil
}

func (s *Store) SelectGroupNamesByQuery(_ context.Context, q *grant.PermissionQuery) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return paginate(s.groupNamesByQuery(q), q.PageOffset(), q.PageSize()), nil
}

func (s *Store) CountGroupsByQuery(_ context.Context, q *grant.PermissionQuery) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.groupNamesByQuery(q)), nil
}

// ──────────────────────────────────────────────────
// Grant Store: mutation
// ──────────────────────────────────────────────────

func (s *Store) InsertGrant(_ context.Context, g *grant.Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grants[g.ID.String()] = copyGrant(g)
	return nil
}

func (s *Store) DeleteGrant(_ context.Context, ref principal.Ref, perm string, projectID id.ProjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for k, g := range s.grants {
		if g.Permission == perm && g.ProjectID.String() == projectID.String() && sameRef(g.Principal, ref) {
			delete(s.grants, k)
			count++
		}
	}
	return count, nil
}

func (s *Store) DeleteGrantsByProject(_ context.Context, projectID id.ProjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pk := projectID.String()
	var count int64
	for k, g := range s.grants {
		if !g.Global() && g.ProjectID.String() == pk {
			delete(s.grants, k)
			count++
		}
	}
	return count, nil
}

func (s *Store) DeleteGrantsByProjectAndPrincipal(_ context.Context, projectID id.ProjectID, ref principal.Ref) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pk := projectID.String()
	var count int64
	for k, g := range s.grants {
		if !g.Global() && g.ProjectID.String() == pk && sameRef(g.Principal, ref) {
			delete(s.grants, k)
			count++
		}
	}
	return count, nil
}

func (s *Store) DeleteGrantsByProjectAndPermission(_ context.Context, projectID id.ProjectID, perm string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pk := projectID.String()
	var count int64
	for k, g := range s.grants {
		if !g.Global() && g.ProjectID.String() == pk && g.Permission == perm {
			delete(s.grants, k)
			count++
		}
	}
	return count, nil
}

// ──────────────────────────────────────────────────
// Audit Store
// ──────────────────────────────────────────────────

func (s *Store) InsertAuditEntry(_ context.Context, e *audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auditLog = append(s.auditLog, copyAuditEntry(e))
	return nil
}

func (s *Store) SelectAuditEntries(_ context.Context, filter *audit.QueryFilter) ([]*audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*audit.Entry
	for i := len(s.auditLog) - 1; i >= 0; i-- {
		e := s.auditLog[i]
		if filter != nil {
			if filter.Action != "" && e.Action != filter.Action {
				continue
			}
			if filter.Permission != "" && e.Permission != filter.Permission {
				continue
			}
			if filter.UserID != "" && e.UserID.String() != filter.UserID {
				continue
			}
			if filter.GroupID != "" && e.GroupID.String() != filter.GroupID {
				continue
			}
			if filter.ProjectID != "" && e.ProjectID.String() != filter.ProjectID {
				continue
			}
			if filter.After != nil && e.At.Before(*filter.After) {
				continue
			}
			if filter.Before != nil && e.At.After(*filter.Before) {
				continue
			}
		}
		result = append(result, copyAuditEntry(e))
	}
	if filter != nil {
		result = paginate(result, filter.Offset, filter.Limit)
	}
	return result, nil
}

func (s *Store) PurgeAuditEntries(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []*audit.Entry
	var count int64
	for _, e := range s.auditLog {
		if e.At.Before(before) {
			count++
			continue
		}
		kept = append(kept, e)
	}
	s.auditLog = kept
	return count, nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

var errNotFound = fmt.Errorf("not found")

// groupKeysOf returns the keys of every existing group the user belongs to.
// Callers hold at least a read lock.
func (s *Store) groupKeysOf(userKey string) map[string]struct{} {
	groups := make(map[string]struct{})
	for gk, set := range s.members {
		if _, ok := set[userKey]; !ok {
			continue
		}
		if _, ok := s.groups[gk]; ok {
			groups[gk] = struct{}{}
		}
	}
	return groups
}

// refAppliesTo reports whether a grant principal reaches the user: the user
// directly, one of the user's groups, or Anyone.
func (s *Store) refAppliesTo(ref principal.Ref, userKey string, groups map[string]struct{}) bool {
	switch ref.Kind {
	case principal.KindUser:
		return ref.ID.String() == userKey
	case principal.KindGroup:
		_, ok := groups[ref.ID.String()]
		return ok
	case principal.KindAnyone:
		return true
	}
	return false
}

// hasProjectGrant reports whether a grant with the permission exists on the
// project for the user, the user's groups, or (when includeAnyone) Anyone. An
// empty userKey matches no user- or group-scoped grant.
func (s *Store) hasProjectGrant(projectKey, perm, userKey string, groups map[string]struct{}, includeAnyone bool) bool {
	for _, g := range s.grants {
		if g.Global() || g.ProjectID.String() != projectKey || g.Permission != perm {
			continue
		}
		switch g.Principal.Kind {
		case principal.KindUser:
			if userKey != "" && g.Principal.ID.String() == userKey {
				return true
			}
		case principal.KindGroup:
			if _, ok := groups[g.Principal.ID.String()]; ok {
				return true
			}
		case principal.KindAnyone:
			if includeAnyone {
				return true
			}
		}
	}
	return false
}

func (s *Store) holdsGlobalDirect(userKey, perm string) bool {
	for _, g := range s.grants {
		if g.Global() && g.Permission == perm && g.Principal.Kind == principal.KindUser && g.Principal.ID.String() == userKey {
			return true
		}
	}
	return false
}

func (s *Store) holdsGlobalViaGroup(userKey, perm, excludedGroupKey string) bool {
	for _, g := range s.grants {
		if !g.Global() || g.Permission != perm || g.Principal.Kind != principal.KindGroup {
			continue
		}
		gk := g.Principal.ID.String()
		if gk == excludedGroupKey {
			continue
		}
		if set, ok := s.members[gk]; ok {
			if _, ok := set[userKey]; ok {
				return true
			}
		}
	}
	return false
}

// countGlobalHolders counts distinct users holding the permission globally
// through the direct or group path. Anyone grants authorize anonymous access
// and never contribute a named holder to this count. The excluded group's
// membership path and the excluded user's direct path are disregarded.
func (s *Store) countGlobalHolders(perm, excludedGroupKey, excludedUserKey string) int {
	count := 0
	for uk := range s.users {
		if uk != excludedUserKey && s.holdsGlobalDirect(uk, perm) {
			count++
			continue
		}
		if s.holdsGlobalViaGroup(uk, perm, excludedGroupKey) {
			count++
		}
	}
	return count
}

// grantInScope reports whether the grant falls in the query's scope and
// matches its permission filter.
func grantInScope(g *grant.Grant, q *grant.PermissionQuery) bool {
	if q.GlobalScope() {
		if !g.Global() {
			return false
		}
	} else if g.Global() || g.ProjectID.String() != q.ProjectID().String() {
		return false
	}
	if p := q.Permission(); p != "" && g.Permission != p {
		return false
	}
	return true
}

func (s *Store) userHoldsInScope(userKey string, q *grant.PermissionQuery) bool {
	for _, g := range s.grants {
		if g.Principal.Kind == principal.KindUser && g.Principal.ID.String() == userKey && grantInScope(g, q) {
			return true
		}
	}
	return false
}

func (s *Store) groupHoldsInScope(groupKey string, q *grant.PermissionQuery) bool {
	for _, g := range s.grants {
		if g.Principal.Kind == principal.KindGroup && g.Principal.ID.String() == groupKey && grantInScope(g, q) {
			return true
		}
	}
	return false
}

func (s *Store) anyoneHoldsInScope(q *grant.PermissionQuery) bool {
	for _, g := range s.grants {
		if g.Principal.IsAnyone() && grantInScope(g, q) {
			return true
		}
	}
	return false
}

func matchesSearch(search string, fields ...string) bool {
	if search == "" {
		return true
	}
	needle := strings.ToLower(search)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

// usersByQuery returns the full ordered candidate list, before pagination.
// Holders of a qualifying grant come first, then non-holders, each partition
// ordered by case-insensitive name.
func (s *Store) usersByQuery(q *grant.PermissionQuery) []*principal.User {
	type ranked struct {
		user   *principal.User
		holder bool
	}
	var candidates []ranked
	for uk, u := range s.users {
		if !matchesSearch(q.SearchQuery(), u.Name, u.Login, u.Email) {
			continue
		}
		holder := s.userHoldsInScope(uk, q)
		if q.WithAtLeastOnePermission() && !holder {
			continue
		}
		candidates = append(candidates, ranked{user: u, holder: holder})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].holder != candidates[j].holder {
			return candidates[i].holder
		}
		ni, nj := strings.ToLower(candidates[i].user.Name), strings.ToLower(candidates[j].user.Name)
		if ni != nj {
			return ni < nj
		}
		return candidates[i].user.Login < candidates[j].user.Login
	})
	result := make([]*principal.User, len(candidates))
	for i, c := range candidates {
		result[i] = c.user
	}
	return result
}

// groupNamesByQuery returns the full ordered name list, before pagination.
// The Anyone pseudo-entry is pinned first when it qualifies; named groups
// follow holders-first, then case-insensitive name.
func (s *Store) groupNamesByQuery(q *grant.PermissionQuery) []string {
	type ranked struct {
		name   string
		holder bool
	}
	var candidates []ranked
	for gk, g := range s.groups {
		if !matchesSearch(q.SearchQuery(), g.Name) {
			continue
		}
		holder := s.groupHoldsInScope(gk, q)
		if q.WithAtLeastOnePermission() && !holder {
			continue
		}
		candidates = append(candidates, ranked{name: g.Name, holder: holder})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].holder != candidates[j].holder {
			return candidates[i].holder
		}
		return strings.ToLower(candidates[i].name) < strings.ToLower(candidates[j].name)
	})

	result := make([]string, 0, len(candidates)+1)
	if matchesSearch(q.SearchQuery(), principal.AnyoneName) {
		anyoneHolder := s.anyoneHoldsInScope(q)
		if anyoneHolder || !q.WithAtLeastOnePermission() {
			result = append(result, principal.AnyoneName)
		}
	}
	for _, c := range candidates {
		result = append(result, c.name)
	}
	return result
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func copyUser(u *principal.User) *principal.User {
	c := *u
	return &c
}

func copyGroup(g *principal.Group) *principal.Group {
	c := *g
	return &c
}

func copyProject(p *project.Project) *project.Project {
	c := *p
	return &c
}

func copyGrant(g *grant.Grant) *grant.Grant {
	c := *g
	return &c
}

func copyAuditEntry(e *audit.Entry) *audit.Entry {
	c := *e
	return &c
}

func sameRef(a, b principal.Ref) bool {
	if a.Kind != b.Kind {
		return false
	}
	if a.Kind == principal.KindAnyone {
		return true
	}
	return a.ID.String() == b.ID.String()
}
