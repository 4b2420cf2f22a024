// Package sqlite provides a SQLite implementation of the hallpass composite
// store using grove ORM. Suited for embedded and single-node deployments.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/hallpass/audit"
	"github.com/xraph/hallpass/grant"
	"github.com/xraph/hallpass/id"
	"github.com/xraph/hallpass/permission"
	"github.com/xraph/hallpass/principal"
	"github.com/xraph/hallpass/project"
	"github.com/xraph/hallpass/store"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// errNotFound is the sentinel for missing entities.
var errNotFound = fmt.Errorf("not found")

// Store is a SQLite implementation of the composite hallpass store.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// Migrate runs programmatic migrations via the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("hallpass/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("hallpass/sqlite: migration failed: %w", err)
	}
	return nil
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// ──────────────────────────────────────────────────
// Principal operations
// ──────────────────────────────────────────────────

func (s *Store) CreateUser(ctx context.Context, u *principal.User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	m := userToModel(u)
	if _, err := s.sdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("hallpass: create user: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, userID id.UserID) (*principal.User, error) {
	m := new(userModel)
	err := s.sdb.NewSelect(m).Where("id = ?", userID.String()).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("user %s: %w", userID, errNotFound)
		}
		return nil, fmt.Errorf("hallpass: get user: %w", err)
	}
	return userFromModel(m), nil
}

func (s *Store) DeleteUser(ctx context.Context, userID id.UserID) error {
	// Memberships are removed by the FK cascade.
	_, err := s.sdb.NewDelete((*userModel)(nil)).
		Where("id = ?", userID.String()).Exec(ctx)
	if err != nil {
		return fmt.Errorf("hallpass: delete user: %w", err)
	}
	return nil
}

func (s *Store) CreateGroup(ctx context.Context, g *principal.Group) error {
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	m := groupToModel(g)
	if _, err := s.sdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("hallpass: create group: %w", err)
	}
	return nil
}

func (s *Store) GetGroup(ctx context.Context, groupID id.GroupID) (*principal.Group, error) {
	m := new(groupModel)
	err := s.sdb.NewSelect(m).Where("id = ?", groupID.String()).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("group %s: %w", groupID, errNotFound)
		}
		return nil, fmt.Errorf("hallpass: get group: %w", err)
	}
	return groupFromModel(m), nil
}

func (s *Store) DeleteGroup(ctx context.Context, groupID id.GroupID) error {
	_, err := s.sdb.NewDelete((*groupModel)(nil)).
		Where("id = ?", groupID.String()).Exec(ctx)
	if err != nil {
		return fmt.Errorf("hallpass: delete group: %w", err)
	}
	return nil
}

func (s *Store) AddMember(ctx context.Context, groupID id.GroupID, userID id.UserID) error {
	m := &memberModel{
		GroupID: groupID.String(),
		UserID:  userID.String(),
	}
	_, err := s.sdb.NewInsert(m).
		OnConflict("(group_id, user_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("hallpass: add member: %w", err)
	}
	return nil
}

func (s *Store) RemoveMember(ctx context.Context, groupID id.GroupID, userID id.UserID) error {
	_, err := s.sdb.NewDelete((*memberModel)(nil)).
		Where("group_id = ?", groupID.String()).
		Where("user_id = ?", userID.String()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("hallpass: remove member: %w", err)
	}
	return nil
}

func (s *Store) SelectGroupIDsForUser(ctx context.Context, userID id.UserID) ([]id.GroupID, error) {
	var models []memberModel
	err := s.sdb.NewSelect(&models).
		Where("user_id = ?", userID.String()).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("hallpass: select group ids for user: %w", err)
	}
	result := make([]id.GroupID, 0, len(models))
	for _, m := range models {
		gid, err := id.ParseGroupID(m.GroupID)
		if err == nil {
			result = append(result, gid)
		}
	}
	return result, nil
}

// ──────────────────────────────────────────────────
// Project operations
// ──────────────────────────────────────────────────

func (s *Store) CreateProject(ctx context.Context, p *project.Project) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	m := projectToModel(p)
	if _, err := s.sdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("hallpass: create project: %w", err)
	}
	return nil
}

func (s *Store) GetProject(ctx context.Context, projectID id.ProjectID) (*project.Project, error) {
	m := new(projectModel)
	err := s.sdb.NewSelect(m).Where("id = ?", projectID.String()).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("project %s: %w", projectID, errNotFound)
		}
		return nil, fmt.Errorf("hallpass: get project: %w", err)
	}
	return projectFromModel(m), nil
}

func (s *Store) UpdateVisibility(ctx context.Context, projectID id.ProjectID, private bool) error {
	_, err := s.sdb.NewUpdate((*projectModel)(nil)).
		Set("private = ?", private).
		Where("id = ?", projectID.String()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("hallpass: update visibility: %w", err)
	}
	return nil
}

func (s *Store) DeleteProject(ctx context.Context, projectID id.ProjectID) error {
	_, err := s.sdb.NewDelete((*projectModel)(nil)).
		Where("id = ?", projectID.String()).Exec(ctx)
	if err != nil {
		return fmt.Errorf("hallpass: delete project: %w", err)
	}
	return nil
}

func (s *Store) SelectByIDs(ctx context.Context, projectIDs []id.ProjectID) ([]*project.Project, error) {
	if len(projectIDs) == 0 {
		return nil, nil
	}
	var models []projectModel
	err := s.sdb.NewSelect(&models).
		Where("id IN (?)", idStrings(projectIDs)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("hallpass: select projects by ids: %w", err)
	}
	result := make([]*project.Project, len(models))
	for i := range models {
		result[i] = projectFromModel(&models[i])
	}
	return result, nil
}

// ──────────────────────────────────────────────────
// Grant resolution primitives
// ──────────────────────────────────────────────────

// reachesUserSQL matches grant rows whose principal reaches the named user:
// the user directly, any group the user belongs to, or Anyone.
const reachesUserSQL = `(principal_kind = 'anyone')
 OR (principal_kind = 'user' AND principal_id = ?)
 OR (principal_kind = 'group' AND principal_id IN (SELECT group_id FROM hallpass_group_members WHERE user_id = ?))`

func (s *Store) SelectGlobalPermissionsForUser(ctx context.Context, userID id.UserID) ([]string, error) {
	uk := userID.String()
	var models []grantModel
	err := s.sdb.NewSelect(&models).
		Where("project_id IS NULL").
		Where(reachesUserSQL, uk, uk).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("hallpass: select global permissions: %w", err)
	}
	return grantRoles(models), nil
}

func (s *Store) SelectGlobalPermissionsOfAnyone(ctx context.Context) ([]string, error) {
	var models []grantModel
	err := s.sdb.NewSelect(&models).
		Where("project_id IS NULL").
		Where("principal_kind = 'anyone'").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("hallpass: select global permissions of anyone: %w", err)
	}
	return grantRoles(models), nil
}

func (s *Store) SelectProjectPermissionsForUser(ctx context.Context, projectID id.ProjectID, userID id.UserID) ([]string, error) {
	uk := userID.String()
	var models []grantModel
	err := s.sdb.NewSelect(&models).
		Where("project_id = ?", projectID.String()).
		Where(reachesUserSQL, uk, uk).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("hallpass: select project permissions: %w", err)
	}
	return grantRoles(models), nil
}

func (s *Store) SelectProjectPermissionsOfAnyone(ctx context.Context, projectID id.ProjectID) ([]string, error) {
	var models []grantModel
	err := s.sdb.NewSelect(&models).
		Where("project_id = ?", projectID.String()).
		Where("principal_kind = 'anyone'").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("hallpass: select project permissions of anyone: %w", err)
	}
	return grantRoles(models), nil
}

func (s *Store) KeepAuthorizedProjectIDs(ctx context.Context, projectIDs []id.ProjectID, userID id.UserID, perm string) ([]id.ProjectID, error) {
	if len(projectIDs) == 0 {
		return nil, nil
	}
	keys := idStrings(projectIDs)
	authorized := make(map[string]struct{})

	if permission.IsPublicKey(perm) {
		if err := s.collectPublicProjects(ctx, keys, authorized); err != nil {
			return nil, err
		}
	}

	uk := userID.String()
	var models []grantModel
	err := s.sdb.NewSelect(&models).
		Join("JOIN", "hallpass_projects AS p", "p.id = hallpass_grants.project_id").
		Where("hallpass_grants.project_id IN (?)", keys).
		Where("role = ?", perm).
		Where(reachesUserSQL, uk, uk).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("hallpass: keep authorized project ids: %w", err)
	}
	for _, m := range models {
		if m.ProjectID != nil {
			authorized[*m.ProjectID] = struct{}{}
		}
	}
	return keepIDs(projectIDs, authorized), nil
}

func (s *Store) KeepAuthorizedProjectIDsForAnyone(ctx context.Context, projectIDs []id.ProjectID, perm string) ([]id.ProjectID, error) {
	if len(projectIDs) == 0 {
		return nil, nil
	}
	keys := idStrings(projectIDs)
	authorized := make(map[string]struct{})

	if permission.IsPublicKey(perm) {
		if err := s.collectPublicProjects(ctx, keys, authorized); err != nil {
			return nil, err
		}
	}

	var models []grantModel
	err := s.sdb.NewSelect(&models).
		Join("JOIN", "hallpass_projects AS p", "p.id = hallpass_grants.project_id").
		Where("hallpass_grants.project_id IN (?)", keys).
		Where("role = ?", perm).
		Where("principal_kind = 'anyone'").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("hallpass: keep authorized project ids for anyone: %w", err)
	}
	for _, m := range models {
		if m.ProjectID != nil {
			authorized[*m.ProjectID] = struct{}{}
		}
	}
	return keepIDs(projectIDs, authorized), nil
}

func (s *Store) KeepAuthorizedUserIDs(ctx context.Context, userIDs []id.UserID, perm string, projectID id.ProjectID) ([]id.UserID, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	keys := idStrings(userIDs)

	// Implicit access: every existing candidate qualifies on a public
	// project for the public permission keys.
	if permission.IsPublicKey(perm) {
		p, err := s.GetProject(ctx, projectID)
		if err == nil && p.Public() {
			var users []userModel
			err := s.sdb.NewSelect(&users).Where("id IN (?)", keys).Scan(ctx)
			if err != nil {
				return nil, fmt.Errorf("hallpass: keep authorized user ids: %w", err)
			}
			authorized := make(map[string]struct{}, len(users))
			for _, u := range users {
				authorized[u.ID] = struct{}{}
			}
			return keepIDs(userIDs, authorized), nil
		}
		if err != nil && !errors.Is(err, errNotFound) {
			return nil, err
		}
	}

	authorized := make(map[string]struct{})

	// Direct grants. Anyone grants are deliberately excluded: they
	// authorize anonymous access, never a named user.
	var direct []grantModel
	err := s.sdb.NewSelect(&direct).
		Join("JOIN", "hallpass_users AS u", "u.id = hallpass_grants.principal_id").
		Where("principal_kind = 'user'").
		Where("role = ?", perm).
		Where("project_id = ?", projectID.String()).
		Where("principal_id IN (?)", keys).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("hallpass: keep authorized user ids: %w", err)
	}
	for _, m := range direct {
		if m.PrincipalID != nil {
			authorized[*m.PrincipalID] = struct{}{}
		}
	}

	// Group grants, resolved through membership.
	var members []memberModel
	err = s.sdb.NewSelect(&members).
		Join("JOIN", "hallpass_grants AS g", "g.principal_id = hallpass_group_members.group_id").
		Where("g.principal_kind = 'group'").
		Where("g.role = ?", perm).
		Where("g.project_id = ?", projectID.String()).
		Where("hallpass_group_members.user_id IN (?)", keys).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("hallpass: keep authorized user ids via groups: %w", err)
	}
	for _, m := range members {
		authorized[m.UserID] = struct{}{}
	}
	return keepIDs(userIDs, authorized), nil
}

func (s *Store) CountUsersWithGlobalPermissionExcludingGroup(ctx context.Context, perm string, excludedGroupID id.GroupID) (int, error) {
	return s.countGlobalHolders(ctx, perm, excludedGroupID.String(), "")
}

func (s *Store) CountUsersWithGlobalPermissionExcludingUser(ctx context.Context, perm string, excludedUserID id.UserID) (int, error) {
	return s.countGlobalHolders(ctx, perm, "", excludedUserID.String())
}

func (s *Store) SelectUserIDsWithGlobalPermission(ctx context.Context, perm string) ([]id.UserID, error) {
	holders, err := s.globalHolderKeys(ctx, perm, "", "")
	if err != nil {
		return nil, err
	}
	result := make([]id.UserID, 0, len(holders))
	for uk := range holders {
		uid, err := id.ParseUserID(uk)
		if err == nil {
			result = append(result, uid)
		}
	}
	return result, nil
}

func (s *Store) SelectPrincipalsWithPermissionOnProjectBut(ctx context.Context, projectID id.ProjectID, perm string) ([]principal.Ref, error) {
	var models []grantModel
	err := s.sdb.NewSelect(&models).
		Where("project_id = ?", projectID.String()).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("hallpass: select principals with permission on project: %w", err)
	}
	return principalsWithoutRole(models, perm), nil
}

// ──────────────────────────────────────────────────
// Query-driven listings
// ──────────────────────────────────────────────────

func (s *Store) SelectUserIDsByQuery(ctx context.Context, q *grant.PermissionQuery) ([]id.UserID, error) {
	all, err := s.userIDsByQuery(ctx, q)
	if err != nil {
		return nil, err
	}
	return paginate(all, q.PageOffset(), q.PageSize()), nil
}

func (s *Store) CountUsersByQuery(ctx context.Context, q *grant.PermissionQuery) (int, error) {
	all, err := s.userIDsByQuery(ctx, q)
	if err != nil {
		return 0, err
	}
	return len(all), nil
}

func (s *Store) SelectGroupNamesByQuery(ctx context.Context, q *grant.PermissionQuery) ([]string, error) {
	all, err := s.groupNamesByQuery(ctx, q)
	if err != nil {
		return nil, err
	}
	return paginate(all, q.PageOffset(), q.PageSize()), nil
}

func (s *Store) CountGroupsByQuery(ctx context.Context, q *grant.PermissionQuery) (int, error) {
	all, err := s.groupNamesByQuery(ctx, q)
	if err != nil {
		return 0, err
	}
	return len(all), nil
}

// ──────────────────────────────────────────────────
// Grant mutation
// ──────────────────────────────────────────────────

func (s *Store) InsertGrant(ctx context.Context, g *grant.Grant) error {
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	m := grantToModel(g)
	if _, err := s.sdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("hallpass: insert grant: %w", err)
	}
	return nil
}

func (s *Store) DeleteGrant(ctx context.Context, ref principal.Ref, perm string, projectID id.ProjectID) (int64, error) {
	q := s.sdb.NewDelete((*grantModel)(nil)).
		Where("role = ?", perm)
	if projectID.IsNil() {
		q = q.Where("project_id IS NULL")
	} else {
		q = q.Where("project_id = ?", projectID.String())
	}
	if ref.Kind == principal.KindAnyone {
		q = q.Where("principal_kind = 'anyone'")
	} else {
		q = q.Where("principal_kind = ?", string(ref.Kind)).
			Where("principal_id = ?", ref.ID.String())
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("hallpass: delete grant: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("hallpass: delete grant rows: %w", err)
	}
	return n, nil
}

func (s *Store) DeleteGrantsByProject(ctx context.Context, projectID id.ProjectID) (int64, error) {
	res, err := s.sdb.NewDelete((*grantModel)(nil)).
		Where("project_id = ?", projectID.String()).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("hallpass: delete grants by project: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("hallpass: delete grants by project rows: %w", err)
	}
	return n, nil
}

func (s *Store) DeleteGrantsByProjectAndPrincipal(ctx context.Context, projectID id.ProjectID, ref principal.Ref) (int64, error) {
	q := s.sdb.NewDelete((*grantModel)(nil)).
		Where("project_id = ?", projectID.String())
	if ref.Kind == principal.KindAnyone {
		q = q.Where("principal_kind = 'anyone'")
	} else {
		q = q.Where("principal_kind = ?", string(ref.Kind)).
			Where("principal_id = ?", ref.ID.String())
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("hallpass: delete grants by project and principal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("hallpass: delete grants by project and principal rows: %w", err)
	}
	return n, nil
}

func (s *Store) DeleteGrantsByProjectAndPermission(ctx context.Context, projectID id.ProjectID, perm string) (int64, error) {
	res, err := s.sdb.NewDelete((*grantModel)(nil)).
		Where("project_id = ?", projectID.String()).
		Where("role = ?", perm).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("hallpass: delete grants by project and permission: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("hallpass: delete grants by project and permission rows: %w", err)
	}
	return n, nil
}

// ──────────────────────────────────────────────────
// Audit operations
// ──────────────────────────────────────────────────

func (s *Store) InsertAuditEntry(ctx context.Context, e *audit.Entry) error {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	m := auditToModel(e)
	if _, err := s.sdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("hallpass: insert audit entry: %w", err)
	}
	return nil
}

func (s *Store) SelectAuditEntries(ctx context.Context, filter *audit.QueryFilter) ([]*audit.Entry, error) {
	var models []auditModel
	q := s.sdb.NewSelect(&models).OrderExpr("recorded_at DESC")
	if filter != nil {
		if filter.Action != "" {
			q = q.Where("action = ?", string(filter.Action))
		}
		if filter.Permission != "" {
			q = q.Where("permission = ?", filter.Permission)
		}
		if filter.UserID != "" {
			q = q.Where("user_id = ?", filter.UserID)
		}
		if filter.GroupID != "" {
			q = q.Where("group_id = ?", filter.GroupID)
		}
		if filter.ProjectID != "" {
			q = q.Where("project_id = ?", filter.ProjectID)
		}
		if filter.After != nil {
			q = q.Where("recorded_at >= ?", *filter.After)
		}
		if filter.Before != nil {
			q = q.Where("recorded_at <= ?", *filter.Before)
		}
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("hallpass: select audit entries: %w", err)
	}
	result := make([]*audit.Entry, len(models))
	for i := range models {
		result[i] = auditFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) PurgeAuditEntries(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.sdb.NewDelete((*auditModel)(nil)).
		Where("recorded_at < ?", before).Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("hallpass: purge audit entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("hallpass: purge audit entries rows: %w", err)
	}
	return n, nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func (s *Store) collectPublicProjects(ctx context.Context, keys []string, into map[string]struct{}) error {
	var pubs []projectModel
	err := s.sdb.NewSelect(&pubs).
		Where("id IN (?)", keys).
		Where("private = ?", false).
		Scan(ctx)
	if err != nil {
		return fmt.Errorf("hallpass: select public projects: %w", err)
	}
	for _, p := range pubs {
		into[p.ID] = struct{}{}
	}
	return nil
}

// globalHolderKeys returns the keys of distinct users holding the permission
// globally through the direct or group path. The excluded group's membership
// contribution and the excluded user's direct grant are disregarded.
func (s *Store) globalHolderKeys(ctx context.Context, perm, excludedGroupKey, excludedUserKey string) (map[string]struct{}, error) {
	holders := make(map[string]struct{})

	var direct []grantModel
	directQ := s.sdb.NewSelect(&direct).
		Join("JOIN", "hallpass_users AS u", "u.id = hallpass_grants.principal_id").
		Where("principal_kind = 'user'").
		Where("role = ?", perm).
		Where("project_id IS NULL")
	if excludedUserKey != "" {
		directQ = directQ.Where("principal_id <> ?", excludedUserKey)
	}
	if err := directQ.Scan(ctx); err != nil {
		return nil, fmt.Errorf("hallpass: select direct global holders: %w", err)
	}
	for _, m := range direct {
		if m.PrincipalID != nil {
			holders[*m.PrincipalID] = struct{}{}
		}
	}

	var members []memberModel
	memberQ := s.sdb.NewSelect(&members).
		Join("JOIN", "hallpass_grants AS g", "g.principal_id = hallpass_group_members.group_id").
		Where("g.principal_kind = 'group'").
		Where("g.role = ?", perm).
		Where("g.project_id IS NULL")
	if excludedGroupKey != "" {
		memberQ = memberQ.Where("g.principal_id <> ?", excludedGroupKey)
	}
	if err := memberQ.Scan(ctx); err != nil {
		return nil, fmt.Errorf("hallpass: select group global holders: %w", err)
	}
	for _, m := range members {
		holders[m.UserID] = struct{}{}
	}
	return holders, nil
}

// countGlobalHolders counts distinct users holding the permission globally
// through the direct or group path. Anyone grants authorize anonymous access
// and never contribute a named holder to this count.
func (s *Store) countGlobalHolders(ctx context.Context, perm, excludedGroupKey, excludedUserKey string) (int, error) {
	holders, err := s.globalHolderKeys(ctx, perm, excludedGroupKey, excludedUserKey)
	if err != nil {
		return 0, err
	}
	return len(holders), nil
}

// userIDsByQuery returns the full ordered candidate list, before pagination.
// The holder partition is computed over all candidates so it stays stable
// across page boundaries.
func (s *Store) userIDsByQuery(ctx context.Context, q *grant.PermissionQuery) ([]id.UserID, error) {
	var users []userModel
	uq := s.sdb.NewSelect(&users).OrderExpr("LOWER(name) ASC, login ASC")
	if search := q.SearchQuery(); search != "" {
		pattern := "%" + search + "%"
		uq = uq.Where("LOWER(name) LIKE LOWER(?) OR LOWER(login) LIKE LOWER(?) OR LOWER(email) LIKE LOWER(?)", pattern, pattern, pattern)
	}
	if err := uq.Scan(ctx); err != nil {
		return nil, fmt.Errorf("hallpass: select users by query: %w", err)
	}

	var grants []grantModel
	gq := s.sdb.NewSelect(&grants).Where("principal_kind = 'user'")
	if q.GlobalScope() {
		gq = gq.Where("project_id IS NULL")
	} else {
		gq = gq.Where("project_id = ?", q.ProjectID().String())
	}
	if p := q.Permission(); p != "" {
		gq = gq.Where("role = ?", p)
	}
	if err := gq.Scan(ctx); err != nil {
		return nil, fmt.Errorf("hallpass: select user grants by query: %w", err)
	}
	holders := make(map[string]struct{}, len(grants))
	for _, m := range grants {
		if m.PrincipalID != nil {
			holders[*m.PrincipalID] = struct{}{}
		}
	}

	var withGrant, withoutGrant []id.UserID
	for _, u := range users {
		uid, err := id.ParseUserID(u.ID)
		if err != nil {
			continue
		}
		if _, ok := holders[u.ID]; ok {
			withGrant = append(withGrant, uid)
		} else if !q.WithAtLeastOnePermission() {
			withoutGrant = append(withoutGrant, uid)
		}
	}
	return append(withGrant, withoutGrant...), nil
}

// groupNamesByQuery returns the full ordered name list, before pagination,
// with the Anyone pseudo-entry pinned first when it qualifies.
func (s *Store) groupNamesByQuery(ctx context.Context, q *grant.PermissionQuery) ([]string, error) {
	var groups []groupModel
	gq := s.sdb.NewSelect(&groups).OrderExpr("LOWER(name) ASC")
	if search := q.SearchQuery(); search != "" {
		gq = gq.Where("LOWER(name) LIKE LOWER(?)", "%"+search+"%")
	}
	if err := gq.Scan(ctx); err != nil {
		return nil, fmt.Errorf("hallpass: select groups by query: %w", err)
	}

	var grants []grantModel
	hq := s.sdb.NewSelect(&grants).Where("principal_kind IN ('group', 'anyone')")
	if q.GlobalScope() {
		hq = hq.Where("project_id IS NULL")
	} else {
		hq = hq.Where("project_id = ?", q.ProjectID().String())
	}
	if p := q.Permission(); p != "" {
		hq = hq.Where("role = ?", p)
	}
	if err := hq.Scan(ctx); err != nil {
		return nil, fmt.Errorf("hallpass: select group grants by query: %w", err)
	}
	holders := make(map[string]struct{}, len(grants))
	anyoneHolds := false
	for _, m := range grants {
		if m.PrincipalKind == string(principal.KindAnyone) {
			anyoneHolds = true
			continue
		}
		if m.PrincipalID != nil {
			holders[*m.PrincipalID] = struct{}{}
		}
	}

	var withGrant, withoutGrant []string
	for _, g := range groups {
		if _, ok := holders[g.ID]; ok {
			withGrant = append(withGrant, g.Name)
		} else if !q.WithAtLeastOnePermission() {
			withoutGrant = append(withoutGrant, g.Name)
		}
	}

	var result []string
	if matchesSearch(q.SearchQuery(), principal.AnyoneName) {
		if anyoneHolds || !q.WithAtLeastOnePermission() {
			result = append(result, principal.AnyoneName)
		}
	}
	result = append(result, withGrant...)
	result = append(result, withoutGrant...)
	return result, nil
}

func matchesSearch(search string, name string) bool {
	if search == "" {
		return true
	}
	return strings.Contains(strings.ToLower(name), strings.ToLower(search))
}

func idStrings(ids []id.ID) []string {
	out := make([]string, len(ids))
	for i, v := range ids {
		out[i] = v.String()
	}
	return out
}

// keepIDs filters candidates down to the authorized set, deduplicated,
// preserving candidate order.
func keepIDs(candidates []id.ID, authorized map[string]struct{}) []id.ID {
	var kept []id.ID
	seen := make(map[string]struct{}, len(authorized))
	for _, c := range candidates {
		k := c.String()
		if _, ok := authorized[k]; !ok {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		kept = append(kept, c)
	}
	return kept
}

// principalsWithoutRole collapses project grant rows per principal and keeps
// the principals not holding the given role.
func principalsWithoutRole(models []grantModel, perm string) []principal.Ref {
	held := make(map[string]map[string]struct{})
	refs := make(map[string]principal.Ref)
	for i := range models {
		g := grantFromModel(&models[i])
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
	return result
}

func grantRoles(models []grantModel) []string {
	out := make([]string, 0, len(models))
	for _, m := range models {
		out = append(out, m.Role)
	}
	return out
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
