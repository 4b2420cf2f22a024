// Package mongo provides a MongoDB implementation of the hallpass composite
// store using grove ORM. Membership and grant resolution joins are performed
// application-side, which is the natural shape for a document store.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/hallpass/audit"
	"github.com/xraph/hallpass/grant"
	"github.com/xraph/hallpass/id"
	"github.com/xraph/hallpass/permission"
	"github.com/xraph/hallpass/principal"
	"github.com/xraph/hallpass/project"
	"github.com/xraph/hallpass/store"
)

// Collection name constants.
const (
	colUsers    = "hallpass_users"
	colGroups   = "hallpass_groups"
	colMembers  = "hallpass_group_members"
	colProjects = "hallpass_projects"
	colGrants   = "hallpass_grants"
	colAudit    = "hallpass_audit_entries"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// errNotFound is the sentinel for missing entities.
var errNotFound = fmt.Errorf("not found")

// Store is a MongoDB implementation of the composite hallpass store.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// Migrate creates indexes for all hallpass collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()
	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("hallpass/mongo: migrate %s indexes: %w", col, err)
		}
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

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongod.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all hallpass collections.
func migrationIndexes() map[string][]mongod.IndexModel {
	return map[string][]mongod.IndexModel{
		colUsers: {
			{
				Keys:    bson.D{{Key: "login", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "name", Value: 1}}},
		},
		colGroups: {
			{
				Keys:    bson.D{{Key: "name", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		colMembers: {
			{
				Keys:    bson.D{{Key: "group_id", Value: 1}, {Key: "user_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "user_id", Value: 1}}},
		},
		colProjects: {
			{
				Keys:    bson.D{{Key: "project_key", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "private", Value: 1}}},
		},
		colGrants: {
			{Keys: bson.D{{Key: "principal_kind", Value: 1}, {Key: "principal_id", Value: 1}, {Key: "role", Value: 1}}},
			{Keys: bson.D{{Key: "project_id", Value: 1}, {Key: "role", Value: 1}}},
		},
		colAudit: {
			{Keys: bson.D{{Key: "action", Value: 1}}},
			{Keys: bson.D{{Key: "recorded_at", Value: -1}}},
		},
	}
}

// ──────────────────────────────────────────────────
// Principal operations
// ──────────────────────────────────────────────────

func (s *Store) CreateUser(ctx context.Context, u *principal.User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now()
	}
	m := userToModel(u)
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("hallpass: create user: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, userID id.UserID) (*principal.User, error) {
	var m userModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": userID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("user %s: %w", userID, errNotFound)
		}
		return nil, fmt.Errorf("hallpass: get user: %w", err)
	}
	return userFromModel(&m), nil
}

func (s *Store) DeleteUser(ctx context.Context, userID id.UserID) error {
	_, err := s.mdb.NewDelete((*userModel)(nil)).
		Filter(bson.M{"_id": userID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("hallpass: delete user: %w", err)
	}
	// No FK cascade in a document store: drop memberships explicitly.
	_, err = s.mdb.NewDelete((*memberModel)(nil)).
		Many().
		Filter(bson.M{"user_id": userID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("hallpass: delete user memberships: %w", err)
	}
	return nil
}

func (s *Store) CreateGroup(ctx context.Context, g *principal.Group) error {
	if g.CreatedAt.IsZero() {
		g.CreatedAt = now()
	}
	m := groupToModel(g)
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("hallpass: create group: %w", err)
	}
	return nil
}

func (s *Store) GetGroup(ctx context.Context, groupID id.GroupID) (*principal.Group, error) {
	var m groupModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": groupID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("group %s: %w", groupID, errNotFound)
		}
		return nil, fmt.Errorf("hallpass: get group: %w", err)
	}
	return groupFromModel(&m), nil
}

func (s *Store) DeleteGroup(ctx context.Context, groupID id.GroupID) error {
	_, err := s.mdb.NewDelete((*groupModel)(nil)).
		Filter(bson.M{"_id": groupID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("hallpass: delete group: %w", err)
	}
	_, err = s.mdb.NewDelete((*memberModel)(nil)).
		Many().
		Filter(bson.M{"group_id": groupID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("hallpass: delete group memberships: %w", err)
	}
	return nil
}

func (s *Store) AddMember(ctx context.Context, groupID id.GroupID, userID id.UserID) error {
	m := &memberModel{
		GroupID: groupID.String(),
		UserID:  userID.String(),
	}
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongod.IsDuplicateKeyError(err) {
			return nil // already a member
		}
		return fmt.Errorf("hallpass: add member: %w", err)
	}
	return nil
}

func (s *Store) RemoveMember(ctx context.Context, groupID id.GroupID, userID id.UserID) error {
	_, err := s.mdb.NewDelete((*memberModel)(nil)).
		Filter(bson.M{"group_id": groupID.String(), "user_id": userID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("hallpass: remove member: %w", err)
	}
	return nil
}

func (s *Store) SelectGroupIDsForUser(ctx context.Context, userID id.UserID) ([]id.GroupID, error) {
	keys, err := s.groupKeysForUser(ctx, userID.String())
	if err != nil {
		return nil, err
	}
	result := make([]id.GroupID, 0, len(keys))
	for _, k := range keys {
		gid, err := id.ParseGroupID(k)
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
		p.CreatedAt = now()
	}
	m := projectToModel(p)
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("hallpass: create project: %w", err)
	}
	return nil
}

func (s *Store) GetProject(ctx context.Context, projectID id.ProjectID) (*project.Project, error) {
	var m projectModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": projectID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("project %s: %w", projectID, errNotFound)
		}
		return nil, fmt.Errorf("hallpass: get project: %w", err)
	}
	return projectFromModel(&m), nil
}

func (s *Store) UpdateVisibility(ctx context.Context, projectID id.ProjectID, private bool) error {
	p, err := s.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	p.Private = private
	m := projectToModel(p)
	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("hallpass: update visibility: %w", err)
	}
	if res.MatchedCount() == 0 {
		return fmt.Errorf("project %s: %w", projectID, errNotFound)
	}
	return nil
}

func (s *Store) DeleteProject(ctx context.Context, projectID id.ProjectID) error {
	_, err := s.mdb.NewDelete((*projectModel)(nil)).
		Filter(bson.M{"_id": projectID.String()}).
		Exec(ctx)
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
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"_id": bson.M{"$in": idStrings(projectIDs)}}).
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

// reachesUserFilter matches grant documents whose principal reaches the
// named user: the user directly, any of the given groups, or Anyone.
func reachesUserFilter(userKey string, groupKeys []string) bson.M {
	return bson.M{"$or": []bson.M{
		{"principal_kind": string(principal.KindAnyone)},
		{"principal_kind": string(principal.KindUser), "principal_id": userKey},
		{"principal_kind": string(principal.KindGroup), "principal_id": bson.M{"$in": groupKeys}},
	}}
}

func (s *Store) SelectGlobalPermissionsForUser(ctx context.Context, userID id.UserID) ([]string, error) {
	groups, err := s.groupKeysForUser(ctx, userID.String())
	if err != nil {
		return nil, err
	}
	f := reachesUserFilter(userID.String(), groups)
	f["project_id"] = nil
	var models []grantModel
	if err := s.mdb.NewFind(&models).Filter(f).Scan(ctx); err != nil {
		return nil, fmt.Errorf("hallpass: select global permissions: %w", err)
	}
	return grantRoles(models), nil
}

func (s *Store) SelectGlobalPermissionsOfAnyone(ctx context.Context) ([]string, error) {
	var models []grantModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"principal_kind": string(principal.KindAnyone), "project_id": nil}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("hallpass: select global permissions of anyone: %w", err)
	}
	return grantRoles(models), nil
}

func (s *Store) SelectProjectPermissionsForUser(ctx context.Context, projectID id.ProjectID, userID id.UserID) ([]string, error) {
	groups, err := s.groupKeysForUser(ctx, userID.String())
	if err != nil {
		return nil, err
	}
	f := reachesUserFilter(userID.String(), groups)
	f["project_id"] = projectID.String()
	var models []grantModel
	if err := s.mdb.NewFind(&models).Filter(f).Scan(ctx); err != nil {
		return nil, fmt.Errorf("hallpass: select project permissions: %w", err)
	}
	return grantRoles(models), nil
}

func (s *Store) SelectProjectPermissionsOfAnyone(ctx context.Context, projectID id.ProjectID) ([]string, error) {
	var models []grantModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"principal_kind": string(principal.KindAnyone), "project_id": projectID.String()}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("hallpass: select project permissions of anyone: %w", err)
	}
	return grantRoles(models), nil
}

func (s *Store) KeepAuthorizedProjectIDs(ctx context.Context, projectIDs []id.ProjectID, userID id.UserID, perm string) ([]id.ProjectID, error) {
	groups, err := s.groupKeysForUser(ctx, userID.String())
	if err != nil {
		return nil, err
	}
	f := reachesUserFilter(userID.String(), groups)
	return s.keepAuthorizedProjects(ctx, projectIDs, perm, f)
}

func (s *Store) KeepAuthorizedProjectIDsForAnyone(ctx context.Context, projectIDs []id.ProjectID, perm string) ([]id.ProjectID, error) {
	f := bson.M{"principal_kind": string(principal.KindAnyone)}
	return s.keepAuthorizedProjects(ctx, projectIDs, perm, f)
}

func (s *Store) keepAuthorizedProjects(ctx context.Context, projectIDs []id.ProjectID, perm string, principalFilter bson.M) ([]id.ProjectID, error) {
	if len(projectIDs) == 0 {
		return nil, nil
	}
	keys := idStrings(projectIDs)

	// Unknown projects are dropped, so resolve existence up front.
	var projects []projectModel
	err := s.mdb.NewFind(&projects).
		Filter(bson.M{"_id": bson.M{"$in": keys}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("hallpass: select candidate projects: %w", err)
	}
	existing := make(map[string]struct{}, len(projects))
	authorized := make(map[string]struct{})
	for _, p := range projects {
		existing[p.ID] = struct{}{}
		if !p.Private && permission.IsPublicKey(perm) {
			authorized[p.ID] = struct{}{}
		}
	}

	principalFilter["project_id"] = bson.M{"$in": keys}
	principalFilter["role"] = perm
	var grants []grantModel
	if err := s.mdb.NewFind(&grants).Filter(principalFilter).Scan(ctx); err != nil {
		return nil, fmt.Errorf("hallpass: keep authorized project ids: %w", err)
	}
	for _, g := range grants {
		if g.ProjectID == nil {
			continue
		}
		if _, ok := existing[*g.ProjectID]; ok {
			authorized[*g.ProjectID] = struct{}{}
		}
	}
	return keepIDs(projectIDs, authorized), nil
}

func (s *Store) KeepAuthorizedUserIDs(ctx context.Context, userIDs []id.UserID, perm string, projectID id.ProjectID) ([]id.UserID, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	keys := idStrings(userIDs)

	// Unknown users are dropped, so resolve existence up front.
	var users []userModel
	err := s.mdb.NewFind(&users).
		Filter(bson.M{"_id": bson.M{"$in": keys}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("hallpass: select candidate users: %w", err)
	}
	existing := make(map[string]struct{}, len(users))
	for _, u := range users {
		existing[u.ID] = struct{}{}
	}

	// Implicit access: every existing candidate qualifies on a public
	// project for the public permission keys.
	if permission.IsPublicKey(perm) {
		p, err := s.GetProject(ctx, projectID)
		if err == nil && p.Public() {
			return keepIDs(userIDs, existing), nil
		}
		if err != nil && !errors.Is(err, errNotFound) {
			return nil, err
		}
	}

	authorized := make(map[string]struct{})

	// Direct grants. Anyone grants are deliberately excluded: they
	// authorize anonymous access, never a named user.
	var direct []grantModel
	err = s.mdb.NewFind(&direct).
		Filter(bson.M{
			"principal_kind": string(principal.KindUser),
			"principal_id":   bson.M{"$in": keys},
			"role":           perm,
			"project_id":     projectID.String(),
		}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("hallpass: keep authorized user ids: %w", err)
	}
	for _, g := range direct {
		if g.PrincipalID == nil {
			continue
		}
		if _, ok := existing[*g.PrincipalID]; ok {
			authorized[*g.PrincipalID] = struct{}{}
		}
	}

	// Group grants, resolved through membership.
	var members []memberModel
	err = s.mdb.NewFind(&members).
		Filter(bson.M{"user_id": bson.M{"$in": keys}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("hallpass: select candidate memberships: %w", err)
	}
	if len(members) > 0 {
		groupKeys := make([]string, 0, len(members))
		for _, m := range members {
			groupKeys = append(groupKeys, m.GroupID)
		}
		var groupGrants []grantModel
		err = s.mdb.NewFind(&groupGrants).
			Filter(bson.M{
				"principal_kind": string(principal.KindGroup),
				"principal_id":   bson.M{"$in": groupKeys},
				"role":           perm,
				"project_id":     projectID.String(),
			}).
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("hallpass: keep authorized user ids via groups: %w", err)
		}
		granted := make(map[string]struct{}, len(groupGrants))
		for _, g := range groupGrants {
			if g.PrincipalID != nil {
				granted[*g.PrincipalID] = struct{}{}
			}
		}
		for _, m := range members {
			if _, ok := granted[m.GroupID]; ok {
				authorized[m.UserID] = struct{}{}
			}
		}
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
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"project_id": projectID.String()}).
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
		g.CreatedAt = now()
	}
	m := grantToModel(g)
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("hallpass: insert grant: %w", err)
	}
	return nil
}

func (s *Store) DeleteGrant(ctx context.Context, ref principal.Ref, perm string, projectID id.ProjectID) (int64, error) {
	f := bson.M{"role": perm}
	if projectID.IsNil() {
		f["project_id"] = nil
	} else {
		f["project_id"] = projectID.String()
	}
	applyPrincipalFilter(f, ref)
	res, err := s.mdb.NewDelete((*grantModel)(nil)).
		Many().
		Filter(f).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("hallpass: delete grant: %w", err)
	}
	return res.DeletedCount(), nil
}

func (s *Store) DeleteGrantsByProject(ctx context.Context, projectID id.ProjectID) (int64, error) {
	res, err := s.mdb.NewDelete((*grantModel)(nil)).
		Many().
		Filter(bson.M{"project_id": projectID.String()}).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("hallpass: delete grants by project: %w", err)
	}
	return res.DeletedCount(), nil
}

func (s *Store) DeleteGrantsByProjectAndPrincipal(ctx context.Context, projectID id.ProjectID, ref principal.Ref) (int64, error) {
	f := bson.M{"project_id": projectID.String()}
	applyPrincipalFilter(f, ref)
	res, err := s.mdb.NewDelete((*grantModel)(nil)).
		Many().
		Filter(f).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("hallpass: delete grants by project and principal: %w", err)
	}
	return res.DeletedCount(), nil
}

func (s *Store) DeleteGrantsByProjectAndPermission(ctx context.Context, projectID id.ProjectID, perm string) (int64, error) {
	res, err := s.mdb.NewDelete((*grantModel)(nil)).
		Many().
		Filter(bson.M{"project_id": projectID.String(), "role": perm}).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("hallpass: delete grants by project and permission: %w", err)
	}
	return res.DeletedCount(), nil
}

// ──────────────────────────────────────────────────
// Audit operations
// ──────────────────────────────────────────────────

func (s *Store) InsertAuditEntry(ctx context.Context, e *audit.Entry) error {
	if e.At.IsZero() {
		e.At = now()
	}
	m := auditToModel(e)
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("hallpass: insert audit entry: %w", err)
	}
	return nil
}

func (s *Store) SelectAuditEntries(ctx context.Context, filter *audit.QueryFilter) ([]*audit.Entry, error) {
	f := bson.M{}
	if filter != nil {
		if filter.Action != "" {
			f["action"] = string(filter.Action)
		}
		if filter.Permission != "" {
			f["permission"] = filter.Permission
		}
		if filter.UserID != "" {
			f["user_id"] = filter.UserID
		}
		if filter.GroupID != "" {
			f["group_id"] = filter.GroupID
		}
		if filter.ProjectID != "" {
			f["project_id"] = filter.ProjectID
		}
		recorded := bson.M{}
		if filter.After != nil {
			recorded["$gte"] = *filter.After
		}
		if filter.Before != nil {
			recorded["$lte"] = *filter.Before
		}
		if len(recorded) > 0 {
			f["recorded_at"] = recorded
		}
	}
	var models []auditModel
	q := s.mdb.NewFind(&models).
		Filter(f).
		Sort(bson.D{{Key: "recorded_at", Value: -1}})
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
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
	res, err := s.mdb.NewDelete((*auditModel)(nil)).
		Many().
		Filter(bson.M{"recorded_at": bson.M{"$lt": before}}).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("hallpass: purge audit entries: %w", err)
	}
	return res.DeletedCount(), nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

// groupKeysForUser returns the keys of the groups the user belongs to.
func (s *Store) groupKeysForUser(ctx context.Context, userKey string) ([]string, error) {
	var members []memberModel
	err := s.mdb.NewFind(&members).
		Filter(bson.M{"user_id": userKey}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("hallpass: select memberships: %w", err)
	}
	keys := make([]string, 0, len(members))
	for _, m := range members {
		keys = append(keys, m.GroupID)
	}
	return keys, nil
}

// applyPrincipalFilter narrows a grant filter to one principal. Anyone is
// identified by the kind alone.
func applyPrincipalFilter(f bson.M, ref principal.Ref) {
	f["principal_kind"] = string(ref.Kind)
	if ref.Kind != principal.KindAnyone {
		f["principal_id"] = ref.ID.String()
	}
}

// globalHolderKeys returns the keys of distinct users holding the permission
// globally through the direct or group path. The excluded group's membership
// contribution and the excluded user's direct grant are disregarded.
func (s *Store) globalHolderKeys(ctx context.Context, perm, excludedGroupKey, excludedUserKey string) (map[string]struct{}, error) {
	holders := make(map[string]struct{})

	directFilter := bson.M{
		"principal_kind": string(principal.KindUser),
		"role":           perm,
		"project_id":     nil,
	}
	if excludedUserKey != "" {
		directFilter["principal_id"] = bson.M{"$ne": excludedUserKey}
	}
	var direct []grantModel
	if err := s.mdb.NewFind(&direct).Filter(directFilter).Scan(ctx); err != nil {
		return nil, fmt.Errorf("hallpass: select direct global holders: %w", err)
	}
	directKeys := make([]string, 0, len(direct))
	for _, g := range direct {
		if g.PrincipalID != nil {
			directKeys = append(directKeys, *g.PrincipalID)
		}
	}
	if len(directKeys) > 0 {
		// Grants have no FK in a document store: count only users that exist.
		var users []userModel
		err := s.mdb.NewFind(&users).
			Filter(bson.M{"_id": bson.M{"$in": directKeys}}).
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("hallpass: select direct holder users: %w", err)
		}
		for _, u := range users {
			holders[u.ID] = struct{}{}
		}
	}

	groupFilter := bson.M{
		"principal_kind": string(principal.KindGroup),
		"role":           perm,
		"project_id":     nil,
	}
	if excludedGroupKey != "" {
		groupFilter["principal_id"] = bson.M{"$ne": excludedGroupKey}
	}
	var groupGrants []grantModel
	if err := s.mdb.NewFind(&groupGrants).Filter(groupFilter).Scan(ctx); err != nil {
		return nil, fmt.Errorf("hallpass: select group global holders: %w", err)
	}
	groupKeys := make([]string, 0, len(groupGrants))
	for _, g := range groupGrants {
		if g.PrincipalID != nil {
			groupKeys = append(groupKeys, *g.PrincipalID)
		}
	}
	if len(groupKeys) > 0 {
		var members []memberModel
		err := s.mdb.NewFind(&members).
			Filter(bson.M{"group_id": bson.M{"$in": groupKeys}}).
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("hallpass: select group holder members: %w", err)
		}
		for _, m := range members {
			holders[m.UserID] = struct{}{}
		}
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
	f := bson.M{}
	if search := q.SearchQuery(); search != "" {
		f["$or"] = []bson.M{
			{"name": bson.M{"$regex": search, "$options": "i"}},
			{"login": bson.M{"$regex": search, "$options": "i"}},
			{"email": bson.M{"$regex": search, "$options": "i"}},
		}
	}
	var users []userModel
	if err := s.mdb.NewFind(&users).Filter(f).Scan(ctx); err != nil {
		return nil, fmt.Errorf("hallpass: select users by query: %w", err)
	}
	sort.Slice(users, func(i, j int) bool {
		ni, nj := strings.ToLower(users[i].Name), strings.ToLower(users[j].Name)
		if ni != nj {
			return ni < nj
		}
		return users[i].Login < users[j].Login
	})

	gf := bson.M{"principal_kind": string(principal.KindUser)}
	applyQueryScope(gf, q)
	var grants []grantModel
	if err := s.mdb.NewFind(&grants).Filter(gf).Scan(ctx); err != nil {
		return nil, fmt.Errorf("hallpass: select user grants by query: %w", err)
	}
	holders := make(map[string]struct{}, len(grants))
	for _, g := range grants {
		if g.PrincipalID != nil {
			holders[*g.PrincipalID] = struct{}{}
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
	f := bson.M{}
	if search := q.SearchQuery(); search != "" {
		f["name"] = bson.M{"$regex": search, "$options": "i"}
	}
	var groups []groupModel
	if err := s.mdb.NewFind(&groups).Filter(f).Scan(ctx); err != nil {
		return nil, fmt.Errorf("hallpass: select groups by query: %w", err)
	}
	sort.Slice(groups, func(i, j int) bool {
		return strings.ToLower(groups[i].Name) < strings.ToLower(groups[j].Name)
	})

	gf := bson.M{"principal_kind": bson.M{"$in": []string{
		string(principal.KindGroup),
		string(principal.KindAnyone),
	}}}
	applyQueryScope(gf, q)
	var grants []grantModel
	if err := s.mdb.NewFind(&grants).Filter(gf).Scan(ctx); err != nil {
		return nil, fmt.Errorf("hallpass: select group grants by query: %w", err)
	}
	holders := make(map[string]struct{}, len(grants))
	anyoneHolds := false
	for _, g := range grants {
		if g.PrincipalKind == string(principal.KindAnyone) {
			anyoneHolds = true
			continue
		}
		if g.PrincipalID != nil {
			holders[*g.PrincipalID] = struct{}{}
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

// applyQueryScope narrows a grant filter to the query's scope and optional
// permission filter.
func applyQueryScope(f bson.M, q *grant.PermissionQuery) {
	if q.GlobalScope() {
		f["project_id"] = nil
	} else {
		f["project_id"] = q.ProjectID().String()
	}
	if p := q.Permission(); p != "" {
		f["role"] = p
	}
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

// principalsWithoutRole collapses project grant documents per principal and
// keeps the principals not holding the given role.
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
