package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/xraph/hallpass/audit"
	"github.com/xraph/hallpass/grant"
	"github.com/xraph/hallpass/id"
	"github.com/xraph/hallpass/permission"
	"github.com/xraph/hallpass/principal"
	"github.com/xraph/hallpass/project"
	"github.com/xraph/hallpass/store"
)

// Compile-time check that *Store implements store.Store.
var _ store.Store = (*Store)(nil)

func newUser(t *testing.T, s *Store, login, name string) *principal.User {
	t.Helper()
	u := &principal.User{ID: id.NewUserID(), Login: login, Name: name, CreatedAt: time.Now()}
	if err := s.CreateUser(context.Background(), u); err != nil {
		t.Fatal(err)
	}
	return u
}

func newGroup(t *testing.T, s *Store, name string) *principal.Group {
	t.Helper()
	g := &principal.Group{ID: id.NewGroupID(), Name: name, CreatedAt: time.Now()}
	if err := s.CreateGroup(context.Background(), g); err != nil {
		t.Fatal(err)
	}
	return g
}

func newProject(t *testing.T, s *Store, key string, private bool) *project.Project {
	t.Helper()
	p := &project.Project{ID: id.NewProjectID(), Key: key, Name: key, Qualifier: project.QualifierProject, Private: private, CreatedAt: time.Now()}
	if err := s.CreateProject(context.Background(), p); err != nil {
		t.Fatal(err)
	}
	return p
}

func addGrant(t *testing.T, s *Store, ref principal.Ref, perm string, projectID id.ProjectID) {
	t.Helper()
	g := &grant.Grant{ID: id.NewGrantID(), Principal: ref, Permission: perm, ProjectID: projectID, CreatedAt: time.Now()}
	if err := s.InsertGrant(context.Background(), g); err != nil {
		t.Fatal(err)
	}
}

func TestUserGroupMembership(t *testing.T) {
	ctx := context.Background()
	s := New()

	u := newUser(t, s, "ada", "Ada Lovelace")
	g := newGroup(t, s, "engineers")

	got, err := s.GetUser(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Login != "ada" {
		t.Fatalf("expected ada, got %s", got.Login)
	}

	if err := s.AddMember(ctx, g.ID, u.ID); err != nil {
		t.Fatal(err)
	}
	// Adding twice is a no-op.
	if err := s.AddMember(ctx, g.ID, u.ID); err != nil {
		t.Fatal(err)
	}

	groups, err := s.SelectGroupIDsForUser(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}

	if err := s.RemoveMember(ctx, g.ID, u.ID); err != nil {
		t.Fatal(err)
	}
	groups, _ = s.SelectGroupIDsForUser(ctx, u.ID)
	if len(groups) != 0 {
		t.Fatalf("expected 0 groups after removal, got %d", len(groups))
	}

	// Removing again is a no-op.
	if err := s.RemoveMember(ctx, g.ID, u.ID); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteUser(ctx, u.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetUser(ctx, u.ID); err == nil {
		t.Fatal("expected not found after delete")
	}
}

func TestProjectVisibility(t *testing.T) {
	ctx := context.Background()
	s := New()

	p := newProject(t, s, "web-app", false)

	got, err := s.GetProject(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Public() {
		t.Fatal("expected public project")
	}

	if err := s.UpdateVisibility(ctx, p.ID, true); err != nil {
		t.Fatal(err)
	}
	got, _ = s.GetProject(ctx, p.ID)
	if got.Public() {
		t.Fatal("expected private after update")
	}

	list, err := s.SelectByIDs(ctx, []id.ProjectID{p.ID, id.NewProjectID()})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 project, unknown IDs skipped, got %d", len(list))
	}
}

func TestSelectGlobalPermissionsUnion(t *testing.T) {
	ctx := context.Background()
	s := New()

	u := newUser(t, s, "ada", "Ada")
	g := newGroup(t, s, "admins")
	_ = s.AddMember(ctx, g.ID, u.ID)

	addGrant(t, s, principal.ForUser(u.ID), "provisioning", id.Nil)
	addGrant(t, s, principal.ForGroup(g.ID), "admin", id.Nil)
	addGrant(t, s, principal.Anyone(), "scan", id.Nil)

	perms, err := s.SelectGlobalPermissionsForUser(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(perms) != 3 {
		t.Fatalf("expected union of 3 paths, got %v", perms)
	}

	anon, err := s.SelectGlobalPermissionsOfAnyone(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(anon) != 1 || anon[0] != "scan" {
		t.Fatalf("expected only the Anyone grant, got %v", anon)
	}
}

func TestSelectProjectPermissions(t *testing.T) {
	ctx := context.Background()
	s := New()

	u := newUser(t, s, "ada", "Ada")
	g := newGroup(t, s, "devs")
	_ = s.AddMember(ctx, g.ID, u.ID)
	p := newProject(t, s, "api", true)

	addGrant(t, s, principal.ForUser(u.ID), "user", p.ID)
	addGrant(t, s, principal.ForGroup(g.ID), "user", p.ID)
	addGrant(t, s, principal.ForGroup(g.ID), "issueadmin", p.ID)

	perms, err := s.SelectProjectPermissionsForUser(ctx, p.ID, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(perms) != 3 {
		t.Fatalf("expected 3 grant rows, got %v", perms)
	}

	anon, _ := s.SelectProjectPermissionsOfAnyone(ctx, p.ID)
	if len(anon) != 0 {
		t.Fatalf("expected no Anyone grants, got %v", anon)
	}
}

func TestKeepAuthorizedProjectIDs(t *testing.T) {
	ctx := context.Background()
	s := New()

	u := newUser(t, s, "ada", "Ada")
	pub := newProject(t, s, "pub", false)
	priv := newProject(t, s, "priv", true)
	granted := newProject(t, s, "granted", true)
	addGrant(t, s, principal.ForUser(u.ID), "user", granted.ID)

	candidates := []id.ProjectID{pub.ID, priv.ID, granted.ID, id.NewProjectID()}

	kept, err := s.KeepAuthorizedProjectIDs(ctx, candidates, u.ID, permission.ProjectUser)
	if err != nil {
		t.Fatal(err)
	}
	// Public project implicitly, granted project explicitly; private and
	// unknown excluded.
	if len(kept) != 2 {
		t.Fatalf("expected 2 authorized, got %d", len(kept))
	}

	kept, _ = s.KeepAuthorizedProjectIDs(ctx, candidates, u.ID, "admin")
	if len(kept) != 0 {
		t.Fatalf("expected no admin authorization, got %d", len(kept))
	}

	kept, _ = s.KeepAuthorizedProjectIDsForAnyone(ctx, candidates, permission.ProjectUser)
	if len(kept) != 1 || kept[0].String() != pub.ID.String() {
		t.Fatalf("expected only the public project for anonymous, got %v", kept)
	}
}

func TestKeepAuthorizedUserIDsAnyoneAsymmetry(t *testing.T) {
	ctx := context.Background()
	s := New()

	direct := newUser(t, s, "direct", "Direct")
	viaGroup := newUser(t, s, "member", "Member")
	outsider := newUser(t, s, "outsider", "Outsider")
	g := newGroup(t, s, "devs")
	_ = s.AddMember(ctx, g.ID, viaGroup.ID)
	p := newProject(t, s, "api", true)

	addGrant(t, s, principal.ForUser(direct.ID), "issueadmin", p.ID)
	addGrant(t, s, principal.ForGroup(g.ID), "issueadmin", p.ID)
	addGrant(t, s, principal.Anyone(), "issueadmin", p.ID)

	candidates := []id.UserID{direct.ID, viaGroup.ID, outsider.ID, id.NewUserID()}

	kept, err := s.KeepAuthorizedUserIDs(ctx, candidates, "issueadmin", p.ID)
	if err != nil {
		t.Fatal(err)
	}
	// The Anyone grant never qualifies a named user: only the direct and
	// group paths count.
	if len(kept) != 2 {
		t.Fatalf("expected 2 authorized users, got %d", len(kept))
	}

	// On a public project the implicit keys qualify every existing candidate.
	_ = s.UpdateVisibility(ctx, p.ID, false)
	kept, _ = s.KeepAuthorizedUserIDs(ctx, candidates, permission.ProjectCodeViewer, p.ID)
	if len(kept) != 3 {
		t.Fatalf("expected all 3 existing users on public project, got %d", len(kept))
	}
}

func TestCountUsersWithGlobalPermissionExcludingGroup(t *testing.T) {
	ctx := context.Background()
	s := New()

	g := newGroup(t, s, "scanners")
	u1 := newUser(t, s, "u1", "U1")
	u2 := newUser(t, s, "u2", "U2")
	u3 := newUser(t, s, "u3", "U3")
	_ = s.AddMember(ctx, g.ID, u1.ID)
	_ = s.AddMember(ctx, g.ID, u2.ID)

	addGrant(t, s, principal.ForGroup(g.ID), "scan", id.Nil)
	addGrant(t, s, principal.ForUser(u3.ID), "scan", id.Nil)

	count, err := s.CountUsersWithGlobalPermissionExcludingGroup(ctx, "scan", g.ID)
	if err != nil {
		t.Fatal(err)
	}
	// Only u3's direct grant survives the exclusion.
	if count != 1 {
		t.Fatalf("expected 1, got %d", count)
	}

	// Anyone grants never add named holders to the count.
	addGrant(t, s, principal.Anyone(), "scan", id.Nil)
	count, _ = s.CountUsersWithGlobalPermissionExcludingGroup(ctx, "scan", g.ID)
	if count != 1 {
		t.Fatalf("expected the Anyone grant to leave the count at 1, got %d", count)
	}

	// Excluding an unknown group is a no-op.
	count, _ = s.CountUsersWithGlobalPermissionExcludingGroup(ctx, "scan", id.NewGroupID())
	if count != 3 {
		t.Fatalf("expected 3 with unknown exclusion, got %d", count)
	}
}

func TestCountUsersWithGlobalPermissionExcludingUser(t *testing.T) {
	ctx := context.Background()
	s := New()

	g := newGroup(t, s, "admins")
	u1 := newUser(t, s, "u1", "U1")
	u2 := newUser(t, s, "u2", "U2")
	_ = s.AddMember(ctx, g.ID, u1.ID)

	addGrant(t, s, principal.ForUser(u1.ID), "admin", id.Nil)
	addGrant(t, s, principal.ForGroup(g.ID), "admin", id.Nil)
	addGrant(t, s, principal.ForUser(u2.ID), "admin", id.Nil)

	// u1's direct grant is disregarded but the group path still counts u1.
	count, err := s.CountUsersWithGlobalPermissionExcludingUser(ctx, "admin", u1.ID)
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Fatalf("expected 2, got %d", count)
	}

	// u2 holds only the direct grant.
	count, _ = s.CountUsersWithGlobalPermissionExcludingUser(ctx, "admin", u2.ID)
	if count != 1 {
		t.Fatalf("expected 1, got %d", count)
	}
}

func TestSelectUserIDsWithGlobalPermission(t *testing.T) {
	ctx := context.Background()
	s := New()

	g := newGroup(t, s, "gatekeepers")
	u1 := newUser(t, s, "u1", "U1")
	u2 := newUser(t, s, "u2", "U2")
	newUser(t, s, "u3", "U3")
	_ = s.AddMember(ctx, g.ID, u2.ID)

	addGrant(t, s, principal.ForUser(u1.ID), "gateadmin", id.Nil)
	addGrant(t, s, principal.ForGroup(g.ID), "gateadmin", id.Nil)

	ids, err := s.SelectUserIDsWithGlobalPermission(ctx, "gateadmin")
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 holders, got %d", len(ids))
	}
}

func TestSelectPrincipalsWithPermissionOnProjectBut(t *testing.T) {
	ctx := context.Background()
	s := New()

	u := newUser(t, s, "ada", "Ada")
	g1 := newGroup(t, s, "devs")
	g2 := newGroup(t, s, "ops")
	p := newProject(t, s, "api", true)

	addGrant(t, s, principal.ForUser(u.ID), "user", p.ID)
	addGrant(t, s, principal.ForGroup(g1.ID), "user", p.ID)
	addGrant(t, s, principal.ForGroup(g1.ID), "issueadmin", p.ID)
	addGrant(t, s, principal.ForGroup(g2.ID), "issueadmin", p.ID)
	addGrant(t, s, principal.Anyone(), "codeviewer", p.ID)

	refs, err := s.SelectPrincipalsWithPermissionOnProjectBut(ctx, p.ID, "issueadmin")
	if err != nil {
		t.Fatal(err)
	}
	// u (holds user only) and Anyone (holds codeviewer only); g1 and g2 hold
	// issueadmin and are excluded.
	if len(refs) != 2 {
		t.Fatalf("expected 2 principals, got %v", refs)
	}
}

func TestDeleteGrantExactMatch(t *testing.T) {
	ctx := context.Background()
	s := New()

	g := newGroup(t, s, "devs")
	p := newProject(t, s, "api", true)

	addGrant(t, s, principal.ForGroup(g.ID), "admin", id.Nil)
	addGrant(t, s, principal.ForGroup(g.ID), "admin", p.ID)

	// Deleting the project-scoped grant leaves the global one untouched.
	removed, err := s.DeleteGrant(ctx, principal.ForGroup(g.ID), "admin", p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	// The global fact is still there.
	removed, _ = s.DeleteGrant(ctx, principal.ForGroup(g.ID), "admin", id.Nil)
	if removed != 1 {
		t.Fatalf("expected global grant still present, removed %d", removed)
	}

	// Deleting a missing fact removes nothing.
	removed, _ = s.DeleteGrant(ctx, principal.ForGroup(g.ID), "admin", id.Nil)
	if removed != 0 {
		t.Fatalf("expected 0 removed, got %d", removed)
	}
}

func TestBulkDeleteGrants(t *testing.T) {
	ctx := context.Background()
	s := New()

	u := newUser(t, s, "ada", "Ada")
	g := newGroup(t, s, "devs")
	p := newProject(t, s, "api", true)
	other := newProject(t, s, "web", true)

	addGrant(t, s, principal.ForUser(u.ID), "user", p.ID)
	addGrant(t, s, principal.ForGroup(g.ID), "user", p.ID)
	addGrant(t, s, principal.Anyone(), "codeviewer", p.ID)
	addGrant(t, s, principal.ForGroup(g.ID), "user", other.ID)
	addGrant(t, s, principal.ForGroup(g.ID), "user", id.Nil)

	removed, err := s.DeleteGrantsByProjectAndPrincipal(ctx, p.ID, principal.ForGroup(g.ID))
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}

	removed, _ = s.DeleteGrantsByProjectAndPermission(ctx, p.ID, "codeviewer")
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}

	removed, _ = s.DeleteGrantsByProject(ctx, p.ID)
	if removed != 1 {
		t.Fatalf("expected 1 remaining project grant removed, got %d", removed)
	}

	// Grants on the other project and the global grant are untouched.
	removed, _ = s.DeleteGrantsByProject(ctx, other.ID)
	if removed != 1 {
		t.Fatalf("expected other project grant intact, removed %d", removed)
	}
	removed, _ = s.DeleteGrant(ctx, principal.ForGroup(g.ID), "user", id.Nil)
	if removed != 1 {
		t.Fatalf("expected global grant intact, removed %d", removed)
	}
}

func TestSelectUserIDsByQueryOrdering(t *testing.T) {
	ctx := context.Background()
	s := New()

	p := newProject(t, s, "api", true)

	// 1000 non-holders plus a single holder whose name sorts last.
	for i := 0; i < 1000; i++ {
		newUser(t, s, fmt.Sprintf("user-%04d", i), fmt.Sprintf("Name %04d", i))
	}
	holder := newUser(t, s, "zzz", "Zzz Holder")
	addGrant(t, s, principal.ForUser(holder.ID), "user", p.ID)

	q, err := grant.NewQueryBuilder().SetProject(p.ID).SetPermission("user").SetPageSize(5).Build()
	if err != nil {
		t.Fatal(err)
	}

	page, err := s.SelectUserIDsByQuery(ctx, q)
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 5 {
		t.Fatalf("expected page of 5, got %d", len(page))
	}
	// The lone holder comes first despite sorting last by name.
	if page[0].String() != holder.ID.String() {
		t.Fatal("expected the holder first")
	}

	count, _ := s.CountUsersByQuery(ctx, q)
	if count != 1001 {
		t.Fatalf("expected 1001 candidates, got %d", count)
	}

	// The partition is global: page 3 continues the name ordering of the
	// non-holder partition.
	q2, _ := grant.NewQueryBuilder().SetProject(p.ID).SetPermission("user").SetPageSize(5).SetPageIndex(3).Build()
	page, _ = s.SelectUserIDsByQuery(ctx, q2)
	if len(page) != 5 {
		t.Fatalf("expected page of 5, got %d", len(page))
	}
	u, _ := s.GetUser(ctx, page[0])
	if u.Name != "Name 0009" {
		t.Fatalf("expected Name 0009 at page 3 head, got %q", u.Name)
	}
}

func TestSelectUserIDsByQueryFilters(t *testing.T) {
	ctx := context.Background()
	s := New()

	holder := newUser(t, s, "ada", "Ada")
	newUser(t, s, "bob", "Bob")
	addGrant(t, s, principal.ForUser(holder.ID), "provisioning", id.Nil)

	q, _ := grant.NewQueryBuilder().SetPermission("provisioning").SetWithAtLeastOnePermission().Build()
	ids, err := s.SelectUserIDsByQuery(ctx, q)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0].String() != holder.ID.String() {
		t.Fatalf("expected only the holder, got %v", ids)
	}

	// Without the holders-only mode the permission filter orders but does
	// not exclude.
	q, _ = grant.NewQueryBuilder().SetPermission("provisioning").Build()
	ids, _ = s.SelectUserIDsByQuery(ctx, q)
	if len(ids) != 2 || ids[0].String() != holder.ID.String() {
		t.Fatalf("expected both users with the holder first, got %v", ids)
	}

	q, _ = grant.NewQueryBuilder().SetPermission("provisioning").SetSearchQuery("bob").Build()
	ids, _ = s.SelectUserIDsByQuery(ctx, q)
	if len(ids) != 1 {
		t.Fatalf("expected search to match bob only, got %v", ids)
	}

	q, _ = grant.NewQueryBuilder().SetWithAtLeastOnePermission().Build()
	ids, _ = s.SelectUserIDsByQuery(ctx, q)
	if len(ids) != 1 {
		t.Fatalf("expected only principals holding a grant, got %v", ids)
	}
}

func TestSelectGroupNamesByQueryAnyoneFirst(t *testing.T) {
	ctx := context.Background()
	s := New()

	devs := newGroup(t, s, "devs")
	newGroup(t, s, "admins")
	addGrant(t, s, principal.ForGroup(devs.ID), "scan", id.Nil)
	addGrant(t, s, principal.Anyone(), "scan", id.Nil)

	q, _ := grant.NewQueryBuilder().SetPermission("scan").Build()
	names, err := s.SelectGroupNamesByQuery(ctx, q)
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 3 {
		t.Fatalf("expected 3 entries, got %v", names)
	}
	if names[0] != principal.AnyoneName {
		t.Fatalf("expected Anyone first, got %v", names)
	}
	// devs holds a grant and precedes admins despite sorting later by name.
	if names[1] != "devs" || names[2] != "admins" {
		t.Fatalf("expected holders-first order, got %v", names)
	}

	q, _ = grant.NewQueryBuilder().SetPermission("scan").SetWithAtLeastOnePermission().Build()
	names, _ = s.SelectGroupNamesByQuery(ctx, q)
	if len(names) != 2 || names[0] != principal.AnyoneName || names[1] != "devs" {
		t.Fatalf("expected Anyone and devs, got %v", names)
	}

	count, _ := s.CountGroupsByQuery(ctx, q)
	if count != 2 {
		t.Fatalf("expected count 2, got %d", count)
	}
}

func TestAuditEntries(t *testing.T) {
	ctx := context.Background()
	s := New()

	old := &audit.Entry{ID: id.NewAuditID(), Action: audit.ActionGrantAdded, Permission: "scan", At: time.Now().Add(-time.Hour)}
	recent := &audit.Entry{ID: id.NewAuditID(), Action: audit.ActionGrantRemoved, Permission: "scan", RemovedCount: 2, At: time.Now()}

	if err := s.InsertAuditEntry(ctx, old); err != nil {
		t.Fatal(err)
	}
	if err := s.InsertAuditEntry(ctx, recent); err != nil {
		t.Fatal(err)
	}

	entries, err := s.SelectAuditEntries(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	// Newest first.
	if entries[0].ID.String() != recent.ID.String() {
		t.Fatal("expected newest entry first")
	}

	entries, _ = s.SelectAuditEntries(ctx, &audit.QueryFilter{Action: audit.ActionGrantRemoved})
	if len(entries) != 1 || entries[0].RemovedCount != 2 {
		t.Fatalf("expected the removal entry, got %v", entries)
	}

	purged, err := s.PurgeAuditEntries(ctx, time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if purged != 1 {
		t.Fatalf("expected 1 purged, got %d", purged)
	}
	entries, _ = s.SelectAuditEntries(ctx, nil)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry after purge, got %d", len(entries))
	}
}

func TestMigratePingClose(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.Migrate(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.Ping(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
}
