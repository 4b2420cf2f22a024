package hallpass

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/xraph/hallpass/audit"
	"github.com/xraph/hallpass/grant"
	"github.com/xraph/hallpass/id"
	"github.com/xraph/hallpass/permission"
	"github.com/xraph/hallpass/principal"
	"github.com/xraph/hallpass/project"
	"github.com/xraph/hallpass/store/memory"
)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithStore(memory.New())}, opts...)
	e, err := NewEngine(opts...)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func seedUser(t *testing.T, e *Engine, login string) id.UserID {
	t.Helper()
	u := &principal.User{ID: id.NewUserID(), Login: login, Name: login}
	if err := e.Store().CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser(%s): %v", login, err)
	}
	return u.ID
}

func seedGroup(t *testing.T, e *Engine, name string, members ...id.UserID) id.GroupID {
	t.Helper()
	g := &principal.Group{ID: id.NewGroupID(), Name: name}
	if err := e.Store().CreateGroup(context.Background(), g); err != nil {
		t.Fatalf("CreateGroup(%s): %v", name, err)
	}
	for _, uid := range members {
		if err := e.Store().AddMember(context.Background(), g.ID, uid); err != nil {
			t.Fatalf("AddMember: %v", err)
		}
	}
	return g.ID
}

func seedProject(t *testing.T, e *Engine, key string, private bool) id.ProjectID {
	t.Helper()
	p := &project.Project{ID: id.NewProjectID(), Key: key, Name: key, Qualifier: "TRK", Private: private}
	if err := e.Store().CreateProject(context.Background(), p); err != nil {
		t.Fatalf("CreateProject(%s): %v", key, err)
	}
	return p.ID
}

func mustGrant(t *testing.T, e *Engine, ref principal.Ref, perm string, projectID id.ProjectID) {
	t.Helper()
	if err := e.Grant(context.Background(), ref, perm, projectID); err != nil {
		t.Fatalf("Grant(%s, %s): %v", ref, perm, err)
	}
}

func TestNewEngineRequiresStore(t *testing.T) {
	_, err := NewEngine()
	if !errors.Is(err, ErrStoreRequired) {
		t.Fatalf("expected ErrStoreRequired, got %v", err)
	}
}

func TestSelectGlobalPermissionsUnion(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	alice := seedUser(t, e, "alice")
	devs := seedGroup(t, e, "devs", alice)

	mustGrant(t, e, principal.ForUser(alice), "scan", id.Nil)
	mustGrant(t, e, principal.ForGroup(devs), "provisioning", id.Nil)
	mustGrant(t, e, principal.Anyone(), "scan", id.Nil)
	mustGrant(t, e, principal.Anyone(), "gateadmin", id.Nil)

	perms, err := e.SelectGlobalPermissions(ctx, alice)
	if err != nil {
		t.Fatalf("SelectGlobalPermissions: %v", err)
	}
	want := []string{"gateadmin", "provisioning", "scan"}
	if len(perms) != len(want) {
		t.Fatalf("expected %v, got %v", want, perms)
	}
	for i, p := range want {
		if perms[i] != p {
			t.Fatalf("expected %v, got %v", want, perms)
		}
	}
}

func TestSelectGlobalPermissionsAnonymous(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	alice := seedUser(t, e, "alice")
	mustGrant(t, e, principal.ForUser(alice), "admin", id.Nil)
	mustGrant(t, e, principal.Anyone(), "scan", id.Nil)

	perms, err := e.SelectGlobalPermissions(ctx, id.Nil)
	if err != nil {
		t.Fatalf("SelectGlobalPermissions(anonymous): %v", err)
	}
	if len(perms) != 1 || perms[0] != "scan" {
		t.Fatalf("expected [scan], got %v", perms)
	}
}

func TestSelectProjectPermissionsPrivateDefaultDeny(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	alice := seedUser(t, e, "alice")
	priv := seedProject(t, e, "private-proj", true)

	perms, err := e.SelectProjectPermissions(ctx, priv, alice)
	if err != nil {
		t.Fatalf("SelectProjectPermissions: %v", err)
	}
	if len(perms) != 0 {
		t.Fatalf("expected no permissions on a private project, got %v", perms)
	}

	mustGrant(t, e, principal.ForUser(alice), permission.ProjectCodeViewer, priv)
	perms, err = e.SelectProjectPermissions(ctx, priv, alice)
	if err != nil {
		t.Fatalf("SelectProjectPermissions: %v", err)
	}
	if len(perms) != 1 || perms[0] != permission.ProjectCodeViewer {
		t.Fatalf("expected [codeviewer], got %v", perms)
	}
}

func TestKeepAuthorizedProjectIDsPublicImplicit(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	alice := seedUser(t, e, "alice")
	public := seedProject(t, e, "public-proj", false)
	private := seedProject(t, e, "private-proj", true)
	granted := seedProject(t, e, "granted-proj", true)
	unknown := id.NewProjectID()

	mustGrant(t, e, principal.ForUser(alice), permission.ProjectUser, granted)

	kept, err := e.KeepAuthorizedProjectIDs(ctx, []id.ProjectID{public, private, granted, unknown}, alice, permission.ProjectUser)
	if err != nil {
		t.Fatalf("KeepAuthorizedProjectIDs: %v", err)
	}
	if len(kept) != 2 {
		t.Fatalf("expected 2 authorized projects, got %d: %v", len(kept), kept)
	}

	// Anonymous: implicit public access only, the direct grant does not apply.
	kept, err = e.KeepAuthorizedProjectIDs(ctx, []id.ProjectID{public, private, granted}, id.Nil, permission.ProjectUser)
	if err != nil {
		t.Fatalf("KeepAuthorizedProjectIDs(anonymous): %v", err)
	}
	if len(kept) != 1 || kept[0].String() != public.String() {
		t.Fatalf("expected only the public project, got %v", kept)
	}
}

func TestKeepAuthorizedUserIDsAnyoneAsymmetry(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	alice := seedUser(t, e, "alice")
	bob := seedUser(t, e, "bob")
	carol := seedUser(t, e, "carol")
	priv := seedProject(t, e, "private-proj", true)

	mustGrant(t, e, principal.ForUser(alice), permission.ProjectUser, priv)
	devs := seedGroup(t, e, "devs", bob)
	mustGrant(t, e, principal.ForGroup(devs), permission.ProjectUser, priv)
	mustGrant(t, e, principal.Anyone(), permission.ProjectUser, priv)

	// The Anyone grant authorizes anonymous access, never a named user:
	// carol stays out despite it.
	kept, err := e.KeepAuthorizedUserIDs(ctx, []id.UserID{alice, bob, carol}, permission.ProjectUser, priv)
	if err != nil {
		t.Fatalf("KeepAuthorizedUserIDs: %v", err)
	}
	if len(kept) != 2 {
		t.Fatalf("expected alice and bob only, got %v", kept)
	}

	// Flipping the project public makes every named user implicit.
	if err := e.Store().UpdateVisibility(ctx, priv, false); err != nil {
		t.Fatalf("UpdateVisibility: %v", err)
	}
	kept, err = e.KeepAuthorizedUserIDs(ctx, []id.UserID{alice, bob, carol}, permission.ProjectUser, priv)
	if err != nil {
		t.Fatalf("KeepAuthorizedUserIDs: %v", err)
	}
	if len(kept) != 3 {
		t.Fatalf("expected all three users on a public project, got %v", kept)
	}
}

func TestKeepAuthorizedProjectIDsChunkInvariance(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	chunked := newTestEngine(t, WithStore(s), WithConfig(Config{QueryChunkSize: 3}))
	defaulted := newTestEngine(t, WithStore(s))

	alice := seedUser(t, chunked, "alice")
	var candidates []id.ProjectID
	for i := 0; i < 2000; i++ {
		pid := seedProject(t, chunked, fmt.Sprintf("proj-%04d", i), true)
		if i%2 == 0 {
			mustGrant(t, chunked, principal.ForUser(alice), permission.ProjectScan, pid)
		}
		candidates = append(candidates, pid)
	}

	kept, err := chunked.KeepAuthorizedProjectIDs(ctx, candidates, alice, permission.ProjectScan)
	if err != nil {
		t.Fatalf("KeepAuthorizedProjectIDs: %v", err)
	}
	if len(kept) != 1000 {
		t.Fatalf("expected 1000 authorized projects with chunk size 3, got %d", len(kept))
	}

	// The default chunk size sees the same store and must agree exactly.
	whole, err := defaulted.KeepAuthorizedProjectIDs(ctx, candidates, alice, permission.ProjectScan)
	if err != nil {
		t.Fatalf("KeepAuthorizedProjectIDs(default chunk): %v", err)
	}
	if len(whole) != len(kept) {
		t.Fatalf("chunk size changed the result: %d vs %d", len(whole), len(kept))
	}
	for i := range kept {
		if kept[i].String() != whole[i].String() {
			t.Fatalf("chunk size changed result ordering at %d: %s vs %s", i, kept[i], whole[i])
		}
	}

	// Duplicated candidates do not duplicate results.
	doubled := append(append([]id.ProjectID{}, candidates...), candidates...)
	kept, err = chunked.KeepAuthorizedProjectIDs(ctx, doubled, alice, permission.ProjectScan)
	if err != nil {
		t.Fatalf("KeepAuthorizedProjectIDs(doubled): %v", err)
	}
	if len(kept) != 1000 {
		t.Fatalf("expected a set result over duplicated candidates, got %d", len(kept))
	}
}

func TestKeepAuthorizedUserIDsChunkInvariance(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	chunked := newTestEngine(t, WithStore(s), WithConfig(Config{QueryChunkSize: 3}))
	defaulted := newTestEngine(t, WithStore(s))

	priv := seedProject(t, chunked, "proj", true)
	devs := seedGroup(t, chunked, "devs")

	// Every fourth user holds a direct grant, the next fourth goes through
	// the group, the rest hold nothing.
	var candidates []id.UserID
	for i := 0; i < 2000; i++ {
		uid := seedUser(t, chunked, fmt.Sprintf("user-%04d", i))
		switch i % 4 {
		case 0:
			mustGrant(t, chunked, principal.ForUser(uid), permission.ProjectIssueAdmin, priv)
		case 1:
			if err := s.AddMember(ctx, devs, uid); err != nil {
				t.Fatalf("AddMember: %v", err)
			}
		}
		candidates = append(candidates, uid)
	}
	mustGrant(t, chunked, principal.ForGroup(devs), permission.ProjectIssueAdmin, priv)

	kept, err := chunked.KeepAuthorizedUserIDs(ctx, candidates, permission.ProjectIssueAdmin, priv)
	if err != nil {
		t.Fatalf("KeepAuthorizedUserIDs: %v", err)
	}
	if len(kept) != 1000 {
		t.Fatalf("expected 1000 authorized users with chunk size 3, got %d", len(kept))
	}

	whole, err := defaulted.KeepAuthorizedUserIDs(ctx, candidates, permission.ProjectIssueAdmin, priv)
	if err != nil {
		t.Fatalf("KeepAuthorizedUserIDs(default chunk): %v", err)
	}
	if len(whole) != len(kept) {
		t.Fatalf("chunk size changed the result: %d vs %d", len(whole), len(kept))
	}
	for i := range kept {
		if kept[i].String() != whole[i].String() {
			t.Fatalf("chunk size changed result ordering at %d: %s vs %s", i, kept[i], whole[i])
		}
	}
}

func TestCountUsersWithGlobalPermissionExclusions(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	u1 := seedUser(t, e, "u1")
	u2 := seedUser(t, e, "u2")
	u3 := seedUser(t, e, "u3")
	admins := seedGroup(t, e, "admins", u1, u2)

	mustGrant(t, e, principal.ForGroup(admins), "admin", id.Nil)
	mustGrant(t, e, principal.ForUser(u3), "admin", id.Nil)

	n, err := e.CountUsersWithGlobalPermissionExcludingGroup(ctx, "admin", admins)
	if err != nil {
		t.Fatalf("CountUsersWithGlobalPermissionExcludingGroup: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 holder without the group path, got %d", n)
	}

	// u3's direct grant disregarded: only the group path remains.
	n, err = e.CountUsersWithGlobalPermissionExcludingUser(ctx, "admin", u3)
	if err != nil {
		t.Fatalf("CountUsersWithGlobalPermissionExcludingUser: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 holders without u3's direct grant, got %d", n)
	}

	// Anyone grants authorize anonymous access and never add named holders.
	mustGrant(t, e, principal.Anyone(), "admin", id.Nil)
	n, err = e.CountUsersWithGlobalPermissionExcludingGroup(ctx, "admin", admins)
	if err != nil {
		t.Fatalf("CountUsersWithGlobalPermissionExcludingGroup: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected the Anyone grant to leave the count at 1, got %d", n)
	}
}

func TestCountUsersWithGlobalPermissionOverlappingGroups(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	// Holders of global "scan": u1 and u2 through g1, u1 and u3 through g2,
	// u4 directly. g3 holds the grant but has no members; u5 holds nothing.
	u1 := seedUser(t, e, "u1")
	u2 := seedUser(t, e, "u2")
	u3 := seedUser(t, e, "u3")
	u4 := seedUser(t, e, "u4")
	seedUser(t, e, "u5")

	g1 := seedGroup(t, e, "g1", u1, u2)
	g2 := seedGroup(t, e, "g2", u1, u3)
	g3 := seedGroup(t, e, "g3")

	mustGrant(t, e, principal.ForGroup(g1), "scan", id.Nil)
	mustGrant(t, e, principal.ForGroup(g1), "admin", id.Nil)
	mustGrant(t, e, principal.ForGroup(g2), "scan", id.Nil)
	mustGrant(t, e, principal.ForGroup(g2), "admin", id.Nil)
	mustGrant(t, e, principal.ForGroup(g3), "scan", id.Nil)
	mustGrant(t, e, principal.ForUser(u4), "scan", id.Nil)
	mustGrant(t, e, principal.ForUser(u4), "admin", id.Nil)
	mustGrant(t, e, principal.Anyone(), "scan", id.Nil)

	cases := []struct {
		name     string
		excluded id.GroupID
		want     int
	}{
		// u1 keeps the grant through g2.
		{"excluding g1", g1, 3},
		// u1 keeps the grant through g1.
		{"excluding g2", g2, 3},
		// g3 contributes no members, so nothing changes.
		{"excluding g3", g3, 4},
	}
	for _, c := range cases {
		n, err := e.CountUsersWithGlobalPermissionExcludingGroup(ctx, "scan", c.excluded)
		if err != nil {
			t.Fatalf("%s: %v", c.name, err)
		}
		if n != c.want {
			t.Fatalf("%s: expected %d holders, got %d", c.name, c.want, n)
		}
	}

	// Nobody holds an unknown permission.
	n, err := e.CountUsersWithGlobalPermissionExcludingGroup(ctx, "missing", g1)
	if err != nil {
		t.Fatalf("CountUsersWithGlobalPermissionExcludingGroup: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 holders of an unknown permission, got %d", n)
	}
}

func TestGrantValidation(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	alice := seedUser(t, e, "alice")
	proj := seedProject(t, e, "proj", true)

	err := e.Grant(ctx, principal.ForUser(alice), "does-not-exist", id.Nil)
	if !errors.Is(err, ErrUnknownGlobalPermission) {
		t.Fatalf("expected ErrUnknownGlobalPermission, got %v", err)
	}

	err = e.Grant(ctx, principal.ForUser(alice), "  ", proj)
	if !errors.Is(err, ErrInvalidProjectPermission) {
		t.Fatalf("expected ErrInvalidProjectPermission, got %v", err)
	}

	err = e.Grant(ctx, principal.Ref{Kind: principal.KindUser}, "scan", id.Nil)
	if !errors.Is(err, ErrInvalidPrincipal) {
		t.Fatalf("expected ErrInvalidPrincipal, got %v", err)
	}
}

func TestRevokeNoOpIsNotAudited(t *testing.T) {
	ctx := context.Background()
	rec := audit.NewRecorder()
	e := newTestEngine(t, WithAuditSink(rec))
	alice := seedUser(t, e, "alice")

	removed, err := e.Revoke(ctx, principal.ForUser(alice), "scan", id.Nil)
	if err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if removed {
		t.Fatal("expected no-op revoke to report false")
	}
	if n := len(rec.Entries()); n != 0 {
		t.Fatalf("expected no audit entries for a no-op revoke, got %d", n)
	}

	mustGrant(t, e, principal.ForUser(alice), "scan", id.Nil)
	removed, err = e.Revoke(ctx, principal.ForUser(alice), "scan", id.Nil)
	if err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if !removed {
		t.Fatal("expected revoke of an existing grant to report true")
	}

	entries := rec.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected grant+revoke audit entries, got %d", len(entries))
	}
	if entries[0].Action != audit.ActionGrantAdded || entries[1].Action != audit.ActionGrantRemoved {
		t.Fatalf("unexpected audit actions: %s, %s", entries[0].Action, entries[1].Action)
	}
	if entries[1].UserLogin != "alice" {
		t.Fatalf("expected resolved user login in audit entry, got %q", entries[1].UserLogin)
	}
}

func TestRevokeGlobalAndProjectIndependence(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	alice := seedUser(t, e, "alice")
	proj := seedProject(t, e, "proj", true)

	mustGrant(t, e, principal.ForUser(alice), "scan", id.Nil)
	mustGrant(t, e, principal.ForUser(alice), "scan", proj)

	removed, err := e.Revoke(ctx, principal.ForUser(alice), "scan", proj)
	if err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if !removed {
		t.Fatal("expected the project grant to be removed")
	}

	perms, err := e.SelectGlobalPermissions(ctx, alice)
	if err != nil {
		t.Fatalf("SelectGlobalPermissions: %v", err)
	}
	if len(perms) != 1 || perms[0] != "scan" {
		t.Fatalf("expected the global grant to survive, got %v", perms)
	}
}

func TestBulkRevokeAuditsOnce(t *testing.T) {
	ctx := context.Background()
	rec := audit.NewRecorder()
	e := newTestEngine(t, WithAuditSink(rec))

	alice := seedUser(t, e, "alice")
	devs := seedGroup(t, e, "devs", alice)
	proj := seedProject(t, e, "proj", true)

	mustGrant(t, e, principal.ForUser(alice), permission.ProjectUser, proj)
	mustGrant(t, e, principal.ForGroup(devs), permission.ProjectScan, proj)
	mustGrant(t, e, principal.Anyone(), permission.ProjectCodeViewer, proj)
	grantEntries := len(rec.Entries())

	removed, err := e.RevokeAllForProject(ctx, proj)
	if err != nil {
		t.Fatalf("RevokeAllForProject: %v", err)
	}
	if removed != 3 {
		t.Fatalf("expected 3 removed grants, got %d", removed)
	}

	entries := rec.Entries()
	if len(entries) != grantEntries+1 {
		t.Fatalf("expected one audit entry for the bulk revoke, got %d", len(entries)-grantEntries)
	}
	last := entries[len(entries)-1]
	if last.Action != audit.ActionGrantRemoved || last.RemovedCount != 3 {
		t.Fatalf("unexpected bulk audit entry: action=%s removed=%d", last.Action, last.RemovedCount)
	}

	// Nothing left: a second bulk revoke is silent.
	removed, err = e.RevokeAllForProject(ctx, proj)
	if err != nil {
		t.Fatalf("RevokeAllForProject: %v", err)
	}
	if removed != 0 {
		t.Fatalf("expected no grants left, got %d", removed)
	}
	if len(rec.Entries()) != len(entries) {
		t.Fatal("expected no audit entry for an empty bulk revoke")
	}
}

func TestRevokeAllForProjectAndPrincipal(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	alice := seedUser(t, e, "alice")
	proj := seedProject(t, e, "proj", true)

	mustGrant(t, e, principal.ForUser(alice), permission.ProjectUser, proj)
	mustGrant(t, e, principal.ForUser(alice), permission.ProjectScan, proj)
	mustGrant(t, e, principal.Anyone(), permission.ProjectUser, proj)

	removed, err := e.RevokeAllForProjectAndPrincipal(ctx, proj, principal.ForUser(alice))
	if err != nil {
		t.Fatalf("RevokeAllForProjectAndPrincipal: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed grants, got %d", removed)
	}

	// The Anyone grant is a separate principal and survives.
	perms, err := e.SelectProjectPermissionsOfAnonymous(ctx, proj)
	if err != nil {
		t.Fatalf("SelectProjectPermissionsOfAnonymous: %v", err)
	}
	if len(perms) != 1 || perms[0] != permission.ProjectUser {
		t.Fatalf("expected the Anyone grant to survive, got %v", perms)
	}
}

func TestSelectPrincipalsWithPermissionOnProjectBut(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	alice := seedUser(t, e, "alice")
	bob := seedUser(t, e, "bob")
	proj := seedProject(t, e, "proj", true)

	mustGrant(t, e, principal.ForUser(alice), permission.ProjectUser, proj)
	mustGrant(t, e, principal.ForUser(alice), permission.ProjectAdmin, proj)
	mustGrant(t, e, principal.ForUser(bob), permission.ProjectUser, proj)

	refs, err := e.SelectPrincipalsWithPermissionOnProjectBut(ctx, proj, permission.ProjectAdmin)
	if err != nil {
		t.Fatalf("SelectPrincipalsWithPermissionOnProjectBut: %v", err)
	}
	if len(refs) != 1 || refs[0].ID.String() != bob.String() {
		t.Fatalf("expected only bob, got %v", refs)
	}
}

func TestListUsersByQueryPartition(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	holder := seedUser(t, e, "zoe")
	seedUser(t, e, "aaron")
	seedUser(t, e, "mia")
	mustGrant(t, e, principal.ForUser(holder), "scan", id.Nil)

	q, err := grant.NewQueryBuilder().SetPermission("scan").Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	ids, err := e.SelectUserIDsByQuery(ctx, q)
	if err != nil {
		t.Fatalf("SelectUserIDsByQuery: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("expected 3 users, got %d", len(ids))
	}
	// zoe holds a grant and sorts before the non-holders despite her name.
	if ids[0].String() != holder.String() {
		t.Fatalf("expected the grant holder first, got %v", ids)
	}

	count, err := e.CountUsersByQuery(ctx, q)
	if err != nil {
		t.Fatalf("CountUsersByQuery: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected count 3, got %d", count)
	}
}

func TestListGroupNamesByQueryAnyonePinned(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	seedGroup(t, e, "devs")
	seedGroup(t, e, "admins")
	mustGrant(t, e, principal.Anyone(), "scan", id.Nil)

	q, err := grant.NewQueryBuilder().SetPermission("scan").Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	names, err := e.SelectGroupNamesByQuery(ctx, q)
	if err != nil {
		t.Fatalf("SelectGroupNamesByQuery: %v", err)
	}
	want := []string{principal.AnyoneName, "admins", "devs"}
	if len(names) != len(want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, names)
		}
	}
}
