package hallpass

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/hallpass/audit"
	"github.com/xraph/hallpass/grant"
	"github.com/xraph/hallpass/id"
	"github.com/xraph/hallpass/permission"
	"github.com/xraph/hallpass/principal"
)

// Grant records a permission fact for the principal, either globally
// (projectID is nil) or on one project. The permission key is validated
// against the closed global set for global grants and as an open project key
// otherwise. The store does not deduplicate; callers check existence first.
// Registered audit sinks are notified synchronously on success.
func (e *Engine) Grant(ctx context.Context, ref principal.Ref, permissionKey string, projectID id.ProjectID) error {
	if err := ref.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPrincipal, err)
	}
	if err := validatePermissionKey(permissionKey, projectID); err != nil {
		return err
	}

	g := &grant.Grant{
		ID:         id.NewGrantID(),
		Principal:  ref,
		Permission: permissionKey,
		ProjectID:  projectID,
		CreatedAt:  time.Now().UTC(),
	}
	if err := e.store.InsertGrant(ctx, g); err != nil {
		return fmt.Errorf("hallpass: insert grant: %w", err)
	}

	e.emitAudit(ctx, audit.ActionGrantAdded, ref, permissionKey, projectID, 1)
	return nil
}

// Revoke removes the grant matching exactly (principal, permission,
// project|global). Revoking a fact that does not exist is a no-op: it
// reports false and does not notify the audit sinks. Global and
// project-scoped grants are independent facts; revoking one never touches
// the other.
func (e *Engine) Revoke(ctx context.Context, ref principal.Ref, permissionKey string, projectID id.ProjectID) (bool, error) {
	if err := ref.Validate(); err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidPrincipal, err)
	}

	removed, err := e.store.DeleteGrant(ctx, ref, permissionKey, projectID)
	if err != nil {
		return false, fmt.Errorf("hallpass: delete grant: %w", err)
	}
	if removed == 0 {
		return false, nil
	}

	e.emitAudit(ctx, audit.ActionGrantRemoved, ref, permissionKey, projectID, removed)
	return true, nil
}

// RevokeAllForProject removes every grant scoped to the project and returns
// the removed count. Global grants bearing the same permission keys are left
// untouched. Audit sinks are notified once, and only when something was
// removed.
func (e *Engine) RevokeAllForProject(ctx context.Context, projectID id.ProjectID) (int64, error) {
	removed, err := e.store.DeleteGrantsByProject(ctx, projectID)
	if err != nil {
		return 0, fmt.Errorf("hallpass: delete grants by project: %w", err)
	}
	if removed > 0 {
		e.emitAudit(ctx, audit.ActionGrantRemoved, principal.Ref{}, "", projectID, removed)
	}
	return removed, nil
}

// RevokeAllForProjectAndPrincipal removes every grant the principal holds on
// the project, including the Anyone pseudo-group, and returns the removed
// count.
func (e *Engine) RevokeAllForProjectAndPrincipal(ctx context.Context, projectID id.ProjectID, ref principal.Ref) (int64, error) {
	if err := ref.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidPrincipal, err)
	}

	removed, err := e.store.DeleteGrantsByProjectAndPrincipal(ctx, projectID, ref)
	if err != nil {
		return 0, fmt.Errorf("hallpass: delete grants by project and principal: %w", err)
	}
	if removed > 0 {
		e.emitAudit(ctx, audit.ActionGrantRemoved, ref, "", projectID, removed)
	}
	return removed, nil
}

// RevokeAllForProjectAndPermission removes every grant bearing the
// permission on the project and returns the removed count. A same-named
// global permission is a different fact and stays in place.
func (e *Engine) RevokeAllForProjectAndPermission(ctx context.Context, projectID id.ProjectID, permissionKey string) (int64, error) {
	removed, err := e.store.DeleteGrantsByProjectAndPermission(ctx, projectID, permissionKey)
	if err != nil {
		return 0, fmt.Errorf("hallpass: delete grants by project and permission: %w", err)
	}
	if removed > 0 {
		e.emitAudit(ctx, audit.ActionGrantRemoved, principal.Ref{}, permissionKey, projectID, removed)
	}
	return removed, nil
}

// validatePermissionKey checks the key against the vocabulary for the grant
// scope: closed global set when projectID is nil, open project keys
// otherwise.
func validatePermissionKey(key string, projectID id.ProjectID) error {
	if projectID.IsNil() {
		if !permission.ContainsKey(key) {
			return fmt.Errorf("%w: %q", ErrUnknownGlobalPermission, key)
		}
		return nil
	}
	if !permission.ValidKey(key) {
		return fmt.Errorf("%w: %q", ErrInvalidProjectPermission, key)
	}
	return nil
}

// emitAudit assembles and dispatches one audit entry, resolving display
// fields best-effort. A zero-kind ref means the mutation was not scoped to
// one principal (bulk by project or by permission).
func (e *Engine) emitAudit(ctx context.Context, action audit.Action, ref principal.Ref, permissionKey string, projectID id.ProjectID, affected int64) {
	entry := &audit.Entry{
		ID:           id.NewAuditID(),
		Action:       action,
		Permission:   permissionKey,
		RemovedCount: 0,
		At:           time.Now().UTC(),
	}
	if action == audit.ActionGrantRemoved {
		entry.RemovedCount = affected
	}

	switch ref.Kind {
	case principal.KindUser:
		entry.UserID = ref.ID
		if u, err := e.store.GetUser(ctx, ref.ID); err == nil {
			entry.UserLogin = u.Login
		}
	case principal.KindGroup:
		entry.GroupID = ref.ID
		if g, err := e.store.GetGroup(ctx, ref.ID); err == nil {
			entry.GroupName = g.Name
		}
	case principal.KindAnyone:
		// No principal fields: Anyone is identified by their absence.
	}

	if !projectID.IsNil() {
		entry.ProjectID = projectID
		if p, err := e.store.GetProject(ctx, projectID); err == nil {
			entry.ProjectKey = p.Key
			entry.ProjectName = p.Name
			entry.ProjectQualifier = p.Qualifier
		}
	}

	e.audit.Emit(ctx, entry)
}
