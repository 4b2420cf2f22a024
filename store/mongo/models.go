package mongo

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/hallpass/audit"
	"github.com/xraph/hallpass/grant"
	"github.com/xraph/hallpass/id"
	"github.com/xraph/hallpass/principal"
	"github.com/xraph/hallpass/project"
)

// ──────────────────────────────────────────────────
// User model
// ──────────────────────────────────────────────────

type userModel struct {
	grove.BaseModel `grove:"table:hallpass_users"`
	ID              string    `grove:"id,pk"           bson:"_id"`
	Login           string    `grove:"login"           bson:"login"`
	Name            string    `grove:"name"            bson:"name"`
	Email           string    `grove:"email"           bson:"email"`
	CreatedAt       time.Time `grove:"created_at"      bson:"created_at"`
}

func userToModel(u *principal.User) *userModel {
	return &userModel{
		ID:        u.ID.String(),
		Login:     u.Login,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

func userFromModel(m *userModel) *principal.User {
	uid, _ := id.ParseUserID(m.ID) //nolint:errcheck // stored IDs are always valid
	return &principal.User{
		ID:        uid,
		Login:     m.Login,
		Name:      m.Name,
		Email:     m.Email,
		CreatedAt: m.CreatedAt,
	}
}

// ──────────────────────────────────────────────────
// Group model
// ──────────────────────────────────────────────────

type groupModel struct {
	grove.BaseModel `grove:"table:hallpass_groups"`
	ID              string    `grove:"id,pk"           bson:"_id"`
	Name            string    `grove:"name"            bson:"name"`
	Description     string    `grove:"description"     bson:"description"`
	CreatedAt       time.Time `grove:"created_at"      bson:"created_at"`
}

func groupToModel(g *principal.Group) *groupModel {
	return &groupModel{
		ID:          g.ID.String(),
		Name:        g.Name,
		Description: g.Description,
		CreatedAt:   g.CreatedAt,
	}
}

func groupFromModel(m *groupModel) *principal.Group {
	gid, _ := id.ParseGroupID(m.ID) //nolint:errcheck // stored IDs are always valid
	return &principal.Group{
		ID:          gid,
		Name:        m.Name,
		Description: m.Description,
		CreatedAt:   m.CreatedAt,
	}
}

// ──────────────────────────────────────────────────
// Group membership junction model
// ──────────────────────────────────────────────────

type memberModel struct {
	grove.BaseModel `grove:"table:hallpass_group_members"`
	GroupID         string `grove:"group_id,pk"     bson:"group_id"`
	UserID          string `grove:"user_id,pk"      bson:"user_id"`
}

// ──────────────────────────────────────────────────
// Project model
// ──────────────────────────────────────────────────

type projectModel struct {
	grove.BaseModel `grove:"table:hallpass_projects"`
	ID              string    `grove:"id,pk"           bson:"_id"`
	Key             string    `grove:"project_key"     bson:"project_key"`
	Name            string    `grove:"name"            bson:"name"`
	Qualifier       string    `grove:"qualifier"       bson:"qualifier"`
	Private         bool      `grove:"private"         bson:"private"`
	CreatedAt       time.Time `grove:"created_at"      bson:"created_at"`
}

func projectToModel(p *project.Project) *projectModel {
	return &projectModel{
		ID:        p.ID.String(),
		Key:       p.Key,
		Name:      p.Name,
		Qualifier: p.Qualifier,
		Private:   p.Private,
		CreatedAt: p.CreatedAt,
	}
}

func projectFromModel(m *projectModel) *project.Project {
	pid, _ := id.ParseProjectID(m.ID) //nolint:errcheck // stored IDs are always valid
	return &project.Project{
		ID:        pid,
		Key:       m.Key,
		Name:      m.Name,
		Qualifier: m.Qualifier,
		Private:   m.Private,
		CreatedAt: m.CreatedAt,
	}
}

// ──────────────────────────────────────────────────
// Grant model
// ──────────────────────────────────────────────────

// grantModel stores the principal reference as a kind discriminator plus an
// optional ID: Anyone documents omit principal_id, global grants omit
// project_id.
type grantModel struct {
	grove.BaseModel `grove:"table:hallpass_grants"`
	ID              string    `grove:"id,pk"           bson:"_id"`
	PrincipalKind   string    `grove:"principal_kind"  bson:"principal_kind"`
	PrincipalID     *string   `grove:"principal_id"    bson:"principal_id,omitempty"`
	Role            string    `grove:"role"            bson:"role"`
	ProjectID       *string   `grove:"project_id"      bson:"project_id,omitempty"`
	CreatedAt       time.Time `grove:"created_at"      bson:"created_at"`
}

func grantToModel(g *grant.Grant) *grantModel {
	m := &grantModel{
		ID:            g.ID.String(),
		PrincipalKind: string(g.Principal.Kind),
		Role:          g.Permission,
		CreatedAt:     g.CreatedAt,
	}
	if !g.Principal.ID.IsNil() {
		s := g.Principal.ID.String()
		m.PrincipalID = &s
	}
	if !g.ProjectID.IsNil() {
		s := g.ProjectID.String()
		m.ProjectID = &s
	}
	return m
}

func grantFromModel(m *grantModel) *grant.Grant {
	gid, _ := id.ParseGrantID(m.ID) //nolint:errcheck // stored IDs are always valid
	g := &grant.Grant{
		ID:         gid,
		Principal:  principal.Ref{Kind: principal.Kind(m.PrincipalKind)},
		Permission: m.Role,
		CreatedAt:  m.CreatedAt,
	}
	if m.PrincipalID != nil {
		pid, err := id.ParseAny(*m.PrincipalID)
		if err == nil {
			g.Principal.ID = pid
		}
	}
	if m.ProjectID != nil {
		pid, err := id.ParseProjectID(*m.ProjectID)
		if err == nil {
			g.ProjectID = pid
		}
	}
	return g
}

// ──────────────────────────────────────────────────
// Audit entry model
// ──────────────────────────────────────────────────

type auditModel struct {
	grove.BaseModel  `grove:"table:hallpass_audit_entries"`
	ID               string    `grove:"id,pk"             bson:"_id"`
	Action           string    `grove:"action"            bson:"action"`
	Permission       string    `grove:"permission"        bson:"permission,omitempty"`
	UserID           string    `grove:"user_id"           bson:"user_id,omitempty"`
	UserLogin        string    `grove:"user_login"        bson:"user_login,omitempty"`
	GroupID          string    `grove:"group_id"          bson:"group_id,omitempty"`
	GroupName        string    `grove:"group_name"        bson:"group_name,omitempty"`
	ProjectID        string    `grove:"project_id"        bson:"project_id,omitempty"`
	ProjectKey       string    `grove:"project_key"       bson:"project_key,omitempty"`
	ProjectName      string    `grove:"project_name"      bson:"project_name,omitempty"`
	ProjectQualifier string    `grove:"project_qualifier" bson:"project_qualifier,omitempty"`
	RemovedCount     int64     `grove:"removed_count"     bson:"removed_count"`
	RecordedAt       time.Time `grove:"recorded_at"       bson:"recorded_at"`
}

func auditToModel(e *audit.Entry) *auditModel {
	m := &auditModel{
		ID:               e.ID.String(),
		Action:           string(e.Action),
		Permission:       e.Permission,
		UserLogin:        e.UserLogin,
		GroupName:        e.GroupName,
		ProjectKey:       e.ProjectKey,
		ProjectName:      e.ProjectName,
		ProjectQualifier: e.ProjectQualifier,
		RemovedCount:     e.RemovedCount,
		RecordedAt:       e.At,
	}
	if !e.UserID.IsNil() {
		m.UserID = e.UserID.String()
	}
	if !e.GroupID.IsNil() {
		m.GroupID = e.GroupID.String()
	}
	if !e.ProjectID.IsNil() {
		m.ProjectID = e.ProjectID.String()
	}
	return m
}

func auditFromModel(m *auditModel) *audit.Entry {
	aid, _ := id.ParseAuditID(m.ID) //nolint:errcheck // stored IDs are always valid
	e := &audit.Entry{
		ID:               aid,
		Action:           audit.Action(m.Action),
		Permission:       m.Permission,
		UserLogin:        m.UserLogin,
		GroupName:        m.GroupName,
		ProjectKey:       m.ProjectKey,
		ProjectName:      m.ProjectName,
		ProjectQualifier: m.ProjectQualifier,
		RemovedCount:     m.RemovedCount,
		At:               m.RecordedAt,
	}
	if m.UserID != "" {
		uid, err := id.ParseUserID(m.UserID)
		if err == nil {
			e.UserID = uid
		}
	}
	if m.GroupID != "" {
		gid, err := id.ParseGroupID(m.GroupID)
		if err == nil {
			e.GroupID = gid
		}
	}
	if m.ProjectID != "" {
		pid, err := id.ParseProjectID(m.ProjectID)
		if err == nil {
			e.ProjectID = pid
		}
	}
	return e
}
