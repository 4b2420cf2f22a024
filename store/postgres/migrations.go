package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the hallpass store (PostgreSQL).
var Migrations = migrate.NewGroup("hallpass")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_users",
			Version: "20250101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS hallpass_users (
    id              TEXT PRIMARY KEY,
    login           TEXT NOT NULL,
    name            TEXT NOT NULL,
    email           TEXT NOT NULL DEFAULT '',
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),

    UNIQUE(login)
);

CREATE INDEX IF NOT EXISTS idx_hallpass_users_name ON hallpass_users (LOWER(name));
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS hallpass_users`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_groups",
			Version: "20250101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS hallpass_groups (
    id              TEXT PRIMARY KEY,
    name            TEXT NOT NULL,
    description     TEXT NOT NULL DEFAULT '',
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),

    UNIQUE(name)
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS hallpass_groups`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_group_members",
			Version: "20250101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS hallpass_group_members (
    group_id        TEXT NOT NULL REFERENCES hallpass_groups(id) ON DELETE CASCADE,
    user_id         TEXT NOT NULL REFERENCES hallpass_users(id) ON DELETE CASCADE,

    PRIMARY KEY (group_id, user_id)
);

CREATE INDEX IF NOT EXISTS idx_hallpass_members_user ON hallpass_group_members (user_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS hallpass_group_members`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_projects",
			Version: "20250101000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS hallpass_projects (
    id              TEXT PRIMARY KEY,
    project_key     TEXT NOT NULL,
    name            TEXT NOT NULL,
    qualifier       TEXT NOT NULL DEFAULT 'TRK',
    private         BOOLEAN NOT NULL DEFAULT false,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),

    UNIQUE(project_key)
);

CREATE INDEX IF NOT EXISTS idx_hallpass_projects_private ON hallpass_projects (private);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS hallpass_projects`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_grants",
			Version: "20250101000005",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS hallpass_grants (
    id              TEXT PRIMARY KEY,
    principal_kind  TEXT NOT NULL,
    principal_id    TEXT,
    role            TEXT NOT NULL,
    project_id      TEXT,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_hallpass_grants_principal ON hallpass_grants (principal_kind, principal_id, role);
CREATE INDEX IF NOT EXISTS idx_hallpass_grants_project ON hallpass_grants (project_id, role);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS hallpass_grants`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_audit_entries",
			Version: "20250101000006",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS hallpass_audit_entries (
    id                TEXT PRIMARY KEY,
    action            TEXT NOT NULL,
    permission        TEXT NOT NULL DEFAULT '',
    user_id           TEXT NOT NULL DEFAULT '',
    user_login        TEXT NOT NULL DEFAULT '',
    group_id          TEXT NOT NULL DEFAULT '',
    group_name        TEXT NOT NULL DEFAULT '',
    project_id        TEXT NOT NULL DEFAULT '',
    project_key       TEXT NOT NULL DEFAULT '',
    project_name      TEXT NOT NULL DEFAULT '',
    project_qualifier TEXT NOT NULL DEFAULT '',
    removed_count     BIGINT NOT NULL DEFAULT 0,
    recorded_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_hallpass_audit_action ON hallpass_audit_entries (action);
CREATE INDEX IF NOT EXISTS idx_hallpass_audit_recorded ON hallpass_audit_entries (recorded_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS hallpass_audit_entries`)
				return err
			},
		},
	)
}
