package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the shelf store (PostgreSQL).
var Migrations = migrate.NewGroup("shelf")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_objects",
			Version: "20240101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS shelf_objects (
    resource        TEXT NOT NULL,
    parent_id       TEXT NOT NULL,
    id              TEXT NOT NULL,
    last_modified   BIGINT NOT NULL,
    data            JSONB NOT NULL DEFAULT '{}',

    PRIMARY KEY (resource, parent_id, id)
);

CREATE INDEX IF NOT EXISTS idx_shelf_objects_scope ON shelf_objects (resource, parent_id);
CREATE INDEX IF NOT EXISTS idx_shelf_objects_modified ON shelf_objects (resource, parent_id, last_modified DESC);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS shelf_objects`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_tombstones",
			Version: "20240101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS shelf_tombstones (
    resource        TEXT NOT NULL,
    parent_id       TEXT NOT NULL,
    id              TEXT NOT NULL,
    last_modified   BIGINT NOT NULL,

    PRIMARY KEY (resource, parent_id, id)
);

CREATE INDEX IF NOT EXISTS idx_shelf_tombstones_modified ON shelf_tombstones (resource, parent_id, last_modified DESC);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS shelf_tombstones`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_timestamps",
			Version: "20240101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS shelf_timestamps (
    resource        TEXT NOT NULL,
    parent_id       TEXT NOT NULL,
    last_modified   BIGINT NOT NULL,

    PRIMARY KEY (resource, parent_id)
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS shelf_timestamps`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_access",
			Version: "20240101000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS shelf_access (
    object_id       TEXT NOT NULL,
    permission      TEXT NOT NULL,
    principal       TEXT NOT NULL,

    PRIMARY KEY (object_id, permission, principal)
);

CREATE INDEX IF NOT EXISTS idx_shelf_access_object ON shelf_access (object_id);
CREATE INDEX IF NOT EXISTS idx_shelf_access_principal ON shelf_access (principal);
CREATE INDEX IF NOT EXISTS idx_shelf_access_pattern ON shelf_access (object_id text_pattern_ops, permission);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS shelf_access`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_user_principals",
			Version: "20240101000005",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS shelf_user_principals (
    user_id         TEXT NOT NULL,
    principal       TEXT NOT NULL,

    PRIMARY KEY (user_id, principal)
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS shelf_user_principals`)
				return err
			},
		},
	)
}
