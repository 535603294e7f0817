package main

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/meterkit/migrations"
	"github.com/dmitrymomot/meterkit/pkg/apperr"
	"github.com/dmitrymomot/meterkit/pkg/pg"
)

var ErrPostgresRequired = errors.New("meterd: migrations need PG_CONN_URL")

func newMigrateCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the postgres schema",
	}
	run := func(fn func(context.Context, *pgxpool.Pool) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			if !root.cfg.Postgres.Enabled() {
				return errors.Join(apperr.ErrConfiguration, ErrPostgresRequired)
			}
			pool, err := pg.Connect(cmd.Context(), root.cfg.Postgres)
			if err != nil {
				return err
			}
			defer pool.Close()
			return fn(cmd.Context(), pool)
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending migrations",
			RunE: run(func(ctx context.Context, pool *pgxpool.Pool) error {
				return pg.Migrate(ctx, pool, migrations.FS, root.cfg.Postgres, root.log)
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the latest migration",
			RunE: run(func(ctx context.Context, pool *pgxpool.Pool) error {
				return pg.Rollback(ctx, pool, migrations.FS, root.cfg.Postgres, root.log)
			}),
		},
		&cobra.Command{
			Use:   "status",
			Short: "Print migration status",
			RunE: run(func(ctx context.Context, pool *pgxpool.Pool) error {
				return pg.Status(ctx, pool, migrations.FS, root.cfg.Postgres, root.log)
			}),
		},
	)
	return cmd
}
