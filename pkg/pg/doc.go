// Package pg wraps pgx/v5 connection pooling and goose migrations for the
// Postgres-backed stores.
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, migrations.FS, cfg, log); err != nil {
//		return err
//	}
//
// Stores translate driver errors with [Classify] so callers only ever see
// apperr kinds: a missing row is NotFound, a unique violation is Conflict and
// anything else is UpstreamUnavailable.
package pg
