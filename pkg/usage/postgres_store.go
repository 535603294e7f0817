package usage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/meterkit/pkg/pg"
)

// PostgresStore keeps counters in the usage_counters table.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const getUsageSQL = `
SELECT count, last_activity_at
FROM usage_counters
WHERE identity_key = $1`

// The WHERE clause makes the day-aware check and the increment one statement,
// so row locking serialises concurrent consumers. An earlier UTC day reads as
// zero; a later stored day (clock skew) keeps its count.
const consumeUsageSQL = `
INSERT INTO usage_counters AS u (identity_key, count, last_activity_at)
VALUES ($1, 1, $3)
ON CONFLICT (identity_key) DO UPDATE SET
	count = CASE
		WHEN (u.last_activity_at AT TIME ZONE 'UTC')::date < ($3::timestamptz AT TIME ZONE 'UTC')::date THEN 1
		ELSE u.count + 1
	END,
	last_activity_at = GREATEST(u.last_activity_at, $3)
WHERE $2 < 0 OR (CASE
		WHEN (u.last_activity_at AT TIME ZONE 'UTC')::date < ($3::timestamptz AT TIME ZONE 'UTC')::date THEN 0
		ELSE u.count
	END) < $2
RETURNING count, last_activity_at`

func (s *PostgresStore) Get(ctx context.Context, key string) (Record, error) {
	r := Record{Key: key}
	err := s.db.QueryRow(ctx, getUsageSQL, key).Scan(&r.Count, &r.LastActivityAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return Record{Key: key}, nil
	case err != nil:
		return Record{}, errors.Join(ErrStoreFailure, pg.Classify(err))
	}
	r.LastActivityAt = r.LastActivityAt.UTC()
	return r, nil
}

func (s *PostgresStore) Consume(ctx context.Context, key string, quota int, now time.Time) (Record, bool, error) {
	if quota == 0 {
		return s.denied(ctx, key, now)
	}

	r := Record{Key: key}
	err := s.db.QueryRow(ctx, consumeUsageSQL, key, quota, now.UTC()).Scan(&r.Count, &r.LastActivityAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return s.denied(ctx, key, now)
	case err != nil:
		return Record{}, false, errors.Join(ErrStoreFailure, pg.Classify(err))
	}
	r.LastActivityAt = r.LastActivityAt.UTC()
	return r, true, nil
}

func (s *PostgresStore) denied(ctx context.Context, key string, now time.Time) (Record, bool, error) {
	r, err := s.Get(ctx, key)
	if err != nil {
		return Record{}, false, err
	}
	r.Count = r.EffectiveCount(now)
	return r, false, nil
}
