package entitlement

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/meterkit/pkg/apperr"
	"github.com/dmitrymomot/meterkit/pkg/identity"
	"github.com/dmitrymomot/meterkit/pkg/pg"
)

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const planColumns = `identity_key, plan_type, is_pro, COALESCE(stripe_customer_id, ''), upgraded_at, updated_at`

const upsertPlanSQL = `
INSERT INTO plan_records (identity_key, plan_type, is_pro, stripe_customer_id, upgraded_at, updated_at)
VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)
ON CONFLICT (identity_key) DO UPDATE SET
	plan_type = EXCLUDED.plan_type,
	is_pro = EXCLUDED.is_pro,
	stripe_customer_id = EXCLUDED.stripe_customer_id,
	upgraded_at = EXCLUDED.upgraded_at,
	updated_at = EXCLUDED.updated_at`

func (s *PostgresStore) Get(ctx context.Context, id identity.Identity) (PlanRecord, error) {
	return s.one(ctx, `SELECT `+planColumns+` FROM plan_records WHERE identity_key = $1`, id.Key())
}

func (s *PostgresStore) FindByCustomerID(ctx context.Context, customerID string) (PlanRecord, error) {
	if customerID == "" {
		return PlanRecord{}, errors.Join(apperr.ErrNotFound, ErrPlanNotFound)
	}
	return s.one(ctx, `SELECT `+planColumns+` FROM plan_records WHERE stripe_customer_id = $1 ORDER BY updated_at DESC LIMIT 1`, customerID)
}

func (s *PostgresStore) Upsert(ctx context.Context, r PlanRecord) error {
	if err := r.Validate(); err != nil {
		return err
	}
	_, err := s.db.Exec(ctx, upsertPlanSQL,
		r.Identity.Key(), string(r.PlanType), r.IsPro, r.StripeCustomerID, r.UpgradedAt, r.UpdatedAt,
	)
	return pg.Classify(err)
}

func (s *PostgresStore) one(ctx context.Context, query string, arg any) (PlanRecord, error) {
	var (
		key      string
		plan     string
		r        PlanRecord
		upgraded *time.Time
	)
	err := s.db.QueryRow(ctx, query, arg).Scan(&key, &plan, &r.IsPro, &r.StripeCustomerID, &upgraded, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return PlanRecord{}, errors.Join(apperr.ErrNotFound, ErrPlanNotFound)
	}
	if err != nil {
		return PlanRecord{}, pg.Classify(err)
	}

	id, err := identity.ParseKey(key)
	if err != nil {
		return PlanRecord{}, errors.Join(apperr.ErrValidation, err)
	}
	r.Identity, r.PlanType = id, PlanType(plan)
	if upgraded != nil {
		t := upgraded.UTC()
		r.UpgradedAt = &t
	}
	r.UpdatedAt = r.UpdatedAt.UTC()
	return r, nil
}
