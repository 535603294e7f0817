package purchase

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/meterkit/pkg/apperr"
	"github.com/dmitrymomot/meterkit/pkg/identity"
	"github.com/dmitrymomot/meterkit/pkg/pg"
)

type PostgresLedger struct {
	db *pgxpool.Pool
}

func NewPostgresLedger(db *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{db: db}
}

const purchaseColumns = `id, session_id, COALESCE(identity_key, ''), COALESCE(product_id, ''), amount_paid, currency, payment_intent_id, recorded_at`

const insertPurchaseSQL = `
INSERT INTO purchases (id, session_id, identity_key, product_id, amount_paid, currency, payment_intent_id, recorded_at)
VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7, $8)
ON CONFLICT (session_id) DO NOTHING
RETURNING ` + purchaseColumns

// InsertOrGet relies on the unique session_id constraint. A conflicting
// insert returns no row and the existing one is read back.
func (l *PostgresLedger) InsertOrGet(ctx context.Context, r Record) (Record, bool, error) {
	if r.SessionID == "" {
		return Record{}, false, errors.Join(apperr.ErrValidation, ErrMissingSessionID)
	}
	stored, err := scanRecord(l.db.QueryRow(ctx, insertPurchaseSQL,
		r.ID, r.SessionID, r.Identity.Key(), r.ProductID,
		r.AmountPaid.Amount, r.AmountPaid.Code(), r.PaymentIntentID, r.RecordedAt,
	))
	if err == nil {
		return stored, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Record{}, false, pg.Classify(err)
	}

	existing, err := l.Get(ctx, r.SessionID)
	if err != nil {
		return Record{}, false, err
	}
	return existing, false, nil
}

func (l *PostgresLedger) Get(ctx context.Context, sessionID string) (Record, error) {
	r, err := scanRecord(l.db.QueryRow(ctx, `SELECT `+purchaseColumns+` FROM purchases WHERE session_id = $1`, sessionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, errors.Join(apperr.ErrNotFound, ErrRecordNotFound)
	}
	if err != nil {
		return Record{}, pg.Classify(err)
	}
	return r, nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var (
		r   Record
		key string
	)
	if err := row.Scan(&r.ID, &r.SessionID, &key, &r.ProductID,
		&r.AmountPaid.Amount, &r.AmountPaid.Currency, &r.PaymentIntentID, &r.RecordedAt,
	); err != nil {
		return Record{}, err
	}
	if key != "" {
		id, err := identity.ParseKey(key)
		if err != nil {
			return Record{}, errors.Join(apperr.ErrValidation, err)
		}
		r.Identity = id
	}
	r.RecordedAt = r.RecordedAt.UTC()
	return r, nil
}
