package catalog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/meterkit/pkg/apperr"
	"github.com/dmitrymomot/meterkit/pkg/pg"
)

// PostgresCatalog reads the products table.
type PostgresCatalog struct {
	db *pgxpool.Pool
}

func NewPostgresCatalog(db *pgxpool.Pool) *PostgresCatalog {
	return &PostgresCatalog{db: db}
}

func (c *PostgresCatalog) Product(ctx context.Context, id string) (Product, error) {
	var p Product
	err := c.db.QueryRow(ctx,
		`SELECT id, title, price_cents, currency, active, file_url FROM products WHERE id = $1`, id,
	).Scan(&p.ID, &p.Title, &p.Price.Amount, &p.Price.Currency, &p.Active, &p.FileURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, errors.Join(apperr.ErrNotFound, ErrProductNotFound)
	}
	if err != nil {
		return Product{}, pg.Classify(err)
	}
	return p, nil
}

// Upsert writes p, replacing a product with the same id.
func (c *PostgresCatalog) Upsert(ctx context.Context, p Product) error {
	if err := p.Validate(); err != nil {
		return err
	}
	_, err := c.db.Exec(ctx, `
INSERT INTO products (id, title, price_cents, currency, active, file_url)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET
	title = EXCLUDED.title,
	price_cents = EXCLUDED.price_cents,
	currency = EXCLUDED.currency,
	active = EXCLUDED.active,
	file_url = EXCLUDED.file_url`,
		p.ID, p.Title, p.Price.Amount, p.Price.Code(), p.Active, p.FileURL)
	return pg.Classify(err)
}
