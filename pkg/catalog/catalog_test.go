package catalog_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/meterkit/pkg/apperr"
	"github.com/dmitrymomot/meterkit/pkg/catalog"
)

func TestMoney(t *testing.T) {
	t.Parallel()

	t.Run("format", func(t *testing.T) {
		t.Parallel()
		assert.Contains(t, catalog.USD(50).Format(), "0.50")
		assert.Contains(t, catalog.USD(123456).Format(), "234.56")
		assert.Contains(t, catalog.Money{Amount: 500, Currency: "EUR"}.Format(), "5.00")
	})

	t.Run("validate", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, catalog.USD(0).Validate())
		assert.ErrorIs(t, catalog.USD(-1).Validate(), apperr.ErrValidation)
		err := catalog.Money{Amount: 1, Currency: "ZZZZ"}.Validate()
		assert.ErrorIs(t, err, catalog.ErrInvalidCurrency)
	})
}

func TestMemory(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m, err := catalog.NewMemory(
		catalog.Product{ID: "guide", Title: "Guide", Price: catalog.USD(500), Active: true},
		catalog.Product{ID: "old", Title: "Old", Price: catalog.USD(500)},
	)
	require.NoError(t, err)

	p, err := m.Product(ctx, "guide")
	require.NoError(t, err)
	assert.Equal(t, "Guide", p.Title)

	p, err = m.Product(ctx, "old")
	require.NoError(t, err)
	assert.False(t, p.Active)

	_, err = m.Product(ctx, "missing")
	assert.ErrorIs(t, err, catalog.ErrProductNotFound)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	err = m.Add(catalog.Product{ID: "guide", Title: "Again", Price: catalog.USD(1)})
	assert.ErrorIs(t, err, catalog.ErrDuplicateProduct)

	err = m.Add(catalog.Product{ID: "", Title: "Nameless"})
	assert.ErrorIs(t, err, catalog.ErrInvalidProduct)
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()

	t.Run("full document", func(t *testing.T) {
		t.Parallel()
		doc := `
currency: EUR
templates:
  subscription: {price_id: price_123}
  voice_subscription: {name: Voice, amount: {amount: 299}, interval: month}
products:
  - id: guide
    title: Prompt guide
    price: {amount: 500}
    active: true
    file_url: s3://downloads/guide.pdf
  - id: pack
    title: Style pack
    price: {amount: 900, currency: USD}
`
		m, tpl, err := catalog.LoadYAML(strings.NewReader(doc))
		require.NoError(t, err)

		assert.Equal(t, "price_123", tpl.Subscription.PriceID)
		assert.Equal(t, "EUR", tpl.VoiceSubscription.Amount.Currency)
		assert.Equal(t, "Tip", tpl.TipName)

		p, err := m.Product(context.Background(), "guide")
		require.NoError(t, err)
		assert.Equal(t, catalog.Money{Amount: 500, Currency: "EUR"}, p.Price)
		assert.Equal(t, "s3://downloads/guide.pdf", p.FileURL)

		p, err = m.Product(context.Background(), "pack")
		require.NoError(t, err)
		assert.Equal(t, "USD", p.Price.Currency)
		assert.False(t, p.Active)
	})

	t.Run("empty document uses defaults", func(t *testing.T) {
		t.Parallel()
		_, tpl, err := catalog.LoadYAML(strings.NewReader(""))
		require.NoError(t, err)
		assert.Equal(t, catalog.DefaultTemplates(), tpl)
	})

	t.Run("unknown field", func(t *testing.T) {
		t.Parallel()
		_, _, err := catalog.LoadYAML(strings.NewReader("prodcts: []\n"))
		assert.ErrorIs(t, err, catalog.ErrFailedToParse)
		assert.ErrorIs(t, err, apperr.ErrConfiguration)
	})

	t.Run("inline template needs an interval", func(t *testing.T) {
		t.Parallel()
		doc := `
templates:
  subscription: {name: Pro, amount: {amount: 999}}
  voice_subscription: {price_id: price_v}
`
		_, _, err := catalog.LoadYAML(strings.NewReader(doc))
		assert.ErrorIs(t, err, catalog.ErrInvalidTemplate)
	})
}
