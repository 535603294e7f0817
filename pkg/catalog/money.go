package catalog

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/dmitrymomot/meterkit/pkg/apperr"
)

// DefaultCurrency is used when a price omits its currency.
const DefaultCurrency = "USD"

// Money is an amount in the currency's minor unit, e.g. cents.
type Money struct {
	Amount   int64  `json:"amount" yaml:"amount"`
	Currency string `json:"currency" yaml:"currency"`
}

// USD returns cents as US dollars.
func USD(cents int64) Money { return Money{Amount: cents, Currency: DefaultCurrency} }

func (m Money) unit() (currency.Unit, error) {
	code := m.Currency
	if code == "" {
		code = DefaultCurrency
	}
	u, err := currency.ParseISO(code)
	if err != nil {
		return currency.Unit{}, errors.Join(apperr.ErrValidation, ErrInvalidCurrency, err)
	}
	return u, nil
}

// Code returns the upper-case ISO code.
func (m Money) Code() string {
	if m.Currency == "" {
		return DefaultCurrency
	}
	return strings.ToUpper(m.Currency)
}

func (m Money) Validate() error {
	if m.Amount < 0 {
		return errors.Join(apperr.ErrValidation, ErrInvalidProduct)
	}
	_, err := m.unit()
	return err
}

// Format renders m for English-speaking users, e.g. "$ 0.50".
func (m Money) Format() string {
	u, err := m.unit()
	if err != nil {
		return m.Code() + " " + formatMinor(m.Amount, 2)
	}
	scale, _ := currency.Standard.Rounding(u)
	major := float64(m.Amount) / math.Pow10(scale)
	return message.NewPrinter(language.English).Sprint(currency.Symbol(u.Amount(major)))
}

func formatMinor(amount int64, scale int) string {
	return strconv.FormatFloat(float64(amount)/math.Pow10(scale), 'f', scale, 64)
}
