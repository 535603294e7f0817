package catalog

import (
	"errors"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/meterkit/pkg/apperr"
)

// File is the decoded form of a catalog YAML document:
//
//	currency: USD
//	templates:
//	  subscription: {price_id: price_123}
//	  voice_subscription: {name: Voice, amount: {amount: 499}, interval: month}
//	  tip_name: Tip
//	products:
//	  - id: guide
//	    title: Prompt guide
//	    price: {amount: 500}
//	    active: true
//	    file_url: s3://downloads/guide.pdf
type File struct {
	Currency  string     `yaml:"currency"`
	Templates *Templates `yaml:"templates"`
	Products  []Product  `yaml:"products"`
}

// LoadYAML decodes and validates a catalog document. Missing templates fall
// back to DefaultTemplates; prices without a currency use the file's.
func LoadYAML(r io.Reader) (*Memory, Templates, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, Templates{}, errors.Join(apperr.ErrConfiguration, ErrFailedToParse, err)
	}

	tpl := DefaultTemplates()
	if f.Templates != nil {
		tpl = *f.Templates
		if tpl.TipName == "" {
			tpl.TipName = DefaultTemplates().TipName
		}
	}
	tpl.Subscription.Amount = withCurrency(tpl.Subscription.Amount, f.Currency)
	tpl.VoiceSubscription.Amount = withCurrency(tpl.VoiceSubscription.Amount, f.Currency)
	if err := tpl.Validate(); err != nil {
		return nil, Templates{}, errors.Join(apperr.ErrConfiguration, err)
	}

	for i := range f.Products {
		f.Products[i].Price = withCurrency(f.Products[i].Price, f.Currency)
	}
	m, err := NewMemory(f.Products...)
	if err != nil {
		return nil, Templates{}, errors.Join(apperr.ErrConfiguration, err)
	}
	return m, tpl, nil
}

// LoadYAMLFile opens path and calls LoadYAML.
func LoadYAMLFile(path string) (*Memory, Templates, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Templates{}, errors.Join(apperr.ErrConfiguration, ErrFailedToParse, err)
	}
	defer f.Close()
	return LoadYAML(f)
}

func withCurrency(m Money, fallback string) Money {
	if m.Currency == "" {
		m.Currency = fallback
	}
	if m.Currency == "" {
		m.Currency = DefaultCurrency
	}
	return m
}
