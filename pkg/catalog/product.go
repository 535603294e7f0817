package catalog

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/dmitrymomot/meterkit/pkg/apperr"
)

// Product is a one-time digital good.
type Product struct {
	ID      string `json:"id" yaml:"id"`
	Title   string `json:"title" yaml:"title"`
	Price   Money  `json:"price" yaml:"price"`
	Active  bool   `json:"active" yaml:"active"`
	FileURL string `json:"-" yaml:"file_url"`
}

func (p Product) Validate() error {
	if strings.TrimSpace(p.ID) == "" || strings.TrimSpace(p.Title) == "" {
		return errors.Join(apperr.ErrValidation, ErrInvalidProduct)
	}
	return p.Price.Validate()
}

// Catalog looks products up by id. Inactive products are returned; callers
// decide whether they may be sold.
type Catalog interface {
	Product(ctx context.Context, id string) (Product, error)
}

// Memory is a fixed, in-process catalog.
type Memory struct {
	mu       sync.RWMutex
	products map[string]Product
}

func NewMemory(products ...Product) (*Memory, error) {
	m := &Memory{products: make(map[string]Product, len(products))}
	for _, p := range products {
		if err := m.Add(p); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Add inserts p. Ids are unique.
func (m *Memory) Add(p Product) error {
	if err := p.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[p.ID]; ok {
		return errors.Join(apperr.ErrValidation, ErrDuplicateProduct)
	}
	m.products[p.ID] = p
	return nil
}

func (m *Memory) Product(_ context.Context, id string) (Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[id]
	if !ok {
		return Product{}, errors.Join(apperr.ErrNotFound, ErrProductNotFound)
	}
	return p, nil
}
