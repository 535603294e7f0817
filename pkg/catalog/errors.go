package catalog

import "errors"

var (
	ErrProductNotFound  = errors.New("catalog: product not found")
	ErrInvalidProduct   = errors.New("catalog: invalid product")
	ErrInvalidCurrency  = errors.New("catalog: invalid currency")
	ErrDuplicateProduct = errors.New("catalog: duplicate product id")
	ErrInvalidTemplate  = errors.New("catalog: invalid checkout template")
	ErrFailedToParse    = errors.New("catalog: failed to parse catalog file")
)
