// Package catalog holds the products and checkout templates offered for sale.
//
// Products come from the products table (PostgresCatalog) or a YAML file
// (LoadYAML). Prices are integer minor units paired with an ISO 4217 code.
package catalog
