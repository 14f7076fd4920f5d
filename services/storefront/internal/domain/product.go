package domain

import "github.com/shopspring/decimal"

// Product describes the catalog entry a shopper adds to the cart. Only the
// fields a cart line needs are carried.
type Product struct {
	ID       string
	Name     string
	Price    decimal.Decimal
	Image    string
	Category string
	Variant  string
}
