package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Contact is the shopper's contact information entered at checkout.
type Contact struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Address is a shipping destination.
type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
}

// Order is the confirmation produced by a successful checkout. It snapshots
// the cart lines and the quote at the moment of placement.
type Order struct {
	ID              string          `json:"id"`
	SessionID       string          `json:"session_id"`
	Contact         Contact         `json:"contact"`
	ShippingAddress Address         `json:"shipping_address"`
	Items           []CartItem      `json:"items"`
	ItemCount       int             `json:"item_count"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	Shipping        decimal.Decimal `json:"shipping"`
	Tax             decimal.Decimal `json:"tax"`
	Total           decimal.Decimal `json:"total"`
	Currency        string          `json:"currency"`
	PlacedAt        time.Time       `json:"placed_at"`
}
