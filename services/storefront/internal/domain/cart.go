package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/NhuHoa123/stationery-storefront/pkg/errors"
)

// CartItem is one line of the cart. Quantity is always at least 1.
type CartItem struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Image    string          `json:"image,omitempty"`
	Quantity int             `json:"quantity"`
	Category string          `json:"category,omitempty"`
	Variant  string          `json:"variant,omitempty"`
}

// LineTotal returns price × quantity.
func (i CartItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart holds a shopper's line items keyed by item ID. Totals are derived on
// every call and never stored. A Cart is not safe for concurrent use; the
// repositories hand out independent copies.
type Cart struct {
	ID        string
	SessionID string
	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time

	items map[string]*CartItem
	order []string
}

// NewCart returns an empty cart for the given session.
func NewCart(id, sessionID string, now time.Time) *Cart {
	return &Cart{
		ID:        id,
		SessionID: sessionID,
		CreatedAt: now,
		UpdatedAt: now,
		items:     make(map[string]*CartItem),
	}
}

// AddItem adds quantity units of p. If a line with the same ID exists its
// quantity grows and its name, price and image stay as first added.
// Non-positive quantities, a missing ID and negative prices are rejected
// without touching the cart.
func (c *Cart) AddItem(p Product, quantity int) error {
	if p.ID == "" {
		return apperrors.InvalidInput("item id is required")
	}
	if quantity <= 0 {
		return apperrors.InvalidInput("quantity must be positive")
	}
	if p.Price.IsNegative() {
		return apperrors.InvalidInput("price must not be negative")
	}

	if c.items == nil {
		c.items = make(map[string]*CartItem)
	}

	if existing, ok := c.items[p.ID]; ok {
		existing.Quantity += quantity
		return nil
	}

	c.items[p.ID] = &CartItem{
		ID:       p.ID,
		Name:     p.Name,
		Price:    p.Price,
		Image:    p.Image,
		Quantity: quantity,
		Category: p.Category,
		Variant:  p.Variant,
	}
	c.order = append(c.order, p.ID)
	return nil
}

// UpdateQuantity sets the quantity of an existing line. A quantity of zero
// or less removes the line. Unknown IDs are ignored. It reports whether the
// cart changed.
func (c *Cart) UpdateQuantity(id string, quantity int) bool {
	if quantity <= 0 {
		return c.RemoveItem(id)
	}

	item, ok := c.items[id]
	if !ok || item.Quantity == quantity {
		return false
	}
	item.Quantity = quantity
	return true
}

// RemoveItem deletes the line with the given ID and reports whether it was
// present.
func (c *Cart) RemoveItem(id string) bool {
	if _, ok := c.items[id]; !ok {
		return false
	}
	delete(c.items, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

// Clear removes every line.
func (c *Cart) Clear() {
	c.items = make(map[string]*CartItem)
	c.order = nil
}

// TotalItems returns the sum of all quantities.
func (c *Cart) TotalItems() int {
	total := 0
	for _, item := range c.items {
		total += item.Quantity
	}
	return total
}

// TotalPrice returns the sum of every line total.
func (c *Cart) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// Item returns a copy of the line with the given ID.
func (c *Cart) Item(id string) (CartItem, bool) {
	item, ok := c.items[id]
	if !ok {
		return CartItem{}, false
	}
	return *item, true
}

// Items returns copies of all lines in the order they were first added.
func (c *Cart) Items() []CartItem {
	out := make([]CartItem, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, *c.items[id])
	}
	return out
}

// Len returns the number of distinct lines.
func (c *Cart) Len() int {
	return len(c.items)
}

func (c *Cart) IsEmpty() bool {
	return len(c.items) == 0
}

// Clone returns a deep copy of the cart.
func (c *Cart) Clone() *Cart {
	out := *c
	out.items = make(map[string]*CartItem, len(c.items))
	for id, item := range c.items {
		cp := *item
		out.items[id] = &cp
	}
	out.order = append([]string(nil), c.order...)
	return &out
}

type cartSnapshot struct {
	ID        string     `json:"id"`
	SessionID string     `json:"session_id"`
	Items     []CartItem `json:"items"`
	Version   int        `json:"version"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// MarshalJSON writes the stored form of the cart: bookkeeping fields plus
// the ordered lines. Totals are not included.
func (c *Cart) MarshalJSON() ([]byte, error) {
	return json.Marshal(cartSnapshot{
		ID:        c.ID,
		SessionID: c.SessionID,
		Items:     c.Items(),
		Version:   c.Version,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	})
}

// UnmarshalJSON restores a snapshot. Lines with a quantity below 1 are
// dropped and lines sharing an ID are merged by summing quantities.
func (c *Cart) UnmarshalJSON(data []byte) error {
	var snap cartSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}

	c.ID = snap.ID
	c.SessionID = snap.SessionID
	c.Version = snap.Version
	c.CreatedAt = snap.CreatedAt
	c.UpdatedAt = snap.UpdatedAt
	c.items = make(map[string]*CartItem, len(snap.Items))
	c.order = nil

	for _, item := range snap.Items {
		if item.ID == "" || item.Quantity <= 0 {
			continue
		}
		if existing, ok := c.items[item.ID]; ok {
			existing.Quantity += item.Quantity
			continue
		}
		cp := item
		c.items[item.ID] = &cp
		c.order = append(c.order, item.ID)
	}
	return nil
}
