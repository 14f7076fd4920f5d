package http

import (
	"time"

	"github.com/NhuHoa123/stationery-storefront/services/storefront/internal/catalog"
	"github.com/NhuHoa123/stationery-storefront/services/storefront/internal/domain"
	"github.com/NhuHoa123/stationery-storefront/services/storefront/internal/pricing"
	"github.com/NhuHoa123/stationery-storefront/services/storefront/internal/service"
)

// cartItemResponse is one cart line. Money fields here and in the other
// responses are fixed two-decimal strings so clients never see float
// rounding.
type cartItemResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Price     string `json:"price"`
	Image     string `json:"image,omitempty"`
	Quantity  int    `json:"quantity"`
	Category  string `json:"category,omitempty"`
	Variant   string `json:"variant,omitempty"`
	LineTotal string `json:"line_total"`
}

type cartResponse struct {
	ID         string             `json:"id"`
	SessionID  string             `json:"session_id"`
	Items      []cartItemResponse `json:"items"`
	TotalItems int                `json:"total_items"`
	TotalPrice string             `json:"total_price"`
	Version    int                `json:"version"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

type countResponse struct {
	Count int `json:"count"`
}

type productResponse struct {
	ID            string  `json:"id"`
	Slug          string  `json:"slug"`
	Name          string  `json:"name"`
	Description   string  `json:"description,omitempty"`
	Price         string  `json:"price"`
	OriginalPrice string  `json:"original_price,omitempty"`
	Rating        float64 `json:"rating"`
	Reviews       int     `json:"reviews"`
	Image         string  `json:"image,omitempty"`
	Category      string  `json:"category"`
	InStock       bool    `json:"in_stock"`
	IsNew         bool    `json:"is_new"`
}

type categoryResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Count int    `json:"count"`
}

type quoteResponse struct {
	Subtotal     string `json:"subtotal"`
	Shipping     string `json:"shipping"`
	Tax          string `json:"tax"`
	Total        string `json:"total"`
	Currency     string `json:"currency"`
	ItemCount    int    `json:"item_count"`
	FreeShipping bool   `json:"free_shipping"`
}

type summaryResponse struct {
	Cart  cartResponse  `json:"cart"`
	Quote quoteResponse `json:"quote"`
}

type orderResponse struct {
	ID              string             `json:"id"`
	Status          string             `json:"status"`
	Contact         domain.Contact     `json:"contact"`
	ShippingAddress domain.Address     `json:"shipping_address"`
	Items           []cartItemResponse `json:"items"`
	ItemCount       int                `json:"item_count"`
	Subtotal        string             `json:"subtotal"`
	Shipping        string             `json:"shipping"`
	Tax             string             `json:"tax"`
	Total           string             `json:"total"`
	Currency        string             `json:"currency"`
	PlacedAt        time.Time          `json:"placed_at"`
}

func toItemResponses(items []domain.CartItem) []cartItemResponse {
	out := make([]cartItemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, cartItemResponse{
			ID:        it.ID,
			Name:      it.Name,
			Price:     it.Price.StringFixed(2),
			Image:     it.Image,
			Quantity:  it.Quantity,
			Category:  it.Category,
			Variant:   it.Variant,
			LineTotal: it.LineTotal().StringFixed(2),
		})
	}
	return out
}

func toCartResponse(c *domain.Cart) cartResponse {
	return cartResponse{
		ID:         c.ID,
		SessionID:  c.SessionID,
		Items:      toItemResponses(c.Items()),
		TotalItems: c.TotalItems(),
		TotalPrice: c.TotalPrice().StringFixed(2),
		Version:    c.Version,
		UpdatedAt:  c.UpdatedAt,
	}
}

func toProductResponse(p catalog.Product) productResponse {
	resp := productResponse{
		ID:          p.ID,
		Slug:        p.Slug,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.StringFixed(2),
		Rating:      p.Rating,
		Reviews:     p.Reviews,
		Image:       p.Image,
		Category:    p.Category,
		InStock:     p.InStock,
		IsNew:       p.IsNew,
	}
	if !p.OriginalPrice.IsZero() {
		resp.OriginalPrice = p.OriginalPrice.StringFixed(2)
	}
	return resp
}

func toProductResponses(products []catalog.Product) []productResponse {
	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toProductResponse(p))
	}
	return out
}

func toCategoryResponses(categories []catalog.Category) []categoryResponse {
	out := make([]categoryResponse, 0, len(categories))
	for _, c := range categories {
		out = append(out, categoryResponse{ID: c.ID, Name: c.Name, Slug: c.Slug, Count: c.Count})
	}
	return out
}

func toQuoteResponse(q pricing.Quote) quoteResponse {
	return quoteResponse{
		Subtotal:     q.Subtotal.StringFixed(2),
		Shipping:     q.Shipping.StringFixed(2),
		Tax:          q.Tax.StringFixed(2),
		Total:        q.Total.StringFixed(2),
		Currency:     q.Currency,
		ItemCount:    q.ItemCount,
		FreeShipping: q.FreeShipping,
	}
}

func toSummaryResponse(s *service.Summary) summaryResponse {
	return summaryResponse{
		Cart:  toCartResponse(s.Cart),
		Quote: toQuoteResponse(s.Quote),
	}
}

func toOrderResponse(o *domain.Order) orderResponse {
	return orderResponse{
		ID:              o.ID,
		Status:          "confirmed",
		Contact:         o.Contact,
		ShippingAddress: o.ShippingAddress,
		Items:           toItemResponses(o.Items),
		ItemCount:       o.ItemCount,
		Subtotal:        o.Subtotal.StringFixed(2),
		Shipping:        o.Shipping.StringFixed(2),
		Tax:             o.Tax.StringFixed(2),
		Total:           o.Total.StringFixed(2),
		Currency:        o.Currency,
		PlacedAt:        o.PlacedAt,
	}
}
