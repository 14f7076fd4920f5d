package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/NhuHoa123/stationery-storefront/pkg/httputil"
	"github.com/NhuHoa123/stationery-storefront/pkg/validator"
	"github.com/NhuHoa123/stationery-storefront/services/storefront/internal/service"
)

// CartHandler handles HTTP requests for cart operations.
type CartHandler struct {
	service *service.CartService
	logger  *slog.Logger
}

// NewCartHandler creates a new cart HTTP handler.
func NewCartHandler(svc *service.CartService, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		service: svc,
		logger:  logger,
	}
}

// AddItemRequest is the JSON body for adding an item. An omitted quantity
// adds one unit.
type AddItemRequest struct {
	ProductID string `json:"product_id" validate:"required,max=100"`
	Variant   string `json:"variant" validate:"max=100"`
	Quantity  *int   `json:"quantity"`
}

// UpdateQuantityRequest is the JSON body for setting an item's quantity.
// Zero or below removes the item.
type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

// GetCart handles GET /api/v1/cart.
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.service.GetCart(r.Context(), sessionIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, toCartResponse(cart))
}

// GetCount handles GET /api/v1/cart/count and feeds the header badge.
func (h *CartHandler) GetCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.ItemCount(r.Context(), sessionIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, countResponse{Count: count})
}

// AddItem handles POST /api/v1/cart/items.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	cart, err := h.service.AddItem(r.Context(), sessionIDFromContext(r.Context()), service.AddItemInput{
		ProductID: req.ProductID,
		Variant:   req.Variant,
		Quantity:  quantity,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, toCartResponse(cart))
}

// UpdateItemQuantity handles PUT /api/v1/cart/items/{itemId}.
func (h *CartHandler) UpdateItemQuantity(w http.ResponseWriter, r *http.Request) {
	var req UpdateQuantityRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	itemID := chi.URLParam(r, "itemId")
	cart, err := h.service.UpdateItemQuantity(r.Context(), sessionIDFromContext(r.Context()), itemID, *req.Quantity)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, toCartResponse(cart))
}

// RemoveItem handles DELETE /api/v1/cart/items/{itemId}. Removing an item
// that is not in the cart succeeds.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemId")
	cart, err := h.service.RemoveItem(r.Context(), sessionIDFromContext(r.Context()), itemID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, toCartResponse(cart))
}

// ClearCart handles DELETE /api/v1/cart.
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.service.ClearCart(r.Context(), sessionIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, toCartResponse(cart))
}
