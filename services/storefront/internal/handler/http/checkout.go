package http

import (
	"log/slog"
	"net/http"

	"github.com/NhuHoa123/stationery-storefront/pkg/httputil"
	"github.com/NhuHoa123/stationery-storefront/pkg/validator"
	"github.com/NhuHoa123/stationery-storefront/services/storefront/internal/service"
)

// IdempotencyKeyHeader lets a client retry an order submission safely.
const IdempotencyKeyHeader = "Idempotency-Key"

// CheckoutHandler handles the checkout page.
type CheckoutHandler struct {
	service *service.CheckoutService
	logger  *slog.Logger
}

// NewCheckoutHandler creates a new checkout HTTP handler.
func NewCheckoutHandler(svc *service.CheckoutService, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{service: svc, logger: logger}
}

// Summary handles GET /api/v1/checkout/summary.
func (h *CheckoutHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context(), sessionIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, toSummaryResponse(summary))
}

// PlaceOrder handles POST /api/v1/checkout/orders.
func (h *CheckoutHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var input service.PlaceOrderInput
	if err := validator.DecodeAndValidate(r, &input); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}
	input.IdempotencyKey = r.Header.Get(IdempotencyKeyHeader)

	order, err := h.service.PlaceOrder(r.Context(), sessionIDFromContext(r.Context()), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusCreated, toOrderResponse(order))
}
