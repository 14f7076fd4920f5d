package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	apperrors "github.com/NhuHoa123/stationery-storefront/pkg/errors"
	"github.com/NhuHoa123/stationery-storefront/pkg/idempotency"
	"github.com/NhuHoa123/stationery-storefront/pkg/tracing"
	"github.com/NhuHoa123/stationery-storefront/pkg/validator"
	"github.com/NhuHoa123/stationery-storefront/services/storefront/internal/domain"
	"github.com/NhuHoa123/stationery-storefront/services/storefront/internal/pricing"
)

const tracerName = "github.com/NhuHoa123/stationery-storefront/services/storefront/internal/service"

// Quoter prices a cart subtotal.
type Quoter interface {
	Quote(subtotal decimal.Decimal, itemCount int) (pricing.Quote, error)
}

// PlaceOrderInput is the contact and shipping form submitted at checkout.
type PlaceOrderInput struct {
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Street    string `json:"address" validate:"required,max=200"`
	City      string `json:"city" validate:"required,max=100"`
	State     string `json:"state" validate:"required,max=50"`
	ZipCode   string `json:"zip_code" validate:"required,max=20"`

	// IdempotencyKey deduplicates resubmissions of the same form.
	IdempotencyKey string `json:"-"`
}

// Summary is the checkout page's view of a cart.
type Summary struct {
	Cart  *domain.Cart
	Quote pricing.Quote
}

// CheckoutService quotes carts and places mocked orders. No payment is
// taken; a placed order empties the cart.
type CheckoutService struct {
	carts  *CartService
	quoter Quoter
	keys   idempotency.Store
	events EventPublisher
	logger *slog.Logger
}

// NewCheckoutService creates a checkout service. keys may be nil, in which
// case Idempotency-Key headers are ignored.
func NewCheckoutService(carts *CartService, quoter Quoter, keys idempotency.Store, events EventPublisher, logger *slog.Logger) *CheckoutService {
	return &CheckoutService{
		carts:  carts,
		quoter: quoter,
		keys:   keys,
		events: events,
		logger: logger,
	}
}

// Summary prices the session's current cart.
func (s *CheckoutService) Summary(ctx context.Context, sessionID string) (*Summary, error) {
	cart, err := s.carts.GetCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	quote, err := s.quoter.Quote(cart.TotalPrice(), cart.TotalItems())
	if err != nil {
		return nil, fmt.Errorf("quote cart: %w", err)
	}
	return &Summary{Cart: cart, Quote: quote}, nil
}

// PlaceOrder confirms the session's cart as an order and clears it.
func (s *CheckoutService) PlaceOrder(ctx context.Context, sessionID string, input PlaceOrderInput) (order *domain.Order, err error) {
	ctx, span := tracing.Tracer(tracerName).Start(ctx, "CheckoutService.PlaceOrder")
	defer func() {
		tracing.RecordError(span, err)
		span.End()
	}()

	if err := validator.Validate(input); err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	summary, err := s.Summary(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if summary.Cart.IsEmpty() {
		return nil, apperrors.InvalidInput("cart is empty")
	}

	if key := strings.TrimSpace(input.IdempotencyKey); key != "" && s.keys != nil {
		key = sessionID + ":" + key
		claimed, claimErr := s.keys.Claim(ctx, key)
		if claimErr != nil {
			return nil, fmt.Errorf("claim idempotency key: %w", claimErr)
		}
		if !claimed {
			return nil, apperrors.Conflict("this order has already been submitted")
		}
		defer func() {
			if err == nil {
				return
			}
			if relErr := s.keys.Release(context.WithoutCancel(ctx), key); relErr != nil {
				s.logger.WarnContext(ctx, "failed to release idempotency key",
					slog.String("error", relErr.Error()),
				)
			}
		}()
	}

	cart, quote := summary.Cart, summary.Quote
	order = &domain.Order{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Contact: domain.Contact{
			Email:     input.Email,
			FirstName: input.FirstName,
			LastName:  input.LastName,
		},
		ShippingAddress: domain.Address{
			Street:  input.Street,
			City:    input.City,
			State:   input.State,
			ZipCode: input.ZipCode,
		},
		Items:     cart.Items(),
		ItemCount: cart.TotalItems(),
		Subtotal:  quote.Subtotal,
		Shipping:  quote.Shipping,
		Tax:       quote.Tax,
		Total:     quote.Total,
		Currency:  quote.Currency,
		PlacedAt:  s.carts.now(),
	}

	if err = s.carts.clear(ctx, cart); err != nil {
		return nil, fmt.Errorf("clear cart after checkout: %w", err)
	}

	if err := s.events.PublishCheckoutCompleted(ctx, order); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish checkout.completed event",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}
	ordersPlaced.Inc()

	span.SetAttributes(
		attribute.String("order.id", order.ID),
		attribute.Int("order.item_count", order.ItemCount),
		attribute.String("order.total", order.Total.StringFixed(2)),
	)
	s.logger.InfoContext(ctx, "order placed",
		slog.String("order_id", order.ID),
		slog.String("session_id", sessionID),
		slog.Int("item_count", order.ItemCount),
		slog.String("total", order.Total.StringFixed(2)),
	)

	return order, nil
}
