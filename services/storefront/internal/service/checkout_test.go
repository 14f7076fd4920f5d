package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	apperrors "github.com/NhuHoa123/stationery-storefront/pkg/errors"
	"github.com/NhuHoa123/stationery-storefront/pkg/idempotency"
	"github.com/NhuHoa123/stationery-storefront/services/storefront/internal/domain"
	"github.com/NhuHoa123/stationery-storefront/services/storefront/internal/pricing"
	"github.com/NhuHoa123/stationery-storefront/services/storefront/internal/repository/memory"
)

type checkoutFixture struct {
	carts    *CartService
	checkout *CheckoutService
	events   *mockEvents
	keys     *idempotency.MemoryStore
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()

	policy, err := pricing.Load("")
	require.NoError(t, err)

	events := new(mockEvents)
	events.On("PublishCartUpdated", mock.Anything, mock.Anything).Return(nil)
	events.On("PublishCartCleared", mock.Anything, mock.Anything).Return(nil)

	carts := NewCartService(memory.NewCartRepository(0), testCatalog(t), events, newTestLogger(), Limits{})
	keys := idempotency.NewMemoryStore(time.Hour)

	return &checkoutFixture{
		carts:    carts,
		checkout: NewCheckoutService(carts, policy, keys, events, newTestLogger()),
		events:   events,
		keys:     keys,
	}
}

func validOrderInput() PlaceOrderInput {
	return PlaceOrderInput{
		Email:     "ada@example.com",
		FirstName: "Ada",
		LastName:  "Lovelace",
		Street:    "12 Quill Lane",
		City:      "Portland",
		State:     "OR",
		ZipCode:   "97201",
	}
}

// ============================================================================
// Summary
// ============================================================================

func TestSummary_EmptyCart(t *testing.T) {
	f := newCheckoutFixture(t)

	s, err := f.checkout.Summary(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.True(t, s.Cart.IsEmpty())
	assert.True(t, s.Quote.Total.IsZero())
	assert.True(t, s.Quote.Shipping.IsZero())
}

func TestSummary_ChargesShippingUnderThreshold(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	_, err := f.carts.AddItem(ctx, "sess-1", AddItemInput{ProductID: "5", Quantity: 1})
	require.NoError(t, err)

	s, err := f.checkout.Summary(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "49.99", s.Quote.Subtotal.StringFixed(2))
	assert.Equal(t, "9.99", s.Quote.Shipping.StringFixed(2))
	assert.Equal(t, "4.00", s.Quote.Tax.StringFixed(2))
	assert.Equal(t, "63.98", s.Quote.Total.StringFixed(2))
	assert.False(t, s.Quote.FreeShipping)
}

// ============================================================================
// PlaceOrder
// ============================================================================

func TestPlaceOrder_Success(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	_, err := f.carts.AddItem(ctx, "sess-1", AddItemInput{ProductID: "2", Quantity: 1})
	require.NoError(t, err)
	_, err = f.carts.AddItem(ctx, "sess-1", AddItemInput{ProductID: "5", Quantity: 2})
	require.NoError(t, err)

	var published *domain.Order
	f.events.On("PublishCheckoutCompleted", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { published = args.Get(1).(*domain.Order) }).
		Return(nil)

	before := testutil.ToFloat64(ordersPlaced)

	in := validOrderInput()
	in.IdempotencyKey = "form-1"
	order, err := f.checkout.PlaceOrder(ctx, "sess-1", in)
	require.NoError(t, err)

	assert.NotEmpty(t, order.ID)
	assert.Equal(t, "sess-1", order.SessionID)
	assert.Equal(t, 3, order.ItemCount)
	require.Len(t, order.Items, 2)
	assert.Equal(t, "2", order.Items[0].ID)
	// 89.99 + 2 × 49.99 = 189.97; free shipping; tax 15.1976 → 15.20
	assert.Equal(t, "189.97", order.Subtotal.StringFixed(2))
	assert.Equal(t, "0.00", order.Shipping.StringFixed(2))
	assert.Equal(t, "15.20", order.Tax.StringFixed(2))
	assert.Equal(t, "205.17", order.Total.StringFixed(2))
	assert.Equal(t, "Portland", order.ShippingAddress.City)
	assert.NotZero(t, order.PlacedAt)

	assert.Same(t, order, published)
	assert.Equal(t, before+1, testutil.ToFloat64(ordersPlaced))

	n, err := f.carts.ItemCount(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, 0, n, "checkout empties the cart")
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	f := newCheckoutFixture(t)

	_, err := f.checkout.PlaceOrder(context.Background(), "sess-1", validOrderInput())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	assert.Contains(t, err.Error(), "cart is empty")
	f.events.AssertNotCalled(t, "PublishCheckoutCompleted", mock.Anything, mock.Anything)
}

func TestPlaceOrder_InvalidForm(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	_, err := f.carts.AddItem(ctx, "sess-1", AddItemInput{ProductID: "1", Quantity: 1})
	require.NoError(t, err)

	in := validOrderInput()
	in.Email = "not-an-email"
	in.City = ""

	_, err = f.checkout.PlaceOrder(ctx, "sess-1", in)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	assert.Contains(t, err.Error(), "email")
	assert.Contains(t, err.Error(), "city")

	n, _ := f.carts.ItemCount(ctx, "sess-1")
	assert.Equal(t, 1, n, "a rejected order leaves the cart alone")
}

func TestPlaceOrder_DuplicateKey(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	f.events.On("PublishCheckoutCompleted", mock.Anything, mock.Anything).Return(nil)

	in := validOrderInput()
	in.IdempotencyKey = "dup-key"

	_, err := f.carts.AddItem(ctx, "sess-1", AddItemInput{ProductID: "1", Quantity: 1})
	require.NoError(t, err)
	_, err = f.checkout.PlaceOrder(ctx, "sess-1", in)
	require.NoError(t, err)

	_, err = f.carts.AddItem(ctx, "sess-1", AddItemInput{ProductID: "1", Quantity: 1})
	require.NoError(t, err)
	_, err = f.checkout.PlaceOrder(ctx, "sess-1", in)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrConflict))

	n, _ := f.carts.ItemCount(ctx, "sess-1")
	assert.Equal(t, 1, n)
	f.events.AssertNumberOfCalls(t, "PublishCheckoutCompleted", 1)
}

func TestPlaceOrder_EmptyCartDoesNotClaimKey(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	in := validOrderInput()
	in.IdempotencyKey = "retry-me"

	// Empty cart fails before the key is claimed.
	_, err := f.checkout.PlaceOrder(ctx, "sess-1", in)
	require.Error(t, err)
	assert.Equal(t, 0, f.keys.Len())

	f.events.On("PublishCheckoutCompleted", mock.Anything, mock.Anything).Return(nil)
	_, err = f.carts.AddItem(ctx, "sess-1", AddItemInput{ProductID: "6", Quantity: 1})
	require.NoError(t, err)
	_, err = f.checkout.PlaceOrder(ctx, "sess-1", in)
	require.NoError(t, err)
}

func TestPlaceOrder_ClearFailureReleasesKey(t *testing.T) {
	policy, err := pricing.Load("")
	require.NoError(t, err)

	repo := new(mockCartRepository)
	events := new(mockEvents)
	keys := idempotency.NewMemoryStore(time.Hour)
	carts := NewCartService(repo, testCatalog(t), events, newTestLogger(), Limits{})
	svc := NewCheckoutService(carts, policy, keys, events, newTestLogger())
	ctx := context.Background()

	repo.On("Get", mock.Anything, "sess-1").Return(storedCart(t, 1), nil)
	repo.On("DeleteIfVersion", mock.Anything, "sess-1", 1).Return(false, errors.New("redis down"))

	in := validOrderInput()
	in.IdempotencyKey = "k-1"
	_, err = svc.PlaceOrder(ctx, "sess-1", in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clear cart after checkout")

	ok, err := keys.Claim(ctx, "sess-1:k-1")
	require.NoError(t, err)
	assert.True(t, ok, "key released after a failed placement")
	events.AssertNotCalled(t, "PublishCheckoutCompleted", mock.Anything, mock.Anything)
}

func TestPlaceOrder_CartChangedAfterSummary(t *testing.T) {
	policy, err := pricing.Load("")
	require.NoError(t, err)

	repo := new(mockCartRepository)
	events := new(mockEvents)
	keys := idempotency.NewMemoryStore(time.Hour)
	carts := NewCartService(repo, testCatalog(t), events, newTestLogger(), Limits{})
	svc := NewCheckoutService(carts, policy, keys, events, newTestLogger())
	ctx := context.Background()

	// The summary sees version 1; another request has since saved version 2.
	repo.On("Get", mock.Anything, "sess-1").Return(storedCart(t, 1), nil)
	repo.On("DeleteIfVersion", mock.Anything, "sess-1", 1).Return(false, nil)

	in := validOrderInput()
	in.IdempotencyKey = "k-2"
	order, err := svc.PlaceOrder(ctx, "sess-1", in)
	require.Error(t, err)
	assert.Nil(t, order)
	assert.True(t, errors.Is(err, apperrors.ErrConflict))

	ok, err := keys.Claim(ctx, "sess-1:k-2")
	require.NoError(t, err)
	assert.True(t, ok, "a conflicting placement can be retried with the same key")
	events.AssertNotCalled(t, "PublishCheckoutCompleted", mock.Anything, mock.Anything)
	events.AssertNotCalled(t, "PublishCartCleared", mock.Anything, mock.Anything)
}

func TestPlaceOrder_KeyScopedToSession(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	f.events.On("PublishCheckoutCompleted", mock.Anything, mock.Anything).Return(nil)

	in := validOrderInput()
	in.IdempotencyKey = "shared-key"

	for _, session := range []string{"sess-1", "sess-2"} {
		_, err := f.carts.AddItem(ctx, session, AddItemInput{ProductID: "5", Quantity: 1})
		require.NoError(t, err)
		_, err = f.checkout.PlaceOrder(ctx, session, in)
		require.NoError(t, err, "session %s", session)
	}
	assert.Equal(t, 2, f.keys.Len())
}

func TestPlaceOrder_PublishFailureStillPlaces(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	f.events.On("PublishCheckoutCompleted", mock.Anything, mock.Anything).Return(errors.New("kafka down"))

	_, err := f.carts.AddItem(ctx, "sess-1", AddItemInput{ProductID: "3", Quantity: 1})
	require.NoError(t, err)

	order, err := f.checkout.PlaceOrder(ctx, "sess-1", validOrderInput())
	require.NoError(t, err)
	assert.Equal(t, "159.99", order.Subtotal.StringFixed(2))
}

func TestPlaceOrder_RecordsSpan(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})

	f := newCheckoutFixture(t)
	_, err := f.checkout.PlaceOrder(context.Background(), "sess-1", validOrderInput())
	require.Error(t, err)

	var found bool
	for _, s := range exporter.GetSpans() {
		if s.Name == "CheckoutService.PlaceOrder" {
			found = true
			assert.Equal(t, codes.Error, s.Status.Code)
		}
	}
	assert.True(t, found, "PlaceOrder span exported")
}
