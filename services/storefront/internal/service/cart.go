package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/NhuHoa123/stationery-storefront/pkg/errors"
	"github.com/NhuHoa123/stationery-storefront/services/storefront/internal/catalog"
	"github.com/NhuHoa123/stationery-storefront/services/storefront/internal/domain"
	"github.com/NhuHoa123/stationery-storefront/services/storefront/internal/repository"
)

// Default cart limits, applied when Limits fields are zero.
const (
	DefaultMaxQuantityPerItem = 100
	DefaultMaxLineItems       = 50
)

// Limits caps what a single cart may hold.
type Limits struct {
	MaxQuantityPerItem int
	MaxLineItems       int
}

// ProductCatalog resolves the products a shopper adds.
type ProductCatalog interface {
	Get(idOrSlug string) (catalog.Product, error)
}

// EventPublisher emits domain events. Failures are logged by the caller and
// never fail a request.
type EventPublisher interface {
	PublishCartUpdated(ctx context.Context, cart *domain.Cart) error
	PublishCartCleared(ctx context.Context, sessionID string) error
	PublishCheckoutCompleted(ctx context.Context, order *domain.Order) error
}

// AddItemInput holds the parameters for adding a product to the cart.
type AddItemInput struct {
	ProductID string
	Variant   string
	Quantity  int
}

// CartService implements the business logic for cart operations. Each call
// loads the session's cart, applies one change and saves it with an
// optimistic version check.
type CartService struct {
	repo    repository.CartRepository
	catalog ProductCatalog
	events  EventPublisher
	logger  *slog.Logger
	limits  Limits
	now     func() time.Time
}

// NewCartService creates a new cart service.
func NewCartService(repo repository.CartRepository, products ProductCatalog, events EventPublisher, logger *slog.Logger, limits Limits) *CartService {
	if limits.MaxQuantityPerItem <= 0 {
		limits.MaxQuantityPerItem = DefaultMaxQuantityPerItem
	}
	if limits.MaxLineItems <= 0 {
		limits.MaxLineItems = DefaultMaxLineItems
	}
	return &CartService{
		repo:    repo,
		catalog: products,
		events:  events,
		logger:  logger,
		limits:  limits,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// GetCart returns the session's cart, or a new empty one if none is stored.
// The empty cart is not persisted.
func (s *CartService) GetCart(ctx context.Context, sessionID string) (*domain.Cart, error) {
	if sessionID == "" {
		return nil, apperrors.InvalidInput("session id is required")
	}

	cart, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return domain.NewCart(uuid.NewString(), sessionID, s.now()), nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return cart, nil
}

// AddItem resolves the product and adds quantity units of it to the cart.
func (s *CartService) AddItem(ctx context.Context, sessionID string, input AddItemInput) (*domain.Cart, error) {
	if input.Quantity <= 0 {
		return nil, apperrors.InvalidInput("quantity must be greater than 0")
	}
	if input.Quantity > s.limits.MaxQuantityPerItem {
		return nil, apperrors.LimitExceeded(fmt.Sprintf("quantity must not exceed %d", s.limits.MaxQuantityPerItem))
	}
	if input.ProductID == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}

	product, err := s.catalog.Get(input.ProductID)
	if err != nil {
		return nil, fmt.Errorf("look up product: %w", err)
	}
	if !product.InStock {
		return nil, apperrors.OutOfStock(product.ID)
	}

	cart, err := s.GetCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	expectedVersion := cart.Version

	if existing, ok := cart.Item(product.ID); ok {
		if existing.Quantity+input.Quantity > s.limits.MaxQuantityPerItem {
			return nil, apperrors.LimitExceeded(fmt.Sprintf("combined quantity must not exceed %d", s.limits.MaxQuantityPerItem))
		}
	} else if cart.Len() >= s.limits.MaxLineItems {
		return nil, apperrors.LimitExceeded(fmt.Sprintf("cart must not contain more than %d items", s.limits.MaxLineItems))
	}

	if err := cart.AddItem(product.CartProduct(input.Variant), input.Quantity); err != nil {
		return nil, err
	}

	if err := s.save(ctx, cart, expectedVersion); err != nil {
		return nil, err
	}
	s.publishUpdated(ctx, cart)
	cartOperations.WithLabelValues(opAdd).Inc()

	s.logger.InfoContext(ctx, "item added to cart",
		slog.String("session_id", sessionID),
		slog.String("product_id", product.ID),
		slog.Int("quantity", input.Quantity),
		slog.Int("total_items", cart.TotalItems()),
	)

	return cart, nil
}

// UpdateItemQuantity sets an item's quantity; zero or less removes it. An
// item that is not in the cart is left alone and the cart is returned as is.
func (s *CartService) UpdateItemQuantity(ctx context.Context, sessionID, itemID string, quantity int) (*domain.Cart, error) {
	if itemID == "" {
		return nil, apperrors.InvalidInput("item id is required")
	}
	if quantity > s.limits.MaxQuantityPerItem {
		return nil, apperrors.LimitExceeded(fmt.Sprintf("quantity must not exceed %d", s.limits.MaxQuantityPerItem))
	}

	cart, err := s.GetCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	expectedVersion := cart.Version

	if !cart.UpdateQuantity(itemID, quantity) {
		return cart, nil
	}

	if err := s.save(ctx, cart, expectedVersion); err != nil {
		return nil, err
	}
	s.publishUpdated(ctx, cart)

	op := opUpdate
	if quantity <= 0 {
		op = opRemove
	}
	cartOperations.WithLabelValues(op).Inc()

	s.logger.InfoContext(ctx, "cart item quantity updated",
		slog.String("session_id", sessionID),
		slog.String("item_id", itemID),
		slog.Int("quantity", quantity),
	)

	return cart, nil
}

// RemoveItem deletes an item from the cart. Removing an absent item is a
// no-op.
func (s *CartService) RemoveItem(ctx context.Context, sessionID, itemID string) (*domain.Cart, error) {
	if itemID == "" {
		return nil, apperrors.InvalidInput("item id is required")
	}

	cart, err := s.GetCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	expectedVersion := cart.Version

	if !cart.RemoveItem(itemID) {
		return cart, nil
	}

	if err := s.save(ctx, cart, expectedVersion); err != nil {
		return nil, err
	}
	s.publishUpdated(ctx, cart)
	cartOperations.WithLabelValues(opRemove).Inc()

	s.logger.InfoContext(ctx, "item removed from cart",
		slog.String("session_id", sessionID),
		slog.String("item_id", itemID),
	)

	return cart, nil
}

// ClearCart empties the session's cart and returns the empty cart. Clearing
// a cart that holds nothing does not emit an event.
func (s *CartService) ClearCart(ctx context.Context, sessionID string) (*domain.Cart, error) {
	cart, err := s.GetCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return cart, nil
	}

	if err := s.clear(ctx, cart); err != nil {
		return nil, err
	}
	return domain.NewCart(uuid.NewString(), sessionID, s.now()), nil
}

// clear deletes the stored cart only if it is still at cart.Version, so a
// change made after cart was loaded is never thrown away unseen.
func (s *CartService) clear(ctx context.Context, cart *domain.Cart) error {
	ok, err := s.repo.DeleteIfVersion(ctx, cart.SessionID, cart.Version)
	if err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	if !ok {
		return apperrors.Conflict("cart was modified concurrently, please retry")
	}

	if err := s.events.PublishCartCleared(ctx, cart.SessionID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.cleared event",
			slog.String("session_id", cart.SessionID),
			slog.String("error", err.Error()),
		)
	}
	cartOperations.WithLabelValues(opClear).Inc()

	s.logger.InfoContext(ctx, "cart cleared", slog.String("session_id", cart.SessionID))
	return nil
}

// ItemCount returns the total quantity in the session's cart.
func (s *CartService) ItemCount(ctx context.Context, sessionID string) (int, error) {
	cart, err := s.GetCart(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	return cart.TotalItems(), nil
}

func (s *CartService) save(ctx context.Context, cart *domain.Cart, expectedVersion int) error {
	cart.UpdatedAt = s.now()

	ok, err := s.repo.SaveIfVersion(ctx, cart, expectedVersion)
	if err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	if !ok {
		return apperrors.Conflict("cart was modified concurrently, please retry")
	}
	return nil
}

func (s *CartService) publishUpdated(ctx context.Context, cart *domain.Cart) {
	if err := s.events.PublishCartUpdated(ctx, cart); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.updated event",
			slog.String("session_id", cart.SessionID),
			slog.String("error", err.Error()),
		)
	}
}
