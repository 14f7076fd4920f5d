package event

import (
	"context"
	"fmt"
	"log/slog"

	pkgkafka "github.com/NhuHoa123/stationery-storefront/pkg/kafka"
	"github.com/NhuHoa123/stationery-storefront/pkg/logger"
	"github.com/NhuHoa123/stationery-storefront/services/storefront/internal/domain"
)

// Kafka topics for storefront domain events.
var (
	TopicCartUpdated       = pkgkafka.Topic("cart", "updated")
	TopicCartCleared       = pkgkafka.Topic("cart", "cleared")
	TopicCheckoutCompleted = pkgkafka.Topic("checkout", "completed")
)

const (
	AggregateTypeCart  = "cart"
	AggregateTypeOrder = "order"

	SourceStorefront = "storefront"
)

// Publisher sends one event envelope to a topic. *pkgkafka.Producer
// satisfies it.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// NopPublisher drops every event. It is used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, *pkgkafka.Event) error { return nil }

// CartItemData is the line payload within cart and checkout events.
type CartItemData struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    string `json:"price"`
	Quantity int    `json:"quantity"`
	Category string `json:"category,omitempty"`
	Variant  string `json:"variant,omitempty"`
}

// CartUpdatedData is the payload for a cart.updated event.
type CartUpdatedData struct {
	SessionID  string         `json:"session_id"`
	Items      []CartItemData `json:"items"`
	TotalItems int            `json:"total_items"`
	TotalPrice string         `json:"total_price"`
}

// CartClearedData is the payload for a cart.cleared event.
type CartClearedData struct {
	SessionID string `json:"session_id"`
}

// CheckoutCompletedData is the payload for a checkout.completed event.
type CheckoutCompletedData struct {
	OrderID   string         `json:"order_id"`
	SessionID string         `json:"session_id"`
	Email     string         `json:"email"`
	Items     []CartItemData `json:"items"`
	ItemCount int            `json:"item_count"`
	Subtotal  string         `json:"subtotal"`
	Shipping  string         `json:"shipping"`
	Tax       string         `json:"tax"`
	Total     string         `json:"total"`
	Currency  string         `json:"currency"`
}

// Producer publishes storefront domain events.
type Producer struct {
	publisher Publisher
	logger    *slog.Logger
}

// NewProducer creates a producer. A nil publisher drops events.
func NewProducer(publisher Publisher, logger *slog.Logger) *Producer {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &Producer{
		publisher: publisher,
		logger:    logger,
	}
}

func itemData(items []domain.CartItem) []CartItemData {
	out := make([]CartItemData, len(items))
	for i, item := range items {
		out[i] = CartItemData{
			ID:       item.ID,
			Name:     item.Name,
			Price:    item.Price.StringFixed(2),
			Quantity: item.Quantity,
			Category: item.Category,
			Variant:  item.Variant,
		}
	}
	return out
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	event, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}

	if err := p.publisher.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}

// PublishCartUpdated publishes a cart.updated event keyed by session.
func (p *Producer) PublishCartUpdated(ctx context.Context, cart *domain.Cart) error {
	return p.publish(ctx, TopicCartUpdated, cart.SessionID, AggregateTypeCart, CartUpdatedData{
		SessionID:  cart.SessionID,
		Items:      itemData(cart.Items()),
		TotalItems: cart.TotalItems(),
		TotalPrice: cart.TotalPrice().StringFixed(2),
	})
}

// PublishCartCleared publishes a cart.cleared event keyed by session.
func (p *Producer) PublishCartCleared(ctx context.Context, sessionID string) error {
	return p.publish(ctx, TopicCartCleared, sessionID, AggregateTypeCart, CartClearedData{SessionID: sessionID})
}

// PublishCheckoutCompleted publishes a checkout.completed event keyed by order.
func (p *Producer) PublishCheckoutCompleted(ctx context.Context, order *domain.Order) error {
	return p.publish(ctx, TopicCheckoutCompleted, order.ID, AggregateTypeOrder, CheckoutCompletedData{
		OrderID:   order.ID,
		SessionID: order.SessionID,
		Email:     order.Contact.Email,
		Items:     itemData(order.Items),
		ItemCount: order.ItemCount,
		Subtotal:  order.Subtotal.StringFixed(2),
		Shipping:  order.Shipping.StringFixed(2),
		Tax:       order.Tax.StringFixed(2),
		Total:     order.Total.StringFixed(2),
		Currency:  order.Currency,
	})
}
