package event

import (
	"context"
	"fmt"
	"log/slog"

	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
)

// ProductCacheInvalidator is the cache surface the consumer needs.
type ProductCacheInvalidator interface {
	Invalidate(ctx context.Context, productID string) error
}

// ConsumedTopics lists the topics that change cached product state.
func ConsumedTopics() []string {
	return []string{TopicInventoryUpdated, TopicProductDeleted, TopicSaleCompleted}
}

// Consumer evicts cached products when another instance reports a change,
// keeping every replica's read-through cache consistent.
type Consumer struct {
	cache  ProductCacheInvalidator
	logger *slog.Logger
}

// NewConsumer creates a new cache-invalidation consumer.
func NewConsumer(cache ProductCacheInvalidator, logger *slog.Logger) *Consumer {
	return &Consumer{
		cache:  cache,
		logger: logger,
	}
}

// Handle routes an event to the handler for its type. Unknown types are ignored.
func (c *Consumer) Handle(ctx context.Context, event *pkgkafka.Event) error {
	switch event.EventType {
	case TopicInventoryUpdated:
		return c.HandleInventoryUpdated(ctx, event)
	case TopicProductDeleted:
		return c.HandleProductDeleted(ctx, event)
	case TopicSaleCompleted:
		return c.HandleSaleCompleted(ctx, event)
	default:
		c.logger.DebugContext(ctx, "ignoring event",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}
}

// HandleInventoryUpdated evicts the product named by an inventory.updated event.
func (c *Consumer) HandleInventoryUpdated(ctx context.Context, event *pkgkafka.Event) error {
	var data InventoryUpdatedData
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("unmarshal inventory.updated data: %w", err)
	}
	return c.invalidate(ctx, event, data.ProductID)
}

// HandleProductDeleted evicts the product named by a product.deleted event.
func (c *Consumer) HandleProductDeleted(ctx context.Context, event *pkgkafka.Event) error {
	var data ProductDeletedData
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("unmarshal product.deleted data: %w", err)
	}
	return c.invalidate(ctx, event, data.ProductID)
}

// HandleSaleCompleted evicts the product whose stock a sale decremented.
func (c *Consumer) HandleSaleCompleted(ctx context.Context, event *pkgkafka.Event) error {
	var data SaleCompletedData
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("unmarshal sale.completed data: %w", err)
	}
	return c.invalidate(ctx, event, data.ProductID)
}

func (c *Consumer) invalidate(ctx context.Context, event *pkgkafka.Event, productID string) error {
	if productID == "" {
		c.logger.WarnContext(ctx, "event carries no product id",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}

	if err := c.cache.Invalidate(ctx, productID); err != nil {
		return fmt.Errorf("invalidate product %s: %w", productID, err)
	}

	c.logger.DebugContext(ctx, "product cache invalidated",
		slog.String("product_id", productID),
		slog.String("event_type", event.EventType),
	)
	return nil
}
