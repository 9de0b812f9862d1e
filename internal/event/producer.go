package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/internal/domain"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/logger"
)

// Kafka topics published by the storefront.
var (
	TopicSaleCompleted    = pkgkafka.Topic("sale", "completed")
	TopicWalletUpdated    = pkgkafka.Topic("wallet", "updated")
	TopicInventoryUpdated = pkgkafka.Topic("inventory", "updated")
	TopicProductDeleted   = pkgkafka.Topic("product", "deleted")
	TopicReviewSubmitted  = pkgkafka.Topic("review", "submitted")
)

// Aggregate type constants.
const (
	AggregateTypeSale     = "sale"
	AggregateTypeCustomer = "customer"
	AggregateTypeProduct  = "product"
	AggregateTypeReview   = "review"
)

// SourceStorefront identifies events originating from this service.
const SourceStorefront = "storefront"

// Wallet operations carried by WalletUpdatedData.
const (
	WalletOperationCharge = "charge"
	WalletOperationDeduct = "deduct"
)

// SaleCompletedData is the payload for a sale.completed event.
type SaleCompletedData struct {
	SaleID           string `json:"sale_id"`
	CustomerID       string `json:"customer_id"`
	CustomerUsername string `json:"customer_username"`
	ProductID        string `json:"product_id"`
	ProductName      string `json:"product_name"`
	Quantity         int    `json:"quantity"`
	UnitPrice        string `json:"unit_price"`
	TotalPrice       string `json:"total_price"`
}

// WalletUpdatedData is the payload for a wallet.updated event.
type WalletUpdatedData struct {
	CustomerID string `json:"customer_id"`
	Username   string `json:"username"`
	Operation  string `json:"operation"`
	Amount     string `json:"amount"`
	Balance    string `json:"balance"`
}

// InventoryUpdatedData is the payload for an inventory.updated event.
type InventoryUpdatedData struct {
	ProductID  string `json:"product_id"`
	StockCount int    `json:"stock_count"`
	Price      string `json:"price"`
}

// ProductDeletedData is the payload for a product.deleted event.
type ProductDeletedData struct {
	ProductID string `json:"product_id"`
}

// ReviewSubmittedData is the payload for a review.submitted event.
type ReviewSubmittedData struct {
	ReviewID   string `json:"review_id"`
	ProductID  string `json:"product_id"`
	CustomerID string `json:"customer_id"`
	Rating     int    `json:"rating"`
}

type publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes storefront domain events to Kafka.
type Producer struct {
	kafka  publisher
	logger *slog.Logger
}

// NewProducer creates a new event producer. kafka is usually a *pkgkafka.Producer.
func NewProducer(kafka publisher, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	event, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
		slog.String("event_id", event.EventID),
	)
	return nil
}

// PublishSaleCompleted publishes a sale.completed event.
func (p *Producer) PublishSaleCompleted(ctx context.Context, sale *domain.Sale) error {
	data := SaleCompletedData{
		SaleID:           sale.ID,
		CustomerID:       sale.CustomerID,
		CustomerUsername: sale.CustomerUsername,
		ProductID:        sale.ProductID,
		ProductName:      sale.ProductName,
		Quantity:         sale.Quantity,
		UnitPrice:        sale.UnitPrice.StringFixed(domain.MoneyPlaces),
		TotalPrice:       sale.TotalPrice.StringFixed(domain.MoneyPlaces),
	}
	return p.publish(ctx, TopicSaleCompleted, sale.ID, AggregateTypeSale, data)
}

// PublishWalletUpdated publishes a wallet.updated event.
func (p *Producer) PublishWalletUpdated(ctx context.Context, customer *domain.Customer, operation string, amount decimal.Decimal) error {
	data := WalletUpdatedData{
		CustomerID: customer.ID,
		Username:   customer.Username,
		Operation:  operation,
		Amount:     amount.StringFixed(domain.MoneyPlaces),
		Balance:    customer.WalletBalance.StringFixed(domain.MoneyPlaces),
	}
	return p.publish(ctx, TopicWalletUpdated, customer.ID, AggregateTypeCustomer, data)
}

// PublishInventoryUpdated publishes an inventory.updated event.
func (p *Producer) PublishInventoryUpdated(ctx context.Context, product *domain.Product) error {
	data := InventoryUpdatedData{
		ProductID:  product.ID,
		StockCount: product.StockCount,
		Price:      product.Price.StringFixed(domain.MoneyPlaces),
	}
	return p.publish(ctx, TopicInventoryUpdated, product.ID, AggregateTypeProduct, data)
}

// PublishProductDeleted publishes a product.deleted event.
func (p *Producer) PublishProductDeleted(ctx context.Context, productID string) error {
	return p.publish(ctx, TopicProductDeleted, productID, AggregateTypeProduct, ProductDeletedData{ProductID: productID})
}

// PublishReviewSubmitted publishes a review.submitted event.
func (p *Producer) PublishReviewSubmitted(ctx context.Context, review *domain.Review) error {
	data := ReviewSubmittedData{
		ReviewID:   review.ID,
		ProductID:  review.ProductID,
		CustomerID: review.CustomerID,
		Rating:     review.Rating,
	}
	return p.publish(ctx, TopicReviewSubmitted, review.ID, AggregateTypeReview, data)
}
