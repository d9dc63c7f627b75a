// Package event publishes domain events to Kafka. Publishing is best-effort
// from the caller's point of view: services log failures and never fail the
// originating request on a broker problem.
package event

import (
	"context"
	"fmt"
	"log/slog"

	pkgkafka "github.com/KampusMeal/kampusmeal-backend/pkg/kafka"

	"github.com/KampusMeal/kampusmeal-backend/internal/domain"
)

// Kafka topic constants.
const (
	TopicOrderCheckedOut    = "kampusmeal.order.checked_out"
	TopicOrderStatusChanged = "kampusmeal.order.status_changed"
	TopicReviewCreated      = "kampusmeal.review.created"
)

// Aggregate type constants.
const (
	AggregateTypeOrder  = "order"
	AggregateTypeReview = "review"
)

// Source identifier for events originating from this service.
const Source = "kampusmeal-api"

// OrderCheckedOutData is the payload for an order.checked_out event with the
// full frozen order snapshot.
type OrderCheckedOutData struct {
	ID             string          `json:"id"`
	UserID         string          `json:"user_id"`
	StallID        string          `json:"stall_id"`
	Status         string          `json:"status"`
	Items          []OrderItemData `json:"items"`
	ItemsTotal     int64           `json:"items_total"`
	AppFee         int64           `json:"app_fee"`
	DeliveryMethod string          `json:"delivery_method"`
	DeliveryFee    int64           `json:"delivery_fee"`
	TotalPrice     int64           `json:"total_price"`
}

// OrderItemData is the event payload for an order line item.
type OrderItemData struct {
	MenuItemID string `json:"menu_item_id"`
	Name       string `json:"name"`
	Price      int64  `json:"price"`
	Quantity   int    `json:"quantity"`
	Subtotal   int64  `json:"subtotal"`
}

// OrderStatusChangedData is the payload for an order.status_changed event.
type OrderStatusChangedData struct {
	OrderID   string `json:"order_id"`
	StallID   string `json:"stall_id"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
	Reason    string `json:"reason,omitempty"`
}

// ReviewCreatedData is the payload for a review.created event.
type ReviewCreatedData struct {
	ReviewID string `json:"review_id"`
	OrderID  string `json:"order_id"`
	StallID  string `json:"stall_id"`
	Rating   int    `json:"rating"`
}

// Producer publishes domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishOrderCheckedOut publishes an order.checked_out event with the full
// order snapshot.
func (p *Producer) PublishOrderCheckedOut(ctx context.Context, order *domain.Order) error {
	items := make([]OrderItemData, len(order.Items))
	for i, item := range order.Items {
		items[i] = OrderItemData{
			MenuItemID: item.MenuItemID,
			Name:       item.Name,
			Price:      item.Price,
			Quantity:   item.Quantity,
			Subtotal:   item.Subtotal,
		}
	}

	data := OrderCheckedOutData{
		ID:             order.ID,
		UserID:         order.UserID,
		StallID:        order.StallID,
		Status:         order.Status,
		Items:          items,
		ItemsTotal:     order.ItemsTotal,
		AppFee:         order.AppFee,
		DeliveryMethod: order.DeliveryMethod,
		DeliveryFee:    order.DeliveryFee,
		TotalPrice:     order.TotalPrice,
	}

	event, err := pkgkafka.NewEvent(TopicOrderCheckedOut, order.ID, AggregateTypeOrder, Source, data)
	if err != nil {
		return fmt.Errorf("create order.checked_out event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicOrderCheckedOut, event); err != nil {
		return fmt.Errorf("publish order.checked_out event: %w", err)
	}

	p.logger.DebugContext(ctx, "published order.checked_out event",
		slog.String("order_id", order.ID),
		slog.String("user_id", order.UserID),
	)

	return nil
}

// PublishOrderStatusChanged publishes an order.status_changed event.
func (p *Producer) PublishOrderStatusChanged(ctx context.Context, order *domain.Order, oldStatus, reason string) error {
	data := OrderStatusChangedData{
		OrderID:   order.ID,
		StallID:   order.StallID,
		OldStatus: oldStatus,
		NewStatus: order.Status,
		Reason:    reason,
	}

	event, err := pkgkafka.NewEvent(TopicOrderStatusChanged, order.ID, AggregateTypeOrder, Source, data)
	if err != nil {
		return fmt.Errorf("create order.status_changed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicOrderStatusChanged, event); err != nil {
		return fmt.Errorf("publish order.status_changed event: %w", err)
	}

	p.logger.DebugContext(ctx, "published order.status_changed event",
		slog.String("order_id", order.ID),
		slog.String("old_status", oldStatus),
		slog.String("new_status", order.Status),
	)

	return nil
}

// PublishReviewCreated publishes a review.created event.
func (p *Producer) PublishReviewCreated(ctx context.Context, review *domain.Review) error {
	data := ReviewCreatedData{
		ReviewID: review.ID,
		OrderID:  review.OrderID,
		StallID:  review.StallID,
		Rating:   review.Rating,
	}

	event, err := pkgkafka.NewEvent(TopicReviewCreated, review.ID, AggregateTypeReview, Source, data)
	if err != nil {
		return fmt.Errorf("create review.created event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicReviewCreated, event); err != nil {
		return fmt.Errorf("publish review.created event: %w", err)
	}

	p.logger.DebugContext(ctx, "published review.created event",
		slog.String("review_id", review.ID),
		slog.String("stall_id", review.StallID),
	)

	return nil
}
