package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishPaymentReceived publishes a PaymentReceived event
func (ep *EventPublisher) PublishPaymentReceived(ctx context.Context, event *models.PaymentReceivedEvent) error {
	key := fmt.Sprintf("order-%d", event.OrderID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishOrderPaid publishes an OrderPaid event
func (ep *EventPublisher) PublishOrderPaid(ctx context.Context, event *models.OrderPaidEvent) error {
	key := fmt.Sprintf("order-%d", event.OrderID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishProductsSoldOut publishes a ProductsSoldOut event
func (ep *EventPublisher) PublishProductsSoldOut(ctx context.Context, event *models.ProductsSoldOutEvent) error {
	key := fmt.Sprintf("order-%d", event.OrderID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishCatalogSynced publishes a CatalogSynced event
func (ep *EventPublisher) PublishCatalogSynced(ctx context.Context, event *models.CatalogSyncedEvent) error {
	return ep.producer.PublishEvent(ctx, "catalog-sync", event)
}

// EventHandler routes incoming events to registered handlers
type EventHandler struct {
	onOrderPaid       func(context.Context, *models.OrderPaidEvent) error
	onProductsSoldOut func(context.Context, *models.ProductsSoldOutEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnOrderPaid registers a handler for OrderPaid events
func (eh *EventHandler) OnOrderPaid(handler func(context.Context, *models.OrderPaidEvent) error) {
	eh.onOrderPaid = handler
}

// OnProductsSoldOut registers a handler for ProductsSoldOut events
func (eh *EventHandler) OnProductsSoldOut(handler func(context.Context, *models.ProductsSoldOutEvent) error) {
	eh.onProductsSoldOut = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	util.GetLogger().Debug("Handling event",
		zap.String("type", baseEvent.EventType),
		zap.String("id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeOrderPaid:
		if eh.onOrderPaid != nil {
			var event models.OrderPaidEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal OrderPaid event: %w", err)
			}
			return eh.onOrderPaid(ctx, &event)
		}

	case models.EventTypeProductsSoldOut:
		if eh.onProductsSoldOut != nil {
			var event models.ProductsSoldOutEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal ProductsSoldOut event: %w", err)
			}
			return eh.onProductsSoldOut(ctx, &event)
		}

	default:
		util.GetLogger().Debug("Unhandled event type", zap.String("type", baseEvent.EventType))
	}

	return nil
}
