package worker

import (
	"context"

	"storefront-service/internal/broker"
	"storefront-service/internal/models"
	"storefront-service/internal/redisclient"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

// AvailabilityWorker keeps the Redis product-availability view in
// agreement with order events.
type AvailabilityWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	store        *store.Store
	redis        *redisclient.Client
	logger       *zap.Logger
}

// NewAvailabilityWorker creates a worker consuming order events
func NewAvailabilityWorker(consumer *broker.Consumer, store *store.Store, redis *redisclient.Client) *AvailabilityWorker {
	w := &AvailabilityWorker{
		consumer: consumer,
		store:    store,
		redis:    redis,
		logger:   util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnProductsSoldOut(w.handleProductsSoldOut)
	eventHandler.OnOrderPaid(w.handleOrderPaid)
	w.eventHandler = eventHandler

	return w
}

// SyncAvailabilityToRedis warms the availability view from the
// database, typically at startup.
func (w *AvailabilityWorker) SyncAvailabilityToRedis(ctx context.Context) error {
	products, err := w.store.GetProducts(ctx)
	if err != nil {
		return err
	}

	availability := make(map[int64]bool, len(products))
	for _, p := range products {
		availability[p.ID] = p.Available
	}

	if err := w.redis.SetProductAvailabilityBatch(ctx, availability); err != nil {
		return err
	}

	w.logger.Info("Product availability synced to Redis", zap.Int("products", len(products)))
	return nil
}

func (w *AvailabilityWorker) handleProductsSoldOut(ctx context.Context, event *models.ProductsSoldOutEvent) error {
	availability := make(map[int64]bool, len(event.ProductIDs))
	for _, id := range event.ProductIDs {
		availability[id] = false
	}

	if err := w.redis.SetProductAvailabilityBatch(ctx, availability); err != nil {
		w.logger.Error("Failed to update availability view",
			zap.Int64("order_id", event.OrderID),
			zap.Error(err))
		return err
	}

	w.logger.Info("Availability view updated",
		zap.Int64("order_id", event.OrderID),
		zap.Int("products", len(event.ProductIDs)))
	return nil
}

func (w *AvailabilityWorker) handleOrderPaid(ctx context.Context, event *models.OrderPaidEvent) error {
	w.logger.Info("Observed paid order",
		zap.Int64("order_id", event.OrderID),
		zap.String("transaction_id", event.TransactionID))
	return nil
}

// Start starts the worker
func (w *AvailabilityWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting availability worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *AvailabilityWorker) Stop() error {
	w.logger.Info("Stopping availability worker")
	return w.consumer.Close()
}
