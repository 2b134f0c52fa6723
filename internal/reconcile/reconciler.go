// Package reconcile consumes payment-provider notifications and
// brings local order and payment state into agreement with them.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storefront-service/internal/broker"
	"storefront-service/internal/models"
	"storefront-service/internal/provider/maksekeskus"
	"storefront-service/internal/signature"
	"storefront-service/internal/util"
)

// ErrInvalidSignature marks a notification whose MAC did not verify.
// The webhook receiver still acknowledges the provider; this error is
// internal diagnostics only.
var ErrInvalidSignature = errors.New("webhook signature verification failed")

// PaymentStore is the storage surface the reconciler needs
type PaymentStore interface {
	FindPaymentByTransaction(ctx context.Context, transactionID string) (*models.OrderPayment, error)
	UpsertPayment(ctx context.Context, payment *models.OrderPayment) error
	SetOrderStatus(ctx context.Context, orderID int64, status string) error
	GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error)
	SetProductAvailability(ctx context.Context, productID int64, available bool) error
}

// DedupeCache is an optional fast path for replayed notifications.
// The payment row in storage remains the authoritative dedupe record.
type DedupeCache interface {
	IsTransactionProcessed(ctx context.Context, transactionID string) (bool, error)
	MarkTransactionProcessed(ctx context.Context, transactionID string, ttl time.Duration) error
}

// MapPaymentStatus maps the provider status vocabulary onto the local
// payment state machine. Unrecognized statuses map to PENDING: an
// unknown status must not be treated as a terminal failure.
func MapPaymentStatus(providerStatus string) string {
	switch providerStatus {
	case maksekeskus.StatusCompleted, maksekeskus.StatusApproved,
		maksekeskus.StatusRefunded, maksekeskus.StatusPartRefunded:
		return models.PaymentStatusCompleted
	case maksekeskus.StatusCancelled:
		return models.PaymentStatusCancelled
	case maksekeskus.StatusExpired:
		return models.PaymentStatusExpired
	default:
		return models.PaymentStatusPending
	}
}

// MapOrderStatus maps the provider status vocabulary onto the local
// order status vocabulary.
func MapOrderStatus(providerStatus string) string {
	switch providerStatus {
	case maksekeskus.StatusCompleted, maksekeskus.StatusApproved:
		return models.OrderStatusPaid
	case maksekeskus.StatusRefunded, maksekeskus.StatusPartRefunded:
		return models.OrderStatusRefunded
	case maksekeskus.StatusCancelled, maksekeskus.StatusExpired:
		return models.OrderStatusCancelled
	default:
		return models.OrderStatusPending
	}
}

// Outcome reports what a notification resolved to
type Outcome struct {
	TransactionID string
	OrderID       int64
	PaymentStatus string
	Duplicate     bool
}

// Reconciler applies provider notifications to local state
type Reconciler struct {
	store     PaymentStore
	dedupe    DedupeCache
	publisher *broker.EventPublisher
	secret    string
	logger    *zap.Logger
}

// NewReconciler creates a reconciler. dedupe and publisher may be nil.
func NewReconciler(store PaymentStore, dedupe DedupeCache, publisher *broker.EventPublisher, secret string) *Reconciler {
	return &Reconciler{
		store:     store,
		dedupe:    dedupe,
		publisher: publisher,
		secret:    secret,
		logger:    util.GetLogger(),
	}
}

// ProcessNotification verifies and applies one provider notification.
// The caller acknowledges the provider with HTTP 200 regardless of
// the returned error; errors here feed logs and response diagnostics
// only.
func (r *Reconciler) ProcessNotification(ctx context.Context, rawPayload, mac string) (*Outcome, error) {
	ctx, span := util.StartSpan(ctx, "Reconciler.ProcessNotification")
	defer span.End()

	util.WebhooksReceivedTotal.Inc()

	if !signature.Verify(rawPayload, r.secret, mac) {
		util.WebhookSignatureFailuresTotal.Inc()
		r.logger.Warn("Rejected webhook with invalid MAC")
		return nil, ErrInvalidSignature
	}

	notification, err := maksekeskus.ParseNotification(rawPayload)
	if err != nil {
		util.WebhookProcessingFailuresTotal.WithLabelValues("parse").Inc()
		return nil, err
	}

	merchantData, err := maksekeskus.DecodeMerchantData(notification.MerchantData)
	if err != nil {
		util.WebhookProcessingFailuresTotal.WithLabelValues("merchant_data").Inc()
		return nil, err
	}

	paymentStatus := MapPaymentStatus(notification.Status)
	outcome := &Outcome{
		TransactionID: notification.Transaction,
		OrderID:       merchantData.OrderID,
		PaymentStatus: paymentStatus,
	}

	// Fast path: transactions already observed COMPLETED short-circuit
	// without a storage round trip. Best effort only.
	if r.dedupe != nil {
		if seen, err := r.dedupe.IsTransactionProcessed(ctx, notification.Transaction); err == nil && seen {
			util.WebhookDuplicatesTotal.Inc()
			r.logger.Info("Ignoring replayed notification (cache)",
				zap.String("transaction_id", notification.Transaction))
			outcome.Duplicate = true
			outcome.PaymentStatus = models.PaymentStatusCompleted
			return outcome, nil
		}
	}

	existing, err := r.store.FindPaymentByTransaction(ctx, notification.Transaction)
	if err != nil {
		util.WebhookProcessingFailuresTotal.WithLabelValues("lookup").Inc()
		return outcome, fmt.Errorf("payment lookup failed: %w", err)
	}

	// COMPLETED is monotonic: a later out-of-order notification must
	// never downgrade it, and a repeated COMPLETED is a no-op.
	if existing != nil && existing.Status == models.PaymentStatusCompleted {
		util.WebhookDuplicatesTotal.Inc()
		r.logger.Info("Ignoring notification for completed payment",
			zap.String("transaction_id", notification.Transaction),
			zap.String("incoming_status", notification.Status))
		outcome.Duplicate = true
		outcome.PaymentStatus = models.PaymentStatusCompleted
		return outcome, nil
	}

	amount, err := strconv.ParseFloat(notification.Amount, 64)
	if err != nil {
		util.WebhookProcessingFailuresTotal.WithLabelValues("parse").Inc()
		return outcome, fmt.Errorf("malformed notification amount %q: %w", notification.Amount, err)
	}

	payment := &models.OrderPayment{
		OrderID:       merchantData.OrderID,
		TransactionID: notification.Transaction,
		PaymentMethod: notification.PaymentMethod,
		Amount:        amount,
		Currency:      notification.Currency,
		Status:        paymentStatus,
	}
	if err := r.store.UpsertPayment(ctx, payment); err != nil {
		util.WebhookProcessingFailuresTotal.WithLabelValues("upsert").Inc()
		return outcome, fmt.Errorf("payment upsert failed: %w", err)
	}

	r.publishPaymentReceived(ctx, payment)

	switch paymentStatus {
	case models.PaymentStatusCompleted:
		if err := r.completeOrder(ctx, payment, MapOrderStatus(notification.Status)); err != nil {
			return outcome, err
		}
	}

	return outcome, nil
}

// completeOrder transitions the parent order and marks every product
// on it as sold.
func (r *Reconciler) completeOrder(ctx context.Context, payment *models.OrderPayment, orderStatus string) error {
	if err := r.store.SetOrderStatus(ctx, payment.OrderID, orderStatus); err != nil {
		util.WebhookProcessingFailuresTotal.WithLabelValues("order_status").Inc()
		return fmt.Errorf("order status update failed: %w", err)
	}

	if orderStatus == models.OrderStatusPaid {
		util.OrdersPaidTotal.Inc()
	}

	items, err := r.store.GetOrderItemsByOrderID(ctx, payment.OrderID)
	if err != nil {
		util.WebhookProcessingFailuresTotal.WithLabelValues("items").Inc()
		return fmt.Errorf("order items lookup failed: %w", err)
	}

	var soldOut []int64
	for _, item := range items {
		if err := r.store.SetProductAvailability(ctx, item.ProductID, false); err != nil {
			// non-critical side effect: log and keep going
			r.logger.Error("Failed to mark product unavailable",
				zap.Int64("order_id", payment.OrderID),
				zap.Int64("product_id", item.ProductID),
				zap.Error(err))
			continue
		}
		soldOut = append(soldOut, item.ProductID)
	}

	if r.dedupe != nil {
		if err := r.dedupe.MarkTransactionProcessed(ctx, payment.TransactionID, 24*time.Hour); err != nil {
			r.logger.Warn("Failed to mark transaction in dedupe cache", zap.Error(err))
		}
	}

	r.logger.Info("Order paid",
		zap.Int64("order_id", payment.OrderID),
		zap.String("transaction_id", payment.TransactionID),
		zap.Float64("amount", payment.Amount))

	if r.publisher != nil {
		paidEvent := &models.OrderPaidEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeOrderPaid,
				Timestamp: time.Now(),
			},
			OrderID:       payment.OrderID,
			TransactionID: payment.TransactionID,
			TotalAmount:   payment.Amount,
			Currency:      payment.Currency,
		}
		if err := r.publisher.PublishOrderPaid(ctx, paidEvent); err != nil {
			r.logger.Error("Failed to publish OrderPaid event", zap.Error(err))
		}

		if len(soldOut) > 0 {
			soldEvent := &models.ProductsSoldOutEvent{
				BaseEvent: models.BaseEvent{
					EventID:   uuid.New().String(),
					EventType: models.EventTypeProductsSoldOut,
					Timestamp: time.Now(),
				},
				OrderID:    payment.OrderID,
				ProductIDs: soldOut,
			}
			if err := r.publisher.PublishProductsSoldOut(ctx, soldEvent); err != nil {
				r.logger.Error("Failed to publish ProductsSoldOut event", zap.Error(err))
			}
		}
	}

	return nil
}

func (r *Reconciler) publishPaymentReceived(ctx context.Context, payment *models.OrderPayment) {
	if r.publisher == nil {
		return
	}
	event := &models.PaymentReceivedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypePaymentReceived,
			Timestamp: time.Now(),
		},
		OrderID:       payment.OrderID,
		TransactionID: payment.TransactionID,
		PaymentMethod: payment.PaymentMethod,
		Amount:        payment.Amount,
		Currency:      payment.Currency,
		Status:        payment.Status,
	}
	if err := r.publisher.PublishPaymentReceived(ctx, event); err != nil {
		r.logger.Error("Failed to publish PaymentReceived event", zap.Error(err))
	}
}
