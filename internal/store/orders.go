package store

import (
	"context"
	"database/sql"
	"fmt"

	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

// CreateOrder persists an order and its items. Items are written
// sequentially after the order row; a failing item insert is logged
// and skipped rather than rolling back the order, favoring order
// durability over full transactional consistency.
func (s *Store) CreateOrder(ctx context.Context, order *models.Order, items []models.OrderItem) error {
	query := `
		INSERT INTO orders (customer_name, customer_email, customer_phone, shipping_addr, shipping_city, shipping_zip, total_amount, currency, status, notes, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`

	err := s.db.GetContext(ctx, order, query,
		order.CustomerName, order.CustomerEmail, order.CustomerPhone,
		order.ShippingAddr, order.ShippingCity, order.ShippingZip,
		order.TotalAmount, order.Currency, order.Status, order.Notes, order.UserID)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	for i := range items {
		items[i].OrderID = order.ID
		if err := s.createOrderItem(ctx, &items[i]); err != nil {
			util.GetLogger().Error("Failed to create order item, skipping",
				zap.Int64("order_id", order.ID),
				zap.Int64("product_id", items[i].ProductID),
				zap.Error(err))
		}
	}

	return nil
}

func (s *Store) createOrderItem(ctx context.Context, item *models.OrderItem) error {
	query := `
		INSERT INTO order_items (order_id, product_id, title, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	return s.db.GetContext(ctx, &item.ID, query,
		item.OrderID, item.ProductID, item.Title, item.Quantity, item.UnitPrice)
}

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("order not found: %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderItemsByOrderID retrieves all items for an order
func (s *Store) GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1", orderID)
	return items, err
}

// SetOrderStatus updates order status
func (s *Store) SetOrderStatus(ctx context.Context, orderID int64, status string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2",
		status, orderID)
	return err
}

// FindPaymentByTransaction retrieves a payment by provider transaction
// ID. Returns nil without error when no payment exists.
func (s *Store) FindPaymentByTransaction(ctx context.Context, transactionID string) (*models.OrderPayment, error) {
	var payment models.OrderPayment
	err := s.db.GetContext(ctx, &payment,
		"SELECT * FROM order_payments WHERE transaction_id = $1", transactionID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// UpsertPayment creates or updates a payment record keyed by
// transaction_id. Replayed notifications with the same transaction_id
// update the existing row instead of creating a duplicate.
func (s *Store) UpsertPayment(ctx context.Context, payment *models.OrderPayment) error {
	query := `
		INSERT INTO order_payments (order_id, transaction_id, payment_method, amount, currency, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (transaction_id) DO UPDATE
		SET status = EXCLUDED.status, payment_method = EXCLUDED.payment_method, updated_at = NOW()
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, payment, query,
		payment.OrderID, payment.TransactionID, payment.PaymentMethod,
		payment.Amount, payment.Currency, payment.Status)
}
