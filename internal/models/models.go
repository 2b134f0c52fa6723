package models

import "time"

// Product represents a catalog item (ceramics / textile piece)
type Product struct {
	ID              int64      `db:"id" json:"id"`
	Title           string     `db:"title" json:"title"`
	Description     string     `db:"description" json:"description"`
	Price           string     `db:"price" json:"price"`
	Category        string     `db:"category" json:"category"`
	StripeProductID *string    `db:"stripe_product_id" json:"stripe_product_id,omitempty"`
	StripePriceID   *string    `db:"stripe_price_id" json:"stripe_price_id,omitempty"`
	SyncStatus      string     `db:"sync_status" json:"sync_status"`
	LastSyncedAt    *time.Time `db:"last_synced_at" json:"last_synced_at,omitempty"`
	Available       bool       `db:"available" json:"available"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
}

// Order represents a customer order
type Order struct {
	ID            int64     `db:"id" json:"id"`
	CustomerName  string    `db:"customer_name" json:"customer_name"`
	CustomerEmail string    `db:"customer_email" json:"customer_email"`
	CustomerPhone string    `db:"customer_phone" json:"customer_phone,omitempty"`
	ShippingAddr  string    `db:"shipping_addr" json:"shipping_addr"`
	ShippingCity  string    `db:"shipping_city" json:"shipping_city"`
	ShippingZip   string    `db:"shipping_zip" json:"shipping_zip"`
	TotalAmount   float64   `db:"total_amount" json:"total_amount"`
	Currency      string    `db:"currency" json:"currency"`
	Status        string    `db:"status" json:"status"`
	Notes         string    `db:"notes" json:"notes,omitempty"`
	UserID        *int64    `db:"user_id" json:"user_id,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// OrderItem represents items in an order; title and unit price are
// snapshots taken at checkout and never updated afterwards.
type OrderItem struct {
	ID        int64   `db:"id" json:"id"`
	OrderID   int64   `db:"order_id" json:"order_id"`
	ProductID int64   `db:"product_id" json:"product_id"`
	Title     string  `db:"title" json:"title"`
	Quantity  int     `db:"quantity" json:"quantity"`
	UnitPrice float64 `db:"unit_price" json:"unit_price"`
}

// OrderPayment represents a provider payment record. TransactionID is
// the deduplication key for replayed webhook notifications.
type OrderPayment struct {
	ID            int64     `db:"id" json:"id"`
	OrderID       int64     `db:"order_id" json:"order_id"`
	TransactionID string    `db:"transaction_id" json:"transaction_id"`
	PaymentMethod string    `db:"payment_method" json:"payment_method"`
	Amount        float64   `db:"amount" json:"amount"`
	Currency      string    `db:"currency" json:"currency"`
	Status        string    `db:"status" json:"status"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Order statuses
const (
	OrderStatusPending   = "PENDING"
	OrderStatusPaid      = "PAID"
	OrderStatusCancelled = "CANCELLED"
	OrderStatusRefunded  = "REFUNDED"
)

// Payment statuses (provider vocabulary mirrored locally)
const (
	PaymentStatusPending   = "PENDING"
	PaymentStatusCompleted = "COMPLETED"
	PaymentStatusCancelled = "CANCELLED"
	PaymentStatusExpired   = "EXPIRED"
)

// Product sync statuses
const (
	SyncStatusUnsynced = "unsynced"
	SyncStatusSynced   = "synced"
	SyncStatusFailed   = "failed"
)
