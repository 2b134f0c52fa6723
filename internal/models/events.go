package models

import "time"

// Event types
const (
	EventTypePaymentReceived = "payment.received"
	EventTypeOrderPaid       = "order.paid"
	EventTypeProductsSoldOut = "products.sold_out"
	EventTypeCatalogSynced   = "catalog.synced"
)

// BaseEvent contains fields common to all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// PaymentReceivedEvent is published for every verified provider
// notification, whatever its status resolved to.
type PaymentReceivedEvent struct {
	BaseEvent
	OrderID       int64   `json:"order_id"`
	TransactionID string  `json:"transaction_id"`
	PaymentMethod string  `json:"payment_method"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	Status        string  `json:"status"`
}

// OrderPaidEvent is published when an order transitions to PAID
type OrderPaidEvent struct {
	BaseEvent
	OrderID       int64   `json:"order_id"`
	TransactionID string  `json:"transaction_id"`
	TotalAmount   float64 `json:"total_amount"`
	Currency      string  `json:"currency"`
}

// ProductsSoldOutEvent carries the products marked unavailable after a
// completed payment.
type ProductsSoldOutEvent struct {
	BaseEvent
	OrderID    int64   `json:"order_id"`
	ProductIDs []int64 `json:"product_ids"`
}

// CatalogSyncedEvent summarizes a catalog synchronization run
type CatalogSyncedEvent struct {
	BaseEvent
	Processed int  `json:"processed"`
	Created   int  `json:"created"`
	Updated   int  `json:"updated"`
	Skipped   int  `json:"skipped"`
	Failed    int  `json:"failed"`
	DryRun    bool `json:"dry_run"`
}
