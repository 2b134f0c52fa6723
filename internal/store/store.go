package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"storefront-service/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("product not found: %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProducts retrieves all products
func (s *Store) GetProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := s.db.SelectContext(ctx, &products, "SELECT * FROM products ORDER BY id")
	return products, err
}

// UpdateProductSync persists resolved remote identifiers and the sync outcome
func (s *Store) UpdateProductSync(ctx context.Context, productID int64, stripeProductID, stripePriceID, syncStatus string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET stripe_product_id = $1, stripe_price_id = $2, sync_status = $3, last_synced_at = NOW()
		WHERE id = $4`,
		stripeProductID, stripePriceID, syncStatus, productID)
	return err
}

// MarkProductSyncFailed records a failed sync pass without touching
// remote identifiers
func (s *Store) MarkProductSyncFailed(ctx context.Context, productID int64) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE products SET sync_status = $1 WHERE id = $2",
		models.SyncStatusFailed, productID)
	return err
}

// SetProductAvailability flips a product's availability flag
func (s *Store) SetProductAvailability(ctx context.Context, productID int64, available bool) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE products SET available = $1 WHERE id = $2",
		available, productID)
	return err
}
