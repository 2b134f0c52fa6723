// Package sync reconciles local products against the remote
// payment-provider catalog, creating or reusing remote product and
// price objects without duplicating them across runs.
package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storefront-service/internal/broker"
	"storefront-service/internal/models"
	"storefront-service/internal/money"
	"storefront-service/internal/retry"
	"storefront-service/internal/util"
)

// CatalogAPI is the remote catalog surface the engine reconciles
// against.
type CatalogAPI interface {
	FindProductByTitle(ctx context.Context, title string) (string, error)
	CreateProduct(ctx context.Context, product *models.Product) (string, error)
	FindPriceByAmount(ctx context.Context, remoteProductID string, amountCents int64, currency string) (string, error)
	CreatePrice(ctx context.Context, remoteProductID string, amountCents int64, currency string) (string, error)
}

// ProductStore is the local product persistence the engine reads from
// and writes resolved identifiers back to.
type ProductStore interface {
	GetProducts(ctx context.Context) ([]models.Product, error)
	UpdateProductSync(ctx context.Context, productID int64, remoteProductID, remotePriceID, syncStatus string) error
	MarkProductSyncFailed(ctx context.Context, productID int64) error
}

// Options select what a sync run covers
type Options struct {
	DryRun      bool
	ForceResync bool
	BatchSize   int
}

// ProductError captures a single product's failure without aborting
// the batch.
type ProductError struct {
	ProductID int64  `json:"productId"`
	Error     string `json:"error"`
}

// Result tallies a sync run
type Result struct {
	Success   bool           `json:"success"`
	Processed int            `json:"processed"`
	Created   int            `json:"created"`
	Updated   int            `json:"updated"`
	Skipped   int            `json:"skipped"`
	Failed    int            `json:"failed"`
	Errors    []ProductError `json:"errors"`
	Summary   string         `json:"summary"`
}

// Engine runs catalog synchronization. All remote calls are strictly
// sequential: concurrent runs could each miss the other's
// search-then-create and produce duplicate remote products for the
// same title.
type Engine struct {
	store      ProductStore
	catalog    CatalogAPI
	publisher  *broker.EventPublisher
	logger     *zap.Logger
	currency   string
	batchPause time.Duration
	persistTry retry.Policy
}

// NewEngine creates a sync engine. publisher may be nil when no event
// bus is wired (tests, one-off CLI runs).
func NewEngine(store ProductStore, catalog CatalogAPI, publisher *broker.EventPublisher, currency string, batchPause time.Duration, retryAttempts int, retryDelay time.Duration) *Engine {
	if retryAttempts < 1 {
		retryAttempts = 3
	}
	return &Engine{
		store:      store,
		catalog:    catalog,
		publisher:  publisher,
		logger:     util.GetLogger(),
		currency:   currency,
		batchPause: batchPause,
		persistTry: retry.Policy{
			MaxAttempts: retryAttempts,
			Backoff:     retry.FixedBackoff(retryDelay),
			Retryable:   retry.IsTransient,
		},
	}
}

type outcome int

const (
	outcomeCreated outcome = iota
	outcomeUpdated
	outcomeSkipped
)

// Run synchronizes products in batches. A per-product failure is
// recorded and the run continues; the run reports success only when
// zero products failed.
func (e *Engine) Run(ctx context.Context, opts Options) (*Result, error) {
	ctx, span := util.StartSpan(ctx, "SyncEngine.Run")
	defer span.End()

	start := time.Now()
	defer func() {
		util.SyncRunDuration.Observe(time.Since(start).Seconds())
	}()

	products, err := e.store.GetProducts(ctx)
	if err != nil {
		util.SyncRunsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	batchSize := opts.BatchSize
	if batchSize < 1 {
		batchSize = 10
	}

	result := &Result{Errors: []ProductError{}}

	for offset := 0; offset < len(products); offset += batchSize {
		end := offset + batchSize
		if end > len(products) {
			end = len(products)
		}

		for i := offset; i < end; i++ {
			product := products[i]
			result.Processed++

			out, err := e.syncProduct(ctx, &product, opts)
			if err != nil {
				result.Failed++
				result.Errors = append(result.Errors, ProductError{
					ProductID: product.ID,
					Error:     err.Error(),
				})
				util.ProductsSyncedTotal.WithLabelValues("failed").Inc()
				e.logger.Warn("Product sync failed",
					zap.Int64("product_id", product.ID),
					zap.Error(err))
				continue
			}

			switch out {
			case outcomeCreated:
				result.Created++
				util.ProductsSyncedTotal.WithLabelValues("created").Inc()
			case outcomeUpdated:
				result.Updated++
				util.ProductsSyncedTotal.WithLabelValues("updated").Inc()
			case outcomeSkipped:
				result.Skipped++
				util.ProductsSyncedTotal.WithLabelValues("skipped").Inc()
			}
		}

		// pause between chunks to respect provider rate limits
		if end < len(products) && e.batchPause > 0 {
			select {
			case <-time.After(e.batchPause):
			case <-ctx.Done():
				return result, ctx.Err()
			}
		}
	}

	result.Success = result.Failed == 0
	result.Summary = fmt.Sprintf("processed=%d created=%d updated=%d skipped=%d failed=%d",
		result.Processed, result.Created, result.Updated, result.Skipped, result.Failed)

	if result.Success {
		util.SyncRunsTotal.WithLabelValues("ok").Inc()
	} else {
		util.SyncRunsTotal.WithLabelValues("failed").Inc()
	}

	e.logger.Info("Catalog sync run finished",
		zap.String("summary", result.Summary),
		zap.Bool("dry_run", opts.DryRun))

	if e.publisher != nil && !opts.DryRun {
		event := &models.CatalogSyncedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeCatalogSynced,
				Timestamp: time.Now(),
			},
			Processed: result.Processed,
			Created:   result.Created,
			Updated:   result.Updated,
			Skipped:   result.Skipped,
			Failed:    result.Failed,
			DryRun:    opts.DryRun,
		}
		if err := e.publisher.PublishCatalogSynced(ctx, event); err != nil {
			e.logger.Error("Failed to publish CatalogSynced event", zap.Error(err))
		}
	}

	return result, nil
}

func (e *Engine) syncProduct(ctx context.Context, product *models.Product, opts Options) (outcome, error) {
	if product.SyncStatus == models.SyncStatusSynced && !opts.ForceResync {
		return outcomeSkipped, nil
	}

	if product.Title == "" {
		e.markFailed(ctx, product.ID, opts.DryRun)
		return 0, fmt.Errorf("product %d has no title", product.ID)
	}

	amountCents := money.ParseCents(product.Price)
	if amountCents <= 0 {
		e.markFailed(ctx, product.ID, opts.DryRun)
		return 0, fmt.Errorf("product %d has unparsable price %q", product.ID, product.Price)
	}

	createdRemote := false

	remoteProductID := ""
	if product.StripeProductID != nil {
		remoteProductID = *product.StripeProductID
	}
	if remoteProductID == "" {
		found, err := e.catalog.FindProductByTitle(ctx, product.Title)
		if err != nil {
			e.markFailed(ctx, product.ID, opts.DryRun)
			return 0, fmt.Errorf("remote product search failed: %w", err)
		}
		if found != "" {
			remoteProductID = found
		} else {
			if opts.DryRun {
				// would create; nothing further to resolve
				return outcomeCreated, nil
			}
			created, err := e.catalog.CreateProduct(ctx, product)
			if err != nil {
				e.markFailed(ctx, product.ID, opts.DryRun)
				return 0, fmt.Errorf("remote product creation failed: %w", err)
			}
			remoteProductID = created
			createdRemote = true
		}
	}

	remotePriceID := ""
	if product.StripePriceID != nil {
		remotePriceID = *product.StripePriceID
	}
	if remotePriceID == "" {
		found, err := e.catalog.FindPriceByAmount(ctx, remoteProductID, amountCents, e.currency)
		if err != nil {
			e.markFailed(ctx, product.ID, opts.DryRun)
			return 0, fmt.Errorf("remote price lookup failed: %w", err)
		}
		if found != "" {
			remotePriceID = found
		} else {
			if opts.DryRun {
				return outcomeCreated, nil
			}
			created, err := e.catalog.CreatePrice(ctx, remoteProductID, amountCents, e.currency)
			if err != nil {
				e.markFailed(ctx, product.ID, opts.DryRun)
				return 0, fmt.Errorf("remote price creation failed: %w", err)
			}
			remotePriceID = created
			createdRemote = true
		}
	}

	if opts.DryRun {
		// remote objects already existed; local state untouched
		return outcomeUpdated, nil
	}

	err := e.persistTry.Do(ctx, func() error {
		return e.store.UpdateProductSync(ctx, product.ID, remoteProductID, remotePriceID, models.SyncStatusSynced)
	})
	if err != nil {
		e.markFailed(ctx, product.ID, false)
		return 0, fmt.Errorf("failed to persist sync result: %w", err)
	}

	if createdRemote {
		return outcomeCreated, nil
	}
	return outcomeUpdated, nil
}

func (e *Engine) markFailed(ctx context.Context, productID int64, dryRun bool) {
	if dryRun {
		return
	}
	if err := e.store.MarkProductSyncFailed(ctx, productID); err != nil {
		e.logger.Error("Failed to mark product sync as failed",
			zap.Int64("product_id", productID),
			zap.Error(err))
	}
}
