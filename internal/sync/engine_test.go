package sync

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"storefront-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	products    []models.Product
	syncUpdates map[int64][2]string
	failMarks   map[int64]int
	updateErr   error
}

func newFakeStore(products ...models.Product) *fakeStore {
	return &fakeStore{
		products:    products,
		syncUpdates: map[int64][2]string{},
		failMarks:   map[int64]int{},
	}
}

func (f *fakeStore) GetProducts(ctx context.Context) ([]models.Product, error) {
	out := make([]models.Product, len(f.products))
	copy(out, f.products)
	return out, nil
}

func (f *fakeStore) UpdateProductSync(ctx context.Context, productID int64, remoteProductID, remotePriceID, syncStatus string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.syncUpdates[productID] = [2]string{remoteProductID, remotePriceID}
	for i := range f.products {
		if f.products[i].ID == productID {
			f.products[i].SyncStatus = syncStatus
			f.products[i].StripeProductID = &remoteProductID
			f.products[i].StripePriceID = &remotePriceID
		}
	}
	return nil
}

func (f *fakeStore) MarkProductSyncFailed(ctx context.Context, productID int64) error {
	f.failMarks[productID]++
	return nil
}

type fakeCatalog struct {
	productsByTitle map[string]string
	pricesByAmount  map[string]map[int64]string
	createdProducts int
	createdPrices   int
	searchErr       error
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		productsByTitle: map[string]string{},
		pricesByAmount:  map[string]map[int64]string{},
	}
}

func (f *fakeCatalog) FindProductByTitle(ctx context.Context, title string) (string, error) {
	if f.searchErr != nil {
		return "", f.searchErr
	}
	return f.productsByTitle[title], nil
}

func (f *fakeCatalog) CreateProduct(ctx context.Context, product *models.Product) (string, error) {
	f.createdProducts++
	id := fmt.Sprintf("prod_%d", f.createdProducts)
	f.productsByTitle[product.Title] = id
	return id, nil
}

func (f *fakeCatalog) FindPriceByAmount(ctx context.Context, remoteProductID string, amountCents int64, currency string) (string, error) {
	return f.pricesByAmount[remoteProductID][amountCents], nil
}

func (f *fakeCatalog) CreatePrice(ctx context.Context, remoteProductID string, amountCents int64, currency string) (string, error) {
	f.createdPrices++
	id := fmt.Sprintf("price_%d", f.createdPrices)
	if f.pricesByAmount[remoteProductID] == nil {
		f.pricesByAmount[remoteProductID] = map[int64]string{}
	}
	f.pricesByAmount[remoteProductID][amountCents] = id
	return id, nil
}

func unsyncedProduct(id int64, title, price string) models.Product {
	return models.Product{
		ID:         id,
		Title:      title,
		Price:      price,
		SyncStatus: models.SyncStatusUnsynced,
		Available:  true,
	}
}

func newTestEngine(store ProductStore, catalog CatalogAPI) *Engine {
	return NewEngine(store, catalog, nil, "EUR", 0, 3, 0)
}

func TestRunCreatesRemoteObjects(t *testing.T) {
	store := newFakeStore(
		unsyncedProduct(1, "Stoneware mug", "25€"),
		unsyncedProduct(2, "Linen napkin", "20,00€"),
	)
	catalog := newFakeCatalog()
	engine := newTestEngine(store, catalog)

	result, err := engine.Run(context.Background(), Options{BatchSize: 10})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 2, catalog.createdProducts)
	assert.Equal(t, 2, catalog.createdPrices)
	assert.Equal(t, models.SyncStatusSynced, store.products[0].SyncStatus)
	assert.Equal(t, models.SyncStatusSynced, store.products[1].SyncStatus)
}

func TestRunDryRunMakesNoMutations(t *testing.T) {
	store := newFakeStore(
		unsyncedProduct(1, "Stoneware mug", "25€"),
		unsyncedProduct(2, "Linen napkin", "20€"),
		unsyncedProduct(3, "Wool throw", "120€"),
	)
	catalog := newFakeCatalog()
	engine := newTestEngine(store, catalog)

	result, err := engine.Run(context.Background(), Options{DryRun: true, BatchSize: 10})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Created, "each product counts as would-create")
	assert.Zero(t, catalog.createdProducts, "dry run must not mutate the remote catalog")
	assert.Zero(t, catalog.createdPrices)
	assert.Empty(t, store.syncUpdates, "dry run must not touch local sync state")
	for _, p := range store.products {
		assert.Equal(t, models.SyncStatusUnsynced, p.SyncStatus)
	}
}

func TestRunSecondPassSkipsSyncedProducts(t *testing.T) {
	store := newFakeStore(
		unsyncedProduct(1, "Stoneware mug", "25€"),
		unsyncedProduct(2, "Linen napkin", "20€"),
	)
	catalog := newFakeCatalog()
	engine := newTestEngine(store, catalog)

	first, err := engine.Run(context.Background(), Options{BatchSize: 10})
	require.NoError(t, err)
	require.True(t, first.Success)

	second, err := engine.Run(context.Background(), Options{BatchSize: 10})
	require.NoError(t, err)

	assert.Equal(t, 2, second.Skipped)
	assert.Zero(t, second.Created)
	assert.Zero(t, second.Updated)
	assert.Zero(t, second.Failed)
}

func TestRunForceResyncReusesRemoteObjects(t *testing.T) {
	store := newFakeStore(unsyncedProduct(1, "Stoneware mug", "25€"))
	catalog := newFakeCatalog()
	engine := newTestEngine(store, catalog)

	_, err := engine.Run(context.Background(), Options{BatchSize: 10})
	require.NoError(t, err)
	require.Equal(t, 1, catalog.createdProducts)

	result, err := engine.Run(context.Background(), Options{BatchSize: 10, ForceResync: true})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Updated, "stored remote ids are reused, not recreated")
	assert.Equal(t, 1, catalog.createdProducts)
	assert.Equal(t, 1, catalog.createdPrices)
}

func TestRunReusesRemoteProductFoundByTitle(t *testing.T) {
	store := newFakeStore(unsyncedProduct(1, "Stoneware mug", "25€"))
	catalog := newFakeCatalog()
	catalog.productsByTitle["Stoneware mug"] = "prod_existing"
	catalog.pricesByAmount["prod_existing"] = map[int64]string{2500: "price_existing"}
	engine := newTestEngine(store, catalog)

	result, err := engine.Run(context.Background(), Options{BatchSize: 10})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Updated, "nothing created when remote objects already match")
	assert.Zero(t, catalog.createdProducts)
	assert.Zero(t, catalog.createdPrices)
	assert.Equal(t, [2]string{"prod_existing", "price_existing"}, store.syncUpdates[1])
}

func TestRunCapturesPerProductFailures(t *testing.T) {
	store := newFakeStore(
		unsyncedProduct(1, "Stoneware mug", "abc"),
		unsyncedProduct(2, "", "20€"),
		unsyncedProduct(3, "Wool throw", "120€"),
	)
	catalog := newFakeCatalog()
	engine := newTestEngine(store, catalog)

	result, err := engine.Run(context.Background(), Options{BatchSize: 10})
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, 3, result.Processed)
	assert.Equal(t, 2, result.Failed)
	assert.Equal(t, 1, result.Created, "valid product still syncs despite earlier failures")
	require.Len(t, result.Errors, 2)
	assert.Equal(t, int64(1), result.Errors[0].ProductID)
	assert.Contains(t, result.Errors[0].Error, "price")
	assert.Equal(t, 1, store.failMarks[1])
	assert.Equal(t, 1, store.failMarks[2])
}

func TestRunRemoteSearchFailureDoesNotAbortBatch(t *testing.T) {
	store := newFakeStore(unsyncedProduct(1, "Stoneware mug", "25€"))
	catalog := newFakeCatalog()
	catalog.searchErr = errors.New("rate limited")
	engine := newTestEngine(store, catalog)

	result, err := engine.Run(context.Background(), Options{BatchSize: 10})
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Error, "rate limited")
}

func TestRunPersistFailureFailsProductOnly(t *testing.T) {
	store := newFakeStore(unsyncedProduct(1, "Stoneware mug", "25€"))
	store.updateErr = errors.New("connection refused")
	catalog := newFakeCatalog()
	engine := newTestEngine(store, catalog)

	result, err := engine.Run(context.Background(), Options{BatchSize: 10})
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, store.failMarks[1])
}
