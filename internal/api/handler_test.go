package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"storefront-service/internal/models"
	"storefront-service/internal/reconcile"
	"storefront-service/internal/signature"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPaymentStore struct {
	payments map[string]*models.OrderPayment
}

func (s *stubPaymentStore) FindPaymentByTransaction(ctx context.Context, transactionID string) (*models.OrderPayment, error) {
	return s.payments[transactionID], nil
}

func (s *stubPaymentStore) UpsertPayment(ctx context.Context, payment *models.OrderPayment) error {
	if s.payments == nil {
		s.payments = map[string]*models.OrderPayment{}
	}
	s.payments[payment.TransactionID] = payment
	return nil
}

func (s *stubPaymentStore) SetOrderStatus(ctx context.Context, orderID int64, status string) error {
	return nil
}

func (s *stubPaymentStore) GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	return nil, nil
}

func (s *stubPaymentStore) SetProductAvailability(ctx context.Context, productID int64, available bool) error {
	return nil
}

func testRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reconciler := reconcile.NewReconciler(&stubPaymentStore{}, nil, nil, "webhook-secret")
	handler := NewHandler(nil, nil, nil, nil, reconciler, nil, 10)

	router := gin.New()
	handler.SetupRoutes(router)
	return router
}

func TestPaymentMethodsRejectsBadAmount(t *testing.T) {
	router := testRouter(t)

	for _, amount := range []string{"", "0", "-5", "abc"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/payment-methods?amount="+amount, nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code, "amount=%q", amount)
		assert.Contains(t, w.Body.String(), `"success":false`)
	}
}

func TestWebhookAlwaysAcknowledges(t *testing.T) {
	router := testRouter(t)

	payload := `{"shop":"s","transaction":"tx-1","amount":"45.00","currency":"EUR","status":"COMPLETED","merchant_data":"{\"order_id\":7}"}`

	// valid MAC
	form := url.Values{}
	form.Set("json", payload)
	form.Set("mac", signature.Compute(payload, "webhook-secret"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/maksekeskus", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"OK"`)

	// invalid MAC: still 200, with error detail embedded
	form.Set("mac", "FFFF")
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/webhooks/maksekeskus", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, "a rejected signature must not trigger provider retries")
	assert.Contains(t, w.Body.String(), `"status":"OK"`)
	assert.Contains(t, w.Body.String(), "signature")
}

func TestCORSPreflight(t *testing.T) {
	router := testRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/payment-methods", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMethodNotAllowed(t *testing.T) {
	router := testRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/create-payment", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestCreatePaymentValidation(t *testing.T) {
	router := testRouter(t)

	for _, body := range []string{
		`{}`,
		`{"paymentMethod":"swedbank"}`,
		`{"orderData":{"customer_name":"Mari","customer_email":"mari@example.com","total_amount":45,"items":[{"product_id":1,"title":"Mug","quantity":1,"unit_price":45}]}}`,
	} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/create-payment", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code, "body=%s", body)
	}
}

func TestCheckoutSessionValidation(t *testing.T) {
	router := testRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/checkout-session", strings.NewReader(`{"items":[]}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
