package maksekeskus

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPaymentMethods(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		user, _, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "shop-1", user)
		assert.Equal(t, "45.00", r.URL.Query().Get("amount"))

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"banklinks": []map[string]interface{}{
				{"name": "swedbank", "display_name": "Swedbank", "countries": []string{"ee"}, "min_amount": 0.01, "max_amount": 15000.0},
			},
			"cards": []map[string]interface{}{
				{"name": "card", "display_name": "Card payment", "countries": []string{"ee", "lv", "lt"}, "min_amount": 0.5, "max_amount": 10000.0},
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "shop-1", "secret", 5*time.Second)

	methods, err := client.GetPaymentMethods(context.Background(), 45.00, "EUR")
	require.NoError(t, err)
	require.Len(t, methods, 2)
	assert.Equal(t, "swedbank", methods[0].Method)
	assert.Equal(t, "Swedbank", methods[0].Name)
	assert.Equal(t, "card", methods[1].Method)
}

func TestCreateTransaction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req createTransactionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "45.00", req.Transaction.Amount)
		assert.Equal(t, "EUR", req.Transaction.Currency)

		md, err := DecodeMerchantData(req.Transaction.MerchantData)
		require.NoError(t, err)
		assert.Equal(t, int64(7), md.OrderID)
		assert.NotEmpty(t, md.Reference)

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id": "tx-123",
			"payment_methods": map[string]interface{}{
				"banklinks": []map[string]string{
					{"name": "swedbank", "url": "https://pay.example/swedbank"},
					{"name": "lhv", "url": "https://pay.example/lhv"},
				},
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "shop-1", "secret", 5*time.Second)

	tx, err := client.CreateTransaction(context.Background(), 7, 45.00, "EUR", "mari@example.com", "lhv")
	require.NoError(t, err)
	assert.Equal(t, "tx-123", tx.ID)
	assert.Equal(t, "https://pay.example/lhv", tx.PaymentURL)
}

func TestCreateTransactionUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "shop not found"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "shop-1", "secret", 5*time.Second)

	_, err := client.CreateTransaction(context.Background(), 7, 45.00, "EUR", "mari@example.com", "lhv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shop not found")
}

func TestMerchantDataValidation(t *testing.T) {
	_, err := EncodeMerchantData(MerchantData{})
	assert.ErrorIs(t, err, ErrMissingOrderReference)

	encoded, err := EncodeMerchantData(MerchantData{OrderID: 42})
	require.NoError(t, err)

	md, err := DecodeMerchantData(encoded)
	require.NoError(t, err)
	assert.Equal(t, int64(42), md.OrderID)

	_, err = DecodeMerchantData("")
	assert.ErrorIs(t, err, ErrMissingOrderReference)

	_, err = DecodeMerchantData(`{"reference":"abc"}`)
	assert.ErrorIs(t, err, ErrMissingOrderReference)

	_, err = DecodeMerchantData("{not json")
	assert.Error(t, err)
}

func TestParseNotification(t *testing.T) {
	n, err := ParseNotification(`{"shop":"shop-1","transaction":"tx-9","amount":"45.00","currency":"EUR","status":"COMPLETED","merchant_data":"{\"order_id\":7}"}`)
	require.NoError(t, err)
	assert.Equal(t, "tx-9", n.Transaction)
	assert.Equal(t, StatusCompleted, n.Status)

	_, err = ParseNotification(`{"status":"COMPLETED"}`)
	assert.Error(t, err, "missing transaction id must be rejected")

	_, err = ParseNotification("not-json")
	assert.Error(t, err)
}
