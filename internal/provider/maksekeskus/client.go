// Package maksekeskus wraps the Maksekeskus payment API: method
// listing, transaction creation and webhook payload types.
package maksekeskus

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// Provider payment statuses as delivered in webhook notifications
const (
	StatusCreated      = "CREATED"
	StatusPending      = "PENDING"
	StatusCancelled    = "CANCELLED"
	StatusExpired      = "EXPIRED"
	StatusApproved     = "APPROVED"
	StatusCompleted    = "COMPLETED"
	StatusPartRefunded = "PART_REFUNDED"
	StatusRefunded     = "REFUNDED"
)

// ErrMissingOrderReference is returned when merchant data lacks the
// order correlation id.
var ErrMissingOrderReference = errors.New("merchant data is missing the order reference")

type Client struct {
	httpClient *http.Client
	baseURL    string
	shopID     string
	secretKey  string
}

// NewClient creates a Maksekeskus API client. requestTimeout bounds
// every outgoing call; transaction creation in particular must not
// hang past it.
func NewClient(baseURL, shopID, secretKey string, requestTimeout time.Duration) *Client {
	if requestTimeout <= 0 {
		requestTimeout = 15 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		baseURL:    baseURL,
		shopID:     shopID,
		secretKey:  secretKey,
	}
}

// SecretKey exposes the shared secret for webhook MAC verification
func (c *Client) SecretKey() string {
	return c.secretKey
}

// PaymentMethod is one method offered for a given amount
type PaymentMethod struct {
	Method    string   `json:"method"`
	Name      string   `json:"name"`
	Countries []string `json:"countries"`
	MinAmount float64  `json:"min_amount"`
	MaxAmount float64  `json:"max_amount"`
}

type methodsResponse struct {
	Banklinks []struct {
		Name        string   `json:"name"`
		DisplayName string   `json:"display_name"`
		Countries   []string `json:"countries"`
		MinAmount   float64  `json:"min_amount"`
		MaxAmount   float64  `json:"max_amount"`
	} `json:"banklinks"`
	Cards []struct {
		Name        string   `json:"name"`
		DisplayName string   `json:"display_name"`
		Countries   []string `json:"countries"`
		MinAmount   float64  `json:"min_amount"`
		MaxAmount   float64  `json:"max_amount"`
	} `json:"cards"`
}

// GetPaymentMethods lists methods available for the given amount
func (c *Client) GetPaymentMethods(ctx context.Context, amount float64, currency string) ([]PaymentMethod, error) {
	endpoint := fmt.Sprintf("%s/methods?amount=%.2f&currency=%s", c.baseURL, amount, url.QueryEscape(currency))

	var resp methodsResponse
	if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch payment methods: %w", err)
	}

	methods := make([]PaymentMethod, 0, len(resp.Banklinks)+len(resp.Cards))
	for _, b := range resp.Banklinks {
		methods = append(methods, PaymentMethod{
			Method:    b.Name,
			Name:      b.DisplayName,
			Countries: b.Countries,
			MinAmount: b.MinAmount,
			MaxAmount: b.MaxAmount,
		})
	}
	for _, card := range resp.Cards {
		methods = append(methods, PaymentMethod{
			Method:    card.Name,
			Name:      card.DisplayName,
			Countries: card.Countries,
			MinAmount: card.MinAmount,
			MaxAmount: card.MaxAmount,
		})
	}
	return methods, nil
}

// MerchantData is the typed correlation payload carried through the
// provider on every transaction. OrderID is required at both creation
// and webhook consumption.
type MerchantData struct {
	OrderID   int64  `json:"order_id"`
	Reference string `json:"reference"`
}

// EncodeMerchantData validates and serializes merchant data for
// transaction creation. A missing Reference is filled with a fresh
// UUID.
func EncodeMerchantData(md MerchantData) (string, error) {
	if md.OrderID <= 0 {
		return "", ErrMissingOrderReference
	}
	if md.Reference == "" {
		md.Reference = uuid.New().String()
	}
	data, err := json.Marshal(md)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeMerchantData parses and validates merchant data from a webhook
// notification. Absence of the order id is a hard validation error,
// never a silent zero.
func DecodeMerchantData(raw string) (MerchantData, error) {
	var md MerchantData
	if raw == "" {
		return md, ErrMissingOrderReference
	}
	if err := json.Unmarshal([]byte(raw), &md); err != nil {
		return md, fmt.Errorf("malformed merchant data: %w", err)
	}
	if md.OrderID <= 0 {
		return md, ErrMissingOrderReference
	}
	return md, nil
}

// Transaction is the provider's record of a created payment
type Transaction struct {
	ID          string `json:"id"`
	PaymentURL  string `json:"payment_url"`
	RedirectURL string `json:"redirect_url"`
}

type createTransactionRequest struct {
	Transaction struct {
		Amount       string `json:"amount"`
		Currency     string `json:"currency"`
		Reference    string `json:"reference"`
		MerchantData string `json:"merchant_data"`
	} `json:"transaction"`
	Customer struct {
		Email   string `json:"email"`
		Country string `json:"country"`
		Locale  string `json:"locale"`
	} `json:"customer"`
}

type createTransactionResponse struct {
	ID             string `json:"id"`
	PaymentMethods struct {
		Banklinks []struct {
			Name string `json:"name"`
			URL  string `json:"url"`
		} `json:"banklinks"`
	} `json:"payment_methods"`
}

// CreateTransaction creates a provider transaction for an order and
// returns the payment URL for the selected method.
func (c *Client) CreateTransaction(ctx context.Context, orderID int64, amount float64, currency, email, method string) (*Transaction, error) {
	merchantData, err := EncodeMerchantData(MerchantData{OrderID: orderID})
	if err != nil {
		return nil, err
	}

	var req createTransactionRequest
	req.Transaction.Amount = fmt.Sprintf("%.2f", amount)
	req.Transaction.Currency = currency
	req.Transaction.Reference = fmt.Sprintf("order-%d", orderID)
	req.Transaction.MerchantData = merchantData
	req.Customer.Email = email
	req.Customer.Country = "ee"
	req.Customer.Locale = "et"

	var resp createTransactionResponse
	if err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/transactions", &req, &resp); err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	tx := &Transaction{ID: resp.ID}
	for _, link := range resp.PaymentMethods.Banklinks {
		if link.Name == method {
			tx.PaymentURL = link.URL
			tx.RedirectURL = link.URL
			break
		}
	}
	if tx.PaymentURL == "" && len(resp.PaymentMethods.Banklinks) > 0 {
		tx.PaymentURL = resp.PaymentMethods.Banklinks[0].URL
		tx.RedirectURL = tx.PaymentURL
	}
	return tx, nil
}

// PaymentNotification is the parsed webhook payload
type PaymentNotification struct {
	Shop          string `json:"shop"`
	Transaction   string `json:"transaction"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	Status        string `json:"status"`
	PaymentMethod string `json:"payment_method"`
	MerchantData  string `json:"merchant_data"`
}

// ParseNotification decodes a webhook "json" form field
func ParseNotification(payload string) (*PaymentNotification, error) {
	var n PaymentNotification
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		return nil, fmt.Errorf("malformed notification payload: %w", err)
	}
	if n.Transaction == "" {
		return nil, errors.New("notification is missing the transaction id")
	}
	return &n, nil
}

func (c *Client) doJSON(ctx context.Context, method, endpoint string, body, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.shopID, c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Message != "" {
			return fmt.Errorf("provider returned %d: %s", resp.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("provider returned %d", resp.StatusCode)
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
