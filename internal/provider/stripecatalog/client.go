// Package stripecatalog talks to the Stripe API: the remote product
// catalog mirrored by the sync engine, and checkout session creation
// for card payments.
package stripecatalog

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"storefront-service/internal/models"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"
)

type Client struct {
	api *client.API
}

// New creates a Stripe-backed catalog client
func New(apiKey string) *Client {
	api := &client.API{}
	api.Init(apiKey, nil)
	return &Client{api: api}
}

// FindProductByTitle searches the remote catalog for an active product
// with exactly this name. Returns "" when none exists.
func (c *Client) FindProductByTitle(ctx context.Context, title string) (string, error) {
	query := fmt.Sprintf("active:'true' AND name:'%s'", strings.ReplaceAll(title, "'", `\'`))
	params := &stripe.ProductSearchParams{
		SearchParams: stripe.SearchParams{
			Context: ctx,
			Query:   query,
		},
	}

	iter := c.api.Products.Search(params)
	for iter.Next() {
		product := iter.Product()
		if product.Name == title {
			return product.ID, nil
		}
	}
	if err := iter.Err(); err != nil {
		return "", fmt.Errorf("product search failed: %w", err)
	}
	return "", nil
}

// CreateProduct creates a remote product carrying the local product id
// in its metadata as a back-reference.
func (c *Client) CreateProduct(ctx context.Context, product *models.Product) (string, error) {
	params := &stripe.ProductParams{
		Name:        stripe.String(product.Title),
		Description: stripe.String(product.Description),
	}
	params.Context = ctx
	params.AddMetadata("local_product_id", strconv.FormatInt(product.ID, 10))
	if product.Category != "" {
		params.AddMetadata("category", product.Category)
	}

	created, err := c.api.Products.New(params)
	if err != nil {
		return "", fmt.Errorf("product creation failed: %w", err)
	}
	return created.ID, nil
}

// FindPriceByAmount lists active prices on a remote product and
// returns one whose amount exactly equals amountCents. Returns ""
// when none matches.
func (c *Client) FindPriceByAmount(ctx context.Context, stripeProductID string, amountCents int64, currency string) (string, error) {
	params := &stripe.PriceListParams{
		Product:  stripe.String(stripeProductID),
		Active:   stripe.Bool(true),
		Currency: stripe.String(strings.ToLower(currency)),
	}
	params.Context = ctx

	iter := c.api.Prices.List(params)
	for iter.Next() {
		price := iter.Price()
		if price.UnitAmount == amountCents {
			return price.ID, nil
		}
	}
	if err := iter.Err(); err != nil {
		return "", fmt.Errorf("price list failed: %w", err)
	}
	return "", nil
}

// CreatePrice creates a remote price object for a product
func (c *Client) CreatePrice(ctx context.Context, stripeProductID string, amountCents int64, currency string) (string, error) {
	params := &stripe.PriceParams{
		Product:    stripe.String(stripeProductID),
		UnitAmount: stripe.Int64(amountCents),
		Currency:   stripe.String(strings.ToLower(currency)),
	}
	params.Context = ctx

	created, err := c.api.Prices.New(params)
	if err != nil {
		return "", fmt.Errorf("price creation failed: %w", err)
	}
	return created.ID, nil
}

// CheckoutItem is one line item of a checkout session request
type CheckoutItem struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
	Currency    string `json:"currency" binding:"required"`
	Amount      int64  `json:"amount" binding:"required"`
	Quantity    int64  `json:"quantity" binding:"required,min=1"`
}

// CreateCheckoutSession creates a Stripe-hosted checkout session and
// returns its id and redirect URL.
func (c *Client) CreateCheckoutSession(ctx context.Context, items []CheckoutItem, successURL, cancelURL string) (sessionID, url string, err error) {
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(items))
	for _, item := range items {
		productData := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(item.Name),
		}
		if item.Description != "" {
			productData.Description = stripe.String(item.Description)
		}
		if item.Image != "" {
			productData.Images = stripe.StringSlice([]string{item.Image})
		}

		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(strings.ToLower(item.Currency)),
				UnitAmount:  stripe.Int64(item.Amount),
				ProductData: productData,
			},
			Quantity: stripe.Int64(item.Quantity),
		})
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(successURL),
		CancelURL:  stripe.String(cancelURL),
		LineItems:  lineItems,
	}
	params.Context = ctx

	session, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return "", "", fmt.Errorf("checkout session creation failed: %w", err)
	}
	return session.ID, session.URL, nil
}
