package api

import (
	"net/http"
	"strconv"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/provider/maksekeskus"
	"storefront-service/internal/provider/stripecatalog"
	"storefront-service/internal/reconcile"
	"storefront-service/internal/shipping"
	"storefront-service/internal/store"
	"storefront-service/internal/sync"
	"storefront-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Handler contains HTTP handlers
type Handler struct {
	store      *store.Store
	payments   *maksekeskus.Client
	stripe     *stripecatalog.Client
	syncEngine *sync.Engine
	reconciler *reconcile.Reconciler
	terminals  *shipping.Directory
	syncOpts   sync.Options
}

// NewHandler creates a new HTTP handler
func NewHandler(
	store *store.Store,
	payments *maksekeskus.Client,
	stripe *stripecatalog.Client,
	syncEngine *sync.Engine,
	reconciler *reconcile.Reconciler,
	terminals *shipping.Directory,
	defaultBatchSize int,
) *Handler {
	return &Handler{
		store:      store,
		payments:   payments,
		stripe:     stripe,
		syncEngine: syncEngine,
		reconciler: reconciler,
		terminals:  terminals,
		syncOpts:   sync.Options{BatchSize: defaultBatchSize},
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/payment-methods", h.paymentMethods)
		apiGroup.POST("/create-payment", h.createPayment)
		apiGroup.POST("/checkout-session", h.checkoutSession)
		apiGroup.POST("/sync-products", h.syncProducts)
		apiGroup.POST("/webhooks/maksekeskus", h.paymentWebhook)
		apiGroup.GET("/terminals", h.listTerminals)
	}
}

// corsMiddleware answers preflight requests and attaches permissive
// CORS headers to everything else.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// paymentMethods lists provider payment methods for an amount
func (h *Handler) paymentMethods(c *gin.Context) {
	amount, err := strconv.ParseFloat(c.Query("amount"), 64)
	if err != nil || amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "amount must be a positive number",
		})
		return
	}

	methods, err := h.payments.GetPaymentMethods(c.Request.Context(), amount, "EUR")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"methods": methods,
	})
}

// OrderItemRequest is one checkout line item
type OrderItemRequest struct {
	ProductID int64   `json:"product_id" binding:"required"`
	Title     string  `json:"title" binding:"required"`
	Quantity  int     `json:"quantity" binding:"required,min=1"`
	UnitPrice float64 `json:"unit_price" binding:"required"`
}

// OrderDataRequest carries the checkout form contents
type OrderDataRequest struct {
	CustomerName  string             `json:"customer_name" binding:"required"`
	CustomerEmail string             `json:"customer_email" binding:"required,email"`
	CustomerPhone string             `json:"customer_phone"`
	ShippingAddr  string             `json:"shipping_addr"`
	ShippingCity  string             `json:"shipping_city"`
	ShippingZip   string             `json:"shipping_zip"`
	TotalAmount   float64            `json:"total_amount" binding:"required"`
	Currency      string             `json:"currency"`
	Notes         string             `json:"notes"`
	UserID        *int64             `json:"user_id"`
	Items         []OrderItemRequest `json:"items" binding:"required,min=1"`
}

type createPaymentRequest struct {
	OrderData     *OrderDataRequest `json:"orderData"`
	PaymentMethod string            `json:"paymentMethod"`
}

// createPayment persists the order and creates a provider transaction
// for it
func (h *Handler) createPayment(c *gin.Context) {
	var req createPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.OrderData == nil || req.PaymentMethod == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "orderData and paymentMethod are required",
		})
		return
	}

	currency := req.OrderData.Currency
	if currency == "" {
		currency = "EUR"
	}

	order := &models.Order{
		CustomerName:  req.OrderData.CustomerName,
		CustomerEmail: req.OrderData.CustomerEmail,
		CustomerPhone: req.OrderData.CustomerPhone,
		ShippingAddr:  req.OrderData.ShippingAddr,
		ShippingCity:  req.OrderData.ShippingCity,
		ShippingZip:   req.OrderData.ShippingZip,
		TotalAmount:   req.OrderData.TotalAmount,
		Currency:      currency,
		Status:        models.OrderStatusPending,
		Notes:         req.OrderData.Notes,
		UserID:        req.OrderData.UserID,
	}

	items := make([]models.OrderItem, 0, len(req.OrderData.Items))
	for _, item := range req.OrderData.Items {
		items = append(items, models.OrderItem{
			ProductID: item.ProductID,
			Title:     item.Title,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}

	if err := h.store.CreateOrder(c.Request.Context(), order, items); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "failed to create order",
		})
		return
	}

	tx, err := h.payments.CreateTransaction(c.Request.Context(),
		order.ID, order.TotalAmount, order.Currency, order.CustomerEmail, req.PaymentMethod)
	if err != nil {
		util.PaymentCreationsTotal.WithLabelValues("error").Inc()
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	util.PaymentCreationsTotal.WithLabelValues("ok").Inc()
	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"transaction_id": tx.ID,
		"payment_url":    tx.PaymentURL,
		"redirect_url":   tx.RedirectURL,
	})
}

type checkoutSessionRequest struct {
	Items      []stripecatalog.CheckoutItem `json:"items" binding:"required,min=1"`
	SuccessURL string                       `json:"success_url" binding:"required"`
	CancelURL  string                       `json:"cancel_url" binding:"required"`
}

// checkoutSession creates a Stripe-hosted checkout session
func (h *Handler) checkoutSession(c *gin.Context) {
	var req checkoutSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "items, success_url and cancel_url are required",
		})
		return
	}

	sessionID, url, err := h.stripe.CreateCheckoutSession(c.Request.Context(), req.Items, req.SuccessURL, req.CancelURL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sessionId": sessionID,
		"url":       url,
	})
}

type syncRequest struct {
	DryRun      bool `json:"dryRun"`
	BatchSize   int  `json:"batchSize"`
	ForceResync bool `json:"forceResync"`
}

// syncProducts triggers a catalog synchronization run
func (h *Handler) syncProducts(c *gin.Context) {
	var req syncRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "invalid request body",
		})
		return
	}

	opts := sync.Options{
		DryRun:      req.DryRun,
		ForceResync: req.ForceResync,
		BatchSize:   req.BatchSize,
	}
	if opts.BatchSize < 1 {
		opts.BatchSize = h.syncOpts.BatchSize
	}

	result, err := h.syncEngine.Run(c.Request.Context(), opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// paymentWebhook receives provider payment notifications. The
// response is HTTP 200 no matter what: a non-2xx answer would trigger
// the provider's retry storm for notifications this system may never
// process successfully. Error detail rides along for provider logs.
func (h *Handler) paymentWebhook(c *gin.Context) {
	payload := c.PostForm("json")
	mac := c.PostForm("mac")

	outcome, err := h.reconciler.ProcessNotification(c.Request.Context(), payload, mac)
	if err != nil {
		util.GetLogger().Error("Webhook processing failed",
			zap.Error(err),
			zap.String("mac_present", strconv.FormatBool(mac != "")))
		c.JSON(http.StatusOK, gin.H{
			"status": "OK",
			"error":  err.Error(),
		})
		return
	}

	resp := gin.H{"status": "OK"}
	if outcome != nil && outcome.Duplicate {
		resp["duplicate"] = true
	}
	c.JSON(http.StatusOK, resp)
}

// listTerminals serves the cached parcel-locker directory
func (h *Handler) listTerminals(c *gin.Context) {
	terminals, err := h.terminals.Terminals(c.Request.Context(), time.Now(), c.Query("carrier"))
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"terminals": terminals,
	})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
