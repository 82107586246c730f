package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/clubifyhq/checkout-go/internal/application/services"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/observability/logging"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/observability/performance"
	"github.com/clubifyhq/checkout-go/internal/presentation/http/middleware"
)

// OrderHandlers serves checkout, payment confirmation and refunds.
type OrderHandlers struct {
	orderService   *services.OrderService
	webhookService *services.WebhookService
	authService    *services.AuthService
	logger         *logging.ChanneledLogger
	perfTracker    *performance.Tracker
}

func NewOrderHandlers(orderService *services.OrderService, webhookService *services.WebhookService, authService *services.AuthService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *OrderHandlers {
	return &OrderHandlers{
		orderService:   orderService,
		webhookService: webhookService,
		authService:    authService,
		logger:         logger,
		perfTracker:    perfTracker,
	}
}

// Checkout handles POST /api/v1/checkout
func (h *OrderHandlers) Checkout(c *gin.Context) {
	start := time.Now()

	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	marker := h.perfTracker.StartOperation("http_checkout", tenantCtx.TenantID)
	defer marker.Complete()

	var req services.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		marker.SetError(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	// A returning buyer carries a customer token from a previous checkout;
	// the decrypted id attaches the order to their profile.
	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		token := strings.TrimPrefix(auth, "Bearer ")
		if customerID, ok := h.authService.CustomerIDFromToken(token, tenantCtx); ok {
			req.Customer.ID = customerID
		}
	}

	order, err := h.orderService.Checkout(c.Request.Context(), tenantCtx, &req)
	if err != nil {
		marker.SetError(err)
		respondError(c, err)
		return
	}

	marker.SetSuccess(true)
	h.logger.Order().Info("Checkout completed via API",
		"tenantId", tenantCtx.TenantID, "orderId", order.ID, "status", order.Status,
		"duration", time.Since(start))
	c.JSON(http.StatusCreated, order)
}

// GetOrder handles GET /api/v1/orders/:id
func (h *OrderHandlers) GetOrder(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	order, err := h.orderService.Get(tenantCtx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if order == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}
	c.JSON(http.StatusOK, order)
}

// ListOrders handles GET /api/v1/orders (admin)
// Query params: from, to (RFC 3339). Defaults to the trailing 7 days.
func (h *OrderHandlers) ListOrders(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	to := time.Now().UTC()
	from := to.AddDate(0, 0, -7)
	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'from' timestamp, expected RFC 3339"})
			return
		}
		from = parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'to' timestamp, expected RFC 3339"})
			return
		}
		to = parsed
	}

	orders, err := h.orderService.ListByPeriod(tenantCtx, from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "count": len(orders)})
}

type paymentNotification struct {
	OrderID      string `json:"orderId"`
	GatewayTxnID string `json:"gatewayTxnId"`
	Status       string `json:"status"`
}

// ConfirmPayment handles POST /api/v1/orders/payment-notification — the
// gateway's asynchronous callback for pix and boleto settlements. The body
// must carry a valid HMAC signature computed with the tenant webhook secret.
func (h *OrderHandlers) ConfirmPayment(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	signature := c.GetHeader("X-Clubify-Signature")
	if !h.webhookService.VerifyInboundSignature(tenantCtx, body, signature) {
		h.logger.Webhook().Warn("Payment notification with invalid signature rejected",
			"tenantId", tenantCtx.TenantID, "remoteAddr", c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	var notification paymentNotification
	if err := json.Unmarshal(body, &notification); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	approved := notification.Status == "approved"
	order, err := h.orderService.ConfirmPayment(tenantCtx, notification.OrderID, notification.GatewayTxnID, approved)
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.Order().Info("Payment notification processed",
		"tenantId", tenantCtx.TenantID, "orderId", order.ID, "approved", approved)
	c.JSON(http.StatusOK, gin.H{"status": "processed", "orderStatus": order.Status})
}

// RefundOrder handles POST /api/v1/orders/:id/refund (admin)
func (h *OrderHandlers) RefundOrder(c *gin.Context) {
	start := time.Now()

	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	marker := h.perfTracker.StartOperation("http_order_refund", tenantCtx.TenantID)
	defer marker.Complete()

	order, err := h.orderService.Refund(c.Request.Context(), tenantCtx, c.Param("id"))
	if err != nil {
		marker.SetError(err)
		respondError(c, err)
		return
	}

	marker.SetSuccess(true)
	h.logger.Order().Info("Order refunded via API",
		"tenantId", tenantCtx.TenantID, "orderId", order.ID, "duration", time.Since(start))
	c.JSON(http.StatusOK, order)
}
