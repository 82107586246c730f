package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/clubifyhq/checkout-go/internal/application/services"
	"github.com/clubifyhq/checkout-go/internal/domain/entities/checkout"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/observability/logging"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/observability/performance"
	"github.com/clubifyhq/checkout-go/internal/presentation/http/middleware"
)

// CartHandlers serves the cart lifecycle endpoints.
type CartHandlers struct {
	cartService *services.CartService
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

func NewCartHandlers(cartService *services.CartService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *CartHandlers {
	return &CartHandlers{
		cartService: cartService,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

type createCartRequest struct {
	SessionID  string `json:"sessionId"`
	OfferID    string `json:"offerId"`
	Currency   string `json:"currency"`
	Permissive bool   `json:"permissive"`
}

// CreateCart handles POST /api/v1/carts
func (h *CartHandlers) CreateCart(c *gin.Context) {
	start := time.Now()

	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	marker := h.perfTracker.StartOperation("http_cart_create", tenantCtx.TenantID)
	defer marker.Complete()

	var req createCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		marker.SetError(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.SessionID == "" {
		req.SessionID = c.GetHeader("X-Checkout-Session-ID")
	}

	cart, err := h.cartService.Create(tenantCtx, req.SessionID, req.OfferID, req.Currency, req.Permissive)
	if err != nil {
		marker.SetError(err)
		respondError(c, err)
		return
	}

	marker.SetSuccess(true)
	h.logger.Cart().Debug("Cart created via API",
		"tenantId", tenantCtx.TenantID, "cartId", cart.ID, "duration", time.Since(start))
	c.JSON(http.StatusCreated, cart)
}

// GetCart handles GET /api/v1/carts/:id
func (h *CartHandlers) GetCart(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	cart, err := h.cartService.Get(tenantCtx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if cart == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "cart not found"})
		return
	}
	c.JSON(http.StatusOK, cart)
}

// GetCartBySession handles GET /api/v1/carts/session/:sessionId
func (h *CartHandlers) GetCartBySession(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	cart, err := h.cartService.GetBySession(tenantCtx, c.Param("sessionId"))
	if err != nil {
		respondError(c, err)
		return
	}
	if cart == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "cart not found"})
		return
	}
	c.JSON(http.StatusOK, cart)
}

// AddItem handles POST /api/v1/carts/:id/items
func (h *CartHandlers) AddItem(c *gin.Context) {
	start := time.Now()

	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	marker := h.perfTracker.StartOperation("http_cart_add_item", tenantCtx.TenantID)
	defer marker.Complete()

	var req services.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		marker.SetError(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	cart, err := h.cartService.AddItem(tenantCtx, c.Param("id"), &req)
	if err != nil {
		marker.SetError(err)
		respondError(c, err)
		return
	}

	marker.SetSuccess(true)
	h.logger.Cart().Debug("Item added via API",
		"tenantId", tenantCtx.TenantID, "cartId", cart.ID, "productId", req.ProductID,
		"duration", time.Since(start))
	c.JSON(http.StatusOK, cart)
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// UpdateItemQuantity handles PUT /api/v1/carts/:id/items/:itemId
func (h *CartHandlers) UpdateItemQuantity(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	var req updateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	cart, err := h.cartService.UpdateItemQuantity(tenantCtx, c.Param("id"), c.Param("itemId"), req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

// RemoveItem handles DELETE /api/v1/carts/:id/items/:itemId
func (h *CartHandlers) RemoveItem(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	cart, err := h.cartService.RemoveItem(tenantCtx, c.Param("id"), c.Param("itemId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

// ApplyCoupon handles POST /api/v1/carts/:id/coupon
func (h *CartHandlers) ApplyCoupon(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	var coupon checkout.Coupon
	if err := c.ShouldBindJSON(&coupon); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	cart, err := h.cartService.ApplyCoupon(tenantCtx, c.Param("id"), &coupon)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

// RemoveCoupon handles DELETE /api/v1/carts/:id/coupon
func (h *CartHandlers) RemoveCoupon(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	cart, err := h.cartService.RemoveCoupon(tenantCtx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

type setShippingRequest struct {
	Cost            float64           `json:"cost"`
	ShippingAddress *checkout.Address `json:"shippingAddress"`
	BillingAddress  *checkout.Address `json:"billingAddress"`
}

// SetShipping handles PUT /api/v1/carts/:id/shipping
func (h *CartHandlers) SetShipping(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	var req setShippingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	cart, err := h.cartService.SetShipping(tenantCtx, c.Param("id"), req.Cost, req.ShippingAddress, req.BillingAddress)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

// GetTotals handles GET /api/v1/carts/:id/totals
func (h *CartHandlers) GetTotals(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	totals, err := h.cartService.Totals(tenantCtx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, totals)
}
