package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/clubifyhq/checkout-go/internal/application/services"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/observability/logging"
	"github.com/clubifyhq/checkout-go/internal/presentation/http/middleware"
)

// WebhookHandlers serves outbound webhook endpoint management (admin).
type WebhookHandlers struct {
	webhookService *services.WebhookService
	logger         *logging.ChanneledLogger
}

func NewWebhookHandlers(webhookService *services.WebhookService, logger *logging.ChanneledLogger) *WebhookHandlers {
	return &WebhookHandlers{
		webhookService: webhookService,
		logger:         logger,
	}
}

type registerEndpointRequest struct {
	URL    string   `json:"url"`
	Events []string `json:"events"`
}

// RegisterEndpoint handles POST /api/v1/webhooks
func (h *WebhookHandlers) RegisterEndpoint(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	var req registerEndpointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	endpoint, err := h.webhookService.RegisterEndpoint(tenantCtx, req.URL, req.Events)
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.Webhook().Info("Webhook endpoint registered",
		"tenantId", tenantCtx.TenantID, "endpointId", endpoint.ID, "url", endpoint.URL)
	c.JSON(http.StatusCreated, endpoint)
}

// ListEndpoints handles GET /api/v1/webhooks
func (h *WebhookHandlers) ListEndpoints(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	endpoints, err := h.webhookService.ListEndpoints(tenantCtx)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"endpoints": endpoints, "count": len(endpoints)})
}

// DeleteEndpoint handles DELETE /api/v1/webhooks/:id
func (h *WebhookHandlers) DeleteEndpoint(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	if err := h.webhookService.DeleteEndpoint(tenantCtx, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// ListDeliveries handles GET /api/v1/webhooks/:id/deliveries
func (h *WebhookHandlers) ListDeliveries(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 500"})
			return
		}
		limit = parsed
	}

	deliveries, err := h.webhookService.Deliveries(tenantCtx, c.Param("id"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deliveries": deliveries, "count": len(deliveries)})
}
