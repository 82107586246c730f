package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/clubifyhq/checkout-go/internal/application/services"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/observability/logging"
)

// TenantHandlers serves tenant provisioning and activation. These routes are
// public: provisioning happens before any tenant context exists.
type TenantHandlers struct {
	multiTenantService *services.MultiTenantService
	logger             *logging.ChanneledLogger
}

func NewTenantHandlers(multiTenantService *services.MultiTenantService, logger *logging.ChanneledLogger) *TenantHandlers {
	return &TenantHandlers{
		multiTenantService: multiTenantService,
		logger:             logger,
	}
}

// ProvisionTenant handles POST /api/v1/tenant/provision
func (h *TenantHandlers) ProvisionTenant(c *gin.Context) {
	start := time.Now()

	var req services.ProvisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.multiTenantService.ProvisionTenant(req); err != nil {
		respondError(c, err)
		return
	}

	h.logger.Tenant().Info("Tenant provisioned via API",
		"tenantId", req.TenantID, "duration", time.Since(start))
	c.JSON(http.StatusCreated, gin.H{
		"status":   "reserved",
		"tenantId": req.TenantID,
		"message":  "Check the admin email for the activation link",
	})
}

type activateTenantRequest struct {
	Token string `json:"token"`
}

// ActivateTenant handles POST /api/v1/tenant/activate
func (h *TenantHandlers) ActivateTenant(c *gin.Context) {
	var req activateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
		return
	}

	if err := h.multiTenantService.ActivateTenant(req.Token); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "active"})
}

// GetCapacity handles GET /api/v1/tenant/capacity
func (h *TenantHandlers) GetCapacity(c *gin.Context) {
	capacity, err := h.multiTenantService.GetCapacity()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, capacity)
}
