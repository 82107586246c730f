package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/clubifyhq/checkout-go/internal/application/services"
	"github.com/clubifyhq/checkout-go/internal/domain/entities/flow"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/observability/logging"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/observability/performance"
	"github.com/clubifyhq/checkout-go/internal/presentation/http/middleware"
)

// FlowHandlers serves flow configuration and navigation endpoints.
type FlowHandlers struct {
	flowService *services.FlowService
	authService *services.AuthService
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

func NewFlowHandlers(flowService *services.FlowService, authService *services.AuthService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *FlowHandlers {
	return &FlowHandlers{
		flowService: flowService,
		authService: authService,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// CreateFlow handles POST /api/v1/flows (admin)
func (h *FlowHandlers) CreateFlow(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	var cfg flow.Config
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	created, err := h.flowService.CreateFlow(tenantCtx, &cfg)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// GetFlow handles GET /api/v1/flows/:id
func (h *FlowHandlers) GetFlow(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	cfg, err := h.flowService.GetFlow(tenantCtx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if cfg == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "flow not found"})
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// ListFlows handles GET /api/v1/flows
func (h *FlowHandlers) ListFlows(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	flows, err := h.flowService.ListFlows(tenantCtx)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"flows": flows, "count": len(flows)})
}

// UpdateFlow handles PUT /api/v1/flows/:id (admin)
func (h *FlowHandlers) UpdateFlow(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	var cfg flow.Config
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	cfg.ID = c.Param("id")

	if err := h.flowService.UpdateFlow(tenantCtx, &cfg); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated", "flowId": cfg.ID})
}

// DeleteFlow handles DELETE /api/v1/flows/:id (admin)
func (h *FlowHandlers) DeleteFlow(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	if err := h.flowService.DeleteFlow(tenantCtx, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

type startSessionRequest struct {
	FlowID  string `json:"flowId"`
	OfferID string `json:"offerId"`
	CartID  string `json:"cartId"`
}

// StartSession handles POST /api/v1/flows/sessions
func (h *FlowHandlers) StartSession(c *gin.Context) {
	start := time.Now()

	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	marker := h.perfTracker.StartOperation("http_flow_start_session", tenantCtx.TenantID)
	defer marker.Complete()

	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		marker.SetError(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	// A returning buyer carries a customer token from a previous checkout;
	// sessions started with one bypass steps their stored profile covers.
	customerID := ""
	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		token := strings.TrimPrefix(auth, "Bearer ")
		customerID, _ = h.authService.CustomerIDFromToken(token, tenantCtx)
	}

	session, err := h.flowService.StartSession(tenantCtx, req.FlowID, req.OfferID, req.CartID, customerID)
	if err != nil {
		marker.SetError(err)
		respondError(c, err)
		return
	}

	marker.SetSuccess(true)
	h.logger.Flow().Debug("Flow session started via API",
		"tenantId", tenantCtx.TenantID, "sessionId", session.ID, "flowId", session.FlowID,
		"duration", time.Since(start))
	c.JSON(http.StatusCreated, session)
}

// GetSession handles GET /api/v1/flows/sessions/:id
func (h *FlowHandlers) GetSession(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	session, err := h.flowService.GetSession(tenantCtx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if session == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.JSON(http.StatusOK, session)
}

type completeStepRequest struct {
	StepID string         `json:"stepId"`
	Data   map[string]any `json:"data"`
}

// CompleteStep handles POST /api/v1/flows/sessions/:id/steps
func (h *FlowHandlers) CompleteStep(c *gin.Context) {
	start := time.Now()

	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	marker := h.perfTracker.StartOperation("http_flow_complete_step", tenantCtx.TenantID)
	defer marker.Complete()

	var req completeStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		marker.SetError(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result, err := h.flowService.CompleteStep(tenantCtx, c.Param("id"), req.StepID, req.Data)
	if err != nil {
		marker.SetError(err)
		respondError(c, err)
		return
	}

	// Field validation failures are a normal part of step navigation, not an
	// error. The session stays where it was and the client repaints the form.
	if len(result.FieldErrors) > 0 {
		marker.SetSuccess(true)
		fieldErrors := make([]gin.H, 0, len(result.FieldErrors))
		for _, fe := range result.FieldErrors {
			fieldErrors = append(fieldErrors, gin.H{"field": fe.Field, "message": fe.Message})
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"session":     result.Session,
			"fieldErrors": fieldErrors,
		})
		return
	}

	marker.SetSuccess(true)
	h.logger.Flow().Debug("Flow step completed via API",
		"tenantId", tenantCtx.TenantID, "sessionId", result.Session.ID, "stepId", req.StepID,
		"duration", time.Since(start))
	c.JSON(http.StatusOK, gin.H{"session": result.Session})
}

// GetProgress handles GET /api/v1/flows/sessions/:id/progress
func (h *FlowHandlers) GetProgress(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	progress, err := h.flowService.Progress(tenantCtx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, progress)
}

// AbandonSession handles POST /api/v1/flows/sessions/:id/abandon
func (h *FlowHandlers) AbandonSession(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	if err := h.flowService.AbandonSession(tenantCtx, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "abandoned"})
}
