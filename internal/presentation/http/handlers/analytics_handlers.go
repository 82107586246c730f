package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/clubifyhq/checkout-go/internal/application/services"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/observability/logging"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/observability/performance"
	"github.com/clubifyhq/checkout-go/internal/presentation/http/middleware"
)

// AnalyticsHandlers serves flow analytics reports with ETag support so
// dashboards polling the endpoint only pay for changed data.
type AnalyticsHandlers struct {
	analyticsService *services.FlowAnalyticsService
	logger           *logging.ChanneledLogger
	perfTracker      *performance.Tracker
}

func NewAnalyticsHandlers(analyticsService *services.FlowAnalyticsService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *AnalyticsHandlers {
	return &AnalyticsHandlers{
		analyticsService: analyticsService,
		logger:           logger,
		perfTracker:      perfTracker,
	}
}

// GetFlowAnalytics handles GET /api/v1/analytics/flows/:id
// Query params: from, to (RFC 3339). Defaults to the trailing 30 days.
func (h *AnalyticsHandlers) GetFlowAnalytics(c *gin.Context) {
	start := time.Now()

	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	marker := h.perfTracker.StartOperation("http_flow_analytics", tenantCtx.TenantID)
	defer marker.Complete()

	to := time.Now().UTC()
	from := to.AddDate(0, 0, -30)

	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			marker.SetError(err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'from' timestamp, expected RFC 3339"})
			return
		}
		from = parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			marker.SetError(err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'to' timestamp, expected RFC 3339"})
			return
		}
		to = parsed
	}

	report, etag, err := h.analyticsService.GetAnalytics(tenantCtx, c.Param("id"), from, to)
	if err != nil {
		marker.SetError(err)
		respondError(c, err)
		return
	}

	c.Header("ETag", etag)
	if c.GetHeader("If-None-Match") == etag {
		marker.SetSuccess(true)
		c.Status(http.StatusNotModified)
		return
	}

	marker.SetSuccess(true)
	h.logger.Analytics().Debug("Analytics report served",
		"tenantId", tenantCtx.TenantID, "flowId", c.Param("id"),
		"grade", report.Grade, "duration", time.Since(start))
	c.JSON(http.StatusOK, report)
}
