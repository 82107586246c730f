package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/clubifyhq/checkout-go/internal/infrastructure/caching/manager"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/observability/logging"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/observability/performance"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/tenant"
	"github.com/clubifyhq/checkout-go/internal/presentation/http/middleware"
)

// SystemHandlers serves health, cache statistics and log level management.
type SystemHandlers struct {
	cacheManager *manager.Manager
	logger       *logging.ChanneledLogger
	perfTracker  *performance.Tracker
}

func NewSystemHandlers(cacheManager *manager.Manager, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *SystemHandlers {
	return &SystemHandlers{
		cacheManager: cacheManager,
		logger:       logger,
		perfTracker:  perfTracker,
	}
}

// Health handles GET /health — unauthenticated liveness probe.
func (h *SystemHandlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"cache":  h.cacheManager.Health(),
		"db":     tenant.GetPoolStats(),
	})
}

// Status handles GET /api/v1/admin/status (admin) with memory, performance
// and per-tenant cache detail.
func (h *SystemHandlers) Status(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"memory":      h.cacheManager.GetMemoryStats(),
		"cacheStats":  h.cacheManager.GetTenantStats(tenantCtx.TenantID),
		"performance": h.perfTracker.GetOverallStats(),
		"dbPools":     tenant.GetConnectionPoolInfo(),
	})
}

// Performance handles GET /api/v1/admin/performance (admin) with the
// tenant's recent operation markers, in-flight operations and alerts.
func (h *SystemHandlers) Performance(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"recent": h.perfTracker.GetRecentMetrics(tenantCtx.TenantID, 15*time.Minute),
		"active": h.perfTracker.GetActiveOperations(tenantCtx.TenantID),
		"alerts": h.perfTracker.GetAlerts(tenantCtx.TenantID),
	})
}

// GetLogLevels handles GET /api/v1/admin/log-levels (admin)
func (h *SystemHandlers) GetLogLevels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"levels": h.logger.GetChannelLevels()})
}

type setLogLevelRequest struct {
	Channel string `json:"channel"`
	Level   string `json:"level"`
}

// SetLogLevel handles PUT /api/v1/admin/log-levels (admin)
func (h *SystemHandlers) SetLogLevel(c *gin.Context) {
	var req setLogLevelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	var level slog.Level
	switch strings.ToLower(req.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "level must be one of debug, info, warn, error"})
		return
	}

	if err := h.logger.SetChannelLevel(logging.Channel(req.Channel), level); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "updated", "channel": req.Channel, "level": req.Level})
}
