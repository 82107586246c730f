package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/clubifyhq/checkout-go/internal/infrastructure/messaging"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/observability/logging"
	"github.com/clubifyhq/checkout-go/internal/presentation/http/middleware"
)

// LiveHandlers upgrades admin dashboard connections onto the live
// checkout-activity feed.
type LiveHandlers struct {
	broadcaster *messaging.LiveBroadcaster
	logger      *logging.ChanneledLogger
	upgrader    websocket.Upgrader
}

func NewLiveHandlers(broadcaster *messaging.LiveBroadcaster, logger *logging.ChanneledLogger) *LiveHandlers {
	return &LiveHandlers{
		broadcaster: broadcaster,
		logger:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origins are checked by the domain validation middleware
			// before the upgrade reaches this handler.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// LiveFeed handles GET /api/v1/admin/live (admin, websocket upgrade)
func (h *LiveHandlers) LiveFeed(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.System().Error("Websocket upgrade failed",
			"tenantId", tenantCtx.TenantID, "error", err)
		return
	}

	client := &messaging.LiveClient{
		Conn:     conn,
		TenantID: tenantCtx.TenantID,
		Send:     make(chan []byte, 256),
	}
	h.broadcaster.Register(client)

	h.logger.System().Debug("Live feed client connected", "tenantId", tenantCtx.TenantID)

	go client.WritePump(h.broadcaster)
	go client.ReadPump(h.broadcaster)
}
