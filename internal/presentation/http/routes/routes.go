package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/clubifyhq/checkout-go/internal/application/container"
	"github.com/clubifyhq/checkout-go/internal/presentation/http/handlers"
	"github.com/clubifyhq/checkout-go/internal/presentation/http/middleware"
)

// SetupRoutes wires the full HTTP surface onto a gin engine. Route groups:
// public tenant provisioning, tenant-scoped checkout APIs, and admin routes
// behind bearer auth.
func SetupRoutes(appContainer *container.Container) *gin.Engine {
	router := gin.Default()

	router.Use(middleware.CORSMiddleware())

	cartHandlers := handlers.NewCartHandlers(appContainer.CartService, appContainer.Logger, appContainer.PerfTracker)
	flowHandlers := handlers.NewFlowHandlers(appContainer.FlowService, appContainer.AuthService, appContainer.Logger, appContainer.PerfTracker)
	analyticsHandlers := handlers.NewAnalyticsHandlers(appContainer.FlowAnalyticsService, appContainer.Logger, appContainer.PerfTracker)
	orderHandlers := handlers.NewOrderHandlers(appContainer.OrderService, appContainer.WebhookService, appContainer.AuthService, appContainer.Logger, appContainer.PerfTracker)
	webhookHandlers := handlers.NewWebhookHandlers(appContainer.WebhookService, appContainer.Logger)
	authHandlers := handlers.NewAuthHandlers(appContainer.AuthService, appContainer.Logger)
	tenantHandlers := handlers.NewTenantHandlers(appContainer.MultiTenantService, appContainer.Logger)
	systemHandlers := handlers.NewSystemHandlers(appContainer.CacheManager, appContainer.Logger, appContainer.PerfTracker)
	liveHandlers := handlers.NewLiveHandlers(appContainer.LiveBroadcaster, appContainer.Logger)

	router.GET("/health", systemHandlers.Health)

	// Provisioning happens before a tenant exists, so no tenant middleware.
	tenantGroup := router.Group("/api/v1/tenant")
	{
		tenantGroup.POST("/provision", tenantHandlers.ProvisionTenant)
		tenantGroup.POST("/activate", tenantHandlers.ActivateTenant)
		tenantGroup.GET("/capacity", tenantHandlers.GetCapacity)
	}

	api := router.Group("/api/v1")
	api.Use(middleware.TenantMiddleware(appContainer.TenantManager, appContainer.PerfTracker))
	api.Use(middleware.DomainValidationMiddleware(appContainer.TenantManager))
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandlers.Login)
			auth.POST("/customer-token", authHandlers.IssueCustomerToken)
		}

		carts := api.Group("/carts")
		{
			carts.POST("", cartHandlers.CreateCart)
			carts.GET("/:id", cartHandlers.GetCart)
			carts.GET("/session/:sessionId", cartHandlers.GetCartBySession)
			carts.POST("/:id/items", cartHandlers.AddItem)
			carts.PUT("/:id/items/:itemId", cartHandlers.UpdateItemQuantity)
			carts.DELETE("/:id/items/:itemId", cartHandlers.RemoveItem)
			carts.POST("/:id/coupon", cartHandlers.ApplyCoupon)
			carts.DELETE("/:id/coupon", cartHandlers.RemoveCoupon)
			carts.PUT("/:id/shipping", cartHandlers.SetShipping)
			carts.GET("/:id/totals", cartHandlers.GetTotals)
		}

		flows := api.Group("/flows")
		{
			flows.GET("", flowHandlers.ListFlows)
			flows.GET("/:id", flowHandlers.GetFlow)
			flows.POST("/sessions", flowHandlers.StartSession)
			flows.GET("/sessions/:id", flowHandlers.GetSession)
			flows.POST("/sessions/:id/steps", flowHandlers.CompleteStep)
			flows.GET("/sessions/:id/progress", flowHandlers.GetProgress)
			flows.POST("/sessions/:id/abandon", flowHandlers.AbandonSession)
		}

		api.POST("/checkout", orderHandlers.Checkout)
		api.GET("/orders/:id", orderHandlers.GetOrder)
		api.POST("/orders/payment-notification", orderHandlers.ConfirmPayment)

		// Admin surface: flow management, orders, webhooks, analytics, ops.
		admin := api.Group("")
		admin.Use(middleware.AdminAuthMiddleware(appContainer.AuthService))
		{
			admin.POST("/flows", flowHandlers.CreateFlow)
			admin.PUT("/flows/:id", flowHandlers.UpdateFlow)
			admin.DELETE("/flows/:id", flowHandlers.DeleteFlow)

			admin.GET("/orders", orderHandlers.ListOrders)
			admin.POST("/orders/:id/refund", orderHandlers.RefundOrder)

			admin.GET("/analytics/flows/:id", analyticsHandlers.GetFlowAnalytics)

			admin.POST("/webhooks", webhookHandlers.RegisterEndpoint)
			admin.GET("/webhooks", webhookHandlers.ListEndpoints)
			admin.DELETE("/webhooks/:id", webhookHandlers.DeleteEndpoint)
			admin.GET("/webhooks/:id/deliveries", webhookHandlers.ListDeliveries)

			admin.GET("/admin/status", systemHandlers.Status)
			admin.GET("/admin/performance", systemHandlers.Performance)
			admin.GET("/admin/log-levels", systemHandlers.GetLogLevels)
			admin.PUT("/admin/log-levels", systemHandlers.SetLogLevel)
			admin.GET("/admin/live", liveHandlers.LiveFeed)
		}
	}

	return router
}
