// Package container provides dependency injection for all singleton services
package container

import (
	"github.com/clubifyhq/checkout-go/internal/application/services"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/caching/manager"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/email"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/gateway"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/messaging"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/observability/logging"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/observability/performance"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/tenant"
	"github.com/clubifyhq/checkout-go/pkg/config"
)

// Container holds all singleton services and infrastructure dependencies
type Container struct {
	// Checkout services (stateless singletons)
	CartService          *services.CartService
	FlowService          *services.FlowService
	FlowAnalyticsService *services.FlowAnalyticsService
	OrderService         *services.OrderService
	WebhookService       *services.WebhookService
	AuthService          *services.AuthService
	MultiTenantService   *services.MultiTenantService

	// Infrastructure dependencies
	TenantManager   *tenant.Manager
	CacheManager    *manager.Manager
	Logger          *logging.ChanneledLogger
	PerfTracker     *performance.Tracker
	EventPublisher  messaging.EventPublisher
	LiveBroadcaster *messaging.LiveBroadcaster
	EmailService    email.Service
	GatewayClient   *gateway.Client
}

// NewContainer creates and wires all singleton services
func NewContainer(tenantManager *tenant.Manager, cacheManager *manager.Manager) *Container {
	logger := tenantManager.GetLogger()
	perfTracker := performance.NewTracker(performance.DefaultTrackerConfig())

	var publisher messaging.EventPublisher
	if config.AMQPEnabled {
		amqpPublisher, err := messaging.NewAMQPPublisher(logger)
		if err != nil {
			logger.System().Error("AMQP broker unavailable, events will not be published", "error", err)
			publisher = messaging.NoopPublisher{}
		} else {
			publisher = amqpPublisher
		}
	} else {
		publisher = messaging.NoopPublisher{}
	}

	// The email service is optional: without a Resend key, receipts and
	// activation mails are skipped.
	emailService, err := email.NewService()
	if err != nil {
		logger.System().Warn("Email service disabled", "reason", err.Error())
		emailService = nil
	}

	gatewayClient := gateway.NewClient(logger)
	webhookService := services.NewWebhookService(logger)

	return &Container{
		CartService:          services.NewCartService(publisher, webhookService, logger),
		FlowService:          services.NewFlowService(publisher, webhookService, logger),
		FlowAnalyticsService: services.NewFlowAnalyticsService(logger, perfTracker),
		OrderService:         services.NewOrderService(gatewayClient, publisher, webhookService, emailService, logger),
		WebhookService:       webhookService,
		AuthService:          services.NewAuthService(logger),
		MultiTenantService:   services.NewMultiTenantService(tenantManager, emailService, logger, perfTracker),

		TenantManager:   tenantManager,
		CacheManager:    cacheManager,
		Logger:          logger,
		PerfTracker:     perfTracker,
		EventPublisher:  publisher,
		LiveBroadcaster: messaging.NewLiveBroadcaster(cacheManager),
		EmailService:    emailService,
		GatewayClient:   gatewayClient,
	}
}

// Close releases long-lived infrastructure held by the container.
func (c *Container) Close() error {
	if c.EventPublisher != nil {
		return c.EventPublisher.Close()
	}
	return nil
}
