// Package tenant provides tenant context management for multi-tenant support.
package tenant

import (
	"github.com/clubifyhq/checkout-go/internal/domain/repositories"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/caching/manager"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/observability/logging"
	persistenceCheckout "github.com/clubifyhq/checkout-go/internal/infrastructure/persistence/checkout"
	persistenceFlow "github.com/clubifyhq/checkout-go/internal/infrastructure/persistence/flow"
	persistenceWebhook "github.com/clubifyhq/checkout-go/internal/infrastructure/persistence/webhook"
)

// Context holds tenant-specific request context
type Context struct {
	TenantID     string
	Config       *Config
	Database     *Database
	Status       string
	CacheManager *manager.Manager
	Logger       *logging.ChanneledLogger
}

// Close cleans up the tenant context
func (ctx *Context) Close() error {
	if ctx.Database != nil {
		return ctx.Database.Close()
	}
	return nil
}

// GetTenantID returns the tenant ID for this context
func (ctx *Context) GetTenantID() string {
	return ctx.TenantID
}

// GetConfig returns the tenant configuration
func (ctx *Context) GetConfig() *Config {
	return ctx.Config
}

// GetDatabase returns the tenant database connection
func (ctx *Context) GetDatabase() *Database {
	return ctx.Database
}

// GetStatus returns the tenant status
func (ctx *Context) GetStatus() string {
	return ctx.Status
}

// GetCacheManager returns the cache manager
func (ctx *Context) GetCacheManager() *manager.Manager {
	return ctx.CacheManager
}

// IsActive returns true if the tenant is active
func (ctx *Context) IsActive() bool {
	return ctx.Status == "active"
}

// IsReserved returns true if the tenant is reserved (awaiting activation)
func (ctx *Context) IsReserved() bool {
	return ctx.Status == "reserved"
}

// GetDatabaseInfo returns database connection information for logging
func (ctx *Context) GetDatabaseInfo() string {
	if ctx.Database != nil {
		return ctx.Database.GetConnectionInfo()
	}
	return "no database connection"
}

// =============================================================================
// Repository Factory Methods
// =============================================================================

// CartRepo returns a cart repository instance
func (ctx *Context) CartRepo() repositories.CartRepository {
	return persistenceCheckout.NewCartRepository(ctx.Database.Conn, ctx.CacheManager, ctx.Logger)
}

// OrderRepo returns an order repository instance
func (ctx *Context) OrderRepo() repositories.OrderRepository {
	return persistenceCheckout.NewOrderRepository(ctx.Database.Conn, ctx.Logger)
}

// FlowRepo returns a flow config repository instance
func (ctx *Context) FlowRepo() repositories.FlowRepository {
	return persistenceFlow.NewFlowRepository(ctx.Database.Conn, ctx.CacheManager, ctx.Logger)
}

// SessionRepo returns a flow session repository instance.
// The concrete type also records funnel step events.
func (ctx *Context) SessionRepo() *persistenceFlow.SessionRepository {
	return persistenceFlow.NewSessionRepository(ctx.Database.Conn, ctx.CacheManager, ctx.Logger)
}

// WebhookRepo returns a webhook endpoint repository instance
func (ctx *Context) WebhookRepo() repositories.WebhookRepository {
	return persistenceWebhook.NewRepository(ctx.Database.Conn, ctx.Logger)
}
