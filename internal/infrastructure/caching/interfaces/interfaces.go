// Package interfaces defines cache operation contracts for multi-tenant checkout state.
package interfaces

import (
	"time"

	"github.com/clubifyhq/checkout-go/internal/domain/entities/checkout"
	"github.com/clubifyhq/checkout-go/internal/domain/entities/flow"
)

// CartCache defines operations for cart caching
type CartCache interface {
	GetCart(tenantID, id string) (*checkout.Cart, bool)
	SetCart(tenantID string, cart *checkout.Cart)
	GetCartBySession(tenantID, sessionID string) (*checkout.Cart, bool)
	InvalidateCart(tenantID, id string)
	GetAllCartIDs(tenantID string) []string
	InvalidateCartCache(tenantID string)
}

// FlowCache defines operations for flow config and session caching
type FlowCache interface {
	GetFlow(tenantID, id string) (*flow.Config, bool)
	SetFlow(tenantID string, cfg *flow.Config)
	GetFlowByOffer(tenantID, offerID string) (*flow.Config, bool)
	InvalidateFlow(tenantID, id string)
	GetFlowSession(tenantID, sessionID string) (*flow.Session, bool)
	SetFlowSession(tenantID string, session *flow.Session)
	RemoveFlowSession(tenantID, sessionID string)
	GetAllFlowSessionIDs(tenantID string) []string
	InvalidateFlowCache(tenantID string)
}

// AnalyticsCache defines operations for computed analytics caching
type AnalyticsCache interface {
	GetAnalyticsWithETag(tenantID, cacheKey string) (*flow.Analytics, string, bool)
	SetAnalyticsWithETag(tenantID, cacheKey string, snapshot *flow.Analytics, etag string)
	InvalidateAnalyticsCache(tenantID string)
}

// Cache is the main interface that combines all cache operations
type Cache interface {
	CartCache
	FlowCache
	AnalyticsCache
	InvalidateTenant(tenantID string)
	GetTenantStats(tenantID string) CacheStats
	GetMemoryStats() map[string]any
	PurgeExpired(tenantID string) int
	InvalidateAll()
	Health() map[string]any
}

type CacheStats struct {
	Hits   int   `json:"hits"`
	Misses int   `json:"misses"`
	Size   int64 `json:"size"`
}

type CacheTTL time.Duration

const (
	TTLNever    CacheTTL = CacheTTL(0)
	TTL1Minute  CacheTTL = CacheTTL(time.Minute)
	TTL5Minutes CacheTTL = CacheTTL(5 * time.Minute)
	TTL1Hour    CacheTTL = CacheTTL(time.Hour)
	TTL24Hours  CacheTTL = CacheTTL(24 * time.Hour)
)
