// Package manager provides centralized cache operations with proper tenant isolation
package manager

import (
	"runtime"
	"sync"
	"time"

	"github.com/clubifyhq/checkout-go/internal/domain/entities/checkout"
	"github.com/clubifyhq/checkout-go/internal/domain/entities/flow"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/caching/interfaces"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/caching/stores"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/observability/logging"
)

// Interface assertion to ensure Manager implements the cache contract.
var _ interfaces.Cache = (*Manager)(nil)

// Manager provides centralized cache operations with proper tenant isolation
// by delegating to specialized stores.
type Manager struct {
	Mu             sync.RWMutex
	LastAccessed   map[string]time.Time
	cartsStore     *stores.CartsStore
	flowsStore     *stores.FlowsStore
	analyticsStore *stores.AnalyticsStore
	hits           int64
	misses         int64
	logger         *logging.ChanneledLogger
}

func NewManager(logger *logging.ChanneledLogger) *Manager {
	if logger != nil {
		logger.Cache().Info("Initializing cache manager", "stores", []string{"carts", "flows", "analytics"})
	}

	return &Manager{
		LastAccessed:   make(map[string]time.Time),
		cartsStore:     stores.NewCartsStore(logger),
		flowsStore:     stores.NewFlowsStore(logger),
		analyticsStore: stores.NewAnalyticsStore(logger),
		logger:         logger,
	}
}

// InitializeTenant creates cache structures for a tenant on activation.
func (m *Manager) InitializeTenant(tenantID string) {
	start := time.Now()
	if m.logger != nil {
		m.logger.Cache().Debug("Initializing tenant cache", "tenantId", tenantID)
	}

	m.cartsStore.InitializeTenant(tenantID)
	m.flowsStore.InitializeTenant(tenantID)
	m.analyticsStore.InitializeTenant(tenantID)
	m.updateTenantAccessTime(tenantID)

	if m.logger != nil {
		m.logger.Cache().Info("Tenant cache initialized", "tenantId", tenantID, "duration", time.Since(start))
	}
}

func (m *Manager) updateTenantAccessTime(tenantID string) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.LastAccessed[tenantID] = time.Now().UTC()
}

func (m *Manager) countHit(hit bool) {
	m.Mu.Lock()
	if hit {
		m.hits++
	} else {
		m.misses++
	}
	m.Mu.Unlock()
}

// =============================================================================
// Cart cache operations
// =============================================================================

func (m *Manager) GetCart(tenantID, id string) (*checkout.Cart, bool) {
	m.updateTenantAccessTime(tenantID)
	cart, found := m.cartsStore.Get(tenantID, id)
	m.countHit(found)
	return cart, found
}

func (m *Manager) SetCart(tenantID string, cart *checkout.Cart) {
	m.updateTenantAccessTime(tenantID)
	m.cartsStore.Set(tenantID, cart)
}

func (m *Manager) GetCartBySession(tenantID, sessionID string) (*checkout.Cart, bool) {
	m.updateTenantAccessTime(tenantID)
	cart, found := m.cartsStore.GetBySession(tenantID, sessionID)
	m.countHit(found)
	return cart, found
}

func (m *Manager) InvalidateCart(tenantID, id string) {
	m.cartsStore.Invalidate(tenantID, id)
}

func (m *Manager) GetAllCartIDs(tenantID string) []string {
	return m.cartsStore.AllIDs(tenantID)
}

func (m *Manager) InvalidateCartCache(tenantID string) {
	m.cartsStore.InvalidateTenant(tenantID)
	m.cartsStore.InitializeTenant(tenantID)
}

// =============================================================================
// Flow cache operations
// =============================================================================

func (m *Manager) GetFlow(tenantID, id string) (*flow.Config, bool) {
	m.updateTenantAccessTime(tenantID)
	cfg, found := m.flowsStore.GetConfig(tenantID, id)
	m.countHit(found)
	return cfg, found
}

func (m *Manager) SetFlow(tenantID string, cfg *flow.Config) {
	m.updateTenantAccessTime(tenantID)
	m.flowsStore.SetConfig(tenantID, cfg)
}

func (m *Manager) GetFlowByOffer(tenantID, offerID string) (*flow.Config, bool) {
	m.updateTenantAccessTime(tenantID)
	cfg, found := m.flowsStore.GetConfigByOffer(tenantID, offerID)
	m.countHit(found)
	return cfg, found
}

func (m *Manager) InvalidateFlow(tenantID, id string) {
	m.flowsStore.InvalidateConfig(tenantID, id)
}

func (m *Manager) GetFlowSession(tenantID, sessionID string) (*flow.Session, bool) {
	m.updateTenantAccessTime(tenantID)
	session, found := m.flowsStore.GetSession(tenantID, sessionID)
	m.countHit(found)
	return session, found
}

func (m *Manager) SetFlowSession(tenantID string, session *flow.Session) {
	m.updateTenantAccessTime(tenantID)
	m.flowsStore.SetSession(tenantID, session)
}

func (m *Manager) RemoveFlowSession(tenantID, sessionID string) {
	m.flowsStore.RemoveSession(tenantID, sessionID)
}

func (m *Manager) GetAllFlowSessionIDs(tenantID string) []string {
	return m.flowsStore.AllSessionIDs(tenantID)
}

func (m *Manager) InvalidateFlowCache(tenantID string) {
	m.flowsStore.InvalidateTenant(tenantID)
	m.flowsStore.InitializeTenant(tenantID)
}

// =============================================================================
// Analytics cache operations
// =============================================================================

func (m *Manager) GetAnalyticsWithETag(tenantID, cacheKey string) (*flow.Analytics, string, bool) {
	m.updateTenantAccessTime(tenantID)
	snapshot, etag, found := m.analyticsStore.GetWithETag(tenantID, cacheKey)
	m.countHit(found)
	return snapshot, etag, found
}

func (m *Manager) SetAnalyticsWithETag(tenantID, cacheKey string, snapshot *flow.Analytics, etag string) {
	m.updateTenantAccessTime(tenantID)
	m.analyticsStore.SetWithETag(tenantID, cacheKey, snapshot, etag)
}

func (m *Manager) InvalidateAnalyticsCache(tenantID string) {
	m.analyticsStore.InvalidateTenant(tenantID)
	m.analyticsStore.InitializeTenant(tenantID)
}

// =============================================================================
// Cross-store operations
// =============================================================================

// InvalidateTenant drops every cache entry for a tenant.
func (m *Manager) InvalidateTenant(tenantID string) {
	m.cartsStore.InvalidateTenant(tenantID)
	m.flowsStore.InvalidateTenant(tenantID)
	m.analyticsStore.InvalidateTenant(tenantID)

	m.Mu.Lock()
	delete(m.LastAccessed, tenantID)
	m.Mu.Unlock()

	if m.logger != nil {
		m.logger.Cache().Info("Tenant cache invalidated", "tenantId", tenantID)
	}
}

// PurgeExpired evicts TTL-expired entries across stores, returning the total
// removed. Called by the cleanup worker.
func (m *Manager) PurgeExpired(tenantID string) int {
	removed := m.cartsStore.PurgeExpired(tenantID)
	removed += m.flowsStore.PurgeExpired(tenantID)
	removed += m.analyticsStore.PurgeExpired(tenantID)
	return removed
}

// GetTenantStats reports hit/miss counters and the tenant's entry count.
func (m *Manager) GetTenantStats(tenantID string) interfaces.CacheStats {
	m.Mu.RLock()
	hits, misses := m.hits, m.misses
	m.Mu.RUnlock()

	size := int64(m.cartsStore.Size(tenantID) + m.flowsStore.Size(tenantID) + m.analyticsStore.Size(tenantID))
	return interfaces.CacheStats{
		Hits:   int(hits),
		Misses: int(misses),
		Size:   size,
	}
}

// GetMemoryStats reports process memory alongside per-store entry counts.
func (m *Manager) GetMemoryStats() map[string]any {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	m.Mu.RLock()
	tenants := make([]string, 0, len(m.LastAccessed))
	for tenantID := range m.LastAccessed {
		tenants = append(tenants, tenantID)
	}
	m.Mu.RUnlock()

	carts, flows, analytics := 0, 0, 0
	for _, tenantID := range tenants {
		carts += m.cartsStore.Size(tenantID)
		flows += m.flowsStore.Size(tenantID)
		analytics += m.analyticsStore.Size(tenantID)
	}

	return map[string]any{
		"allocMB":          mem.Alloc / 1024 / 1024,
		"sysMB":            mem.Sys / 1024 / 1024,
		"numGC":            mem.NumGC,
		"tenants":          len(tenants),
		"cartEntries":      carts,
		"flowEntries":      flows,
		"analyticsEntries": analytics,
	}
}

// ActiveTenants returns tenants with cache activity.
func (m *Manager) ActiveTenants() []string {
	m.Mu.RLock()
	defer m.Mu.RUnlock()

	tenants := make([]string, 0, len(m.LastAccessed))
	for tenantID := range m.LastAccessed {
		tenants = append(tenants, tenantID)
	}
	return tenants
}

// InvalidateAll drops every tenant's caches.
func (m *Manager) InvalidateAll() {
	for _, tenantID := range m.ActiveTenants() {
		m.InvalidateTenant(tenantID)
	}
}

// Health reports a coarse cache health payload for the status endpoint.
func (m *Manager) Health() map[string]any {
	m.Mu.RLock()
	hits, misses := m.hits, m.misses
	tenantCount := len(m.LastAccessed)
	m.Mu.RUnlock()

	ratio := 0.0
	if hits+misses > 0 {
		ratio = float64(hits) / float64(hits+misses)
	}

	return map[string]any{
		"status":   "ok",
		"tenants":  tenantCount,
		"hits":     hits,
		"misses":   misses,
		"hitRatio": ratio,
	}
}
