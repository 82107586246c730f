package stores

import (
	"sync"
	"time"

	"github.com/clubifyhq/checkout-go/internal/domain/entities/flow"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/caching/types"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/observability/logging"
	"github.com/clubifyhq/checkout-go/pkg/config"
)

// FlowsStore implements flow config and session caching with tenant isolation
type FlowsStore struct {
	tenantCaches map[string]*types.TenantFlowCache
	mu           sync.RWMutex
	logger       *logging.ChanneledLogger
}

// NewFlowsStore creates a new flows cache store
func NewFlowsStore(logger *logging.ChanneledLogger) *FlowsStore {
	if logger != nil {
		logger.Cache().Info("Initializing flows cache store")
	}
	return &FlowsStore{
		tenantCaches: make(map[string]*types.TenantFlowCache),
		logger:       logger,
	}
}

// InitializeTenant creates cache structures for a tenant
func (fs *FlowsStore) InitializeTenant(tenantID string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.tenantCaches[tenantID] == nil {
		fs.tenantCaches[tenantID] = &types.TenantFlowCache{
			Configs:     make(map[string]*types.FlowEntry),
			OfferToID:   make(map[string]string),
			Sessions:    make(map[string]*types.SessionEntry),
			LastUpdated: time.Now().UTC(),
		}
	}
}

// GetTenantCache safely retrieves a tenant's flow cache
func (fs *FlowsStore) GetTenantCache(tenantID string) (*types.TenantFlowCache, bool) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	cache, exists := fs.tenantCaches[tenantID]
	return cache, exists
}

// GetConfig retrieves a flow config by id, honoring the entry TTL.
func (fs *FlowsStore) GetConfig(tenantID, id string) (*flow.Config, bool) {
	cache, exists := fs.GetTenantCache(tenantID)
	if !exists {
		return nil, false
	}

	cache.Mu.RLock()
	defer cache.Mu.RUnlock()

	entry, found := cache.Configs[id]
	if !found || time.Now().After(entry.ExpiresAt) {
		return nil, false
	}
	return entry.Config, true
}

// GetConfigByOffer resolves a flow config through the offer index.
func (fs *FlowsStore) GetConfigByOffer(tenantID, offerID string) (*flow.Config, bool) {
	cache, exists := fs.GetTenantCache(tenantID)
	if !exists {
		return nil, false
	}

	cache.Mu.RLock()
	flowID, found := cache.OfferToID[offerID]
	cache.Mu.RUnlock()
	if !found {
		return nil, false
	}
	return fs.GetConfig(tenantID, flowID)
}

// SetConfig stores a flow config with the configured TTL.
func (fs *FlowsStore) SetConfig(tenantID string, cfg *flow.Config) {
	cache, exists := fs.GetTenantCache(tenantID)
	if !exists {
		fs.InitializeTenant(tenantID)
		cache, _ = fs.GetTenantCache(tenantID)
	}

	cache.Mu.Lock()
	defer cache.Mu.Unlock()

	cache.Configs[cfg.ID] = &types.FlowEntry{
		Config:    cfg,
		ExpiresAt: time.Now().Add(config.FlowConfigCacheTTL),
	}
	if cfg.OfferID != "" {
		cache.OfferToID[cfg.OfferID] = cfg.ID
	}
	cache.LastUpdated = time.Now().UTC()
}

// InvalidateConfig drops a flow config and its offer index entry.
func (fs *FlowsStore) InvalidateConfig(tenantID, id string) {
	cache, exists := fs.GetTenantCache(tenantID)
	if !exists {
		return
	}

	cache.Mu.Lock()
	defer cache.Mu.Unlock()

	if entry, found := cache.Configs[id]; found {
		if entry.Config != nil && entry.Config.OfferID != "" {
			delete(cache.OfferToID, entry.Config.OfferID)
		}
		delete(cache.Configs, id)
	}
	cache.LastUpdated = time.Now().UTC()
}

// GetSession retrieves a live flow session, honoring the session TTL.
func (fs *FlowsStore) GetSession(tenantID, sessionID string) (*flow.Session, bool) {
	cache, exists := fs.GetTenantCache(tenantID)
	if !exists {
		return nil, false
	}

	cache.Mu.RLock()
	defer cache.Mu.RUnlock()

	entry, found := cache.Sessions[sessionID]
	if !found || time.Now().After(entry.ExpiresAt) {
		return nil, false
	}
	return entry.Session, true
}

// SetSession stores a flow session, refreshing its TTL.
func (fs *FlowsStore) SetSession(tenantID string, session *flow.Session) {
	cache, exists := fs.GetTenantCache(tenantID)
	if !exists {
		fs.InitializeTenant(tenantID)
		cache, _ = fs.GetTenantCache(tenantID)
	}

	cache.Mu.Lock()
	defer cache.Mu.Unlock()

	cache.Sessions[session.ID] = &types.SessionEntry{
		Session:   session,
		ExpiresAt: time.Now().Add(config.FlowSessionTTL),
	}
	cache.LastUpdated = time.Now().UTC()
}

// RemoveSession drops a session from the cache.
func (fs *FlowsStore) RemoveSession(tenantID, sessionID string) {
	cache, exists := fs.GetTenantCache(tenantID)
	if !exists {
		return
	}

	cache.Mu.Lock()
	defer cache.Mu.Unlock()
	delete(cache.Sessions, sessionID)
}

// AllSessionIDs returns every cached session id for a tenant.
func (fs *FlowsStore) AllSessionIDs(tenantID string) []string {
	cache, exists := fs.GetTenantCache(tenantID)
	if !exists {
		return nil
	}

	cache.Mu.RLock()
	defer cache.Mu.RUnlock()

	ids := make([]string, 0, len(cache.Sessions))
	for id := range cache.Sessions {
		ids = append(ids, id)
	}
	return ids
}

// PurgeExpired evicts configs and sessions past their TTL.
func (fs *FlowsStore) PurgeExpired(tenantID string) int {
	cache, exists := fs.GetTenantCache(tenantID)
	if !exists {
		return 0
	}

	cache.Mu.Lock()
	defer cache.Mu.Unlock()

	now := time.Now()
	removed := 0
	for id, entry := range cache.Configs {
		if now.After(entry.ExpiresAt) {
			if entry.Config != nil && entry.Config.OfferID != "" {
				delete(cache.OfferToID, entry.Config.OfferID)
			}
			delete(cache.Configs, id)
			removed++
		}
	}
	for id, entry := range cache.Sessions {
		if now.After(entry.ExpiresAt) {
			delete(cache.Sessions, id)
			removed++
		}
	}
	return removed
}

// InvalidateTenant drops every flow entry for a tenant.
func (fs *FlowsStore) InvalidateTenant(tenantID string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	delete(fs.tenantCaches, tenantID)
}

// Size reports cached config plus session count per tenant.
func (fs *FlowsStore) Size(tenantID string) int {
	cache, exists := fs.GetTenantCache(tenantID)
	if !exists {
		return 0
	}
	cache.Mu.RLock()
	defer cache.Mu.RUnlock()
	return len(cache.Configs) + len(cache.Sessions)
}
