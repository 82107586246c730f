package stores

import (
	"sync"
	"time"

	"github.com/clubifyhq/checkout-go/internal/domain/entities/flow"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/caching/types"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/observability/logging"
	"github.com/clubifyhq/checkout-go/pkg/config"
)

// AnalyticsStore caches computed flow analytics with tenant isolation
type AnalyticsStore struct {
	tenantCaches map[string]*types.TenantAnalyticsCache
	mu           sync.RWMutex
	logger       *logging.ChanneledLogger
}

// NewAnalyticsStore creates a new analytics cache store
func NewAnalyticsStore(logger *logging.ChanneledLogger) *AnalyticsStore {
	if logger != nil {
		logger.Cache().Info("Initializing analytics cache store")
	}
	return &AnalyticsStore{
		tenantCaches: make(map[string]*types.TenantAnalyticsCache),
		logger:       logger,
	}
}

// InitializeTenant creates cache structures for a tenant
func (as *AnalyticsStore) InitializeTenant(tenantID string) {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.tenantCaches[tenantID] == nil {
		as.tenantCaches[tenantID] = &types.TenantAnalyticsCache{
			Snapshots:   make(map[string]*types.AnalyticsEntry),
			LastUpdated: time.Now().UTC(),
		}
	}
}

// GetTenantCache safely retrieves a tenant's analytics cache
func (as *AnalyticsStore) GetTenantCache(tenantID string) (*types.TenantAnalyticsCache, bool) {
	as.mu.RLock()
	defer as.mu.RUnlock()
	cache, exists := as.tenantCaches[tenantID]
	return cache, exists
}

// GetWithETag retrieves a snapshot and its ETag, honoring the entry TTL.
func (as *AnalyticsStore) GetWithETag(tenantID, cacheKey string) (*flow.Analytics, string, bool) {
	cache, exists := as.GetTenantCache(tenantID)
	if !exists {
		return nil, "", false
	}

	cache.Mu.RLock()
	defer cache.Mu.RUnlock()

	entry, found := cache.Snapshots[cacheKey]
	if !found || time.Now().After(entry.ExpiresAt) {
		return nil, "", false
	}
	return entry.Snapshot, entry.ETag, true
}

// SetWithETag stores a computed snapshot with the analytics TTL.
func (as *AnalyticsStore) SetWithETag(tenantID, cacheKey string, snapshot *flow.Analytics, etag string) {
	cache, exists := as.GetTenantCache(tenantID)
	if !exists {
		as.InitializeTenant(tenantID)
		cache, _ = as.GetTenantCache(tenantID)
	}

	cache.Mu.Lock()
	defer cache.Mu.Unlock()

	cache.Snapshots[cacheKey] = &types.AnalyticsEntry{
		Snapshot:  snapshot,
		ETag:      etag,
		ExpiresAt: time.Now().Add(config.AnalyticsTTL),
	}
	cache.LastUpdated = time.Now().UTC()
}

// PurgeExpired evicts snapshots past their TTL.
func (as *AnalyticsStore) PurgeExpired(tenantID string) int {
	cache, exists := as.GetTenantCache(tenantID)
	if !exists {
		return 0
	}

	cache.Mu.Lock()
	defer cache.Mu.Unlock()

	now := time.Now()
	removed := 0
	for key, entry := range cache.Snapshots {
		if now.After(entry.ExpiresAt) {
			delete(cache.Snapshots, key)
			removed++
		}
	}
	return removed
}

// InvalidateTenant drops every snapshot for a tenant.
func (as *AnalyticsStore) InvalidateTenant(tenantID string) {
	as.mu.Lock()
	defer as.mu.Unlock()
	delete(as.tenantCaches, tenantID)
}

// Size reports cached snapshot count per tenant.
func (as *AnalyticsStore) Size(tenantID string) int {
	cache, exists := as.GetTenantCache(tenantID)
	if !exists {
		return 0
	}
	cache.Mu.RLock()
	defer cache.Mu.RUnlock()
	return len(cache.Snapshots)
}
