// Package stores provides concrete cache store implementations
package stores

import (
	"sync"
	"time"

	"github.com/clubifyhq/checkout-go/internal/domain/entities/checkout"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/caching/types"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/observability/logging"
	"github.com/clubifyhq/checkout-go/pkg/config"
)

// CartsStore implements cart caching operations with tenant isolation
type CartsStore struct {
	tenantCaches map[string]*types.TenantCartCache
	mu           sync.RWMutex
	logger       *logging.ChanneledLogger
}

// NewCartsStore creates a new carts cache store
func NewCartsStore(logger *logging.ChanneledLogger) *CartsStore {
	if logger != nil {
		logger.Cache().Info("Initializing carts cache store")
	}
	return &CartsStore{
		tenantCaches: make(map[string]*types.TenantCartCache),
		logger:       logger,
	}
}

// InitializeTenant creates cache structures for a tenant
func (cs *CartsStore) InitializeTenant(tenantID string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.tenantCaches[tenantID] == nil {
		cs.tenantCaches[tenantID] = &types.TenantCartCache{
			Carts:       make(map[string]*types.CartEntry),
			SessionToID: make(map[string]string),
			LastUpdated: time.Now().UTC(),
		}
	}
}

// GetTenantCache safely retrieves a tenant's cart cache
func (cs *CartsStore) GetTenantCache(tenantID string) (*types.TenantCartCache, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	cache, exists := cs.tenantCaches[tenantID]
	return cache, exists
}

// Get retrieves a cart by id, honoring the entry TTL.
func (cs *CartsStore) Get(tenantID, id string) (*checkout.Cart, bool) {
	start := time.Now()
	cache, exists := cs.GetTenantCache(tenantID)
	if !exists {
		return nil, false
	}

	cache.Mu.RLock()
	defer cache.Mu.RUnlock()

	entry, found := cache.Carts[id]
	if !found || time.Now().After(entry.ExpiresAt) {
		if cs.logger != nil {
			cs.logger.Cache().Debug("Cache operation", "operation", "get", "type", "cart", "tenantId", tenantID, "cartId", id, "hit", false, "duration", time.Since(start))
		}
		return nil, false
	}
	if cs.logger != nil {
		cs.logger.Cache().Debug("Cache operation", "operation", "get", "type", "cart", "tenantId", tenantID, "cartId", id, "hit", true, "duration", time.Since(start))
	}
	return entry.Cart, true
}

// GetBySession resolves a cart through the session index.
func (cs *CartsStore) GetBySession(tenantID, sessionID string) (*checkout.Cart, bool) {
	cache, exists := cs.GetTenantCache(tenantID)
	if !exists {
		return nil, false
	}

	cache.Mu.RLock()
	cartID, found := cache.SessionToID[sessionID]
	cache.Mu.RUnlock()
	if !found {
		return nil, false
	}
	return cs.Get(tenantID, cartID)
}

// Set stores a cart with the configured cart TTL.
func (cs *CartsStore) Set(tenantID string, cart *checkout.Cart) {
	cache, exists := cs.GetTenantCache(tenantID)
	if !exists {
		cs.InitializeTenant(tenantID)
		cache, _ = cs.GetTenantCache(tenantID)
	}

	cache.Mu.Lock()
	defer cache.Mu.Unlock()

	cache.Carts[cart.ID] = &types.CartEntry{
		Cart:      cart,
		ExpiresAt: time.Now().Add(config.CartCacheTTL),
	}
	if cart.SessionID != "" {
		cache.SessionToID[cart.SessionID] = cart.ID
	}
	cache.LastUpdated = time.Now().UTC()
}

// Invalidate drops a single cart and its session index entry.
func (cs *CartsStore) Invalidate(tenantID, id string) {
	cache, exists := cs.GetTenantCache(tenantID)
	if !exists {
		return
	}

	cache.Mu.Lock()
	defer cache.Mu.Unlock()

	if entry, found := cache.Carts[id]; found {
		if entry.Cart != nil && entry.Cart.SessionID != "" {
			delete(cache.SessionToID, entry.Cart.SessionID)
		}
		delete(cache.Carts, id)
	}
	cache.LastUpdated = time.Now().UTC()
}

// AllIDs returns every cached cart id for a tenant.
func (cs *CartsStore) AllIDs(tenantID string) []string {
	cache, exists := cs.GetTenantCache(tenantID)
	if !exists {
		return nil
	}

	cache.Mu.RLock()
	defer cache.Mu.RUnlock()

	ids := make([]string, 0, len(cache.Carts))
	for id := range cache.Carts {
		ids = append(ids, id)
	}
	return ids
}

// PurgeExpired evicts entries past their TTL, returning the count removed.
func (cs *CartsStore) PurgeExpired(tenantID string) int {
	cache, exists := cs.GetTenantCache(tenantID)
	if !exists {
		return 0
	}

	cache.Mu.Lock()
	defer cache.Mu.Unlock()

	now := time.Now()
	removed := 0
	for id, entry := range cache.Carts {
		if now.After(entry.ExpiresAt) {
			if entry.Cart != nil && entry.Cart.SessionID != "" {
				delete(cache.SessionToID, entry.Cart.SessionID)
			}
			delete(cache.Carts, id)
			removed++
		}
	}
	return removed
}

// InvalidateTenant drops every cart for a tenant.
func (cs *CartsStore) InvalidateTenant(tenantID string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	delete(cs.tenantCaches, tenantID)
}

// Size reports cached cart count per tenant.
func (cs *CartsStore) Size(tenantID string) int {
	cache, exists := cs.GetTenantCache(tenantID)
	if !exists {
		return 0
	}
	cache.Mu.RLock()
	defer cache.Mu.RUnlock()
	return len(cache.Carts)
}
