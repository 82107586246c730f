// Package types defines cache data structures for multi-tenant checkout state.
package types

import (
	"sync"
	"time"

	"github.com/clubifyhq/checkout-go/internal/domain/entities/checkout"
	"github.com/clubifyhq/checkout-go/internal/domain/entities/flow"
)

// CartEntry wraps a cached cart with its expiry.
type CartEntry struct {
	Cart      *checkout.Cart
	ExpiresAt time.Time
}

// TenantCartCache holds hot carts for a single tenant.
type TenantCartCache struct {
	Carts       map[string]*CartEntry // cartId -> entry
	SessionToID map[string]string     // sessionId -> cartId
	LastUpdated time.Time
	Mu          sync.RWMutex // Exported for access
}

// FlowEntry wraps a cached flow config with its expiry.
type FlowEntry struct {
	Config    *flow.Config
	ExpiresAt time.Time
}

// SessionEntry wraps a cached flow session with its expiry.
type SessionEntry struct {
	Session   *flow.Session
	ExpiresAt time.Time
}

// TenantFlowCache holds flow configs and live sessions for a single tenant.
type TenantFlowCache struct {
	Configs     map[string]*FlowEntry    // flowId -> entry
	OfferToID   map[string]string        // offerId -> flowId
	Sessions    map[string]*SessionEntry // sessionId -> entry
	LastUpdated time.Time
	Mu          sync.RWMutex // Exported for access
}

// AnalyticsEntry wraps a computed analytics snapshot with its ETag and expiry.
type AnalyticsEntry struct {
	Snapshot  *flow.Analytics
	ETag      string
	ExpiresAt time.Time
}

// TenantAnalyticsCache holds computed flow analytics for a single tenant.
type TenantAnalyticsCache struct {
	Snapshots   map[string]*AnalyticsEntry // "flowId:period" -> entry
	LastUpdated time.Time
	Mu          sync.RWMutex // Exported for access
}
