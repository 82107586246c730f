// Package repositories defines the persistence contracts the rest of the
// application depends on. Implementations live under infrastructure.
package repositories

import (
	"time"

	"github.com/clubifyhq/checkout-go/internal/domain/entities/checkout"
	"github.com/clubifyhq/checkout-go/internal/domain/entities/flow"
)

// CartRepository persists checkout carts.
type CartRepository interface {
	FindByID(tenantID, id string) (*checkout.Cart, error)
	FindBySessionID(tenantID, sessionID string) (*checkout.Cart, error)
	Store(tenantID string, cart *checkout.Cart) error
	Update(tenantID string, cart *checkout.Cart) error
	Delete(tenantID, id string) error
	// FindIdleBefore returns active carts whose last update precedes cutoff.
	FindIdleBefore(tenantID string, cutoff time.Time) ([]*checkout.Cart, error)
	// FindAbandonedBefore returns abandoned carts whose last update precedes cutoff.
	FindAbandonedBefore(tenantID string, cutoff time.Time) ([]*checkout.Cart, error)
}

// OrderRepository persists orders produced by completed checkouts.
type OrderRepository interface {
	FindByID(tenantID, id string) (*checkout.Order, error)
	FindByCartID(tenantID, cartID string) (*checkout.Order, error)
	Store(tenantID string, order *checkout.Order) error
	Update(tenantID string, order *checkout.Order) error
	FindByPeriod(tenantID string, from, to time.Time) ([]*checkout.Order, error)
}

// FlowRepository persists flow configurations.
type FlowRepository interface {
	FindByID(tenantID, id string) (*flow.Config, error)
	FindActiveByOffer(tenantID, offerID string) (*flow.Config, error)
	FindAll(tenantID string) ([]*flow.Config, error)
	Store(tenantID string, cfg *flow.Config) error
	Update(tenantID string, cfg *flow.Config) error
	Delete(tenantID, id string) error
}

// SessionRepository persists flow sessions.
type SessionRepository interface {
	FindByID(tenantID, id string) (*flow.Session, error)
	Store(tenantID string, session *flow.Session) error
	Update(tenantID string, session *flow.Session) error
	FindIdleBefore(tenantID string, cutoff time.Time) ([]*flow.Session, error)
	// FindByFlowAndPeriod returns sessions started within [from, to) for a flow.
	FindByFlowAndPeriod(tenantID, flowID string, from, to time.Time) ([]*flow.Session, error)
}

// WebhookEndpoint is a tenant-registered delivery target.
type WebhookEndpoint struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Events    []string  `json:"events"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
}

// WebhookDelivery records one delivery attempt to an endpoint.
type WebhookDelivery struct {
	ID          string    `json:"id"`
	EndpointID  string    `json:"endpointId"`
	EventID     string    `json:"eventId"`
	EventName   string    `json:"eventName"`
	StatusCode  int       `json:"statusCode"`
	Success     bool      `json:"success"`
	Attempts    int       `json:"attempts"`
	LastError   string    `json:"lastError,omitempty"`
	DeliveredAt time.Time `json:"deliveredAt"`
}

// WebhookRepository persists endpoints and their delivery log.
type WebhookRepository interface {
	FindEndpoints(tenantID string) ([]*WebhookEndpoint, error)
	StoreEndpoint(tenantID string, endpoint *WebhookEndpoint) error
	DeleteEndpoint(tenantID, id string) error
	RecordDelivery(tenantID string, delivery *WebhookDelivery) error
	FindDeliveries(tenantID, endpointID string, limit int) ([]*WebhookDelivery, error)
}
