package messaging

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/clubifyhq/checkout-go/internal/infrastructure/caching/manager"
	"github.com/clubifyhq/checkout-go/pkg/config"
)

// LiveClient represents a single connected operator dashboard client.
type LiveClient struct {
	Conn     *websocket.Conn
	TenantID string
	Send     chan []byte
}

// CheckoutActivity is one session's state for the live funnel view.
type CheckoutActivity struct {
	Status       string    `json:"status"`
	CurrentStep  string    `json:"currentStep,omitempty"`
	HasCart      bool      `json:"hasCart"`
	LastActivity time.Time `json:"lastActivity"`
}

// ActivityPayload is the complete data structure sent to the dashboard on each tick.
type ActivityPayload struct {
	Sessions     []CheckoutActivity `json:"sessions"`
	TotalCount   int                `json:"totalCount"`
	ActiveCount  int                `json:"activeCount"`
	DormantCount int                `json:"dormantCount"`
	CartCount    int                `json:"cartCount"`
}

// LiveBroadcaster manages connected dashboard clients and pushes each
// tenant's live checkout activity on a fixed cadence.
type LiveBroadcaster struct {
	tenantClients map[string]map[*LiveClient]bool
	register      chan *LiveClient
	unregister    chan *LiveClient
	cacheManager  *manager.Manager
	mu            sync.RWMutex
}

// NewLiveBroadcaster creates a new broadcaster instance.
func NewLiveBroadcaster(cm *manager.Manager) *LiveBroadcaster {
	return &LiveBroadcaster{
		tenantClients: make(map[string]map[*LiveClient]bool),
		register:      make(chan *LiveClient),
		unregister:    make(chan *LiveClient),
		cacheManager:  cm,
	}
}

// Run starts the broadcaster's main loop and returns when the context is
// cancelled. This should be run as a goroutine.
func (b *LiveBroadcaster) Run(ctx context.Context) {
	ticker := time.NewTicker(config.LiveFeedInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-b.register:
			b.mu.Lock()
			if _, ok := b.tenantClients[client.TenantID]; !ok {
				b.tenantClients[client.TenantID] = make(map[*LiveClient]bool)
			}
			b.tenantClients[client.TenantID][client] = true
			log.Printf("Live feed client registered for tenant: %s", client.TenantID)
			b.mu.Unlock()

		case client := <-b.unregister:
			b.mu.Lock()
			if clients, ok := b.tenantClients[client.TenantID]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.Send)
					if len(clients) == 0 {
						delete(b.tenantClients, client.TenantID)
					}
				}
			}
			log.Printf("Live feed client unregistered for tenant: %s", client.TenantID)
			b.mu.Unlock()

		case <-ticker.C:
			b.broadcastActivity()
		}
	}
}

// Register queues a client for registration.
func (b *LiveBroadcaster) Register(client *LiveClient) {
	b.register <- client
}

// Unregister queues a client for unregistration.
func (b *LiveBroadcaster) Unregister(client *LiveClient) {
	b.unregister <- client
}

// broadcastActivity gathers and sends activity state for all tenants with
// connected clients.
func (b *LiveBroadcaster) broadcastActivity() {
	b.mu.RLock()
	tenantIDs := make([]string, 0, len(b.tenantClients))
	for tenantID := range b.tenantClients {
		tenantIDs = append(tenantIDs, tenantID)
	}
	b.mu.RUnlock()

	for _, tenantID := range tenantIDs {
		payload := b.activityForTenant(tenantID)

		message, err := json.Marshal(payload)
		if err != nil {
			log.Printf("Error marshaling activity for tenant %s: %v", tenantID, err)
			continue
		}

		b.mu.RLock()
		if clients, ok := b.tenantClients[tenantID]; ok {
			for client := range clients {
				select {
				case client.Send <- message:
				default:
				}
			}
		}
		b.mu.RUnlock()
	}
}

// activityForTenant reads the tenant's cached sessions and carts. Only hot
// cache state is consulted; the feed never touches the database.
func (b *LiveBroadcaster) activityForTenant(tenantID string) ActivityPayload {
	payload := ActivityPayload{Sessions: make([]CheckoutActivity, 0)}
	now := time.Now()

	for _, sessionID := range b.cacheManager.GetAllFlowSessionIDs(tenantID) {
		session, found := b.cacheManager.GetFlowSession(tenantID, sessionID)
		if !found {
			continue
		}

		activity := CheckoutActivity{
			Status:       string(session.Status),
			CurrentStep:  session.CurrentStepID,
			HasCart:      session.CartID != "",
			LastActivity: session.LastActivityAt,
		}
		payload.Sessions = append(payload.Sessions, activity)

		payload.TotalCount++
		if now.Sub(session.LastActivityAt).Minutes() <= 15 {
			payload.ActiveCount++
		} else {
			payload.DormantCount++
		}
		if activity.HasCart {
			payload.CartCount++
		}
	}

	return payload
}

// WritePump pumps messages from the broadcaster to the websocket connection.
func (c *LiveClient) WritePump(b *LiveBroadcaster) {
	defer func() {
		b.Unregister(c)
		c.Conn.Close()
	}()

	for message := range c.Send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// ReadPump drains the connection so pings and close frames are processed.
func (c *LiveClient) ReadPump(b *LiveBroadcaster) {
	defer func() {
		b.Unregister(c)
		c.Conn.Close()
	}()

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			return
		}
	}
}
