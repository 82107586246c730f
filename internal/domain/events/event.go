package events

import (
	"time"

	"github.com/google/uuid"
)

// Event names published to the broker and delivered to tenant webhooks.
const (
	CartCreated       = "cart.created"
	CartItemAdded     = "cart.item_added"
	CartItemRemoved   = "cart.item_removed"
	CartAbandoned     = "cart.abandoned"
	CartExpired       = "cart.expired"
	CheckoutStarted   = "checkout.started"
	CheckoutCompleted = "checkout.completed"
	OrderCreated      = "order.created"
	OrderPaid         = "order.paid"
	OrderFailed       = "order.failed"
	OrderRefunded     = "order.refunded"
	FlowStepReached   = "flow.step_reached"
	FlowCompleted     = "flow.completed"
)

// Event is the envelope every published message carries.
type Event struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	OrganizationID string      `json:"organizationId"`
	OccurredAt     time.Time   `json:"occurredAt"`
	Payload        interface{} `json:"payload"`
}

// New builds an event envelope with a fresh id and UTC timestamp.
func New(name, organizationID string, payload interface{}) Event {
	return Event{
		ID:             uuid.NewString(),
		Name:           name,
		OrganizationID: organizationID,
		OccurredAt:     time.Now().UTC(),
		Payload:        payload,
	}
}
