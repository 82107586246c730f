package checkout

import (
	"time"

	"github.com/clubifyhq/checkout-go/internal/domain/errs"
)

// OrderStatus tracks an order from creation through settlement.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusPaid       OrderStatus = "paid"
	OrderStatusFailed     OrderStatus = "failed"
	OrderStatusRefunded   OrderStatus = "refunded"
	OrderStatusChargeback OrderStatus = "chargeback"
)

// PaymentMethod identifies how an order is paid.
type PaymentMethod string

const (
	PaymentMethodCreditCard PaymentMethod = "credit_card"
	PaymentMethodPix        PaymentMethod = "pix"
	PaymentMethodBoleto     PaymentMethod = "boleto"
)

// Customer is the buyer attached to an order.
type Customer struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Document string `json:"document,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

// OrderItem is a cart line frozen at checkout time.
type OrderItem struct {
	ProductID string  `json:"productId"`
	VariantID string  `json:"variantId,omitempty"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unitPrice"`
	Quantity  int     `json:"quantity"`
}

// Order is the outcome of a completed checkout. Totals are a snapshot taken
// when the cart converted, not recomputed afterwards.
type Order struct {
	ID             string        `json:"id"`
	CartID         string        `json:"cartId"`
	SessionID      string        `json:"sessionId"`
	OrganizationID string        `json:"organizationId"`
	FlowID         string        `json:"flowId,omitempty"`
	Customer       Customer      `json:"customer"`
	Items          []OrderItem   `json:"items"`
	Totals         Totals        `json:"totals"`
	Currency       string        `json:"currency"`
	PaymentMethod  PaymentMethod `json:"paymentMethod"`
	GatewayTxnID   string        `json:"gatewayTransactionId,omitempty"`
	Installments   int           `json:"installments,omitempty"`
	CouponCode     string        `json:"couponCode,omitempty"`
	Status         OrderStatus   `json:"status"`
	CreatedAt      time.Time     `json:"createdAt"`
	PaidAt         *time.Time    `json:"paidAt,omitempty"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

// NewOrderFromCart freezes a cart into a pending order. The cart must be
// non-empty and its totals must compute cleanly.
func NewOrderFromCart(id string, cart *Cart, customer Customer, method PaymentMethod) (*Order, error) {
	if cart == nil || cart.IsEmpty() {
		return nil, errs.NewValidation("cart", "cannot create an order from an empty cart")
	}
	if customer.Email == "" {
		return nil, errs.NewValidation("email", "customer email is required")
	}
	totals, err := cart.Totals()
	if err != nil {
		return nil, err
	}

	items := make([]OrderItem, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, OrderItem{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Name:      item.Name,
			UnitPrice: RoundAmount(item.Price, cart.Currency),
			Quantity:  item.Quantity,
		})
	}

	couponCode := ""
	if cart.Coupon != nil {
		couponCode = cart.Coupon.Code
	}

	now := time.Now().UTC()
	return &Order{
		ID:             id,
		CartID:         cart.ID,
		SessionID:      cart.SessionID,
		OrganizationID: cart.OrganizationID,
		Customer:       customer,
		Items:          items,
		Totals:         totals,
		Currency:       cart.Currency,
		PaymentMethod:  method,
		CouponCode:     couponCode,
		Status:         OrderStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// MarkPaid records a successful gateway capture.
func (o *Order) MarkPaid(gatewayTxnID string) error {
	if o.Status != OrderStatusPending {
		return errs.NewValidation("status", "only pending orders can be marked paid")
	}
	now := time.Now().UTC()
	o.Status = OrderStatusPaid
	o.GatewayTxnID = gatewayTxnID
	o.PaidAt = &now
	o.UpdatedAt = now
	return nil
}

// MarkFailed records a declined or errored payment attempt.
func (o *Order) MarkFailed() error {
	if o.Status != OrderStatusPending {
		return errs.NewValidation("status", "only pending orders can be marked failed")
	}
	o.Status = OrderStatusFailed
	o.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkRefunded records a refund of a paid order.
func (o *Order) MarkRefunded() error {
	if o.Status != OrderStatusPaid {
		return errs.NewValidation("status", "only paid orders can be refunded")
	}
	o.Status = OrderStatusRefunded
	o.UpdatedAt = time.Now().UTC()
	return nil
}
