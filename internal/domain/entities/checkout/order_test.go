package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOrderFromCart(t *testing.T) {
	cart := newTestCart(t)
	addTestItem(t, cart, "i1", "p1", 100, 2)
	require.NoError(t, cart.ApplyCoupon(&Coupon{Code: "TEN", Type: CouponTypePercentage, Value: 10}))
	cart.Shipping = 20

	customer := Customer{Name: "Maria Silva", Email: "maria@example.com"}
	order, err := NewOrderFromCart("ord-1", cart, customer, PaymentMethodPix)
	require.NoError(t, err)

	assert.Equal(t, OrderStatusPending, order.Status)
	assert.Equal(t, "cart-1", order.CartID)
	assert.Equal(t, "TEN", order.CouponCode)
	assert.Equal(t, "BRL", order.Currency)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 90.0, order.Items[0].UnitPrice, "frozen at the effective unit price")

	assert.Equal(t, 180.0, order.Totals.Subtotal)
	assert.Equal(t, 20.0, order.Totals.Shipping)
	assert.Equal(t, 200.0, order.Totals.Total)
}

func TestNewOrderFromCartValidation(t *testing.T) {
	_, err := NewOrderFromCart("ord-1", nil, Customer{Email: "a@b.c"}, PaymentMethodPix)
	assert.Error(t, err)

	empty := newTestCart(t)
	_, err = NewOrderFromCart("ord-1", empty, Customer{Email: "a@b.c"}, PaymentMethodPix)
	assert.Error(t, err, "empty cart")

	cart := newTestCart(t)
	addTestItem(t, cart, "i1", "p1", 10, 1)
	_, err = NewOrderFromCart("ord-1", cart, Customer{Name: "No Email"}, PaymentMethodPix)
	assert.Error(t, err, "customer email required")
}

func TestOrderSettlementTransitions(t *testing.T) {
	cart := newTestCart(t)
	addTestItem(t, cart, "i1", "p1", 10, 1)
	order, err := NewOrderFromCart("ord-1", cart, Customer{Name: "M", Email: "m@x.com"}, PaymentMethodCreditCard)
	require.NoError(t, err)

	require.NoError(t, order.MarkPaid("txn-123"))
	assert.Equal(t, OrderStatusPaid, order.Status)
	assert.Equal(t, "txn-123", order.GatewayTxnID)
	require.NotNil(t, order.PaidAt)

	assert.Error(t, order.MarkPaid("txn-456"), "already paid")
	assert.Error(t, order.MarkFailed(), "paid orders cannot fail")

	require.NoError(t, order.MarkRefunded())
	assert.Equal(t, OrderStatusRefunded, order.Status)
	assert.Error(t, order.MarkRefunded(), "already refunded")
}

func TestOrderMarkFailed(t *testing.T) {
	cart := newTestCart(t)
	addTestItem(t, cart, "i1", "p1", 10, 1)
	order, err := NewOrderFromCart("ord-1", cart, Customer{Name: "M", Email: "m@x.com"}, PaymentMethodBoleto)
	require.NoError(t, err)

	require.NoError(t, order.MarkFailed())
	assert.Equal(t, OrderStatusFailed, order.Status)
	assert.Error(t, order.MarkRefunded(), "failed orders cannot be refunded")
}
