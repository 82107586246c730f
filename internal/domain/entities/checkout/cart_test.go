package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCart(t *testing.T) *Cart {
	t.Helper()
	cart, err := NewCart("cart-1", "sess-1", "org-1", "BRL")
	require.NoError(t, err)
	return cart
}

func addTestItem(t *testing.T, cart *Cart, id, productID string, price float64, qty int) *CartItem {
	t.Helper()
	item, err := NewCartItem(productID, "Product "+productID, price, qty)
	require.NoError(t, err)
	item.ID = id
	require.NoError(t, cart.AddItem(item))
	return item
}

func TestNewCartValidation(t *testing.T) {
	_, err := NewCart("c1", "", "org-1", "BRL")
	assert.Error(t, err, "session id is required")

	_, err = NewCart("c1", "sess-1", "org-1", "XYZ")
	assert.Error(t, err, "unsupported currency")

	cart, err := NewCart("c1", "sess-1", "org-1", "brl")
	require.NoError(t, err)
	assert.Equal(t, CartStatusActive, cart.Status)
	assert.True(t, cart.IsEmpty())
}

func TestNewCartItemValidation(t *testing.T) {
	_, err := NewCartItem("", "Widget", 10, 1)
	assert.Error(t, err)

	_, err = NewCartItem("p1", "Widget", -1, 1)
	assert.Error(t, err)

	_, err = NewCartItem("p1", "Widget", 10, 0)
	assert.Error(t, err)

	item, err := NewCartItem("p1", "Widget", 10, 2)
	require.NoError(t, err)
	assert.Equal(t, 10.0, item.BasePrice)
	assert.Equal(t, 10.0, item.OriginalPrice)
	assert.False(t, item.AddedAt.IsZero())
}

func TestCartAddItemMergesSameProduct(t *testing.T) {
	cart := newTestCart(t)
	addTestItem(t, cart, "i1", "p1", 10, 2)
	addTestItem(t, cart, "i2", "p1", 10, 3)

	assert.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.Items[0].Quantity)
	assert.Equal(t, 5, cart.ItemCount())
}

func TestCartAddItemDifferentVariantsStaySeparate(t *testing.T) {
	cart := newTestCart(t)
	itemA := addTestItem(t, cart, "i1", "p1", 10, 1)
	itemA.VariantID = "red"

	itemB, err := NewCartItem("p1", "Product p1", 10, 1)
	require.NoError(t, err)
	itemB.ID = "i2"
	itemB.VariantID = "blue"
	require.NoError(t, cart.AddItem(itemB))

	assert.Len(t, cart.Items, 2)
}

func TestCartRemoveItemUnknownIsNoop(t *testing.T) {
	cart := newTestCart(t)
	addTestItem(t, cart, "i1", "p1", 10, 1)

	cart.RemoveItem("missing")
	assert.Len(t, cart.Items, 1)

	cart.RemoveItem("i1")
	assert.True(t, cart.IsEmpty())
}

func TestCartUpdateItemQuantity(t *testing.T) {
	cart := newTestCart(t)
	addTestItem(t, cart, "i1", "p1", 10, 1)

	require.NoError(t, cart.UpdateItemQuantity("i1", 4))
	assert.Equal(t, 4, cart.Items[0].Quantity)

	assert.Error(t, cart.UpdateItemQuantity("i1", 0))
	assert.Error(t, cart.UpdateItemQuantity("missing", 2))
}

func TestCartTotalsIdentity(t *testing.T) {
	cart := newTestCart(t)
	item := addTestItem(t, cart, "i1", "p1", 100, 2)
	item.TaxRules = []ChargeRule{{Type: RuleTypePercentage, Rate: 10}}
	item.FeeRules = []ChargeRule{{Type: RuleTypeFlat, Amount: 5}}
	cart.Shipping = 15

	totals, err := cart.Totals()
	require.NoError(t, err)

	assert.Equal(t, 200.0, totals.Subtotal)
	assert.Equal(t, 20.0, totals.Taxes)
	assert.Equal(t, 5.0, totals.Fees)
	assert.Equal(t, 15.0, totals.Shipping)
	assert.Equal(t, totals.Subtotal+totals.Taxes+totals.Shipping+totals.Fees, totals.Total)
}

func TestCartTotalsEmptyCart(t *testing.T) {
	cart := newTestCart(t)
	totals, err := cart.Totals()
	require.NoError(t, err)
	assert.Equal(t, Totals{}, totals)
}

func TestChargeRuleStrictVersusPermissive(t *testing.T) {
	bad := ChargeRule{Type: "exotic"}

	_, err := bad.Apply(100, false)
	assert.Error(t, err, "strict mode rejects unknown rule types")

	charge, err := bad.Apply(100, true)
	require.NoError(t, err)
	assert.Zero(t, charge, "permissive mode zero-fills")

	negative := ChargeRule{Type: RuleTypeFlat, Amount: -5}
	_, err = negative.Apply(100, false)
	assert.Error(t, err)
	charge, err = negative.Apply(100, true)
	require.NoError(t, err)
	assert.Zero(t, charge)
}

func TestCartTotalsPermissiveCart(t *testing.T) {
	cart := newTestCart(t)
	cart.Permissive = true
	item := addTestItem(t, cart, "i1", "p1", 50, 1)
	item.TaxRules = []ChargeRule{
		{Type: "exotic"},
		{Type: RuleTypePercentage, Rate: 10},
	}

	totals, err := cart.Totals()
	require.NoError(t, err)
	assert.Equal(t, 5.0, totals.Taxes, "malformed rule contributes zero, valid rule still applies")
}

func TestApplyPercentageCoupon(t *testing.T) {
	cart := newTestCart(t)
	addTestItem(t, cart, "i1", "p1", 100, 1)
	addTestItem(t, cart, "i2", "p2", 50, 2)

	require.NoError(t, cart.ApplyCoupon(&Coupon{Code: "TEN", Type: CouponTypePercentage, Value: 10}))

	totals, err := cart.Totals()
	require.NoError(t, err)
	assert.Equal(t, 180.0, totals.Subtotal)
	assert.Equal(t, 20.0, totals.Discount)
}

func TestApplyFixedCouponAllocatesProportionally(t *testing.T) {
	cart := newTestCart(t)
	addTestItem(t, cart, "i1", "p1", 100, 1)
	addTestItem(t, cart, "i2", "p2", 300, 1)

	require.NoError(t, cart.ApplyCoupon(&Coupon{Code: "OFF40", Type: CouponTypeFixed, Value: 40}))

	// 40 split 1:3 across the two lines.
	assert.InDelta(t, 90.0, cart.Items[0].Price, 1e-9)
	assert.InDelta(t, 270.0, cart.Items[1].Price, 1e-9)

	totals, err := cart.Totals()
	require.NoError(t, err)
	assert.Equal(t, 360.0, totals.Subtotal)
	assert.Equal(t, 40.0, totals.Discount)
}

func TestFixedCouponCapsAtSubtotal(t *testing.T) {
	cart := newTestCart(t)
	addTestItem(t, cart, "i1", "p1", 30, 1)

	require.NoError(t, cart.ApplyCoupon(&Coupon{Code: "BIG", Type: CouponTypeFixed, Value: 100}))

	totals, err := cart.Totals()
	require.NoError(t, err)
	assert.Equal(t, 0.0, totals.Subtotal)
	assert.Equal(t, 30.0, totals.Discount)
}

func TestRemoveCouponRestoresBasePrices(t *testing.T) {
	cart := newTestCart(t)
	addTestItem(t, cart, "i1", "p1", 100, 1)

	require.NoError(t, cart.ApplyCoupon(&Coupon{Code: "TEN", Type: CouponTypePercentage, Value: 10}))
	assert.Equal(t, 90.0, cart.Items[0].Price)

	cart.RemoveCoupon()
	assert.Equal(t, 100.0, cart.Items[0].Price)
	assert.Nil(t, cart.Coupon)
}

func TestApplyCouponValidation(t *testing.T) {
	cart := newTestCart(t)

	assert.Error(t, cart.ApplyCoupon(nil))
	assert.Error(t, cart.ApplyCoupon(&Coupon{Code: "", Type: CouponTypeFixed, Value: 10}))
	assert.Error(t, cart.ApplyCoupon(&Coupon{Code: "NEG", Type: CouponTypeFixed, Value: -1}))
	assert.Error(t, cart.ApplyCoupon(&Coupon{Code: "ODD", Type: "bogus", Value: 10}))
}

func TestPercentageCouponAboveHundredCapsAtFree(t *testing.T) {
	cart := newTestCart(t)
	addTestItem(t, cart, "i1", "p1", 100, 1)

	require.NoError(t, cart.ApplyCoupon(&Coupon{Code: "MEGA", Type: CouponTypePercentage, Value: 150}))
	assert.Equal(t, 0.0, cart.Items[0].Price)
}

func TestCartDiscountPercentage(t *testing.T) {
	cart := newTestCart(t)
	assert.Equal(t, 0.0, cart.DiscountPercentage(), "empty cart reports zero")

	addTestItem(t, cart, "i1", "p1", 100, 1)
	require.NoError(t, cart.ApplyCoupon(&Coupon{Code: "QTR", Type: CouponTypePercentage, Value: 25}))
	assert.InDelta(t, 25.0, cart.DiscountPercentage(), 1e-9)
}

func TestCartStatusTransitions(t *testing.T) {
	cart := newTestCart(t)

	require.NoError(t, cart.MarkProcessing())
	assert.Equal(t, CartStatusProcessing, cart.Status)
	assert.Error(t, cart.MarkProcessing(), "already processing")

	require.NoError(t, cart.Complete())
	assert.Equal(t, CartStatusCompleted, cart.Status)
	assert.Error(t, cart.Abandon(), "completed carts cannot be abandoned")
	assert.Error(t, cart.Expire(), "completed carts cannot expire")
}

func TestCartAbandonAndExpire(t *testing.T) {
	cart := newTestCart(t)

	require.NoError(t, cart.Abandon())
	assert.Equal(t, CartStatusAbandoned, cart.Status)

	require.NoError(t, cart.Expire())
	assert.Equal(t, CartStatusExpired, cart.Status)

	assert.Error(t, cart.Expire(), "expired is terminal")
}

func TestDiscountedItemWithTaxAndFee(t *testing.T) {
	cart := newTestCart(t)
	item, err := NewCartItem("p1", "Course", 100, 2)
	require.NoError(t, err)
	item.ID = "i1"
	item.OriginalPrice = 150
	item.TaxRules = []ChargeRule{{Type: RuleTypeFlat, Amount: 10}}
	item.FeeRules = []ChargeRule{{Type: RuleTypePercentage, Rate: 5}}
	require.NoError(t, cart.AddItem(item))

	totals, err := cart.Totals()
	require.NoError(t, err)
	assert.Equal(t, 200.0, totals.Subtotal)
	assert.Equal(t, 100.0, totals.Discount)
	assert.Equal(t, 10.0, totals.Taxes)
	assert.Equal(t, 10.0, totals.Fees)
	assert.Equal(t, 220.0, totals.Total)
	assert.InDelta(t, 33.33, cart.DiscountPercentage(), 0.01)
}

func TestItemDiscountHelpers(t *testing.T) {
	item, err := NewCartItem("p1", "Widget", 80, 2)
	require.NoError(t, err)
	item.OriginalPrice = 100

	assert.Equal(t, 160.0, item.Subtotal())
	assert.Equal(t, 200.0, item.OriginalSubtotal())
	assert.Equal(t, 40.0, item.DiscountAmount())
	assert.InDelta(t, 20.0, item.DiscountPercentage(), 1e-9)
}
