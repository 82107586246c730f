package checkout

import (
	"fmt"
	"time"

	"github.com/clubifyhq/checkout-go/internal/domain/errs"
)

// CartStatus tracks the cart lifecycle.
type CartStatus string

const (
	CartStatusActive     CartStatus = "active"
	CartStatusProcessing CartStatus = "processing"
	CartStatusCompleted  CartStatus = "completed"
	CartStatusAbandoned  CartStatus = "abandoned"
	CartStatusExpired    CartStatus = "expired"
)

// Charge rule types. A flat rule adds a fixed amount, a percentage rule
// adds a share of the item subtotal.
const (
	RuleTypeFlat       = "flat"
	RuleTypePercentage = "percentage"
)

// ChargeRule models a single tax or fee rule attached to an item.
type ChargeRule struct {
	Name   string  `json:"name,omitempty"`
	Type   string  `json:"type"`
	Amount float64 `json:"amount,omitempty"`
	Rate   float64 `json:"rate,omitempty"`
}

// Apply computes the charge for an item subtotal. In strict mode a malformed
// rule (unknown type, negative amount/rate) is a validation error; permissive
// mode zero-fills instead.
func (r ChargeRule) Apply(subtotal float64, permissive bool) (float64, error) {
	switch r.Type {
	case RuleTypeFlat:
		if r.Amount < 0 {
			if permissive {
				return 0, nil
			}
			return 0, errs.NewValidation("amount", "flat rule amount must not be negative")
		}
		return r.Amount, nil
	case RuleTypePercentage:
		if r.Rate < 0 {
			if permissive {
				return 0, nil
			}
			return 0, errs.NewValidation("rate", "percentage rule rate must not be negative")
		}
		return subtotal * r.Rate / 100, nil
	default:
		if permissive {
			return 0, nil
		}
		return 0, errs.NewValidation("type", fmt.Sprintf("unknown charge rule type %q", r.Type))
	}
}

// CartItem is a single line in a cart. Price is the effective unit price
// (after product discount and any coupon repricing), BasePrice the unit price
// before coupon, OriginalPrice the pre-discount list price.
type CartItem struct {
	ID            string       `json:"id"`
	ProductID     string       `json:"productId"`
	VariantID     string       `json:"variantId,omitempty"`
	Name          string       `json:"name"`
	Price         float64      `json:"price"`
	BasePrice     float64      `json:"basePrice"`
	OriginalPrice float64      `json:"originalPrice"`
	Quantity      int          `json:"quantity"`
	WeightGrams   int          `json:"weightGrams,omitempty"`
	Digital       bool         `json:"digital,omitempty"`
	Subscription  bool         `json:"subscription,omitempty"`
	TaxRules      []ChargeRule `json:"taxRules,omitempty"`
	FeeRules      []ChargeRule `json:"feeRules,omitempty"`
	AddedAt       time.Time    `json:"addedAt"`
}

// NewCartItem validates and constructs a cart item. A zero original price
// defaults to the unit price (no product discount).
func NewCartItem(productID, name string, price float64, quantity int) (*CartItem, error) {
	if productID == "" {
		return nil, errs.NewValidation("productId", "product id is required")
	}
	if price < 0 {
		return nil, errs.NewValidation("price", "price must not be negative")
	}
	if quantity < 1 {
		return nil, errs.NewValidation("quantity", "quantity must be at least 1")
	}

	return &CartItem{
		ProductID:     productID,
		Name:          name,
		Price:         price,
		BasePrice:     price,
		OriginalPrice: price,
		Quantity:      quantity,
		AddedAt:       time.Now().UTC(),
	}, nil
}

// Subtotal is the effective line total: price × quantity.
func (i *CartItem) Subtotal() float64 {
	return i.Price * float64(i.Quantity)
}

// OriginalSubtotal is the pre-discount line total.
func (i *CartItem) OriginalSubtotal() float64 {
	return i.OriginalPrice * float64(i.Quantity)
}

// DiscountAmount is the absolute discount on this line, never negative.
func (i *CartItem) DiscountAmount() float64 {
	discount := i.OriginalSubtotal() - i.Subtotal()
	if discount < 0 {
		return 0
	}
	return discount
}

// DiscountPercentage is the line discount in [0, 100]. A zero original
// subtotal reports 0 rather than dividing by zero.
func (i *CartItem) DiscountPercentage() float64 {
	original := i.OriginalSubtotal()
	if original <= 0 {
		return 0
	}
	pct := i.DiscountAmount() / original * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// Taxes sums the item's tax rules over its subtotal.
func (i *CartItem) Taxes(permissive bool) (float64, error) {
	return applyRules(i.TaxRules, i.Subtotal(), permissive)
}

// Fees sums the item's fee rules over its subtotal.
func (i *CartItem) Fees(permissive bool) (float64, error) {
	return applyRules(i.FeeRules, i.Subtotal(), permissive)
}

func applyRules(rules []ChargeRule, subtotal float64, permissive bool) (float64, error) {
	total := 0.0
	for _, rule := range rules {
		charge, err := rule.Apply(subtotal, permissive)
		if err != nil {
			return 0, err
		}
		total += charge
	}
	return total, nil
}

// CouponType distinguishes fixed-amount from percentage coupons.
type CouponType string

const (
	CouponTypeFixed      CouponType = "fixed"
	CouponTypePercentage CouponType = "percentage"
)

// Coupon is a cart-level discount. Its effect is applied by repricing items
// from their base price, so the subtotal identity keeps holding.
type Coupon struct {
	Code  string     `json:"code"`
	Type  CouponType `json:"type"`
	Value float64    `json:"value"`
}

// Address is a shipping or billing address blob.
type Address struct {
	Street     string `json:"street,omitempty"`
	Number     string `json:"number,omitempty"`
	Complement string `json:"complement,omitempty"`
	District   string `json:"district,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	Country    string `json:"country,omitempty"`
	ZipCode    string `json:"zipCode,omitempty"`
}

// Totals is the cart totals snapshot, rounded to the cart currency precision.
type Totals struct {
	Subtotal float64 `json:"subtotal"`
	Discount float64 `json:"discount"`
	Taxes    float64 `json:"taxes"`
	Shipping float64 `json:"shipping"`
	Fees     float64 `json:"fees"`
	Total    float64 `json:"total"`
}

// Cart holds an in-progress checkout session's items and pricing state.
type Cart struct {
	ID              string     `json:"id"`
	SessionID       string     `json:"sessionId"`
	OrganizationID  string     `json:"organizationId"`
	OfferID         string     `json:"offerId,omitempty"`
	Items           []*CartItem `json:"items"`
	Coupon          *Coupon    `json:"coupon,omitempty"`
	ShippingAddress *Address   `json:"shippingAddress,omitempty"`
	BillingAddress  *Address   `json:"billingAddress,omitempty"`
	Currency        string     `json:"currency"`
	Shipping        float64    `json:"shipping"`
	Status          CartStatus `json:"status"`
	Permissive      bool       `json:"permissive,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// NewCart constructs an active cart for a checkout session.
func NewCart(id, sessionID, organizationID, currency string) (*Cart, error) {
	if sessionID == "" {
		return nil, errs.NewValidation("sessionId", "session id is required")
	}
	if _, err := LookupCurrency(currency); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Cart{
		ID:             id,
		SessionID:      sessionID,
		OrganizationID: organizationID,
		Items:          make([]*CartItem, 0),
		Currency:       currency,
		Status:         CartStatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// AddItem adds an item, merging quantities when the same product and variant
// is already present.
func (c *Cart) AddItem(item *CartItem) error {
	if item == nil {
		return errs.NewValidation("item", "item is required")
	}
	if item.Quantity < 1 {
		return errs.NewValidation("quantity", "quantity must be at least 1")
	}

	for _, existing := range c.Items {
		if existing.ProductID == item.ProductID && existing.VariantID == item.VariantID {
			existing.Quantity += item.Quantity
			c.touch()
			return nil
		}
	}

	c.Items = append(c.Items, item)
	c.touch()
	return nil
}

// UpdateItemQuantity sets the quantity for an item by id.
func (c *Cart) UpdateItemQuantity(itemID string, quantity int) error {
	if quantity < 1 {
		return errs.NewValidation("quantity", "quantity must be at least 1")
	}
	for _, item := range c.Items {
		if item.ID == itemID {
			item.Quantity = quantity
			c.touch()
			return nil
		}
	}
	return errs.NewValidation("itemId", fmt.Sprintf("item %s not in cart", itemID))
}

// RemoveItem removes an item by id. Removing an unknown id is a no-op.
func (c *Cart) RemoveItem(itemID string) {
	for idx, item := range c.Items {
		if item.ID == itemID {
			c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
			c.touch()
			return
		}
	}
}

// FindItem returns the item with the given id, or nil.
func (c *Cart) FindItem(itemID string) *CartItem {
	for _, item := range c.Items {
		if item.ID == itemID {
			return item
		}
	}
	return nil
}

// ItemCount is the total unit count across lines.
func (c *Cart) ItemCount() int {
	count := 0
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

// IsEmpty reports whether the cart holds no items.
func (c *Cart) IsEmpty() bool { return len(c.Items) == 0 }

// ApplyCoupon attaches a coupon and reprices items from their base price.
func (c *Cart) ApplyCoupon(coupon *Coupon) error {
	if coupon == nil || coupon.Code == "" {
		return errs.NewValidation("coupon", "coupon code is required")
	}
	if coupon.Value < 0 {
		return errs.NewValidation("coupon", "coupon value must not be negative")
	}
	switch coupon.Type {
	case CouponTypeFixed, CouponTypePercentage:
	default:
		return errs.NewValidation("coupon", fmt.Sprintf("unknown coupon type %q", coupon.Type))
	}

	c.Coupon = coupon
	c.reprice()
	c.touch()
	return nil
}

// RemoveCoupon detaches the coupon and restores base prices.
func (c *Cart) RemoveCoupon() {
	c.Coupon = nil
	c.reprice()
	c.touch()
}

// reprice recomputes effective unit prices from base prices plus the coupon.
// Fixed coupons are allocated across lines proportionally to their base
// subtotal; percentage coupons reduce every line by the same rate.
func (c *Cart) reprice() {
	for _, item := range c.Items {
		item.Price = item.BasePrice
	}
	if c.Coupon == nil {
		return
	}

	switch c.Coupon.Type {
	case CouponTypePercentage:
		rate := c.Coupon.Value
		if rate > 100 {
			rate = 100
		}
		for _, item := range c.Items {
			item.Price = item.BasePrice * (1 - rate/100)
		}
	case CouponTypeFixed:
		baseSubtotal := 0.0
		for _, item := range c.Items {
			baseSubtotal += item.BasePrice * float64(item.Quantity)
		}
		if baseSubtotal <= 0 {
			return
		}
		discount := c.Coupon.Value
		if discount > baseSubtotal {
			discount = baseSubtotal
		}
		for _, item := range c.Items {
			lineBase := item.BasePrice * float64(item.Quantity)
			lineShare := discount * lineBase / baseSubtotal
			item.Price = item.BasePrice - lineShare/float64(item.Quantity)
		}
	}
}

// Totals computes the totals snapshot:
// subtotal Σ(price×qty), discount Σ(origPrice×qty) − subtotal, per-item taxes
// and fees from charge rules, total = subtotal + taxes + shipping + fees.
// The discount is already netted into the subtotal through effective prices.
func (c *Cart) Totals() (Totals, error) {
	subtotal := 0.0
	original := 0.0
	taxes := 0.0
	fees := 0.0

	for _, item := range c.Items {
		subtotal += item.Subtotal()
		original += item.OriginalSubtotal()

		itemTaxes, err := item.Taxes(c.Permissive)
		if err != nil {
			return Totals{}, err
		}
		taxes += itemTaxes

		itemFees, err := item.Fees(c.Permissive)
		if err != nil {
			return Totals{}, err
		}
		fees += itemFees
	}

	discount := original - subtotal
	if discount < 0 {
		discount = 0
	}

	subtotal = RoundAmount(subtotal, c.Currency)
	discount = RoundAmount(discount, c.Currency)
	taxes = RoundAmount(taxes, c.Currency)
	fees = RoundAmount(fees, c.Currency)
	shipping := RoundAmount(c.Shipping, c.Currency)

	return Totals{
		Subtotal: subtotal,
		Discount: discount,
		Taxes:    taxes,
		Shipping: shipping,
		Fees:     fees,
		Total:    RoundAmount(subtotal+taxes+shipping+fees, c.Currency),
	}, nil
}

// DiscountPercentage is the cart-level discount in [0, 100], 0 when the
// original subtotal is 0.
func (c *Cart) DiscountPercentage() float64 {
	original := 0.0
	current := 0.0
	for _, item := range c.Items {
		original += item.OriginalSubtotal()
		current += item.Subtotal()
	}
	if original <= 0 {
		return 0
	}
	pct := (original - current) / original * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// MarkProcessing moves an active cart into payment processing.
func (c *Cart) MarkProcessing() error {
	return c.transition(CartStatusProcessing, CartStatusActive)
}

// Complete marks the cart completed once an order has been produced.
func (c *Cart) Complete() error {
	return c.transition(CartStatusCompleted, CartStatusActive, CartStatusProcessing)
}

// Abandon marks an active cart abandoned.
func (c *Cart) Abandon() error {
	return c.transition(CartStatusAbandoned, CartStatusActive)
}

// Expire marks an active or abandoned cart expired.
func (c *Cart) Expire() error {
	return c.transition(CartStatusExpired, CartStatusActive, CartStatusAbandoned)
}

func (c *Cart) transition(to CartStatus, from ...CartStatus) error {
	for _, status := range from {
		if c.Status == status {
			c.Status = to
			c.touch()
			return nil
		}
	}
	return errs.NewValidation("status", fmt.Sprintf("cannot transition cart from %s to %s", c.Status, to))
}

func (c *Cart) touch() {
	c.UpdatedAt = time.Now().UTC()
}
