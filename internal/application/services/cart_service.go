// Package services provides application-level services that orchestrate
// business logic and coordinate between repositories and domain entities.
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/clubifyhq/checkout-go/internal/domain/entities/checkout"
	"github.com/clubifyhq/checkout-go/internal/domain/errs"
	"github.com/clubifyhq/checkout-go/internal/domain/events"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/messaging"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/observability/logging"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/security"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/tenant"
	"github.com/clubifyhq/checkout-go/pkg/config"
	"github.com/clubifyhq/checkout-go/pkg/document"
)

// CartService orchestrates cart operations with cache-first repository pattern
type CartService struct {
	publisher messaging.EventPublisher
	webhooks  *WebhookService
	logger    *logging.ChanneledLogger
}

// NewCartService creates a new cart service singleton
func NewCartService(publisher messaging.EventPublisher, webhooks *WebhookService, logger *logging.ChanneledLogger) *CartService {
	return &CartService{
		publisher: publisher,
		webhooks:  webhooks,
		logger:    logger,
	}
}

// AddItemRequest carries one line to add to a cart. A zero OriginalPrice
// means the product carries no list discount.
type AddItemRequest struct {
	ProductID     string                `json:"productId"`
	VariantID     string                `json:"variantId,omitempty"`
	Name          string                `json:"name"`
	Price         float64               `json:"price"`
	OriginalPrice float64               `json:"originalPrice,omitempty"`
	Quantity      int                   `json:"quantity"`
	Digital       bool                  `json:"digital,omitempty"`
	TaxRules      []checkout.ChargeRule `json:"taxRules,omitempty"`
	FeeRules      []checkout.ChargeRule `json:"feeRules,omitempty"`
}

// Create opens a new cart for a checkout session.
func (s *CartService) Create(tenantCtx *tenant.Context, sessionID, offerID, currency string, permissive bool) (*checkout.Cart, error) {
	start := time.Now()

	if currency == "" {
		currency = tenantCtx.Config.DefaultCurrency
	}
	if currency == "" {
		currency = "BRL"
	}

	cart, err := checkout.NewCart(security.GenerateULID(), sessionID, tenantCtx.TenantID, currency)
	if err != nil {
		return nil, err
	}
	cart.OfferID = offerID
	cart.Permissive = permissive

	if err := tenantCtx.CartRepo().Store(tenantCtx.TenantID, cart); err != nil {
		return nil, fmt.Errorf("failed to store cart: %w", err)
	}

	s.emit(tenantCtx, events.CartCreated, map[string]any{"cartId": cart.ID, "sessionId": sessionID, "currency": currency})
	s.logger.Cart().Info("Cart created", "tenantId", tenantCtx.TenantID, "cartId", cart.ID, "currency", currency, "duration", time.Since(start))

	return cart, nil
}

// Get returns a cart by id (cache-first via repository).
func (s *CartService) Get(tenantCtx *tenant.Context, id string) (*checkout.Cart, error) {
	if id == "" {
		return nil, errs.NewValidation("cartId", "cart id is required")
	}
	cart, err := tenantCtx.CartRepo().FindByID(tenantCtx.TenantID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart %s: %w", id, err)
	}
	return cart, nil
}

// GetBySession returns the cart bound to a checkout session.
func (s *CartService) GetBySession(tenantCtx *tenant.Context, sessionID string) (*checkout.Cart, error) {
	if sessionID == "" {
		return nil, errs.NewValidation("sessionId", "session id is required")
	}
	cart, err := tenantCtx.CartRepo().FindBySessionID(tenantCtx.TenantID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart for session %s: %w", sessionID, err)
	}
	return cart, nil
}

// AddItem adds a line to the cart, merging quantities on repeat products.
func (s *CartService) AddItem(tenantCtx *tenant.Context, cartID string, req *AddItemRequest) (*checkout.Cart, error) {
	cart, err := s.requireActiveCart(tenantCtx, cartID)
	if err != nil {
		return nil, err
	}

	item, err := checkout.NewCartItem(req.ProductID, req.Name, req.Price, req.Quantity)
	if err != nil {
		return nil, err
	}
	item.ID = security.GenerateULID()
	item.VariantID = req.VariantID
	item.Digital = req.Digital
	item.TaxRules = req.TaxRules
	item.FeeRules = req.FeeRules
	if req.OriginalPrice > req.Price {
		item.OriginalPrice = req.OriginalPrice
	}

	if err := cart.AddItem(item); err != nil {
		return nil, err
	}

	// Re-allocate an attached coupon across the new line mix.
	if cart.Coupon != nil {
		coupon := cart.Coupon
		if err := cart.ApplyCoupon(coupon); err != nil {
			return nil, err
		}
	}

	if err := tenantCtx.CartRepo().Update(tenantCtx.TenantID, cart); err != nil {
		return nil, fmt.Errorf("failed to update cart %s: %w", cartID, err)
	}

	s.emit(tenantCtx, events.CartItemAdded, map[string]any{"cartId": cart.ID, "productId": req.ProductID, "quantity": req.Quantity})
	return cart, nil
}

// UpdateItemQuantity sets a line's quantity.
func (s *CartService) UpdateItemQuantity(tenantCtx *tenant.Context, cartID, itemID string, quantity int) (*checkout.Cart, error) {
	cart, err := s.requireActiveCart(tenantCtx, cartID)
	if err != nil {
		return nil, err
	}

	if err := cart.UpdateItemQuantity(itemID, quantity); err != nil {
		return nil, err
	}
	if cart.Coupon != nil {
		if err := cart.ApplyCoupon(cart.Coupon); err != nil {
			return nil, err
		}
	}

	if err := tenantCtx.CartRepo().Update(tenantCtx.TenantID, cart); err != nil {
		return nil, fmt.Errorf("failed to update cart %s: %w", cartID, err)
	}
	return cart, nil
}

// RemoveItem drops a line from the cart. Unknown item ids are a no-op.
func (s *CartService) RemoveItem(tenantCtx *tenant.Context, cartID, itemID string) (*checkout.Cart, error) {
	cart, err := s.requireActiveCart(tenantCtx, cartID)
	if err != nil {
		return nil, err
	}

	cart.RemoveItem(itemID)
	if cart.Coupon != nil {
		if err := cart.ApplyCoupon(cart.Coupon); err != nil {
			return nil, err
		}
	}

	if err := tenantCtx.CartRepo().Update(tenantCtx.TenantID, cart); err != nil {
		return nil, fmt.Errorf("failed to update cart %s: %w", cartID, err)
	}

	s.emit(tenantCtx, events.CartItemRemoved, map[string]any{"cartId": cart.ID, "itemId": itemID})
	return cart, nil
}

// ApplyCoupon attaches a coupon and reprices the cart.
func (s *CartService) ApplyCoupon(tenantCtx *tenant.Context, cartID string, coupon *checkout.Coupon) (*checkout.Cart, error) {
	cart, err := s.requireActiveCart(tenantCtx, cartID)
	if err != nil {
		return nil, err
	}

	if err := cart.ApplyCoupon(coupon); err != nil {
		return nil, err
	}

	if err := tenantCtx.CartRepo().Update(tenantCtx.TenantID, cart); err != nil {
		return nil, fmt.Errorf("failed to update cart %s: %w", cartID, err)
	}
	return cart, nil
}

// RemoveCoupon detaches the coupon and restores base prices.
func (s *CartService) RemoveCoupon(tenantCtx *tenant.Context, cartID string) (*checkout.Cart, error) {
	cart, err := s.requireActiveCart(tenantCtx, cartID)
	if err != nil {
		return nil, err
	}

	cart.RemoveCoupon()
	if err := tenantCtx.CartRepo().Update(tenantCtx.TenantID, cart); err != nil {
		return nil, fmt.Errorf("failed to update cart %s: %w", cartID, err)
	}
	return cart, nil
}

// SetShipping updates the shipping cost and optional addresses.
func (s *CartService) SetShipping(tenantCtx *tenant.Context, cartID string, cost float64, shipping, billing *checkout.Address) (*checkout.Cart, error) {
	if cost < 0 {
		return nil, errs.NewValidation("shipping", "shipping cost must not be negative")
	}

	cart, err := s.requireActiveCart(tenantCtx, cartID)
	if err != nil {
		return nil, err
	}

	cart.Shipping = cost
	if shipping != nil {
		if err := validateAddress(shipping); err != nil {
			return nil, err
		}
		cart.ShippingAddress = shipping
	}
	if billing != nil {
		if err := validateAddress(billing); err != nil {
			return nil, err
		}
		cart.BillingAddress = billing
	}

	if err := tenantCtx.CartRepo().Update(tenantCtx.TenantID, cart); err != nil {
		return nil, fmt.Errorf("failed to update cart %s: %w", cartID, err)
	}
	return cart, nil
}

// validateAddress checks the CEP format for Brazilian addresses. Other
// countries carry free-form postal codes.
func validateAddress(addr *checkout.Address) error {
	if addr.ZipCode == "" {
		return nil
	}
	country := strings.ToUpper(addr.Country)
	if (country == "" || country == "BR") && !document.IsValidCEP(addr.ZipCode) {
		return errs.NewValidation("zipCode", fmt.Sprintf("%q is not a valid CEP", addr.ZipCode))
	}
	return nil
}

// Totals computes the cart's totals snapshot.
func (s *CartService) Totals(tenantCtx *tenant.Context, cartID string) (checkout.Totals, error) {
	cart, err := s.Get(tenantCtx, cartID)
	if err != nil {
		return checkout.Totals{}, err
	}
	if cart == nil {
		return checkout.Totals{}, errs.NewValidation("cartId", fmt.Sprintf("cart %s not found", cartID))
	}
	return cart.Totals()
}

// SweepLifecycle abandons idle active carts and expires stale abandoned ones.
// Invoked by the cleanup worker on its cadence.
func (s *CartService) SweepLifecycle(tenantCtx *tenant.Context) (abandoned, expired int, err error) {
	start := time.Now()
	repo := tenantCtx.CartRepo()
	now := time.Now().UTC()

	idle, err := repo.FindIdleBefore(tenantCtx.TenantID, now.Add(-config.CartAbandonAfter))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to find idle carts: %w", err)
	}
	for _, cart := range idle {
		if err := cart.Abandon(); err != nil {
			continue
		}
		if err := repo.Update(tenantCtx.TenantID, cart); err != nil {
			s.logger.Cart().Error("Failed to persist abandoned cart", "tenantId", tenantCtx.TenantID, "cartId", cart.ID, "error", err)
			continue
		}
		s.emit(tenantCtx, events.CartAbandoned, map[string]any{"cartId": cart.ID, "sessionId": cart.SessionID})
		abandoned++
	}

	stale, err := repo.FindAbandonedBefore(tenantCtx.TenantID, now.Add(-config.CartExpireAfter))
	if err != nil {
		return abandoned, 0, fmt.Errorf("failed to find stale carts: %w", err)
	}
	for _, cart := range stale {
		if err := cart.Expire(); err != nil {
			continue
		}
		if err := repo.Update(tenantCtx.TenantID, cart); err != nil {
			s.logger.Cart().Error("Failed to persist expired cart", "tenantId", tenantCtx.TenantID, "cartId", cart.ID, "error", err)
			continue
		}
		s.emit(tenantCtx, events.CartExpired, map[string]any{"cartId": cart.ID})
		expired++
	}

	if abandoned > 0 || expired > 0 {
		s.logger.Cart().Info("Cart lifecycle sweep completed", "tenantId", tenantCtx.TenantID, "abandoned", abandoned, "expired", expired, "duration", time.Since(start))
	}
	return abandoned, expired, nil
}

func (s *CartService) requireActiveCart(tenantCtx *tenant.Context, cartID string) (*checkout.Cart, error) {
	cart, err := s.Get(tenantCtx, cartID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, errs.NewValidation("cartId", fmt.Sprintf("cart %s not found", cartID))
	}
	if cart.Status != checkout.CartStatusActive {
		return nil, errs.NewValidation("status", fmt.Sprintf("cart %s is %s", cartID, cart.Status))
	}
	return cart, nil
}

// emit publishes to the broker and fans out to tenant webhooks. Delivery
// failures are logged, never surfaced to the caller.
func (s *CartService) emit(tenantCtx *tenant.Context, name string, payload map[string]any) {
	event := events.New(name, tenantCtx.TenantID, payload)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Events().Error("Failed to publish event", "tenantId", tenantCtx.TenantID, "event", name, "error", err)
	}

	if s.webhooks != nil {
		go s.webhooks.Dispatch(tenantCtx, event)
	}
}
