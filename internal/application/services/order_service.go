package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/clubifyhq/checkout-go/internal/domain/entities/checkout"
	"github.com/clubifyhq/checkout-go/internal/domain/errs"
	"github.com/clubifyhq/checkout-go/internal/domain/events"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/email"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/gateway"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/messaging"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/observability/logging"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/security"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/tenant"
	"github.com/clubifyhq/checkout-go/pkg/document"
)

// OrderService drives checkout completion: it freezes a cart into an order,
// charges the payment gateway, and settles the outcome.
type OrderService struct {
	gateway   *gateway.Client
	publisher messaging.EventPublisher
	webhooks  *WebhookService
	email     email.Service
	logger    *logging.ChanneledLogger
}

// NewOrderService creates a new order service singleton. The email service
// may be nil when receipts are disabled.
func NewOrderService(gw *gateway.Client, publisher messaging.EventPublisher, webhooks *WebhookService, emailSvc email.Service, logger *logging.ChanneledLogger) *OrderService {
	return &OrderService{
		gateway:   gw,
		publisher: publisher,
		webhooks:  webhooks,
		email:     emailSvc,
		logger:    logger,
	}
}

// CheckoutRequest carries everything needed to convert a cart into a paid order.
type CheckoutRequest struct {
	CartID        string                 `json:"cartId"`
	Customer      checkout.Customer      `json:"customer"`
	PaymentMethod checkout.PaymentMethod `json:"paymentMethod"`
	CardToken     string                 `json:"cardToken,omitempty"`
	Installments  int                    `json:"installments,omitempty"`
}

// Checkout converts the cart into an order and attempts the charge. A
// declined charge marks the order failed and surfaces the gateway's business
// error; transient gateway trouble leaves the order pending for retry.
func (s *OrderService) Checkout(ctx context.Context, tenantCtx *tenant.Context, req *CheckoutRequest) (*checkout.Order, error) {
	start := time.Now()

	if fieldErrs := validateCustomer(&req.Customer); len(fieldErrs) > 0 {
		return nil, &fieldErrs[0]
	}
	if req.PaymentMethod == checkout.PaymentMethodCreditCard && req.CardToken == "" {
		return nil, errs.NewValidation("cardToken", "card token is required for credit card payments")
	}

	cartRepo := tenantCtx.CartRepo()
	cart, err := cartRepo.FindByID(tenantCtx.TenantID, req.CartID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart %s: %w", req.CartID, err)
	}
	if cart == nil {
		return nil, errs.NewValidation("cartId", fmt.Sprintf("cart %s not found", req.CartID))
	}

	existing, err := tenantCtx.OrderRepo().FindByCartID(tenantCtx.TenantID, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check for existing order: %w", err)
	}
	if existing != nil {
		return nil, errs.NewValidation("cartId", fmt.Sprintf("cart %s already has order %s", cart.ID, existing.ID))
	}

	if err := cart.MarkProcessing(); err != nil {
		return nil, err
	}
	if err := cartRepo.Update(tenantCtx.TenantID, cart); err != nil {
		return nil, fmt.Errorf("failed to update cart %s: %w", cart.ID, err)
	}

	order, err := checkout.NewOrderFromCart(security.GenerateULID(), cart, req.Customer, req.PaymentMethod)
	if err != nil {
		return nil, err
	}
	order.Installments = req.Installments

	if err := tenantCtx.OrderRepo().Store(tenantCtx.TenantID, order); err != nil {
		return nil, fmt.Errorf("failed to store order: %w", err)
	}
	s.emit(tenantCtx, events.OrderCreated, map[string]any{"orderId": order.ID, "cartId": cart.ID, "total": order.Totals.Total, "currency": order.Currency})

	resp, err := s.gateway.Charge(ctx, tenantCtx.Config.GatewayAPIKey, &gateway.ChargeRequest{
		OrderID:       order.ID,
		Amount:        order.Totals.Total,
		Currency:      order.Currency,
		PaymentMethod: string(order.PaymentMethod),
		Installments:  order.Installments,
		CardToken:     req.CardToken,
		CustomerEmail: order.Customer.Email,
		CustomerDoc:   order.Customer.Document,
	})
	if err != nil {
		var bizErr *errs.BusinessError
		if errors.As(err, &bizErr) {
			s.settleFailure(tenantCtx, cart, order)
			return order, err
		}
		// Transient gateway trouble: the order stays pending for retry.
		s.logger.Order().Error("Gateway charge did not settle", "tenantId", tenantCtx.TenantID, "orderId", order.ID, "error", err)
		return order, err
	}

	switch resp.Status {
	case "approved":
		s.settleSuccess(tenantCtx, cart, order, resp.TransactionID)
	case "pending":
		// Pix and boleto settle asynchronously through the gateway webhook.
		order.GatewayTxnID = resp.TransactionID
		if err := tenantCtx.OrderRepo().Update(tenantCtx.TenantID, order); err != nil {
			s.logger.Order().Error("Failed to persist pending order", "tenantId", tenantCtx.TenantID, "orderId", order.ID, "error", err)
		}
	default:
		s.settleFailure(tenantCtx, cart, order)
		return order, &errs.BusinessError{Operation: "charge", StatusCode: 402, Code: "payment_declined", Message: resp.DeclineReason}
	}

	s.logger.Order().Info("Checkout completed", "tenantId", tenantCtx.TenantID, "orderId", order.ID, "status", order.Status, "total", order.Totals.Total, "duration", time.Since(start))
	return order, nil
}

// ConfirmPayment settles an order from an asynchronous gateway notification,
// used for pix and boleto payments.
func (s *OrderService) ConfirmPayment(tenantCtx *tenant.Context, orderID, gatewayTxnID string, approved bool) (*checkout.Order, error) {
	order, err := s.Get(tenantCtx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, errs.NewValidation("orderId", fmt.Sprintf("order %s not found", orderID))
	}

	cart, err := tenantCtx.CartRepo().FindByID(tenantCtx.TenantID, order.CartID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart %s: %w", order.CartID, err)
	}

	if approved {
		s.settleSuccess(tenantCtx, cart, order, gatewayTxnID)
	} else {
		s.settleFailure(tenantCtx, cart, order)
	}
	return order, nil
}

// Refund returns the full captured amount for a paid order.
func (s *OrderService) Refund(ctx context.Context, tenantCtx *tenant.Context, orderID string) (*checkout.Order, error) {
	order, err := s.Get(tenantCtx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, errs.NewValidation("orderId", fmt.Sprintf("order %s not found", orderID))
	}
	if order.GatewayTxnID == "" {
		return nil, errs.NewValidation("orderId", fmt.Sprintf("order %s has no gateway transaction", orderID))
	}

	if err := s.gateway.Refund(ctx, tenantCtx.Config.GatewayAPIKey, &gateway.RefundRequest{
		TransactionID: order.GatewayTxnID,
		Amount:        order.Totals.Total,
	}); err != nil {
		return nil, err
	}

	if err := order.MarkRefunded(); err != nil {
		return nil, err
	}
	if err := tenantCtx.OrderRepo().Update(tenantCtx.TenantID, order); err != nil {
		return nil, fmt.Errorf("failed to update order %s: %w", orderID, err)
	}

	s.emit(tenantCtx, events.OrderRefunded, map[string]any{"orderId": order.ID, "amount": order.Totals.Total})
	s.logger.Order().Info("Order refunded", "tenantId", tenantCtx.TenantID, "orderId", order.ID, "amount", order.Totals.Total)
	return order, nil
}

// Get returns an order by id.
func (s *OrderService) Get(tenantCtx *tenant.Context, id string) (*checkout.Order, error) {
	if id == "" {
		return nil, errs.NewValidation("orderId", "order id is required")
	}
	order, err := tenantCtx.OrderRepo().FindByID(tenantCtx.TenantID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get order %s: %w", id, err)
	}
	return order, nil
}

// ListByPeriod returns orders created within [from, to).
func (s *OrderService) ListByPeriod(tenantCtx *tenant.Context, from, to time.Time) ([]*checkout.Order, error) {
	orders, err := tenantCtx.OrderRepo().FindByPeriod(tenantCtx.TenantID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func (s *OrderService) settleSuccess(tenantCtx *tenant.Context, cart *checkout.Cart, order *checkout.Order, gatewayTxnID string) {
	if err := order.MarkPaid(gatewayTxnID); err != nil {
		s.logger.Order().Error("Failed to mark order paid", "tenantId", tenantCtx.TenantID, "orderId", order.ID, "error", err)
		return
	}
	if err := tenantCtx.OrderRepo().Update(tenantCtx.TenantID, order); err != nil {
		s.logger.Order().Error("Failed to persist paid order", "tenantId", tenantCtx.TenantID, "orderId", order.ID, "error", err)
	}

	if cart != nil {
		if err := cart.Complete(); err == nil {
			if err := tenantCtx.CartRepo().Update(tenantCtx.TenantID, cart); err != nil {
				s.logger.Order().Error("Failed to persist completed cart", "tenantId", tenantCtx.TenantID, "cartId", cart.ID, "error", err)
			}
		}
	}

	s.emit(tenantCtx, events.OrderPaid, map[string]any{"orderId": order.ID, "transactionId": gatewayTxnID, "total": order.Totals.Total})
	s.emit(tenantCtx, events.CheckoutCompleted, map[string]any{"orderId": order.ID, "cartId": order.CartID, "sessionId": order.SessionID})

	if s.email != nil && order.Customer.Email != "" {
		go func(order *checkout.Order) {
			if err := s.email.SendOrderReceiptEmail(order.Customer.Email, order); err != nil {
				s.logger.Email().Error("Failed to send receipt", "tenantId", tenantCtx.TenantID, "orderId", order.ID, "error", err)
			}
		}(order)
	}
}

func (s *OrderService) settleFailure(tenantCtx *tenant.Context, cart *checkout.Cart, order *checkout.Order) {
	if err := order.MarkFailed(); err != nil {
		s.logger.Order().Error("Failed to mark order failed", "tenantId", tenantCtx.TenantID, "orderId", order.ID, "error", err)
		return
	}
	if err := tenantCtx.OrderRepo().Update(tenantCtx.TenantID, order); err != nil {
		s.logger.Order().Error("Failed to persist failed order", "tenantId", tenantCtx.TenantID, "orderId", order.ID, "error", err)
	}

	// The cart returns to active so the buyer can retry with another method.
	if cart != nil && cart.Status == checkout.CartStatusProcessing {
		cart.Status = checkout.CartStatusActive
		if err := tenantCtx.CartRepo().Update(tenantCtx.TenantID, cart); err != nil {
			s.logger.Order().Error("Failed to reopen cart", "tenantId", tenantCtx.TenantID, "cartId", cart.ID, "error", err)
		}
	}

	s.emit(tenantCtx, events.OrderFailed, map[string]any{"orderId": order.ID})
}

// validateCustomer accumulates all field problems instead of stopping at the
// first, mirroring the step validation behavior.
func validateCustomer(customer *checkout.Customer) []errs.ValidationError {
	var fieldErrs []errs.ValidationError

	if customer.Name == "" {
		fieldErrs = append(fieldErrs, *errs.NewValidation("name", "customer name is required"))
	}
	if customer.Email == "" {
		fieldErrs = append(fieldErrs, *errs.NewValidation("email", "customer email is required"))
	}
	if customer.Document != "" && !document.IsValidCPF(customer.Document) && !document.IsValidCNPJ(customer.Document) {
		fieldErrs = append(fieldErrs, *errs.NewValidation("document", "document is not a valid CPF or CNPJ"))
	}
	if customer.Phone != "" && !document.IsValidPhone(customer.Phone) {
		fieldErrs = append(fieldErrs, *errs.NewValidation("phone", "phone is not a valid Brazilian number"))
	}

	return fieldErrs
}

func (s *OrderService) emit(tenantCtx *tenant.Context, name string, payload map[string]any) {
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
