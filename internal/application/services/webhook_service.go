package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/clubifyhq/checkout-go/internal/domain/errs"
	"github.com/clubifyhq/checkout-go/internal/domain/events"
	"github.com/clubifyhq/checkout-go/internal/domain/repositories"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/observability/logging"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/security"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/tenant"
	"github.com/clubifyhq/checkout-go/pkg/config"
)

// WebhookService manages tenant webhook endpoints and delivers signed events
// to them.
type WebhookService struct {
	httpClient *http.Client
	logger     *logging.ChanneledLogger
}

// NewWebhookService creates a new webhook service singleton
func NewWebhookService(logger *logging.ChanneledLogger) *WebhookService {
	return &WebhookService{
		httpClient: &http.Client{Timeout: config.WebhookTimeout},
		logger:     logger,
	}
}

// RegisterEndpoint stores a new delivery target for the tenant.
func (s *WebhookService) RegisterEndpoint(tenantCtx *tenant.Context, url string, eventNames []string) (*repositories.WebhookEndpoint, error) {
	if url == "" {
		return nil, errs.NewValidation("url", "endpoint url is required")
	}
	if len(eventNames) == 0 {
		return nil, errs.NewValidation("events", "at least one event name is required")
	}

	endpoint := &repositories.WebhookEndpoint{
		ID:        security.GenerateULID(),
		URL:       url,
		Events:    eventNames,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	if err := tenantCtx.WebhookRepo().StoreEndpoint(tenantCtx.TenantID, endpoint); err != nil {
		return nil, fmt.Errorf("failed to store webhook endpoint: %w", err)
	}

	s.logger.Webhook().Info("Webhook endpoint registered", "tenantId", tenantCtx.TenantID, "endpointId", endpoint.ID, "events", len(eventNames))
	return endpoint, nil
}

// ListEndpoints returns all registered endpoints for the tenant.
func (s *WebhookService) ListEndpoints(tenantCtx *tenant.Context) ([]*repositories.WebhookEndpoint, error) {
	endpoints, err := tenantCtx.WebhookRepo().FindEndpoints(tenantCtx.TenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list webhook endpoints: %w", err)
	}
	return endpoints, nil
}

// DeleteEndpoint removes a delivery target.
func (s *WebhookService) DeleteEndpoint(tenantCtx *tenant.Context, id string) error {
	if id == "" {
		return errs.NewValidation("endpointId", "endpoint id is required")
	}
	if err := tenantCtx.WebhookRepo().DeleteEndpoint(tenantCtx.TenantID, id); err != nil {
		return fmt.Errorf("failed to delete webhook endpoint %s: %w", id, err)
	}
	return nil
}

// Deliveries returns the recent delivery log for an endpoint.
func (s *WebhookService) Deliveries(tenantCtx *tenant.Context, endpointID string, limit int) ([]*repositories.WebhookDelivery, error) {
	deliveries, err := tenantCtx.WebhookRepo().FindDeliveries(tenantCtx.TenantID, endpointID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list webhook deliveries: %w", err)
	}
	return deliveries, nil
}

// VerifyInboundSignature checks an incoming webhook call against the tenant's
// shared secret.
func (s *WebhookService) VerifyInboundSignature(tenantCtx *tenant.Context, payload []byte, signature string) bool {
	return security.VerifySignature(payload, signature, tenantCtx.Config.WebhookSecret)
}

// Dispatch fans an event out to every active endpoint subscribed to it.
// Each delivery is retried with exponential backoff and recorded in the
// delivery log regardless of outcome.
func (s *WebhookService) Dispatch(tenantCtx *tenant.Context, event events.Event) {
	endpoints, err := tenantCtx.WebhookRepo().FindEndpoints(tenantCtx.TenantID)
	if err != nil {
		s.logger.Webhook().Error("Failed to load webhook endpoints", "tenantId", tenantCtx.TenantID, "event", event.Name, "error", err)
		return
	}

	body, err := json.Marshal(event)
	if err != nil {
		s.logger.Webhook().Error("Failed to marshal event for delivery", "tenantId", tenantCtx.TenantID, "event", event.Name, "error", err)
		return
	}
	signature := security.SignPayload(body, tenantCtx.Config.WebhookSecret)

	for _, endpoint := range endpoints {
		if !endpoint.Active || !subscribed(endpoint, event.Name) {
			continue
		}
		s.deliver(tenantCtx, endpoint, event, body, signature)
	}
}

func subscribed(endpoint *repositories.WebhookEndpoint, eventName string) bool {
	for _, name := range endpoint.Events {
		if name == eventName || name == "*" {
			return true
		}
	}
	return false
}

func (s *WebhookService) deliver(tenantCtx *tenant.Context, endpoint *repositories.WebhookEndpoint, event events.Event, body []byte, signature string) {
	start := time.Now()
	attempts := 0
	lastStatus := 0
	var lastErr error

	operation := func() error {
		attempts++
		req, err := http.NewRequest(http.MethodPost, endpoint.URL, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Clubify-Signature", signature)
		req.Header.Set("X-Clubify-Event", event.Name)
		req.Header.Set("X-Clubify-Delivery", event.ID)

		resp, err := s.httpClient.Do(req)
		if err != nil {
			lastErr = err
			return err
		}
		defer resp.Body.Close()

		lastStatus = resp.StatusCode
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		lastErr = fmt.Errorf("endpoint returned status %d", resp.StatusCode)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != 429 && resp.StatusCode != 408 {
			return backoff.Permanent(lastErr)
		}
		return lastErr
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(config.WebhookMaxRetries))
	err := backoff.Retry(operation, policy)
	success := err == nil

	delivery := &repositories.WebhookDelivery{
		ID:          security.GenerateULID(),
		EndpointID:  endpoint.ID,
		EventID:     event.ID,
		EventName:   event.Name,
		StatusCode:  lastStatus,
		Success:     success,
		Attempts:    attempts,
		DeliveredAt: time.Now().UTC(),
	}
	if lastErr != nil && !success {
		delivery.LastError = lastErr.Error()
	}
	if err := tenantCtx.WebhookRepo().RecordDelivery(tenantCtx.TenantID, delivery); err != nil {
		s.logger.Webhook().Error("Failed to record webhook delivery", "tenantId", tenantCtx.TenantID, "endpointId", endpoint.ID, "error", err)
	}

	if success {
		s.logger.Webhook().Info("Webhook delivered", "tenantId", tenantCtx.TenantID, "endpointId", endpoint.ID, "event", event.Name, "attempts", attempts, "duration", time.Since(start))
	} else {
		s.logger.Webhook().Error("Webhook delivery failed", "tenantId", tenantCtx.TenantID, "endpointId", endpoint.ID, "event", event.Name, "attempts", attempts, "status", lastStatus, "error", lastErr)
	}
}
