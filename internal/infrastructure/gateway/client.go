// Package gateway provides the payment gateway HTTP client.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/clubifyhq/checkout-go/internal/domain/errs"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/observability/logging"
	"github.com/clubifyhq/checkout-go/pkg/config"
)

// ChargeRequest is the payload sent to the gateway's charge endpoint.
type ChargeRequest struct {
	OrderID       string  `json:"orderId"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	PaymentMethod string  `json:"paymentMethod"`
	Installments  int     `json:"installments,omitempty"`
	CardToken     string  `json:"cardToken,omitempty"`
	CustomerEmail string  `json:"customerEmail"`
	CustomerDoc   string  `json:"customerDocument,omitempty"`
}

// ChargeResponse is the gateway's answer to a charge attempt.
type ChargeResponse struct {
	TransactionID string `json:"transactionId"`
	Status        string `json:"status"` // "approved", "declined", "pending"
	DeclineReason string `json:"declineReason,omitempty"`
	BoletoURL     string `json:"boletoUrl,omitempty"`
	PixQRCode     string `json:"pixQrCode,omitempty"`
}

// RefundRequest asks the gateway to return a captured amount.
type RefundRequest struct {
	TransactionID string  `json:"transactionId"`
	Amount        float64 `json:"amount"`
}

// Client talks to the payment gateway. Transient failures (network errors,
// 5xx, 429, 408) are retried with exponential backoff; 4xx responses surface
// as business errors without retrying.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	initialGap time.Duration
	logger     *logging.ChanneledLogger
}

func NewClient(logger *logging.ChanneledLogger) *Client {
	return &Client{
		baseURL:    config.GatewayBaseURL,
		httpClient: &http.Client{Timeout: config.GatewayTimeout},
		maxRetries: config.GatewayMaxRetries,
		initialGap: config.GatewayInitialBackoff,
		logger:     logger,
	}
}

// NewClientWithBaseURL builds a client against an explicit gateway, used by
// tests and tenant-specific gateway overrides.
func NewClientWithBaseURL(baseURL string, logger *logging.ChanneledLogger) *Client {
	c := NewClient(logger)
	c.baseURL = baseURL
	return c
}

// Charge submits a payment and retries retryable failures.
func (c *Client) Charge(ctx context.Context, apiKey string, req *ChargeRequest) (*ChargeResponse, error) {
	var resp ChargeResponse
	if err := c.post(ctx, apiKey, "/v1/charges", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Refund returns a captured amount.
func (c *Client) Refund(ctx context.Context, apiKey string, req *RefundRequest) error {
	return c.post(ctx, apiKey, "/v1/refunds", req, nil)
}

func (c *Client) post(ctx context.Context, apiKey, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode gateway request: %w", err)
	}

	operation := "gateway POST " + path

	policy := backoff.WithContext(backoff.WithMaxRetries(
		backoff.NewExponentialBackOff(backoff.WithInitialInterval(c.initialGap)),
		uint64(c.maxRetries)), ctx)

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		start := time.Now()

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to build gateway request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+apiKey)

		httpResp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Gateway().Warn("Gateway request failed", "path", path, "attempt", attempt, "error", err.Error())
			// Network-level failure, retryable.
			return &errs.TransportError{Operation: operation, Err: err}
		}
		defer httpResp.Body.Close()

		respBody, err := io.ReadAll(httpResp.Body)
		if err != nil {
			return &errs.TransportError{Operation: operation, StatusCode: httpResp.StatusCode, Err: err}
		}

		c.logger.Gateway().Debug("Gateway response", "path", path, "status", httpResp.StatusCode,
			"attempt", attempt, "duration", time.Since(start))

		switch {
		case httpResp.StatusCode >= 200 && httpResp.StatusCode < 300:
			if out != nil {
				if err := json.Unmarshal(respBody, out); err != nil {
					return backoff.Permanent(fmt.Errorf("failed to decode gateway response: %w", err))
				}
			}
			return nil
		default:
			transportErr := &errs.TransportError{
				Operation:  operation,
				StatusCode: httpResp.StatusCode,
				Err:        fmt.Errorf("gateway returned %d: %s", httpResp.StatusCode, truncate(respBody, 200)),
			}
			if transportErr.Retryable() {
				c.logger.Gateway().Warn("Gateway returned retryable status", "path", path,
					"status", httpResp.StatusCode, "attempt", attempt)
				return transportErr
			}
			return backoff.Permanent(&errs.BusinessError{
				Operation:  operation,
				StatusCode: httpResp.StatusCode,
				Code:       gatewayErrorCode(respBody),
				Message:    truncate(respBody, 200),
			})
		}
	}, policy)
}

func gatewayErrorCode(body []byte) string {
	var parsed struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Code != "" {
		return parsed.Code
	}
	return "gateway_error"
}

func truncate(b []byte, max int) string {
	if len(b) <= max {
		return string(b)
	}
	return string(b[:max]) + "..."
}
