package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clubifyhq/checkout-go/internal/domain/errs"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/observability/logging"
)

func testLogger(t *testing.T) *logging.ChanneledLogger {
	t.Helper()
	cfg := logging.DefaultLoggerConfig()
	cfg.LogDirectory = t.TempDir()
	cfg.OutputToConsole = false
	logger, err := logging.NewChanneledLogger(cfg)
	require.NoError(t, err)
	return logger
}

func chargeRequest() *ChargeRequest {
	return &ChargeRequest{
		OrderID:       "ord_1",
		Amount:        220.00,
		Currency:      "BRL",
		PaymentMethod: "credit_card",
		CustomerEmail: "buyer@example.com",
	}
}

func TestChargeRetriesTransientFailures(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"transactionId":"txn_42","status":"approved"}`))
	}))
	defer server.Close()

	client := NewClientWithBaseURL(server.URL, testLogger(t))
	resp, err := client.Charge(context.Background(), "sk_test", chargeRequest())

	require.NoError(t, err)
	assert.Equal(t, "txn_42", resp.TransactionID)
	assert.Equal(t, "approved", resp.Status)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestChargeDoesNotRetryBusinessErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"code":"card_declined","message":"insufficient funds"}`))
	}))
	defer server.Close()

	client := NewClientWithBaseURL(server.URL, testLogger(t))
	_, err := client.Charge(context.Background(), "sk_test", chargeRequest())

	require.Error(t, err)
	var businessErr *errs.BusinessError
	require.ErrorAs(t, err, &businessErr)
	assert.Equal(t, "card_declined", businessErr.Code)
	assert.Equal(t, http.StatusPaymentRequired, businessErr.StatusCode)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls), "4xx must not be retried")
}

func TestChargeGivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClientWithBaseURL(server.URL, testLogger(t))
	client.maxRetries = 2
	client.initialGap = 0

	_, err := client.Charge(context.Background(), "sk_test", chargeRequest())

	require.Error(t, err)
	assert.True(t, errs.IsRetryable(err), "exhausted retries still surface the transport error")
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls), "initial attempt plus two retries")
}
