package payment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/greatwhitehope/shopapi/internal/config"
	"github.com/greatwhitehope/shopapi/internal/domain"
)

func testOrder() *domain.Order {
	return &domain.Order{
		ID:       uuid.New(),
		Status:   domain.OrderStatusPending,
		Subtotal: 4500,
		Tax:      360,
		Total:    4860,
	}
}

func TestStripeProcessPayment_Succeeded(t *testing.T) {
	order := testOrder()
	attemptID := uuid.New()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payment_intents", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		assert.Equal(t, IdempotencyKey(order.ID, attemptID), r.Header.Get("Idempotency-Key"))

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "4860", r.PostForm.Get("amount"))
		assert.Equal(t, order.ID.String(), r.PostForm.Get("metadata[order_id]"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"pi_123","status":"succeeded"}`))
	}))
	defer srv.Close()

	p := NewStripe(config.ProcessorConfig{APIBaseURL: srv.URL, APIKey: "sk_test"}, zap.NewNop())

	result, err := p.ProcessPayment(context.Background(), order, attemptID)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "pi_123", result.TransactionID)
	assert.Equal(t, domain.AttemptStatusCompleted, result.Status)
}

func TestStripeProcessPayment_Declined(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"pi_124","status":"requires_payment_method","last_payment_error":{"message":"Your card was declined."}}`))
	}))
	defer srv.Close()

	p := NewStripe(config.ProcessorConfig{APIBaseURL: srv.URL, APIKey: "sk_test"}, zap.NewNop())

	result, err := p.ProcessPayment(context.Background(), testOrder(), uuid.New())
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, domain.AttemptStatusFailed, result.Status)
	assert.Equal(t, "Your card was declined.", result.Message)
}

func TestStripeProcessPayment_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate_limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewStripe(config.ProcessorConfig{APIBaseURL: srv.URL, APIKey: "sk_test"}, zap.NewNop())

	_, err := p.ProcessPayment(context.Background(), testOrder(), uuid.New())
	require.Error(t, err)
}

func TestStripeProcessPayment_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	p := NewStripe(config.ProcessorConfig{APIBaseURL: srv.URL, APIKey: "sk_test"}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.ProcessPayment(ctx, testOrder(), uuid.New())
	require.Error(t, err)
}

func TestGreenFinancialProcessPayment_Completed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/charges", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"gf_1","status":"completed"}`))
	}))
	defer srv.Close()

	p := NewGreenFinancial(config.ProcessorConfig{APIBaseURL: srv.URL, APIKey: "gf_key"}, zap.NewNop())

	result, err := p.ProcessPayment(context.Background(), testOrder(), uuid.New())
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "gf_1", result.TransactionID)
}

func TestWooCommerceProcessPayment_OnHoldIsPending(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/wp-json/wc/v3/orders", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":77,"status":"on-hold"}`))
	}))
	defer srv.Close()

	p := NewWooCommerce(config.ProcessorConfig{APIBaseURL: srv.URL, APIKey: "basic_creds"}, zap.NewNop())

	result, err := p.ProcessPayment(context.Background(), testOrder(), uuid.New())
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, domain.AttemptStatusPending, result.Status)
	assert.Equal(t, "77", result.TransactionID)
}

func TestAPIClient_TrimsTrailingSlash(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/ping", r.URL.Path)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := newAPIClient(srv.URL + "/")
	err := c.postForm(context.Background(), "/v1/ping", nil, url.Values{}, nil)
	require.NoError(t, err)
}
