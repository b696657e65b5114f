package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/greatwhitehope/shopapi/internal/cart"
	"github.com/greatwhitehope/shopapi/internal/checkout"
	"github.com/greatwhitehope/shopapi/internal/config"
	"github.com/greatwhitehope/shopapi/internal/domain"
	"github.com/greatwhitehope/shopapi/internal/payment"
	"github.com/greatwhitehope/shopapi/internal/repository"
	"github.com/greatwhitehope/shopapi/internal/repository/memory"
	"github.com/greatwhitehope/shopapi/internal/service"
)

// scriptedProcessor lets a test decide each charge's outcome
type scriptedProcessor struct {
	name    string
	results []*payment.Result
	calls   int
	verify  bool
	event   *payment.WebhookEvent
}

func (f *scriptedProcessor) Name() string            { return f.name }
func (f *scriptedProcessor) SignatureHeader() string { return "X-Signature" }

func (f *scriptedProcessor) ProcessPayment(context.Context, *domain.Order, uuid.UUID) (*payment.Result, error) {
	result := f.results[f.calls%len(f.results)]
	f.calls++
	return result, nil
}

func (f *scriptedProcessor) VerifyWebhook(string, []byte) bool { return f.verify }
func (f *scriptedProcessor) ParseWebhook([]byte) (*payment.WebhookEvent, error) {
	return f.event, nil
}
func (f *scriptedProcessor) Refund(context.Context, string, int64) (*payment.RefundResult, error) {
	return &payment.RefundResult{Success: true, RefundID: "re_test"}, nil
}

type testEnv struct {
	router *gin.Engine
	repos  *repository.Repositories
	proc   *scriptedProcessor
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Environment: "test",
		FrontendURL: "http://localhost:3000",
		JWTSecret:   "test-secret",
		RateLimit: config.RateLimitConfig{
			Window:      time.Minute,
			MaxRequests: 10000,
		},
		Checkout: config.CheckoutConfig{
			TaxRateBasisPoints: 800,
			AllowedCountries:   []string{"US", "CA"},
			MaxItemQuantity:    99,
			SessionTTL:         time.Hour,
			PaymentTimeout:     time.Second,
		},
	}

	logger := zap.NewNop()
	repos := memory.NewRepositories()

	proc := &scriptedProcessor{
		name:    "stripe",
		results: []*payment.Result{{Success: true, TransactionID: "pi_test", Status: domain.AttemptStatusCompleted}},
	}
	registry := payment.NewRegistry()
	registry.Register(proc)

	router := NewRouter(Deps{
		Config:   cfg,
		Repos:    repos,
		Carts:    cart.NewMemoryStore(cfg.Checkout.SessionTTL),
		Sessions: checkout.NewMemoryStore(cfg.Checkout.SessionTTL),
		Wizard:   checkout.NewWizard(registry, cfg.Checkout.AllowedCountries, logger),
		Orders:   service.NewOrderService(repos, registry, cfg.Checkout, logger),
		Registry: registry,
		Logger:   logger,
	})

	return &testEnv{router: router, repos: repos, proc: proc}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func (e *testEnv) createAdmin(t *testing.T, email, password string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, e.repos.AdminUser.Create(context.Background(), &domain.AdminUser{
		Email:        email,
		PasswordHash: string(hash),
		Name:         "Test Admin",
		Role:         "admin",
		IsActive:     true,
	}))
}

func (e *testEnv) login(t *testing.T, email, password string) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	return decode(t, w)["token"].(string)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLogin_BadCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.createAdmin(t, "admin@example.com", "correct")

	w := env.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    "admin@example.com",
		"password": "wrong",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Unknown users get the same response as bad passwords
	w2 := env.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    "nobody@example.com",
		"password": "wrong",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, w2.Code)
	assert.Equal(t, w.Body.String(), w2.Body.String())
}

func TestAdminRoutes_RequireToken(t *testing.T) {
	env := newTestEnv(t)
	env.createAdmin(t, "admin@example.com", "s3cret")

	w := env.do(t, http.MethodGet, "/api/v1/admin/orders", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token := env.login(t, "admin@example.com", "s3cret")
	w = env.do(t, http.MethodGet, "/api/v1/admin/orders", nil, map[string]string{
		"Authorization": "Bearer " + token,
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProductWrites_RequireToken(t *testing.T) {
	env := newTestEnv(t)
	env.createAdmin(t, "admin@example.com", "s3cret")

	product := map[string]interface{}{
		"sku":   "CONC-001",
		"name":  "Premium Live Resin",
		"price": 4500,
	}

	w := env.do(t, http.MethodPost, "/api/v1/products", product, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token := env.login(t, "admin@example.com", "s3cret")
	w = env.do(t, http.MethodPost, "/api/v1/products", product, map[string]string{
		"Authorization": "Bearer " + token,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode(t, w)["product"].(map[string]interface{})

	// Reads stay public
	w = env.do(t, http.MethodGet, "/api/v1/products/"+created["id"].(string), nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetProduct_NotFound(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/api/v1/products/"+uuid.NewString(), nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCart_RequiresSessionHeader(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/api/v1/cart", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCart_AddAndMerge(t *testing.T) {
	env := newTestEnv(t)
	headers := map[string]string{"X-Session-ID": "shopper-1"}
	line := map[string]interface{}{
		"product_id": "CONC-001",
		"name":       "Premium Live Resin",
		"unit_price": 4500,
		"quantity":   1,
	}

	w := env.do(t, http.MethodPost, "/api/v1/cart/items", line, headers)
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodPost, "/api/v1/cart/items", line, headers)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	items := body["items"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, float64(9000), body["total"])
}

func checkoutToReview(t *testing.T, env *testEnv, headers map[string]string) string {
	t.Helper()

	w := env.do(t, http.MethodPost, "/api/v1/cart/items", map[string]interface{}{
		"product_id": "CONC-001",
		"name":       "Premium Live Resin",
		"unit_price": 4500,
		"quantity":   1,
	}, headers)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/checkout", nil, headers)
	require.Equal(t, http.StatusCreated, w.Code)
	sessionID := decode(t, w)["id"].(string)

	w = env.do(t, http.MethodPut, "/api/v1/checkout/"+sessionID+"/address", map[string]string{
		"email":       "buyer@example.com",
		"first_name":  "Pat",
		"last_name":   "Doe",
		"street":      "1 Main St",
		"city":        "Denver",
		"state":       "CO",
		"postal_code": "80014",
		"country":     "US",
	}, headers)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "PAYMENT_METHOD", decode(t, w)["step"])

	w = env.do(t, http.MethodPut, "/api/v1/checkout/"+sessionID+"/payment", map[string]interface{}{
		"processor": "stripe",
		"payment_details": map[string]string{
			"card_number": "4242424242424242",
			"card_expiry": "12/30",
			"card_cvc":    "123",
		},
	}, headers)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "REVIEW", decode(t, w)["step"])

	return sessionID
}

func TestCheckout_HappyPath(t *testing.T) {
	env := newTestEnv(t)
	headers := map[string]string{"X-Session-ID": "shopper-2"}
	sessionID := checkoutToReview(t, env, headers)

	w := env.do(t, http.MethodPost, "/api/v1/checkout/"+sessionID+"/submit", map[string]string{
		"idempotency_key": "ck-1",
	}, headers)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	orderID := body["order_id"].(string)
	session := body["session"].(map[string]interface{})
	assert.Equal(t, "COMPLETE", session["step"])

	// Cart is destroyed after a successful checkout
	w = env.do(t, http.MethodGet, "/api/v1/cart", nil, headers)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["items"])

	// Order is payment authorized with an 8% tax line
	w = env.do(t, http.MethodGet, "/api/v1/orders/"+orderID, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	order := decode(t, w)["order"].(map[string]interface{})
	assert.Equal(t, "PAYMENT_AUTHORIZED", order["status"])
	assert.Equal(t, float64(4500), order["subtotal"])
	assert.Equal(t, float64(360), order["tax"])
	assert.Equal(t, float64(4860), order["total"])
}

func TestCheckout_AddressValidationKeepsStep(t *testing.T) {
	env := newTestEnv(t)
	headers := map[string]string{"X-Session-ID": "shopper-3"}

	w := env.do(t, http.MethodPost, "/api/v1/cart/items", map[string]interface{}{
		"product_id": "CONC-001",
		"unit_price": 4500,
		"quantity":   1,
	}, headers)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/checkout", nil, headers)
	require.Equal(t, http.StatusCreated, w.Code)
	sessionID := decode(t, w)["id"].(string)

	w = env.do(t, http.MethodPut, "/api/v1/checkout/"+sessionID+"/address", map[string]string{
		"email":   "buyer@example.com",
		"country": "ZZ",
	}, headers)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.NotEmpty(t, decode(t, w)["details"])

	w = env.do(t, http.MethodGet, "/api/v1/checkout/"+sessionID, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ADDRESS", decode(t, w)["step"])
}

func TestCheckout_DeclineThenResubmit(t *testing.T) {
	env := newTestEnv(t)
	env.proc.results = []*payment.Result{
		{Success: false, TransactionID: "pi_a", Status: domain.AttemptStatusFailed, Message: "card declined"},
		{Success: true, TransactionID: "pi_b", Status: domain.AttemptStatusCompleted},
	}

	headers := map[string]string{"X-Session-ID": "shopper-4"}
	sessionID := checkoutToReview(t, env, headers)

	w := env.do(t, http.MethodPost, "/api/v1/checkout/"+sessionID+"/submit", map[string]string{
		"idempotency_key": "ck-a",
	}, headers)
	require.Equal(t, http.StatusPaymentRequired, w.Code)

	body := decode(t, w)
	orderID := body["order_id"].(string)
	session := body["session"].(map[string]interface{})
	assert.Equal(t, "REVIEW", session["step"])
	assert.Equal(t, "card declined", session["last_error"])

	// The failed order must be explicitly resubmitted before a retry
	w = env.do(t, http.MethodPost, "/api/v1/orders/"+orderID+"/resubmit", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/checkout/"+sessionID+"/submit", map[string]string{
		"idempotency_key": "ck-b",
	}, headers)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, env.proc.calls)
}

func TestWebhook_BadSignatureIsRejected(t *testing.T) {
	env := newTestEnv(t)
	env.proc.verify = false
	env.proc.event = &payment.WebhookEvent{OrderID: uuid.New(), Status: domain.AttemptStatusCompleted}

	w := env.do(t, http.MethodPost, "/api/v1/webhooks/stripe", map[string]string{"any": "thing"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	// No body: the response must not say which check failed
	assert.Empty(t, w.Body.String())
}

func TestWebhook_UnknownProcessor(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodPost, "/api/v1/webhooks/square", map[string]string{}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdmin_FulfilOrder(t *testing.T) {
	env := newTestEnv(t)
	env.createAdmin(t, "admin@example.com", "s3cret")
	token := env.login(t, "admin@example.com", "s3cret")
	auth := map[string]string{"Authorization": "Bearer " + token, "X-Session-ID": "shopper-5"}

	sessionID := checkoutToReview(t, env, auth)
	w := env.do(t, http.MethodPost, "/api/v1/checkout/"+sessionID+"/submit", nil, auth)
	require.Equal(t, http.StatusOK, w.Code)
	orderID := decode(t, w)["order_id"].(string)

	w = env.do(t, http.MethodPost, "/api/v1/admin/orders/"+orderID+"/fulfil", nil, auth)
	require.Equal(t, http.StatusOK, w.Code)
	order := decode(t, w)["order"].(map[string]interface{})
	assert.Equal(t, "FULFILLED", order["status"])

	// Terminal status, cancel must conflict
	w = env.do(t, http.MethodPost, "/api/v1/admin/orders/"+orderID+"/cancel", nil, auth)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestProcessorsList(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/api/v1/payments/processors", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{"stripe"}, decode(t, w)["processors"].([]interface{}))
}
