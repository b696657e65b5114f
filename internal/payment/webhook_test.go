package payment

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/greatwhitehope/shopapi/internal/config"
	"github.com/greatwhitehope/shopapi/internal/domain"
)

const testSecret = "whsec_test"

func processorConfig() config.ProcessorConfig {
	return config.ProcessorConfig{
		APIBaseURL:    "https://example.invalid",
		APIKey:        "sk_test",
		WebhookSecret: testSecret,
	}
}

func stripeSignature(secret string, ts time.Time, body []byte) string {
	signed := fmt.Sprintf("%d.%s", ts.Unix(), body)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), signHexHMAC256(secret, []byte(signed)))
}

func TestStripeVerifyWebhook_Valid(t *testing.T) {
	p := NewStripe(processorConfig(), zap.NewNop())
	body := []byte(`{"type":"payment_intent.succeeded"}`)

	sig := stripeSignature(testSecret, time.Now(), body)

	assert.True(t, p.VerifyWebhook(sig, body))
}

func TestStripeVerifyWebhook_WrongSecret(t *testing.T) {
	p := NewStripe(processorConfig(), zap.NewNop())
	body := []byte(`{}`)

	sig := stripeSignature("whsec_other", time.Now(), body)

	assert.False(t, p.VerifyWebhook(sig, body))
}

func TestStripeVerifyWebhook_TamperedBody(t *testing.T) {
	p := NewStripe(processorConfig(), zap.NewNop())
	body := []byte(`{"amount":4860}`)

	sig := stripeSignature(testSecret, time.Now(), body)

	assert.False(t, p.VerifyWebhook(sig, []byte(`{"amount":1}`)))
}

func TestStripeVerifyWebhook_ExpiredTimestamp(t *testing.T) {
	p := NewStripe(processorConfig(), zap.NewNop())
	body := []byte(`{}`)

	then := time.Now().Add(-10 * time.Minute)
	sig := stripeSignature(testSecret, then, body)

	assert.False(t, p.VerifyWebhook(sig, body))

	// The same signature is accepted when verified within tolerance
	p.now = func() time.Time { return then.Add(time.Minute) }
	assert.True(t, p.VerifyWebhook(sig, body))
}

func TestStripeVerifyWebhook_FutureTimestamp(t *testing.T) {
	p := NewStripe(processorConfig(), zap.NewNop())
	body := []byte(`{}`)

	// A timestamp ahead of the clock is outside the replay window too
	sig := stripeSignature(testSecret, time.Now().Add(10*time.Minute), body)
	assert.False(t, p.VerifyWebhook(sig, body))

	sig = stripeSignature(testSecret, time.Now().Add(time.Minute), body)
	assert.True(t, p.VerifyWebhook(sig, body))
}

func TestStripeVerifyWebhook_MalformedHeader(t *testing.T) {
	p := NewStripe(processorConfig(), zap.NewNop())

	assert.False(t, p.VerifyWebhook("", []byte(`{}`)))
	assert.False(t, p.VerifyWebhook("v1=deadbeef", []byte(`{}`)))
	assert.False(t, p.VerifyWebhook("t=notanumber,v1=deadbeef", []byte(`{}`)))
}

func TestStripeParseWebhook(t *testing.T) {
	p := NewStripe(processorConfig(), zap.NewNop())
	orderID := uuid.New()
	body := []byte(fmt.Sprintf(
		`{"type":"payment_intent.succeeded","data":{"object":{"id":"pi_1","status":"succeeded","metadata":{"order_id":"%s"}}}}`,
		orderID,
	))

	event, err := p.ParseWebhook(body)
	require.NoError(t, err)
	assert.Equal(t, orderID, event.OrderID)
	assert.Equal(t, "pi_1", event.TransactionID)
	assert.Equal(t, domain.AttemptStatusCompleted, event.Status)
}

func TestWooCommerceVerifyWebhook(t *testing.T) {
	p := NewWooCommerce(processorConfig(), zap.NewNop())
	body := []byte(`{"id":42,"status":"completed"}`)

	assert.True(t, p.VerifyWebhook(signBase64HMAC256(testSecret, body), body))
	assert.False(t, p.VerifyWebhook(signBase64HMAC256("other", body), body))
	assert.False(t, p.VerifyWebhook("not-base64!!!", body))
	assert.False(t, p.VerifyWebhook("", body))
}

func TestWooCommerceParseWebhook(t *testing.T) {
	p := NewWooCommerce(processorConfig(), zap.NewNop())
	orderID := uuid.New()
	body := []byte(fmt.Sprintf(
		`{"id":42,"status":"failed","meta_data":[{"key":"storefront_order_id","value":"%s"}]}`,
		orderID,
	))

	event, err := p.ParseWebhook(body)
	require.NoError(t, err)
	assert.Equal(t, orderID, event.OrderID)
	assert.Equal(t, "42", event.TransactionID)
	assert.Equal(t, domain.AttemptStatusFailed, event.Status)
}

func TestGreenFinancialVerifyWebhook(t *testing.T) {
	p := NewGreenFinancial(processorConfig(), zap.NewNop())
	body := []byte(`{"status":"completed"}`)

	assert.True(t, p.VerifyWebhook(signHexHMAC256(testSecret, body), body))
	assert.False(t, p.VerifyWebhook(signHexHMAC256("other", body), body))
	assert.False(t, p.VerifyWebhook("zzzz", body))
}

func TestCryptoMassVerifyWebhook(t *testing.T) {
	p := NewCryptoMass(processorConfig(), zap.NewNop())
	body := []byte(`{"state":"confirmed"}`)

	assert.True(t, p.VerifyWebhook(signBase64HMAC512(testSecret, body), body))
	// SHA256 signature must not verify against the SHA512 scheme
	assert.False(t, p.VerifyWebhook(signBase64HMAC256(testSecret, body), body))
}

func TestVerifyWebhook_EmptySecretAlwaysRejects(t *testing.T) {
	cfg := processorConfig()
	cfg.WebhookSecret = ""
	body := []byte(`{}`)

	// A signature forged with the empty key must never verify
	assert.False(t, NewStripe(cfg, zap.NewNop()).VerifyWebhook(stripeSignature("", time.Now(), body), body))
	assert.False(t, NewWooCommerce(cfg, zap.NewNop()).VerifyWebhook(signBase64HMAC256("", body), body))
	assert.False(t, NewGreenFinancial(cfg, zap.NewNop()).VerifyWebhook(signHexHMAC256("", body), body))
	assert.False(t, NewCryptoMass(cfg, zap.NewNop()).VerifyWebhook(signBase64HMAC512("", body), body))
}

func TestIdempotencyKey_StablePerOrderAttempt(t *testing.T) {
	orderID := uuid.New()
	attemptID := uuid.New()

	key := IdempotencyKey(orderID, attemptID)
	assert.Equal(t, fmt.Sprintf("order_%s_attempt_%s", orderID, attemptID), key)
	assert.Equal(t, key, IdempotencyKey(orderID, attemptID))
	assert.NotEqual(t, key, IdempotencyKey(orderID, uuid.New()))
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register(NewStripe(processorConfig(), zap.NewNop()))
	r.Register(NewPayPal(processorConfig(), zap.NewNop()))
	r.Register(NewGreenFinancial(processorConfig(), zap.NewNop()))
	r.Register(NewCryptoMass(processorConfig(), zap.NewNop()))
	r.Register(NewWooCommerce(processorConfig(), zap.NewNop()))

	assert.Equal(t, []string{"cryptomass", "green_financial", "paypal", "stripe", "woocommerce"}, r.List())

	p, err := r.Resolve("stripe")
	require.NoError(t, err)
	assert.Equal(t, "stripe", p.Name())

	_, err = r.Resolve("square")
	require.Error(t, err)
}

func TestMinorUnitsToDecimal(t *testing.T) {
	assert.Equal(t, "48.60", minorUnitsToDecimal(4860))
	assert.Equal(t, "0.05", minorUnitsToDecimal(5))
	assert.Equal(t, "100.00", minorUnitsToDecimal(10000))
}
