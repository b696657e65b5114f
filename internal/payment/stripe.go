package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/greatwhitehope/shopapi/internal/config"
	"github.com/greatwhitehope/shopapi/internal/domain"
)

// stripeSignatureTolerance bounds how old a webhook timestamp may be before
// the signature is rejected, limiting replay of captured payloads.
const stripeSignatureTolerance = 5 * time.Minute

// StripeProcessor charges cards through the Stripe PaymentIntents API
type StripeProcessor struct {
	client        *apiClient
	apiKey        string
	webhookSecret string
	logger        *zap.Logger
	now           func() time.Time
}

func NewStripe(cfg config.ProcessorConfig, logger *zap.Logger) *StripeProcessor {
	return &StripeProcessor{
		client:        newAPIClient(cfg.APIBaseURL),
		apiKey:        cfg.APIKey,
		webhookSecret: cfg.WebhookSecret,
		logger:        logger,
		now:           time.Now,
	}
}

func (p *StripeProcessor) Name() string {
	return "stripe"
}

func (p *StripeProcessor) SignatureHeader() string {
	return "Stripe-Signature"
}

type stripePaymentIntent struct {
	ID               string `json:"id"`
	Status           string `json:"status"`
	LastPaymentError *struct {
		Message string `json:"message"`
	} `json:"last_payment_error"`
}

func (p *StripeProcessor) ProcessPayment(ctx context.Context, order *domain.Order, attemptID uuid.UUID) (*Result, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(order.Total, 10))
	form.Set("currency", "usd")
	form.Set("confirm", "true")
	form.Set("metadata[order_id]", order.ID.String())

	headers := map[string]string{
		"Authorization":   "Bearer " + p.apiKey,
		"Idempotency-Key": IdempotencyKey(order.ID, attemptID),
	}

	var intent stripePaymentIntent
	if err := p.client.postForm(ctx, "/v1/payment_intents", headers, form, &intent); err != nil {
		return nil, err
	}

	if intent.Status != "succeeded" {
		message := "payment declined"
		if intent.LastPaymentError != nil {
			message = intent.LastPaymentError.Message
		}
		return &Result{
			Success:       false,
			TransactionID: intent.ID,
			Status:        domain.AttemptStatusFailed,
			Message:       message,
		}, nil
	}

	return &Result{
		Success:       true,
		TransactionID: intent.ID,
		Status:        domain.AttemptStatusCompleted,
	}, nil
}

// VerifyWebhook checks the Stripe-Signature header: comma-separated
// t=<unix>,v1=<hex hmac> pairs, signed over "<t>.<body>".
func (p *StripeProcessor) VerifyWebhook(signature string, rawBody []byte) bool {
	if p.webhookSecret == "" {
		return false
	}

	var timestamp string
	var candidates []string

	for _, pair := range strings.Split(signature, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			timestamp = v
		case "v1":
			candidates = append(candidates, v)
		}
	}

	if timestamp == "" || len(candidates) == 0 {
		return false
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return false
	}
	skew := p.now().Sub(time.Unix(ts, 0))
	if skew > stripeSignatureTolerance || skew < -stripeSignatureTolerance {
		return false
	}

	signed := fmt.Sprintf("%s.%s", timestamp, rawBody)
	expected := computeHMAC(sha256.New, p.webhookSecret, []byte(signed))
	for _, candidate := range candidates {
		if verifyHexEqual(candidate, expected) {
			return true
		}
	}
	return false
}

func verifyHexEqual(hexSig string, expected []byte) bool {
	got, err := hex.DecodeString(hexSig)
	if err != nil {
		return false
	}
	return hmac.Equal(got, expected)
}

type stripeEvent struct {
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID       string `json:"id"`
			Status   string `json:"status"`
			Metadata struct {
				OrderID string `json:"order_id"`
			} `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

func (p *StripeProcessor) ParseWebhook(rawBody []byte) (*WebhookEvent, error) {
	var event stripeEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		return nil, fmt.Errorf("failed to decode stripe event: %w", err)
	}

	orderID, err := uuid.Parse(event.Data.Object.Metadata.OrderID)
	if err != nil {
		return nil, fmt.Errorf("stripe event has no valid order id: %w", err)
	}

	status := domain.AttemptStatusPending
	switch event.Type {
	case "payment_intent.succeeded":
		status = domain.AttemptStatusCompleted
	case "payment_intent.payment_failed", "payment_intent.canceled":
		status = domain.AttemptStatusFailed
	}

	return &WebhookEvent{
		OrderID:       orderID,
		TransactionID: event.Data.Object.ID,
		Status:        status,
	}, nil
}

type stripeRefund struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (p *StripeProcessor) Refund(ctx context.Context, transactionID string, amount int64) (*RefundResult, error) {
	form := url.Values{}
	form.Set("payment_intent", transactionID)
	form.Set("amount", strconv.FormatInt(amount, 10))

	headers := map[string]string{"Authorization": "Bearer " + p.apiKey}

	var refund stripeRefund
	if err := p.client.postForm(ctx, "/v1/refunds", headers, form, &refund); err != nil {
		return nil, err
	}

	return &RefundResult{
		Success:  refund.Status == "succeeded" || refund.Status == "pending",
		RefundID: refund.ID,
	}, nil
}
