package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/greatwhitehope/shopapi/internal/config"
	"github.com/greatwhitehope/shopapi/internal/domain"
)

// PayPalProcessor charges through the PayPal Orders v2 API. Webhook
// signatures are not shared-secret HMACs; PayPal verifies them server-side
// through its verify-webhook-signature endpoint.
type PayPalProcessor struct {
	client    *apiClient
	apiKey    string
	webhookID string
	logger    *zap.Logger
}

func NewPayPal(cfg config.ProcessorConfig, logger *zap.Logger) *PayPalProcessor {
	return &PayPalProcessor{
		client:    newAPIClient(cfg.APIBaseURL),
		apiKey:    cfg.APIKey,
		webhookID: cfg.WebhookID,
		logger:    logger,
	}
}

func (p *PayPalProcessor) Name() string {
	return "paypal"
}

func (p *PayPalProcessor) SignatureHeader() string {
	return "Paypal-Transmission-Sig"
}

// minorUnitsToDecimal renders cents as the "48.60" style string PayPal expects
func minorUnitsToDecimal(amount int64) string {
	return fmt.Sprintf("%d.%02d", amount/100, amount%100)
}

type paypalOrderRequest struct {
	Intent        string               `json:"intent"`
	PurchaseUnits []paypalPurchaseUnit `json:"purchase_units"`
}

type paypalPurchaseUnit struct {
	ReferenceID string       `json:"reference_id"`
	Amount      paypalAmount `json:"amount"`
}

type paypalAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type paypalOrderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (p *PayPalProcessor) ProcessPayment(ctx context.Context, order *domain.Order, attemptID uuid.UUID) (*Result, error) {
	body := paypalOrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []paypalPurchaseUnit{{
			ReferenceID: order.ID.String(),
			Amount: paypalAmount{
				CurrencyCode: "USD",
				Value:        minorUnitsToDecimal(order.Total),
			},
		}},
	}

	headers := map[string]string{
		"Authorization": "Bearer " + p.apiKey,
		// PayPal's idempotency header
		"PayPal-Request-Id": IdempotencyKey(order.ID, attemptID),
	}

	var resp paypalOrderResponse
	if err := p.client.postJSON(ctx, "/v2/checkout/orders", headers, body, &resp); err != nil {
		return nil, err
	}

	switch resp.Status {
	case "COMPLETED", "APPROVED":
		return &Result{
			Success:       true,
			TransactionID: resp.ID,
			Status:        domain.AttemptStatusCompleted,
		}, nil
	case "CREATED", "SAVED", "PAYER_ACTION_REQUIRED":
		return &Result{
			Success:       false,
			TransactionID: resp.ID,
			Status:        domain.AttemptStatusPending,
			Message:       "awaiting payer approval",
		}, nil
	default:
		return &Result{
			Success:       false,
			TransactionID: resp.ID,
			Status:        domain.AttemptStatusFailed,
			Message:       fmt.Sprintf("paypal order status %s", resp.Status),
		}, nil
	}
}

type paypalVerifyRequest struct {
	WebhookID       string          `json:"webhook_id"`
	TransmissionSig string          `json:"transmission_sig"`
	WebhookEvent    json.RawMessage `json:"webhook_event"`
}

type paypalVerifyResponse struct {
	VerificationStatus string `json:"verification_status"`
}

func (p *PayPalProcessor) VerifyWebhook(signature string, rawBody []byte) bool {
	if p.webhookID == "" || signature == "" {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	body := paypalVerifyRequest{
		WebhookID:       p.webhookID,
		TransmissionSig: signature,
		WebhookEvent:    json.RawMessage(rawBody),
	}
	headers := map[string]string{"Authorization": "Bearer " + p.apiKey}

	var resp paypalVerifyResponse
	if err := p.client.postJSON(ctx, "/v1/notifications/verify-webhook-signature", headers, body, &resp); err != nil {
		p.logger.Warn("paypal webhook verification call failed", zap.Error(err))
		return false
	}

	return resp.VerificationStatus == "SUCCESS"
}

type paypalEvent struct {
	EventType string `json:"event_type"`
	Resource  struct {
		ID          string `json:"id"`
		ReferenceID string `json:"reference_id"`
		CustomID    string `json:"custom_id"`
	} `json:"resource"`
}

func (p *PayPalProcessor) ParseWebhook(rawBody []byte) (*WebhookEvent, error) {
	var event paypalEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		return nil, fmt.Errorf("failed to decode paypal event: %w", err)
	}

	ref := event.Resource.ReferenceID
	if ref == "" {
		ref = event.Resource.CustomID
	}
	orderID, err := uuid.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("paypal event has no valid order reference: %w", err)
	}

	status := domain.AttemptStatusPending
	switch event.EventType {
	case "PAYMENT.CAPTURE.COMPLETED", "CHECKOUT.ORDER.COMPLETED":
		status = domain.AttemptStatusCompleted
	case "PAYMENT.CAPTURE.DENIED", "PAYMENT.CAPTURE.DECLINED":
		status = domain.AttemptStatusFailed
	}

	return &WebhookEvent{
		OrderID:       orderID,
		TransactionID: event.Resource.ID,
		Status:        status,
	}, nil
}

type paypalRefundResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (p *PayPalProcessor) Refund(ctx context.Context, transactionID string, amount int64) (*RefundResult, error) {
	body := map[string]interface{}{
		"amount": paypalAmount{
			CurrencyCode: "USD",
			Value:        minorUnitsToDecimal(amount),
		},
	}
	headers := map[string]string{"Authorization": "Bearer " + p.apiKey}

	var resp paypalRefundResponse
	path := fmt.Sprintf("/v2/payments/captures/%s/refund", transactionID)
	if err := p.client.postJSON(ctx, path, headers, body, &resp); err != nil {
		return nil, err
	}

	return &RefundResult{
		Success:  resp.Status == "COMPLETED" || resp.Status == "PENDING",
		RefundID: resp.ID,
	}, nil
}
