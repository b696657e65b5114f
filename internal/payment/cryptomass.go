package payment

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/greatwhitehope/shopapi/internal/config"
	"github.com/greatwhitehope/shopapi/internal/domain"
)

// CryptoMassProcessor charges through CryptoMass, which converts card
// payments to cryptocurrency settlement. Webhooks carry a base64
// HMAC-SHA512 of the raw body.
type CryptoMassProcessor struct {
	client        *apiClient
	apiKey        string
	webhookSecret string
	logger        *zap.Logger
}

func NewCryptoMass(cfg config.ProcessorConfig, logger *zap.Logger) *CryptoMassProcessor {
	return &CryptoMassProcessor{
		client:        newAPIClient(cfg.APIBaseURL),
		apiKey:        cfg.APIKey,
		webhookSecret: cfg.WebhookSecret,
		logger:        logger,
	}
}

func (p *CryptoMassProcessor) Name() string {
	return "cryptomass"
}

func (p *CryptoMassProcessor) SignatureHeader() string {
	return "X-CM-Signature"
}

type cmPaymentRequest struct {
	AmountMinor int64  `json:"amount_minor"`
	Currency    string `json:"currency"`
	Reference   string `json:"reference"`
	Nonce       string `json:"nonce"`
}

type cmPaymentResponse struct {
	PaymentID string `json:"payment_id"`
	State     string `json:"state"`
	Reason    string `json:"reason"`
}

func (p *CryptoMassProcessor) ProcessPayment(ctx context.Context, order *domain.Order, attemptID uuid.UUID) (*Result, error) {
	body := cmPaymentRequest{
		AmountMinor: order.Total,
		Currency:    "USD",
		Reference:   order.ID.String(),
		Nonce:       IdempotencyKey(order.ID, attemptID),
	}
	headers := map[string]string{"X-CM-Api-Key": p.apiKey}

	var resp cmPaymentResponse
	if err := p.client.postJSON(ctx, "/v1/payments", headers, body, &resp); err != nil {
		return nil, err
	}

	switch resp.State {
	case "confirmed":
		return &Result{
			Success:       true,
			TransactionID: resp.PaymentID,
			Status:        domain.AttemptStatusCompleted,
		}, nil
	case "pending":
		return &Result{
			Success:       false,
			TransactionID: resp.PaymentID,
			Status:        domain.AttemptStatusPending,
			Message:       "awaiting chain confirmation",
		}, nil
	default:
		return &Result{
			Success:       false,
			TransactionID: resp.PaymentID,
			Status:        domain.AttemptStatusFailed,
			Message:       resp.Reason,
		}, nil
	}
}

func (p *CryptoMassProcessor) VerifyWebhook(signature string, rawBody []byte) bool {
	if p.webhookSecret == "" || signature == "" {
		return false
	}
	return verifyBase64HMAC512(p.webhookSecret, signature, rawBody)
}

type cmEvent struct {
	Reference string `json:"reference"`
	PaymentID string `json:"payment_id"`
	State     string `json:"state"`
}

func (p *CryptoMassProcessor) ParseWebhook(rawBody []byte) (*WebhookEvent, error) {
	var event cmEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		return nil, fmt.Errorf("failed to decode cryptomass event: %w", err)
	}

	orderID, err := uuid.Parse(event.Reference)
	if err != nil {
		return nil, fmt.Errorf("cryptomass event has no valid order reference: %w", err)
	}

	status := domain.AttemptStatusPending
	switch event.State {
	case "confirmed":
		status = domain.AttemptStatusCompleted
	case "failed", "expired":
		status = domain.AttemptStatusFailed
	}

	return &WebhookEvent{
		OrderID:       orderID,
		TransactionID: event.PaymentID,
		Status:        status,
	}, nil
}

type cmRefundResponse struct {
	RefundID string `json:"refund_id"`
	State    string `json:"state"`
	Reason   string `json:"reason"`
}

func (p *CryptoMassProcessor) Refund(ctx context.Context, transactionID string, amount int64) (*RefundResult, error) {
	body := map[string]interface{}{
		"payment_id":   transactionID,
		"amount_minor": amount,
	}
	headers := map[string]string{"X-CM-Api-Key": p.apiKey}

	var resp cmRefundResponse
	if err := p.client.postJSON(ctx, "/v1/refunds", headers, body, &resp); err != nil {
		return nil, err
	}

	return &RefundResult{
		Success:  resp.State == "confirmed" || resp.State == "pending",
		RefundID: resp.RefundID,
		Message:  resp.Reason,
	}, nil
}
