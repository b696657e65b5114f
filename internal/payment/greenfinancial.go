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

// GreenFinancialProcessor charges through Green Financial's cannabis-friendly
// ACH API. Webhooks carry a hex HMAC-SHA256 of the raw body.
type GreenFinancialProcessor struct {
	client        *apiClient
	apiKey        string
	webhookSecret string
	logger        *zap.Logger
}

func NewGreenFinancial(cfg config.ProcessorConfig, logger *zap.Logger) *GreenFinancialProcessor {
	return &GreenFinancialProcessor{
		client:        newAPIClient(cfg.APIBaseURL),
		apiKey:        cfg.APIKey,
		webhookSecret: cfg.WebhookSecret,
		logger:        logger,
	}
}

func (p *GreenFinancialProcessor) Name() string {
	return "green_financial"
}

func (p *GreenFinancialProcessor) SignatureHeader() string {
	return "X-GF-Signature"
}

type gfChargeRequest struct {
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	OrderID        string `json:"order_id"`
	IdempotencyKey string `json:"idempotency_key"`
}

type gfChargeResponse struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (p *GreenFinancialProcessor) ProcessPayment(ctx context.Context, order *domain.Order, attemptID uuid.UUID) (*Result, error) {
	body := gfChargeRequest{
		Amount:         order.Total,
		Currency:       "USD",
		OrderID:        order.ID.String(),
		IdempotencyKey: IdempotencyKey(order.ID, attemptID),
	}
	headers := map[string]string{"Authorization": "Bearer " + p.apiKey}

	var resp gfChargeResponse
	if err := p.client.postJSON(ctx, "/v1/charges", headers, body, &resp); err != nil {
		return nil, err
	}

	if resp.Status != "completed" {
		return &Result{
			Success:       false,
			TransactionID: resp.ID,
			Status:        domain.AttemptStatusFailed,
			Message:       resp.Message,
		}, nil
	}

	return &Result{
		Success:       true,
		TransactionID: resp.ID,
		Status:        domain.AttemptStatusCompleted,
	}, nil
}

func (p *GreenFinancialProcessor) VerifyWebhook(signature string, rawBody []byte) bool {
	if p.webhookSecret == "" || signature == "" {
		return false
	}
	return verifyHexHMAC256(p.webhookSecret, signature, rawBody)
}

type gfEvent struct {
	OrderID       string `json:"order_id"`
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
}

func (p *GreenFinancialProcessor) ParseWebhook(rawBody []byte) (*WebhookEvent, error) {
	var event gfEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		return nil, fmt.Errorf("failed to decode green financial event: %w", err)
	}

	orderID, err := uuid.Parse(event.OrderID)
	if err != nil {
		return nil, fmt.Errorf("green financial event has no valid order id: %w", err)
	}

	status := domain.AttemptStatusPending
	switch event.Status {
	case "completed":
		status = domain.AttemptStatusCompleted
	case "failed", "declined", "returned":
		status = domain.AttemptStatusFailed
	}

	return &WebhookEvent{
		OrderID:       orderID,
		TransactionID: event.TransactionID,
		Status:        status,
	}, nil
}

type gfRefundResponse struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (p *GreenFinancialProcessor) Refund(ctx context.Context, transactionID string, amount int64) (*RefundResult, error) {
	body := map[string]interface{}{
		"transaction_id": transactionID,
		"amount":         amount,
	}
	headers := map[string]string{"Authorization": "Bearer " + p.apiKey}

	var resp gfRefundResponse
	if err := p.client.postJSON(ctx, "/v1/refunds", headers, body, &resp); err != nil {
		return nil, err
	}

	return &RefundResult{
		Success:  resp.Status == "completed" || resp.Status == "pending",
		RefundID: resp.ID,
		Message:  resp.Message,
	}, nil
}
