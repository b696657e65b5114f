package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/greatwhitehope/shopapi/internal/config"
	"github.com/greatwhitehope/shopapi/internal/domain"
)

// WooCommerceProcessor settles orders against an existing WooCommerce shop
// over its REST v3 API. Webhooks carry WooCommerce's standard base64
// HMAC-SHA256 signature of the raw body.
type WooCommerceProcessor struct {
	client        *apiClient
	apiKey        string
	webhookSecret string
	logger        *zap.Logger
}

func NewWooCommerce(cfg config.ProcessorConfig, logger *zap.Logger) *WooCommerceProcessor {
	return &WooCommerceProcessor{
		client:        newAPIClient(cfg.APIBaseURL),
		apiKey:        cfg.APIKey,
		webhookSecret: cfg.WebhookSecret,
		logger:        logger,
	}
}

func (p *WooCommerceProcessor) Name() string {
	return "woocommerce"
}

func (p *WooCommerceProcessor) SignatureHeader() string {
	return "X-WC-Webhook-Signature"
}

type wcOrderRequest struct {
	Status   string   `json:"status"`
	SetPaid  bool     `json:"set_paid"`
	Total    string   `json:"total"`
	MetaData []wcMeta `json:"meta_data"`
}

type wcMeta struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type wcOrderResponse struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

func (p *WooCommerceProcessor) ProcessPayment(ctx context.Context, order *domain.Order, attemptID uuid.UUID) (*Result, error) {
	body := wcOrderRequest{
		Status:  "processing",
		SetPaid: true,
		Total:   minorUnitsToDecimal(order.Total),
		MetaData: []wcMeta{
			{Key: "storefront_order_id", Value: order.ID.String()},
			{Key: "idempotency_key", Value: IdempotencyKey(order.ID, attemptID)},
		},
	}
	headers := map[string]string{"Authorization": "Basic " + p.apiKey}

	var resp wcOrderResponse
	if err := p.client.postJSON(ctx, "/wp-json/wc/v3/orders", headers, body, &resp); err != nil {
		return nil, err
	}

	txID := strconv.FormatInt(resp.ID, 10)
	switch resp.Status {
	case "processing", "completed":
		return &Result{
			Success:       true,
			TransactionID: txID,
			Status:        domain.AttemptStatusCompleted,
		}, nil
	case "pending", "on-hold":
		return &Result{
			Success:       false,
			TransactionID: txID,
			Status:        domain.AttemptStatusPending,
			Message:       "awaiting woocommerce settlement",
		}, nil
	default:
		return &Result{
			Success:       false,
			TransactionID: txID,
			Status:        domain.AttemptStatusFailed,
			Message:       fmt.Sprintf("woocommerce order status %s", resp.Status),
		}, nil
	}
}

func (p *WooCommerceProcessor) VerifyWebhook(signature string, rawBody []byte) bool {
	if p.webhookSecret == "" || signature == "" {
		return false
	}
	return verifyBase64HMAC256(p.webhookSecret, signature, rawBody)
}

type wcEvent struct {
	ID       int64    `json:"id"`
	Status   string   `json:"status"`
	MetaData []wcMeta `json:"meta_data"`
}

func (p *WooCommerceProcessor) ParseWebhook(rawBody []byte) (*WebhookEvent, error) {
	var event wcEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		return nil, fmt.Errorf("failed to decode woocommerce event: %w", err)
	}

	var orderRef string
	for _, m := range event.MetaData {
		if m.Key == "storefront_order_id" {
			orderRef = m.Value
			break
		}
	}
	orderID, err := uuid.Parse(orderRef)
	if err != nil {
		return nil, fmt.Errorf("woocommerce event has no valid order reference: %w", err)
	}

	status := domain.AttemptStatusPending
	switch event.Status {
	case "processing", "completed":
		status = domain.AttemptStatusCompleted
	case "failed", "cancelled", "refunded":
		status = domain.AttemptStatusFailed
	}

	return &WebhookEvent{
		OrderID:       orderID,
		TransactionID: strconv.FormatInt(event.ID, 10),
		Status:        status,
	}, nil
}

type wcRefundResponse struct {
	ID int64 `json:"id"`
}

func (p *WooCommerceProcessor) Refund(ctx context.Context, transactionID string, amount int64) (*RefundResult, error) {
	body := map[string]interface{}{
		"amount": minorUnitsToDecimal(amount),
	}
	headers := map[string]string{"Authorization": "Basic " + p.apiKey}

	path := fmt.Sprintf("/wp-json/wc/v3/orders/%s/refunds", transactionID)
	var resp wcRefundResponse
	if err := p.client.postJSON(ctx, path, headers, body, &resp); err != nil {
		return nil, err
	}

	return &RefundResult{
		Success:  resp.ID != 0,
		RefundID: strconv.FormatInt(resp.ID, 10),
	}, nil
}
