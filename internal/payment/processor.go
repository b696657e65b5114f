package payment

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/greatwhitehope/shopapi/internal/domain"
)

// Result is the outcome of a charge attempt against a processor
type Result struct {
	Success       bool                 `json:"success"`
	TransactionID string               `json:"transaction_id"`
	Status        domain.AttemptStatus `json:"status"`
	Message       string               `json:"message,omitempty"`
}

// RefundResult is the outcome of a refund request
type RefundResult struct {
	Success  bool   `json:"success"`
	RefundID string `json:"refund_id"`
	Message  string `json:"message,omitempty"`
}

// WebhookEvent is the provider-neutral form of a webhook notification.
// Callers must only act on events whose signature verified.
type WebhookEvent struct {
	OrderID       uuid.UUID
	TransactionID string
	Status        domain.AttemptStatus
}

// Processor is the fixed capability set every payment provider implements.
// Implementations send real credential-bearing requests; none of them may
// report success without a provider response.
type Processor interface {
	// Name is the registry identifier, e.g. "stripe"
	Name() string

	// ProcessPayment attempts to charge the order. The attempt id is folded
	// into the provider idempotency key so a retried call against the same
	// order+attempt never double-charges.
	ProcessPayment(ctx context.Context, order *domain.Order, attemptID uuid.UUID) (*Result, error)

	// SignatureHeader is the HTTP header the provider delivers its webhook
	// signature in.
	SignatureHeader() string

	// VerifyWebhook checks the provider signature over the raw body.
	// Webhook payloads must never be trusted before this returns true.
	VerifyWebhook(signature string, rawBody []byte) bool

	// ParseWebhook decodes a verified webhook body into a neutral event
	ParseWebhook(rawBody []byte) (*WebhookEvent, error)

	// Refund issues a refund against a prior transaction
	Refund(ctx context.Context, transactionID string, amount int64) (*RefundResult, error)
}

// IdempotencyKey builds the provider-scoped idempotency key for a charge.
// It is derived from the order and attempt ids so the same retried attempt
// maps to the same provider-side operation.
func IdempotencyKey(orderID, attemptID uuid.UUID) string {
	return fmt.Sprintf("order_%s_attempt_%s", orderID, attemptID)
}
