package service

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/greatwhitehope/shopapi/internal/config"
	"github.com/greatwhitehope/shopapi/internal/domain"
	"github.com/greatwhitehope/shopapi/internal/payment"
	"github.com/greatwhitehope/shopapi/internal/repository"
	"github.com/greatwhitehope/shopapi/pkg/errors"
)

type OrderService struct {
	repos          *repository.Repositories
	registry       *payment.Registry
	taxRateBPS     int64
	paymentTimeout time.Duration
	logger         *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(repos *repository.Repositories, registry *payment.Registry, cfg config.CheckoutConfig, logger *zap.Logger) *OrderService {
	return &OrderService{
		repos:          repos,
		registry:       registry,
		taxRateBPS:     cfg.TaxRateBasisPoints,
		paymentTimeout: cfg.PaymentTimeout,
		logger:         logger,
	}
}

// CreateOrder builds a Pending order from a checkout session's cart
// snapshot. The snapshot is re-validated here; client state is not trusted.
func (s *OrderService) CreateOrder(ctx context.Context, session *domain.CheckoutSession) (*domain.Order, error) {
	if len(session.Cart) == 0 {
		return nil, &errors.ErrEmptyCart{}
	}
	if session.Address == nil {
		return nil, &errors.ValidationErrors{Violations: []errors.FieldViolation{
			{Field: "address", Message: "is required"},
		}}
	}

	var subtotal int64
	for _, item := range session.Cart {
		if item.ProductID == "" || item.UnitPrice <= 0 || item.Quantity < 1 {
			return nil, &errors.ErrInvalidItem{Reason: "order contains an invalid line"}
		}
		subtotal += item.Subtotal()
	}

	tax := subtotal * s.taxRateBPS / 10000

	order := &domain.Order{
		ID:       uuid.New(),
		Status:   domain.OrderStatusPending,
		Items:    append(session.Cart[:0:0], session.Cart...),
		Address:  *session.Address,
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal + tax,
	}

	if err := s.repos.Order.Create(ctx, order); err != nil {
		return nil, err
	}

	s.recordEvent(ctx, order.ID, "order_created", map[string]interface{}{
		"status": order.Status,
		"total":  order.Total,
	})

	return order, nil
}

// SubmitPayment charges the order through the named processor. It is
// idempotent per (order, processor, client key): a repeated call with the
// same key returns the prior attempt without touching the processor.
// Declines and timeouts are recorded on the returned attempt, not as an
// error; errors mean the submission itself was invalid.
func (s *OrderService) SubmitPayment(ctx context.Context, orderID uuid.UUID, processorID, clientKey string) (*domain.PaymentAttempt, error) {
	if clientKey != "" {
		prior, err := s.repos.PaymentAttempt.GetByIdempotencyKey(ctx, orderID, processorID, clientKey)
		if err == nil {
			return prior, nil
		}
		var notFound *errors.ErrNotFound
		if !stderrors.As(err, &notFound) {
			return nil, err
		}
	} else {
		// No client key means no dedup across retries; scope the stored
		// key to this attempt.
		clientKey = uuid.NewString()
	}

	order, err := s.repos.Order.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.OrderStatusPending {
		return nil, &errors.ErrInvalidStateTransition{
			From: order.Status,
			To:   domain.OrderStatusPaymentAuthorized,
		}
	}

	processor, err := s.registry.Resolve(processorID)
	if err != nil {
		return nil, err
	}

	attempt := &domain.PaymentAttempt{
		ID:             uuid.New(),
		OrderID:        orderID,
		ProcessorID:    processorID,
		IdempotencyKey: clientKey,
		Status:         domain.AttemptStatusPending,
	}

	callCtx, cancel := context.WithTimeout(ctx, s.paymentTimeout)
	defer cancel()

	result, err := processor.ProcessPayment(callCtx, order, attempt.ID)
	switch {
	case err != nil && isTimeout(callCtx, err):
		perr := &errors.PaymentError{Processor: processorID, Timeout: true, Retryable: true}
		attempt.Status = domain.AttemptStatusFailed
		attempt.Message = perr.Error()
		s.logger.Warn("payment attempt timed out",
			zap.String("order_id", orderID.String()),
			zap.String("processor", processorID),
		)
	case err != nil:
		attempt.Status = domain.AttemptStatusFailed
		attempt.Message = err.Error()
		s.logger.Error("payment attempt errored",
			zap.String("order_id", orderID.String()),
			zap.String("processor", processorID),
			zap.Error(err),
		)
	default:
		attempt.Status = result.Status
		attempt.TransactionID = result.TransactionID
		attempt.Message = result.Message
	}

	if err := s.repos.PaymentAttempt.Create(ctx, attempt); err != nil {
		return nil, err
	}

	switch attempt.Status {
	case domain.AttemptStatusCompleted:
		if err := s.transition(ctx, orderID, domain.OrderStatusPending, domain.OrderStatusPaymentAuthorized); err != nil {
			return nil, err
		}
	case domain.AttemptStatusFailed:
		if err := s.transition(ctx, orderID, domain.OrderStatusPending, domain.OrderStatusPaymentFailed); err != nil {
			return nil, err
		}
	}

	s.recordEvent(ctx, orderID, "payment_attempted", map[string]interface{}{
		"processor":      processorID,
		"attempt_status": attempt.Status,
		"transaction_id": attempt.TransactionID,
	})

	return attempt, nil
}

func isTimeout(ctx context.Context, err error) bool {
	return stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(ctx.Err(), context.DeadlineExceeded)
}

// ResubmitOrder is the explicit retry path: PAYMENT_FAILED back to PENDING
// so a new SubmitPayment may run. It is never triggered automatically.
func (s *OrderService) ResubmitOrder(ctx context.Context, orderID uuid.UUID) error {
	if err := s.transition(ctx, orderID, domain.OrderStatusPaymentFailed, domain.OrderStatusPending); err != nil {
		return err
	}
	s.recordEvent(ctx, orderID, "order_resubmitted", nil)
	return nil
}

// HandleWebhook applies a processor-reported status change. The signature
// is verified before the payload is read at all; a stale webhook that loses
// the optimistic status check is dropped, never applied.
func (s *OrderService) HandleWebhook(ctx context.Context, processorID, signature string, rawBody []byte) error {
	processor, err := s.registry.Resolve(processorID)
	if err != nil {
		return err
	}

	if !processor.VerifyWebhook(signature, rawBody) {
		s.logger.Warn("webhook signature verification failed",
			zap.String("processor", processorID),
		)
		return &errors.ErrUnauthorized{Message: "invalid webhook signature"}
	}

	event, err := processor.ParseWebhook(rawBody)
	if err != nil {
		return err
	}

	var next domain.OrderStatus
	switch event.Status {
	case domain.AttemptStatusCompleted:
		next = domain.OrderStatusPaymentAuthorized
	case domain.AttemptStatusFailed:
		next = domain.OrderStatusPaymentFailed
	default:
		// Nothing actionable yet
		return nil
	}

	swapped, err := s.repos.Order.UpdateStatusIf(ctx, event.OrderID, domain.OrderStatusPending, next)
	if err != nil {
		return err
	}
	if !swapped {
		s.logger.Info("webhook ignored, order already transitioned",
			zap.String("order_id", event.OrderID.String()),
			zap.String("processor", processorID),
		)
		return nil
	}

	s.recordEvent(ctx, event.OrderID, "webhook_applied", map[string]interface{}{
		"processor":      processorID,
		"transaction_id": event.TransactionID,
		"status":         next,
	})

	return nil
}

// VerifyPayment reports whether the given transaction belongs to the order
// and what state it is in.
func (s *OrderService) VerifyPayment(ctx context.Context, orderID uuid.UUID, processorID, transactionID string) (*domain.PaymentAttempt, error) {
	attempt, err := s.repos.PaymentAttempt.GetByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if attempt.OrderID != orderID || attempt.ProcessorID != processorID {
		return nil, &errors.ErrNotFound{Resource: "payment attempt", ID: transactionID}
	}
	return attempt, nil
}

// Refund issues a refund against a completed attempt's transaction and
// appends a refund record. Prior attempts are never mutated.
func (s *OrderService) Refund(ctx context.Context, orderID uuid.UUID, transactionID string, amount int64) (*domain.Refund, error) {
	attempt, err := s.repos.PaymentAttempt.GetByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if attempt.OrderID != orderID {
		return nil, &errors.ErrNotFound{Resource: "payment attempt", ID: transactionID}
	}
	if attempt.Status != domain.AttemptStatusCompleted {
		return nil, &errors.PaymentError{
			Processor: attempt.ProcessorID,
			Message:   "only completed attempts can be refunded",
		}
	}

	processor, err := s.registry.Resolve(attempt.ProcessorID)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.paymentTimeout)
	defer cancel()

	result, err := processor.Refund(callCtx, transactionID, amount)
	if err != nil {
		return nil, err
	}
	if !result.Success {
		return nil, &errors.PaymentError{
			Processor: attempt.ProcessorID,
			Message:   result.Message,
			Retryable: true,
		}
	}

	refund := &domain.Refund{
		ID:            uuid.New(),
		OrderID:       orderID,
		TransactionID: transactionID,
		RefundID:      result.RefundID,
		Amount:        amount,
	}
	if err := s.repos.Refund.Create(ctx, refund); err != nil {
		return nil, err
	}

	s.recordEvent(ctx, orderID, "refund_issued", map[string]interface{}{
		"transaction_id": transactionID,
		"refund_id":      result.RefundID,
		"amount":         amount,
	})

	return refund, nil
}

// FulfilOrder marks an authorized order fulfilled
func (s *OrderService) FulfilOrder(ctx context.Context, orderID uuid.UUID) error {
	if err := s.transition(ctx, orderID, domain.OrderStatusPaymentAuthorized, domain.OrderStatusFulfilled); err != nil {
		return err
	}
	s.recordEvent(ctx, orderID, "order_fulfilled", nil)
	return nil
}

// CancelOrder cancels an order from any non-terminal status
func (s *OrderService) CancelOrder(ctx context.Context, orderID uuid.UUID) error {
	order, err := s.repos.Order.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if err := s.transition(ctx, orderID, order.Status, domain.OrderStatusCancelled); err != nil {
		return err
	}
	s.recordEvent(ctx, orderID, "order_cancelled", nil)
	return nil
}

func (s *OrderService) transition(ctx context.Context, orderID uuid.UUID, from, to domain.OrderStatus) error {
	if !from.CanTransitionTo(to) {
		return &errors.ErrInvalidStateTransition{From: from, To: to}
	}

	swapped, err := s.repos.Order.UpdateStatusIf(ctx, orderID, from, to)
	if err != nil {
		return err
	}
	if !swapped {
		current, err := s.repos.Order.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		return &errors.ErrInvalidStateTransition{From: current.Status, To: to}
	}

	s.recordEvent(ctx, orderID, "status_change", map[string]interface{}{
		"from": from,
		"to":   to,
	})

	return nil
}

func (s *OrderService) recordEvent(ctx context.Context, orderID uuid.UUID, eventType string, data map[string]interface{}) {
	event := &domain.OrderEvent{
		OrderID:   orderID,
		EventType: eventType,
		EventData: data,
	}
	if err := s.repos.OrderEvent.Create(ctx, event); err != nil {
		s.logger.Warn("Failed to record order event",
			zap.String("order_id", orderID.String()),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}
