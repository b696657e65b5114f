package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/greatwhitehope/shopapi/internal/config"
	"github.com/greatwhitehope/shopapi/internal/domain"
	"github.com/greatwhitehope/shopapi/internal/payment"
	"github.com/greatwhitehope/shopapi/internal/repository"
	"github.com/greatwhitehope/shopapi/internal/repository/memory"
	"github.com/greatwhitehope/shopapi/pkg/errors"
)

// fakeProcessor is a scriptable payment.Processor
type fakeProcessor struct {
	name         string
	result       *payment.Result
	err          error
	calls        int
	verifyOK     bool
	webhookEvent *payment.WebhookEvent
	refundResult *payment.RefundResult
}

func (f *fakeProcessor) Name() string            { return f.name }
func (f *fakeProcessor) SignatureHeader() string { return "X-Signature" }

func (f *fakeProcessor) ProcessPayment(context.Context, *domain.Order, uuid.UUID) (*payment.Result, error) {
	f.calls++
	return f.result, f.err
}

func (f *fakeProcessor) VerifyWebhook(string, []byte) bool { return f.verifyOK }

func (f *fakeProcessor) ParseWebhook([]byte) (*payment.WebhookEvent, error) {
	return f.webhookEvent, nil
}

func (f *fakeProcessor) Refund(context.Context, string, int64) (*payment.RefundResult, error) {
	return f.refundResult, nil
}

func newTestService(procs ...payment.Processor) (*OrderService, *repository.Repositories) {
	repos := memory.NewRepositories()
	registry := payment.NewRegistry()
	for _, p := range procs {
		registry.Register(p)
	}
	cfg := config.CheckoutConfig{
		TaxRateBasisPoints: 800,
		PaymentTimeout:     time.Second,
	}
	return NewOrderService(repos, registry, cfg, zap.NewNop()), repos
}

func testSession() *domain.CheckoutSession {
	return &domain.CheckoutSession{
		ID:   uuid.New(),
		Step: domain.StepReview,
		Cart: []domain.CartItem{
			{ProductID: "CONC-001", Name: "Premium Live Resin", UnitPrice: 4500, Quantity: 1},
		},
		Address: &domain.Address{
			Email:      "buyer@example.com",
			FirstName:  "Pat",
			LastName:   "Doe",
			Street:     "1 Main St",
			City:       "Denver",
			State:      "CO",
			PostalCode: "80014",
			Country:    "US",
		},
		ProcessorID: "stripe",
	}
}

func TestCreateOrder_AppliesConfiguredTax(t *testing.T) {
	svc, _ := newTestService()

	order, err := svc.CreateOrder(context.Background(), testSession())
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Equal(t, int64(4500), order.Subtotal)
	assert.Equal(t, int64(360), order.Tax)
	assert.Equal(t, int64(4860), order.Total)
}

func TestCreateOrder_EmptyCart(t *testing.T) {
	svc, _ := newTestService()
	session := testSession()
	session.Cart = nil

	_, err := svc.CreateOrder(context.Background(), session)

	var empty *errors.ErrEmptyCart
	require.ErrorAs(t, err, &empty)
}

func TestCreateOrder_RejectsInvalidLine(t *testing.T) {
	svc, _ := newTestService()
	session := testSession()
	session.Cart[0].UnitPrice = 0

	_, err := svc.CreateOrder(context.Background(), session)

	var invalid *errors.ErrInvalidItem
	require.ErrorAs(t, err, &invalid)
}

func TestSubmitPayment_SuccessAuthorizesOrder(t *testing.T) {
	proc := &fakeProcessor{
		name:   "stripe",
		result: &payment.Result{Success: true, TransactionID: "pi_1", Status: domain.AttemptStatusCompleted},
	}
	svc, repos := newTestService(proc)

	order, err := svc.CreateOrder(context.Background(), testSession())
	require.NoError(t, err)

	attempt, err := svc.SubmitPayment(context.Background(), order.ID, "stripe", "key-1")
	require.NoError(t, err)

	assert.Equal(t, domain.AttemptStatusCompleted, attempt.Status)
	assert.Equal(t, "pi_1", attempt.TransactionID)

	stored, err := repos.Order.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaymentAuthorized, stored.Status)
}

func TestSubmitPayment_SameKeyChargesOnce(t *testing.T) {
	proc := &fakeProcessor{
		name:   "stripe",
		result: &payment.Result{Success: true, TransactionID: "pi_1", Status: domain.AttemptStatusCompleted},
	}
	svc, repos := newTestService(proc)

	order, err := svc.CreateOrder(context.Background(), testSession())
	require.NoError(t, err)

	first, err := svc.SubmitPayment(context.Background(), order.ID, "stripe", "key-1")
	require.NoError(t, err)
	second, err := svc.SubmitPayment(context.Background(), order.ID, "stripe", "key-1")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, proc.calls)

	attempts, err := repos.PaymentAttempt.ListByOrderID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Len(t, attempts, 1)
}

func TestSubmitPayment_DeclineRecordsAttemptNotError(t *testing.T) {
	proc := &fakeProcessor{
		name:   "stripe",
		result: &payment.Result{Success: false, TransactionID: "pi_2", Status: domain.AttemptStatusFailed, Message: "card declined"},
	}
	svc, repos := newTestService(proc)

	order, err := svc.CreateOrder(context.Background(), testSession())
	require.NoError(t, err)

	attempt, err := svc.SubmitPayment(context.Background(), order.ID, "stripe", "")
	require.NoError(t, err)

	assert.Equal(t, domain.AttemptStatusFailed, attempt.Status)
	assert.Equal(t, "card declined", attempt.Message)

	stored, err := repos.Order.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaymentFailed, stored.Status)
}

func TestSubmitPayment_TimeoutIsRetryableFailure(t *testing.T) {
	proc := &fakeProcessor{
		name: "stripe",
		err:  context.DeadlineExceeded,
	}
	svc, repos := newTestService(proc)

	order, err := svc.CreateOrder(context.Background(), testSession())
	require.NoError(t, err)

	attempt, err := svc.SubmitPayment(context.Background(), order.ID, "stripe", "")
	require.NoError(t, err)

	assert.Equal(t, domain.AttemptStatusFailed, attempt.Status)
	assert.Contains(t, attempt.Message, "timed out")

	stored, err := repos.Order.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaymentFailed, stored.Status)

	// Resubmission is the explicit retry path
	require.NoError(t, svc.ResubmitOrder(context.Background(), order.ID))
	stored, err = repos.Order.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, stored.Status)
}

func TestSubmitPayment_RejectedWhenNotPending(t *testing.T) {
	proc := &fakeProcessor{
		name:   "stripe",
		result: &payment.Result{Success: true, TransactionID: "pi_3", Status: domain.AttemptStatusCompleted},
	}
	svc, _ := newTestService(proc)

	order, err := svc.CreateOrder(context.Background(), testSession())
	require.NoError(t, err)

	_, err = svc.SubmitPayment(context.Background(), order.ID, "stripe", "key-a")
	require.NoError(t, err)

	_, err = svc.SubmitPayment(context.Background(), order.ID, "stripe", "key-b")
	var badTransition *errors.ErrInvalidStateTransition
	require.ErrorAs(t, err, &badTransition)
	assert.Equal(t, 1, proc.calls)
}

func TestResubmitOrder_OnlyFromPaymentFailed(t *testing.T) {
	svc, _ := newTestService()

	order, err := svc.CreateOrder(context.Background(), testSession())
	require.NoError(t, err)

	err = svc.ResubmitOrder(context.Background(), order.ID)
	var badTransition *errors.ErrInvalidStateTransition
	require.ErrorAs(t, err, &badTransition)
}

func TestHandleWebhook_InvalidSignatureNeverChangesStatus(t *testing.T) {
	proc := &fakeProcessor{name: "stripe", verifyOK: false}
	svc, repos := newTestService(proc)

	order, err := svc.CreateOrder(context.Background(), testSession())
	require.NoError(t, err)
	proc.webhookEvent = &payment.WebhookEvent{
		OrderID: order.ID,
		Status:  domain.AttemptStatusCompleted,
	}

	err = svc.HandleWebhook(context.Background(), "stripe", "bad-sig", []byte(`{}`))

	var unauthorized *errors.ErrUnauthorized
	require.ErrorAs(t, err, &unauthorized)

	stored, err := repos.Order.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, stored.Status)
}

func TestHandleWebhook_AppliesCompletion(t *testing.T) {
	proc := &fakeProcessor{name: "stripe", verifyOK: true}
	svc, repos := newTestService(proc)

	order, err := svc.CreateOrder(context.Background(), testSession())
	require.NoError(t, err)
	proc.webhookEvent = &payment.WebhookEvent{
		OrderID:       order.ID,
		TransactionID: "pi_9",
		Status:        domain.AttemptStatusCompleted,
	}

	require.NoError(t, svc.HandleWebhook(context.Background(), "stripe", "sig", []byte(`{}`)))

	stored, err := repos.Order.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaymentAuthorized, stored.Status)
}

func TestHandleWebhook_StaleEventIsDropped(t *testing.T) {
	proc := &fakeProcessor{
		name:     "stripe",
		verifyOK: true,
		result:   &payment.Result{Success: true, TransactionID: "pi_4", Status: domain.AttemptStatusCompleted},
	}
	svc, repos := newTestService(proc)

	order, err := svc.CreateOrder(context.Background(), testSession())
	require.NoError(t, err)

	_, err = svc.SubmitPayment(context.Background(), order.ID, "stripe", "")
	require.NoError(t, err)

	// A late failure webhook must not clobber the authorized status
	proc.webhookEvent = &payment.WebhookEvent{
		OrderID: order.ID,
		Status:  domain.AttemptStatusFailed,
	}
	require.NoError(t, svc.HandleWebhook(context.Background(), "stripe", "sig", []byte(`{}`)))

	stored, err := repos.Order.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaymentAuthorized, stored.Status)
}

func TestRefund_OnlyCompletedAttempts(t *testing.T) {
	proc := &fakeProcessor{
		name:         "stripe",
		result:       &payment.Result{Success: false, TransactionID: "pi_5", Status: domain.AttemptStatusFailed, Message: "declined"},
		refundResult: &payment.RefundResult{Success: true, RefundID: "re_1"},
	}
	svc, _ := newTestService(proc)

	order, err := svc.CreateOrder(context.Background(), testSession())
	require.NoError(t, err)

	_, err = svc.SubmitPayment(context.Background(), order.ID, "stripe", "")
	require.NoError(t, err)

	_, err = svc.Refund(context.Background(), order.ID, "pi_5", 1000)
	var paymentErr *errors.PaymentError
	require.ErrorAs(t, err, &paymentErr)
}

func TestRefund_AppendsRefundRecord(t *testing.T) {
	proc := &fakeProcessor{
		name:         "stripe",
		result:       &payment.Result{Success: true, TransactionID: "pi_6", Status: domain.AttemptStatusCompleted},
		refundResult: &payment.RefundResult{Success: true, RefundID: "re_2"},
	}
	svc, repos := newTestService(proc)

	order, err := svc.CreateOrder(context.Background(), testSession())
	require.NoError(t, err)
	_, err = svc.SubmitPayment(context.Background(), order.ID, "stripe", "")
	require.NoError(t, err)

	refund, err := svc.Refund(context.Background(), order.ID, "pi_6", 1000)
	require.NoError(t, err)
	assert.Equal(t, "re_2", refund.RefundID)

	refunds, err := repos.Refund.ListByOrderID(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, refunds, 1)
	assert.Equal(t, int64(1000), refunds[0].Amount)
}

func TestFulfilAndCancel(t *testing.T) {
	proc := &fakeProcessor{
		name:   "stripe",
		result: &payment.Result{Success: true, TransactionID: "pi_7", Status: domain.AttemptStatusCompleted},
	}
	svc, repos := newTestService(proc)

	order, err := svc.CreateOrder(context.Background(), testSession())
	require.NoError(t, err)
	_, err = svc.SubmitPayment(context.Background(), order.ID, "stripe", "")
	require.NoError(t, err)

	require.NoError(t, svc.FulfilOrder(context.Background(), order.ID))
	stored, err := repos.Order.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusFulfilled, stored.Status)

	// Fulfilled is terminal
	err = svc.CancelOrder(context.Background(), order.ID)
	var badTransition *errors.ErrInvalidStateTransition
	require.ErrorAs(t, err, &badTransition)
}
