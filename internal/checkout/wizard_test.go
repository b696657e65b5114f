package checkout

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/greatwhitehope/shopapi/internal/domain"
	"github.com/greatwhitehope/shopapi/internal/payment"
	"github.com/greatwhitehope/shopapi/pkg/errors"
)

// fakeProcessor satisfies payment.Processor for registry lookups only
type fakeProcessor struct {
	name string
}

func (f *fakeProcessor) Name() string            { return f.name }
func (f *fakeProcessor) SignatureHeader() string { return "X-Signature" }
func (f *fakeProcessor) ProcessPayment(context.Context, *domain.Order, uuid.UUID) (*payment.Result, error) {
	return &payment.Result{Success: true, Status: domain.AttemptStatusCompleted}, nil
}
func (f *fakeProcessor) VerifyWebhook(string, []byte) bool { return true }
func (f *fakeProcessor) ParseWebhook([]byte) (*payment.WebhookEvent, error) {
	return &payment.WebhookEvent{}, nil
}
func (f *fakeProcessor) Refund(context.Context, string, int64) (*payment.RefundResult, error) {
	return &payment.RefundResult{Success: true}, nil
}

func newTestWizard(t *testing.T) *Wizard {
	t.Helper()
	registry := payment.NewRegistry()
	registry.Register(&fakeProcessor{name: "stripe"})
	registry.Register(&fakeProcessor{name: "paypal"})
	return NewWizard(registry, []string{"US", "CA"}, zap.NewNop())
}

func validAddress() domain.Address {
	return domain.Address{
		Email:      "buyer@example.com",
		FirstName:  "Pat",
		LastName:   "Doe",
		Street:     "1 Main St",
		City:       "Denver",
		State:      "CO",
		PostalCode: "80014",
		Country:    "US",
	}
}

func cartLines() []domain.CartItem {
	return []domain.CartItem{
		{ProductID: "CONC-001", Name: "Premium Live Resin", UnitPrice: 4500, Quantity: 1},
	}
}

func TestBegin_StartsOnAddressWithSnapshot(t *testing.T) {
	w := newTestWizard(t)
	lines := cartLines()

	session := w.Begin(lines)

	assert.Equal(t, domain.StepAddress, session.Step)
	require.Len(t, session.Cart, 1)

	// Later mutation of the source slice must not reach the session
	lines[0].Quantity = 50
	assert.Equal(t, 1, session.Cart[0].Quantity)
}

func TestSubmitAddress_ReportsAllViolationsAtOnce(t *testing.T) {
	w := newTestWizard(t)
	session := w.Begin(cartLines())

	err := w.SubmitAddress(session, domain.Address{Email: "not-an-email"})

	var violations *errors.ValidationErrors
	require.ErrorAs(t, err, &violations)

	fields := map[string]bool{}
	for _, v := range violations.Violations {
		fields[v.Field] = true
	}
	for _, f := range []string{"email", "first_name", "last_name", "street", "city", "state", "postal_code", "country"} {
		assert.True(t, fields[f], "expected violation for %s", f)
	}
	assert.Equal(t, domain.StepAddress, session.Step)
}

func TestSubmitAddress_RejectsDisallowedCountry(t *testing.T) {
	w := newTestWizard(t)
	session := w.Begin(cartLines())

	address := validAddress()
	address.Country = "ZZ"
	err := w.SubmitAddress(session, address)

	var violations *errors.ValidationErrors
	require.ErrorAs(t, err, &violations)
	require.Len(t, violations.Violations, 1)
	assert.Equal(t, "country", violations.Violations[0].Field)
	assert.Equal(t, domain.StepAddress, session.Step)
}

func TestSubmitAddress_AdvancesToPaymentMethod(t *testing.T) {
	w := newTestWizard(t)
	session := w.Begin(cartLines())

	require.NoError(t, w.SubmitAddress(session, validAddress()))

	assert.Equal(t, domain.StepPaymentMethod, session.Step)
	require.NotNil(t, session.Address)
	assert.Equal(t, "buyer@example.com", session.Address.Email)
}

func TestSelectPaymentMethod_UnknownProcessor(t *testing.T) {
	w := newTestWizard(t)
	session := w.Begin(cartLines())
	require.NoError(t, w.SubmitAddress(session, validAddress()))

	err := w.SelectPaymentMethod(session, "square", nil)

	var notFound *errors.ErrProcessorNotFound
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, domain.StepPaymentMethod, session.Step)
}

func TestSelectPaymentMethod_CardProcessorRequiresCardDetails(t *testing.T) {
	w := newTestWizard(t)
	session := w.Begin(cartLines())
	require.NoError(t, w.SubmitAddress(session, validAddress()))

	err := w.SelectPaymentMethod(session, "stripe", map[string]string{
		"card_number": "4242424242424242",
	})

	var violations *errors.ValidationErrors
	require.ErrorAs(t, err, &violations)

	fields := map[string]bool{}
	for _, v := range violations.Violations {
		fields[v.Field] = true
	}
	assert.True(t, fields["card_expiry"])
	assert.True(t, fields["card_cvc"])
	assert.Equal(t, domain.StepPaymentMethod, session.Step)
}

func TestSelectPaymentMethod_RedirectProcessorNeedsNoDetails(t *testing.T) {
	w := newTestWizard(t)
	session := w.Begin(cartLines())
	require.NoError(t, w.SubmitAddress(session, validAddress()))

	require.NoError(t, w.SelectPaymentMethod(session, "paypal", nil))

	assert.Equal(t, domain.StepReview, session.Step)
	assert.Equal(t, "paypal", session.ProcessorID)
}

func TestBack_PreservesEnteredData(t *testing.T) {
	w := newTestWizard(t)
	session := w.Begin(cartLines())
	require.NoError(t, w.SubmitAddress(session, validAddress()))
	require.NoError(t, w.SelectPaymentMethod(session, "paypal", nil))

	require.NoError(t, w.Back(session))
	assert.Equal(t, domain.StepPaymentMethod, session.Step)
	assert.Equal(t, "paypal", session.ProcessorID)

	require.NoError(t, w.Back(session))
	assert.Equal(t, domain.StepAddress, session.Step)
	require.NotNil(t, session.Address)
	assert.Equal(t, "Denver", session.Address.City)
}

func TestBack_NotAllowedFromAddressOrComplete(t *testing.T) {
	w := newTestWizard(t)
	session := w.Begin(cartLines())

	err := w.Back(session)
	var badTransition *errors.ErrInvalidStateTransition
	require.ErrorAs(t, err, &badTransition)

	require.NoError(t, w.SubmitAddress(session, validAddress()))
	require.NoError(t, w.SelectPaymentMethod(session, "paypal", nil))
	require.NoError(t, w.Complete(session, uuid.New()))

	err = w.Back(session)
	require.ErrorAs(t, err, &badTransition)
	assert.Equal(t, domain.StepComplete, session.Step)
}

func TestSubmitAddress_RejectedOffStep(t *testing.T) {
	w := newTestWizard(t)
	session := w.Begin(cartLines())
	require.NoError(t, w.SubmitAddress(session, validAddress()))

	err := w.SubmitAddress(session, validAddress())

	var badTransition *errors.ErrInvalidStateTransition
	require.ErrorAs(t, err, &badTransition)
}

func TestComplete_OnlyFromReview(t *testing.T) {
	w := newTestWizard(t)
	session := w.Begin(cartLines())

	err := w.Complete(session, uuid.New())
	var badTransition *errors.ErrInvalidStateTransition
	require.ErrorAs(t, err, &badTransition)

	require.NoError(t, w.SubmitAddress(session, validAddress()))
	require.NoError(t, w.SelectPaymentMethod(session, "paypal", nil))

	orderID := uuid.New()
	require.NoError(t, w.Complete(session, orderID))
	assert.Equal(t, domain.StepComplete, session.Step)
	require.NotNil(t, session.OrderID)
	assert.Equal(t, orderID, *session.OrderID)
}

func TestRecordFailure_KeepsSessionOnReview(t *testing.T) {
	w := newTestWizard(t)
	session := w.Begin(cartLines())
	require.NoError(t, w.SubmitAddress(session, validAddress()))
	require.NoError(t, w.SelectPaymentMethod(session, "paypal", nil))

	w.RecordFailure(session, "card declined")

	assert.Equal(t, domain.StepReview, session.Step)
	assert.Equal(t, "card declined", session.LastError)
	assert.Equal(t, "paypal", session.ProcessorID)
}

func TestMemoryStore_ExpiredSessionIsGone(t *testing.T) {
	store := NewMemoryStore(-1) // already expired on save
	w := newTestWizard(t)
	session := w.Begin(cartLines())

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, session))

	_, err := store.Get(ctx, session.ID)
	var notFound *errors.ErrNotFound
	require.ErrorAs(t, err, &notFound)
}
