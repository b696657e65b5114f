package checkout

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/greatwhitehope/shopapi/internal/domain"
	"github.com/greatwhitehope/shopapi/internal/payment"
	"github.com/greatwhitehope/shopapi/pkg/errors"
)

// cardDetailFields are required for processors that collect card data
// directly; account-redirect processors need no payment details.
var cardDetailFields = []string{"card_number", "card_expiry", "card_cvc"}

var cardProcessors = map[string]bool{
	"stripe":          true,
	"green_financial": true,
	"cryptomass":      true,
}

// Wizard drives a checkout session through
// Address -> PaymentMethod -> Review -> Complete. Abandonment is implicit:
// the session store expires sessions that never reach Complete.
type Wizard struct {
	registry         *payment.Registry
	allowedCountries map[string]bool
	logger           *zap.Logger
}

// NewWizard creates a checkout wizard validating against the registered
// processor set and the configured country allow-list.
func NewWizard(registry *payment.Registry, allowedCountries []string, logger *zap.Logger) *Wizard {
	allowed := make(map[string]bool, len(allowedCountries))
	for _, c := range allowedCountries {
		allowed[strings.ToUpper(c)] = true
	}
	return &Wizard{
		registry:         registry,
		allowedCountries: allowed,
		logger:           logger,
	}
}

// Begin opens a session on the Address step over a snapshot of the cart
func (w *Wizard) Begin(cartItems []domain.CartItem) *domain.CheckoutSession {
	now := time.Now()
	return &domain.CheckoutSession{
		ID:        uuid.New(),
		Step:      domain.StepAddress,
		Cart:      append(cartItems[:0:0], cartItems...),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SubmitAddress validates the address and advances Address -> PaymentMethod.
// Every violation is reported at once; the wizard does not advance on any.
func (w *Wizard) SubmitAddress(session *domain.CheckoutSession, address domain.Address) error {
	if session.Step != domain.StepAddress {
		return &errors.ErrInvalidStateTransition{From: session.Step, To: domain.StepPaymentMethod}
	}

	if violations := w.validateAddress(address); violations.HasViolations() {
		return violations
	}

	session.Address = &address
	session.Step = domain.StepPaymentMethod
	session.UpdatedAt = time.Now()
	return nil
}

func (w *Wizard) validateAddress(address domain.Address) *errors.ValidationErrors {
	violations := &errors.ValidationErrors{}

	required := []struct {
		field string
		value string
	}{
		{"email", address.Email},
		{"first_name", address.FirstName},
		{"last_name", address.LastName},
		{"street", address.Street},
		{"city", address.City},
		{"state", address.State},
		{"postal_code", address.PostalCode},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			violations.Add(f.field, "is required")
		}
	}

	if strings.TrimSpace(address.Email) != "" && !strings.Contains(address.Email, "@") {
		violations.Add("email", "is not a valid email address")
	}

	country := strings.ToUpper(strings.TrimSpace(address.Country))
	if country == "" {
		violations.Add("country", "is required")
	} else if !w.allowedCountries[country] {
		violations.Add("country", "is not in the allowed country list")
	}

	return violations
}

// SelectPaymentMethod validates the processor choice and advances
// PaymentMethod -> Review. Card processors require card details; redirect
// processors require none.
func (w *Wizard) SelectPaymentMethod(session *domain.CheckoutSession, processorID string, details map[string]string) error {
	if session.Step != domain.StepPaymentMethod {
		return &errors.ErrInvalidStateTransition{From: session.Step, To: domain.StepReview}
	}

	if _, err := w.registry.Resolve(processorID); err != nil {
		return err
	}

	if cardProcessors[processorID] {
		violations := &errors.ValidationErrors{}
		for _, field := range cardDetailFields {
			if strings.TrimSpace(details[field]) == "" {
				violations.Add(field, "is required")
			}
		}
		if violations.HasViolations() {
			return violations
		}
	}

	session.ProcessorID = processorID
	session.PaymentDetails = details
	session.Step = domain.StepReview
	session.UpdatedAt = time.Now()
	return nil
}

// Back moves one step backwards, preserving everything already entered
func (w *Wizard) Back(session *domain.CheckoutSession) error {
	prev, ok := session.Step.Prev()
	if !ok {
		return &errors.ErrInvalidStateTransition{From: session.Step, To: session.Step}
	}
	session.Step = prev
	session.UpdatedAt = time.Now()
	return nil
}

// Complete marks the session finished after a successful order submission
func (w *Wizard) Complete(session *domain.CheckoutSession, orderID uuid.UUID) error {
	if session.Step != domain.StepReview {
		return &errors.ErrInvalidStateTransition{From: session.Step, To: domain.StepComplete}
	}
	session.OrderID = &orderID
	session.LastError = ""
	session.Step = domain.StepComplete
	session.UpdatedAt = time.Now()
	return nil
}

// RecordFailure keeps the session on Review with the failure message so
// nothing the shopper entered is lost.
func (w *Wizard) RecordFailure(session *domain.CheckoutSession, message string) {
	session.LastError = message
	session.UpdatedAt = time.Now()
	w.logger.Info("checkout submission failed",
		zap.String("session_id", session.ID.String()),
		zap.String("reason", message),
	)
}
