package domain

// OrderStatus represents the status of a storefront order
type OrderStatus string

const (
	OrderStatusPending           OrderStatus = "PENDING"
	OrderStatusPaymentAuthorized OrderStatus = "PAYMENT_AUTHORIZED"
	OrderStatusPaymentFailed     OrderStatus = "PAYMENT_FAILED"
	OrderStatusFulfilled         OrderStatus = "FULFILLED"
	OrderStatusCancelled         OrderStatus = "CANCELLED"
)

func (s OrderStatus) String() string {
	return string(s)
}

// IsValid checks if the order status is valid
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending,
		OrderStatusPaymentAuthorized,
		OrderStatusPaymentFailed,
		OrderStatusFulfilled,
		OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransitionTo checks if a status transition is valid. Transitions are
// monotonic except PAYMENT_FAILED -> PENDING, which is the explicit
// resubmission path and never happens automatically.
func (s OrderStatus) CanTransitionTo(newStatus OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return newStatus == OrderStatusPaymentAuthorized ||
			newStatus == OrderStatusPaymentFailed ||
			newStatus == OrderStatusCancelled
	case OrderStatusPaymentFailed:
		return newStatus == OrderStatusPending ||
			newStatus == OrderStatusCancelled
	case OrderStatusPaymentAuthorized:
		return newStatus == OrderStatusFulfilled ||
			newStatus == OrderStatusCancelled
	case OrderStatusFulfilled, OrderStatusCancelled:
		return false // Terminal states
	default:
		return false
	}
}

// AttemptStatus represents the status of a payment attempt
type AttemptStatus string

const (
	AttemptStatusPending   AttemptStatus = "PENDING"
	AttemptStatusCompleted AttemptStatus = "COMPLETED"
	AttemptStatusFailed    AttemptStatus = "FAILED"
)

func (s AttemptStatus) String() string {
	return string(s)
}

// IsValid checks if the attempt status is valid
func (s AttemptStatus) IsValid() bool {
	switch s {
	case AttemptStatusPending, AttemptStatusCompleted, AttemptStatusFailed:
		return true
	default:
		return false
	}
}

// CheckoutStep represents the wizard step a checkout session is on
type CheckoutStep string

const (
	StepAddress       CheckoutStep = "ADDRESS"
	StepPaymentMethod CheckoutStep = "PAYMENT_METHOD"
	StepReview        CheckoutStep = "REVIEW"
	StepComplete      CheckoutStep = "COMPLETE"
)

func (s CheckoutStep) String() string {
	return string(s)
}

// Prev returns the step reached by backward navigation. Backward moves are
// always permitted from PAYMENT_METHOD and REVIEW; ADDRESS and COMPLETE
// have no predecessor.
func (s CheckoutStep) Prev() (CheckoutStep, bool) {
	switch s {
	case StepPaymentMethod:
		return StepAddress, true
	case StepReview:
		return StepPaymentMethod, true
	default:
		return s, false
	}
}
