package errors

import (
	"fmt"
	"strings"
)

// ErrNotFound is returned when a requested resource does not exist
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrUnauthorized is returned on invalid credentials or tokens
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	return e.Message
}

// ErrInvalidStateTransition is returned when an order status change is not allowed
type ErrInvalidStateTransition struct {
	From fmt.Stringer
	To   fmt.Stringer
}

func (e *ErrInvalidStateTransition) Error() string {
	return fmt.Sprintf("invalid state transition from %s to %s", e.From, e.To)
}

// FieldViolation describes a single invalid or missing field
type FieldViolation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors carries every violation found in one pass so clients
// can surface all of them at once instead of fixing fields one at a time.
type ValidationErrors struct {
	Violations []FieldViolation
}

func (e *ValidationErrors) Error() string {
	fields := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		fields[i] = v.Field
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(fields, ", "))
}

// Add appends a violation and returns the receiver for chaining
func (e *ValidationErrors) Add(field, message string) *ValidationErrors {
	e.Violations = append(e.Violations, FieldViolation{Field: field, Message: message})
	return e
}

// HasViolations reports whether any field failed validation
func (e *ValidationErrors) HasViolations() bool {
	return len(e.Violations) > 0
}

// ErrInvalidItem is returned when a cart line fails validation
type ErrInvalidItem struct {
	Reason string
}

func (e *ErrInvalidItem) Error() string {
	return fmt.Sprintf("invalid cart item: %s", e.Reason)
}

// ErrEmptyCart is returned when an order is submitted with no line items
type ErrEmptyCart struct{}

func (e *ErrEmptyCart) Error() string {
	return "cart is empty"
}

// ErrProcessorNotFound is returned when a payment processor id is not registered
type ErrProcessorNotFound struct {
	Name string
}

func (e *ErrProcessorNotFound) Error() string {
	return fmt.Sprintf("payment processor not registered: %s", e.Name)
}

// PaymentError is returned when a processor call fails. Timeout and
// provider declines are distinct: a timeout is always retryable.
type PaymentError struct {
	Processor string
	Message   string
	Timeout   bool
	Retryable bool
}

func (e *PaymentError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("payment via %s timed out", e.Processor)
	}
	return fmt.Sprintf("payment via %s failed: %s", e.Processor, e.Message)
}
