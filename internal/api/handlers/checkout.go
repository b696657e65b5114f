package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/greatwhitehope/shopapi/internal/cart"
	"github.com/greatwhitehope/shopapi/internal/checkout"
	"github.com/greatwhitehope/shopapi/internal/domain"
	"github.com/greatwhitehope/shopapi/internal/service"
	"github.com/greatwhitehope/shopapi/pkg/errors"
)

// AddressRequest represents the address step payload
type AddressRequest struct {
	Email      string `json:"email"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// PaymentMethodRequest represents the payment method step payload
type PaymentMethodRequest struct {
	Processor      string            `json:"processor" binding:"required"`
	PaymentDetails map[string]string `json:"payment_details"`
}

// SubmitRequest represents the review-step submission payload
type SubmitRequest struct {
	IdempotencyKey string `json:"idempotency_key"`
}

// sessionResponse never echoes payment details back to the client
func sessionResponse(s *domain.CheckoutSession) gin.H {
	resp := gin.H{
		"id":         s.ID.String(),
		"step":       s.Step,
		"cart":       s.Cart,
		"updated_at": s.UpdatedAt,
	}
	if s.Address != nil {
		resp["address"] = s.Address
	}
	if s.ProcessorID != "" {
		resp["processor"] = s.ProcessorID
	}
	if s.OrderID != nil {
		resp["order_id"] = s.OrderID.String()
	}
	if s.LastError != "" {
		resp["last_error"] = s.LastError
	}
	return resp
}

func checkoutSessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      "invalid checkout session ID",
			"statusCode": http.StatusBadRequest,
		})
		return uuid.Nil, false
	}
	return id, true
}

// HandleBeginCheckout handles POST /api/v1/checkout. It snapshots the
// session's cart; cart edits after this point do not affect the checkout.
func HandleBeginCheckout(carts cart.Store, sessions checkout.Store, wizard *checkout.Wizard, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid, ok := sessionID(c)
		if !ok {
			return
		}

		ct, err := carts.Get(c.Request.Context(), sid)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		if ct.IsEmpty() {
			respondError(c, logger, &errors.ErrEmptyCart{})
			return
		}

		session := wizard.Begin(ct.Snapshot())
		if err := sessions.Save(c.Request.Context(), session); err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusCreated, sessionResponse(session))
	}
}

// HandleGetCheckout handles GET /api/v1/checkout/:id. Reloading mid-flow
// resumes from the stored step; an expired session reads as not found.
func HandleGetCheckout(sessions checkout.Store, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := checkoutSessionID(c)
		if !ok {
			return
		}
		session, err := sessions.Get(c.Request.Context(), id)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, sessionResponse(session))
	}
}

// HandleCheckoutAddress handles PUT /api/v1/checkout/:id/address
func HandleCheckoutAddress(sessions checkout.Store, wizard *checkout.Wizard, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := checkoutSessionID(c)
		if !ok {
			return
		}

		var req AddressRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}

		session, err := sessions.Get(c.Request.Context(), id)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		address := domain.Address{
			Email:      req.Email,
			FirstName:  req.FirstName,
			LastName:   req.LastName,
			Street:     req.Street,
			City:       req.City,
			State:      req.State,
			PostalCode: req.PostalCode,
			Country:    req.Country,
		}
		if err := wizard.SubmitAddress(session, address); err != nil {
			respondError(c, logger, err)
			return
		}

		if err := sessions.Save(c.Request.Context(), session); err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, sessionResponse(session))
	}
}

// HandleCheckoutPayment handles PUT /api/v1/checkout/:id/payment
func HandleCheckoutPayment(sessions checkout.Store, wizard *checkout.Wizard, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := checkoutSessionID(c)
		if !ok {
			return
		}

		var req PaymentMethodRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}

		session, err := sessions.Get(c.Request.Context(), id)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		if err := wizard.SelectPaymentMethod(session, req.Processor, req.PaymentDetails); err != nil {
			respondError(c, logger, err)
			return
		}

		if err := sessions.Save(c.Request.Context(), session); err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, sessionResponse(session))
	}
}

// HandleCheckoutBack handles POST /api/v1/checkout/:id/back. Back is always
// allowed before completion and loses nothing already entered.
func HandleCheckoutBack(sessions checkout.Store, wizard *checkout.Wizard, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := checkoutSessionID(c)
		if !ok {
			return
		}

		session, err := sessions.Get(c.Request.Context(), id)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		if err := wizard.Back(session); err != nil {
			respondError(c, logger, err)
			return
		}

		if err := sessions.Save(c.Request.Context(), session); err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, sessionResponse(session))
	}
}

// HandleCheckoutSubmit handles POST /api/v1/checkout/:id/submit. It places
// the order and runs the charge; on decline or timeout the session stays on
// Review with everything the shopper entered intact.
func HandleCheckoutSubmit(carts cart.Store, sessions checkout.Store, wizard *checkout.Wizard, orders *service.OrderService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := checkoutSessionID(c)
		if !ok {
			return
		}

		var req SubmitRequest
		if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
			respondBindError(c, err)
			return
		}

		session, err := sessions.Get(c.Request.Context(), id)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		if session.Step != domain.StepReview {
			respondError(c, logger, &errors.ErrInvalidStateTransition{
				From: session.Step,
				To:   domain.StepComplete,
			})
			return
		}

		order := session.OrderID
		if order == nil {
			created, err := orders.CreateOrder(c.Request.Context(), session)
			if err != nil {
				respondError(c, logger, err)
				return
			}
			session.OrderID = &created.ID
			if err := sessions.Save(c.Request.Context(), session); err != nil {
				respondError(c, logger, err)
				return
			}
			order = &created.ID
		}

		attempt, err := orders.SubmitPayment(c.Request.Context(), *order, session.ProcessorID, req.IdempotencyKey)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		if attempt.Status != domain.AttemptStatusCompleted {
			wizard.RecordFailure(session, attempt.Message)
			if err := sessions.Save(c.Request.Context(), session); err != nil {
				respondError(c, logger, err)
				return
			}
			c.JSON(http.StatusPaymentRequired, gin.H{
				"error":      "payment was not completed",
				"code":       "payment_error",
				"statusCode": http.StatusPaymentRequired,
				"order_id":   order.String(),
				"attempt":    attemptResponse(attempt),
				"session":    sessionResponse(session),
			})
			return
		}

		if err := wizard.Complete(session, *order); err != nil {
			respondError(c, logger, err)
			return
		}
		if err := sessions.Save(c.Request.Context(), session); err != nil {
			respondError(c, logger, err)
			return
		}
		if sid := c.GetHeader(sessionHeader); sid != "" {
			if err := carts.Delete(c.Request.Context(), sid); err != nil {
				logger.Warn("failed to clear cart after checkout",
					zap.String("session_id", sid),
					zap.Error(err),
				)
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"order_id": order.String(),
			"attempt":  attemptResponse(attempt),
			"session":  sessionResponse(session),
		})
	}
}
