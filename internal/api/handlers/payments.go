package handlers

import (
	stderrors "errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/greatwhitehope/shopapi/internal/payment"
	"github.com/greatwhitehope/shopapi/internal/service"
	"github.com/greatwhitehope/shopapi/pkg/errors"
)

// InitiatePaymentRequest represents the direct payment submission payload
type InitiatePaymentRequest struct {
	OrderID        string `json:"order_id" binding:"required"`
	Processor      string `json:"processor" binding:"required"`
	IdempotencyKey string `json:"idempotency_key"`
}

// VerifyPaymentRequest represents the payment verification payload
type VerifyPaymentRequest struct {
	OrderID       string `json:"order_id" binding:"required"`
	Processor     string `json:"processor" binding:"required"`
	TransactionID string `json:"transaction_id" binding:"required"`
}

// RefundRequest represents the refund payload
type RefundRequest struct {
	OrderID       string `json:"order_id" binding:"required"`
	TransactionID string `json:"transaction_id" binding:"required"`
	Amount        int64  `json:"amount" binding:"required,min=1"`
}

// HandleListProcessors handles GET /api/v1/payments/processors
func HandleListProcessors(registry *payment.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"processors": registry.List()})
	}
}

// HandleInitiatePayment handles POST /api/v1/payments/initiate. Clients that
// send an idempotency key can retry safely: a repeated key returns the first
// attempt instead of charging again.
func HandleInitiatePayment(orders *service.OrderService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req InitiatePaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}

		oid, err := uuid.Parse(req.OrderID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":      "invalid order ID",
				"statusCode": http.StatusBadRequest,
			})
			return
		}

		attempt, err := orders.SubmitPayment(c.Request.Context(), oid, req.Processor, req.IdempotencyKey)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"attempt": attemptResponse(attempt)})
	}
}

// HandleVerifyPayment handles POST /api/v1/payments/verify
func HandleVerifyPayment(orders *service.OrderService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req VerifyPaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}

		oid, err := uuid.Parse(req.OrderID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":      "invalid order ID",
				"statusCode": http.StatusBadRequest,
			})
			return
		}

		attempt, err := orders.VerifyPayment(c.Request.Context(), oid, req.Processor, req.TransactionID)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"attempt": attemptResponse(attempt)})
	}
}

// HandleRefund handles POST /api/v1/payments/refund
func HandleRefund(orders *service.OrderService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RefundRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}

		oid, err := uuid.Parse(req.OrderID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":      "invalid order ID",
				"statusCode": http.StatusBadRequest,
			})
			return
		}

		refund, err := orders.Refund(c.Request.Context(), oid, req.TransactionID, req.Amount)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"refund": refund})
	}
}

// HandleWebhook handles POST /api/v1/webhooks/:processor. The raw body is
// read before any decoding because the signature covers the exact bytes the
// provider sent. Rejected signatures get a bare 401 with no detail.
func HandleWebhook(orders *service.OrderService, registry *payment.Registry, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		processorID := c.Param("processor")
		processor, err := registry.Resolve(processorID)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		rawBody, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":      "could not read request body",
				"statusCode": http.StatusBadRequest,
			})
			return
		}

		signature := c.GetHeader(processor.SignatureHeader())
		if err := orders.HandleWebhook(c.Request.Context(), processorID, signature, rawBody); err != nil {
			// Signature failures get an empty 401 so probers learn nothing
			// about which check failed; the detail stays in the log.
			var unauthorized *errors.ErrUnauthorized
			if stderrors.As(err, &unauthorized) {
				logger.Warn("rejected webhook",
					zap.String("processor", processorID),
					zap.Error(err),
				)
				c.Status(http.StatusUnauthorized)
				return
			}
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"received": true})
	}
}
