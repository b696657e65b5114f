package handlers

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/greatwhitehope/shopapi/pkg/errors"
)

// respondError maps the error taxonomy onto the JSON error convention
// {error, code?, statusCode}. Unexpected errors never leak internals: the
// client gets a correlation id, the log gets the real error.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var validation *errors.ValidationErrors
	if stderrors.As(err, &validation) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":      "validation failed",
			"code":       "validation_error",
			"statusCode": http.StatusUnprocessableEntity,
			"details":    validation.Violations,
		})
		return
	}

	var invalidItem *errors.ErrInvalidItem
	if stderrors.As(err, &invalidItem) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":      invalidItem.Error(),
			"code":       "invalid_item",
			"statusCode": http.StatusUnprocessableEntity,
		})
		return
	}

	var emptyCart *errors.ErrEmptyCart
	if stderrors.As(err, &emptyCart) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      emptyCart.Error(),
			"code":       "empty_cart",
			"statusCode": http.StatusBadRequest,
		})
		return
	}

	var notFound *errors.ErrNotFound
	if stderrors.As(err, &notFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":      notFound.Error(),
			"code":       "not_found",
			"statusCode": http.StatusNotFound,
		})
		return
	}

	var unauthorized *errors.ErrUnauthorized
	if stderrors.As(err, &unauthorized) {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":      unauthorized.Error(),
			"code":       "unauthorized",
			"statusCode": http.StatusUnauthorized,
		})
		return
	}

	var noProcessor *errors.ErrProcessorNotFound
	if stderrors.As(err, &noProcessor) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      noProcessor.Error(),
			"code":       "unknown_processor",
			"statusCode": http.StatusBadRequest,
		})
		return
	}

	var badTransition *errors.ErrInvalidStateTransition
	if stderrors.As(err, &badTransition) {
		c.JSON(http.StatusConflict, gin.H{
			"error":      badTransition.Error(),
			"code":       "invalid_state",
			"statusCode": http.StatusConflict,
		})
		return
	}

	var paymentErr *errors.PaymentError
	if stderrors.As(err, &paymentErr) {
		c.JSON(http.StatusPaymentRequired, gin.H{
			"error":      paymentErr.Error(),
			"code":       "payment_error",
			"statusCode": http.StatusPaymentRequired,
			"retryable":  paymentErr.Retryable || paymentErr.Timeout,
		})
		return
	}

	correlationID := uuid.NewString()
	logger.Error("internal error",
		zap.String("correlation_id", correlationID),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":          "Internal Server Error",
		"statusCode":     http.StatusInternalServerError,
		"correlation_id": correlationID,
	})
}

// respondBindError reports a malformed or incomplete request body
func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusUnprocessableEntity, gin.H{
		"error":      "validation failed",
		"statusCode": http.StatusUnprocessableEntity,
		"details":    err.Error(),
	})
}
