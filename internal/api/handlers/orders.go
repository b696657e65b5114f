package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/greatwhitehope/shopapi/internal/domain"
	"github.com/greatwhitehope/shopapi/internal/repository"
	"github.com/greatwhitehope/shopapi/internal/service"
)

func orderResponse(o *domain.Order) gin.H {
	return gin.H{
		"id":         o.ID.String(),
		"status":     o.Status,
		"items":      o.Items,
		"address":    o.Address,
		"subtotal":   o.Subtotal,
		"tax":        o.Tax,
		"total":      o.Total,
		"created_at": o.CreatedAt,
		"updated_at": o.UpdatedAt,
	}
}

func attemptResponse(a *domain.PaymentAttempt) gin.H {
	return gin.H{
		"id":             a.ID.String(),
		"order_id":       a.OrderID.String(),
		"processor":      a.ProcessorID,
		"transaction_id": a.TransactionID,
		"status":         a.Status,
		"message":        a.Message,
		"created_at":     a.CreatedAt,
	}
}

func orderID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      "invalid order ID",
			"statusCode": http.StatusBadRequest,
		})
		return uuid.Nil, false
	}
	return id, true
}

// HandleGetOrder handles GET /api/v1/orders/:id
func HandleGetOrder(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := orderID(c)
		if !ok {
			return
		}

		order, err := repos.Order.GetByID(c.Request.Context(), id)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		attempts, err := repos.PaymentAttempt.ListByOrderID(c.Request.Context(), id)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		attemptViews := make([]gin.H, len(attempts))
		for i, a := range attempts {
			attemptViews[i] = attemptResponse(a)
		}

		resp := orderResponse(order)
		resp["payment_attempts"] = attemptViews
		c.JSON(http.StatusOK, gin.H{"order": resp})
	}
}

// HandleResubmitOrder handles POST /api/v1/orders/:id/resubmit. This is the
// only path from PAYMENT_FAILED back to PENDING; nothing retries on its own.
func HandleResubmitOrder(orders *service.OrderService, repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := orderID(c)
		if !ok {
			return
		}

		if err := orders.ResubmitOrder(c.Request.Context(), id); err != nil {
			respondError(c, logger, err)
			return
		}

		order, err := repos.Order.GetByID(c.Request.Context(), id)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"order": orderResponse(order)})
	}
}

// HandleListOrders handles GET /api/v1/admin/orders
func HandleListOrders(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
		if err != nil || limit < 1 || limit > 100 {
			limit = 50
		}
		offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
		if err != nil || offset < 0 {
			offset = 0
		}

		var orders []*domain.Order
		if raw := c.Query("status"); raw != "" {
			status := domain.OrderStatus(raw)
			if !status.IsValid() {
				c.JSON(http.StatusBadRequest, gin.H{
					"error":      "invalid order status",
					"statusCode": http.StatusBadRequest,
				})
				return
			}
			orders, err = repos.Order.ListByStatus(c.Request.Context(), status, limit, offset)
		} else {
			orders, err = repos.Order.List(c.Request.Context(), limit, offset)
		}
		if err != nil {
			respondError(c, logger, err)
			return
		}

		views := make([]gin.H, len(orders))
		for i, o := range orders {
			views[i] = orderResponse(o)
		}
		c.JSON(http.StatusOK, gin.H{
			"orders": views,
			"limit":  limit,
			"offset": offset,
		})
	}
}

// HandleFulfilOrder handles POST /api/v1/admin/orders/:id/fulfil
func HandleFulfilOrder(orders *service.OrderService, repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := orderID(c)
		if !ok {
			return
		}

		if err := orders.FulfilOrder(c.Request.Context(), id); err != nil {
			respondError(c, logger, err)
			return
		}

		order, err := repos.Order.GetByID(c.Request.Context(), id)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"order": orderResponse(order)})
	}
}

// HandleCancelOrder handles POST /api/v1/admin/orders/:id/cancel
func HandleCancelOrder(orders *service.OrderService, repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := orderID(c)
		if !ok {
			return
		}

		if err := orders.CancelOrder(c.Request.Context(), id); err != nil {
			respondError(c, logger, err)
			return
		}

		order, err := repos.Order.GetByID(c.Request.Context(), id)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"order": orderResponse(order)})
	}
}

// HandleOrderEvents handles GET /api/v1/admin/orders/:id/events
func HandleOrderEvents(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := orderID(c)
		if !ok {
			return
		}

		events, err := repos.OrderEvent.ListByOrderID(c.Request.Context(), id)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"events": events})
	}
}
