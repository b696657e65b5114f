package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/greatwhitehope/shopapi/internal/cart"
	"github.com/greatwhitehope/shopapi/internal/config"
	"github.com/greatwhitehope/shopapi/internal/domain"
)

const sessionHeader = "X-Session-ID"

// CartItemRequest represents the add-to-cart payload
type CartItemRequest struct {
	ProductID       string            `json:"product_id" binding:"required"`
	Name            string            `json:"name"`
	UnitPrice       int64             `json:"unit_price" binding:"required"`
	Quantity        int               `json:"quantity" binding:"required"`
	SelectedVariant map[string]string `json:"selected_variant"`
}

// QuantityRequest represents the update-quantity payload
type QuantityRequest struct {
	Quantity int `json:"quantity"`
}

func sessionID(c *gin.Context) (string, bool) {
	id := c.GetHeader(sessionHeader)
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      "X-Session-ID header is required",
			"statusCode": http.StatusBadRequest,
		})
		return "", false
	}
	return id, true
}

func cartResponse(ct *cart.Cart) gin.H {
	return gin.H{
		"items": ct.Items,
		"total": ct.Total(),
	}
}

// HandleGetCart handles GET /api/v1/cart
func HandleGetCart(store cart.Store, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid, ok := sessionID(c)
		if !ok {
			return
		}
		ct, err := store.Get(c.Request.Context(), sid)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, cartResponse(ct))
	}
}

// HandleAddCartItem handles POST /api/v1/cart/items
func HandleAddCartItem(store cart.Store, cfg config.CheckoutConfig, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid, ok := sessionID(c)
		if !ok {
			return
		}

		var req CartItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}

		ct, err := store.Get(c.Request.Context(), sid)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		item := domain.CartItem{
			ProductID:       req.ProductID,
			Name:            req.Name,
			UnitPrice:       req.UnitPrice,
			Quantity:        req.Quantity,
			SelectedVariant: req.SelectedVariant,
		}
		if err := ct.Add(item, cfg.MaxItemQuantity); err != nil {
			respondError(c, logger, err)
			return
		}

		if err := store.Save(c.Request.Context(), sid, ct); err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, cartResponse(ct))
	}
}

// HandleUpdateCartItem handles PUT /api/v1/cart/items/:key
func HandleUpdateCartItem(store cart.Store, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid, ok := sessionID(c)
		if !ok {
			return
		}

		var req QuantityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}

		ct, err := store.Get(c.Request.Context(), sid)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		ct.UpdateQuantity(c.Param("key"), req.Quantity)

		if err := store.Save(c.Request.Context(), sid, ct); err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, cartResponse(ct))
	}
}

// HandleRemoveCartItem handles DELETE /api/v1/cart/items/:key
func HandleRemoveCartItem(store cart.Store, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid, ok := sessionID(c)
		if !ok {
			return
		}

		ct, err := store.Get(c.Request.Context(), sid)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		ct.Remove(c.Param("key"))

		if err := store.Save(c.Request.Context(), sid, ct); err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, cartResponse(ct))
	}
}

// HandleClearCart handles DELETE /api/v1/cart
func HandleClearCart(store cart.Store, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid, ok := sessionID(c)
		if !ok {
			return
		}
		if err := store.Delete(c.Request.Context(), sid); err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "cart cleared"})
	}
}
