package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/greatwhitehope/shopapi/internal/domain"
	"github.com/greatwhitehope/shopapi/internal/repository"
)

// ProductRequest represents the create/update product payload
type ProductRequest struct {
	SKU         string   `json:"sku" binding:"required"`
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Price       int64    `json:"price" binding:"required,min=1"`
	ImageURLs   []string `json:"image_urls"`
	IsActive    *bool    `json:"is_active"`
}

// ProductResponse represents a product in API responses
type ProductResponse struct {
	ID          string   `json:"id"`
	SKU         string   `json:"sku"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Price       int64    `json:"price"`
	ImageURLs   []string `json:"image_urls"`
	IsActive    bool     `json:"is_active"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
}

func toProductResponse(p *domain.Product) ProductResponse {
	return ProductResponse{
		ID:          p.ID.String(),
		SKU:         p.SKU,
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		Price:       p.Price,
		ImageURLs:   p.ImageURLs,
		IsActive:    p.IsActive,
		CreatedAt:   p.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:   p.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// HandleListProducts handles GET /api/v1/products
func HandleListProducts(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		category := c.Query("category")
		limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
		if err != nil || limit < 1 || limit > 100 {
			limit = 50
		}
		offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
		if err != nil || offset < 0 {
			offset = 0
		}

		products, err := repos.Product.List(c.Request.Context(), category, limit, offset)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		responses := make([]ProductResponse, len(products))
		for i, p := range products {
			responses[i] = toProductResponse(p)
		}

		c.JSON(http.StatusOK, gin.H{
			"products": responses,
			"limit":    limit,
			"offset":   offset,
		})
	}
}

// HandleGetProduct handles GET /api/v1/products/:id
func HandleGetProduct(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":      "invalid product ID",
				"statusCode": http.StatusBadRequest,
			})
			return
		}

		product, err := repos.Product.GetByID(c.Request.Context(), id)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"product": toProductResponse(product)})
	}
}

// HandleCreateProduct handles POST /api/v1/products
func HandleCreateProduct(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}

		product := &domain.Product{
			SKU:         req.SKU,
			Name:        req.Name,
			Description: req.Description,
			Category:    req.Category,
			Price:       req.Price,
			ImageURLs:   req.ImageURLs,
			IsActive:    true,
		}
		if req.IsActive != nil {
			product.IsActive = *req.IsActive
		}

		if err := repos.Product.Create(c.Request.Context(), product); err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{"product": toProductResponse(product)})
	}
}

// HandleUpdateProduct handles PUT /api/v1/products/:id
func HandleUpdateProduct(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":      "invalid product ID",
				"statusCode": http.StatusBadRequest,
			})
			return
		}

		var req ProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}

		product, err := repos.Product.GetByID(c.Request.Context(), id)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		product.SKU = req.SKU
		product.Name = req.Name
		product.Description = req.Description
		product.Category = req.Category
		product.Price = req.Price
		product.ImageURLs = req.ImageURLs
		if req.IsActive != nil {
			product.IsActive = *req.IsActive
		}

		if err := repos.Product.Update(c.Request.Context(), product); err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"product": toProductResponse(product)})
	}
}

// HandleDeleteProduct handles DELETE /api/v1/products/:id
func HandleDeleteProduct(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":      "invalid product ID",
				"statusCode": http.StatusBadRequest,
			})
			return
		}

		if err := repos.Product.Delete(c.Request.Context(), id); err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "product deleted"})
	}
}
