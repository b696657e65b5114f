package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/greatwhitehope/shopapi/internal/domain"
	"github.com/greatwhitehope/shopapi/internal/repository"
)

// PageRequest represents the create/update page payload
type PageRequest struct {
	Slug      string `json:"slug" binding:"required"`
	Title     string `json:"title" binding:"required"`
	Body      string `json:"body"`
	Published *bool  `json:"published"`
}

// MediaRequest represents the media registration payload
type MediaRequest struct {
	Filename    string `json:"filename" binding:"required"`
	URL         string `json:"url" binding:"required"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
}

// HandleListPages handles GET /api/v1/pages
func HandleListPages(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		pages, err := repos.Page.List(c.Request.Context())
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"pages": pages})
	}
}

// HandleGetPage handles GET /api/v1/pages/:slug
func HandleGetPage(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := repos.Page.GetBySlug(c.Request.Context(), c.Param("slug"))
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"page": page})
	}
}

// HandleCreatePage handles POST /api/v1/pages
func HandleCreatePage(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req PageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}

		page := &domain.Page{
			Slug:  req.Slug,
			Title: req.Title,
			Body:  req.Body,
		}
		if req.Published != nil {
			page.Published = *req.Published
		}

		if err := repos.Page.Create(c.Request.Context(), page); err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"page": page})
	}
}

// HandleUpdatePage handles PUT /api/v1/pages/:id
func HandleUpdatePage(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":      "invalid page ID",
				"statusCode": http.StatusBadRequest,
			})
			return
		}

		var req PageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}

		page, err := repos.Page.GetByID(c.Request.Context(), id)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		page.Slug = req.Slug
		page.Title = req.Title
		page.Body = req.Body
		if req.Published != nil {
			page.Published = *req.Published
		}

		if err := repos.Page.Update(c.Request.Context(), page); err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"page": page})
	}
}

// HandleListMedia handles GET /api/v1/media
func HandleListMedia(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		media, err := repos.Media.List(c.Request.Context())
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"media": media})
	}
}

// HandleCreateMedia handles POST /api/v1/media
func HandleCreateMedia(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req MediaRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}

		media := &domain.Media{
			Filename:    req.Filename,
			URL:         req.URL,
			ContentType: req.ContentType,
			SizeBytes:   req.SizeBytes,
		}
		if err := repos.Media.Create(c.Request.Context(), media); err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"media": media})
	}
}
