// Package http 刊登服务的 HTTP 接口层
package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/pkg/logging"
	"github.com/wyfcoding/pkg/response"

	"github.com/wyfcoding/marketplace/internal/listing/application"
	"github.com/wyfcoding/marketplace/internal/listing/domain"
)

type ListingHandler struct {
	app *application.ListingService
}

func NewListingHandler(app *application.ListingService) *ListingHandler {
	return &ListingHandler{app: app}
}

func (h *ListingHandler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/v1/listings")
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.POST("/:id/reserve", h.Reserve)
	g.POST("/:id/sold", h.MarkSold)
	g.POST("/:id/reactivate", h.Reactivate)
	g.DELETE("/:id", h.Remove)
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrListingNotFound):
		response.ErrorWithStatus(c, http.StatusNotFound, "listing not found", "")
	case errors.Is(err, domain.ErrInvalidPrice):
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
	case errors.Is(err, domain.ErrNotSeller):
		response.ErrorWithStatus(c, http.StatusForbidden, err.Error(), "")
	case errors.Is(err, domain.ErrListingNotActive):
		response.ErrorWithStatus(c, http.StatusConflict, err.Error(), "")
	default:
		logging.Error(c.Request.Context(), "listing request failed", "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, "internal error", "")
	}
}

func (h *ListingHandler) Create(c *gin.Context) {
	var req struct {
		SellerID    string `json:"seller_id" binding:"required"`
		Title       string `json:"title" binding:"required"`
		Description string `json:"description"`
		Category    string `json:"category"`
		Price       string `json:"price" binding:"required"`
		Currency    string `json:"currency" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid price", "")
		return
	}

	dto, err := h.app.CreateListing(c.Request.Context(), application.CreateListingCommand{
		SellerID:    req.SellerID,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Price:       price,
		Currency:    req.Currency,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, dto)
}

func (h *ListingHandler) Get(c *gin.Context) {
	dto, err := h.app.GetListing(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, dto)
}

func (h *ListingHandler) Update(c *gin.Context) {
	var req struct {
		SellerID    string `json:"seller_id" binding:"required"`
		Title       string `json:"title" binding:"required"`
		Description string `json:"description"`
		Category    string `json:"category"`
		Price       string `json:"price" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid price", "")
		return
	}

	dto, err := h.app.UpdateListing(c.Request.Context(), application.UpdateListingCommand{
		ListingID:   c.Param("id"),
		SellerID:    req.SellerID,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Price:       price,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, dto)
}

func (h *ListingHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	if sellerID := c.Query("seller_id"); sellerID != "" {
		dtos, total, err := h.app.ListBySeller(c.Request.Context(), sellerID, limit, offset)
		if err != nil {
			writeError(c, err)
			return
		}
		response.Success(c, gin.H{"items": dtos, "total": total})
		return
	}

	dtos, total, err := h.app.ListActive(c.Request.Context(), limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, gin.H{"items": dtos, "total": total})
}

func (h *ListingHandler) Reserve(c *gin.Context) {
	if err := h.app.Reserve(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, gin.H{"status": string(domain.StatusReserved)})
}

func (h *ListingHandler) MarkSold(c *gin.Context) {
	if err := h.app.MarkSold(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, gin.H{"status": string(domain.StatusSold)})
}

func (h *ListingHandler) Reactivate(c *gin.Context) {
	if err := h.app.Reactivate(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, gin.H{"status": string(domain.StatusActive)})
}

func (h *ListingHandler) Remove(c *gin.Context) {
	sellerID := c.Query("seller_id")
	if sellerID == "" {
		response.ErrorWithStatus(c, http.StatusBadRequest, "seller_id is required", "")
		return
	}
	if err := h.app.Remove(c.Request.Context(), c.Param("id"), sellerID); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, gin.H{"status": string(domain.StatusRemoved)})
}
