// Package http 内容审核的 HTTP 接口层
package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/pkg/logging"
	"github.com/wyfcoding/pkg/response"

	"github.com/wyfcoding/marketplace/internal/moderation/application"
	"github.com/wyfcoding/marketplace/internal/moderation/domain"
)

type ModerationHandler struct {
	app *application.ModerationService
}

func NewModerationHandler(app *application.ModerationService) *ModerationHandler {
	return &ModerationHandler{app: app}
}

func (h *ModerationHandler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/v1/moderation")
	g.POST("/evaluate", h.Evaluate)
	g.GET("/flags/:id", h.GetFlag)
	g.GET("/targets/:type/:id", h.GetFlagByTarget)
	g.GET("/review-queue", h.ListReviewQueue)
	g.POST("/flags/:id/review", h.Review)
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrFlagNotFound):
		response.ErrorWithStatus(c, http.StatusNotFound, "flag not found", "")
	case errors.Is(err, domain.ErrInvalidDecision):
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
	case errors.Is(err, domain.ErrAlreadyReviewed):
		response.ErrorWithStatus(c, http.StatusConflict, err.Error(), "")
	default:
		logging.Error(c.Request.Context(), "moderation request failed", "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, "internal error", "")
	}
}

func (h *ModerationHandler) Evaluate(c *gin.Context) {
	var req struct {
		TargetType string `json:"target_type" binding:"required"`
		TargetID   string `json:"target_id" binding:"required"`
		SenderID   string `json:"sender_id" binding:"required"`
		Content    string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	dto, err := h.app.EvaluateContent(c.Request.Context(), application.EvaluateCommand{
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
		SenderID:   req.SenderID,
		Content:    req.Content,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, dto)
}

func (h *ModerationHandler) GetFlag(c *gin.Context) {
	dto, err := h.app.GetFlag(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, dto)
}

func (h *ModerationHandler) GetFlagByTarget(c *gin.Context) {
	dto, err := h.app.GetFlagByTarget(c.Request.Context(), c.Param("type"), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, dto)
}

func (h *ModerationHandler) ListReviewQueue(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid limit", "")
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid offset", "")
		return
	}

	dtos, total, err := h.app.ListReviewQueue(c.Request.Context(), limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, gin.H{"items": dtos, "total": total})
}

func (h *ModerationHandler) Review(c *gin.Context) {
	var req struct {
		ReviewedBy string `json:"reviewed_by" binding:"required"`
		Decision   string `json:"decision" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	dto, err := h.app.ReviewFlag(c.Request.Context(), application.ReviewCommand{
		FlagID:     c.Param("id"),
		ReviewedBy: req.ReviewedBy,
		Decision:   req.Decision,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, dto)
}
