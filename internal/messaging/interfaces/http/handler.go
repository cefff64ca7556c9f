// Package http 消息服务的 HTTP 接口层
package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/pkg/logging"
	"github.com/wyfcoding/pkg/response"

	"github.com/wyfcoding/marketplace/internal/messaging/application"
	"github.com/wyfcoding/marketplace/internal/messaging/domain"
)

type MessagingHandler struct {
	app *application.MessagingService
}

func NewMessagingHandler(app *application.MessagingService) *MessagingHandler {
	return &MessagingHandler{app: app}
}

func (h *MessagingHandler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/v1/messages")
	g.POST("", h.Send)
	g.DELETE("/:id", h.Delete)

	c := r.Group("/v1/conversations")
	c.GET("", h.ListConversations)
	c.GET("/:id/messages", h.ListMessages)
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrMessageBlocked):
		// 投递失败对外不暴露审核细节
		response.ErrorWithStatus(c, http.StatusUnprocessableEntity, domain.ErrMessageBlocked.Error(), "")
	case errors.Is(err, domain.ErrConversationNotFound), errors.Is(err, domain.ErrMessageNotFound):
		response.ErrorWithStatus(c, http.StatusNotFound, err.Error(), "")
	case errors.Is(err, domain.ErrNotParticipant):
		response.ErrorWithStatus(c, http.StatusForbidden, err.Error(), "")
	default:
		logging.Error(c.Request.Context(), "messaging request failed", "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, "internal error", "")
	}
}

func (h *MessagingHandler) Send(c *gin.Context) {
	var req struct {
		ListingID string `json:"listing_id" binding:"required"`
		SellerID  string `json:"seller_id" binding:"required"`
		SenderID  string `json:"sender_id" binding:"required"`
		BuyerID   string `json:"buyer_id"`
		Body      string `json:"body" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	dto, err := h.app.SendMessage(c.Request.Context(), application.SendMessageCommand{
		ListingID: req.ListingID,
		SellerID:  req.SellerID,
		SenderID:  req.SenderID,
		BuyerID:   req.BuyerID,
		Body:      req.Body,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, dto)
}

func (h *MessagingHandler) Delete(c *gin.Context) {
	requester := c.Query("user_id")
	if requester == "" {
		response.ErrorWithStatus(c, http.StatusBadRequest, "user_id is required", "")
		return
	}
	if err := h.app.DeleteMessage(c.Request.Context(), c.Param("id"), requester); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": true})
}

func (h *MessagingHandler) ListConversations(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		response.ErrorWithStatus(c, http.StatusBadRequest, "user_id is required", "")
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	dtos, total, err := h.app.ListConversations(c.Request.Context(), userID, limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, gin.H{"items": dtos, "total": total})
}

func (h *MessagingHandler) ListMessages(c *gin.Context) {
	requester := c.Query("user_id")
	if requester == "" {
		response.ErrorWithStatus(c, http.StatusBadRequest, "user_id is required", "")
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	dtos, err := h.app.ListMessages(c.Request.Context(), c.Param("id"), requester, limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, dtos)
}
