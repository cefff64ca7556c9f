// Package http 通知服务的 HTTP 接口层
package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/pkg/logging"
	"github.com/wyfcoding/pkg/response"

	"github.com/wyfcoding/marketplace/internal/notification/application"
	"github.com/wyfcoding/marketplace/internal/notification/domain"
)

type NotificationHandler struct {
	app *application.NotificationService
}

func NewNotificationHandler(app *application.NotificationService) *NotificationHandler {
	return &NotificationHandler{app: app}
}

func (h *NotificationHandler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/v1/notifications")
	g.POST("", h.Send)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotificationNotFound):
		response.ErrorWithStatus(c, http.StatusNotFound, "notification not found", "")
	case errors.Is(err, domain.ErrUnknownChannel):
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
	default:
		logging.Error(c.Request.Context(), "notification request failed", "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, "internal error", "")
	}
}

func (h *NotificationHandler) Send(c *gin.Context) {
	var cmd application.SendNotificationCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	dto, err := h.app.SendNotification(c.Request.Context(), cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, dto)
}

func (h *NotificationHandler) Get(c *gin.Context) {
	dto, err := h.app.GetNotification(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, dto)
}

func (h *NotificationHandler) List(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		response.ErrorWithStatus(c, http.StatusBadRequest, "user_id is required", "")
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	dtos, total, err := h.app.ListNotifications(c.Request.Context(), userID, limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, gin.H{"items": dtos, "total": total})
}
