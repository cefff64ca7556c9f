// Package http 平台后台配置的 HTTP 接口层
package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/pkg/logging"
	"github.com/wyfcoding/pkg/response"

	"github.com/wyfcoding/marketplace/internal/admin/application"
	"github.com/wyfcoding/marketplace/internal/admin/domain"
)

type AdminHandler struct {
	app *application.AdminService
}

func NewAdminHandler(app *application.AdminService) *AdminHandler {
	return &AdminHandler{app: app}
}

func (h *AdminHandler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/v1/admin")
	g.GET("/settings", h.GetSettings)
	g.PUT("/settings", h.UpdateSettings)
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidSettings):
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
	default:
		logging.Error(c.Request.Context(), "admin request failed", "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, "internal error", "")
	}
}

func (h *AdminHandler) GetSettings(c *gin.Context) {
	dto, err := h.app.GetSettings(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, dto)
}

func (h *AdminHandler) UpdateSettings(c *gin.Context) {
	var cmd application.UpdateSettingsCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	dto, err := h.app.UpdateSettings(c.Request.Context(), cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, dto)
}
