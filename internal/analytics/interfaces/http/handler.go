// Package http 平台经营分析的 HTTP 接口层
package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/pkg/logging"
	"github.com/wyfcoding/pkg/response"

	"github.com/wyfcoding/marketplace/internal/analytics/application"
)

type AnalyticsHandler struct {
	app *application.AnalyticsService
}

func NewAnalyticsHandler(app *application.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{app: app}
}

func (h *AnalyticsHandler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/v1/analytics")
	g.GET("/dashboard", h.Dashboard)
	g.GET("/gmv/daily", h.DailyGMV)
	g.GET("/sellers/top", h.TopSellers)
}

// parsePeriod 解析 from/to 查询参数，缺省为最近 30 天
func parsePeriod(c *gin.Context) (time.Time, time.Time, bool) {
	now := time.Now()
	from := now.AddDate(0, 0, -30)
	to := now

	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.ErrorWithStatus(c, http.StatusBadRequest, "from must be RFC3339", "")
			return from, to, false
		}
		from = parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.ErrorWithStatus(c, http.StatusBadRequest, "to must be RFC3339", "")
			return from, to, false
		}
		to = parsed
	}
	if !to.After(from) {
		response.ErrorWithStatus(c, http.StatusBadRequest, "to must be after from", "")
		return from, to, false
	}
	return from, to, true
}

func (h *AnalyticsHandler) Dashboard(c *gin.Context) {
	from, to, ok := parsePeriod(c)
	if !ok {
		return
	}
	dto, err := h.app.Dashboard(c.Request.Context(), from, to)
	if err != nil {
		logging.Error(c.Request.Context(), "dashboard query failed", "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, "internal error", "")
		return
	}
	response.Success(c, dto)
}

func (h *AnalyticsHandler) DailyGMV(c *gin.Context) {
	from, to, ok := parsePeriod(c)
	if !ok {
		return
	}
	dtos, err := h.app.DailyGMV(c.Request.Context(), from, to)
	if err != nil {
		logging.Error(c.Request.Context(), "daily gmv query failed", "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, "internal error", "")
		return
	}
	response.Success(c, dtos)
}

func (h *AnalyticsHandler) TopSellers(c *gin.Context) {
	from, to, ok := parsePeriod(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	dtos, err := h.app.TopSellers(c.Request.Context(), from, to, limit)
	if err != nil {
		logging.Error(c.Request.Context(), "top sellers query failed", "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, "internal error", "")
		return
	}
	response.Success(c, dtos)
}
