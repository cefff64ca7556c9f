// Package http 托管交易的 HTTP 接口层
package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/pkg/logging"
	"github.com/wyfcoding/pkg/response"

	"github.com/wyfcoding/marketplace/internal/escrow/application"
	"github.com/wyfcoding/marketplace/internal/escrow/domain"
)

type EscrowHandler struct {
	app *application.EscrowService
}

func NewEscrowHandler(app *application.EscrowService) *EscrowHandler {
	return &EscrowHandler{app: app}
}

func (h *EscrowHandler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/v1/escrows")
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.GET("/:id/ledger", h.Ledger)
	g.POST("/:id/fund", h.Fund)
	g.POST("/:id/ship", h.Ship)
	g.POST("/:id/deliver", h.Deliver)
	g.POST("/:id/release", h.Release)
	g.POST("/:id/dispute", h.Dispute)
	g.POST("/:id/resolve", h.Resolve)
	g.POST("/:id/complete-resolution", h.CompleteResolution)
}

// writeError 把领域错误翻译成 HTTP 状态码。
// 前置条件类错误返回 409，入参类错误返回 400，支付失败返回 402。
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		response.ErrorWithStatus(c, http.StatusNotFound, "escrow transaction not found", "")
	case errors.Is(err, domain.ErrInvalidAmount), errors.Is(err, domain.ErrInvalidDisputeOutcome):
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
	case errors.Is(err, domain.ErrAlreadyTerminal), errors.Is(err, domain.ErrInvalidTransition):
		response.ErrorWithStatus(c, http.StatusConflict, err.Error(), "")
	case errors.Is(err, domain.ErrPaymentFailed):
		response.ErrorWithStatus(c, http.StatusPaymentRequired, err.Error(), "")
	default:
		logging.Error(c.Request.Context(), "escrow request failed", "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, "internal error", "")
	}
}

func (h *EscrowHandler) Create(c *gin.Context) {
	var req struct {
		BuyerID   string `json:"buyer_id" binding:"required"`
		SellerID  string `json:"seller_id" binding:"required"`
		ListingID string `json:"listing_id" binding:"required"`
		Amount    string `json:"amount" binding:"required"`
		Currency  string `json:"currency" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid amount", "")
		return
	}

	dto, err := h.app.CreateEscrow(c.Request.Context(), application.CreateEscrowCommand{
		BuyerID:   req.BuyerID,
		SellerID:  req.SellerID,
		ListingID: req.ListingID,
		Amount:    amount,
		Currency:  req.Currency,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, dto)
}

func (h *EscrowHandler) Get(c *gin.Context) {
	dto, err := h.app.GetEscrow(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, dto)
}

func (h *EscrowHandler) List(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		response.ErrorWithStatus(c, http.StatusBadRequest, "user_id is required", "")
		return
	}
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

	dtos, total, err := h.app.ListEscrows(c.Request.Context(), userID, c.Query("status"), limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, gin.H{"items": dtos, "total": total})
}

func (h *EscrowHandler) Ledger(c *gin.Context) {
	entries, err := h.app.ListLedger(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, entries)
}

func (h *EscrowHandler) Fund(c *gin.Context) {
	var req struct {
		PaymentMethod string `json:"payment_method"`
	}
	_ = c.ShouldBindJSON(&req)

	dto, err := h.app.FundEscrow(c.Request.Context(), application.FundEscrowCommand{
		TransactionID: c.Param("id"),
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, dto)
}

func (h *EscrowHandler) Ship(c *gin.Context) {
	var req struct {
		TrackingRef string `json:"tracking_ref"`
	}
	_ = c.ShouldBindJSON(&req)

	dto, err := h.app.MarkShipped(c.Request.Context(), application.ShipEscrowCommand{
		TransactionID: c.Param("id"),
		TrackingRef:   req.TrackingRef,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, dto)
}

func (h *EscrowHandler) Deliver(c *gin.Context) {
	dto, err := h.app.MarkDelivered(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, dto)
}

func (h *EscrowHandler) Release(c *gin.Context) {
	dto, err := h.app.Release(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, dto)
}

func (h *EscrowHandler) Dispute(c *gin.Context) {
	var req struct {
		RaisedBy string `json:"raised_by" binding:"required"`
		Reason   string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	dto, err := h.app.OpenDispute(c.Request.Context(), application.OpenDisputeCommand{
		TransactionID: c.Param("id"),
		RaisedBy:      req.RaisedBy,
		Reason:        req.Reason,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, dto)
}

func (h *EscrowHandler) Resolve(c *gin.Context) {
	var req struct {
		Outcome string `json:"outcome" binding:"required"`
		Note    string `json:"note"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	dto, err := h.app.ResolveDispute(c.Request.Context(), application.ResolveDisputeCommand{
		TransactionID: c.Param("id"),
		Outcome:       domain.DisputeOutcome(req.Outcome),
		Note:          req.Note,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, dto)
}

func (h *EscrowHandler) CompleteResolution(c *gin.Context) {
	dto, err := h.app.CompleteResolution(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, dto)
}
