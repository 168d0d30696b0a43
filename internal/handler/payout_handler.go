package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/starkclip/crs/internal/errs"
	"github.com/starkclip/crs/internal/logic"
)

type PayoutHandler struct {
	payoutLogic *logic.PayoutLogic
}

func NewPayoutHandler(payoutLogic *logic.PayoutLogic) *PayoutHandler {
	return &PayoutHandler{payoutLogic: payoutLogic}
}

// GetBalance 查询金库余额
func (h *PayoutHandler) GetBalance(c *gin.Context) {
	balance, err := h.payoutLogic.Balance(c.Request.Context())
	if err != nil {
		ErrorResponseFromErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": balance.String()})
}

// PayoutRequest 发放请求
type PayoutRequest struct {
	SubmissionIds []int64 `json:"submissionIds" binding:"required"`
}

// Simulate 模拟发放，零转账
func (h *PayoutHandler) Simulate(c *gin.Context) {
	var req PayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.payoutLogic.Simulate(c.Request.Context(), req.SubmissionIds)
	if err != nil {
		// 余额不足时带上预检明细，管理端可以直接展示缺口
		if errors.Is(err, errs.ErrInsufficientBalance) && result != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "result": result})
			return
		}
		ErrorResponseFromErr(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Execute 执行发放
func (h *PayoutHandler) Execute(c *gin.Context) {
	var req PayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.payoutLogic.Execute(c.Request.Context(), req.SubmissionIds)
	if err != nil {
		if errors.Is(err, errs.ErrInsufficientBalance) && result != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "result": result})
			return
		}
		ErrorResponseFromErr(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
