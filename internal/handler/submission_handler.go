package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/starkclip/crs/internal/logic"
	"github.com/starkclip/crs/internal/model"
	"github.com/starkclip/crs/internal/platform"
	"gorm.io/gorm"
)

type SubmissionHandler struct {
	submissionLogic *logic.SubmissionLogic
	batchLogic      *logic.BatchLogic
}

func NewSubmissionHandler(db *gorm.DB, provider platform.VideoProvider) *SubmissionHandler {
	submissionLogic := logic.NewSubmissionLogic(db, provider)
	return &SubmissionHandler{
		submissionLogic: submissionLogic,
		batchLogic:      logic.NewBatchLogic(db, submissionLogic),
	}
}

// SubmitRequest 视频提交请求
type SubmitRequest struct {
	SessionId     string `json:"sessionId" binding:"required"`
	VideoURL      string `json:"videoUrl" binding:"required"`
	WalletAddress string `json:"walletAddress" binding:"required"`
	CampaignId    *int64 `json:"campaignId"`
}

// Submit 接收视频提交并同步判定
func (h *SubmissionHandler) Submit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.submissionLogic.Intake(c.Request.Context(), req.SessionId, req.VideoURL, req.WalletAddress, req.CampaignId)
	if err != nil {
		ErrorResponseFromErr(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// GetSubmissions 按状态/活动过滤查询提交列表（管理端）
func (h *SubmissionHandler) GetSubmissions(c *gin.Context) {
	status := c.Query("status")

	var campaignId *int64
	if raw := c.Query("campaign_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			ErrorResponse(c, http.StatusBadRequest, "invalid campaign_id")
			return
		}
		campaignId = &id
	}

	submissions, err := h.submissionLogic.GetSubmissions(status, campaignId)
	if err != nil {
		ErrorResponseFromErr(c, err)
		return
	}

	c.JSON(http.StatusOK, submissions)
}

// GetStats 按状态统计提交数量（管理端）
func (h *SubmissionHandler) GetStats(c *gin.Context) {
	stats, err := h.submissionLogic.GetStats()
	if err != nil {
		ErrorResponseFromErr(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// UpdateStatusRequest 单条状态变更请求
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus 单条提交的状态变更（管理端），
// 以记录当前状态为 CAS 预期值
func (h *SubmissionHandler) UpdateStatus(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "invalid submission id")
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	submission, err := h.submissionLogic.GetSubmission(id)
	if err != nil {
		ErrorResponseFromErr(c, err)
		return
	}

	updated, err := h.submissionLogic.Transition(id, submission.Status, model.SubmissionStatus(req.Status))
	if err != nil {
		ErrorResponseFromErr(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// BatchStatusRequest 批量状态变更请求
type BatchStatusRequest struct {
	Ids    []int64 `json:"ids" binding:"required"`
	Status string  `json:"status" binding:"required"`
}

// BatchStatus 批量状态变更（管理端）
func (h *SubmissionHandler) BatchStatus(c *gin.Context) {
	var req BatchStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.batchLogic.ApplyBatch(req.Ids, model.SubmissionStatus(req.Status))
	if err != nil {
		ErrorResponseFromErr(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
