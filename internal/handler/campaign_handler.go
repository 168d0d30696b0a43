package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/starkclip/crs/internal/logic"
	"gorm.io/gorm"
)

type CampaignHandler struct {
	campaignLogic *logic.CampaignLogic
}

func NewCampaignHandler(db *gorm.DB) *CampaignHandler {
	return &CampaignHandler{
		campaignLogic: logic.NewCampaignLogic(db),
	}
}

// GetActiveCampaign 获取对外展示的 primary 活动（公开接口）
func (h *CampaignHandler) GetActiveCampaign(c *gin.Context) {
	campaign, err := h.campaignLogic.GetActiveCampaign()
	if err != nil {
		ErrorResponseFromErr(c, err)
		return
	}
	c.JSON(http.StatusOK, campaign)
}

// GetActiveCampaigns 获取所有激活中的活动（公开接口）
func (h *CampaignHandler) GetActiveCampaigns(c *gin.Context) {
	campaigns, err := h.campaignLogic.GetActiveCampaigns()
	if err != nil {
		ErrorResponseFromErr(c, err)
		return
	}
	c.JSON(http.StatusOK, campaigns)
}

// GetCampaigns 获取全部活动（管理端）
func (h *CampaignHandler) GetCampaigns(c *gin.Context) {
	campaigns, err := h.campaignLogic.GetCampaigns()
	if err != nil {
		ErrorResponseFromErr(c, err)
		return
	}
	c.JSON(http.StatusOK, campaigns)
}

// CreateCampaign 创建活动
func (h *CampaignHandler) CreateCampaign(c *gin.Context) {
	var spec logic.CampaignSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	campaign, err := h.campaignLogic.CreateCampaign(spec)
	if err != nil {
		ErrorResponseFromErr(c, err)
		return
	}

	c.JSON(http.StatusCreated, campaign)
}

// UpdateCampaign 更新活动
func (h *CampaignHandler) UpdateCampaign(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "invalid campaign id")
		return
	}

	var spec logic.CampaignSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	campaign, err := h.campaignLogic.UpdateCampaign(id, spec)
	if err != nil {
		ErrorResponseFromErr(c, err)
		return
	}

	c.JSON(http.StatusOK, campaign)
}

// DeleteCampaign 停用/删除活动
func (h *CampaignHandler) DeleteCampaign(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "invalid campaign id")
		return
	}

	if err := h.campaignLogic.DeactivateCampaign(id); err != nil {
		ErrorResponseFromErr(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "campaign deactivated"})
}
