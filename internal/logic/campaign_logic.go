package logic

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/starkclip/crs/internal/errs"
	"github.com/starkclip/crs/internal/model"
	"gorm.io/gorm"
)

// CampaignLogic 奖励活动业务逻辑
type CampaignLogic struct {
	db *gorm.DB
}

// NewCampaignLogic 创建活动业务逻辑
func NewCampaignLogic(db *gorm.DB) *CampaignLogic {
	return &CampaignLogic{db: db}
}

// CampaignSpec 创建/更新活动的输入
type CampaignSpec struct {
	Name         string `json:"name"`
	MinViews     int64  `json:"min_views"`
	MinLikes     int64  `json:"min_likes"`
	MinComments  int64  `json:"min_comments"`
	MinShares    int64  `json:"min_shares"`
	RewardAmount string `json:"reward_amount"`
	MaxWinners   int64  `json:"max_winners"`
	IsActive     bool   `json:"is_active"`
}

// CreateCampaign 创建活动，校验失败不落库
func (l *CampaignLogic) CreateCampaign(spec CampaignSpec) (*model.CampaignModel, error) {
	reward, err := l.validateSpec(spec)
	if err != nil {
		return nil, err
	}

	campaign := model.CampaignModel{
		Name:         spec.Name,
		MinViews:     spec.MinViews,
		MinLikes:     spec.MinLikes,
		MinComments:  spec.MinComments,
		MinShares:    spec.MinShares,
		RewardAmount: reward,
		MaxWinners:   spec.MaxWinners,
		IsActive:     spec.IsActive,
	}
	if spec.IsActive {
		now := time.Now()
		campaign.ActivatedAt = &now
	}

	if err := l.db.Create(&campaign).Error; err != nil {
		return nil, fmt.Errorf("failed to create campaign: %w", err)
	}

	return &campaign, nil
}

// UpdateCampaign 更新活动。修改阈值不会重判已决策的提交，
// 提交记录保留判定时的奖励快照。激活某个活动不会自动停用其它活动。
func (l *CampaignLogic) UpdateCampaign(id int64, spec CampaignSpec) (*model.CampaignModel, error) {
	reward, err := l.validateSpec(spec)
	if err != nil {
		return nil, err
	}

	var campaign model.CampaignModel
	if err := l.db.First(&campaign, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: campaign %d", errs.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to load campaign %d: %w", id, err)
	}

	updates := map[string]interface{}{
		"name":          spec.Name,
		"min_views":     spec.MinViews,
		"min_likes":     spec.MinLikes,
		"min_comments":  spec.MinComments,
		"min_shares":    spec.MinShares,
		"reward_amount": reward,
		"max_winners":   spec.MaxWinners,
		"is_active":     spec.IsActive,
	}

	// 由未激活变为激活时刷新激活时间，决定 primary 活动的归属
	if spec.IsActive && !campaign.IsActive {
		now := time.Now()
		updates["activated_at"] = &now
	}

	if err := l.db.Model(&campaign).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update campaign %d: %w", id, err)
	}

	if err := l.db.First(&campaign, id).Error; err != nil {
		return nil, fmt.Errorf("failed to reload campaign %d: %w", id, err)
	}

	return &campaign, nil
}

// DeactivateCampaign 停用活动（前端的删除按钮），
// 已有提交的活动只停用不删除，保证提交侧的活动引用始终可查
func (l *CampaignLogic) DeactivateCampaign(id int64) error {
	var campaign model.CampaignModel
	if err := l.db.First(&campaign, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: campaign %d", errs.ErrNotFound, id)
		}
		return fmt.Errorf("failed to load campaign %d: %w", id, err)
	}

	var submissionCount int64
	if err := l.db.Model(&model.SubmissionModel{}).Where("campaign_id = ?", id).Count(&submissionCount).Error; err != nil {
		return fmt.Errorf("failed to count submissions for campaign %d: %w", id, err)
	}

	if submissionCount == 0 {
		if err := l.db.Delete(&campaign).Error; err != nil {
			return fmt.Errorf("failed to delete campaign %d: %w", id, err)
		}
		return nil
	}

	if err := l.db.Model(&campaign).Updates(map[string]interface{}{"is_active": false}).Error; err != nil {
		return fmt.Errorf("failed to deactivate campaign %d: %w", id, err)
	}

	return nil
}

// GetCampaign 按ID查询活动
func (l *CampaignLogic) GetCampaign(id int64) (*model.CampaignModel, error) {
	var campaign model.CampaignModel
	if err := l.db.First(&campaign, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: campaign %d", errs.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to load campaign %d: %w", id, err)
	}
	return &campaign, nil
}

// GetActiveCampaign 获取对外展示的 primary 活动：最近激活的一条
func (l *CampaignLogic) GetActiveCampaign() (*model.CampaignModel, error) {
	var campaign model.CampaignModel
	err := l.db.Where("is_active = ?", true).
		Order("activated_at DESC").
		First(&campaign).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: no active campaign", errs.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load active campaign: %w", err)
	}
	return &campaign, nil
}

// GetActiveCampaigns 获取所有激活中的活动
func (l *CampaignLogic) GetActiveCampaigns() ([]model.CampaignModel, error) {
	var campaigns []model.CampaignModel
	if err := l.db.Where("is_active = ?", true).
		Order("activated_at DESC").
		Find(&campaigns).Error; err != nil {
		return nil, fmt.Errorf("failed to load active campaigns: %w", err)
	}
	return campaigns, nil
}

// GetCampaigns 获取全部活动（管理端）
func (l *CampaignLogic) GetCampaigns() ([]model.CampaignModel, error) {
	var campaigns []model.CampaignModel
	if err := l.db.Order("created_at DESC").Find(&campaigns).Error; err != nil {
		return nil, fmt.Errorf("failed to load campaigns: %w", err)
	}
	return campaigns, nil
}

// validateSpec 校验活动输入并解析奖励金额
func (l *CampaignLogic) validateSpec(spec CampaignSpec) (decimal.Decimal, error) {
	if spec.Name == "" {
		return decimal.Zero, errs.Validation("campaign name must not be empty")
	}
	if spec.MinViews < 0 || spec.MinLikes < 0 || spec.MinComments < 0 || spec.MinShares < 0 {
		return decimal.Zero, errs.Validation("thresholds must be non-negative")
	}
	if spec.MaxWinners < 1 {
		return decimal.Zero, errs.Validation("max_winners must be at least 1")
	}

	reward, err := decimal.NewFromString(spec.RewardAmount)
	if err != nil {
		return decimal.Zero, errs.Validation("reward_amount %q is not a valid decimal", spec.RewardAmount)
	}
	if reward.IsNegative() {
		return decimal.Zero, errs.Validation("reward_amount must be non-negative")
	}

	return reward, nil
}
