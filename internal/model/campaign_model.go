package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CampaignModel 奖励活动模型
type CampaignModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 基本信息
	Name string `json:"name" gorm:"not null" binding:"required"`

	// 达标阈值（提交时快照指标需全部满足）
	MinViews    int64 `json:"min_views" gorm:"not null;default:0"`
	MinLikes    int64 `json:"min_likes" gorm:"not null;default:0"`
	MinComments int64 `json:"min_comments" gorm:"not null;default:0"`
	MinShares   int64 `json:"min_shares" gorm:"not null;default:0"`

	// 奖励信息，金额使用定点小数，避免浮点误差
	RewardAmount decimal.Decimal `json:"reward_amount" gorm:"type:decimal(38,18);not null"`
	MaxWinners   int64           `json:"max_winners" gorm:"not null;default:1"`

	// 激活状态，primary 活动取 activated_at 最新的一条
	IsActive    bool       `json:"is_active" gorm:"not null;default:false"`
	ActivatedAt *time.Time `json:"activated_at"`
}

// TableName 自定义表名
func (CampaignModel) TableName() string {
	return "campaign"
}
