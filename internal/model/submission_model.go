package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SubmissionModel 视频提交记录模型
type SubmissionModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 视频信息，(video_id, campaign_id) 唯一，同一视频不可重复参加同一活动
	VideoId  string `json:"video_id" gorm:"not null;uniqueIndex:idx_video_campaign"`
	VideoURL string `json:"video_url" gorm:"not null"`

	// 创作者信息
	Username      string `json:"tiktok_username" gorm:"not null"`
	WalletAddress string `json:"wallet_address" gorm:"not null"`

	// 提交时的指标快照，入库后不再更新
	ViewCount    int64 `json:"view_count" gorm:"not null;default:0"`
	LikeCount    int64 `json:"like_count" gorm:"not null;default:0"`
	CommentCount int64 `json:"comment_count" gorm:"not null;default:0"`
	ShareCount   int64 `json:"share_count" gorm:"not null;default:0"`

	// 状态与链上信息
	Status  SubmissionStatus `json:"status" gorm:"not null;default:'pending';index"`
	TxHash  *string          `json:"tx_hash"`
	TxState TxState          `json:"tx_state" gorm:"not null;default:''"`

	// 活动快照，判定时生效的规则随提交保留
	CampaignId   int64           `json:"campaign_id" gorm:"not null;uniqueIndex:idx_video_campaign;index"`
	CampaignName string          `json:"campaign_name"`
	RewardAmount decimal.Decimal `json:"reward_amount" gorm:"type:decimal(38,18);not null"`
}

// TableName 自定义表名
func (SubmissionModel) TableName() string {
	return "submission"
}

// SubmissionStatus 提交状态
type SubmissionStatus string

const (
	SubmissionStatusPending  SubmissionStatus = "pending"  // 已提交待判定
	SubmissionStatusEligible SubmissionStatus = "eligible" // 指标达标
	SubmissionStatusWinner   SubmissionStatus = "winner"   // 已选为获奖者
	SubmissionStatusPaid     SubmissionStatus = "paid"     // 已发放奖励
	SubmissionStatusRejected SubmissionStatus = "rejected" // 已拒绝
)

// TxState 链上转账的确认状态
type TxState string

const (
	TxStateNone       TxState = ""           // 无转账
	TxStateUnresolved TxState = "unresolved" // 已广播但结果未知，待对账
	TxStateConfirmed  TxState = "confirmed"  // 已确认
)

// legalTransitions 状态流转表，paid/rejected 为终态
var legalTransitions = map[SubmissionStatus][]SubmissionStatus{
	SubmissionStatusPending:  {SubmissionStatusEligible, SubmissionStatusRejected},
	SubmissionStatusEligible: {SubmissionStatusWinner, SubmissionStatusPaid, SubmissionStatusRejected},
	SubmissionStatusWinner:   {SubmissionStatusPaid, SubmissionStatusRejected},
	SubmissionStatusPaid:     {},
	SubmissionStatusRejected: {},
}

// ValidStatus 判断是否为已知状态
func ValidStatus(s SubmissionStatus) bool {
	_, ok := legalTransitions[s]
	return ok
}

// CanTransition 判断 from -> to 是否合法
func CanTransition(from, to SubmissionStatus) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal 判断是否为终态
func IsTerminal(s SubmissionStatus) bool {
	return len(legalTransitions[s]) == 0 && ValidStatus(s)
}
