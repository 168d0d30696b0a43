package logic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/starkclip/crs/internal/errs"
	"github.com/starkclip/crs/internal/logger"
	"github.com/starkclip/crs/internal/model"
	"github.com/starkclip/crs/internal/platform"
	"gorm.io/gorm"
)

// SubmissionLogic 提交记录业务逻辑，状态字段的唯一修改入口
type SubmissionLogic struct {
	db       *gorm.DB
	provider platform.VideoProvider
}

// NewSubmissionLogic 创建提交业务逻辑
func NewSubmissionLogic(db *gorm.DB, provider platform.VideoProvider) *SubmissionLogic {
	return &SubmissionLogic{db: db, provider: provider}
}

// IntakeResult 提交并判定后的结果
type IntakeResult struct {
	Eligible   bool                   `json:"eligible"`
	Message    string                 `json:"message"`
	Submission *model.SubmissionModel `json:"submission"`
}

// Intake 接收一次视频提交：解析视频指标快照、唯一性检查、
// 同步执行一次达标判定并落库为 eligible 或 rejected。
// 指标为提交时刻的快照，之后不再刷新，奖励按判定时生效的活动规则快照保留
func (l *SubmissionLogic) Intake(ctx context.Context, sessionId, videoURL, walletAddress string, campaignId *int64) (*IntakeResult, error) {
	if videoURL == "" {
		return nil, errs.Validation("videoUrl is required")
	}
	if walletAddress == "" {
		return nil, errs.Validation("walletAddress is required")
	}

	// 指定活动或取当前 primary 活动
	campaignLogic := NewCampaignLogic(l.db)
	var campaign *model.CampaignModel
	var err error
	if campaignId != nil {
		campaign, err = campaignLogic.GetCampaign(*campaignId)
		if err == nil && !campaign.IsActive {
			return nil, errs.Validation("campaign %d is not active", *campaignId)
		}
	} else {
		campaign, err = campaignLogic.GetActiveCampaign()
	}
	if err != nil {
		return nil, err
	}

	// 向平台协作方换取视频指标快照
	video, err := l.provider.ResolveVideo(ctx, sessionId, videoURL)
	if err != nil {
		return nil, err
	}

	// 同一视频不可重复参加同一活动
	var existing model.SubmissionModel
	err = l.db.Where("video_id = ? AND campaign_id = ?", video.Id, campaign.Id).First(&existing).Error
	if err == nil {
		return nil, fmt.Errorf("%w: video %s in campaign %d", errs.ErrDuplicateSubmission, video.Id, campaign.Id)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check existing submission: %w", err)
	}

	metrics := Metrics{
		Views:    video.Stats.Views,
		Likes:    video.Stats.Likes,
		Comments: video.Stats.Comments,
		Shares:   video.Stats.Shares,
	}

	// 判定只执行一次，pending 只存在于判定前的一瞬间
	eligible, err := Evaluate(metrics, campaign)
	if err != nil {
		return nil, err
	}

	status := model.SubmissionStatusRejected
	message := "Video does not meet the campaign thresholds"
	if eligible {
		status = model.SubmissionStatusEligible
		message = "Video meets the campaign thresholds"
	}

	submission := model.SubmissionModel{
		VideoId:       video.Id,
		VideoURL:      videoURL,
		Username:      video.Username,
		WalletAddress: walletAddress,
		ViewCount:     metrics.Views,
		LikeCount:     metrics.Likes,
		CommentCount:  metrics.Comments,
		ShareCount:    metrics.Shares,
		Status:        status,
		CampaignId:    campaign.Id,
		CampaignName:  campaign.Name,
		RewardAmount:  campaign.RewardAmount,
	}

	if err := l.db.Create(&submission).Error; err != nil {
		// 并发提交同一视频时由唯一索引兜底
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: video %s in campaign %d", errs.ErrDuplicateSubmission, video.Id, campaign.Id)
		}
		return nil, fmt.Errorf("failed to create submission: %w", err)
	}

	logger.Info("Submission %d created for video %s in campaign %d, status: %s",
		submission.Id, video.Id, campaign.Id, status)

	return &IntakeResult{
		Eligible:   eligible,
		Message:    message,
		Submission: &submission,
	}, nil
}

// Transition 状态流转，乐观并发：只有当前状态仍等于 fromExpected 时才会写入。
// 非法的目标状态返回 ErrInvalidTransition，CAS 落空返回 ErrConflict
func (l *SubmissionLogic) Transition(id int64, fromExpected, to model.SubmissionStatus) (*model.SubmissionModel, error) {
	return l.transition(id, fromExpected, to, nil)
}

// TransitionPaid 支付成功后的流转，随状态一并写入交易哈希与确认状态
func (l *SubmissionLogic) TransitionPaid(id int64, fromExpected model.SubmissionStatus, txHash string, txState model.TxState) (*model.SubmissionModel, error) {
	return l.transition(id, fromExpected, model.SubmissionStatusPaid, map[string]interface{}{
		"tx_hash":  txHash,
		"tx_state": txState,
	})
}

func (l *SubmissionLogic) transition(id int64, fromExpected, to model.SubmissionStatus, extra map[string]interface{}) (*model.SubmissionModel, error) {
	if !model.ValidStatus(fromExpected) || !model.ValidStatus(to) {
		return nil, errs.Validation("unknown submission status")
	}
	if !model.CanTransition(fromExpected, to) {
		return nil, errs.InvalidTransition(string(fromExpected), string(to))
	}

	updates := map[string]interface{}{"status": to}
	for k, v := range extra {
		updates[k] = v
	}

	res := l.db.Model(&model.SubmissionModel{}).
		Where("id = ? AND status = ?", id, fromExpected).
		Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to transition submission %d: %w", id, res.Error)
	}

	if res.RowsAffected == 0 {
		// 区分记录不存在与并发修改
		var current model.SubmissionModel
		if err := l.db.First(&current, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: submission %d", errs.ErrNotFound, id)
			}
			return nil, fmt.Errorf("failed to load submission %d: %w", id, err)
		}
		return nil, fmt.Errorf("%w: submission %d is %s, expected %s",
			errs.ErrConflict, id, current.Status, fromExpected)
	}

	var submission model.SubmissionModel
	if err := l.db.First(&submission, id).Error; err != nil {
		return nil, fmt.Errorf("failed to reload submission %d: %w", id, err)
	}

	logger.Info("Submission %d transitioned %s -> %s", id, fromExpected, to)
	return &submission, nil
}

// GetUnresolvedPaid 列出已广播但尚未确认的支付记录，供对账任务跟进
func (l *SubmissionLogic) GetUnresolvedPaid() ([]model.SubmissionModel, error) {
	var submissions []model.SubmissionModel
	if err := l.db.Where("status = ? AND tx_state = ?",
		model.SubmissionStatusPaid, model.TxStateUnresolved).
		Find(&submissions).Error; err != nil {
		return nil, fmt.Errorf("failed to load unresolved payouts: %w", err)
	}
	return submissions, nil
}

// ConfirmPaid 对账：交易达到确认数后把支付标记为已确认
func (l *SubmissionLogic) ConfirmPaid(id int64, txHash string) error {
	res := l.db.Model(&model.SubmissionModel{}).
		Where("id = ? AND status = ? AND tx_hash = ? AND tx_state = ?",
			id, model.SubmissionStatusPaid, txHash, model.TxStateUnresolved).
		Updates(map[string]interface{}{"tx_state": model.TxStateConfirmed})
	if res.Error != nil {
		return fmt.Errorf("failed to confirm payout for submission %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: submission %d changed during confirmation", errs.ErrConflict, id)
	}
	return nil
}

// RevertPaid 对账：交易在链上 revert 时撤销支付标记，
// 记录退回 winner 并清空交易哈希，可再次进入发放批次。
// 这是对 paid 终态的唯一例外，仅限对账路径，CAS 同时校验原交易哈希
func (l *SubmissionLogic) RevertPaid(id int64, txHash string) error {
	res := l.db.Model(&model.SubmissionModel{}).
		Where("id = ? AND status = ? AND tx_hash = ? AND tx_state = ?",
			id, model.SubmissionStatusPaid, txHash, model.TxStateUnresolved).
		Updates(map[string]interface{}{
			"status":   model.SubmissionStatusWinner,
			"tx_hash":  nil,
			"tx_state": model.TxStateNone,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to revert payout for submission %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: submission %d changed during revert", errs.ErrConflict, id)
	}
	logger.Warn("Reverted payout for submission %d, tx %s failed on-chain", id, txHash)
	return nil
}

// GetSubmission 按ID查询提交
func (l *SubmissionLogic) GetSubmission(id int64) (*model.SubmissionModel, error) {
	var submission model.SubmissionModel
	if err := l.db.First(&submission, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: submission %d", errs.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to load submission %d: %w", id, err)
	}
	return &submission, nil
}

// GetSubmissions 按状态/活动过滤查询提交列表（管理端）
func (l *SubmissionLogic) GetSubmissions(status string, campaignId *int64) ([]model.SubmissionModel, error) {
	query := l.db.Model(&model.SubmissionModel{})
	if status != "" {
		if !model.ValidStatus(model.SubmissionStatus(status)) {
			return nil, errs.Validation("unknown status filter %q", status)
		}
		query = query.Where("status = ?", status)
	}
	if campaignId != nil {
		query = query.Where("campaign_id = ?", *campaignId)
	}

	var submissions []model.SubmissionModel
	if err := query.Order("created_at DESC").Find(&submissions).Error; err != nil {
		return nil, fmt.Errorf("failed to load submissions: %w", err)
	}
	return submissions, nil
}

// SubmissionStats 按状态统计
type SubmissionStats struct {
	Total    int64 `json:"total"`
	Pending  int64 `json:"pending"`
	Eligible int64 `json:"eligible"`
	Winners  int64 `json:"winners"`
	Paid     int64 `json:"paid"`
	Rejected int64 `json:"rejected"`
}

// GetStats 获取各状态的提交数量
func (l *SubmissionLogic) GetStats() (*SubmissionStats, error) {
	var rows []struct {
		Status model.SubmissionStatus
		Count  int64
	}
	if err := l.db.Model(&model.SubmissionModel{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load submission stats: %w", err)
	}

	stats := SubmissionStats{}
	for _, row := range rows {
		stats.Total += row.Count
		switch row.Status {
		case model.SubmissionStatusPending:
			stats.Pending = row.Count
		case model.SubmissionStatusEligible:
			stats.Eligible = row.Count
		case model.SubmissionStatusWinner:
			stats.Winners = row.Count
		case model.SubmissionStatusPaid:
			stats.Paid = row.Count
		case model.SubmissionStatusRejected:
			stats.Rejected = row.Count
		}
	}
	return &stats, nil
}

// isUniqueViolation 判断是否唯一约束冲突
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
