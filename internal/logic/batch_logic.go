package logic

import (
	"github.com/starkclip/crs/internal/errs"
	"github.com/starkclip/crs/internal/logger"
	"github.com/starkclip/crs/internal/model"
	"gorm.io/gorm"
)

// BatchLogic 批量状态变更，管理端操作。不做整批事务，
// 逐条独立处理，单条失败不影响其余记录
type BatchLogic struct {
	db              *gorm.DB
	submissionLogic *SubmissionLogic
}

// NewBatchLogic 创建批量操作业务逻辑
func NewBatchLogic(db *gorm.DB, submissionLogic *SubmissionLogic) *BatchLogic {
	return &BatchLogic{db: db, submissionLogic: submissionLogic}
}

// BatchFailure 单条失败的原因
type BatchFailure struct {
	Id     int64  `json:"id"`
	Reason string `json:"reason"`
}

// BatchResult 批量操作结果
type BatchResult struct {
	Succeeded []int64        `json:"succeeded"`
	Failed    []BatchFailure `json:"failed"`
}

// ApplyBatch 把目标状态逐条应用到一组提交。
// 以每条记录当前的状态作为 CAS 预期值，终态或状态不匹配的记录记为失败，不自动重试
func (b *BatchLogic) ApplyBatch(ids []int64, to model.SubmissionStatus) (*BatchResult, error) {
	if len(ids) == 0 {
		return nil, errs.Validation("ids must not be empty")
	}
	if !model.ValidStatus(to) {
		return nil, errs.Validation("unknown target status %q", to)
	}

	result := &BatchResult{
		Succeeded: make([]int64, 0, len(ids)),
		Failed:    make([]BatchFailure, 0),
	}

	for _, id := range ids {
		submission, err := b.submissionLogic.GetSubmission(id)
		if err != nil {
			result.Failed = append(result.Failed, BatchFailure{Id: id, Reason: err.Error()})
			continue
		}

		if _, err := b.submissionLogic.Transition(id, submission.Status, to); err != nil {
			result.Failed = append(result.Failed, BatchFailure{Id: id, Reason: err.Error()})
			continue
		}

		result.Succeeded = append(result.Succeeded, id)
	}

	logger.Info("Batch status update to %s: %d succeeded, %d failed",
		to, len(result.Succeeded), len(result.Failed))

	return result, nil
}
