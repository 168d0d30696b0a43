package task

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/panjf2000/ants/v2"
	"github.com/starkclip/crs/internal/config"
	"github.com/starkclip/crs/internal/logger"
	"github.com/starkclip/crs/internal/logic"
	"github.com/starkclip/crs/internal/model"
	"github.com/starkclip/crs/internal/treasury"
	"gorm.io/gorm"
)

// PayoutConfirmJob 支付确认对账任务。
// 已广播的转账先以 unresolved 落库，本任务轮询链上回执：
// 达到确认数的标记 confirmed，链上 revert 的撤销支付标记退回 winner
type PayoutConfirmJob struct {
	db              *gorm.DB
	config          *config.Config
	treasury        treasury.Treasury
	submissionLogic *logic.SubmissionLogic
}

// NewPayoutConfirmJob 创建支付确认任务
func NewPayoutConfirmJob(db *gorm.DB, cfg *config.Config, t treasury.Treasury, submissionLogic *logic.SubmissionLogic) *PayoutConfirmJob {
	return &PayoutConfirmJob{
		db:              db,
		config:          cfg,
		treasury:        t,
		submissionLogic: submissionLogic,
	}
}

// GetName 获取任务名称
func (j *PayoutConfirmJob) GetName() string {
	return "payout_confirm_updater"
}

// GetSchedule 获取调度配置
func (j *PayoutConfirmJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(time.Duration(j.config.Task.Interval) * time.Second)
}

// Execute 执行任务，回执查询是只读操作，用协程池并发加速
func (j *PayoutConfirmJob) Execute() {
	submissions, err := j.submissionLogic.GetUnresolvedPaid()
	if err != nil {
		logger.Error("Failed to fetch unresolved payouts: %v", err)
		return
	}
	if len(submissions) == 0 {
		return
	}

	logger.Info("Checking %d unresolved payout(s)", len(submissions))

	poolSize := j.config.Task.PoolSize
	if poolSize <= 0 {
		poolSize = 8
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		logger.Error("Failed to create confirmation pool: %v", err)
		return
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i := range submissions {
		submission := submissions[i]
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			j.checkOne(submission)
		}); err != nil {
			wg.Done()
			logger.Error("Failed to submit confirmation check for submission %d: %v", submission.Id, err)
		}
	}
	wg.Wait()
}

// checkOne 检查单条支付的链上回执
func (j *PayoutConfirmJob) checkOne(submission model.SubmissionModel) {
	if submission.TxHash == nil {
		logger.Error("Unresolved payout %d has no tx hash", submission.Id)
		return
	}
	txHash := *submission.TxHash

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	outcome, err := j.treasury.ConfirmTransfer(ctx, txHash)
	if err != nil {
		logger.Warn("Failed to check tx %s for submission %d: %v", txHash, submission.Id, err)
		return
	}

	switch outcome {
	case treasury.TxOutcomeConfirmed:
		if err := j.submissionLogic.ConfirmPaid(submission.Id, txHash); err != nil {
			logger.Error("Failed to confirm payout for submission %d: %v", submission.Id, err)
			return
		}
		logger.Info("Payout for submission %d confirmed, tx %s", submission.Id, txHash)
	case treasury.TxOutcomeFailed:
		if err := j.submissionLogic.RevertPaid(submission.Id, txHash); err != nil {
			logger.Error("Failed to revert payout for submission %d: %v", submission.Id, err)
		}
	default:
		// 回执未就绪，下一轮再查
	}
}
